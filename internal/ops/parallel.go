// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package ops

import (
	"io"
	"sync"
)

// Serializes writes from concurrent jobs onto one log
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// Runs job for the indices 0..n-1, limiting concurrency to maxThreads. Every job
// gets its own context logging to log. Waits for all jobs, and returns their
// contexts along with the error of the lowest failing index.
func ApplyParallel(n, maxThreads int, log io.Writer, verbose bool, job func(i int, c *Context) error) ([]*Context, error) {
	if maxThreads < 1 {
		maxThreads = 1
	}
	if log == nil {
		log = io.Discard
	}
	shared := &syncWriter{w: log}
	contexts := make([]*Context, n)
	errs := make([]error, n)
	sem := make(chan bool, maxThreads)
	for i := 0; i < n; i++ {
		contexts[i] = NewContext(shared, verbose)
		sem <- true
		go func(i int) {
			defer func() { <-sem }()
			errs[i] = job(i, contexts[i])
		}(i)
	}
	for i := 0; i < cap(sem); i++ { // wait for goroutines to finish
		sem <- true
	}
	for _, err := range errs {
		if err != nil {
			return contexts, err
		}
	}
	return contexts, nil
}
