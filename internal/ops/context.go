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
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/cpuid"
	"github.com/pbnjay/memory"
)

// An execution context for one image run. Carries the log writer, the accumulated
// diagnostic messages, the memory budget and the read-only lookup tables built
// during the run.
type Context struct {
	Log      io.Writer
	Verbose  bool
	MemoryMB int // memory.TotalMemory()/1024/1024
	Messages []Message

	tables map[interface{}]interface{}
}

func NewContext(log io.Writer, verbose bool) *Context {
	if log == nil {
		log = io.Discard
	}
	return &Context{
		Log:      log,
		Verbose:  verbose,
		MemoryMB: int(memory.TotalMemory() / 1024 / 1024),
		tables:   map[interface{}]interface{}{},
	}
}

// Describes the host the run executes on
func (c *Context) Host() string {
	return fmt.Sprintf("%s, %d logical cores, AVX2 %v, %d MiB memory",
		strings.TrimSpace(cpuid.CPU.BrandName), cpuid.CPU.LogicalCores, cpuid.CPU.AVX2(), c.MemoryMB)
}

// Records a diagnostic message and echoes it to the log. Verbose messages
// are only echoed if the context is verbose.
func (c *Context) Messagef(status Status, format string, args ...interface{}) {
	text := fmt.Sprintf(format, args...)
	c.Messages = append(c.Messages, Message{Status: status, Text: text})
	if status == StatusVerbose && !c.Verbose {
		return
	}
	if strings.HasSuffix(text, "\n") {
		fmt.Fprint(c.Log, text)
	} else {
		fmt.Fprintln(c.Log, text)
	}
}

// Records an error as a message with the matching status, and returns it unchanged
func (c *Context) Fail(err error) error {
	if err != nil {
		c.Messagef(StatusOf(err), "%s", err.Error())
	}
	return err
}

// Returns the most severe status of all recorded messages
func (c *Context) Status() Status {
	res := StatusSuccess
	for _, m := range c.Messages {
		if m.Status.severity() > res.severity() {
			res = m.Status
		}
	}
	return res
}

// Concatenates all recorded messages, one per line
func (c *Context) String() string {
	b := strings.Builder{}
	for _, m := range c.Messages {
		b.WriteString(strings.TrimSuffix(m.Text, "\n"))
		b.WriteRune('\n')
	}
	return b.String()
}

// Checks that a pixel buffer of the given size fits into physical memory
func (c *Context) CheckAlloc(pixels int) error {
	if pixels < 0 {
		return fmt.Errorf("%w: buffer of %d pixels", ErrInvalid, pixels)
	}
	const bytesPerPixel = 8
	if c.MemoryMB > 0 && pixels/1024*bytesPerPixel/1024 > c.MemoryMB {
		return fmt.Errorf("%w: buffer of %d pixels exceeds %d MiB", ErrOutOfMemory, pixels, c.MemoryMB)
	}
	return nil
}

// Returns the table cached under the given key, building it on first use.
// Keys must capture every input the table depends on.
func (c *Context) Table(key interface{}, build func() interface{}) interface{} {
	if c.tables == nil {
		c.tables = map[interface{}]interface{}{}
	}
	if t, ok := c.tables[key]; ok {
		return t
	}
	t := build()
	c.tables[key] = t
	return t
}
