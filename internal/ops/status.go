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
	"errors"
	"fmt"
)

// Outcome of an operation, as reported to the caller alongside the accumulated messages
type Status int

const (
	StatusSuccess     Status = iota // Operation completed
	StatusError                     // Generic error, image pipeline aborted
	StatusUnsupported               // Requested combination is not supported
	StatusNoCameraWB                // Camera white balance unavailable. Recoverable with auto white balance
	StatusVerbose                   // Informational message
	StatusOpenError                 // Input could not be opened. Raised by collaborators only
	StatusWarning                   // Recovered locally, results may deviate from the request
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	case StatusUnsupported:
		return "unsupported"
	case StatusNoCameraWB:
		return "no camera white balance"
	case StatusVerbose:
		return "verbose"
	case StatusOpenError:
		return "open error"
	case StatusWarning:
		return "warning"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Severity ordering for combining statuses. Informational messages never outrank success.
func (s Status) severity() int {
	switch s {
	case StatusSuccess, StatusVerbose:
		return 0
	case StatusNoCameraWB, StatusWarning:
		return 1
	case StatusUnsupported:
		return 2
	default:
		return 3
	}
}

var (
	ErrUnsupported = errors.New("unsupported")
	ErrNoCameraWB  = errors.New("cannot use camera white balance")
	ErrOutOfMemory = errors.New("out of memory")
	ErrInvalid     = errors.New("invalid input")
	ErrOpen        = errors.New("cannot open input")
)

// Classifies an error into a status
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, ErrUnsupported):
		return StatusUnsupported
	case errors.Is(err, ErrNoCameraWB):
		return StatusNoCameraWB
	case errors.Is(err, ErrOpen):
		return StatusOpenError
	default:
		return StatusError
	}
}

// A diagnostic message recorded during a run
type Message struct {
	Status Status `json:"status"`
	Text   string `json:"text"`
}

func (m Message) String() string {
	return fmt.Sprintf("%s: %s", m.Status, m.Text)
}
