// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fmterr

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// StackTrace returns the stack trace recorded where an error was created.
func StackTrace(err error) (errors.StackTrace, bool) {
	var withSt interface {
		StackTrace() errors.StackTrace
	}
	if !errors.As(err, &withSt) {
		return nil, false
	}
	return withSt.StackTrace(), true
}

type stackTraceError struct {
	err error
}

// ToStackTraceError returns an error that also prints where it was
// created when formatted with %+v.
func ToStackTraceError(err error) error {
	if err == nil {
		return nil
	}
	return stackTraceError{err: err}
}

func (err stackTraceError) Unwrap() error {
	return err.err
}

func (err stackTraceError) Error() string {
	return err.err.Error()
}

func (err stackTraceError) Format(s fmt.State, verb rune) {
	format(err, s, verb)
}

// format writes an error with its stack trace if the verb is %+v.
func format(err error, s fmt.State, verb rune) {
	switch verb {
	case 'q':
		fmt.Fprintf(s, "%q", err.Error())
		return
	case 'v':
		if !s.Flag('+') {
			break
		}
		io.WriteString(s, err.Error())
		if st, ok := StackTrace(err); ok {
			fmt.Fprintf(s, "\nError generated at:%+v\n", st)
		}
		return
	}
	io.WriteString(s, err.Error())
}
