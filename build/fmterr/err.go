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
	"go/token"
	"runtime/debug"

	"github.com/pkg/errors"
)

type (
	// ErrorWithPos is an error attached to a position in the source code.
	ErrorWithPos interface {
		error
		FSet() *token.FileSet
		Pos() token.Pos
		Err() error
	}

	errorWithPos struct {
		fset *token.FileSet
		pos  token.Pos
		err  error
	}

	kindError struct {
		kind Kind
		err  error
	}
)

// Errorf returns a formatted compiler error of a given kind.
// The error records the stack trace where it has been created.
func Errorf(kind Kind, format string, a ...any) error {
	return &kindError{kind: kind, err: errors.Errorf(format, a...)}
}

// AsInternal marks an error as internal.
func AsInternal(err error) error {
	return &kindError{
		kind: Internal,
		err:  errors.WithMessage(err, "stencil internal error. This is a bug in the compiler. Please report it. Error"),
	}
}

// Internalf returns a formatted internal error.
func Internalf(format string, a ...any) error {
	return AsInternal(errors.Errorf(format, a...))
}

// KindOf returns the kind of an error.
// The second return value is false if the error has no kind.
func KindOf(err error) (Kind, bool) {
	var kErr *kindError
	if !errors.As(err, &kErr) {
		return Internal, false
	}
	return kErr.kind, true
}

// Is returns true if the error, or one of the error it wraps, is of the given kind.
func Is(err error, kind Kind) bool {
	got, ok := KindOf(err)
	return ok && got == kind
}

// Error returns the error message prefixed by its kind.
func (err *kindError) Error() string {
	return err.kind.String() + ": " + err.err.Error()
}

// Unwrap the error.
func (err *kindError) Unwrap() error {
	return err.err
}

// Format writes the error into the state of the formatter.
func (err *kindError) Format(s fmt.State, verb rune) {
	format(err, s, verb)
}

// Position adds position information to an error.
// The error is returned unchanged if the position is not valid.
func Position(fset *token.FileSet, pos token.Pos, err error) error {
	if err == nil || !pos.IsValid() {
		return err
	}
	return errorWithPos{
		fset: fset,
		pos:  pos,
		err:  err,
	}
}

// PositionIfNone adds position information to an error
// unless the error already has a position.
func PositionIfNone(fset *token.FileSet, pos token.Pos, err error) error {
	var posErr ErrorWithPos
	if errors.As(err, &posErr) {
		return err
	}
	return Position(fset, pos, err)
}

// Error returns a string description of the error.
func (err errorWithPos) Error() (s string) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		s = fmt.Sprintf("recovered from panic when building error message: %T:\n%v", err.err, string(debug.Stack()))
	}()
	if err.fset == nil {
		return err.err.Error()
	}
	return PosString(err.fset, err.pos) + " " + err.err.Error()
}

// Unwrap the error.
func (err errorWithPos) Unwrap() error {
	return err.err
}

// Format writes the error into the state of the formatter.
func (err errorWithPos) Format(s fmt.State, verb rune) {
	format(err, s, verb)
}

func (err errorWithPos) FSet() *token.FileSet {
	return err.fset
}

func (err errorWithPos) Pos() token.Pos {
	return err.pos
}

func (err errorWithPos) Err() error {
	return err.err
}

// PosString returns a position as a string that can be used for an error.
func PosString(fset *token.FileSet, pos token.Pos) string {
	return fset.Position(pos).String() + ":"
}
