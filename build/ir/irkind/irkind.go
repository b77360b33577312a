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

// Package irkind defines the kinds of nodes of a stencil program
// and the element types their values can have.
package irkind

import "github.com/gx-org/backend/dtype"

// Kind of a node.
type Kind uint

// Kinds of node in a program.
const (
	Invalid Kind = iota

	// Func is a vector or stencil function definition.
	Func
	// Arg is a formal argument of a function.
	Arg

	// Assign is an assignment statement.
	Assign
	// Loop is a loop statement.
	Loop

	// Ident is a reference to a definition.
	Ident
	// Scaled is an expression accessed through a scale function.
	Scaled
	// Composed is a union of disjoint pieces.
	Composed
	// Call is a function application.
	Call
	// Struct is a struct construction.
	Struct
	// Binary is an element-wise binary operation.
	Binary

	// Max value for a Kind constant.
	Max
)

// String returns a string representation of a kind.
func (k Kind) String() string {
	switch k {
	case Func:
		return "function"
	case Arg:
		return "argument"
	case Assign:
		return "assignment"
	case Loop:
		return "loop"
	case Ident:
		return "identifier"
	case Scaled:
		return "scaled expression"
	case Composed:
		return "composed expression"
	case Call:
		return "function application"
	case Struct:
		return "struct construction"
	case Binary:
		return "binary expression"
	}
	return "invalid"
}

// IsStmt returns true if the kind is a statement kind.
func (k Kind) IsStmt() bool {
	return k == Assign || k == Loop
}

// IsExpr returns true if the kind is an expression kind.
func (k Kind) IsExpr() bool {
	return k >= Ident && k < Max
}

// IsKnown returns true if the element type has been specified.
// Composite values, such as structures, have no element type.
func IsKnown(dt dtype.DataType) bool {
	return dt != dtype.Invalid
}

// SizeOf returns the size in bytes of an element, 0 if the element type is unknown.
func SizeOf(dt dtype.DataType) int {
	if !IsKnown(dt) {
		return 0
	}
	return dtype.Sizeof(dt)
}
