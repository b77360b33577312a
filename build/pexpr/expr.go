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

// Package pexpr implements parametric expressions: symbolic integer values
// over literals and named compile-time parameters.
//
// Expressions are immutable once built. The operations of the algebra
// never modify their operands and may return one of them unchanged,
// so an operand can be embedded into a result without being copied.
// Use Copy to get an independent tree that can be modified.
package pexpr

import (
	"fmt"
	"strconv"
)

type (
	// Expr is a parametric expression. Valid implementations are
	// *Int, *Param, *Binary and Undefined.
	Expr interface {
		fmt.Stringer
		expr()
	}

	// Int is an integer literal.
	Int struct {
		Val int64
	}

	// Param is a reference to a named compile-time parameter.
	// The parameter itself is defined in the parameter table of the program.
	Param struct {
		Name    string
		Default *int64
	}

	// Binary is a binary operation between two expressions.
	// A Binary owns both its operands.
	Binary struct {
		Op   Op
		X, Y Expr
	}

	undefined struct{}
)

// Undefined is an expression that has not been constrained yet.
// It is different from any numeric value.
var Undefined Expr = &undefined{}

// Op is a binary operator.
type Op int

// Binary operators.
const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpCeil
	OpMax
	OpMin
)

// String representation of the operator.
func (op Op) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpCeil:
		return "ceil"
	case OpMax:
		return "max"
	case OpMin:
		return "min"
	}
	return "op(" + strconv.Itoa(int(op)) + ")"
}

// Commutative returns true if the operands of the operator can be swapped.
func (op Op) Commutative() bool {
	switch op {
	case OpAdd, OpMul, OpMax, OpMin:
		return true
	}
	return false
}

// NewInt returns a new integer literal.
func NewInt(val int64) *Int {
	return &Int{Val: val}
}

// NewParam returns a reference to a parameter with no default value.
func NewParam(name string) *Param {
	return &Param{Name: name}
}

// NewParamWithDefault returns a reference to a parameter with a default value.
func NewParamWithDefault(name string, def int64) *Param {
	return &Param{Name: name, Default: &def}
}

func (*Int) expr()       {}
func (*Param) expr()     {}
func (*Binary) expr()    {}
func (*undefined) expr() {}

// String representation of the literal.
func (x *Int) String() string {
	return strconv.FormatInt(x.Val, 10)
}

// String representation of the parameter reference.
func (x *Param) String() string {
	return x.Name
}

// String representation of the operation.
func (x *Binary) String() string {
	switch x.Op {
	case OpCeil:
		return fmt.Sprintf("ceil(%s / %s)", x.X, x.Y)
	case OpMax, OpMin:
		return fmt.Sprintf("%s(%s, %s)", x.Op, x.X, x.Y)
	}
	return fmt.Sprintf("(%s %s %s)", x.X, x.Op, x.Y)
}

func (*undefined) String() string {
	return "?"
}

// IsUndefined returns true if the expression is Undefined.
// A nil expression is also considered as undefined.
func IsUndefined(x Expr) bool {
	return x == nil || x == Undefined
}

// Literal returns the value of x if x is a literal.
func Literal(x Expr) (int64, bool) {
	lit, ok := x.(*Int)
	if !ok {
		return 0, false
	}
	return lit.Val, true
}

// IsLiteral returns true if x is an integer literal.
func IsLiteral(x Expr) bool {
	_, ok := x.(*Int)
	return ok
}

// Equal returns true if x and y are structurally equal.
// Operands of commutative operators are compared in both orders.
func Equal(x, y Expr) bool {
	if IsUndefined(x) || IsUndefined(y) {
		return IsUndefined(x) && IsUndefined(y)
	}
	switch xT := x.(type) {
	case *Int:
		yT, ok := y.(*Int)
		return ok && xT.Val == yT.Val
	case *Param:
		yT, ok := y.(*Param)
		return ok && xT.Name == yT.Name
	case *Binary:
		yT, ok := y.(*Binary)
		if !ok || xT.Op != yT.Op {
			return false
		}
		if Equal(xT.X, yT.X) && Equal(xT.Y, yT.Y) {
			return true
		}
		return xT.Op.Commutative() && Equal(xT.X, yT.Y) && Equal(xT.Y, yT.X)
	}
	return false
}

// Copy returns a deep copy of an expression.
func Copy(x Expr) Expr {
	switch xT := x.(type) {
	case *Int:
		return NewInt(xT.Val)
	case *Param:
		cp := &Param{Name: xT.Name}
		if xT.Default != nil {
			def := *xT.Default
			cp.Default = &def
		}
		return cp
	case *Binary:
		return &Binary{Op: xT.Op, X: Copy(xT.X), Y: Copy(xT.Y)}
	}
	return Undefined
}
