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

package pexpr

import (
	"math"

	"github.com/gx-org/stencil/build/fmterr"
)

// orUndefined returns Undefined if the operation failed.
// Operations returning no error only fail when folding literals overflows.
func orUndefined(r Expr, err error) Expr {
	if err != nil {
		return Undefined
	}
	return r
}

// Add returns x + y.
// The result is Undefined if folding literals overflows.
func Add(x, y Expr) Expr {
	return orUndefined(binary(OpAdd, x, y))
}

// AddInt returns x + v.
func AddInt(x Expr, v int64) Expr {
	return Add(x, NewInt(v))
}

// Sub returns x - y.
// The result is Undefined if folding literals overflows.
func Sub(x, y Expr) Expr {
	return orUndefined(binary(OpSub, x, y))
}

// SubInt returns x - v.
func SubInt(x Expr, v int64) Expr {
	return Sub(x, NewInt(v))
}

// Mul returns x * y.
// At most one of the operands can be a symbolic expression:
// the product of two symbolic expressions is not affine in the parameters.
func Mul(x, y Expr) (Expr, error) {
	return binary(OpMul, x, y)
}

// MulInt returns x * v.
// The result is Undefined if folding literals overflows.
func MulInt(x Expr, v int64) Expr {
	return orUndefined(binary(OpMul, x, NewInt(v)))
}

// Div returns x / y, truncated toward zero.
func Div(x, y Expr) (Expr, error) {
	return binary(OpDiv, x, y)
}

// DivInt returns x / v, truncated toward zero.
func DivInt(x Expr, v int64) (Expr, error) {
	return binary(OpDiv, x, NewInt(v))
}

// CeilDiv returns x / y rounded up (see CeilDivInt64).
func CeilDiv(x, y Expr) (Expr, error) {
	return binary(OpCeil, x, y)
}

// CeilDivInt returns x / v rounded up (see CeilDivInt64).
func CeilDivInt(x Expr, v int64) (Expr, error) {
	return binary(OpCeil, x, NewInt(v))
}

// Max returns the maximum of x and y.
func Max(x, y Expr) Expr {
	r, _ := binary(OpMax, x, y)
	return r
}

// MaxInt returns the maximum of x and v.
func MaxInt(x Expr, v int64) Expr {
	return Max(x, NewInt(v))
}

// Min returns the minimum of x and y.
func Min(x, y Expr) Expr {
	r, _ := binary(OpMin, x, y)
	return r
}

// MinInt returns the minimum of x and v.
func MinInt(x Expr, v int64) Expr {
	return Min(x, NewInt(v))
}

// Apply applies a binary operator to two expressions.
func Apply(op Op, x, y Expr) (Expr, error) {
	return binary(op, x, y)
}

// CeilDivInt64 divides a by b.
// The result is rounded toward +inf when a is positive and
// truncated toward zero when a is negative.
func CeilDivInt64(a, b int64) int64 {
	if a >= 0 && a%b != 0 {
		return a/b + 1
	}
	return a / b
}

// FloorDivInt64 divides a by b.
// The result is truncated when a is positive and
// rounded toward -inf when a is negative.
func FloorDivInt64(a, b int64) int64 {
	if a < 0 && a%b != 0 {
		return a/b - 1
	}
	return a / b
}

func addInt64(a, b int64) (int64, bool) {
	r := a + b
	return r, (b >= 0) == (r >= a)
}

func subInt64(a, b int64) (int64, bool) {
	r := a - b
	return r, (b >= 0) == (r <= a)
}

func mulInt64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	r := a * b
	if r/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return r, false
	}
	return r, true
}

func overflow(op Op, a, b int64) error {
	return fmterr.Errorf(fmterr.IntegerOverflow, "cannot fold %s(%d, %d): result overflows int64", op, a, b)
}

func fold(op Op, a, b int64) (int64, error) {
	checked := func(r int64, ok bool) (int64, error) {
		if !ok {
			return 0, overflow(op, a, b)
		}
		return r, nil
	}
	switch op {
	case OpAdd:
		return checked(addInt64(a, b))
	case OpSub:
		return checked(subInt64(a, b))
	case OpMul:
		return checked(mulInt64(a, b))
	case OpDiv:
		if b == 0 {
			return 0, fmterr.Errorf(fmterr.DivisionByZero, "cannot compute %d / 0", a)
		}
		if a == math.MinInt64 && b == -1 {
			return 0, overflow(op, a, b)
		}
		return a / b, nil
	case OpCeil:
		if b == 0 {
			return 0, fmterr.Errorf(fmterr.DivisionByZero, "cannot compute ceil(%d / 0)", a)
		}
		if a == math.MinInt64 && b == -1 {
			return 0, overflow(op, a, b)
		}
		return CeilDivInt64(a, b), nil
	case OpMax:
		return max(a, b), nil
	case OpMin:
		return min(a, b), nil
	}
	return 0, fmterr.Internalf("operator %s not supported", op)
}

func binary(op Op, x, y Expr) (Expr, error) {
	if IsUndefined(x) || IsUndefined(y) {
		return Undefined, nil
	}
	xVal, xLit := Literal(x)
	yVal, yLit := Literal(y)
	if xLit && yLit {
		val, err := fold(op, xVal, yVal)
		if err != nil {
			return nil, err
		}
		return NewInt(val), nil
	}
	if r := elide(op, x, y); r != nil {
		return r, nil
	}
	switch op {
	case OpMul:
		if !xLit && !yLit {
			return nil, fmterr.Errorf(fmterr.SymbolicMultiplyOfTwoNonLiterals, "cannot multiply %s by %s: domain sizes must be affine in the parameters", x, y)
		}
	case OpDiv, OpCeil:
		if yLit && yVal == 0 {
			return nil, fmterr.Errorf(fmterr.DivisionByZero, "cannot divide %s by 0", x)
		}
	}
	if xLit && !yLit && op.Commutative() {
		// Keep the literal on the right to fold it with the next operand.
		x, y = y, x
		yVal, yLit = xVal, xLit
	}
	if yLit {
		if r, ok := reassociate(op, x, yVal); ok {
			return r, nil
		}
	}
	return &Binary{Op: op, X: x, Y: y}, nil
}

// elide returns the operand that makes the operation a no-op, nil if there is none.
func elide(op Op, x, y Expr) Expr {
	isLit := func(e Expr, v int64) bool {
		val, ok := Literal(e)
		return ok && val == v
	}
	switch op {
	case OpAdd:
		if isLit(y, 0) {
			return x
		}
		if isLit(x, 0) {
			return y
		}
	case OpSub:
		if isLit(y, 0) {
			return x
		}
		if Equal(x, y) {
			return NewInt(0)
		}
	case OpMul:
		if isLit(y, 1) {
			return x
		}
		if isLit(x, 1) {
			return y
		}
		if isLit(x, 0) || isLit(y, 0) {
			return NewInt(0)
		}
	case OpDiv, OpCeil:
		if isLit(y, 1) {
			return x
		}
	case OpMax, OpMin:
		if Equal(x, y) {
			return x
		}
	}
	return nil
}

// shift returns x + n, using a subtraction if n is negative.
func shift(x Expr, n int64) Expr {
	switch {
	case n == 0:
		return x
	case n < 0 && n != math.MinInt64:
		return &Binary{Op: OpSub, X: x, Y: NewInt(-n)}
	}
	return &Binary{Op: OpAdd, X: x, Y: NewInt(n)}
}

// splitLiteral splits a binary expression into its symbolic operand and its literal operand.
func splitLiteral(x *Binary) (sym Expr, lit int64, litOnLeft bool, ok bool) {
	if val, isLit := Literal(x.Y); isLit {
		return x.X, val, false, true
	}
	if val, isLit := Literal(x.X); isLit {
		return x.Y, val, true, true
	}
	return nil, 0, false, false
}

// reassociate folds the literal v into the literal operand of x.
// A new expression is returned: x is left untouched.
func reassociate(op Op, x Expr, v int64) (Expr, bool) {
	bin, ok := x.(*Binary)
	if !ok {
		return nil, false
	}
	sym, c, litOnLeft, ok := splitLiteral(bin)
	if !ok {
		return nil, false
	}
	if op == OpSub && (bin.Op == OpAdd || bin.Op == OpSub) {
		if v == math.MinInt64 {
			return nil, false
		}
		op, v = OpAdd, -v
	}
	switch {
	case op == OpAdd && bin.Op == OpAdd:
		r, ok := addInt64(c, v)
		if !ok {
			return nil, false
		}
		return shift(sym, r), true
	case op == OpAdd && bin.Op == OpSub && !litOnLeft:
		// (sym - c) + v
		r, ok := subInt64(v, c)
		if !ok {
			return nil, false
		}
		return shift(sym, r), true
	case op == OpAdd && bin.Op == OpSub && litOnLeft:
		// (c - sym) + v
		r, ok := addInt64(c, v)
		if !ok {
			return nil, false
		}
		return &Binary{Op: OpSub, X: NewInt(r), Y: sym}, true
	case op == OpMul && bin.Op == OpMul:
		r, ok := mulInt64(c, v)
		if !ok {
			return nil, false
		}
		return elideOrBuild(OpMul, sym, r), true
	case (op == OpDiv || op == OpCeil) && bin.Op == OpMul && v != 0 && c%v == 0 && (c != math.MinInt64 || v != -1):
		// (sym * c) / v is exact when v divides c.
		return elideOrBuild(OpMul, sym, c/v), true
	case op == OpMax && bin.Op == OpMax:
		return &Binary{Op: OpMax, X: sym, Y: NewInt(max(c, v))}, true
	case op == OpMin && bin.Op == OpMin:
		return &Binary{Op: OpMin, X: sym, Y: NewInt(min(c, v))}, true
	}
	return nil, false
}

func elideOrBuild(op Op, x Expr, v int64) Expr {
	lit := NewInt(v)
	if r := elide(op, x, lit); r != nil {
		return r
	}
	return &Binary{Op: op, X: x, Y: lit}
}
