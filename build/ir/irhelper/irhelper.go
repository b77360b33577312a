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

// Package irhelper provides helper functions to build programs programmatically.
//
// A Builder records the first error it encounters. Once an error has been
// recorded, all the functions building nodes return ir.NoNode.
package irhelper

import (
	"go/token"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/stencil/build/domain"
	"github.com/gx-org/stencil/build/ir"
	"github.com/gx-org/stencil/build/pexpr"
)

// Builder builds a program.
type Builder struct {
	Prog *ir.Program
	err  error
}

// New returns a builder for a new program.
func New() *Builder {
	return &Builder{Prog: ir.NewProgram(token.NewFileSet())}
}

// Err returns the first error encountered while building the program.
func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) add(n ir.Node) ir.NodeID {
	if b.err != nil {
		return ir.NoNode
	}
	id, err := b.Prog.Add(n)
	if err != nil {
		b.err = err
		return ir.NoNode
	}
	return id
}

func (b *Builder) check(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Param defines a parameter in the program.
func (b *Builder) Param(name string) *pexpr.Param {
	param := pexpr.NewParam(name)
	b.check(b.Prog.DefineParam(param))
	return param
}

// ParamWithDefault defines a parameter with a default value in the program.
func (b *Builder) ParamWithDefault(name string, def int64) *pexpr.Param {
	param := pexpr.NewParamWithDefault(name, def)
	b.check(b.Prog.DefineParam(param))
	return param
}

// Coeff returns a scale function coefficient.
func Coeff(offset, scale int32) domain.Coefficient {
	return domain.Coefficient{Offset: offset, Scale: scale}
}

// Scale returns a scale function. Invalid coefficients are recorded as errors.
func (b *Builder) Scale(coeffs ...domain.Coefficient) *domain.ScaleFunction {
	sf, err := domain.NewScaleFunction(coeffs...)
	if err != nil {
		b.check(err)
		return domain.Identity(len(coeffs))
	}
	return sf
}

// Arg returns a function argument with a declared domain.
func (b *Builder) Arg(name string, decl *domain.Domain) ir.NodeID {
	return b.add(&ir.ArgDecl{Name: name, Decl: decl})
}

// Assign returns an assignment statement.
func (b *Builder) Assign(name string, x ir.NodeID) ir.NodeID {
	return b.add(&ir.AssignStmt{Name: name, X: x})
}

// AssignAt returns an assignment statement writing at an offset.
func (b *Builder) AssignAt(name string, offset *domain.Domain, x ir.NodeID) ir.NodeID {
	return b.add(&ir.AssignStmt{Name: name, X: x, Offset: offset})
}

// AssignScaled returns an assignment statement writing through a scale function.
func (b *Builder) AssignScaled(name string, sf *domain.ScaleFunction, x ir.NodeID) ir.NodeID {
	return b.add(&ir.AssignStmt{Name: name, X: x, Scale: sf})
}

// Loop returns a loop statement.
func (b *Builder) Loop(v string, count pexpr.Expr, body ...ir.NodeID) ir.NodeID {
	return b.add(&ir.LoopStmt{Var: v, Count: count, Body: body})
}

// Ident returns a reference to a definition.
func (b *Builder) Ident(name string, defs ...ir.NodeID) ir.NodeID {
	return b.add(&ir.IdentExpr{Name: name, Defs: defs})
}

// LoopIdent returns a reference to a value carried by a loop.
func (b *Builder) LoopIdent(name string, defs ...ir.NodeID) ir.NodeID {
	return b.add(&ir.IdentExpr{Name: name, Defs: defs, LoopQualified: true})
}

// SetDefs sets the reaching definitions of an identifier.
func (b *Builder) SetDefs(ident ir.NodeID, defs ...ir.NodeID) {
	if b.err != nil {
		return
	}
	b.check(b.Prog.SetDefs(ident, defs...))
}

// Scaled returns an expression accessed through a scale function.
func (b *Builder) Scaled(x ir.NodeID, coeffs ...domain.Coefficient) ir.NodeID {
	return b.add(&ir.ScaledExpr{X: x, Scale: b.Scale(coeffs...)})
}

// OffsetPiece returns a piece of a composed expression written at an offset.
func OffsetPiece(offset *domain.Domain, x ir.NodeID) ir.Piece {
	return ir.Piece{X: x, Offset: offset}
}

// ScaledPiece returns a piece of a composed expression written through a scale function.
func ScaledPiece(sf *domain.ScaleFunction, x ir.NodeID) ir.Piece {
	return ir.Piece{X: x, Scale: sf}
}

// Composed returns the union of pieces.
func (b *Builder) Composed(pieces ...ir.Piece) ir.NodeID {
	return b.add(&ir.ComposedExpr{Pieces: pieces})
}

// Call returns a function application.
func (b *Builder) Call(fn ir.NodeID, args ...ir.NodeID) ir.NodeID {
	return b.add(&ir.CallExpr{Func: fn, Args: args})
}

// Struct returns a struct construction.
func (b *Builder) Struct(typ *ir.StructType, fields ...ir.NodeID) ir.NodeID {
	return b.add(&ir.StructExpr{Type: typ, Fields: fields})
}

// Binary returns an element-wise binary operation.
func (b *Builder) Binary(op token.Token, x, y ir.NodeID) ir.NodeID {
	return b.add(&ir.BinaryExpr{Op: op, X: x, Y: y})
}

func (b *Builder) declare(fn *ir.FuncDecl) ir.NodeID {
	id := b.add(fn)
	if b.err != nil {
		return ir.NoNode
	}
	b.check(b.Prog.DeclareFunc(id))
	return id
}

// Func declares a vector function.
func (b *Builder) Func(name string, args []ir.NodeID, ret ir.NodeID, body ...ir.NodeID) ir.NodeID {
	return b.declare(&ir.FuncDecl{Name: name, Args: args, Body: body, Return: ret})
}

// Stencil declares a stencil function.
func (b *Builder) Stencil(name string, args []ir.NodeID, ret ir.NodeID, body ...ir.NodeID) ir.NodeID {
	return b.declare(&ir.FuncDecl{Name: name, Stencil: true, Args: args, Body: body, Return: ret})
}

// Args returns a list of node IDs.
func Args(ids ...ir.NodeID) []ir.NodeID {
	return ids
}

// DType sets the element type of a node.
func (b *Builder) DType(id ir.NodeID, dt dtype.DataType) ir.NodeID {
	if n := b.Prog.Node(id); n != nil {
		n.Attributes().DType = dt
	}
	return id
}

// SubDomain sets the sub-domain of a node.
func (b *Builder) SubDomain(id ir.NodeID, sub *domain.Domain) ir.NodeID {
	if n := b.Prog.Node(id); n != nil {
		n.Attributes().SubDomain = sub
	}
	return id
}

// Pos sets the position of a node.
func (b *Builder) Pos(id ir.NodeID, pos token.Pos) ir.NodeID {
	if n := b.Prog.Node(id); n != nil {
		n.Attributes().Pos = pos
	}
	return id
}

// Dom returns a domain from literal bounds: one pair of bounds per dimension.
func Dom(bounds ...[2]int64) *domain.Domain {
	ranges := make([]domain.Range, len(bounds))
	for i, bnd := range bounds {
		ranges[i] = domain.Lit(bnd[0], bnd[1])
	}
	return domain.New(ranges...)
}

// Offset returns an offset domain from literal lower bounds.
func Offset(lowers ...int64) *domain.Domain {
	exprs := make([]pexpr.Expr, len(lowers))
	for i, lower := range lowers {
		exprs[i] = pexpr.NewInt(lower)
	}
	return domain.Offset(exprs...)
}
