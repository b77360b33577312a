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

// Package ir is the vector-expression representation of stencil programs.
//
// All the nodes of a program are stored in a Program arena and addressed by
// a stable NodeID. A node owns the children it stores (a FuncDecl owns its
// arguments and statements, an AssignStmt its right-hand side, ...). A node
// can also refer to another node without owning it: an identifier refers to
// its reaching definitions, a call to the function it applies. The program
// keeps, for every node, the set of nodes referring to it (its uses) so that
// references never dangle when a node is replaced or removed.
package ir

import (
	"go/token"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/stencil/build/domain"
	"github.com/gx-org/stencil/build/ir/irkind"
	"github.com/gx-org/stencil/build/pexpr"
	"github.com/gx-org/stencil/internal/base/scope"
)

// NodeID is the index of a node in a program.
type NodeID int32

// NoNode is the ID of a missing node.
const NoNode NodeID = -1

// ----------------------------------------------------------------------------
// Types of node in the program.
type (
	// Node in a program.
	Node interface {
		// Kind of the node.
		Kind() irkind.Kind
		// Attributes returns the attributes shared by all nodes.
		Attributes() *Attrs

		// children returns the slots of the nodes owned by the node.
		children() []*NodeID
		// links returns the slots of the nodes referred to but not owned by the node.
		links() []*NodeID
	}

	// Stmt is a statement in the body of a function or a loop.
	Stmt interface {
		Node
		// Ident returns the name defined by the statement.
		Ident() string
	}

	// Expr is an expression computing a vector value.
	Expr interface {
		Node
		expr()
	}
)

// Attrs are attributes shared by all nodes.
type Attrs struct {
	// Pos is the position of the node in the source.
	Pos token.Pos
	// Dims is the number of dimensions of the value.
	// 0 if unspecified.
	Dims int
	// DType is the element type of the value.
	DType dtype.DataType
	// SubDomain restricts the domain of the value when used by another node.
	SubDomain *domain.Domain

	dom       *domain.Domain
	computing bool
}

// Attributes returns the attributes of the node.
func (a *Attrs) Attributes() *Attrs { return a }

// ----------------------------------------------------------------------------
// Declarations.
type (
	// FuncDecl declares a vector or stencil function.
	FuncDecl struct {
		Attrs
		Name string
		// Stencil is true if the function is a stencil function.
		// All the scaled accesses to an argument of a stencil function
		// must agree on the scale.
		Stencil bool
		Args    []NodeID
		Body    []NodeID
		Return  NodeID

		// Locals is the symbol table of the function.
		// It is built when the function is declared in a program.
		Locals *scope.RWScope[NodeID]
	}

	// ArgDecl is a formal parameter of a function.
	ArgDecl struct {
		Attrs
		Name string
		// Decl is the declared domain of the argument, if any.
		Decl *domain.Domain

		bound *domain.Domain
	}
)

// ----------------------------------------------------------------------------
// Statements.
type (
	// AssignStmt assigns the value of an expression to a name.
	//
	// The left-hand side can specify where the value is written:
	// at an offset (Offset is an offset domain) or through a scale function.
	AssignStmt struct {
		Attrs
		Name   string
		X      NodeID
		Offset *domain.Domain
		Scale  *domain.ScaleFunction
	}

	// LoopStmt repeats its body Count times.
	LoopStmt struct {
		Attrs
		Var   string
		Count pexpr.Expr
		Body  []NodeID

		// Locals is the symbol table of the loop body.
		Locals *scope.RWScope[NodeID]
	}
)

// ----------------------------------------------------------------------------
// Expressions.
type (
	// IdentExpr refers to a value by its name.
	IdentExpr struct {
		Attrs
		Name string
		// Defs are the reaching definitions of the identifier.
		Defs []NodeID
		// LoopQualified is true if the identifier refers to a value carried
		// by a loop. The first definition is the one reaching the loop entry.
		LoopQualified bool
	}

	// ScaledExpr accesses an expression through a scale function.
	ScaledExpr struct {
		Attrs
		X     NodeID
		Scale *domain.ScaleFunction
	}

	// Piece of a composed expression.
	// Exactly one of Offset or Scale is set.
	Piece struct {
		X      NodeID
		Offset *domain.Domain
		Scale  *domain.ScaleFunction
	}

	// ComposedExpr is the union of disjoint pieces.
	ComposedExpr struct {
		Attrs
		Pieces []Piece
	}

	// CallExpr applies a function to arguments.
	CallExpr struct {
		Attrs
		// Func is the called function. The call does not own it.
		Func NodeID
		Args []NodeID
	}

	// Field of a structure type.
	Field struct {
		Name  string
		DType dtype.DataType
	}

	// StructType is a structure type.
	StructType struct {
		Name   string
		Fields []Field
	}

	// StructExpr constructs a structure.
	StructExpr struct {
		Attrs
		Type   *StructType
		Fields []NodeID
	}

	// BinaryExpr is an element-wise arithmetic operation.
	BinaryExpr struct {
		Attrs
		Op   token.Token
		X, Y NodeID
	}
)

var (
	_ Node = (*FuncDecl)(nil)
	_ Node = (*ArgDecl)(nil)
	_ Stmt = (*AssignStmt)(nil)
	_ Stmt = (*LoopStmt)(nil)
	_ Expr = (*IdentExpr)(nil)
	_ Expr = (*ScaledExpr)(nil)
	_ Expr = (*ComposedExpr)(nil)
	_ Expr = (*CallExpr)(nil)
	_ Expr = (*StructExpr)(nil)
	_ Expr = (*BinaryExpr)(nil)
)

// Kind of the node.
func (*FuncDecl) Kind() irkind.Kind     { return irkind.Func }
func (*ArgDecl) Kind() irkind.Kind      { return irkind.Arg }
func (*AssignStmt) Kind() irkind.Kind   { return irkind.Assign }
func (*LoopStmt) Kind() irkind.Kind     { return irkind.Loop }
func (*IdentExpr) Kind() irkind.Kind    { return irkind.Ident }
func (*ScaledExpr) Kind() irkind.Kind   { return irkind.Scaled }
func (*ComposedExpr) Kind() irkind.Kind { return irkind.Composed }
func (*CallExpr) Kind() irkind.Kind     { return irkind.Call }
func (*StructExpr) Kind() irkind.Kind   { return irkind.Struct }
func (*BinaryExpr) Kind() irkind.Kind   { return irkind.Binary }

// Ident returns the name assigned by the statement.
func (s *AssignStmt) Ident() string { return s.Name }

// Ident returns the name of the loop induction variable.
func (s *LoopStmt) Ident() string { return s.Var }

func (*IdentExpr) expr()    {}
func (*ScaledExpr) expr()   {}
func (*ComposedExpr) expr() {}
func (*CallExpr) expr()     {}
func (*StructExpr) expr()   {}
func (*BinaryExpr) expr()   {}

func slots(ids []NodeID) []*NodeID {
	ss := make([]*NodeID, len(ids))
	for i := range ids {
		ss[i] = &ids[i]
	}
	return ss
}

func (n *FuncDecl) children() []*NodeID {
	ss := append(slots(n.Args), slots(n.Body)...)
	if n.Return != NoNode {
		ss = append(ss, &n.Return)
	}
	return ss
}

func (n *ArgDecl) children() []*NodeID    { return nil }
func (n *AssignStmt) children() []*NodeID { return []*NodeID{&n.X} }
func (n *LoopStmt) children() []*NodeID   { return slots(n.Body) }
func (n *IdentExpr) children() []*NodeID  { return nil }
func (n *ScaledExpr) children() []*NodeID { return []*NodeID{&n.X} }
func (n *CallExpr) children() []*NodeID   { return slots(n.Args) }
func (n *StructExpr) children() []*NodeID { return slots(n.Fields) }
func (n *BinaryExpr) children() []*NodeID { return []*NodeID{&n.X, &n.Y} }

func (n *ComposedExpr) children() []*NodeID {
	ss := make([]*NodeID, len(n.Pieces))
	for i := range n.Pieces {
		ss[i] = &n.Pieces[i].X
	}
	return ss
}

func (*FuncDecl) links() []*NodeID     { return nil }
func (*ArgDecl) links() []*NodeID      { return nil }
func (*AssignStmt) links() []*NodeID   { return nil }
func (*LoopStmt) links() []*NodeID     { return nil }
func (n *IdentExpr) links() []*NodeID  { return slots(n.Defs) }
func (*ScaledExpr) links() []*NodeID   { return nil }
func (*ComposedExpr) links() []*NodeID { return nil }
func (n *CallExpr) links() []*NodeID   { return []*NodeID{&n.Func} }
func (*StructExpr) links() []*NodeID   { return nil }
func (*BinaryExpr) links() []*NodeID   { return nil }
