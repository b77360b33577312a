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

// Package visit walks the functions of a program depth-first and rewrites them.
//
// A pass implements Visitor, usually by embedding Base and overriding the
// hooks of the node kinds it cares about. A hook returns Keep to keep the
// visited node or the ID of a replacement node. Replacements are applied
// immediately: the replacement takes the place of the visited node and,
// for statements, its name in the symbol table. Structural edits of
// statement lists (InsertBefore, RemoveStatement) are staged and applied
// once the whole function has been traversed.
package visit

import (
	"github.com/gx-org/stencil/build/fmterr"
	"github.com/gx-org/stencil/build/ir"
	"github.com/gx-org/stencil/internal/base/scope"
)

// Keep is returned by a hook to keep the visited node.
const Keep = ir.NoNode

// Visitor has one hook per kind of node.
// S is a state passed along the traversal by the caller.
type Visitor[S any] interface {
	Func(w *Walker[S], id ir.NodeID, n *ir.FuncDecl, state S) (ir.NodeID, error)
	Arg(w *Walker[S], id ir.NodeID, n *ir.ArgDecl, state S) (ir.NodeID, error)
	Assign(w *Walker[S], id ir.NodeID, n *ir.AssignStmt, state S) (ir.NodeID, error)
	Loop(w *Walker[S], id ir.NodeID, n *ir.LoopStmt, state S) (ir.NodeID, error)
	Ident(w *Walker[S], id ir.NodeID, n *ir.IdentExpr, state S) (ir.NodeID, error)
	Scaled(w *Walker[S], id ir.NodeID, n *ir.ScaledExpr, state S) (ir.NodeID, error)
	Composed(w *Walker[S], id ir.NodeID, n *ir.ComposedExpr, state S) (ir.NodeID, error)
	Call(w *Walker[S], id ir.NodeID, n *ir.CallExpr, state S) (ir.NodeID, error)
	Struct(w *Walker[S], id ir.NodeID, n *ir.StructExpr, state S) (ir.NodeID, error)
	Binary(w *Walker[S], id ir.NodeID, n *ir.BinaryExpr, state S) (ir.NodeID, error)
}

type (
	editKind int

	edit struct {
		kind   editKind
		target ir.NodeID
		stmt   ir.NodeID
	}
)

const (
	insertEdit editKind = iota
	removeEdit
)

// Walker walks a program and calls the hooks of a visitor.
type Walker[S any] struct {
	prog    *ir.Program
	visitor Visitor[S]

	fn     ir.NodeID
	stmt   ir.NodeID
	scopes []*scope.RWScope[ir.NodeID]
	staged []edit
}

// NewWalker returns a walker calling the hooks of a visitor.
func NewWalker[S any](prog *ir.Program, v Visitor[S]) *Walker[S] {
	return &Walker[S]{
		prog:    prog,
		visitor: v,
		fn:      ir.NoNode,
		stmt:    ir.NoNode,
	}
}

// Program being walked.
func (w *Walker[S]) Program() *ir.Program {
	return w.prog
}

// Func returns the function being walked.
func (w *Walker[S]) Func() ir.NodeID {
	return w.fn
}

// Locals returns the innermost symbol table: the symbol table of
// the loop being walked or, outside of loops, of the function.
func (w *Walker[S]) Locals() *scope.RWScope[ir.NodeID] {
	if len(w.scopes) == 0 {
		return nil
	}
	return w.scopes[len(w.scopes)-1]
}

// Stmt returns the statement being walked, ir.NoNode outside of statement lists.
func (w *Walker[S]) Stmt() ir.NodeID {
	return w.stmt
}

// WalkProgram walks all the functions of the program in declaration order.
func (w *Walker[S]) WalkProgram(state S) error {
	for fn := range w.prog.Funcs() {
		if err := w.WalkFunc(fn, state); err != nil {
			return err
		}
	}
	return nil
}

// WalkFunc walks a function. Staged edits are applied once the function
// has been walked.
func (w *Walker[S]) WalkFunc(fn ir.NodeID, state S) error {
	f, err := ir.Get[*ir.FuncDecl](w.prog, fn)
	if err != nil {
		return err
	}
	w.fn, w.stmt = fn, ir.NoNode
	w.scopes = append(w.scopes[:0], f.Locals)
	w.staged = nil
	defer func() {
		w.fn, w.stmt, w.scopes = ir.NoNode, ir.NoNode, nil
	}()
	if _, err := w.Visit(fn, state); err != nil {
		return err
	}
	return w.applyEdits()
}

// Visit calls the hook matching the kind of a node.
// It returns the ID of the node after the visit: the ID of the replacement
// if the node has been replaced.
func (w *Walker[S]) Visit(id ir.NodeID, state S) (ir.NodeID, error) {
	var (
		repl ir.NodeID
		err  error
	)
	switch n := w.prog.Node(id).(type) {
	case *ir.FuncDecl:
		repl, err = w.visitor.Func(w, id, n, state)
	case *ir.ArgDecl:
		repl, err = w.visitor.Arg(w, id, n, state)
	case *ir.AssignStmt:
		repl, err = w.visitor.Assign(w, id, n, state)
	case *ir.LoopStmt:
		repl, err = w.visitor.Loop(w, id, n, state)
	case *ir.IdentExpr:
		repl, err = w.visitor.Ident(w, id, n, state)
	case *ir.ScaledExpr:
		repl, err = w.visitor.Scaled(w, id, n, state)
	case *ir.ComposedExpr:
		repl, err = w.visitor.Composed(w, id, n, state)
	case *ir.CallExpr:
		repl, err = w.visitor.Call(w, id, n, state)
	case *ir.StructExpr:
		repl, err = w.visitor.Struct(w, id, n, state)
	case *ir.BinaryExpr:
		repl, err = w.visitor.Binary(w, id, n, state)
	case nil:
		return ir.NoNode, fmterr.Internalf("cannot visit node %d: node not in the program", id)
	default:
		return ir.NoNode, fmterr.Internalf("cannot visit node %d: %T not supported", id, n)
	}
	if err != nil {
		return ir.NoNode, err
	}
	if repl == Keep || repl == id {
		return id, nil
	}
	if err := w.prog.Replace(id, repl); err != nil {
		return ir.NoNode, err
	}
	return repl, nil
}

// Children visits the children of a node.
// Statement lists of functions and loops are visited statement by statement.
func (w *Walker[S]) Children(id ir.NodeID, state S) error {
	switch n := w.prog.Node(id).(type) {
	case *ir.FuncDecl:
		for _, arg := range n.Args {
			if _, err := w.Visit(arg, state); err != nil {
				return err
			}
		}
		if err := w.body(&n.Body, state); err != nil {
			return err
		}
		if n.Return == ir.NoNode {
			return nil
		}
		_, err := w.Visit(n.Return, state)
		return err
	case *ir.LoopStmt:
		w.scopes = append(w.scopes, n.Locals)
		defer func() { w.scopes = w.scopes[:len(w.scopes)-1] }()
		return w.body(&n.Body, state)
	}
	for _, child := range w.prog.Children(id) {
		if _, err := w.Visit(child, state); err != nil {
			return err
		}
	}
	return nil
}

// body visits a statement list. The list is copied so that replacements
// do not change the statements being iterated over.
func (w *Walker[S]) body(list *[]ir.NodeID, state S) error {
	outer := w.stmt
	defer func() { w.stmt = outer }()
	for _, stmt := range append([]ir.NodeID(nil), *list...) {
		w.stmt = stmt
		if _, err := w.Visit(stmt, state); err != nil {
			return err
		}
	}
	return nil
}

// InsertBefore stages the insertion of a statement before another statement.
func (w *Walker[S]) InsertBefore(target, stmt ir.NodeID) {
	w.staged = append(w.staged, edit{kind: insertEdit, target: target, stmt: stmt})
}

// RemoveStatement stages the removal of a statement.
func (w *Walker[S]) RemoveStatement(target ir.NodeID) {
	w.staged = append(w.staged, edit{kind: removeEdit, target: target})
}

func (w *Walker[S]) applyEdits() error {
	staged := w.staged
	w.staged = nil
	for _, e := range staged {
		var err error
		switch e.kind {
		case insertEdit:
			err = w.prog.InsertStmt(e.target, e.stmt)
		case removeEdit:
			err = w.prog.RemoveStmt(e.target)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
