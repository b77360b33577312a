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

package visit

import "github.com/gx-org/stencil/build/ir"

// Base implements all the hooks of a visitor by visiting the children
// of the node and keeping it.
type Base[S any] struct{}

var _ Visitor[int] = Base[int]{}

// Func visits the arguments, the body, and the return expression of a function.
func (Base[S]) Func(w *Walker[S], id ir.NodeID, _ *ir.FuncDecl, state S) (ir.NodeID, error) {
	return Keep, w.Children(id, state)
}

// Arg keeps the argument.
func (Base[S]) Arg(w *Walker[S], id ir.NodeID, _ *ir.ArgDecl, state S) (ir.NodeID, error) {
	return Keep, nil
}

// Assign visits the right-hand side of the assignment.
func (Base[S]) Assign(w *Walker[S], id ir.NodeID, _ *ir.AssignStmt, state S) (ir.NodeID, error) {
	return Keep, w.Children(id, state)
}

// Loop visits the body of the loop.
func (Base[S]) Loop(w *Walker[S], id ir.NodeID, _ *ir.LoopStmt, state S) (ir.NodeID, error) {
	return Keep, w.Children(id, state)
}

// Ident keeps the identifier.
func (Base[S]) Ident(w *Walker[S], id ir.NodeID, _ *ir.IdentExpr, state S) (ir.NodeID, error) {
	return Keep, nil
}

// Scaled visits the scaled expression.
func (Base[S]) Scaled(w *Walker[S], id ir.NodeID, _ *ir.ScaledExpr, state S) (ir.NodeID, error) {
	return Keep, w.Children(id, state)
}

// Composed visits the expression of each piece.
func (Base[S]) Composed(w *Walker[S], id ir.NodeID, _ *ir.ComposedExpr, state S) (ir.NodeID, error) {
	return Keep, w.Children(id, state)
}

// Call visits the arguments of the call.
func (Base[S]) Call(w *Walker[S], id ir.NodeID, _ *ir.CallExpr, state S) (ir.NodeID, error) {
	return Keep, w.Children(id, state)
}

// Struct visits the fields.
func (Base[S]) Struct(w *Walker[S], id ir.NodeID, _ *ir.StructExpr, state S) (ir.NodeID, error) {
	return Keep, w.Children(id, state)
}

// Binary visits both operands.
func (Base[S]) Binary(w *Walker[S], id ir.NodeID, _ *ir.BinaryExpr, state S) (ir.NodeID, error) {
	return Keep, w.Children(id, state)
}
