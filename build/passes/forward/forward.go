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

// Package forward forwards copies of values.
//
// An identifier referring to a copy (an assignment `c = b` without
// left-hand side descriptor) is rewritten to refer directly to the
// definition of the copied value. Copies left without uses are removed.
package forward

import (
	"github.com/gx-org/stencil/build/ir"
	"github.com/gx-org/stencil/build/visit"
)

// Stats reports what the pass has done.
type Stats struct {
	// Forwarded is the number of rewritten identifiers.
	Forwarded int
	// Removed is the number of removed copies.
	Removed int
}

// Run the pass on all the functions of a program.
func Run(prog *ir.Program) (Stats, error) {
	var stats Stats
	for fn := range prog.Funcs() {
		fnStats, err := RunFunc(prog, fn)
		if err != nil {
			return stats, err
		}
		stats.Forwarded += fnStats.Forwarded
		stats.Removed += fnStats.Removed
	}
	return stats, nil
}

// RunFunc runs the pass on a single function.
func RunFunc(prog *ir.Program, fn ir.NodeID) (Stats, error) {
	fwd := &forwarder{}
	if err := visit.NewWalker[int](prog, fwd).WalkFunc(fn, 0); err != nil {
		return Stats{}, err
	}
	stats := Stats{Forwarded: fwd.count}
	for {
		sw := &sweeper{}
		if err := visit.NewWalker[int](prog, sw).WalkFunc(fn, 0); err != nil {
			return stats, err
		}
		if sw.count == 0 {
			return stats, nil
		}
		stats.Removed += sw.count
	}
}

// copiedIdent returns the identifier copied by an assignment,
// nil if the assignment is not a plain copy of an identifier.
func copiedIdent(prog *ir.Program, asg *ir.AssignStmt) *ir.IdentExpr {
	if asg.Offset != nil || asg.Scale != nil || asg.SubDomain != nil {
		return nil
	}
	ident, ok := prog.Node(asg.X).(*ir.IdentExpr)
	if !ok || ident.LoopQualified || ident.SubDomain != nil || len(ident.Defs) != 1 {
		return nil
	}
	return ident
}

// resolve follows a chain of copies, stopping at the last assignment.
// Arguments are not forwarded: the domain of an assignment is realigned
// while the domain of an argument is not.
func resolve(prog *ir.Program, def ir.NodeID) ir.NodeID {
	seen := make(map[ir.NodeID]bool)
	for !seen[def] {
		seen[def] = true
		asg, ok := prog.Node(def).(*ir.AssignStmt)
		if !ok {
			return def
		}
		ident := copiedIdent(prog, asg)
		if ident == nil {
			return def
		}
		if _, isAssign := prog.Node(ident.Defs[0]).(*ir.AssignStmt); !isAssign {
			return def
		}
		def = ident.Defs[0]
	}
	return def
}

type forwarder struct {
	visit.Base[int]
	count int
}

func (f *forwarder) Ident(w *visit.Walker[int], id ir.NodeID, n *ir.IdentExpr, state int) (ir.NodeID, error) {
	if n.LoopQualified || len(n.Defs) != 1 {
		return visit.Keep, nil
	}
	prog := w.Program()
	target := resolve(prog, n.Defs[0])
	if target == n.Defs[0] {
		return visit.Keep, nil
	}
	asg, err := ir.Get[*ir.AssignStmt](prog, target)
	if err != nil {
		return visit.Keep, err
	}
	repl := &ir.IdentExpr{
		Name: asg.Name,
		Defs: []ir.NodeID{target},
	}
	repl.Pos = n.Pos
	repl.Dims = n.Dims
	repl.DType = n.DType
	repl.SubDomain = n.SubDomain
	f.count++
	return prog.Add(repl)
}

type sweeper struct {
	visit.Base[int]
	count int
}

func (s *sweeper) Assign(w *visit.Walker[int], id ir.NodeID, n *ir.AssignStmt, state int) (ir.NodeID, error) {
	prog := w.Program()
	if copiedIdent(prog, n) != nil && len(prog.Uses(id)) == 0 {
		w.RemoveStatement(id)
		s.count++
	}
	return visit.Keep, nil
}
