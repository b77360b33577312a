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

// Package check validates a program before its domains are computed.
//
// Unlike domain propagation, which stops at the first error, the check
// reports all the errors it finds.
package check

import (
	"go.uber.org/multierr"
	"github.com/gx-org/stencil/build/domain"
	"github.com/gx-org/stencil/build/fmterr"
	"github.com/gx-org/stencil/build/ir"
	"github.com/gx-org/stencil/build/pexpr"
	"github.com/gx-org/stencil/build/visit"
)

type state struct{}

// Run checks all the functions of a program.
// All the errors are combined in the returned error.
// Use multierr.Errors to list them.
func Run(prog *ir.Program) error {
	c := &checker{prog: prog}
	if err := visit.NewWalker[state](prog, c).WalkProgram(state{}); err != nil {
		return multierr.Append(c.errs, err)
	}
	return c.errs
}

type checker struct {
	visit.Base[state]
	prog *ir.Program
	errs error
}

func (c *checker) append(id ir.NodeID, err error) {
	if err == nil {
		return
	}
	pos := c.prog.Node(id).Attributes().Pos
	c.errs = multierr.Append(c.errs, fmterr.PositionIfNone(c.prog.FSet, pos, err))
}

func (c *checker) checkParams(id ir.NodeID, what string, xs ...pexpr.Expr) {
	for _, param := range pexpr.Params(xs...) {
		if _, ok := c.prog.Param(param.Name); !ok {
			c.append(id, fmterr.Errorf(fmterr.UnboundParameter, "%s: undefined parameter %s", what, param.Name))
		}
	}
}

func (c *checker) checkDomain(id ir.NodeID, what string, dom *domain.Domain) {
	if dom == nil {
		return
	}
	var xs []pexpr.Expr
	for _, r := range dom.Ranges {
		xs = append(xs, r.Lower, r.Upper)
	}
	c.checkParams(id, what, xs...)
}

func (c *checker) checkScale(id ir.NodeID, sf *domain.ScaleFunction) {
	for i, coeff := range sf.Coeffs {
		if coeff.Scale <= 0 {
			c.append(id, fmterr.Errorf(fmterr.InvalidScaleCoefficient, "scale %d of dimension %d in %s is not positive", coeff.Scale, i, sf))
		}
	}
}

func (c *checker) checkOffset(id ir.NodeID, offset *domain.Domain) {
	c.checkDomain(id, "offset", offset)
	if !offset.CheckIfOffset() {
		c.append(id, fmterr.Errorf(fmterr.MalformedOffsetDomain, "%s: upper bounds of an offset domain must be left undefined", offset))
	}
	for i, r := range offset.Ranges {
		if pexpr.IsUndefined(r.Lower) {
			c.append(id, fmterr.Errorf(fmterr.MalformedOffsetDomain, "%s: lower bound of dimension %d is not defined", offset, i))
		}
	}
}

func (c *checker) common(id ir.NodeID) {
	c.checkDomain(id, "sub-domain", c.prog.Node(id).Attributes().SubDomain)
}

func (c *checker) Func(w *visit.Walker[state], id ir.NodeID, n *ir.FuncDecl, st state) (ir.NodeID, error) {
	if n.Return == ir.NoNode {
		c.append(id, fmterr.Errorf(fmterr.UndefinedDomainUsed, "function %s has no return expression", n.Name))
	}
	if n.Stencil {
		_, err := c.prog.StencilFootprint(id)
		c.append(id, err)
	}
	return visit.Keep, w.Children(id, st)
}

func (c *checker) Arg(w *visit.Walker[state], id ir.NodeID, n *ir.ArgDecl, st state) (ir.NodeID, error) {
	c.common(id)
	c.checkDomain(id, "argument "+n.Name, n.Decl)
	return visit.Keep, nil
}

func (c *checker) Assign(w *visit.Walker[state], id ir.NodeID, n *ir.AssignStmt, st state) (ir.NodeID, error) {
	c.common(id)
	if n.Scale != nil {
		c.checkScale(id, n.Scale)
	}
	if n.Offset != nil {
		c.checkOffset(id, n.Offset)
	}
	return visit.Keep, w.Children(id, st)
}

func (c *checker) Loop(w *visit.Walker[state], id ir.NodeID, n *ir.LoopStmt, st state) (ir.NodeID, error) {
	c.checkParams(id, "loop count", n.Count)
	return visit.Keep, w.Children(id, st)
}

func (c *checker) Ident(w *visit.Walker[state], id ir.NodeID, n *ir.IdentExpr, st state) (ir.NodeID, error) {
	c.common(id)
	switch {
	case n.LoopQualified && len(n.Defs) == 0:
		c.append(id, fmterr.Errorf(fmterr.MissingOrAmbiguousReachingDefinition, "no definition of %s reaches the loop", n.Name))
	case !n.LoopQualified && len(n.Defs) != 1:
		c.append(id, fmterr.Errorf(fmterr.MissingOrAmbiguousReachingDefinition, "%d definitions of %s reach its use: want exactly 1", len(n.Defs), n.Name))
	}
	return visit.Keep, nil
}

func (c *checker) Scaled(w *visit.Walker[state], id ir.NodeID, n *ir.ScaledExpr, st state) (ir.NodeID, error) {
	c.common(id)
	c.checkScale(id, n.Scale)
	return visit.Keep, w.Children(id, st)
}

func (c *checker) Composed(w *visit.Walker[state], id ir.NodeID, n *ir.ComposedExpr, st state) (ir.NodeID, error) {
	c.common(id)
	for i, piece := range n.Pieces {
		switch {
		case piece.Scale != nil && piece.Offset == nil:
			c.checkScale(id, piece.Scale)
		case piece.Offset != nil && piece.Scale == nil:
			c.checkOffset(id, piece.Offset)
		default:
			c.append(id, fmterr.Errorf(fmterr.MalformedOffsetDomain, "piece %d: left-hand side needs either an offset domain or a scale function", i))
		}
	}
	return visit.Keep, w.Children(id, st)
}

func (c *checker) Call(w *visit.Walker[state], id ir.NodeID, n *ir.CallExpr, st state) (ir.NodeID, error) {
	c.common(id)
	callee, ok := c.prog.Node(n.Func).(*ir.FuncDecl)
	switch {
	case !ok:
		c.append(id, fmterr.Errorf(fmterr.MissingOrAmbiguousReachingDefinition, "call to an undefined function"))
	case len(callee.Args) != len(n.Args):
		c.append(id, fmterr.Errorf(fmterr.ArityMismatch, "cannot call %s with %d argument(s): want %d", callee.Name, len(n.Args), len(callee.Args)))
	}
	return visit.Keep, w.Children(id, st)
}

func (c *checker) Struct(w *visit.Walker[state], id ir.NodeID, n *ir.StructExpr, st state) (ir.NodeID, error) {
	c.common(id)
	if n.Type != nil && len(n.Fields) != len(n.Type.Fields) {
		c.append(id, fmterr.Errorf(fmterr.StructFieldCountMismatch, "cannot build %s with %d field(s): want %d", n.Type.Name, len(n.Fields), len(n.Type.Fields)))
	}
	return visit.Keep, w.Children(id, st)
}

func (c *checker) Binary(w *visit.Walker[state], id ir.NodeID, n *ir.BinaryExpr, st state) (ir.NodeID, error) {
	c.common(id)
	return visit.Keep, w.Children(id, st)
}
