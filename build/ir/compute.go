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

package ir

import (
	"go/token"

	"github.com/gx-org/stencil/build/domain"
	"github.com/gx-org/stencil/build/fmterr"
	"github.com/gx-org/stencil/build/ir/irkind"
)

// ComputeDomain computes the domain of a node.
//
// The domain is cached: it is computed once until it is invalidated by
// a modification of the program or by Invalidate. The returned domain is
// owned by the node and must not be modified.
func (p *Program) ComputeDomain(id NodeID) (*domain.Domain, error) {
	if err := p.checkLive(id); err != nil {
		return nil, err
	}
	n := p.nodes[id]
	attrs := n.Attributes()
	if attrs.dom != nil {
		return attrs.dom, nil
	}
	if attrs.computing {
		return nil, fmterr.Position(p.FSet, attrs.Pos, fmterr.Internalf("cyclic dependency when computing the domain of %s node %d", n.Kind(), id))
	}
	attrs.computing = true
	dom, err := p.compute(id, n)
	attrs.computing = false
	if err != nil {
		return nil, p.withPos(attrs.Pos, err)
	}
	if attrs.Dims > 0 && dom.Dims() != attrs.Dims {
		return nil, fmterr.Position(p.FSet, attrs.Pos, fmterr.Errorf(fmterr.DimensionMismatch, "%s node %d has %d dimension(s) but its domain %s has %d dimension(s)", n.Kind(), id, attrs.Dims, dom, dom.Dims()))
	}
	attrs.dom = dom
	return dom, nil
}

// Domain returns the cached domain of a node, nil if it has not been computed.
func (p *Program) Domain(id NodeID) *domain.Domain {
	n := p.Node(id)
	if n == nil {
		return nil
	}
	return n.Attributes().dom
}

// Invalidate clears the cached domain of a node, of its owners,
// and of all the nodes using them.
func (p *Program) Invalidate(id NodeID) {
	p.invalidate(id, make(map[NodeID]bool))
}

func (p *Program) invalidate(id NodeID, done map[NodeID]bool) {
	if done[id] || !p.IsLive(id) {
		return
	}
	done[id] = true
	p.nodes[id].Attributes().dom = nil
	p.invalidate(p.parent[id], done)
	for user := range p.uses[id] {
		p.invalidate(user, done)
	}
}

// ResetDomains clears the cached domains of all the nodes.
func (p *Program) ResetDomains() {
	for _, n := range p.nodes {
		if n != nil {
			n.Attributes().dom = nil
		}
	}
}

func (p *Program) withPos(pos token.Pos, err error) error {
	return fmterr.PositionIfNone(p.FSet, pos, err)
}

func (p *Program) compute(id NodeID, n Node) (*domain.Domain, error) {
	switch n := n.(type) {
	case *FuncDecl:
		return p.computeFunc(id, n)
	case *ArgDecl:
		return p.computeArg(n)
	case *AssignStmt:
		return p.computeAssign(n)
	case *LoopStmt:
		return p.computeLoop(n)
	case *IdentExpr:
		return p.computeIdent(n)
	case *ScaledExpr:
		return p.computeScaled(n)
	case *ComposedExpr:
		return p.computeComposed(n)
	case *CallExpr:
		return p.computeCall(n)
	case *StructExpr:
		return p.computeStruct(n)
	case *BinaryExpr:
		return p.computeBinary(n)
	}
	return nil, fmterr.Internalf("cannot compute the domain of node %d: %T not supported", id, n)
}

// domainCopy returns a copy of the domain of a node that can be modified.
func (p *Program) domainCopy(id NodeID) (*domain.Domain, error) {
	dom, err := p.ComputeDomain(id)
	if err != nil {
		return nil, err
	}
	return dom.Copy(), nil
}

// restricted returns a copy of the domain of a node
// intersected with the sub-domain of the node, if any.
func (p *Program) restricted(id NodeID) (*domain.Domain, error) {
	dom, err := p.domainCopy(id)
	if err != nil {
		return nil, err
	}
	if sub := p.nodes[id].Attributes().SubDomain; sub != nil {
		if err := dom.Intersect(sub); err != nil {
			return nil, err
		}
	}
	return dom, nil
}

func (p *Program) checkDType(op string, dst *Attrs, srcs ...NodeID) error {
	for _, src := range srcs {
		srcAttrs := p.nodes[src].Attributes()
		if !irkind.IsKnown(srcAttrs.DType) {
			continue
		}
		if !irkind.IsKnown(dst.DType) {
			dst.DType = srcAttrs.DType
			continue
		}
		if srcAttrs.DType != dst.DType {
			return fmterr.Errorf(fmterr.ElementTypeMismatch, "cannot %s %s with %s", op, dst.DType, srcAttrs.DType)
		}
	}
	return nil
}

func (p *Program) computeFunc(id NodeID, n *FuncDecl) (*domain.Domain, error) {
	if n.Stencil {
		if _, err := p.StencilFootprint(id); err != nil {
			return nil, err
		}
	}
	for _, stmt := range n.Body {
		if _, err := p.ComputeDomain(stmt); err != nil {
			return nil, err
		}
	}
	if n.Return == NoNode {
		return nil, fmterr.Errorf(fmterr.UndefinedDomainUsed, "function %s has no return expression", n.Name)
	}
	dom, err := p.domainCopy(n.Return)
	if err != nil {
		return nil, err
	}
	if err := p.checkDType("return", &n.Attrs, n.Return); err != nil {
		return nil, err
	}
	return dom, nil
}

func (p *Program) computeArg(n *ArgDecl) (*domain.Domain, error) {
	dom := n.bound
	if dom == nil {
		dom = n.Decl
	}
	if dom == nil || !dom.IsDefined() {
		return nil, fmterr.Errorf(fmterr.UndefinedDomainUsed, "domain of argument %s is not defined", n.Name)
	}
	return dom.Copy(), nil
}

func (p *Program) computeAssign(n *AssignStmt) (*domain.Domain, error) {
	dom, err := p.restricted(n.X)
	if err != nil {
		return nil, err
	}
	if err := p.checkDType("assign", &n.Attrs, n.X); err != nil {
		return nil, err
	}
	if err := dom.Realign(); err != nil {
		return nil, err
	}
	switch {
	case n.Scale != nil:
		err = dom.ScaleUp(n.Scale)
	case n.Offset != nil:
		if !n.Offset.CheckIfOffset() {
			return nil, fmterr.Errorf(fmterr.MalformedOffsetDomain, "cannot assign %s at %s: upper bounds of an offset domain must be left undefined", n.Name, n.Offset)
		}
		err = dom.AddOffset(n.Offset)
	}
	if err != nil {
		return nil, err
	}
	return dom, nil
}

func (p *Program) computeLoop(n *LoopStmt) (*domain.Domain, error) {
	var dom *domain.Domain
	for _, stmt := range n.Body {
		var err error
		if dom, err = p.ComputeDomain(stmt); err != nil {
			return nil, err
		}
	}
	if dom == nil {
		return domain.New(), nil
	}
	return dom.Copy(), nil
}

func (p *Program) computeIdent(n *IdentExpr) (*domain.Domain, error) {
	if n.LoopQualified {
		if len(n.Defs) == 0 {
			return nil, fmterr.Errorf(fmterr.MissingOrAmbiguousReachingDefinition, "no definition of %s reaches the loop", n.Name)
		}
	} else if len(n.Defs) != 1 {
		return nil, fmterr.Errorf(fmterr.MissingOrAmbiguousReachingDefinition, "%d definitions of %s reach its use: want exactly 1", len(n.Defs), n.Name)
	}
	def := n.Defs[0]
	dom, err := p.domainCopy(def)
	if err != nil {
		return nil, err
	}
	if err := p.checkDType("use", &n.Attrs, def); err != nil {
		return nil, err
	}
	return dom, nil
}

func (p *Program) computeScaled(n *ScaledExpr) (*domain.Domain, error) {
	dom, err := p.restricted(n.X)
	if err != nil {
		return nil, err
	}
	if err := p.checkDType("scale", &n.Attrs, n.X); err != nil {
		return nil, err
	}
	if err := dom.Realign(); err != nil {
		return nil, err
	}
	if err := dom.ScaleDown(n.Scale); err != nil {
		return nil, err
	}
	if err := dom.Realign(); err != nil {
		return nil, err
	}
	return dom, nil
}

func (p *Program) computeComposed(n *ComposedExpr) (*domain.Domain, error) {
	if len(n.Pieces) == 0 {
		return nil, fmterr.Errorf(fmterr.UndefinedDomainUsed, "composed expression without pieces")
	}
	var acc *domain.Domain
	for i, piece := range n.Pieces {
		dom, err := p.domainCopy(piece.X)
		if err != nil {
			return nil, err
		}
		if err := p.checkDType("compose", &n.Attrs, piece.X); err != nil {
			return nil, err
		}
		if err := dom.Realign(); err != nil {
			return nil, err
		}
		switch {
		case piece.Scale != nil && piece.Offset == nil:
			err = dom.ScaleUp(piece.Scale)
		case piece.Offset != nil && piece.Scale == nil:
			if !piece.Offset.CheckIfOffset() {
				return nil, fmterr.Errorf(fmterr.MalformedOffsetDomain, "piece %d: %s is not an offset domain", i, piece.Offset)
			}
			err = dom.AddOffset(piece.Offset)
		default:
			return nil, fmterr.Errorf(fmterr.MalformedOffsetDomain, "piece %d: left-hand side needs either an offset domain or a scale function", i)
		}
		if err != nil {
			return nil, err
		}
		if acc == nil {
			acc = dom
			continue
		}
		if err := acc.Union(dom); err != nil {
			return nil, err
		}
	}
	if err := acc.Realign(); err != nil {
		return nil, err
	}
	return acc, nil
}

func (p *Program) computeCall(n *CallExpr) (*domain.Domain, error) {
	callee, err := Get[*FuncDecl](p, n.Func)
	if err != nil {
		return nil, err
	}
	if len(n.Args) != len(callee.Args) {
		return nil, fmterr.Errorf(fmterr.ArityMismatch, "cannot call %s with %d argument(s): want %d", callee.Name, len(n.Args), len(callee.Args))
	}
	bound := make([]*domain.Domain, len(n.Args))
	for i, arg := range n.Args {
		if bound[i], err = p.restricted(arg); err != nil {
			return nil, err
		}
		formal, err := Get[*ArgDecl](p, callee.Args[i])
		if err != nil {
			return nil, err
		}
		if formal.Decl != nil && formal.Decl.Dims() != bound[i].Dims() {
			return nil, fmterr.Errorf(fmterr.DimensionMismatch, "cannot use %s as argument %s of %s: got %d dimension(s) but want %d", bound[i], formal.Name, callee.Name, bound[i].Dims(), formal.Decl.Dims())
		}
		if err := p.checkDType("pass", &formal.Attrs, arg); err != nil {
			return nil, err
		}
	}
	// Arguments are bound to the call site only while the call is computed.
	// The callee keeps the domains of its last call site cached.
	for i, argID := range callee.Args {
		formal, _ := Get[*ArgDecl](p, argID)
		formal.bound = bound[i]
	}
	defer func() {
		for _, argID := range callee.Args {
			formal, _ := Get[*ArgDecl](p, argID)
			formal.bound = nil
		}
	}()
	p.resetOwned(n.Func)
	ret, err := p.ComputeDomain(n.Func)
	if err != nil {
		return nil, err
	}
	if err := p.checkDType("call", &n.Attrs, n.Func); err != nil {
		return nil, err
	}
	return ret.Copy(), nil
}

// resetOwned clears the cached domains of a node and all the nodes it owns.
func (p *Program) resetOwned(id NodeID) {
	p.Walk(id, func(_ NodeID, n Node) bool {
		n.Attributes().dom = nil
		return true
	})
}

func (p *Program) computeStruct(n *StructExpr) (*domain.Domain, error) {
	if n.Type == nil {
		return nil, fmterr.Internalf("structure without a type")
	}
	if len(n.Fields) != len(n.Type.Fields) {
		return nil, fmterr.Errorf(fmterr.StructFieldCountMismatch, "cannot build %s with %d field(s): want %d", n.Type.Name, len(n.Fields), len(n.Type.Fields))
	}
	var acc *domain.Domain
	for i, field := range n.Fields {
		dom, err := p.domainCopy(field)
		if err != nil {
			return nil, err
		}
		want := n.Type.Fields[i]
		got := p.nodes[field].Attributes().DType
		if irkind.IsKnown(want.DType) && irkind.IsKnown(got) && want.DType != got {
			return nil, fmterr.Errorf(fmterr.ElementTypeMismatch, "cannot use %s as field %s of %s: want %s", got, want.Name, n.Type.Name, want.DType)
		}
		if acc == nil {
			acc = dom
			continue
		}
		if err := acc.Intersect(dom); err != nil {
			return nil, err
		}
	}
	if acc == nil {
		return domain.New(), nil
	}
	if err := acc.Realign(); err != nil {
		return nil, err
	}
	return acc, nil
}

func (p *Program) computeBinary(n *BinaryExpr) (*domain.Domain, error) {
	dom, err := p.restricted(n.X)
	if err != nil {
		return nil, err
	}
	y, err := p.restricted(n.Y)
	if err != nil {
		return nil, err
	}
	if err := p.checkDType(n.Op.String(), &n.Attrs, n.X, n.Y); err != nil {
		return nil, err
	}
	if err := dom.Intersect(y); err != nil {
		return nil, err
	}
	if err := dom.Realign(); err != nil {
		return nil, err
	}
	return dom, nil
}
