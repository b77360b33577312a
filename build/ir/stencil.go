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
	"github.com/gx-org/stencil/build/domain"
	"github.com/gx-org/stencil/build/fmterr"
)

// Footprint of the accesses of a stencil function to one of its arguments.
type Footprint struct {
	Arg  NodeID
	Name string
	// Scale of the accesses in each dimension.
	Scale []int32
	// MinOffset and MaxOffset are the smallest and largest offsets
	// used to access the argument in each dimension.
	MinOffset, MaxOffset []int32
	// Accesses is the number of accesses to the argument.
	Accesses int

	sf *domain.ScaleFunction
}

func newFootprint(arg NodeID, name string, sf *domain.ScaleFunction) *Footprint {
	fp := &Footprint{
		Arg:       arg,
		Name:      name,
		Scale:     make([]int32, sf.Dims()),
		MinOffset: make([]int32, sf.Dims()),
		MaxOffset: make([]int32, sf.Dims()),
		sf:        sf,
	}
	for i, c := range sf.Coeffs {
		fp.Scale[i] = c.Scale
		fp.MinOffset[i] = c.Offset
		fp.MaxOffset[i] = c.Offset
	}
	return fp
}

func (fp *Footprint) add(sf *domain.ScaleFunction) error {
	if dim, same := fp.sf.SameScale(sf); !same {
		return fmterr.Errorf(fmterr.MixedScaleInStencilAccess, "argument %s accessed with %s and %s: scales differ in dimension %d", fp.Name, fp.sf, sf, dim)
	}
	for i, c := range sf.Coeffs {
		fp.MinOffset[i] = min(fp.MinOffset[i], c.Offset)
		fp.MaxOffset[i] = max(fp.MaxOffset[i], c.Offset)
	}
	fp.Accesses++
	return nil
}

// Halo returns the number of elements read before and after the domain
// of the argument in each dimension.
func (fp *Footprint) Halo() (before, after []int32) {
	before = make([]int32, len(fp.MinOffset))
	after = make([]int32, len(fp.MaxOffset))
	for i := range fp.MinOffset {
		before[i] = max(0, -fp.MinOffset[i])
		after[i] = max(0, fp.MaxOffset[i])
	}
	return
}

// StencilFootprint returns the footprint of the accesses of a function
// to each of its arguments, in the order of the arguments.
// All the accesses to an argument must use the same scale in each dimension.
// Arguments which are not accessed have no footprint.
func (p *Program) StencilFootprint(fn NodeID) ([]*Footprint, error) {
	f, err := Get[*FuncDecl](p, fn)
	if err != nil {
		return nil, err
	}
	fps := make(map[NodeID]*Footprint)
	record := func(arg NodeID, sf *domain.ScaleFunction, at NodeID) error {
		fp := fps[arg]
		if fp == nil {
			fps[arg] = newFootprint(arg, p.nodes[arg].(*ArgDecl).Name, sf)
			fps[arg].Accesses = 1
			return nil
		}
		return p.withPos(p.nodes[at].Attributes().Pos, fp.add(sf))
	}
	p.Walk(fn, func(id NodeID, n Node) bool {
		if err != nil {
			return false
		}
		switch n := n.(type) {
		case *ScaledExpr:
			if arg, ok := p.argOf(f, n.X); ok {
				err = record(arg, n.Scale, id)
				return false
			}
		case *IdentExpr:
			arg, ok := p.argOf(f, id)
			if !ok {
				break
			}
			dims := n.Dims
			if decl := p.nodes[arg].(*ArgDecl).Decl; decl != nil {
				dims = decl.Dims()
			}
			if dims > 0 {
				err = record(arg, domain.Identity(dims), id)
			}
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	var out []*Footprint
	for _, arg := range f.Args {
		if fp := fps[arg]; fp != nil {
			out = append(out, fp)
		}
	}
	return out, nil
}

// argOf returns the argument of a function an expression refers to.
func (p *Program) argOf(f *FuncDecl, x NodeID) (NodeID, bool) {
	ident, ok := p.Node(x).(*IdentExpr)
	if !ok || len(ident.Defs) != 1 {
		return NoNode, false
	}
	def := ident.Defs[0]
	if _, isArg := p.Node(def).(*ArgDecl); !isArg {
		return NoNode, false
	}
	for _, arg := range f.Args {
		if arg == def {
			return arg, true
		}
	}
	return NoNode, false
}
