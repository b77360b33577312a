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

package ir_test

import (
	"go/token"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/stencil/build/domain"
	"github.com/gx-org/stencil/build/fmterr"
	"github.com/gx-org/stencil/build/ir"
	"github.com/gx-org/stencil/build/ir/irhelper"
	"github.com/gx-org/stencil/build/pexpr"
)

type dims = [2]int64

func TestComputeDomain(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *irhelper.Builder) ir.NodeID
		want  *domain.Domain
	}{
		{
			name: "scaled access",
			build: func(b *irhelper.Builder) ir.NodeID {
				a := b.Arg("a", irhelper.Dom(dims{0, 9}))
				asg := b.Assign("b", b.Scaled(b.Ident("a", a), irhelper.Coeff(0, 2)))
				return b.Func("f", irhelper.Args(a), b.Ident("b", asg), asg)
			},
			want: irhelper.Dom(dims{0, 4}),
		},
		{
			name: "right-hand side sub-domain",
			build: func(b *irhelper.Builder) ir.NodeID {
				a := b.Arg("a", irhelper.Dom(dims{0, 9}))
				ra := b.SubDomain(b.Ident("a", a), irhelper.Dom(dims{2, 6}))
				return b.Assign("b", ra)
			},
			want: irhelper.Dom(dims{0, 4}),
		},
		{
			name: "assign through scale function",
			build: func(b *irhelper.Builder) ir.NodeID {
				a := b.Arg("a", irhelper.Dom(dims{0, 4}, dims{0, 4}))
				return b.AssignScaled("b", b.Scale(irhelper.Coeff(0, 2), irhelper.Coeff(0, 1)), b.Ident("a", a))
			},
			want: irhelper.Dom(dims{0, 9}, dims{0, 4}),
		},
		{
			name: "assign at offset",
			build: func(b *irhelper.Builder) ir.NodeID {
				a := b.Arg("a", irhelper.Dom(dims{0, 4}))
				return b.AssignAt("b", irhelper.Offset(3), b.Ident("a", a))
			},
			want: irhelper.Dom(dims{0, 7}),
		},
		{
			name: "assign at offset with leading dimension",
			build: func(b *irhelper.Builder) ir.NodeID {
				a := b.Arg("a", irhelper.Dom(dims{2, 6}))
				return b.AssignAt("b", irhelper.Offset(1, 3), b.Ident("a", a))
			},
			want: irhelper.Dom(dims{0, 1}, dims{0, 7}),
		},
		{
			name: "composed pieces",
			build: func(b *irhelper.Builder) ir.NodeID {
				a := b.Arg("a", irhelper.Dom(dims{0, 4}))
				c := b.Arg("c", irhelper.Dom(dims{10, 14}))
				return b.Composed(
					irhelper.OffsetPiece(irhelper.Offset(0), b.Ident("a", a)),
					irhelper.OffsetPiece(irhelper.Offset(5), b.Ident("c", c)),
				)
			},
			want: irhelper.Dom(dims{0, 9}),
		},
		{
			name: "composed scaled piece",
			build: func(b *irhelper.Builder) ir.NodeID {
				a := b.Arg("a", irhelper.Dom(dims{0, 4}))
				return b.Composed(
					irhelper.ScaledPiece(b.Scale(irhelper.Coeff(0, 2)), b.Ident("a", a)),
					irhelper.OffsetPiece(irhelper.Offset(2), b.Ident("a", a)),
				)
			},
			want: irhelper.Dom(dims{0, 9}),
		},
		{
			name: "function application",
			build: func(b *irhelper.Builder) ir.NodeID {
				x := b.Arg("x", nil)
				g := b.Func("g", irhelper.Args(x), b.Scaled(b.Ident("x", x), irhelper.Coeff(0, 2)))
				a := b.Arg("a", irhelper.Dom(dims{0, 9}))
				return b.Func("f", irhelper.Args(a), b.Call(g, b.Ident("a", a)))
			},
			want: irhelper.Dom(dims{0, 4}),
		},
		{
			name: "argument restricted by its sub-domain",
			build: func(b *irhelper.Builder) ir.NodeID {
				x := b.Arg("x", nil)
				g := b.Func("g", irhelper.Args(x), b.Ident("x", x))
				a := b.Arg("a", irhelper.Dom(dims{0, 9}))
				return b.Call(g, b.SubDomain(b.Ident("a", a), irhelper.Dom(dims{3, 5})))
			},
			want: irhelper.Dom(dims{3, 5}),
		},
		{
			name: "struct construction",
			build: func(b *irhelper.Builder) ir.NodeID {
				a := b.Arg("a", irhelper.Dom(dims{0, 9}))
				c := b.Arg("c", irhelper.Dom(dims{2, 6}))
				typ := &ir.StructType{Name: "pair", Fields: []ir.Field{{Name: "u"}, {Name: "v"}}}
				return b.Struct(typ, b.Ident("a", a), b.Ident("c", c))
			},
			want: irhelper.Dom(dims{0, 4}),
		},
		{
			name: "binary expression",
			build: func(b *irhelper.Builder) ir.NodeID {
				a := b.Arg("a", irhelper.Dom(dims{0, 9}))
				c := b.Arg("c", irhelper.Dom(dims{2, 12}))
				return b.Binary(token.ADD, b.Ident("a", a), b.Ident("c", c))
			},
			want: irhelper.Dom(dims{0, 7}),
		},
		{
			name: "loop",
			build: func(b *irhelper.Builder) ir.NodeID {
				a := b.Arg("a", irhelper.Dom(dims{0, 9}))
				pre := b.Assign("s", b.Ident("a", a))
				carried := b.LoopIdent("s")
				inner := b.Assign("s", b.Scaled(carried, irhelper.Coeff(0, 2)))
				b.SetDefs(carried, pre, inner)
				loop := b.Loop("i", pexpr.NewInt(3), inner)
				b.Func("f", irhelper.Args(a), b.Ident("s", pre), pre, loop)
				return loop
			},
			want: irhelper.Dom(dims{0, 4}),
		},
	}
	for i, test := range tests {
		b := irhelper.New()
		id := test.build(b)
		if err := b.Err(); err != nil {
			t.Errorf("test %d:%s: cannot build program: %+v", i, test.name, err)
			continue
		}
		got, err := b.Prog.ComputeDomain(id)
		if err != nil {
			t.Errorf("test %d:%s: unexpected error: %+v", i, test.name, err)
			continue
		}
		if !got.Equal(test.want) {
			t.Errorf("test %d:%s: got domain %s but want %s", i, test.name, got, test.want)
		}
		if cached := b.Prog.Domain(id); cached != got {
			t.Errorf("test %d:%s: domain %s has not been cached", i, test.name, got)
		}
	}
}

func TestComputeDomainErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *irhelper.Builder) ir.NodeID
		want  fmterr.Kind
	}{
		{
			name: "malformed offset",
			build: func(b *irhelper.Builder) ir.NodeID {
				a := b.Arg("a", irhelper.Dom(dims{0, 4}))
				return b.AssignAt("b", irhelper.Dom(dims{3, 5}), b.Ident("a", a))
			},
			want: fmterr.MalformedOffsetDomain,
		},
		{
			name: "undefined argument domain",
			build: func(b *irhelper.Builder) ir.NodeID {
				x := b.Arg("x", nil)
				return b.Func("g", irhelper.Args(x), b.Ident("x", x))
			},
			want: fmterr.UndefinedDomainUsed,
		},
		{
			name: "ambiguous definition",
			build: func(b *irhelper.Builder) ir.NodeID {
				a := b.Arg("a", irhelper.Dom(dims{0, 9}))
				c := b.Arg("c", irhelper.Dom(dims{0, 9}))
				return b.Ident("a", a, c)
			},
			want: fmterr.MissingOrAmbiguousReachingDefinition,
		},
		{
			name: "missing definition",
			build: func(b *irhelper.Builder) ir.NodeID {
				return b.Ident("a")
			},
			want: fmterr.MissingOrAmbiguousReachingDefinition,
		},
		{
			name: "missing loop definition",
			build: func(b *irhelper.Builder) ir.NodeID {
				return b.LoopIdent("a")
			},
			want: fmterr.MissingOrAmbiguousReachingDefinition,
		},
		{
			name: "struct field count",
			build: func(b *irhelper.Builder) ir.NodeID {
				a := b.Arg("a", irhelper.Dom(dims{0, 9}))
				typ := &ir.StructType{Name: "pair", Fields: []ir.Field{{Name: "u"}, {Name: "v"}}}
				return b.Struct(typ, b.Ident("a", a))
			},
			want: fmterr.StructFieldCountMismatch,
		},
		{
			name: "struct field type",
			build: func(b *irhelper.Builder) ir.NodeID {
				a := b.DType(b.Arg("a", irhelper.Dom(dims{0, 9})), dtype.Int32)
				typ := &ir.StructType{Name: "single", Fields: []ir.Field{{Name: "u", DType: dtype.Float32}}}
				return b.Struct(typ, b.Ident("a", a))
			},
			want: fmterr.ElementTypeMismatch,
		},
		{
			name: "element type",
			build: func(b *irhelper.Builder) ir.NodeID {
				a := b.DType(b.Arg("a", irhelper.Dom(dims{0, 9})), dtype.Float32)
				c := b.DType(b.Arg("c", irhelper.Dom(dims{0, 9})), dtype.Float64)
				return b.Binary(token.MUL, b.Ident("a", a), b.Ident("c", c))
			},
			want: fmterr.ElementTypeMismatch,
		},
		{
			name: "dimensions",
			build: func(b *irhelper.Builder) ir.NodeID {
				a := b.Arg("a", irhelper.Dom(dims{0, 9}))
				m := b.Arg("m", irhelper.Dom(dims{0, 3}, dims{0, 3}))
				return b.Binary(token.ADD, b.Ident("a", a), b.Ident("m", m))
			},
			want: fmterr.DimensionMismatch,
		},
		{
			name: "scale dimensions",
			build: func(b *irhelper.Builder) ir.NodeID {
				m := b.Arg("m", irhelper.Dom(dims{0, 3}, dims{0, 3}))
				return b.Scaled(b.Ident("m", m), irhelper.Coeff(0, 2))
			},
			want: fmterr.DimensionMismatch,
		},
		{
			name: "arity",
			build: func(b *irhelper.Builder) ir.NodeID {
				x := b.Arg("x", nil)
				g := b.Func("g", irhelper.Args(x), b.Ident("x", x))
				a := b.Arg("a", irhelper.Dom(dims{0, 9}))
				return b.Call(g, b.Ident("a", a), b.Ident("a", a))
			},
			want: fmterr.ArityMismatch,
		},
		{
			name: "cyclic definition",
			build: func(b *irhelper.Builder) ir.NodeID {
				a := b.Arg("a", irhelper.Dom(dims{0, 9}))
				self := b.Ident("s")
				asg := b.Assign("s", b.Binary(token.ADD, self, b.Ident("a", a)))
				b.SetDefs(self, asg)
				return asg
			},
			want: fmterr.Internal,
		},
		{
			name: "recursive function",
			build: func(b *irhelper.Builder) ir.NodeID {
				x := b.Arg("x", irhelper.Dom(dims{0, 9}))
				fn := &ir.FuncDecl{Name: "f", Args: irhelper.Args(x), Body: nil, Return: ir.NoNode}
				id, err := b.Prog.Add(fn)
				if err != nil {
					t.Fatal(err)
				}
				call, err := b.Prog.Add(&ir.CallExpr{Func: id, Args: irhelper.Args(b.Ident("x", x))})
				if err != nil {
					t.Fatal(err)
				}
				fn.Return = call
				return id
			},
			want: fmterr.Internal,
		},
		{
			name: "mixed scales in stencil",
			build: func(b *irhelper.Builder) ir.NodeID {
				a := b.Arg("a", irhelper.Dom(dims{0, 9}))
				sum := b.Binary(token.ADD,
					b.Scaled(b.Ident("a", a), irhelper.Coeff(0, 2)),
					b.Scaled(b.Ident("a", a), irhelper.Coeff(1, 1)),
				)
				return b.Stencil("st", irhelper.Args(a), sum)
			},
			want: fmterr.MixedScaleInStencilAccess,
		},
	}
	for i, test := range tests {
		b := irhelper.New()
		id := test.build(b)
		if err := b.Err(); err != nil {
			t.Errorf("test %d:%s: cannot build program: %+v", i, test.name, err)
			continue
		}
		_, err := b.Prog.ComputeDomain(id)
		if err == nil {
			t.Errorf("test %d:%s: expected an error but got nil", i, test.name)
			continue
		}
		if !fmterr.Is(err, test.want) {
			t.Errorf("test %d:%s: got error %v but want an error of kind %s", i, test.name, err, test.want)
		}
	}
}

func TestErrorPosition(t *testing.T) {
	b := irhelper.New()
	file := b.Prog.FSet.AddFile("heat.stc", -1, 100)
	file.SetLines([]int{0, 20, 40})
	a := b.Arg("a", irhelper.Dom(dims{0, 9}))
	ambiguous := b.Pos(b.Ident("a", a, a), file.Pos(22))
	asg := b.Pos(b.Assign("b", ambiguous), file.Pos(20))
	if err := b.Err(); err != nil {
		t.Fatal(err)
	}
	_, err := b.Prog.ComputeDomain(asg)
	if err == nil {
		t.Fatal("expected an error but got nil")
	}
	const want = "heat.stc:2:3: missing or ambiguous reaching definition: 2 definitions of a reach its use: want exactly 1"
	if got := err.Error(); got != want {
		t.Errorf("got error %q but want %q", got, want)
	}
}

func TestSymbolicDomain(t *testing.T) {
	b := irhelper.New()
	n := b.Param("N")
	a := b.Arg("a", domain.New(domain.NewRange(pexpr.NewInt(0), pexpr.SubInt(n, 1))))
	scaled := b.Scaled(b.Ident("a", a), irhelper.Coeff(0, 2))
	if err := b.Err(); err != nil {
		t.Fatal(err)
	}
	dom, err := b.Prog.ComputeDomain(scaled)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	tests := []struct {
		n    int64
		want []int
	}{
		{n: 10, want: []int{5}},
		{n: 11, want: []int{6}},
		{n: 1, want: []int{1}},
	}
	for i, test := range tests {
		got, err := dom.Extents(pexpr.Env{"N": test.n})
		if err != nil {
			t.Errorf("test %d: %+v", i, err)
			continue
		}
		if len(got) != 1 || got[0] != test.want[0] {
			t.Errorf("test %d: domain %s with N=%d: got extents %v but want %v", i, dom, test.n, got, test.want)
		}
	}
}

func TestInvalidate(t *testing.T) {
	b := irhelper.New()
	a := b.Arg("a", irhelper.Dom(dims{0, 9}))
	asg := b.Assign("b", b.Scaled(b.Ident("a", a), irhelper.Coeff(0, 2)))
	fn := b.Func("f", irhelper.Args(a), b.Ident("b", asg), asg)
	if err := b.Err(); err != nil {
		t.Fatal(err)
	}
	before, err := b.Prog.ComputeDomain(fn)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if want := irhelper.Dom(dims{0, 4}); !before.Equal(want) {
		t.Errorf("got domain %s but want %s", before, want)
	}
	arg, err := ir.Get[*ir.ArgDecl](b.Prog, a)
	if err != nil {
		t.Fatal(err)
	}
	arg.Decl = irhelper.Dom(dims{0, 19})
	if got := b.Prog.Domain(fn); got != before {
		t.Errorf("domain %s recomputed before invalidation", got)
	}
	b.Prog.Invalidate(a)
	if got := b.Prog.Domain(asg); got != nil {
		t.Errorf("domain %s of the assignment has not been invalidated", got)
	}
	after, err := b.Prog.ComputeDomain(fn)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if want := irhelper.Dom(dims{0, 9}); !after.Equal(want) {
		t.Errorf("got domain %s but want %s", after, want)
	}
	b.Prog.ResetDomains()
	if got := b.Prog.Domain(fn); got != nil {
		t.Errorf("domain %s has not been reset", got)
	}
}

func TestCallBindingIsScoped(t *testing.T) {
	b := irhelper.New()
	x := b.Arg("x", irhelper.Dom(dims{0, 9}))
	half := b.Func("half", irhelper.Args(x), b.Scaled(b.Ident("x", x), irhelper.Coeff(0, 2)))
	a := b.Arg("a", irhelper.Dom(dims{0, 19}))
	asg := b.Assign("d", b.Call(half, b.Ident("a", a)))
	fn := b.Func("f", irhelper.Args(a), b.Ident("a", a), asg)
	if err := b.Err(); err != nil {
		t.Fatal(err)
	}
	prog := b.Prog
	atCallSite, atDecl := irhelper.Dom(dims{0, 9}), irhelper.Dom(dims{0, 4})
	if _, err := prog.ComputeDomain(asg); err != nil {
		t.Fatalf("%+v", err)
	}
	if got := prog.Domain(half); got == nil || !got.Equal(atCallSite) {
		t.Errorf("got domain %v for the callee but want %s", got, atCallSite)
	}
	prog.ResetDomains()
	got, err := prog.ComputeDomain(half)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !got.Equal(atDecl) {
		t.Errorf("after reset: got domain %s but want %s", got, atDecl)
	}
	if _, err := prog.ComputeDomain(asg); err != nil {
		t.Fatalf("%+v", err)
	}
	if got := prog.Domain(half); got == nil || !got.Equal(atCallSite) {
		t.Errorf("got domain %v for the callee but want %s", got, atCallSite)
	}
	if err := prog.RemoveStmt(asg); err != nil {
		t.Fatalf("%+v", err)
	}
	if got, err = prog.ComputeDomain(half); err != nil {
		t.Fatalf("%+v", err)
	}
	if !got.Equal(atDecl) {
		t.Errorf("after removing the call: got domain %s but want %s", got, atDecl)
	}
	if _, err := prog.ComputeDomain(fn); err != nil {
		t.Fatalf("%+v", err)
	}
}

func TestStencilFootprint(t *testing.T) {
	b := irhelper.New()
	a := b.Arg("a", irhelper.Dom(dims{0, 9}, dims{0, 9}))
	c := b.Arg("c", irhelper.Dom(dims{0, 9}, dims{0, 9}))
	left := b.Scaled(b.Ident("a", a), irhelper.Coeff(-1, 1), irhelper.Coeff(0, 2))
	right := b.Scaled(b.Ident("a", a), irhelper.Coeff(2, 1), irhelper.Coeff(1, 2))
	sum := b.Binary(token.ADD, b.Binary(token.ADD, left, right), b.Ident("c", c))
	fn := b.Stencil("st", irhelper.Args(a, c), sum)
	if err := b.Err(); err != nil {
		t.Fatal(err)
	}
	fps, err := b.Prog.StencilFootprint(fn)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	type footprint struct {
		Name                 string
		Scale                []int32
		MinOffset, MaxOffset []int32
		Accesses             int
		Before, After        []int32
	}
	got := make([]footprint, len(fps))
	for i, fp := range fps {
		before, after := fp.Halo()
		got[i] = footprint{
			Name:      fp.Name,
			Scale:     fp.Scale,
			MinOffset: fp.MinOffset,
			MaxOffset: fp.MaxOffset,
			Accesses:  fp.Accesses,
			Before:    before,
			After:     after,
		}
	}
	want := []footprint{
		{
			Name:      "a",
			Scale:     []int32{1, 2},
			MinOffset: []int32{-1, 0},
			MaxOffset: []int32{2, 1},
			Accesses:  2,
			Before:    []int32{1, 0},
			After:     []int32{2, 1},
		},
		{
			Name:      "c",
			Scale:     []int32{1, 1},
			MinOffset: []int32{0, 0},
			MaxOffset: []int32{0, 0},
			Accesses:  1,
			Before:    []int32{0, 0},
			After:     []int32{0, 0},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("footprint mismatch (-want +got):\n%s", diff)
	}
}
