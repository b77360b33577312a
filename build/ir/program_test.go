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
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/stencil/build/fmterr"
	"github.com/gx-org/stencil/build/ir"
	"github.com/gx-org/stencil/build/ir/irhelper"
	"github.com/gx-org/stencil/build/pexpr"
)

// downsample builds:
//
//	func f(a {[0, 9]}) {
//		b = a@[(0,2)]
//		return b
//	}
type downsample struct {
	b                 *irhelper.Builder
	a, asg, useB, fun ir.NodeID
}

func newDownsample(t *testing.T) *downsample {
	t.Helper()
	d := &downsample{b: irhelper.New()}
	b := d.b
	d.a = b.Arg("a", irhelper.Dom(dims{0, 9}))
	d.asg = b.Assign("b", b.Scaled(b.Ident("a", d.a), irhelper.Coeff(0, 2)))
	d.useB = b.Ident("b", d.asg)
	d.fun = b.Func("f", irhelper.Args(d.a), d.useB, d.asg)
	if err := b.Err(); err != nil {
		t.Fatalf("%+v", err)
	}
	return d
}

func (d *downsample) funcDecl(t *testing.T) *ir.FuncDecl {
	t.Helper()
	fn, err := ir.Get[*ir.FuncDecl](d.b.Prog, d.fun)
	if err != nil {
		t.Fatal(err)
	}
	return fn
}

func TestParams(t *testing.T) {
	prog := ir.NewProgram(nil)
	for _, param := range []*pexpr.Param{
		pexpr.NewParam("N"),
		pexpr.NewParamWithDefault("M", 4),
		pexpr.NewParam("K"),
	} {
		if err := prog.DefineParam(param); err != nil {
			t.Fatal(err)
		}
	}
	if err := prog.DefineParam(pexpr.NewParam("N")); !fmterr.Is(err, fmterr.DuplicateDefinition) {
		t.Errorf("got error %v but want a duplicate definition", err)
	}
	if diff := cmp.Diff([]string{"K", "M", "N"}, prog.ParamNames()); diff != "" {
		t.Errorf("unexpected parameter names (-want +got):\n%s", diff)
	}
	env, err := prog.Env(map[string]int64{"N": 8})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(pexpr.Env{"N": 8, "M": 4}, env); diff != "" {
		t.Errorf("unexpected environment (-want +got):\n%s", diff)
	}
	if _, err := prog.Env(map[string]int64{"P": 1}); !fmterr.Is(err, fmterr.UnboundParameter) {
		t.Errorf("got error %v but want an unbound parameter error", err)
	}
}

func TestDeclare(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *irhelper.Builder)
	}{
		{
			name: "function",
			build: func(b *irhelper.Builder) {
				a := b.Arg("a", irhelper.Dom(dims{0, 9}))
				b.Func("f", irhelper.Args(a), b.Ident("a", a))
				c := b.Arg("c", irhelper.Dom(dims{0, 9}))
				b.Func("f", irhelper.Args(c), b.Ident("c", c))
			},
		},
		{
			name: "argument",
			build: func(b *irhelper.Builder) {
				a1 := b.Arg("a", irhelper.Dom(dims{0, 9}))
				a2 := b.Arg("a", irhelper.Dom(dims{0, 9}))
				b.Func("f", irhelper.Args(a1, a2), b.Ident("a", a1))
			},
		},
		{
			name: "assignment",
			build: func(b *irhelper.Builder) {
				a := b.Arg("a", irhelper.Dom(dims{0, 9}))
				s1 := b.Assign("s", b.Ident("a", a))
				s2 := b.Assign("s", b.Ident("a", a))
				b.Func("f", irhelper.Args(a), b.Ident("s", s2), s1, s2)
			},
		},
		{
			name: "parameter",
			build: func(b *irhelper.Builder) {
				b.Param("N")
				b.ParamWithDefault("N", 3)
			},
		},
	}
	for i, test := range tests {
		b := irhelper.New()
		test.build(b)
		if err := b.Err(); !fmterr.Is(err, fmterr.DuplicateDefinition) {
			t.Errorf("test %d:%s: got error %v but want a duplicate definition", i, test.name, err)
		}
	}
}

func TestLoopScope(t *testing.T) {
	b := irhelper.New()
	a := b.Arg("a", irhelper.Dom(dims{0, 9}))
	pre := b.Assign("s", b.Ident("a", a))
	inner := b.Assign("s", b.LoopIdent("s", pre))
	loop := b.Loop("i", pexpr.NewInt(2), inner)
	fun := b.Func("f", irhelper.Args(a), b.Ident("s", pre), pre, loop)
	if err := b.Err(); err != nil {
		t.Fatalf("%+v", err)
	}
	fn, _ := ir.Get[*ir.FuncDecl](b.Prog, fun)
	lp, _ := ir.Get[*ir.LoopStmt](b.Prog, loop)
	if got, _ := fn.Locals.Find("s"); got != pre {
		t.Errorf("function scope: got s=%d but want %d", got, pre)
	}
	if got, _ := lp.Locals.Find("s"); got != inner {
		t.Errorf("loop scope: got s=%d but want %d", got, inner)
	}
	if got, _ := lp.Locals.Find("a"); got != a {
		t.Errorf("loop scope: got a=%d but want %d", got, a)
	}
	if got := b.Prog.EnclosingFunc(inner); got != fun {
		t.Errorf("got enclosing function %d but want %d", got, fun)
	}
}

func TestReplace(t *testing.T) {
	d := newDownsample(t)
	prog := d.b.Prog
	before, err := prog.ComputeDomain(d.fun)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if want := irhelper.Dom(dims{0, 4}); !before.Equal(want) {
		t.Errorf("got domain %s but want %s", before, want)
	}
	old := prog.Children(d.asg)
	replacement := d.b.Assign("b", d.b.Ident("a", d.a))
	if err := d.b.Err(); err != nil {
		t.Fatal(err)
	}
	if err := prog.Replace(d.asg, replacement); err != nil {
		t.Fatalf("%+v", err)
	}
	fn := d.funcDecl(t)
	if prog.IsLive(d.asg) {
		t.Errorf("replaced statement %d is still in the program", d.asg)
	}
	for _, child := range old {
		if prog.IsLive(child) {
			t.Errorf("child %d of the replaced statement is still in the program", child)
		}
	}
	if diff := cmp.Diff([]ir.NodeID{replacement}, fn.Body); diff != "" {
		t.Errorf("unexpected function body (-want +got):\n%s", diff)
	}
	if got, _ := fn.Locals.Find("b"); got != replacement {
		t.Errorf("symbol table: got b=%d but want %d", got, replacement)
	}
	if got := prog.Parent(replacement); got != d.fun {
		t.Errorf("got parent %d but want %d", got, d.fun)
	}
	if diff := cmp.Diff([]ir.NodeID{d.useB}, prog.Uses(replacement)); diff != "" {
		t.Errorf("unexpected uses (-want +got):\n%s", diff)
	}
	ident, _ := ir.Get[*ir.IdentExpr](prog, d.useB)
	if diff := cmp.Diff([]ir.NodeID{replacement}, ident.Defs); diff != "" {
		t.Errorf("unexpected reaching definitions (-want +got):\n%s", diff)
	}
	after, err := prog.ComputeDomain(d.fun)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if want := irhelper.Dom(dims{0, 9}); !after.Equal(want) {
		t.Errorf("got domain %s but want %s", after, want)
	}
}

func TestReplaceWithDescendant(t *testing.T) {
	d := newDownsample(t)
	prog := d.b.Prog
	scaled := prog.Children(d.asg)[0]
	ident := prog.Children(scaled)[0]
	if err := prog.Replace(scaled, ident); err != nil {
		t.Fatalf("%+v", err)
	}
	if prog.IsLive(scaled) {
		t.Errorf("replaced expression %d is still in the program", scaled)
	}
	if !prog.IsLive(ident) {
		t.Fatalf("expression %d moved up has been removed", ident)
	}
	if diff := cmp.Diff([]ir.NodeID{ident}, prog.Children(d.asg)); diff != "" {
		t.Errorf("unexpected children (-want +got):\n%s", diff)
	}
	if got := prog.Parent(ident); got != d.asg {
		t.Errorf("got parent %d but want %d", got, d.asg)
	}
	if diff := cmp.Diff([]ir.NodeID{ident}, prog.Uses(d.a)); diff != "" {
		t.Errorf("unexpected uses (-want +got):\n%s", diff)
	}
	got, err := prog.ComputeDomain(d.fun)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if want := irhelper.Dom(dims{0, 9}); !got.Equal(want) {
		t.Errorf("got domain %s but want %s", got, want)
	}
}

func TestReplaceLoopWithBodyStatement(t *testing.T) {
	b := irhelper.New()
	a := b.Arg("a", irhelper.Dom(dims{0, 9}))
	pre := b.Assign("s", b.Ident("a", a))
	inner := b.Assign("t", b.Ident("s", pre))
	loop := b.Loop("i", pexpr.NewInt(2), inner)
	fun := b.Func("f", irhelper.Args(a), b.Ident("s", pre), pre, loop)
	shadow := b.Assign("s", b.Ident("a", a))
	shadowLoop := b.Loop("j", pexpr.NewInt(2), shadow)
	if err := b.Err(); err != nil {
		t.Fatalf("%+v", err)
	}
	prog := b.Prog
	if err := prog.Replace(loop, inner); err != nil {
		t.Fatalf("%+v", err)
	}
	fn, _ := ir.Get[*ir.FuncDecl](prog, fun)
	if diff := cmp.Diff([]ir.NodeID{pre, inner}, fn.Body); diff != "" {
		t.Errorf("unexpected function body (-want +got):\n%s", diff)
	}
	if got, _ := fn.Locals.Find("t"); got != inner {
		t.Errorf("function scope: got t=%d but want %d", got, inner)
	}
	if prog.IsLive(loop) {
		t.Errorf("replaced loop %d is still in the program", loop)
	}
	if got := prog.Parent(inner); got != fun {
		t.Errorf("got parent %d but want %d", got, fun)
	}
	// Moving up a statement whose name is already defined in the outer scope fails.
	if err := prog.InsertStmt(inner, shadowLoop); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := prog.Replace(shadowLoop, shadow); !fmterr.Is(err, fmterr.DuplicateDefinition) {
		t.Errorf("got error %v but want an error of kind %s", err, fmterr.DuplicateDefinition)
	}
	if got := prog.Parent(shadow); got != shadowLoop {
		t.Errorf("failed replacement moved statement %d: got parent %d but want %d", shadow, got, shadowLoop)
	}
}

func TestReplaceErrors(t *testing.T) {
	d := newDownsample(t)
	prog := d.b.Prog
	expr := d.b.Ident("a", d.a)
	dup := d.b.Assign("a", d.b.Ident("a", d.a))
	if err := d.b.Err(); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name     string
		old, new ir.NodeID
		want     fmterr.Kind
	}{
		{name: "statement by expression", old: d.asg, new: expr, want: fmterr.Internal},
		{name: "owned node", old: d.asg, new: d.useB, want: fmterr.Internal},
		{name: "owner of the node", old: prog.Children(prog.Children(d.asg)[0])[0], new: prog.Children(d.asg)[0], want: fmterr.Internal},
		{name: "function", old: d.fun, new: expr, want: fmterr.Internal},
		{name: "duplicate name", old: d.asg, new: dup, want: fmterr.DuplicateDefinition},
		{name: "missing node", old: d.asg, new: 1000, want: fmterr.Internal},
	}
	for i, test := range tests {
		err := prog.Replace(test.old, test.new)
		if !fmterr.Is(err, test.want) {
			t.Errorf("test %d:%s: got error %v but want an error of kind %s", i, test.name, err, test.want)
		}
	}
	if !prog.IsLive(d.asg) {
		t.Errorf("statement %d removed after a failed replacement", d.asg)
	}
}

func TestRemoveStmt(t *testing.T) {
	d := newDownsample(t)
	prog := d.b.Prog
	if err := prog.RemoveStmt(d.asg); err != nil {
		t.Fatalf("%+v", err)
	}
	fn := d.funcDecl(t)
	if len(fn.Body) != 0 {
		t.Errorf("got body %v but want an empty body", fn.Body)
	}
	if fn.Locals.IsLocal("b") {
		t.Errorf("b still defined in the symbol table")
	}
	ident, _ := ir.Get[*ir.IdentExpr](prog, d.useB)
	if len(ident.Defs) != 0 {
		t.Errorf("got reaching definitions %v but want none", ident.Defs)
	}
	if _, err := prog.ComputeDomain(d.fun); !fmterr.Is(err, fmterr.MissingOrAmbiguousReachingDefinition) {
		t.Errorf("got error %v but want a missing definition", err)
	}
	if err := prog.RemoveStmt(d.useB); err == nil {
		t.Errorf("expected an error when removing an expression")
	}
}

func TestInsertStmt(t *testing.T) {
	d := newDownsample(t)
	prog := d.b.Prog
	stmt := d.b.Assign("c", d.b.Ident("a", d.a))
	dup := d.b.Assign("b", d.b.Ident("a", d.a))
	if err := d.b.Err(); err != nil {
		t.Fatal(err)
	}
	if err := prog.InsertStmt(d.asg, stmt); err != nil {
		t.Fatalf("%+v", err)
	}
	fn := d.funcDecl(t)
	if diff := cmp.Diff([]ir.NodeID{stmt, d.asg}, fn.Body); diff != "" {
		t.Errorf("unexpected function body (-want +got):\n%s", diff)
	}
	if got, _ := fn.Locals.Find("c"); got != stmt {
		t.Errorf("symbol table: got c=%d but want %d", got, stmt)
	}
	if err := prog.InsertStmt(d.asg, dup); !fmterr.Is(err, fmterr.DuplicateDefinition) {
		t.Errorf("got error %v but want a duplicate definition", err)
	}
	if err := prog.InsertStmt(d.asg, stmt); !fmterr.Is(err, fmterr.Internal) {
		t.Errorf("got error %v but want an internal error", err)
	}
}

func TestLiveNodes(t *testing.T) {
	d := newDownsample(t)
	prog := d.b.Prog
	all := slices.Collect(prog.LiveNodes())
	if err := prog.RemoveStmt(d.asg); err != nil {
		t.Fatal(err)
	}
	live := slices.Collect(prog.LiveNodes())
	// The assignment, its scaled expression, and the identifier it scales are removed.
	if got, want := len(all)-len(live), 3; got != want {
		t.Errorf("%d nodes removed but want %d", got, want)
	}
	if slices.Contains(live, d.asg) {
		t.Errorf("removed statement %d still listed", d.asg)
	}
}

func TestString(t *testing.T) {
	d := newDownsample(t)
	d.b.ParamWithDefault("N", 10)
	const want = `param N = 10
func f(a {[0, 9]}) {
	b = a@[(0,2)]
	return b
}
`
	if got := d.b.Prog.String(); got != want {
		t.Errorf("got:\n%s\nbut want:\n%s", got, want)
	}
}
