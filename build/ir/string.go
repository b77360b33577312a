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
	"fmt"
	"strings"

	gxfmt "github.com/gx-org/stencil/base/fmt"
	"github.com/gx-org/stencil/base/stringseq"
)

// String returns a string representation of all the functions of the program.
func (p *Program) String() string {
	var b strings.Builder
	if names := p.ParamNames(); len(names) > 0 {
		params := make([]string, len(names))
		for i, name := range names {
			params[i] = p.params[name].String()
			if def := p.params[name].Default; def != nil {
				params[i] += fmt.Sprintf(" = %d", *def)
			}
		}
		fmt.Fprintf(&b, "param %s\n", strings.Join(params, ", "))
	}
	for fn := range p.Funcs() {
		b.WriteString(p.NodeString(fn))
		b.WriteString("\n")
	}
	return b.String()
}

// NodeString returns a string representation of a node.
func (p *Program) NodeString(id NodeID) string {
	switch n := p.Node(id).(type) {
	case nil:
		return fmt.Sprintf("<removed node %d>", id)
	case *FuncDecl:
		args := make([]string, len(n.Args))
		for i, arg := range n.Args {
			args[i] = p.NodeString(arg)
		}
		kind := "func"
		if n.Stencil {
			kind = "stencil"
		}
		return fmt.Sprintf("%s %s(%s) {\n%s\treturn %s\n}", kind, n.Name, strings.Join(args, ", "), gxfmt.Indent(p.listString(n.Body)), p.NodeString(n.Return))
	case *ArgDecl:
		if n.Decl == nil {
			return n.Name
		}
		return n.Name + " " + n.Decl.String()
	case *AssignStmt:
		lhs := n.Name
		switch {
		case n.Scale != nil:
			lhs += n.Scale.String()
		case n.Offset != nil:
			lhs += n.Offset.String()
		}
		return lhs + " = " + p.NodeString(n.X)
	case *LoopStmt:
		return fmt.Sprintf("for %s < %s {\n%s}", n.Var, n.Count, gxfmt.Indent(p.listString(n.Body)))
	case *IdentExpr:
		if n.LoopQualified {
			return n.Name + "'"
		}
		return n.Name
	case *ScaledExpr:
		return p.NodeString(n.X) + n.Scale.String()
	case *ComposedExpr:
		pieces := make([]string, len(n.Pieces))
		for i, piece := range n.Pieces {
			lhs := "?"
			switch {
			case piece.Scale != nil:
				lhs = piece.Scale.String()
			case piece.Offset != nil:
				lhs = piece.Offset.String()
			}
			pieces[i] = lhs + ": " + p.NodeString(piece.X)
		}
		return "compose(" + strings.Join(pieces, ", ") + ")"
	case *CallExpr:
		name := "<unresolved>"
		if fn, ok := p.Node(n.Func).(*FuncDecl); ok {
			name = fn.Name
		}
		return name + "(" + p.listJoin(n.Args, ", ") + ")"
	case *StructExpr:
		name := "struct"
		if n.Type != nil {
			name = n.Type.Name
		}
		return name + "{" + p.listJoin(n.Fields, ", ") + "}"
	case *BinaryExpr:
		return fmt.Sprintf("(%s %s %s)", p.NodeString(n.X), n.Op, p.NodeString(n.Y))
	default:
		return fmt.Sprintf("<%s node %d>", n.Kind(), id)
	}
}

func (p *Program) listJoin(ids []NodeID, sep string) string {
	return stringseq.Join(func(yield func(string) bool) {
		for _, id := range ids {
			if !yield(p.NodeString(id)) {
				return
			}
		}
	}, sep)
}

func (p *Program) listString(ids []NodeID) string {
	if len(ids) == 0 {
		return ""
	}
	return p.listJoin(ids, "\n") + "\n"
}
