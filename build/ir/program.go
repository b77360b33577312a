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
	"iter"
	"slices"
	"sort"

	"golang.org/x/exp/maps"
	"github.com/gx-org/stencil/base/ordered"
	"github.com/gx-org/stencil/build/fmterr"
	"github.com/gx-org/stencil/build/pexpr"
	"github.com/gx-org/stencil/internal/base/scope"
)

// Program stores the nodes, the parameters, and the functions of a compilation.
//
// A program is owned by a single compilation and is not safe for concurrent use.
type Program struct {
	// FSet is the file set of the source code, if any.
	FSet *token.FileSet

	nodes  []Node
	parent []NodeID
	uses   []map[NodeID]struct{}

	params map[string]*pexpr.Param
	funcs  *ordered.Map[string, NodeID]
}

// NewProgram returns a new empty program.
func NewProgram(fset *token.FileSet) *Program {
	return &Program{
		FSet:   fset,
		params: make(map[string]*pexpr.Param),
		funcs:  ordered.NewMap[string, NodeID](),
	}
}

// ----------------------------------------------------------------------------
// Parameters.

// DefineParam adds a parameter to the global parameter table.
func (p *Program) DefineParam(param *pexpr.Param) error {
	if _, exists := p.params[param.Name]; exists {
		return fmterr.Errorf(fmterr.DuplicateDefinition, "parameter %s already defined", param.Name)
	}
	p.params[param.Name] = param
	return nil
}

// Param returns a parameter given its name.
func (p *Program) Param(name string) (*pexpr.Param, bool) {
	param, ok := p.params[name]
	return param, ok
}

// ParamNames returns the sorted names of all the parameters.
func (p *Program) ParamNames() []string {
	names := make([]string, 0, len(p.params))
	for name := range p.params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Defaults returns the values of the parameters with a default value.
func (p *Program) Defaults() pexpr.Env {
	env := pexpr.Env{}
	for name, param := range p.params {
		if param.Default != nil {
			env[name] = *param.Default
		}
	}
	return env
}

// Env returns the values of all the parameters given some values.
// Values override default values.
func (p *Program) Env(vals map[string]int64) (pexpr.Env, error) {
	env := p.Defaults()
	maps.Copy(env, vals)
	for name := range vals {
		if _, ok := p.params[name]; !ok {
			return nil, fmterr.Errorf(fmterr.UnboundParameter, "value given for undefined parameter %s", name)
		}
	}
	return env, nil
}

// ----------------------------------------------------------------------------
// Nodes.

// Add a node to the program and returns its ID.
// The children of the node need to be in the program and not owned by another node.
func (p *Program) Add(n Node) (NodeID, error) {
	seen := make(map[NodeID]bool)
	for _, slot := range n.children() {
		child := *slot
		if err := p.checkLive(child); err != nil {
			return NoNode, err
		}
		if seen[child] || p.parent[child] != NoNode {
			return NoNode, fmterr.Internalf("cannot add %s node: child node %d already has an owner", n.Kind(), child)
		}
		seen[child] = true
	}
	for _, slot := range n.links() {
		if *slot == NoNode {
			continue
		}
		if err := p.checkLive(*slot); err != nil {
			return NoNode, err
		}
	}
	id := NodeID(len(p.nodes))
	p.nodes = append(p.nodes, n)
	p.parent = append(p.parent, NoNode)
	p.uses = append(p.uses, nil)
	for _, slot := range n.children() {
		p.parent[*slot] = id
	}
	p.link(id)
	return id, nil
}

// Node returns a node given its ID.
// Returns nil if the node has been removed or does not exist.
func (p *Program) Node(id NodeID) Node {
	if id < 0 || int(id) >= len(p.nodes) {
		return nil
	}
	return p.nodes[id]
}

// Get returns a node of a given type.
func Get[T Node](p *Program, id NodeID) (T, error) {
	var zero T
	if err := p.checkLive(id); err != nil {
		return zero, err
	}
	n, ok := p.nodes[id].(T)
	if !ok {
		return zero, fmterr.Internalf("node %d is a %s node, not a %T", id, p.nodes[id].Kind(), zero)
	}
	return n, nil
}

// IsLive returns true if a node is in the program.
func (p *Program) IsLive(id NodeID) bool {
	return p.Node(id) != nil
}

func (p *Program) checkLive(id NodeID) error {
	if id < 0 || int(id) >= len(p.nodes) {
		return fmterr.Internalf("node %d does not exist", id)
	}
	if p.nodes[id] == nil {
		return fmterr.Internalf("node %d has been removed", id)
	}
	return nil
}

// Parent returns the owner of a node, NoNode if the node has no owner.
func (p *Program) Parent(id NodeID) NodeID {
	if !p.IsLive(id) {
		return NoNode
	}
	return p.parent[id]
}

// Children returns the nodes owned by a node.
func (p *Program) Children(id NodeID) []NodeID {
	n := p.Node(id)
	if n == nil {
		return nil
	}
	slots := n.children()
	ids := make([]NodeID, len(slots))
	for i, slot := range slots {
		ids[i] = *slot
	}
	return ids
}

// Uses returns the sorted list of the nodes referring to a node without owning it.
func (p *Program) Uses(id NodeID) []NodeID {
	if !p.IsLive(id) {
		return nil
	}
	users := make([]NodeID, 0, len(p.uses[id]))
	for user := range p.uses[id] {
		users = append(users, user)
	}
	slices.Sort(users)
	return users
}

// LiveNodes iterates over the IDs of the nodes in the program.
func (p *Program) LiveNodes() iter.Seq[NodeID] {
	return func(yield func(NodeID) bool) {
		for i, n := range p.nodes {
			if n == nil {
				continue
			}
			if !yield(NodeID(i)) {
				return
			}
		}
	}
}

// Walk calls f on a node and, depth-first, on all the nodes it owns.
// The walk stops if f returns false.
func (p *Program) Walk(id NodeID, f func(NodeID, Node) bool) {
	n := p.Node(id)
	if n == nil || !f(id, n) {
		return
	}
	for _, child := range p.Children(id) {
		p.Walk(child, f)
	}
}

func (p *Program) link(id NodeID) {
	for _, slot := range p.nodes[id].links() {
		target := *slot
		if target == NoNode {
			continue
		}
		if p.uses[target] == nil {
			p.uses[target] = make(map[NodeID]struct{})
		}
		p.uses[target][id] = struct{}{}
	}
}

func (p *Program) unlink(id NodeID) {
	for _, slot := range p.nodes[id].links() {
		if *slot == NoNode || !p.IsLive(*slot) {
			continue
		}
		delete(p.uses[*slot], id)
	}
}

// SetDefs sets the reaching definitions of an identifier.
func (p *Program) SetDefs(ident NodeID, defs ...NodeID) error {
	n, err := Get[*IdentExpr](p, ident)
	if err != nil {
		return err
	}
	for _, def := range defs {
		if err := p.checkLive(def); err != nil {
			return err
		}
	}
	p.unlink(ident)
	n.Defs = slices.Clone(defs)
	p.link(ident)
	p.Invalidate(ident)
	return nil
}

// ----------------------------------------------------------------------------
// Functions.

// DeclareFunc registers a function in the program and builds its symbol tables.
func (p *Program) DeclareFunc(id NodeID) error {
	fn, err := Get[*FuncDecl](p, id)
	if err != nil {
		return err
	}
	if _, exists := p.funcs.Load(fn.Name); exists {
		return fmterr.Position(p.FSet, fn.Pos, fmterr.Errorf(fmterr.DuplicateDefinition, "function %s already declared", fn.Name))
	}
	fn.Locals = scope.NewScope[NodeID](nil)
	for _, argID := range fn.Args {
		arg, err := Get[*ArgDecl](p, argID)
		if err != nil {
			return err
		}
		if err := p.define(fn.Locals, arg.Name, argID); err != nil {
			return err
		}
	}
	if err := p.declareBody(fn.Locals, fn.Body); err != nil {
		return err
	}
	p.funcs.Store(fn.Name, id)
	return nil
}

func (p *Program) declareBody(locals *scope.RWScope[NodeID], body []NodeID) error {
	for _, id := range body {
		if err := p.declareStmt(locals, id); err != nil {
			return err
		}
	}
	return nil
}

func (p *Program) declareStmt(locals *scope.RWScope[NodeID], id NodeID) error {
	switch stmt := p.nodes[id].(type) {
	case *AssignStmt:
		return p.define(locals, stmt.Name, id)
	case *LoopStmt:
		stmt.Locals = scope.NewScope[NodeID](locals)
		return p.declareBody(stmt.Locals, stmt.Body)
	default:
		return fmterr.Internalf("node %d of kind %s is not a statement", id, p.nodes[id].Kind())
	}
}

func (p *Program) define(locals *scope.RWScope[NodeID], name string, id NodeID) error {
	if locals.IsLocal(name) {
		return fmterr.Position(p.FSet, p.nodes[id].Attributes().Pos, fmterr.Errorf(fmterr.DuplicateDefinition, "%s redeclared in this block", name))
	}
	locals.Define(name, id)
	return nil
}

// Func returns a function given its name.
func (p *Program) Func(name string) (NodeID, bool) {
	return p.funcs.Load(name)
}

// Funcs iterates over the declared functions in declaration order.
func (p *Program) Funcs() iter.Seq[NodeID] {
	return p.funcs.Values()
}

// EnclosingFunc returns the function owning a node, NoNode if there is none.
func (p *Program) EnclosingFunc(id NodeID) NodeID {
	for ; id != NoNode; id = p.Parent(id) {
		if _, ok := p.Node(id).(*FuncDecl); ok {
			return id
		}
	}
	return NoNode
}

// ----------------------------------------------------------------------------
// Statement lists.

// body returns the statement list of a function or a loop and its symbol table.
func (p *Program) body(id NodeID) (*[]NodeID, *scope.RWScope[NodeID], bool) {
	switch n := p.Node(id).(type) {
	case *FuncDecl:
		return &n.Body, n.Locals, true
	case *LoopStmt:
		return &n.Body, n.Locals, true
	}
	return nil, nil, false
}

func (p *Program) enclosingBody(stmt NodeID) (list *[]NodeID, locals *scope.RWScope[NodeID], index int, err error) {
	if err = p.checkLive(stmt); err != nil {
		return
	}
	list, locals, ok := p.body(p.parent[stmt])
	if ok {
		index = slices.Index(*list, stmt)
	}
	if !ok || index < 0 {
		return nil, nil, -1, fmterr.Internalf("node %d of kind %s is not in a statement list", stmt, p.nodes[stmt].Kind())
	}
	return
}

// InsertStmt inserts a statement before another statement in a statement list.
func (p *Program) InsertStmt(before, stmt NodeID) error {
	list, locals, index, err := p.enclosingBody(before)
	if err != nil {
		return err
	}
	if err := p.checkLive(stmt); err != nil {
		return err
	}
	if _, ok := p.nodes[stmt].(Stmt); !ok {
		return fmterr.Internalf("cannot insert node %d of kind %s: not a statement", stmt, p.nodes[stmt].Kind())
	}
	if p.parent[stmt] != NoNode {
		return fmterr.Internalf("cannot insert statement %d: already owned by node %d", stmt, p.parent[stmt])
	}
	if locals != nil {
		if err := p.declareStmt(locals, stmt); err != nil {
			return err
		}
	}
	*list = slices.Insert(*list, index, stmt)
	p.parent[stmt] = p.parent[before]
	p.Invalidate(stmt)
	return nil
}

// RemoveStmt removes a statement from its statement list.
// The statement and all the nodes it owns are removed from the program.
// Identifiers referring to a removed definition lose that definition.
func (p *Program) RemoveStmt(stmt NodeID) error {
	list, locals, index, err := p.enclosingBody(stmt)
	if err != nil {
		return err
	}
	owner := p.parent[stmt]
	*list = slices.Delete(*list, index, index+1)
	p.undefine(locals, stmt)
	p.remove(stmt)
	p.Invalidate(owner)
	return nil
}

func (p *Program) undefine(locals *scope.RWScope[NodeID], stmt NodeID) {
	s, ok := p.nodes[stmt].(*AssignStmt)
	if !ok || locals == nil {
		return
	}
	if def, found := locals.Find(s.Name); found && def == stmt && locals.IsLocal(s.Name) {
		// Error cannot happen: the name is local.
		_ = locals.Delete(s.Name)
	}
}

// ----------------------------------------------------------------------------
// Replacement and removal.

type category int

const (
	declCategory category = iota
	stmtCategory
	exprCategory
)

func categoryOf(n Node) category {
	switch k := n.Kind(); {
	case k.IsStmt():
		return stmtCategory
	case k.IsExpr():
		return exprCategory
	}
	return declCategory
}

// Replace replaces a node by another node.
//
// The new node takes the place of the old node in its owner. Nodes referring
// to the old node now refer to the new node. If the old node is a statement,
// its name is removed from the symbol table and the name of the new statement
// is registered. The old node and all the nodes it owns are removed from the
// program. The new node is either unowned or owned by the old node: in the
// latter case, it is moved up to the place of the old node.
func (p *Program) Replace(old, new NodeID) error {
	if err := p.checkLive(old); err != nil {
		return err
	}
	if err := p.checkLive(new); err != nil {
		return err
	}
	if old == new {
		return nil
	}
	oldNode, newNode := p.nodes[old], p.nodes[new]
	if _, isFunc := oldNode.(*FuncDecl); isFunc {
		return fmterr.Internalf("cannot replace function %d: functions are replaced by declaring a new program", old)
	}
	if categoryOf(oldNode) != categoryOf(newNode) || (categoryOf(oldNode) == declCategory && oldNode.Kind() != newNode.Kind()) {
		return fmterr.Internalf("cannot replace %s node %d with %s node %d", oldNode.Kind(), old, newNode.Kind(), new)
	}
	hoist := p.owns(old, new)
	if p.parent[new] != NoNode && !hoist {
		return fmterr.Internalf("cannot replace node %d with node %d: node %d already owned by node %d", old, new, new, p.parent[new])
	}
	if p.owns(new, old) {
		return fmterr.Internalf("cannot replace node %d with node %d: node %d owns node %d", old, new, new, old)
	}
	owner := p.parent[old]
	if list, locals, ok := p.body(owner); ok && locals != nil && slices.Contains(*list, old) {
		if s, isAssign := newNode.(*AssignStmt); isAssign && locals.IsLocal(s.Name) {
			if def, _ := locals.Find(s.Name); def != old {
				return fmterr.Position(p.FSet, s.Pos, fmterr.Errorf(fmterr.DuplicateDefinition, "%s redeclared in this block", s.Name))
			}
		}
		p.undefine(locals, old)
		if err := p.declareStmt(locals, new); err != nil {
			return err
		}
	}
	if hoist {
		p.detach(new)
	}
	if owner != NoNode {
		for _, slot := range p.nodes[owner].children() {
			if *slot == old {
				*slot = new
			}
		}
		p.parent[new] = owner
		p.parent[old] = NoNode
	}
	for user := range p.uses[old] {
		for _, slot := range p.nodes[user].links() {
			if *slot == old {
				*slot = new
			}
		}
		if p.uses[new] == nil {
			p.uses[new] = make(map[NodeID]struct{})
		}
		p.uses[new][user] = struct{}{}
	}
	p.uses[old] = nil
	p.remove(old)
	p.Invalidate(new)
	return nil
}

// remove a node and all the nodes it owns from the program.
// owns returns true if desc is in the subtree owned by id.
func (p *Program) owns(id, desc NodeID) bool {
	for anc := p.parent[desc]; anc != NoNode; anc = p.parent[anc] {
		if anc == id {
			return true
		}
	}
	return false
}

// detach releases a node from its owner without removing it from the program.
func (p *Program) detach(id NodeID) {
	owner := p.parent[id]
	if list, locals, ok := p.body(owner); ok {
		if i := slices.Index(*list, id); i >= 0 {
			p.undefine(locals, id)
			*list = slices.Delete(*list, i, i+1)
			p.parent[id] = NoNode
			return
		}
	}
	for _, slot := range p.nodes[owner].children() {
		if *slot == id {
			*slot = NoNode
		}
	}
	p.parent[id] = NoNode
}

func (p *Program) remove(id NodeID) {
	if id == NoNode {
		return
	}
	n := p.nodes[id]
	if n == nil {
		return
	}
	for _, child := range p.Children(id) {
		p.remove(child)
	}
	if call, ok := n.(*CallExpr); ok && p.IsLive(call.Func) {
		// Domains of the callee may have been computed for this call.
		p.resetOwned(call.Func)
	}
	p.unlink(id)
	for user := range p.uses[id] {
		if !p.IsLive(user) {
			continue
		}
		p.dropLink(user, id)
		p.Invalidate(user)
	}
	p.nodes[id] = nil
	p.parent[id] = NoNode
	p.uses[id] = nil
}

func (p *Program) dropLink(user, target NodeID) {
	switch n := p.nodes[user].(type) {
	case *IdentExpr:
		n.Defs = slices.DeleteFunc(n.Defs, func(def NodeID) bool { return def == target })
	case *CallExpr:
		n.Func = NoNode
	}
}
