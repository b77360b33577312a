// Copyright 2025 Google LLC
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

// Package scope provides block symbol tables: names mapped to values,
// with lookups cascading to the enclosing block.
package scope

import (
	"iter"

	"github.com/gx-org/stencil/base/ordered"
	"github.com/pkg/errors"
)

// Scope provides a set of values that can be found given their name.
type Scope[V any] interface {
	Find(string) (V, bool)
}

// RWScope stores key,value pairs defined in a block.
// A value is retrieved from its key by querying the scope and,
// if not found, its parents recursively.
type RWScope[V any] struct {
	parent Scope[V]
	local  *ordered.Map[string, V]
}

var _ Scope[any] = (*RWScope[any])(nil)

// NewScope returns a new scope given a parent, which can be nil.
func NewScope[V any](parent Scope[V]) *RWScope[V] {
	return &RWScope[V]{
		parent: parent,
		local:  ordered.NewMap[string, V](),
	}
}

// Parent returns the enclosing scope, nil for a root scope.
func (s *RWScope[V]) Parent() Scope[V] {
	return s.parent
}

// Define maps `key` to `value`, overwriting if necessary.
func (s *RWScope[V]) Define(k string, v V) {
	s.local.Store(k, v)
}

// Delete removes `key` from the local scope.
// Parent scopes are never modified.
func (s *RWScope[V]) Delete(key string) error {
	if !s.local.Delete(key) {
		return errors.Errorf("cannot delete %s: not defined in local scope", key)
	}
	return nil
}

// Len returns the number of local definitions.
func (s *RWScope[V]) Len() int {
	return s.local.Size()
}

// LocalKeys returns the keys of the local scope in definition order.
func (s *RWScope[V]) LocalKeys() iter.Seq[string] {
	return s.local.Keys()
}

// IsLocal returns true if the key is defined in the local scope.
func (s *RWScope[V]) IsLocal(key string) bool {
	_, ok := s.local.Load(key)
	return ok
}

// Find a key in the scope and its parents.
func (s *RWScope[V]) Find(key string) (value V, ok bool) {
	value, ok = s.local.Load(key)
	if ok || s.parent == nil {
		return
	}
	return s.parent.Find(key)
}
