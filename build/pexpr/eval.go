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

package pexpr

import (
	"slices"

	"github.com/gx-org/stencil/base/ordered"
	"github.com/gx-org/stencil/build/fmterr"
)

// Env binds parameter names to values.
type Env map[string]int64

func (env Env) lookup(p *Param) (int64, bool) {
	if val, ok := env[p.Name]; ok {
		return val, true
	}
	if p.Default != nil {
		return *p.Default, true
	}
	return 0, false
}

// Eval evaluates an expression given parameter values.
// Parameters missing from env evaluate to their default value, if any.
func Eval(x Expr, env Env) (int64, error) {
	switch xT := x.(type) {
	case *Int:
		return xT.Val, nil
	case *Param:
		val, ok := env.lookup(xT)
		if !ok {
			return 0, fmterr.Errorf(fmterr.UnboundParameter, "parameter %s has no value", xT.Name)
		}
		return val, nil
	case *Binary:
		a, err := Eval(xT.X, env)
		if err != nil {
			return 0, err
		}
		b, err := Eval(xT.Y, env)
		if err != nil {
			return 0, err
		}
		return fold(xT.Op, a, b)
	}
	return 0, fmterr.Errorf(fmterr.UndefinedDomainUsed, "cannot evaluate an undefined expression")
}

// Subst replaces the parameters bound in env by their value
// and simplifies the result.
// Parameters not in env are left untouched, even if they have a default value.
func Subst(x Expr, env Env) (Expr, error) {
	switch xT := x.(type) {
	case *Param:
		val, ok := env[xT.Name]
		if !ok {
			return x, nil
		}
		return NewInt(val), nil
	case *Binary:
		a, err := Subst(xT.X, env)
		if err != nil {
			return nil, err
		}
		b, err := Subst(xT.Y, env)
		if err != nil {
			return nil, err
		}
		if a == xT.X && b == xT.Y {
			return x, nil
		}
		return binary(xT.Op, a, b)
	}
	return x, nil
}

func params(done *ordered.Map[string, *Param], x Expr) {
	switch xT := x.(type) {
	case *Param:
		done.Store(xT.Name, xT)
	case *Binary:
		params(done, xT.X)
		params(done, xT.Y)
	}
}

// Params returns all the parameters referenced by the expressions
// in the order in which they appear.
func Params(xs ...Expr) []*Param {
	done := ordered.NewMap[string, *Param]()
	for _, x := range xs {
		params(done, x)
	}
	return slices.Collect(done.Values())
}
