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

package domain

import (
	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/backend/shape"
	"github.com/gx-org/stencil/build/pexpr"
)

// Subst returns a new domain in which the parameters bound in env
// have been replaced by their values.
func (d *Domain) Subst(env pexpr.Env) (*Domain, error) {
	out := &Domain{Ranges: make([]Range, len(d.Ranges))}
	for i, r := range d.Ranges {
		lower, err := pexpr.Subst(r.Lower, env)
		if err != nil {
			return nil, err
		}
		upper, err := pexpr.Subst(r.Upper, env)
		if err != nil {
			return nil, err
		}
		out.Ranges[i] = Range{Lower: lower, Upper: upper}
	}
	return out, nil
}

// Extents returns the number of elements in each dimension given parameter values.
// Empty dimensions have a length of 0.
func (d *Domain) Extents(env pexpr.Env) ([]int, error) {
	if err := d.checkDefined("evaluate"); err != nil {
		return nil, err
	}
	extents := make([]int, len(d.Ranges))
	for i, r := range d.Ranges {
		lower, err := pexpr.Eval(r.Lower, env)
		if err != nil {
			return nil, err
		}
		upper, err := pexpr.Eval(r.Upper, env)
		if err != nil {
			return nil, err
		}
		extents[i] = int(max(0, upper-lower+1))
	}
	return extents, nil
}

// Shape returns the concrete shape of an array of a given data type
// covering the domain.
func (d *Domain) Shape(dt dtype.DataType, env pexpr.Env) (*shape.Shape, error) {
	extents, err := d.Extents(env)
	if err != nil {
		return nil, err
	}
	return &shape.Shape{
		DType:       dt,
		AxisLengths: extents,
	}, nil
}
