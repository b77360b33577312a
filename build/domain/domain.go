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

// Package domain implements domains, the multidimensional iteration spaces of
// vector expressions, and the scale functions relating a consumer index space
// to a producer index space.
//
// A domain is a box: one inclusive range of symbolic bounds per dimension.
// Domain operations modify their receiver. Bounds are immutable parametric
// expressions and may be shared between domains.
package domain

import (
	"fmt"
	"slices"

	"github.com/gx-org/stencil/base/stringseq"
	"github.com/gx-org/stencil/build/fmterr"
	"github.com/gx-org/stencil/build/pexpr"
)

// Range of indices in one dimension. Both bounds are inclusive.
type Range struct {
	Lower, Upper pexpr.Expr
}

// NewRange returns a range given its bounds.
func NewRange(lower, upper pexpr.Expr) Range {
	return Range{Lower: lower, Upper: upper}
}

// Lit returns a range with literal bounds.
func Lit(lower, upper int64) Range {
	return Range{Lower: pexpr.NewInt(lower), Upper: pexpr.NewInt(upper)}
}

// IsDefined returns true if both bounds are defined.
func (r Range) IsDefined() bool {
	return !pexpr.IsUndefined(r.Lower) && !pexpr.IsUndefined(r.Upper)
}

// Equal returns true if both bounds are structurally equal.
func (r Range) Equal(o Range) bool {
	return pexpr.Equal(r.Lower, o.Lower) && pexpr.Equal(r.Upper, o.Upper)
}

func (r Range) copy() Range {
	return Range{Lower: pexpr.Copy(r.Lower), Upper: pexpr.Copy(r.Upper)}
}

// String representation of the range.
func (r Range) String() string {
	return fmt.Sprintf("[%s, %s]", r.Lower, r.Upper)
}

// Domain is a sequence of ranges, one per dimension.
type Domain struct {
	Ranges []Range
}

// New returns a domain given its ranges.
func New(ranges ...Range) *Domain {
	return &Domain{Ranges: ranges}
}

// Undefined returns a domain with all its bounds undefined.
func Undefined(dims int) *Domain {
	d := &Domain{Ranges: make([]Range, dims)}
	for i := range d.Ranges {
		d.Ranges[i] = Range{Lower: pexpr.Undefined, Upper: pexpr.Undefined}
	}
	return d
}

// Offset returns an offset domain: a domain specifying a starting offset
// for each dimension. The upper bounds are left undefined, the extent being
// inferred later from a right-hand side.
func Offset(lowers ...pexpr.Expr) *Domain {
	d := &Domain{Ranges: make([]Range, len(lowers))}
	for i, lower := range lowers {
		d.Ranges[i] = Range{Lower: lower, Upper: pexpr.Undefined}
	}
	return d
}

// Dims returns the number of dimensions of the domain.
func (d *Domain) Dims() int {
	return len(d.Ranges)
}

// InitFrom replaces the ranges of the domain by a deep copy of the ranges of another domain.
func (d *Domain) InitFrom(other *Domain) {
	d.Ranges = make([]Range, len(other.Ranges))
	for i, r := range other.Ranges {
		d.Ranges[i] = r.copy()
	}
}

// Copy returns a deep copy of the domain.
func (d *Domain) Copy() *Domain {
	cp := &Domain{}
	cp.InitFrom(d)
	return cp
}

// IsDefined returns true if no bound of the domain is undefined.
func (d *Domain) IsDefined() bool {
	for _, r := range d.Ranges {
		if !r.IsDefined() {
			return false
		}
	}
	return true
}

// CheckIfOffset returns true if all the upper bounds are undefined,
// that is if the domain only specifies a starting offset in each dimension.
func (d *Domain) CheckIfOffset() bool {
	for _, r := range d.Ranges {
		if !pexpr.IsUndefined(r.Upper) {
			return false
		}
	}
	return true
}

// Equal returns true if two domains have structurally equal ranges.
func (d *Domain) Equal(o *Domain) bool {
	if d == nil || o == nil {
		return d == o
	}
	return slices.EqualFunc(d.Ranges, o.Ranges, Range.Equal)
}

// String representation of the domain.
func (d *Domain) String() string {
	if d == nil {
		return "<nil domain>"
	}
	return "{" + stringseq.JoinStringer(slices.Values(d.Ranges), " x ") + "}"
}

func (d *Domain) checkDefined(op string) error {
	for i, r := range d.Ranges {
		if !r.IsDefined() {
			return fmterr.Errorf(fmterr.UndefinedDomainUsed, "cannot %s domain %s: dimension %d is not defined", op, d, i)
		}
	}
	return nil
}

func (d *Domain) checkDims(op string, dims int) error {
	if d.Dims() != dims {
		return fmterr.Errorf(fmterr.DimensionMismatch, "cannot %s domain %s with %d dimension(s) using %d dimension(s)", op, d, d.Dims(), dims)
	}
	return nil
}
