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
	"github.com/gx-org/stencil/build/fmterr"
	"github.com/gx-org/stencil/build/pexpr"
)

var zero = pexpr.NewInt(0)

// Realign shifts every dimension so that its lower bound is 0,
// preserving its extent: [lb, ub] becomes [0, ub-lb].
func (d *Domain) Realign() error {
	for i, r := range d.Ranges {
		if !r.IsDefined() {
			return fmterr.Errorf(fmterr.UndefinedDomainUsed, "cannot realign domain %s: dimension %d is not defined", d, i)
		}
		d.Ranges[i] = Range{Lower: zero, Upper: pexpr.Sub(r.Upper, r.Lower)}
	}
	return nil
}

// Intersect restricts the domain to its intersection with another domain.
// Undefined bounds of the other domain leave the bounds of the receiver unchanged.
func (d *Domain) Intersect(other *Domain) error {
	if err := d.checkDefined("intersect"); err != nil {
		return err
	}
	if err := d.checkDims("intersect", other.Dims()); err != nil {
		return err
	}
	for i, o := range other.Ranges {
		r := &d.Ranges[i]
		if !pexpr.IsUndefined(o.Lower) {
			r.Lower = pexpr.Max(r.Lower, o.Lower)
		}
		if !pexpr.IsUndefined(o.Upper) {
			r.Upper = pexpr.Min(r.Upper, o.Upper)
		}
	}
	return nil
}

// Union extends the domain to the bounding box of its union with another domain.
// Undefined bounds of the other domain leave the bounds of the receiver unchanged.
func (d *Domain) Union(other *Domain) error {
	if err := d.checkDefined("unite"); err != nil {
		return err
	}
	if err := d.checkDims("unite", other.Dims()); err != nil {
		return err
	}
	for i, o := range other.Ranges {
		r := &d.Ranges[i]
		if !pexpr.IsUndefined(o.Lower) {
			r.Lower = pexpr.Min(r.Lower, o.Lower)
		}
		if !pexpr.IsUndefined(o.Upper) {
			r.Upper = pexpr.Max(r.Upper, o.Upper)
		}
	}
	return nil
}

func (d *Domain) checkScalable(op string, sf *ScaleFunction) error {
	if err := d.checkDims(op, sf.Dims()); err != nil {
		return err
	}
	for i, c := range sf.Coeffs {
		if c.Scale <= 0 {
			return fmterr.Errorf(fmterr.InvalidScaleCoefficient, "cannot %s domain %s: scale %d of dimension %d is not positive", op, d, c.Scale, i)
		}
		if c.Scale == 1 {
			continue
		}
		r := d.Ranges[i]
		if !r.IsDefined() {
			return fmterr.Errorf(fmterr.UndefinedDomainUsed, "cannot %s domain %s: dimension %d is not defined", op, d, i)
		}
		if lower, ok := pexpr.Literal(r.Lower); !ok || lower != 0 {
			return fmterr.Internalf("cannot %s domain %s: lower bound %s of dimension %d has not been realigned", op, d, r.Lower, i)
		}
	}
	return nil
}

// ScaleDown computes the domain of a producer accessed through a scale function.
// The number of elements of each scaled dimension is divided by the scale,
// rounding up. Dimensions with a scale of 1 are unchanged.
// The lower bounds of scaled dimensions must be 0.
func (d *Domain) ScaleDown(sf *ScaleFunction) error {
	if err := d.checkScalable("scale down", sf); err != nil {
		return err
	}
	for i, c := range sf.Coeffs {
		if c.Scale == 1 {
			continue
		}
		r := d.Ranges[i]
		numElements, err := pexpr.CeilDivInt(pexpr.AddInt(r.Upper, 1), int64(c.Scale))
		if err != nil {
			return err
		}
		d.Ranges[i] = Range{Lower: zero, Upper: pexpr.SubInt(numElements, 1)}
	}
	return nil
}

// ScaleUp computes the domain written through a scale function.
// The number of elements of each scaled dimension is multiplied by the scale.
// Dimensions with a scale of 1 are unchanged.
// The lower bounds of scaled dimensions must be 0.
func (d *Domain) ScaleUp(sf *ScaleFunction) error {
	if err := d.checkScalable("scale up", sf); err != nil {
		return err
	}
	for i, c := range sf.Coeffs {
		if c.Scale == 1 {
			continue
		}
		r := d.Ranges[i]
		numElements := pexpr.MulInt(pexpr.AddInt(r.Upper, 1), int64(c.Scale))
		d.Ranges[i] = Range{Lower: zero, Upper: pexpr.SubInt(numElements, 1)}
	}
	return nil
}

// AddOffset computes the domain of a value written at an offset of a larger domain.
//
// The dimensions of the receiver are aligned with the trailing dimensions of
// the offset domain. The upper bound of each of these dimensions is shifted by
// the offset lower bound. Leading dimensions only present in the offset domain
// are prepended as [0, offset lower bound].
func (d *Domain) AddOffset(offset *Domain) error {
	if d.Dims() > offset.Dims() {
		return fmterr.Errorf(fmterr.DimensionMismatch, "cannot offset domain %s with %d dimension(s) by %s with %d dimension(s)", d, d.Dims(), offset, offset.Dims())
	}
	for i, o := range offset.Ranges {
		if pexpr.IsUndefined(o.Lower) {
			return fmterr.Errorf(fmterr.MalformedOffsetDomain, "offset domain %s: lower bound of dimension %d is not defined", offset, i)
		}
	}
	lead := offset.Dims() - d.Dims()
	for i := range d.Ranges {
		d.Ranges[i].Upper = pexpr.Add(d.Ranges[i].Upper, offset.Ranges[lead+i].Lower)
	}
	if lead == 0 {
		return nil
	}
	ranges := make([]Range, lead, offset.Dims())
	for i := range lead {
		ranges[i] = Range{Lower: zero, Upper: offset.Ranges[i].Lower}
	}
	d.Ranges = append(ranges, d.Ranges...)
	return nil
}
