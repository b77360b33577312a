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
	"fmt"
	"slices"

	"github.com/gx-org/stencil/base/stringseq"
	"github.com/gx-org/stencil/build/fmterr"
	"github.com/gx-org/stencil/build/pexpr"
)

// Coefficient is the affine map i -> Offset + Scale*i of one dimension.
type Coefficient struct {
	Offset int32
	Scale  int32
}

// Apply the coefficient to an index.
func (c Coefficient) Apply(i int64) int64 {
	return int64(c.Offset) + int64(c.Scale)*i
}

// ApplyExpr applies the coefficient to a symbolic index.
func (c Coefficient) ApplyExpr(i pexpr.Expr) pexpr.Expr {
	return pexpr.AddInt(pexpr.MulInt(i, int64(c.Scale)), int64(c.Offset))
}

// String representation of the coefficient.
func (c Coefficient) String() string {
	return fmt.Sprintf("(%d,%d)", c.Offset, c.Scale)
}

// ScaleFunction maps, for each dimension, an index of a consumer to an index of a producer.
type ScaleFunction struct {
	Coeffs []Coefficient
}

// NewScaleFunction returns a scale function given its coefficients.
func NewScaleFunction(coeffs ...Coefficient) (*ScaleFunction, error) {
	sf := &ScaleFunction{}
	for _, c := range coeffs {
		if err := sf.AddCoefficient(c.Offset, c.Scale); err != nil {
			return nil, err
		}
	}
	return sf, nil
}

// Identity returns the identity scale function of a given number of dimensions.
func Identity(dims int) *ScaleFunction {
	sf := &ScaleFunction{Coeffs: make([]Coefficient, dims)}
	for i := range sf.Coeffs {
		sf.Coeffs[i] = Coefficient{Scale: 1}
	}
	return sf
}

// AddCoefficient appends the coefficient of a new dimension.
func (sf *ScaleFunction) AddCoefficient(offset, scale int32) error {
	if scale <= 0 {
		return fmterr.Errorf(fmterr.InvalidScaleCoefficient, "scale %d of dimension %d is not positive", scale, len(sf.Coeffs))
	}
	sf.Coeffs = append(sf.Coeffs, Coefficient{Offset: offset, Scale: scale})
	return nil
}

// Dims returns the number of dimensions of the scale function.
func (sf *ScaleFunction) Dims() int {
	return len(sf.Coeffs)
}

// IsIdentity returns true if the scale function maps every index to itself.
func (sf *ScaleFunction) IsIdentity() bool {
	for _, c := range sf.Coeffs {
		if c.Offset != 0 || c.Scale != 1 {
			return false
		}
	}
	return true
}

// Equal returns true if two scale functions have the same coefficients.
func (sf *ScaleFunction) Equal(o *ScaleFunction) bool {
	if sf == nil || o == nil {
		return sf == o
	}
	return slices.Equal(sf.Coeffs, o.Coeffs)
}

// SameScale checks that two scale functions have the same scale in every dimension.
// If not, the first dimension with a different scale is returned.
func (sf *ScaleFunction) SameScale(o *ScaleFunction) (int, bool) {
	for i := range min(sf.Dims(), o.Dims()) {
		if sf.Coeffs[i].Scale != o.Coeffs[i].Scale {
			return i, false
		}
	}
	if sf.Dims() != o.Dims() {
		return min(sf.Dims(), o.Dims()), false
	}
	return -1, true
}

// String representation of the scale function.
func (sf *ScaleFunction) String() string {
	return "@[" + stringseq.JoinStringer(slices.Values(sf.Coeffs), ", ") + "]"
}
