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

// Package fmterr defines the errors reported while computing domains
// and rewriting stencil programs.
//
// Every error is a configuration error of the compiled program: there is no
// local recovery. Errors carry a Kind so that callers (and tests) can tell
// them apart without parsing messages.
package fmterr

// Kind of a compilation error.
type Kind int

const (
	// Internal is a bug in the compiler.
	Internal Kind = iota
	// DimensionMismatch is reported when sub-expressions with different
	// dimensionalities are combined.
	DimensionMismatch
	// ElementTypeMismatch is reported when sub-expressions with different
	// element types are combined.
	ElementTypeMismatch
	// UndefinedDomainUsed is reported when a domain operation requires a
	// fully defined domain.
	UndefinedDomainUsed
	// InvalidScaleCoefficient is reported for a scale smaller than 1.
	InvalidScaleCoefficient
	// SymbolicMultiplyOfTwoNonLiterals is reported when a product would make
	// a domain size non-affine in the parameters.
	SymbolicMultiplyOfTwoNonLiterals
	// MixedScaleInStencilAccess is reported when two accesses of the same
	// stencil argument disagree on the scale of a dimension.
	MixedScaleInStencilAccess
	// DuplicateDefinition is reported when a name is defined twice.
	DuplicateDefinition
	// MissingOrAmbiguousReachingDefinition is reported when an identifier
	// is not reached by exactly one definition.
	MissingOrAmbiguousReachingDefinition
	// StructFieldCountMismatch is reported when a struct construction does
	// not provide a value for every field.
	StructFieldCountMismatch
	// MalformedOffsetDomain is reported when an offset domain does not leave
	// its upper bounds open.
	MalformedOffsetDomain
	// ArityMismatch is reported when a function is applied to the wrong
	// number of arguments.
	ArityMismatch
	// DivisionByZero is reported when a parametric expression is divided by
	// a literal zero.
	DivisionByZero
	// UnboundParameter is reported when a parameter without a value is evaluated.
	UnboundParameter
	// IntegerOverflow is reported when folding integer literals overflows int64.
	IntegerOverflow
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case Internal:
		return "internal error"
	case DimensionMismatch:
		return "dimension mismatch"
	case ElementTypeMismatch:
		return "element type mismatch"
	case UndefinedDomainUsed:
		return "undefined domain used"
	case InvalidScaleCoefficient:
		return "invalid scale coefficient"
	case SymbolicMultiplyOfTwoNonLiterals:
		return "symbolic multiply of two non-literals"
	case MixedScaleInStencilAccess:
		return "mixed scale in stencil access"
	case DuplicateDefinition:
		return "duplicate definition"
	case MissingOrAmbiguousReachingDefinition:
		return "missing or ambiguous reaching definition"
	case StructFieldCountMismatch:
		return "struct field count mismatch"
	case MalformedOffsetDomain:
		return "malformed offset domain"
	case ArityMismatch:
		return "arity mismatch"
	case DivisionByZero:
		return "division by zero"
	case UnboundParameter:
		return "unbound parameter"
	case IntegerOverflow:
		return "integer overflow"
	}
	return "unknown error"
}
