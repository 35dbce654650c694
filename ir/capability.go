// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ir

import "strings"

// Capability is a bit set of type properties used for legality checks.
type Capability uint16

const (
	CapScalar  Capability = 1 << iota // single scalar
	CapVector                         // vector of scalars
	CapMatrix                         // matrix of column vectors
	CapNumeric                        // float or int elements
	CapFloat                          // float elements only
	CapInt                            // int elements only
	CapBool                           // bool elements only
	CapSampler                        // combined texture sampler
	CapStruct                         // user struct
	CapArray                          // fixed-size array
)

var capabilityNames = [...]string{
	"Scalar", "Vector", "Matrix", "Numeric", "Float", "Int", "Bool", "Sampler", "Struct", "Array",
}

func (c Capability) String() string {
	if c == 0 {
		return "None"
	}
	var parts []string
	for i, name := range capabilityNames {
		if c&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

func scalarCaps(k ScalarKind) Capability {
	switch k {
	case ScalarFloat:
		return CapNumeric | CapFloat
	case ScalarInt:
		return CapNumeric | CapInt
	default:
		return CapBool
	}
}

// Capabilities returns the capability set of t.
func Capabilities(t Type) Capability {
	switch t := t.(type) {
	case ScalarType:
		return CapScalar | scalarCaps(t.Kind)
	case VectorType:
		return CapVector | scalarCaps(t.Scalar)
	case MatrixType:
		return CapMatrix | CapNumeric | CapFloat
	case SamplerType:
		return CapSampler
	case *StructType:
		return CapStruct
	case ArrayType:
		return CapArray
	default:
		return 0
	}
}

// HasCapability reports whether t carries every capability in c.
func HasCapability(t Type, c Capability) bool {
	return Capabilities(t)&c == c
}

// HasAnyCapability reports whether t carries at least one capability in c.
func HasAnyCapability(t Type, c Capability) bool {
	return Capabilities(t)&c != 0
}

// ElementType returns the element type of a vector (its scalar), a matrix
// (its column vector) or an array. Scalars are their own element type.
// Other types return nil.
func ElementType(t Type) Type {
	switch t := t.(type) {
	case ScalarType:
		return t
	case VectorType:
		return ScalarType{Kind: t.Scalar}
	case MatrixType:
		return t.Column()
	case ArrayType:
		return t.Elem
	default:
		return nil
	}
}

// ScalarKindOf returns the scalar kind of a scalar, vector or matrix.
func ScalarKindOf(t Type) (ScalarKind, bool) {
	switch t := t.(type) {
	case ScalarType:
		return t.Kind, true
	case VectorType:
		return t.Scalar, true
	case MatrixType:
		return ScalarFloat, true
	default:
		return 0, false
	}
}

// Arity returns the component count of a scalar (1), vector (its size) or
// matrix (its column count). Other types return 0.
func Arity(t Type) int {
	switch t := t.(type) {
	case ScalarType:
		return 1
	case VectorType:
		return int(t.Size)
	case MatrixType:
		return int(t.Size)
	default:
		return 0
	}
}

// VectorOf returns the scalar (n == 1) or vector type with n components of kind k.
func VectorOf(k ScalarKind, n int) Type {
	if n == 1 {
		return ScalarType{Kind: k}
	}
	return VectorType{Size: uint8(n), Scalar: k}
}

// IsScalarOrVector reports whether t is a scalar or a vector.
func IsScalarOrVector(t Type) bool {
	return HasAnyCapability(t, CapScalar|CapVector)
}
