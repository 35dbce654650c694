// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ir

import (
	"fmt"
	"strings"
)

// Type represents a KSL type.
//
// The set of implementations is closed: ScalarType, VectorType, MatrixType,
// SamplerType, *StructType and ArrayType. All types are comparable with ==;
// struct types compare by identity.
type Type interface {
	typeTag()
	String() string
}

// ScalarKind represents the element kind of scalars and vectors.
type ScalarKind uint8

const (
	ScalarFloat ScalarKind = iota // 32-bit float
	ScalarInt                     // 32-bit signed integer
	ScalarBool                    // Boolean
)

func (k ScalarKind) String() string {
	switch k {
	case ScalarFloat:
		return "float"
	case ScalarInt:
		return "int"
	case ScalarBool:
		return "bool"
	default:
		return fmt.Sprintf("ScalarKind(%d)", k)
	}
}

// ScalarType represents a single scalar value.
type ScalarType struct {
	Kind ScalarKind
}

func (ScalarType) typeTag() {}

func (t ScalarType) String() string { return t.Kind.String() + "1" }

// VectorType represents a vector of 2 to 4 scalars of one kind.
type VectorType struct {
	Size   uint8
	Scalar ScalarKind
}

func (VectorType) typeTag() {}

func (t VectorType) String() string { return fmt.Sprintf("%s%d", t.Scalar, t.Size) }

// MatrixType represents a square, column-major float matrix.
type MatrixType struct {
	Size uint8
}

func (MatrixType) typeTag() {}

func (t MatrixType) String() string { return fmt.Sprintf("mat%d", t.Size) }

// Column returns the type of one matrix column.
func (t MatrixType) Column() VectorType {
	return VectorType{Size: t.Size, Scalar: ScalarFloat}
}

// SamplerDim represents the dimensionality of a sampled texture.
type SamplerDim uint8

const (
	Dim1D SamplerDim = iota
	Dim2D
	Dim3D
	DimCube
)

func (d SamplerDim) String() string {
	switch d {
	case Dim1D:
		return "1d"
	case Dim2D:
		return "2d"
	case Dim3D:
		return "3d"
	case DimCube:
		return "cube"
	default:
		return fmt.Sprintf("SamplerDim(%d)", d)
	}
}

// SamplerType represents a combined texture and sampler.
type SamplerType struct {
	Dim     SamplerDim
	Arrayed bool
}

func (SamplerType) typeTag() {}

func (t SamplerType) String() string {
	if t.Arrayed {
		return "sampler" + t.Dim.String() + "array"
	}
	return "sampler" + t.Dim.String()
}

// CoordSize returns the number of float components of a sample coordinate,
// including the array layer for arrayed samplers.
func (t SamplerType) CoordSize() uint8 {
	var n uint8
	switch t.Dim {
	case Dim1D:
		n = 1
	case Dim2D:
		n = 2
	default:
		n = 3
	}
	if t.Arrayed {
		n++
	}
	return n
}

// StructMember is a named member of a struct type.
type StructMember struct {
	Name string
	Type Type
}

// StructType represents a named struct. Struct types are compared by pointer.
type StructType struct {
	Name    string
	Members []StructMember
}

func (*StructType) typeTag() {}

func (t *StructType) String() string { return t.Name }

// MemberIndex returns the index of the named member or -1.
func (t *StructType) MemberIndex(name string) int {
	for i, m := range t.Members {
		if m.Name == name {
			return i
		}
	}
	return -1
}

// ArrayType represents a fixed-size array.
type ArrayType struct {
	Elem Type
	Len  uint32
}

func (ArrayType) typeTag() {}

func (t ArrayType) String() string { return fmt.Sprintf("%s[%d]", t.Elem, t.Len) }

// Predefined types.
var (
	Float1 = ScalarType{Kind: ScalarFloat}
	Float2 = VectorType{Size: 2, Scalar: ScalarFloat}
	Float3 = VectorType{Size: 3, Scalar: ScalarFloat}
	Float4 = VectorType{Size: 4, Scalar: ScalarFloat}

	Int1 = ScalarType{Kind: ScalarInt}
	Int2 = VectorType{Size: 2, Scalar: ScalarInt}
	Int3 = VectorType{Size: 3, Scalar: ScalarInt}
	Int4 = VectorType{Size: 4, Scalar: ScalarInt}

	Bool1 = ScalarType{Kind: ScalarBool}
	Bool2 = VectorType{Size: 2, Scalar: ScalarBool}
	Bool3 = VectorType{Size: 3, Scalar: ScalarBool}
	Bool4 = VectorType{Size: 4, Scalar: ScalarBool}

	Mat2 = MatrixType{Size: 2}
	Mat3 = MatrixType{Size: 3}
	Mat4 = MatrixType{Size: 4}

	Sampler1D        = SamplerType{Dim: Dim1D}
	Sampler2D        = SamplerType{Dim: Dim2D}
	Sampler3D        = SamplerType{Dim: Dim3D}
	SamplerCube      = SamplerType{Dim: DimCube}
	Sampler2DArray   = SamplerType{Dim: Dim2D, Arrayed: true}
	SamplerCubeArray = SamplerType{Dim: DimCube, Arrayed: true}
)

// NewStruct creates a struct type. Member names must be unique and non-empty.
func NewStruct(name string, members ...StructMember) (*StructType, error) {
	if name == "" {
		return nil, NewError(ErrInvalidArgument, "struct name must not be empty")
	}
	if len(members) == 0 {
		return nil, Errorf(ErrInvalidArgument, "struct %s has no members", name)
	}
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		if m.Name == "" || m.Type == nil {
			return nil, Errorf(ErrInvalidArgument, "struct %s has an unnamed or untyped member", name)
		}
		if seen[m.Name] {
			return nil, Errorf(ErrNameCollision, "struct %s declares member %q twice", name, m.Name)
		}
		if _, ok := m.Type.(SamplerType); ok {
			return nil, Errorf(ErrInvalidArgument, "struct %s member %q: samplers cannot be struct members", name, m.Name)
		}
		seen[m.Name] = true
	}
	return &StructType{Name: name, Members: append([]StructMember(nil), members...)}, nil
}

// NewArray creates an array type with a non-zero length.
func NewArray(elem Type, n uint32) (ArrayType, error) {
	if n == 0 {
		return ArrayType{}, Errorf(ErrInvalidArgument, "array of %s must have at least one element", elem)
	}
	switch elem.(type) {
	case ArrayType:
		return ArrayType{}, Errorf(ErrInvalidArgument, "arrays of arrays are not supported")
	case SamplerType:
		return ArrayType{}, Errorf(ErrInvalidArgument, "arrays of samplers are not supported")
	}
	return ArrayType{Elem: elem, Len: n}, nil
}

// TypeName returns a compact, human readable list of types, used in error messages.
func TypeName(types ...Type) string {
	parts := make([]string, len(types))
	for i, t := range types {
		if t == nil {
			parts[i] = "<nil>"
			continue
		}
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}
