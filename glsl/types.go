// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"
	"strings"

	"github.com/gogpu/ksl/ir"
)

// GLSL type name constants.
const (
	glslTypeBool  = "bool"
	glslTypeInt   = "int"
	glslTypeFloat = "float"
)

// typeToGLSL returns the GLSL type name for a KSL type. Arrays include
// their size, as used in constructors (e.g. "vec2[3]").
func typeToGLSL(typ ir.Type) string {
	switch t := typ.(type) {
	case ir.ScalarType:
		return scalarToGLSL(t.Kind)
	case ir.VectorType:
		return vectorToGLSL(t)
	case ir.MatrixType:
		return fmt.Sprintf("mat%d", t.Size)
	case ir.ArrayType:
		return fmt.Sprintf("%s[%d]", typeToGLSL(t.Elem), t.Len)
	case *ir.StructType:
		return escapeKeyword(t.Name)
	case ir.SamplerType:
		return samplerToGLSL(t)
	default:
		return "unknown_type"
	}
}

// scalarToGLSL returns the GLSL name for a scalar kind.
func scalarToGLSL(k ir.ScalarKind) string {
	switch k {
	case ir.ScalarBool:
		return glslTypeBool
	case ir.ScalarInt:
		return glslTypeInt
	default:
		return glslTypeFloat
	}
}

// vectorToGLSL returns the GLSL name for a vector type.
func vectorToGLSL(t ir.VectorType) string {
	switch t.Scalar {
	case ir.ScalarBool:
		return fmt.Sprintf("bvec%d", t.Size)
	case ir.ScalarInt:
		return fmt.Sprintf("ivec%d", t.Size)
	default:
		return fmt.Sprintf("vec%d", t.Size)
	}
}

// samplerToGLSL returns the GLSL name for a combined texture sampler.
func samplerToGLSL(t ir.SamplerType) string {
	var name string
	switch t.Dim {
	case ir.Dim1D:
		name = "sampler1D"
	case ir.Dim2D:
		name = "sampler2D"
	case ir.Dim3D:
		name = "sampler3D"
	default:
		name = "samplerCube"
	}
	if t.Arrayed {
		name += "Array"
	}
	return name
}

// declaration returns "type name" with the array suffix after the name,
// as GLSL declarations require.
func declaration(t ir.Type, name string) string {
	if at, ok := t.(ir.ArrayType); ok {
		return fmt.Sprintf("%s %s[%d]", typeToGLSL(at.Elem), name, at.Len)
	}
	return typeToGLSL(t) + " " + name
}

// zeroValue returns a constructor expression for the zero value of t.
func zeroValue(t ir.Type) string {
	switch t := t.(type) {
	case ir.ScalarType:
		switch t.Kind {
		case ir.ScalarBool:
			return "false"
		case ir.ScalarInt:
			return "0"
		default:
			return "0.0"
		}
	case ir.VectorType:
		return fmt.Sprintf("%s(%s)", vectorToGLSL(t), zeroValue(ir.ScalarType{Kind: t.Scalar}))
	case ir.MatrixType:
		return fmt.Sprintf("mat%d(0.0)", t.Size)
	case ir.ArrayType:
		elems := make([]string, t.Len)
		for i := range elems {
			elems[i] = zeroValue(t.Elem)
		}
		return typeToGLSL(t) + "(" + strings.Join(elems, ", ") + ")"
	case *ir.StructType:
		members := make([]string, len(t.Members))
		for i, m := range t.Members {
			members[i] = zeroValue(m.Type)
		}
		return typeToGLSL(t) + "(" + strings.Join(members, ", ") + ")"
	default:
		return "0"
	}
}

// collectStructs appends the struct types reachable from t to out, members
// before the structs containing them.
func collectStructs(t ir.Type, seen map[*ir.StructType]bool, out []*ir.StructType) []*ir.StructType {
	switch t := t.(type) {
	case ir.ArrayType:
		return collectStructs(t.Elem, seen, out)
	case *ir.StructType:
		if seen[t] {
			return out
		}
		seen[t] = true
		for _, m := range t.Members {
			out = collectStructs(m.Type, seen, out)
		}
		return append(out, t)
	default:
		return out
	}
}
