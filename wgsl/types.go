// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package wgsl

import (
	"fmt"

	"github.com/gogpu/ksl/gen"
	"github.com/gogpu/ksl/ir"
	"github.com/gogpu/ksl/layout"
)

// WGSL type name constants.
const (
	wgslTypeBool = "bool"
	wgslTypeI32  = "i32"
	wgslTypeF32  = "f32"
)

// typeName returns the WGSL type name for a KSL type.
func typeName(typ ir.Type) string {
	switch t := typ.(type) {
	case ir.ScalarType:
		return scalarName(t.Kind)
	case ir.VectorType:
		return fmt.Sprintf("vec%d<%s>", t.Size, scalarName(t.Scalar))
	case ir.MatrixType:
		return fmt.Sprintf("mat%dx%d<f32>", t.Size, t.Size)
	case ir.ArrayType:
		return fmt.Sprintf("array<%s, %d>", typeName(t.Elem), t.Len)
	case *ir.StructType:
		return escapeName(t.Name)
	case ir.SamplerType:
		return textureName(t)
	default:
		return "unknown_type"
	}
}

func scalarName(k ir.ScalarKind) string {
	switch k {
	case ir.ScalarBool:
		return wgslTypeBool
	case ir.ScalarInt:
		return wgslTypeI32
	default:
		return wgslTypeF32
	}
}

// textureName returns the sampled texture type of a combined sampler.
func textureName(t ir.SamplerType) string {
	var name string
	switch t.Dim {
	case ir.Dim1D:
		name = "texture_1d"
	case ir.Dim2D:
		name = "texture_2d"
	case ir.Dim3D:
		name = "texture_3d"
	default:
		name = "texture_cube"
	}
	if t.Arrayed {
		name += "_array"
	}
	return name + "<f32>"
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

// alignOf returns the WGSL alignment of t.
func alignOf(t ir.Type) uint32 {
	switch t := t.(type) {
	case ir.VectorType:
		if t.Size == 2 {
			return 8
		}
		return 16
	case ir.MatrixType:
		return alignOf(t.Column())
	case ir.ArrayType:
		return alignOf(t.Elem)
	case *ir.StructType:
		var a uint32 = 1
		for _, m := range t.Members {
			a = max(a, alignOf(m.Type))
		}
		return a
	default:
		return 4
	}
}

// sizeOf returns the WGSL size of t.
func sizeOf(t ir.Type) uint32 {
	switch t := t.(type) {
	case ir.VectorType:
		return 4 * uint32(t.Size)
	case ir.MatrixType:
		col := t.Column()
		return uint32(t.Size) * layout.AlignUp(sizeOf(col), alignOf(col))
	case ir.ArrayType:
		return t.Len * strideOf(t.Elem)
	case *ir.StructType:
		var end uint32
		for _, m := range t.Members {
			end = layout.AlignUp(end, alignOf(m.Type)) + sizeOf(m.Type)
		}
		return layout.AlignUp(end, alignOf(t))
	default:
		return 4
	}
}

// strideOf returns the WGSL array stride of elements of type t.
func strideOf(t ir.Type) uint32 {
	return layout.AlignUp(sizeOf(t), alignOf(t))
}

// paddedElem returns the 4-component vector replacing a scalar or
// 2-component element of a 16-byte strided array.
func paddedElem(t ir.Type) (ir.VectorType, bool) {
	switch t := t.(type) {
	case ir.ScalarType:
		return ir.VectorType{Scalar: t.Kind, Size: 4}, true
	case ir.VectorType:
		if t.Size == 2 {
			return ir.VectorType{Scalar: t.Scalar, Size: 4}, true
		}
	}
	return ir.VectorType{}, false
}

// member is one declared member of a buffer struct.
type member struct {
	name string
	typ  string
	// size is an explicit @size, 0 for the natural size.
	size uint32
	// padded is set for arrays declared with 4-component elements.
	padded bool
}

// placeBuffer declares the members of ub so that WGSL places them at the
// offsets computed by the layout package. uniform enables the extra
// alignment rules of the uniform address space.
func placeBuffer(ub *ir.UniformBuffer, uniform bool) ([]member, error) {
	l, err := layout.ComputeBuffer(ub)
	if err != nil {
		return nil, err
	}
	policy := layout.For(ub.Policy)
	out := make([]member, len(l.Fields))
	var cursor, prevOffset uint32
	for i, f := range l.Fields {
		v := ub.Members[i]
		m := member{name: escapeName(v.Name), typ: typeName(v.Type)}
		var align, size uint32
		if at, ok := v.Type.(ir.ArrayType); ok {
			if err := checkNested(policy, at.Elem, uniform); err != nil {
				return nil, fmt.Errorf("buffer %s member %s: %w", ub.Name, v.Name, err)
			}
			stride := strideOf(at.Elem)
			if f.Stride != stride || (uniform && stride%16 != 0) {
				elem, ok := paddedElem(at.Elem)
				if !ok || f.Stride != 16 {
					return nil, gen.Unsupported("buffer %s member %s: array stride %d cannot be expressed in WGSL", ub.Name, v.Name, f.Stride)
				}
				m.padded = true
				m.typ = fmt.Sprintf("array<%s, %d>", typeName(elem), at.Len)
				stride = 16
			}
			align, size = alignOf(at.Elem), stride*at.Len
		} else {
			if err := checkNested(policy, v.Type, uniform); err != nil {
				return nil, fmt.Errorf("buffer %s member %s: %w", ub.Name, v.Name, err)
			}
			align, size = alignOf(v.Type), sizeOf(v.Type)
			_, isStruct := v.Type.(*ir.StructType)
			if f.Size < size || (!isStruct && f.Size != size) {
				return nil, gen.Unsupported("buffer %s member %s: %s occupies %d bytes, WGSL uses %d", ub.Name, v.Name, v.Type, f.Size, size)
			}
		}
		if uniform && isAggregate(v.Type) {
			align = max(align, 16)
		}
		pos := layout.AlignUp(cursor, align)
		switch {
		case f.Offset < pos || f.Offset%align != 0:
			return nil, gen.Unsupported("buffer %s member %s: offset %d violates WGSL alignment %d", ub.Name, v.Name, f.Offset, align)
		case f.Offset > pos:
			// Only the first member can start at pos 0.
			out[i-1].size = f.Offset - prevOffset
		}
		out[i] = m
		prevOffset = f.Offset
		cursor = f.Offset + size
	}
	return out, nil
}

func isAggregate(t ir.Type) bool {
	switch t.(type) {
	case ir.ArrayType, *ir.StructType:
		return true
	}
	return false
}

// checkNested verifies that struct types reachable from t have the same
// member offsets under policy and under WGSL rules.
func checkNested(policy layout.Policy, t ir.Type, uniform bool) error {
	st, ok := t.(*ir.StructType)
	if !ok {
		return nil
	}
	l, err := layout.ComputeStruct(policy, st)
	if err != nil {
		return err
	}
	var pos uint32
	for i, f := range l.Fields {
		mt := st.Members[i].Type
		if err := checkNested(policy, mt, uniform); err != nil {
			return err
		}
		align := alignOf(mt)
		pos = layout.AlignUp(pos, align)
		if f.Offset != pos {
			return gen.Unsupported("struct %s member %s: offset %d under %s, WGSL places it at %d", st.Name, f.Name, f.Offset, policy.Name(), pos)
		}
		if uniform && isAggregate(mt) && pos%16 != 0 {
			return gen.Unsupported("struct %s member %s: offset %d is not 16-byte aligned", st.Name, f.Name, pos)
		}
		size := sizeOf(mt)
		if at, ok := mt.(ir.ArrayType); ok {
			stride := strideOf(at.Elem)
			if f.Stride != stride || (uniform && stride%16 != 0) {
				return gen.Unsupported("struct %s member %s: array stride %d cannot be expressed in WGSL", st.Name, f.Name, f.Stride)
			}
		} else if f.Size != size {
			return gen.Unsupported("struct %s member %s: %s occupies %d bytes, WGSL uses %d", st.Name, f.Name, mt, f.Size, size)
		}
		pos += size
	}
	return nil
}
