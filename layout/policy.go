// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package layout

import "github.com/gogpu/ksl/ir"

// Policy computes alignment, size and stride of member types.
//
// Policies assume types were checked by Compute: only scalars, vectors,
// matrices and structs of those reach them.
type Policy interface {
	// Name returns the policy name, e.g. "std140".
	Name() string

	// AlignmentOf returns the alignment of t, isArray is set for array members.
	AlignmentOf(t ir.Type, isArray bool) uint32

	// ArrayStride returns the distance between consecutive array elements of type t.
	ArrayStride(t ir.Type) uint32

	// SizeOf returns the size of a single value of type t.
	SizeOf(t ir.Type) uint32

	// StructSize returns the total size of a member list ending at lastPosition.
	StructSize(members []Member, lastPosition uint32) uint32
}

// Policies, matching ir.LayoutPolicy.
var (
	TightlyPacked Policy = tightlyPacked{}
	Std140        Policy = std140{}
	Std430        Policy = std430{}
)

// For returns the policy implementing p.
func For(p ir.LayoutPolicy) Policy {
	switch p {
	case ir.LayoutStd430:
		return Std430
	case ir.LayoutTightlyPacked:
		return TightlyPacked
	default:
		return Std140
	}
}

// ByName returns the policy with the given name.
func ByName(name string) (Policy, bool) {
	for _, p := range []Policy{TightlyPacked, Std140, Std430} {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// AlignUp rounds position up with the alignment mask of a.
func AlignUp(position, a uint32) uint32 {
	return (position + a - 1) &^ (a - 1)
}

// byteSize returns the natural size of t. Matrix columns occupy 16 bytes
// each; structs take their size under p.
func byteSize(p Policy, t ir.Type) uint32 {
	switch t := t.(type) {
	case ir.ScalarType:
		return 4
	case ir.VectorType:
		return 4 * uint32(t.Size)
	case ir.MatrixType:
		return 16 * uint32(t.Size)
	case *ir.StructType:
		// Compute rejects members whose nested structs fail to lay out
		// before any policy sizes them.
		size, _ := structLayoutSize(p, t)
		return size
	default:
		return 0
	}
}

// baseAlignment is shared by Std140 and Std430 for non-array, non-struct types.
func baseAlignment(t ir.Type) uint32 {
	switch t := t.(type) {
	case ir.ScalarType:
		return 4
	case ir.VectorType:
		if t.Size == 2 {
			return 8
		}
		return 16
	default:
		return 16
	}
}

type tightlyPacked struct{}

func (tightlyPacked) Name() string { return "tightly-packed" }

func (tightlyPacked) AlignmentOf(ir.Type, bool) uint32 { return 4 }

func (p tightlyPacked) ArrayStride(t ir.Type) uint32 { return byteSize(p, t) }

func (p tightlyPacked) SizeOf(t ir.Type) uint32 { return byteSize(p, t) }

func (tightlyPacked) StructSize(_ []Member, lastPosition uint32) uint32 { return lastPosition }

type std140 struct{}

func (std140) Name() string { return "std140" }

func (std140) AlignmentOf(t ir.Type, isArray bool) uint32 {
	if isArray {
		return 16
	}
	return baseAlignment(t)
}

func (p std140) ArrayStride(t ir.Type) uint32 {
	switch t.(type) {
	case ir.MatrixType, *ir.StructType:
		return byteSize(p, t)
	default:
		return 16
	}
}

func (p std140) SizeOf(t ir.Type) uint32 { return byteSize(p, t) }

func (std140) StructSize(_ []Member, lastPosition uint32) uint32 {
	return AlignUp(lastPosition, 16)
}

type std430 struct{}

func (std430) Name() string { return "std430" }

func (p std430) AlignmentOf(t ir.Type, _ bool) uint32 {
	st, ok := t.(*ir.StructType)
	if !ok {
		return baseAlignment(t)
	}
	var maxAlign uint32 = 1
	for _, m := range membersOf(st) {
		if a := p.AlignmentOf(m.Type, m.isArray()); a > maxAlign {
			maxAlign = a
		}
	}
	return maxAlign
}

func (p std430) ArrayStride(t ir.Type) uint32 {
	if vt, ok := t.(ir.VectorType); ok && vt.Size == 3 {
		return 16
	}
	return p.SizeOf(t)
}

func (p std430) SizeOf(t ir.Type) uint32 { return byteSize(p, t) }

func (p std430) StructSize(members []Member, lastPosition uint32) uint32 {
	var maxSize uint32
	for _, m := range members {
		if s := p.SizeOf(m.Type); s > maxSize {
			maxSize = s
		}
	}
	if maxSize > 16 {
		maxSize = 16
	}
	if maxSize == 0 {
		return lastPosition
	}
	// 3-component members round to a power-of-two alignment.
	a := uint32(4)
	for a < maxSize {
		a <<= 1
	}
	return AlignUp(lastPosition, a)
}
