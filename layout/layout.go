// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package layout computes GPU memory layouts of uniform members.
//
// Compute walks an ordered member list, aligning a running position for each
// member and advancing it by the member size. Three policies are provided:
// TightlyPacked for vertex data, Std140 for uniform buffers and push
// constants, and Std430 for storage-style packing.
package layout

import (
	"fmt"
	"math"

	"github.com/gogpu/ksl/ir"
)

// Member is one entry of a member list. ArrayLen is 0 for non-array members.
type Member struct {
	Name     string
	Type     ir.Type
	ArrayLen uint32
}

// isArray reports whether the member is laid out as an array. Arrays of a
// single element are laid out like a plain value.
func (m Member) isArray() bool { return m.ArrayLen > 1 }

// count returns the number of elements of the member.
func (m Member) count() uint32 {
	if m.ArrayLen == 0 {
		return 1
	}
	return m.ArrayLen
}

// MemberOf converts a typed name into a Member, unwrapping array types.
func MemberOf(name string, t ir.Type) Member {
	if at, ok := t.(ir.ArrayType); ok && at.Len > 0 {
		return Member{Name: name, Type: at.Elem, ArrayLen: at.Len}
	}
	return Member{Name: name, Type: t}
}

func membersOf(st *ir.StructType) []Member {
	out := make([]Member, len(st.Members))
	for i, m := range st.Members {
		out[i] = MemberOf(m.Name, m.Type)
	}
	return out
}

// Field is the computed placement of one member.
type Field struct {
	Name     string
	Type     ir.Type
	ArrayLen uint32
	Offset   uint32
	Size     uint32
	// Stride is the array stride, or Size for non-array members.
	Stride uint32
}

// Layout is the computed placement of a member list.
type Layout struct {
	Policy Policy
	Fields []Field
	Size   uint32
}

// Field returns the placement of the named member.
func (l *Layout) Field(name string) (Field, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Compute lays out members under policy p.
func Compute(p Policy, members []Member) (*Layout, error) {
	members = normalize(members)
	for _, m := range members {
		if err := checkMember(m); err != nil {
			return nil, err
		}
		if st, ok := m.Type.(*ir.StructType); ok {
			if _, err := structLayoutSize(p, st); err != nil {
				return nil, fmt.Errorf("member %q: %w", m.Name, err)
			}
		}
	}
	l := &Layout{Policy: p, Fields: make([]Field, len(members))}
	var position uint64
	for i, m := range members {
		offset := uint64(AlignUp(uint32(position), p.AlignmentOf(m.Type, m.isArray())))
		var size, stride uint64
		if m.isArray() {
			stride = uint64(p.ArrayStride(m.Type))
			size = stride * uint64(m.count())
		} else {
			size = uint64(p.SizeOf(m.Type))
			stride = size
		}
		position = offset + size
		if position > math.MaxUint32-16 {
			return nil, ir.Errorf(ir.ErrLayoutOverflow, "member %q ends at %d bytes under %s", m.Name, position, p.Name())
		}
		l.Fields[i] = Field{
			Name:     m.Name,
			Type:     m.Type,
			ArrayLen: m.ArrayLen,
			Offset:   uint32(offset),
			Size:     uint32(size),
			Stride:   uint32(stride),
		}
	}
	l.Size = p.StructSize(members, uint32(position))
	return l, nil
}

// ComputeStruct lays out the members of st under policy p.
func ComputeStruct(p Policy, st *ir.StructType) (*Layout, error) {
	return Compute(p, membersOf(st))
}

// ComputeBuffer lays out a uniform buffer under its own policy.
func ComputeBuffer(b *ir.UniformBuffer) (*Layout, error) {
	members := make([]Member, len(b.Members))
	for i, v := range b.Members {
		members[i] = MemberOf(v.Name, v.Type)
	}
	return Compute(For(b.Policy), members)
}

// structLayoutSize returns the size of a nested struct under p.
func structLayoutSize(p Policy, st *ir.StructType) (uint32, error) {
	l, err := ComputeStruct(p, st)
	if err != nil {
		return 0, err
	}
	return l.Size, nil
}
