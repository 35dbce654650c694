// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package layout

import (
	"encoding/binary"
	"strings"

	"github.com/chewxy/math32"

	"github.com/gogpu/ksl/ir"
)

// matrixColumnStride is the distance between matrix columns in host buffers.
const matrixColumnStride = 16

// Buffer is a host-side byte buffer laid out by a Layout.
// Values are stored little endian.
type Buffer struct {
	Layout *Layout
	Data   []byte
}

// NewBuffer allocates a zeroed buffer for l.
func NewBuffer(l *Layout) *Buffer {
	return &Buffer{Layout: l, Data: make([]byte, l.Size)}
}

// locate resolves a member path ("name" or "name.member") and array index
// to the byte offset and type of the addressed value.
func (b *Buffer) locate(path string, index uint32) (uint32, ir.Type, error) {
	name, rest, nested := strings.Cut(path, ".")
	f, ok := b.Layout.Field(name)
	if !ok {
		return 0, nil, ir.Errorf(ir.ErrInvalidArgument, "layout has no member %q", name)
	}
	if index >= f.ArrayLen && !(index == 0 && f.ArrayLen <= 1) {
		return 0, nil, ir.Errorf(ir.ErrInvalidArgument, "index %d out of range for %q[%d]", index, name, f.ArrayLen)
	}
	offset := f.Offset + index*f.Stride
	if !nested {
		return offset, f.Type, nil
	}
	st, ok := f.Type.(*ir.StructType)
	if !ok {
		return 0, nil, ir.Errorf(ir.ErrInvalidArgument, "member %q of type %s has no members", name, f.Type)
	}
	inner, err := ComputeStruct(b.Layout.Policy, st)
	if err != nil {
		return 0, nil, err
	}
	sub := &Buffer{Layout: inner}
	o, t, err := sub.locate(rest, 0)
	if err != nil {
		return 0, nil, err
	}
	return offset + o, t, nil
}

// componentOffsets returns the byte offsets of the components of t relative
// to its start, and the scalar kind of each component.
func componentOffsets(t ir.Type) ([]uint32, ir.ScalarKind, error) {
	switch t := t.(type) {
	case ir.ScalarType:
		return []uint32{0}, t.Kind, nil
	case ir.VectorType:
		out := make([]uint32, t.Size)
		for i := range out {
			out[i] = uint32(i) * 4
		}
		return out, t.Scalar, nil
	case ir.MatrixType:
		n := uint32(t.Size)
		out := make([]uint32, 0, n*n)
		for c := uint32(0); c < n; c++ {
			for r := uint32(0); r < n; r++ {
				out = append(out, c*matrixColumnStride+r*4)
			}
		}
		return out, ir.ScalarFloat, nil
	default:
		return nil, 0, ir.Errorf(ir.ErrInvalidArgument, "%v cannot be accessed as components", t)
	}
}

func (b *Buffer) components(path string, index uint32, kind ir.ScalarKind, n int) (uint32, []uint32, error) {
	base, t, err := b.locate(path, index)
	if err != nil {
		return 0, nil, err
	}
	offsets, k, err := componentOffsets(t)
	if err != nil {
		return 0, nil, err
	}
	if k != kind {
		return 0, nil, ir.Errorf(ir.ErrTypeMismatch, "member %q is %s, not %s", path, t, kind)
	}
	if n >= 0 && n != len(offsets) {
		return 0, nil, ir.Errorf(ir.ErrTypeMismatch, "member %q of type %s takes %d values, got %d", path, t, len(offsets), n)
	}
	return base, offsets, nil
}

// SetFloats writes the components of a float scalar, vector or column-major
// matrix. index selects an array element.
func (b *Buffer) SetFloats(path string, index uint32, values ...float32) error {
	base, offsets, err := b.components(path, index, ir.ScalarFloat, len(values))
	if err != nil {
		return err
	}
	for i, o := range offsets {
		binary.LittleEndian.PutUint32(b.Data[base+o:], math32.Float32bits(values[i]))
	}
	return nil
}

// Floats reads the components written by SetFloats.
func (b *Buffer) Floats(path string, index uint32) ([]float32, error) {
	base, offsets, err := b.components(path, index, ir.ScalarFloat, -1)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(offsets))
	for i, o := range offsets {
		out[i] = math32.Float32frombits(binary.LittleEndian.Uint32(b.Data[base+o:]))
	}
	return out, nil
}

// SetInts writes the components of an int scalar or vector.
func (b *Buffer) SetInts(path string, index uint32, values ...int32) error {
	base, offsets, err := b.components(path, index, ir.ScalarInt, len(values))
	if err != nil {
		return err
	}
	for i, o := range offsets {
		binary.LittleEndian.PutUint32(b.Data[base+o:], uint32(values[i]))
	}
	return nil
}

// Ints reads the components written by SetInts.
func (b *Buffer) Ints(path string, index uint32) ([]int32, error) {
	base, offsets, err := b.components(path, index, ir.ScalarInt, -1)
	if err != nil {
		return nil, err
	}
	out := make([]int32, len(offsets))
	for i, o := range offsets {
		out[i] = int32(binary.LittleEndian.Uint32(b.Data[base+o:]))
	}
	return out, nil
}

// Reset zeroes the buffer.
func (b *Buffer) Reset() {
	clear(b.Data)
}
