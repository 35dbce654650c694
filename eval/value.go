// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package eval evaluates KSL expression graphs on the host with float32
// semantics.
//
// The evaluator backs constant folding in code generation and lets tests
// check the numeric behaviour of builtin functions without a GPU.
package eval

import (
	"fmt"
	"strings"

	"github.com/chewxy/math32"

	"github.com/gogpu/ksl/ir"
)

// Value is a host value of a KSL type.
//
// Scalars and vectors store their components in F, I or B depending on the
// scalar kind. Matrices store column-major floats in F. Arrays and structs
// store one Value per element or member in Elems.
type Value struct {
	Type  ir.Type
	F     []float32
	I     []int32
	B     []bool
	Elems []Value
}

// Float returns a Float1 value.
func Float(v float32) Value { return Value{Type: ir.Float1, F: []float32{v}} }

// Int returns an Int1 value.
func Int(v int32) Value { return Value{Type: ir.Int1, I: []int32{v}} }

// Bool returns a Bool1 value.
func Bool(v bool) Value { return Value{Type: ir.Bool1, B: []bool{v}} }

// Floats returns a float scalar or vector value.
func Floats(v ...float32) Value {
	return Value{Type: ir.VectorOf(ir.ScalarFloat, len(v)), F: append([]float32(nil), v...)}
}

// Ints returns an int scalar or vector value.
func Ints(v ...int32) Value {
	return Value{Type: ir.VectorOf(ir.ScalarInt, len(v)), I: append([]int32(nil), v...)}
}

// Matrix returns a square matrix from column-major components.
func Matrix(cols ...float32) (Value, error) {
	n := 0
	switch len(cols) {
	case 4:
		n = 2
	case 9:
		n = 3
	case 16:
		n = 4
	default:
		return Value{}, ir.Errorf(ir.ErrInvalidArgument, "%d components do not form a square matrix", len(cols))
	}
	return Value{Type: ir.MatrixType{Size: uint8(n)}, F: append([]float32(nil), cols...)}, nil
}

// Len returns the number of scalar components.
func (v Value) Len() int {
	return len(v.F) + len(v.I) + len(v.B)
}

// kind returns the scalar kind stored in v.
func (v Value) kind() ir.ScalarKind {
	k, _ := ir.ScalarKindOf(v.Type)
	return k
}

// fAt returns float component i, repeating the single component of scalars.
func (v Value) fAt(i int) float32 {
	if len(v.F) == 1 {
		return v.F[0]
	}
	return v.F[i]
}

func (v Value) iAt(i int) int32 {
	if len(v.I) == 1 {
		return v.I[0]
	}
	return v.I[i]
}

func (v Value) bAt(i int) bool {
	if len(v.B) == 1 {
		return v.B[0]
	}
	return v.B[i]
}

// slice returns components [lo, hi) of a scalar or vector as a new value.
func (v Value) slice(lo, hi int) Value {
	t := ir.VectorOf(v.kind(), hi-lo)
	switch v.kind() {
	case ir.ScalarFloat:
		return Value{Type: t, F: append([]float32(nil), v.F[lo:hi]...)}
	case ir.ScalarInt:
		return Value{Type: t, I: append([]int32(nil), v.I[lo:hi]...)}
	default:
		return Value{Type: t, B: append([]bool(nil), v.B[lo:hi]...)}
	}
}

// Equal reports whether two values have equal types and components.
// Float components compare with ==, so NaN is never equal.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type || len(v.F) != len(o.F) || len(v.I) != len(o.I) || len(v.B) != len(o.B) || len(v.Elems) != len(o.Elems) {
		return false
	}
	for i := range v.F {
		if v.F[i] != o.F[i] {
			return false
		}
	}
	for i := range v.I {
		if v.I[i] != o.I[i] {
			return false
		}
	}
	for i := range v.B {
		if v.B[i] != o.B[i] {
			return false
		}
	}
	for i := range v.Elems {
		if !v.Elems[i].Equal(o.Elems[i]) {
			return false
		}
	}
	return true
}

// IsFinite reports whether every float component is finite.
func (v Value) IsFinite() bool {
	for _, f := range v.F {
		if math32.IsNaN(f) || math32.IsInf(f, 0) {
			return false
		}
	}
	for _, e := range v.Elems {
		if !e.IsFinite() {
			return false
		}
	}
	return true
}

func (v Value) String() string {
	var parts []string
	for _, f := range v.F {
		parts = append(parts, fmt.Sprint(f))
	}
	for _, i := range v.I {
		parts = append(parts, fmt.Sprint(i))
	}
	for _, b := range v.B {
		parts = append(parts, fmt.Sprint(b))
	}
	for _, e := range v.Elems {
		parts = append(parts, e.String())
	}
	return fmt.Sprintf("%s(%s)", v.Type, strings.Join(parts, ", "))
}

// Expression converts a finite scalar, vector or matrix value into a literal
// or a composition of literals.
func (v Value) Expression() (*ir.Expression, error) {
	if !v.IsFinite() {
		return nil, ir.Errorf(ir.ErrInvalidArgument, "%s is not finite", v)
	}
	lit := func(i int) *ir.Expression {
		switch v.kind() {
		case ir.ScalarFloat:
			return ir.NewLiteralFloat(v.F[i])
		case ir.ScalarInt:
			return ir.NewLiteralInt(v.I[i])
		default:
			return ir.NewLiteralBool(v.B[i])
		}
	}
	switch t := v.Type.(type) {
	case ir.ScalarType:
		return lit(0), nil
	case ir.VectorType, ir.MatrixType:
		parts := make([]*ir.Expression, v.Len())
		for i := range parts {
			parts[i] = lit(i)
		}
		return ir.NewCompose(t, parts...)
	default:
		return nil, ir.Errorf(ir.ErrInvalidArgument, "%s has no literal form", v.Type)
	}
}
