// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ir

import "testing"

func local(name string, t Type) *Expression {
	return NewVariable(&Variable{Name: name, Type: t, Kind: VarLocal})
}

func TestBinaryResultTypes(t *testing.T) {
	tests := []struct {
		name string
		op   BinaryOperator
		l, r Type
		want Type
	}{
		{"float add", BinaryAdd, Float1, Float1, Float1},
		{"vector scale", BinaryMultiply, Float3, Float1, Float3},
		{"scalar vector", BinaryDivide, Float1, Float4, Float4},
		{"int modulo", BinaryModulo, Int2, Int2, Int2},
		{"matrix vector", BinaryMultiply, Mat4, Float4, Float4},
		{"vector matrix", BinaryMultiply, Float3, Mat3, Float3},
		{"matrix matrix", BinaryMultiply, Mat2, Mat2, Mat2},
		{"matrix scalar", BinaryMultiply, Mat3, Float1, Mat3},
		{"vector equality", BinaryEqual, Float3, Float3, Bool1},
		{"less", BinaryLess, Int1, Int1, Bool1},
		{"and", BinaryLogicalAnd, Bool1, Bool1, Bool1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewBinary(tt.op, local("a", tt.l), local("b", tt.r))
			if err != nil {
				t.Fatalf("NewBinary failed: %v", err)
			}
			if e.Type != tt.want {
				t.Errorf("type = %s, want %s", e.Type, tt.want)
			}
		})
	}
}

func TestBinaryTypeMismatch(t *testing.T) {
	tests := []struct {
		name    string
		op      BinaryOperator
		l, r    Type
		operand int
	}{
		{"float plus int", BinaryAdd, Float1, Int1, 1},
		{"bool arithmetic", BinaryAdd, Bool1, Bool1, 0},
		{"vector size mismatch", BinaryAdd, Float2, Float3, 1},
		{"matrix modulo", BinaryModulo, Mat2, Mat2, 0},
		{"matrix wrong vector", BinaryMultiply, Mat4, Float3, 1},
		{"ordering vectors", BinaryLess, Float2, Float2, 0},
		{"logical float", BinaryLogicalOr, Float1, Bool1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBinary(tt.op, local("a", tt.l), local("b", tt.r))
			e, ok := err.(*Error)
			if !ok {
				t.Fatalf("expected *Error, got %v", err)
			}
			if !e.IsTypeMismatch() {
				t.Errorf("kind = %s, want TypeMismatch", e.Kind)
			}
			if e.Operand != tt.operand {
				t.Errorf("operand = %d, want %d", e.Operand, tt.operand)
			}
		})
	}
}

func TestCompose(t *testing.T) {
	f := NewLiteralFloat(1)
	v2 := local("v2", Float2)

	if e, err := NewCompose(Float4, v2, f, f); err != nil || e.Type != Type(Float4) {
		t.Errorf("compose float4 from float2+2 scalars: %v", err)
	}
	if _, err := NewCompose(Float3, f); err != nil {
		t.Errorf("splat compose failed: %v", err)
	}
	if _, err := NewCompose(Float3, v2, v2); !IsKind(err, ErrTypeMismatch) {
		t.Errorf("too many components accepted: %v", err)
	}
	if _, err := NewCompose(Float2, NewLiteralInt(1), f); !IsKind(err, ErrTypeMismatch) {
		t.Errorf("mixed kinds accepted: %v", err)
	}
	if _, err := NewCompose(Mat2, v2, v2); err != nil {
		t.Errorf("matrix from columns failed: %v", err)
	}
	if _, err := NewCompose(Mat2, f, f, f, f); err != nil {
		t.Errorf("matrix from scalars failed: %v", err)
	}
	if _, err := NewCompose(Mat2, v2); !IsKind(err, ErrTypeMismatch) {
		t.Errorf("matrix with one column accepted: %v", err)
	}
}

func TestSwizzle(t *testing.T) {
	v := local("v", Float4)
	tests := []struct {
		pattern string
		want    Type
		ok      bool
	}{
		{"x", Float1, true},
		{"xy", Float2, true},
		{"zyx", Float3, true},
		{"rgba", Float4, true},
		{"xg", nil, false},
		{"xyzwx", nil, false},
		{"q", nil, false},
	}
	for _, tt := range tests {
		e, err := NewSwizzle(v, tt.pattern)
		if tt.ok {
			if err != nil || e.Type != tt.want {
				t.Errorf("swizzle %q: type %v, err %v", tt.pattern, e, err)
			}
			continue
		}
		if err == nil {
			t.Errorf("swizzle %q accepted", tt.pattern)
		}
	}
	if _, err := NewSwizzle(local("v2", Float2), "z"); !IsKind(err, ErrTypeMismatch) {
		t.Errorf("out-of-range component accepted: %v", err)
	}
	e, _ := NewSwizzle(v, "bgr")
	if got := e.Kind.(ExprSwizzle).PatternString(); got != "zyx" {
		t.Errorf("PatternString = %q, want zyx", got)
	}
}

func TestIndexAndMember(t *testing.T) {
	i := NewLiteralInt(1)
	if e, err := NewIndex(local("m", Mat3), i); err != nil || e.Type != Type(Float3) {
		t.Errorf("matrix index: %v %v", e, err)
	}
	arr := ArrayType{Elem: Float4, Len: 4}
	if e, err := NewIndex(local("a", arr), i); err != nil || e.Type != Type(Float4) {
		t.Errorf("array index: %v %v", e, err)
	}
	if _, err := NewIndex(local("v", Float3), NewLiteralFloat(1)); !IsKind(err, ErrTypeMismatch) {
		t.Errorf("float index accepted: %v", err)
	}

	light, err := NewStruct("Light", StructMember{"pos", Float3}, StructMember{"power", Float1})
	if err != nil {
		t.Fatal(err)
	}
	m, err := NewMember(local("l", light), "power")
	if err != nil || m.Type != Type(Float1) {
		t.Errorf("member access: %v %v", m, err)
	}
	if _, err := NewMember(local("l", light), "color"); !IsKind(err, ErrTypeMismatch) {
		t.Errorf("missing member accepted: %v", err)
	}
}

func TestSampleTexture(t *testing.T) {
	tex := &Variable{Name: "albedo", Type: Sampler2D, Kind: VarTexture}
	e, err := NewSampleTexture(tex, local("uv", Float2), nil)
	if err != nil || e.Type != Type(Float4) {
		t.Fatalf("sample: %v %v", e, err)
	}
	if _, err := NewSampleTexture(tex, local("uv", Float3), nil); !IsKind(err, ErrTypeMismatch) {
		t.Errorf("wrong coordinate accepted: %v", err)
	}
	arr := &Variable{Name: "layers", Type: Sampler2DArray, Kind: VarTexture}
	if _, err := NewSampleTexture(arr, local("uvl", Float3), NewLiteralFloat(0)); err != nil {
		t.Errorf("arrayed sample with lod: %v", err)
	}
}

func TestRootVariable(t *testing.T) {
	v := &Variable{Name: "v", Type: Float4, Kind: VarLocal}
	ve := NewVariable(v)
	sw, _ := NewSwizzle(ve, "xy")
	if RootVariable(sw) != v {
		t.Error("swizzle of variable is not an l-value")
	}
	dup, _ := NewSwizzle(ve, "xx")
	if RootVariable(dup) != nil {
		t.Error("swizzle with repeated components must not be an l-value")
	}
	sum, _ := NewBinary(BinaryAdd, ve, ve)
	if RootVariable(sum) != nil {
		t.Error("binary expression must not be an l-value")
	}
}

func TestFlatten(t *testing.T) {
	a := local("a", Float3)
	b := local("b", Float3)
	sum, _ := NewBinary(BinaryAdd, a, b)
	d, _ := NewBuiltin(BuiltinDot, sum, sum)

	got := Flatten(d)
	if len(got) != 4 {
		t.Fatalf("Flatten returned %d nodes, want 4", len(got))
	}
	pos := make(map[*Expression]int)
	for i, e := range got {
		pos[e] = i
	}
	if pos[a] > pos[sum] || pos[b] > pos[sum] || pos[sum] > pos[d] {
		t.Error("operands must precede consumers")
	}
	if vars := Variables(d); len(vars) != 2 {
		t.Errorf("Variables = %d, want 2", len(vars))
	}
}
