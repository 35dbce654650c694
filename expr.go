// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ksl

import "github.com/gogpu/ksl/ir"

// must panics with err. The panic is recovered by the stage entry points.
func must(e *ir.Expression, err error) *ir.Expression {
	if err != nil {
		panic(err)
	}
	return e
}

// Float returns a Float1 literal.
func Float(v float32) *ir.Expression { return ir.NewLiteralFloat(v) }

// Int returns an Int1 literal.
func Int(v int32) *ir.Expression { return ir.NewLiteralInt(v) }

// Bool returns a Bool1 literal.
func Bool(v bool) *ir.Expression { return ir.NewLiteralBool(v) }

// Consts returns a float scalar or vector built from literals.
func Consts(v ...float32) *ir.Expression {
	if len(v) == 1 {
		return Float(v[0])
	}
	parts := make([]*ir.Expression, len(v))
	for i, f := range v {
		parts[i] = Float(f)
	}
	return Compose(ir.VectorOf(ir.ScalarFloat, len(v)), parts...)
}

// Compose builds a vector or matrix of type t from parts. A single scalar
// part is replicated into every component.
func Compose(t ir.Type, parts ...*ir.Expression) *ir.Expression {
	return must(ir.NewCompose(t, parts...))
}

// Float2 composes a float2.
func Float2(parts ...*ir.Expression) *ir.Expression { return Compose(ir.Float2, parts...) }

// Float3 composes a float3.
func Float3(parts ...*ir.Expression) *ir.Expression { return Compose(ir.Float3, parts...) }

// Float4 composes a float4.
func Float4(parts ...*ir.Expression) *ir.Expression { return Compose(ir.Float4, parts...) }

// Int2 composes an int2.
func Int2(parts ...*ir.Expression) *ir.Expression { return Compose(ir.Int2, parts...) }

// Int3 composes an int3.
func Int3(parts ...*ir.Expression) *ir.Expression { return Compose(ir.Int3, parts...) }

// Int4 composes an int4.
func Int4(parts ...*ir.Expression) *ir.Expression { return Compose(ir.Int4, parts...) }

// Mat3 composes a 3x3 matrix from columns.
func Mat3(cols ...*ir.Expression) *ir.Expression { return Compose(ir.Mat3, cols...) }

// Mat4 composes a 4x4 matrix from columns.
func Mat4(cols ...*ir.Expression) *ir.Expression { return Compose(ir.Mat4, cols...) }

// Swizzle selects components of a vector, e.g. "xyz" or "rgb".
func Swizzle(e *ir.Expression, pattern string) *ir.Expression {
	return must(ir.NewSwizzle(e, pattern))
}

// Member accesses a struct member.
func Member(e *ir.Expression, name string) *ir.Expression { return must(ir.NewMember(e, name)) }

// Index accesses a vector component, matrix column or array element.
func Index(e, i *ir.Expression) *ir.Expression { return must(ir.NewIndex(e, i)) }

func binary(op ir.BinaryOperator, l, r *ir.Expression) *ir.Expression {
	return must(ir.NewBinary(op, l, r))
}

// Add returns l + r.
func Add(l, r *ir.Expression) *ir.Expression { return binary(ir.BinaryAdd, l, r) }

// Sub returns l - r.
func Sub(l, r *ir.Expression) *ir.Expression { return binary(ir.BinarySubtract, l, r) }

// Mul returns l * r. Matrix operands multiply algebraically.
func Mul(l, r *ir.Expression) *ir.Expression { return binary(ir.BinaryMultiply, l, r) }

// Div returns l / r.
func Div(l, r *ir.Expression) *ir.Expression { return binary(ir.BinaryDivide, l, r) }

// Mod returns the truncated remainder l % r.
func Mod(l, r *ir.Expression) *ir.Expression { return binary(ir.BinaryModulo, l, r) }

// Eq returns l == r.
func Eq(l, r *ir.Expression) *ir.Expression { return binary(ir.BinaryEqual, l, r) }

// Ne returns l != r.
func Ne(l, r *ir.Expression) *ir.Expression { return binary(ir.BinaryNotEqual, l, r) }

// Lt returns l < r.
func Lt(l, r *ir.Expression) *ir.Expression { return binary(ir.BinaryLess, l, r) }

// Le returns l <= r.
func Le(l, r *ir.Expression) *ir.Expression { return binary(ir.BinaryLessEqual, l, r) }

// Gt returns l > r.
func Gt(l, r *ir.Expression) *ir.Expression { return binary(ir.BinaryGreater, l, r) }

// Ge returns l >= r.
func Ge(l, r *ir.Expression) *ir.Expression { return binary(ir.BinaryGreaterEqual, l, r) }

// And returns l && r.
func And(l, r *ir.Expression) *ir.Expression { return binary(ir.BinaryLogicalAnd, l, r) }

// Or returns l || r.
func Or(l, r *ir.Expression) *ir.Expression { return binary(ir.BinaryLogicalOr, l, r) }

// Neg returns -x.
func Neg(x *ir.Expression) *ir.Expression { return must(ir.NewUnary(ir.UnaryNegate, x)) }

// Not returns !x.
func Not(x *ir.Expression) *ir.Expression { return must(ir.NewUnary(ir.UnaryNot, x)) }

// ToFloat converts x to a float scalar or vector of the same arity.
func ToFloat(x *ir.Expression) *ir.Expression { return must(ir.NewConvert(x, ir.ScalarFloat)) }

// ToInt converts x to an int scalar or vector, truncating toward zero.
func ToInt(x *ir.Expression) *ir.Expression { return must(ir.NewConvert(x, ir.ScalarInt)) }

// Select returns accept if cond holds, else reject.
func Select(cond, accept, reject *ir.Expression) *ir.Expression {
	return must(ir.NewSelect(cond, accept, reject))
}

// Call invokes a builtin function.
func Call(f ir.BuiltinFunction, args ...*ir.Expression) *ir.Expression {
	return must(ir.NewBuiltin(f, args...))
}

// Abs returns |x|.
func Abs(x *ir.Expression) *ir.Expression { return Call(ir.BuiltinAbs, x) }

// Min returns the component-wise minimum.
func Min(a, b *ir.Expression) *ir.Expression { return Call(ir.BuiltinMin, a, b) }

// Max returns the component-wise maximum.
func Max(a, b *ir.Expression) *ir.Expression { return Call(ir.BuiltinMax, a, b) }

// Clamp limits x to [lo, hi].
func Clamp(x, lo, hi *ir.Expression) *ir.Expression { return Call(ir.BuiltinClamp, x, lo, hi) }

// Saturate clamps a float value to [0, 1].
func Saturate(x *ir.Expression) *ir.Expression { return Clamp(x, Float(0), Float(1)) }

// Mix blends x and y by a.
func Mix(x, y, a *ir.Expression) *ir.Expression { return Call(ir.BuiltinMix, x, y, a) }

// SmoothStep interpolates smoothly between 0 and 1 as x moves from lo to hi.
func SmoothStep(lo, hi, x *ir.Expression) *ir.Expression {
	return Call(ir.BuiltinSmoothStep, lo, hi, x)
}

// Pow returns x raised to y.
func Pow(x, y *ir.Expression) *ir.Expression { return Call(ir.BuiltinPow, x, y) }

// Sqrt returns the square root of x.
func Sqrt(x *ir.Expression) *ir.Expression { return Call(ir.BuiltinSqrt, x) }

// Dot returns the dot product.
func Dot(a, b *ir.Expression) *ir.Expression { return Call(ir.BuiltinDot, a, b) }

// Cross returns the cross product of two float3 values.
func Cross(a, b *ir.Expression) *ir.Expression { return Call(ir.BuiltinCross, a, b) }

// Length returns the Euclidean length of a vector.
func Length(x *ir.Expression) *ir.Expression { return Call(ir.BuiltinLength, x) }

// Normalize returns x divided by its length.
func Normalize(x *ir.Expression) *ir.Expression { return Call(ir.BuiltinNormalize, x) }

// Reflect reflects the incident vector i about the normal n.
func Reflect(i, n *ir.Expression) *ir.Expression { return Call(ir.BuiltinReflect, i, n) }

// Sample samples a texture declared with [ProgramBuilder.Texture].
func Sample(tex, coord *ir.Expression) *ir.Expression { return SampleLod(tex, coord, nil) }

// SampleLod samples a texture at an explicit level of detail. A nil lod
// lets the hardware select the level.
func SampleLod(tex, coord, lod *ir.Expression) *ir.Expression {
	v, ok := tex.Kind.(ir.ExprVariable)
	if !ok || v.Var.Kind != ir.VarTexture {
		panic(&ir.Error{Kind: ir.ErrTypeMismatch, Op: "sample", Operand: 0, Message: "expected a texture variable, got " + tex.Type.String()})
	}
	return must(ir.NewSampleTexture(v.Var, coord, lod))
}
