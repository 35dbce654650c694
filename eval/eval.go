// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package eval

import (
	"github.com/chewxy/math32"

	"github.com/gogpu/ksl/ir"
)

// Env binds variables to values.
type Env map[*ir.Variable]Value

// Evaluator evaluates expressions, memoizing shared sub-expressions.
type Evaluator struct {
	env   Env
	cache map[*ir.Expression]Value
}

// New creates an evaluator over env. env may be nil.
func New(env Env) *Evaluator {
	return &Evaluator{env: env, cache: make(map[*ir.Expression]Value)}
}

// Eval evaluates e under env.
func Eval(e *ir.Expression, env Env) (Value, error) {
	return New(env).Eval(e)
}

// IsConstant reports whether e depends only on literals: no variables,
// texture samples or derivatives.
func IsConstant(e *ir.Expression) bool {
	for _, n := range ir.Flatten(e) {
		switch k := n.Kind.(type) {
		case ir.ExprVariable, ir.ExprSampleTexture:
			return false
		case ir.ExprBuiltin:
			switch k.Fun {
			case ir.BuiltinDpdx, ir.BuiltinDpdy, ir.BuiltinFwidth:
				return false
			}
		}
	}
	return true
}

// Eval evaluates e.
func (ev *Evaluator) Eval(e *ir.Expression) (Value, error) {
	if v, ok := ev.cache[e]; ok {
		return v, nil
	}
	v, err := ev.eval(e)
	if err != nil {
		return Value{}, err
	}
	v.Type = e.Type
	ev.cache[e] = v
	return v, nil
}

func (ev *Evaluator) operands(ops []*ir.Expression) ([]Value, error) {
	out := make([]Value, len(ops))
	for i, op := range ops {
		v, err := ev.Eval(op)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (ev *Evaluator) eval(e *ir.Expression) (Value, error) {
	switch k := e.Kind.(type) {
	case ir.Literal:
		switch lit := k.Value.(type) {
		case ir.LiteralFloat:
			return Float(float32(lit)), nil
		case ir.LiteralInt:
			return Int(int32(lit)), nil
		case ir.LiteralBool:
			return Bool(bool(lit)), nil
		}
		return Value{}, ir.Errorf(ir.ErrInvalidArgument, "unknown literal %T", k.Value)

	case ir.ExprVariable:
		v, ok := ev.env[k.Var]
		if !ok {
			return Value{}, ir.Errorf(ir.ErrInvalidArgument, "variable %q has no value", k.Var.Name)
		}
		if v.Type != k.Var.Type {
			return Value{}, ir.Errorf(ir.ErrTypeMismatch, "variable %q is %s, bound value is %s", k.Var.Name, k.Var.Type, v.Type)
		}
		return v, nil

	case ir.ExprCompose:
		parts, err := ev.operands(k.Parts)
		if err != nil {
			return Value{}, err
		}
		return compose(e.Type, parts), nil

	case ir.ExprSwizzle:
		base, err := ev.Eval(k.Base)
		if err != nil {
			return Value{}, err
		}
		out := Value{}
		for _, c := range k.Pattern {
			out = appendComponent(out, base, int(c))
		}
		return out, nil

	case ir.ExprMember:
		base, err := ev.Eval(k.Base)
		if err != nil {
			return Value{}, err
		}
		if k.Index >= len(base.Elems) {
			return Value{}, ir.Errorf(ir.ErrInvalidArgument, "struct value %s has no member %d", base.Type, k.Index)
		}
		return base.Elems[k.Index], nil

	case ir.ExprIndex:
		vals, err := ev.operands(k.Operands())
		if err != nil {
			return Value{}, err
		}
		return index(vals[0], int(vals[1].I[0]))

	case ir.ExprUnary:
		x, err := ev.Eval(k.X)
		if err != nil {
			return Value{}, err
		}
		return unary(k.Op, x), nil

	case ir.ExprBinary:
		vals, err := ev.operands(k.Operands())
		if err != nil {
			return Value{}, err
		}
		return binary(k.Op, vals[0], vals[1], e.Type)

	case ir.ExprBuiltin:
		args, err := ev.operands(k.Args)
		if err != nil {
			return Value{}, err
		}
		return builtin(k.Fun, args, e.Type)

	case ir.ExprConvert:
		x, err := ev.Eval(k.X)
		if err != nil {
			return Value{}, err
		}
		return convert(x, k.Kind), nil

	case ir.ExprSelect:
		vals, err := ev.operands(k.Operands())
		if err != nil {
			return Value{}, err
		}
		if vals[0].B[0] {
			return vals[1], nil
		}
		return vals[2], nil

	case ir.ExprSampleTexture:
		return Value{}, ir.Errorf(ir.ErrGeneratorUnsupported, "texture %q cannot be sampled on the host", k.Texture.Name)

	default:
		return Value{}, ir.Errorf(ir.ErrGeneratorUnsupported, "cannot evaluate %T", e.Kind)
	}
}

// appendComponent appends component i of src to dst.
func appendComponent(dst, src Value, i int) Value {
	switch src.kind() {
	case ir.ScalarFloat:
		dst.F = append(dst.F, src.F[i])
	case ir.ScalarInt:
		dst.I = append(dst.I, src.I[i])
	default:
		dst.B = append(dst.B, src.B[i])
	}
	return dst
}

func compose(t ir.Type, parts []Value) Value {
	out := Value{Type: t}
	n := 0
	switch t := t.(type) {
	case ir.VectorType:
		n = int(t.Size)
	case ir.MatrixType:
		n = int(t.Size) * int(t.Size)
	}
	if len(parts) == 1 && parts[0].Len() == 1 {
		for i := 0; i < n; i++ {
			out = appendComponent(out, parts[0], 0)
		}
		return out
	}
	for _, p := range parts {
		for i := 0; i < p.Len(); i++ {
			out = appendComponent(out, p, i)
		}
	}
	return out
}

func index(base Value, i int) (Value, error) {
	switch t := base.Type.(type) {
	case ir.VectorType:
		if i < 0 || i >= int(t.Size) {
			return Value{}, ir.Errorf(ir.ErrInvalidArgument, "index %d out of range for %s", i, t)
		}
		return base.slice(i, i+1), nil
	case ir.MatrixType:
		n := int(t.Size)
		if i < 0 || i >= n {
			return Value{}, ir.Errorf(ir.ErrInvalidArgument, "index %d out of range for %s", i, t)
		}
		return Floats(base.F[i*n : (i+1)*n]...), nil
	case ir.ArrayType:
		if i < 0 || i >= len(base.Elems) {
			return Value{}, ir.Errorf(ir.ErrInvalidArgument, "index %d out of range for %s", i, t)
		}
		return base.Elems[i], nil
	default:
		return Value{}, ir.Errorf(ir.ErrTypeMismatch, "cannot index %s", base.Type)
	}
}

func unary(op ir.UnaryOperator, x Value) Value {
	out := Value{Type: x.Type}
	switch {
	case op == ir.UnaryNot:
		for _, b := range x.B {
			out.B = append(out.B, !b)
		}
	case x.kind() == ir.ScalarInt:
		for _, i := range x.I {
			out.I = append(out.I, -i)
		}
	default:
		for _, f := range x.F {
			out.F = append(out.F, -f)
		}
	}
	return out
}

func convert(x Value, k ir.ScalarKind) Value {
	out := Value{Type: ir.VectorOf(k, x.Len())}
	for i := 0; i < x.Len(); i++ {
		var f float32
		switch x.kind() {
		case ir.ScalarFloat:
			f = x.F[i]
		case ir.ScalarInt:
			f = float32(x.I[i])
		default:
			if x.B[i] {
				f = 1
			}
		}
		switch k {
		case ir.ScalarFloat:
			out.F = append(out.F, f)
		case ir.ScalarInt:
			out.I = append(out.I, int32(f))
		default:
			out.B = append(out.B, f != 0)
		}
	}
	return out
}

func binary(op ir.BinaryOperator, l, r Value, result ir.Type) (Value, error) {
	switch op {
	case ir.BinaryEqual, ir.BinaryNotEqual:
		eq := l.Equal(r)
		return Bool(eq == (op == ir.BinaryEqual)), nil
	case ir.BinaryLess, ir.BinaryLessEqual, ir.BinaryGreater, ir.BinaryGreaterEqual:
		var a, b float64
		if l.kind() == ir.ScalarInt {
			a, b = float64(l.I[0]), float64(r.I[0])
		} else {
			a, b = float64(l.F[0]), float64(r.F[0])
		}
		switch op {
		case ir.BinaryLess:
			return Bool(a < b), nil
		case ir.BinaryLessEqual:
			return Bool(a <= b), nil
		case ir.BinaryGreater:
			return Bool(a > b), nil
		default:
			return Bool(a >= b), nil
		}
	case ir.BinaryLogicalAnd:
		return Bool(l.B[0] && r.B[0]), nil
	case ir.BinaryLogicalOr:
		return Bool(l.B[0] || r.B[0]), nil
	}

	_, lm := l.Type.(ir.MatrixType)
	_, rm := r.Type.(ir.MatrixType)
	if op == ir.BinaryMultiply && (lm || rm) && !(l.Len() == 1 || r.Len() == 1) {
		return matrixMultiply(l, r, result), nil
	}

	n := max(l.Len(), r.Len())
	out := Value{Type: result}
	if l.kind() == ir.ScalarInt {
		for i := 0; i < n; i++ {
			a, b := l.iAt(i), r.iAt(i)
			var v int32
			switch op {
			case ir.BinaryAdd:
				v = a + b
			case ir.BinarySubtract:
				v = a - b
			case ir.BinaryMultiply:
				v = a * b
			case ir.BinaryDivide, ir.BinaryModulo:
				if b == 0 {
					return Value{}, ir.Errorf(ir.ErrInvalidArgument, "integer division by zero")
				}
				if op == ir.BinaryDivide {
					v = a / b
				} else {
					v = a % b
				}
			}
			out.I = append(out.I, v)
		}
		return out, nil
	}
	for i := 0; i < n; i++ {
		a, b := l.fAt(i), r.fAt(i)
		var v float32
		switch op {
		case ir.BinaryAdd:
			v = a + b
		case ir.BinarySubtract:
			v = a - b
		case ir.BinaryMultiply:
			v = a * b
		case ir.BinaryDivide:
			v = a / b
		case ir.BinaryModulo:
			v = math32.Mod(a, b)
		}
		out.F = append(out.F, v)
	}
	return out, nil
}

// matrixMultiply handles matrix*matrix, matrix*vector and vector*matrix.
// Matrices are column-major: element (column c, row r) is F[c*n+r].
func matrixMultiply(l, r Value, result ir.Type) Value {
	out := Value{Type: result}
	lmt, lm := l.Type.(ir.MatrixType)
	rmt, rm := r.Type.(ir.MatrixType)
	switch {
	case lm && rm:
		n := int(lmt.Size)
		out.F = make([]float32, n*n)
		for c := 0; c < n; c++ {
			for row := 0; row < n; row++ {
				var sum float32
				for k := 0; k < n; k++ {
					sum += l.F[k*n+row] * r.F[c*n+k]
				}
				out.F[c*n+row] = sum
			}
		}
	case lm:
		n := int(lmt.Size)
		out.F = make([]float32, n)
		for row := 0; row < n; row++ {
			var sum float32
			for c := 0; c < n; c++ {
				sum += l.F[c*n+row] * r.F[c]
			}
			out.F[row] = sum
		}
	default:
		n := int(rmt.Size)
		out.F = make([]float32, n)
		for c := 0; c < n; c++ {
			var sum float32
			for row := 0; row < n; row++ {
				sum += l.F[row] * r.F[c*n+row]
			}
			out.F[c] = sum
		}
	}
	return out
}
