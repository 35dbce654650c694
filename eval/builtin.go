// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package eval

import (
	"math"

	"github.com/chewxy/math32"

	"github.com/gogpu/ksl/ir"
)

var unaryFloat = map[ir.BuiltinFunction]func(float32) float32{
	ir.BuiltinFloor:       math32.Floor,
	ir.BuiltinCeil:        math32.Ceil,
	ir.BuiltinRound:       math32.RoundToEven,
	ir.BuiltinTrunc:       math32.Trunc,
	ir.BuiltinFract:       func(x float32) float32 { return x - math32.Floor(x) },
	ir.BuiltinSin:         math32.Sin,
	ir.BuiltinCos:         math32.Cos,
	ir.BuiltinTan:         math32.Tan,
	ir.BuiltinAsin:        math32.Asin,
	ir.BuiltinAcos:        math32.Acos,
	ir.BuiltinAtan:        math32.Atan,
	ir.BuiltinSinh:        math32.Sinh,
	ir.BuiltinCosh:        math32.Cosh,
	ir.BuiltinTanh:        math32.Tanh,
	ir.BuiltinAsinh:       math32.Asinh,
	ir.BuiltinAcosh:       math32.Acosh,
	ir.BuiltinAtanh:       math32.Atanh,
	ir.BuiltinRadians:     func(x float32) float32 { return x * math32.Pi / 180 },
	ir.BuiltinDegrees:     func(x float32) float32 { return x * 180 / math32.Pi },
	ir.BuiltinExp:         math32.Exp,
	ir.BuiltinExp2:        math32.Exp2,
	ir.BuiltinLog:         math32.Log,
	ir.BuiltinLog2:        math32.Log2,
	ir.BuiltinSqrt:        math32.Sqrt,
	ir.BuiltinInverseSqrt: func(x float32) float32 { return 1 / math32.Sqrt(x) },
	// Derivatives of host values are zero: there are no neighboring fragments.
	ir.BuiltinDpdx:   func(float32) float32 { return 0 },
	ir.BuiltinDpdy:   func(float32) float32 { return 0 },
	ir.BuiltinFwidth: func(float32) float32 { return 0 },
}

func mapFloats(t ir.Type, n int, fn func(i int) float32) Value {
	out := Value{Type: t, F: make([]float32, n)}
	for i := range out.F {
		out.F[i] = fn(i)
	}
	return out
}

func signFloat(x float32) float32 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return x
	}
}

func dot(a, b Value) float32 {
	var sum float32
	for i := range a.F {
		sum += a.F[i] * b.F[i]
	}
	return sum
}

func builtin(fun ir.BuiltinFunction, args []Value, result ir.Type) (Value, error) {
	if fn, ok := unaryFloat[fun]; ok {
		x := args[0]
		return mapFloats(result, len(x.F), func(i int) float32 { return fn(x.F[i]) }), nil
	}
	x := args[0]
	n := x.Len()
	isInt := x.kind() == ir.ScalarInt

	switch fun {
	case ir.BuiltinAbs, ir.BuiltinSign:
		if isInt {
			out := Value{Type: result, I: make([]int32, n)}
			for i, v := range x.I {
				switch {
				case fun == ir.BuiltinAbs && v < 0:
					out.I[i] = -v
				case fun == ir.BuiltinAbs:
					out.I[i] = v
				case v > 0:
					out.I[i] = 1
				case v < 0:
					out.I[i] = -1
				}
			}
			return out, nil
		}
		if fun == ir.BuiltinAbs {
			return mapFloats(result, n, func(i int) float32 { return math32.Abs(x.F[i]) }), nil
		}
		return mapFloats(result, n, func(i int) float32 { return signFloat(x.F[i]) }), nil

	case ir.BuiltinMin, ir.BuiltinMax, ir.BuiltinClamp:
		lo, hi := args[1], args[1]
		if fun == ir.BuiltinClamp {
			hi = args[2]
		}
		if isInt {
			out := Value{Type: result, I: make([]int32, n)}
			for i := range out.I {
				v := x.I[i]
				switch fun {
				case ir.BuiltinMin:
					v = min(v, lo.iAt(i))
				case ir.BuiltinMax:
					v = max(v, lo.iAt(i))
				default:
					v = min(max(v, lo.iAt(i)), hi.iAt(i))
				}
				out.I[i] = v
			}
			return out, nil
		}
		return mapFloats(result, n, func(i int) float32 {
			switch fun {
			case ir.BuiltinMin:
				return math32.Min(x.F[i], lo.fAt(i))
			case ir.BuiltinMax:
				return math32.Max(x.F[i], lo.fAt(i))
			default:
				return math32.Min(math32.Max(x.F[i], lo.fAt(i)), hi.fAt(i))
			}
		}), nil

	case ir.BuiltinAtan2:
		y, xs := args[0], args[1]
		return mapFloats(result, n, func(i int) float32 { return math32.Atan2(y.F[i], xs.F[i]) }), nil

	case ir.BuiltinPow:
		return mapFloats(result, n, func(i int) float32 { return math32.Pow(x.F[i], args[1].F[i]) }), nil

	case ir.BuiltinStep:
		edge, v := args[0], args[1]
		return mapFloats(result, v.Len(), func(i int) float32 {
			if v.F[i] < edge.fAt(i) {
				return 0
			}
			return 1
		}), nil

	case ir.BuiltinFma:
		return mapFloats(result, n, func(i int) float32 {
			return float32(math.FMA(float64(x.F[i]), float64(args[1].F[i]), float64(args[2].F[i])))
		}), nil

	case ir.BuiltinMix:
		y, a := args[1], args[2]
		return mapFloats(result, n, func(i int) float32 { return x.F[i]*(1-a.fAt(i)) + y.F[i]*a.fAt(i) }), nil

	case ir.BuiltinSmoothStep:
		lo, hi, v := args[0], args[1], args[2]
		return mapFloats(result, v.Len(), func(i int) float32 {
			t := (v.F[i] - lo.fAt(i)) / (hi.fAt(i) - lo.fAt(i))
			t = math32.Min(math32.Max(t, 0), 1)
			return t * t * (3 - 2*t)
		}), nil

	case ir.BuiltinDot:
		return Float(dot(x, args[1])), nil

	case ir.BuiltinCross:
		a, b := x.F, args[1].F
		return Floats(
			a[1]*b[2]-a[2]*b[1],
			a[2]*b[0]-a[0]*b[2],
			a[0]*b[1]-a[1]*b[0],
		), nil

	case ir.BuiltinLength:
		return Float(math32.Sqrt(dot(x, x))), nil

	case ir.BuiltinDistance:
		var sum float32
		for i := range x.F {
			d := x.F[i] - args[1].F[i]
			sum += d * d
		}
		return Float(math32.Sqrt(sum)), nil

	case ir.BuiltinNormalize:
		l := math32.Sqrt(dot(x, x))
		return mapFloats(result, n, func(i int) float32 { return x.F[i] / l }), nil

	case ir.BuiltinReflect:
		nrm := args[1]
		d := dot(nrm, x)
		return mapFloats(result, n, func(i int) float32 { return x.F[i] - 2*d*nrm.F[i] }), nil

	case ir.BuiltinRefract:
		nrm, eta := args[1], args[2].F[0]
		d := dot(nrm, x)
		k := 1 - eta*eta*(1-d*d)
		if k < 0 {
			return mapFloats(result, n, func(int) float32 { return 0 }), nil
		}
		return mapFloats(result, n, func(i int) float32 {
			return eta*x.F[i] - (eta*d+math32.Sqrt(k))*nrm.F[i]
		}), nil

	case ir.BuiltinFaceForward:
		incident, ref := args[1], args[2]
		if dot(ref, incident) < 0 {
			return mapFloats(result, n, func(i int) float32 { return x.F[i] }), nil
		}
		return mapFloats(result, n, func(i int) float32 { return -x.F[i] }), nil

	case ir.BuiltinIsInf, ir.BuiltinIsNan:
		out := Value{Type: result, B: make([]bool, n)}
		for i, v := range x.F {
			if fun == ir.BuiltinIsInf {
				out.B[i] = math32.IsInf(v, 0)
			} else {
				out.B[i] = math32.IsNaN(v)
			}
		}
		return out, nil

	case ir.BuiltinAny, ir.BuiltinAll:
		all, any := true, false
		for _, b := range x.B {
			all = all && b
			any = any || b
		}
		if fun == ir.BuiltinAny {
			return Bool(any), nil
		}
		return Bool(all), nil

	case ir.BuiltinDeterminant:
		return Float(determinant(x.F, int(x.Type.(ir.MatrixType).Size))), nil

	case ir.BuiltinTranspose:
		size := int(x.Type.(ir.MatrixType).Size)
		out := Value{Type: result, F: make([]float32, len(x.F))}
		for c := 0; c < size; c++ {
			for r := 0; r < size; r++ {
				out.F[r*size+c] = x.F[c*size+r]
			}
		}
		return out, nil

	case ir.BuiltinInverse:
		size := int(x.Type.(ir.MatrixType).Size)
		inv, ok := inverse(x.F, size)
		if !ok {
			return Value{}, ir.Errorf(ir.ErrInvalidArgument, "matrix %s is singular", x)
		}
		return Value{Type: result, F: inv}, nil
	}
	return Value{}, ir.Errorf(ir.ErrGeneratorUnsupported, "builtin %s cannot be evaluated", fun)
}

// minor returns the (n-1)x(n-1) column-major minor of m without column col and row row.
func minor(m []float32, n, col, row int) []float32 {
	out := make([]float32, 0, (n-1)*(n-1))
	for c := 0; c < n; c++ {
		if c == col {
			continue
		}
		for r := 0; r < n; r++ {
			if r == row {
				continue
			}
			out = append(out, m[c*n+r])
		}
	}
	return out
}

func determinant(m []float32, n int) float32 {
	if n == 1 {
		return m[0]
	}
	if n == 2 {
		return m[0]*m[3] - m[2]*m[1]
	}
	var det float32
	sign := float32(1)
	for c := 0; c < n; c++ {
		det += sign * m[c*n] * determinant(minor(m, n, c, 0), n-1)
		sign = -sign
	}
	return det
}

// inverse computes the adjugate divided by the determinant.
func inverse(m []float32, n int) ([]float32, bool) {
	det := determinant(m, n)
	if det == 0 {
		return nil, false
	}
	out := make([]float32, n*n)
	for c := 0; c < n; c++ {
		for r := 0; r < n; r++ {
			cof := determinant(minor(m, n, c, r), n-1)
			if (c+r)%2 == 1 {
				cof = -cof
			}
			// adjugate is the transposed cofactor matrix
			out[r*n+c] = cof / det
		}
	}
	return out, true
}
