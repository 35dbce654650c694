// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ir

import "fmt"

// BuiltinFunction identifies a builtin function.
type BuiltinFunction uint8

const (
	// Component-wise, any numeric scalar or vector
	BuiltinAbs BuiltinFunction = iota
	BuiltinSign
	BuiltinMin
	BuiltinMax
	BuiltinClamp

	// Component-wise, float scalar or vector
	BuiltinFloor
	BuiltinCeil
	BuiltinRound
	BuiltinTrunc
	BuiltinFract
	BuiltinSin
	BuiltinCos
	BuiltinTan
	BuiltinAsin
	BuiltinAcos
	BuiltinAtan
	BuiltinSinh
	BuiltinCosh
	BuiltinTanh
	BuiltinAsinh
	BuiltinAcosh
	BuiltinAtanh
	BuiltinRadians
	BuiltinDegrees
	BuiltinExp
	BuiltinExp2
	BuiltinLog
	BuiltinLog2
	BuiltinSqrt
	BuiltinInverseSqrt
	BuiltinDpdx
	BuiltinDpdy
	BuiltinFwidth
	BuiltinAtan2
	BuiltinPow
	BuiltinStep
	BuiltinFma
	BuiltinMix
	BuiltinSmoothStep

	// Geometric
	BuiltinDot
	BuiltinCross
	BuiltinLength
	BuiltinDistance
	BuiltinNormalize
	BuiltinReflect
	BuiltinRefract
	BuiltinFaceForward

	// Relational
	BuiltinIsInf
	BuiltinIsNan
	BuiltinAny
	BuiltinAll

	// Matrix
	BuiltinDeterminant
	BuiltinTranspose
	BuiltinInverse

	builtinCount
)

// builtinRule checks operand types and returns the result type.
type builtinRule func(name string, args []Type) (Type, error)

type builtinInfo struct {
	name  string
	arity int
	rule  builtinRule
}

var builtinTable = [builtinCount]builtinInfo{
	BuiltinAbs:   {"abs", 1, componentWise(CapNumeric)},
	BuiltinSign:  {"sign", 1, componentWise(CapNumeric)},
	BuiltinMin:   {"min", 2, componentWise(CapNumeric)},
	BuiltinMax:   {"max", 2, componentWise(CapNumeric)},
	BuiltinClamp: {"clamp", 3, clampRule},

	BuiltinFloor:       {"floor", 1, componentWise(CapFloat)},
	BuiltinCeil:        {"ceil", 1, componentWise(CapFloat)},
	BuiltinRound:       {"round", 1, componentWise(CapFloat)},
	BuiltinTrunc:       {"trunc", 1, componentWise(CapFloat)},
	BuiltinFract:       {"fract", 1, componentWise(CapFloat)},
	BuiltinSin:         {"sin", 1, componentWise(CapFloat)},
	BuiltinCos:         {"cos", 1, componentWise(CapFloat)},
	BuiltinTan:         {"tan", 1, componentWise(CapFloat)},
	BuiltinAsin:        {"asin", 1, componentWise(CapFloat)},
	BuiltinAcos:        {"acos", 1, componentWise(CapFloat)},
	BuiltinAtan:        {"atan", 1, componentWise(CapFloat)},
	BuiltinSinh:        {"sinh", 1, componentWise(CapFloat)},
	BuiltinCosh:        {"cosh", 1, componentWise(CapFloat)},
	BuiltinTanh:        {"tanh", 1, componentWise(CapFloat)},
	BuiltinAsinh:       {"asinh", 1, componentWise(CapFloat)},
	BuiltinAcosh:       {"acosh", 1, componentWise(CapFloat)},
	BuiltinAtanh:       {"atanh", 1, componentWise(CapFloat)},
	BuiltinRadians:     {"radians", 1, componentWise(CapFloat)},
	BuiltinDegrees:     {"degrees", 1, componentWise(CapFloat)},
	BuiltinExp:         {"exp", 1, componentWise(CapFloat)},
	BuiltinExp2:        {"exp2", 1, componentWise(CapFloat)},
	BuiltinLog:         {"log", 1, componentWise(CapFloat)},
	BuiltinLog2:        {"log2", 1, componentWise(CapFloat)},
	BuiltinSqrt:        {"sqrt", 1, componentWise(CapFloat)},
	BuiltinInverseSqrt: {"inverseSqrt", 1, componentWise(CapFloat)},
	BuiltinDpdx:        {"dpdx", 1, componentWise(CapFloat)},
	BuiltinDpdy:        {"dpdy", 1, componentWise(CapFloat)},
	BuiltinFwidth:      {"fwidth", 1, componentWise(CapFloat)},
	BuiltinAtan2:       {"atan2", 2, componentWise(CapFloat)},
	BuiltinPow:         {"pow", 2, componentWise(CapFloat)},
	BuiltinStep:        {"step", 2, stepRule},
	BuiltinFma:         {"fma", 3, componentWise(CapFloat)},
	BuiltinMix:         {"mix", 3, mixRule},
	BuiltinSmoothStep:  {"smoothStep", 3, smoothStepRule},

	BuiltinDot:         {"dot", 2, vectorReduce},
	BuiltinCross:       {"cross", 2, crossRule},
	BuiltinLength:      {"length", 1, vectorReduce},
	BuiltinDistance:    {"distance", 2, distanceRule},
	BuiltinNormalize:   {"normalize", 1, floatVectors},
	BuiltinReflect:     {"reflect", 2, floatVectors},
	BuiltinRefract:     {"refract", 3, refractRule},
	BuiltinFaceForward: {"faceForward", 3, floatVectors},

	BuiltinIsInf: {"isInf", 1, floatClassify},
	BuiltinIsNan: {"isNan", 1, floatClassify},
	BuiltinAny:   {"any", 1, boolReduce},
	BuiltinAll:   {"all", 1, boolReduce},

	BuiltinDeterminant: {"determinant", 1, matrixRule(true)},
	BuiltinTranspose:   {"transpose", 1, matrixRule(false)},
	BuiltinInverse:     {"inverse", 1, matrixRule(false)},
}

var builtinByName = func() map[string]BuiltinFunction {
	m := make(map[string]BuiltinFunction, builtinCount)
	for i := range builtinTable {
		m[builtinTable[i].name] = BuiltinFunction(i)
	}
	return m
}()

// String returns the KSL name of the builtin.
func (f BuiltinFunction) String() string {
	if f < builtinCount {
		return builtinTable[f].name
	}
	return fmt.Sprintf("BuiltinFunction(%d)", f)
}

// Arity returns the number of arguments f takes.
func (f BuiltinFunction) Arity() int {
	if f < builtinCount {
		return builtinTable[f].arity
	}
	return 0
}

// Builtins returns every builtin function in declaration order.
func Builtins() []BuiltinFunction {
	out := make([]BuiltinFunction, builtinCount)
	for i := range out {
		out[i] = BuiltinFunction(i)
	}
	return out
}

// LookupBuiltin finds a builtin function by its KSL name.
func LookupBuiltin(name string) (BuiltinFunction, bool) {
	f, ok := builtinByName[name]
	return f, ok
}

// BuiltinResultType checks args against the rule of f and returns the result type.
func BuiltinResultType(f BuiltinFunction, args ...Type) (Type, error) {
	if f >= builtinCount {
		return nil, Errorf(ErrInvalidArgument, "unknown builtin function %d", f)
	}
	info := builtinTable[f]
	if len(args) != info.arity {
		return nil, mismatch(info.name, -1, "expects %d arguments, got %d", info.arity, len(args))
	}
	for i, a := range args {
		if a == nil {
			return nil, mismatch(info.name, i, "operand is nil")
		}
	}
	return info.rule(info.name, args)
}

// NewBuiltin creates a call of the builtin f.
func NewBuiltin(f BuiltinFunction, args ...*Expression) (*Expression, error) {
	types := make([]Type, len(args))
	for i, a := range args {
		if a == nil {
			return nil, mismatch(f.String(), i, "operand is nil")
		}
		types[i] = a.Type
	}
	t, err := BuiltinResultType(f, types...)
	if err != nil {
		return nil, err
	}
	return &Expression{Kind: ExprBuiltin{Fun: f, Args: args}, Type: t}, nil
}

// componentWise accepts scalars or vectors carrying caps, all of the first
// operand's type.
func componentWise(caps Capability) builtinRule {
	return func(name string, args []Type) (Type, error) {
		first := args[0]
		if !IsScalarOrVector(first) || !HasCapability(first, caps) {
			return nil, mismatch(name, 0, "requires %s scalar or vector, got %s", caps, first)
		}
		for i, a := range args[1:] {
			if a != first {
				return nil, mismatch(name, i+1, "expected %s, got %s", first, a)
			}
		}
		return first, nil
	}
}

// sameOrElement reports whether a equals t or is the element scalar of t.
func sameOrElement(a, t Type) bool {
	return a == t || a == ElementType(t)
}

func clampRule(name string, args []Type) (Type, error) {
	x := args[0]
	if !IsScalarOrVector(x) || !HasCapability(x, CapNumeric) {
		return nil, mismatch(name, 0, "requires numeric scalar or vector, got %s", x)
	}
	for i := 1; i < 3; i++ {
		if !sameOrElement(args[i], x) {
			return nil, mismatch(name, i, "bound must be %s or %s, got %s", x, ElementType(x), args[i])
		}
	}
	return x, nil
}

func stepRule(name string, args []Type) (Type, error) {
	edge, x := args[0], args[1]
	if !IsScalarOrVector(x) || !HasCapability(x, CapFloat) {
		return nil, mismatch(name, 1, "requires float scalar or vector, got %s", x)
	}
	if !sameOrElement(edge, x) {
		return nil, mismatch(name, 0, "edge must be %s or float1, got %s", x, edge)
	}
	return x, nil
}

func mixRule(name string, args []Type) (Type, error) {
	x := args[0]
	if !IsScalarOrVector(x) || !HasCapability(x, CapFloat) {
		return nil, mismatch(name, 0, "requires float scalar or vector, got %s", x)
	}
	if args[1] != x {
		return nil, mismatch(name, 1, "expected %s, got %s", x, args[1])
	}
	if !sameOrElement(args[2], x) {
		return nil, mismatch(name, 2, "blend factor must be %s or float1, got %s", x, args[2])
	}
	return x, nil
}

func smoothStepRule(name string, args []Type) (Type, error) {
	x := args[2]
	if !IsScalarOrVector(x) || !HasCapability(x, CapFloat) {
		return nil, mismatch(name, 2, "requires float scalar or vector, got %s", x)
	}
	for i := 0; i < 2; i++ {
		if !sameOrElement(args[i], x) {
			return nil, mismatch(name, i, "edge must be %s or float1, got %s", x, args[i])
		}
	}
	return x, nil
}

func isFloatVector(t Type) bool {
	return HasCapability(t, CapVector|CapFloat)
}

// vectorReduce handles dot and length: float vectors of one type, Float1 result.
func vectorReduce(name string, args []Type) (Type, error) {
	if !isFloatVector(args[0]) {
		return nil, mismatch(name, 0, "requires a float vector, got %s", args[0])
	}
	for i, a := range args[1:] {
		if a != args[0] {
			return nil, mismatch(name, i+1, "expected %s, got %s", args[0], a)
		}
	}
	return Float1, nil
}

func crossRule(name string, args []Type) (Type, error) {
	for i, a := range args {
		if a != Type(Float3) {
			return nil, mismatch(name, i, "requires float3, got %s", a)
		}
	}
	return Float3, nil
}

func distanceRule(name string, args []Type) (Type, error) {
	if !IsScalarOrVector(args[0]) || !HasCapability(args[0], CapFloat) {
		return nil, mismatch(name, 0, "requires float scalar or vector, got %s", args[0])
	}
	if args[1] != args[0] {
		return nil, mismatch(name, 1, "expected %s, got %s", args[0], args[1])
	}
	return Float1, nil
}

// floatVectors accepts float vectors, all of the first operand's type.
func floatVectors(name string, args []Type) (Type, error) {
	if !isFloatVector(args[0]) {
		return nil, mismatch(name, 0, "requires a float vector, got %s", args[0])
	}
	for i, a := range args[1:] {
		if a != args[0] {
			return nil, mismatch(name, i+1, "expected %s, got %s", args[0], a)
		}
	}
	return args[0], nil
}

func refractRule(name string, args []Type) (Type, error) {
	if _, err := floatVectors(name, args[:2]); err != nil {
		return nil, err
	}
	if args[2] != Type(Float1) {
		return nil, mismatch(name, 2, "eta must be float1, got %s", args[2])
	}
	return args[0], nil
}

func floatClassify(name string, args []Type) (Type, error) {
	if !IsScalarOrVector(args[0]) || !HasCapability(args[0], CapFloat) {
		return nil, mismatch(name, 0, "requires float scalar or vector, got %s", args[0])
	}
	return VectorOf(ScalarBool, Arity(args[0])), nil
}

func boolReduce(name string, args []Type) (Type, error) {
	if !HasCapability(args[0], CapVector|CapBool) {
		return nil, mismatch(name, 0, "requires a bool vector, got %s", args[0])
	}
	return Bool1, nil
}

func matrixRule(scalarResult bool) builtinRule {
	return func(name string, args []Type) (Type, error) {
		if !HasCapability(args[0], CapMatrix) {
			return nil, mismatch(name, 0, "requires a matrix, got %s", args[0])
		}
		if scalarResult {
			return Float1, nil
		}
		return args[0], nil
	}
}
