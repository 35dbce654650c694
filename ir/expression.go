// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ir

import (
	"fmt"
	"strings"
)

// Expression is a typed node of an expression DAG.
//
// Type is computed once by the constructor from the node kind and its
// operand types. Expressions are immutable and may be shared by pointer.
type Expression struct {
	Kind ExpressionKind
	Type Type
}

// ExpressionKind represents the different kinds of expressions.
type ExpressionKind interface {
	expressionKind()

	// Operands returns the operand expressions in evaluation order.
	Operands() []*Expression
}

// Literal represents a literal constant value.
type Literal struct {
	Value LiteralValue
}

func (Literal) expressionKind() {}

func (Literal) Operands() []*Expression { return nil }

// LiteralValue represents the value of a literal.
type LiteralValue interface {
	literalValue()
}

// LiteralFloat represents a 32-bit float literal.
type LiteralFloat float32

func (LiteralFloat) literalValue() {}

// LiteralInt represents a 32-bit signed integer literal.
type LiteralInt int32

func (LiteralInt) literalValue() {}

// LiteralBool represents a boolean literal.
type LiteralBool bool

func (LiteralBool) literalValue() {}

// ExprCompose constructs a vector or matrix from parts.
type ExprCompose struct {
	Parts []*Expression
}

func (ExprCompose) expressionKind() {}

func (e ExprCompose) Operands() []*Expression { return e.Parts }

// ExprVariable reads a variable.
type ExprVariable struct {
	Var *Variable
}

func (ExprVariable) expressionKind() {}

func (ExprVariable) Operands() []*Expression { return nil }

// ExprSwizzle selects vector components.
type ExprSwizzle struct {
	Base *Expression
	// Pattern holds component indices (0..3).
	Pattern []uint8
}

func (ExprSwizzle) expressionKind() {}

func (e ExprSwizzle) Operands() []*Expression { return []*Expression{e.Base} }

// PatternString returns the swizzle pattern using xyzw letters.
func (e ExprSwizzle) PatternString() string {
	var sb strings.Builder
	for _, c := range e.Pattern {
		sb.WriteByte("xyzw"[c])
	}
	return sb.String()
}

// ExprMember accesses a struct member.
type ExprMember struct {
	Base   *Expression
	Struct *StructType
	Index  int
}

func (ExprMember) expressionKind() {}

func (e ExprMember) Operands() []*Expression { return []*Expression{e.Base} }

// ExprIndex indexes a vector, matrix or array with a dynamic Int1 index.
type ExprIndex struct {
	Base  *Expression
	Index *Expression
}

func (ExprIndex) expressionKind() {}

func (e ExprIndex) Operands() []*Expression { return []*Expression{e.Base, e.Index} }

// UnaryOperator represents unary operations.
type UnaryOperator uint8

const (
	UnaryNegate UnaryOperator = iota // Arithmetic negation
	UnaryNot                         // Logical not
)

func (op UnaryOperator) String() string {
	if op == UnaryNot {
		return "!"
	}
	return "-"
}

// ExprUnary applies a unary operator.
type ExprUnary struct {
	Op UnaryOperator
	X  *Expression
}

func (ExprUnary) expressionKind() {}

func (e ExprUnary) Operands() []*Expression { return []*Expression{e.X} }

// BinaryOperator represents binary operations.
type BinaryOperator uint8

const (
	// Arithmetic
	BinaryAdd BinaryOperator = iota
	BinarySubtract
	BinaryMultiply
	BinaryDivide
	BinaryModulo

	// Comparison
	BinaryEqual
	BinaryNotEqual
	BinaryLess
	BinaryLessEqual
	BinaryGreater
	BinaryGreaterEqual

	// Logical
	BinaryLogicalAnd
	BinaryLogicalOr
)

var binaryOperatorNames = [...]string{"+", "-", "*", "/", "%", "==", "!=", "<", "<=", ">", ">=", "&&", "||"}

func (op BinaryOperator) String() string {
	if int(op) < len(binaryOperatorNames) {
		return binaryOperatorNames[op]
	}
	return fmt.Sprintf("BinaryOperator(%d)", op)
}

// IsComparison reports whether op yields a Bool1 comparison result.
func (op BinaryOperator) IsComparison() bool {
	return op >= BinaryEqual && op <= BinaryGreaterEqual
}

// ExprBinary applies a binary operator.
type ExprBinary struct {
	Op    BinaryOperator
	Left  *Expression
	Right *Expression
}

func (ExprBinary) expressionKind() {}

func (e ExprBinary) Operands() []*Expression { return []*Expression{e.Left, e.Right} }

// ExprBuiltin calls a builtin function.
type ExprBuiltin struct {
	Fun  BuiltinFunction
	Args []*Expression
}

func (ExprBuiltin) expressionKind() {}

func (e ExprBuiltin) Operands() []*Expression { return e.Args }

// ExprSampleTexture samples a texture. Lod is nil for implicit level selection.
type ExprSampleTexture struct {
	Texture *Variable
	Coord   *Expression
	Lod     *Expression
}

func (ExprSampleTexture) expressionKind() {}

func (e ExprSampleTexture) Operands() []*Expression {
	if e.Lod == nil {
		return []*Expression{e.Coord}
	}
	return []*Expression{e.Coord, e.Lod}
}

// ExprConvert converts a scalar or vector to another scalar kind.
type ExprConvert struct {
	X    *Expression
	Kind ScalarKind
}

func (ExprConvert) expressionKind() {}

func (e ExprConvert) Operands() []*Expression { return []*Expression{e.X} }

// ExprSelect chooses Accept when Cond is true, Reject otherwise.
type ExprSelect struct {
	Cond   *Expression
	Accept *Expression
	Reject *Expression
}

func (ExprSelect) expressionKind() {}

func (e ExprSelect) Operands() []*Expression { return []*Expression{e.Cond, e.Accept, e.Reject} }

// NewLiteralFloat creates a Float1 literal.
func NewLiteralFloat(v float32) *Expression {
	return &Expression{Kind: Literal{Value: LiteralFloat(v)}, Type: Float1}
}

// NewLiteralInt creates an Int1 literal.
func NewLiteralInt(v int32) *Expression {
	return &Expression{Kind: Literal{Value: LiteralInt(v)}, Type: Int1}
}

// NewLiteralBool creates a Bool1 literal.
func NewLiteralBool(v bool) *Expression {
	return &Expression{Kind: Literal{Value: LiteralBool(v)}, Type: Bool1}
}

// NewVariable creates an expression reading v.
func NewVariable(v *Variable) *Expression {
	return &Expression{Kind: ExprVariable{Var: v}, Type: v.Type}
}

func checkOperands(op string, operands ...*Expression) error {
	for i, e := range operands {
		if e == nil || e.Type == nil {
			return mismatch(op, i, "operand is nil")
		}
	}
	return nil
}

// NewCompose constructs a vector or matrix of type t.
//
// Vectors accept either a single scalar (splat) or scalars and vectors of the
// same scalar kind whose component counts sum to the vector size. Matrices
// accept either one column vector per column or one Float1 per element.
func NewCompose(t Type, parts ...*Expression) (*Expression, error) {
	const op = "compose"
	if err := checkOperands(op, parts...); err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, mismatch(op, -1, "%s requires at least one part", t)
	}
	switch t := t.(type) {
	case VectorType:
		if len(parts) == 1 {
			if s, ok := parts[0].Type.(ScalarType); ok && s.Kind == t.Scalar {
				break
			}
		}
		n := 0
		for i, p := range parts {
			k, ok := ScalarKindOf(p.Type)
			if !ok || !IsScalarOrVector(p.Type) || k != t.Scalar {
				return nil, mismatch(op, i, "%s cannot be a part of %s", p.Type, t)
			}
			n += Arity(p.Type)
		}
		if n != int(t.Size) {
			return nil, mismatch(op, -1, "%s requires %d components, got %d", t, t.Size, n)
		}
	case MatrixType:
		col := t.Column()
		switch len(parts) {
		case int(t.Size):
			for i, p := range parts {
				if p.Type != Type(col) {
					return nil, mismatch(op, i, "%s column must be %s, got %s", t, col, p.Type)
				}
			}
		case int(t.Size) * int(t.Size):
			for i, p := range parts {
				if p.Type != Type(Float1) {
					return nil, mismatch(op, i, "%s element must be float1, got %s", t, p.Type)
				}
			}
		default:
			return nil, mismatch(op, -1, "%s requires %d columns or %d elements, got %d parts",
				t, t.Size, t.Size*t.Size, len(parts))
		}
	default:
		return nil, mismatch(op, -1, "cannot compose %s", t)
	}
	return &Expression{Kind: ExprCompose{Parts: parts}, Type: t}, nil
}

// NewSwizzle selects components of a vector using an xyzw or rgba pattern.
func NewSwizzle(base *Expression, pattern string) (*Expression, error) {
	const op = "swizzle"
	if err := checkOperands(op, base); err != nil {
		return nil, err
	}
	vt, ok := base.Type.(VectorType)
	if !ok {
		return nil, mismatch(op, 0, "swizzle requires a vector, got %s", base.Type)
	}
	if len(pattern) == 0 || len(pattern) > 4 {
		return nil, mismatch(op, -1, "invalid swizzle pattern %q", pattern)
	}
	set := ""
	indices := make([]uint8, len(pattern))
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		var s string
		switch {
		case strings.IndexByte("xyzw", c) >= 0:
			s = "xyzw"
		case strings.IndexByte("rgba", c) >= 0:
			s = "rgba"
		default:
			return nil, mismatch(op, -1, "invalid swizzle component %q", c)
		}
		if set != "" && set != s {
			return nil, mismatch(op, -1, "swizzle %q mixes component sets", pattern)
		}
		set = s
		idx := uint8(strings.IndexByte(s, c))
		if idx >= vt.Size {
			return nil, mismatch(op, 0, "component %q out of range for %s", c, vt)
		}
		indices[i] = idx
	}
	return &Expression{Kind: ExprSwizzle{Base: base, Pattern: indices}, Type: VectorOf(vt.Scalar, len(indices))}, nil
}

// NewMember accesses the named member of a struct-typed expression.
func NewMember(base *Expression, name string) (*Expression, error) {
	const op = "member"
	if err := checkOperands(op, base); err != nil {
		return nil, err
	}
	st, ok := base.Type.(*StructType)
	if !ok {
		return nil, mismatch(op, 0, "member access requires a struct, got %s", base.Type)
	}
	idx := st.MemberIndex(name)
	if idx < 0 {
		return nil, mismatch(op, -1, "struct %s has no member %q", st.Name, name)
	}
	return &Expression{Kind: ExprMember{Base: base, Struct: st, Index: idx}, Type: st.Members[idx].Type}, nil
}

// NewIndex indexes a vector, matrix or array.
func NewIndex(base, index *Expression) (*Expression, error) {
	const op = "index"
	if err := checkOperands(op, base, index); err != nil {
		return nil, err
	}
	if index.Type != Type(Int1) {
		return nil, mismatch(op, 1, "index must be int1, got %s", index.Type)
	}
	var elem Type
	switch base.Type.(type) {
	case VectorType, MatrixType, ArrayType:
		elem = ElementType(base.Type)
	default:
		return nil, mismatch(op, 0, "cannot index %s", base.Type)
	}
	return &Expression{Kind: ExprIndex{Base: base, Index: index}, Type: elem}, nil
}

// NewUnary applies a unary operator.
func NewUnary(uop UnaryOperator, x *Expression) (*Expression, error) {
	opName := uop.String()
	if err := checkOperands(opName, x); err != nil {
		return nil, err
	}
	switch uop {
	case UnaryNegate:
		if !HasCapability(x.Type, CapNumeric) {
			return nil, mismatch(opName, 0, "negation requires a numeric operand, got %s", x.Type)
		}
	case UnaryNot:
		if !HasCapability(x.Type, CapBool) {
			return nil, mismatch(opName, 0, "logical not requires a bool operand, got %s", x.Type)
		}
	default:
		return nil, mismatch(opName, -1, "unknown unary operator")
	}
	return &Expression{Kind: ExprUnary{Op: uop, X: x}, Type: x.Type}, nil
}

// NewBinary applies a binary operator.
func NewBinary(bop BinaryOperator, left, right *Expression) (*Expression, error) {
	opName := bop.String()
	if err := checkOperands(opName, left, right); err != nil {
		return nil, err
	}
	t, err := binaryResultType(bop, left.Type, right.Type)
	if err != nil {
		return nil, err
	}
	return &Expression{Kind: ExprBinary{Op: bop, Left: left, Right: right}, Type: t}, nil
}

func binaryResultType(op BinaryOperator, l, r Type) (Type, error) {
	name := op.String()
	switch {
	case op <= BinaryModulo:
		if !HasCapability(l, CapNumeric) {
			return nil, mismatch(name, 0, "arithmetic requires numeric operands, got %s", l)
		}
		if !HasCapability(r, CapNumeric) {
			return nil, mismatch(name, 1, "arithmetic requires numeric operands, got %s", r)
		}
		lk, _ := ScalarKindOf(l)
		rk, _ := ScalarKindOf(r)
		if lk != rk {
			return nil, mismatch(name, 1, "operand kinds differ: %s and %s", l, r)
		}
		lm, rm := HasCapability(l, CapMatrix), HasCapability(r, CapMatrix)
		if op == BinaryModulo && (lm || rm) {
			return nil, mismatch(name, 0, "modulo is not defined for matrices")
		}
		if lm || rm {
			return matrixResultType(op, l, r)
		}
		switch {
		case l == r:
			return l, nil
		case HasCapability(l, CapVector) && HasCapability(r, CapScalar):
			return l, nil
		case HasCapability(l, CapScalar) && HasCapability(r, CapVector):
			return r, nil
		default:
			return nil, mismatch(name, 1, "incompatible operands %s and %s", l, r)
		}
	case op == BinaryEqual || op == BinaryNotEqual:
		if !IsScalarOrVector(l) {
			return nil, mismatch(name, 0, "equality requires scalar or vector operands, got %s", l)
		}
		if l != r {
			return nil, mismatch(name, 1, "equality requires equal types, got %s and %s", l, r)
		}
		return Bool1, nil
	case op.IsComparison():
		if !HasCapability(l, CapScalar|CapNumeric) {
			return nil, mismatch(name, 0, "ordering requires numeric scalars, got %s", l)
		}
		if l != r {
			return nil, mismatch(name, 1, "ordering requires equal types, got %s and %s", l, r)
		}
		return Bool1, nil
	case op == BinaryLogicalAnd || op == BinaryLogicalOr:
		if l != Type(Bool1) {
			return nil, mismatch(name, 0, "logical operators require bool1, got %s", l)
		}
		if r != Type(Bool1) {
			return nil, mismatch(name, 1, "logical operators require bool1, got %s", r)
		}
		return Bool1, nil
	default:
		return nil, mismatch(name, -1, "unknown binary operator")
	}
}

func matrixResultType(op BinaryOperator, l, r Type) (Type, error) {
	name := op.String()
	lm, lIsMat := l.(MatrixType)
	rm, rIsMat := r.(MatrixType)
	switch {
	case lIsMat && rIsMat:
		if lm != rm {
			return nil, mismatch(name, 1, "matrix sizes differ: %s and %s", l, r)
		}
		if op == BinaryDivide {
			return nil, mismatch(name, 1, "matrix division is not defined")
		}
		return l, nil
	case op == BinaryMultiply && lIsMat:
		if r == Type(Float1) {
			return l, nil
		}
		if r == Type(lm.Column()) {
			return r, nil
		}
		return nil, mismatch(name, 1, "cannot multiply %s by %s", l, r)
	case op == BinaryMultiply && rIsMat:
		if l == Type(Float1) {
			return r, nil
		}
		if l == Type(rm.Column()) {
			return l, nil
		}
		return nil, mismatch(name, 0, "cannot multiply %s by %s", l, r)
	case lIsMat:
		return nil, mismatch(name, 1, "operator %s is not defined for %s and %s", name, l, r)
	default:
		return nil, mismatch(name, 0, "operator %s is not defined for %s and %s", name, l, r)
	}
}

// NewSampleTexture samples tex at coord. lod may be nil.
func NewSampleTexture(tex *Variable, coord, lod *Expression) (*Expression, error) {
	const op = "sampleTexture"
	if tex == nil {
		return nil, mismatch(op, -1, "texture is nil")
	}
	st, ok := tex.Type.(SamplerType)
	if !ok || tex.Kind != VarTexture {
		return nil, mismatch(op, -1, "%s is not a texture", tex.Name)
	}
	if err := checkOperands(op, coord); err != nil {
		return nil, err
	}
	want := VectorOf(ScalarFloat, int(st.CoordSize()))
	if coord.Type != want {
		return nil, mismatch(op, 0, "%s coordinate must be %s, got %s", st, want, coord.Type)
	}
	if lod != nil && lod.Type != Type(Float1) {
		return nil, mismatch(op, 1, "level of detail must be float1, got %s", lod.Type)
	}
	return &Expression{Kind: ExprSampleTexture{Texture: tex, Coord: coord, Lod: lod}, Type: Float4}, nil
}

// NewConvert converts a scalar or vector to the scalar kind k, keeping arity.
func NewConvert(x *Expression, k ScalarKind) (*Expression, error) {
	const op = "convert"
	if err := checkOperands(op, x); err != nil {
		return nil, err
	}
	if !IsScalarOrVector(x.Type) {
		return nil, mismatch(op, 0, "cannot convert %s", x.Type)
	}
	return &Expression{Kind: ExprConvert{X: x, Kind: k}, Type: VectorOf(k, Arity(x.Type))}, nil
}

// NewSelect chooses between accept and reject depending on a Bool1 condition.
func NewSelect(cond, accept, reject *Expression) (*Expression, error) {
	const op = "select"
	if err := checkOperands(op, cond, accept, reject); err != nil {
		return nil, err
	}
	if cond.Type != Type(Bool1) {
		return nil, mismatch(op, 0, "condition must be bool1, got %s", cond.Type)
	}
	if !IsScalarOrVector(accept.Type) && !HasCapability(accept.Type, CapMatrix) {
		return nil, mismatch(op, 1, "cannot select %s", accept.Type)
	}
	if accept.Type != reject.Type {
		return nil, mismatch(op, 2, "branches differ: %s and %s", accept.Type, reject.Type)
	}
	return &Expression{Kind: ExprSelect{Cond: cond, Accept: accept, Reject: reject}, Type: accept.Type}, nil
}

// IsLiteral reports whether e is a literal.
func IsLiteral(e *Expression) bool {
	_, ok := e.Kind.(Literal)
	return ok
}

// IsTrivial reports whether e is cheap enough to be repeated instead of
// cached in a temporary: literals and variable reads.
func IsTrivial(e *Expression) bool {
	switch e.Kind.(type) {
	case Literal, ExprVariable:
		return true
	default:
		return false
	}
}

// RootVariable returns the variable an l-value expression writes to, or nil
// if e is not an l-value.
func RootVariable(e *Expression) *Variable {
	for {
		switch k := e.Kind.(type) {
		case ExprVariable:
			return k.Var
		case ExprSwizzle:
			if hasDuplicateComponents(k.Pattern) {
				return nil
			}
			e = k.Base
		case ExprMember:
			e = k.Base
		case ExprIndex:
			e = k.Base
		default:
			return nil
		}
	}
}

func hasDuplicateComponents(p []uint8) bool {
	var seen [4]bool
	for _, c := range p {
		if seen[c] {
			return true
		}
		seen[c] = true
	}
	return false
}
