// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"
	"math"
	"strings"

	"github.com/gogpu/ksl/gen"
	"github.com/gogpu/ksl/ir"
)

// builtinNames maps KSL builtin functions whose GLSL name differs.
var builtinNames = map[ir.BuiltinFunction]string{
	ir.BuiltinRound:       "roundEven",
	ir.BuiltinInverseSqrt: "inversesqrt",
	ir.BuiltinDpdx:        "dFdx",
	ir.BuiltinDpdy:        "dFdy",
	ir.BuiltinAtan2:       "atan",
	ir.BuiltinSmoothStep:  "smoothstep",
	ir.BuiltinFaceForward: "faceforward",
	ir.BuiltinIsInf:       "isinf",
	ir.BuiltinIsNan:       "isnan",
}

// builtinVariables maps builtin values to GLSL builtin variables.
var builtinVariables = map[ir.BuiltinValue]string{
	ir.BuiltinPosition:           "gl_Position",
	ir.BuiltinVertexIndex:        "gl_VertexID",
	ir.BuiltinInstanceIndex:      "gl_InstanceID",
	ir.BuiltinFragCoord:          "gl_FragCoord",
	ir.BuiltinFrontFacing:        "gl_FrontFacing",
	ir.BuiltinFragDepth:          "gl_FragDepth",
	ir.BuiltinGlobalInvocationID: "ivec3(gl_GlobalInvocationID)",
	ir.BuiltinLocalInvocationID:  "ivec3(gl_LocalInvocationID)",
}

// Literal writes a literal expression.
func (g *Generator) Literal(_ *ir.Expression, lit ir.Literal) (string, error) {
	switch v := lit.Value.(type) {
	case ir.LiteralBool:
		if v {
			return "true", nil
		}
		return "false", nil
	case ir.LiteralInt:
		if int32(v) == math.MinInt32 {
			return "(-2147483647 - 1)", nil
		}
		return fmt.Sprintf("%d", int32(v)), nil
	case ir.LiteralFloat:
		return gen.FormatFloat(float32(v)), nil
	default:
		return "", gen.Unsupported("literal %T", v)
	}
}

// Variable writes a variable reference.
func (g *Generator) Variable(_ *ir.Expression, v *ir.Variable) (string, error) {
	if v.Kind == ir.VarBuiltin {
		name, ok := builtinVariables[v.Builtin]
		if !ok {
			return "", gen.Unsupported("builtin value %s", v.Builtin)
		}
		return name, nil
	}
	return escapeKeyword(v.Name), nil
}

// Compose writes a constructor.
func (g *Generator) Compose(e *ir.Expression, parts []string) (string, error) {
	return fmt.Sprintf("%s(%s)", typeToGLSL(e.Type), strings.Join(parts, ", ")), nil
}

// Swizzle writes a component selection.
func (g *Generator) Swizzle(e *ir.Expression, base string) (string, error) {
	return base + "." + e.Kind.(ir.ExprSwizzle).PatternString(), nil
}

// Member writes a struct member access.
func (g *Generator) Member(e *ir.Expression, base string) (string, error) {
	k := e.Kind.(ir.ExprMember)
	return base + "." + escapeKeyword(k.Struct.Members[k.Index].Name), nil
}

// Index writes a dynamic index.
func (g *Generator) Index(_ *ir.Expression, base, index string) (string, error) {
	return fmt.Sprintf("%s[%s]", base, index), nil
}

// Unary writes a unary expression.
func (g *Generator) Unary(e *ir.Expression, x string) (string, error) {
	u := e.Kind.(ir.ExprUnary)
	if u.Op == ir.UnaryNot {
		if _, ok := e.Type.(ir.VectorType); ok {
			return fmt.Sprintf("not(%s)", x), nil
		}
		return fmt.Sprintf("(!%s)", x), nil
	}
	if strings.HasPrefix(x, "-") {
		return fmt.Sprintf("(-(%s))", x), nil
	}
	return fmt.Sprintf("(-%s)", x), nil
}

// Binary writes a binary expression.
func (g *Generator) Binary(e *ir.Expression, left, right string) (string, error) {
	b := e.Kind.(ir.ExprBinary)
	if b.Op == ir.BinaryModulo {
		// Truncated remainder: GLSL mod() floors and % is undefined for
		// negative operands.
		if k, _ := ir.ScalarKindOf(e.Type); k == ir.ScalarFloat {
			return fmt.Sprintf("(%s - %s * trunc(%s / %s))", left, right, left, right), nil
		}
		return fmt.Sprintf("(%s - %s * (%s / %s))", left, right, left, right), nil
	}
	return fmt.Sprintf("(%s %s %s)", left, b.Op, right), nil
}

// Builtin writes a builtin function call.
func (g *Generator) Builtin(e *ir.Expression, args []string) (string, error) {
	b := e.Kind.(ir.ExprBuiltin)
	if b.Fun == ir.BuiltinFma && !g.options.LangVersion.SupportsFma() {
		return fmt.Sprintf("((%s * %s) + %s)", args[0], args[1], args[2]), nil
	}
	name, ok := builtinNames[b.Fun]
	if !ok {
		name = b.Fun.String()
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(args, ", ")), nil
}

// SampleTexture writes a texture sample.
func (g *Generator) SampleTexture(e *ir.Expression, coord, lod string) (string, error) {
	tex := escapeKeyword(e.Kind.(ir.ExprSampleTexture).Texture.Name)
	if lod != "" {
		return fmt.Sprintf("textureLod(%s, %s, %s)", tex, coord, lod), nil
	}
	return fmt.Sprintf("texture(%s, %s)", tex, coord), nil
}

// Convert writes a scalar kind conversion.
func (g *Generator) Convert(e *ir.Expression, x string) (string, error) {
	return fmt.Sprintf("%s(%s)", typeToGLSL(e.Type), x), nil
}

// Select writes a conditional expression.
func (g *Generator) Select(_ *ir.Expression, cond, accept, reject string) (string, error) {
	return fmt.Sprintf("(%s ? %s : %s)", cond, accept, reject), nil
}
