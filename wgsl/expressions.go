// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package wgsl

import (
	"fmt"
	"math"
	"strings"

	"github.com/gogpu/ksl/gen"
	"github.com/gogpu/ksl/ir"
)

// builtinNames maps KSL builtin functions whose WGSL name differs.
var builtinNames = map[ir.BuiltinFunction]string{
	ir.BuiltinSmoothStep: "smoothstep",
}

// splatArgs lists builtins whose scalar arguments must be widened to the
// vector result type.
var splatArgs = map[ir.BuiltinFunction]bool{
	ir.BuiltinClamp:      true,
	ir.BuiltinStep:       true,
	ir.BuiltinMix:        true,
	ir.BuiltinSmoothStep: true,
}

// maxFloat32 is the largest finite f32, written as a WGSL literal.
const maxFloat32 = "3.40282347e+38"

// formatFloat formats a float literal accepted by WGSL lexers, which
// require a fraction before an exponent.
func formatFloat(f float32) string {
	s := gen.FormatFloat(f)
	if i := strings.IndexAny(s, "eE"); i >= 0 && !strings.Contains(s[:i], ".") {
		s = s[:i] + ".0" + s[i:]
	}
	return s
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
			return "i32(-2147483647 - 1)", nil
		}
		return fmt.Sprintf("%d", int32(v)), nil
	case ir.LiteralFloat:
		f := float64(v)
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return "", gen.Unsupported("WGSL has no literal for %v", f)
		}
		return formatFloat(float32(v)), nil
	default:
		return "", gen.Unsupported("literal %T", v)
	}
}

// Variable writes a variable reference. Uniform members are accessed
// through the instance of their buffer.
func (g *Generator) Variable(_ *ir.Expression, v *ir.Variable) (string, error) {
	if v.Kind == ir.VarUniform {
		inst, ok := g.instances[v.Buffer]
		if !ok {
			return "", gen.Unsupported("uniform %s outside a placed buffer", v.Name)
		}
		return escapeName(inst) + "." + escapeName(v.Name), nil
	}
	return escapeName(v.Name), nil
}

// Compose writes a constructor.
func (g *Generator) Compose(e *ir.Expression, parts []string) (string, error) {
	return fmt.Sprintf("%s(%s)", typeName(e.Type), joinArgs(parts...)), nil
}

// Swizzle writes a component selection.
func (g *Generator) Swizzle(e *ir.Expression, base string) (string, error) {
	return base + "." + e.Kind.(ir.ExprSwizzle).PatternString(), nil
}

// Member writes a struct member access.
func (g *Generator) Member(e *ir.Expression, base string) (string, error) {
	k := e.Kind.(ir.ExprMember)
	return base + "." + escapeName(k.Struct.Members[k.Index].Name), nil
}

// Index writes a dynamic index. Elements of padded arrays are narrowed
// back to their declared type.
func (g *Generator) Index(e *ir.Expression, base, index string) (string, error) {
	s := fmt.Sprintf("%s[%s]", base, index)
	if v, ok := e.Kind.(ir.ExprIndex).Base.Kind.(ir.ExprVariable); ok && g.padded[v.Var] {
		if vt, ok := e.Type.(ir.VectorType); ok {
			return s + "." + "xyzw"[:vt.Size], nil
		}
		return s + ".x", nil
	}
	return s, nil
}

// Unary writes a unary expression.
func (g *Generator) Unary(e *ir.Expression, x string) (string, error) {
	op := e.Kind.(ir.ExprUnary).Op
	if op == ir.UnaryNegate && strings.HasPrefix(x, "-") {
		return fmt.Sprintf("(-(%s))", x), nil
	}
	return fmt.Sprintf("(%s%s)", op, x), nil
}

// Binary writes a binary expression. Vector equality reduces to a single
// bool as in KSL.
func (g *Generator) Binary(e *ir.Expression, left, right string) (string, error) {
	b := e.Kind.(ir.ExprBinary)
	if b.Op == ir.BinaryEqual || b.Op == ir.BinaryNotEqual {
		switch b.Left.Type.(type) {
		case ir.VectorType:
			if b.Op == ir.BinaryEqual {
				return fmt.Sprintf("all(%s == %s)", left, right), nil
			}
			return fmt.Sprintf("any(%s != %s)", left, right), nil
		case ir.ScalarType:
		default:
			return "", gen.Unsupported("WGSL cannot compare %s values", b.Left.Type)
		}
	}
	return fmt.Sprintf("(%s %s %s)", left, b.Op, right), nil
}

// Builtin writes a builtin function call.
func (g *Generator) Builtin(e *ir.Expression, args []string) (string, error) {
	b := e.Kind.(ir.ExprBuiltin)
	switch b.Fun {
	case ir.BuiltinInverse:
		return "", gen.Unsupported("WGSL has no matrix inverse")
	case ir.BuiltinIsNan:
		return fmt.Sprintf("(%s != %s)", args[0], args[0]), nil
	case ir.BuiltinIsInf:
		return fmt.Sprintf("(abs(%s) > %s(%s))", args[0], typeName(b.Args[0].Type), maxFloat32), nil
	}
	if splatArgs[b.Fun] {
		if _, ok := e.Type.(ir.VectorType); ok {
			for i, a := range b.Args {
				if _, scalar := a.Type.(ir.ScalarType); scalar {
					args[i] = fmt.Sprintf("%s(%s)", typeName(e.Type), args[i])
				}
			}
		}
	}
	name, ok := builtinNames[b.Fun]
	if !ok {
		name = b.Fun.String()
	}
	return fmt.Sprintf("%s(%s)", name, joinArgs(args...)), nil
}

// SampleTexture writes a texture sample. Outside fragment shaders
// implicit derivatives are unavailable and level 0 is sampled.
func (g *Generator) SampleTexture(e *ir.Expression, coord, lod string) (string, error) {
	k := e.Kind.(ir.ExprSampleTexture)
	st, ok := k.Texture.Type.(ir.SamplerType)
	if !ok {
		return "", gen.Unsupported("texture %s of type %s", k.Texture.Name, k.Texture.Type)
	}
	args := []string{escapeName(k.Texture.Name), escapeName(g.samplers[k.Texture])}
	if st.Arrayed {
		n := st.CoordSize() - 1
		args = append(args, coord+"."+"xyz"[:n], fmt.Sprintf("i32(%s.%c)", coord, "xyzw"[n]))
	} else {
		args = append(args, coord)
	}
	if lod == "" && g.stage != ir.StageFragment {
		lod = "0.0"
	}
	if lod == "" {
		return fmt.Sprintf("textureSample(%s)", joinArgs(args...)), nil
	}
	if st.Dim == ir.Dim1D {
		return "", gen.Unsupported("WGSL cannot sample 1D texture %s at an explicit level", k.Texture.Name)
	}
	return fmt.Sprintf("textureSampleLevel(%s, %s)", joinArgs(args...), lod), nil
}

// Convert writes a scalar kind conversion.
func (g *Generator) Convert(e *ir.Expression, x string) (string, error) {
	return fmt.Sprintf("%s(%s)", typeName(e.Type), x), nil
}

// Select writes a conditional expression.
func (g *Generator) Select(_ *ir.Expression, cond, accept, reject string) (string, error) {
	return fmt.Sprintf("select(%s, %s, %s)", reject, accept, cond), nil
}
