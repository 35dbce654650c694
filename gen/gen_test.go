// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package gen

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/ksl"
	"github.com/gogpu/ksl/ir"
)

// textGen is a minimal generator producing a C-like pseudo language.
type textGen struct{}

func (textGen) Literal(_ *ir.Expression, lit ir.Literal) (string, error) {
	switch v := lit.Value.(type) {
	case ir.LiteralFloat:
		return FormatFloat(float32(v)), nil
	case ir.LiteralInt:
		return fmt.Sprint(int32(v)), nil
	default:
		return fmt.Sprint(v), nil
	}
}

func (textGen) Variable(_ *ir.Expression, v *ir.Variable) (string, error) { return v.Name, nil }

func (textGen) Compose(e *ir.Expression, parts []string) (string, error) {
	return e.Type.String() + "(" + strings.Join(parts, ", ") + ")", nil
}

func (textGen) Swizzle(e *ir.Expression, base string) (string, error) {
	return base + "." + e.Kind.(ir.ExprSwizzle).PatternString(), nil
}

func (textGen) Member(e *ir.Expression, base string) (string, error) {
	k := e.Kind.(ir.ExprMember)
	return base + "." + k.Struct.Members[k.Index].Name, nil
}

func (textGen) Index(_ *ir.Expression, base, index string) (string, error) {
	return base + "[" + index + "]", nil
}

func (textGen) Unary(e *ir.Expression, x string) (string, error) {
	return "(" + e.Kind.(ir.ExprUnary).Op.String() + x + ")", nil
}

func (textGen) Binary(e *ir.Expression, l, r string) (string, error) {
	return "(" + l + " " + e.Kind.(ir.ExprBinary).Op.String() + " " + r + ")", nil
}

func (textGen) Builtin(e *ir.Expression, args []string) (string, error) {
	return e.Kind.(ir.ExprBuiltin).Fun.String() + "(" + strings.Join(args, ", ") + ")", nil
}

func (textGen) SampleTexture(e *ir.Expression, coord, lod string) (string, error) {
	tex := e.Kind.(ir.ExprSampleTexture).Texture.Name
	if lod != "" {
		return "sampleLod(" + tex + ", " + coord + ", " + lod + ")", nil
	}
	return "sample(" + tex + ", " + coord + ")", nil
}

func (textGen) Convert(e *ir.Expression, x string) (string, error) {
	return e.Type.String() + "(" + x + ")", nil
}

func (textGen) Select(_ *ir.Expression, c, a, r string) (string, error) {
	return "(" + c + " ? " + a + " : " + r + ")", nil
}

func (textGen) Declare(v *ir.Variable, init string) (string, error) {
	if init == "" {
		return "var " + v.Name + "\n", nil
	}
	return "var " + v.Name + " = " + init + "\n", nil
}

func (textGen) Assign(target, value string) (string, error) {
	return target + " = " + value + "\n", nil
}

func (textGen) If(chain IfChain) (string, error) {
	var sb strings.Builder
	for i, br := range chain.Branches {
		if i > 0 {
			sb.WriteString("} else ")
		}
		fmt.Fprintf(&sb, "if %s {\n%s", br.Cond, Indent(br.Body))
	}
	if chain.HasElse {
		fmt.Fprintf(&sb, "} else {\n%s", Indent(chain.Else))
	}
	sb.WriteString("}\n")
	return sb.String(), nil
}

func (textGen) ForRange(index *ir.Variable, from, to, step, body string) (string, error) {
	inc := index.Name + "++"
	if step != "" {
		inc = index.Name + " += " + step
	}
	return fmt.Sprintf("for %s = %s; %s < %s; %s {\n%s}\n", index.Name, from, index.Name, to, inc, Indent(body)), nil
}

func (textGen) Scope(label, body string) (string, error) {
	return "// " + label + "\n{\n" + Indent(body) + "}\n", nil
}

func (textGen) Stage(unit *StageUnit) (string, error) { return unit.Body, nil }

func (textGen) While(cond, body string) (string, error) {
	return "while " + cond + " {\n" + Indent(body) + "}\n", nil
}

func (textGen) Break() (string, error)    { return "break\n", nil }
func (textGen) Continue() (string, error) { return "continue\n", nil }
func (textGen) Discard() (string, error)  { return "discard\n", nil }

// basicGen hides the optional interfaces of textGen.
type basicGen struct{ Generator }

func vertex(t *testing.T, fn func(b *ksl.ProgramBuilder, v *ksl.StageBuilder)) *ir.Program {
	t.Helper()
	b := ksl.NewProgram("test")
	require.NoError(t, b.Vertex(func(v *ksl.StageBuilder) { fn(b, v) }))
	p, err := b.Finalize()
	require.NoError(t, err)
	return p.IR()
}

func generate(t *testing.T, p *ir.Program, opts Options) string {
	t.Helper()
	src, err := Generate(p, ir.StageVertex, textGen{}, opts)
	require.NoError(t, err)
	return src
}

func TestSharedExpression(t *testing.T) {
	var scale *ir.Expression
	p := vertex(t, func(b *ksl.ProgramBuilder, v *ksl.StageBuilder) {
		pos := b.Attribute("aPos", ir.Float3)
		scale = b.Uniform("uScale", ir.Float1)
		s := ksl.Mul(pos, scale)
		v.Set(v.Position(), ksl.Float4(s, ksl.Length(s)))
	})
	want := "var t = (aPos * uScale)\n" +
		"ksl_position = float4(t, length(t))\n"
	assert.Equal(t, want, generate(t, p, Options{}))
}

func TestTempBase(t *testing.T) {
	p := vertex(t, func(b *ksl.ProgramBuilder, v *ksl.StageBuilder) {
		s := ksl.Mul(b.Attribute("aPos", ir.Float3), b.Uniform("uScale", ir.Float1))
		v.Var("d", ksl.Dot(s, s))
	})
	want := "var tmp = (aPos * uScale)\n" +
		"var d = dot(tmp, tmp)\n"
	assert.Equal(t, want, generate(t, p, Options{TempBase: "tmp"}))
}

func TestAssignmentInvalidates(t *testing.T) {
	p := vertex(t, func(b *ksl.ProgramBuilder, v *ksl.StageBuilder) {
		scale := b.Uniform("uScale", ir.Float1)
		x := v.Var("x", ksl.Float(1))
		y := ksl.Add(x, scale)
		v.Var("a", ksl.Mul(y, y))
		v.Set(x, ksl.Float(2))
		v.Var("b", ksl.Add(y, ksl.Float(1)))
	})
	want := "var x = 1.0\n" +
		"var t = (x + uScale)\n" +
		"var a = (t * t)\n" +
		"x = 2.0\n" +
		"var t_2 = (x + uScale)\n" +
		"var b = (t_2 + 1.0)\n"
	assert.Equal(t, want, generate(t, p, Options{}))
}

func TestLoops(t *testing.T) {
	t.Run("while keeps loop invariant temporaries", func(t *testing.T) {
		p := vertex(t, func(b *ksl.ProgramBuilder, v *ksl.StageBuilder) {
			scale := b.Uniform("uScale", ir.Float1)
			acc := v.VarOf("acc", ir.Float1)
			limit := ksl.Mul(scale, ksl.Float(4))
			v.Var("l", limit)
			v.While(ksl.Lt(acc, limit), func(s *ksl.ScopeBuilder) {
				s.Set(acc, ksl.Add(acc, limit))
			})
		})
		want := "var acc\n" +
			"var t = (uScale * 4.0)\n" +
			"var l = t\n" +
			"while (acc < t) {\n" +
			"    acc = (acc + t)\n" +
			"}\n"
		assert.Equal(t, want, generate(t, p, Options{}))
	})

	t.Run("range bound reading a loop assigned variable", func(t *testing.T) {
		p := vertex(t, func(b *ksl.ProgramBuilder, v *ksl.StageBuilder) {
			n := v.Var("n", ksl.Int(3))
			half := ksl.Div(n, ksl.Int(2))
			v.Var("h", ksl.Mul(half, half))
			v.ForRange(ksl.Int(0), half, func(s *ksl.ScopeBuilder, i *ir.Expression) {
				s.Set(n, ksl.Sub(n, i))
			})
		})
		want := "var n = 3\n" +
			"var t = (n / 2)\n" +
			"var h = (t * t)\n" +
			"for i = 0; i < (n / 2); i++ {\n" +
			"    n = (n - i)\n" +
			"}\n"
		assert.Equal(t, want, generate(t, p, Options{}))
	})
}

func TestIfChain(t *testing.T) {
	p := vertex(t, func(b *ksl.ProgramBuilder, v *ksl.StageBuilder) {
		scale := b.Uniform("uScale", ir.Float1)
		x := v.VarOf("x", ir.Float1)
		sq := ksl.Mul(scale, scale)
		v.If(ksl.Gt(sq, ksl.Float(1)), func(s *ksl.ScopeBuilder) {
			s.Set(x, ksl.Float(1))
		}).ElseIf(ksl.Gt(scale, ksl.Float(0)), func(s *ksl.ScopeBuilder) {
			s.Set(x, sq)
		}).Else(func(s *ksl.ScopeBuilder) {
			s.Set(x, ksl.Float(0))
		})
	})
	want := "var x\n" +
		"var t = (uScale * uScale)\n" +
		"if (t > 1.0) {\n" +
		"    x = 1.0\n" +
		"} else if (uScale > 0.0) {\n" +
		"    x = t\n" +
		"} else {\n" +
		"    x = 0.0\n" +
		"}\n"
	assert.Equal(t, want, generate(t, p, Options{}))
}

func TestFoldConstants(t *testing.T) {
	p := vertex(t, func(b *ksl.ProgramBuilder, v *ksl.StageBuilder) {
		scale := b.Uniform("uScale", ir.Float1)
		v.Var("k", ksl.Add(ksl.Mul(ksl.Float(2), ksl.Float(3)), scale))
		v.Var("c", ksl.Float3(ksl.Float(1), ksl.Add(ksl.Float(1), ksl.Float(1)), ksl.Float(0)))
		v.Var("m", ksl.Max(ksl.Float(-1), ksl.Abs(ksl.Float(-4))))
	})

	folded := "var k = (6.0 + uScale)\n" +
		"var c = float3(1.0, 2.0, 0.0)\n" +
		"var m = 4.0\n"
	assert.Equal(t, folded, generate(t, p, Options{FoldConstants: true}))

	plain := "var k = ((2.0 * 3.0) + uScale)\n" +
		"var c = float3(1.0, (1.0 + 1.0), 0.0)\n" +
		"var m = max(-1.0, abs(-4.0))\n"
	assert.Equal(t, plain, generate(t, p, Options{}))
}

func TestBlockScope(t *testing.T) {
	p := vertex(t, func(b *ksl.ProgramBuilder, v *ksl.StageBuilder) {
		scale := b.Uniform("uScale", ir.Float1)
		blk := v.Block("scale", func(bb *ksl.BlockBuilder) {
			in := bb.Input("factor", ir.Float1, ksl.Float(2))
			out := bb.Output("result", ir.Float1)
			bb.Assign(out, ksl.Mul(in.Expr(), scale))
		})
		v.Var("r", blk.Output("result"))
	})
	want := "var scale_result\n" +
		"// scale\n" +
		"{\n" +
		"    var scale_factor = 2.0\n" +
		"    scale_result = (scale_factor * uScale)\n" +
		"}\n" +
		"var r = scale_result\n"
	assert.Equal(t, want, generate(t, p, Options{}))
}

func TestUnsupported(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *ksl.ProgramBuilder) error
		stage ir.ShaderStage
	}{
		{"while", func(b *ksl.ProgramBuilder) error {
			return b.Vertex(func(v *ksl.StageBuilder) {
				v.While(ksl.Bool(false), func(*ksl.ScopeBuilder) {})
			})
		}, ir.StageVertex},
		{"break", func(b *ksl.ProgramBuilder) error {
			return b.Vertex(func(v *ksl.StageBuilder) {
				v.ForRange(ksl.Int(0), ksl.Int(4), func(s *ksl.ScopeBuilder, _ *ir.Expression) { s.Break() })
			})
		}, ir.StageVertex},
		{"discard", func(b *ksl.ProgramBuilder) error {
			return b.Fragment(func(f *ksl.StageBuilder) { f.Discard() })
		}, ir.StageFragment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ksl.NewProgram("unsupported")
			require.NoError(t, tt.build(b))
			p, err := b.Finalize()
			require.NoError(t, err)

			_, err = Generate(p.IR(), tt.stage, basicGen{textGen{}}, Options{})
			require.Error(t, err)
			assert.True(t, ir.IsKind(err, ir.ErrGeneratorUnsupported), "got %v", err)

			_, err = Generate(p.IR(), tt.stage, textGen{}, Options{})
			assert.NoError(t, err)
		})
	}
}

func TestMissingStage(t *testing.T) {
	p := vertex(t, func(_ *ksl.ProgramBuilder, v *ksl.StageBuilder) {
		v.Set(v.Position(), ksl.Consts(0, 0, 0, 1))
	})
	_, err := Generate(p, ir.StageFragment, textGen{}, Options{})
	assert.True(t, ir.IsKind(err, ir.ErrInvalidArgument))
}

func TestGenerateAll(t *testing.T) {
	b := ksl.NewProgram("all")
	color := b.InterStage("vColor", ir.Float4)
	require.NoError(t, b.Vertex(func(v *ksl.StageBuilder) {
		v.Set(color, ksl.Consts(1, 0, 0, 1))
	}))
	require.NoError(t, b.Fragment(func(f *ksl.StageBuilder) {
		f.Set(f.ColorOutput(0), color)
	}))
	p, err := b.Finalize()
	require.NoError(t, err)

	out, err := GenerateAll(p.IR(), func() Generator { return textGen{} }, Options{})
	require.NoError(t, err)
	assert.Equal(t, "vColor = float4(1.0, 0.0, 0.0, 1.0)\n", out[ir.StageVertex])
	assert.Equal(t, "fragColor0 = vColor\n", out[ir.StageFragment])
}

func TestIndent(t *testing.T) {
	assert.Equal(t, "", Indent(""))
	assert.Equal(t, "    a\n\n    b\n", Indent("a\n\nb\n"))
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float32
		want string
	}{
		{1, "1.0"},
		{0.5, "0.5"},
		{-2, "-2.0"},
		{1e20, "1e+20"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatFloat(tt.in))
	}
}
