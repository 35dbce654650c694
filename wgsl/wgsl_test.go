// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package wgsl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/ksl"
	"github.com/gogpu/ksl/ir"
)

func texturedProgram(t *testing.T) *ir.Program {
	t.Helper()
	b := ksl.NewProgram("textured")
	mvp := b.Uniform("uMvp", ir.Mat4)
	tint := b.Uniform("uTint", ir.Float4)
	tex := b.Texture("uAlbedo", ir.Sampler2D)
	pos := b.Attribute("aPos", ir.Float3)
	uv := b.Attribute("aUv", ir.Float2)
	vUv := b.InterStage("vUv", ir.Float2)

	require.NoError(t, b.Vertex(func(v *ksl.StageBuilder) {
		v.Set(v.Position(), ksl.Mul(mvp, ksl.Float4(pos, ksl.Float(1))))
		v.Set(vUv, uv)
	}))
	require.NoError(t, b.Fragment(func(f *ksl.StageBuilder) {
		f.Set(f.ColorOutput(0), ksl.Mul(ksl.Sample(tex, vUv), tint))
	}))
	p, err := b.Finalize()
	require.NoError(t, err)
	return p.IR()
}

func compile(t *testing.T, p *ir.Program, stage ir.ShaderStage) string {
	t.Helper()
	src, err := Compile(p, stage, DefaultOptions())
	require.NoError(t, err)
	return src
}

func TestCompile_Vertex(t *testing.T) {
	got := compile(t, texturedProgram(t), ir.StageVertex)
	want := `struct Uniforms {
    uMvp: mat4x4<f32>,
    uTint: vec4<f32>,
}

@group(0) @binding(0) var<uniform> uniforms: Uniforms;

struct VertexOutput {
    @builtin(position) ksl_position: vec4<f32>,
    @location(0) vUv: vec2<f32>,
}

@vertex
fn main(@location(0) aPos: vec3<f32>, @location(1) aUv: vec2<f32>) -> VertexOutput {
    var ksl_position: vec4<f32>;
    var vUv: vec2<f32>;
    ksl_position = (uniforms.uMvp * vec4<f32>(aPos, 1.0));
    vUv = aUv;
    var stageOut: VertexOutput;
    stageOut.ksl_position = ksl_position;
    stageOut.vUv = vUv;
    return stageOut;
}
`
	assert.Equal(t, want, got)
}

func TestCompile_Fragment(t *testing.T) {
	got := compile(t, texturedProgram(t), ir.StageFragment)
	want := `struct Uniforms {
    uMvp: mat4x4<f32>,
    uTint: vec4<f32>,
}

@group(0) @binding(0) var<uniform> uniforms: Uniforms;

@group(0) @binding(1) var uAlbedo: texture_2d<f32>;
@group(1) @binding(1) var uAlbedoSampler: sampler;

struct FragmentOutput {
    @location(0) fragColor0: vec4<f32>,
}

@fragment
fn main(@location(0) vUv: vec2<f32>) -> FragmentOutput {
    var fragColor0: vec4<f32>;
    fragColor0 = (textureSample(uAlbedo, uAlbedoSampler, vUv) * uniforms.uTint);
    var stageOut: FragmentOutput;
    stageOut.fragColor0 = fragColor0;
    return stageOut;
}
`
	assert.Equal(t, want, got)
}

func TestCompile_NagaAccepts(t *testing.T) {
	out, err := CompileAll(texturedProgram(t), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, out, 2)
	for stage, src := range out {
		module, err := Lower(src)
		require.NoError(t, err, "%s stage:\n%s", stage, src)
		assert.NotEmpty(t, module.EntryPoints, "%s stage", stage)
	}
}

func TestCompileSPIRV(t *testing.T) {
	spv, err := CompileSPIRV(texturedProgram(t), ir.StageFragment, Options{})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(spv), 20)
	magic := uint32(spv[0]) | uint32(spv[1])<<8 | uint32(spv[2])<<16 | uint32(spv[3])<<24
	assert.Equal(t, uint32(0x07230203), magic)
}

func fragmentSource(t *testing.T, fn func(b *ksl.ProgramBuilder, f *ksl.StageBuilder)) (string, error) {
	t.Helper()
	b := ksl.NewProgram("expr")
	require.NoError(t, b.Fragment(func(f *ksl.StageBuilder) { fn(b, f) }))
	p, err := b.Finalize()
	require.NoError(t, err)
	return Compile(p.IR(), ir.StageFragment, DefaultOptions())
}

func TestExpressions(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *ksl.ProgramBuilder, f *ksl.StageBuilder)
		want  string
	}{
		{
			name: "vector equality reduces to bool",
			build: func(b *ksl.ProgramBuilder, f *ksl.StageBuilder) {
				u := b.Uniform("u", ir.Float2)
				f.Var("e", ksl.Eq(u, ksl.Consts(1, 2)))
			},
			want: "var e: bool = all(uniforms.u == vec2<f32>(1.0, 2.0));",
		},
		{
			name: "vector inequality",
			build: func(b *ksl.ProgramBuilder, f *ksl.StageBuilder) {
				u := b.Uniform("u", ir.Int3)
				f.Var("n", ksl.Ne(u, u))
			},
			want: "var n: bool = any(uniforms.u != uniforms.u);",
		},
		{
			name: "select argument order",
			build: func(_ *ksl.ProgramBuilder, f *ksl.StageBuilder) {
				f.Var("s", ksl.Select(f.FrontFacing(), ksl.Float(1), ksl.Float(-1)))
			},
			want: "var s: f32 = select(-1.0, 1.0, ksl_front_facing);",
		},
		{
			name: "clamp bounds are splatted",
			build: func(b *ksl.ProgramBuilder, f *ksl.StageBuilder) {
				f.Var("c", ksl.Saturate(b.Uniform("u", ir.Float3)))
			},
			want: "var c: vec3<f32> = clamp(uniforms.u, vec3<f32>(0.0), vec3<f32>(1.0));",
		},
		{
			name: "isInf emulation",
			build: func(b *ksl.ProgramBuilder, f *ksl.StageBuilder) {
				f.Var("r", ksl.Call(ir.BuiltinIsInf, b.Uniform("u", ir.Float1)))
			},
			want: "var r: bool = (abs(uniforms.u) > f32(3.40282347e+38));",
		},
		{
			name: "isNan emulation",
			build: func(b *ksl.ProgramBuilder, f *ksl.StageBuilder) {
				f.Var("r", ksl.Call(ir.BuiltinIsNan, b.Uniform("u", ir.Float2)))
			},
			want: "var r: vec2<bool> = (uniforms.u != uniforms.u);",
		},
		{
			name: "smoothstep spelling",
			build: func(b *ksl.ProgramBuilder, f *ksl.StageBuilder) {
				u := b.Uniform("u", ir.Float1)
				f.Var("s", ksl.SmoothStep(ksl.Float(0), u, u))
			},
			want: "var s: f32 = smoothstep(0.0, uniforms.u, uniforms.u);",
		},
		{
			name: "modulo is native",
			build: func(b *ksl.ProgramBuilder, f *ksl.StageBuilder) {
				f.Var("m", ksl.Mod(b.Uniform("u", ir.Float1), ksl.Float(3)))
			},
			want: "var m: f32 = (uniforms.u % 3.0);",
		},
		{
			name: "zero initialized local",
			build: func(_ *ksl.ProgramBuilder, f *ksl.StageBuilder) {
				f.VarOf("z", ir.Float3)
			},
			want: "var z: vec3<f32>;",
		},
		{
			name: "reserved identifier",
			build: func(b *ksl.ProgramBuilder, f *ksl.StageBuilder) {
				f.Var("v", b.Uniform("sampler", ir.Float1))
			},
			want: "var v: f32 = uniforms.sampler_;",
		},
		{
			name: "arrayed texture coordinates",
			build: func(b *ksl.ProgramBuilder, f *ksl.StageBuilder) {
				tex := b.Texture("uLayers", ir.Sampler2DArray)
				f.Var("c", ksl.Sample(tex, b.Uniform("uCoord", ir.Float3)))
			},
			want: "var c: vec4<f32> = textureSample(uLayers, uLayersSampler, uniforms.uCoord.xy, i32(uniforms.uCoord.z));",
		},
		{
			name: "explicit lod",
			build: func(b *ksl.ProgramBuilder, f *ksl.StageBuilder) {
				tex := b.Texture("uEnv", ir.SamplerCube)
				f.Var("c", ksl.SampleLod(tex, ksl.Consts(0, 1, 0), ksl.Float(2)))
			},
			want: "var c: vec4<f32> = textureSampleLevel(uEnv, uEnvSampler, vec3<f32>(0.0, 1.0, 0.0), 2.0);",
		},
		{
			name: "padded uniform array element",
			build: func(b *ksl.ProgramBuilder, f *ksl.StageBuilder) {
				w := b.UniformArray("uWeights", ir.Float1, 4)
				f.Var("w", ksl.Index(w, ksl.Int(2)))
			},
			want: "var w: f32 = uniforms.uWeights[2].x;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fragmentSource(t, tt.build)
			require.NoError(t, err)
			assert.Contains(t, got, "    "+tt.want+"\n")
		})
	}
}

func TestNegativeLiterals(t *testing.T) {
	b := ksl.NewProgram("negate")
	require.NoError(t, b.Fragment(func(f *ksl.StageBuilder) {
		nf := f.Var("nf", ksl.Neg(ksl.Float(-0.5)))
		ni := f.Var("ni", ksl.Neg(ksl.Int(-3)))
		f.Set(f.ColorOutput(0), ksl.Compose(ir.Float4, ksl.Add(nf, ksl.ToFloat(ni))))
	}))
	p, err := b.Finalize()
	require.NoError(t, err)

	got, err := Compile(p.IR(), ir.StageFragment, Options{})
	require.NoError(t, err)
	assert.Contains(t, got, "var nf: f32 = (-(-0.5));")
	assert.Contains(t, got, "var ni: i32 = (-(-3));")
	assert.NotContains(t, got, "--")
	_, err = Lower(got)
	require.NoError(t, err, got)
}

func TestStatements(t *testing.T) {
	got, err := fragmentSource(t, func(b *ksl.ProgramBuilder, f *ksl.StageBuilder) {
		n := b.Uniform("uCount", ir.Int1)
		acc := f.VarOf("acc", ir.Float1)
		f.ForRange(ksl.Int(0), n, func(s *ksl.ScopeBuilder, i *ir.Expression) {
			s.If(ksl.Gt(i, ksl.Int(4)), func(s *ksl.ScopeBuilder) {
				s.Break()
			})
			s.Set(acc, ksl.Add(acc, ksl.ToFloat(i)))
		})
		f.If(ksl.Lt(acc, ksl.Float(0.5)), func(s *ksl.ScopeBuilder) {
			s.Discard()
		})
		f.Set(f.ColorOutput(0), ksl.Compose(ir.Float4, acc))
	})
	require.NoError(t, err)
	want := `    var fragColor0: vec4<f32>;
    var acc: f32;
    for (var i: i32 = 0; i < uniforms.uCount; i += 1) {
        if (i > 4) {
            break;
        }
        acc = (acc + f32(i));
    }
    if (acc < 0.5) {
        discard;
    }
    fragColor0 = vec4<f32>(acc);
`
	assert.Contains(t, got, want)
}

func TestBuiltinInputs(t *testing.T) {
	b := ksl.NewProgram("builtins")
	require.NoError(t, b.Vertex(func(v *ksl.StageBuilder) {
		v.Set(v.Position(), ksl.Compose(ir.Float4, ksl.ToFloat(v.VertexIndex())))
	}))
	require.NoError(t, b.Compute(8, 8, 1, func(c *ksl.StageBuilder) {
		c.Var("id", c.GlobalInvocationID())
	}))
	p, err := b.Finalize()
	require.NoError(t, err)

	vs := compile(t, p.IR(), ir.StageVertex)
	assert.Contains(t, vs, "fn main(@builtin(vertex_index) ksl_vertex_index_raw: u32) -> VertexOutput {")
	assert.Contains(t, vs, "    let ksl_vertex_index = i32(ksl_vertex_index_raw);\n")

	cs := compile(t, p.IR(), ir.StageCompute)
	assert.Contains(t, cs, "@compute @workgroup_size(8, 8, 1)\n")
	assert.Contains(t, cs, "fn main(@builtin(global_invocation_id) ksl_global_invocation_id_raw: vec3<u32>) {")
	assert.Contains(t, cs, "    let ksl_global_invocation_id = vec3<i32>(ksl_global_invocation_id_raw);\n")
	assert.NotContains(t, cs, "return")
}

func TestFlatInterStage(t *testing.T) {
	b := ksl.NewProgram("flat")
	id := b.InterStage("vId", ir.Int1)
	require.NoError(t, b.Vertex(func(v *ksl.StageBuilder) {
		v.Set(id, ksl.Int(3))
	}))
	require.NoError(t, b.Fragment(func(f *ksl.StageBuilder) {
		f.Set(f.ColorOutput(0), ksl.Compose(ir.Float4, ksl.ToFloat(id)))
	}))
	p, err := b.Finalize()
	require.NoError(t, err)

	assert.Contains(t, compile(t, p.IR(), ir.StageVertex), "@location(0) @interpolate(flat) vId: i32,")
	assert.Contains(t, compile(t, p.IR(), ir.StageFragment), "fn main(@location(0) @interpolate(flat) vId: i32)")
}

func TestBufferPlacement(t *testing.T) {
	light, err := ir.NewStruct("Light", ir.StructMember{Name: "intensity", Type: ir.Float1})
	require.NoError(t, err)

	t.Run("struct padding uses explicit size", func(t *testing.T) {
		got, err := fragmentSource(t, func(b *ksl.ProgramBuilder, f *ksl.StageBuilder) {
			params := b.UniformBuffer("Params")
			params.Member("light", light)
			exposure := params.Member("exposure", ir.Float1)
			f.Set(f.ColorOutput(0), ksl.Compose(ir.Float4, exposure))
		})
		require.NoError(t, err)
		assert.Contains(t, got, "struct Light {\n    intensity: f32,\n}\n")
		assert.Contains(t, got, "struct Params {\n    @size(16) light: Light,\n    exposure: f32,\n}\n")
		assert.Contains(t, got, "@group(0) @binding(0) var<uniform> params: Params;")
	})

	t.Run("std430 uses storage", func(t *testing.T) {
		got, err := fragmentSource(t, func(b *ksl.ProgramBuilder, f *ksl.StageBuilder) {
			w := b.UniformBuffer("Weights").Policy(ir.LayoutStd430).ArrayMember("uWeights", ir.Float1, 4)
			f.Var("w", ksl.Index(w, ksl.Int(1)))
		})
		require.NoError(t, err)
		assert.Contains(t, got, "    uWeights: array<f32, 4>,\n")
		assert.Contains(t, got, "var<storage, read> weights: Weights;")
		assert.Contains(t, got, "var w: f32 = weights.uWeights[1];")
	})

	t.Run("push constants", func(t *testing.T) {
		got, err := fragmentSource(t, func(b *ksl.ProgramBuilder, f *ksl.StageBuilder) {
			tint := b.PushConstants("Push").Member("uTint", ir.Float4)
			f.Set(f.ColorOutput(0), tint)
		})
		require.NoError(t, err)
		assert.Contains(t, got, "var<push_constant> push: Push;")
	})

	t.Run("misaligned tightly packed member", func(t *testing.T) {
		_, err := fragmentSource(t, func(b *ksl.ProgramBuilder, f *ksl.StageBuilder) {
			params := b.UniformBuffer("Packed").Policy(ir.LayoutTightlyPacked)
			params.Member("a", ir.Float1)
			n := params.Member("n", ir.Float3)
			f.Set(f.ColorOutput(0), ksl.Float4(n, ksl.Float(1)))
		})
		assert.True(t, ir.IsKind(err, ir.ErrGeneratorUnsupported), "got %v", err)
	})

	t.Run("padded array read as a whole", func(t *testing.T) {
		_, err := fragmentSource(t, func(b *ksl.ProgramBuilder, f *ksl.StageBuilder) {
			w := b.UniformArray("uWeights", ir.Float1, 4)
			f.Var("copy", w)
		})
		assert.True(t, ir.IsKind(err, ir.ErrGeneratorUnsupported), "got %v", err)
	})

	t.Run("padded array indexed then read as a whole", func(t *testing.T) {
		_, err := fragmentSource(t, func(b *ksl.ProgramBuilder, f *ksl.StageBuilder) {
			w := b.UniformArray("uWeights", ir.Float1, 4)
			f.Var("second", ksl.Index(w, ksl.Int(1)))
			f.Var("copy", w)
		})
		assert.True(t, ir.IsKind(err, ir.ErrGeneratorUnsupported), "got %v", err)
	})

	t.Run("padded array indexed twice", func(t *testing.T) {
		got, err := fragmentSource(t, func(b *ksl.ProgramBuilder, f *ksl.StageBuilder) {
			w := b.UniformArray("uWeights", ir.Float1, 4)
			f.Var("first", ksl.Index(w, ksl.Int(0)))
			f.Var("sum", ksl.Add(ksl.Index(w, ksl.Int(1)), ksl.Index(w, ksl.Int(2))))
		})
		require.NoError(t, err)
		assert.Contains(t, got, "uWeights: array<vec4<f32>, 4>,")
		_, err = Lower(got)
		require.NoError(t, err, got)
	})

	t.Run("std140 mat2", func(t *testing.T) {
		_, err := fragmentSource(t, func(b *ksl.ProgramBuilder, f *ksl.StageBuilder) {
			m := b.Uniform("uRot", ir.Mat2)
			f.Var("r", ksl.Mul(m, ksl.Consts(1, 0)))
		})
		assert.True(t, ir.IsKind(err, ir.ErrGeneratorUnsupported), "got %v", err)
	})
}

func TestUnsupported(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *ksl.ProgramBuilder, f *ksl.StageBuilder)
	}{
		{
			name: "inverse",
			build: func(b *ksl.ProgramBuilder, f *ksl.StageBuilder) {
				f.Var("m", ksl.Call(ir.BuiltinInverse, b.Uniform("u", ir.Mat4)))
			},
		},
		{
			name: "multi-component swizzle assignment",
			build: func(_ *ksl.ProgramBuilder, f *ksl.StageBuilder) {
				v := f.VarOf("v", ir.Float4)
				f.Set(ksl.Swizzle(v, "xy"), ksl.Consts(1, 2))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fragmentSource(t, tt.build)
			assert.True(t, ir.IsKind(err, ir.ErrGeneratorUnsupported), "got %v", err)
		})
	}
}

func TestEscapeName(t *testing.T) {
	assert.Equal(t, "fn_", escapeName("fn"))
	assert.Equal(t, "vec3_", escapeName("vec3"))
	assert.Equal(t, "v__tmp", escapeName("__tmp"))
	assert.Equal(t, "color", escapeName("color"))
	assert.False(t, strings.HasPrefix(escapeName("__x"), "__"))
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "1.0", formatFloat(1))
	assert.Equal(t, "0.5", formatFloat(0.5))
	assert.Equal(t, "1.0e+20", formatFloat(1e20))
}
