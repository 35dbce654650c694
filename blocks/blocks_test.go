// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package blocks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/ksl"
	"github.com/gogpu/ksl/glsl"
	"github.com/gogpu/ksl/ir"
	"github.com/gogpu/ksl/wgsl"
)

// litProgram builds a normal mapped PBR program lit by at most maxLights
// scene lights.
func litProgram(t *testing.T, maxLights uint32) (*ksl.Program, *SceneLightData) {
	t.Helper()
	b := ksl.NewProgram("lit")
	lights, err := AddSceneLightData(b, maxLights)
	require.NoError(t, err)

	mvp := b.Uniform("uMvp", ir.Mat4)
	camPos := b.Uniform("uCameraPos", ir.Float3)
	normalMap := b.Texture("tNormal", ir.Sampler2D)
	pos := b.Attribute("aPos", ir.Float3)
	nrm := b.Attribute("aNormal", ir.Float3)
	tan := b.Attribute("aTangent", ir.Float4)
	uv := b.Attribute("aUv", ir.Float2)
	vPos := b.InterStage("vPos", ir.Float3)
	vNormal := b.InterStage("vNormal", ir.Float3)
	vTangent := b.InterStage("vTangent", ir.Float4)
	vUv := b.InterStage("vUv", ir.Float2)

	require.NoError(t, b.Vertex(func(v *ksl.StageBuilder) {
		v.Set(v.Position(), ksl.Mul(mvp, ksl.Float4(pos, ksl.Float(1))))
		v.Set(vPos, pos)
		v.Set(vNormal, nrm)
		v.Set(vTangent, tan)
		v.Set(vUv, uv)
	}))
	require.NoError(t, b.Fragment(func(f *ksl.StageBuilder) {
		bump := NormalMap(f.ScopeBuilder, normalMap).
			MustBind(NormalMapNormal, vNormal).
			MustBind(NormalMapTangent, vTangent).
			MustBind(NormalMapTexCoord, vUv)
		mat := PbrMaterial(f.ScopeBuilder, lights).
			MustBind(PbrCameraPos, camPos).
			MustBind(PbrFragPos, vPos).
			MustBind(PbrNormal, bump.Output(NormalMapOutput)).
			MustBind(PbrBaseColor, ksl.Consts(0.8, 0.2, 0.2)).
			MustBind(PbrMetallic, ksl.Float(0.1))
		f.Set(f.ColorOutput(0), ksl.Float4(mat.Output(PbrOutput), ksl.Float(1)))
	}))
	p, err := b.Finalize()
	require.NoError(t, err)
	return p, lights
}

func TestSceneLightData_Declarations(t *testing.T) {
	p, lights := litProgram(t, 4)
	assert.Equal(t, uint32(4), lights.MaxLights)

	for _, name := range []string{UniformLightPositions, UniformLightDirections, UniformLightColors} {
		d, ok := p.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, ir.DeclUniform, d.Kind)
		assert.Equal(t, ir.Type(ir.Float4), d.Type)
		assert.Equal(t, uint32(4), d.ArrayLen)
		assert.True(t, d.Stages.Has(ir.StageFragment))
	}
	d, ok := p.Lookup(UniformLightCount)
	require.True(t, ok)
	assert.Equal(t, ir.Type(ir.Int1), d.Type)

	db, ok := p.DataBlock(SceneLightDataName)
	require.True(t, ok)
	assert.Same(t, lights, db)
}

func TestSceneLightData_Reused(t *testing.T) {
	b := ksl.NewProgram("reuse")
	first, err := AddSceneLightData(b, 4)
	require.NoError(t, err)
	second, err := AddSceneLightData(b, 8)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, uint32(4), second.MaxLights)

	_, err = AddSceneLightData(ksl.NewProgram("none"), 0)
	assert.True(t, ir.IsKind(err, ir.ErrInvalidArgument))
}

func TestSceneLightData_EarlierBuilderError(t *testing.T) {
	b := ksl.NewProgram("broken")
	b.Attribute("aBad", ir.Mat4)
	prior := b.Err()
	require.Error(t, prior)

	_, err := AddSceneLightData(b, 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, prior)
	assert.Contains(t, err.Error(), "already failed")
	_, ok := b.DataBlock(SceneLightDataName)
	assert.False(t, ok)
}

func TestSceneLightData_DrawUpdate(t *testing.T) {
	p, _ := litProgram(t, 2)
	hp, err := ksl.NewHostPipeline(p)
	require.NoError(t, err)

	lights := []ksl.Light{
		{Position: [4]float32{1, 2, 3, 1}, Color: [4]float32{1, 1, 1, 5}},
		{Direction: [4]float32{0, -1, 0, 0}, Color: [4]float32{1, 0.9, 0.8, 1}},
		{Position: [4]float32{9, 9, 9, 1}},
	}
	require.NoError(t, hp.Draw(lights))

	count, err := hp.Uniform(UniformLightCount)
	require.NoError(t, err)
	got, err := count.Ints(0)
	require.NoError(t, err)
	assert.Equal(t, []int32{2}, got, "light count is clamped")

	positions, err := hp.Uniform(UniformLightPositions)
	require.NoError(t, err)
	pos, err := positions.Floats(0)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 1}, pos)

	directions, err := hp.Uniform(UniformLightDirections)
	require.NoError(t, err)
	dir, err := directions.Floats(1)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, -1, 0, 0}, dir)

	colors, err := hp.Uniform(UniformLightColors)
	require.NoError(t, err)
	col, err := colors.Floats(1)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0.9, 0.8, 1}, col)

	require.NoError(t, hp.Draw(nil))
	got, err = count.Ints(0)
	require.NoError(t, err)
	assert.Equal(t, []int32{0}, got)
}

func TestSceneLightData_UnknownPipeline(t *testing.T) {
	_, lights := litProgram(t, 2)
	assert.NoError(t, lights.OnDrawUpdate(&ksl.DrawContext{Lights: []ksl.Light{{}}}))
}

func TestLitProgram_Generates(t *testing.T) {
	p, _ := litProgram(t, 4)

	out, err := glsl.CompileAll(p.IR(), glsl.DefaultOptions())
	require.NoError(t, err)
	frag := out[ir.StageFragment]
	assert.Contains(t, frag, "sampler2D tNormal;")
	assert.Contains(t, frag, "uLightPositions[")
	assert.Contains(t, frag, "for (int ")

	src, err := wgsl.Compile(p.IR(), ir.StageFragment, wgsl.DefaultOptions())
	require.NoError(t, err)
	assert.Contains(t, src, "uniforms.uLightCount")
	_, err = wgsl.Lower(src)
	require.NoError(t, err, src)
}

func TestNormalMap_PassThrough(t *testing.T) {
	b := ksl.NewProgram("flat")
	vNormal := b.InterStage("vNormal", ir.Float3)
	require.NoError(t, b.Fragment(func(f *ksl.StageBuilder) {
		blk := NormalMap(f.ScopeBuilder, nil).
			MustBind(NormalMapNormal, vNormal).
			MustBind(NormalMapTangent, ksl.Consts(1, 0, 0, 1)).
			MustBind(NormalMapTexCoord, ksl.Consts(0, 0))
		f.Set(f.ColorOutput(0), ksl.Float4(blk.Output(NormalMapOutput), ksl.Float(1)))
	}))
	p, err := b.Finalize()
	require.NoError(t, err)
	assert.Empty(t, p.IR().Textures)
}

func TestPbrMaterial_UnboundInput(t *testing.T) {
	b := ksl.NewProgram("unbound")
	lights, err := AddSceneLightData(b, 1)
	require.NoError(t, err)
	require.NoError(t, b.Fragment(func(f *ksl.StageBuilder) {
		mat := PbrMaterial(f.ScopeBuilder, lights)
		f.Set(f.ColorOutput(0), ksl.Float4(mat.Output(PbrOutput), ksl.Float(1)))
	}))
	_, err = b.Finalize()
	assert.True(t, ir.IsKind(err, ir.ErrUnboundInput))
}
