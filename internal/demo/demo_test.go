// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package demo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/ksl/glsl"
	"github.com/gogpu/ksl/ir"
	"github.com/gogpu/ksl/wgsl"
)

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"lit", "particles", "textured"}, Names())
}

func TestBuild_Unknown(t *testing.T) {
	_, err := Build("missing", Options{MaxLights: 4})
	assert.Error(t, err)
}

func TestBuild_All(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			p, err := Build(name, Options{MaxLights: 4})
			require.NoError(t, err)
			assert.Equal(t, name, p.Name())

			out, err := wgsl.CompileAll(p.IR(), wgsl.DefaultOptions())
			require.NoError(t, err)
			assert.Len(t, out, len(p.IR().Stages))
		})
	}
}

func TestBuild_RenderProgramsLower(t *testing.T) {
	for _, name := range []string{"textured", "lit"} {
		t.Run(name, func(t *testing.T) {
			p, err := Build(name, Options{MaxLights: 2})
			require.NoError(t, err)

			_, err = glsl.CompileAll(p.IR(), glsl.DefaultOptions())
			require.NoError(t, err)

			out, err := wgsl.CompileAll(p.IR(), wgsl.DefaultOptions())
			require.NoError(t, err)
			for stage, src := range out {
				_, err := wgsl.Lower(src)
				require.NoError(t, err, "%s stage:\n%s", stage, src)
			}
		})
	}
}

func TestParticles_Resources(t *testing.T) {
	p, err := Build("particles", Options{})
	require.NoError(t, err)
	require.Len(t, p.IR().Stages, 1)
	assert.Equal(t, ir.StageCompute, p.IR().Stages[0].Kind)

	src, err := wgsl.Compile(p.IR(), ir.StageCompute, wgsl.DefaultOptions())
	require.NoError(t, err)
	assert.Contains(t, src, "var<storage, read> particles: Particles;")
	assert.Contains(t, src, "var<push_constant> stepParams: StepParams;")
	assert.Contains(t, src, "@compute @workgroup_size(64, 1, 1)")
}

func TestLit_MaxLights(t *testing.T) {
	_, err := Build("lit", Options{})
	assert.Error(t, err)

	p, err := Build("lit", Options{MaxLights: 8})
	require.NoError(t, err)
	d, ok := p.Lookup("uLightColors")
	require.True(t, ok)
	assert.Equal(t, uint32(8), d.ArrayLen)
}
