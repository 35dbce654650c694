// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package demo builds the sample programs compiled by kslc.
package demo

import (
	"fmt"
	"sort"

	"github.com/gogpu/ksl"
	"github.com/gogpu/ksl/blocks"
	"github.com/gogpu/ksl/ir"
)

// Options configures the sample programs.
type Options struct {
	// MaxLights bounds the scene lights of lit programs.
	MaxLights uint32
}

type builder func(opts Options) (*ksl.Program, error)

var programs = map[string]builder{
	"textured":  textured,
	"lit":       lit,
	"particles": particles,
}

// Names returns the names of the sample programs in sorted order.
func Names() []string {
	names := make([]string, 0, len(programs))
	for name := range programs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build builds the named sample program.
func Build(name string, opts Options) (*ksl.Program, error) {
	fn, ok := programs[name]
	if !ok {
		return nil, fmt.Errorf("demo: unknown program %q", name)
	}
	p, err := fn(opts)
	if err != nil {
		return nil, fmt.Errorf("demo: %s: %w", name, err)
	}
	return p, nil
}

// textured draws a mesh with a tinted texture.
func textured(Options) (*ksl.Program, error) {
	b := ksl.NewProgram("textured")
	mvp := b.Uniform("uMvp", ir.Mat4)
	tint := b.Uniform("uTint", ir.Float4)
	tex := b.Texture("tAlbedo", ir.Sampler2D)
	pos := b.Attribute("aPos", ir.Float3)
	uv := b.Attribute("aUv", ir.Float2)
	vUv := b.InterStage("vUv", ir.Float2)

	if err := b.Vertex(func(v *ksl.StageBuilder) {
		v.Set(v.Position(), ksl.Mul(mvp, ksl.Float4(pos, ksl.Float(1))))
		v.Set(vUv, uv)
	}); err != nil {
		return nil, err
	}
	if err := b.Fragment(func(f *ksl.StageBuilder) {
		color := f.Var("color", ksl.Mul(ksl.Sample(tex, vUv), tint))
		f.If(ksl.Lt(ksl.Swizzle(color, "a"), ksl.Float(0.01)), func(s *ksl.ScopeBuilder) {
			s.Discard()
		})
		f.Set(f.ColorOutput(0), color)
	}); err != nil {
		return nil, err
	}
	return b.Finalize()
}

// lit shades a normal mapped mesh with the PBR material block.
func lit(opts Options) (*ksl.Program, error) {
	b := ksl.NewProgram("lit")
	lights, err := blocks.AddSceneLightData(b, opts.MaxLights)
	if err != nil {
		return nil, err
	}
	model := b.Uniform("uModel", ir.Mat4)
	viewProj := b.Uniform("uViewProj", ir.Mat4)
	camPos := b.Uniform("uCameraPos", ir.Float3)
	material := b.Uniform("uMaterial", ir.Float4)
	albedo := b.Texture("tAlbedo", ir.Sampler2D)
	normalMap := b.Texture("tNormal", ir.Sampler2D)
	pos := b.Attribute("aPos", ir.Float3)
	nrm := b.Attribute("aNormal", ir.Float3)
	tan := b.Attribute("aTangent", ir.Float4)
	uv := b.Attribute("aUv", ir.Float2)
	vPos := b.InterStage("vWorldPos", ir.Float3)
	vNormal := b.InterStage("vNormal", ir.Float3)
	vTangent := b.InterStage("vTangent", ir.Float4)
	vUv := b.InterStage("vUv", ir.Float2)

	if err := b.Vertex(func(v *ksl.StageBuilder) {
		world := v.Var("world", ksl.Mul(model, ksl.Float4(pos, ksl.Float(1))))
		v.Set(v.Position(), ksl.Mul(viewProj, world))
		v.Set(vPos, ksl.Swizzle(world, "xyz"))
		v.Set(vNormal, ksl.Swizzle(ksl.Mul(model, ksl.Float4(nrm, ksl.Float(0))), "xyz"))
		tangent := ksl.Swizzle(ksl.Mul(model, ksl.Float4(ksl.Swizzle(tan, "xyz"), ksl.Float(0))), "xyz")
		v.Set(vTangent, ksl.Float4(tangent, ksl.Swizzle(tan, "w")))
		v.Set(vUv, uv)
	}); err != nil {
		return nil, err
	}
	if err := b.Fragment(func(f *ksl.StageBuilder) {
		baseColor := f.Var("baseColor", ksl.Sample(albedo, vUv))
		bump := blocks.NormalMap(f.ScopeBuilder, normalMap).
			MustBind(blocks.NormalMapNormal, vNormal).
			MustBind(blocks.NormalMapTangent, vTangent).
			MustBind(blocks.NormalMapTexCoord, vUv).
			MustBind(blocks.NormalMapStrength, ksl.Swizzle(material, "z"))
		pbr := blocks.PbrMaterial(f.ScopeBuilder, lights).
			MustBind(blocks.PbrCameraPos, camPos).
			MustBind(blocks.PbrFragPos, vPos).
			MustBind(blocks.PbrNormal, bump.Output(blocks.NormalMapOutput)).
			MustBind(blocks.PbrBaseColor, ksl.Swizzle(baseColor, "rgb")).
			MustBind(blocks.PbrRoughness, ksl.Swizzle(material, "x")).
			MustBind(blocks.PbrMetallic, ksl.Swizzle(material, "y"))
		f.Set(f.ColorOutput(0), ksl.Float4(pbr.Output(blocks.PbrOutput), ksl.Swizzle(baseColor, "a")))
	}); err != nil {
		return nil, err
	}
	return b.Finalize()
}

// particleCount is the number of particles simulated by one dispatch.
const particleCount = 256

// particles integrates one step of particle motion in a compute shader
// reading the particle state from a storage buffer.
func particles(Options) (*ksl.Program, error) {
	b := ksl.NewProgram("particles")
	state := b.UniformBuffer("Particles").Policy(ir.LayoutStd430)
	positions := state.ArrayMember("uPositions", ir.Float4, particleCount)
	velocities := state.ArrayMember("uVelocities", ir.Float4, particleCount)
	push := b.PushConstants("StepParams")
	dt := push.Member("uDeltaTime", ir.Float1)
	gravity := push.Member("uGravity", ir.Float3)

	if err := b.Compute(64, 1, 1, func(c *ksl.StageBuilder) {
		i := c.Var("index", ksl.Swizzle(c.GlobalInvocationID(), "x"))
		c.If(ksl.Lt(i, ksl.Int(particleCount)), func(s *ksl.ScopeBuilder) {
			vel := s.Var("velocity", ksl.Add(ksl.Swizzle(ksl.Index(velocities, i), "xyz"), ksl.Mul(gravity, dt)))
			pos := ksl.Swizzle(ksl.Index(positions, i), "xyz")
			s.Var("next", ksl.Add(pos, ksl.Mul(vel, dt)))
		})
	}); err != nil {
		return nil, err
	}
	return b.Finalize()
}
