// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ksl_test

import (
	"runtime"
	"testing"

	"github.com/gogpu/ksl"
	"github.com/gogpu/ksl/glsl"
	"github.com/gogpu/ksl/internal/demo"
	"github.com/gogpu/ksl/ir"
	"github.com/gogpu/ksl/layout"
	"github.com/gogpu/ksl/wgsl"
)

var benchOptions = demo.Options{MaxLights: 4}

func buildProgram(b *testing.B, name string) *ksl.Program {
	b.Helper()
	p, err := demo.Build(name, benchOptions)
	if err != nil {
		b.Fatalf("build %s: %v", name, err)
	}
	return p
}

// ---------------------------------------------------------------------------
// Front end: building and finalizing programs
// ---------------------------------------------------------------------------

// BenchmarkBuild benchmarks building and finalizing each sample program.
func BenchmarkBuild(b *testing.B) {
	for _, name := range demo.Names() {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			var p *ksl.Program
			for i := 0; i < b.N; i++ {
				var err error
				p, err = demo.Build(name, benchOptions)
				if err != nil {
					b.Fatalf("build failed: %v", err)
				}
			}
			runtime.KeepAlive(p)
		})
	}
}

// ---------------------------------------------------------------------------
// Generators: same program emitted by each backend
// ---------------------------------------------------------------------------

// BenchmarkGenerate benchmarks source generation of the lit program, the
// largest sample, for every text target.
func BenchmarkGenerate(b *testing.B) {
	p := buildProgram(b, "lit").IR()
	targets := []struct {
		name string
		fn   func() (map[ir.ShaderStage]string, error)
	}{
		{"glsl", func() (map[ir.ShaderStage]string, error) { return glsl.CompileAll(p, glsl.DefaultOptions()) }},
		{"wgsl", func() (map[ir.ShaderStage]string, error) { return wgsl.CompileAll(p, wgsl.DefaultOptions()) }},
	}
	for _, tc := range targets {
		b.Run(tc.name, func(b *testing.B) {
			b.ReportAllocs()
			var out map[ir.ShaderStage]string
			for i := 0; i < b.N; i++ {
				var err error
				out, err = tc.fn()
				if err != nil {
					b.Fatalf("generate failed: %v", err)
				}
			}
			runtime.KeepAlive(out)
		})
	}
}

// BenchmarkCompileSPIRV benchmarks the full path from a finalized program
// through WGSL to a SPIR-V binary.
func BenchmarkCompileSPIRV(b *testing.B) {
	p := buildProgram(b, "lit").IR()
	b.ReportAllocs()
	var spv []byte
	for i := 0; i < b.N; i++ {
		var err error
		spv, err = wgsl.CompileSPIRV(p, ir.StageFragment, wgsl.Options{FoldConstants: true})
		if err != nil {
			b.Fatalf("compile failed: %v", err)
		}
	}
	runtime.KeepAlive(spv)
}

// ---------------------------------------------------------------------------
// Layout engine and host buffers
// ---------------------------------------------------------------------------

// BenchmarkComputeBuffer benchmarks layout computation of every uniform
// buffer of the sample programs.
func BenchmarkComputeBuffer(b *testing.B) {
	var buffers []*ir.UniformBuffer
	for _, name := range demo.Names() {
		buffers = append(buffers, buildProgram(b, name).IR().Buffers...)
	}
	b.ReportAllocs()
	b.ResetTimer()
	var l *layout.Layout
	for i := 0; i < b.N; i++ {
		for _, ub := range buffers {
			var err error
			l, err = layout.ComputeBuffer(ub)
			if err != nil {
				b.Fatalf("layout failed: %v", err)
			}
		}
	}
	runtime.KeepAlive(l)
}

// BenchmarkDrawUpdate benchmarks one draw of the lit program, which
// rewrites the scene light uniforms through its data block.
func BenchmarkDrawUpdate(b *testing.B) {
	hp, err := ksl.NewHostPipeline(buildProgram(b, "lit"))
	if err != nil {
		b.Fatalf("pipeline: %v", err)
	}
	lights := make([]ksl.Light, benchOptions.MaxLights)
	for i := range lights {
		lights[i].Position = [4]float32{float32(i), 2, 3, 1}
		lights[i].Color = [4]float32{1, 1, 1, 10}
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := hp.Draw(lights); err != nil {
			b.Fatalf("draw failed: %v", err)
		}
	}
}
