// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package wgsl generates WGSL (WebGPU Shading Language) from KSL programs.
//
// WGSL is the shader language for WebGPU, designed to be portable
// and map well to modern GPU APIs like Vulkan, Metal, and DX12.
//
// Each stage becomes a module with a single entry point named "main".
// Stage inputs are entry point parameters, stage outputs are collected in
// a struct returned by the entry point, and uniform buffers are module
// scope variables of a struct type that mirrors the host layout computed
// by the layout package.
//
// # Usage
//
//	src, err := wgsl.Compile(program.IR(), ir.StageFragment, wgsl.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// The generated module can be handed to the naga compiler:
//
//	spv, err := wgsl.CompileSPIRV(program.IR(), ir.StageFragment, wgsl.DefaultOptions())
//	msl, err := wgsl.CompileMSL(program.IR(), ir.StageFragment, wgsl.DefaultOptions())
//
// # Bindings
//
// Uniform buffers and textures use group 0 and the binding slots assigned
// by the program. WGSL separates textures from samplers: the sampler of a
// texture uses group [SamplerGroup] and the binding slot of its texture.
// Push constants use the push_constant address space.
//
// # Limitations
//
//   - Inverse matrices have no WGSL builtin.
//   - Multi-component swizzles cannot be assigned.
//   - std140 arrays of scalars and 2-component vectors are declared as
//     arrays of 4-component vectors and may only be indexed.
//   - Members whose host placement cannot be expressed with WGSL alignment
//     rules (e.g. a tightly packed vec3 at offset 4) are rejected.
package wgsl
