// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package glsl provides a GLSL (OpenGL Shading Language) generator for KSL
// programs.
//
// The generator implements [gen.Generator] and supports several GLSL
// versions:
//
//   - GLSL 3.30 Core: Desktop OpenGL 3.3+
//   - GLSL ES 3.00: WebGL 2.0, Mobile OpenGL ES 3.0
//   - GLSL 4.50 Core: Desktop OpenGL 4.5 with explicit bindings and compute
//
// # Basic Usage
//
//	source, err := glsl.Compile(prog.IR(), ir.StageFragment, glsl.DefaultOptions())
//
// # Uniform Buffers
//
// Std140 buffers become instance-less `layout(std140) uniform` blocks, so
// members are referenced by their own names. Std430 buffers become
// read-only storage blocks and require GLSL 4.30 or ES 3.10. Tightly packed
// buffers have no GLSL block layout and are rejected.
//
// # Reserved Words
//
// Identifiers that collide with GLSL reserved words or use the reserved
// gl_ prefix are escaped with an underscore prefix.
package glsl
