// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package ksl builds shader programs as typed expression and statement
// graphs.
//
// A [ProgramBuilder] collects uniform, texture and vertex attribute
// declarations, inter-stage variables and one or more stages. Stage bodies
// are written with a [ScopeBuilder]:
//
//	b := ksl.NewProgram("flat")
//	mvp := b.Uniform("uMvp", ir.Mat4)
//	color := b.Uniform("uColor", ir.Float4)
//	pos := b.Attribute("aPosition", ir.Float3)
//
//	b.Vertex(func(v *ksl.StageBuilder) {
//	    v.Set(v.Position(), ksl.Mul(mvp, ksl.Float4(pos, ksl.Float(1))))
//	})
//	b.Fragment(func(f *ksl.StageBuilder) {
//	    f.Set(f.ColorOutput(0), color)
//	})
//	prog, err := b.Finalize()
//
// Expression helpers such as [Add] and [Dot] panic with an [*ir.Error] on
// ill-typed operands. Stage entry points recover the panic and record the
// error; [ProgramBuilder.Finalize] returns the first recorded error, so a
// failed construction never yields a partial program.
//
// A finalized [Program] is immutable and may be shared by goroutines, for
// example to generate code for several backends at once. Code generation
// lives in the gen, glsl and wgsl packages; memory layout in layout.
package ksl
