// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ksl

import (
	"github.com/gogpu/ksl/ir"
	"github.com/gogpu/ksl/layout"
)

// UniformRef updates one uniform inside a host buffer.
type UniformRef struct {
	Decl   *ir.Declaration
	buffer *layout.Buffer
}

// SetFloats writes the components of element index. Non-array uniforms use
// index 0.
func (u *UniformRef) SetFloats(index uint32, values ...float32) error {
	return u.buffer.SetFloats(u.Decl.Name, index, values...)
}

// SetInts writes the int components of element index.
func (u *UniformRef) SetInts(index uint32, values ...int32) error {
	return u.buffer.SetInts(u.Decl.Name, index, values...)
}

// Floats reads the float components of element index.
func (u *UniformRef) Floats(index uint32) ([]float32, error) {
	return u.buffer.Floats(u.Decl.Name, index)
}

// Ints reads the int components of element index.
func (u *UniformRef) Ints(index uint32) ([]int32, error) {
	return u.buffer.Ints(u.Decl.Name, index)
}

// HostPipeline is a [Pipeline] that keeps every uniform buffer of a program
// in host memory, packed with the buffer's layout policy. Backends upload
// Buffer(name).Data; tests read it back.
type HostPipeline struct {
	prog    *Program
	buffers map[*ir.UniformBuffer]*layout.Buffer
	frame   uint64
}

// NewHostPipeline creates the host buffers of p and notifies the program's
// listeners that a pipeline was created.
func NewHostPipeline(p *Program) (*HostPipeline, error) {
	hp := &HostPipeline{prog: p, buffers: make(map[*ir.UniformBuffer]*layout.Buffer)}
	for _, ub := range p.ir.Buffers {
		l, err := layout.ComputeBuffer(ub)
		if err != nil {
			return nil, err
		}
		hp.buffers[ub] = layout.NewBuffer(l)
		Logger().Debug("ksl: host buffer", "buffer", ub.Name, "policy", l.Policy.Name(), "size", l.Size)
	}
	if err := p.NotifyPipelineCreated(hp); err != nil {
		return nil, err
	}
	return hp, nil
}

// Program returns the program the pipeline was created from.
func (hp *HostPipeline) Program() *Program { return hp.prog }

// Buffer returns the host buffer of the named uniform buffer.
func (hp *HostPipeline) Buffer(name string) (*layout.Buffer, bool) {
	ub, ok := hp.prog.ir.Buffer(name)
	if !ok {
		return nil, false
	}
	return hp.buffers[ub], true
}

// Uniform implements [Pipeline].
func (hp *HostPipeline) Uniform(name string) (*UniformRef, error) {
	d, ok := hp.prog.ir.Lookup(name)
	if !ok {
		return nil, ir.Errorf(ir.ErrInvalidArgument, "program %s has no declaration %q", hp.prog.ir.Name, name)
	}
	if d.Kind != ir.DeclUniform {
		return nil, ir.Errorf(ir.ErrInvalidArgument, "%s is a %s, not a uniform", name, d.Kind)
	}
	return &UniformRef{Decl: d, buffer: hp.buffers[d.Var.Buffer]}, nil
}

// Draw notifies listeners of a draw command with the given lights and
// advances the frame counter.
func (hp *HostPipeline) Draw(lights []Light) error {
	hp.frame++
	return hp.prog.NotifyDrawUpdate(&DrawContext{Pipeline: hp, Frame: hp.frame, Lights: lights})
}
