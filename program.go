// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ksl

import (
	"errors"
	"sort"
	"sync"

	"github.com/gogpu/ksl/ir"
	"github.com/gogpu/ksl/layout"
)

// Finalize validates the program and returns its immutable form. The
// builder cannot be used afterwards.
func (b *ProgramBuilder) Finalize() (*Program, error) {
	if !b.check("finalize") {
		return nil, b.err
	}
	if b.err != nil {
		return nil, b.err
	}
	if b.current != nil {
		return nil, b.setErr(ir.Errorf(ir.ErrInvalidArgument, "program %s finalized while a stage is being built", b.name))
	}
	if len(b.stages) == 0 {
		return nil, b.setErr(ir.Errorf(ir.ErrInvalidArgument, "program %s has no stages", b.name))
	}
	for _, blk := range b.blocks {
		if err := blk.resolve(); err != nil {
			return nil, b.setErr(err)
		}
	}

	// Uniform buffers take bindings 0..n-1 in declaration order, textures
	// follow. Push constants have no binding.
	var buffers []*ir.UniformBuffer
	binding := 0
	for _, ub := range b.buffers {
		if len(ub.buf.Members) == 0 {
			return nil, b.setErr(ir.Errorf(ir.ErrInvalidArgument, "uniform buffer %s has no members", ub.buf.Name))
		}
		if _, err := layout.ComputeBuffer(ub.buf); err != nil {
			return nil, b.setErr(err)
		}
		if ub.buf.PushConstant {
			ub.buf.Binding = -1
		} else {
			ub.buf.Binding = binding
			binding++
		}
		buffers = append(buffers, ub.buf)
	}
	for _, t := range b.textures {
		t.Binding = binding
		binding++
	}

	var outputs []*ir.Variable
	for _, v := range b.outputs {
		outputs = append(outputs, v)
	}
	sort.Slice(outputs, func(i, j int) bool { return outputs[i].Location < outputs[j].Location })

	stages := make([]*ir.Stage, len(b.stages))
	for i, st := range b.stages {
		stages[i] = &ir.Stage{Kind: st.kind, Body: st.body, Workgroup: st.workgroup, Uses: st.uses}
	}
	sort.SliceStable(stages, func(i, j int) bool { return stages[i].Kind < stages[j].Kind })

	p, err := ir.NewProgram(b.name, stages, buffers, b.textures, b.attributes, b.interStage, outputs, b.names)
	if err != nil {
		return nil, b.setErr(err)
	}
	b.finalized = true
	Logger().Debug("ksl: program finalized", "program", b.name,
		"stages", len(stages), "buffers", len(buffers), "textures", len(b.textures), "blocks", len(b.blocks))
	return &Program{
		ir:         p,
		dataBlocks: append([]DataBlock(nil), b.dataBlocks...),
		listeners:  append([]Listener(nil), b.listeners...),
	}, nil
}

func (b *ProgramBuilder) setErr(err error) error {
	b.fail(err)
	return err
}

// Program is a finalized, immutable program. It is safe for concurrent
// reads; lifecycle notifications are serialized.
type Program struct {
	ir         *ir.Program
	dataBlocks []DataBlock
	listeners  []Listener

	mu sync.Mutex
}

// IR returns the finalized program graph consumed by generators.
func (p *Program) IR() *ir.Program { return p.ir }

// Name returns the program name.
func (p *Program) Name() string { return p.ir.Name }

// Lookup returns the uniform, texture or attribute declaration with the given name.
func (p *Program) Lookup(name string) (*ir.Declaration, bool) { return p.ir.Lookup(name) }

// Declarations returns every declaration sorted by name.
func (p *Program) Declarations() []*ir.Declaration { return p.ir.Declarations() }

// DataBlocks returns the registered data blocks.
func (p *Program) DataBlocks() []DataBlock { return append([]DataBlock(nil), p.dataBlocks...) }

// DataBlock returns the data block with the given name.
func (p *Program) DataBlock(name string) (DataBlock, bool) {
	return findDataBlock(p.dataBlocks, name)
}

// Light is the host-side description of one scene light.
type Light struct {
	// Position is the world position; W is 0 for directional lights.
	Position  [4]float32
	Direction [4]float32
	// Color is linear RGB with the intensity in A.
	Color [4]float32
}

// DrawContext carries per-draw state to listeners.
type DrawContext struct {
	Pipeline Pipeline
	Frame    uint64
	Lights   []Light
}

// Pipeline is a concrete backend pipeline created from a program, with its
// binding slots resolved.
type Pipeline interface {
	// Uniform returns a handle to update the named uniform.
	Uniform(name string) (*UniformRef, error)
}

// Listener is notified at the two lifecycle points of a program: once
// when a pipeline is created and once per draw command.
type Listener interface {
	OnPipelineCreated(p *Program, pipe Pipeline) error
	OnDrawUpdate(dc *DrawContext) error
}

// NotifyPipelineCreated calls OnPipelineCreated on every listener in
// registration order. Errors are joined; all listeners are called.
func (p *Program) NotifyPipelineCreated(pipe Pipeline) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	for _, l := range p.listeners {
		if err := l.OnPipelineCreated(p, pipe); err != nil {
			Logger().Warn("ksl: pipeline listener failed", "program", p.ir.Name, "err", err)
			errs = append(errs, err)
		}
	}
	Logger().Debug("ksl: pipeline created", "program", p.ir.Name, "listeners", len(p.listeners))
	return errors.Join(errs...)
}

// NotifyDrawUpdate calls OnDrawUpdate on every listener in registration
// order. It is called once per draw command, before submission.
func (p *Program) NotifyDrawUpdate(dc *DrawContext) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	for _, l := range p.listeners {
		if err := l.OnDrawUpdate(dc); err != nil {
			Logger().Warn("ksl: draw listener failed", "program", p.ir.Name, "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
