// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package binding derives WebGPU resource layouts from finalized KSL
// programs.
//
// The layouts match the WGSL emitted by package wgsl: buffers and
// textures share bind group 0 and the sampler of a texture lives in bind
// group 1 at the binding slot of its texture. Push constant buffers are
// described by a PushConstantRange instead of a bind group entry.
package binding

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/ksl/ir"
	"github.com/gogpu/ksl/layout"
)

// Bind groups used by generated WGSL.
const (
	ResourceGroup = 0
	SamplerGroup  = 1
)

// Layout holds the resource layout of a program.
type Layout struct {
	// Groups holds the bind group layout entries by group index.
	Groups [2][]gputypes.BindGroupLayoutEntry
	// PushConstants holds one range per push constant buffer.
	PushConstants []gputypes.PushConstantRange
	// Vertex is the layout of the interleaved vertex buffer. It is nil
	// when the program declares no attributes.
	Vertex *gputypes.VertexBufferLayout
}

// Descriptors returns the bind group layout descriptors labelled after
// the program. Empty groups are omitted.
func (l *Layout) Descriptors(label string) []gputypes.BindGroupLayoutDescriptor {
	var out []gputypes.BindGroupLayoutDescriptor
	names := [2]string{"resources", "samplers"}
	for i, entries := range l.Groups {
		if len(entries) == 0 {
			continue
		}
		out = append(out, gputypes.BindGroupLayoutDescriptor{
			Label:   label + "_" + names[i],
			Entries: entries,
		})
	}
	return out
}

// For derives the resource layout of p.
func For(p *ir.Program) (*Layout, error) {
	l := &Layout{}
	all := visibilityOf(p, allStages(p))
	var pushOffset uint32
	for _, ub := range p.Buffers {
		bl, err := layout.ComputeBuffer(ub)
		if err != nil {
			return nil, fmt.Errorf("binding: buffer %s: %w", ub.Name, err)
		}
		vis := visibilityOf(p, bufferStages(p, ub))
		if vis == gputypes.ShaderStageNone {
			vis = all
		}
		if ub.PushConstant {
			start := layout.AlignUp(pushOffset, 4)
			l.PushConstants = append(l.PushConstants, gputypes.PushConstantRange{
				Stages: vis,
				Start:  start,
				End:    start + bl.Size,
			})
			pushOffset = start + bl.Size
			continue
		}
		l.Groups[ResourceGroup] = append(l.Groups[ResourceGroup], gputypes.BindGroupLayoutEntry{
			Binding:    uint32(ub.Binding),
			Visibility: vis,
			Buffer: &gputypes.BufferBindingLayout{
				Type:           bufferType(ub.Policy),
				MinBindingSize: uint64(bl.Size),
			},
		})
	}
	for _, t := range p.Textures {
		st, ok := t.Type.(ir.SamplerType)
		if !ok {
			return nil, fmt.Errorf("binding: texture %s has type %s", t.Name, t.Type)
		}
		view, err := viewDimension(st)
		if err != nil {
			return nil, fmt.Errorf("binding: texture %s: %w", t.Name, err)
		}
		vis := all
		if d, ok := p.Lookup(t.Name); ok && d.Stages != 0 {
			vis = visibilityOf(p, d.Stages)
		}
		l.Groups[ResourceGroup] = append(l.Groups[ResourceGroup], gputypes.BindGroupLayoutEntry{
			Binding:    uint32(t.Binding),
			Visibility: vis,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: view,
			},
		})
		l.Groups[SamplerGroup] = append(l.Groups[SamplerGroup], gputypes.BindGroupLayoutEntry{
			Binding:    uint32(t.Binding),
			Visibility: vis,
			Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
		})
	}
	vertex, err := VertexLayout(p.Attributes)
	if err != nil {
		return nil, err
	}
	l.Vertex = vertex
	return l, nil
}

// VertexLayout returns the layout of a single interleaved vertex buffer
// holding attrs in location order with tightly packed offsets.
func VertexLayout(attrs []*ir.Variable) (*gputypes.VertexBufferLayout, error) {
	if len(attrs) == 0 {
		return nil, nil
	}
	members := make([]layout.Member, len(attrs))
	formats := make([]gputypes.VertexFormat, len(attrs))
	for i, a := range attrs {
		f, err := VertexFormat(a.Type)
		if err != nil {
			return nil, fmt.Errorf("binding: attribute %s: %w", a.Name, err)
		}
		formats[i] = f
		members[i] = layout.MemberOf(a.Name, a.Type)
	}
	vl, err := layout.Compute(layout.TightlyPacked, members)
	if err != nil {
		return nil, fmt.Errorf("binding: vertex layout: %w", err)
	}
	out := &gputypes.VertexBufferLayout{
		ArrayStride: uint64(vl.Size),
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes:  make([]gputypes.VertexAttribute, len(attrs)),
	}
	for i, a := range attrs {
		out.Attributes[i] = gputypes.VertexAttribute{
			Format:         formats[i],
			Offset:         uint64(vl.Fields[i].Offset),
			ShaderLocation: uint32(a.Location),
		}
	}
	return out, nil
}

var floatFormats = [5]gputypes.VertexFormat{
	1: gputypes.VertexFormatFloat32,
	2: gputypes.VertexFormatFloat32x2,
	3: gputypes.VertexFormatFloat32x3,
	4: gputypes.VertexFormatFloat32x4,
}

var intFormats = [5]gputypes.VertexFormat{
	1: gputypes.VertexFormatSint32,
	2: gputypes.VertexFormatSint32x2,
	3: gputypes.VertexFormatSint32x3,
	4: gputypes.VertexFormatSint32x4,
}

// VertexFormat returns the vertex format of an attribute type.
func VertexFormat(t ir.Type) (gputypes.VertexFormat, error) {
	k, ok := ir.ScalarKindOf(t)
	if !ok || !ir.IsScalarOrVector(t) {
		return 0, fmt.Errorf("no vertex format for %s", t)
	}
	n := ir.Arity(t)
	switch k {
	case ir.ScalarFloat:
		return floatFormats[n], nil
	case ir.ScalarInt:
		return intFormats[n], nil
	default:
		return 0, fmt.Errorf("no vertex format for %s", t)
	}
}

func bufferType(p ir.LayoutPolicy) gputypes.BufferBindingType {
	if p == ir.LayoutStd140 {
		return gputypes.BufferBindingTypeUniform
	}
	return gputypes.BufferBindingTypeReadOnlyStorage
}

func viewDimension(st ir.SamplerType) (gputypes.TextureViewDimension, error) {
	switch {
	case st.Dim == ir.Dim1D && !st.Arrayed:
		return gputypes.TextureViewDimension1D, nil
	case st.Dim == ir.Dim2D && !st.Arrayed:
		return gputypes.TextureViewDimension2D, nil
	case st.Dim == ir.Dim2D:
		return gputypes.TextureViewDimension2DArray, nil
	case st.Dim == ir.Dim3D && !st.Arrayed:
		return gputypes.TextureViewDimension3D, nil
	case st.Dim == ir.DimCube && !st.Arrayed:
		return gputypes.TextureViewDimensionCube, nil
	case st.Dim == ir.DimCube:
		return gputypes.TextureViewDimensionCubeArray, nil
	default:
		return 0, fmt.Errorf("no WebGPU view dimension for %s", st)
	}
}

// bufferStages returns the stages referencing any member of ub.
func bufferStages(p *ir.Program, ub *ir.UniformBuffer) ir.StageMask {
	var m ir.StageMask
	for _, v := range ub.Members {
		if d, ok := p.Lookup(v.Name); ok {
			m |= d.Stages
		}
	}
	return m
}

func allStages(p *ir.Program) ir.StageMask {
	var m ir.StageMask
	for _, s := range p.Stages {
		m |= ir.MaskOf(s.Kind)
	}
	return m
}

// visibilityOf converts a stage mask restricted to the stages of p.
func visibilityOf(p *ir.Program, m ir.StageMask) gputypes.ShaderStages {
	var vis gputypes.ShaderStages
	for _, s := range p.Stages {
		if !m.Has(s.Kind) {
			continue
		}
		switch s.Kind {
		case ir.StageVertex:
			vis |= gputypes.ShaderStageVertex
		case ir.StageFragment:
			vis |= gputypes.ShaderStageFragment
		case ir.StageCompute:
			vis |= gputypes.ShaderStageCompute
		}
	}
	return vis
}
