// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ksl

import (
	"github.com/gogpu/ksl/ir"
)

// StageBuilder populates the body of one shader stage. It embeds the root
// scope of the stage and adds access to stage builtin values.
type StageBuilder struct {
	*ScopeBuilder
	kind      ir.ShaderStage
	workgroup [3]uint32
	uses      []*ir.Variable
	used      map[*ir.Variable]bool
	ports     map[*ir.Variable]*Port
}

func (st *StageBuilder) addUse(v *ir.Variable) {
	if !st.used[v] {
		st.used[v] = true
		st.uses = append(st.uses, v)
	}
}

func (st *StageBuilder) builtin(bv ir.BuiltinValue) *ir.Expression {
	info, _ := ir.LookupBuiltinValue(bv)
	if info.Stage != st.kind {
		fail(ir.ErrInvalidArgument, bv.String(), "%s is not available in the %s stage", bv, st.kind)
	}
	v := st.prog.builtin(bv)
	st.addUse(v)
	return ir.NewVariable(v)
}

// Position returns the clip-space position output of the vertex stage.
func (st *StageBuilder) Position() *ir.Expression { return st.builtin(ir.BuiltinPosition) }

// VertexIndex returns the index of the current vertex.
func (st *StageBuilder) VertexIndex() *ir.Expression { return st.builtin(ir.BuiltinVertexIndex) }

// InstanceIndex returns the index of the current instance.
func (st *StageBuilder) InstanceIndex() *ir.Expression { return st.builtin(ir.BuiltinInstanceIndex) }

// FragCoord returns the window-space position of the current fragment.
func (st *StageBuilder) FragCoord() *ir.Expression { return st.builtin(ir.BuiltinFragCoord) }

// FrontFacing reports whether the current fragment belongs to a front face.
func (st *StageBuilder) FrontFacing() *ir.Expression { return st.builtin(ir.BuiltinFrontFacing) }

// FragDepth returns the depth output of the fragment stage.
func (st *StageBuilder) FragDepth() *ir.Expression { return st.builtin(ir.BuiltinFragDepth) }

// GlobalInvocationID returns the global index of the current invocation.
func (st *StageBuilder) GlobalInvocationID() *ir.Expression {
	return st.builtin(ir.BuiltinGlobalInvocationID)
}

// LocalInvocationID returns the index of the current invocation within its workgroup.
func (st *StageBuilder) LocalInvocationID() *ir.Expression {
	return st.builtin(ir.BuiltinLocalInvocationID)
}

// ColorOutput returns the float4 color output at the given location.
func (st *StageBuilder) ColorOutput(location int) *ir.Expression {
	if st.kind != ir.StageFragment {
		fail(ir.ErrInvalidArgument, "colorOutput", "color outputs are only available in the fragment stage")
	}
	if location < 0 || location > 7 {
		fail(ir.ErrInvalidArgument, "colorOutput", "color output location %d out of range", location)
	}
	v := st.prog.colorOutput(location)
	st.addUse(v)
	return ir.NewVariable(v)
}

// Vertex builds the vertex stage.
func (b *ProgramBuilder) Vertex(fn func(v *StageBuilder)) error {
	return b.stage(ir.StageVertex, [3]uint32{}, fn)
}

// Fragment builds the fragment stage.
func (b *ProgramBuilder) Fragment(fn func(f *StageBuilder)) error {
	return b.stage(ir.StageFragment, [3]uint32{}, fn)
}

// Compute builds a compute stage with the given workgroup size.
func (b *ProgramBuilder) Compute(x, y, z uint32, fn func(c *StageBuilder)) error {
	if x == 0 || y == 0 || z == 0 {
		err := ir.Errorf(ir.ErrInvalidArgument, "workgroup size %dx%dx%d has an empty dimension", x, y, z)
		b.fail(err)
		return err
	}
	return b.stage(ir.StageCompute, [3]uint32{x, y, z}, fn)
}

func (b *ProgramBuilder) stage(kind ir.ShaderStage, wg [3]uint32, fn func(*StageBuilder)) (err error) {
	op := kind.String()
	if !b.check(op) {
		return b.err
	}
	if b.current != nil {
		err = ir.Errorf(ir.ErrInvalidArgument, "%s stage started inside another stage", kind)
		b.fail(err)
		return err
	}
	for _, s := range b.stages {
		if s.kind == kind {
			err = ir.Errorf(ir.ErrInvalidArgument, "program %s already has a %s stage", b.name, kind)
		} else if s.kind == ir.StageCompute || kind == ir.StageCompute {
			err = ir.Errorf(ir.ErrInvalidArgument, "program %s mixes compute and graphics stages", b.name)
		}
		if err != nil {
			b.fail(err)
			return err
		}
	}

	st := &StageBuilder{
		kind:      kind,
		workgroup: wg,
		used:      make(map[*ir.Variable]bool),
		ports:     make(map[*ir.Variable]*Port),
	}
	st.ScopeBuilder = &ScopeBuilder{prog: b, stage: st, vars: make(map[*ir.Variable]bool)}

	defer b.recoverInto(&err)
	st.run(func() { fn(st) })
	b.stages = append(b.stages, st)
	Logger().Debug("ksl: stage built", "program", b.name, "stage", op, "statements", len(st.body))
	return nil
}
