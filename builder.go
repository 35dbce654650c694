// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ksl

import (
	"errors"
	"fmt"

	"github.com/gogpu/ksl/ir"
	"github.com/gogpu/ksl/layout"
)

// DefaultBufferName is the base name of the buffer holding uniforms declared
// with [ProgramBuilder.Uniform].
const DefaultBufferName = "Uniforms"

// ProgramBuilder assembles a program. It is the Building state of a program;
// [ProgramBuilder.Finalize] turns it into an immutable [Program].
//
// Declaration methods record the first error and keep returning usable
// expressions, so a sequence of declarations can be written without error
// checks; Finalize reports the recorded error.
type ProgramBuilder struct {
	name  string
	names *ir.Namer
	err   error

	finalized bool

	defaultBuf *UniformBufferBuilder
	pushBuf    *UniformBufferBuilder
	buffers    []*UniformBufferBuilder
	textures   []*ir.Variable
	attributes []*ir.Variable
	interStage []*ir.Variable
	outputs    map[int]*ir.Variable
	builtins   map[ir.BuiltinValue]*ir.Variable

	stages []*StageBuilder
	blocks []*Block

	dataBlocks []DataBlock
	listeners  []Listener

	// current is the innermost open scope, nil outside stage callbacks.
	current *ScopeBuilder
	// seq numbers local declarations in program order.
	seq     int
	declSeq map[*ir.Variable]int
}

// NewProgram creates a program builder.
func NewProgram(name string) *ProgramBuilder {
	return &ProgramBuilder{
		name:     name,
		names:    ir.NewNamer(),
		outputs:  make(map[int]*ir.Variable),
		builtins: make(map[ir.BuiltinValue]*ir.Variable),
		declSeq:  make(map[*ir.Variable]int),
	}
}

// Name returns the program name.
func (b *ProgramBuilder) Name() string { return b.name }

// Err returns the first error recorded by the builder.
func (b *ProgramBuilder) Err() error { return b.err }

// NextName allocates a unique identifier derived from base: base, base_2,
// base_3 and so on. Names are never reused.
func (b *ProgramBuilder) NextName(base string) string {
	return b.names.Next(base)
}

func (b *ProgramBuilder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// check records ErrProgramFinalized and reports false after Finalize.
func (b *ProgramBuilder) check(op string) bool {
	if b.finalized {
		b.fail(&ir.Error{Kind: ir.ErrProgramFinalized, Op: op, Operand: -1, Message: "program " + b.name + " is finalized"})
		return false
	}
	return true
}

// recoverInto converts a panicking *ir.Error into a recorded error.
// Panics of other types are re-raised.
func (b *ProgramBuilder) recoverInto(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	err, ok := r.(error)
	var kerr *ir.Error
	if !ok || !errors.As(err, &kerr) {
		panic(r)
	}
	b.fail(err)
	*errp = err
}

// UniformBufferBuilder declares the members of one uniform buffer.
type UniformBufferBuilder struct {
	prog *ProgramBuilder
	buf  *ir.UniformBuffer
}

// UniformBuffer declares a uniform buffer laid out with Std140.
func (b *ProgramBuilder) UniformBuffer(name string) *UniformBufferBuilder {
	ub := &UniformBufferBuilder{
		prog: b,
		buf:  &ir.UniformBuffer{Name: b.names.Next(name), Policy: ir.LayoutStd140},
	}
	if b.check("uniformBuffer") {
		b.buffers = append(b.buffers, ub)
	}
	return ub
}

// PushConstants declares the push-constant block of the program. A program
// has at most one.
func (b *ProgramBuilder) PushConstants(name string) *UniformBufferBuilder {
	if !b.check("pushConstants") {
		return &UniformBufferBuilder{prog: b, buf: &ir.UniformBuffer{Name: name, Policy: ir.LayoutStd140, PushConstant: true}}
	}
	if b.pushBuf != nil {
		b.fail(ir.Errorf(ir.ErrInvalidArgument, "program %s already declares push constants %s", b.name, b.pushBuf.buf.Name))
		return b.pushBuf
	}
	ub := b.UniformBuffer(name)
	ub.buf.PushConstant = true
	b.pushBuf = ub
	return ub
}

// Name returns the allocated buffer name.
func (u *UniformBufferBuilder) Name() string { return u.buf.Name }

// Policy sets the memory layout policy of the buffer.
func (u *UniformBufferBuilder) Policy(p ir.LayoutPolicy) *UniformBufferBuilder {
	u.buf.Policy = p
	return u
}

// Member declares a uniform of type t.
func (u *UniformBufferBuilder) Member(name string, t ir.Type) *ir.Expression {
	return u.member(name, t)
}

// ArrayMember declares a uniform array of n elements of type t.
func (u *UniformBufferBuilder) ArrayMember(name string, t ir.Type, n uint32) *ir.Expression {
	at, err := ir.NewArray(t, n)
	if err != nil {
		u.prog.fail(err)
		return u.member(name, t)
	}
	return u.member(name, at)
}

func (u *UniformBufferBuilder) member(name string, t ir.Type) *ir.Expression {
	b := u.prog
	v := &ir.Variable{Name: b.names.Next(name), Type: t, Kind: ir.VarUniform, Buffer: u.buf}
	if !b.check("uniform") {
		return ir.NewVariable(v)
	}
	if err := layout.CheckType(v.Name, t); err != nil {
		b.fail(err)
	}
	u.buf.Members = append(u.buf.Members, v)
	return ir.NewVariable(v)
}

func (b *ProgramBuilder) defaultBuffer() *UniformBufferBuilder {
	if b.defaultBuf == nil {
		b.defaultBuf = b.UniformBuffer(DefaultBufferName)
	}
	return b.defaultBuf
}

// Uniform declares a uniform in the default buffer.
func (b *ProgramBuilder) Uniform(name string, t ir.Type) *ir.Expression {
	return b.defaultBuffer().Member(name, t)
}

// UniformArray declares a uniform array of n elements in the default buffer.
func (b *ProgramBuilder) UniformArray(name string, t ir.Type, n uint32) *ir.Expression {
	return b.defaultBuffer().ArrayMember(name, t, n)
}

// Texture declares a combined texture sampler of a sampler type.
func (b *ProgramBuilder) Texture(name string, t ir.SamplerType) *ir.Expression {
	v := &ir.Variable{Name: b.names.Next(name), Type: t, Kind: ir.VarTexture}
	if b.check("texture") {
		b.textures = append(b.textures, v)
	}
	return ir.NewVariable(v)
}

// interfaceType reports whether t can cross a stage interface.
func interfaceType(t ir.Type) bool {
	return ir.IsScalarOrVector(t) && !ir.HasCapability(t, ir.CapBool)
}

// Attribute declares a per-vertex input. Locations are assigned in
// declaration order.
func (b *ProgramBuilder) Attribute(name string, t ir.Type) *ir.Expression {
	v := &ir.Variable{Name: b.names.Next(name), Type: t, Kind: ir.VarAttribute, Location: len(b.attributes)}
	if !b.check("attribute") {
		return ir.NewVariable(v)
	}
	if !interfaceType(t) {
		b.fail(ir.Errorf(ir.ErrInvalidArgument, "attribute %s: %s is not a float or int scalar or vector", v.Name, t))
	}
	b.attributes = append(b.attributes, v)
	return ir.NewVariable(v)
}

// InterStage declares a variable written by the vertex stage and read,
// interpolated, by the fragment stage. Int values are never interpolated.
func (b *ProgramBuilder) InterStage(name string, t ir.Type) *ir.Expression {
	k, _ := ir.ScalarKindOf(t)
	return b.interStageVar(name, t, k == ir.ScalarInt)
}

// InterStageFlat declares an inter-stage variable without interpolation.
func (b *ProgramBuilder) InterStageFlat(name string, t ir.Type) *ir.Expression {
	return b.interStageVar(name, t, true)
}

func (b *ProgramBuilder) interStageVar(name string, t ir.Type, flat bool) *ir.Expression {
	v := &ir.Variable{Name: b.names.Next(name), Type: t, Kind: ir.VarInterStage, Location: len(b.interStage), Flat: flat}
	if !b.check("interStage") {
		return ir.NewVariable(v)
	}
	if !interfaceType(t) {
		b.fail(ir.Errorf(ir.ErrInvalidArgument, "inter-stage %s: %s is not a float or int scalar or vector", v.Name, t))
	}
	b.interStage = append(b.interStage, v)
	return ir.NewVariable(v)
}

func (b *ProgramBuilder) colorOutput(location int) *ir.Variable {
	if v, ok := b.outputs[location]; ok {
		return v
	}
	v := &ir.Variable{Name: b.names.Next(fmt.Sprintf("fragColor%d", location)), Type: ir.Float4, Kind: ir.VarStageOutput, Location: location}
	b.outputs[location] = v
	return v
}

func (b *ProgramBuilder) builtin(bv ir.BuiltinValue) *ir.Variable {
	if v, ok := b.builtins[bv]; ok {
		return v
	}
	info, _ := ir.LookupBuiltinValue(bv)
	v := &ir.Variable{Name: b.names.Next("ksl_" + bv.String()), Type: info.Type, Kind: ir.VarBuiltin, Builtin: bv}
	b.builtins[bv] = v
	return v
}

// DataBlock is a set of declarations shared by the shaders of an
// application, e.g. scene lighting. A data block is registered once per
// program and looked up by name by the blocks that use it.
type DataBlock interface {
	Name() string
}

// AddDataBlock registers a data block. A data block implementing [Listener]
// is also registered as listener.
func (b *ProgramBuilder) AddDataBlock(db DataBlock) {
	if !b.check("addDataBlock") {
		return
	}
	if _, dup := b.DataBlock(db.Name()); dup {
		b.fail(ir.Errorf(ir.ErrNameCollision, "data block %q registered twice", db.Name()))
		return
	}
	b.dataBlocks = append(b.dataBlocks, db)
	if l, ok := db.(Listener); ok {
		b.listeners = append(b.listeners, l)
	}
}

// DataBlock returns the registered data block with the given name.
func (b *ProgramBuilder) DataBlock(name string) (DataBlock, bool) {
	return findDataBlock(b.dataBlocks, name)
}

func findDataBlock(dbs []DataBlock, name string) (DataBlock, bool) {
	for _, db := range dbs {
		if db.Name() == name {
			return db, true
		}
	}
	return nil, false
}

// AddListener registers a lifecycle listener.
func (b *ProgramBuilder) AddListener(l Listener) {
	if b.check("addListener") {
		b.listeners = append(b.listeners, l)
	}
}
