// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ksl

import (
	"fmt"

	"github.com/gogpu/ksl/eval"
	"github.com/gogpu/ksl/ir"
)

// Port is a typed input or output of a block instance.
type Port struct {
	name   string
	v      *ir.Variable
	block  *Block
	output bool

	// inputs
	def   *ir.Expression
	input *ir.BlockInput

	// outputs
	assigned bool
}

// Name returns the port name.
func (p *Port) Name() string { return p.name }

// Type returns the port type.
func (p *Port) Type() ir.Type { return p.v.Type }

// Expr returns an expression reading an input port. It is meant for the
// block body; outputs are read with [BlockBuilder.Read] or [Block.Output].
func (p *Port) Expr() *ir.Expression {
	if p.output {
		fail(ir.ErrInvalidArgument, "port", "output %s of block %s is read through Read or Output", p.name, p.block.name)
	}
	return ir.NewVariable(p.v)
}

// Bind sets the value of an input port. It may be called once, with an
// expression visible where the block was instantiated.
func (p *Port) Bind(value *ir.Expression) error {
	return p.block.bind(p, value)
}

// Block is an instance of a reusable shader building block. Once built it
// is an opaque source of output expressions.
type Block struct {
	name   string
	kind   string
	parent *ScopeBuilder
	stmt   *ir.StmtBlock
	seq    int

	inputs  []*Port
	outputs []*Port
}

// Name returns the unique instance name.
func (b *Block) Name() string { return b.name }

// Kind returns the block kind the instance name was derived from.
func (b *Block) Kind() string { return b.kind }

// Input returns the named input port.
func (b *Block) Input(name string) (*Port, bool) {
	for _, p := range b.inputs {
		if p.name == name {
			return p, true
		}
	}
	return nil, false
}

// Bind binds the named input port to value.
func (b *Block) Bind(name string, value *ir.Expression) error {
	p, ok := b.Input(name)
	if !ok {
		return ir.Errorf(ir.ErrInvalidArgument, "block %s has no input %q", b.name, name)
	}
	return b.bind(p, value)
}

// MustBind is like Bind but panics on error. It is meant for stage callbacks.
func (b *Block) MustBind(name string, value *ir.Expression) *Block {
	if err := b.Bind(name, value); err != nil {
		panic(err)
	}
	return b
}

func (b *Block) bind(p *Port, value *ir.Expression) (err error) {
	defer b.parent.prog.recoverInto(&err)
	const op = "bind"
	switch {
	case b.parent.prog.finalized:
		fail(ir.ErrProgramFinalized, op, "program %s is finalized", b.parent.prog.name)
	case p.output:
		fail(ir.ErrInvalidArgument, op, "%s is an output of block %s", p.name, b.name)
	case p.input.Value != nil:
		fail(ir.ErrInvalidArgument, op, "input %s of block %s is already bound", p.name, b.name)
	}
	b.parent.use(op, value)
	for _, v := range ir.Variables(value) {
		if v.Kind.IsGlobal() {
			continue
		}
		for _, out := range b.outputs {
			if out.v == v {
				fail(ir.ErrUnassignedOutput, op, "input %s of block %s reads its own output %s", p.name, b.name, out.name)
			}
		}
		if seq := b.parent.prog.declSeq[v]; seq > b.seq {
			fail(ir.ErrOutOfScope, op, "%s is declared after block %s", v.Name, b.name)
		}
	}
	if value.Type != p.v.Type {
		panic(&ir.Error{Kind: ir.ErrTypeMismatch, Op: op, Operand: 0,
			Message: fmt.Sprintf("input %s of block %s is %s, got %s", p.name, b.name, p.v.Type, value.Type)})
	}
	p.input.Value = value
	return nil
}

// Output returns an expression reading the named output port.
func (b *Block) Output(name string) *ir.Expression {
	for _, p := range b.outputs {
		if p.name == name {
			return ir.NewVariable(p.v)
		}
	}
	panic(ir.Errorf(ir.ErrInvalidArgument, "block %s has no output %q", b.name, name))
}

// BlockBuilder declares the ports of a block and populates its body.
type BlockBuilder struct {
	*ScopeBuilder
	block *Block
}

// Block instantiates a block. The instance name is allocated from kind, so
// repeated instances get distinct names. fn declares ports and populates
// the body; every output must be assigned exactly once before fn returns.
func (s *ScopeBuilder) Block(kind string, fn func(b *BlockBuilder)) *Block {
	const op = "block"
	s.checkOpen(op)
	blk := &Block{
		name:   s.prog.names.Next(kind),
		kind:   kind,
		parent: s,
		stmt:   &ir.StmtBlock{Kind: kind},
		seq:    s.prog.seq,
	}
	blk.stmt.Name = blk.name
	body := s.child()
	bb := &BlockBuilder{ScopeBuilder: body, block: blk}
	body.run(func() { fn(bb) })

	for _, p := range blk.outputs {
		if !p.assigned {
			fail(ir.ErrUnassignedOutput, op, "block %s does not assign output %s", blk.name, p.name)
		}
	}
	blk.stmt.Body = body.body
	s.append(op, blk.stmt)
	s.prog.blocks = append(s.prog.blocks, blk)
	return blk
}

func (bb *BlockBuilder) portName(name string) {
	if _, ok := bb.block.Input(name); ok {
		fail(ir.ErrNameCollision, "port", "block %s declares port %q twice", bb.block.name, name)
	}
	for _, p := range bb.block.outputs {
		if p.name == name {
			fail(ir.ErrNameCollision, "port", "block %s declares port %q twice", bb.block.name, name)
		}
	}
}

// Name returns the block instance name.
func (bb *BlockBuilder) Name() string { return bb.block.name }

// Input declares an input port of type t. def is the constant used when the
// input is not bound; nil makes binding mandatory.
func (bb *BlockBuilder) Input(name string, t ir.Type, def *ir.Expression) *Port {
	const op = "input"
	bb.checkOpen(op)
	bb.portName(name)
	if def != nil {
		if !eval.IsConstant(def) {
			fail(ir.ErrInvalidArgument, op, "default of input %s must be constant", name)
		}
		if def.Type != t {
			panic(&ir.Error{Kind: ir.ErrTypeMismatch, Op: op, Operand: 0,
				Message: fmt.Sprintf("default of input %s is %s, want %s", name, def.Type, t)})
		}
	}
	v := bb.declare(bb.block.name+"_"+name, t, ir.VarLocal)
	in := &ir.BlockInput{Var: v}
	bb.block.stmt.Inputs = append(bb.block.stmt.Inputs, in)
	p := &Port{name: name, v: v, block: bb.block, def: def, input: in}
	bb.block.inputs = append(bb.block.inputs, p)
	return p
}

// Output declares an output port of type t.
func (bb *BlockBuilder) Output(name string, t ir.Type) *Port {
	const op = "output"
	bb.checkOpen(op)
	bb.portName(name)
	parent := bb.block.parent
	v := parent.declare(bb.block.name+"_"+name, t, ir.VarLocal)
	// The enclosing scope is suspended while the body is built; the
	// declaration precedes the block statement.
	parent.body = append(parent.body, ir.StmtDeclare{Var: v})
	p := &Port{name: name, v: v, block: bb.block, output: true}
	bb.block.outputs = append(bb.block.outputs, p)
	bb.stage.ports[v] = p
	return p
}

// Assign sets an output port. It must be called exactly once per output,
// directly from the block body.
func (bb *BlockBuilder) Assign(p *Port, value *ir.Expression) {
	const op = "assign"
	switch {
	case p.block != bb.block || !p.output:
		fail(ir.ErrInvalidArgument, op, "%s is not an output of block %s", p.name, bb.block.name)
	case p.assigned:
		fail(ir.ErrDoubleAssignment, op, "output %s of block %s is already assigned", p.name, bb.block.name)
	case bb.prog.current != bb.ScopeBuilder:
		fail(ir.ErrOutOfScope, op, "output %s of block %s must be assigned from the block body", p.name, bb.block.name)
	}
	bb.checkOpen(op)
	bb.use(op, value)
	if value.Type != p.v.Type {
		panic(&ir.Error{Kind: ir.ErrTypeMismatch, Op: op, Operand: 0,
			Message: fmt.Sprintf("output %s of block %s is %s, got %s", p.name, bb.block.name, p.v.Type, value.Type)})
	}
	bb.append(op, ir.StmtAssign{Target: ir.NewVariable(p.v), Value: value})
	p.assigned = true
}

// Read returns an expression reading an assigned output port.
func (bb *BlockBuilder) Read(p *Port) *ir.Expression {
	if !p.output {
		return p.Expr()
	}
	if !p.assigned {
		fail(ir.ErrUnassignedOutput, "read", "output %s of block %s is read before it is assigned", p.name, p.block.name)
	}
	return ir.NewVariable(p.v)
}

// resolve applies defaults to unbound inputs.
func (b *Block) resolve() error {
	for _, p := range b.inputs {
		if p.input.Value != nil {
			continue
		}
		if p.def == nil {
			return &ir.Error{Kind: ir.ErrUnboundInput, Op: b.name, Operand: -1,
				Message: fmt.Sprintf("input %s has no binding and no default", p.name)}
		}
		p.input.Value = p.def
	}
	return nil
}
