// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ksl

import (
	"fmt"

	"github.com/gogpu/ksl/ir"
)

// ScopeBuilder appends statements to one scope of a stage body.
//
// A scope is open while the callback that populates it runs and closed
// afterwards. Only the innermost open scope accepts statements: appending to
// a closed scope, or to a parent while a nested scope is being built,
// panics with ErrScopeClosed.
//
// Variables declared in a scope are visible to nested scopes but not to the
// enclosing one.
type ScopeBuilder struct {
	prog   *ProgramBuilder
	stage  *StageBuilder
	parent *ScopeBuilder
	body   ir.Block
	vars   map[*ir.Variable]bool
	open   bool
	inLoop bool
}

func (s *ScopeBuilder) child() *ScopeBuilder {
	return &ScopeBuilder{
		prog:   s.prog,
		stage:  s.stage,
		parent: s,
		vars:   make(map[*ir.Variable]bool),
		inLoop: s.inLoop,
	}
}

// run populates s through fn. s is open while fn executes.
func (s *ScopeBuilder) run(fn func()) {
	prev := s.prog.current
	s.prog.current = s
	s.open = true
	defer func() {
		s.open = false
		s.prog.current = prev
	}()
	fn()
}

// Stage returns the kind of the stage being built.
func (s *ScopeBuilder) Stage() ir.ShaderStage { return s.stage.kind }

// Open reports whether the scope accepts statements.
func (s *ScopeBuilder) Open() bool { return s.open && s.prog.current == s }

func fail(kind ir.ErrorKind, op, format string, args ...any) {
	panic(&ir.Error{Kind: kind, Op: op, Operand: -1, Message: fmt.Sprintf(format, args...)})
}

func (s *ScopeBuilder) checkOpen(op string) {
	switch {
	case s.prog.finalized:
		fail(ir.ErrProgramFinalized, op, "program %s is finalized", s.prog.name)
	case !s.open:
		fail(ir.ErrScopeClosed, op, "scope is closed")
	case s.prog.current != s:
		fail(ir.ErrScopeClosed, op, "scope is suspended while a nested scope is open")
	}
}

func (s *ScopeBuilder) append(op string, st ir.Statement) {
	s.checkOpen(op)
	s.body = append(s.body, st)
}

// visible reports whether the local v is declared in s or an enclosing scope.
func (s *ScopeBuilder) visible(v *ir.Variable) bool {
	for sc := s; sc != nil; sc = sc.parent {
		if sc.vars[v] {
			return true
		}
	}
	return false
}

// use checks that every variable read by exprs is reachable from s and
// records the globals referenced by the stage.
func (s *ScopeBuilder) use(op string, exprs ...*ir.Expression) {
	for i, e := range exprs {
		if e == nil {
			panic(&ir.Error{Kind: ir.ErrInvalidArgument, Op: op, Operand: i, Message: "expression is nil"})
		}
	}
	for _, v := range ir.Variables(exprs...) {
		if v.Kind.IsGlobal() {
			if v.Kind == ir.VarBuiltin && v != s.prog.builtins[v.Builtin] {
				fail(ir.ErrOutOfScope, op, "%s belongs to another program", v.Name)
			}
			if !v.Readable(s.stage.kind) {
				fail(ir.ErrOutOfScope, op, "%s cannot be read in the %s stage", v, s.stage.kind)
			}
			s.stage.addUse(v)
			continue
		}
		if !s.visible(v) {
			fail(ir.ErrOutOfScope, op, "%s is not declared in an enclosing scope", v)
		}
	}
}

func (s *ScopeBuilder) declare(name string, t ir.Type, kind ir.VariableKind) *ir.Variable {
	v := &ir.Variable{Name: s.prog.names.Next(name), Type: t, Kind: kind}
	s.vars[v] = true
	s.prog.seq++
	s.prog.declSeq[v] = s.prog.seq
	return v
}

// Var declares a local variable initialized with init and returns an
// expression reading it.
func (s *ScopeBuilder) Var(name string, init *ir.Expression) *ir.Expression {
	const op = "var"
	s.checkOpen(op)
	s.use(op, init)
	v := s.declare(name, init.Type, ir.VarLocal)
	s.append(op, ir.StmtDeclare{Var: v, Init: init})
	return ir.NewVariable(v)
}

// VarOf declares a zero-initialized local variable of type t.
func (s *ScopeBuilder) VarOf(name string, t ir.Type) *ir.Expression {
	const op = "var"
	s.checkOpen(op)
	switch t.(type) {
	case ir.SamplerType:
		fail(ir.ErrInvalidArgument, op, "cannot declare a local %s", t)
	}
	v := s.declare(name, t, ir.VarLocal)
	s.append(op, ir.StmtDeclare{Var: v})
	return ir.NewVariable(v)
}

// checkTarget validates an assignment target and returns its root variable.
func (s *ScopeBuilder) checkTarget(op string, target *ir.Expression) *ir.Variable {
	root := ir.RootVariable(target)
	if root == nil {
		panic(&ir.Error{Kind: ir.ErrInvalidArgument, Op: op, Operand: 0, Message: "target is not assignable"})
	}
	if !root.Writable(s.stage.kind) {
		fail(ir.ErrInvalidArgument, op, "%s is not writable in the %s stage", root, s.stage.kind)
	}
	return root
}

// Set assigns value to target. Targets are variables and swizzles, members
// or elements of them.
func (s *ScopeBuilder) Set(target, value *ir.Expression) {
	const op = "="
	s.checkOpen(op)
	s.use(op, target, value)
	root := s.checkTarget(op, target)
	if s.stage.ports[root] != nil {
		fail(ir.ErrInvalidArgument, op, "block output %s must be assigned through its block builder", root.Name)
	}
	if target.Type != value.Type {
		panic(&ir.Error{Kind: ir.ErrTypeMismatch, Op: op, Operand: 1,
			Message: fmt.Sprintf("cannot assign %s to %s", value.Type, target.Type)})
	}
	s.append(op, ir.StmtAssign{Target: target, Value: value})
}

// IfBuilder extends an if statement with else-if and else branches.
type IfBuilder struct {
	scope *ScopeBuilder
	index int
	done  bool
}

func (s *ScopeBuilder) branch(fn func(*ScopeBuilder)) ir.Block {
	c := s.child()
	c.run(func() { fn(c) })
	return c.body
}

func (s *ScopeBuilder) checkCond(op string, cond *ir.Expression) {
	s.use(op, cond)
	if cond.Type != ir.Type(ir.Bool1) {
		panic(&ir.Error{Kind: ir.ErrTypeMismatch, Op: op, Operand: 0, Message: "condition must be bool1, got " + cond.Type.String()})
	}
}

// If appends a conditional statement. fn populates the then branch.
func (s *ScopeBuilder) If(cond *ir.Expression, fn func(s *ScopeBuilder)) *IfBuilder {
	const op = "if"
	s.checkOpen(op)
	s.checkCond(op, cond)
	body := s.branch(fn)
	s.append(op, ir.StmtIf{Branches: []ir.IfBranch{{Cond: cond, Body: body}}})
	return &IfBuilder{scope: s, index: len(s.body) - 1}
}

func (ib *IfBuilder) stmt(op string) ir.StmtIf {
	s := ib.scope
	s.checkOpen(op)
	if ib.done || ib.index != len(s.body)-1 {
		fail(ir.ErrInvalidArgument, op, "%s must directly follow its if statement", op)
	}
	return s.body[ib.index].(ir.StmtIf)
}

// ElseIf appends a conditional branch.
func (ib *IfBuilder) ElseIf(cond *ir.Expression, fn func(s *ScopeBuilder)) *IfBuilder {
	const op = "else if"
	st := ib.stmt(op)
	ib.scope.checkCond(op, cond)
	body := ib.scope.branch(fn)
	st.Branches = append(st.Branches, ir.IfBranch{Cond: cond, Body: body})
	ib.scope.body[ib.index] = st
	return ib
}

// Else appends the final branch.
func (ib *IfBuilder) Else(fn func(s *ScopeBuilder)) {
	const op = "else"
	st := ib.stmt(op)
	st.Else = ib.scope.branch(fn)
	if st.Else == nil {
		st.Else = ir.Block{}
	}
	ib.scope.body[ib.index] = st
	ib.done = true
}

// ForRange loops an index from from while it is less than to, incrementing
// by one. Bounds are both int1 or both float1.
func (s *ScopeBuilder) ForRange(from, to *ir.Expression, fn func(s *ScopeBuilder, i *ir.Expression)) {
	s.forRange(from, to, nil, fn)
}

// ForRangeStep loops like ForRange, adding step after each iteration.
func (s *ScopeBuilder) ForRangeStep(from, to, step *ir.Expression, fn func(s *ScopeBuilder, i *ir.Expression)) {
	s.forRange(from, to, step, fn)
}

func (s *ScopeBuilder) forRange(from, to, step *ir.Expression, fn func(*ScopeBuilder, *ir.Expression)) {
	const op = "forRange"
	s.checkOpen(op)
	operands := []*ir.Expression{from, to}
	if step != nil {
		operands = append(operands, step)
	}
	s.use(op, operands...)
	if from.Type != ir.Type(ir.Int1) && from.Type != ir.Type(ir.Float1) {
		panic(&ir.Error{Kind: ir.ErrTypeMismatch, Op: op, Operand: 0, Message: "range bounds must be int1 or float1, got " + from.Type.String()})
	}
	for i, e := range operands[1:] {
		if e.Type != from.Type {
			panic(&ir.Error{Kind: ir.ErrTypeMismatch, Op: op, Operand: i + 1, Message: fmt.Sprintf("expected %s, got %s", from.Type, e.Type)})
		}
	}
	c := s.child()
	c.inLoop = true
	idx := c.declare("i", from.Type, ir.VarLoopIndex)
	c.run(func() { fn(c, ir.NewVariable(idx)) })
	s.append(op, ir.StmtForRange{Index: idx, From: from, To: to, Step: step, Body: c.body})
}

// While loops while cond holds. cond is evaluated before every iteration.
func (s *ScopeBuilder) While(cond *ir.Expression, fn func(s *ScopeBuilder)) {
	const op = "while"
	s.checkOpen(op)
	s.checkCond(op, cond)
	c := s.child()
	c.inLoop = true
	c.run(func() { fn(c) })
	s.append(op, ir.StmtWhile{Cond: cond, Body: c.body})
}

// Break exits the innermost loop.
func (s *ScopeBuilder) Break() {
	if !s.inLoop {
		fail(ir.ErrInvalidArgument, "break", "break outside of a loop")
	}
	s.append("break", ir.StmtBreak{})
}

// Continue starts the next iteration of the innermost loop.
func (s *ScopeBuilder) Continue() {
	if !s.inLoop {
		fail(ir.ErrInvalidArgument, "continue", "continue outside of a loop")
	}
	s.append("continue", ir.StmtContinue{})
}

// Discard discards the current fragment.
func (s *ScopeBuilder) Discard() {
	if s.stage.kind != ir.StageFragment {
		fail(ir.ErrInvalidArgument, "discard", "discard is only allowed in the fragment stage")
	}
	s.append("discard", ir.StmtDiscard{})
}
