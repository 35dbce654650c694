// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ir

// Block is an ordered list of statements.
type Block []Statement

// Statement represents a statement in a stage body.
type Statement interface {
	statementKind()
}

// StmtDeclare declares a local variable. A nil Init zero-initializes it.
type StmtDeclare struct {
	Var  *Variable
	Init *Expression
}

func (StmtDeclare) statementKind() {}

// StmtAssign stores Value into the l-value Target.
type StmtAssign struct {
	Target *Expression
	Value  *Expression
}

func (StmtAssign) statementKind() {}

// IfBranch is one conditional arm of an if statement.
type IfBranch struct {
	Cond *Expression
	Body Block
}

// StmtIf represents an if / else-if / else chain.
type StmtIf struct {
	Branches []IfBranch
	Else     Block
}

func (StmtIf) statementKind() {}

// StmtForRange iterates Index from From while Index < To, adding Step.
// Step is nil for an increment of one.
type StmtForRange struct {
	Index *Variable
	From  *Expression
	To    *Expression
	Step  *Expression
	Body  Block
}

func (StmtForRange) statementKind() {}

// StmtWhile loops while Cond holds.
type StmtWhile struct {
	Cond *Expression
	Body Block
}

func (StmtWhile) statementKind() {}

// StmtBreak exits the innermost loop.
type StmtBreak struct{}

func (StmtBreak) statementKind() {}

// StmtContinue skips to the next iteration of the innermost loop.
type StmtContinue struct{}

func (StmtContinue) statementKind() {}

// StmtDiscard discards the current fragment.
type StmtDiscard struct{}

func (StmtDiscard) statementKind() {}

// BlockInput binds a block input port variable to the value it is initialized with.
type BlockInput struct {
	Var   *Variable
	Value *Expression
}

// StmtBlock is an instance of a reusable block. Inputs are declared at the
// start of the nested scope; outputs are variables declared by the enclosing
// scope and assigned inside Body.
type StmtBlock struct {
	Name   string
	Kind   string
	Inputs []*BlockInput
	Body   Block
}

func (*StmtBlock) statementKind() {}
