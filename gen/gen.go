// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package gen defines the contract between KSL programs and target language
// backends, and drives backends over a finalized program.
//
// A backend implements [Generator]: one method per expression kind and per
// statement kind, plus [Generator.Stage], which wraps a generated body with
// the declarations and entry point of the target language. [Generate]
// visits every expression after its operands and generates each shared,
// non-trivial sub-expression once per scope into a temporary.
package gen

import (
	"fmt"
	"strings"

	"github.com/gogpu/ksl/ir"
)

// Generator turns KSL nodes into target language text.
//
// Expression methods receive the node and the already generated text of
// its operands and return an expression. Generators parenthesize compound
// results themselves; the driver never adds parentheses.
//
// Statement methods return complete statements, terminated by a newline.
// Nested bodies are passed unindented; use [Indent].
type Generator interface {
	Literal(e *ir.Expression, lit ir.Literal) (string, error)
	Variable(e *ir.Expression, v *ir.Variable) (string, error)
	Compose(e *ir.Expression, parts []string) (string, error)
	Swizzle(e *ir.Expression, base string) (string, error)
	Member(e *ir.Expression, base string) (string, error)
	Index(e *ir.Expression, base, index string) (string, error)
	Unary(e *ir.Expression, x string) (string, error)
	Binary(e *ir.Expression, left, right string) (string, error)
	Builtin(e *ir.Expression, args []string) (string, error)
	// SampleTexture receives an empty lod when the level is implicit.
	SampleTexture(e *ir.Expression, coord, lod string) (string, error)
	Convert(e *ir.Expression, x string) (string, error)
	Select(e *ir.Expression, cond, accept, reject string) (string, error)

	// Declare declares v. An empty init zero-initializes it.
	Declare(v *ir.Variable, init string) (string, error)
	Assign(target, value string) (string, error)
	If(chain IfChain) (string, error)
	// ForRange receives an empty step for an increment of one.
	ForRange(index *ir.Variable, from, to, step, body string) (string, error)
	// Scope opens a nested scope holding a block instance.
	Scope(label, body string) (string, error)

	// Stage returns the complete source of one stage.
	Stage(unit *StageUnit) (string, error)
}

// LoopGenerator is implemented by generators supporting while loops and
// loop control statements.
type LoopGenerator interface {
	While(cond, body string) (string, error)
	Break() (string, error)
	Continue() (string, error)
}

// Discarder is implemented by generators supporting fragment discard.
type Discarder interface {
	Discard() (string, error)
}

// StageStarter is implemented by generators that need the stage context
// before the body is generated, e.g. to allocate names of declarations the
// body refers to. BeginStage receives a unit with an empty Body.
type StageStarter interface {
	BeginStage(unit *StageUnit) error
}

// Branch is one conditional arm of an if chain.
type Branch struct {
	Cond string
	Body string
}

// IfChain is a generated if / else-if / else statement.
type IfChain struct {
	Branches []Branch
	Else     string
	HasElse  bool
}

// StageUnit is the generated body of a stage together with the context a
// generator needs to emit declarations around it.
type StageUnit struct {
	Program *ir.Program
	Stage   *ir.Stage
	// Body is the generated stage body, unindented.
	Body string
	// Names holds every identifier of the program plus the temporaries of
	// this stage; generators allocate additional names from it.
	Names *ir.Namer
}

// Options configure generation.
type Options struct {
	// FoldConstants evaluates sub-expressions that depend only on literals
	// on the host and emits their values.
	FoldConstants bool

	// TempBase is the base name of temporaries. Defaults to "t".
	TempBase string
}

// Unsupported returns an ErrGeneratorUnsupported error. Generators return
// it for nodes they cannot express.
func Unsupported(format string, args ...any) error {
	return ir.Errorf(ir.ErrGeneratorUnsupported, format, args...)
}

// Indent prefixes every non-empty line of s with one level of indentation.
func Indent(s string) string {
	if s == "" {
		return ""
	}
	var sb strings.Builder
	for _, line := range strings.SplitAfter(s, "\n") {
		if strings.TrimSpace(line) != "" {
			sb.WriteString("    ")
		}
		sb.WriteString(line)
	}
	return sb.String()
}

// FormatFloat formats a float literal so that it always reads as a float
// in C-like languages: 1 becomes "1.0", 1e+20 stays in exponent form.
func FormatFloat(f float32) string {
	s := fmt.Sprintf("%g", f)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}
