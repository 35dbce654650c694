// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"github.com/gogpu/ksl/gen"
	"github.com/gogpu/ksl/ir"
)

// Declare writes a local variable declaration. GLSL locals are
// uninitialized, so a missing initializer becomes the zero value.
func (g *Generator) Declare(v *ir.Variable, init string) (string, error) {
	if init == "" {
		init = zeroValue(v.Type)
	}
	var w writer
	w.writeLine("%s = %s;", declaration(v.Type, escapeKeyword(v.Name)), init)
	return w.String(), nil
}

// Assign writes an assignment.
func (g *Generator) Assign(target, value string) (string, error) {
	var w writer
	w.writeLine("%s = %s;", target, value)
	return w.String(), nil
}

// If writes an if / else-if / else chain.
func (g *Generator) If(chain gen.IfChain) (string, error) {
	var w writer
	for i, br := range chain.Branches {
		if i == 0 {
			w.writeLine("if (%s) {", br.Cond)
		} else {
			w.writeLine("} else if (%s) {", br.Cond)
		}
		w.writeBody(br.Body)
	}
	if chain.HasElse {
		w.writeLine("} else {")
		w.writeBody(chain.Else)
	}
	w.writeLine("}")
	return w.String(), nil
}

// ForRange writes a counted for loop.
func (g *Generator) ForRange(index *ir.Variable, from, to, step, body string) (string, error) {
	name := escapeKeyword(index.Name)
	inc := name + "++"
	if step != "" {
		inc = name + " += " + step
	}
	var w writer
	w.writeLine("for (%s = %s; %s < %s; %s) {", declaration(index.Type, name), from, name, to, inc)
	w.writeBody(body)
	w.writeLine("}")
	return w.String(), nil
}

// Scope writes a nested block holding a block instance.
func (g *Generator) Scope(label, body string) (string, error) {
	var w writer
	w.writeLine("{ // %s", label)
	w.writeBody(body)
	w.writeLine("}")
	return w.String(), nil
}

// While writes a while loop.
func (g *Generator) While(cond, body string) (string, error) {
	var w writer
	w.writeLine("while (%s) {", cond)
	w.writeBody(body)
	w.writeLine("}")
	return w.String(), nil
}

// Break writes a break statement.
func (g *Generator) Break() (string, error) { return "break;\n", nil }

// Continue writes a continue statement.
func (g *Generator) Continue() (string, error) { return "continue;\n", nil }

// Discard writes a discard statement.
func (g *Generator) Discard() (string, error) { return "discard;\n", nil }
