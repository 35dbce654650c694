// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package wgsl

import (
	"regexp"

	"github.com/gogpu/ksl/gen"
	"github.com/gogpu/ksl/ir"
)

// multiSwizzle matches an assignment target ending in a swizzle of more
// than one component.
var multiSwizzle = regexp.MustCompile(`\.[xyzw]{2,4}$`)

// Declare writes a variable declaration. Temporaries are immutable and
// become let declarations; WGSL zero-initializes var declarations without
// an initializer.
func (g *Generator) Declare(v *ir.Variable, init string) (string, error) {
	var w writer
	name := escapeName(v.Name)
	switch {
	case v.Kind == ir.VarTemporary && init != "":
		w.writeLine("let %s = %s;", name, init)
	case init == "":
		w.writeLine("var %s: %s;", name, typeName(v.Type))
	default:
		w.writeLine("var %s: %s = %s;", name, typeName(v.Type), init)
	}
	return w.String(), nil
}

// Assign writes an assignment.
func (g *Generator) Assign(target, value string) (string, error) {
	if multiSwizzle.MatchString(target) {
		return "", gen.Unsupported("WGSL cannot assign swizzle %s", target)
	}
	var w writer
	w.writeLine("%s = %s;", target, value)
	return w.String(), nil
}

// If writes an if / else-if / else chain.
func (g *Generator) If(chain gen.IfChain) (string, error) {
	var w writer
	for i, br := range chain.Branches {
		if i == 0 {
			w.writeLine("if %s {", br.Cond)
		} else {
			w.writeLine("} else if %s {", br.Cond)
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
	name := escapeName(index.Name)
	if step == "" {
		step = "1"
	}
	var w writer
	w.writeLine("for (var %s: %s = %s; %s < %s; %s += %s) {", name, typeName(index.Type), from, name, to, name, step)
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
	w.writeLine("while %s {", cond)
	w.writeBody(body)
	w.writeLine("}")
	return w.String(), nil
}

// Break writes a break statement.
func (g *Generator) Break() (string, error) { return "break;\n", nil }

// Continue writes a continue statement.
func (g *Generator) Continue() (string, error) { return "continue;\n", nil }

// Discard writes a discard statement.
func (g *Generator) Discard() (string, error) {
	if g.stage != ir.StageFragment {
		return "", gen.Unsupported("discard outside a fragment shader")
	}
	return "discard;\n", nil
}
