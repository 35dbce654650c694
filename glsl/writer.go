// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"
	"strings"

	"github.com/gogpu/ksl/gen"
	"github.com/gogpu/ksl/ir"
)

// writer accumulates indented GLSL lines.
type writer struct {
	out    strings.Builder
	indent int
}

// String returns the generated GLSL source code.
func (w *writer) String() string {
	return w.out.String()
}

// writeLine writes a line with indentation.
func (w *writer) writeLine(format string, args ...any) {
	w.writeIndent()
	if len(args) == 0 {
		w.out.WriteString(format)
	} else {
		fmt.Fprintf(&w.out, format, args...)
	}
	w.out.WriteByte('\n')
}

// writeIndent writes the current indentation.
func (w *writer) writeIndent() {
	for i := 0; i < w.indent; i++ {
		w.out.WriteString("    ")
	}
}

// writeBody writes a generated body one level deeper than the current line.
func (w *writer) writeBody(body string) {
	w.pushIndent()
	for _, line := range strings.SplitAfter(body, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		w.writeIndent()
		w.out.WriteString(line)
	}
	w.popIndent()
}

// pushIndent increases indentation.
func (w *writer) pushIndent() {
	w.indent++
}

// popIndent decreases indentation.
func (w *writer) popIndent() {
	if w.indent > 0 {
		w.indent--
	}
}

// Stage writes the complete stage: version directive, precision
// qualifiers, declarations and the main function.
func (g *Generator) Stage(unit *gen.StageUnit) (string, error) {
	st := unit.Stage
	version := g.options.LangVersion
	if st.Kind == ir.StageCompute && !version.SupportsCompute() {
		return "", gen.Unsupported("compute shaders require GLSL 4.30 or ES 3.10, target is %s", version)
	}

	var w writer
	w.writeLine("#version %s", version.String())
	w.writeLine("")
	g.writePrecisionQualifiers(&w)
	if st.Kind == ir.StageCompute {
		w.writeLine("layout(local_size_x = %d, local_size_y = %d, local_size_z = %d) in;",
			st.Workgroup[0], st.Workgroup[1], st.Workgroup[2])
		w.writeLine("")
	}

	g.writeStructs(&w, unit)
	if err := g.writeUniformBuffers(&w, unit); err != nil {
		return "", err
	}
	g.writeTextures(&w, unit)
	g.writeInterface(&w, unit)

	w.writeLine("void main() {")
	w.writeBody(unit.Body)
	w.writeLine("}")
	return w.String(), nil
}

// writePrecisionQualifiers writes precision qualifiers for ES.
func (g *Generator) writePrecisionQualifiers(w *writer) {
	if !g.options.LangVersion.ES {
		return
	}
	precision := "mediump"
	if g.options.ForceHighPrecision {
		precision = "highp"
	}
	w.writeLine("precision %s float;", precision)
	w.writeLine("precision highp int;")
	w.writeLine("precision %s sampler3D;", precision)
	w.writeLine("precision %s sampler2DArray;", precision)
	w.writeLine("")
}

// usedBuffers returns the uniform buffers with at least one member used by
// the stage.
func usedBuffers(unit *gen.StageUnit) []*ir.UniformBuffer {
	var out []*ir.UniformBuffer
	for _, ub := range unit.Program.Buffers {
		for _, m := range ub.Members {
			if unit.Stage.UsesVar(m) {
				out = append(out, ub)
				break
			}
		}
	}
	return out
}

// writeStructs declares the struct types of uniform members and locals.
func (g *Generator) writeStructs(w *writer, unit *gen.StageUnit) {
	seen := make(map[*ir.StructType]bool)
	var structs []*ir.StructType
	for _, ub := range usedBuffers(unit) {
		for _, m := range ub.Members {
			structs = collectStructs(m.Type, seen, structs)
		}
	}
	ir.WalkStatements(unit.Stage.Body, func(s ir.Statement) bool {
		if d, ok := s.(ir.StmtDeclare); ok {
			structs = collectStructs(d.Var.Type, seen, structs)
		}
		return true
	})
	for _, st := range structs {
		w.writeLine("struct %s {", escapeKeyword(st.Name))
		w.pushIndent()
		for _, m := range st.Members {
			w.writeLine("%s;", declaration(m.Type, escapeKeyword(m.Name)))
		}
		w.popIndent()
		w.writeLine("};")
		w.writeLine("")
	}
}

// writeUniformBuffers declares uniform buffers as instance-less blocks.
func (g *Generator) writeUniformBuffers(w *writer, unit *gen.StageUnit) error {
	version := g.options.LangVersion
	for _, ub := range usedBuffers(unit) {
		var qualifiers []string
		storage := "uniform"
		switch ub.Policy {
		case ir.LayoutStd140:
			qualifiers = append(qualifiers, "std140")
		case ir.LayoutStd430:
			if !version.SupportsStorageBuffers() {
				return gen.Unsupported("std430 buffer %s requires storage buffers, target is %s", ub.Name, version)
			}
			qualifiers = append(qualifiers, "std430")
			storage = "readonly buffer"
		default:
			return gen.Unsupported("buffer %s: GLSL has no %s block layout", ub.Name, ub.Policy)
		}
		if ub.Binding >= 0 && version.SupportsExplicitBindings() {
			qualifiers = append(qualifiers, fmt.Sprintf("binding = %d", ub.Binding))
		}
		w.writeLine("layout(%s) %s %s {", strings.Join(qualifiers, ", "), storage, escapeKeyword(ub.Name))
		w.pushIndent()
		for _, m := range ub.Members {
			w.writeLine("%s;", declaration(m.Type, escapeKeyword(m.Name)))
		}
		w.popIndent()
		w.writeLine("};")
		w.writeLine("")
	}
	return nil
}

// writeTextures declares the combined samplers used by the stage.
func (g *Generator) writeTextures(w *writer, unit *gen.StageUnit) {
	textures := gen.SortedUses(unit.Stage, ir.VarTexture)
	for _, t := range textures {
		decl := fmt.Sprintf("uniform %s %s;", typeToGLSL(t.Type), escapeKeyword(t.Name))
		if g.options.LangVersion.SupportsExplicitBindings() {
			decl = fmt.Sprintf("layout(binding = %d) %s", t.Binding, decl)
		}
		w.writeLine("%s", decl)
	}
	if len(textures) > 0 {
		w.writeLine("")
	}
}

// writeInterface declares stage inputs and outputs.
func (g *Generator) writeInterface(w *writer, unit *gen.StageUnit) {
	p := unit.Program
	n := 0
	line := func(format string, args ...any) {
		w.writeLine(format, args...)
		n++
	}
	locations := g.options.LangVersion.SupportsInterfaceLocations()
	interStage := func(dir string) {
		for _, v := range p.InterStage {
			var decl string
			if locations {
				decl = fmt.Sprintf("layout(location = %d) ", v.Location)
			}
			if v.Flat {
				decl += "flat "
			}
			line("%s%s %s;", decl, dir, declaration(v.Type, escapeKeyword(v.Name)))
		}
	}

	switch unit.Stage.Kind {
	case ir.StageVertex:
		for _, v := range p.Attributes {
			line("layout(location = %d) in %s;", v.Location, declaration(v.Type, escapeKeyword(v.Name)))
		}
		interStage("out")
	case ir.StageFragment:
		interStage("in")
		for _, v := range p.Outputs {
			line("layout(location = %d) out %s;", v.Location, declaration(v.Type, escapeKeyword(v.Name)))
		}
	}
	if n > 0 {
		w.writeLine("")
	}
}
