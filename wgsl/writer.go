// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package wgsl

import (
	"fmt"
	"strings"

	"github.com/gogpu/ksl/gen"
	"github.com/gogpu/ksl/ir"
)

// writer accumulates indented WGSL lines.
type writer struct {
	out    strings.Builder
	indent int
}

// String returns the generated WGSL source code.
func (w *writer) String() string {
	return w.out.String()
}

// writeLine writes a line with indentation.
func (w *writer) writeLine(format string, args ...any) {
	for i := 0; i < w.indent; i++ {
		w.out.WriteString("    ")
	}
	if len(args) == 0 {
		w.out.WriteString(format)
	} else {
		fmt.Fprintf(&w.out, format, args...)
	}
	w.out.WriteByte('\n')
}

// writeBody writes a generated body one level deeper than the current line.
func (w *writer) writeBody(body string) {
	w.indent++
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) != "" {
			w.writeLine("%s", line)
		}
	}
	w.indent--
}

// builtinParam describes how a builtin input reaches the stage body.
type builtinParam struct {
	attr string
	// raw is the WGSL type of the entry point parameter.
	raw string
	// convert is set when the parameter is converted to the KSL type.
	convert bool
}

var builtinParams = map[ir.BuiltinValue]builtinParam{
	ir.BuiltinVertexIndex:        {attr: "vertex_index", raw: "u32", convert: true},
	ir.BuiltinInstanceIndex:      {attr: "instance_index", raw: "u32", convert: true},
	ir.BuiltinFragCoord:          {attr: "position", raw: "vec4<f32>"},
	ir.BuiltinFrontFacing:        {attr: "front_facing", raw: "bool"},
	ir.BuiltinGlobalInvocationID: {attr: "global_invocation_id", raw: "vec3<u32>", convert: true},
	ir.BuiltinLocalInvocationID:  {attr: "local_invocation_id", raw: "vec3<u32>", convert: true},
}

// output is one member of the entry point result struct.
type output struct {
	attr string
	name string
	typ  string
}

// Stage writes the complete module: struct and resource declarations
// followed by the entry point wrapping the body.
func (g *Generator) Stage(unit *gen.StageUnit) (string, error) {
	var w writer
	g.writeStructs(&w, unit)
	g.writeBuffers(&w)
	g.writeTextures(&w, unit)

	st := unit.Stage
	var params, prologue []string
	var outputs []output
	location := func(v *ir.Variable) string {
		attr := fmt.Sprintf("@location(%d)", v.Location)
		if v.Flat {
			attr += " @interpolate(flat)"
		}
		return attr
	}

	switch st.Kind {
	case ir.StageVertex:
		for _, v := range unit.Program.Attributes {
			params = append(params, fmt.Sprintf("%s %s: %s", location(v), escapeName(v.Name), typeName(v.Type)))
		}
		var position string
		for _, v := range st.Uses {
			if v.Kind == ir.VarBuiltin && v.Builtin == ir.BuiltinPosition {
				position = v.Name
			}
		}
		if position == "" {
			position = unit.Names.Next("ksl_position")
		}
		outputs = append(outputs, output{attr: "@builtin(position)", name: escapeName(position), typ: "vec4<f32>"})
		for _, v := range unit.Program.InterStage {
			outputs = append(outputs, output{attr: location(v), name: escapeName(v.Name), typ: typeName(v.Type)})
		}
	case ir.StageFragment:
		for _, v := range unit.Program.InterStage {
			params = append(params, fmt.Sprintf("%s %s: %s", location(v), escapeName(v.Name), typeName(v.Type)))
		}
		for _, v := range unit.Program.Outputs {
			outputs = append(outputs, output{attr: fmt.Sprintf("@location(%d)", v.Location), name: escapeName(v.Name), typ: typeName(v.Type)})
		}
		for _, v := range st.Uses {
			if v.Kind == ir.VarBuiltin && v.Builtin == ir.BuiltinFragDepth {
				outputs = append(outputs, output{attr: "@builtin(frag_depth)", name: escapeName(v.Name), typ: "f32"})
			}
		}
	}

	for _, v := range st.Uses {
		if v.Kind != ir.VarBuiltin {
			continue
		}
		bp, ok := builtinParams[v.Builtin]
		if !ok {
			continue
		}
		name := escapeName(v.Name)
		if !bp.convert {
			params = append(params, fmt.Sprintf("@builtin(%s) %s: %s", bp.attr, name, bp.raw))
			continue
		}
		raw := escapeName(unit.Names.Next(v.Name + "_raw"))
		params = append(params, fmt.Sprintf("@builtin(%s) %s: %s", bp.attr, raw, bp.raw))
		prologue = append(prologue, fmt.Sprintf("let %s = %s(%s);", name, typeName(v.Type), raw))
	}

	var result string
	if len(outputs) > 0 {
		result = escapeName(unit.Names.Next(strings.ToUpper(st.Kind.String()[:1]) + st.Kind.String()[1:] + "Output"))
		w.writeLine("struct %s {", result)
		w.indent++
		for _, o := range outputs {
			w.writeLine("%s %s: %s,", o.attr, o.name, o.typ)
		}
		w.indent--
		w.writeLine("}")
		w.writeLine("")
		for _, o := range outputs {
			prologue = append(prologue, fmt.Sprintf("var %s: %s;", o.name, o.typ))
		}
	}

	switch st.Kind {
	case ir.StageCompute:
		w.writeLine("@compute @workgroup_size(%d, %d, %d)", st.Workgroup[0], st.Workgroup[1], st.Workgroup[2])
	default:
		w.writeLine("@%s", st.Kind)
	}
	signature := fmt.Sprintf("fn %s(%s)", EntryPoint, joinArgs(params...))
	if result != "" {
		signature += " -> " + result
	}
	w.writeLine("%s {", signature)
	w.indent++
	for _, line := range prologue {
		w.writeLine("%s", line)
	}
	w.indent--
	w.writeBody(unit.Body)
	if result != "" {
		out := escapeName(unit.Names.Next("stageOut"))
		w.indent++
		w.writeLine("var %s: %s;", out, result)
		for _, o := range outputs {
			w.writeLine("%s.%s = %s;", out, o.name, o.name)
		}
		w.writeLine("return %s;", out)
		w.indent--
	}
	w.writeLine("}")
	return w.String(), nil
}

// writeStructs declares the struct types of buffer members and locals.
func (g *Generator) writeStructs(w *writer, unit *gen.StageUnit) {
	seen := make(map[*ir.StructType]bool)
	var structs []*ir.StructType
	for _, ub := range g.buffers {
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
		w.writeLine("struct %s {", escapeName(st.Name))
		w.indent++
		for _, m := range st.Members {
			w.writeLine("%s: %s,", escapeName(m.Name), typeName(m.Type))
		}
		w.indent--
		w.writeLine("}")
		w.writeLine("")
	}
}

// writeBuffers declares a struct per buffer and the buffer variable.
func (g *Generator) writeBuffers(w *writer) {
	for _, ub := range g.buffers {
		w.writeLine("struct %s {", escapeName(ub.Name))
		w.indent++
		for _, m := range g.members[ub] {
			if m.size != 0 {
				w.writeLine("@size(%d) %s: %s,", m.size, m.name, m.typ)
			} else {
				w.writeLine("%s: %s,", m.name, m.typ)
			}
		}
		w.indent--
		w.writeLine("}")
		w.writeLine("")
	}
	for _, ub := range g.buffers {
		inst := escapeName(g.instances[ub])
		if ub.PushConstant {
			w.writeLine("var<push_constant> %s: %s;", inst, escapeName(ub.Name))
			continue
		}
		w.writeLine("@group(%d) @binding(%d) var<%s> %s: %s;", ResourceGroup, ub.Binding, addressSpace(ub), inst, escapeName(ub.Name))
	}
	if len(g.buffers) > 0 {
		w.writeLine("")
	}
}

// writeTextures declares the textures used by the stage and their samplers.
func (g *Generator) writeTextures(w *writer, unit *gen.StageUnit) {
	textures := gen.SortedUses(unit.Stage, ir.VarTexture)
	for _, t := range textures {
		w.writeLine("@group(%d) @binding(%d) var %s: %s;", ResourceGroup, t.Binding, escapeName(t.Name), typeName(t.Type))
		w.writeLine("@group(%d) @binding(%d) var %s: sampler;", SamplerGroup, t.Binding, escapeName(g.samplers[t]))
	}
	if len(textures) > 0 {
		w.writeLine("")
	}
}
