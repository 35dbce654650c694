// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package wgsl

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/gogpu/ksl/gen"
	"github.com/gogpu/ksl/ir"
)

// EntryPoint is the name of the entry point function of every module.
const EntryPoint = "main"

// Resource groups.
const (
	// ResourceGroup holds uniform buffers and textures.
	ResourceGroup = 0
	// SamplerGroup holds the sampler of each texture, at the binding slot
	// of the texture.
	SamplerGroup = 1
)

// Options configures WGSL code generation.
type Options struct {
	// FoldConstants evaluates literal-only sub-expressions on the host.
	FoldConstants bool

	// Validate enables naga IR validation in CompileSPIRV.
	Validate bool
}

// DefaultOptions returns sensible default options for WGSL generation.
func DefaultOptions() Options {
	return Options{FoldConstants: true}
}

// Generator generates WGSL for one stage. It implements [gen.Generator],
// [gen.LoopGenerator], [gen.Discarder] and [gen.StageStarter]. A Generator
// must not be shared between concurrent Generate calls.
type Generator struct {
	options Options

	// Set by BeginStage.
	stage     ir.ShaderStage
	buffers   []*ir.UniformBuffer
	members   map[*ir.UniformBuffer][]member
	instances map[*ir.UniformBuffer]string
	samplers  map[*ir.Variable]string
	padded    map[*ir.Variable]bool
}

// New creates a WGSL generator.
func New(options Options) *Generator {
	return &Generator{options: options}
}

var (
	_ gen.Generator     = (*Generator)(nil)
	_ gen.LoopGenerator = (*Generator)(nil)
	_ gen.Discarder     = (*Generator)(nil)
	_ gen.StageStarter  = (*Generator)(nil)
)

// BeginStage places the uniform buffers used by the stage and allocates
// the names of buffer instances and samplers referenced by the body.
func (g *Generator) BeginStage(unit *gen.StageUnit) error {
	g.stage = unit.Stage.Kind
	g.buffers = usedBuffers(unit)
	g.members = make(map[*ir.UniformBuffer][]member, len(g.buffers))
	g.instances = make(map[*ir.UniformBuffer]string, len(g.buffers))
	g.samplers = make(map[*ir.Variable]string)
	g.padded = make(map[*ir.Variable]bool)

	for _, ub := range g.buffers {
		members, err := placeBuffer(ub, addressSpace(ub) == "uniform")
		if err != nil {
			return err
		}
		g.members[ub] = members
		g.instances[ub] = unit.Names.Next(lowerFirst(ub.Name))
		for i, m := range members {
			if m.padded {
				g.padded[ub.Members[i]] = true
			}
		}
	}
	for _, t := range gen.SortedUses(unit.Stage, ir.VarTexture) {
		g.samplers[t] = unit.Names.Next(t.Name + "Sampler")
	}
	return checkPaddedUses(unit.Stage.Body, g.padded)
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

// addressSpace returns the WGSL address space of a buffer.
func addressSpace(ub *ir.UniformBuffer) string {
	switch {
	case ub.PushConstant:
		return "push_constant"
	case ub.Policy == ir.LayoutStd140:
		return "uniform"
	default:
		return "storage, read"
	}
}

// checkPaddedUses rejects padded arrays used other than by indexing. Every
// use edge is checked: a node reached once through an index may still be
// used whole elsewhere.
func checkPaddedUses(body ir.Block, padded map[*ir.Variable]bool) error {
	if len(padded) == 0 {
		return nil
	}
	check := func(e *ir.Expression) error {
		if v, ok := e.Kind.(ir.ExprVariable); ok && padded[v.Var] {
			return gen.Unsupported("uniform array %s has a 16-byte stride in WGSL and can only be indexed", v.Var.Name)
		}
		return nil
	}
	seen := make(map[*ir.Expression]bool)
	var visit func(e *ir.Expression) error
	visit = func(e *ir.Expression) error {
		if seen[e] {
			return nil
		}
		seen[e] = true
		for i, op := range e.Kind.Operands() {
			if k, ok := e.Kind.(ir.ExprIndex); !ok || i != 0 || k.Base != op {
				if err := check(op); err != nil {
					return err
				}
			}
			if err := visit(op); err != nil {
				return err
			}
		}
		return nil
	}
	var err error
	ir.WalkStatements(body, func(s ir.Statement) bool {
		if err != nil {
			return false
		}
		for _, e := range ir.StatementExpressions(s) {
			if err = check(e); err != nil {
				return false
			}
			if err = visit(e); err != nil {
				return false
			}
		}
		return true
	})
	return err
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// Compile generates the WGSL module of one stage of p.
func Compile(p *ir.Program, stage ir.ShaderStage, options Options) (string, error) {
	src, err := gen.Generate(p, stage, New(options), gen.Options{FoldConstants: options.FoldConstants})
	if err != nil {
		return "", fmt.Errorf("wgsl: %w", err)
	}
	return src, nil
}

// CompileAll generates the WGSL module of every stage of p.
func CompileAll(p *ir.Program, options Options) (map[ir.ShaderStage]string, error) {
	out, err := gen.GenerateAll(p, func() gen.Generator { return New(options) },
		gen.Options{FoldConstants: options.FoldConstants})
	if err != nil {
		return nil, fmt.Errorf("wgsl: %w", err)
	}
	return out, nil
}

// joinArgs joins call arguments.
func joinArgs(args ...string) string {
	return strings.Join(args, ", ")
}
