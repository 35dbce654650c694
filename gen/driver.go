// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package gen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gogpu/ksl"
	"github.com/gogpu/ksl/eval"
	"github.com/gogpu/ksl/ir"
)

// Generate generates the source of one stage of p with g.
//
// Every expression is generated after its operands. A non-trivial
// expression referenced more than once is generated once per scope into a
// temporary; the temporary is dropped when a variable it reads is assigned
// or when a loop that assigns such a variable is entered.
//
// Generate does not modify p and may run concurrently for the same program
// as long as each call uses its own generator.
func Generate(p *ir.Program, kind ir.ShaderStage, g Generator, opts Options) (string, error) {
	st, ok := p.Stage(kind)
	if !ok {
		return "", ir.Errorf(ir.ErrInvalidArgument, "program %s has no %s stage", p.Name, kind)
	}
	if opts.TempBase == "" {
		opts.TempBase = "t"
	}
	d := &driver{
		g:     g,
		opts:  opts,
		stage: st,
		names: p.Names.Clone(),
		refs:  countReferences(st.Body),
		deps:  make(map[*ir.Expression][]*ir.Variable),
		konst: make(map[*ir.Expression]bool),
	}
	if ss, ok := g.(StageStarter); ok {
		if err := ss.BeginStage(&StageUnit{Program: p, Stage: st, Names: d.names}); err != nil {
			return "", fmt.Errorf("gen: %s %s stage: %w", p.Name, kind, err)
		}
	}
	body, err := d.block(st.Body, nil)
	if err != nil {
		return "", fmt.Errorf("gen: %s %s stage: %w", p.Name, kind, err)
	}
	src, err := g.Stage(&StageUnit{Program: p, Stage: st, Body: body, Names: d.names})
	if err != nil {
		return "", fmt.Errorf("gen: %s %s stage: %w", p.Name, kind, err)
	}
	ksl.Logger().Debug("gen: stage generated", "program", p.Name, "stage", kind.String(),
		"temporaries", d.temps, "folded", d.folded, "bytes", len(src))
	return src, nil
}

// GenerateAll generates every stage of p, keyed by stage. newGenerator is
// called once per stage.
func GenerateAll(p *ir.Program, newGenerator func() Generator, opts Options) (map[ir.ShaderStage]string, error) {
	out := make(map[ir.ShaderStage]string, len(p.Stages))
	for _, st := range p.Stages {
		src, err := Generate(p, st.Kind, newGenerator(), opts)
		if err != nil {
			return nil, err
		}
		out[st.Kind] = src
	}
	return out, nil
}

// countReferences counts, for every expression of body, the number of
// parent nodes and statements referring to it. Shared operands of a shared
// node are counted once.
func countReferences(body ir.Block) map[*ir.Expression]int {
	refs := make(map[*ir.Expression]int)
	seen := make(map[*ir.Expression]bool)
	var visit func(e *ir.Expression)
	visit = func(e *ir.Expression) {
		refs[e]++
		if seen[e] {
			return
		}
		seen[e] = true
		for _, op := range e.Kind.Operands() {
			visit(op)
		}
	}
	ir.WalkStatements(body, func(s ir.Statement) bool {
		for _, e := range ir.StatementExpressions(s) {
			visit(e)
		}
		return true
	})
	return refs
}

type mode uint8

const (
	// modeHoist may emit temporaries before the current statement.
	modeHoist mode = iota
	// modeInline generates a self-contained expression. Used where the
	// expression is re-evaluated by the target: loop conditions and
	// else-if conditions.
	modeInline
)

type frame struct {
	out   strings.Builder
	cache map[*ir.Expression]string
}

type driver struct {
	g     Generator
	opts  Options
	stage *ir.Stage
	names *ir.Namer

	refs  map[*ir.Expression]int
	deps  map[*ir.Expression][]*ir.Variable
	konst map[*ir.Expression]bool

	frames []*frame
	temps  int
	folded int
}

func (d *driver) top() *frame { return d.frames[len(d.frames)-1] }

func (d *driver) emit(s string, err error) error {
	if err != nil {
		return err
	}
	d.top().out.WriteString(s)
	return nil
}

// block generates b in a new scope. pre runs first inside the scope.
func (d *driver) block(b ir.Block, pre func() error) (string, error) {
	d.frames = append(d.frames, &frame{cache: make(map[*ir.Expression]string)})
	defer func() { d.frames = d.frames[:len(d.frames)-1] }()
	if pre != nil {
		if err := pre(); err != nil {
			return "", err
		}
	}
	for _, s := range b {
		if err := d.statement(s); err != nil {
			return "", err
		}
	}
	return d.top().out.String(), nil
}

func (d *driver) lookup(e *ir.Expression) (string, bool) {
	for i := len(d.frames) - 1; i >= 0; i-- {
		if s, ok := d.frames[i].cache[e]; ok {
			return s, true
		}
	}
	return "", false
}

func (d *driver) variables(e *ir.Expression) []*ir.Variable {
	vs, ok := d.deps[e]
	if !ok {
		vs = ir.Variables(e)
		d.deps[e] = vs
	}
	return vs
}

// invalidate drops every cached expression reading a variable of vars.
func (d *driver) invalidate(vars map[*ir.Variable]bool) {
	if len(vars) == 0 {
		return
	}
	for _, f := range d.frames {
		for e := range f.cache {
			for _, v := range d.variables(e) {
				if vars[v] {
					delete(f.cache, e)
					break
				}
			}
		}
	}
}

func (d *driver) isConstant(e *ir.Expression) bool {
	c, ok := d.konst[e]
	if ok {
		return c
	}
	switch k := e.Kind.(type) {
	case ir.ExprVariable, ir.ExprSampleTexture:
		c = false
	case ir.ExprBuiltin:
		c = k.Fun != ir.BuiltinDpdx && k.Fun != ir.BuiltinDpdy && k.Fun != ir.BuiltinFwidth
	default:
		c = true
	}
	if c {
		for _, op := range e.Kind.Operands() {
			if !d.isConstant(op) {
				c = false
				break
			}
		}
	}
	d.konst[e] = c
	return c
}

// foldable reports whether folding e can simplify it.
func foldable(e *ir.Expression) bool {
	switch k := e.Kind.(type) {
	case ir.Literal:
		return false
	case ir.ExprCompose:
		for _, p := range k.Parts {
			if !ir.IsLiteral(p) {
				return true
			}
		}
		return false
	}
	return true
}

// fold evaluates a constant expression. It reports false when e cannot be
// represented as literals, in which case e is generated as written.
func (d *driver) fold(e *ir.Expression) (string, bool, error) {
	v, err := eval.Eval(e, nil)
	if err != nil {
		return "", false, nil
	}
	lit, err := v.Expression()
	if err != nil {
		return "", false, nil
	}
	switch k := lit.Kind.(type) {
	case ir.Literal:
		s, err := d.g.Literal(lit, k)
		return s, err == nil, err
	case ir.ExprCompose:
		parts := make([]string, len(k.Parts))
		for i, p := range k.Parts {
			if parts[i], err = d.g.Literal(p, p.Kind.(ir.Literal)); err != nil {
				return "", false, err
			}
		}
		s, err := d.g.Compose(lit, parts)
		return s, err == nil, err
	}
	return "", false, nil
}

func (d *driver) expr(e *ir.Expression, m mode) (string, error) {
	if s, ok := d.lookup(e); ok {
		return s, nil
	}
	if d.opts.FoldConstants && foldable(e) && d.isConstant(e) {
		s, ok, err := d.fold(e)
		if err != nil {
			return "", err
		}
		if ok {
			d.folded++
			d.top().cache[e] = s
			return s, nil
		}
	}
	s, err := d.generate(e, m)
	if err != nil {
		return "", err
	}
	if m == modeHoist && d.refs[e] > 1 && !ir.IsTrivial(e) {
		tmp := &ir.Variable{Name: d.names.Next(d.opts.TempBase), Type: e.Type, Kind: ir.VarTemporary}
		if err := d.emit(d.g.Declare(tmp, s)); err != nil {
			return "", err
		}
		if s, err = d.g.Variable(ir.NewVariable(tmp), tmp); err != nil {
			return "", err
		}
		d.temps++
		d.top().cache[e] = s
	}
	return s, nil
}

func (d *driver) operands(ops []*ir.Expression, m mode) ([]string, error) {
	out := make([]string, len(ops))
	for i, op := range ops {
		s, err := d.expr(op, m)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func (d *driver) generate(e *ir.Expression, m mode) (string, error) {
	switch k := e.Kind.(type) {
	case ir.Literal:
		return d.g.Literal(e, k)
	case ir.ExprVariable:
		return d.g.Variable(e, k.Var)
	case ir.ExprCompose:
		parts, err := d.operands(k.Parts, m)
		if err != nil {
			return "", err
		}
		return d.g.Compose(e, parts)
	case ir.ExprSwizzle:
		base, err := d.expr(k.Base, m)
		if err != nil {
			return "", err
		}
		return d.g.Swizzle(e, base)
	case ir.ExprMember:
		base, err := d.expr(k.Base, m)
		if err != nil {
			return "", err
		}
		return d.g.Member(e, base)
	case ir.ExprIndex:
		ops, err := d.operands([]*ir.Expression{k.Base, k.Index}, m)
		if err != nil {
			return "", err
		}
		return d.g.Index(e, ops[0], ops[1])
	case ir.ExprUnary:
		x, err := d.expr(k.X, m)
		if err != nil {
			return "", err
		}
		return d.g.Unary(e, x)
	case ir.ExprBinary:
		ops, err := d.operands([]*ir.Expression{k.Left, k.Right}, m)
		if err != nil {
			return "", err
		}
		return d.g.Binary(e, ops[0], ops[1])
	case ir.ExprBuiltin:
		args, err := d.operands(k.Args, m)
		if err != nil {
			return "", err
		}
		return d.g.Builtin(e, args)
	case ir.ExprSampleTexture:
		coord, err := d.expr(k.Coord, m)
		if err != nil {
			return "", err
		}
		var lod string
		if k.Lod != nil {
			if lod, err = d.expr(k.Lod, m); err != nil {
				return "", err
			}
		}
		return d.g.SampleTexture(e, coord, lod)
	case ir.ExprConvert:
		x, err := d.expr(k.X, m)
		if err != nil {
			return "", err
		}
		return d.g.Convert(e, x)
	case ir.ExprSelect:
		ops, err := d.operands([]*ir.Expression{k.Cond, k.Accept, k.Reject}, m)
		if err != nil {
			return "", err
		}
		return d.g.Select(e, ops[0], ops[1], ops[2])
	default:
		return "", Unsupported("expression %T", k)
	}
}

// lvalue generates an assignment target. Path nodes are never cached;
// index operands are ordinary expressions.
func (d *driver) lvalue(e *ir.Expression) (string, error) {
	switch k := e.Kind.(type) {
	case ir.ExprVariable:
		return d.g.Variable(e, k.Var)
	case ir.ExprSwizzle:
		base, err := d.lvalue(k.Base)
		if err != nil {
			return "", err
		}
		return d.g.Swizzle(e, base)
	case ir.ExprMember:
		base, err := d.lvalue(k.Base)
		if err != nil {
			return "", err
		}
		return d.g.Member(e, base)
	case ir.ExprIndex:
		base, err := d.lvalue(k.Base)
		if err != nil {
			return "", err
		}
		index, err := d.expr(k.Index, modeHoist)
		if err != nil {
			return "", err
		}
		return d.g.Index(e, base, index)
	default:
		return "", ir.Errorf(ir.ErrInvalidArgument, "%T is not assignable", k)
	}
}

func (d *driver) statement(s ir.Statement) error {
	switch s := s.(type) {
	case ir.StmtDeclare:
		var init string
		if s.Init != nil {
			var err error
			if init, err = d.expr(s.Init, modeHoist); err != nil {
				return err
			}
		}
		return d.emit(d.g.Declare(s.Var, init))

	case ir.StmtAssign:
		value, err := d.expr(s.Value, modeHoist)
		if err != nil {
			return err
		}
		target, err := d.lvalue(s.Target)
		if err != nil {
			return err
		}
		if err := d.emit(d.g.Assign(target, value)); err != nil {
			return err
		}
		if v := ir.RootVariable(s.Target); v != nil {
			d.invalidate(map[*ir.Variable]bool{v: true})
		}
		return nil

	case ir.StmtIf:
		var chain IfChain
		for i, br := range s.Branches {
			m := modeHoist
			if i > 0 {
				m = modeInline
			}
			cond, err := d.expr(br.Cond, m)
			if err != nil {
				return err
			}
			body, err := d.block(br.Body, nil)
			if err != nil {
				return err
			}
			chain.Branches = append(chain.Branches, Branch{Cond: cond, Body: body})
		}
		if s.Else != nil {
			body, err := d.block(s.Else, nil)
			if err != nil {
				return err
			}
			chain.Else, chain.HasElse = body, true
		}
		return d.emit(d.g.If(chain))

	case ir.StmtForRange:
		from, err := d.expr(s.From, modeHoist)
		if err != nil {
			return err
		}
		assigned := ir.AssignedVariables(s.Body)
		assigned[s.Index] = true
		d.invalidate(assigned)
		to, err := d.expr(s.To, modeInline)
		if err != nil {
			return err
		}
		var step string
		if s.Step != nil {
			if step, err = d.expr(s.Step, modeInline); err != nil {
				return err
			}
		}
		body, err := d.block(s.Body, nil)
		if err != nil {
			return err
		}
		return d.emit(d.g.ForRange(s.Index, from, to, step, body))

	case ir.StmtWhile:
		lg, ok := d.g.(LoopGenerator)
		if !ok {
			return Unsupported("while loops")
		}
		d.invalidate(ir.AssignedVariables(s.Body))
		cond, err := d.expr(s.Cond, modeInline)
		if err != nil {
			return err
		}
		body, err := d.block(s.Body, nil)
		if err != nil {
			return err
		}
		return d.emit(lg.While(cond, body))

	case ir.StmtBreak:
		lg, ok := d.g.(LoopGenerator)
		if !ok {
			return Unsupported("break")
		}
		return d.emit(lg.Break())

	case ir.StmtContinue:
		lg, ok := d.g.(LoopGenerator)
		if !ok {
			return Unsupported("continue")
		}
		return d.emit(lg.Continue())

	case ir.StmtDiscard:
		dg, ok := d.g.(Discarder)
		if !ok {
			return Unsupported("discard")
		}
		return d.emit(dg.Discard())

	case *ir.StmtBlock:
		body, err := d.block(s.Body, func() error {
			for _, in := range s.Inputs {
				init, err := d.expr(in.Value, modeHoist)
				if err != nil {
					return err
				}
				if err := d.emit(d.g.Declare(in.Var, init)); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		return d.emit(d.g.Scope(s.Name, body))

	default:
		return Unsupported("statement %T", s)
	}
}

// SortedUses returns the global variables of kind used by st, ordered by
// location and then by name.
func SortedUses(st *ir.Stage, kind ir.VariableKind) []*ir.Variable {
	var out []*ir.Variable
	for _, v := range st.Uses {
		if v.Kind == kind {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Location != out[j].Location {
			return out[i].Location < out[j].Location
		}
		return out[i].Name < out[j].Name
	})
	return out
}
