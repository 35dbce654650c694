// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ir

// Flatten returns every expression reachable from roots in post-order:
// operands always precede the expressions consuming them and each shared
// node appears once.
func Flatten(roots ...*Expression) []*Expression {
	var out []*Expression
	seen := make(map[*Expression]bool)
	var visit func(e *Expression)
	visit = func(e *Expression) {
		if e == nil || seen[e] {
			return
		}
		seen[e] = true
		for _, op := range e.Kind.Operands() {
			visit(op)
		}
		out = append(out, e)
	}
	for _, r := range roots {
		visit(r)
	}
	return out
}

// Variables returns the variables read by the expressions reachable from
// roots, including sampled textures, in first-use order.
func Variables(roots ...*Expression) []*Variable {
	var out []*Variable
	seen := make(map[*Variable]bool)
	add := func(v *Variable) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, e := range Flatten(roots...) {
		switch k := e.Kind.(type) {
		case ExprVariable:
			add(k.Var)
		case ExprSampleTexture:
			add(k.Texture)
		}
	}
	return out
}

// WalkStatements calls fn for every statement of b, descending into nested
// bodies. fn returning false skips the statement's nested bodies.
func WalkStatements(b Block, fn func(Statement) bool) {
	for _, s := range b {
		if !fn(s) {
			continue
		}
		switch s := s.(type) {
		case StmtIf:
			for _, br := range s.Branches {
				WalkStatements(br.Body, fn)
			}
			WalkStatements(s.Else, fn)
		case StmtForRange:
			WalkStatements(s.Body, fn)
		case StmtWhile:
			WalkStatements(s.Body, fn)
		case *StmtBlock:
			WalkStatements(s.Body, fn)
		}
	}
}

// StatementExpressions returns the expression roots held directly by s.
func StatementExpressions(s Statement) []*Expression {
	switch s := s.(type) {
	case StmtDeclare:
		if s.Init != nil {
			return []*Expression{s.Init}
		}
	case StmtAssign:
		return []*Expression{s.Target, s.Value}
	case StmtIf:
		out := make([]*Expression, len(s.Branches))
		for i, br := range s.Branches {
			out[i] = br.Cond
		}
		return out
	case StmtForRange:
		out := []*Expression{s.From, s.To}
		if s.Step != nil {
			out = append(out, s.Step)
		}
		return out
	case StmtWhile:
		return []*Expression{s.Cond}
	case *StmtBlock:
		var out []*Expression
		for _, in := range s.Inputs {
			if in.Value != nil {
				out = append(out, in.Value)
			}
		}
		return out
	}
	return nil
}

// AssignedVariables returns the set of variables written anywhere in b.
func AssignedVariables(b Block) map[*Variable]bool {
	out := make(map[*Variable]bool)
	WalkStatements(b, func(s Statement) bool {
		switch s := s.(type) {
		case StmtAssign:
			if v := RootVariable(s.Target); v != nil {
				out[v] = true
			}
		case StmtForRange:
			out[s.Index] = true
		}
		return true
	})
	return out
}
