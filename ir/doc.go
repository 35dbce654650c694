// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package ir defines the typed intermediate representation for KSL shader programs.
//
// The IR is designed to be:
//   - Typed at construction: every expression knows its result type before it
//     is ever handed to a generator
//   - Shared: sub-expressions are referenced by pointer and form a DAG
//   - Immutable once finalized: a Program produced by the builder is read-only
//
// # Structure
//
// A Program contains:
//   - Stages: vertex, fragment and compute bodies built from Statements
//   - UniformBuffers: named groups of uniform members sharing one binding
//   - Textures, Attributes and inter-stage variables
//   - A declaration registry keyed by unique names
//
// # Builtin Functions
//
// Builtin functions share one generic expression node, ExprBuiltin. A static
// table maps each BuiltinFunction to its arity and a rule that checks operand
// legality and computes the result type. Illegal operands are rejected with a
// TypeMismatch error naming the function and the operand index.
package ir
