// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ir

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes KSL construction, layout and generation errors.
type ErrorKind uint8

const (
	// ErrTypeMismatch indicates an operand type violates an operator or builtin rule.
	ErrTypeMismatch ErrorKind = iota

	// ErrNameCollision indicates two declarations ended up with the same name.
	ErrNameCollision

	// ErrUnassignedOutput indicates a block output port was read or left unassigned.
	ErrUnassignedOutput

	// ErrDoubleAssignment indicates a block output port was assigned twice.
	ErrDoubleAssignment

	// ErrLayoutOverflow indicates a declaration that has no valid memory layout.
	ErrLayoutOverflow

	// ErrGeneratorUnsupported indicates a generator lacks support for a node in the program.
	ErrGeneratorUnsupported

	// ErrScopeClosed indicates a statement was appended to a closed scope.
	ErrScopeClosed

	// ErrOutOfScope indicates a variable was used outside of the scope that declares it.
	ErrOutOfScope

	// ErrUnboundInput indicates a block input without default was never bound.
	ErrUnboundInput

	// ErrProgramFinalized indicates a builder was used after Finalize.
	ErrProgramFinalized

	// ErrInvalidArgument indicates a malformed declaration or builder argument.
	ErrInvalidArgument
)

// String returns a human-readable error kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrTypeMismatch:
		return "TypeMismatch"
	case ErrNameCollision:
		return "NameCollision"
	case ErrUnassignedOutput:
		return "UnassignedOutput"
	case ErrDoubleAssignment:
		return "DoubleAssignment"
	case ErrLayoutOverflow:
		return "LayoutOverflow"
	case ErrGeneratorUnsupported:
		return "GeneratorUnsupported"
	case ErrScopeClosed:
		return "ScopeClosed"
	case ErrOutOfScope:
		return "OutOfScope"
	case ErrUnboundInput:
		return "UnboundInput"
	case ErrProgramFinalized:
		return "ProgramFinalized"
	case ErrInvalidArgument:
		return "InvalidArgument"
	default:
		return "Unknown"
	}
}

// Error represents a KSL error.
type Error struct {
	// Kind categorizes the error.
	Kind ErrorKind

	// Op names the operation that failed, e.g. "dot" or "+".
	Op string

	// Operand is the zero-based index of the offending operand, or -1.
	Operand int

	// Message provides details about the error.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Operand >= 0:
		return fmt.Sprintf("ksl %s in %s (operand %d): %s", e.Kind, e.Op, e.Operand, e.Message)
	case e.Op != "":
		return fmt.Sprintf("ksl %s in %s: %s", e.Kind, e.Op, e.Message)
	default:
		return fmt.Sprintf("ksl %s: %s", e.Kind, e.Message)
	}
}

// NewError creates a new error without operation information.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Operand: -1, Message: message}
}

// Errorf creates a new error with a formatted message.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return NewError(kind, fmt.Sprintf(format, args...))
}

// mismatch creates a TypeMismatch error for operand i of op.
func mismatch(op string, operand int, format string, args ...any) *Error {
	return &Error{Kind: ErrTypeMismatch, Op: op, Operand: operand, Message: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is, or wraps, an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// IsTypeMismatch returns true if the error is ErrTypeMismatch.
func (e *Error) IsTypeMismatch() bool {
	return e.Kind == ErrTypeMismatch
}

// IsGeneratorUnsupported returns true if the error is ErrGeneratorUnsupported.
func (e *Error) IsGeneratorUnsupported() bool {
	return e.Kind == ErrGeneratorUnsupported
}
