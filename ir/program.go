// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ir

import (
	"fmt"
	"sort"
)

// ShaderStage represents a shader stage.
type ShaderStage uint8

const (
	StageVertex ShaderStage = iota
	StageFragment
	StageCompute
)

func (s ShaderStage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	default:
		return fmt.Sprintf("ShaderStage(%d)", s)
	}
}

// StageMask is a set of shader stages.
type StageMask uint8

// MaskOf returns the mask containing the given stages.
func MaskOf(stages ...ShaderStage) StageMask {
	var m StageMask
	for _, s := range stages {
		m |= 1 << s
	}
	return m
}

// Has reports whether s is in the mask.
func (m StageMask) Has(s ShaderStage) bool { return m&(1<<s) != 0 }

// VariableKind categorizes variables.
type VariableKind uint8

const (
	VarLocal       VariableKind = iota // function-local variable
	VarLoopIndex                       // read-only loop counter
	VarTemporary                       // generator temporary for a shared expression
	VarUniform                         // member of a uniform buffer
	VarTexture                         // combined texture sampler
	VarAttribute                       // vertex attribute
	VarInterStage                      // vertex output and fragment input
	VarStageOutput                     // fragment color output
	VarBuiltin                         // stage builtin value
)

func (k VariableKind) String() string {
	switch k {
	case VarLocal:
		return "local"
	case VarLoopIndex:
		return "loop index"
	case VarTemporary:
		return "temporary"
	case VarUniform:
		return "uniform"
	case VarTexture:
		return "texture"
	case VarAttribute:
		return "attribute"
	case VarInterStage:
		return "inter-stage"
	case VarStageOutput:
		return "stage output"
	case VarBuiltin:
		return "builtin"
	default:
		return fmt.Sprintf("VariableKind(%d)", k)
	}
}

// IsGlobal reports whether variables of this kind live outside stage bodies.
func (k VariableKind) IsGlobal() bool {
	return k >= VarUniform
}

// BuiltinValue identifies a stage builtin variable.
type BuiltinValue uint8

const (
	BuiltinNone BuiltinValue = iota
	BuiltinPosition
	BuiltinVertexIndex
	BuiltinInstanceIndex
	BuiltinFragCoord
	BuiltinFrontFacing
	BuiltinFragDepth
	BuiltinGlobalInvocationID
	BuiltinLocalInvocationID
)

func (b BuiltinValue) String() string {
	switch b {
	case BuiltinPosition:
		return "position"
	case BuiltinVertexIndex:
		return "vertex_index"
	case BuiltinInstanceIndex:
		return "instance_index"
	case BuiltinFragCoord:
		return "frag_coord"
	case BuiltinFrontFacing:
		return "front_facing"
	case BuiltinFragDepth:
		return "frag_depth"
	case BuiltinGlobalInvocationID:
		return "global_invocation_id"
	case BuiltinLocalInvocationID:
		return "local_invocation_id"
	default:
		return "none"
	}
}

// BuiltinInfo describes the type and stage rules of a builtin value.
type BuiltinInfo struct {
	Type   Type
	Stage  ShaderStage
	Output bool
}

var builtinValues = map[BuiltinValue]BuiltinInfo{
	BuiltinPosition:           {Type: Float4, Stage: StageVertex, Output: true},
	BuiltinVertexIndex:        {Type: Int1, Stage: StageVertex},
	BuiltinInstanceIndex:      {Type: Int1, Stage: StageVertex},
	BuiltinFragCoord:          {Type: Float4, Stage: StageFragment},
	BuiltinFrontFacing:        {Type: Bool1, Stage: StageFragment},
	BuiltinFragDepth:          {Type: Float1, Stage: StageFragment, Output: true},
	BuiltinGlobalInvocationID: {Type: Int3, Stage: StageCompute},
	BuiltinLocalInvocationID:  {Type: Int3, Stage: StageCompute},
}

// LookupBuiltinValue returns the rules of a builtin value.
func LookupBuiltinValue(b BuiltinValue) (BuiltinInfo, bool) {
	info, ok := builtinValues[b]
	return info, ok
}

// Variable represents a named storage location.
type Variable struct {
	Name string
	Type Type
	Kind VariableKind

	// Location is the attribute, inter-stage or color output location.
	Location int

	// Builtin is set for VarBuiltin variables.
	Builtin BuiltinValue

	// Buffer owns VarUniform variables.
	Buffer *UniformBuffer

	// Binding is the texture binding slot for VarTexture variables.
	Binding int

	// Flat disables interpolation of inter-stage variables.
	Flat bool
}

func (v *Variable) String() string {
	return fmt.Sprintf("%s %s: %s", v.Kind, v.Name, v.Type)
}

// Writable reports whether stage s may assign v.
func (v *Variable) Writable(s ShaderStage) bool {
	switch v.Kind {
	case VarLocal:
		return true
	case VarInterStage:
		return s == StageVertex
	case VarStageOutput:
		return s == StageFragment
	case VarBuiltin:
		info, ok := builtinValues[v.Builtin]
		return ok && info.Output && info.Stage == s
	default:
		return false
	}
}

// Readable reports whether stage s may read v.
func (v *Variable) Readable(s ShaderStage) bool {
	switch v.Kind {
	case VarAttribute:
		return s == StageVertex
	case VarInterStage:
		return s == StageVertex || s == StageFragment
	case VarStageOutput:
		return s == StageFragment
	case VarBuiltin:
		info, ok := builtinValues[v.Builtin]
		return ok && info.Stage == s
	default:
		return true
	}
}

// LayoutPolicy names a memory layout policy of a uniform buffer.
type LayoutPolicy uint8

const (
	LayoutStd140 LayoutPolicy = iota
	LayoutStd430
	LayoutTightlyPacked
)

func (p LayoutPolicy) String() string {
	switch p {
	case LayoutStd140:
		return "std140"
	case LayoutStd430:
		return "std430"
	case LayoutTightlyPacked:
		return "tightly-packed"
	default:
		return fmt.Sprintf("LayoutPolicy(%d)", p)
	}
}

// UniformBuffer groups uniform members sharing one binding.
type UniformBuffer struct {
	Name         string
	Binding      int
	Policy       LayoutPolicy
	PushConstant bool
	Members      []*Variable
}

// DeclKind categorizes program declarations.
type DeclKind uint8

const (
	DeclUniform DeclKind = iota
	DeclTexture
	DeclAttribute
)

func (k DeclKind) String() string {
	switch k {
	case DeclUniform:
		return "uniform"
	case DeclTexture:
		return "texture"
	default:
		return "attribute"
	}
}

// Declaration is an entry of the program declaration registry.
type Declaration struct {
	Name string
	Kind DeclKind
	// Type is the element type for arrays.
	Type Type
	// ArrayLen is 0 for non-array declarations.
	ArrayLen uint32
	Var      *Variable
	// Stages is the set of stages that reference the declaration.
	Stages StageMask
}

// Stage is a finalized shader stage.
type Stage struct {
	Kind      ShaderStage
	Body      Block
	Workgroup [3]uint32

	// Uses lists the global variables referenced by the stage in declaration order.
	Uses []*Variable
}

// UsesVar reports whether the stage references v.
func (s *Stage) UsesVar(v *Variable) bool {
	for _, u := range s.Uses {
		if u == v {
			return true
		}
	}
	return false
}

// Program is a finalized KSL program.
type Program struct {
	Name       string
	Stages     []*Stage
	Buffers    []*UniformBuffer
	Textures   []*Variable
	Attributes []*Variable
	InterStage []*Variable
	Outputs    []*Variable
	Names      *Namer

	decls map[string]*Declaration
}

// NewProgram assembles a finalized program and builds its declaration registry.
func NewProgram(name string, stages []*Stage, buffers []*UniformBuffer, textures, attributes, interStage, outputs []*Variable, names *Namer) (*Program, error) {
	p := &Program{
		Name:       name,
		Stages:     stages,
		Buffers:    buffers,
		Textures:   textures,
		Attributes: attributes,
		InterStage: interStage,
		Outputs:    outputs,
		Names:      names,
		decls:      make(map[string]*Declaration),
	}
	add := func(d *Declaration) error {
		if _, dup := p.decls[d.Name]; dup {
			return Errorf(ErrNameCollision, "declaration %q registered twice", d.Name)
		}
		for _, s := range stages {
			if s.UsesVar(d.Var) {
				d.Stages |= MaskOf(s.Kind)
			}
		}
		p.decls[d.Name] = d
		return nil
	}
	for _, b := range buffers {
		for _, m := range b.Members {
			d := &Declaration{Name: m.Name, Kind: DeclUniform, Type: m.Type, Var: m}
			if at, ok := m.Type.(ArrayType); ok {
				d.Type, d.ArrayLen = at.Elem, at.Len
			}
			if err := add(d); err != nil {
				return nil, err
			}
		}
	}
	for _, t := range textures {
		if err := add(&Declaration{Name: t.Name, Kind: DeclTexture, Type: t.Type, Var: t}); err != nil {
			return nil, err
		}
	}
	for _, a := range attributes {
		if err := add(&Declaration{Name: a.Name, Kind: DeclAttribute, Type: a.Type, Var: a}); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Lookup returns the declaration with the given name.
func (p *Program) Lookup(name string) (*Declaration, bool) {
	d, ok := p.decls[name]
	return d, ok
}

// Declarations returns all declarations sorted by name.
func (p *Program) Declarations() []*Declaration {
	out := make([]*Declaration, 0, len(p.decls))
	for _, d := range p.decls {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Stage returns the stage of the given kind.
func (p *Program) Stage(kind ShaderStage) (*Stage, bool) {
	for _, s := range p.Stages {
		if s.Kind == kind {
			return s, true
		}
	}
	return nil, false
}

// Buffer returns the uniform buffer with the given name.
func (p *Program) Buffer(name string) (*UniformBuffer, bool) {
	for _, b := range p.Buffers {
		if b.Name == name {
			return b, true
		}
	}
	return nil, false
}
