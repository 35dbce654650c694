// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"

	"github.com/gogpu/ksl/gen"
	"github.com/gogpu/ksl/ir"
)

// Version represents a GLSL version.
type Version struct {
	Major uint8
	Minor uint8
	ES    bool // true for GLSL ES (OpenGL ES / WebGL)
}

// Common GLSL versions.
var (
	// Desktop OpenGL versions
	Version330 = Version{Major: 3, Minor: 30, ES: false} // OpenGL 3.3 Core
	Version410 = Version{Major: 4, Minor: 10, ES: false} // OpenGL 4.1
	Version430 = Version{Major: 4, Minor: 30, ES: false} // OpenGL 4.3 (compute shaders)
	Version450 = Version{Major: 4, Minor: 50, ES: false} // OpenGL 4.5

	// OpenGL ES / WebGL versions
	VersionES300 = Version{Major: 3, Minor: 0, ES: true}  // ES 3.0 / WebGL 2.0
	VersionES310 = Version{Major: 3, Minor: 10, ES: true} // ES 3.1 (compute shaders)
)

// String returns the version as a GLSL version directive value.
func (v Version) String() string {
	if v.ES {
		return fmt.Sprintf("%d%02d es", v.Major, v.Minor)
	}
	return fmt.Sprintf("%d%02d core", v.Major, v.Minor)
}

// ParseVersion parses a version such as "330", "330 core", "300 es" or "300es".
func ParseVersion(s string) (Version, error) {
	var n int
	var suffix string
	if _, err := fmt.Sscanf(s, "%d%s", &n, &suffix); err != nil {
		if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
			return Version{}, fmt.Errorf("glsl: invalid version %q", s)
		}
	}
	if n < 100 || n > 999 {
		return Version{}, fmt.Errorf("glsl: invalid version %q", s)
	}
	v := Version{Major: uint8(n / 100), Minor: uint8(n % 100)}
	switch suffix {
	case "", "core":
	case "es":
		v.ES = true
	default:
		return Version{}, fmt.Errorf("glsl: invalid version profile %q", suffix)
	}
	return v, nil
}

func (v Version) number() int {
	return int(v.Major)*100 + int(v.Minor)
}

// SupportsCompute returns true if this version supports compute shaders.
func (v Version) SupportsCompute() bool {
	if v.ES {
		return v.number() >= 310
	}
	return v.number() >= 430
}

// SupportsStorageBuffers returns true if this version supports storage buffers.
func (v Version) SupportsStorageBuffers() bool {
	return v.SupportsCompute()
}

// SupportsExplicitBindings returns true if layout(binding = N) is accepted
// on uniform blocks and samplers.
func (v Version) SupportsExplicitBindings() bool {
	if v.ES {
		return v.number() >= 310
	}
	return v.number() >= 420
}

// SupportsInterfaceLocations returns true if inter-stage variables accept
// layout(location = N).
func (v Version) SupportsInterfaceLocations() bool {
	if v.ES {
		return v.number() >= 310
	}
	return v.number() >= 410
}

// SupportsFma returns true if fma is a builtin function.
func (v Version) SupportsFma() bool {
	if v.ES {
		return v.number() >= 320
	}
	return v.number() >= 400
}

// Options configures GLSL code generation.
type Options struct {
	// LangVersion is the target GLSL version.
	// Defaults to Version330 if zero.
	LangVersion Version

	// ForceHighPrecision forces highp precision for all float types (ES only).
	// If false, mediump is used.
	ForceHighPrecision bool

	// FoldConstants evaluates literal-only sub-expressions on the host.
	FoldConstants bool
}

// DefaultOptions returns sensible default options for GLSL generation.
func DefaultOptions() Options {
	return Options{
		LangVersion:        Version330,
		ForceHighPrecision: true,
	}
}

// Generator generates GLSL for one stage. It implements [gen.Generator],
// [gen.LoopGenerator] and [gen.Discarder]. A Generator must not be shared
// between concurrent Generate calls.
type Generator struct {
	options Options
}

// New creates a GLSL generator.
func New(options Options) *Generator {
	if options.LangVersion.Major == 0 {
		options.LangVersion = Version330
	}
	return &Generator{options: options}
}

var (
	_ gen.Generator     = (*Generator)(nil)
	_ gen.LoopGenerator = (*Generator)(nil)
	_ gen.Discarder     = (*Generator)(nil)
)

// Compile generates the GLSL source of one stage of p.
func Compile(p *ir.Program, stage ir.ShaderStage, options Options) (string, error) {
	src, err := gen.Generate(p, stage, New(options), gen.Options{FoldConstants: options.FoldConstants})
	if err != nil {
		return "", fmt.Errorf("glsl: %w", err)
	}
	return src, nil
}

// CompileAll generates the GLSL source of every stage of p.
func CompileAll(p *ir.Program, options Options) (map[ir.ShaderStage]string, error) {
	out, err := gen.GenerateAll(p, func() gen.Generator { return New(options) },
		gen.Options{FoldConstants: options.FoldConstants})
	if err != nil {
		return nil, fmt.Errorf("glsl: %w", err)
	}
	return out, nil
}
