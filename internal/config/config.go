// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package config loads kslc configuration files.
//
// A configuration file is YAML (.yaml, .yml) or TOML (.toml). Fields
// missing from the file keep the values of [Default]; unknown fields are
// rejected.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/ksl/glsl"
	"github.com/gogpu/ksl/internal/demo"
	"github.com/gogpu/ksl/wgsl"
)

// Targets lists the supported shading languages.
var Targets = []string{"glsl", "wgsl", "msl", "hlsl"}

// Config is the kslc configuration.
type Config struct {
	// Target is the default shading language of generate.
	Target string `yaml:"target" toml:"target" validate:"required,oneof=glsl wgsl msl hlsl"`

	// GLSLVersion is the GLSL dialect, e.g. "330 core" or "300 es".
	GLSLVersion string `yaml:"glsl_version" toml:"glsl_version" validate:"required"`

	// FoldConstants folds constant subexpressions during generation.
	FoldConstants bool `yaml:"fold_constants" toml:"fold_constants"`

	// ValidateIR runs naga IR validation when compiling to SPIR-V.
	ValidateIR bool `yaml:"validate_ir" toml:"validate_ir"`

	// MaxLights bounds the scene lights of lit programs.
	MaxLights uint32 `yaml:"max_lights" toml:"max_lights" validate:"gte=1,lte=64"`

	// Programs selects the sample programs to build. Empty selects all.
	Programs []string `yaml:"programs" toml:"programs" validate:"dive,required"`

	// OutDir receives generated files. Empty writes to standard output.
	OutDir string `yaml:"out_dir" toml:"out_dir"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Target:        "glsl",
		GLSLVersion:   "330 core",
		FoldConstants: true,
		ValidateIR:    true,
		MaxLights:     4,
	}
}

var validate = validator.New()

// Validate checks field constraints and the GLSL version.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fe.Namespace()+": "+describe(fe))
			}
			return fmt.Errorf("config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config: %w", err)
	}
	if _, err := glsl.ParseVersion(c.GLSLVersion); err != nil {
		return fmt.Errorf("config: glsl_version: %w", err)
	}
	for _, name := range c.Programs {
		if !slices.Contains(demo.Names(), name) {
			return fmt.Errorf("config: programs: unknown program %q", name)
		}
	}
	return nil
}

// ProgramNames returns the selected sample programs.
func (c *Config) ProgramNames() []string {
	if len(c.Programs) == 0 {
		return demo.Names()
	}
	return c.Programs
}

// GLSLOptions returns the GLSL generator options of the configuration.
func (c *Config) GLSLOptions() glsl.Options {
	opts := glsl.DefaultOptions()
	if v, err := glsl.ParseVersion(c.GLSLVersion); err == nil {
		opts.LangVersion = v
	}
	opts.FoldConstants = c.FoldConstants
	return opts
}

// WGSLOptions returns the WGSL generator options of the configuration.
func (c *Config) WGSLOptions() wgsl.Options {
	return wgsl.Options{FoldConstants: c.FoldConstants, Validate: c.ValidateIR}
}

// describe converts a validation failure to a short message.
func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("failed %s=%s validation", fe.Tag(), fe.Param())
		}
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes a configuration in the format named by the file extension
// ext and validates it.
func Parse(data []byte, ext string) (*Config, error) {
	c := Default()
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("config: yaml: %w", err)
		}
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(c); err != nil {
			return nil, fmt.Errorf("config: toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("config: unsupported format %q", ext)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
