// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package wgsl

import (
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/hlsl"
	nagair "github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/msl"
	"github.com/gogpu/naga/spirv"

	"github.com/gogpu/ksl"
	"github.com/gogpu/ksl/ir"
)

// Lower parses and lowers a WGSL module with naga.
func Lower(src string) (*nagair.Module, error) {
	ast, err := naga.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("wgsl: parse: %w", err)
	}
	module, err := naga.LowerWithSource(ast, src)
	if err != nil {
		return nil, fmt.Errorf("wgsl: lower: %w", err)
	}
	return module, nil
}

// lowerStage generates the WGSL module of one stage and lowers it.
func lowerStage(p *ir.Program, stage ir.ShaderStage, options Options) (*nagair.Module, error) {
	src, err := Compile(p, stage, options)
	if err != nil {
		return nil, err
	}
	return Lower(src)
}

// CompileSPIRV compiles one stage of p to a SPIR-V binary through naga.
func CompileSPIRV(p *ir.Program, stage ir.ShaderStage, options Options) ([]byte, error) {
	src, err := Compile(p, stage, options)
	if err != nil {
		return nil, err
	}
	spv, err := naga.CompileWithOptions(src, naga.CompileOptions{
		SPIRVVersion: spirv.Version1_3,
		Validate:     options.Validate,
	})
	if err != nil {
		return nil, fmt.Errorf("wgsl: %s %s stage: %w", p.Name, stage, err)
	}
	ksl.Logger().Debug("wgsl: spir-v compiled", "program", p.Name, "stage", stage.String(), "bytes", len(spv))
	return spv, nil
}

// CompileMSL translates one stage of p to Metal Shading Language through
// naga.
func CompileMSL(p *ir.Program, stage ir.ShaderStage, options Options) (string, error) {
	module, err := lowerStage(p, stage, options)
	if err != nil {
		return "", err
	}
	src, _, err := msl.Compile(module, msl.DefaultOptions())
	if err != nil {
		return "", fmt.Errorf("wgsl: msl: %w", err)
	}
	return src, nil
}

// CompileHLSL translates one stage of p to HLSL through naga.
func CompileHLSL(p *ir.Program, stage ir.ShaderStage, options Options) (string, error) {
	module, err := lowerStage(p, stage, options)
	if err != nil {
		return "", err
	}
	hopts := hlsl.DefaultOptions()
	hopts.EntryPoint = EntryPoint
	src, _, err := hlsl.Compile(module, hopts)
	if err != nil {
		return "", fmt.Errorf("wgsl: hlsl: %w", err)
	}
	return src, nil
}
