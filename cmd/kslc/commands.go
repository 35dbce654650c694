// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/gogpu/ksl"
	"github.com/gogpu/ksl/binding"
	"github.com/gogpu/ksl/glsl"
	"github.com/gogpu/ksl/internal/config"
	"github.com/gogpu/ksl/internal/demo"
	"github.com/gogpu/ksl/ir"
	"github.com/gogpu/ksl/layout"
	"github.com/gogpu/ksl/wgsl"
)

// stdout is replaced by tests.
var stdout io.Writer = os.Stdout

// GenerateCmd writes shader source for every stage of the selected programs.
type GenerateCmd struct {
	Target   string   `help:"Shading language: glsl, wgsl, msl or hlsl. Defaults to the configured target." short:"t"`
	Programs []string `arg:"" optional:"" help:"Programs to build. Defaults to the configured programs."`
}

// Run implements the generate command.
func (c *GenerateCmd) Run(cli *CLI) error {
	cfg, err := cli.load()
	if err != nil {
		return err
	}
	target := cfg.Target
	if c.Target != "" {
		target = c.Target
	}
	if !slices.Contains(config.Targets, target) {
		return fmt.Errorf("unknown target %q (want one of %s)", target, strings.Join(config.Targets, ", "))
	}
	return eachProgram(cfg, c.Programs, func(p *ksl.Program) error {
		for _, st := range p.IR().Stages {
			src, err := generate(cfg, target, p.IR(), st.Kind)
			if err != nil {
				return err
			}
			name := fmt.Sprintf("%s.%s", p.Name(), extension(target, st.Kind))
			if err := emit(cfg.OutDir, name, []byte(src)); err != nil {
				return err
			}
		}
		return nil
	})
}

func generate(cfg *config.Config, target string, p *ir.Program, stage ir.ShaderStage) (string, error) {
	switch target {
	case "glsl":
		return glsl.Compile(p, stage, cfg.GLSLOptions())
	case "wgsl":
		return wgsl.Compile(p, stage, cfg.WGSLOptions())
	case "msl":
		return wgsl.CompileMSL(p, stage, cfg.WGSLOptions())
	case "hlsl":
		return wgsl.CompileHLSL(p, stage, cfg.WGSLOptions())
	default:
		return "", fmt.Errorf("unknown target %q", target)
	}
}

var glslExtensions = map[ir.ShaderStage]string{
	ir.StageVertex:   "vert",
	ir.StageFragment: "frag",
	ir.StageCompute:  "comp",
}

func extension(target string, stage ir.ShaderStage) string {
	switch target {
	case "glsl":
		return glslExtensions[stage]
	case "msl":
		return stage.String() + ".metal"
	default:
		return stage.String() + "." + target
	}
}

// SpirvCmd compiles every stage of the selected programs to SPIR-V.
type SpirvCmd struct {
	Programs []string `arg:"" optional:"" help:"Programs to build. Defaults to the configured programs."`
}

// Run implements the spirv command. Binaries are written to the output
// directory, or the working directory when none is configured.
func (c *SpirvCmd) Run(cli *CLI) error {
	cfg, err := cli.load()
	if err != nil {
		return err
	}
	dir := cfg.OutDir
	if dir == "" {
		dir = "."
	}
	return eachProgram(cfg, c.Programs, func(p *ksl.Program) error {
		for _, st := range p.IR().Stages {
			spv, err := wgsl.CompileSPIRV(p.IR(), st.Kind, cfg.WGSLOptions())
			if err != nil {
				return err
			}
			name := fmt.Sprintf("%s.%s.spv", p.Name(), st.Kind)
			if err := emit(dir, name, spv); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "%s: %d bytes\n", filepath.Join(dir, name), len(spv))
		}
		return nil
	})
}

// LayoutCmd prints the layout of every uniform buffer.
type LayoutCmd struct {
	Programs []string `arg:"" optional:"" help:"Programs to build. Defaults to the configured programs."`
}

// Run implements the layout command.
func (c *LayoutCmd) Run(cli *CLI) error {
	cfg, err := cli.load()
	if err != nil {
		return err
	}
	return eachProgram(cfg, c.Programs, func(p *ksl.Program) error {
		for _, ub := range p.IR().Buffers {
			l, err := layout.ComputeBuffer(ub)
			if err != nil {
				return err
			}
			slot := fmt.Sprintf("binding %d", ub.Binding)
			if ub.PushConstant {
				slot = "push constants"
			}
			fmt.Fprintf(stdout, "%s.%s (%s, %s, %d bytes)\n", p.Name(), ub.Name, l.Policy.Name(), slot, l.Size)
			tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "  member\ttype\toffset\tsize\tstride")
			for _, f := range l.Fields {
				typ := f.Type.String()
				if f.ArrayLen > 0 {
					typ = fmt.Sprintf("%s[%d]", typ, f.ArrayLen)
				}
				fmt.Fprintf(tw, "  %s\t%s\t%d\t%d\t%d\n", f.Name, typ, f.Offset, f.Size, f.Stride)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
		}
		return nil
	})
}

// BindingsCmd prints the WebGPU resource layout of the selected programs.
type BindingsCmd struct {
	Programs []string `arg:"" optional:"" help:"Programs to build. Defaults to the configured programs."`
}

// Run implements the bindings command.
func (c *BindingsCmd) Run(cli *CLI) error {
	cfg, err := cli.load()
	if err != nil {
		return err
	}
	return eachProgram(cfg, c.Programs, func(p *ksl.Program) error {
		l, err := binding.For(p.IR())
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s\n", p.Name())
		for group, entries := range l.Groups {
			for _, e := range entries {
				var kind string
				switch {
				case e.Buffer != nil:
					kind = fmt.Sprintf("buffer type=%s min=%d", e.Buffer.Type, e.Buffer.MinBindingSize)
				case e.Texture != nil:
					kind = fmt.Sprintf("texture %s", e.Texture.ViewDimension)
				case e.Sampler != nil:
					kind = fmt.Sprintf("sampler %s", e.Sampler.Type)
				}
				fmt.Fprintf(stdout, "  @group(%d) @binding(%d) %s visibility=%s\n", group, e.Binding, kind, e.Visibility)
			}
		}
		for _, r := range l.PushConstants {
			fmt.Fprintf(stdout, "  push constants [%d, %d) visibility=%s\n", r.Start, r.End, r.Stages)
		}
		if l.Vertex != nil {
			fmt.Fprintf(stdout, "  vertex buffer stride=%d\n", l.Vertex.ArrayStride)
			for _, a := range l.Vertex.Attributes {
				fmt.Fprintf(stdout, "    @location(%d) %s offset=%d\n", a.ShaderLocation, a.Format, a.Offset)
			}
		}
		return nil
	})
}

// eachProgram builds the named programs, or the configured ones when
// names is empty, and calls fn for each.
func eachProgram(cfg *config.Config, names []string, fn func(p *ksl.Program) error) error {
	if len(names) == 0 {
		names = cfg.ProgramNames()
	}
	for _, name := range names {
		p, err := demo.Build(name, demo.Options{MaxLights: cfg.MaxLights})
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// emit writes data to dir/name, or to stdout under a header when dir is
// empty.
func emit(dir, name string, data []byte) error {
	if dir == "" {
		_, err := fmt.Fprintf(stdout, "// %s\n%s\n", name, data)
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name), data, 0o644)
}
