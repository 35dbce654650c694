// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Command kslc builds the sample KSL programs and emits shader source,
// SPIR-V binaries, buffer layouts and binding layouts.
//
// Usage:
//
//	kslc generate [--target=glsl|wgsl|msl|hlsl] [programs...]
//	kslc spirv [programs...]
//	kslc layout [programs...]
//	kslc bindings [programs...]
//
// Settings are read from the file named by --config (YAML or TOML);
// command line flags override them.
package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/gogpu/ksl"
	"github.com/gogpu/ksl/internal/config"
)

// CLI is the kslc command line.
type CLI struct {
	Config  string `help:"Configuration file (.yaml, .yml or .toml)." short:"c" type:"existingfile"`
	OutDir  string `help:"Output directory. Defaults to standard output." short:"o" name:"out-dir"`
	Verbose bool   `help:"Log debug messages to standard error." short:"v"`

	Generate GenerateCmd `cmd:"" help:"Generate shader source."`
	Spirv    SpirvCmd    `cmd:"" help:"Compile programs to SPIR-V through WGSL."`
	Layout   LayoutCmd   `cmd:"" help:"Print uniform buffer layouts."`
	Bindings BindingsCmd `cmd:"" help:"Print bind group and vertex buffer layouts."`
}

// load returns the effective configuration.
func (c *CLI) load() (*config.Config, error) {
	cfg := config.Default()
	if c.Config != "" {
		var err error
		if cfg, err = config.Load(c.Config); err != nil {
			return nil, err
		}
	}
	if c.OutDir != "" {
		cfg.OutDir = c.OutDir
	}
	return cfg, nil
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("kslc"),
		kong.Description("KSL sample program compiler."),
		kong.UsageOnError(),
	)
	if cli.Verbose {
		ksl.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	err := ctx.Run(cli)
	ctx.FatalIfErrorf(err)
}
