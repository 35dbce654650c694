// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package blocks

import (
	"fmt"

	"github.com/gogpu/ksl"
	"github.com/gogpu/ksl/ir"
)

// SceneLightDataName is the data block name of [SceneLightData].
const SceneLightDataName = "SceneLightData"

// Base names of the scene light uniforms.
const (
	UniformLightPositions  = "uLightPositions"
	UniformLightDirections = "uLightDirections"
	UniformLightColors     = "uLightColors"
	UniformLightCount      = "uLightCount"
)

// SceneLightData declares the encoded scene lights of a program and
// writes them on every draw. Lights beyond MaxLights are dropped.
type SceneLightData struct {
	MaxLights uint32

	// Positions, Directions and Colors are float4 arrays of MaxLights
	// elements. Count is the int1 number of valid lights.
	Positions  *ir.Expression
	Directions *ir.Expression
	Colors     *ir.Expression
	Count      *ir.Expression

	refs map[ksl.Pipeline]*lightRefs
}

type lightRefs struct {
	positions, directions, colors, count *ksl.UniformRef
}

// AddSceneLightData returns the scene light data block of b, declaring
// and registering it on first use. A program holds at most one: later
// calls return the registered block regardless of maxLights.
func AddSceneLightData(b *ksl.ProgramBuilder, maxLights uint32) (*SceneLightData, error) {
	if db, ok := b.DataBlock(SceneLightDataName); ok {
		sld, ok := db.(*SceneLightData)
		if !ok {
			return nil, ir.Errorf(ir.ErrNameCollision, "data block %s has type %T", SceneLightDataName, db)
		}
		return sld, nil
	}
	if maxLights == 0 {
		return nil, ir.Errorf(ir.ErrInvalidArgument, "scene light data needs at least one light")
	}
	if err := b.Err(); err != nil {
		return nil, fmt.Errorf("blocks: scene lights not added, program %s already failed: %w", b.Name(), err)
	}
	sld := &SceneLightData{
		MaxLights:  maxLights,
		Positions:  b.UniformArray(UniformLightPositions, ir.Float4, maxLights),
		Directions: b.UniformArray(UniformLightDirections, ir.Float4, maxLights),
		Colors:     b.UniformArray(UniformLightColors, ir.Float4, maxLights),
		Count:      b.Uniform(UniformLightCount, ir.Int1),
		refs:       make(map[ksl.Pipeline]*lightRefs),
	}
	b.AddDataBlock(sld)
	if err := b.Err(); err != nil {
		return nil, fmt.Errorf("blocks: scene lights: %w", err)
	}
	return sld, nil
}

// Name implements [ksl.DataBlock].
func (d *SceneLightData) Name() string { return SceneLightDataName }

func uniformName(e *ir.Expression) string {
	return e.Kind.(ir.ExprVariable).Var.Name
}

// OnPipelineCreated resolves the light uniforms of pipe.
func (d *SceneLightData) OnPipelineCreated(_ *ksl.Program, pipe ksl.Pipeline) error {
	var refs lightRefs
	targets := []struct {
		expr *ir.Expression
		ref  **ksl.UniformRef
	}{
		{d.Positions, &refs.positions},
		{d.Directions, &refs.directions},
		{d.Colors, &refs.colors},
		{d.Count, &refs.count},
	}
	for _, t := range targets {
		ref, err := pipe.Uniform(uniformName(t.expr))
		if err != nil {
			return fmt.Errorf("blocks: scene lights: %w", err)
		}
		*t.ref = ref
	}
	d.refs[pipe] = &refs
	return nil
}

// OnDrawUpdate writes the lights of dc. Draws on pipelines this block was
// not notified of are ignored.
func (d *SceneLightData) OnDrawUpdate(dc *ksl.DrawContext) error {
	refs, ok := d.refs[dc.Pipeline]
	if !ok {
		return nil
	}
	n := min(uint32(len(dc.Lights)), d.MaxLights)
	for i := uint32(0); i < n; i++ {
		l := dc.Lights[i]
		if err := refs.positions.SetFloats(i, l.Position[:]...); err != nil {
			return err
		}
		if err := refs.directions.SetFloats(i, l.Direction[:]...); err != nil {
			return err
		}
		if err := refs.colors.SetFloats(i, l.Color[:]...); err != nil {
			return err
		}
	}
	if n < uint32(len(dc.Lights)) {
		ksl.Logger().Debug("blocks: scene lights clamped", "lights", len(dc.Lights), "max", d.MaxLights)
	}
	return refs.count.SetInts(0, int32(n))
}
