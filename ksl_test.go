// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ksl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/ksl/ir"
)

func TestNextName(t *testing.T) {
	b := NewProgram("names")
	assert.Equal(t, "foo", b.NextName("foo"))
	assert.Equal(t, "foo_2", b.NextName("foo"))
	assert.Equal(t, "foo_3", b.NextName("foo"))

	// declarations share the allocator
	u := b.Uniform("foo", ir.Float1)
	assert.Equal(t, "foo_4", u.Kind.(ir.ExprVariable).Var.Name)
}

// flatProgram builds a minimal textured program.
func flatProgram(t *testing.T) (*ProgramBuilder, *Program) {
	t.Helper()
	b := NewProgram("flat")
	mvp := b.Uniform("uMvp", ir.Mat4)
	tint := b.Uniform("uTint", ir.Float4)
	tex := b.Texture("tAlbedo", ir.Sampler2D)
	pos := b.Attribute("aPosition", ir.Float3)
	uv := b.Attribute("aUv", ir.Float2)
	vUv := b.InterStage("vUv", ir.Float2)

	require.NoError(t, b.Vertex(func(v *StageBuilder) {
		v.Set(v.Position(), Mul(mvp, Float4(pos, Float(1))))
		v.Set(vUv, uv)
	}))
	require.NoError(t, b.Fragment(func(f *StageBuilder) {
		c := f.Var("color", Mul(Sample(tex, vUv), tint))
		f.Set(f.ColorOutput(0), c)
	}))
	p, err := b.Finalize()
	require.NoError(t, err)
	return b, p
}

func TestFinalizeRegistry(t *testing.T) {
	_, p := flatProgram(t)

	d, ok := p.Lookup("uMvp")
	require.True(t, ok)
	assert.Equal(t, ir.DeclUniform, d.Kind)
	assert.Equal(t, ir.Type(ir.Mat4), d.Type)
	assert.True(t, d.Stages.Has(ir.StageVertex))
	assert.False(t, d.Stages.Has(ir.StageFragment))

	d, ok = p.Lookup("tAlbedo")
	require.True(t, ok)
	assert.Equal(t, ir.DeclTexture, d.Kind)
	assert.True(t, d.Stages.Has(ir.StageFragment))
	assert.Equal(t, 1, d.Var.Binding)

	ub, ok := p.IR().Buffer(DefaultBufferName)
	require.True(t, ok)
	assert.Equal(t, 0, ub.Binding)
	assert.Len(t, ub.Members, 2)

	names := make([]string, 0)
	for _, d := range p.Declarations() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"aPosition", "aUv", "tAlbedo", "uMvp", "uTint"}, names)

	require.Len(t, p.IR().Stages, 2)
	assert.Equal(t, ir.StageVertex, p.IR().Stages[0].Kind)
	require.Len(t, p.IR().Outputs, 1)
	assert.Equal(t, 0, p.IR().Outputs[0].Location)
}

func TestFinalizeTwice(t *testing.T) {
	b, _ := flatProgram(t)
	_, err := b.Finalize()
	assert.True(t, ir.IsKind(err, ir.ErrProgramFinalized))

	b2 := NewProgram("late")
	require.NoError(t, b2.Compute(1, 1, 1, func(c *StageBuilder) {}))
	_, err = b2.Finalize()
	require.NoError(t, err)
	b2.Uniform("uLate", ir.Float1)
	assert.True(t, ir.IsKind(b2.Err(), ir.ErrProgramFinalized))
}

func TestPushConstantsAfterFinalize(t *testing.T) {
	b := NewProgram("push")
	b.PushConstants("Params").Member("uScale", ir.Float1)
	require.NoError(t, b.Compute(1, 1, 1, func(c *StageBuilder) {}))
	p, err := b.Finalize()
	require.NoError(t, err)

	late := b.PushConstants("Late")
	require.NotNil(t, late)
	assert.True(t, ir.IsKind(b.Err(), ir.ErrProgramFinalized), "got %v", b.Err())
	require.Len(t, p.IR().Buffers, 1)
	assert.Equal(t, "Params", p.IR().Buffers[0].Name)
}

func TestStageErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *ProgramBuilder) error
		kind  ir.ErrorKind
	}{
		{"type mismatch", func(b *ProgramBuilder) error {
			return b.Vertex(func(v *StageBuilder) {
				v.Var("x", Add(Float(1), Int(1)))
			})
		}, ir.ErrTypeMismatch},
		{"assign mismatch", func(b *ProgramBuilder) error {
			return b.Vertex(func(v *StageBuilder) {
				v.Set(v.Position(), Float3(Float(0)))
			})
		}, ir.ErrTypeMismatch},
		{"out of scope", func(b *ProgramBuilder) error {
			return b.Vertex(func(v *StageBuilder) {
				var inner *ir.Expression
				v.If(Bool(true), func(s *ScopeBuilder) {
					inner = s.Var("t", Float(1))
				})
				v.Var("u", inner)
			})
		}, ir.ErrOutOfScope},
		{"closed scope", func(b *ProgramBuilder) error {
			return b.Vertex(func(v *StageBuilder) {
				var inner *ScopeBuilder
				v.If(Bool(true), func(s *ScopeBuilder) { inner = s })
				inner.Var("late", Float(1))
			})
		}, ir.ErrScopeClosed},
		{"suspended parent", func(b *ProgramBuilder) error {
			return b.Vertex(func(v *StageBuilder) {
				v.If(Bool(true), func(s *ScopeBuilder) {
					v.Var("outer", Float(1))
				})
			})
		}, ir.ErrScopeClosed},
		{"attribute in fragment", func(b *ProgramBuilder) error {
			a := b.Attribute("aColor", ir.Float4)
			return b.Fragment(func(f *StageBuilder) {
				f.Set(f.ColorOutput(0), a)
			})
		}, ir.ErrOutOfScope},
		{"uniform is read only", func(b *ProgramBuilder) error {
			u := b.Uniform("uColor", ir.Float4)
			return b.Fragment(func(f *StageBuilder) {
				f.Set(u, Consts(1, 1, 1, 1))
			})
		}, ir.ErrInvalidArgument},
		{"loop index is read only", func(b *ProgramBuilder) error {
			return b.Vertex(func(v *StageBuilder) {
				v.ForRange(Int(0), Int(4), func(s *ScopeBuilder, i *ir.Expression) {
					s.Set(i, Int(2))
				})
			})
		}, ir.ErrInvalidArgument},
		{"break outside loop", func(b *ProgramBuilder) error {
			return b.Vertex(func(v *StageBuilder) { v.Break() })
		}, ir.ErrInvalidArgument},
		{"discard in vertex", func(b *ProgramBuilder) error {
			return b.Vertex(func(v *StageBuilder) { v.Discard() })
		}, ir.ErrInvalidArgument},
		{"position in fragment", func(b *ProgramBuilder) error {
			return b.Fragment(func(f *StageBuilder) { f.Var("p", f.Position()) })
		}, ir.ErrInvalidArgument},
		{"else after statement", func(b *ProgramBuilder) error {
			return b.Vertex(func(v *StageBuilder) {
				ib := v.If(Bool(true), func(*ScopeBuilder) {})
				v.Var("x", Float(1))
				ib.Else(func(*ScopeBuilder) {})
			})
		}, ir.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewProgram(tt.name)
			err := tt.build(b)
			require.Error(t, err)
			assert.True(t, ir.IsKind(err, tt.kind), "got %v", err)

			_, ferr := b.Finalize()
			assert.Equal(t, err, ferr, "finalize must report the recorded error")
		})
	}
}

func TestDuplicateStage(t *testing.T) {
	b := NewProgram("dup")
	require.NoError(t, b.Vertex(func(*StageBuilder) {}))
	assert.True(t, ir.IsKind(b.Vertex(func(*StageBuilder) {}), ir.ErrInvalidArgument))

	c := NewProgram("mixed")
	require.NoError(t, c.Vertex(func(*StageBuilder) {}))
	assert.Error(t, c.Compute(8, 8, 1, func(*StageBuilder) {}))
}

func TestControlFlow(t *testing.T) {
	b := NewProgram("flow")
	require.NoError(t, b.Fragment(func(f *StageBuilder) {
		acc := f.Var("acc", Float(0))
		f.ForRange(Int(0), Int(4), func(s *ScopeBuilder, i *ir.Expression) {
			s.If(Eq(i, Int(2)), func(s *ScopeBuilder) {
				s.Continue()
			}).ElseIf(Gt(acc, Float(10)), func(s *ScopeBuilder) {
				s.Break()
			}).Else(func(s *ScopeBuilder) {
				s.Set(acc, Add(acc, ToFloat(i)))
			})
		})
		f.While(Lt(acc, Float(100)), func(s *ScopeBuilder) {
			s.Set(acc, Mul(acc, Float(2)))
		})
		f.If(Lt(acc, Float(0)), func(s *ScopeBuilder) { s.Discard() })
		f.Set(f.ColorOutput(0), Float4(acc))
	}))
	p, err := b.Finalize()
	require.NoError(t, err)

	body := p.IR().Stages[0].Body
	require.Len(t, body, 5)
	loop, ok := body[1].(ir.StmtForRange)
	require.True(t, ok)
	assert.Equal(t, ir.VarLoopIndex, loop.Index.Kind)
	require.Len(t, loop.Body, 1)
	cond := loop.Body[0].(ir.StmtIf)
	assert.Len(t, cond.Branches, 2)
	assert.Len(t, cond.Else, 1)
	_, ok = body[2].(ir.StmtWhile)
	assert.True(t, ok)
}

func normalMapBlock(s *ScopeBuilder) *Block {
	return s.Block("normalMap", func(b *BlockBuilder) {
		n := b.Input("normal", ir.Float3, nil)
		strength := b.Input("strength", ir.Float1, Float(1))
		out := b.Output("outNormal", ir.Float3)
		b.Assign(out, Normalize(Mul(n.Expr(), strength.Expr())))
	})
}

func TestBlock(t *testing.T) {
	b := NewProgram("blocks")
	var first, second *Block
	require.NoError(t, b.Fragment(func(f *StageBuilder) {
		nrm := f.Var("nrm", Float3(Float(0), Float(0), Float(1)))
		first = normalMapBlock(f.ScopeBuilder)
		first.MustBind("normal", nrm)
		second = normalMapBlock(f.ScopeBuilder)
		second.MustBind("normal", first.Output("outNormal"))
		f.Set(f.ColorOutput(0), Float4(second.Output("outNormal"), Float(1)))
	}))
	assert.Equal(t, "normalMap", first.Name())
	assert.Equal(t, "normalMap_2", second.Name())

	p, err := b.Finalize()
	require.NoError(t, err)

	var blocks []*ir.StmtBlock
	ir.WalkStatements(p.IR().Stages[0].Body, func(s ir.Statement) bool {
		if sb, ok := s.(*ir.StmtBlock); ok {
			blocks = append(blocks, sb)
		}
		return true
	})
	require.Len(t, blocks, 2)
	// the unbound strength input takes its default
	require.Len(t, blocks[0].Inputs, 2)
	assert.True(t, ir.IsLiteral(blocks[0].Inputs[1].Value))
}

func TestBlockErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(f *StageBuilder)
		kind  ir.ErrorKind
	}{
		{"unassigned output", func(f *StageBuilder) {
			f.Block("empty", func(b *BlockBuilder) {
				b.Output("value", ir.Float1)
			})
		}, ir.ErrUnassignedOutput},
		{"double assignment", func(f *StageBuilder) {
			f.Block("twice", func(b *BlockBuilder) {
				out := b.Output("value", ir.Float1)
				b.Assign(out, Float(1))
				b.Assign(out, Float(2))
			})
		}, ir.ErrDoubleAssignment},
		{"read before assignment", func(f *StageBuilder) {
			f.Block("early", func(b *BlockBuilder) {
				out := b.Output("value", ir.Float1)
				b.Assign(out, Add(b.Read(out), Float(1)))
			})
		}, ir.ErrUnassignedOutput},
		{"assign from nested scope", func(f *StageBuilder) {
			f.Block("nested", func(b *BlockBuilder) {
				out := b.Output("value", ir.Float1)
				b.If(Bool(true), func(*ScopeBuilder) {
					b.Assign(out, Float(1))
				})
			})
		}, ir.ErrOutOfScope},
		{"output set directly", func(f *StageBuilder) {
			blk := f.Block("direct", func(b *BlockBuilder) {
				b.Assign(b.Output("value", ir.Float1), Float(1))
			})
			f.Set(blk.Output("value"), Float(2))
		}, ir.ErrInvalidArgument},
		{"bind declared after block", func(f *StageBuilder) {
			blk := normalMapBlock(f.ScopeBuilder)
			late := f.Var("late", Float3(Float(1)))
			blk.MustBind("normal", late)
		}, ir.ErrOutOfScope},
		{"bind own output", func(f *StageBuilder) {
			blk := normalMapBlock(f.ScopeBuilder)
			blk.MustBind("normal", blk.Output("outNormal"))
		}, ir.ErrUnassignedOutput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewProgram(tt.name)
			err := b.Fragment(tt.build)
			require.Error(t, err)
			assert.True(t, ir.IsKind(err, tt.kind), "got %v", err)
		})
	}
}

func TestUnboundInput(t *testing.T) {
	b := NewProgram("unbound")
	require.NoError(t, b.Fragment(func(f *StageBuilder) {
		blk := normalMapBlock(f.ScopeBuilder)
		f.Set(f.ColorOutput(0), Float4(blk.Output("outNormal"), Float(1)))
	}))
	_, err := b.Finalize()
	assert.True(t, ir.IsKind(err, ir.ErrUnboundInput), "got %v", err)
}

func TestUniformLayoutErrors(t *testing.T) {
	b := NewProgram("bools")
	b.Uniform("uFlag", ir.Bool1)
	require.NoError(t, b.Compute(1, 1, 1, func(*StageBuilder) {}))
	_, err := b.Finalize()
	assert.True(t, ir.IsKind(err, ir.ErrLayoutOverflow))

	c := NewProgram("push")
	c.PushConstants("pc").Member("scale", ir.Float1)
	c.PushConstants("again")
	assert.True(t, ir.IsKind(c.Err(), ir.ErrInvalidArgument))
}

type recordingListener struct {
	created int
	draws   []uint64
	tint    *UniformRef
	fail    bool
}

func (l *recordingListener) OnPipelineCreated(_ *Program, pipe Pipeline) error {
	l.created++
	ref, err := pipe.Uniform("uTint")
	if err != nil {
		return err
	}
	l.tint = ref
	return nil
}

func (l *recordingListener) OnDrawUpdate(dc *DrawContext) error {
	l.draws = append(l.draws, dc.Frame)
	if l.fail {
		return errors.New("draw failed")
	}
	return l.tint.SetFloats(0, float32(len(dc.Lights)), 0, 0, 1)
}

func TestLifecycle(t *testing.T) {
	b := NewProgram("hooks")
	tint := b.Uniform("uTint", ir.Float4)
	l := &recordingListener{}
	b.AddListener(l)
	require.NoError(t, b.Fragment(func(f *StageBuilder) {
		f.Set(f.ColorOutput(0), tint)
	}))
	p, err := b.Finalize()
	require.NoError(t, err)

	hp, err := NewHostPipeline(p)
	require.NoError(t, err)
	assert.Equal(t, 1, l.created)

	require.NoError(t, hp.Draw([]Light{{}, {}}))
	require.NoError(t, hp.Draw(nil))
	assert.Equal(t, []uint64{1, 2}, l.draws)

	got, err := l.tint.Floats(0)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0, 1}, got)

	buf, ok := hp.Buffer(DefaultBufferName)
	require.True(t, ok)
	assert.Equal(t, uint32(16), buf.Layout.Size)

	l.fail = true
	assert.Error(t, hp.Draw(nil))

	_, err = hp.Uniform("missing")
	assert.Error(t, err)
}

type sharedData struct{ name string }

func (d sharedData) Name() string { return d.name }

func TestDataBlocks(t *testing.T) {
	b := NewProgram("data")
	b.AddDataBlock(sharedData{"SceneLightData"})
	db, ok := b.DataBlock("SceneLightData")
	require.True(t, ok)
	assert.Equal(t, "SceneLightData", db.Name())

	b.AddDataBlock(sharedData{"SceneLightData"})
	assert.True(t, ir.IsKind(b.Err(), ir.ErrNameCollision))
}
