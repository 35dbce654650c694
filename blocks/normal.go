// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package blocks

import (
	"github.com/gogpu/ksl"
	"github.com/gogpu/ksl/ir"
)

// Port names of the normal map block.
const (
	NormalMapNormal   = "normal"
	NormalMapTangent  = "tangent"
	NormalMapTexCoord = "texCoord"
	NormalMapStrength = "strength"
	NormalMapOutput   = "bumpNormal"
)

// NormalMap instantiates a normal map block in s. The block perturbs the
// world space normal input with the tangent space normal sampled from
// normalMap; the w component of the tangent input holds the bitangent
// sign. With a nil normalMap the normal passes through unchanged.
//
// Inputs: normal float3, tangent float4, texCoord float2 and strength
// float1 (default 1). Output: bumpNormal float3.
func NormalMap(s *ksl.ScopeBuilder, normalMap *ir.Expression) *ksl.Block {
	return s.Block("normalMap", func(b *ksl.BlockBuilder) {
		normal := b.Input(NormalMapNormal, ir.Float3, nil)
		tangent := b.Input(NormalMapTangent, ir.Float4, nil)
		uv := b.Input(NormalMapTexCoord, ir.Float2, nil)
		strength := b.Input(NormalMapStrength, ir.Float1, ksl.Float(1))
		out := b.Output(NormalMapOutput, ir.Float3)

		if normalMap == nil {
			b.Assign(out, normal.Expr())
			return
		}
		texel := ksl.Swizzle(ksl.Sample(normalMap, uv.Expr()), "xyz")
		mapped := b.Var("mapNormal", ksl.Normalize(ksl.Sub(ksl.Mul(texel, ksl.Float(2)), ksl.Float(1))))
		b.Assign(out, bumpedNormal(b.ScopeBuilder, normal.Expr(), tangent.Expr(), mapped, strength.Expr()))
	})
}

// bumpedNormal transforms a tangent space normal to world space and blends
// it with the surface normal by strength.
func bumpedNormal(s *ksl.ScopeBuilder, n, t, bump, strength *ir.Expression) *ir.Expression {
	t3 := ksl.Swizzle(t, "xyz")
	bitangent := s.Var("bitangent", ksl.Mul(ksl.Cross(n, t3), ksl.Swizzle(t, "w")))
	tbn := ksl.Mat3(t3, bitangent, n)
	world := ksl.Normalize(ksl.Mul(tbn, bump))
	return ksl.Normalize(ksl.Mix(n, world, strength))
}
