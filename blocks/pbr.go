// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package blocks

import (
	"github.com/chewxy/math32"

	"github.com/gogpu/ksl"
	"github.com/gogpu/ksl/ir"
)

// Port names of the PBR material block.
const (
	PbrCameraPos = "cameraPos"
	PbrFragPos   = "fragPos"
	PbrNormal    = "normal"
	PbrBaseColor = "baseColor"
	PbrRoughness = "roughness"
	PbrMetallic  = "metallic"
	PbrAmbient   = "ambient"
	PbrOcclusion = "occlusion"
	PbrOutput    = "color"
)

const (
	minRoughness   = 0.05
	minDenominator = 0.001
	dielectricF0   = 0.04
	defaultRough   = 0.5
	defaultAmbient = 0.03
)

// PbrMaterial instantiates a physically based material block in s. The
// block sums a Cook-Torrance BRDF over the lights of lights and adds an
// ambient term scaled by occlusion.
//
// Lights with a position w of 0 are directional and shine along their
// direction. Other lights are point lights attenuated by the inverse
// square distance. Light colors carry the intensity in alpha.
//
// Inputs: cameraPos, fragPos, normal and baseColor float3; roughness
// float1 (default 0.5); metallic float1 (default 0); ambient float3
// (default 0.03); occlusion float1 (default 1). Output: color float3.
func PbrMaterial(s *ksl.ScopeBuilder, lights *SceneLightData) *ksl.Block {
	return s.Block("pbrMaterial", func(b *ksl.BlockBuilder) {
		camPos := b.Input(PbrCameraPos, ir.Float3, nil)
		fragPos := b.Input(PbrFragPos, ir.Float3, nil)
		normal := b.Input(PbrNormal, ir.Float3, nil)
		baseColor := b.Input(PbrBaseColor, ir.Float3, nil)
		roughnessIn := b.Input(PbrRoughness, ir.Float1, ksl.Float(defaultRough))
		metallic := b.Input(PbrMetallic, ir.Float1, ksl.Float(0))
		ambient := b.Input(PbrAmbient, ir.Float3, ksl.Consts(defaultAmbient, defaultAmbient, defaultAmbient))
		occlusion := b.Input(PbrOcclusion, ir.Float1, ksl.Float(1))
		out := b.Output(PbrOutput, ir.Float3)

		n := b.Var("n", ksl.Normalize(normal.Expr()))
		viewDir := b.Var("viewDir", ksl.Normalize(ksl.Sub(camPos.Expr(), fragPos.Expr())))
		roughness := b.Var("roughness", ksl.Clamp(roughnessIn.Expr(), ksl.Float(minRoughness), ksl.Float(1)))
		f0 := b.Var("f0", ksl.Mix(ksl.Compose(ir.Float3, ksl.Float(dielectricF0)), baseColor.Expr(), metallic.Expr()))
		lo := b.VarOf("lo", ir.Float3)
		normalDotView := b.Var("normalDotView", ksl.Max(ksl.Dot(n, viewDir), ksl.Float(0)))

		b.ForRange(ksl.Int(0), lights.Count, func(s *ksl.ScopeBuilder, i *ir.Expression) {
			pos := s.Var("lightPos", ksl.Index(lights.Positions, i))
			dir := s.Var("lightDir", ksl.Index(lights.Directions, i))
			color := s.Var("lightColor", ksl.Index(lights.Colors, i))

			directional := ksl.Eq(ksl.Swizzle(pos, "w"), ksl.Float(0))
			toLight := s.Var("toLight", ksl.Sub(ksl.Swizzle(pos, "xyz"), fragPos.Expr()))
			l := s.Var("l", ksl.Normalize(ksl.Select(directional, ksl.Neg(ksl.Swizzle(dir, "xyz")), toLight)))
			attenuation := ksl.Select(directional, ksl.Float(1),
				ksl.Div(ksl.Float(1), ksl.Max(ksl.Dot(toLight, toLight), ksl.Float(minDenominator))))
			radiance := s.Var("radiance", ksl.Mul(ksl.Mul(ksl.Swizzle(color, "rgb"), ksl.Swizzle(color, "a")), attenuation))

			h := s.Var("h", ksl.Normalize(ksl.Add(viewDir, l)))
			normalDotLight := s.Var("normalDotLight", ksl.Max(ksl.Dot(n, l), ksl.Float(0)))
			ndf := s.Var("ndf", distributionGGX(n, h, roughness))
			g := s.Var("g", geometrySmith(normalDotView, normalDotLight, roughness))
			f := s.Var("f", fresnelSchlick(ksl.Max(ksl.Dot(h, viewDir), ksl.Float(0)), f0))

			kD := ksl.Mul(ksl.Sub(ksl.Float(1), f), ksl.Sub(ksl.Float(1), metallic.Expr()))
			denom := ksl.Mul(ksl.Mul(ksl.Float(4), normalDotView), normalDotLight)
			specular := ksl.Div(ksl.Mul(ksl.Mul(ndf, g), f), ksl.Max(denom, ksl.Float(minDenominator)))
			diffuse := ksl.Div(ksl.Mul(kD, baseColor.Expr()), ksl.Float(math32.Pi))
			s.Set(lo, ksl.Add(lo, ksl.Mul(ksl.Mul(ksl.Add(diffuse, specular), radiance), normalDotLight)))
		})

		amb := ksl.Mul(ksl.Mul(ambient.Expr(), baseColor.Expr()), occlusion.Expr())
		b.Assign(out, ksl.Add(amb, lo))
	})
}

// distributionGGX is the Trowbridge-Reitz normal distribution.
func distributionGGX(n, h, roughness *ir.Expression) *ir.Expression {
	a := ksl.Mul(roughness, roughness)
	a2 := ksl.Mul(a, a)
	nDotH := ksl.Max(ksl.Dot(n, h), ksl.Float(0))
	d := ksl.Add(ksl.Mul(ksl.Mul(nDotH, nDotH), ksl.Sub(a2, ksl.Float(1))), ksl.Float(1))
	return ksl.Div(a2, ksl.Mul(ksl.Mul(ksl.Float(math32.Pi), d), d))
}

// geometrySmith combines the Schlick-GGX terms of the view and light
// directions.
func geometrySmith(nDotV, nDotL, roughness *ir.Expression) *ir.Expression {
	r := ksl.Add(roughness, ksl.Float(1))
	k := ksl.Div(ksl.Mul(r, r), ksl.Float(8))
	ggx := func(nDotX *ir.Expression) *ir.Expression {
		return ksl.Div(nDotX, ksl.Add(ksl.Mul(nDotX, ksl.Sub(ksl.Float(1), k)), k))
	}
	return ksl.Mul(ggx(nDotV), ggx(nDotL))
}

// fresnelSchlick approximates the Fresnel reflectance at cosTheta.
func fresnelSchlick(cosTheta, f0 *ir.Expression) *ir.Expression {
	x := ksl.Clamp(ksl.Sub(ksl.Float(1), cosTheta), ksl.Float(0), ksl.Float(1))
	return ksl.Add(f0, ksl.Mul(ksl.Sub(ksl.Float(1), f0), ksl.Pow(x, ksl.Float(5))))
}
