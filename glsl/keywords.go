// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import "strings"

// reservedWords lists GLSL keywords, reserved words and builtin function
// names that a KSL identifier could collide with. Based on GLSL 4.60 and
// GLSL ES 3.20.
const reservedWords = `
void bool int uint float double
vec2 vec3 vec4 ivec2 ivec3 ivec4 uvec2 uvec3 uvec4 bvec2 bvec3 bvec4 dvec2 dvec3 dvec4
mat2 mat3 mat4 mat2x2 mat2x3 mat2x4 mat3x2 mat3x3 mat3x4 mat4x2 mat4x3 mat4x4
dmat2 dmat3 dmat4
sampler sampler1D sampler2D sampler3D samplerCube sampler1DArray sampler2DArray samplerCubeArray
sampler2DShadow samplerCubeShadow sampler2DArrayShadow samplerBuffer sampler2DMS
isampler2D usampler2D image2D atomic_uint
attribute const uniform varying buffer shared coherent volatile restrict readonly writeonly
layout centroid flat smooth noperspective patch sample subroutine
break continue do for while switch case default if else discard return
in out inout true false invariant precise struct
lowp mediump highp precision
common partition active asm class union enum typedef template this resource goto
inline noinline public static extern external interface long short half fixed unsigned superp
input output hvec2 hvec3 hvec4 fvec2 fvec3 fvec4 filter sizeof cast namespace using
main
radians degrees sin cos tan asin acos atan sinh cosh tanh asinh acosh atanh
pow exp log exp2 log2 sqrt inversesqrt abs sign floor trunc round roundEven ceil fract
mod modf min max clamp mix step smoothstep isnan isinf fma frexp ldexp
length distance dot cross normalize faceforward reflect refract
matrixCompMult outerProduct transpose determinant inverse
lessThan lessThanEqual greaterThan greaterThanEqual equal notEqual any all not
texture textureLod textureProj textureOffset texelFetch textureGrad textureSize
dFdx dFdy fwidth barrier memoryBarrier
`

var glslKeywords = func() map[string]struct{} {
	words := strings.Fields(reservedWords)
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

// isKeyword checks if a name is a GLSL keyword or reserved word.
func isKeyword(name string) bool {
	_, ok := glslKeywords[name]
	return ok
}

// escapeKeyword escapes a name if it conflicts with GLSL keywords or uses
// the reserved gl_ prefix. Names containing a double underscore are
// reserved too and get a trailing underscore.
func escapeKeyword(name string) string {
	if name == "" {
		return "_unnamed"
	}
	if isKeyword(name) || strings.HasPrefix(name, "gl_") {
		name = "_" + name
	}
	if strings.Contains(name, "__") {
		name = strings.ReplaceAll(name, "__", "_x_")
	}
	return name
}
