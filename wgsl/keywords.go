// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package wgsl

import "strings"

// reservedWords lists WGSL keywords, reserved words and predeclared
// type names that cannot be used as identifiers.
const reservedWords = `
alias break case const const_assert continue continuing default diagnostic
discard else enable false fn for if let loop override requires return struct
switch true var while
NULL Self abstract active alignas alignof as asm asm_fragment async attribute
auto await become binding_array cast catch class co_await co_return co_yield
coherent column_major common compile compile_fragment concept const_cast
consteval constexpr constinit crate debugger decltype delete demote
demote_to_helper do dynamic_cast enum explicit export extends extern external
fallthrough filter final finally friend from fxgroup get goto groupshared
highp impl implements import inline instanceof interface layout lowp macro
macro_rules match mediump meta mod module move mut mutable namespace new nil
noexcept noinline nointerpolation noperspective null nullptr of operator
package packoffset partition pass patch pixelfragment precise precision
premerge priv protected pub public readonly ref regardless register
reinterpret_cast require resource restrict self set shared sizeof smooth snorm
static static_assert static_cast std subroutine super target template this
thread_local throw trait try type typedef typeid typename typeof union unless
unorm unsafe unsized use using varying virtual volatile wgsl where with
writeonly yield
bool f16 f32 i32 u32 sampler sampler_comparison array atomic ptr
vec2 vec3 vec4 mat2x2 mat2x3 mat2x4 mat3x2 mat3x3 mat3x4 mat4x2 mat4x3 mat4x4
texture_1d texture_2d texture_2d_array texture_3d texture_cube
texture_cube_array texture_multisampled_2d texture_depth_2d
texture_depth_2d_array texture_depth_cube texture_depth_cube_array
texture_depth_multisampled_2d texture_external texture_storage_1d
texture_storage_2d texture_storage_2d_array texture_storage_3d
`

var keywords = func() map[string]struct{} {
	m := make(map[string]struct{})
	for _, w := range strings.Fields(reservedWords) {
		m[w] = struct{}{}
	}
	return m
}()

// isKeyword reports whether name is reserved in WGSL.
func isKeyword(name string) bool {
	_, ok := keywords[name]
	return ok
}

// escapeName returns a valid WGSL identifier for name. Reserved words get
// a trailing underscore; identifiers may not start with two underscores.
func escapeName(name string) string {
	if isKeyword(name) {
		return name + "_"
	}
	if strings.HasPrefix(name, "__") {
		return "v" + name
	}
	if name == "_" {
		return "v_"
	}
	return name
}
