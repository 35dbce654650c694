// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package blocks provides reusable KSL blocks and data blocks.
//
// [SceneLightData] declares the scene light uniforms once per program and
// refreshes them on every draw. [NormalMap] perturbs a surface normal with
// a tangent-space normal map and [PbrMaterial] shades a surface with a
// Cook-Torrance BRDF over the scene lights.
package blocks
