// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package glsl prepares IR modules for GLSL targets.
//
// GLSL has no way to query the length of a runtime-sized array in a
// storage buffer that survives buffer offsets, and gl_VertexID and
// gl_InstanceID do not include the first vertex and first instance of the
// draw on every target. Both are fixed by reading values the runtime
// uploads as immediate data.
//
// Supported targets:
//
//   - GLSL ES 3.00: WebGL 2.0, Mobile OpenGL ES 3.0
//   - GLSL 3.30 Core: Desktop OpenGL 3.3+
//   - GLSL ES 3.10: Android 5.0+ with compute shaders
//   - GLSL 4.30 Core: Desktop OpenGL 4.3+ with compute shaders
//
// # Basic Usage
//
//	first := uint32(0)
//	res, err := glsl.Raise(module, glsl.Options{
//	    LangVersion:          glsl.VersionES310,
//	    FirstVertexOffset:    &first,
//	    BufferSizesOffset:    16,
//	    BindpointToSizeIndex: map[transform.BindingPoint]uint32{{Group: 0, Binding: 0}: 0},
//	})
//
// Raise lowers vertex and instance index arguments to module-scope inputs,
// builds the immediate block, replaces array length queries and offsets the
// index builtins. res.Layout describes the block the runtime must fill.
package glsl
