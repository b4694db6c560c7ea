// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/immediates/ir"
	"github.com/gogpu/immediates/transform"
)

// ErrUnsupported is returned when the module needs a feature the target
// GLSL version lacks.
var ErrUnsupported = errors.New("glsl: unsupported by target version")

// Version represents a GLSL version.
type Version struct {
	Major uint8
	Minor uint8
	ES    bool // true for GLSL ES (OpenGL ES / WebGL)
}

// Common GLSL versions.
var (
	// Desktop OpenGL versions
	Version330 = Version{Major: 3, Minor: 30, ES: false} // OpenGL 3.3 Core
	Version410 = Version{Major: 4, Minor: 10, ES: false} // OpenGL 4.1
	Version430 = Version{Major: 4, Minor: 30, ES: false} // OpenGL 4.3 (compute shaders)
	Version450 = Version{Major: 4, Minor: 50, ES: false} // OpenGL 4.5
	Version460 = Version{Major: 4, Minor: 60, ES: false} // OpenGL 4.6

	// OpenGL ES / WebGL versions
	VersionES300 = Version{Major: 3, Minor: 0, ES: true}  // ES 3.0 / WebGL 2.0
	VersionES310 = Version{Major: 3, Minor: 10, ES: true} // ES 3.1 (compute shaders)
	VersionES320 = Version{Major: 3, Minor: 20, ES: true} // ES 3.2
)

// String returns the version as a GLSL version directive value.
func (v Version) String() string {
	if v.ES {
		return fmt.Sprintf("%d%02d es", v.Major, v.Minor)
	}
	return fmt.Sprintf("%d%02d core", v.Major, v.Minor)
}

// VersionNumber returns just the numeric version (e.g., "330", "300").
func (v Version) VersionNumber() string {
	return fmt.Sprintf("%d%02d", v.Major, v.Minor)
}

// ParseVersion parses the value of a #version directive, such as
// "330", "330 core" or "310 es".
func ParseVersion(s string) (Version, error) {
	var number int
	var profile string
	n, err := fmt.Sscanf(s, "%d %s", &number, &profile)
	if n == 0 {
		return Version{}, fmt.Errorf("glsl: invalid version %q: %w", s, err)
	}
	if number < 100 || number > 999 {
		return Version{}, fmt.Errorf("glsl: invalid version %q", s)
	}
	v := Version{Major: uint8(number / 100), Minor: uint8(number % 100)} //nolint:gosec // range checked above
	switch profile {
	case "", "core":
	case "es":
		v.ES = true
	default:
		return Version{}, fmt.Errorf("glsl: invalid version profile %q", profile)
	}
	return v, nil
}

// SupportsCompute returns true if this version supports compute shaders.
func (v Version) SupportsCompute() bool {
	if v.ES {
		return v.Major > 3 || (v.Major == 3 && v.Minor >= 10)
	}
	return v.Major > 4 || (v.Major == 4 && v.Minor >= 30)
}

// SupportsStorageBuffers returns true if this version supports storage buffers.
func (v Version) SupportsStorageBuffers() bool {
	if v.ES {
		return v.Major > 3 || (v.Major == 3 && v.Minor >= 10)
	}
	return v.Major > 4 || (v.Major == 4 && v.Minor >= 30)
}

// Options configures the GLSL raise pipeline.
type Options struct {
	// LangVersion is the target GLSL version.
	// Defaults to Version330 if zero.
	LangVersion Version

	// FirstVertexOffset is the byte offset in the immediate block of the
	// draw's first vertex. Nil leaves vertex_index untouched.
	FirstVertexOffset *uint32

	// FirstInstanceOffset is the byte offset in the immediate block of the
	// draw's first instance. Nil leaves instance_index untouched.
	FirstInstanceOffset *uint32

	// BufferSizesOffset is the byte offset in the immediate block of the
	// packed storage buffer sizes.
	BufferSizesOffset uint32

	// BufferSizesArrayElements is the number of vec4<u32> holding buffer
	// sizes. Zero sizes the array from BindpointToSizeIndex.
	BufferSizesArrayElements uint32

	// BindpointToSizeIndex assigns each storage buffer whose length should
	// come from immediate data a slot in the buffer sizes array.
	BindpointToSizeIndex map[transform.BindingPoint]uint32

	// Logger receives debug output from the passes. Nil discards it.
	Logger *slog.Logger
}

// DefaultOptions returns sensible default options for GLSL targets.
func DefaultOptions() Options {
	return Options{
		LangVersion: Version330,
	}
}

// checkVersion reports module features the target version cannot express.
func checkVersion(m *ir.Module, v Version) error {
	if !v.SupportsCompute() {
		for _, ep := range m.EntryPoints {
			if ep.Stage == ir.StageCompute {
				return fmt.Errorf("%w: compute entry point %q needs GLSL %s", ErrUnsupported, ep.Name, v)
			}
		}
	}
	if !v.SupportsStorageBuffers() {
		for _, gv := range m.GlobalVariables {
			if gv.Space == ir.SpaceStorage {
				return fmt.Errorf("%w: storage buffer %q needs GLSL %s", ErrUnsupported, gv.Name, v)
			}
		}
	}
	return nil
}
