// Package immediates prepares shader IR for targets whose only per-draw
// uniform channel is a small block of immediate data (push constants).
//
// The pipeline gathers the user's immediate variable and the internal
// values a GLSL backend needs into one block:
//   - first vertex / first instance offsets added to gl_VertexID / gl_InstanceID
//   - storage buffer sizes, replacing arrayLength() queries
//
// Example usage:
//
//	first := uint32(0)
//	opts := immediates.DefaultOptions()
//	opts.Raise.FirstVertexOffset = &first
//	res, err := immediates.Run(module, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	idx, _ := res.Layout.MemberIndex(first)
//
// Modules can be exchanged between tools with the irpack encoding:
//
//	out, res, err := immediates.Compile(packed, opts)
package immediates

import (
	"errors"
	"fmt"

	"github.com/gogpu/immediates/glsl"
	"github.com/gogpu/immediates/ir"
	"github.com/gogpu/immediates/irpack"
	"github.com/gogpu/immediates/transform"
)

// Options configures Run.
type Options struct {
	// Raise configures the GLSL raise passes.
	Raise glsl.Options

	// Validate enables IR validation before the passes run. The passes
	// validate their own output regardless.
	Validate bool
}

// DefaultOptions returns GLSL 330 with no immediate members and validation on.
func DefaultOptions() Options {
	return Options{
		Raise:    glsl.DefaultOptions(),
		Validate: true,
	}
}

// Result is what the runtime must provide for the transformed module.
type Result struct {
	glsl.RaiseResult
}

// Run transforms m in place.
//
// The pipeline is:
//  1. Validate IR (if enabled)
//  2. Lower vertex/instance index builtins to module-scope inputs
//  3. Build the immediate block
//  4. Replace array length queries
//  5. Offset vertex/instance indices
//
// An internal compiler error inside a pass is returned as an error
// wrapping *transform.ICE.
func Run(m *ir.Module, opts Options) (result *Result, err error) {
	if opts.Validate {
		validationErrors, err := Validate(m)
		if err != nil {
			return nil, fmt.Errorf("validation error: %w", err)
		}
		if len(validationErrors) > 0 {
			return nil, fmt.Errorf("validation failed: %w", &validationErrors[0])
		}
	}

	defer func() {
		if r := recover(); r != nil {
			ice, ok := r.(*transform.ICE)
			if !ok {
				panic(r)
			}
			result, err = nil, fmt.Errorf("transform error: %w", ice)
		}
	}()

	res, err := glsl.Raise(m, opts.Raise)
	if err != nil {
		return nil, fmt.Errorf("transform error: %w", err)
	}
	return &Result{RaiseResult: res}, nil
}

// Compile decodes an irpack module, runs the pipeline on it and returns
// the re-encoded module.
func Compile(data []byte, opts Options) ([]byte, *Result, error) {
	m, err := irpack.Unmarshal(data)
	if err != nil {
		return nil, nil, fmt.Errorf("decode error: %w", err)
	}
	res, err := Run(m, opts)
	if err != nil {
		return nil, nil, err
	}
	out, err := irpack.Marshal(m)
	if err != nil {
		return nil, nil, fmt.Errorf("encode error: %w", err)
	}
	return out, res, nil
}

// Validate validates an IR module for correctness.
//
// Returns a slice of validation errors. If the slice is empty, validation passed.
func Validate(module *ir.Module) ([]ir.ValidationError, error) {
	return ir.Validate(module)
}

// IsICE reports whether err was caused by an internal compiler error.
func IsICE(err error) bool {
	var ice *transform.ICE
	return errors.As(err, &ice)
}
