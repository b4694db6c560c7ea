// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"

	"github.com/gogpu/immediates/ir"
	"github.com/gogpu/immediates/transform"
)

// RaiseResult describes what the runtime must supply for a raised module.
type RaiseResult struct {
	// Layout is the immediate block the runtime fills before each draw or
	// dispatch. It is empty when the module needs no immediate data.
	Layout transform.ImmediateDataLayout

	// BufferSizesArrayElements is the number of vec4<u32> reserved for
	// storage buffer sizes, zero when none are.
	BufferSizesArrayElements uint32

	// NeedsStorageBufferSizes is set when the module reads buffer sizes.
	NeedsStorageBufferSizes bool
}

// Raise runs the GLSL preparation pipeline on m in place:
// ShaderIO, PrepareImmediateData, ArrayLengthFromImmediates and
// OffsetFirstIndex.
func Raise(m *ir.Module, options Options) (RaiseResult, error) {
	// Apply defaults for zero values
	if options.LangVersion.Major == 0 {
		options.LangVersion = Version330
	}
	if err := checkVersion(m, options.LangVersion); err != nil {
		return RaiseResult{}, err
	}
	opts := []transform.Option{transform.WithLogger(options.Logger)}

	if err := ShaderIO(m, opts...); err != nil {
		return RaiseResult{}, fmt.Errorf("glsl: %w", err)
	}

	var result RaiseResult
	var cfg transform.PrepareImmediateDataConfig
	if options.FirstVertexOffset != nil {
		cfg.AddInternalImmediateData(*options.FirstVertexOffset, transform.FirstVertexMemberName, m.EnsureType("", ir.U32))
	}
	if options.FirstInstanceOffset != nil {
		cfg.AddInternalImmediateData(*options.FirstInstanceOffset, transform.FirstInstanceMemberName, m.EnsureType("", ir.U32))
	}
	if len(options.BindpointToSizeIndex) > 0 {
		result.BufferSizesArrayElements = options.BufferSizesArrayElements
		if result.BufferSizesArrayElements == 0 {
			result.BufferSizesArrayElements = transform.BufferSizesElements(options.BindpointToSizeIndex)
		}
		cfg.AddInternalImmediateData(options.BufferSizesOffset, transform.BufferSizesMemberName,
			transform.BufferSizesType(m, result.BufferSizesArrayElements))
	}

	layout, err := transform.PrepareImmediateData(m, cfg, opts...)
	if err != nil {
		return RaiseResult{}, fmt.Errorf("glsl: %w", err)
	}
	result.Layout = layout

	lengths, err := transform.ArrayLengthFromImmediates(m, layout,
		options.BufferSizesOffset, result.BufferSizesArrayElements, options.BindpointToSizeIndex, opts...)
	if err != nil {
		return RaiseResult{}, fmt.Errorf("glsl: %w", err)
	}
	result.NeedsStorageBufferSizes = lengths.NeedsStorageBufferSizes

	if err := OffsetFirstIndex(m, layout, options.FirstVertexOffset, options.FirstInstanceOffset, opts...); err != nil {
		return RaiseResult{}, fmt.Errorf("glsl: %w", err)
	}
	return result, nil
}
