// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"errors"
	"testing"

	"github.com/gogpu/immediates/ir"
)

// =============================================================================
// Version Tests
// =============================================================================

func TestVersion_String(t *testing.T) {
	tests := []struct {
		version Version
		want    string
	}{
		{Version330, "330 core"},
		{Version410, "410 core"},
		{Version430, "430 core"},
		{Version450, "450 core"},
		{Version460, "460 core"},
		{VersionES300, "300 es"},
		{VersionES310, "310 es"},
		{VersionES320, "320 es"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := tt.version.String()
			if got != tt.want {
				t.Errorf("Version.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVersion_VersionNumber(t *testing.T) {
	tests := []struct {
		version Version
		want    string
	}{
		{Version330, "330"},
		{Version450, "450"},
		{VersionES300, "300"},
		{VersionES310, "310"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := tt.version.VersionNumber()
			if got != tt.want {
				t.Errorf("Version.VersionNumber() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    Version
		wantErr bool
	}{
		{"330", Version330, false},
		{"330 core", Version330, false},
		{"310 es", VersionES310, false},
		{"460", Version460, false},
		{"es", Version{}, true},
		{"42", Version{}, true},
		{"300 compatibility", Version{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVersion(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseVersion(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseVersion(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestVersion_SupportsCompute(t *testing.T) {
	tests := []struct {
		version Version
		want    bool
	}{
		{Version330, false},
		{Version410, false},
		{Version430, true},
		{Version450, true},
		{Version460, true},
		{VersionES300, false},
		{VersionES310, true},
		{VersionES320, true},
	}

	for _, tt := range tests {
		t.Run(tt.version.String(), func(t *testing.T) {
			got := tt.version.SupportsCompute()
			if got != tt.want {
				t.Errorf("SupportsCompute() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVersion_SupportsStorageBuffers(t *testing.T) {
	tests := []struct {
		version Version
		want    bool
	}{
		{Version330, false},
		{Version430, true},
		{Version450, true},
		{VersionES300, false},
		{VersionES310, true},
	}

	for _, tt := range tests {
		t.Run(tt.version.String(), func(t *testing.T) {
			got := tt.version.SupportsStorageBuffers()
			if got != tt.want {
				t.Errorf("SupportsStorageBuffers() = %v, want %v", got, tt.want)
			}
		})
	}
}

// =============================================================================
// Options Tests
// =============================================================================

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if opts.LangVersion != Version330 {
		t.Errorf("Expected LangVersion Version330, got %v", opts.LangVersion)
	}
	if opts.FirstVertexOffset != nil || opts.FirstInstanceOffset != nil {
		t.Error("Expected no index offsets by default")
	}
	if len(opts.BindpointToSizeIndex) != 0 {
		t.Errorf("Expected no buffer size slots, got %v", opts.BindpointToSizeIndex)
	}
}

func TestCheckVersion(t *testing.T) {
	b := ir.NewBuilder()
	u32 := b.Type("", ir.U32)
	b.StorageBuffer("buf", b.RuntimeArray(u32, 0), 0, 0)
	fb := b.Function("main")
	fb.Return(nil)
	b.EntryPoint("main", ir.StageCompute, fb.Finish())
	m := b.Module()

	tests := []struct {
		version Version
		wantErr bool
	}{
		{Version330, true},
		{Version410, true},
		{VersionES300, true},
		{Version430, false},
		{VersionES310, false},
	}

	for _, tt := range tests {
		t.Run(tt.version.String(), func(t *testing.T) {
			err := checkVersion(m, tt.version)
			if (err != nil) != tt.wantErr {
				t.Fatalf("checkVersion() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUnsupported) {
				t.Errorf("error %v does not wrap ErrUnsupported", err)
			}
		})
	}
}
