package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/immediates/glsl"
	"github.com/gogpu/immediates/transform"
)

const sampleTOML = `
glsl_version = "310 es"

[immediates]
first_vertex_offset = 0
first_instance_offset = 4
buffer_sizes_offset = 16

[[immediates.buffer_sizes]]
group = 0
binding = 1
slot = 0

[[immediates.buffer_sizes]]
group = 1
binding = 0
slot = 5
`

const sampleYAML = `
glsl_version: 310 es
immediates:
  first_vertex_offset: 0
  first_instance_offset: 4
  buffer_sizes_offset: 16
  buffer_sizes:
    - {group: 0, binding: 1, slot: 0}
    - {group: 1, binding: 0, slot: 5}
`

func u32p(v uint32) *uint32 { return &v }

func TestDecode(t *testing.T) {
	want := Config{
		GLSLVersion: "310 es",
		Immediates: Immediates{
			FirstVertexOffset:   u32p(0),
			FirstInstanceOffset: u32p(4),
			BufferSizesOffset:   16,
			BufferSizes: []BufferSize{
				{Group: 0, Binding: 1, Slot: 0},
				{Group: 1, Binding: 0, Slot: 5},
			},
		},
	}
	tests := []struct {
		format Format
		data   string
	}{
		{TOML, sampleTOML},
		{YAML, sampleYAML},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			got, err := Decode([]byte(tt.data), tt.format)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestDecodeEmpty(t *testing.T) {
	for _, format := range []Format{TOML, YAML} {
		t.Run(format.String(), func(t *testing.T) {
			got, err := Decode(nil, format)
			require.NoError(t, err)
			assert.Equal(t, Config{}, got)
		})
	}
}

func TestDecodeUnknownKeys(t *testing.T) {
	tests := []struct {
		format Format
		data   string
	}{
		{TOML, "[immediates]\nfirst_vertx_offset = 0\n"},
		{YAML, "immediates:\n  first_vertx_offset: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			_, err := Decode([]byte(tt.data), tt.format)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "first_vertx_offset")
		})
	}
}

func TestDecodeRejectsNegativeOffset(t *testing.T) {
	_, err := Decode([]byte("[immediates]\nbuffer_sizes_offset = -4\n"), TOML)
	require.Error(t, err)
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"immc.toml", TOML, false},
		{"dir/immc.yaml", YAML, false},
		{"IMMC.YML", YAML, false},
		{"immc.json", 0, true},
		{"immc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatFromPath(tt.path)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "immc.toml")
	yamlPath := filepath.Join(dir, "immc.yml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(sampleTOML), 0o600))
	require.NoError(t, os.WriteFile(yamlPath, []byte(sampleYAML), 0o600))

	fromTOML, err := Load(tomlPath)
	require.NoError(t, err)
	fromYAML, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, fromTOML, fromYAML)

	_, err = Load(filepath.Join(dir, "missing.toml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(filepath.Join(dir, "immc.ini"))
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestOptions(t *testing.T) {
	cfg, err := Decode([]byte(sampleTOML), TOML)
	require.NoError(t, err)

	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, glsl.VersionES310, opts.LangVersion)
	require.NotNil(t, opts.FirstVertexOffset)
	assert.Equal(t, uint32(0), *opts.FirstVertexOffset)
	require.NotNil(t, opts.FirstInstanceOffset)
	assert.Equal(t, uint32(4), *opts.FirstInstanceOffset)
	assert.Equal(t, uint32(16), opts.BufferSizesOffset)
	assert.Equal(t, map[transform.BindingPoint]uint32{
		{Group: 0, Binding: 1}: 0,
		{Group: 1, Binding: 0}: 5,
	}, opts.BindpointToSizeIndex)
}

func TestOptionsDefaults(t *testing.T) {
	opts, err := Config{}.Options()
	require.NoError(t, err)
	assert.Equal(t, glsl.DefaultOptions(), opts)
}

func TestOptionsErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "bad version",
			cfg:  Config{GLSLVersion: "310 gles"},
			want: "glsl_version",
		},
		{
			name: "duplicate binding",
			cfg: Config{Immediates: Immediates{BufferSizes: []BufferSize{
				{Group: 0, Binding: 1, Slot: 0},
				{Group: 0, Binding: 1, Slot: 1},
			}}},
			want: "listed twice",
		},
		{
			name: "array too small",
			cfg: Config{Immediates: Immediates{
				BufferSizesArrayElements: 1,
				BufferSizes:              []BufferSize{{Slot: 4}},
			}},
			want: "slots need 2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cfg.Options()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
