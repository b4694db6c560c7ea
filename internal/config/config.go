// Package config reads immc pipeline settings from TOML or YAML files.
//
// Both formats share one schema:
//
//	glsl_version = "310 es"
//
//	[immediates]
//	first_vertex_offset = 0
//	first_instance_offset = 4
//	buffer_sizes_offset = 16
//
//	[[immediates.buffer_sizes]]
//	group = 0
//	binding = 1
//	slot = 0
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/immediates/glsl"
	"github.com/gogpu/immediates/transform"
)

// ErrUnknownFormat is returned for files whose extension is neither TOML nor YAML.
var ErrUnknownFormat = errors.New("config: unknown format")

// Format is a configuration file syntax.
type Format int

const (
	TOML Format = iota
	YAML
)

func (f Format) String() string {
	switch f {
	case TOML:
		return "toml"
	case YAML:
		return "yaml"
	default:
		return "unknown"
	}
}

// Config is the decoded file.
type Config struct {
	GLSLVersion string     `toml:"glsl_version" yaml:"glsl_version"`
	Immediates  Immediates `toml:"immediates" yaml:"immediates"`
}

// Immediates configures the immediate block. Unset offsets leave the
// corresponding member out.
type Immediates struct {
	FirstVertexOffset        *uint32      `toml:"first_vertex_offset" yaml:"first_vertex_offset"`
	FirstInstanceOffset      *uint32      `toml:"first_instance_offset" yaml:"first_instance_offset"`
	BufferSizesOffset        uint32       `toml:"buffer_sizes_offset" yaml:"buffer_sizes_offset"`
	BufferSizesArrayElements uint32       `toml:"buffer_sizes_array_elements" yaml:"buffer_sizes_array_elements"`
	BufferSizes              []BufferSize `toml:"buffer_sizes" yaml:"buffer_sizes"`
}

// BufferSize assigns a storage buffer binding a slot in the sizes array.
type BufferSize struct {
	Group   uint32 `toml:"group" yaml:"group"`
	Binding uint32 `toml:"binding" yaml:"binding"`
	Slot    uint32 `toml:"slot" yaml:"slot"`
}

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return TOML, nil
	case ".yaml", ".yml":
		return YAML, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, path)
	}
}

// Load reads and decodes the file at path.
func Load(path string) (Config, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := Decode(data, format)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses data. Unknown keys are errors in both formats.
func Decode(data []byte, format Format) (Config, error) {
	var cfg Config
	switch format {
	case TOML:
		meta, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("config: failed to parse TOML: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return Config{}, fmt.Errorf("config: unknown keys: %s", strings.Join(keys, ", "))
		}
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("config: failed to parse YAML: %w", err)
		}
	default:
		return Config{}, fmt.Errorf("%w: %v", ErrUnknownFormat, format)
	}
	return cfg, nil
}

// Options converts the file into raise options.
func (c Config) Options() (glsl.Options, error) {
	opts := glsl.DefaultOptions()
	if c.GLSLVersion != "" {
		v, err := glsl.ParseVersion(c.GLSLVersion)
		if err != nil {
			return glsl.Options{}, fmt.Errorf("config: glsl_version: %w", err)
		}
		opts.LangVersion = v
	}

	imm := c.Immediates
	opts.FirstVertexOffset = imm.FirstVertexOffset
	opts.FirstInstanceOffset = imm.FirstInstanceOffset
	opts.BufferSizesOffset = imm.BufferSizesOffset
	opts.BufferSizesArrayElements = imm.BufferSizesArrayElements

	if len(imm.BufferSizes) == 0 {
		return opts, nil
	}
	slots := make(map[transform.BindingPoint]uint32, len(imm.BufferSizes))
	for _, bs := range imm.BufferSizes {
		bp := transform.BindingPoint{Group: bs.Group, Binding: bs.Binding}
		if _, dup := slots[bp]; dup {
			return glsl.Options{}, fmt.Errorf("config: binding %s listed twice in buffer_sizes", bp)
		}
		slots[bp] = bs.Slot
	}
	if want := transform.BufferSizesElements(slots); imm.BufferSizesArrayElements != 0 && imm.BufferSizesArrayElements < want {
		return glsl.Options{}, fmt.Errorf("config: buffer_sizes_array_elements is %d, slots need %d",
			imm.BufferSizesArrayElements, want)
	}
	opts.BindpointToSizeIndex = slots
	return opts, nil
}
