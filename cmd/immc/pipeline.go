package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gogpu/immediates"
	"github.com/gogpu/immediates/glsl"
	"github.com/gogpu/immediates/internal/config"
	"github.com/gogpu/immediates/internal/manifest"
	"github.com/gogpu/immediates/ir"
	"github.com/gogpu/immediates/irpack"
)

const moduleExt = ".nagair"

// addPipelineFlags registers the flags shared by run and layout.
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "pipeline config file (.toml, .yaml)")
	cmd.Flags().String("glsl-version", "", "target GLSL version, e.g. \"330\" or \"310 es\"")
	cmd.Flags().Uint32("first-vertex-offset", 0, "immediate offset of the first vertex index")
	cmd.Flags().Uint32("first-instance-offset", 0, "immediate offset of the first instance index")
	cmd.Flags().Uint32("buffer-sizes-offset", 0, "immediate offset of the storage buffer sizes")
	cmd.Flags().Bool("no-validate", false, "skip IR validation before the passes")
}

// pipelineOptions merges the config file with flags; flags set on the
// command line win.
func pipelineOptions(cmd *cobra.Command) (immediates.Options, error) {
	opts := immediates.DefaultOptions()
	flags := cmd.Flags()

	path, err := flags.GetString("config")
	if err != nil {
		return opts, fmt.Errorf("failed to get config flag: %w", err)
	}
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return opts, err
		}
		if opts.Raise, err = cfg.Options(); err != nil {
			return opts, fmt.Errorf("%s: %w", path, err)
		}
	}

	if flags.Changed("glsl-version") {
		s, _ := flags.GetString("glsl-version")
		v, err := glsl.ParseVersion(s)
		if err != nil {
			return opts, err
		}
		opts.Raise.LangVersion = v
	}
	if flags.Changed("first-vertex-offset") {
		v, _ := flags.GetUint32("first-vertex-offset")
		opts.Raise.FirstVertexOffset = &v
	}
	if flags.Changed("first-instance-offset") {
		v, _ := flags.GetUint32("first-instance-offset")
		opts.Raise.FirstInstanceOffset = &v
	}
	if flags.Changed("buffer-sizes-offset") {
		opts.Raise.BufferSizesOffset, _ = flags.GetUint32("buffer-sizes-offset")
	}
	if noValidate, _ := flags.GetBool("no-validate"); noValidate {
		opts.Validate = false
	}

	logger, err := newLogger(cmd)
	if err != nil {
		return opts, err
	}
	opts.Raise.Logger = logger
	return opts, nil
}

// fileResult is the outcome of one input.
type fileResult struct {
	Input    string
	Output   string
	Module   *ir.Module
	Manifest *manifest.Manifest
}

// raiseFile decodes path and runs the pipeline on it.
func raiseFile(path string, opts immediates.Options) (*fileResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := irpack.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	res, err := immediates.Run(m, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	man, err := manifest.New(m, res.RaiseResult, opts.Raise.BindpointToSizeIndex)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &fileResult{Input: path, Module: m, Manifest: man}, nil
}

// outputPath is input with ".raised" before the extension.
func outputPath(input string) string {
	ext := filepath.Ext(input)
	if ext == "" {
		ext = moduleExt
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".raised" + ext
}

// manifestPath places the manifest next to the output module.
func manifestPath(output string, format manifest.Format) string {
	base := strings.TrimSuffix(output, filepath.Ext(output))
	if format == manifest.YAML {
		return base + ".manifest.yaml"
	}
	return base + ".manifest.msgpack"
}

func writeModule(path string, m *ir.Module) error {
	data, err := irpack.Marshal(m)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return os.WriteFile(path, data, 0o644) //nolint:gosec // output is not secret
}

func writeManifest(path string, man *manifest.Manifest, format manifest.Format) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := man.Encode(f, format); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
