package main

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/immediates/internal/manifest"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags] input.nagair...",
		Short: "Run the immediate data pipeline on irpack modules",
		Long: `Run prepares each module's immediate block, replaces storage buffer
array length queries and offsets vertex/instance indices. Each input is
written next to itself as <name>.raised.nagair unless -o is given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRun,
	}
	addPipelineFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "output file (single input only)")
	cmd.Flags().String("manifest", "", "also write the immediate block manifest (msgpack|yaml)")
	cmd.Flags().IntP("jobs", "j", 0, "max inputs processed in parallel (0=GOMAXPROCS)")
	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	opts, err := pipelineOptions(cmd)
	if err != nil {
		return err
	}
	output, _ := cmd.Flags().GetString("output")
	if output != "" && len(args) > 1 {
		return errors.New("-o needs exactly one input")
	}
	var manifestFormat *manifest.Format
	if name, _ := cmd.Flags().GetString("manifest"); name != "" {
		format, err := manifest.ParseFormat(name)
		if err != nil {
			return err
		}
		manifestFormat = &format
	}
	jobs, _ := cmd.Flags().GetInt("jobs")
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	quiet, _ := cmd.Flags().GetBool("quiet")

	// Indices are unique per goroutine; no lock needed.
	results := make([]*fileResult, len(args))
	g, gctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(min(jobs, len(args)))
	for i, input := range args {
		i, input := i, input
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := raiseFile(input, opts)
			if err != nil {
				return err
			}
			res.Output = output
			if res.Output == "" {
				res.Output = outputPath(input)
			}
			if err := writeModule(res.Output, res.Module); err != nil {
				return err
			}
			if manifestFormat != nil {
				if err := writeManifest(manifestPath(res.Output, *manifestFormat), res.Manifest, *manifestFormat); err != nil {
					return err
				}
			}
			opts.Raise.Logger.Info("raised", "input", input, "output", res.Output,
				"members", len(res.Manifest.Members), "size", res.Manifest.Size)
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if quiet {
		return nil
	}
	ok := color.New(color.FgGreen, color.Bold)
	for _, res := range results {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s -> %s (immediate block %d bytes)\n",
			ok.Sprint("ok"), res.Input, res.Output, res.Manifest.Size)
	}
	return nil
}
