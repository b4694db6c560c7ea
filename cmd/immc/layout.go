package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gogpu/immediates/internal/manifest"
)

func newLayoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout [flags] input.nagair",
		Short: "Print the immediate block a module needs",
		Args:  cobra.ExactArgs(1),
		RunE:  runLayout,
	}
	addPipelineFlags(cmd)
	cmd.Flags().String("format", "pretty", "output format (pretty|yaml|msgpack)")
	return cmd
}

func runLayout(cmd *cobra.Command, args []string) error {
	opts, err := pipelineOptions(cmd)
	if err != nil {
		return err
	}
	res, err := raiseFile(args[0], opts)
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "pretty":
		printLayout(cmd, res.Manifest)
		return nil
	default:
		f, err := manifest.ParseFormat(format)
		if err != nil {
			return err
		}
		return res.Manifest.Encode(cmd.OutOrStdout(), f)
	}
}

func printLayout(cmd *cobra.Command, man *manifest.Manifest) {
	out := cmd.OutOrStdout()
	if len(man.Members) == 0 {
		fmt.Fprintln(out, "no immediate data")
		return
	}
	name := color.New(color.FgCyan)
	fmt.Fprintf(out, "%s: %d bytes\n", color.New(color.Bold).Sprint(man.Block), man.Size)
	for _, member := range man.Members {
		fmt.Fprintf(out, "  [%d] %-28s offset %3d size %3d\n", member.Index, name.Sprint(member.Name), member.Offset, member.Size)
	}
	if man.BufferSizes == nil {
		return
	}
	fmt.Fprintf(out, "buffer sizes: offset %d, %d x vec4<u32>\n", man.BufferSizes.Offset, man.BufferSizes.Elements)
	for _, slot := range man.BufferSizes.Slots {
		fmt.Fprintf(out, "  @group(%d) @binding(%d) -> slot %d (offset %d)\n", slot.Group, slot.Binding, slot.Slot, slot.Offset)
	}
}
