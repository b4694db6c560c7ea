package main

import (
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gogpu/immediates/irpack"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show immc and irpack format versions",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			bold := color.New(color.FgYellow, color.Bold)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "immc %s\n", bold.Sprint(immcVersion))
			fmt.Fprintf(out, "irpack format %s\n", irpack.FormatVersion)
			fmt.Fprintf(out, "go %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
