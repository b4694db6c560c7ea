package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gogpu/immediates/ir"
	"github.com/gogpu/immediates/irpack"
)

func newDisCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dis input.nagair",
		Short: "Print an irpack module as text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			m, err := irpack.Decode(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			return ir.Fprint(cmd.OutOrStdout(), m)
		},
	}
}
