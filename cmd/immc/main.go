// Command immc runs the immediate-data pipeline over irpack modules.
//
// Usage:
//
//	immc <command> [options] <input.nagair>...
//
// Examples:
//
//	immc run --first-vertex-offset 0 shader.nagair   # Writes shader.raised.nagair
//	immc run --config immc.toml -o out.nagair shader.nagair
//	immc layout --config immc.toml shader.nagair     # Print the immediate block
//	immc dis shader.nagair                           # Print the IR
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const immcVersion = "0.1.0-dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "immc",
		Short:         "Immediate data pipeline for shader IR",
		Long:          `immc moves first-vertex/instance offsets and storage buffer sizes into a module's immediate block`,
		Version:       immcVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			colorFlag, err := cmd.Flags().GetString("color")
			if err != nil {
				return fmt.Errorf("failed to get color flag: %w", err)
			}
			switch colorFlag {
			case "on":
				color.NoColor = false
			case "off":
				color.NoColor = true
			case "auto":
				color.NoColor = !isTerminal(os.Stdout)
			default:
				return fmt.Errorf("invalid --color %q (must be auto, on or off)", colorFlag)
			}
			return nil
		},
	}

	root.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	root.PersistentFlags().String("log-level", "", "log level (debug|info|warn|error), default $IMMC_LOG_LEVEL or warn")
	root.PersistentFlags().Bool("quiet", false, "suppress non-essential output")

	root.AddCommand(newRunCmd())
	root.AddCommand(newLayoutCmd())
	root.AddCommand(newDisCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("error:"), err)
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // file descriptors fit in int
}

// newLogger builds the stderr logger from --log-level or IMMC_LOG_LEVEL.
func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	name, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get log-level flag: %w", err)
	}
	if name == "" {
		name = os.Getenv("IMMC_LOG_LEVEL")
	}
	level, err := parseLevel(name)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})), nil
}

func parseLevel(name string) (slog.Level, error) {
	switch strings.ToUpper(name) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "", "WARN":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", name)
	}
}
