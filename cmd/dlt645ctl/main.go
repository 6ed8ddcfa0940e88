// Command dlt645ctl builds, parses and exchanges DL/T 645 meter frames.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-dlt645/dlt645"
	"github.com/arloliu/go-dlt645/logger"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type rootFlags struct {
	variant   string
	logLevel  string
	logFormat string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "dlt645ctl",
		Short: "DL/T 645 electricity meter frame tool",
		Long: `dlt645ctl builds and parses DL/T 645 frames for the legacy (1997) and
revised (2007) protocol variants, and polls meters over a serial bus.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return flags.setupLogger(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVar(&flags.variant, "variant", "2007", "Protocol variant: legacy|1997|revised|2007")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "Log level: debug|info|warn|error")
	cmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "auto", "Log format: auto|json|text|console")

	cmd.AddCommand(newBuildCmd(flags))
	cmd.AddCommand(newParseCmd(flags))
	cmd.AddCommand(newFieldsCmd(flags))
	cmd.AddCommand(newPollCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setupLogger points the default logger at w so that stdout carries only
// command output.
func (f *rootFlags) setupLogger(w io.Writer) error {
	level, err := logger.ParseLevel(f.logLevel)
	if err != nil {
		return err
	}

	var format logger.Format
	switch f.logFormat {
	case "auto", "":
		format = logger.FormatAuto
	case "json":
		format = logger.FormatJSON
	case "text":
		format = logger.FormatText
	case "console":
		format = logger.FormatConsole
	default:
		return fmt.Errorf("unknown log format %q", f.logFormat)
	}

	logger.SetLogger(logger.NewSlogWriter(w, level, format, false))

	return nil
}

func (f *rootFlags) codec() (*dlt645.Codec, error) {
	v, err := dlt645.VariantByName(f.variant)
	if err != nil {
		return nil, err
	}

	return dlt645.NewCodec(v, dlt645.WithLogger(logger.GetLogger()))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "dlt645ctl %s (commit %s, built %s)\n", version, commit, date)
			return err
		},
	}
}
