package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	verbose    bool
	logFormat  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "dpvalidate",
		Short: "Validate the DiagnosticPro dataset against its data contracts",
		Long: `dpvalidate checks warehouse tables against table contracts, quality rules
and freshness SLAs, validates individual records against entity contracts,
and serves the same checks over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to configuration file (YAML)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "Log format: text|json")

	cmd.AddCommand(
		newRunCmd(opts),
		newValidateCmd(),
		newContractsCmd(),
		newServeCmd(opts),
	)
	return cmd
}

// setupLogging installs the default logger on stderr so stdout carries only
// reports.
func setupLogging(cmd *cobra.Command, opts *rootOptions) error {
	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(opts.logFormat)) {
	case "", "text":
		handler = slog.NewTextHandler(cmd.ErrOrStderr(), handlerOpts)
	case "json":
		handler = slog.NewJSONHandler(cmd.ErrOrStderr(), handlerOpts)
	default:
		return withCode(exitFailure, fmt.Errorf("unsupported --log-format %q (expected text|json)", opts.logFormat))
	}
	slog.SetDefault(slog.New(handler))
	return nil
}
