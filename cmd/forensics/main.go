package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"forensics/internal/intel"
	"forensics/internal/platform/config"
	"forensics/internal/platform/logger"
	"forensics/pkg/requestcontext"
)

var version = "dev"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "forensics",
		Short:        "forensics builds domain intelligence reports.",
		Version:      version,
		SilenceUsage: true,
	}
	root.AddCommand(newReportCmd())
	return root
}

func newReportCmd() *cobra.Command {
	var asJSON bool
	var noColor bool
	cmd := &cobra.Command{
		Use:   "report <domain>",
		Short: "Resolve WHOIS, certificate, DNS and page artifacts for a domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Env, cfg.LogLevel)

			engine, err := intel.Build(ctx, cfg, log, nil)
			if err != nil {
				return err
			}
			defer engine.Close()

			report, err := engine.Orchestrator.Generate(requestcontext.WithRequestID(ctx, "cli"), args[0])
			if err != nil {
				return fmt.Errorf("generate report: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return newPrinter(out, !noColor).Print(report)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	return cmd
}
