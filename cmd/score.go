// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/secscore-io/secscore/internal/config"
	"github.com/secscore-io/secscore/internal/output"
	"github.com/secscore-io/secscore/internal/server"
)

type scoreOptions struct {
	Format string
	Output string
}

func newScoreCommand() *cobra.Command {
	opts := &scoreOptions{}

	cmd := &cobra.Command{
		Use:   "score CVE-YYYY-NNNNN",
		Short: "Score a single CVE from the command line",
		Long: `Runs the full SecScore enrichment pipeline for one CVE ID and prints
the result, without starting the HTTP server.

Usage:
  secscore score CVE-2021-44228
  secscore score CVE-2021-44228 --format table`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, args []string) error {
			return runScore(args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.Format, "format", "json", "Output format: json, table")
	flags.StringVarP(&opts.Output, "output", "o", "", "Write to file instead of stdout")

	return cmd
}

func runScore(rawCVEID string, opts *scoreOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()

	srv, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("building server: %w", err)
	}
	if err := srv.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrapping server: %w", err)
	}

	result, apiErr := srv.Orchestrator().Enrich(ctx, rawCVEID, uuid.NewString())
	if apiErr != nil {
		return &ExitError{Code: 1, Message: apiErr.Message}
	}

	var w *os.File
	if opts.Output != "" && opts.Output != "-" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	} else {
		w = os.Stdout
	}

	switch opts.Format {
	case "json":
		return output.WriteJSON(w, result.Response)
	case "table":
		return output.WriteTable(w, result.Response, output.IsOutputToTerminal(w))
	default:
		return &ExitError{Code: 2, Message: fmt.Sprintf("unsupported output format: %s", opts.Format)}
	}
}
