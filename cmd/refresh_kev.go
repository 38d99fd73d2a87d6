// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/secscore-io/secscore/internal/config"
	"github.com/secscore-io/secscore/internal/server"
)

func newRefreshKEVCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-kev",
		Short: "Force an immediate refresh of the CISA KEV catalog",
		Long: `Triggers the same conditional-fetch refresh the background scheduler
runs on its own interval, then prints whether the catalog changed.

Useful for seeding the on-disk cache before the first "serve" run, or
for forcing a refresh outside of cron.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: runRefreshKEV,
	}
}

func runRefreshKEV(_ *cobra.Command, _ []string) error {
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

	result := srv.KEVManager().Refresh(ctx)
	if result.Err != nil {
		return &ExitError{Code: 1, Message: fmt.Sprintf("refresh failed: %v", result.Err)}
	}

	if result.Changed {
		fmt.Printf("KEV catalog updated (updatedAt=%s)\n", result.UpdatedAt)
	} else {
		fmt.Printf("KEV catalog unchanged (updatedAt=%s)\n", result.UpdatedAt)
	}
	return nil
}
