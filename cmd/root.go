// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

// ExitError signals a non-zero exit code with an optional message.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

// NewRootCommand creates the root cobra command with the serve,
// score, and refresh-kev subcommands.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "secscore",
		Short:   "Enrich CVEs with a temporal exploit-likelihood risk score",
		Version: Version,
		Long: `secscore is a CVE threat-scoring service. It combines CVSS base
scores, EPSS probabilities, the CISA KEV catalog and public proof-of-concept
evidence into a single SecScore using an Asymmetric Laplace temporal model.

Usage:
  secscore serve
  secscore score CVE-2021-44228
  secscore refresh-kev`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newScoreCommand())
	cmd.AddCommand(newRefreshKEVCommand())

	return cmd
}
