// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	aqtable "github.com/aquasecurity/table"
	"github.com/aquasecurity/tml"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/secscore-io/secscore/internal/types"
)

// IsOutputToTerminal returns true if the writer is stdout connected to
// a character device (TTY), matching the teacher's terminal detection
// exactly.
func IsOutputToTerminal(output io.Writer) bool {
	return output == os.Stdout && term.IsTerminal(int(os.Stdout.Fd()))
}

var scoreColors = []struct {
	min float64
	fn  func(a ...any) string
}{
	{9.0, color.New(color.FgRed).SprintFunc()},
	{7.0, color.New(color.FgHiRed).SprintFunc()},
	{4.0, color.New(color.FgYellow).SprintFunc()},
	{0.0, color.New(color.FgBlue).SprintFunc()},
}

func colorizeScore(score float64, isTerminal bool) string {
	text := fmt.Sprintf("%.1f", score)
	if !isTerminal {
		return text
	}
	for _, c := range scoreColors {
		if score >= c.min {
			return c.fn(text)
		}
	}
	return text
}

// WriteTable renders a single SecScoreResponse as a two-section
// table: a summary row and the ordered explanation, matching the
// teacher's newTableWriter border/style conventions.
func WriteTable(w io.Writer, resp *types.SecScoreResponse, isTerminal bool) error {
	if isTerminal {
		_ = tml.Fprintf(w, "<underline><bold>%s</bold></underline>\n", resp.CVEID)
	} else {
		fmt.Fprintln(w, resp.CVEID)
		fmt.Fprintln(w, strings.Repeat("=", len(resp.CVEID)))
	}
	fmt.Fprintln(w)

	summary := newTableWriter(w, isTerminal)
	summary.SetHeaders("CVSS Base", "SecScore", "Exploit Prob", "Category", "KEV", "EPSS", "Computed At")
	summary.AddRow(
		formatOptionalFloat(resp.CVSSBase, "%.1f"),
		colorizeScore(resp.SecScore, isTerminal),
		fmt.Sprintf("%.3f", resp.ExploitProb),
		resp.ModelCategory,
		formatKEV(resp.KEV),
		formatEPSS(resp.EPSS),
		resp.ComputedAt,
	)
	summary.Render()

	fmt.Fprintln(w)
	if isTerminal {
		_ = tml.Fprintf(w, "<underline>Explanation</underline>\n")
	} else {
		fmt.Fprintln(w, "Explanation")
	}

	explain := newTableWriter(w, isTerminal)
	explain.SetHeaders("Source", "Title", "Detail")
	for _, e := range resp.Explanation {
		explain.AddRow(e.Source, e.Title, e.Detail)
	}
	explain.Render()

	return nil
}

// newTableWriter creates a table writer with the teacher's standard
// configuration: borders, auto-merge, row separators, and (when
// writing to a terminal) bold headers with dim lines.
func newTableWriter(w io.Writer, isTerminal bool) *aqtable.Table {
	tw := aqtable.New(w)
	if isTerminal {
		tw.SetHeaderStyle(aqtable.StyleBold)
		tw.SetLineStyle(aqtable.StyleDim)
	}
	tw.SetBorders(true)
	tw.SetAutoMerge(true)
	tw.SetRowLines(true)
	return tw
}

func formatOptionalFloat(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func formatKEV(listed bool) string {
	if listed {
		return "YES"
	}
	return "NO"
}

func formatEPSS(sig *types.EPSSSignal) string {
	if sig == nil {
		return "-"
	}
	return fmt.Sprintf("%.3f (p%.0f)", sig.Score, sig.Percentile*100)
}
