// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package output renders a SecScoreResponse for the "score" CLI
// command, as JSON or as a color table, adapted from the teacher's
// multi-vulnerability Trivy report renderer down to a single record.
package output

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteJSON writes data as indented, non-HTML-escaped JSON, matching
// the teacher's encoder settings exactly.
func WriteJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}
