// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secscore-io/secscore/internal/types"
)

func sampleResponse() *types.SecScoreResponse {
	base := 9.8
	return &types.SecScoreResponse{
		CVEID:       "CVE-2021-44228",
		CVSSBase:    &base,
		SecScore:    9.5,
		ExploitProb: 0.87,
		ModelCategory: "java",
		KEV:         true,
		ComputedAt:  "2026-01-01T00:00:00Z",
		Explanation: []types.ExplanationEntry{
			{Title: "Temporal model", Detail: "weeks=12", Source: "secscore"},
		},
	}
}

func TestWriteJSON_EncodesWithoutHTMLEscaping(t *testing.T) {
	resp := sampleResponse()
	resp.Explanation[0].Detail = "weeks<12 & rising"
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, resp))
	assert.Contains(t, buf.String(), `"cveId": "CVE-2021-44228"`)
	assert.Contains(t, buf.String(), `"detail": "weeks<12 & rising"`)
}

func TestWriteTable_NonTerminalRendersPlainHeaders(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, sampleResponse(), false))
	out := buf.String()
	assert.Contains(t, out, "CVE-2021-44228")
	assert.Contains(t, out, "SecScore")
	assert.Contains(t, out, "Explanation")
}
