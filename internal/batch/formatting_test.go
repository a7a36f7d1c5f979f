package batch

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/adaptocr/internal/ocrerr"
	"github.com/MeKo-Tech/adaptocr/internal/pipeline"
	"github.com/MeKo-Tech/adaptocr/internal/recommend"
)

func mockReport() *pipeline.Report {
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &pipeline.Report{
		RunID:     "run-1",
		Started:   started,
		Finished:  started.Add(2 * time.Second),
		Documents: 2,
		Results: []pipeline.ImageResult{
			{
				DocumentID:   "d1",
				DocumentName: "/in/invoice.png",
				Status:       pipeline.StatusOK,
				Text:         "Invoice 42\nTotal [REDACTED]",
				Params:       &recommend.Params{EnableTwoPass: true, Reason: recommend.ReasonThinStrokes},

				RedactionsValidated:  1,
				PlaceholdersInserted: 1,
				Duration:             1500 * time.Millisecond,
			},
			{
				DocumentID:   "d2",
				DocumentName: "/in/scan.pdf",
				Page:         3,
				Status:       pipeline.StatusFailed,
				ErrorKind:    ocrerr.KindTimeout,
				Error:        "pass1 timed out",
				NeedsReview:  true,
				Duration:     60 * time.Second,
			},
		},
	}
}

func TestFormatBatchResults_Text(t *testing.T) {
	output, err := formatBatchResults(mockReport(), FormatText)
	require.NoError(t, err)

	assert.Contains(t, output, "# /in/invoice.png\nInvoice 42\nTotal [REDACTED]\n")
	assert.Contains(t, output, "# /in/scan.pdf page 3 [failed]\n! pass1 timed out\n")
}

func TestFormatBatchResults_UnknownFormatFallsBackToText(t *testing.T) {
	output, err := formatBatchResults(mockReport(), "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(output, "# /in/invoice.png"))
}

func TestFormatBatchResults_JSON(t *testing.T) {
	output, err := formatBatchResults(mockReport(), FormatJSON)
	require.NoError(t, err)

	var decoded struct {
		RunID      string         `json:"run_id"`
		DurationMS float64        `json:"duration_ms"`
		Counts     map[string]int `json:"counts"`
		Results    []struct {
			DocumentName string `json:"document_name"`
			Status       string `json:"status"`
			ErrorKind    string `json:"error_kind"`
			Text         string `json:"text"`
			NeedsReview  bool   `json:"needs_review"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &decoded))

	assert.Equal(t, "run-1", decoded.RunID)
	assert.InDelta(t, 2000.0, decoded.DurationMS, 0.001)
	assert.Equal(t, map[string]int{"ok": 1, "failed": 1}, decoded.Counts)
	require.Len(t, decoded.Results, 2)
	assert.Equal(t, "Invoice 42\nTotal [REDACTED]", decoded.Results[0].Text)
	assert.Equal(t, "timeout", decoded.Results[1].ErrorKind)
	assert.True(t, decoded.Results[1].NeedsReview)
}

func TestFormatBatchResults_CSV(t *testing.T) {
	output, err := formatBatchResults(mockReport(), FormatCSV)
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(output)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])

	assert.Equal(t, []string{
		"/in/invoice.png", "0", "0", "ok", "", "false",
		"true", "thin_strokes", "false", "1", "1", "1500.0", "Invoice 42\nTotal [REDACTED]",
	}, rows[1])
	assert.Equal(t, "failed", rows[2][3])
	assert.Equal(t, "timeout", rows[2][4])
	assert.Equal(t, "false", rows[2][6])
}

func TestFormatBatchResults_NilReport(t *testing.T) {
	_, err := formatBatchResults(nil, FormatText)
	assert.Error(t, err)
}
