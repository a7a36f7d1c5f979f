package cmd

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/adaptocr/internal/recommend"
	"github.com/MeKo-Tech/adaptocr/internal/testutil"
)

func TestAnalyzeCommand_Text(t *testing.T) {
	dir := isolate(t)
	writePages(t, dir, "page.png")
	testutil.WriteFile(t, dir, "broken.png", []byte("not a png"))

	stdout, _, err := execute(t, "analyze", filepath.Join(dir, "page.png"), filepath.Join(dir, "broken.png"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "SEPARABILITY")
	assert.Contains(t, stdout, "300 (metadata)")
	assert.Contains(t, stdout, "error:")
}

func TestAnalyzeCommand_JSON(t *testing.T) {
	dir := isolate(t)
	writePages(t, dir, "page.png")

	stdout, _, err := execute(t, "analyze", filepath.Join(dir, "page.png"), "--format", "json")
	require.NoError(t, err)

	var rows []frameAnalysis
	require.NoError(t, json.Unmarshal([]byte(stdout), &rows))
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Profile)
	require.NotNil(t, rows[0].Params)
	assert.Empty(t, rows[0].Error)
	assert.InDelta(t, 300.0, rows[0].Profile.DetectedDPI, 0.001)
	assert.NotEmpty(t, rows[0].Params.Reason)
	assert.Contains(t, []string{
		recommend.ReasonDefault, recommend.ReasonThinStrokes, recommend.ReasonThickStrokes,
		recommend.ReasonCleanDocument, recommend.ReasonHighNoise,
	}, rows[0].Params.Reason)
}

func TestAnalyzeCommand_BadFormat(t *testing.T) {
	isolate(t)
	_, _, err := execute(t, "analyze", "page.png", "--format", "csv")
	assert.ErrorContains(t, err, "unsupported format")
}

func TestFormatDPI(t *testing.T) {
	assert.Equal(t, "unknown", formatDPI(0, "unknown"))
	assert.Equal(t, "200 (paper_size)", formatDPI(200, "paper_size"))
}
