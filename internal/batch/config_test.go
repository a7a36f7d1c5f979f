package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/adaptocr/internal/ocrerr"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, FormatText, cfg.Format)
	assert.Equal(t, 2, cfg.Executor.WorkerCount)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	t.Run("unknown format", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Format = "xml"
		assert.ErrorContains(t, cfg.Validate(), "unsupported output format")
	})

	t.Run("bad page range", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Source.PDFPages = "3-1"
		assert.ErrorContains(t, cfg.Validate(), "invalid page range")
	})

	t.Run("executor error surfaces", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Executor.GroupConcurrency = 0
		var cfgErr *ocrerr.ConfigValidationError
		require.ErrorAs(t, cfg.Validate(), &cfgErr)
		assert.Equal(t, "executor.group_concurrency", cfgErr.Field)
	})

	t.Run("empty format means text", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Format = ""
		assert.NoError(t, cfg.Validate())
	})
}

func TestConfig_ProgressCallback(t *testing.T) {
	cfg := DefaultConfig()
	assert.Nil(t, cfg.progressCallback())

	cfg.ShowProgress = true
	assert.NotNil(t, cfg.progressCallback())

	cfg.Quiet = true
	assert.Nil(t, cfg.progressCallback())
}

func TestParseMemoryLimit(t *testing.T) {
	tests := []struct {
		in       string
		expected uint64
	}{
		{"", 0},
		{"1024", 1024},
		{"512B", 512},
		{"1KB", 1024},
		{"512MB", 512 << 20},
		{"1GB", 1 << 30},
		{"1.5gb", 3 << 29},
		{" 2 TB ", 2 << 40},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMemoryLimit(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseMemoryLimit_Invalid(t *testing.T) {
	for _, in := range []string{"lots", "GB", "-1MB", "1.5"} {
		_, err := ParseMemoryLimit(in)
		assert.Error(t, err, in)
	}
}
