package cmd

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/adaptocr/internal/config"
)

func TestRootCommand(t *testing.T) {
	assert.NotNil(t, rootCmd)
	assert.Equal(t, "adaptocr", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRootCommandHelp(t *testing.T) {
	isolate(t)
	stdout, _, err := execute(t, "--help")
	require.NoError(t, err)

	assert.Contains(t, stdout, "profiles every page image")
	assert.Contains(t, stdout, "Available Commands:")
	assert.Contains(t, stdout, "Usage:")
	assert.NotContains(t, stdout, "Serve recognition requests", "worker is hidden")
}

func TestRootCommandVersion(t *testing.T) {
	isolate(t)
	stdout, _, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "commit:")
}

func TestRootCommandSubcommands(t *testing.T) {
	names := make([]string, 0, len(rootCmd.Commands()))
	for _, sub := range rootCmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, expected := range []string{"run", "analyze", "config", "version", "worker"} {
		assert.Contains(t, names, expected, "Expected subcommand '%s' not found", expected)
	}
}

func TestRootCommandInvalidFlag(t *testing.T) {
	isolate(t)
	_, _, err := execute(t, "--invalid-flag")
	assert.Error(t, err)
}

func TestRootCommandInvalidConfigFile(t *testing.T) {
	dir := isolate(t)
	_, _, err := execute(t, "--config", dir+"/missing.yaml", "analyze", "x.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error loading configuration")
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		level   string
		verbose bool
		want    slog.Level
	}{
		{"debug", false, slog.LevelDebug},
		{"info", false, slog.LevelInfo},
		{"warn", false, slog.LevelWarn},
		{"error", false, slog.LevelError},
		{"bogus", false, slog.LevelInfo},
		{"error", true, slog.LevelDebug},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.LogLevel = tt.level
			cfg.Verbose = tt.verbose
			assert.Equal(t, tt.want, logLevel(&cfg))
		})
	}
}

func TestWorkerArgs(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.OCR.Language = "deu+eng"
	cfg.OCR.PageSegMode = 6
	cfg.LogLevel = "warn"
	cfg.Engine.TessdataDir = "/opt/tessdata"

	old := cfgFile
	cfgFile = "/etc/adaptocr/adaptocr.yaml"
	defer func() { cfgFile = old }()

	assert.Equal(t, []string{
		"worker", "--language", "deu+eng", "--psm", "6", "--log-level", "warn",
		"--tessdata-dir", "/opt/tessdata", "--config", "/etc/adaptocr/adaptocr.yaml",
	}, workerArgs(&cfg))
}

func TestTraceSinks(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()

	sink, metrics, err := traceSinks(&cfg)
	require.NoError(t, err)
	assert.Nil(t, metrics)
	require.NoError(t, sink.Close())

	cfg.Output.TraceFile = dir + "/trace.jsonl"
	cfg.Output.MetricsFile = dir + "/metrics.prom"
	sink, metrics, err = traceSinks(&cfg)
	require.NoError(t, err)
	assert.NotNil(t, metrics)
	require.NoError(t, sink.Close())
	assert.FileExists(t, cfg.Output.TraceFile)
}
