package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/adaptocr/internal/config"
)

func TestConfigInit(t *testing.T) {
	dir := isolate(t)

	stdout, _, err := execute(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Configuration written to adaptocr.yaml")

	data, err := os.ReadFile(filepath.Join(dir, "adaptocr.yaml"))
	require.NoError(t, err)
	var cfg config.Config
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, config.DefaultConfig().Executor.WorkerCount, cfg.Executor.WorkerCount)

	_, _, err = execute(t, "config", "init")
	assert.ErrorContains(t, err, "already exists")
}

func TestConfigInitCustomPath(t *testing.T) {
	dir := isolate(t)
	target := filepath.Join(dir, "conf", "custom.yaml")

	_, _, err := execute(t, "config", "init", target)
	require.NoError(t, err)
	assert.FileExists(t, target)
}

func TestConfigShow(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "adaptocr.yaml"),
		[]byte("executor:\n  worker_count: 7\n"), 0o600))

	stdout, stderr, err := execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "# loaded from")
	assert.Contains(t, stdout, "worker_count: 7")
	assert.NotContains(t, stderr, "configuration is invalid")
}

func TestConfigShowInvalidIsLenient(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "adaptocr.yaml"),
		[]byte("executor:\n  worker_count: 0\n"), 0o600))

	stdout, stderr, err := execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "worker_count: 0")
	assert.Contains(t, stderr, "configuration is invalid")

	_, _, err = execute(t, "run", ".")
	assert.ErrorContains(t, err, "executor.worker_count")
}

func TestVersionCommand(t *testing.T) {
	isolate(t)
	stdout, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "adaptocr dev")
	assert.Contains(t, stdout, "tesseract:")
}
