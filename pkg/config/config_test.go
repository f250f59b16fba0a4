package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, runtime.NumCPU(), cfg.Processing.NumCores)
	assert.Equal(t, 1.70, cfg.Processing.Venc)
	assert.Equal(t, "directory", cfg.Processing.RescaleMode)
	assert.Equal(t, "lexical", cfg.Processing.Ordering)
	assert.False(t, cfg.Output.Verbose)
	require.NoError(t, cfg.Validate())

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, level)
}

func TestLoadConfigMissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `processing:
  numCores: 3
  venc: 1.5
  rescaleMode: slice
output:
  logLevel: warn
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Processing.NumCores)
	assert.Equal(t, 1.5, cfg.Processing.Venc)
	assert.Equal(t, "slice", cfg.Processing.RescaleMode)
	// Keys absent from the file keep their defaults
	assert.Equal(t, "lexical", cfg.Processing.Ordering)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, level)

	params := cfg.Params("/data/series")
	assert.Equal(t, "/data/series", params.InputDir)
	assert.Equal(t, 3, params.NumCores)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	dir := t.TempDir()

	for name, data := range map[string]string{
		"malformed":    "processing: [",
		"rescale mode": "processing:\n  rescaleMode: pixel\n",
		"ordering":     "processing:\n  ordering: mtime\n",
		"cores":        "processing:\n  numCores: 0\n",
		"log level":    "output:\n  logLevel: loud\n",
	} {
		path := filepath.Join(dir, name+".yaml")
		require.NoError(t, os.WriteFile(path, []byte(data), 0644))

		_, err := LoadConfig(path)
		assert.Error(t, err, name)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dicom4d.yaml")

	cfg := DefaultConfig()
	cfg.Processing.NumCores = 2
	cfg.Processing.Venc = 0.9
	cfg.Processing.Ordering = "instance"
	cfg.Output.Verbose = true
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	level, err := loaded.Level()
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, level)
}

func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, CreateDefaultConfigFile(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), loaded)
}
