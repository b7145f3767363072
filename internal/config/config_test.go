package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate_NormalizesAndDefaults(t *testing.T) {
	tmp := t.TempDir()
	cfg := &Config{
		DataDir:       tmp,
		CanvasBaseURL: "https://canvas.example.edu",
		Path:          filepath.Join(tmp, "config.json"),
	}

	require.NoError(t, cfg.Validate())
	assert.True(t, filepath.IsAbs(cfg.DataDir))
	assert.True(t, filepath.IsAbs(cfg.Path))
	assert.Equal(t, DefaultDaemonAddr, cfg.DaemonAddr)
	assert.Equal(t, DefaultDaemonURL, cfg.DaemonURL)
	assert.Equal(t, filepath.Join(tmp, "gradebench.db"), cfg.DBPath())
}

func TestConfig_Validate_ErrorsOnInvalidInputs(t *testing.T) {
	tmp := t.TempDir()

	t.Run("bad canvas url", func(t *testing.T) {
		cfg := &Config{
			DataDir:       tmp,
			CanvasBaseURL: "ftp://bad.example.com",
			Path:          filepath.Join(tmp, "config.json"),
		}
		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "canvas url")
	})

	t.Run("bad daemon url", func(t *testing.T) {
		cfg := &Config{
			DataDir:   tmp,
			DaemonURL: "://bad",
			Path:      filepath.Join(tmp, "config.json"),
		}
		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "daemon url")
	})
}

func TestConfig_SaveAndLoad_Roundtrip(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "nested", "config.json")

	cfg := &Config{
		DataDir:       tmp,
		CanvasBaseURL: "https://canvas.example.edu",
		CanvasToken:   "tok",
		DaemonAddr:    "localhost:7999",
		DaemonURL:     "http://localhost:7999",
		AuthToken:     "secret",
		Path:          path,
	}

	require.NoError(t, cfg.Validate())
	require.NoError(t, cfg.Save())

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.DataDir, loaded.DataDir)
	assert.Equal(t, cfg.CanvasBaseURL, loaded.CanvasBaseURL)
	assert.Equal(t, cfg.CanvasToken, loaded.CanvasToken)
	assert.Equal(t, cfg.DaemonAddr, loaded.DaemonAddr)
	assert.Equal(t, cfg.AuthToken, loaded.AuthToken)
	assert.Equal(t, path, loaded.Path)

	// Ensure file exists and is readable.
	_, statErr := os.Stat(path)
	require.NoError(t, statErr)
}
