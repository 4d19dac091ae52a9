package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, DefaultBusyTimeoutMS, cfg.Database.BusyTimeoutMS)
	assert.Equal(t, DefaultChunkSize, cfg.Import.ChunkSize)
	assert.False(t, cfg.Log.JSON)
}

func TestEnvOverride(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	t.Setenv("TTL_DATABASE_PATH", "/tmp/env-corpus.db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env-corpus.db", cfg.Database.Path)
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "ttlstore.toml")

	content := `
[database]
path = "my-corpus.db"
busy_timeout_ms = 250

[import]
chunk_size = 50

[log]
json = true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "my-corpus.db", cfg.Database.Path)
	assert.Equal(t, 250, cfg.Database.BusyTimeoutMS)
	assert.Equal(t, 50, cfg.Import.ChunkSize)
	assert.True(t, cfg.Log.JSON)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "ttlstore.toml")

	cfg := &Config{
		Database: DatabaseConfig{Path: "saved.db", BusyTimeoutMS: 100},
		Import:   ImportConfig{ChunkSize: 10},
		Log:      LogConfig{JSON: true},
	}
	require.NoError(t, Save(cfg, path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Database.Path, loaded.Database.Path)
	assert.Equal(t, cfg.Import.ChunkSize, loaded.Import.ChunkSize)
	assert.Equal(t, cfg.Log.JSON, loaded.Log.JSON)

	// Saving again backs up the previous file.
	cfg.Database.Path = "saved2.db"
	require.NoError(t, Save(cfg, path))
	_, err = os.Stat(path + ".back")
	assert.NoError(t, err)
}

func TestSaveNil(t *testing.T) {
	err := Save(nil, filepath.Join(t.TempDir(), "x.toml"))
	assert.Error(t, err)
}
