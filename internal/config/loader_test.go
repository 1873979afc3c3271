package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupConfigDir points HOME at a temp dir and returns the allowed config dir.
func setupConfigDir(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".config", "ragmemory")
	require.NoError(t, os.MkdirAll(dir, 0700))
	return dir
}

func writeConfig(t *testing.T, dir, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
	require.NoError(t, os.Chmod(path, perm))
	return path
}

func TestLoadWithFile_MissingFileUsesDefaults(t *testing.T) {
	dir := setupConfigDir(t)

	cfg, err := LoadWithFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Ingest.BatchSize)
	assert.Equal(t, "qdrant", cfg.VectorStore.Provider)
	assert.True(t, cfg.VectorStore.ChromemCompress)
}

func TestLoadWithFile_ValidYAML(t *testing.T) {
	dir := setupConfigDir(t)
	path := writeConfig(t, dir, `
qdrant:
  host: qdrant.internal
  port: 6400
  api_key: k-123
  retry_attempts: 4
  retry_backoff: 50ms
vectorstore:
  provider: chromem
  chromem_path: ~/vectors
  chromem_compress: false
ingest:
  batch_size: 16
  point_ids: content
search:
  default_top_k: 5
updater:
  schedule: "@hourly"
  watch: true
`, 0600)

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "qdrant.internal", cfg.Qdrant.Host)
	assert.Equal(t, 6400, cfg.Qdrant.Port)
	assert.Equal(t, "k-123", cfg.Qdrant.APIKey.Value())
	assert.Equal(t, 4, cfg.Qdrant.RetryAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.Qdrant.RetryBackoff.Duration())
	assert.Equal(t, "chromem", cfg.VectorStore.Provider)
	assert.False(t, cfg.VectorStore.ChromemCompress)
	assert.True(t, strings.HasSuffix(cfg.VectorStore.ChromemPath, "vectors"))
	assert.False(t, strings.HasPrefix(cfg.VectorStore.ChromemPath, "~"))
	assert.Equal(t, 16, cfg.Ingest.BatchSize)
	assert.Equal(t, PointIDsContent, cfg.Ingest.PointIDs)
	assert.Equal(t, 5, cfg.Search.DefaultTopK)
	assert.Equal(t, "@hourly", cfg.Updater.Schedule)
	assert.True(t, cfg.Updater.Watch)

	// Untouched sections keep defaults.
	assert.Equal(t, 3, cfg.Ingest.ClaudeChunkSize)
}

func TestLoadWithFile_RetryAttempts(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want int
	}{
		{name: "unset", yaml: "qdrant:\n  host: h\n", want: 0},
		{name: "explicit zero", yaml: "qdrant:\n  retry_attempts: 0\n", want: 0},
		{name: "explicit retries", yaml: "qdrant:\n  retry_attempts: 2\n", want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := setupConfigDir(t)
			path := writeConfig(t, dir, tt.yaml, 0600)

			cfg, err := LoadWithFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Qdrant.RetryAttempts)
		})
	}
}

func TestLoadWithFile_EnvironmentOverride(t *testing.T) {
	dir := setupConfigDir(t)
	path := writeConfig(t, dir, "qdrant:\n  host: from-yaml\ningest:\n  batch_size: 8\n", 0600)

	t.Setenv("RAGMEMORY_QDRANT_HOST", "from-env")
	t.Setenv("RAGMEMORY_INGEST_BATCH_SIZE", "64")
	t.Setenv("RAGMEMORY_UPDATER_DATA_DIR", "/srv/exports")

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Qdrant.Host)
	assert.Equal(t, 64, cfg.Ingest.BatchSize)
	assert.Equal(t, "/srv/exports", cfg.Updater.DataDir)
}

func TestLoadWithFile_Rejections(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission model differs on windows")
	}

	t.Run("insecure permissions", func(t *testing.T) {
		dir := setupConfigDir(t)
		path := writeConfig(t, dir, "ingest:\n  batch_size: 4\n", 0644)
		_, err := LoadWithFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "insecure config file permissions")
	})

	t.Run("outside allowed dirs", func(t *testing.T) {
		setupConfigDir(t)
		path := filepath.Join(t.TempDir(), "config.yaml")
		_, err := LoadWithFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config path validation failed")
	})

	t.Run("sibling prefix is not allowed", func(t *testing.T) {
		dir := setupConfigDir(t)
		sibling := dir + "-evil"
		require.NoError(t, os.MkdirAll(sibling, 0700))
		_, err := LoadWithFile(filepath.Join(sibling, "config.yaml"))
		require.Error(t, err)
	})

	t.Run("too large", func(t *testing.T) {
		dir := setupConfigDir(t)
		big := "# " + strings.Repeat("x", maxConfigFileSize+1) + "\n"
		path := writeConfig(t, dir, big, 0600)
		_, err := LoadWithFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "too large")
	})

	t.Run("invalid values", func(t *testing.T) {
		dir := setupConfigDir(t)
		path := writeConfig(t, dir, "ingest:\n  point_ids: random\n", 0600)
		_, err := LoadWithFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config validation failed")
	})
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"RAGMEMORY_QDRANT_HOST":          "qdrant.host",
		"RAGMEMORY_INGEST_BATCH_SIZE":    "ingest.batch_size",
		"RAGMEMORY_SEARCH_DEFAULT_TOP_K": "search.default_top_k",
		"RAGMEMORY_DEBUG":                "debug",
	}
	for in, want := range tests {
		assert.Equal(t, want, envKey(in), in)
	}
}

func TestEnsureConfigDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.NoError(t, EnsureConfigDir())
	info, err := os.Stat(filepath.Join(home, ".config", "ragmemory"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
