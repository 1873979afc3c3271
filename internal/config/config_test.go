package config

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "localhost", cfg.Qdrant.Host)
	assert.Equal(t, 6334, cfg.Qdrant.Port)
	assert.Equal(t, 0, cfg.Qdrant.RetryAttempts)
	assert.Equal(t, "qdrant", cfg.VectorStore.Provider)
	assert.Equal(t, 384, cfg.VectorStore.VectorSize)
	assert.True(t, cfg.VectorStore.ChromemCompress)
	assert.Equal(t, "fastembed", cfg.Embeddings.Provider)
	assert.Equal(t, "sentence-transformers/all-MiniLM-L6-v2", cfg.Embeddings.Model)
	assert.Equal(t, 32, cfg.Ingest.BatchSize)
	assert.Equal(t, 2, cfg.Ingest.ChatGPTChunkSize)
	assert.Equal(t, 3, cfg.Ingest.ClaudeChunkSize)
	assert.Equal(t, PointIDsSequential, cfg.Ingest.PointIDs)
	assert.Equal(t, "chatgpt_conversations", cfg.Ingest.ChatGPTCollection)
	assert.Equal(t, "claude_conversations", cfg.Ingest.ClaudeCollection)
	assert.Equal(t, 3, cfg.Search.DefaultTopK)
	assert.Equal(t, 10, cfg.Search.MaxTopK)
	assert.Equal(t, 300, cfg.Search.SnippetChars)
	assert.Equal(t, 2*time.Second, cfg.Updater.Debounce.Duration())
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Qdrant.Port = 70000 }, wantErr: "qdrant port"},
		{name: "negative retries", mutate: func(c *Config) { c.Qdrant.RetryAttempts = -1 }, wantErr: "retry_attempts"},
		{name: "unknown backend", mutate: func(c *Config) { c.VectorStore.Provider = "milvus" }, wantErr: "vectorstore provider"},
		{name: "zero vector size", mutate: func(c *Config) { c.VectorStore.VectorSize = 0 }, wantErr: "vector_size"},
		{name: "unknown embedder", mutate: func(c *Config) { c.Embeddings.Provider = "openai" }, wantErr: "embeddings provider"},
		{name: "zero batch", mutate: func(c *Config) { c.Ingest.BatchSize = 0 }, wantErr: "batch_size"},
		{name: "zero chunk size", mutate: func(c *Config) { c.Ingest.ClaudeChunkSize = 0 }, wantErr: "chunk sizes"},
		{name: "unknown id strategy", mutate: func(c *Config) { c.Ingest.PointIDs = "random" }, wantErr: "point_ids"},
		{name: "max below default", mutate: func(c *Config) { c.Search.MaxTopK = 2 }, wantErr: "top_k"},
		{name: "bad schedule", mutate: func(c *Config) { c.Updater.Schedule = "every day" }, wantErr: "schedule"},
		{name: "valid schedule", mutate: func(c *Config) { c.Updater.Schedule = "0 3 * * *" }},
		{name: "descriptor schedule", mutate: func(c *Config) { c.Updater.Schedule = "@daily" }},
		{name: "bad log format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "logging format"},
		{name: "telemetry without endpoint", mutate: func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.Endpoint = ""
		}, wantErr: "telemetry endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSecret_Redaction(t *testing.T) {
	s := Secret("super-secret-key")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.Equal(t, "Secret([REDACTED])", fmt.Sprintf("%#v", s))
	assert.Equal(t, "super-secret-key", s.Value())
	assert.True(t, s.IsSet())

	data, err := json.Marshal(struct{ Key Secret }{Key: s})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "super-secret-key")

	var empty Secret
	assert.Equal(t, "", empty.String())
	assert.False(t, empty.IsSet())
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("150ms")))
	assert.Equal(t, 150*time.Millisecond, d.Duration())

	require.NoError(t, d.UnmarshalText([]byte("5")))
	assert.Equal(t, 5*time.Second, d.Duration())

	for _, bad := range []string{"-1s", "-5", "soon"} {
		assert.Error(t, d.UnmarshalText([]byte(bad)), bad)
	}
}
