// Package config provides configuration loading for ragmemory.
//
// Configuration is layered: built-in defaults, then an optional YAML file,
// then RAGMEMORY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Config holds the complete ragmemory configuration.
type Config struct {
	Qdrant      QdrantConfig      `koanf:"qdrant"`
	VectorStore VectorStoreConfig `koanf:"vectorstore"`
	Embeddings  EmbeddingsConfig  `koanf:"embeddings"`
	Ingest      IngestConfig      `koanf:"ingest"`
	Search      SearchConfig      `koanf:"search"`
	Updater     UpdaterConfig     `koanf:"updater"`
	Logging     LoggingConfig     `koanf:"logging"`
	Telemetry   TelemetryConfig   `koanf:"telemetry"`
}

// QdrantConfig holds the Qdrant gRPC connection settings.
type QdrantConfig struct {
	Host           string   `koanf:"host"`
	Port           int      `koanf:"port"`
	APIKey         Secret   `koanf:"api_key"`
	UseTLS         bool     `koanf:"tls"`
	DialTimeout    Duration `koanf:"dial_timeout"`
	RequestTimeout Duration `koanf:"request_timeout"`
	RetryAttempts  int      `koanf:"retry_attempts"`
	RetryBackoff   Duration `koanf:"retry_backoff"`
}

// VectorStoreConfig selects the vector index backend.
type VectorStoreConfig struct {
	Provider        string `koanf:"provider"` // qdrant or chromem
	ChromemPath     string `koanf:"chromem_path"`
	ChromemCompress bool   `koanf:"chromem_compress"`
	VectorSize      int    `koanf:"vector_size"`
}

// EmbeddingsConfig selects and configures the embedding model.
type EmbeddingsConfig struct {
	Provider string `koanf:"provider"` // fastembed or tei
	Model    string `koanf:"model"`
	BaseURL  string `koanf:"base_url"`
	APIKey   Secret `koanf:"api_key"`
	CacheDir string `koanf:"cache_dir"`
}

// IngestConfig controls chunking, batching and target collections.
type IngestConfig struct {
	BatchSize         int    `koanf:"batch_size"`
	ChatGPTChunkSize  int    `koanf:"chatgpt_chunk_size"`
	ClaudeChunkSize   int    `koanf:"claude_chunk_size"`
	PointIDs          string `koanf:"point_ids"` // sequential or content
	ChatGPTCollection string `koanf:"chatgpt_collection"`
	ClaudeCollection  string `koanf:"claude_collection"`
}

// SearchConfig holds query defaults shared by the CLI and the MCP tool.
type SearchConfig struct {
	DefaultCollection string `koanf:"default_collection"`
	DefaultTopK       int    `koanf:"default_top_k"`
	MaxTopK           int    `koanf:"max_top_k"`
	SnippetChars      int    `koanf:"snippet_chars"`
}

// UpdaterConfig configures the auto-update job.
type UpdaterConfig struct {
	DataDir     string   `koanf:"data_dir"`
	ChatGPTFile string   `koanf:"chatgpt_file"`
	ClaudeFile  string   `koanf:"claude_file"`
	Schedule    string   `koanf:"schedule"`
	Watch       bool     `koanf:"watch"`
	Debounce    Duration `koanf:"debounce"`
	MetricsAddr string   `koanf:"metrics_addr"`
}

// LoggingConfig holds the subset of logging settings exposed to users.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig holds the subset of OpenTelemetry settings exposed to users.
type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Endpoint    string `koanf:"endpoint"`
	ServiceName string `koanf:"service_name"`
	Insecure    bool   `koanf:"insecure"`
}

// Point id strategies.
const (
	PointIDsSequential = "sequential"
	PointIDsContent    = "content"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.VectorStore.ChromemCompress = true
	cfg.Telemetry.Insecure = true
	return cfg
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	// Qdrant defaults
	if cfg.Qdrant.Host == "" {
		cfg.Qdrant.Host = "localhost"
	}
	if cfg.Qdrant.Port == 0 {
		cfg.Qdrant.Port = 6334
	}
	if cfg.Qdrant.DialTimeout == 0 {
		cfg.Qdrant.DialTimeout = Duration(5 * time.Second)
	}
	if cfg.Qdrant.RequestTimeout == 0 {
		cfg.Qdrant.RequestTimeout = Duration(30 * time.Second)
	}
	if cfg.Qdrant.RetryBackoff == 0 {
		cfg.Qdrant.RetryBackoff = Duration(200 * time.Millisecond)
	}

	// Qdrant is the reference backend; chromem is opt-in for offline use.
	if cfg.VectorStore.Provider == "" {
		cfg.VectorStore.Provider = "qdrant"
	}
	if cfg.VectorStore.ChromemPath == "" {
		cfg.VectorStore.ChromemPath = "~/.local/share/ragmemory/vectorstore"
	}
	if cfg.VectorStore.VectorSize == 0 {
		cfg.VectorStore.VectorSize = 384
	}

	if cfg.Embeddings.Provider == "" {
		cfg.Embeddings.Provider = "fastembed"
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "sentence-transformers/all-MiniLM-L6-v2"
	}
	if cfg.Embeddings.BaseURL == "" {
		cfg.Embeddings.BaseURL = "http://localhost:8080"
	}

	if cfg.Ingest.BatchSize == 0 {
		cfg.Ingest.BatchSize = 32
	}
	if cfg.Ingest.ChatGPTChunkSize == 0 {
		cfg.Ingest.ChatGPTChunkSize = 2
	}
	if cfg.Ingest.ClaudeChunkSize == 0 {
		cfg.Ingest.ClaudeChunkSize = 3
	}
	if cfg.Ingest.PointIDs == "" {
		cfg.Ingest.PointIDs = PointIDsSequential
	}
	if cfg.Ingest.ChatGPTCollection == "" {
		cfg.Ingest.ChatGPTCollection = "chatgpt_conversations"
	}
	if cfg.Ingest.ClaudeCollection == "" {
		cfg.Ingest.ClaudeCollection = "claude_conversations"
	}

	if cfg.Search.DefaultCollection == "" {
		cfg.Search.DefaultCollection = "chatgpt_conversations"
	}
	if cfg.Search.DefaultTopK == 0 {
		cfg.Search.DefaultTopK = 3
	}
	if cfg.Search.MaxTopK == 0 {
		cfg.Search.MaxTopK = 10
	}
	if cfg.Search.SnippetChars == 0 {
		cfg.Search.SnippetChars = 300
	}

	if cfg.Updater.DataDir == "" {
		cfg.Updater.DataDir = "data"
	}
	if cfg.Updater.ChatGPTFile == "" {
		cfg.Updater.ChatGPTFile = "chatgpt_conversations.json"
	}
	if cfg.Updater.ClaudeFile == "" {
		cfg.Updater.ClaudeFile = "claude_conversations.json"
	}
	if cfg.Updater.Debounce == 0 {
		cfg.Updater.Debounce = Duration(2 * time.Second)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "ragmemory"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Qdrant.Port < 1 || c.Qdrant.Port > 65535 {
		return fmt.Errorf("invalid qdrant port: %d (must be 1-65535)", c.Qdrant.Port)
	}
	if c.Qdrant.RetryAttempts < 0 {
		return errors.New("qdrant retry_attempts cannot be negative")
	}

	switch c.VectorStore.Provider {
	case "qdrant", "chromem":
	default:
		return fmt.Errorf("unsupported vectorstore provider: %q (supported: qdrant, chromem)", c.VectorStore.Provider)
	}
	if c.VectorStore.VectorSize < 1 {
		return fmt.Errorf("vector_size must be positive, got %d", c.VectorStore.VectorSize)
	}

	switch c.Embeddings.Provider {
	case "fastembed", "tei":
	default:
		return fmt.Errorf("unsupported embeddings provider: %q (supported: fastembed, tei)", c.Embeddings.Provider)
	}

	if c.Ingest.BatchSize < 1 {
		return fmt.Errorf("ingest batch_size must be positive, got %d", c.Ingest.BatchSize)
	}
	if c.Ingest.ChatGPTChunkSize < 1 || c.Ingest.ClaudeChunkSize < 1 {
		return errors.New("ingest chunk sizes must be positive")
	}
	switch c.Ingest.PointIDs {
	case PointIDsSequential, PointIDsContent:
	default:
		return fmt.Errorf("unsupported point_ids strategy: %q (supported: sequential, content)", c.Ingest.PointIDs)
	}

	if c.Search.DefaultTopK < 1 || c.Search.MaxTopK < c.Search.DefaultTopK {
		return fmt.Errorf("search top_k bounds invalid: default %d, max %d", c.Search.DefaultTopK, c.Search.MaxTopK)
	}
	if c.Search.SnippetChars < 1 {
		return errors.New("search snippet_chars must be positive")
	}

	if c.Updater.Schedule != "" {
		if _, err := cron.ParseStandard(c.Updater.Schedule); err != nil {
			return fmt.Errorf("invalid updater schedule %q: %w", c.Updater.Schedule, err)
		}
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format)
	}

	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return errors.New("telemetry endpoint required when telemetry is enabled")
	}

	return nil
}
