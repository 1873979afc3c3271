package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragmemory/internal/config"
	"github.com/fyrsmithlabs/ragmemory/internal/conversation"
	"github.com/fyrsmithlabs/ragmemory/internal/embeddings"
	"github.com/fyrsmithlabs/ragmemory/internal/ingest"
	"github.com/fyrsmithlabs/ragmemory/internal/logging"
	"github.com/fyrsmithlabs/ragmemory/internal/qdrant"
	"github.com/fyrsmithlabs/ragmemory/internal/search"
	"github.com/fyrsmithlabs/ragmemory/internal/telemetry"
	"github.com/fyrsmithlabs/ragmemory/internal/vectorstore"
)

// app holds the components shared by every command.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	telemetry *telemetry.Telemetry
	embedder  embeddings.Provider
	index     vectorstore.Index
}

// appOptions adjusts bootstrap per command.
type appOptions struct {
	// skipEmbedder avoids loading the model for commands that never embed.
	skipEmbedder bool
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = config.DefaultConfigPath()
		if err != nil {
			return nil, fmt.Errorf("resolving config path: %w", err)
		}
	}
	cfg, err := config.LoadWithFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

// newLogger writes to stderr. Stdout carries command output and the MCP
// stdio protocol.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	logCfg, err := logging.FromConfig(cfg.Logging)
	if err != nil {
		return nil, err
	}
	logCfg.Output = logging.OutputConfig{Stderr: true}
	return logging.NewLogger(logCfg, nil)
}

// newApp loads config and connects the embedder and index.
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	tel, err := telemetry.New(ctx, telemetry.FromConfig(cfg.Telemetry, version))
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}
	if degraded, reasons := tel.Degraded(); degraded {
		logger.Warn(ctx, "telemetry degraded", zap.Strings("reasons", reasons))
	}

	a := &app{cfg: cfg, logger: logger, telemetry: tel}

	if !opts.skipEmbedder {
		a.embedder, err = embeddings.NewProvider(embeddings.ProviderConfig{
			Provider: cfg.Embeddings.Provider,
			Model:    cfg.Embeddings.Model,
			BaseURL:  cfg.Embeddings.BaseURL,
			APIKey:   cfg.Embeddings.APIKey.Value(),
			CacheDir: cfg.Embeddings.CacheDir,
			Logger:   logger.Named("embeddings").Underlying(),
		})
		if err != nil {
			_ = a.Close(ctx)
			return nil, fmt.Errorf("%w: %w", ingest.ErrEmbedding, err)
		}
	}

	a.index, err = vectorstore.NewIndex(ctx, cfg, qdrantDialer(cfg, logger), logger.Named("vectorstore").Underlying())
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("%w: %w", ingest.ErrIndex, err)
	}

	return a, nil
}

// qdrantDialer connects lazily so chromem users never dial Qdrant.
func qdrantDialer(cfg *config.Config, logger *logging.Logger) vectorstore.QdrantDialer {
	return func(ctx context.Context) (vectorstore.QdrantClient, error) {
		return qdrant.NewGRPCClient(ctx, qdrant.FromConfig(cfg.Qdrant), logger.Named("qdrant"))
	}
}

func (a *app) pipelineFor(src conversation.Source) (*ingest.Pipeline, error) {
	return ingest.New(a.embedder, a.index, ingest.Config{
		BatchSize: a.cfg.Ingest.BatchSize,
		Dimension: a.embedder.Dimension(),
		PointIDs:  a.cfg.Ingest.PointIDs,
		ChunkSizes: map[conversation.Source]int{
			conversation.SourceChatGPT: a.cfg.Ingest.ChatGPTChunkSize,
			conversation.SourceClaude:  a.cfg.Ingest.ClaudeChunkSize,
		},
		Source: src,
	}, a.logger.Named("ingest"))
}

func (a *app) searchService() (*search.Service, error) {
	return search.NewService(a.embedder, a.index, a.logger.Named("search"))
}

// Close releases the index, the embedder and telemetry exporters.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.index != nil {
		errs = append(errs, a.index.Close())
	}
	if a.embedder != nil {
		errs = append(errs, a.embedder.Close())
	}
	if a.telemetry != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		errs = append(errs, a.telemetry.Shutdown(shutdownCtx))
	}
	_ = a.logger.Sync()
	return errors.Join(errs...)
}
