package vectorstore

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/ragmemory/internal/config"
	"go.uber.org/zap"
)

// QdrantDialer connects to a Qdrant server. The qdrant package provides the
// production implementation; it is injected because that package depends on
// this one.
type QdrantDialer func(ctx context.Context) (QdrantClient, error)

// NewIndex creates the Index selected by cfg.VectorStore.Provider:
//   - "qdrant" (default): dials the server with dial and wraps the client
//   - "chromem": opens an embedded chromem-go database at the configured
//     path, which needs no external service
func NewIndex(ctx context.Context, cfg *config.Config, dial QdrantDialer, logger *zap.Logger) (Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.VectorStore.Provider {
	case "qdrant", "":
		if dial == nil {
			return nil, fmt.Errorf("%w: qdrant provider requires a dialer", ErrInvalidConfig)
		}
		client, err := dial(ctx)
		if err != nil {
			return nil, fmt.Errorf("connecting to qdrant at %s:%d: %w", cfg.Qdrant.Host, cfg.Qdrant.Port, err)
		}
		return NewQdrantIndex(client, logger)

	case "chromem":
		return NewChromemIndex(ChromemConfig{
			Path:     cfg.VectorStore.ChromemPath,
			Compress: cfg.VectorStore.ChromemCompress,
		}, logger)

	default:
		return nil, fmt.Errorf("%w: unsupported vectorstore provider %q (supported: qdrant, chromem)", ErrInvalidConfig, cfg.VectorStore.Provider)
	}
}
