// Package search answers natural-language queries against an ingested
// conversation collection.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fyrsmithlabs/ragmemory/internal/conversation"
	"github.com/fyrsmithlabs/ragmemory/internal/embeddings"
	"github.com/fyrsmithlabs/ragmemory/internal/ingest"
	"github.com/fyrsmithlabs/ragmemory/internal/logging"
	"github.com/fyrsmithlabs/ragmemory/internal/vectorstore"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("ragmemory.search")

var (
	// ErrEmptyQuery is returned for a blank query.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrInvalidTopK is returned when top_k is not positive.
	ErrInvalidTopK = errors.New("top_k must be positive")
)

// Result is one ranked match.
type Result struct {
	ID    vectorstore.PointID
	Score float32
	Chunk conversation.Chunk
}

// Service embeds queries and ranks collection points by cosine similarity.
type Service struct {
	embedder embeddings.Embedder
	index    vectorstore.Index
	logger   *logging.Logger
}

// NewService creates a search service.
func NewService(embedder embeddings.Embedder, index vectorstore.Index, logger *logging.Logger) (*Service, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if index == nil {
		return nil, errors.New("index is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{embedder: embedder, index: index, logger: logger.Named("search")}, nil
}

// Search returns up to topK chunks of collection ranked by descending
// similarity to query. No matches is an empty slice, not an error.
//
// topK is not clamped here; callers facing users bound it.
func (s *Service) Search(ctx context.Context, query, collection string, topK int) ([]Result, error) {
	ctx = logging.WithCollection(ctx, collection)
	ctx, span := tracer.Start(ctx, "search.Search")
	defer span.End()
	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.Int("top_k", topK),
	)
	start := time.Now()

	if strings.TrimSpace(query) == "" {
		span.SetStatus(codes.Error, ErrEmptyQuery.Error())
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		span.SetStatus(codes.Error, ErrInvalidTopK.Error())
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopK, topK)
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding failed")
		return nil, fmt.Errorf("%w: embedding query: %w", ingest.ErrEmbedding, err)
	}

	hits, err := s.index.Search(ctx, collection, vector, topK)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "index search failed")
		return nil, fmt.Errorf("%w: searching %s: %w", ingest.ErrIndex, collection, err)
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{ID: h.ID, Score: h.Score, Chunk: conversation.ChunkFromPayload(h.Payload)}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	span.SetAttributes(attribute.Int("results_count", len(results)))
	span.SetStatus(codes.Ok, "success")
	s.logger.Debug(ctx, "search complete",
		zap.Int("top_k", topK),
		zap.Int("results", len(results)),
		zap.Duration("duration", time.Since(start)))

	return results, nil
}

// Collections lists collections with their point counts, sorted by name.
func (s *Service) Collections(ctx context.Context) ([]vectorstore.CollectionInfo, error) {
	infos, err := s.index.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing collections: %w", ingest.ErrIndex, err)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	vectorstore.RecordCollections(infos)
	return infos, nil
}
