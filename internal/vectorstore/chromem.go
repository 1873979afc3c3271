package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var chromemTracer = otel.Tracer("ragmemory.vectorstore.chromem")

const (
	chromemBackend = "chromem"

	// chromem metadata is string-only, so the payload is stored as JSON.
	chromemPayloadKey = "payload"
)

// errNoEmbeddingFunc is returned if chromem ever tries to embed text itself.
// Every document and query carries a precomputed vector.
var errNoEmbeddingFunc = errors.New("chromem index requires precomputed embeddings")

// ChromemConfig holds configuration for the embedded chromem-go index.
type ChromemConfig struct {
	// Path is the directory for persistent storage. Empty keeps the
	// database in memory only.
	Path string

	// Compress enables gzip compression for persisted data.
	Compress bool
}

// ChromemIndex implements Index using chromem-go.
type ChromemIndex struct {
	db     *chromem.DB
	config ChromemConfig
	logger *zap.Logger

	// dims records collection dimensions created through this index.
	dims sync.Map
}

// NewChromemIndex opens (or creates) a chromem-go database.
func NewChromemIndex(config ChromemConfig, logger *zap.Logger) (*ChromemIndex, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var db *chromem.DB
	if config.Path == "" {
		db = chromem.NewDB()
	} else {
		path, err := expandPath(config.Path)
		if err != nil {
			return nil, fmt.Errorf("expanding path: %w", err)
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", path, err)
		}
		db, err = chromem.NewPersistentDB(path, config.Compress)
		if err != nil {
			return nil, fmt.Errorf("creating chromem DB: %w", err)
		}
		config.Path = path
	}

	logger.Info("chromem index initialized",
		zap.String("path", config.Path),
		zap.Bool("persistent", config.Path != ""),
		zap.Bool("compress", config.Compress))

	return &ChromemIndex{db: db, config: config, logger: logger}, nil
}

// expandPath expands a leading ~ to the home directory.
func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

func noEmbedding(_ context.Context, _ string) ([]float32, error) {
	return nil, errNoEmbeddingFunc
}

// CollectionExists reports whether the collection exists.
func (s *ChromemIndex) CollectionExists(ctx context.Context, name string) (exists bool, err error) {
	_, span := chromemTracer.Start(ctx, "ChromemIndex.CollectionExists")
	defer span.End()
	defer observe(chromemBackend, "collection_exists", time.Now(), &err)

	span.SetAttributes(attribute.String("collection", name))
	if err := ValidateCollectionName(name); err != nil {
		return false, err
	}
	return s.db.GetCollection(name, noEmbedding) != nil, nil
}

// DeleteCollection drops the collection. A missing collection is not an error.
func (s *ChromemIndex) DeleteCollection(ctx context.Context, name string) (err error) {
	_, span := chromemTracer.Start(ctx, "ChromemIndex.DeleteCollection")
	defer span.End()
	defer observe(chromemBackend, "delete_collection", time.Now(), &err)

	span.SetAttributes(attribute.String("collection", name))
	if err := ValidateCollectionName(name); err != nil {
		return err
	}
	if err := s.db.DeleteCollection(name); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("deleting collection %s: %w", name, err)
	}
	s.dims.Delete(name)
	span.SetStatus(codes.Ok, "success")
	return nil
}

// CreateCollection drops any existing collection of that name and creates an
// empty one.
func (s *ChromemIndex) CreateCollection(ctx context.Context, name string, dimension int) (err error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemIndex.CreateCollection")
	defer span.End()
	defer observe(chromemBackend, "create_collection", time.Now(), &err)

	span.SetAttributes(
		attribute.String("collection", name),
		attribute.Int("dimension", dimension),
	)
	if err := ValidateCollectionName(name); err != nil {
		return err
	}
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidConfig, dimension)
	}

	if s.db.GetCollection(name, noEmbedding) != nil {
		if err := s.DeleteCollection(ctx, name); err != nil {
			return err
		}
	}

	metadata := map[string]string{"dimension": fmt.Sprint(dimension), "distance": "cosine"}
	if _, err := s.db.CreateCollection(name, metadata, noEmbedding); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("creating collection %s: %w", name, err)
	}
	s.dims.Store(name, dimension)

	s.logger.Debug("collection created",
		zap.String("collection", name),
		zap.Int("dimension", dimension))
	span.SetStatus(codes.Ok, "success")
	return nil
}

// Upsert writes points. Documents with an existing id are overwritten.
func (s *ChromemIndex) Upsert(ctx context.Context, name string, points []Point) (err error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemIndex.Upsert")
	defer span.End()
	defer observe(chromemBackend, "upsert", time.Now(), &err)

	span.SetAttributes(
		attribute.String("collection", name),
		attribute.Int("point_count", len(points)),
	)
	if len(points) == 0 {
		return ErrEmptyPoints
	}

	collection := s.db.GetCollection(name, noEmbedding)
	if collection == nil {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	if dim, ok := s.dims.Load(name); ok {
		if err := checkDimension(points, dim.(int)); err != nil {
			return err
		}
	}

	docs := make([]chromem.Document, len(points))
	for i, p := range points {
		raw, err := json.Marshal(p.Payload)
		if err != nil {
			return fmt.Errorf("encoding payload of point %s: %w", p.ID, err)
		}
		content, _ := p.Payload["text"].(string)
		docs[i] = chromem.Document{
			ID:        p.ID.String(),
			Metadata:  map[string]string{chromemPayloadKey: string(raw)},
			Embedding: p.Vector,
			Content:   content,
		}
	}

	// Documents are keyed by id, so re-adding an id overwrites it.
	if err := collection.AddDocuments(ctx, docs, 1); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("adding documents to %s: %w", name, err)
	}

	PointsUpserted.WithLabelValues(chromemBackend, name).Add(float64(len(points)))
	span.SetStatus(codes.Ok, "success")
	return nil
}

// Search returns the nearest points by cosine similarity.
func (s *ChromemIndex) Search(ctx context.Context, name string, vector []float32, limit int) (hits []Hit, err error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemIndex.Search")
	defer span.End()
	defer observe(chromemBackend, "search", time.Now(), &err)

	span.SetAttributes(
		attribute.String("collection", name),
		attribute.Int("limit", limit),
	)
	if limit <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLimit, limit)
	}

	collection := s.db.GetCollection(name, noEmbedding)
	if collection == nil {
		span.SetStatus(codes.Error, "collection not found")
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}

	count := collection.Count()
	if count == 0 {
		span.SetStatus(codes.Ok, "empty collection")
		return []Hit{}, nil
	}
	if dim, ok := s.dims.Load(name); ok && len(vector) != dim.(int) {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection expects %d",
			ErrDimensionMismatch, len(vector), dim.(int))
	}

	// chromem rejects nResults larger than the collection.
	if limit > count {
		limit = count
	}

	results, err := collection.QueryEmbedding(ctx, vector, limit, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying %s: %w", name, err)
	}

	hits = make([]Hit, 0, len(results))
	for _, r := range results {
		payload := map[string]any{}
		if raw, ok := r.Metadata[chromemPayloadKey]; ok {
			if err := json.Unmarshal([]byte(raw), &payload); err != nil {
				s.logger.Warn("skipping point with undecodable payload",
					zap.String("collection", name),
					zap.String("id", r.ID),
					zap.Error(err))
				continue
			}
		}
		hits = append(hits, Hit{ID: ParsePointID(r.ID), Score: r.Similarity, Payload: payload})
	}

	span.SetAttributes(attribute.Int("results_count", len(hits)))
	span.SetStatus(codes.Ok, "success")
	return hits, nil
}

// ListCollections returns every collection sorted by name.
func (s *ChromemIndex) ListCollections(ctx context.Context) (infos []CollectionInfo, err error) {
	_, span := chromemTracer.Start(ctx, "ChromemIndex.ListCollections")
	defer span.End()
	defer observe(chromemBackend, "list_collections", time.Now(), &err)

	for name, c := range s.db.ListCollections() {
		info := CollectionInfo{Name: name, PointCount: c.Count()}
		if dim, ok := s.dims.Load(name); ok {
			info.VectorSize = dim.(int)
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

	span.SetAttributes(attribute.Int("collection_count", len(infos)))
	return infos, nil
}

// Close is a no-op; persistent chromem databases write through on every change.
func (s *ChromemIndex) Close() error {
	return nil
}

var _ Index = (*ChromemIndex)(nil)
