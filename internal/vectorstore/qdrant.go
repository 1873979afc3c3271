package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var qdrantTracer = otel.Tracer("ragmemory.vectorstore.qdrant")

const qdrantBackend = "qdrant"

// QdrantClient is the subset of the Qdrant API the index needs. It is
// implemented by qdrant.GRPCClient.
type QdrantClient interface {
	CreateCollection(ctx context.Context, name string, vectorSize uint64) error
	DeleteCollection(ctx context.Context, name string) error
	CollectionExists(ctx context.Context, name string) (bool, error)
	ListCollections(ctx context.Context) ([]string, error)
	GetCollectionInfo(ctx context.Context, name string) (*CollectionInfo, error)
	Upsert(ctx context.Context, collection string, points []Point) error
	Search(ctx context.Context, collection string, vector []float32, limit uint64) ([]Hit, error)
	Close() error
}

// QdrantIndex implements Index on top of a Qdrant server.
type QdrantIndex struct {
	client QdrantClient
	logger *zap.Logger
}

// NewQdrantIndex wraps a connected Qdrant client.
func NewQdrantIndex(client QdrantClient, logger *zap.Logger) (*QdrantIndex, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: qdrant client is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QdrantIndex{client: client, logger: logger}, nil
}

func (s *QdrantIndex) CollectionExists(ctx context.Context, name string) (exists bool, err error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantIndex.CollectionExists")
	defer span.End()
	defer observe(qdrantBackend, "collection_exists", time.Now(), &err)

	span.SetAttributes(attribute.String("collection", name))
	if err := ValidateCollectionName(name); err != nil {
		return false, err
	}
	exists, err = s.client.CollectionExists(ctx, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("checking collection %s: %w", name, err)
	}
	return exists, nil
}

// DeleteCollection drops the collection. The existence check replaces
// error-driven control flow: a missing collection is a no-op.
func (s *QdrantIndex) DeleteCollection(ctx context.Context, name string) (err error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantIndex.DeleteCollection")
	defer span.End()
	defer observe(qdrantBackend, "delete_collection", time.Now(), &err)

	span.SetAttributes(attribute.String("collection", name))
	exists, err := s.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	if err := s.client.DeleteCollection(ctx, name); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("deleting collection %s: %w", name, err)
	}
	span.SetStatus(codes.Ok, "success")
	return nil
}

// CreateCollection drops any existing collection of that name, then creates
// it with the given dimension and cosine distance.
func (s *QdrantIndex) CreateCollection(ctx context.Context, name string, dimension int) (err error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantIndex.CreateCollection")
	defer span.End()
	defer observe(qdrantBackend, "create_collection", time.Now(), &err)

	span.SetAttributes(
		attribute.String("collection", name),
		attribute.Int("dimension", dimension),
	)
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidConfig, dimension)
	}
	if err := s.DeleteCollection(ctx, name); err != nil {
		return err
	}
	if err := s.client.CreateCollection(ctx, name, uint64(dimension)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("creating collection %s: %w", name, err)
	}

	s.logger.Debug("collection created",
		zap.String("collection", name),
		zap.Int("dimension", dimension))
	span.SetStatus(codes.Ok, "success")
	return nil
}

// Upsert writes points and waits for the write to be applied.
func (s *QdrantIndex) Upsert(ctx context.Context, name string, points []Point) (err error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantIndex.Upsert")
	defer span.End()
	defer observe(qdrantBackend, "upsert", time.Now(), &err)

	span.SetAttributes(
		attribute.String("collection", name),
		attribute.Int("point_count", len(points)),
	)
	if len(points) == 0 {
		return ErrEmptyPoints
	}
	if err := ValidateCollectionName(name); err != nil {
		return err
	}
	if err := s.client.Upsert(ctx, name, points); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upserting %d points into %s: %w", len(points), name, err)
	}

	PointsUpserted.WithLabelValues(qdrantBackend, name).Add(float64(len(points)))
	span.SetStatus(codes.Ok, "success")
	return nil
}

// Search returns up to limit nearest points.
func (s *QdrantIndex) Search(ctx context.Context, name string, vector []float32, limit int) (hits []Hit, err error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantIndex.Search")
	defer span.End()
	defer observe(qdrantBackend, "search", time.Now(), &err)

	span.SetAttributes(
		attribute.String("collection", name),
		attribute.Int("limit", limit),
	)
	if limit <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLimit, limit)
	}

	exists, err := s.CollectionExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		span.SetStatus(codes.Error, "collection not found")
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}

	hits, err = s.client.Search(ctx, name, vector, uint64(limit))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("searching %s: %w", name, err)
	}
	if hits == nil {
		hits = []Hit{}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	span.SetAttributes(attribute.Int("results_count", len(hits)))
	span.SetStatus(codes.Ok, "success")
	return hits, nil
}

// ListCollections returns every collection with its point count, sorted by name.
func (s *QdrantIndex) ListCollections(ctx context.Context) (infos []CollectionInfo, err error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantIndex.ListCollections")
	defer span.End()
	defer observe(qdrantBackend, "list_collections", time.Now(), &err)

	names, err := s.client.ListCollections(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	sort.Strings(names)

	infos = make([]CollectionInfo, 0, len(names))
	for _, name := range names {
		info, err := s.client.GetCollectionInfo(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("reading collection %s: %w", name, err)
		}
		infos = append(infos, *info)
	}

	span.SetAttributes(attribute.Int("collection_count", len(infos)))
	return infos, nil
}

func (s *QdrantIndex) Close() error {
	return s.client.Close()
}

var _ Index = (*QdrantIndex)(nil)
