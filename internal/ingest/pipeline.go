// Package ingest loads a conversation export, chunks it, embeds the chunks in
// batches and writes them into a freshly rebuilt vector collection.
package ingest

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fyrsmithlabs/ragmemory/internal/conversation"
	"github.com/fyrsmithlabs/ragmemory/internal/embeddings"
	"github.com/fyrsmithlabs/ragmemory/internal/logging"
	"github.com/fyrsmithlabs/ragmemory/internal/vectorstore"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("ragmemory.ingest")

// DefaultBatchSize is the number of chunks embedded per embedder call.
const DefaultBatchSize = 32

// Config holds pipeline settings.
type Config struct {
	// BatchSize is the number of chunks per embedder call and upsert.
	BatchSize int

	// Dimension is the vector length of the collection. Every embedded
	// vector must match it.
	Dimension int

	// PointIDs selects the id strategy: "sequential" or "content".
	PointIDs string

	// ChunkSizes overrides the per-source default chunk size.
	ChunkSizes map[conversation.Source]int

	// Source forces the export shape; SourceUnknown detects it.
	Source conversation.Source
}

// Report summarizes one ingestion run. It is returned with whatever was
// completed even when the run fails.
type Report struct {
	RunID      string
	Path       string
	Collection string
	Source     conversation.Source

	Conversations        int
	Messages             int
	SkippedConversations int
	DroppedConversations int

	ChunkSize        int
	ChunksCreated    int
	Batches          int
	BatchesCompleted int
	PointsUpserted   int

	Duration time.Duration
}

// Pipeline runs Parser, Chunker, Embedder and Index in sequence.
type Pipeline struct {
	embedder embeddings.Embedder
	index    vectorstore.Index
	ids      IDStrategy
	config   Config
	logger   *logging.Logger
}

// New creates a pipeline. Zero BatchSize and Dimension take the defaults.
func New(embedder embeddings.Embedder, index vectorstore.Index, cfg Config, logger *logging.Logger) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if index == nil {
		return nil, fmt.Errorf("%w: index is required", ErrInvalidConfig)
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchSize < 0 {
		return nil, fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidConfig, cfg.BatchSize)
	}
	if cfg.Dimension == 0 {
		cfg.Dimension = embeddings.DefaultDimension
	}
	if cfg.Source == "" {
		cfg.Source = conversation.SourceUnknown
	}
	ids, err := IDStrategyFor(cfg.PointIDs)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Pipeline{
		embedder: embedder,
		index:    index,
		ids:      ids,
		config:   cfg,
		logger:   logger.Named("ingest"),
	}, nil
}

// Ingest rebuilds collection from the export at path. A chunkSize of 0 uses
// the configured size for the detected source.
//
// The file is read and parsed before the collection is touched, so IO and
// parse failures leave the index unchanged. Embedding and index failures
// abort the remaining batches.
func (p *Pipeline) Ingest(ctx context.Context, path, collection string, chunkSize int) (*Report, error) {
	report := &Report{
		RunID:      uuid.NewString(),
		Path:       path,
		Collection: collection,
	}
	start := time.Now()

	ctx = logging.WithRunID(ctx, report.RunID)
	ctx = logging.WithCollection(ctx, collection)
	ctx, span := tracer.Start(ctx, "ingest.Run", trace.WithAttributes(
		attribute.String("run.id", report.RunID),
		attribute.String("path", path),
		attribute.String("collection", collection),
	))
	defer span.End()

	err := p.run(ctx, report, chunkSize)
	report.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("chunks_created", report.ChunksCreated),
		attribute.Int("points_upserted", report.PointsUpserted),
	)

	result := "success"
	if err != nil {
		result = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.Error(ctx, "ingestion failed",
			zap.String("path", path),
			zap.Int("chunks_created", report.ChunksCreated),
			zap.Int("points_upserted", report.PointsUpserted),
			zap.Int("batches_completed", report.BatchesCompleted),
			zap.Int("batches", report.Batches),
			zap.Error(err))
	} else {
		span.SetStatus(codes.Ok, "success")
		p.logger.Info(ctx, "ingestion complete",
			zap.String("path", path),
			zap.Int("conversations", report.Conversations),
			zap.Int("messages", report.Messages),
			zap.Int("chunks_created", report.ChunksCreated),
			zap.Int("points_upserted", report.PointsUpserted),
			zap.Duration("duration", report.Duration))
	}
	RunsTotal.WithLabelValues(string(report.Source), result).Inc()

	return report, err
}

func (p *Pipeline) run(ctx context.Context, report *Report, chunkSize int) error {
	fail := func(stage Stage, batch int, kind, err error) error {
		return &StageError{Stage: stage, Path: report.Path, Collection: report.Collection, Batch: batch, Kind: kind, Err: err}
	}

	if err := vectorstore.ValidateCollectionName(report.Collection); err != nil {
		return fail(StageRecreate, -1, ErrIndex, err)
	}

	stageStart := time.Now()
	data, err := os.ReadFile(report.Path)
	if err != nil {
		return fail(StageRead, -1, ErrIO, err)
	}

	parsed, err := conversation.NewParserFor(p.config.Source).Parse(data)
	StageDuration.WithLabelValues(string(StageParse)).Observe(time.Since(stageStart).Seconds())
	if err != nil {
		return fail(StageParse, -1, nil, err)
	}

	report.Source = parsed.Source
	report.Conversations = len(parsed.Conversations)
	report.Messages = parsed.MessageCount()
	report.SkippedConversations = len(parsed.Skipped)
	report.DroppedConversations = parsed.Dropped
	ctx = logging.WithSource(ctx, string(parsed.Source))

	for i := range parsed.Skipped {
		skipped := &parsed.Skipped[i]
		p.logger.Warn(ctx, "skipping unparseable conversation",
			zap.Int("index", skipped.Index),
			zap.String("conversation_id", skipped.ID),
			zap.Error(skipped.Err))
	}
	SkippedConversations.WithLabelValues(string(parsed.Source)).Add(float64(len(parsed.Skipped)))

	if chunkSize == 0 {
		chunkSize = p.chunkSizeFor(parsed.Source)
	}
	report.ChunkSize = chunkSize

	chunks, err := conversation.ChunkAll(parsed, chunkSize)
	if err != nil {
		return fail(StageChunk, -1, nil, err)
	}
	report.ChunksCreated = len(chunks)
	ChunksCreated.WithLabelValues(string(parsed.Source)).Add(float64(len(chunks)))

	p.logger.Info(ctx, "export parsed",
		zap.Int("conversations", report.Conversations),
		zap.Int("messages", report.Messages),
		zap.Int("skipped", report.SkippedConversations),
		zap.Int("dropped", report.DroppedConversations),
		zap.Int("chunks", report.ChunksCreated),
		zap.Int("chunk_size", chunkSize))

	if err := ctx.Err(); err != nil {
		return fail(StageRecreate, -1, nil, err)
	}
	stageStart = time.Now()
	if err := p.index.CreateCollection(ctx, report.Collection, p.config.Dimension); err != nil {
		return fail(StageRecreate, -1, ErrIndex, err)
	}
	StageDuration.WithLabelValues(string(StageRecreate)).Observe(time.Since(stageStart).Seconds())

	report.Batches = (len(chunks) + p.config.BatchSize - 1) / p.config.BatchSize
	for b := 0; b < report.Batches; b++ {
		if err := ctx.Err(); err != nil {
			return fail(StageEmbed, b, nil, err)
		}

		lo := b * p.config.BatchSize
		hi := min(lo+p.config.BatchSize, len(chunks))

		n, err := p.processBatch(ctx, report.Collection, chunks[lo:hi], lo, b)
		if err != nil {
			return fail(err.stage, b, err.kind, err.err)
		}
		report.PointsUpserted += n
		report.BatchesCompleted++
	}
	PointsUpserted.WithLabelValues(report.Collection).Add(float64(report.PointsUpserted))

	return nil
}

// batchError carries the stage and kind of a batch failure to run.
type batchError struct {
	stage Stage
	kind  error
	err   error
}

// processBatch embeds one batch with a single embedder call and upserts it.
// offset is the sequence number of the first chunk of the batch.
func (p *Pipeline) processBatch(ctx context.Context, collection string, batch []conversation.Chunk, offset, number int) (int, *batchError) {
	ctx, span := tracer.Start(ctx, "ingest.Batch", trace.WithAttributes(
		attribute.Int("batch", number),
		attribute.Int("batch_size", len(batch)),
	))
	defer span.End()

	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	start := time.Now()
	vectors, err := p.embedder.EmbedDocuments(ctx, texts)
	StageDuration.WithLabelValues(string(StageEmbed)).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding failed")
		return 0, &batchError{stage: StageEmbed, kind: ErrEmbedding, err: err}
	}
	if len(vectors) != len(batch) {
		err := fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(batch))
		span.SetStatus(codes.Error, err.Error())
		return 0, &batchError{stage: StageEmbed, kind: ErrEmbedding, err: err}
	}

	points := make([]vectorstore.Point, len(batch))
	for i, c := range batch {
		if len(vectors[i]) != p.config.Dimension {
			err := fmt.Errorf("%w: chunk %d has %d dimensions, collection expects %d",
				vectorstore.ErrDimensionMismatch, offset+i, len(vectors[i]), p.config.Dimension)
			span.SetStatus(codes.Error, err.Error())
			return 0, &batchError{stage: StageUpsert, kind: ErrIndex, err: err}
		}
		points[i] = vectorstore.Point{
			ID:      p.ids(c, offset+i),
			Vector:  vectors[i],
			Payload: c.Payload(),
		}
	}

	start = time.Now()
	if err := p.index.Upsert(ctx, collection, points); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert failed")
		return 0, &batchError{stage: StageUpsert, kind: ErrIndex, err: err}
	}
	StageDuration.WithLabelValues(string(StageUpsert)).Observe(time.Since(start).Seconds())

	p.logger.Debug(ctx, "batch upserted",
		zap.Int("batch", number),
		zap.Int("points", len(points)),
		zap.Int("first_seq", offset))
	span.SetStatus(codes.Ok, "success")
	return len(points), nil
}

func (p *Pipeline) chunkSizeFor(source conversation.Source) int {
	if size, ok := p.config.ChunkSizes[source]; ok && size > 0 {
		return size
	}
	return conversation.DefaultChunkSize(source)
}
