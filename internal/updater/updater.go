// Package updater re-ingests the latest ChatGPT and Claude exports into their
// collections, once, on a cron schedule, or whenever the export files change.
package updater

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragmemory/internal/conversation"
	"github.com/fyrsmithlabs/ragmemory/internal/ingest"
	"github.com/fyrsmithlabs/ragmemory/internal/logging"
	"github.com/fyrsmithlabs/ragmemory/internal/vectorstore"
)

var tracer = otel.Tracer("ragmemory.updater")

var (
	// ErrMissingExport means a source's export file does not exist.
	ErrMissingExport = errors.New("export file not found")

	// ErrRunInProgress is returned when a run is requested while another
	// is still executing.
	ErrRunInProgress = errors.New("update already in progress")
)

// LatestDir is the directory under the data dir holding current exports.
const LatestDir = "latest"

// Ingester rebuilds one collection from one export file.
type Ingester interface {
	Ingest(ctx context.Context, path, collection string, chunkSize int) (*ingest.Report, error)
}

// CollectionLister reports collection statistics.
type CollectionLister interface {
	ListCollections(ctx context.Context) ([]vectorstore.CollectionInfo, error)
}

// Source binds an export file to its collection.
type Source struct {
	Name       conversation.Source
	Path       string
	Collection string
}

// Config configures the updater.
type Config struct {
	DataDir           string
	ChatGPTFile       string
	ClaudeFile        string
	ChatGPTCollection string
	ClaudeCollection  string

	// Schedule is a standard 5-field cron expression. Empty disables it.
	Schedule string

	// Watch re-runs the update when an export file changes.
	Watch bool

	// Debounce coalesces bursts of file events (default: 2s).
	Debounce time.Duration
}

// Sources resolves the configured export paths.
func (c Config) Sources() []Source {
	latest := filepath.Join(c.DataDir, LatestDir)
	return []Source{
		{Name: conversation.SourceChatGPT, Path: filepath.Join(latest, c.ChatGPTFile), Collection: c.ChatGPTCollection},
		{Name: conversation.SourceClaude, Path: filepath.Join(latest, c.ClaudeFile), Collection: c.ClaudeCollection},
	}
}

// SourceResult is the outcome of one source within a run.
type SourceResult struct {
	Source     conversation.Source `json:"source"`
	Path       string              `json:"path"`
	Collection string              `json:"collection"`
	Report     *ingest.Report      `json:"report,omitempty"`
	Err        error               `json:"-"`
	Error      string              `json:"error,omitempty"`
}

// OK reports whether the source was ingested.
func (r SourceResult) OK() bool { return r.Err == nil }

// Summary describes one update run.
type Summary struct {
	Trigger     string                       `json:"trigger"`
	StartedAt   time.Time                    `json:"started_at"`
	Duration    time.Duration                `json:"duration"`
	Sources     []SourceResult               `json:"sources"`
	Collections []vectorstore.CollectionInfo `json:"collections"`
}

// Succeeded counts the sources ingested without error.
func (s *Summary) Succeeded() int {
	n := 0
	for _, r := range s.Sources {
		if r.OK() {
			n++
		}
	}
	return n
}

// Updater runs update cycles. At most one cycle runs at a time.
type Updater struct {
	ingester Ingester
	index    CollectionLister
	config   Config
	logger   *logging.Logger

	running sync.Mutex

	mu   sync.RWMutex
	last *Summary
}

// New creates an updater.
func New(ingester Ingester, index CollectionLister, cfg Config, logger *logging.Logger) (*Updater, error) {
	if ingester == nil {
		return nil, errors.New("ingester is required")
	}
	if index == nil {
		return nil, errors.New("collection lister is required")
	}
	if cfg.ChatGPTCollection == "" || cfg.ClaudeCollection == "" {
		return nil, errors.New("collections for both sources are required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 2 * time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Updater{
		ingester: ingester,
		index:    index,
		config:   cfg,
		logger:   logger.Named("updater"),
	}, nil
}

// Last returns the most recent run summary, or nil before the first run.
func (u *Updater) Last() *Summary {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.last
}

// RunOnce ingests every present export into its collection, then logs the
// collection statistics. A missing export fails only its own source. The
// returned error joins every source failure; the summary is always returned.
func (u *Updater) RunOnce(ctx context.Context) (*Summary, error) {
	return u.run(ctx, "manual")
}

func (u *Updater) run(ctx context.Context, trigger string) (*Summary, error) {
	if !u.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer u.running.Unlock()

	ctx, span := tracer.Start(ctx, "updater.Run")
	defer span.End()
	span.SetAttributes(attribute.String("trigger", trigger))

	summary := &Summary{Trigger: trigger, StartedAt: time.Now()}
	u.logger.Info(ctx, "update started", zap.String("trigger", trigger))

	var errs []error
	for _, src := range u.config.Sources() {
		result := u.ingestSource(ctx, src)
		if result.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", src.Name, result.Err))
		}
		summary.Sources = append(summary.Sources, result)
	}

	infos, err := u.index.ListCollections(ctx)
	if err != nil {
		u.logger.Warn(ctx, "collection statistics unavailable", zap.Error(err))
	} else {
		summary.Collections = infos
		vectorstore.RecordCollections(infos)
		for _, info := range infos {
			u.logger.Info(ctx, "collection statistics",
				zap.String("collection", info.Name),
				zap.Int("points", info.PointCount))
		}
	}

	summary.Duration = time.Since(summary.StartedAt)
	for _, r := range summary.Sources {
		fields := []zap.Field{
			zap.String("source", string(r.Source)),
			zap.String("collection", r.Collection),
			zap.Bool("ok", r.OK()),
		}
		if r.Report != nil {
			fields = append(fields,
				zap.Int("conversations", r.Report.Conversations),
				zap.Int("messages", r.Report.Messages),
				zap.Int("points", r.Report.PointsUpserted))
		}
		u.logger.Info(ctx, "source summary", fields...)
	}
	u.logger.Info(ctx, "update finished",
		zap.Int("succeeded", summary.Succeeded()),
		zap.Int("sources", len(summary.Sources)),
		zap.Duration("duration", summary.Duration))

	UpdatesTotal.WithLabelValues(trigger, outcome(summary)).Inc()
	LastUpdate.SetToCurrentTime()

	u.mu.Lock()
	u.last = summary
	u.mu.Unlock()

	joined := errors.Join(errs...)
	if joined != nil {
		span.SetStatus(codes.Error, joined.Error())
	} else {
		span.SetStatus(codes.Ok, "success")
	}
	return summary, joined
}

func (u *Updater) ingestSource(ctx context.Context, src Source) SourceResult {
	result := SourceResult{Source: src.Name, Path: src.Path, Collection: src.Collection}
	ctx = logging.WithSource(ctx, string(src.Name))

	if _, err := os.Stat(src.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%w: %s", ErrMissingExport, src.Path)
			u.logger.Warn(ctx, "export missing, skipping source", zap.String("path", src.Path))
		} else {
			err = fmt.Errorf("%w: %w", ingest.ErrIO, err)
			u.logger.Warn(ctx, "export unreadable, skipping source", zap.String("path", src.Path), zap.Error(err))
		}
		result.Err = err
		result.Error = err.Error()
		return result
	}

	report, err := u.ingester.Ingest(ctx, src.Path, src.Collection, 0)
	result.Report = report
	if err != nil {
		result.Err = err
		result.Error = err.Error()
	}
	return result
}

func outcome(s *Summary) string {
	switch s.Succeeded() {
	case len(s.Sources):
		return "success"
	case 0:
		return "failure"
	default:
		return "partial"
	}
}
