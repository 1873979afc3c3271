package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal counts ingestion runs.
	// Labels: source (chatgpt, claude, unknown), result (success, error)
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragmemory",
			Subsystem: "ingest",
			Name:      "runs_total",
			Help:      "Total number of ingestion runs",
		},
		[]string{"source", "result"},
	)

	// ChunksCreated counts chunks produced by the chunker.
	ChunksCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragmemory",
			Subsystem: "ingest",
			Name:      "chunks_created_total",
			Help:      "Total number of chunks created",
		},
		[]string{"source"},
	)

	// PointsUpserted counts points written by ingestion runs.
	PointsUpserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragmemory",
			Subsystem: "ingest",
			Name:      "points_upserted_total",
			Help:      "Total number of points upserted by ingestion",
		},
		[]string{"collection"},
	)

	// SkippedConversations counts conversations isolated as unparseable.
	SkippedConversations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragmemory",
			Subsystem: "ingest",
			Name:      "skipped_conversations_total",
			Help:      "Conversations skipped because they failed to decode",
		},
		[]string{"source"},
	)

	// StageDuration tracks time spent per pipeline stage.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragmemory",
			Subsystem: "ingest",
			Name:      "stage_duration_seconds",
			Help:      "Duration of ingestion stages in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
		},
		[]string{"stage"},
	)
)
