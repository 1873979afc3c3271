package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/fyrsmithlabs/ragmemory/internal/ingest"
	"github.com/fyrsmithlabs/ragmemory/internal/search"
	"github.com/fyrsmithlabs/ragmemory/internal/vectorstore"
)

func sumOf(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestMetrics_RecordInvocation(t *testing.T) {
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	m := newMetrics(mp.Meter(instrumentationName), nil)
	ctx := context.Background()

	m.IncrementActive(ctx, "search_memory")
	m.track(ctx, "search_memory", time.Now().Add(-100*time.Millisecond), nil)

	failure := fmt.Errorf("%w: boom", ingest.ErrIndex)
	m.IncrementActive(ctx, "search_memory")
	m.track(ctx, "search_memory", time.Now(), &failure)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	assert.Equal(t, int64(2), sumOf(t, rm, "ragmemory.mcp.tool.invocations_total"))
	assert.Equal(t, int64(1), sumOf(t, rm, "ragmemory.mcp.tool.errors_total"))
	assert.Equal(t, int64(0), sumOf(t, rm, "ragmemory.mcp.tool.active_requests"))
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: nil, want: ""},
		{err: search.ErrEmptyQuery, want: "validation_error"},
		{err: fmt.Errorf("%w: got 0", search.ErrInvalidTopK), want: "validation_error"},
		{err: fmt.Errorf("%w: %w", ingest.ErrIndex, vectorstore.ErrCollectionNotFound), want: "not_found"},
		{err: fmt.Errorf("%w: x", ingest.ErrEmbedding), want: "embedding_error"},
		{err: fmt.Errorf("%w: x", ingest.ErrIndex), want: "index_error"},
		{err: context.DeadlineExceeded, want: "timeout"},
		{err: errors.New("weird"), want: "internal_error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, categorizeError(tt.err), "%v", tt.err)
	}
}
