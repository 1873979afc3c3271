package vectorstore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal counts index operations.
	// Labels: backend (qdrant, chromem), operation, result (success, error)
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragmemory",
			Subsystem: "vectorstore",
			Name:      "operations_total",
			Help:      "Total number of vector index operations",
		},
		[]string{"backend", "operation", "result"},
	)

	// OperationDuration tracks how long index operations take.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragmemory",
			Subsystem: "vectorstore",
			Name:      "operation_duration_seconds",
			Help:      "Duration of vector index operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	// PointsUpserted counts points written per collection.
	PointsUpserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragmemory",
			Subsystem: "vectorstore",
			Name:      "points_upserted_total",
			Help:      "Total number of points upserted",
		},
		[]string{"backend", "collection"},
	)

	// CollectionPoints reports the last observed point count per collection.
	CollectionPoints = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "ragmemory",
			Subsystem: "vectorstore",
			Name:      "collection_points",
			Help:      "Number of points per collection at the last listing",
		},
		[]string{"collection"},
	)
)

// observe records the outcome of one index operation. Use with defer:
//
//	defer observe("qdrant", "search", time.Now(), &err)
func observe(backend, operation string, start time.Time, errp *error) {
	result := "success"
	if errp != nil && *errp != nil {
		result = "error"
	}
	OperationsTotal.WithLabelValues(backend, operation, result).Inc()
	OperationDuration.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
}

// RecordCollections updates the per-collection point gauge.
func RecordCollections(infos []CollectionInfo) {
	for _, info := range infos {
		CollectionPoints.WithLabelValues(info.Name).Set(float64(info.PointCount))
	}
}
