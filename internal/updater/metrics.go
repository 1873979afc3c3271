package updater

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpdatesTotal counts update runs.
	// Labels: trigger (manual, schedule, watch), result (success, partial, failure)
	UpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragmemory",
			Subsystem: "updater",
			Name:      "runs_total",
			Help:      "Total number of update runs",
		},
		[]string{"trigger", "result"},
	)

	// LastUpdate is the unix time of the last finished run.
	LastUpdate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ragmemory",
			Subsystem: "updater",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last finished update run",
		},
	)

	// SkippedTriggers counts triggers dropped because a run was in progress.
	SkippedTriggers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragmemory",
			Subsystem: "updater",
			Name:      "skipped_triggers_total",
			Help:      "Triggers ignored while an update was running",
		},
		[]string{"trigger"},
	)
)
