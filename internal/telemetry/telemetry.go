package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Telemetry installs the global tracer and meter providers for one process
// and flushes them on Shutdown. Packages instrument through otel.Tracer and
// otel.Meter.
type Telemetry struct {
	config    *Config
	shutdowns []namedShutdown
	reasons   []string
}

type namedShutdown struct {
	name string
	fn   func(context.Context) error
}

// New starts the exporters described by cfg. A provider whose exporter
// cannot be built is skipped and recorded in Degraded; ingestion and search
// keep working against the no-op globals.
func New(ctx context.Context, cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry config: %w", err)
	}

	t := &Telemetry{config: cfg}
	if !cfg.Enabled {
		return t, nil
	}

	res := newResource(cfg)

	if tp, err := newTracerProvider(ctx, cfg, res); err != nil {
		t.reasons = append(t.reasons, fmt.Sprintf("traces: %v", err))
	} else {
		otel.SetTracerProvider(tp)
		t.shutdowns = append(t.shutdowns, namedShutdown{"traces", tp.Shutdown})
	}

	if cfg.MetricsEnabled {
		if mp, err := newMeterProvider(ctx, cfg, res); err != nil {
			t.reasons = append(t.reasons, fmt.Sprintf("metrics: %v", err))
		} else {
			otel.SetMeterProvider(mp)
			t.shutdowns = append(t.shutdowns, namedShutdown{"metrics", mp.Shutdown})
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return t, nil
}

// Shutdown flushes pending spans and metrics. Without a deadline on ctx it
// is bounded by the configured shutdown timeout.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil || len(t.shutdowns) == 0 {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.ShutdownTimeout.Duration())
		defer cancel()
	}

	var errs []error
	for _, s := range t.shutdowns {
		if err := s.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s shutdown: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// Enabled reports whether at least one exporter is running.
func (t *Telemetry) Enabled() bool {
	return t != nil && len(t.shutdowns) > 0
}

// Degraded reports exporters that were requested but failed to start.
func (t *Telemetry) Degraded() (bool, []string) {
	if t == nil {
		return false, nil
	}
	return len(t.reasons) > 0, t.reasons
}
