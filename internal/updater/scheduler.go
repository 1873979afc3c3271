package updater

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	triggerSchedule = "schedule"
	triggerWatch    = "watch"
)

// Run keeps the collections current until ctx is done. It runs once at
// start, then on every cron tick and, with Watch set, on export changes.
// Without a schedule or watch it returns after the first run.
func (u *Updater) Run(ctx context.Context) error {
	_, err := u.run(ctx, "startup")
	if err != nil {
		u.logger.Warn(ctx, "initial update incomplete", zap.Error(err))
	}
	if u.config.Schedule == "" && !u.config.Watch {
		return err
	}

	if u.config.Schedule != "" {
		c := cron.New()
		if _, err := c.AddFunc(u.config.Schedule, func() { u.trigger(ctx, triggerSchedule) }); err != nil {
			return fmt.Errorf("invalid update schedule %q: %w", u.config.Schedule, err)
		}
		c.Start()
		defer func() { <-c.Stop().Done() }()
		u.logger.Info(ctx, "update schedule active", zap.String("schedule", u.config.Schedule))
	}

	if u.config.Watch {
		w, err := newWatcher(u.config.Sources(), u.config.Debounce, func() { u.trigger(ctx, triggerWatch) }, u.logger)
		if err != nil {
			return fmt.Errorf("starting export watcher: %w", err)
		}
		w.Start(ctx)
		defer w.Stop()
	}

	<-ctx.Done()
	u.logger.Info(ctx, "updater stopping")
	return nil
}

// trigger runs an update unless one is already running.
func (u *Updater) trigger(ctx context.Context, trigger string) {
	if ctx.Err() != nil {
		return
	}
	_, err := u.run(ctx, trigger)
	switch {
	case errors.Is(err, ErrRunInProgress):
		SkippedTriggers.WithLabelValues(trigger).Inc()
		u.logger.Info(ctx, "update already running, trigger skipped", zap.String("trigger", trigger))
	case err != nil:
		u.logger.Warn(ctx, "update incomplete", zap.String("trigger", trigger), zap.Error(err))
	}
}
