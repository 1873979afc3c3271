package logging

import (
	"sort"

	"go.uber.org/zap/zapcore"
)

// newSampledCore samples each level below Error with its own budget.
// Error and above always pass through, as do levels with no budget.
func newSampledCore(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled || len(cfg.Levels) == 0 {
		return core
	}

	levels := make([]zapcore.Level, 0, len(cfg.Levels))
	for lvl := range cfg.Levels {
		if lvl < zapcore.ErrorLevel {
			levels = append(levels, lvl)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	cores := make([]zapcore.Core, 0, len(levels)+1)
	sampled := make(map[zapcore.Level]bool, len(levels))
	for _, lvl := range levels {
		budget := cfg.Levels[lvl]
		only := &levelFilterCore{Core: core, match: exactly(lvl)}
		cores = append(cores, zapcore.NewSamplerWithOptions(only, cfg.Tick.Duration(), budget.Initial, budget.Thereafter))
		sampled[lvl] = true
	}
	cores = append(cores, &levelFilterCore{Core: core, match: func(l zapcore.Level) bool { return !sampled[l] }})

	return zapcore.NewTee(cores...)
}

func exactly(lvl zapcore.Level) func(zapcore.Level) bool {
	return func(l zapcore.Level) bool { return l == lvl }
}

// levelFilterCore passes only entries whose level matches.
type levelFilterCore struct {
	zapcore.Core
	match func(zapcore.Level) bool
}

func (c *levelFilterCore) Enabled(lvl zapcore.Level) bool {
	return c.match(lvl) && c.Core.Enabled(lvl)
}

func (c *levelFilterCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

func (c *levelFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelFilterCore{Core: c.Core.With(fields), match: c.match}
}
