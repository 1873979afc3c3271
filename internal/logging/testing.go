package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// Recorder is a Logger that keeps every entry in memory, Trace included.
type Recorder struct {
	*Logger
	entries *observer.ObservedLogs
}

func NewRecorder() *Recorder {
	core, entries := observer.New(TraceLevel)
	return &Recorder{
		Logger:  &Logger{zap: zap.New(core), config: NewDefaultConfig()},
		entries: entries,
	}
}

// Messages returns the messages logged at level, in order.
func (r *Recorder) Messages(level zapcore.Level) []string {
	var msgs []string
	for _, e := range r.entries.FilterLevelExact(level).All() {
		msgs = append(msgs, e.Message)
	}
	return msgs
}

// Logged reports whether a message containing substr was logged at level.
func (r *Recorder) Logged(level zapcore.Level, substr string) bool {
	for _, msg := range r.Messages(level) {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

// Field returns the value of key on the first entry whose message contains
// substr.
func (r *Recorder) Field(substr, key string) (any, bool) {
	for _, e := range r.entries.FilterMessageSnippet(substr).All() {
		if v, ok := e.ContextMap()[key]; ok {
			return v, true
		}
	}
	return nil, false
}
