package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// TraceLevel logs per-message parser and chunker detail, below Debug.
const TraceLevel = zapcore.Level(-2)

// ParseLevel maps a logging.level setting onto a zap level. Names are
// case-insensitive; "trace" and "warning" are accepted besides zap's own.
func ParseLevel(name string) (zapcore.Level, error) {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case "trace":
		return TraceLevel, nil
	case "warning":
		return zapcore.WarnLevel, nil
	default:
		var l zapcore.Level
		if err := l.UnmarshalText([]byte(n)); err != nil {
			return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: want trace, debug, info, warn or error", name)
		}
		return l, nil
	}
}
