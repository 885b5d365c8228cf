package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// TraceLevel sits below Debug. The event publisher logs each published
// change at this level, which is too noisy for debug.
const TraceLevel = zapcore.Level(-2)

var levelNames = map[string]zapcore.Level{
	"trace":   TraceLevel,
	"debug":   zapcore.DebugLevel,
	"info":    zapcore.InfoLevel,
	"warn":    zapcore.WarnLevel,
	"warning": zapcore.WarnLevel,
	"error":   zapcore.ErrorLevel,
}

// LevelFromString maps a configured level name to a zap level. Names are
// case-insensitive.
func LevelFromString(name string) (zapcore.Level, error) {
	if lvl, ok := levelNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return lvl, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q (want trace, debug, info, warn or error)", name)
}
