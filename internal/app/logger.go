package app

import (
	"io"
	"log/slog"
)

// logLevels maps the --log-level flag values onto slog levels. cli.Parse has
// already rejected anything outside this table.
var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// newLogger builds the App's logger from the --log-level and --log-format
// flags. The logger is per-instance and never installed as the process
// default, so side-by-side Apps (as in the integration harness) keep their
// log streams separate.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	level, ok := logLevels[levelStr]
	if !ok {
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if formatStr == "json" {
		handler = slog.NewJSONHandler(outW, handlerOpts)
	} else {
		handler = slog.NewTextHandler(outW, handlerOpts)
	}

	return slog.New(handler)
}
