package app

import (
	"io"
	"log/slog"

	"github.com/vk/stompgen/internal/structure"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	errW    io.Writer
	logger  *slog.Logger
	counter structure.Counter
}

// New is the constructor for the main application. Command output goes to
// outW, logs to errW. counter may be nil, in which case the generate command
// builds the exec-backed counter named by the resolved configuration; tests
// inject a fake here.
func New(outW, errW io.Writer, invocation *Config, counter structure.Counter) *App {
	logger := newLogger(invocation.LogLevel, invocation.LogFormat, errW)
	logger.Debug("Logger configured successfully.")

	return &App{
		outW:    outW,
		errW:    errW,
		logger:  logger,
		counter: counter,
	}
}
