package app

import (
	"context"
	"fmt"

	"github.com/vk/stompgen/internal/config"
	"github.com/vk/stompgen/internal/ctxlog"
	"github.com/vk/stompgen/internal/pipeline"
	"github.com/vk/stompgen/internal/structure"
)

// Run executes the requested command against a freshly resolved
// configuration. Resolution failures surface before any generation work
// begins.
func (a *App) Run(ctx context.Context, invocation *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "command", invocation.Command)

	cfg, err := config.Resolve(ctx, invocation.ConfigFile, invocation.Overrides)
	if err != nil {
		return err
	}

	switch invocation.Command {
	case CommandResolve:
		if _, err := a.outW.Write(cfg.Snapshot()); err != nil {
			return fmt.Errorf("failed to print effective configuration: %w", err)
		}
		return nil

	case CommandGenerate:
		counter := a.counter
		if counter == nil {
			counter = structure.NewCommandCounter(cfg.Tools.CounterCommand)
		}
		return pipeline.New(cfg, counter).Run(ctx)

	default:
		return fmt.Errorf("unknown command %q", invocation.Command)
	}
}
