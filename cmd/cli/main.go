package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/vk/stompgen/internal/app"
	"github.com/vk/stompgen/internal/cli"
	"github.com/vk/stompgen/internal/config"
)

// main is the entrypoint for the stompgen application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// The real main function handles errors and exit codes.
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(outW io.Writer, args []string) error {
	invocation, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	stompgenApp := app.New(outW, os.Stderr, invocation, nil)

	if err := stompgenApp.Run(context.Background(), invocation); err != nil {
		return classify(err)
	}
	return nil
}

// classify maps application errors onto process exit codes: configuration
// problems exit 2, everything else (generation and I/O failures) exits 3.
func classify(err error) error {
	var cfgErr *config.Error
	if errors.As(err, &cfgErr) {
		return &cli.ExitError{Code: 2, Message: err.Error()}
	}
	return &cli.ExitError{Code: 3, Message: err.Error()}
}
