// Package structure exposes the element-pool lookup this system consumes
// from the scientific toolchain. Structure files are opaque here: counting
// residues or atoms is delegated to an external command, and only the
// resulting element count crosses the boundary.
package structure

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/vk/stompgen/internal/config"
	"github.com/vk/stompgen/internal/ctxlog"
)

// Counter reports how many elements of the given omit type a structure file
// contains. Identifiers are the dense range [0, count).
type Counter interface {
	Count(ctx context.Context, structurePath string, omitType config.OmitType) (int, error)
}

// ExecCommandFunc builds the command to run; tests substitute it to avoid
// spawning real processes.
type ExecCommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// CommandCounter shells out to the configured counter command. The command
// is invoked as `<command> <omit_type> <structure_path>` and must print the
// element count as the first whitespace-separated token on stdout.
type CommandCounter struct {
	command     string
	execCommand ExecCommandFunc
}

// NewCommandCounter returns a Counter backed by the named external command.
func NewCommandCounter(command string) *CommandCounter {
	return &CommandCounter{
		command:     command,
		execCommand: exec.CommandContext,
	}
}

// WithExecCommand replaces the command factory. For tests.
func (c *CommandCounter) WithExecCommand(fn ExecCommandFunc) *CommandCounter {
	c.execCommand = fn
	return c
}

// Count implements Counter.
func (c *CommandCounter) Count(ctx context.Context, structurePath string, omitType config.OmitType) (int, error) {
	logger := ctxlog.FromContext(ctx)

	cmd := c.execCommand(ctx, c.command, string(omitType), structurePath)
	logger.Debug("Running element counter.", "cmd", cmd.String())
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("element counter %q failed for %s: %w", c.command, structurePath, err)
	}

	fields := strings.Fields(string(output))
	if len(fields) == 0 {
		return 0, fmt.Errorf("element counter %q printed no output for %s", c.command, structurePath)
	}
	count, err := strconv.Atoi(fields[0])
	if err != nil || count < 0 {
		return 0, fmt.Errorf("element counter %q printed %q, expected a non-negative integer", c.command, fields[0])
	}

	logger.Debug("Element pool counted.", "structure", structurePath, "omit_type", string(omitType), "count", count)
	return count, nil
}
