// Package testutil provides shared helpers for integration tests: a
// thread-safe log buffer, a fixed-count element counter, and a harness that
// runs a full command against a temporary working directory.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/stompgen/internal/app"
	"github.com/vk/stompgen/internal/config"
	"github.com/vk/stompgen/internal/structure"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// StaticCounter is a structure.Counter that always reports N elements,
// keeping integration tests independent of any external toolchain.
type StaticCounter struct {
	N int
}

// Count implements structure.Counter.
func (c StaticCounter) Count(_ context.Context, _ string, _ config.OmitType) (int, error) {
	return c.N, nil
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	Stdout    string
	LogOutput string
	Err       error
	// WorkDir is the temporary directory the run wrote its artifacts into.
	WorkDir string
}

// RunCommand runs one full command through the application: it writes the
// given files into a temporary directory, points paths.work_dir at a fresh
// subdirectory, and executes the command with the provided counter.
//
// Relative paths in `files` are created beneath the temporary directory. The
// token __TMPDIR__ in file contents and overrides expands to that directory,
// so configs can reference sibling test files by absolute path. A file named
// run.hcl or run.yaml becomes the command's config file.
func RunCommand(t *testing.T, command string, files map[string]string, overrides []string, counter structure.Counter) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	workDir := filepath.Join(tmpDir, "work")
	require.NoError(t, os.Mkdir(workDir, 0o755))

	configFile := ""
	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		content = strings.ReplaceAll(content, "__TMPDIR__", tmpDir)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))
		if name == "run.hcl" || name == "run.yaml" {
			configFile = filePath
		}
	}

	expanded := make([]string, 0, len(overrides)+1)
	for _, ov := range overrides {
		expanded = append(expanded, strings.ReplaceAll(ov, "__TMPDIR__", tmpDir))
	}
	expanded = append(expanded, "paths.work_dir="+workDir)

	invocation, err := app.NewConfig(app.Config{
		Command:    command,
		ConfigFile: configFile,
		Overrides:  expanded,
		LogFormat:  "text",
		LogLevel:   "debug",
	})
	require.NoError(t, err)

	stdout := &bytes.Buffer{}
	logBuffer := &SafeBuffer{}
	testApp := app.New(stdout, logBuffer, invocation, counter)

	runErr := testApp.Run(context.Background(), invocation)

	if os.Getenv("STOMPGEN_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}

	return &HarnessResult{
		Stdout:    stdout.String(),
		LogOutput: logBuffer.String(),
		Err:       runErr,
		WorkDir:   workDir,
	}
}
