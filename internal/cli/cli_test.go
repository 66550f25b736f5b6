package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/stompgen/internal/app"
)

func TestParse_NoArgsShowsUsage(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	out := &bytes.Buffer{}

	// --- Act ---
	invocation, shouldExit, err := Parse(nil, out)

	// --- Assert ---
	require.NoError(t, err)
	require.True(t, shouldExit, "no arguments should request a clean exit")
	require.Nil(t, invocation)
	require.Contains(t, out.String(), "Usage:")
}

func TestParse_UnknownCommand(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	out := &bytes.Buffer{}

	// --- Act ---
	_, _, err := Parse([]string{"frobnicate"}, out)

	// --- Assert ---
	require.Error(t, err)
	exitErr, ok := err.(*ExitError)
	require.True(t, ok, "command errors should carry an exit code")
	require.Equal(t, 2, exitErr.Code)
	require.Contains(t, exitErr.Message, "frobnicate")
}

func TestParse_FlagsBecomeTypedOverrides(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	out := &bytes.Buffer{}
	args := []string{
		"generate",
		"-run-name", "lyso_run",
		"-omit-fraction", "0.25",
		"-work-dir", "/scratch/runs",
	}

	// --- Act ---
	invocation, shouldExit, err := Parse(args, out)

	// --- Assert ---
	require.NoError(t, err)
	require.False(t, shouldExit)
	require.Equal(t, app.CommandGenerate, invocation.Command)
	require.Contains(t, invocation.Overrides, "debias.run_name=lyso_run")
	require.Contains(t, invocation.Overrides, "debias.omit_fraction=0.25")
	require.Contains(t, invocation.Overrides, "paths.work_dir=/scratch/runs")
}

func TestParse_FlagBeatsSetForTheSameKey(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// A --set entry and a parameter flag target the same key. The flag must
	// land later in the override list so that it wins during resolution.
	out := &bytes.Buffer{}
	args := []string{
		"resolve",
		"-set", "debias.omit_fraction=0.9",
		"-omit-fraction", "0.2",
	}

	// --- Act ---
	invocation, _, err := Parse(args, out)

	// --- Assert ---
	require.NoError(t, err)
	setIdx, flagIdx := -1, -1
	for i, ov := range invocation.Overrides {
		switch ov {
		case "debias.omit_fraction=0.9":
			setIdx = i
		case "debias.omit_fraction=0.2":
			flagIdx = i
		}
	}
	require.GreaterOrEqual(t, setIdx, 0, "the --set entry should be present")
	require.Greater(t, flagIdx, setIdx, "the parameter flag should come after the --set entry")
}

func TestParse_RunNameAlsoSetsJobName(t *testing.T) {
	t.Parallel()

	t.Run("without explicit job name", func(t *testing.T) {
		t.Parallel()

		// --- Arrange ---
		out := &bytes.Buffer{}

		// --- Act ---
		invocation, _, err := Parse([]string{"resolve", "-run-name", "demo"}, out)

		// --- Assert ---
		require.NoError(t, err)
		require.Contains(t, invocation.Overrides, "slurm.job_name=demo")
	})

	t.Run("explicit job name wins", func(t *testing.T) {
		t.Parallel()

		// --- Arrange ---
		out := &bytes.Buffer{}
		args := []string{"resolve", "-run-name", "demo", "-job-name", "custom"}

		// --- Act ---
		invocation, _, err := Parse(args, out)

		// --- Assert ---
		require.NoError(t, err)
		require.Contains(t, invocation.Overrides, "slurm.job_name=custom")
		require.NotContains(t, invocation.Overrides, "slurm.job_name=demo")
	})
}

func TestParse_InvalidLogFlags(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		args []string
	}{
		{name: "bad log level", args: []string{"resolve", "-log-level", "verbose"}},
		{name: "bad log format", args: []string{"resolve", "-log-format", "xml"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Act ---
			_, _, err := Parse(tc.args, &bytes.Buffer{})

			// --- Assert ---
			require.Error(t, err)
			exitErr, ok := err.(*ExitError)
			require.True(t, ok)
			require.Equal(t, 2, exitErr.Code)
		})
	}
}

func TestParse_HelpFlagExitsCleanly(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	out := &bytes.Buffer{}

	// --- Act ---
	invocation, shouldExit, err := Parse([]string{"generate", "-h"}, out)

	// --- Assert ---
	require.NoError(t, err)
	require.True(t, shouldExit)
	require.Nil(t, invocation)
}
