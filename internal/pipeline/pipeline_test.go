package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/vk/stompgen/internal/config"
	"github.com/vk/stompgen/internal/slurm"
)

// staticCounter returns a fixed pool size without consulting any structure
// file.
type staticCounter struct {
	size int
}

func (c staticCounter) Count(ctx context.Context, structurePath string, omitType config.OmitType) (int, error) {
	return c.size, nil
}

func testConfig(workDir string) *config.Config {
	return &config.Config{
		Debias: config.RunConfig{
			RunName:         "test_run",
			OmitType:        config.OmitAminoAcids,
			OmitFraction:    0.1,
			Iterations:      3,
			Seed:            42,
			HasSeed:         true,
			StructurePath:   "/in/model.pdb",
			ReflectionsPath: "/in/data.mtz",
		},
		Slurm: config.ResourceConfig{
			JobName:     "test_run",
			Partition:   "cs05r",
			Time:        "10-00:00:00",
			MemPerCPU:   "1024",
			CPUsPerTask: 1,
			NumNodes:    1,
		},
		Paths: config.PathConfig{WorkDir: workDir},
		Tools: config.ToolsConfig{
			CounterCommand: "stomp_pool_count",
			ComputeCommand: "phenix.composite_omit_map",
		},
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRun_SingleCrystalLayout(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()
	cfg := testConfig(workDir)

	err := New(cfg, staticCounter{size: 100}).Run(context.Background())
	require.NoError(t, err)

	runDir := filepath.Join(workDir, "test_run")
	require.FileExists(t, filepath.Join(runDir, "resolved_config.hcl"))
	require.FileExists(t, filepath.Join(runDir, "submit_all.sh"))
	require.NoFileExists(t, filepath.Join(runDir, "warnings.yaml"), "a seeded run must not warn")

	for i := 0; i < 3; i++ {
		iterDir := filepath.Join(runDir, fmt.Sprintf("iteration_%d", i))
		require.FileExists(t, filepath.Join(iterDir, "submit.slurm"))
		require.FileExists(t, filepath.Join(iterDir, "mask.yaml"))
		require.FileExists(t, filepath.Join(iterDir, "resolved_config.hcl"))

		var mask struct {
			Iteration int    `yaml:"iteration"`
			OmitType  string `yaml:"omit_type"`
			Elements  []int  `yaml:"elements"`
		}
		require.NoError(t, yaml.Unmarshal([]byte(readFile(t, filepath.Join(iterDir, "mask.yaml"))), &mask))
		require.Equal(t, i, mask.Iteration)
		require.Equal(t, "amino_acids", mask.OmitType)
		require.Len(t, mask.Elements, 10, "round(0.1 * 100) elements per mask")
	}
}

func TestRun_DependencyAndPathChaining(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()
	err := New(testConfig(workDir), staticCounter{size: 50}).Run(context.Background())
	require.NoError(t, err)

	runDir := filepath.Join(workDir, "test_run")

	script0 := readFile(t, filepath.Join(runDir, "iteration_0", "submit.slurm"))
	require.NotContains(t, script0, "--dependency")
	require.Contains(t, script0, `"/in/model.pdb"`)

	script1 := readFile(t, filepath.Join(runDir, "iteration_1", "submit.slurm"))
	require.Contains(t, script1, "#SBATCH --dependency=afterok:"+slurm.JobRef(0))
	require.Contains(t, script1, filepath.Join(runDir, "iteration_0", "refined.pdb"))

	script2 := readFile(t, filepath.Join(runDir, "iteration_2", "submit.slurm"))
	require.Contains(t, script2, "#SBATCH --dependency=afterok:"+slurm.JobRef(1))
	require.Contains(t, script2, filepath.Join(runDir, "iteration_1", "refined.pdb"))

	chain := readFile(t, filepath.Join(runDir, "submit_all.sh"))
	require.Equal(t, 2, strings.Count(chain, "--dependency=afterok:${jid}"))
}

func TestRun_MasksReproducibleAcrossRuns(t *testing.T) {
	t.Parallel()

	firstDir, secondDir := t.TempDir(), t.TempDir()
	require.NoError(t, New(testConfig(firstDir), staticCounter{size: 100}).Run(context.Background()))
	require.NoError(t, New(testConfig(secondDir), staticCounter{size: 100}).Run(context.Background()))

	for i := 0; i < 3; i++ {
		iter := filepath.Join("test_run", fmt.Sprintf("iteration_%d", i), "mask.yaml")
		require.Equal(t,
			readFile(t, filepath.Join(firstDir, iter)),
			readFile(t, filepath.Join(secondDir, iter)),
			"iteration %d mask must be byte-identical for identical inputs", i)
	}
}

func TestRun_MissingSeedWritesWarningsArtifact(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()
	cfg := testConfig(workDir)
	cfg.Debias.HasSeed = false
	cfg.Debias.Seed = 0

	require.NoError(t, New(cfg, staticCounter{size: 100}).Run(context.Background()))

	warnings := readFile(t, filepath.Join(workDir, "test_run", "warnings.yaml"))
	require.Contains(t, warnings, "not reproducible")
}

func TestRun_BatchWarnsOnceAboutMissingSeed(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()
	screenPath := filepath.Join(workDir, "screen.csv")
	screenCSV := "PDB,MTZ\n/data/x0001.pdb,/data/x0001.mtz\n/data/x0002.pdb,/data/x0002.mtz\n"
	require.NoError(t, os.WriteFile(screenPath, []byte(screenCSV), 0o644))

	cfg := testConfig(workDir)
	cfg.Debias.HasSeed = false
	cfg.Debias.Seed = 0
	cfg.Debias.StructurePath = ""
	cfg.Debias.ReflectionsPath = ""
	cfg.Debias.ScreeningPath = screenPath

	require.NoError(t, New(cfg, staticCounter{size: 40}).Run(context.Background()))

	var artifact struct {
		Warnings []string `yaml:"warnings"`
	}
	raw := readFile(t, filepath.Join(workDir, "test_run", "warnings.yaml"))
	require.NoError(t, yaml.Unmarshal([]byte(raw), &artifact))
	require.Len(t, artifact.Warnings, 1, "the waived guarantee applies to the run, not to each crystal")
	require.Contains(t, artifact.Warnings[0], "not reproducible")
}

func TestRun_HaltsMidSequenceKeepingEarlierArtifacts(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()
	cfg := testConfig(workDir)

	// A regular file where iteration_1's directory must go forces an I/O
	// failure after iteration 0 completed.
	runDir := filepath.Join(workDir, "test_run")
	require.NoError(t, os.MkdirAll(runDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(runDir, "iteration_1"), []byte("in the way"), 0o644))

	err := New(cfg, staticCounter{size: 100}).Run(context.Background())
	require.Error(t, err)
	require.ErrorContains(t, err, "iteration 1")

	// Iteration 0's artifacts survive the halt.
	require.FileExists(t, filepath.Join(runDir, "iteration_0", "submit.slurm"))
	require.FileExists(t, filepath.Join(runDir, "iteration_0", "mask.yaml"))
	require.NoFileExists(t, filepath.Join(runDir, "iteration_2", "submit.slurm"))
}

func TestRun_ScreeningBatchLayout(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()
	screenPath := filepath.Join(workDir, "screen.csv")
	screenCSV := "PDB,MTZ\n/data/x0001.pdb,/data/x0001.mtz\n/data/x0002.pdb,/data/x0002.mtz\n"
	require.NoError(t, os.WriteFile(screenPath, []byte(screenCSV), 0o644))

	cfg := testConfig(workDir)
	cfg.Debias.StructurePath = ""
	cfg.Debias.ReflectionsPath = ""
	cfg.Debias.ScreeningPath = screenPath

	require.NoError(t, New(cfg, staticCounter{size: 40}).Run(context.Background()))

	runDir := filepath.Join(workDir, "test_run")
	for _, id := range []string{"x0001", "x0002"} {
		require.FileExists(t, filepath.Join(runDir, id, "submit_all.sh"))
		require.FileExists(t, filepath.Join(runDir, id, "iteration_0", "submit.slurm"))
		require.FileExists(t, filepath.Join(runDir, id, "iteration_2", "mask.yaml"))
	}
}
