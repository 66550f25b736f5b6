package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/vk/stompgen/internal/config"
	"github.com/vk/stompgen/internal/ctxlog"
	"github.com/vk/stompgen/internal/fsutil"
	"github.com/vk/stompgen/internal/omit"
	"github.com/vk/stompgen/internal/screening"
	"github.com/vk/stompgen/internal/slurm"
	"github.com/vk/stompgen/internal/structure"
)

// refinedStructureName is the output artifact each iteration's external
// computation leaves behind; iteration i+1 consumes it as its structure
// input.
const refinedStructureName = "refined.pdb"

// Pipeline drives one run end to end. It holds only immutable state: the
// frozen configuration and the pool-counting collaborator.
type Pipeline struct {
	cfg     *config.Config
	counter structure.Counter
}

// New assembles a pipeline for the given resolved configuration.
func New(cfg *config.Config, counter structure.Counter) *Pipeline {
	return &Pipeline{cfg: cfg, counter: counter}
}

// crystal is one structure/reflections pair the run covers. Batch runs place
// each crystal in its own subdirectory under the run directory.
type crystal struct {
	id              string
	structurePath   string
	reflectionsPath string
	dir             string
}

// Run resolves the crystal set and generates every iteration's artifacts.
// Artifacts live under work_dir/run_name/; concurrent runs with distinct run
// names never touch the same files.
func (p *Pipeline) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	runDir := filepath.Join(p.cfg.Paths.WorkDir, p.cfg.Debias.RunName)
	if err := fsutil.EnsureDir(runDir); err != nil {
		return err
	}

	snapshot := p.cfg.Snapshot()
	if err := writeFile(filepath.Join(runDir, "resolved_config.hcl"), snapshot, 0o644); err != nil {
		return err
	}

	crystals, err := p.crystals(ctx, runDir)
	if err != nil {
		return err
	}
	logger.Info("Run prepared.", "run_name", p.cfg.Debias.RunName, "crystals", len(crystals), "iterations", p.cfg.Debias.Iterations)

	// Warnings are per-run conditions; every crystal of a batch reports the
	// same waived guarantee, so duplicates are dropped.
	var warnings []string
	seen := make(map[string]struct{})
	for _, c := range crystals {
		crystalWarnings, err := p.generateCrystal(ctx, c, snapshot)
		for _, w := range crystalWarnings {
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			warnings = append(warnings, w)
		}
		if err != nil {
			return fmt.Errorf("crystal %s: %w", c.id, err)
		}
	}

	if len(warnings) > 0 {
		if err := writeWarnings(filepath.Join(runDir, "warnings.yaml"), warnings); err != nil {
			return err
		}
		for _, w := range warnings {
			logger.Warn(w)
		}
	}

	logger.Info("Run artifacts written.", "dir", runDir)
	return nil
}

// crystals expands the configured inputs into the crystal set: a single
// explicit pair, or the contents of a screening file.
func (p *Pipeline) crystals(ctx context.Context, runDir string) ([]crystal, error) {
	deb := p.cfg.Debias

	if deb.StructurePath != "" && deb.ReflectionsPath != "" {
		return []crystal{{
			id:              stem(deb.StructurePath),
			structurePath:   deb.StructurePath,
			reflectionsPath: deb.ReflectionsPath,
			dir:             runDir,
		}}, nil
	}

	entries, err := screening.Load(ctx, deb.ScreeningPath)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("screening file %s yielded no usable datasets", deb.ScreeningPath)
	}

	crystals := make([]crystal, 0, len(entries))
	for _, entry := range entries {
		crystals = append(crystals, crystal{
			id:              entry.ID,
			structurePath:   entry.StructurePath,
			reflectionsPath: entry.ReflectionsPath,
			dir:             filepath.Join(runDir, entry.ID),
		})
	}
	return crystals, nil
}

// generateCrystal produces masks and scripts for every iteration of one
// crystal, in increasing index order.
func (p *Pipeline) generateCrystal(ctx context.Context, c crystal, snapshot []byte) ([]string, error) {
	logger := ctxlog.FromContext(ctx)

	poolSize, err := p.counter.Count(ctx, c.structurePath, p.cfg.Debias.OmitType)
	if err != nil {
		return nil, err
	}

	result, err := omit.Generate(poolSize, p.cfg.Debias)
	if err != nil {
		return nil, err
	}

	var scriptPaths []string
	previousJobRef := ""
	structureIn := c.structurePath

	for i, mask := range result.Masks {
		iterDir := filepath.Join(c.dir, fmt.Sprintf("iteration_%d", i))
		if err := fsutil.EnsureDir(iterDir); err != nil {
			return result.Warnings, fmt.Errorf("iteration %d: %w", i, err)
		}

		maskPath := filepath.Join(iterDir, "mask.yaml")
		if err := writeMask(maskPath, p.cfg.Debias.OmitType, mask); err != nil {
			return result.Warnings, fmt.Errorf("iteration %d: %w", i, err)
		}

		if err := writeFile(filepath.Join(iterDir, "resolved_config.hcl"), snapshot, 0o644); err != nil {
			return result.Warnings, fmt.Errorf("iteration %d: %w", i, err)
		}

		script, err := slurm.Render(slurm.RenderInput{
			Iteration:       i,
			WorkDir:         iterDir,
			StructurePath:   structureIn,
			ReflectionsPath: c.reflectionsPath,
			MaskPath:        maskPath,
			PreviousJobRef:  previousJobRef,
			Resources:       p.cfg.Slurm,
			ComputeCommand:  p.cfg.Tools.ComputeCommand,
		})
		if err != nil {
			return result.Warnings, fmt.Errorf("iteration %d: %w", i, err)
		}

		scriptPath := filepath.Join(iterDir, "submit.slurm")
		if err := writeFile(scriptPath, script.Content, 0o755); err != nil {
			return result.Warnings, fmt.Errorf("iteration %d: %w", i, err)
		}

		scriptPaths = append(scriptPaths, scriptPath)
		previousJobRef = script.JobRef
		structureIn = filepath.Join(iterDir, refinedStructureName)
		logger.Debug("Iteration artifacts written.", "crystal", c.id, "iteration", i, "mask_size", len(mask.Elements))
	}

	if err := writeSubmitChain(filepath.Join(c.dir, "submit_all.sh"), scriptPaths); err != nil {
		return result.Warnings, err
	}
	return result.Warnings, nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
