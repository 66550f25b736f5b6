package pipeline

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vk/stompgen/internal/config"
	"github.com/vk/stompgen/internal/omit"
)

// maskArtifact is the on-disk form of one omission mask. The job script
// references this file by path; mask contents are never inlined into the
// script.
type maskArtifact struct {
	Iteration int    `yaml:"iteration"`
	OmitType  string `yaml:"omit_type"`
	Elements  []int  `yaml:"elements"`
}

func writeMask(path string, omitType config.OmitType, mask omit.Mask) error {
	elements := mask.Elements
	if elements == nil {
		elements = []int{}
	}
	data, err := yaml.Marshal(maskArtifact{
		Iteration: mask.Iteration,
		OmitType:  string(omitType),
		Elements:  elements,
	})
	if err != nil {
		return fmt.Errorf("failed to serialize mask: %w", err)
	}
	return writeFile(path, data, 0o644)
}

// writeWarnings persists non-fatal conditions (like a waived reproducibility
// guarantee) next to the run's other artifacts.
func writeWarnings(path string, warnings []string) error {
	data, err := yaml.Marshal(struct {
		Warnings []string `yaml:"warnings"`
	}{Warnings: warnings})
	if err != nil {
		return fmt.Errorf("failed to serialize warnings: %w", err)
	}
	return writeFile(path, data, 0o644)
}

// writeSubmitChain emits a helper that submits every iteration's script in
// order, wiring each job after its predecessor with --dependency. The
// command-line dependency takes precedence over the placeholder directive
// inside the scripts.
func writeSubmitChain(path string, scriptPaths []string) error {
	var buf bytes.Buffer
	buf.WriteString("#!/bin/bash\nset -euo pipefail\n\n")
	for i, scriptPath := range scriptPaths {
		if i == 0 {
			fmt.Fprintf(&buf, "jid=$(sbatch --parsable %q)\n", scriptPath)
		} else {
			fmt.Fprintf(&buf, "jid=$(sbatch --parsable --dependency=afterok:${jid} %q)\n", scriptPath)
		}
		fmt.Fprintf(&buf, "echo \"submitted iteration %d: job ${jid}\"\n", i)
	}
	return writeFile(path, buf.Bytes(), 0o755)
}

func writeFile(path string, data []byte, perm os.FileMode) error {
	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
