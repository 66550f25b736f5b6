package slurm

import (
	"bytes"
	"fmt"
	"strconv"
	"text/template"

	"github.com/vk/stompgen/internal/config"
)

// scriptTemplate is the sbatch script for one iteration. All numeric fields
// arrive pre-formatted as strings so the rendered text is byte-identical
// across runs with identical inputs. The dependency directive carries a
// placeholder job reference; at submission time the submit chain passes the
// real id via `sbatch --dependency`, which takes precedence over the
// directive.
var scriptTemplate = template.Must(template.New("sbatch").Parse(`#!/bin/bash
#SBATCH --job-name={{.JobName}}
#SBATCH --partition={{.Partition}}
#SBATCH --nodes={{.NumNodes}}
#SBATCH --cpus-per-task={{.CPUsPerTask}}
#SBATCH --mem-per-cpu={{.MemPerCPU}}
#SBATCH --time={{.Time}}
#SBATCH --output=%x_%j.out
#SBATCH --error=%x_%j.err
{{- if .PreviousJobRef}}
#SBATCH --dependency=afterok:{{.PreviousJobRef}}
{{- end}}

module load phenix

cd "{{.WorkDir}}"
{{.ComputeCommand}} "{{.StructurePath}}" "{{.ReflectionsPath}}" omit_selection="{{.MaskPath}}"
`))

// Script is one rendered iteration job.
type Script struct {
	Iteration int
	// JobRef is the placeholder token by which the next iteration's script
	// refers to this job.
	JobRef  string
	Content []byte
}

// RenderInput collects everything one script render needs. The mask is
// referenced by path only, never inlined.
type RenderInput struct {
	Iteration       int
	WorkDir         string
	StructurePath   string
	ReflectionsPath string
	MaskPath        string
	// PreviousJobRef chains this job after iteration i-1. Must be empty for
	// iteration 0 and non-empty otherwise.
	PreviousJobRef string
	Resources      config.ResourceConfig
	ComputeCommand string
}

// Render produces the job script for one iteration.
func Render(in RenderInput) (*Script, error) {
	if in.Iteration < 0 {
		return nil, fmt.Errorf("iteration index must be >= 0, got %d", in.Iteration)
	}
	if in.Iteration == 0 && in.PreviousJobRef != "" {
		return nil, fmt.Errorf("iteration 0 must not declare a dependency")
	}
	if in.Iteration > 0 && in.PreviousJobRef == "" {
		return nil, fmt.Errorf("iteration %d requires the previous iteration's job reference", in.Iteration)
	}

	data := struct {
		JobName         string
		Partition       string
		NumNodes        string
		CPUsPerTask     string
		MemPerCPU       string
		Time            string
		PreviousJobRef  string
		WorkDir         string
		ComputeCommand  string
		StructurePath   string
		ReflectionsPath string
		MaskPath        string
	}{
		JobName:         fmt.Sprintf("%s_%d", in.Resources.JobName, in.Iteration),
		Partition:       in.Resources.Partition,
		NumNodes:        strconv.Itoa(in.Resources.NumNodes),
		CPUsPerTask:     strconv.Itoa(in.Resources.CPUsPerTask),
		MemPerCPU:       in.Resources.MemPerCPU,
		Time:            in.Resources.Time,
		PreviousJobRef:  in.PreviousJobRef,
		WorkDir:         in.WorkDir,
		ComputeCommand:  in.ComputeCommand,
		StructurePath:   in.StructurePath,
		ReflectionsPath: in.ReflectionsPath,
		MaskPath:        in.MaskPath,
	}

	var buf bytes.Buffer
	if err := scriptTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render job script for iteration %d: %w", in.Iteration, err)
	}

	return &Script{
		Iteration: in.Iteration,
		JobRef:    JobRef(in.Iteration),
		Content:   buf.Bytes(),
	}, nil
}

// JobRef returns the placeholder token standing in for the scheduler job id
// of the given iteration.
func JobRef(iteration int) string {
	return fmt.Sprintf("__STOMP_JOB_%d__", iteration)
}
