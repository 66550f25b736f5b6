package config

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/stompgen/internal/ctxlog"
)

// slurmTimePattern accepts the sbatch wall-time forms HH:MM:SS and D-HH:MM:SS.
var slurmTimePattern = regexp.MustCompile(`^(\d+-)?\d{1,2}:\d{2}:\d{2}$`)

// Resolve merges internal defaults, the optional configuration file and the
// dotted overrides into one validated, frozen Config. Precedence is
// overrides > file > defaults; within one layer the last write wins.
// filePath may be empty when no external file is used.
func Resolve(ctx context.Context, filePath string, overrides []string) (*Config, error) {
	logger := ctxlog.FromContext(ctx)

	layers := []layer{defaultsLayer()}

	if filePath != "" {
		fileLayer, err := loadFile(filePath)
		if err != nil {
			return nil, err
		}
		logger.Debug("Config file layer loaded.", "path", filePath)
		layers = append(layers, fileLayer)
	}

	overrideLayer, err := parseOverrides(overrides)
	if err != nil {
		return nil, err
	}
	if len(overrides) > 0 {
		logger.Debug("Override layer parsed.", "count", len(overrides))
	}
	layers = append(layers, overrideLayer)

	merged := merge(layers...)

	if err := checkRequired(merged); err != nil {
		return nil, err
	}

	cfg, err := decode(merged)
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	logger.Debug("Configuration resolved.", "run_name", cfg.Debias.RunName, "iterations", cfg.Debias.Iterations)
	return cfg, nil
}

// checkRequired confirms every schema key marked required survived the merge.
func checkRequired(merged layer) error {
	for section, keys := range schema {
		for key, spec := range keys {
			if !spec.required {
				continue
			}
			if _, ok := merged[section][key]; !ok {
				return &Error{Key: section + "." + key, Reason: "required field is missing"}
			}
		}
	}
	return nil
}

// decode binds the merged cty layer onto the typed Config structs.
func decode(merged layer) (*Config, error) {
	d := decoder{merged: merged}
	cfg := &Config{
		Debias: RunConfig{
			RunName:         d.str("debias", "run_name"),
			OmitType:        OmitType(d.str("debias", "omit_type")),
			OmitFraction:    d.float("debias", "omit_fraction"),
			Iterations:      d.integer("debias", "iterations"),
			AlwaysOmit:      d.intList("debias", "always_omit"),
			StructurePath:   d.str("debias", "structure_path"),
			ReflectionsPath: d.str("debias", "reflections_path"),
			ScreeningPath:   d.str("debias", "screening_path"),
		},
		Slurm: ResourceConfig{
			JobName:     d.str("slurm", "job_name"),
			Partition:   d.str("slurm", "partition"),
			Time:        d.str("slurm", "time"),
			MemPerCPU:   d.str("slurm", "mem_per_cpu"),
			CPUsPerTask: d.integer("slurm", "cpus_per_task"),
			NumNodes:    d.integer("slurm", "num_nodes"),
		},
		Paths: PathConfig{
			WorkDir: d.str("paths", "work_dir"),
		},
		Tools: ToolsConfig{
			CounterCommand: d.str("tools", "counter_command"),
			ComputeCommand: d.str("tools", "compute_command"),
		},
	}
	if seed, ok := merged["debias"]["seed"]; ok {
		cfg.Debias.Seed = d.toInt("debias.seed", seed)
		cfg.Debias.HasSeed = true
	}
	if d.err != nil {
		return nil, d.err
	}

	sort.Ints(cfg.Debias.AlwaysOmit)
	cfg.Debias.AlwaysOmit = dedupeSorted(cfg.Debias.AlwaysOmit)
	return cfg, nil
}

// decoder pulls typed Go values out of a merged layer, remembering the first
// failure so decode can read linearly without per-field error plumbing.
type decoder struct {
	merged layer
	err    error
}

func (d *decoder) value(section, key string) (cty.Value, bool) {
	val, ok := d.merged[section][key]
	return val, ok
}

func (d *decoder) str(section, key string) string {
	val, ok := d.value(section, key)
	if !ok {
		return ""
	}
	return val.AsString()
}

func (d *decoder) float(section, key string) float64 {
	val, ok := d.value(section, key)
	if !ok {
		return 0
	}
	f, _ := val.AsBigFloat().Float64()
	return f
}

func (d *decoder) integer(section, key string) int {
	val, ok := d.value(section, key)
	if !ok {
		return 0
	}
	return int(d.toInt(section+"."+key, val))
}

func (d *decoder) intList(section, key string) []int {
	val, ok := d.value(section, key)
	if !ok || val.LengthInt() == 0 {
		return nil
	}
	out := make([]int, 0, val.LengthInt())
	for _, elem := range val.AsValueSlice() {
		out = append(out, int(d.toInt(section+"."+key, elem)))
	}
	return out
}

// toInt rejects fractional numbers instead of truncating them: 2.5
// iterations is a configuration mistake, not a rounding opportunity.
func (d *decoder) toInt(key string, val cty.Value) int64 {
	f, _ := val.AsBigFloat().Float64()
	if f != math.Trunc(f) {
		if d.err == nil {
			d.err = &Error{Key: key, Reason: fmt.Sprintf("expected integer, got %v", f)}
		}
		return 0
	}
	return int64(f)
}

func dedupeSorted(in []int) []int {
	if len(in) < 2 {
		return in
	}
	out := in[:1]
	for _, v := range in[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

// validate cross-checks the decoded Config against its declared domains.
func validate(cfg *Config) error {
	deb := cfg.Debias
	if deb.RunName == "" {
		return &Error{Key: "debias.run_name", Reason: "must be a non-empty string"}
	}
	if deb.OmitType != OmitAminoAcids && deb.OmitType != OmitAtoms {
		return &Error{Key: "debias.omit_type", Reason: fmt.Sprintf("must be %q or %q, got %q", OmitAminoAcids, OmitAtoms, deb.OmitType)}
	}
	if deb.OmitFraction < 0 || deb.OmitFraction > 1 {
		return &Error{Key: "debias.omit_fraction", Reason: fmt.Sprintf("must be within [0, 1], got %v", deb.OmitFraction)}
	}
	if deb.Iterations < 1 {
		return &Error{Key: "debias.iterations", Reason: fmt.Sprintf("must be >= 1, got %d", deb.Iterations)}
	}
	for _, id := range deb.AlwaysOmit {
		if id < 0 {
			return &Error{Key: "debias.always_omit", Reason: fmt.Sprintf("element identifiers must be >= 0, got %d", id)}
		}
	}

	// Input rule: a screening file for batch runs, or both explicit input
	// paths for a single-structure run.
	hasManual := deb.StructurePath != "" && deb.ReflectionsPath != ""
	hasScreening := deb.ScreeningPath != ""
	if !hasManual && !hasScreening {
		return &Error{Reason: "missing input data: set either debias.screening_path, or both debias.structure_path and debias.reflections_path"}
	}

	res := cfg.Slurm
	if res.JobName == "" {
		return &Error{Key: "slurm.job_name", Reason: "must be a non-empty string"}
	}
	if res.Partition == "" {
		return &Error{Key: "slurm.partition", Reason: "must be a non-empty string"}
	}
	if !slurmTimePattern.MatchString(res.Time) {
		return &Error{Key: "slurm.time", Reason: fmt.Sprintf("must match HH:MM:SS or D-HH:MM:SS, got %q", res.Time)}
	}
	if res.MemPerCPU == "" {
		return &Error{Key: "slurm.mem_per_cpu", Reason: "must be a non-empty string"}
	}
	if res.CPUsPerTask < 1 {
		return &Error{Key: "slurm.cpus_per_task", Reason: fmt.Sprintf("must be >= 1, got %d", res.CPUsPerTask)}
	}
	if res.NumNodes < 1 {
		return &Error{Key: "slurm.num_nodes", Reason: fmt.Sprintf("must be >= 1, got %d", res.NumNodes)}
	}

	if cfg.Paths.WorkDir == "" {
		return &Error{Key: "paths.work_dir", Reason: "must be a non-empty string"}
	}
	if cfg.Tools.CounterCommand == "" {
		return &Error{Key: "tools.counter_command", Reason: "must be a non-empty string"}
	}
	if cfg.Tools.ComputeCommand == "" {
		return &Error{Key: "tools.compute_command", Reason: "must be a non-empty string"}
	}
	return nil
}
