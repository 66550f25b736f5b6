package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/vk/stompgen/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
// Code 2 marks configuration errors, code 3 generation or I/O errors.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// flagToKey maps each parameter flag onto its configuration key. Every flag
// value becomes a typed override, so precedence and coercion are identical
// to a --set entry.
var flagToKey = map[string]string{
	"run-name":         "debias.run_name",
	"omit-type":        "debias.omit_type",
	"omit-fraction":    "debias.omit_fraction",
	"iterations":       "debias.iterations",
	"always-omit":      "debias.always_omit",
	"seed":             "debias.seed",
	"structure-path":   "debias.structure_path",
	"reflections-path": "debias.reflections_path",
	"screening-path":   "debias.screening_path",
	"work-dir":         "paths.work_dir",
	"job-name":         "slurm.job_name",
	"partition":        "slurm.partition",
	"time":             "slurm.time",
	"mem-per-cpu":      "slurm.mem_per_cpu",
	"cpus-per-task":    "slurm.cpus_per_task",
	"num-nodes":        "slurm.num_nodes",
	"counter-command":  "tools.counter_command",
	"compute-command":  "tools.compute_command",
}

// flagHelp keeps the usage text for parameter flags in one place.
var flagHelp = map[string]string{
	"run-name":         "Run name; also used as the SLURM job name unless -job-name is given.",
	"omit-type":        "Type of model elements to omit: 'amino_acids' or 'atoms'.",
	"omit-fraction":    "Fraction of the element pool to omit per iteration, within [0, 1].",
	"iterations":       "Number of omission iterations (>= 1).",
	"always-omit":      "Comma-separated element identifiers forced into every mask, e.g. '3,17'.",
	"seed":             "Random seed for reproducible masks. Omitting it waives reproducibility.",
	"structure-path":   "Input structure file (PDB/mmCIF), opaque to this tool.",
	"reflections-path": "Input reflections file (MTZ), opaque to this tool.",
	"screening-path":   "Screening file for batch runs: CSV with PDB/MTZ columns, or a SoakDB .sqlite.",
	"work-dir":         "Directory root for all run artifacts.",
	"job-name":         "SLURM job name.",
	"partition":        "SLURM partition.",
	"time":             "SLURM wall time, HH:MM:SS or D-HH:MM:SS.",
	"mem-per-cpu":      "SLURM memory per CPU.",
	"cpus-per-task":    "SLURM CPUs per task (>= 1).",
	"num-nodes":        "Number of nodes per job (>= 1).",
	"counter-command":  "External command used to count structure elements.",
	"compute-command":  "External computation command invoked by the generated scripts.",
}

// multiFlag collects repeated occurrences of one flag.
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }

func (m *multiFlag) Set(value string) error {
	*m = append(*m, value)
	return nil
}

func usage(output io.Writer) {
	fmt.Fprint(output, `
stompgen - prepares reproducible, resource-aware debiasing runs for a SLURM cluster.

Usage:
  stompgen <command> [options]

Commands:
  resolve
    Resolve defaults, config file and overrides into one effective
    configuration and print it.
  generate
    Resolve the configuration and write job scripts, omission masks and a
    configuration snapshot into the run's working directory.

Run 'stompgen <command> -h' for the command's options.
`)
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	if len(args) == 0 {
		usage(output)
		return nil, true, nil
	}

	command := args[0]
	switch command {
	case "-h", "--help", "help":
		usage(output)
		return nil, true, nil
	case app.CommandResolve, app.CommandGenerate:
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unknown command %q, want 'resolve' or 'generate'", command)}
	}

	flagSet := flag.NewFlagSet("stompgen "+command, flag.ContinueOnError)
	flagSet.SetOutput(output)

	configFileFlag := flagSet.String("config-file", "", "Path to an external config file (.hcl, .yaml or .yml).")
	var setFlags multiFlag
	flagSet.Var(&setFlags, "set", "Typed override 'section.key=value'. Repeatable; later entries win.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	for name := range flagToKey {
		flagSet.String(name, "", flagHelp[name])
	}

	if err := flagSet.Parse(args[1:]); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	// --set entries first, then parameter flags, so an explicit flag beats a
	// --set for the same key. Visit walks flags in lexical order, which keeps
	// the translation deterministic.
	overrides := append([]string{}, setFlags...)
	seen := make(map[string]string)
	flagSet.Visit(func(f *flag.Flag) {
		if key, ok := flagToKey[f.Name]; ok {
			seen[f.Name] = f.Value.String()
			overrides = append(overrides, key+"="+f.Value.String())
		}
	})
	// The run name doubles as the job name, as in interactive use the two
	// should rarely diverge.
	if runName, ok := seen["run-name"]; ok {
		if _, jobNameSet := seen["job-name"]; !jobNameSet {
			overrides = append(overrides, "slurm.job_name="+runName)
		}
	}

	invocation, err := app.NewConfig(app.Config{
		Command:    command,
		ConfigFile: *configFileFlag,
		Overrides:  overrides,
		LogFormat:  logFormat,
		LogLevel:   logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	return invocation, false, nil
}
