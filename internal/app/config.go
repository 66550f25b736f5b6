package app

import "fmt"

// Commands understood by Run.
const (
	CommandResolve  = "resolve"
	CommandGenerate = "generate"
)

// Config holds one CLI invocation: which command to run and where the
// configuration layers come from. It is distinct from the resolved run
// configuration, which config.Resolve produces from these inputs.
type Config struct {
	Command    string
	ConfigFile string
	// Overrides are typed "section.key=value" entries, applied after the
	// file layer.
	Overrides []string

	LogFormat string
	LogLevel  string
}

// NewConfig validates an invocation config.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.Command != CommandResolve && cfg.Command != CommandGenerate {
		return nil, fmt.Errorf("unknown command %q (want %q or %q)", cfg.Command, CommandResolve, CommandGenerate)
	}
	return &cfg, nil
}
