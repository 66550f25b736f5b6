// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level concerns like exit codes. It
// translates CLI flags into typed configuration overrides; the flags
// themselves carry no typing, so a flag value goes through exactly the same
// schema coercion as a --set entry or a config-file value.
package cli
