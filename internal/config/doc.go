// Package config resolves a single run description from three layered
// sources: internal defaults, an optional configuration file (HCL or YAML),
// and dotted-path overrides. Every layer is represented as typed cty values
// validated against a declared schema, so a malformed value fails loudly at
// resolution time instead of silently falling back to a default.
//
// The resolved Config is a frozen value: nothing downstream mutates it, and
// changing any parameter requires a fresh Resolve call.
package config
