// Package app wires the application together: it owns the per-instance
// logger, resolves the run configuration, and dispatches the requested
// command to the pipeline. It holds no mutable global state, so multiple App
// instances can run side by side (as the tests do).
package app
