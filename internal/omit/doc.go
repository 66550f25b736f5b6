// Package omit deterministically decides which structural elements are
// excluded from the model at each refinement iteration. Iterations are
// independent samples from the same base pool: an element may recur across
// iterations, trading monotonic exclusion for per-iteration statistical
// independence.
package omit
