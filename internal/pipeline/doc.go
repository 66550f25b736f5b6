// Package pipeline sequences one debiasing run: configuration is already
// resolved by the caller, then crystals are determined, the element pool is
// counted, omission masks are generated for every iteration, and job scripts
// plus their companion artifacts are written strictly in increasing
// iteration order. Each script for i > 0 references iteration i-1's output
// path and job reference, so the ordering of script content is a correctness
// requirement. On failure the pipeline halts and leaves artifacts of earlier
// iterations intact.
package pipeline
