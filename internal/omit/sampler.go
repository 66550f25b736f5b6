package omit

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	mathrand "math/rand/v2"
	"sort"

	"github.com/vk/stompgen/internal/config"
)

// Mask is the set of element identifiers omitted from the model at one
// iteration. Elements are sorted ascending and never mutated after creation.
type Mask struct {
	Iteration int   `yaml:"iteration"`
	Elements  []int `yaml:"elements"`
}

// SamplingError reports an omission request that cannot be satisfied by the
// element pool. It is fatal for the run.
type SamplingError struct {
	Reason string
}

// Error implements the error interface.
func (e *SamplingError) Error() string {
	return "sampling error: " + e.Reason
}

// Result carries the generated masks plus any non-fatal conditions the
// caller must surface (never suppress) as run artifacts.
type Result struct {
	Masks    []Mask
	Warnings []string
}

// Generate produces one mask per iteration for a pool of poolSize element
// identifiers [0, poolSize).
//
// Each iteration gets its own pseudo-random generator: a PCG seeded with the
// pair (run seed, iteration index). That keeps every iteration reproducible
// in isolation, independent of generation order, and never touches shared
// global entropy. When the run
// has no seed, each generator is seeded from crypto/rand and the waived
// reproducibility is reported through Result.Warnings.
//
// The sample size is round(omit_fraction * |base pool|) with halves rounded
// up, where the base pool is [0, poolSize) minus always_omit.
func Generate(poolSize int, cfg config.RunConfig) (*Result, error) {
	if poolSize < 0 {
		return nil, &SamplingError{Reason: fmt.Sprintf("pool size must be >= 0, got %d", poolSize)}
	}

	forced := make(map[int]struct{}, len(cfg.AlwaysOmit))
	for _, id := range cfg.AlwaysOmit {
		if id < 0 || id >= poolSize {
			return nil, &SamplingError{Reason: fmt.Sprintf("always_omit element %d is outside the pool [0, %d)", id, poolSize)}
		}
		forced[id] = struct{}{}
	}

	base := make([]int, 0, poolSize-len(forced))
	for id := 0; id < poolSize; id++ {
		if _, ok := forced[id]; !ok {
			base = append(base, id)
		}
	}

	if cfg.OmitFraction > 0 && len(base) == 0 {
		return nil, &SamplingError{Reason: fmt.Sprintf("omit_fraction %v is unsatisfiable: the pool of %d elements is exhausted by always_omit", cfg.OmitFraction, poolSize)}
	}

	// Round half up.
	k := int(math.Floor(cfg.OmitFraction*float64(len(base)) + 0.5))

	result := &Result{Masks: make([]Mask, 0, cfg.Iterations)}
	if !cfg.HasSeed {
		result.Warnings = append(result.Warnings, "no seed configured: omission masks are not reproducible across runs")
	}

	for i := 0; i < cfg.Iterations; i++ {
		rng := iterationRNG(cfg, i)
		sampled := sampleWithoutReplacement(rng, base, k)

		elements := make([]int, 0, len(cfg.AlwaysOmit)+len(sampled))
		elements = append(elements, cfg.AlwaysOmit...)
		elements = append(elements, sampled...)
		sort.Ints(elements)

		result.Masks = append(result.Masks, Mask{Iteration: i, Elements: elements})
	}
	return result, nil
}

// iterationRNG builds the per-iteration generator. The (seed, iteration)
// pair feeds PCG directly, so mask i is a pure function of the run config
// and i.
func iterationRNG(cfg config.RunConfig, iteration int) *mathrand.Rand {
	if cfg.HasSeed {
		return mathrand.New(mathrand.NewPCG(uint64(cfg.Seed), uint64(iteration)))
	}
	return mathrand.New(mathrand.NewPCG(cryptoUint64(), cryptoUint64()))
}

// sampleWithoutReplacement draws k distinct elements from pool using a
// partial Fisher-Yates shuffle over a copy. The input pool is never mutated.
func sampleWithoutReplacement(rng *mathrand.Rand, pool []int, k int) []int {
	if k <= 0 {
		return nil
	}
	if k > len(pool) {
		k = len(pool)
	}
	scratch := make([]int, len(pool))
	copy(scratch, pool)
	for j := 0; j < k; j++ {
		swap := j + rng.IntN(len(scratch)-j)
		scratch[j], scratch[swap] = scratch[swap], scratch[j]
	}
	return scratch[:k]
}

func cryptoUint64() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(fmt.Sprintf("omit: crypto/rand unavailable: %v", err))
	}
	return binary.LittleEndian.Uint64(buf[:])
}
