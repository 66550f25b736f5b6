package omit

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/vk/stompgen/internal/config"
)

// seeded builds a RunConfig for the sampler without dragging config
// resolution into these tests.
func seeded(seed int64, iterations int, fraction float64, alwaysOmit []int) config.RunConfig {
	return config.RunConfig{
		RunName:      "sampler_test",
		OmitType:     config.OmitAminoAcids,
		OmitFraction: fraction,
		Iterations:   iterations,
		AlwaysOmit:   alwaysOmit,
		Seed:         seed,
		HasSeed:      true,
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	t.Parallel()

	cfg := seeded(42, 4, 0.3, []int{2, 9})

	first, err := Generate(50, cfg)
	require.NoError(t, err)
	second, err := Generate(50, cfg)
	require.NoError(t, err)

	if diff := cmp.Diff(first.Masks, second.Masks); diff != "" {
		t.Fatalf("same seed produced different masks (-first +second):\n%s", diff)
	}
	require.Empty(t, first.Warnings)
}

func TestGenerate_SubsetAndFractionInvariants(t *testing.T) {
	t.Parallel()

	always := []int{0, 7, 33}
	cfg := seeded(7, 6, 0.25, always)

	result, err := Generate(100, cfg)
	require.NoError(t, err)
	require.Len(t, result.Masks, 6)

	// round(0.25 * (100 - 3)) = round(24.25) = 24
	const wantSampled = 24
	for _, mask := range result.Masks {
		members := make(map[int]struct{}, len(mask.Elements))
		for _, id := range mask.Elements {
			members[id] = struct{}{}
		}
		require.Len(t, members, len(mask.Elements), "iteration %d: mask has duplicate elements", mask.Iteration)
		for _, id := range always {
			require.Contains(t, members, id, "iteration %d: always_omit element missing", mask.Iteration)
		}
		require.Len(t, mask.Elements, len(always)+wantSampled, "iteration %d: wrong sample size", mask.Iteration)
		for _, id := range mask.Elements {
			require.GreaterOrEqual(t, id, 0)
			require.Less(t, id, 100)
		}
	}
}

func TestGenerate_RoundHalfUp(t *testing.T) {
	t.Parallel()

	// 0.05 * 10 = 0.5 rounds up to 1.
	cfg := seeded(1, 1, 0.05, nil)
	result, err := Generate(10, cfg)
	require.NoError(t, err)
	require.Len(t, result.Masks[0].Elements, 1)

	// 0.04 * 10 = 0.4 rounds down to 0.
	cfg = seeded(1, 1, 0.04, nil)
	result, err = Generate(10, cfg)
	require.NoError(t, err)
	require.Empty(t, result.Masks[0].Elements)
}

func TestGenerate_EndToEndScenario(t *testing.T) {
	t.Parallel()

	cfg := seeded(42, 3, 0.1, nil)

	result, err := Generate(100, cfg)
	require.NoError(t, err)
	require.Len(t, result.Masks, 3)
	for _, mask := range result.Masks {
		require.Len(t, mask.Elements, 10)
	}

	rerun, err := Generate(100, cfg)
	require.NoError(t, err)
	if diff := cmp.Diff(result.Masks, rerun.Masks); diff != "" {
		t.Fatalf("seed 42 rerun not reproducible:\n%s", diff)
	}

	other, err := Generate(100, seeded(43, 3, 0.1, nil))
	require.NoError(t, err)
	for _, mask := range other.Masks {
		require.Len(t, mask.Elements, 10)
	}
	if diff := cmp.Diff(result.Masks, other.Masks); diff == "" {
		t.Fatal("seed 43 produced the same mask sequence as seed 42")
	}
}

func TestGenerate_IterationsAreIndependentOfOrder(t *testing.T) {
	t.Parallel()

	// Mask i is a pure function of (seed, i): generating 5 iterations must
	// reproduce the prefix of 2.
	short, err := Generate(80, seeded(11, 2, 0.2, nil))
	require.NoError(t, err)
	long, err := Generate(80, seeded(11, 5, 0.2, nil))
	require.NoError(t, err)

	if diff := cmp.Diff(short.Masks, long.Masks[:2]); diff != "" {
		t.Fatalf("iteration masks depend on total iteration count:\n%s", diff)
	}
}

func TestGenerate_SamplingErrors(t *testing.T) {
	t.Parallel()

	t.Run("always_omit outside pool", func(t *testing.T) {
		t.Parallel()
		_, err := Generate(10, seeded(1, 1, 0.1, []int{10}))
		var sampErr *SamplingError
		require.ErrorAs(t, err, &sampErr)
	})

	t.Run("exhausted pool with positive fraction", func(t *testing.T) {
		t.Parallel()
		_, err := Generate(2, seeded(1, 1, 0.5, []int{0, 1}))
		var sampErr *SamplingError
		require.ErrorAs(t, err, &sampErr)
	})

	t.Run("exhausted pool with zero fraction is fine", func(t *testing.T) {
		t.Parallel()
		result, err := Generate(2, seeded(1, 1, 0, []int{0, 1}))
		require.NoError(t, err)
		require.Equal(t, []int{0, 1}, result.Masks[0].Elements)
	})
}

func TestGenerate_MissingSeedWarnsAndStillSamples(t *testing.T) {
	t.Parallel()

	cfg := config.RunConfig{
		RunName:      "sampler_test",
		OmitType:     config.OmitAminoAcids,
		OmitFraction: 0.1,
		Iterations:   2,
	}

	result, err := Generate(100, cfg)
	require.NoError(t, err)
	require.Len(t, result.Masks, 2)
	for _, mask := range result.Masks {
		require.Len(t, mask.Elements, 10)
	}
	require.NotEmpty(t, result.Warnings)
	require.Contains(t, result.Warnings[0], "not reproducible")
}
