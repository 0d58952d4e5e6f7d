package sampler

import (
	"math/rand/v2"
	"testing"

	testingpkg "github.com/aristath/mjhmc/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampler_BatchesOracleCalls(t *testing.T) {
	g := mustGaussian(t, 3, 1.0)
	oracle := testingpkg.NewCountingOracle(g)
	const n = 25

	s, err := New(g.InitialPositions(n, rand.NewPCG(1, 2)), oracle, Params{Epsilon: 0.1, Beta: 0.1, LeapfrogSteps: 2}, WithSeed(3))
	require.NoError(t, err)

	energyCalls, gradientCalls := oracle.Calls()
	assert.Equal(t, 1, energyCalls)
	assert.Equal(t, 1, gradientCalls)
	assert.Equal(t, []int{n}, oracle.BatchSizes())

	oracle.Reset()
	_, err = s.Sample(0)
	require.NoError(t, err)
	energyCalls, _ = oracle.Calls()
	assert.Equal(t, 0, energyCalls)

	_, err = s.Sample(3)
	require.NoError(t, err)

	energyCalls, gradientCalls = oracle.Calls()
	assert.Equal(t, energyCalls, gradientCalls)
	sizes := oracle.BatchSizes()
	require.GreaterOrEqual(t, len(sizes), 2)
	// Priming evaluates both neighbours of every particle, one call per
	// leapfrog sub-step.
	assert.Equal(t, 2*n, sizes[0])
	assert.Equal(t, 2*n, sizes[1])
	for _, size := range sizes {
		assert.LessOrEqual(t, size, 2*n)
		assert.Greater(t, size, 0)
	}
}
