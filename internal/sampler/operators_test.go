package sampler

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/aristath/mjhmc/internal/energy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

func testBank(t *testing.T, o energy.Oracle, dim int) *Bank {
	t.Helper()
	return NewBank(o, dim, NewWorkerPool(2))
}

func randomPoints(n, dim int, seed uint64) []Point {
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(seed, seed)}
	pts := make([]Point, n)
	for i := range pts {
		pts[i] = Point{X: make([]float64, dim), P: make([]float64, dim)}
		for d := 0; d < dim; d++ {
			pts[i].X[d] = normal.Rand()
			pts[i].P[d] = normal.Rand()
		}
	}
	return pts
}

func TestOperator_String(t *testing.T) {
	assert.Equal(t, "flow", Flow.String())
	assert.Equal(t, "flip", Flip.String())
	assert.Equal(t, "corrupt", Corrupt.String())
	assert.Equal(t, "operator(9)", Operator(9).String())
}

func TestFlow_IsTimeReversible(t *testing.T) {
	funnel, err := energy.NewFunnel(3, 1.0)
	require.NoError(t, err)

	tests := []struct {
		name   string
		oracle energy.Oracle
		dim    int
		steps  int
	}{
		{"gaussian single step", mustGaussian(t, 2, 1.0), 2, 1},
		{"gaussian five steps", mustGaussian(t, 2, 0.5), 2, 5},
		{"funnel three steps", funnel, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bank := testBank(t, tt.oracle, tt.dim)
			params := Params{Epsilon: 0.05, Beta: 0.1, LeapfrogSteps: tt.steps}
			start := randomPoints(8, tt.dim, 3)

			// F∘L∘F∘L must be the identity.
			forward, err := bank.Flow(params, start)
			require.NoError(t, err)
			back := make([]Point, len(forward))
			for i, tr := range forward {
				require.True(t, tr.Finite)
				flipped, err := bank.Flip(tr.To)
				require.NoError(t, err)
				back[i] = flipped.To
			}
			returned, err := bank.Flow(params, back)
			require.NoError(t, err)

			for i, tr := range returned {
				require.True(t, tr.Finite)
				// Energy change of the reverse leg cancels the forward leg.
				assert.InDelta(t, -forward[i].DeltaH, tr.DeltaH, 1e-9)
				final, err := bank.Flip(tr.To)
				require.NoError(t, err)
				for d := 0; d < tt.dim; d++ {
					assert.InDelta(t, start[i].X[d], final.To.X[d], 1e-10)
					assert.InDelta(t, start[i].P[d], final.To.P[d], 1e-10)
				}
			}
		})
	}
}

func TestFlow_ApproximatelyConservesEnergy(t *testing.T) {
	bank := testBank(t, mustGaussian(t, 3, 1.0), 3)
	out, err := bank.Flow(Params{Epsilon: 0.01, Beta: 0}, randomPoints(20, 3, 9))
	require.NoError(t, err)
	for _, tr := range out {
		require.True(t, tr.Finite)
		assert.Less(t, math.Abs(tr.DeltaH), 1e-3)
	}
}

func TestFlow_OutOfDomainIsNotFinite(t *testing.T) {
	bank := testBank(t, boxedGaussian(1.0), 1)
	out, err := bank.Flow(Params{Epsilon: 0.5, Beta: 0}, []Point{
		{X: []float64{0.9}, P: []float64{3}},
		{X: []float64{0}, P: []float64{0.1}},
	})
	require.NoError(t, err)
	assert.False(t, out[0].Finite)
	assert.True(t, math.IsNaN(out[0].DeltaH))
	assert.True(t, out[1].Finite)
}

func TestFlow_RejectsInvalidParams(t *testing.T) {
	bank := testBank(t, mustGaussian(t, 1, 1.0), 1)
	_, err := bank.Flow(Params{Epsilon: -0.1}, randomPoints(1, 1, 1))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = bank.Flow(Params{Epsilon: 0.1}, []Point{{X: []float64{1, 2}, P: []float64{0}}})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestFlip_NegatesMomentumWithZeroDeltaH(t *testing.T) {
	bank := testBank(t, mustGaussian(t, 2, 1.0), 2)
	tr, err := bank.Flip(Point{X: []float64{1, -2}, P: []float64{0.5, 3}})
	require.NoError(t, err)
	assert.True(t, tr.Finite)
	assert.Equal(t, 0.0, tr.DeltaH)
	assert.Equal(t, []float64{1, -2}, tr.To.X)
	assert.Equal(t, []float64{-0.5, -3}, tr.To.P)
}

func TestCorrupt_DeltaHIsAnalytic(t *testing.T) {
	bank := testBank(t, mustGaussian(t, 2, 1.0), 2)
	from := Point{X: []float64{0.3, 0.1}, P: []float64{1, -1}}
	tr, err := bank.Corrupt(Params{Epsilon: 0.1, Beta: 0.4}, from, rand.NewPCG(1, 1))
	require.NoError(t, err)
	require.True(t, tr.Finite)

	kinetic := func(p []float64) float64 { return 0.5 * (p[0]*p[0] + p[1]*p[1]) }
	assert.InDelta(t, kinetic(tr.To.P)-kinetic(from.P), tr.DeltaH, 1e-12)
	assert.Equal(t, from.X, tr.To.X)
}

func TestCorrupt_BetaExtremes(t *testing.T) {
	bank := testBank(t, mustGaussian(t, 1, 1.0), 1)
	from := Point{X: []float64{0}, P: []float64{1.5}}

	tr, err := bank.Corrupt(Params{Epsilon: 0.1, Beta: 0}, from, rand.NewPCG(2, 2))
	require.NoError(t, err)
	assert.Equal(t, 1.5, tr.To.P[0])
	assert.Equal(t, 0.0, tr.DeltaH)

	// beta=1 discards the old momentum entirely.
	a, err := bank.Corrupt(Params{Epsilon: 0.1, Beta: 1}, from, rand.NewPCG(3, 3))
	require.NoError(t, err)
	b, err := bank.Corrupt(Params{Epsilon: 0.1, Beta: 1}, Point{X: []float64{0}, P: []float64{-7}}, rand.NewPCG(3, 3))
	require.NoError(t, err)
	assert.Equal(t, a.To.P, b.To.P)
}

func TestCorrupt_PreservesStandardNormalMarginal(t *testing.T) {
	const n = 40000
	for _, beta := range []float64{0, 0.1, 0.5, 0.9, 1} {
		normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(11, 13)}
		noise := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(17, 19)}
		out := make([]float64, n)
		p := []float64{0}
		for i := range out {
			p[0] = normal.Rand()
			corruptMomentum(p, beta, &noise)
			out[i] = p[0]
		}
		mean, variance := stat.MeanVariance(out, nil)
		assert.InDelta(t, 0.0, mean, 0.03, "beta=%g", beta)
		assert.InDelta(t, 1.0, variance, 0.05, "beta=%g", beta)
		assert.InDelta(t, 0.0, stat.Skew(out, nil), 0.08, "beta=%g", beta)
		assert.InDelta(t, 0.0, stat.ExKurtosis(out, nil), 0.15, "beta=%g", beta)
	}
}

// The corruption kernel K satisfies K(p→p')/K(p'→p) = exp(-ΔH), which is why
// Corrupt fires at a constant rate.
func TestCorrupt_KernelDetailedBalance(t *testing.T) {
	for _, beta := range []float64{0.05, 0.3, 0.8} {
		keep := math.Sqrt(1 - beta)
		kernel := func(from, to float64) float64 {
			return distuv.Normal{Mu: keep * from, Sigma: math.Sqrt(beta)}.LogProb(to)
		}
		for _, pair := range [][2]float64{{0.2, 1.4}, {-2, 0.5}, {3, -3}} {
			p, q := pair[0], pair[1]
			dH := 0.5 * (q*q - p*p)
			assert.InDelta(t, -dH, kernel(p, q)-kernel(q, p), 1e-9, "beta=%g", beta)
		}
	}
}
