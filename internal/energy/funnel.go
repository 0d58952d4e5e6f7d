package energy

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Funnel is Neal's funnel (Neal, 2003):
//
//	x₀ ~ N(0, scale²)
//	x_k ~ N(0, e^{x₀}),  k = 1..D-1
//
// The energy is the exact negative log density up to a constant,
// E(x) = x₀²/(2 scale²) + Σ_k (x_k² e^{-x₀} + x₀)/2.
type Funnel struct {
	dims  int
	scale float64
}

// NewFunnel creates a funnel target. dims must be at least 2.
func NewFunnel(dims int, scale float64) (*Funnel, error) {
	if dims < 2 {
		return nil, fmt.Errorf("funnel: dims must be at least 2, got %d", dims)
	}
	if !(scale > 0) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("funnel: scale must be positive and finite, got %g", scale)
	}
	return &Funnel{dims: dims, scale: scale}, nil
}

// Name identifies the distribution in the registry.
func (f *Funnel) Name() string { return "funnel" }

// Dim returns the dimensionality.
func (f *Funnel) Dim() int { return f.dims }

// Scale returns the standard deviation of the neck coordinate.
func (f *Funnel) Scale() float64 { return f.scale }

// Energy implements Oracle.
func (f *Funnel) Energy(x mat.Matrix) []float64 {
	r, c := x.Dims()
	out := make([]float64, c)
	for j := 0; j < c; j++ {
		x0 := x.At(0, j)
		e := x0 * x0 / (2 * f.scale * f.scale)
		inv := math.Exp(-x0)
		for i := 1; i < r; i++ {
			v := x.At(i, j)
			e += (v*v*inv + x0) / 2
		}
		out[j] = e
	}
	return out
}

// Gradient implements Oracle.
func (f *Funnel) Gradient(x mat.Matrix) *mat.Dense {
	r, c := x.Dims()
	grad := mat.NewDense(r, c, nil)
	for j := 0; j < c; j++ {
		x0 := x.At(0, j)
		inv := math.Exp(-x0)
		g0 := x0 / (f.scale * f.scale)
		for i := 1; i < r; i++ {
			v := x.At(i, j)
			g0 += (1 - v*v*inv) / 2
			grad.Set(i, j, v*inv)
		}
		grad.Set(0, j, g0)
	}
	return grad
}

// InitialPositions samples the generative process directly.
func (f *Funnel) InitialPositions(n int, src rand.Source) *mat.Dense {
	neck := distuv.Normal{Mu: 0, Sigma: f.scale, Src: src}
	x := mat.NewDense(f.dims, n, nil)
	for j := 0; j < n; j++ {
		x0 := neck.Rand()
		x.Set(0, j, x0)
		width := distuv.Normal{Mu: 0, Sigma: math.Exp(x0 / 2), Src: src}
		for i := 1; i < f.dims; i++ {
			x.Set(i, j, width.Rand())
		}
	}
	return x
}
