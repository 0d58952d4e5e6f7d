package energy

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Gaussian is an isotropic zero-mean Gaussian with standard deviation Sigma:
//
//	E(x) = Σ x² / (2σ²)
type Gaussian struct {
	dims  int
	sigma float64
}

// NewGaussian creates an isotropic Gaussian target.
func NewGaussian(dims int, sigma float64) (*Gaussian, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("gaussian: dims must be positive, got %d", dims)
	}
	if !(sigma > 0) || math.IsInf(sigma, 0) {
		return nil, fmt.Errorf("gaussian: sigma must be positive and finite, got %g", sigma)
	}
	return &Gaussian{dims: dims, sigma: sigma}, nil
}

// Name identifies the distribution in the registry.
func (g *Gaussian) Name() string { return "gaussian" }

// Dim returns the dimensionality.
func (g *Gaussian) Dim() int { return g.dims }

// Sigma returns the standard deviation.
func (g *Gaussian) Sigma() float64 { return g.sigma }

// Energy implements Oracle.
func (g *Gaussian) Energy(x mat.Matrix) []float64 {
	r, c := x.Dims()
	out := make([]float64, c)
	scale := 1 / (2 * g.sigma * g.sigma)
	for j := 0; j < c; j++ {
		var sum float64
		for i := 0; i < r; i++ {
			v := x.At(i, j)
			sum += v * v
		}
		out[j] = sum * scale
	}
	return out
}

// Gradient implements Oracle.
func (g *Gaussian) Gradient(x mat.Matrix) *mat.Dense {
	grad := mat.DenseCopyOf(x)
	grad.Scale(1/(g.sigma*g.sigma), grad)
	return grad
}

// InitialPositions draws n exact samples from the target.
func (g *Gaussian) InitialPositions(n int, src rand.Source) *mat.Dense {
	normal := distuv.Normal{Mu: 0, Sigma: g.sigma, Src: src}
	x := mat.NewDense(g.dims, n, nil)
	for j := 0; j < n; j++ {
		for i := 0; i < g.dims; i++ {
			x.Set(i, j, normal.Rand())
		}
	}
	return x
}
