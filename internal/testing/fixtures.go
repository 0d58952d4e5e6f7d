package testing

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// NewSampleMatrix returns a deterministic rows×cols matrix of standard
// normal draws, shaped like sampler output.
func NewSampleMatrix(rows, cols int, seed uint64) *mat.Dense {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	return mat.NewDense(rows, cols, data)
}
