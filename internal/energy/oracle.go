// Package energy defines the energy oracle contract consumed by the sampler and
// ships the reference target distributions used by the run service.
//
// An oracle maps a batch of positions, one particle per column of a D×N matrix,
// to N scalar energies and a D×N gradient matrix. Columns are evaluated
// independently. Implementations must be pure: no hidden state, no side effects,
// and safe to call repeatedly with arbitrary finite inputs. Non-finite outputs
// are allowed; the sampler treats them as points outside the target's domain.
package energy

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// Oracle evaluates the target energy and its gradient for a batch of positions.
type Oracle interface {
	// Dim returns the expected number of rows of x, or 0 if any is accepted.
	Dim() int
	// Energy returns one energy per column of x.
	Energy(x mat.Matrix) []float64
	// Gradient returns dE/dx with the same shape as x.
	Gradient(x mat.Matrix) *mat.Dense
}

// Distribution is an Oracle that also knows how to seed a batch of particles.
type Distribution interface {
	Oracle
	Name() string
	// InitialPositions draws n starting positions as a Dim()×n matrix.
	InitialPositions(n int, src rand.Source) *mat.Dense
}

// EnergyFunc computes per-column energies.
type EnergyFunc func(x mat.Matrix) []float64

// GradientFunc computes per-column gradients.
type GradientFunc func(x mat.Matrix) *mat.Dense

type funcOracle struct {
	dim      int
	energy   EnergyFunc
	gradient GradientFunc
}

// Func adapts a user supplied energy/gradient callback pair to an Oracle.
// dim may be 0 when the callbacks accept any dimensionality.
func Func(dim int, energy EnergyFunc, gradient GradientFunc) Oracle {
	return &funcOracle{dim: dim, energy: energy, gradient: gradient}
}

func (f *funcOracle) Dim() int                         { return f.dim }
func (f *funcOracle) Energy(x mat.Matrix) []float64    { return f.energy(x) }
func (f *funcOracle) Gradient(x mat.Matrix) *mat.Dense { return f.gradient(x) }
