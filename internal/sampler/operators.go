package sampler

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/aristath/mjhmc/internal/energy"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Operator is the closed set of state transforms. It doubles as the label of
// the operator currently in control of a particle.
type Operator uint8

const (
	// Flow advances (x, p) by LeapfrogSteps leapfrog sub-steps.
	Flow Operator = iota
	// Flip negates the momentum.
	Flip
	// Corrupt partially refreshes the momentum with Gaussian noise.
	Corrupt

	numOperators = 3
)

var operatorNames = [numOperators]string{"flow", "flip", "corrupt"}

func (o Operator) String() string {
	if int(o) < len(operatorNames) {
		return operatorNames[o]
	}
	return fmt.Sprintf("operator(%d)", uint8(o))
}

// phase is a point of the augmented phase space together with the energy and
// gradient of its position. valid is false when anything is non-finite.
type phase struct {
	x, p, grad []float64
	energy     float64
	valid      bool
}

func newPhase(dim int) phase {
	return phase{
		x:    make([]float64, dim),
		p:    make([]float64, dim),
		grad: make([]float64, dim),
	}
}

func (ph *phase) hamiltonian() float64 {
	return ph.energy + 0.5*floats.Dot(ph.p, ph.p)
}

func (ph *phase) copyFrom(src *phase) {
	if ph == src {
		return
	}
	copy(ph.x, src.x)
	copy(ph.p, src.p)
	copy(ph.grad, src.grad)
	ph.energy = src.energy
	ph.valid = src.valid
}

func (ph *phase) negateMomentum() {
	floats.Scale(-1, ph.p)
}

// Point is a position/momentum pair of one particle.
type Point struct {
	X []float64
	P []float64
}

// Transition is the result of applying an operator to a Point.
type Transition struct {
	To Point
	// DeltaH is H(To) - H(From). It is NaN when Finite is false.
	DeltaH float64
	// Finite reports whether the image, its energy and gradient are all finite.
	Finite bool
}

// Bank applies the operators against one energy oracle. Oracle evaluations are
// batched: every call evaluates all requested particles as columns of a single
// matrix. Per-particle vector arithmetic runs on the worker pool.
type Bank struct {
	oracle energy.Oracle
	dim    int
	pool   *WorkerPool
}

// NewBank creates an operator bank for dim-dimensional particles.
func NewBank(oracle energy.Oracle, dim int, pool *WorkerPool) *Bank {
	if pool == nil {
		pool = NewWorkerPool(0)
	}
	return &Bank{oracle: oracle, dim: dim, pool: pool}
}

// evaluate fills energy and gradient of every phase with one oracle call each.
func (b *Bank) evaluate(phs []*phase) error {
	if len(phs) == 0 {
		return nil
	}
	x := mat.NewDense(b.dim, len(phs), nil)
	for j, ph := range phs {
		x.SetCol(j, ph.x)
	}

	energies := b.oracle.Energy(x)
	if len(energies) != len(phs) {
		return fmt.Errorf("energy oracle returned %d values for %d positions", len(energies), len(phs))
	}
	grad := b.oracle.Gradient(x)
	if grad == nil {
		return fmt.Errorf("energy oracle returned a nil gradient")
	}
	if r, c := grad.Dims(); r != b.dim || c != len(phs) {
		return fmt.Errorf("energy oracle returned a %dx%d gradient for %dx%d positions", r, c, b.dim, len(phs))
	}

	for j, ph := range phs {
		ph.energy = energies[j]
		mat.Col(ph.grad, j, grad)
		ph.valid = isFinite(ph.energy) && allFinite(ph.x) && allFinite(ph.p) && allFinite(ph.grad)
	}
	return nil
}

// leapfrog advances every phase in place by params.LeapfrogSteps leapfrog
// sub-steps. Phases that leave the domain are marked invalid and dropped from
// subsequent sub-steps.
func (b *Bank) leapfrog(params Params, phs []*phase) error {
	eps := params.Epsilon
	active := make([]*phase, 0, len(phs))
	for _, ph := range phs {
		if ph.valid {
			active = append(active, ph)
		}
	}

	for s := 0; s < params.LeapfrogSteps && len(active) > 0; s++ {
		b.pool.Run(len(active), func(i int) error {
			ph := active[i]
			floats.AddScaled(ph.p, -eps/2, ph.grad)
			floats.AddScaled(ph.x, eps, ph.p)
			return nil
		})

		if err := b.evaluate(active); err != nil {
			return err
		}

		next := active[:0]
		for _, ph := range active {
			if !ph.valid {
				continue
			}
			floats.AddScaled(ph.p, -eps/2, ph.grad)
			if !allFinite(ph.p) {
				ph.valid = false
				continue
			}
			next = append(next, ph)
		}
		active = next
	}
	return nil
}

// corruptMomentum applies p ← √(1-β) p + √β n in place and returns the exact
// change in kinetic energy, which is the full ΔH since x does not move.
func corruptMomentum(p []float64, beta float64, noise *distuv.Normal) float64 {
	before := floats.Dot(p, p)
	keep := math.Sqrt(1 - beta)
	mix := math.Sqrt(beta)
	for i := range p {
		p[i] = keep*p[i] + mix*noise.Rand()
	}
	return 0.5 * (floats.Dot(p, p) - before)
}

func (b *Bank) phasesFrom(points []Point) ([]phase, []*phase, error) {
	phs := make([]phase, len(points))
	ptrs := make([]*phase, len(points))
	for i, pt := range points {
		if len(pt.X) != b.dim || len(pt.P) != b.dim {
			return nil, nil, invalidf("point %d has %d/%d coordinates, expected %d", i, len(pt.X), len(pt.P), b.dim)
		}
		phs[i] = newPhase(b.dim)
		copy(phs[i].x, pt.X)
		copy(phs[i].p, pt.P)
		ptrs[i] = &phs[i]
	}
	if err := b.evaluate(ptrs); err != nil {
		return nil, nil, err
	}
	return phs, ptrs, nil
}

func transition(from, to *phase) Transition {
	t := Transition{
		To:     Point{X: append([]float64(nil), to.x...), P: append([]float64(nil), to.p...)},
		DeltaH: math.NaN(),
		Finite: from.valid && to.valid,
	}
	if t.Finite {
		t.DeltaH = to.hamiltonian() - from.hamiltonian()
		t.Finite = isFinite(t.DeltaH)
	}
	return t
}

// Flow applies the Flow operator to a batch of points.
func (b *Bank) Flow(params Params, points []Point) ([]Transition, error) {
	params = params.withDefaults()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	from, _, err := b.phasesFrom(points)
	if err != nil {
		return nil, err
	}
	to := make([]phase, len(from))
	ptrs := make([]*phase, len(from))
	for i := range from {
		to[i] = newPhase(b.dim)
		to[i].copyFrom(&from[i])
		ptrs[i] = &to[i]
	}
	if err := b.leapfrog(params, ptrs); err != nil {
		return nil, err
	}
	out := make([]Transition, len(from))
	for i := range from {
		out[i] = transition(&from[i], &to[i])
	}
	return out, nil
}

// Flip applies the Flip operator. ΔH is exactly 0 for a finite point.
func (b *Bank) Flip(point Point) (Transition, error) {
	from, _, err := b.phasesFrom([]Point{point})
	if err != nil {
		return Transition{}, err
	}
	to := newPhase(b.dim)
	to.copyFrom(&from[0])
	to.negateMomentum()
	t := transition(&from[0], &to)
	if t.Finite {
		t.DeltaH = 0
	}
	return t, nil
}

// Corrupt applies the Corrupt operator drawing noise from src. ΔH is the
// analytic kinetic energy change.
func (b *Bank) Corrupt(params Params, point Point, src rand.Source) (Transition, error) {
	params = params.withDefaults()
	if err := params.Validate(); err != nil {
		return Transition{}, err
	}
	from, _, err := b.phasesFrom([]Point{point})
	if err != nil {
		return Transition{}, err
	}
	to := newPhase(b.dim)
	to.copyFrom(&from[0])
	noise := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	dH := corruptMomentum(to.p, params.Beta, &noise)
	t := transition(&from[0], &to)
	if t.Finite {
		t.DeltaH = dH
	}
	return t, nil
}
