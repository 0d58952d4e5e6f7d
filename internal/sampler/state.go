package sampler

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// particle is one independent chain. Only the worker handling its index
// touches it during a micro-step.
type particle struct {
	index int

	// cur is the current state ζ; fwd caches Lζ and bwd caches L⁻¹ζ.
	cur, fwd, bwd phase
	// needFwd/needBwd mark the caches as stale.
	needFwd, needBwd bool

	label   Operator
	weights Weights
	// depart is the continuous time at which cur will be left.
	depart float64

	src    rand.Source
	rng    *rand.Rand
	normal distuv.Normal

	steps int
	jumps int
	fired [numOperators]int
}

func newParticle(index, dim int, x []float64, seed uint64) *particle {
	src := rand.NewPCG(seed, uint64(index))
	p := &particle{
		index:   index,
		cur:     newPhase(dim),
		fwd:     newPhase(dim),
		bwd:     newPhase(dim),
		needFwd: true,
		needBwd: true,
		label:   Flow,
		src:     src,
		rng:     rand.New(src),
		normal:  distuv.Normal{Mu: 0, Sigma: 1, Src: src},
	}
	copy(p.cur.x, x)
	for i := range p.cur.p {
		p.cur.p[i] = p.normal.Rand()
	}
	return p
}

// ParticleState is the batch of N independently evolving particles in D
// dimensions. Positions and momenta are index aligned and never resized.
type ParticleState struct {
	dim       int
	particles []*particle
}

func newParticleState(initial mat.Matrix, seed uint64) *ParticleState {
	dim, n := initial.Dims()
	s := &ParticleState{
		dim:       dim,
		particles: make([]*particle, n),
	}
	col := make([]float64, dim)
	for i := 0; i < n; i++ {
		mat.Col(col, i, initial)
		s.particles[i] = newParticle(i, dim, col, seed)
	}
	return s
}

// Dims returns the dimensionality D.
func (s *ParticleState) Dims() int { return s.dim }

// Len returns the number of particles N.
func (s *ParticleState) Len() int { return len(s.particles) }

// Positions returns a D×N copy of the current positions.
func (s *ParticleState) Positions() *mat.Dense {
	out := mat.NewDense(s.dim, len(s.particles), nil)
	for i, p := range s.particles {
		out.SetCol(i, p.cur.x)
	}
	return out
}

// Momenta returns a D×N copy of the current momenta.
func (s *ParticleState) Momenta() *mat.Dense {
	out := mat.NewDense(s.dim, len(s.particles), nil)
	for i, p := range s.particles {
		out.SetCol(i, p.cur.p)
	}
	return out
}

// Labels returns the operator currently in control of each particle.
func (s *ParticleState) Labels() []Operator {
	out := make([]Operator, len(s.particles))
	for i, p := range s.particles {
		out[i] = p.label
	}
	return out
}

// Energies returns the energy of each particle's current position.
func (s *ParticleState) Energies() []float64 {
	out := make([]float64, len(s.particles))
	for i, p := range s.particles {
		out[i] = p.cur.energy
	}
	return out
}

func (s *ParticleState) phases(which func(p *particle) *phase) []*phase {
	out := make([]*phase, len(s.particles))
	for i, p := range s.particles {
		out[i] = which(p)
	}
	return out
}
