// Package sampler implements Markov Jump Hamiltonian Monte Carlo, a
// rejection-free continuous-time sampler.
//
// Each particle carries a phase-space state (x, p) and evolves as a
// continuous-time Markov jump process over three operators: Flow (leapfrog
// integration), Flip (momentum negation) and Corrupt (partial momentum
// refresh). The firing rates are chosen so that exp(-E(x) - |p|²/2) is
// stationary. Every selected move is applied; nothing is computed and then
// discarded.
//
// The process is observed on a regular time grid, so samples are weighted by
// how long the chain stays in each state:
//
//	s, err := sampler.New(initial, oracle, sampler.DefaultParams(), sampler.WithSeed(42))
//	if err != nil {
//	    return err
//	}
//	samples, err := s.Sample(1000) // D × (1000·N)
package sampler

import (
	"math/rand/v2"
	"time"

	"github.com/aristath/mjhmc/internal/energy"
	"github.com/aristath/mjhmc/pkg/logger"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// Option configures non-algorithmic aspects of a Sampler.
type Option func(*options)

type options struct {
	workers int
	seed    uint64
	seeded  bool
	log     zerolog.Logger
}

// WithWorkers bounds the number of goroutines used per micro-step.
// Values <= 0 select the pool default.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithSeed makes the run reproducible. Each particle draws from its own PCG
// stream derived from the seed and its index, so results do not depend on
// the number of workers.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
		o.seeded = true
	}
}

// WithLogger attaches a structured logger.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// Stats counts scheduler activity since construction.
type Stats struct {
	Steps   int `json:"steps"`
	Jumps   int `json:"jumps"`
	Flow    int `json:"flow"`
	Flip    int `json:"flip"`
	Corrupt int `json:"corrupt"`
}

// Sampler owns the particle state and drives the scheduler.
// It is not safe for concurrent use.
type Sampler struct {
	params Params
	oracle energy.Oracle
	state  *ParticleState
	sched  *scheduler
	pool   *WorkerPool
	log    zerolog.Logger

	seed   uint64
	steps  int
	primed bool
	// err is sticky: a sampler that hit a numerical failure stays failed.
	err error
}

// New validates the configuration, draws standard-normal momenta and
// evaluates the oracle at the initial positions (one column per particle).
// Any invalid input is reported as ErrInvalidConfig and no sampler is returned.
func New(initial mat.Matrix, oracle energy.Oracle, params Params, opts ...Option) (*Sampler, error) {
	o := options{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.seeded {
		o.seed = rand.Uint64()
	}

	params = params.withDefaults()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if oracle == nil {
		return nil, invalidf("energy oracle is nil")
	}
	if initial == nil {
		return nil, invalidf("initial positions are nil")
	}
	dim, n := initial.Dims()
	if dim == 0 || n == 0 {
		return nil, invalidf("initial positions must be non-empty, got %dx%d", dim, n)
	}
	if want := oracle.Dim(); want != 0 && want != dim {
		return nil, invalidf("initial positions have %d dimensions, oracle expects %d", dim, want)
	}

	pool := NewWorkerPool(o.workers)
	log := logger.Component(o.log, "sampler")
	bank := NewBank(oracle, dim, pool)
	state := newParticleState(initial, o.seed)

	current := state.phases(func(p *particle) *phase { return &p.cur })
	if err := bank.evaluate(current); err != nil {
		return nil, invalidf("%v", err)
	}
	for i, ph := range current {
		if !ph.valid {
			return nil, invalidf("particle %d starts at a non-finite position, energy or gradient", i)
		}
	}

	s := &Sampler{
		params: params,
		oracle: oracle,
		state:  state,
		pool:   pool,
		log:    log,
		seed:   o.seed,
		sched: &scheduler{
			bank:   bank,
			pool:   pool,
			params: params,
			log:    log,
		},
	}

	log.Debug().
		Int("dims", dim).
		Int("particles", n).
		Float64("epsilon", params.Epsilon).
		Float64("beta", params.Beta).
		Int("leapfrog_steps", params.LeapfrogSteps).
		Str("rule", string(params.Rule)).
		Uint64("seed", o.seed).
		Msg("Sampler initialized")

	return s, nil
}

// Sample advances every particle by numSteps sampling intervals and returns
// the emitted positions as a D × (numSteps·N) matrix. Column s·N+i holds
// particle i at step s: all particles' first step, then all particles'
// second step, and so on.
//
// Sample(0) returns an empty matrix and leaves the state untouched. State is
// carried between calls, so Sample(k) followed by Sample(m) yields the same
// trajectory as Sample(k+m).
func (s *Sampler) Sample(numSteps int) (*mat.Dense, error) {
	if s.err != nil {
		return nil, s.err
	}
	if numSteps < 0 {
		return nil, invalidf("number of steps must be >= 0, got %d", numSteps)
	}
	if numSteps == 0 {
		return &mat.Dense{}, nil
	}

	start := time.Now()
	ps := s.state.particles
	n := len(ps)
	before := s.Stats()

	if !s.primed {
		if err := s.sched.refresh(ps, s.steps+1); err != nil {
			s.err = err
			return nil, err
		}
		s.primed = true
	}

	out := mat.NewDense(s.state.dim, numSteps*n, nil)
	for k := 0; k < numSteps; k++ {
		step := s.steps + 1
		t := float64(step) * s.params.Interval
		if err := s.sched.advance(ps, t, step); err != nil {
			s.err = err
			return nil, err
		}
		for i, p := range ps {
			out.SetCol(k*n+i, p.cur.x)
			p.steps++
		}
		s.steps++
	}

	after := s.Stats()
	s.log.Debug().
		Int("steps", numSteps).
		Int("jumps", after.Jumps-before.Jumps).
		Int("flow", after.Flow-before.Flow).
		Int("flip", after.Flip-before.Flip).
		Int("corrupt", after.Corrupt-before.Corrupt).
		Dur("duration", time.Since(start)).
		Msg("Sampling complete")

	return out, nil
}

// Dims returns the dimensionality D.
func (s *Sampler) Dims() int { return s.state.dim }

// Particles returns the number of particles N.
func (s *Sampler) Particles() int { return len(s.state.particles) }

// Steps returns the number of completed sampling steps per particle.
func (s *Sampler) Steps() int { return s.steps }

// Params returns the hyperparameters, with defaults applied.
func (s *Sampler) Params() Params { return s.params }

// Seed returns the seed the particle streams were derived from.
func (s *Sampler) Seed() uint64 { return s.seed }

// State exposes read-only views of the particle state.
func (s *Sampler) State() *ParticleState { return s.state }

// Stats aggregates operator counts over all particles.
func (s *Sampler) Stats() Stats {
	st := Stats{Steps: s.steps}
	for _, p := range s.state.particles {
		st.Jumps += p.jumps
		st.Flow += p.fired[Flow]
		st.Flip += p.fired[Flip]
		st.Corrupt += p.fired[Corrupt]
	}
	return st
}
