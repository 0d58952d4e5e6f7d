package sampler

import (
	"errors"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat/distuv"
)

// scheduler drives the jump process. For every particle it keeps the firing
// rates of the three operators from the current state, and a departure time
// drawn from the exponential holding time with the total rate. A micro-step
// fires one operator for every particle whose departure time has passed.
type scheduler struct {
	bank   *Bank
	pool   *WorkerPool
	params Params
	log    zerolog.Logger
}

// refresh recomputes the stale neighbour caches of ps with batched leapfrog
// calls, then the rates and the next departure time of each particle.
func (sc *scheduler) refresh(ps []*particle, step int) error {
	var stale []*phase
	var backward []*particle
	for _, p := range ps {
		if p.needFwd {
			p.fwd.copyFrom(&p.cur)
			stale = append(stale, &p.fwd)
		}
		if p.needBwd {
			// L⁻¹ = F∘L∘F
			p.bwd.copyFrom(&p.cur)
			p.bwd.negateMomentum()
			stale = append(stale, &p.bwd)
			backward = append(backward, p)
		}
	}
	if err := sc.bank.leapfrog(sc.params, stale); err != nil {
		return err
	}
	for _, p := range backward {
		p.bwd.negateMomentum()
	}

	return sc.pool.Run(len(ps), func(i int) error {
		p := ps[i]
		p.needFwd, p.needBwd = false, false
		p.weights = sc.weights(p)
		total := p.weights.Total()
		if !(total > 0) {
			return &NumericalError{
				Particle: p.index,
				Step:     step,
				Reason:   "every operator produced a non-finite state",
			}
		}
		holding := distuv.Exponential{Rate: total, Src: p.src}
		p.depart += holding.Rand()
		return nil
	})
}

func (sc *scheduler) weights(p *particle) Weights {
	hFwd, hBwd := math.NaN(), math.NaN()
	if p.fwd.valid {
		hFwd = p.fwd.hamiltonian()
	}
	if p.bwd.valid {
		hBwd = p.bwd.hamiltonian()
	}
	h := math.NaN()
	if p.cur.valid {
		h = p.cur.hamiltonian()
	}
	return TransitionWeights(sc.params.Rule, sc.params.Beta, h, hFwd, hBwd)
}

// jump fires one operator for p, chosen with probability proportional to its
// rate. The move is always applied.
func (sc *scheduler) jump(p *particle, step int) error {
	op, ok := choose(p.weights, p.rng.Float64())
	if !ok {
		return &NumericalError{
			Particle: p.index,
			Step:     step,
			Reason:   "no operator has a positive rate",
		}
	}

	switch op {
	case Flow:
		// The new state's inverse-Flow image is the old state.
		p.bwd, p.cur, p.fwd = p.cur, p.fwd, p.bwd
		p.needFwd = true
	case Flip:
		// L(Fζ) = F(L⁻¹ζ) and L⁻¹(Fζ) = F(Lζ).
		p.cur.negateMomentum()
		p.fwd, p.bwd = p.bwd, p.fwd
		p.fwd.negateMomentum()
		p.bwd.negateMomentum()
	case Corrupt:
		corruptMomentum(p.cur.p, sc.params.Beta, &p.normal)
		p.needFwd, p.needBwd = true, true
	}

	p.label = op
	p.fired[op]++
	p.jumps++
	return nil
}

// advance runs micro-steps until every particle's departure time is past t.
// The state occupied at t is then the emitted sample.
func (sc *scheduler) advance(ps []*particle, t float64, step int) error {
	active := make([]*particle, 0, len(ps))
	for {
		active = active[:0]
		for _, p := range ps {
			if p.depart <= t {
				active = append(active, p)
			}
		}
		if len(active) == 0 {
			return nil
		}

		if err := sc.pool.Run(len(active), func(i int) error {
			return sc.jump(active[i], step)
		}); err != nil {
			return err
		}

		if err := sc.refresh(active, step); err != nil {
			var numErr *NumericalError
			if errors.As(err, &numErr) {
				sc.log.Warn().
					Int("particle", numErr.Particle).
					Int("step", numErr.Step).
					Msg("Particle left the energy domain")
			}
			return err
		}
	}
}
