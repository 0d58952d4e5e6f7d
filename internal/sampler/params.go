package sampler

import (
	"math"
)

// Params holds the immutable hyperparameters of a sampler. A copy is threaded
// through every scheduler and operator call; nothing reads them from shared
// mutable state.
type Params struct {
	// Epsilon is the leapfrog step size. Must be finite and > 0.
	Epsilon float64
	// Beta is the momentum corruption mixing in [0, 1]. It is also the
	// firing rate of the Corrupt operator.
	Beta float64
	// LeapfrogSteps is the number of leapfrog sub-steps composed into one
	// Flow. Zero selects 1.
	LeapfrogSteps int
	// Rule converts energy changes into firing rates. Empty selects RuleMetropolis.
	Rule RateRule
	// Interval is the continuous time between emitted samples. Zero selects 1.
	Interval float64
}

// DefaultParams returns epsilon=0.1, beta=0.1 with one leapfrog sub-step,
// the Metropolis rate rule and unit sampling interval.
func DefaultParams() Params {
	return Params{
		Epsilon:       0.1,
		Beta:          0.1,
		LeapfrogSteps: 1,
		Rule:          RuleMetropolis,
		Interval:      1,
	}
}

func (p Params) withDefaults() Params {
	if p.LeapfrogSteps == 0 {
		p.LeapfrogSteps = 1
	}
	if p.Rule == "" {
		p.Rule = RuleMetropolis
	}
	if p.Interval == 0 {
		p.Interval = 1
	}
	return p
}

// Validate reports the first invalid hyperparameter, wrapped in ErrInvalidConfig.
// Zero-valued optional fields are defaulted before checking.
func (p Params) Validate() error {
	p = p.withDefaults()
	if !(p.Epsilon > 0) || math.IsInf(p.Epsilon, 0) {
		return invalidf("epsilon must be finite and > 0, got %g", p.Epsilon)
	}
	if !(p.Beta >= 0 && p.Beta <= 1) {
		return invalidf("beta must be in [0, 1], got %g", p.Beta)
	}
	if p.LeapfrogSteps < 1 {
		return invalidf("leapfrog steps must be >= 1, got %d", p.LeapfrogSteps)
	}
	if !p.Rule.valid() {
		return invalidf("unknown rate rule %q", p.Rule)
	}
	if !(p.Interval > 0) || math.IsInf(p.Interval, 0) {
		return invalidf("sampling interval must be finite and > 0, got %g", p.Interval)
	}
	return nil
}
