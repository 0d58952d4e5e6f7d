package sampler

import (
	"fmt"
	"math"
)

// RateRule maps the Hamiltonian change ΔH of a candidate move to its firing
// rate. Every rule satisfies g(ΔH)/g(-ΔH) = exp(-ΔH), which is the detailed
// balance condition for the pair of moves ζ→ζ' and its time reverse.
type RateRule string

const (
	// RuleMetropolis uses g(ΔH) = min(1, exp(-ΔH)). Moves that do not raise
	// the energy fire at the saturated rate 1.
	RuleMetropolis RateRule = "metropolis"
	// RuleSymmetric uses g(ΔH) = exp(-ΔH/2).
	RuleSymmetric RateRule = "symmetric"
)

// maxRate caps rates so that sums of weights stay finite.
const maxRate = 1e300

// ParseRateRule converts a configuration string into a RateRule.
// The empty string selects RuleMetropolis.
func ParseRateRule(s string) (RateRule, error) {
	switch RateRule(s) {
	case "":
		return RuleMetropolis, nil
	case RuleMetropolis, RuleSymmetric:
		return RateRule(s), nil
	}
	return "", fmt.Errorf("%w: unknown rate rule %q", ErrInvalidConfig, s)
}

func (r RateRule) valid() bool {
	return r == RuleMetropolis || r == RuleSymmetric
}

// Rate returns g(dH). A non-finite dH has rate 0 so the move is never selected.
func (r RateRule) Rate(dH float64) float64 {
	if !isFinite(dH) {
		return 0
	}
	var g float64
	switch r {
	case RuleSymmetric:
		g = math.Exp(-dH / 2)
	default:
		if dH <= 0 {
			return 1
		}
		g = math.Exp(-dH)
	}
	if g > maxRate {
		return maxRate
	}
	return g
}

// Weights are the firing rates of each operator from one state.
type Weights [numOperators]float64

// Total is the exit rate of the state.
func (w Weights) Total() float64 {
	var total float64
	for _, v := range w {
		total += v
	}
	return total
}

// Probabilities normalises the weights into the distribution of which
// operator fires next. All zeros are returned unchanged when Total is 0.
func (w Weights) Probabilities() Weights {
	total := w.Total()
	if total == 0 {
		return w
	}
	var p Weights
	for i, v := range w {
		p[i] = v / total
	}
	return p
}

// TransitionWeights computes the operator rates for a state with Hamiltonian h
// whose Flow image has Hamiltonian hFwd and whose inverse-Flow image has
// Hamiltonian hBwd. Non-finite neighbour energies exclude that neighbour.
//
// With a = g(hFwd-h) and b = g(hBwd-h):
//
//	Flow    a
//	Flip    max(0, b-a)
//	Corrupt beta
//
// The probability flux leaving the state through Flow and Flip is max(a, b),
// equal to the flux arriving through Flow from L⁻¹ζ and through Flip from Fζ,
// so exp(-H) is stationary. Corrupt fires at a constant rate because its
// kernel is already reversible with respect to the momentum marginal.
func TransitionWeights(rule RateRule, beta, h, hFwd, hBwd float64) Weights {
	var w Weights
	if !isFinite(h) {
		return w
	}
	a := rule.Rate(hFwd - h)
	b := rule.Rate(hBwd - h)
	w[Flow] = a
	w[Flip] = math.Max(0, b-a)
	w[Corrupt] = beta
	return w
}

// choose normalises w and picks the operator whose cumulative probability
// interval contains u. Operators with zero weight are never returned. ok is
// false when every weight is zero.
func choose(w Weights, u float64) (op Operator, ok bool) {
	p := w.Probabilities()
	if !(p.Total() > 0) {
		return Flow, false
	}
	var acc float64
	last := Flow
	for i, v := range p {
		if v <= 0 {
			continue
		}
		last = Operator(i)
		acc += v
		if u < acc {
			return last, true
		}
	}
	// Rounding left the cumulative sum just below u.
	return last, true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func allFinite(xs []float64) bool {
	for _, v := range xs {
		if !isFinite(v) {
			return false
		}
	}
	return true
}
