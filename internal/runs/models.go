// Package runs executes sampler runs against the reference distributions and
// keeps their results in SQLite.
package runs

import (
	"errors"
	"fmt"
	"time"

	"github.com/aristath/mjhmc/internal/sampler"
)

var (
	// ErrNotFound is returned when no run has the requested ID.
	ErrNotFound = errors.New("run not found")
	// ErrInvalidRequest is returned for requests rejected before sampling.
	ErrInvalidRequest = errors.New("invalid run request")
	// ErrNoStore is returned by lookups on a service built without a repository.
	ErrNoStore = errors.New("run store not configured")
)

// Defaults fills in hyperparameters a request leaves out.
type Defaults struct {
	Epsilon float64
	Beta    float64
}

// Request describes one sampler run.
type Request struct {
	Distribution  string   `json:"distribution"`
	Dims          int      `json:"dims"`
	Particles     int      `json:"particles"`
	Steps         int      `json:"steps"`
	Epsilon       float64  `json:"epsilon"`
	Beta          *float64 `json:"beta,omitempty"` // nil selects the default; 0 disables corruption
	Param         float64  `json:"param"`
	LeapfrogSteps int      `json:"leapfrog_steps"`
	Rule          string   `json:"rule"`
	Seed          uint64   `json:"seed"` // 0 picks a random seed
}

// ApplyDefaults fills zero-valued fields.
func (r *Request) ApplyDefaults(d Defaults) {
	if r.Distribution == "" {
		r.Distribution = "gaussian"
	}
	if r.Dims == 0 {
		r.Dims = 2
	}
	if r.Particles == 0 {
		r.Particles = 100
	}
	if r.Steps == 0 {
		r.Steps = 100
	}
	if r.Epsilon == 0 {
		r.Epsilon = d.Epsilon
	}
	if r.Beta == nil {
		beta := d.Beta
		r.Beta = &beta
	}
	if r.Param == 0 {
		r.Param = 1
	}
	if r.LeapfrogSteps == 0 {
		r.LeapfrogSteps = 1
	}
	if r.Rule == "" {
		r.Rule = string(sampler.RuleMetropolis)
	}
}

// Params converts the request into sampler hyperparameters.
func (r *Request) Params() (sampler.Params, error) {
	rule, err := sampler.ParseRateRule(r.Rule)
	if err != nil {
		return sampler.Params{}, err
	}
	p := sampler.Params{
		Epsilon:       r.Epsilon,
		LeapfrogSteps: r.LeapfrogSteps,
		Rule:          rule,
	}
	if r.Beta != nil {
		p.Beta = *r.Beta
	}
	return p, p.Validate()
}

// Validate checks the shape of the run and caps its work at maxSamples.
// Every emitted value costs up to leapfrog_steps gradient evaluations, so the
// cap applies to dims × particles × steps × leapfrog_steps. maxSamples <= 0
// disables the cap.
func (r *Request) Validate(maxSamples int) error {
	if r.Dims < 1 {
		return fmt.Errorf("%w: dims must be >= 1, got %d", ErrInvalidRequest, r.Dims)
	}
	if r.Particles < 1 {
		return fmt.Errorf("%w: particles must be >= 1, got %d", ErrInvalidRequest, r.Particles)
	}
	if r.Steps < 1 {
		return fmt.Errorf("%w: steps must be >= 1, got %d", ErrInvalidRequest, r.Steps)
	}
	if r.LeapfrogSteps < 1 {
		return fmt.Errorf("%w: leapfrog steps must be >= 1, got %d", ErrInvalidRequest, r.LeapfrogSteps)
	}
	if maxSamples > 0 && !withinBudget(maxSamples, r.Dims, r.Particles, r.Steps, r.LeapfrogSteps) {
		return fmt.Errorf("%w: %d×%d×%d values with %d leapfrog steps exceed the limit of %d",
			ErrInvalidRequest, r.Dims, r.Particles, r.Steps, r.LeapfrogSteps, maxSamples)
	}
	if _, err := r.Params(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// withinBudget reports whether the product of the positive factors is at
// most budget. It divides instead of multiplying to avoid overflow.
func withinBudget(budget int, factors ...int) bool {
	rest := budget
	for _, f := range factors {
		if f > rest {
			return false
		}
		rest /= f
	}
	return true
}

// Run is a completed sampler run.
type Run struct {
	ID            string    `json:"id"`
	Distribution  string    `json:"distribution"`
	Dims          int       `json:"dims"`
	Particles     int       `json:"particles"`
	Steps         int       `json:"steps"`
	Epsilon       float64   `json:"epsilon"`
	Beta          float64   `json:"beta"`
	Param         float64   `json:"param"`
	LeapfrogSteps int       `json:"leapfrog_steps"`
	Rule          string    `json:"rule"`
	Seed          uint64    `json:"seed"`
	Summary       Summary   `json:"summary"`
	DurationMs    int64     `json:"duration_ms"`
	CreatedAt     time.Time `json:"created_at"`
}
