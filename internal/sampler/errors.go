package sampler

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned synchronously by New and Sample for bad
	// hyperparameters, shapes or initial positions. No sampler is produced.
	ErrInvalidConfig = errors.New("invalid sampler configuration")

	// ErrNumerical marks a fatal numerical domain failure mid-run.
	ErrNumerical = errors.New("numerical domain failure")
)

// NumericalError reports the particle and step at which every operator
// produced a non-finite result. The dynamics have left the energy's domain
// and there is no valid recovery.
type NumericalError struct {
	Particle int
	Step     int
	Reason   string
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("%s: particle %d at step %d: %s", ErrNumerical, e.Particle, e.Step, e.Reason)
}

// Unwrap lets callers match with errors.Is(err, ErrNumerical).
func (e *NumericalError) Unwrap() error {
	return ErrNumerical
}

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
