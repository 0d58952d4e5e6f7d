package testing

import (
	"sync"

	"github.com/aristath/mjhmc/internal/energy"
	"gonum.org/v1/gonum/mat"
)

// CountingOracle wraps an energy.Oracle and records every batch it is asked
// to evaluate.
type CountingOracle struct {
	energy.Oracle

	mu            sync.Mutex
	energyCalls   int
	gradientCalls int
	batchSizes    []int
}

// NewCountingOracle wraps o.
func NewCountingOracle(o energy.Oracle) *CountingOracle {
	return &CountingOracle{Oracle: o}
}

// Energy records the call and delegates.
func (c *CountingOracle) Energy(x mat.Matrix) []float64 {
	_, n := x.Dims()
	c.mu.Lock()
	c.energyCalls++
	c.batchSizes = append(c.batchSizes, n)
	c.mu.Unlock()
	return c.Oracle.Energy(x)
}

// Gradient records the call and delegates.
func (c *CountingOracle) Gradient(x mat.Matrix) *mat.Dense {
	c.mu.Lock()
	c.gradientCalls++
	c.mu.Unlock()
	return c.Oracle.Gradient(x)
}

// Calls returns the number of Energy and Gradient calls so far.
func (c *CountingOracle) Calls() (energyCalls, gradientCalls int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.energyCalls, c.gradientCalls
}

// BatchSizes returns the number of columns of every Energy call, in order.
func (c *CountingOracle) BatchSizes() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.batchSizes...)
}

// Reset clears the counters.
func (c *CountingOracle) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.energyCalls, c.gradientCalls = 0, 0
	c.batchSizes = nil
}
