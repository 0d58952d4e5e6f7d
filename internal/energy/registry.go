package energy

import (
	"fmt"
	"sort"
)

// constructor builds a distribution from its dimensionality and its single
// shape parameter (sigma for gaussian, scale for funnel).
type constructor func(dims int, param float64) (Distribution, error)

var registry = map[string]constructor{
	"gaussian": func(dims int, param float64) (Distribution, error) {
		return NewGaussian(dims, param)
	},
	"funnel": func(dims int, param float64) (Distribution, error) {
		return NewFunnel(dims, param)
	},
}

// Lookup builds the named distribution. A zero param selects 1.
func Lookup(name string, dims int, param float64) (Distribution, error) {
	build, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown distribution %q", name)
	}
	if param == 0 {
		param = 1
	}
	return build(dims, param)
}

// Names lists the registered distributions in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
