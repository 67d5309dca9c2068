package integrators

import (
	"fmt"
	"sort"
)

// Default is the stepper used when no method is named.
const Default = "rk45"

var registry = map[string]func() Stepper{
	"rk45": func() Stepper { return NewRK45() },
	"rk4":  func() Stepper { return NewRK4() },
}

// New returns a fresh stepper by name. Steppers may hold scratch buffers,
// so each integration run gets its own instance.
func New(name string) (Stepper, error) {
	if name == "" {
		name = Default
	}
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
