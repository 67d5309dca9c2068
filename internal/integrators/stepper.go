package integrators

import "github.com/san-kum/phaseplane/internal/dynamo"

// Default error tolerances for adaptive steppers.
const (
	DefaultAbsTol = 1e-9
	DefaultRelTol = 1e-7
)

// Stepper advances a state by one trial step. Adaptive steppers report a
// scaled error norm where values <= 1 mean the step is acceptable; fixed
// step methods always report 0.
type Stepper interface {
	Name() string
	Adaptive() bool
	// Evaluations is the number of derivative calls one Attempt makes.
	Evaluations() int
	Attempt(sys dynamo.System, x dynamo.State, t, dt float64) (next dynamo.State, errNorm float64)
	// Propose returns the step size to try after an attempt of size dt
	// that produced errNorm.
	Propose(dt, errNorm float64) float64
}
