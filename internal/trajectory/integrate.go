package trajectory

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/san-kum/phaseplane/internal/dynamo"
	"github.com/san-kum/phaseplane/internal/integrators"
)

const (
	// PaddingFactor scales the axes window into the region a trajectory may
	// wander before it is cut off.
	PaddingFactor = 10.0
	// MaxSteps bounds the attempted steps of one branch.
	MaxSteps = 100000
	// MaxStepFraction caps the step size as a fraction of the time span so
	// curves stay smooth when plotted.
	MaxStepFraction = 1.0 / 200
	// MinStepFraction is the step size, relative to the span, below which
	// the integrator gives up.
	MinStepFraction = 1e-12
)

// Options tunes an integration run. The zero value integrates with the
// default adaptive stepper and no window bound.
type Options struct {
	Method string
	// Window, when set, stops a branch once it leaves the window padded by
	// Padding (PaddingFactor when zero).
	Window  *dynamo.Window
	Padding float64
}

// Integrate runs sys forward from t=0 to bounds.Forward and backward from
// t=0 to bounds.Reverse, starting both branches at seed.
func Integrate(sys dynamo.System, seed dynamo.State, bounds dynamo.TimeBounds, opts Options) (*dynamo.Pair, error) {
	if err := validate(sys, seed, bounds, opts); err != nil {
		return nil, err
	}

	fwdStepper, err := integrators.New(opts.Method)
	if err != nil {
		return nil, err
	}
	bwdStepper, _ := integrators.New(opts.Method)

	inside := bound(sys.Dim(), opts)

	forward := run(sys, fwdStepper, seed, bounds.Forward, inside)
	// Backward in time under F is forward in time under -F(x, -t).
	backward := run(dynamo.Negate(sys), bwdStepper, seed, -bounds.Reverse, inside).Reversed()

	return &dynamo.Pair{Seed: seed.Clone(), Forward: forward, Backward: backward}, nil
}

// Forward integrates only the forward branch, from t=0 to tEnd.
func Forward(sys dynamo.System, seed dynamo.State, tEnd float64, opts Options) (*dynamo.Trajectory, error) {
	if err := validate(sys, seed, dynamo.TimeBounds{Forward: tEnd, Reverse: -tEnd}, opts); err != nil {
		return nil, err
	}
	stepper, err := integrators.New(opts.Method)
	if err != nil {
		return nil, err
	}
	return run(sys, stepper, seed, tEnd, bound(sys.Dim(), opts)), nil
}

// IntegrateAll integrates every seed concurrently. Results keep the order
// of seeds.
func IntegrateAll(ctx context.Context, sys dynamo.System, seeds []dynamo.State, bounds dynamo.TimeBounds, opts Options) ([]*dynamo.Pair, error) {
	results := make([]*dynamo.Pair, len(seeds))
	errs := make([]error, len(seeds))

	var wg sync.WaitGroup
	for i := range seeds {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				errs[idx] = ctx.Err()
				return
			default:
			}

			results[idx], errs[idx] = Integrate(sys, seeds[idx], bounds, opts)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}

func validate(sys dynamo.System, seed dynamo.State, bounds dynamo.TimeBounds, opts Options) error {
	if len(seed) != sys.Dim() {
		return fmt.Errorf("%w: seed has %d components, system has %d", dynamo.ErrDimensionMismatch, len(seed), sys.Dim())
	}
	if err := bounds.Validate(); err != nil {
		return err
	}
	if opts.Window != nil {
		if err := opts.Window.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// bound returns the padded-window membership test for states, or nil when
// the run is unbounded. One-dimensional systems are bounded on the
// coordinate axis (window axis 1) only.
func bound(dim int, opts Options) func(dynamo.State) bool {
	if opts.Window == nil {
		return nil
	}
	pad := opts.Padding
	if pad <= 0 {
		pad = PaddingFactor
	}
	x := opts.Window[0].Pad(pad)
	y := opts.Window[1].Pad(pad)

	if dim == 1 {
		return func(s dynamo.State) bool { return y.Contains(s[0]) }
	}
	return func(s dynamo.State) bool { return x.Contains(s[0]) && y.Contains(s[1]) }
}

func run(sys dynamo.System, stepper integrators.Stepper, seed dynamo.State, tEnd float64, inside func(dynamo.State) bool) *dynamo.Trajectory {
	hMax := tEnd * MaxStepFraction
	hMin := tEnd * MinStepFraction

	x := seed.Clone()
	t := 0.0
	h := hMax

	tr := &dynamo.Trajectory{
		Seed:   seed.Clone(),
		Times:  []float64{0},
		States: []dynamo.State{x.Clone()},
	}

	if !x.IsValid() {
		tr.Termination = dynamo.NonFinite
		return tr
	}
	if inside != nil && !inside(x) {
		tr.Termination = dynamo.LeftWindow
		return tr
	}

	for {
		remaining := tEnd - t
		if remaining <= hMin {
			tr.Termination = dynamo.Completed
			return tr
		}
		if tr.Stats.Steps+tr.Stats.Rejected >= MaxSteps {
			tr.Termination = dynamo.MaxStepsReached
			return tr
		}

		last := h >= remaining
		if last {
			h = remaining
		}

		next, errNorm := stepper.Attempt(sys, x, t, h)
		tr.Stats.Evaluations += stepper.Evaluations()

		if !next.IsValid() || math.IsNaN(errNorm) {
			// A smaller step may still stay on the finite side of a singularity.
			if !stepper.Adaptive() || h*0.2 < hMin {
				tr.Termination = dynamo.NonFinite
				return tr
			}
			tr.Stats.Rejected++
			h *= 0.2
			continue
		}

		if errNorm > 1 {
			tr.Stats.Rejected++
			h = stepper.Propose(h, errNorm)
			if h < hMin {
				tr.Termination = dynamo.StepUnderflow
				return tr
			}
			continue
		}

		if last {
			t = tEnd
		} else {
			t += h
		}
		x = next
		tr.Stats.Steps++
		tr.Times = append(tr.Times, t)
		tr.States = append(tr.States, x.Clone())

		if inside != nil && !inside(x) {
			tr.Termination = dynamo.LeftWindow
			return tr
		}

		h = math.Min(stepper.Propose(h, errNorm), hMax)
	}
}
