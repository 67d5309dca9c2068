package trajectory

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/san-kum/phaseplane/internal/dynamo"
)

type oscillator struct{}

func (oscillator) Dim() int { return 2 }
func (oscillator) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

type growth struct{}

func (growth) Dim() int { return 2 }
func (growth) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{x[0], 0}
}

type scalar func(x, t float64) float64

func (f scalar) Dim() int { return 1 }
func (f scalar) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{f(x[0], t)}
}

func mustBounds(t *testing.T, fwd, rev float64) dynamo.TimeBounds {
	t.Helper()
	b, err := dynamo.NewTimeBounds(fwd, rev)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestIntegrate_Oscillator(t *testing.T) {
	bounds := mustBounds(t, 2*math.Pi, -2*math.Pi)
	pair, err := Integrate(oscillator{}, dynamo.State{1, 0}, bounds, Options{})
	if err != nil {
		t.Fatal(err)
	}

	fwd, bwd := pair.Forward, pair.Backward
	if fwd.Termination != dynamo.Completed || bwd.Termination != dynamo.Completed {
		t.Fatalf("terminations: forward %v, backward %v", fwd.Termination, bwd.Termination)
	}

	end := fwd.States[fwd.Len()-1]
	if math.Abs(end[0]-1) > 1e-5 || math.Abs(end[1]) > 1e-5 {
		t.Errorf("forward orbit did not close: %v", end)
	}
	if fwd.Times[0] != 0 || fwd.Times[fwd.Len()-1] != 2*math.Pi {
		t.Errorf("forward time range [%v, %v]", fwd.Times[0], fwd.Times[fwd.Len()-1])
	}

	if bwd.Times[0] != -2*math.Pi || bwd.Times[bwd.Len()-1] != 0 {
		t.Errorf("backward time range [%v, %v]", bwd.Times[0], bwd.Times[bwd.Len()-1])
	}
	if !reflect.DeepEqual(bwd.States[bwd.Len()-1], dynamo.State{1, 0}) {
		t.Errorf("backward branch does not end at the seed: %v", bwd.States[bwd.Len()-1])
	}
	// x(t) = cos t, y(t) = -sin t, so at t = -pi/2 the state is (0, 1).
	for k, tk := range bwd.Times {
		want := dynamo.State{math.Cos(tk), -math.Sin(tk)}
		if bwd.States[k].Sub(want).Norm() > 1e-5 {
			t.Fatalf("backward sample at t=%v: got %v, want %v", tk, bwd.States[k], want)
		}
	}

	for _, tr := range []*dynamo.Trajectory{fwd, bwd} {
		for k := 1; k < tr.Len(); k++ {
			if tr.Times[k] <= tr.Times[k-1] {
				t.Fatalf("times not increasing at %d: %v <= %v", k, tr.Times[k], tr.Times[k-1])
			}
		}
		if tr.Len() < 200 {
			t.Errorf("expected at least 200 samples, got %d", tr.Len())
		}
	}
}

func TestIntegrate_Deterministic(t *testing.T) {
	bounds := mustBounds(t, 10, -10)
	seed := dynamo.State{0.3, -0.7}

	a, err := Integrate(oscillator{}, seed, bounds, Options{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Integrate(oscillator{}, seed, bounds, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("identical calls produced different trajectories")
	}
}

func TestIntegrate_BackwardIsReversedForwardOfNegatedField(t *testing.T) {
	field := scalar(func(x, t float64) float64 { return math.Sin(x) + 0.5*x })
	bounds := mustBounds(t, 3, -3)
	seed := dynamo.State{0.4}

	pair, err := Integrate(field, seed, bounds, Options{})
	if err != nil {
		t.Fatal(err)
	}
	neg, err := Integrate(dynamo.Negate(field), seed, bounds, Options{})
	if err != nil {
		t.Fatal(err)
	}

	want := neg.Forward.Reversed()
	if !reflect.DeepEqual(pair.Backward.Times, want.Times) {
		t.Fatal("backward times differ from reversed forward times of -F")
	}
	if !reflect.DeepEqual(pair.Backward.States, want.States) {
		t.Fatal("backward states differ from reversed forward states of -F")
	}
}

func TestIntegrate_LeavesPaddedWindow(t *testing.T) {
	window, err := dynamo.NewWindow(dynamo.Interval{Min: -1, Max: 1}, dynamo.Interval{Min: -1, Max: 1})
	if err != nil {
		t.Fatal(err)
	}
	bounds := mustBounds(t, 10, -10)

	pair, err := Integrate(growth{}, dynamo.State{1, 0}, bounds, Options{Window: &window})
	if err != nil {
		t.Fatal(err)
	}

	fwd := pair.Forward
	if fwd.Termination != dynamo.LeftWindow {
		t.Fatalf("forward termination = %v, want %v", fwd.Termination, dynamo.LeftWindow)
	}
	last := fwd.States[fwd.Len()-1]
	if last[0] <= 10 {
		t.Errorf("last sample should be outside the padded window, got %v", last)
	}
	if tEnd := fwd.Times[fwd.Len()-1]; tEnd > 3 {
		t.Errorf("exit time %v, expected near ln(10)", tEnd)
	}

	if pair.Backward.Termination != dynamo.Completed {
		t.Errorf("decaying backward branch should complete, got %v", pair.Backward.Termination)
	}
}

func TestIntegrate_OneDimensionalWindow(t *testing.T) {
	window, err := dynamo.NewWindow(dynamo.Interval{Min: -5, Max: 5}, dynamo.Interval{Min: -10, Max: 10})
	if err != nil {
		t.Fatal(err)
	}
	bounds := mustBounds(t, 5, -5)
	field := scalar(func(x, t float64) float64 { return x })

	pair, err := Integrate(field, dynamo.State{1}, bounds, Options{Window: &window})
	if err != nil {
		t.Fatal(err)
	}
	if pair.Forward.Termination != dynamo.LeftWindow {
		t.Errorf("forward termination = %v", pair.Forward.Termination)
	}

	pts := pair.Forward.PlanePoints()
	if pts[0] != [2]float64{0, 1} {
		t.Errorf("first plane point = %v, want (0, 1)", pts[0])
	}
}

func TestIntegrate_NonFinite(t *testing.T) {
	bounds := mustBounds(t, 1, -1)
	logField := scalar(func(x, t float64) float64 { return math.Log(x) })

	pair, err := Integrate(logField, dynamo.State{-1}, bounds, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if pair.Forward.Termination != dynamo.NonFinite {
		t.Errorf("termination = %v, want %v", pair.Forward.Termination, dynamo.NonFinite)
	}
	if pair.Forward.Len() != 1 {
		t.Errorf("expected only the seed sample, got %d", pair.Forward.Len())
	}

	pair, err = Integrate(oscillator{}, dynamo.State{math.NaN(), 0}, bounds, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if pair.Forward.Termination != dynamo.NonFinite {
		t.Errorf("NaN seed termination = %v", pair.Forward.Termination)
	}
}

func TestIntegrate_FixedStepRK4(t *testing.T) {
	bounds := mustBounds(t, 1, -1)
	pair, err := Integrate(oscillator{}, dynamo.State{1, 0}, bounds, Options{Method: "rk4"})
	if err != nil {
		t.Fatal(err)
	}
	fwd := pair.Forward
	if fwd.Stats.Steps != 200 {
		t.Errorf("steps = %d, want 200", fwd.Stats.Steps)
	}
	if fwd.Stats.Evaluations != 4*fwd.Stats.Steps {
		t.Errorf("evaluations = %d, want %d", fwd.Stats.Evaluations, 4*fwd.Stats.Steps)
	}
	if fwd.Stats.Rejected != 0 {
		t.Errorf("fixed step rejected %d steps", fwd.Stats.Rejected)
	}
}

func TestIntegrate_Errors(t *testing.T) {
	bounds := mustBounds(t, 1, -1)

	tests := []struct {
		name   string
		seed   dynamo.State
		bounds dynamo.TimeBounds
		opts   Options
		want   error
	}{
		{"seed dimension", dynamo.State{1}, bounds, Options{}, dynamo.ErrDimensionMismatch},
		{"reverse not negative", dynamo.State{1, 0}, dynamo.TimeBounds{Forward: 1, Reverse: 0}, Options{}, dynamo.ErrLimitMagnitude},
		{"forward not positive", dynamo.State{1, 0}, dynamo.TimeBounds{Forward: -1, Reverse: -1}, Options{}, dynamo.ErrLimitMagnitude},
		{"inverted window", dynamo.State{1, 0}, bounds, Options{Window: &dynamo.Window{{Min: 1, Max: -1}, {Min: -1, Max: 1}}}, dynamo.ErrLimitMagnitude},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Integrate(oscillator{}, tt.seed, tt.bounds, tt.opts)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := Integrate(oscillator{}, dynamo.State{1, 0}, bounds, Options{Method: "leapfrog"}); err == nil {
		t.Error("expected unknown method error")
	}
}

func TestIntegrateAll(t *testing.T) {
	bounds := mustBounds(t, 2, -2)
	seeds := []dynamo.State{{1, 0}, {0, 1}, {-2, 0.5}}

	pairs, err := IntegrateAll(context.Background(), oscillator{}, seeds, bounds, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(pairs) != len(seeds) {
		t.Fatalf("got %d pairs, want %d", len(pairs), len(seeds))
	}
	for i, seed := range seeds {
		single, err := Integrate(oscillator{}, seed, bounds, Options{})
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(pairs[i], single) {
			t.Errorf("pair %d differs from a single integration", i)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := IntegrateAll(ctx, oscillator{}, seeds, bounds, Options{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestForward_MatchesIntegrate(t *testing.T) {
	seed := dynamo.State{1, 0}
	pair, err := Integrate(oscillator{}, seed, mustBounds(t, 3, -1), Options{})
	if err != nil {
		t.Fatal(err)
	}
	fwd, err := Forward(oscillator{}, seed, 3, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(fwd, pair.Forward) {
		t.Error("Forward differs from the forward branch of Integrate")
	}

	if _, err := Forward(oscillator{}, seed, -1, Options{}); !errors.Is(err, dynamo.ErrLimitMagnitude) {
		t.Errorf("negative horizon: got %v", err)
	}
}
