package dynamo

import (
	"errors"
	"math"
	"testing"
)

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		valid bool
	}{
		{"empty", State{}, true},
		{"normal", State{1.0, 2.0}, true},
		{"zeros", State{0.0, 0.0}, true},
		{"with NaN", State{1.0, math.NaN()}, false},
		{"with +Inf", State{1.0, math.Inf(1)}, false},
		{"with -Inf", State{1.0, math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestState_Arithmetic(t *testing.T) {
	a := State{1, 2}
	b := State{4, 6}

	sum := a.Add(b)
	if sum[0] != 5 || sum[1] != 8 {
		t.Errorf("Add failed: got %v", sum)
	}

	diff := b.Sub(a)
	if diff[0] != 3 || diff[1] != 4 {
		t.Errorf("Sub failed: got %v", diff)
	}
	if diff.Norm() != 5 {
		t.Errorf("Norm failed: got %v", diff.Norm())
	}

	scaled := a.Scale(2)
	if scaled[0] != 2 || scaled[1] != 4 {
		t.Errorf("Scale failed: got %v", scaled)
	}
}

type linear struct{}

func (linear) Dim() int { return 2 }
func (linear) Derive(x State, t float64) State {
	return State{x[1] + t, -x[0]}
}

func TestNegate(t *testing.T) {
	sys := linear{}
	neg := Negate(sys)

	got := neg.Derive(State{1, 2}, 3)
	// -F(x, -t) = -(2 - 3, -1)
	if got[0] != 1 || got[1] != 1 {
		t.Errorf("Negate derive = %v, want [1 1]", got)
	}
	if neg.Dim() != 2 {
		t.Errorf("Negate dim = %d", neg.Dim())
	}
	if _, ok := Negate(neg).(linear); !ok {
		t.Error("double negation should return the original system")
	}
}

func TestWindowValidate(t *testing.T) {
	tests := []struct {
		name string
		w    Window
		want error
	}{
		{"ok", Window{{-1, 1}, {-2, 2}}, nil},
		{"equal bounds", Window{{1, 1}, {-2, 2}}, ErrLimitMagnitude},
		{"inverted", Window{{-1, 1}, {2, -2}}, ErrLimitMagnitude},
		{"nan", Window{{math.NaN(), 1}, {-2, 2}}, ErrLimitType},
		{"inf", Window{{-1, 1}, {-2, math.Inf(1)}}, ErrLimitType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.w.Validate()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTimeBoundsValidate(t *testing.T) {
	tests := []struct {
		name    string
		f, r    float64
		wantErr error
	}{
		{"ok", 10, -10, nil},
		{"zero reverse", 10, 0, ErrLimitMagnitude},
		{"positive reverse", 10, 5, ErrLimitMagnitude},
		{"zero forward", 0, -5, ErrLimitMagnitude},
		{"nan forward", math.NaN(), -5, ErrLimitType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTimeBounds(tt.f, tt.r)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestIntervalPad(t *testing.T) {
	iv := Interval{Min: -1, Max: 1}.Pad(10)
	if iv.Min != -10 || iv.Max != 10 {
		t.Errorf("Pad(10) = %+v, want [-10, 10]", iv)
	}
}

func TestTrajectoryReversed(t *testing.T) {
	tr := &Trajectory{
		Seed:   State{0},
		Times:  []float64{0, 0.5, 1},
		States: []State{{0}, {1}, {2}},
	}
	rev := tr.Reversed()
	wantT := []float64{-1, -0.5, 0}
	for i := range wantT {
		if rev.Times[i] != wantT[i] {
			t.Errorf("time[%d] = %v, want %v", i, rev.Times[i], wantT[i])
		}
	}
	if rev.States[0][0] != 2 || rev.States[2][0] != 0 {
		t.Errorf("states not reversed: %v", rev.States)
	}

	pts := rev.PlanePoints()
	if pts[0] != [2]float64{-1, 2} {
		t.Errorf("1D plane point = %v, want (t, x)", pts[0])
	}
}

func TestConfigErrorUnwrap(t *testing.T) {
	err := &ConfigError{Kind: ErrParameterType, Field: "a", Value: "abc"}
	if !errors.Is(err, ErrParameterType) {
		t.Error("ConfigError should unwrap to its kind")
	}
	if err.Error() == "" {
		t.Error("empty error message")
	}
}

func TestTerminationText(t *testing.T) {
	for c := Completed; c <= MaxStepsReached; c++ {
		text, err := c.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var back Termination
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("%s: %v", text, err)
		}
		if back != c {
			t.Errorf("%s decoded as %v", text, back)
		}
	}
	var bad Termination
	if err := bad.UnmarshalText([]byte("exploded")); err == nil {
		t.Error("expected error for unknown termination")
	}
}
