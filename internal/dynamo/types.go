package dynamo

import (
	"fmt"
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// System is a vector field F(x, t). Derive must be pure: it may be called
// thousands of times per trajectory and from several readers at once.
type System interface {
	Derive(x State, t float64) State
	Dim() int
}

// Negate returns the field -F(x, -t). Integrating it forward over |t| is
// the same as integrating F backward.
func Negate(sys System) System {
	if n, ok := sys.(negated); ok {
		return n.inner
	}
	return negated{inner: sys}
}

type negated struct {
	inner System
}

func (n negated) Dim() int { return n.inner.Dim() }

func (n negated) Derive(x State, t float64) State {
	dx := n.inner.Derive(x, -t)
	for i := range dx {
		dx[i] = -dx[i]
	}
	return dx
}

// Interval is a closed range [Min, Max] with Min < Max.
type Interval struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

func (iv Interval) Span() float64 { return iv.Max - iv.Min }

func (iv Interval) Contains(v float64) bool { return v >= iv.Min && v <= iv.Max }

// Pad grows the interval symmetrically so its span becomes factor times
// the original span.
func (iv Interval) Pad(factor float64) Interval {
	extra := (factor - 1) * iv.Span() / 2
	return Interval{Min: iv.Min - extra, Max: iv.Max + extra}
}

// Window is the rectangular display domain. Axis 0 is the horizontal axis
// and axis 1 the vertical one. For one-dimensional systems axis 0 is time
// and axis 1 is the single phase coordinate.
type Window [2]Interval

func NewWindow(x, y Interval) (Window, error) {
	w := Window{x, y}
	if err := w.Validate(); err != nil {
		return Window{}, err
	}
	return w, nil
}

func (w Window) Validate() error {
	for i, iv := range w {
		if math.IsNaN(iv.Min) || math.IsNaN(iv.Max) || math.IsInf(iv.Min, 0) || math.IsInf(iv.Max, 0) {
			return &ConfigError{Kind: ErrLimitType, Field: axisField(i), Value: iv, Msg: "axis bounds must be finite"}
		}
		if iv.Min >= iv.Max {
			return &ConfigError{Kind: ErrLimitMagnitude, Field: axisField(i), Value: iv,
				Msg: fmt.Sprintf("min (%g) must be less than max (%g)", iv.Min, iv.Max)}
		}
	}
	return nil
}

func (w Window) Contains(p [2]float64) bool {
	return w[0].Contains(p[0]) && w[1].Contains(p[1])
}

func axisField(i int) string { return fmt.Sprintf("axes_limits[%d]", i) }

// TimeBounds holds how far integration advances (Forward > 0) and
// retreats (Reverse < 0) from t = 0.
type TimeBounds struct {
	Forward float64 `json:"t_f" yaml:"t_f"`
	Reverse float64 `json:"t_r" yaml:"t_r"`
}

func NewTimeBounds(forward, reverse float64) (TimeBounds, error) {
	tb := TimeBounds{Forward: forward, Reverse: reverse}
	if err := tb.Validate(); err != nil {
		return TimeBounds{}, err
	}
	return tb, nil
}

func (tb TimeBounds) Validate() error {
	if math.IsNaN(tb.Forward) || math.IsInf(tb.Forward, 0) {
		return &ConfigError{Kind: ErrLimitType, Field: "t_f", Value: tb.Forward, Msg: "must be finite"}
	}
	if math.IsNaN(tb.Reverse) || math.IsInf(tb.Reverse, 0) {
		return &ConfigError{Kind: ErrLimitType, Field: "t_r", Value: tb.Reverse, Msg: "must be finite"}
	}
	if tb.Forward <= 0 {
		return &ConfigError{Kind: ErrLimitMagnitude, Field: "t_f", Value: tb.Forward, Msg: "must be positive"}
	}
	if tb.Reverse >= 0 {
		return &ConfigError{Kind: ErrLimitMagnitude, Field: "t_r", Value: tb.Reverse, Msg: "must be negative"}
	}
	return nil
}

type Termination int

const (
	Completed Termination = iota
	LeftWindow
	NonFinite
	StepUnderflow
	MaxStepsReached
)

func (t Termination) String() string {
	switch t {
	case Completed:
		return "completed"
	case LeftWindow:
		return "left window"
	case NonFinite:
		return "non-finite derivative"
	case StepUnderflow:
		return "step size underflow"
	case MaxStepsReached:
		return "step limit reached"
	}
	return fmt.Sprintf("termination(%d)", int(t))
}

func (t Termination) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Termination) UnmarshalText(text []byte) error {
	for c := Completed; c <= MaxStepsReached; c++ {
		if c.String() == string(text) {
			*t = c
			return nil
		}
	}
	return fmt.Errorf("dynamo: unknown termination %q", text)
}

type Stats struct {
	Steps       int `json:"steps"`
	Rejected    int `json:"rejected"`
	Evaluations int `json:"evaluations"`
}

// Trajectory is a time-ordered sequence of samples produced by a single
// integration call. Times and States have equal length.
type Trajectory struct {
	Seed        State       `json:"seed"`
	Times       []float64   `json:"times"`
	States      []State     `json:"states"`
	Termination Termination `json:"termination"`
	Stats       Stats       `json:"stats"`
}

func (tr *Trajectory) Len() int { return len(tr.Times) }

// Component returns the time series of coordinate i.
func (tr *Trajectory) Component(i int) []float64 {
	out := make([]float64, len(tr.States))
	for k, s := range tr.States {
		out[k] = s[i]
	}
	return out
}

// PlanePoints projects the samples onto the display plane: (x0, x1) for
// two coordinates, (t, x0) for one.
func (tr *Trajectory) PlanePoints() [][2]float64 {
	pts := make([][2]float64, len(tr.States))
	for k, s := range tr.States {
		if len(s) == 1 {
			pts[k] = [2]float64{tr.Times[k], s[0]}
		} else {
			pts[k] = [2]float64{s[0], s[1]}
		}
	}
	return pts
}

// Reversed returns a copy with the sample order reversed and every time
// negated, turning a forward run of -F into a backward run of F.
func (tr *Trajectory) Reversed() *Trajectory {
	n := len(tr.Times)
	out := &Trajectory{
		Seed:        tr.Seed.Clone(),
		Times:       make([]float64, n),
		States:      make([]State, n),
		Termination: tr.Termination,
		Stats:       tr.Stats,
	}
	for k := 0; k < n; k++ {
		out.Times[k] = -tr.Times[n-1-k]
		out.States[k] = tr.States[n-1-k].Clone()
	}
	return out
}

// Pair holds both branches integrated from one seed.
type Pair struct {
	Seed     State       `json:"seed"`
	Forward  *Trajectory `json:"forward"`
	Backward *Trajectory `json:"backward"`
}
