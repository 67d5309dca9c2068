package automation

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/phaseplane/internal/analysis"
	"github.com/san-kum/phaseplane/internal/dynamo"
	"github.com/san-kum/phaseplane/internal/equations"
	"github.com/san-kum/phaseplane/internal/trajectory"
)

// ParameterSweep steps one parameter across a range and classifies the
// equilibria at every value.
type ParameterSweep struct {
	Param    string  `yaml:"param"`
	Min      float64 `yaml:"min"`
	Max      float64 `yaml:"max"`
	NumSteps int     `yaml:"steps"`
}

// LoadSweep reads a sweep definition from YAML.
func LoadSweep(path string) (*ParameterSweep, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sweep ParameterSweep
	if err := yaml.Unmarshal(data, &sweep); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &sweep, nil
}

func (s *ParameterSweep) Validate(sys *equations.System) error {
	if _, ok := sys.Params()[s.Param]; !ok {
		return &dynamo.ConfigError{Kind: dynamo.ErrParameterValidity, Field: "param", Value: s.Param, Msg: "not a parameter of the system"}
	}
	if s.NumSteps < 2 {
		return fmt.Errorf("sweep needs at least 2 steps, got %d", s.NumSteps)
	}
	if math.IsNaN(s.Min) || math.IsNaN(s.Max) || math.IsInf(s.Min, 0) || math.IsInf(s.Max, 0) {
		return &dynamo.ConfigError{Kind: dynamo.ErrLimitType, Field: "range", Value: [2]float64{s.Min, s.Max}, Msg: "must be finite"}
	}
	return nil
}

// Values lists the swept parameter values, both ends included.
func (s *ParameterSweep) Values() []float64 {
	return floats.Span(make([]float64, s.NumSteps), s.Min, s.Max)
}

// SweepResult holds the equilibria found at one parameter value.
type SweepResult struct {
	Value       float64               `json:"value"`
	FixedPoints []analysis.FixedPoint `json:"fixed_points"`
}

// Signature summarizes the equilibria as kind counts, in kind order.
func (r SweepResult) Signature() string {
	counts := map[analysis.Kind]int{}
	for _, fp := range r.FixedPoints {
		counts[fp.Kind]++
	}
	sig := ""
	for k := analysis.Degenerate; k <= analysis.Unstable; k++ {
		if counts[k] == 0 {
			continue
		}
		if sig != "" {
			sig += ", "
		}
		sig += fmt.Sprintf("%d %s", counts[k], k)
	}
	if sig == "" {
		return "none"
	}
	return sig
}

// RunSweep analyses sys at each swept value. Other parameters keep their
// current values.
func RunSweep(ctx context.Context, sys *equations.System, window dynamo.Window, sweep *ParameterSweep, opts analysis.Options) ([]SweepResult, error) {
	if err := sweep.Validate(sys); err != nil {
		return nil, err
	}
	base := map[string]any{}
	for name, v := range sys.Params() {
		base[name] = v
	}

	results := make([]SweepResult, 0, sweep.NumSteps)
	for _, value := range sweep.Values() {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		base[sweep.Param] = value
		variant, err := sys.WithParams(base)
		if err != nil {
			return results, err
		}
		fps, err := analysis.FixedPoints(variant, window, opts)
		if err != nil {
			return results, fmt.Errorf("%s=%g: %w", sweep.Param, value, err)
		}
		results = append(results, SweepResult{Value: value, FixedPoints: fps})
	}
	return results, nil
}

// Transition marks adjacent sweep values whose equilibria differ in number
// or kind; a bifurcation lies between them.
type Transition struct {
	From, To float64
	Before   string
	After    string
}

func Transitions(results []SweepResult) []Transition {
	var out []Transition
	for i := 1; i < len(results); i++ {
		before, after := results[i-1].Signature(), results[i].Signature()
		if before != after {
			out = append(out, Transition{
				From:   results[i-1].Value,
				To:     results[i].Value,
				Before: before,
				After:  after,
			})
		}
	}
	return out
}

// BasinSample integrates randomly placed seeds forward and reports where
// each one ends up.
type BasinSample struct {
	NumTrials int
	Seed      int64
	Method    string
	// Horizon is the forward integration time.
	Horizon float64
	// Tol is the distance within which a final state counts as having
	// reached an equilibrium; zero means 1% of the window diagonal.
	Tol float64
}

// BasinResult is one trial. Attractor indexes the fixed point slice passed
// to RunBasins, or is -1 when the trajectory settled nowhere known.
type BasinResult struct {
	TrialID     int
	InitState   dynamo.State
	FinalState  dynamo.State
	Termination dynamo.Termination
	Attractor   int
}

// RunBasins samples the window uniformly and assigns every trial to the
// stable equilibrium it approaches. For one-dimensional systems seeds vary
// along the coordinate axis only.
func RunBasins(ctx context.Context, sys dynamo.System, window dynamo.Window, fps []analysis.FixedPoint, cfg BasinSample) ([]BasinResult, error) {
	if cfg.NumTrials <= 0 {
		return nil, fmt.Errorf("basin sampling needs at least one trial, got %d", cfg.NumTrials)
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	tol := cfg.Tol
	if tol <= 0 {
		tol = 0.01 * math.Hypot(window[0].Span(), window[1].Span())
	}

	seeds := make([]dynamo.State, cfg.NumTrials)
	for i := range seeds {
		if sys.Dim() == 1 {
			seeds[i] = dynamo.State{window[1].Min + rng.Float64()*window[1].Span()}
			continue
		}
		seeds[i] = dynamo.State{
			window[0].Min + rng.Float64()*window[0].Span(),
			window[1].Min + rng.Float64()*window[1].Span(),
		}
	}

	opts := trajectory.Options{Method: cfg.Method, Window: &window}
	results := make([]BasinResult, len(seeds))
	errs := make([]error, len(seeds))
	dynamo.ParallelFor(len(seeds), 8, func(start, end int) {
		for i := start; i < end; i++ {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			fwd, err := trajectory.Forward(sys, seeds[i], cfg.Horizon, opts)
			if err != nil {
				errs[i] = err
				return
			}
			final := fwd.States[fwd.Len()-1]
			results[i] = BasinResult{
				TrialID:     i,
				InitState:   seeds[i],
				FinalState:  final,
				Termination: fwd.Termination,
				Attractor:   nearestStable(fps, final, tol),
			}
		}
	})

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

func nearestStable(fps []analysis.FixedPoint, x dynamo.State, tol float64) int {
	best, bestDist := -1, tol
	for i, fp := range fps {
		if !fp.Kind.IsStable() || len(fp.State) != len(x) {
			continue
		}
		d := 0.0
		for j := range x {
			d += (x[j] - fp.State[j]) * (x[j] - fp.State[j])
		}
		if d = math.Sqrt(d); d <= bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// BasinStats counts trials per attractor index; unsettled trials are
// counted under -1.
func BasinStats(results []BasinResult) map[int]int {
	counts := make(map[int]int)
	for _, r := range results {
		counts[r.Attractor]++
	}
	return counts
}
