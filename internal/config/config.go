package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/phaseplane/internal/dynamo"
	"github.com/san-kum/phaseplane/internal/equations"
	"github.com/san-kum/phaseplane/internal/field"
	"github.com/san-kum/phaseplane/internal/integrators"
	"github.com/san-kum/phaseplane/internal/nullcline"
)

const (
	DefaultTF        = 10.0
	DefaultTR        = -10.0
	DefaultLimit     = 10.0
	DefaultExpansion = field.DefaultExpansion
)

// Config is the external configuration record. Parameter values, time
// bounds and axis limits stay untyped so text from YAML or flags reaches
// Build unconverted; Build reports what cannot be coerced.
type Config struct {
	Coords     []string       `yaml:"system_coords"`
	Exprs      []string       `yaml:"ode_expr_strings"`
	Params     map[string]any `yaml:"params"`
	TF         any            `yaml:"t_f"`
	TR         any            `yaml:"t_r"`
	AxesLimits [][]any        `yaml:"axes_limits"`

	Resolution          field.Resolution `yaml:"resolution"`
	QuiverExpansion     float64          `yaml:"quiver_expansion"`
	Nullclines          bool             `yaml:"nullclines"`
	NullclineResolution int              `yaml:"nullcline_resolution"`
	Method              string           `yaml:"method"`
	Seeds               [][]float64      `yaml:"seeds,omitempty"`
}

// Setup is a validated, typed configuration ready for the phase model.
type Setup struct {
	System *equations.System
	Window dynamo.Window
	Bounds dynamo.TimeBounds
	Seeds  []dynamo.State
}

func DefaultConfig() *Config {
	return &Config{
		Coords: []string{"x", "y"},
		Exprs: []string{
			"ax - y + b(x^2-y^2) + axy",
			"x - cy - d(x^2-y^2) + cxy",
		},
		Params:              map[string]any{"a": 2, "b": 3, "c": 3, "d": 3},
		TF:                  DefaultTF,
		TR:                  DefaultTR,
		AxesLimits:          [][]any{{-DefaultLimit, DefaultLimit}, {-DefaultLimit, DefaultLimit}},
		Resolution:          field.DefaultResolution,
		QuiverExpansion:     DefaultExpansion,
		NullclineResolution: nullcline.DefaultResolution,
		Method:              integrators.Default,
	}
}

// Load reads a YAML config. Keys missing from the file take their
// defaults; a file that names no system gets the default system.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.fillDefaults()
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if len(c.Coords) == 0 && len(c.Exprs) == 0 {
		c.Coords, c.Exprs = def.Coords, def.Exprs
		if c.Params == nil {
			c.Params = def.Params
		}
	}
	if c.TF == nil {
		c.TF = def.TF
	}
	if c.TR == nil {
		c.TR = def.TR
	}
	if c.AxesLimits == nil {
		c.AxesLimits = def.AxesLimits
	}
	if c.Resolution == (field.Resolution{}) {
		c.Resolution = def.Resolution
	}
	if c.QuiverExpansion == 0 {
		c.QuiverExpansion = def.QuiverExpansion
	}
	if c.NullclineResolution == 0 {
		c.NullclineResolution = def.NullclineResolution
	}
	if c.Method == "" {
		c.Method = def.Method
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Coords = append([]string(nil), c.Coords...)
	out.Exprs = append([]string(nil), c.Exprs...)
	if c.Params != nil {
		out.Params = make(map[string]any, len(c.Params))
		for k, v := range c.Params {
			out.Params[k] = v
		}
	}
	if c.AxesLimits != nil {
		out.AxesLimits = make([][]any, len(c.AxesLimits))
		for i, pair := range c.AxesLimits {
			out.AxesLimits[i] = append([]any(nil), pair...)
		}
	}
	if c.Seeds != nil {
		out.Seeds = make([][]float64, len(c.Seeds))
		for i, s := range c.Seeds {
			out.Seeds[i] = append([]float64(nil), s...)
		}
	}
	return &out
}

// Build coerces and validates the record. Limits are checked before the
// equations, so a config with several faults reports the limit error.
func (c *Config) Build() (*Setup, error) {
	bounds, err := c.TimeBounds()
	if err != nil {
		return nil, err
	}
	window, err := c.Window()
	if err != nil {
		return nil, err
	}
	sys, err := equations.New(c.Coords, c.Exprs, c.Params)
	if err != nil {
		return nil, err
	}

	seeds := make([]dynamo.State, 0, len(c.Seeds))
	for i, s := range c.Seeds {
		if len(s) != sys.Dim() {
			return nil, fmt.Errorf("%w: seeds[%d] has %d components, system has %d", dynamo.ErrDimensionMismatch, i, len(s), sys.Dim())
		}
		if !dynamo.State(s).IsValid() {
			return nil, &dynamo.ConfigError{Kind: dynamo.ErrInvalidCoordinates, Field: fmt.Sprintf("seeds[%d]", i), Value: s, Msg: "must be finite"}
		}
		seeds = append(seeds, dynamo.State(s).Clone())
	}

	return &Setup{System: sys, Window: window, Bounds: bounds, Seeds: seeds}, nil
}

func (c *Config) TimeBounds() (dynamo.TimeBounds, error) {
	tf, err := equations.CoerceFloat(c.TF)
	if err != nil {
		return dynamo.TimeBounds{}, &dynamo.ConfigError{Kind: dynamo.ErrLimitType, Field: "t_f", Value: c.TF, Msg: err.Error()}
	}
	tr, err := equations.CoerceFloat(c.TR)
	if err != nil {
		return dynamo.TimeBounds{}, &dynamo.ConfigError{Kind: dynamo.ErrLimitType, Field: "t_r", Value: c.TR, Msg: err.Error()}
	}
	return dynamo.NewTimeBounds(tf, tr)
}

// Window coerces axes_limits. For one-dimensional systems the first pair
// is the time axis and the second the coordinate axis.
func (c *Config) Window() (dynamo.Window, error) {
	if len(c.AxesLimits) != 2 {
		return dynamo.Window{}, &dynamo.ConfigError{Kind: dynamo.ErrLimitType, Field: "axes_limits", Value: c.AxesLimits,
			Msg: fmt.Sprintf("need 2 [min, max] pairs, got %d", len(c.AxesLimits))}
	}
	var w dynamo.Window
	for i, pair := range c.AxesLimits {
		name := fmt.Sprintf("axes_limits[%d]", i)
		if len(pair) != 2 {
			return dynamo.Window{}, &dynamo.ConfigError{Kind: dynamo.ErrLimitType, Field: name, Value: pair,
				Msg: fmt.Sprintf("need [min, max], got %d values", len(pair))}
		}
		lo, err := equations.CoerceFloat(pair[0])
		if err != nil {
			return dynamo.Window{}, &dynamo.ConfigError{Kind: dynamo.ErrLimitType, Field: name, Value: pair[0], Msg: err.Error()}
		}
		hi, err := equations.CoerceFloat(pair[1])
		if err != nil {
			return dynamo.Window{}, &dynamo.ConfigError{Kind: dynamo.ErrLimitType, Field: name, Value: pair[1], Msg: err.Error()}
		}
		w[i] = dynamo.Interval{Min: lo, Max: hi}
	}
	if err := w.Validate(); err != nil {
		return dynamo.Window{}, err
	}
	return w, nil
}

// SetLimit replaces one axis pair, keeping the raw values for Build.
func (c *Config) SetLimit(axis int, lo, hi any) {
	for len(c.AxesLimits) <= axis {
		c.AxesLimits = append(c.AxesLimits, []any{nil, nil})
	}
	c.AxesLimits[axis] = []any{lo, hi}
}
