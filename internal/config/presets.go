package config

import (
	"sort"

	"github.com/san-kum/phaseplane/internal/field"
	"github.com/san-kum/phaseplane/internal/integrators"
	"github.com/san-kum/phaseplane/internal/nullcline"
)

func preset(coords, exprs []string, params map[string]any, tf, tr float64, limits [][]any, seeds [][]float64) *Config {
	return &Config{
		Coords:              coords,
		Exprs:               exprs,
		Params:              params,
		TF:                  tf,
		TR:                  tr,
		AxesLimits:          limits,
		Resolution:          field.DefaultResolution,
		QuiverExpansion:     DefaultExpansion,
		NullclineResolution: nullcline.DefaultResolution,
		Method:              integrators.Default,
		Seeds:               seeds,
	}
}

var Presets = map[string]*Config{
	"default_2d": DefaultConfig(),
	"default_1d": preset(
		[]string{"x"},
		[]string{"a*sin(bx)"},
		map[string]any{"a": 1, "b": 1},
		5, -5,
		[][]any{{-5.0, 5.0}, {-10.0, 10.0}},
		[][]float64{{1}, {-2}, {4}},
	),
	"vanderpol": preset(
		[]string{"x", "y"},
		[]string{"y", "mu(1 - x^2)y - x"},
		map[string]any{"mu": 1},
		20, -20,
		[][]any{{-4.0, 4.0}, {-4.0, 4.0}},
		[][]float64{{0.1, 0}, {3, 3}},
	),
	"lotka_volterra": preset(
		[]string{"x", "y"},
		[]string{"ax - bxy", "dxy - cy"},
		map[string]any{"a": 1, "b": 1, "c": 1, "d": 1},
		15, -15,
		[][]any{{-0.5, 4.0}, {-0.5, 4.0}},
		[][]float64{{0.5, 0.5}, {1.5, 1}},
	),
	"pendulum": preset(
		[]string{"theta", "omega"},
		[]string{"omega", "-(g/l)sin(theta) - k omega"},
		map[string]any{"g": 9.81, "l": 1, "k": 0.5},
		20, -5,
		[][]any{{-7.0, 7.0}, {-8.0, 8.0}},
		[][]float64{{0, 6}, {2, 0}},
	),
	"duffing": preset(
		[]string{"x", "y"},
		[]string{"y", "x - x^3 - delta y"},
		map[string]any{"delta": 0.25},
		30, -5,
		[][]any{{-2.5, 2.5}, {-2.5, 2.5}},
		[][]float64{{0.1, 0}, {-1.5, 1}},
	),
	"doublewell": preset(
		[]string{"x"},
		[]string{"rx - x^3"},
		map[string]any{"r": 1},
		5, -5,
		[][]any{{-5.0, 5.0}, {-2.0, 2.0}},
		[][]float64{{0.1}, {-0.1}, {1.8}},
	),
	"saddle": preset(
		[]string{"x", "y"},
		[]string{"ax", "-by"},
		map[string]any{"a": 1, "b": 1},
		5, -5,
		[][]any{{-3.0, 3.0}, {-3.0, 3.0}},
		[][]float64{{0.1, 2}, {-0.1, 2}, {0.1, -2}, {-0.1, -2}},
	),
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
