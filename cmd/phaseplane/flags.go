package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/phaseplane/internal/automation"
	"github.com/san-kum/phaseplane/internal/config"
	"github.com/san-kum/phaseplane/internal/dynamo"
	"github.com/san-kum/phaseplane/internal/equations"
	"github.com/san-kum/phaseplane/internal/field"
)

var (
	configFile string
	presetName string
	coords     []string
	exprs      []string
	params     []string
	xlim       string
	ylim       string
	tf         string
	tr         string
	method     string
	resolution string
	expansion  float64
	ncRes      int
	nullclines bool
	seeds      []string
	verbose    bool
	dataDir    string
	themeName  string
)

func addSystemFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVarP(&configFile, "config", "c", "", "YAML config file")
	f.StringVarP(&presetName, "preset", "p", "", "start from a preset (see 'presets')")
	f.StringSliceVar(&coords, "coords", nil, "coordinate names, e.g. x,y")
	f.StringArrayVarP(&exprs, "eq", "e", nil, "right-hand side per coordinate (repeat)")
	f.StringArrayVar(&params, "param", nil, "parameter as name=value (repeat)")
	f.StringVar(&xlim, "xlim", "", "axis 0 limits as min,max")
	f.StringVar(&ylim, "ylim", "", "axis 1 limits as min,max")
	f.StringVar(&tf, "tf", "", "forward integration time")
	f.StringVar(&tr, "tr", "", "reverse integration time (<= 0)")
	f.StringVarP(&method, "method", "m", "", "integration method")
	f.StringVar(&resolution, "resolution", "", "field lattice as NXxNY, e.g. 20x20")
	f.Float64Var(&expansion, "expansion", 0, "quiver expansion factor")
	f.IntVar(&ncRes, "nullcline-resolution", 0, "nullcline grid points per axis")
	f.BoolVar(&nullclines, "nullclines", false, "compute and show nullclines")
	f.StringArrayVarP(&seeds, "seed", "s", nil, "trajectory seed as x,y (repeat)")
	f.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// resolveConfig layers the sources: preset, then config file, then flags.
// A config file replaces the preset as a whole; flags override single keys.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if presetName != "" {
		p := config.GetPreset(presetName)
		if p == nil {
			return nil, fmt.Errorf("unknown preset %q (available: %s)", presetName, strings.Join(config.ListPresets(), ", "))
		}
		cfg = p
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("coords") {
		cfg.Coords = coords
	}
	if flags.Changed("eq") {
		cfg.Exprs = exprs
		// parameters of the replaced system would only shadow names
		cfg.Params = map[string]any{}
		cfg.Seeds = nil
	}
	if flags.Changed("param") {
		if cfg.Params == nil {
			cfg.Params = map[string]any{}
		}
		for _, kv := range params {
			name, value, err := parseParam(kv)
			if err != nil {
				return nil, err
			}
			cfg.Params[name] = value
		}
	}
	for axis, raw := range map[int]string{0: xlim, 1: ylim} {
		if raw == "" {
			continue
		}
		lo, hi, err := parsePair(raw)
		if err != nil {
			return nil, fmt.Errorf("axis %d limits: %w", axis, err)
		}
		cfg.SetLimit(axis, lo, hi)
	}
	if flags.Changed("tf") {
		cfg.TF = tf
	}
	if flags.Changed("tr") {
		cfg.TR = tr
	}
	if flags.Changed("method") {
		cfg.Method = method
	}
	if flags.Changed("resolution") {
		res, err := parseResolution(resolution)
		if err != nil {
			return nil, err
		}
		cfg.Resolution = res
	}
	if flags.Changed("expansion") {
		cfg.QuiverExpansion = expansion
	}
	if flags.Changed("nullcline-resolution") {
		cfg.NullclineResolution = ncRes
	}
	if flags.Changed("nullclines") {
		cfg.Nullclines = nullclines
	}
	if flags.Changed("seed") {
		cfg.Seeds = cfg.Seeds[:0:0]
		for _, raw := range seeds {
			s, err := parseSeed(raw)
			if err != nil {
				return nil, err
			}
			cfg.Seeds = append(cfg.Seeds, s)
		}
	}
	return cfg, nil
}

// parseParam splits name=value. The value stays text; the equation
// builder coerces it.
func parseParam(kv string) (string, string, error) {
	name, value, ok := strings.Cut(kv, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", fmt.Errorf("invalid parameter %q, want name=value", kv)
	}
	return name, strings.TrimSpace(value), nil
}

// parsePair splits "min,max" without converting; limits are coerced when
// the config is built.
func parsePair(raw string) (string, string, error) {
	lo, hi, ok := strings.Cut(raw, ",")
	if !ok {
		return "", "", fmt.Errorf("%q: want min,max", raw)
	}
	return strings.TrimSpace(lo), strings.TrimSpace(hi), nil
}

func parseResolution(raw string) (field.Resolution, error) {
	nx, ny, ok := strings.Cut(strings.ToLower(raw), "x")
	if !ok {
		return field.Resolution{}, fmt.Errorf("resolution %q: want NXxNY", raw)
	}
	var res field.Resolution
	if _, err := fmt.Sscan(nx, &res.NX); err != nil {
		return field.Resolution{}, fmt.Errorf("resolution %q: %w", raw, err)
	}
	if _, err := fmt.Sscan(ny, &res.NY); err != nil {
		return field.Resolution{}, fmt.Errorf("resolution %q: %w", raw, err)
	}
	return res, res.Validate()
}

// parseSeed reads "x" or "x,y" using the same numeric coercion as
// parameters.
func parseSeed(raw string) ([]float64, error) {
	parts := strings.Split(raw, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := equations.CoerceFloat(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("seed %q: %w", raw, err)
		}
		out = append(out, v)
	}
	if len(out) > 2 {
		return nil, fmt.Errorf("seed %q: %w", raw, dynamo.ErrDimensionMismatch)
	}
	return out, nil
}

// parseSweep reads name=min:max.
func parseSweep(raw string, steps int) (*automation.ParameterSweep, error) {
	name, rng, err := parseParam(raw)
	if err != nil {
		return nil, err
	}
	lo, hi, ok := strings.Cut(rng, ":")
	if !ok {
		return nil, fmt.Errorf("sweep %q: want name=min:max", raw)
	}
	sweep := &automation.ParameterSweep{Param: name, NumSteps: steps}
	if sweep.Min, err = equations.CoerceFloat(strings.TrimSpace(lo)); err != nil {
		return nil, fmt.Errorf("sweep %q: %w", raw, err)
	}
	if sweep.Max, err = equations.CoerceFloat(strings.TrimSpace(hi)); err != nil {
		return nil, fmt.Errorf("sweep %q: %w", raw, err)
	}
	return sweep, nil
}
