package equations

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/phaseplane/internal/dynamo"
)

// ParameterSet maps parameter names to finite values.
type ParameterSet map[string]float64

// Names returns the parameter names in sorted order.
func (p ParameterSet) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p ParameterSet) Clone() ParameterSet {
	c := make(ParameterSet, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

// CoerceParams converts loosely typed values (numbers or numeric strings,
// as they arrive from YAML or text fields) into a ParameterSet. It only
// checks values; name validity depends on the coordinates and is checked
// by New.
func CoerceParams(raw map[string]any) (ParameterSet, error) {
	out := make(ParameterSet, len(raw))
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v, err := CoerceFloat(raw[name])
		if err != nil {
			return nil, &dynamo.ConfigError{Kind: dynamo.ErrParameterType, Field: "params." + name, Value: raw[name], Msg: err.Error()}
		}
		out[name] = v
	}
	return out, nil
}

// CoerceFloat converts numeric kinds and numeric strings to a finite float.
func CoerceFloat(v any) (float64, error) {
	var f float64
	switch v := v.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int8:
		f = float64(v)
	case int16:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint8:
		f = float64(v)
	case uint16:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", string(v))
		}
		f = parsed
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, fmt.Errorf("empty value")
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", v)
		}
		f = parsed
	case nil:
		return 0, fmt.Errorf("missing value")
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%v is not finite", v)
	}
	return f, nil
}
