package equations

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/phaseplane/internal/dynamo"
)

func defaultSystem(t *testing.T) *System {
	t.Helper()
	sys, err := New(
		[]string{"x", "y"},
		[]string{"ax - y + b(x^2-y^2) + axy", "x - cy - d(x^2-y^2) + cxy"},
		map[string]any{"a": 2, "b": 3, "c": 3, "d": 3},
	)
	require.NoError(t, err)
	return sys
}

func TestNew_DefaultSystem(t *testing.T) {
	sys := defaultSystem(t)
	require.Equal(t, 2, sys.Dim())
	require.Equal(t, []string{"x", "y"}, sys.Coords())

	dx := sys.Derive(dynamo.State{1, 2}, 0)
	// x' = 2 - 2 + 3(1-4) + 4 = -5
	// y' = 1 - 6 - 3(1-4) + 6 = 10
	assert.InDelta(t, -5.0, dx[0], 1e-12)
	assert.InDelta(t, 10.0, dx[1], 1e-12)

	assert.InDelta(t, 10.0, sys.Component(1, dynamo.State{1, 2}), 1e-12)
}

func TestNew_OneDimensional(t *testing.T) {
	sys, err := New([]string{"x"}, []string{"a*sin(bx)"}, map[string]any{"a": 1, "b": 1})
	require.NoError(t, err)
	require.Equal(t, 1, sys.Dim())

	assert.InDelta(t, 0.0, sys.Derive(dynamo.State{0}, 0)[0], 1e-12)
	assert.InDelta(t, 1.0, sys.Derive(dynamo.State{math.Pi / 2}, 3)[0], 1e-12)
}

func TestNew_ParameterCoercion(t *testing.T) {
	sys, err := New([]string{"x"}, []string{"kx"}, map[string]any{"k": " 2.5 "})
	require.NoError(t, err)
	assert.Equal(t, 2.5, sys.Params()["k"])
	assert.InDelta(t, 5.0, sys.Derive(dynamo.State{2}, 0)[0], 1e-12)
}

func TestNew_ParamsAreCopied(t *testing.T) {
	sys := defaultSystem(t)
	p := sys.Params()
	p["a"] = 100
	assert.Equal(t, 2.0, sys.Params()["a"])
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name   string
		coords []string
		exprs  []string
		params map[string]any
		want   error
	}{
		{"no coords", nil, nil, nil, dynamo.ErrInvalidCoordinates},
		{"three coords", []string{"x", "y", "z"}, []string{"1", "1", "1"}, nil, dynamo.ErrInvalidCoordinates},
		{"duplicate coords", []string{"x", "x"}, []string{"1", "1"}, nil, dynamo.ErrInvalidCoordinates},
		{"bad coord name", []string{"1x"}, []string{"1"}, nil, dynamo.ErrInvalidCoordinates},
		{"function as coord", []string{"sin"}, []string{"1"}, nil, dynamo.ErrInvalidCoordinates},
		{"count mismatch", []string{"x", "y"}, []string{"y"}, nil, dynamo.ErrDimensionMismatch},
		{"param not number", []string{"x"}, []string{"ax"}, map[string]any{"a": "two"}, dynamo.ErrParameterType},
		{"param is bool", []string{"x"}, []string{"ax"}, map[string]any{"a": true}, dynamo.ErrParameterType},
		{"param is nan", []string{"x"}, []string{"ax"}, map[string]any{"a": "NaN"}, dynamo.ErrParameterType},
		{"param shadows coord", []string{"x"}, []string{"x"}, map[string]any{"x": 1}, dynamo.ErrParameterValidity},
		{"param bad name", []string{"x"}, []string{"x"}, map[string]any{"a b": 1}, dynamo.ErrParameterValidity},
		{"param is function", []string{"x"}, []string{"x"}, map[string]any{"exp": 1}, dynamo.ErrParameterValidity},
		{"syntax", []string{"x"}, []string{"x +"}, nil, dynamo.ErrSyntax},
		{"unknown symbol", []string{"x"}, []string{"kx + q"}, map[string]any{"k": 1}, dynamo.ErrUnknownSymbol},
		{"other coord in 1d", []string{"x"}, []string{"y"}, nil, dynamo.ErrUnknownSymbol},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys, err := New(tt.coords, tt.exprs, tt.params)
			require.Error(t, err)
			require.Nil(t, sys)
			require.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}
}

func TestNew_ParameterTypeErrorNamesField(t *testing.T) {
	_, err := New([]string{"x"}, []string{"ax"}, map[string]any{"a": []int{1}})
	var cfgErr *dynamo.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "params.a", cfgErr.Field)
}

func TestWithParams(t *testing.T) {
	sys := defaultSystem(t)
	next, err := sys.WithParams(map[string]any{"a": 0, "b": 0, "c": 0, "d": 0})
	require.NoError(t, err)

	dx := next.Derive(dynamo.State{1, 2}, 0)
	assert.InDelta(t, -2.0, dx[0], 1e-12)
	assert.InDelta(t, 1.0, dx[1], 1e-12)

	// the original is untouched
	assert.InDelta(t, -5.0, sys.Derive(dynamo.State{1, 2}, 0)[0], 1e-12)
}

func TestDerive_Concurrent(t *testing.T) {
	sys := defaultSystem(t)
	want := sys.Derive(dynamo.State{0.5, -0.25}, 0)

	var wg sync.WaitGroup
	errs := make(chan string, 8)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				got := sys.Derive(dynamo.State{0.5, -0.25}, float64(i))
				if got[0] != want[0] || got[1] != want[1] {
					errs <- "mismatch"
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Fatal(e)
	}
}

func TestCoerceFloat(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{1, 1, true},
		{int64(-3), -3, true},
		{float32(0.5), 0.5, true},
		{"1e3", 1000, true},
		{"", 0, false},
		{"inf", 0, false},
		{nil, 0, false},
		{map[string]int{}, 0, false},
	}
	for _, tt := range tests {
		got, err := CoerceFloat(tt.in)
		if !tt.ok {
			assert.Error(t, err, "%v", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestSystem_String(t *testing.T) {
	sys, err := New([]string{"x", "y"}, []string{"y", "-x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "x' = y, y' = -x", sys.String())
}
