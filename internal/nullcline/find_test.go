package nullcline

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/phaseplane/internal/dynamo"
	"github.com/san-kum/phaseplane/internal/equations"
)

func mustSystem(t *testing.T, coords []string, exprs []string, params map[string]any) *equations.System {
	t.Helper()
	sys, err := equations.New(coords, exprs, params)
	if err != nil {
		t.Fatal(err)
	}
	return sys
}

func square(half float64) dynamo.Window {
	return dynamo.Window{{Min: -half, Max: half}, {Min: -half, Max: half}}
}

func nearest(c Curve, p [2]float64) float64 {
	best := math.Inf(1)
	for _, q := range c {
		best = math.Min(best, math.Hypot(q[0]-p[0], q[1]-p[1]))
	}
	return best
}

func TestFind_LinearCenter(t *testing.T) {
	sys := mustSystem(t, []string{"x", "y"}, []string{"y", "-x"}, nil)
	res, err := Find(sys, square(5), DefaultResolution)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 {
		t.Fatalf("got %d sets, want 2", len(res))
	}

	tests := []struct {
		coord string
		// axis along which the nullcline is constant
		fixed int
	}{
		{"x", 1},
		{"y", 0},
	}
	for _, tt := range tests {
		t.Run(tt.coord, func(t *testing.T) {
			curves := res.Curves(tt.coord)
			if len(curves) != 1 {
				t.Fatalf("got %d curves, want 1", len(curves))
			}
			c := curves[0]
			if d := nearest(c, [2]float64{0, 0}); d > 1e-9 {
				t.Errorf("curve misses the origin by %v", d)
			}
			for _, p := range c {
				if math.Abs(p[tt.fixed]) > 1e-9 {
					t.Fatalf("point %v is off the axis", p)
				}
			}
			span := math.Abs(c[len(c)-1][1-tt.fixed] - c[0][1-tt.fixed])
			if math.Abs(span-10) > 1e-9 {
				t.Errorf("curve spans %v, want the full window", span)
			}
		})
	}
}

func TestFind_ClosedCurve(t *testing.T) {
	sys := mustSystem(t, []string{"x", "y"}, []string{"x^2 + y^2 - 4", "1"}, nil)
	res, err := Find(sys, square(3), 121)
	if err != nil {
		t.Fatal(err)
	}

	curves := res.Curves("x")
	if len(curves) != 1 {
		t.Fatalf("got %d curves, want 1", len(curves))
	}
	c := curves[0]
	if c[0] != c[len(c)-1] {
		t.Errorf("circle is not closed: %v .. %v", c[0], c[len(c)-1])
	}
	for _, p := range c {
		if r := math.Hypot(p[0], p[1]); math.Abs(r-2) > 0.01 {
			t.Fatalf("point %v has radius %v", p, r)
		}
	}

	if len(res.Curves("y")) != 0 {
		t.Errorf("constant component should have no nullcline")
	}
}

func TestFind_NoSignChange(t *testing.T) {
	sys := mustSystem(t, []string{"x", "y"}, []string{"1 + x^2", "exp(y)"}, nil)
	res, err := Find(sys, square(5), 51)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range res {
		if len(s.Curves) != 0 {
			t.Errorf("%s: expected no curves, got %d", s.Coord, len(s.Curves))
		}
	}
}

func TestFind_SkipsUndefinedCells(t *testing.T) {
	// log(x) is undefined for x <= 0; its zero at x = 1 must still be found.
	sys := mustSystem(t, []string{"x", "y"}, []string{"log(x)", "y"}, nil)
	res, err := Find(sys, square(4), 81)
	if err != nil {
		t.Fatal(err)
	}
	curves := res.Curves("x")
	if len(curves) != 1 {
		t.Fatalf("got %d curves, want 1", len(curves))
	}
	for _, p := range curves[0] {
		if math.Abs(p[0]-1) > 1e-9 {
			t.Fatalf("point %v is off x = 1", p)
		}
	}
}

func TestFind_OneDimensional(t *testing.T) {
	sys := mustSystem(t, []string{"x"}, []string{"a*sin(bx)"}, map[string]any{"a": 1, "b": 1})
	window := dynamo.Window{{Min: -5, Max: 5}, {Min: -10, Max: 10}}
	res, err := Find(sys, window, DefaultResolution)
	if err != nil {
		t.Fatal(err)
	}

	curves := res.Curves("x")
	// equilibria k*pi for k = -3..3
	if len(curves) != 7 {
		t.Fatalf("got %d curves, want 7", len(curves))
	}
	for _, c := range curves {
		level := c[0][1]
		k := math.Round(level / math.Pi)
		if math.Abs(level-k*math.Pi) > 1e-3 {
			t.Errorf("curve at x = %v is not an equilibrium", level)
		}
		if c[0][0] != -5 && c[len(c)-1][0] != -5 {
			t.Errorf("curve at x = %v does not span the time axis", level)
		}
	}
}

func TestFind_Errors(t *testing.T) {
	sys := mustSystem(t, []string{"x", "y"}, []string{"y", "-x"}, nil)

	if _, err := Find(sys, square(1), 1); !errors.Is(err, dynamo.ErrInvalidResolution) {
		t.Errorf("resolution 1: got %v", err)
	}
	if _, err := Find(sys, dynamo.Window{{Min: 0, Max: 0}, {Min: -1, Max: 1}}, 10); !errors.Is(err, dynamo.ErrLimitMagnitude) {
		t.Errorf("flat window: got %v", err)
	}
}

func TestTrace_Saddle(t *testing.T) {
	// Corners + - + - around a positive center: the two negative corners
	// are cut off separately.
	values := []float64{
		2, -1,
		-1, 1,
	}
	xs := []float64{0, 1}
	ys := []float64{0, 1}
	curves := trace(values, xs, ys)
	if len(curves) != 2 {
		t.Fatalf("got %d curves, want 2", len(curves))
	}
	for _, c := range curves {
		if len(c) != 2 {
			t.Errorf("saddle segment has %d points", len(c))
		}
	}
}

func BenchmarkFind(b *testing.B) {
	sys, err := equations.New(
		[]string{"x", "y"},
		[]string{"ax - y + b(x^2-y^2) + axy", "x - cy - d(x^2-y^2) + cxy"},
		map[string]any{"a": 2, "b": 3, "c": 3, "d": 3},
	)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Find(sys, square(10), DefaultResolution); err != nil {
			b.Fatal(err)
		}
	}
}
