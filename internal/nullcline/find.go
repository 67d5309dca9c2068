// Package nullcline extracts the curves where one component of a planar
// vector field vanishes.
package nullcline

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/phaseplane/internal/dynamo"
)

// DefaultResolution is the lattice size per axis used for contouring.
const DefaultResolution = 201

// Field is a vector field with named components.
type Field interface {
	dynamo.System
	Coords() []string
}

// Set holds the zero-level curves of one field component.
type Set struct {
	Coord  string  `json:"coord"`
	Curves []Curve `json:"curves"`
}

// Result lists one Set per coordinate, in coordinate order.
type Result []Set

// Curves returns the curves for coord, or nil when coord is unknown.
func (r Result) Curves(coord string) []Curve {
	for _, s := range r {
		if s.Coord == coord {
			return s.Curves
		}
	}
	return nil
}

// Find contours each component of sys at zero over window on a
// resolution × resolution lattice. Two-dimensional systems are contoured
// over (x0, x1). One-dimensional systems are contoured over the (t, x)
// plane, where the nullclines are the horizontal lines through equilibria.
func Find(sys Field, window dynamo.Window, resolution int) (Result, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if resolution < 2 {
		return nil, fmt.Errorf("%w: nullcline lattice needs at least 2 points per axis, got %d", dynamo.ErrInvalidResolution, resolution)
	}
	dim := sys.Dim()
	coords := sys.Coords()
	if dim != 1 && dim != 2 {
		return nil, fmt.Errorf("%w: cannot contour a %d-dimensional field", dynamo.ErrDimensionMismatch, dim)
	}

	xs := make([]float64, resolution)
	ys := make([]float64, resolution)
	floats.Span(xs, window[0].Min, window[0].Max)
	floats.Span(ys, window[1].Min, window[1].Max)

	n := resolution * resolution
	values := make([][]float64, dim)
	for c := range values {
		values[c] = make([]float64, n)
	}

	dynamo.ParallelFor(n, 256, func(start, end int) {
		for k := start; k < end; k++ {
			x, y := xs[k%resolution], ys[k/resolution]
			var dx dynamo.State
			if dim == 1 {
				dx = sys.Derive(dynamo.State{y}, x)
			} else {
				dx = sys.Derive(dynamo.State{x, y}, 0)
			}
			for c := range values {
				values[c][k] = dx[c]
			}
		}
	})

	result := make(Result, dim)
	for c := range values {
		result[c] = Set{Coord: coords[c], Curves: trace(values[c], xs, ys)}
	}
	return result, nil
}
