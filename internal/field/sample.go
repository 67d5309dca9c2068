package field

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/phaseplane/internal/dynamo"
)

const DefaultExpansion = 1.0

// Resolution is the number of lattice points along each window axis.
type Resolution struct {
	NX int `json:"nx" yaml:"nx"`
	NY int `json:"ny" yaml:"ny"`
}

var DefaultResolution = Resolution{NX: 20, NY: 20}

func (r Resolution) Validate() error {
	if r.NX < 2 || r.NY < 2 {
		return fmt.Errorf("%w: need at least 2x2 points, got %dx%d", dynamo.ErrInvalidResolution, r.NX, r.NY)
	}
	return nil
}

// Point is one lattice sample. Unit is the raw vector rescaled to the
// grid's expansion length; it is zero when Vec is zero or invalid.
type Point struct {
	Pos   [2]float64 `json:"pos"`
	Vec   [2]float64 `json:"vec"`
	Unit  [2]float64 `json:"unit"`
	Valid bool       `json:"valid"`
}

// Grid is a sampled direction field. Points are row-major: index j*NX+i
// holds the sample at (Xs[i], Ys[j]).
type Grid struct {
	Window     dynamo.Window `json:"window"`
	Resolution Resolution    `json:"resolution"`
	Expansion  float64       `json:"expansion"`
	Xs         []float64     `json:"xs"`
	Ys         []float64     `json:"ys"`
	Points     []Point       `json:"points"`
}

func (g *Grid) Len() int { return len(g.Points) }

func (g *Grid) At(i, j int) Point { return g.Points[j*g.Resolution.NX+i] }

func (g *Grid) ValidCount() int {
	n := 0
	for _, p := range g.Points {
		if p.Valid {
			n++
		}
	}
	return n
}

// MaxMagnitude is the largest raw vector length over valid points.
func (g *Grid) MaxMagnitude() float64 {
	m := 0.0
	for _, p := range g.Points {
		if p.Valid {
			m = math.Max(m, math.Hypot(p.Vec[0], p.Vec[1]))
		}
	}
	return m
}

// CellSize is the lattice spacing along each axis.
func (g *Grid) CellSize() [2]float64 {
	return [2]float64{
		g.Window[0].Span() / float64(g.Resolution.NX-1),
		g.Window[1].Span() / float64(g.Resolution.NY-1),
	}
}

// Sample evaluates sys on an evenly spaced lattice over window, bounds
// included. Two-dimensional systems are sampled at t = 0 with vector
// (F0, F1). One-dimensional systems are sampled over the (t, x) plane and
// produce the slope field (1, F0).
func Sample(sys dynamo.System, window dynamo.Window, res Resolution, expansion float64) (*Grid, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if err := res.Validate(); err != nil {
		return nil, err
	}
	if !(expansion > 0) || math.IsInf(expansion, 0) {
		return nil, fmt.Errorf("%w: expansion must be positive and finite, got %g", dynamo.ErrInvalidResolution, expansion)
	}
	dim := sys.Dim()
	if dim != 1 && dim != 2 {
		return nil, fmt.Errorf("%w: cannot sample a %d-dimensional field", dynamo.ErrDimensionMismatch, dim)
	}

	xs := make([]float64, res.NX)
	ys := make([]float64, res.NY)
	floats.Span(xs, window[0].Min, window[0].Max)
	floats.Span(ys, window[1].Min, window[1].Max)

	g := &Grid{
		Window:     window,
		Resolution: res,
		Expansion:  expansion,
		Xs:         xs,
		Ys:         ys,
		Points:     make([]Point, res.NX*res.NY),
	}

	dynamo.ParallelFor(len(g.Points), 64, func(start, end int) {
		for k := start; k < end; k++ {
			g.Points[k] = samplePoint(sys, dim, xs[k%res.NX], ys[k/res.NX], expansion)
		}
	})

	return g, nil
}

func samplePoint(sys dynamo.System, dim int, x, y, expansion float64) Point {
	p := Point{Pos: [2]float64{x, y}}

	if dim == 1 {
		dx := sys.Derive(dynamo.State{y}, x)
		p.Vec = [2]float64{1, dx[0]}
	} else {
		dx := sys.Derive(dynamo.State{x, y}, 0)
		p.Vec = [2]float64{dx[0], dx[1]}
	}

	p.Valid = dynamo.State(p.Vec[:]).IsValid()
	if !p.Valid {
		return p
	}

	mag := math.Hypot(p.Vec[0], p.Vec[1])
	if mag > 0 && !math.IsInf(mag, 0) {
		p.Unit = [2]float64{expansion * p.Vec[0] / mag, expansion * p.Vec[1] / mag}
	}
	return p
}
