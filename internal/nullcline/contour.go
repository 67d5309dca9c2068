package nullcline

import "math"

// Curve is a polyline in plane coordinates. A closed curve repeats its
// first point at the end.
type Curve [][2]float64

// edge identifies one lattice edge: the horizontal edge from node (i, j)
// to (i+1, j), or the vertical edge from (i, j) to (i, j+1).
type edge struct {
	i, j     int
	vertical bool
}

type segment struct {
	ends [2]edge
	pts  [2][2]float64
}

// Corner order inside a cell, counter-clockwise from bottom-left.
const (
	bottom = iota
	right
	top
	left
)

// cases maps the marching-squares corner mask (bit 0 bottom-left, bit 1
// bottom-right, bit 2 top-right, bit 3 top-left set when the corner is
// positive) to the crossed edge pairs. Saddles (5, 10) are resolved
// separately.
var cases = [16][][2]int{
	0:  nil,
	1:  {{left, bottom}},
	2:  {{bottom, right}},
	3:  {{left, right}},
	4:  {{right, top}},
	6:  {{bottom, top}},
	7:  {{top, left}},
	8:  {{top, left}},
	9:  {{bottom, top}},
	11: {{right, top}},
	12: {{right, left}},
	13: {{bottom, right}},
	14: {{left, bottom}},
	15: nil,
}

// trace extracts the zero level of a scalar field sampled row-major on
// the lattice xs × ys (values[j*len(xs)+i] at (xs[i], ys[j])) and stitches
// cell segments into polylines. Cells with a non-finite corner are skipped.
func trace(values, xs, ys []float64) []Curve {
	nx, ny := len(xs), len(ys)
	at := func(i, j int) float64 { return values[j*nx+i] }

	var segs []segment
	for j := 0; j < ny-1; j++ {
		for i := 0; i < nx-1; i++ {
			a, b, c, d := at(i, j), at(i+1, j), at(i+1, j+1), at(i, j+1)
			if !finite(a) || !finite(b) || !finite(c) || !finite(d) {
				continue
			}

			mask := 0
			if a > 0 {
				mask |= 1
			}
			if b > 0 {
				mask |= 2
			}
			if c > 0 {
				mask |= 4
			}
			if d > 0 {
				mask |= 8
			}

			pairs := cases[mask]
			switch mask {
			case 5:
				if (a+b+c+d)/4 > 0 {
					pairs = [][2]int{{bottom, right}, {top, left}}
				} else {
					pairs = [][2]int{{left, bottom}, {right, top}}
				}
			case 10:
				if (a+b+c+d)/4 > 0 {
					pairs = [][2]int{{left, bottom}, {right, top}}
				} else {
					pairs = [][2]int{{bottom, right}, {top, left}}
				}
			}

			for _, p := range pairs {
				segs = append(segs, segment{
					ends: [2]edge{cellEdge(i, j, p[0]), cellEdge(i, j, p[1])},
					pts:  [2][2]float64{crossing(xs, ys, at, i, j, p[0]), crossing(xs, ys, at, i, j, p[1])},
				})
			}
		}
	}

	return stitch(segs)
}

func cellEdge(i, j, side int) edge {
	switch side {
	case bottom:
		return edge{i: i, j: j}
	case right:
		return edge{i: i + 1, j: j, vertical: true}
	case top:
		return edge{i: i, j: j + 1}
	default:
		return edge{i: i, j: j, vertical: true}
	}
}

// crossing interpolates the zero on one side of cell (i, j). Both cells
// sharing an edge interpolate in the same direction, so the shared point
// is bitwise identical.
func crossing(xs, ys []float64, at func(i, j int) float64, i, j, side int) [2]float64 {
	e := cellEdge(i, j, side)
	if e.vertical {
		v0, v1 := at(e.i, e.j), at(e.i, e.j+1)
		s := v0 / (v0 - v1)
		return [2]float64{xs[e.i], ys[e.j] + s*(ys[e.j+1]-ys[e.j])}
	}
	v0, v1 := at(e.i, e.j), at(e.i+1, e.j)
	s := v0 / (v0 - v1)
	return [2]float64{xs[e.i] + s*(xs[e.i+1]-xs[e.i]), ys[e.j]}
}

func stitch(segs []segment) []Curve {
	byEdge := make(map[edge][]int, 2*len(segs))
	for k, s := range segs {
		byEdge[s.ends[0]] = append(byEdge[s.ends[0]], k)
		byEdge[s.ends[1]] = append(byEdge[s.ends[1]], k)
	}
	used := make([]bool, len(segs))

	// walk follows unused segments from e, returning the points visited.
	walk := func(e edge) [][2]float64 {
		var pts [][2]float64
		for {
			next := -1
			for _, k := range byEdge[e] {
				if !used[k] {
					next = k
					break
				}
			}
			if next < 0 {
				return pts
			}
			used[next] = true
			s := segs[next]
			if s.ends[0] == e {
				pts = append(pts, s.pts[1])
				e = s.ends[1]
			} else {
				pts = append(pts, s.pts[0])
				e = s.ends[0]
			}
		}
	}

	curves := make([]Curve, 0)
	for k, s := range segs {
		if used[k] {
			continue
		}
		used[k] = true

		head := walk(s.ends[0])
		tail := walk(s.ends[1])

		line := make(Curve, 0, len(head)+len(tail)+2)
		for n := len(head) - 1; n >= 0; n-- {
			line = append(line, head[n])
		}
		line = append(line, s.pts[0], s.pts[1])
		line = append(line, tail...)
		curves = append(curves, line)
	}
	return curves
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
