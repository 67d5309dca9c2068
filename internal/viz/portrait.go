package viz

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/phaseplane/internal/phase"
)

// Layers are drawn on separate canvases; when several set dots in the same
// cell the highest layer decides the cell's color.
const (
	layerAxis = iota
	layerField
	layerNullcline0
	layerNullcline1
	layerTrajectory
	layerLatest
	layerFixed
	layerCursor
	layerCount
)

type RenderOptions struct {
	// Width and Height are in terminal cells.
	Width, Height int
	Theme         Theme
	Color         bool
	// Cursor marks a plane point when non-nil.
	Cursor *[2]float64
	// Highlight is the index of a trajectory drawn in the Latest color;
	// negative for none.
	Highlight int
}

func (o RenderOptions) withDefaults() RenderOptions {
	if o.Width <= 0 {
		o.Width = 60
	}
	if o.Height <= 0 {
		o.Height = 20
	}
	if o.Theme.Name == "" {
		o.Theme = DefaultTheme
	}
	return o
}

// Render draws the snapshot as a braille portrait: axes through the origin,
// direction field segments starting at each lattice point, nullclines,
// trajectories and equilibria.
func Render(s *phase.Snapshot, opts RenderOptions) string {
	opts = opts.withDefaults()
	layers := make([]*Canvas, layerCount)
	for i := range layers {
		layers[i] = NewCanvas(opts.Width, opts.Height)
	}
	vp := NewViewport(s.Window, layers[0])

	drawAxes(layers[layerAxis], vp)
	drawField(layers[layerField], vp, s)

	for i, set := range s.Nullclines {
		layer := layers[layerNullcline0+i%2]
		for _, curve := range set.Curves {
			vp.Polyline(layer, curve)
		}
	}

	for i, pair := range s.Trajectories {
		layer := layers[layerTrajectory]
		if i == opts.Highlight {
			layer = layers[layerLatest]
		}
		if pair.Backward != nil {
			vp.Polyline(layer, pair.Backward.PlanePoints())
		}
		if pair.Forward != nil {
			vp.Polyline(layer, pair.Forward.PlanePoints())
		}
	}

	for _, fp := range s.FixedPoints {
		if len(fp.State) == 1 {
			// equilibrium line x = const across the time axis
			_, py, ok := vp.Project(s.Window[0].Min, fp.State[0])
			if ok {
				for px := 0; px < vp.W; px += 2 {
					layers[layerFixed].Set(px, py)
				}
			}
			continue
		}
		if px, py, ok := vp.Project(fp.State[0], fp.State[1]); ok {
			mark(layers[layerFixed], px, py)
		}
	}

	if opts.Cursor != nil {
		if px, py, ok := vp.Project(opts.Cursor[0], opts.Cursor[1]); ok {
			mark(layers[layerCursor], px, py)
		}
	}

	return compose(layers, opts)
}

func mark(c *Canvas, px, py int) {
	for d := -1; d <= 1; d++ {
		c.Set(px+d, py)
		c.Set(px, py+d)
	}
}

func drawAxes(c *Canvas, vp Viewport) {
	if _, py, ok := vp.Project(vp.Window[0].Min, 0); ok {
		for px := 0; px < vp.W; px += 4 {
			c.Set(px, py)
		}
	}
	if px, _, ok := vp.Project(0, vp.Window[1].Min); ok {
		for py := 0; py < vp.H; py += 4 {
			c.Set(px, py)
		}
	}
}

func drawField(c *Canvas, vp Viewport, s *phase.Snapshot) {
	g := s.Field
	if g == nil || g.Resolution.NX < 2 || g.Resolution.NY < 2 {
		return
	}
	cellW := float64(vp.W) / float64(g.Resolution.NX)
	cellH := float64(vp.H) / float64(g.Resolution.NY)
	length := 0.8 * g.Expansion * math.Min(cellW, cellH)
	if length < 1 {
		length = 1
	}
	sx := float64(vp.W-1) / s.Window[0].Span()
	sy := float64(vp.H-1) / s.Window[1].Span()

	for _, p := range g.Points {
		if !p.Valid {
			continue
		}
		px, py, ok := vp.Project(p.Pos[0], p.Pos[1])
		if !ok {
			continue
		}
		dx, dy := p.Vec[0]*sx, -p.Vec[1]*sy
		norm := math.Hypot(dx, dy)
		if norm == 0 || math.IsInf(norm, 0) {
			c.Set(px, py)
			continue
		}
		ex := px + int(math.Round(dx/norm*length))
		ey := py + int(math.Round(dy/norm*length))
		c.DrawLine(px, py, ex, ey)
	}
}

func compose(layers []*Canvas, opts RenderOptions) string {
	colors := [layerCount]lipgloss.Color{
		layerAxis:       opts.Theme.Axis,
		layerField:      opts.Theme.Field,
		layerNullcline0: opts.Theme.Nullclines[0],
		layerNullcline1: opts.Theme.Nullclines[1],
		layerTrajectory: opts.Theme.Trajectory,
		layerLatest:     opts.Theme.Latest,
		layerFixed:      opts.Theme.Fixed,
		layerCursor:     opts.Theme.Cursor,
	}

	var b strings.Builder
	for row := 0; row < opts.Height; row++ {
		var run strings.Builder
		runLayer := -1
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if opts.Color && runLayer >= 0 {
				b.WriteString(lipgloss.NewStyle().Foreground(colors[runLayer]).Render(run.String()))
			} else {
				b.WriteString(run.String())
			}
			run.Reset()
		}

		for col := 0; col < opts.Width; col++ {
			top := -1
			for l := layerCount - 1; l >= 0; l-- {
				if !layers[l].Empty(col, row) {
					top = l
					break
				}
			}
			r := rune(blank)
			if top >= 0 {
				r = layers[top].Grid[row][col]
				if !opts.Color {
					// merge all dots when colors cannot tell layers apart
					for l := 0; l < layerCount; l++ {
						r |= layers[l].Grid[row][col]
					}
				}
			}
			if top != runLayer {
				flush()
				runLayer = top
			}
			run.WriteRune(r)
		}
		flush()
		b.WriteByte('\n')
	}
	return b.String()
}
