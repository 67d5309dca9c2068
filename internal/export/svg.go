package export

import (
	"fmt"
	"math"
	"strings"
)

// SVGOptions controls portrait rendering. Zero fields take defaults.
type SVGOptions struct {
	Width, Height int
	Background    string
	Arrow         string
	Trajectory    string
	// Nullcline colors are used in coordinate order.
	Nullcline []string
}

func (o SVGOptions) withDefaults() SVGOptions {
	if o.Width <= 0 {
		o.Width = 800
	}
	if o.Height <= 0 {
		o.Height = 800
	}
	if o.Background == "" {
		o.Background = "#0a0a0a"
	}
	if o.Arrow == "" {
		o.Arrow = "#5f6f7f"
	}
	if o.Trajectory == "" {
		o.Trajectory = "#00ff00"
	}
	if len(o.Nullcline) == 0 {
		o.Nullcline = []string{"#ff5f5f", "#5fafff"}
	}
	return o
}

const margin = 40.0

// projector maps display-plane coordinates into the SVG viewport; y grows
// downward in SVG.
type projector struct {
	x0, y0, w, h float64
	minX, minY   float64
	sx, sy       float64
}

func newProjector(b *Bundle, width, height int) projector {
	p := projector{
		x0: margin, y0: margin,
		w: float64(width) - 2*margin, h: float64(height) - 2*margin,
		minX: b.Window[0].Min, minY: b.Window[1].Min,
	}
	p.sx = p.w / b.Window[0].Span()
	p.sy = p.h / b.Window[1].Span()
	return p
}

func (p projector) point(x, y float64) (float64, float64) {
	return p.x0 + (x-p.minX)*p.sx, p.y0 + p.h - (y-p.minY)*p.sy
}

// Portrait renders the field as arrows, then nullclines, trajectories and
// equilibria, clipped to the axes window. Arrow length is Expansion times
// 80% of the smaller grid cell side, in screen space, so arrows never
// overlap at the default expansion.
func Portrait(b *Bundle, opts SVGOptions) string {
	opts = opts.withDefaults()
	proj := newProjector(b, opts.Width, opts.Height)
	labels := b.AxisLabels()

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
<defs><clipPath id="window"><rect x="%.1f" y="%.1f" width="%.1f" height="%.1f"/></clipPath></defs>
`, opts.Width, opts.Height, opts.Width, opts.Height, opts.Background, proj.x0, proj.y0, proj.w, proj.h)

	fmt.Fprintf(&sb, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="none" stroke="#808080"/>
`, proj.x0, proj.y0, proj.w, proj.h)
	fmt.Fprintf(&sb, `<text x="%.1f" y="%.1f" fill="#c0c0c0" font-family="monospace" font-size="14" text-anchor="middle">%s</text>
`, proj.x0+proj.w/2, float64(opts.Height)-10, escape(labels[0]))
	fmt.Fprintf(&sb, `<text x="14" y="%.1f" fill="#c0c0c0" font-family="monospace" font-size="14" text-anchor="middle">%s</text>
`, proj.y0+proj.h/2, escape(labels[1]))
	fmt.Fprintf(&sb, `<text x="%.1f" y="24" fill="#c0c0c0" font-family="monospace" font-size="12">%s</text>
`, proj.x0, escape(b.System()))

	sb.WriteString(`<g clip-path="url(#window)">` + "\n")
	writeArrows(&sb, b, proj, opts.Arrow)

	for i, set := range b.Nullclines {
		color := opts.Nullcline[i%len(opts.Nullcline)]
		for _, curve := range set.Curves {
			writePath(&sb, proj, curve, color, 2)
		}
	}

	for _, pair := range b.Trajectories {
		var pts [][2]float64
		if pair.Backward != nil {
			pts = append(pts, pair.Backward.PlanePoints()...)
		}
		if pair.Forward != nil {
			fwd := pair.Forward.PlanePoints()
			if len(pts) > 0 && len(fwd) > 0 {
				fwd = fwd[1:]
			}
			pts = append(pts, fwd...)
		}
		writePath(&sb, proj, pts, opts.Trajectory, 1.5)
	}

	for _, fp := range b.FixedPoints {
		x, y := 0.0, fp.State[0]
		if len(fp.State) == 2 {
			x, y = fp.State[0], fp.State[1]
		}
		if len(b.Coords) == 1 {
			// an equilibrium of a 1D system is a horizontal line in (t, x)
			x0, py := proj.point(b.Window[0].Min, y)
			x1, _ := proj.point(b.Window[0].Max, y)
			fmt.Fprintf(&sb, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#ffd700" stroke-dasharray="4 4"/>
`, x0, py, x1, py)
			continue
		}
		px, py := proj.point(x, y)
		fill := "none"
		if fp.Kind.IsStable() {
			fill = "#ffd700"
		}
		fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="5" fill="%s" stroke="#ffd700" stroke-width="1.5"><title>%s</title></circle>
`, px, py, fill, fp.Kind)
	}

	sb.WriteString("</g>\n</svg>\n")
	return sb.String()
}

func writeArrows(sb *strings.Builder, b *Bundle, proj projector, color string) {
	g := b.Field
	if g == nil || g.Resolution.NX < 2 || g.Resolution.NY < 2 {
		return
	}
	cell := g.CellSize()
	length := 0.8 * g.Expansion * math.Min(cell[0]*proj.sx, cell[1]*proj.sy)

	fmt.Fprintf(sb, `<g stroke="%s" stroke-width="1" fill="%s">
`, color, color)
	for _, p := range g.Points {
		if !p.Valid || (p.Vec[0] == 0 && p.Vec[1] == 0) {
			continue
		}
		dx, dy := p.Vec[0]*proj.sx, -p.Vec[1]*proj.sy
		norm := math.Hypot(dx, dy)
		if norm == 0 || math.IsInf(norm, 0) {
			continue
		}
		dx, dy = dx/norm*length, dy/norm*length

		cx, cy := proj.point(p.Pos[0], p.Pos[1])
		x0, y0 := cx-dx/2, cy-dy/2
		x1, y1 := cx+dx/2, cy+dy/2
		fmt.Fprintf(sb, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>`, x0, y0, x1, y1)

		// head: two points set back from the tip and offset sideways
		hx, hy := dx*0.3, dy*0.3
		fmt.Fprintf(sb, `<polygon points="%.1f,%.1f %.1f,%.1f %.1f,%.1f"/>
`, x1, y1, x1-hx-hy*0.5, y1-hy+hx*0.5, x1-hx+hy*0.5, y1-hy-hx*0.5)
	}
	sb.WriteString("</g>\n")
}

func writePath(sb *strings.Builder, proj projector, pts [][2]float64, color string, width float64) {
	if len(pts) < 2 {
		return
	}
	fmt.Fprintf(sb, `<path fill="none" stroke="%s" stroke-width="%.1f" d="M`, color, width)
	for i, p := range pts {
		x, y := proj.point(p[0], p[1])
		if i == 0 {
			fmt.Fprintf(sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(sb, " L%.1f,%.1f", x, y)
		}
	}
	sb.WriteString("\"/>\n")
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escape(s string) string { return escaper.Replace(s) }
