package viz

import (
	"math"
	"strings"

	"github.com/san-kum/phaseplane/internal/dynamo"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
const blank = 0x2800

var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
		}
	}
	return c
}

// Set sets a pixel at (x, y) in sub-pixel coordinates. The canvas size in
// sub-pixels is (Width*2) x (Height*4).
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}

	col := x / 2
	row := y / 4
	if col >= c.Width || row >= c.Height {
		return
	}

	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) Unset(x, y int) {
	if x < 0 || y < 0 {
		return
	}

	col := x / 2
	row := y / 4
	if col >= c.Width || row >= c.Height {
		return
	}

	c.Grid[row][col] &^= rune(pixelMap[y%4][x%2])
	if c.Grid[row][col] < blank {
		c.Grid[row][col] = blank
	}
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
		}
	}
}

// Empty reports whether no dot is set in cell (col, row).
func (c *Canvas) Empty(col, row int) bool {
	return c.Grid[row][col] == blank
}

// DrawLine draws a line using Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Viewport maps the display plane of a window onto a canvas' sub-pixels.
// Axis 1 grows upward on screen.
type Viewport struct {
	Window dynamo.Window
	W, H   int
}

func NewViewport(window dynamo.Window, c *Canvas) Viewport {
	return Viewport{Window: window, W: c.Width * 2, H: c.Height * 4}
}

// Project returns the sub-pixel for (x, y). ok is false for points off
// the canvas or not finite.
func (v Viewport) Project(x, y float64) (px, py int, ok bool) {
	fx := (x - v.Window[0].Min) / v.Window[0].Span() * float64(v.W-1)
	fy := (v.Window[1].Max - y) / v.Window[1].Span() * float64(v.H-1)
	if !(fx > -0.5 && fx < float64(v.W)-0.5 && fy > -0.5 && fy < float64(v.H)-0.5) {
		return 0, 0, false
	}
	return int(math.Round(fx)), int(math.Round(fy)), true
}

// Unproject returns the plane point at the center of sub-pixel (px, py).
func (v Viewport) Unproject(px, py int) (x, y float64) {
	x = v.Window[0].Min + float64(px)/float64(v.W-1)*v.Window[0].Span()
	y = v.Window[1].Max - float64(py)/float64(v.H-1)*v.Window[1].Span()
	return x, y
}

// Polyline draws consecutive segments. Segments with an endpoint far off
// canvas are skipped rather than clipped; Bresenham discards the
// off-canvas pixels of the rest.
func (v Viewport) Polyline(c *Canvas, pts [][2]float64) {
	const slack = 4
	w, h := float64(v.W), float64(v.H)
	prevOK := false
	var px0, py0 int
	for _, p := range pts {
		fx := (p[0] - v.Window[0].Min) / v.Window[0].Span() * (w - 1)
		fy := (v.Window[1].Max - p[1]) / v.Window[1].Span() * (h - 1)
		ok := fx > -slack*w && fx < (slack+1)*w && fy > -slack*h && fy < (slack+1)*h
		if !ok {
			prevOK = false
			continue
		}
		px, py := int(math.Round(fx)), int(math.Round(fy))
		if prevOK {
			c.DrawLine(px0, py0, px, py)
		} else {
			c.Set(px, py)
		}
		px0, py0, prevOK = px, py, true
	}
}
