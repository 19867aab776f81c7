package viz

import "strings"

// Braille cells pack a 2x4 dot grid per terminal character, so a w x h
// canvas carries 2w x 4h addressable dots. Dot bits within U+2800:
//
//	1  4
//	2  5
//	3  6
//	7  8
var dotBits = [4][2]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

const brailleBase = 0x2800

// Canvas is a braille dot matrix addressed in subpixel coordinates.
type Canvas struct {
	w, h  int
	cells [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{w: w, h: h, cells: make([][]rune, h)}
	for i := range c.cells {
		c.cells[i] = make([]rune, w)
		for j := range c.cells[i] {
			c.cells[i][j] = brailleBase
		}
	}
	return c
}

// SubW and SubH are the canvas dimensions in dots.
func (c *Canvas) SubW() int { return c.w * 2 }
func (c *Canvas) SubH() int { return c.h * 4 }

// Set lights the dot at (x, y). Out-of-range dots are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.w || row >= c.h {
		return
	}
	c.cells[row][col] |= dotBits[y%4][x%2]
}

// Line lights the dots of a Bresenham segment.
func (c *Canvas) Line(x0, y0, x1, y1 int) {
	dx, dy := abs(x1-x0), abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx - dy
	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
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

func (c *Canvas) Clear() {
	for i := range c.cells {
		for j := range c.cells[i] {
			c.cells[i][j] = brailleBase
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.cells {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

// Viewport maps world coordinates onto a canvas. Y grows upward in
// world space and downward on the canvas.
type Viewport struct {
	canvas         *Canvas
	x0, x1, y0, y1 float64
}

// NewViewport spans the world rectangle [x0,x1] x [y0,y1] over the
// whole canvas. Degenerate spans are widened so mapping stays finite.
func NewViewport(c *Canvas, x0, x1, y0, y1 float64) *Viewport {
	if x1-x0 < 1e-12 {
		x0, x1 = x0-0.5, x1+0.5
	}
	if y1-y0 < 1e-12 {
		y0, y1 = y0-0.5, y1+0.5
	}
	return &Viewport{canvas: c, x0: x0, x1: x1, y0: y0, y1: y1}
}

func (v *Viewport) screen(x, y float64) (int, int) {
	sx := (x - v.x0) / (v.x1 - v.x0) * float64(v.canvas.SubW()-1)
	sy := (v.y1 - y) / (v.y1 - v.y0) * float64(v.canvas.SubH()-1)
	return int(sx + 0.5), int(sy + 0.5)
}

// Point lights the dot nearest the world coordinate.
func (v *Viewport) Point(x, y float64) {
	v.canvas.Set(v.screen(x, y))
}

// Segment draws a world-space line.
func (v *Viewport) Segment(xa, ya, xb, yb float64) {
	x0, y0 := v.screen(xa, ya)
	x1, y1 := v.screen(xb, yb)
	v.canvas.Line(x0, y0, x1, y1)
}

// Blob lights a 3x3 dot cluster, used for point masses.
func (v *Viewport) Blob(x, y float64) {
	cx, cy := v.screen(x, y)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			v.canvas.Set(cx+dx, cy+dy)
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
