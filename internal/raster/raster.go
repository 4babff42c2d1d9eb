// Package raster strokes anti-aliased polylines onto bitmaps. It draws
// pad ink and checkboxes for image output.
package raster

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"

	"github.com/digitorus/pdfstamp/geometry"
)

// Stroke draws each path with round caps and joins. Coordinates are in
// the pixel space of dst.
func Stroke(dst draw.Image, paths [][]geometry.Point, width float64, c color.Color) {
	b := dst.Bounds()
	if b.Empty() || width <= 0 {
		return
	}
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.DrawOp = draw.Over

	r := width / 2
	off := geometry.Point{X: float64(b.Min.X), Y: float64(b.Min.Y)}
	drawn := false
	for _, path := range paths {
		for i, p := range path {
			p = p.Sub(off)
			circle(z, p, r)
			drawn = true
			if i > 0 {
				segment(z, path[i-1].Sub(off), p, r)
			}
		}
	}
	if drawn {
		z.Draw(dst, b, image.NewUniform(c), image.Point{})
	}
}

// StrokeRect outlines r with the stroke centred on its edges.
func StrokeRect(dst draw.Image, r geometry.Rect, width float64, c color.Color) {
	max := r.Max()
	Stroke(dst, [][]geometry.Point{{
		{X: r.X, Y: r.Y},
		{X: max.X, Y: r.Y},
		{X: max.X, Y: max.Y},
		{X: r.X, Y: max.Y},
		{X: r.X, Y: r.Y},
	}}, width, c)
}

// Every shape is emitted with the same orientation so overlapping parts
// accumulate instead of cancelling.

func segment(z *vector.Rasterizer, p0, p1 geometry.Point, r float64) {
	dx, dy := p1.X-p0.X, p1.Y-p0.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return
	}
	nx, ny := -dy*r/l, dx*r/l
	z.MoveTo(float32(p0.X+nx), float32(p0.Y+ny))
	z.LineTo(float32(p1.X+nx), float32(p1.Y+ny))
	z.LineTo(float32(p1.X-nx), float32(p1.Y-ny))
	z.LineTo(float32(p0.X-nx), float32(p0.Y-ny))
	z.ClosePath()
}

func circle(z *vector.Rasterizer, c geometry.Point, r float64) {
	n := int(math.Max(12, math.Ceil(r*4)))
	z.MoveTo(float32(c.X+r), float32(c.Y))
	for i := 1; i < n; i++ {
		a := -2 * math.Pi * float64(i) / float64(n)
		z.LineTo(float32(c.X+r*math.Cos(a)), float32(c.Y+r*math.Sin(a)))
	}
	z.ClosePath()
}
