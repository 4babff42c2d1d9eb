// Package geometry holds the coordinate contracts shared by the editor and
// the export engine.
//
// Three spaces are involved:
//
//   - display space: unscaled (zoom = 1) surface pixels, top-left origin.
//     Element geometry is always stored in this space.
//   - native PDF space: points, bottom-left origin, possibly rotated by the
//     page's /Rotate entry and offset by its box origin.
//   - native raster space: image pixels, top-left origin.
//
// Conversions between display and native space use independent per-axis
// scale factors; nothing here assumes the two axes scale uniformly.
package geometry

import (
	"fmt"
	"math"
)

// Point is a position in some coordinate space.
type Point struct {
	X, Y float64
}

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Div returns p scaled by 1/k.
func (p Point) Div(k float64) Point { return Point{p.X / k, p.Y / k} }

// Size is a width/height pair.
type Size struct {
	Width, Height float64
}

// Valid reports whether both dimensions are strictly positive and finite.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0 && !math.IsInf(s.Width, 0) && !math.IsInf(s.Height, 0)
}

func (s Size) String() string {
	return fmt.Sprintf("%gx%g", s.Width, s.Height)
}

// ParseSize parses "WxH".
func ParseSize(s string) (Size, error) {
	var sz Size
	if _, err := fmt.Sscanf(s, "%gx%g", &sz.Width, &sz.Height); err != nil {
		return Size{}, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if !sz.Valid() {
		return Size{}, fmt.Errorf("invalid size %q: dimensions must be positive", s)
	}
	return sz, nil
}

// Rect is an axis-aligned rectangle given by its top-left corner in
// display or raster space, or by its bottom-left corner in PDF space.
type Rect struct {
	X, Y, Width, Height float64
}

// Origin returns the corner the rectangle is anchored at.
func (r Rect) Origin() Point { return Point{r.X, r.Y} }

// Size returns the rectangle's extent.
func (r Rect) Size() Size { return Size{r.Width, r.Height} }

// Center returns the rectangle's midpoint.
func (r Rect) Center() Point { return Point{r.X + r.Width/2, r.Y + r.Height/2} }

// Max returns the corner opposite the origin.
func (r Rect) Max() Point { return Point{r.X + r.Width, r.Y + r.Height} }

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// CenteredAt returns a rectangle of size s centered on c.
func CenteredAt(c Point, s Size) Rect {
	return Rect{X: c.X - s.Width/2, Y: c.Y - s.Height/2, Width: s.Width, Height: s.Height}
}

// PointerToDocument converts a pointer position to display space given the
// surface origin (in the same pointer coordinates) and the current zoom.
func PointerToDocument(pointer, origin Point, zoom float64) Point {
	if zoom <= 0 {
		zoom = 1
	}
	return pointer.Sub(origin).Div(zoom)
}

// FitWithin scales natural down (never up) so it fits max, then up so
// neither side is below min, keeping the aspect ratio. When both bounds
// cannot be met, max wins.
func FitWithin(natural Size, min, max float64) Size {
	if !natural.Valid() {
		return Size{Width: min, Height: min}
	}
	s := natural
	if max > 0 && (s.Width > max || s.Height > max) {
		k := math.Min(max/s.Width, max/s.Height)
		s = Size{s.Width * k, s.Height * k}
	}
	if min > 0 && (s.Width < min || s.Height < min) {
		k := math.Max(min/s.Width, min/s.Height)
		grown := Size{s.Width * k, s.Height * k}
		if max <= 0 || (grown.Width <= max && grown.Height <= max) {
			s = grown
		}
	}
	return s
}
