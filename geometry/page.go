package geometry

import (
	"fmt"
	"math"
)

// Unit identifies the native unit of a page.
type Unit int

const (
	// Points is the PDF user-space unit (1/72 inch), bottom-left origin.
	Points Unit = iota
	// Pixels is a raster pixel, top-left origin.
	Pixels
)

func (u Unit) String() string {
	if u == Pixels {
		return "px"
	}
	return "pt"
}

// Box is a PDF rectangle [llx lly urx ury].
type Box [4]float64

// Letter is the fallback page box when a PDF page declares none.
var Letter = Box{0, 0, 612, 792}

// Normalize orders the corners so that llx <= urx and lly <= ury.
func (b Box) Normalize() Box {
	return Box{
		math.Min(b[0], b[2]), math.Min(b[1], b[3]),
		math.Max(b[0], b[2]), math.Max(b[1], b[3]),
	}
}

// Width returns the horizontal extent of b.
func (b Box) Width() float64 { return math.Abs(b[2] - b[0]) }

// Height returns the vertical extent of b.
func (b Box) Height() float64 { return math.Abs(b[3] - b[1]) }

// Page describes the native geometry of one page.
type Page struct {
	Number int  // 1-based
	Box    Box  // CropBox/MediaBox for PDF; [0 0 w h] for images
	Rotate int  // 0, 90, 180 or 270; always 0 for images
	Unit   Unit //
}

// NormalizeRotation maps any multiple of 90 onto 0, 90, 180 or 270. Other
// values are treated as 0.
func NormalizeRotation(r int) int {
	r %= 360
	if r < 0 {
		r += 360
	}
	switch r {
	case 90, 180, 270:
		return r
	}
	return 0
}

// NativeSize returns the page size as it is viewed, i.e. with width and
// height swapped for quarter-turn rotations.
func (p Page) NativeSize() Size {
	w, h := p.Box.Width(), p.Box.Height()
	if p.Rotate == 90 || p.Rotate == 270 {
		w, h = h, w
	}
	return Size{Width: w, Height: h}
}

// DisplaySize returns the unscaled surface size for the page: the native
// size rounded to whole device pixels.
func (p Page) DisplaySize() Size {
	n := p.NativeSize()
	return Size{Width: math.Max(1, math.Round(n.Width)), Height: math.Max(1, math.Round(n.Height))}
}

// Scale holds independent per-axis factors from display to native units.
type Scale struct {
	X, Y float64
}

// ScaleFor computes native/visual per axis.
func ScaleFor(visual, native Size) (Scale, error) {
	if !visual.Valid() {
		return Scale{}, fmt.Errorf("invalid visual size %s", visual)
	}
	if !native.Valid() {
		return Scale{}, fmt.Errorf("invalid native size %s", native)
	}
	return Scale{X: native.Width / visual.Width, Y: native.Height / visual.Height}, nil
}

// Projection maps display-space rectangles of one page onto its native
// space.
type Projection struct {
	page   Page
	native Size
	scale  Scale
}

// NewProjection returns the projection for page p whose surface was shown
// at visual (display-space) size.
func NewProjection(p Page, visual Size) (Projection, error) {
	native := p.NativeSize()
	s, err := ScaleFor(visual, native)
	if err != nil {
		return Projection{}, fmt.Errorf("page %d: %w", p.Number, err)
	}
	return Projection{page: p, native: native, scale: s}, nil
}

// Scale returns the per-axis scale factors.
func (pr Projection) Scale() Scale { return pr.scale }

// Native returns the native (viewed) page size.
func (pr Projection) Native() Size { return pr.native }

// Rect projects a display rectangle. For PDF pages the result is anchored
// at its bottom-left corner in the viewed page frame:
//
//	nativeY = nativeHeight - y*scaleY - height*scaleY
//
// For raster pages it stays top-left anchored.
func (pr Projection) Rect(r Rect) Rect {
	n := Rect{
		X:      r.X * pr.scale.X,
		Width:  r.Width * pr.scale.X,
		Height: r.Height * pr.scale.Y,
	}
	if pr.page.Unit == Pixels {
		n.Y = r.Y * pr.scale.Y
	} else {
		n.Y = pr.native.Height - r.Y*pr.scale.Y - n.Height
	}
	return n
}

// Inverse maps a native rectangle produced by Rect back to display space.
func (pr Projection) Inverse(n Rect) Rect {
	r := Rect{
		X:      n.X / pr.scale.X,
		Width:  n.Width / pr.scale.X,
		Height: n.Height / pr.scale.Y,
	}
	if pr.page.Unit == Pixels {
		r.Y = n.Y / pr.scale.Y
	} else {
		r.Y = (pr.native.Height - n.Y - n.Height) / pr.scale.Y
	}
	return r
}

// Placement returns the transform from element-local PDF coordinates
// (origin at the bottom-left of n, x right, y up, as the page is viewed)
// into default user space. It accounts for /Rotate and the box origin.
func (pr Projection) Placement(n Rect) Matrix {
	llx, lly := pr.page.Box.Normalize()[0], pr.page.Box.Normalize()[1]
	w, h := pr.page.Box.Width(), pr.page.Box.Height()

	// distance from the viewed top edge to the element's top edge
	top := pr.native.Height - n.Y - n.Height

	var m Matrix
	switch pr.page.Rotate {
	case 90:
		m = Matrix{0, 1, -1, 0, top + n.Height, n.X}
	case 180:
		m = Matrix{-1, 0, 0, -1, w - n.X, top + n.Height}
	case 270:
		m = Matrix{0, -1, 1, 0, w - top - n.Height, h - n.X}
	default:
		m = Matrix{1, 0, 0, 1, n.X, n.Y}
	}
	m[4] += llx
	m[5] += lly
	return m
}
