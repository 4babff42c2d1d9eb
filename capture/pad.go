package capture

import (
	"image"
	"image/color"
	"math"

	"github.com/digitorus/pdfstamp/geometry"
	"github.com/digitorus/pdfstamp/internal/raster"
)

// Stroke is one continuous pen movement in pad pixels.
type Stroke []geometry.Point

// Pad collects freehand ink.
type Pad struct {
	width, height int

	ink         color.Color
	lineWidth   float64
	padding     float64
	supersample int

	strokes []Stroke
	current Stroke
	drawing bool
}

// PadOption configures a Pad.
type PadOption func(*Pad)

// WithInk sets the ink color.
func WithInk(c color.Color) PadOption {
	return func(p *Pad) { p.ink = c }
}

// WithLineWidth sets the pen width in pad pixels.
func WithLineWidth(w float64) PadOption {
	return func(p *Pad) {
		if w > 0 {
			p.lineWidth = w
		}
	}
}

// WithPadding sets the transparent margin kept around the ink.
func WithPadding(px float64) PadOption {
	return func(p *Pad) {
		if px >= 0 {
			p.padding = px
		}
	}
}

// WithSupersample sets the density of the saved bitmap.
func WithSupersample(n int) PadOption {
	return func(p *Pad) {
		if n >= 1 {
			p.supersample = n
		}
	}
}

// NewPad returns an empty pad of the given size.
func NewPad(width, height int, opts ...PadOption) *Pad {
	p := &Pad{
		width:       width,
		height:      height,
		ink:         color.Black,
		lineWidth:   2.5,
		padding:     8,
		supersample: 3,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Begin starts a stroke at pt.
func (p *Pad) Begin(pt geometry.Point) {
	p.End()
	p.current = Stroke{pt}
	p.drawing = true
}

// Extend adds pt to the stroke in progress.
func (p *Pad) Extend(pt geometry.Point) {
	if p.drawing {
		p.current = append(p.current, pt)
	}
}

// End finishes the stroke in progress.
func (p *Pad) End() {
	if !p.drawing {
		return
	}
	p.strokes = append(p.strokes, p.current)
	p.current = nil
	p.drawing = false
}

// AddStroke appends a complete stroke.
func (p *Pad) AddStroke(s Stroke) {
	if len(s) > 0 {
		p.strokes = append(p.strokes, append(Stroke(nil), s...))
	}
}

// UndoStroke removes the last stroke.
func (p *Pad) UndoStroke() bool {
	p.End()
	if len(p.strokes) == 0 {
		return false
	}
	p.strokes = p.strokes[:len(p.strokes)-1]
	return true
}

// Clear removes all ink.
func (p *Pad) Clear() {
	p.strokes, p.current, p.drawing = nil, nil, false
}

// Empty reports whether the pad holds no ink.
func (p *Pad) Empty() bool {
	return len(p.strokes) == 0 && len(p.current) == 0
}

// Strokes returns the finished strokes.
func (p *Pad) Strokes() []Stroke {
	return append([]Stroke(nil), p.strokes...)
}

// Save crops the ink to its bounding box plus padding and renders it at
// the supersample density.
func (p *Pad) Save() (*Asset, error) {
	p.End()
	if p.Empty() {
		return nil, ErrEmptyPad
	}

	preview := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	p.draw(preview, geometry.Point{}, 1)
	box := inkBounds(preview)
	if box.Empty() {
		return nil, ErrEmptyPad
	}

	pad := int(math.Ceil(p.padding))
	box = image.Rect(box.Min.X-pad, box.Min.Y-pad, box.Max.X+pad, box.Max.Y+pad)

	ss := p.supersample
	out := image.NewRGBA(image.Rect(0, 0, box.Dx()*ss, box.Dy()*ss))
	p.draw(out, geometry.Point{X: float64(box.Min.X), Y: float64(box.Min.Y)}, float64(ss))
	return encode(out, ss)
}

func (p *Pad) draw(dst *image.RGBA, origin geometry.Point, scale float64) {
	paths := make([][]geometry.Point, len(p.strokes))
	for i, s := range p.strokes {
		path := make([]geometry.Point, len(s))
		for j, pt := range s {
			path[j] = geometry.Point{X: (pt.X - origin.X) * scale, Y: (pt.Y - origin.Y) * scale}
		}
		paths[i] = path
	}
	raster.Stroke(dst, paths, p.lineWidth*scale, p.ink)
}

// inkBounds returns the smallest rectangle holding every pixel with
// non-zero alpha.
func inkBounds(img *image.RGBA) image.Rectangle {
	b := img.Bounds()
	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X-1, b.Min.Y-1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[(y-b.Min.Y)*img.Stride:]
		for x := b.Min.X; x < b.Max.X; x++ {
			if row[(x-b.Min.X)*4+3] == 0 {
				continue
			}
			minX = min(minX, x)
			maxX = max(maxX, x)
			minY = min(minY, y)
			maxY = max(maxY, y)
		}
	}
	if maxX < minX {
		return image.Rectangle{}
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}
