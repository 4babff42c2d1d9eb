package document

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync"

	"golang.org/x/image/draw"

	"github.com/digitorus/pdfstamp/geometry"
)

// Geometry is the page geometry handed to the export engine.
type Geometry struct {
	NumPages int
	Pages    []geometry.Page
	// Visual is the unscaled surface size per page in display units. It
	// is the frame element coordinates are recorded in.
	Visual map[int]geometry.Size
}

// Renderer owns the display surface of the loaded document.
type Renderer struct {
	mu         sync.Mutex
	rasterizer Rasterizer
	logger     *slog.Logger

	doc     *Document
	page    int
	zoom    float64
	surface image.Image
	visual  map[int]geometry.Size
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithRasterizer sets the PDF rasterizer. The default is Blank.
func WithRasterizer(r Rasterizer) Option {
	return func(rd *Renderer) { rd.rasterizer = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(rd *Renderer) { rd.logger = l }
}

// NewRenderer returns a renderer without a document.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{rasterizer: Blank{}, zoom: 1}
	for _, o := range opts {
		o(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Open makes doc the current document and resets the page to 1. The
// surface is empty until Render is called.
func (r *Renderer) Open(doc *Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doc = doc
	r.page = 1
	r.surface = nil
	r.visual = make(map[int]geometry.Size)
}

// Close drops the document and surface.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doc, r.page, r.surface, r.visual = nil, 0, nil, nil
}

// Document returns the current document.
func (r *Renderer) Document() *Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doc
}

// Render rasterizes page n at zoom 1 and makes it the current page. On
// failure the previous surface and page are kept.
func (r *Renderer) Render(ctx context.Context, n int) (image.Image, error) {
	r.mu.Lock()
	doc := r.doc
	r.mu.Unlock()
	if doc == nil {
		return nil, ErrNoDocument
	}

	page, err := doc.Page(n)
	if err != nil {
		return nil, &RenderError{Page: n, Err: err}
	}

	var img image.Image
	if doc.IsPDF() {
		img, err = r.rasterizer.Rasterize(ctx, doc.Data, page)
	} else {
		img = doc.Image()
	}
	if err == nil && (img == nil || img.Bounds().Empty()) {
		err = errEmptySurface
	}
	if err != nil {
		r.logger.Warn("page render failed", slog.Int("page", n), slog.Any("error", err))
		return nil, &RenderError{Page: n, Err: err}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.doc != doc {
		return nil, &RenderError{Page: n, Err: context.Canceled}
	}
	b := img.Bounds()
	r.surface = img
	r.page = n
	r.visual[n] = geometry.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}
	r.logger.Debug("page rendered", slog.Int("page", n), slog.Int("width", b.Dx()), slog.Int("height", b.Dy()))
	return img, nil
}

// SetVisual records the visual size of page n as measured by the host,
// for layouts whose surface differs from the rendered one.
func (r *Renderer) SetVisual(n int, s geometry.Size) error {
	if !s.Valid() {
		return fmt.Errorf("invalid visual size %v", s)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.doc == nil {
		return ErrNoDocument
	}
	if n < 1 || n > r.doc.NumPages() {
		return &RenderError{Page: n, Err: fmt.Errorf("page %d out of range (1-%d)", n, r.doc.NumPages())}
	}
	r.visual[n] = s
	return nil
}

// Page returns the current page number, 0 without a document.
func (r *Renderer) Page() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.page
}

// SetZoom sets the display zoom. Zoom never changes the unscaled surface
// or recorded geometry.
func (r *Renderer) SetZoom(z float64) {
	if !(z > 0) || math.IsInf(z, 0) {
		return
	}
	r.mu.Lock()
	r.zoom = z
	r.mu.Unlock()
}

// Zoom returns the display zoom.
func (r *Renderer) Zoom() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zoom
}

// Surface returns the unscaled surface of the current page.
func (r *Renderer) Surface() image.Image {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.surface
}

// Scaled returns the current surface resampled to the zoom level.
func (r *Renderer) Scaled() image.Image {
	r.mu.Lock()
	src, z := r.surface, r.zoom
	r.mu.Unlock()
	if src == nil || z == 1 {
		return src
	}
	b := src.Bounds()
	w := int(math.Max(1, math.Round(float64(b.Dx())*z)))
	h := int(math.Max(1, math.Round(float64(b.Dy())*z)))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// Geometry returns the page geometry. Pages that were never rendered
// report their expected display size as visual size.
func (r *Renderer) Geometry() Geometry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.doc == nil {
		return Geometry{}
	}
	g := Geometry{
		NumPages: r.doc.NumPages(),
		Pages:    append([]geometry.Page(nil), r.doc.Pages...),
		Visual:   make(map[int]geometry.Size, r.doc.NumPages()),
	}
	for _, p := range r.doc.Pages {
		if v, ok := r.visual[p.Number]; ok {
			g.Visual[p.Number] = v
		} else {
			g.Visual[p.Number] = p.DisplaySize()
		}
	}
	return g
}
