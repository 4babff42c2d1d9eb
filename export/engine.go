// Package export bakes placed elements into the source document.
//
// Every element is projected from display space onto its page's native
// space with independent per-axis scale factors:
//
//	scaleX = nativeWidth / visualWidth
//	scaleY = nativeHeight / visualHeight
//
// PDF output is written as an incremental update, leaving untouched pages
// byte-for-byte identical. Image output is a PNG of the source raster with
// the overlays drawn on top.
package export

import (
	"compress/zlib"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/digitorus/pdfstamp/document"
	"github.com/digitorus/pdfstamp/element"
	"github.com/digitorus/pdfstamp/fonts"
	"github.com/digitorus/pdfstamp/geometry"
	"github.com/digitorus/pdfstamp/internal/render"
)

// MinSupersample is the smallest bitmap supersampling factor.
const MinSupersample = 3

// ErrNoSurface is returned when a page carrying elements has no visual
// size to project from.
var ErrNoSurface = errors.New("no rendered surface for page")

// Error is a failure that aborted the whole export.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("export failed: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Skip records an element left out of the output.
type Skip struct {
	ID   string
	Page int
	Type element.Type
	Err  error
}

// Job is one export request.
type Job struct {
	Document *document.Document
	Elements []element.Element

	// Visual maps page numbers to the display size the elements were
	// placed against. Every page carrying elements needs an entry.
	Visual map[int]geometry.Size

	// SignerName fills the {{Name}} and {{Initials}} template variables.
	// Empty uses the engine default.
	SignerName string
}

// Result is the produced artifact.
type Result struct {
	Data    []byte
	MIME    string
	Pages   []int // pages that received overlays
	Drawn   int   // elements baked in
	Skipped []Skip
}

func (r *Result) skip(el element.Element, err error) {
	r.Skipped = append(r.Skipped, Skip{ID: el.ID, Page: el.PageNumber, Type: el.Type, Err: err})
}

// Engine exports documents. It holds no per-export state and may be
// shared.
type Engine struct {
	logger        *slog.Logger
	supersample   int
	compressLevel int
	fonts         map[string]*fonts.Font
	signerName    string
	dateFormat    string
	now           func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithSupersample sets the bitmap supersampling factor. Values below
// MinSupersample are raised to it.
func WithSupersample(n int) Option {
	return func(e *Engine) {
		if n < MinSupersample {
			n = MinSupersample
		}
		e.supersample = n
	}
}

// WithCompressLevel sets the zlib level of new PDF streams.
func WithCompressLevel(level int) Option {
	return func(e *Engine) { e.compressLevel = level }
}

// WithFont registers an embedded font for a font family name. Text
// elements whose family matches (case-insensitively) use it instead of a
// standard font.
func WithFont(family string, f *fonts.Font) Option {
	return func(e *Engine) {
		if f != nil {
			e.fonts[strings.ToLower(strings.TrimSpace(family))] = f
		}
	}
}

// WithSignerName sets the default {{Name}} value.
func WithSignerName(name string) Option {
	return func(e *Engine) { e.signerName = name }
}

// WithDateFormat sets the Go layout of {{Date}}.
func WithDateFormat(layout string) Option {
	return func(e *Engine) {
		if layout != "" {
			e.dateFormat = layout
		}
	}
}

// WithClock sets the time source of {{Date}}.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine returns an export engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		supersample:   MinSupersample,
		compressLevel: zlib.DefaultCompression,
		fonts:         make(map[string]*fonts.Font),
		dateFormat:    render.DefaultDateFormat,
		now:           time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Export projects the job's elements onto its document. Elements that
// cannot be drawn are logged and listed in Result.Skipped; failures that
// would leave a broken artifact abort the export with an *Error and no
// data.
func (e *Engine) Export(ctx context.Context, job Job) (*Result, error) {
	doc := job.Document
	if doc == nil {
		return nil, &Error{Op: "prepare", Err: document.ErrNoDocument}
	}

	res := &Result{}
	byPage := make(map[int][]element.Element)
	for _, el := range job.Elements {
		if err := el.Validate(doc.NumPages()); err != nil {
			e.skipped(res, el, err)
			continue
		}
		byPage[el.PageNumber] = append(byPage[el.PageNumber], el)
	}

	pages := make([]int, 0, len(byPage))
	for _, n := range element.Pages(job.Elements) {
		if len(byPage[n]) > 0 {
			pages = append(pages, n)
		}
	}
	for _, n := range pages {
		if v, ok := job.Visual[n]; !ok || !v.Valid() {
			return nil, &Error{Op: "project", Err: fmt.Errorf("%w %d", ErrNoSurface, n)}
		}
	}

	x := &exporter{
		Engine: e,
		ctx:    ctx,
		job:    job,
		res:    res,
		byPage: byPage,
		pages:  pages,
		cache:  make(map[string]*decoded),
		fields: render.Fields{
			Name:       e.signerName,
			Date:       e.now(),
			DateFormat: e.dateFormat,
		},
	}
	if job.SignerName != "" {
		x.fields.Name = job.SignerName
	}

	var err error
	if doc.IsPDF() {
		err = x.writePDF()
	} else {
		err = x.writeRaster()
	}
	if err != nil {
		return nil, err
	}

	e.logger.Info("document exported",
		slog.String("document", doc.Name),
		slog.String("mime", res.MIME),
		slog.Int("pages", len(res.Pages)),
		slog.Int("elements", res.Drawn),
		slog.Int("skipped", len(res.Skipped)))
	return res, nil
}

func (e *Engine) skipped(res *Result, el element.Element, err error) {
	e.logger.Warn("element skipped",
		slog.String("element", el.ID),
		slog.Int("page", el.PageNumber),
		slog.String("type", string(el.Type)),
		slog.Any("error", err))
	res.skip(el, err)
}

// font resolves a CSS font-family list to a registered embedded font or a
// standard font.
func (e *Engine) font(family string) *fonts.Font {
	for _, part := range strings.Split(family, ",") {
		name := strings.ToLower(strings.Trim(strings.TrimSpace(part), `"'`))
		if f, ok := e.fonts[name]; ok {
			return f
		}
	}
	return fonts.FromFamily(family)
}

// exporter carries the state of one export.
type exporter struct {
	*Engine
	ctx    context.Context
	job    Job
	res    *Result
	byPage map[int][]element.Element
	pages  []int
	cache  map[string]*decoded
	fields render.Fields
}

func (x *exporter) projection(n int) (geometry.Projection, error) {
	page, err := x.job.Document.Page(n)
	if err != nil {
		return geometry.Projection{}, err
	}
	return geometry.NewProjection(page, x.job.Visual[n])
}

// text returns the expanded content, color and scaled font size of a text
// or date element.
func (x *exporter) text(el element.Element, s geometry.Scale) (string, render.Color, float64) {
	size := el.FontSize
	if size <= 0 {
		size = element.DefaultFontSize
	}
	c, err := render.ParseColor(el.Color)
	if err != nil && el.Color != "" {
		x.logger.Warn("invalid text color, using black",
			slog.String("element", el.ID), slog.String("color", el.Color))
	}
	return render.Expand(el.Content, x.fields), c, size * s.Y
}

// Text layout inside the native element box.
const (
	textInset = 4.0 // display units, scaled by scaleX
	capHeight = 0.7 // of the font size
)

// baseline returns the distance from the bottom of a box of height h to
// the baseline that vertically centres capitals of the given size.
func baseline(h, size float64) float64 {
	return (h - capHeight*size) / 2
}
