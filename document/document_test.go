package document

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/digitorus/pdfstamp/geometry"
	"github.com/digitorus/pdfstamp/internal/testpdf"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
		err  bool
	}{
		{"pdf", testpdf.Letter(1), MIMEPDF, false},
		{"png", pngBytes(t, 2, 2), MIMEPNG, false},
		{"docx", []byte("PK\x03\x04\x14\x00\x06\x00\x08\x00\x00\x00!\x00[Content_Types].xml"), "", true},
		{"text", []byte("hello"), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Detect(tt.data)
			if tt.err {
				if !errors.Is(err, ErrUnsupportedFormat) {
					t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("Detect = %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

func TestLoadPDF(t *testing.T) {
	data := testpdf.Build(testpdf.Options{},
		testpdf.Page{},
		testpdf.Page{MediaBox: []float64{0, 0, 595, 842}, Rotate: 90},
	)
	doc, err := Load("two.pdf", data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !doc.IsPDF() || doc.NumPages() != 2 {
		t.Fatalf("pdf=%v pages=%d", doc.IsPDF(), doc.NumPages())
	}
	p2, err := doc.Page(2)
	if err != nil {
		t.Fatal(err)
	}
	if got := p2.NativeSize(); got != (geometry.Size{Width: 842, Height: 595}) {
		t.Errorf("rotated page size = %v", got)
	}
	if _, err := doc.Page(3); err == nil {
		t.Error("expected error for page 3")
	}
	if info, err := doc.PageInfo(1); err != nil || info.ID != 4 {
		t.Errorf("PageInfo(1) = %+v, %v", info, err)
	}
	if fonts := doc.Fonts(); len(fonts) != 1 || fonts[0].BaseFont != "Helvetica" {
		t.Errorf("Fonts = %+v", fonts)
	}
}

func TestLoadImage(t *testing.T) {
	doc, err := Load("scan.png", pngBytes(t, 30, 20))
	if err != nil {
		t.Fatal(err)
	}
	p, _ := doc.Page(1)
	if doc.NumPages() != 1 || p.Unit != geometry.Pixels || p.NativeSize() != (geometry.Size{Width: 30, Height: 20}) {
		t.Errorf("image page = %+v", p)
	}
	if doc.Reader() != nil || doc.Image() == nil {
		t.Error("image documents have a bitmap and no reader")
	}
	if _, err := doc.PageInfo(1); err == nil {
		t.Error("PageInfo should fail for images")
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := Load("notes.docx", []byte("PK\x03\x04 not a pdf"))
	var le *LoadError
	if !errors.As(err, &le) || le.Name != "notes.docx" || !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v", err)
	}

	if _, err := Load("broken.pdf", []byte("%PDF-1.7\ngarbage")); !errors.As(err, &le) {
		t.Errorf("corrupt pdf err = %v, want *LoadError", err)
	}
}

type failing struct{}

func (failing) Rasterize(context.Context, []byte, geometry.Page) (image.Image, error) {
	return nil, errors.New("boom")
}

func TestRendererLifecycle(t *testing.T) {
	doc, err := Load("a.pdf", testpdf.Build(testpdf.Options{}, testpdf.Page{}, testpdf.Page{MediaBox: []float64{0, 0, 300, 400}}))
	if err != nil {
		t.Fatal(err)
	}
	r := NewRenderer()
	if _, err := r.Render(context.Background(), 1); !errors.Is(err, ErrNoDocument) {
		t.Fatalf("render without document: %v", err)
	}

	r.Open(doc)
	if r.Page() != 1 || r.Surface() != nil {
		t.Fatal("Open must reset to page 1 with no surface")
	}
	img, err := r.Render(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 300 || img.Bounds().Dy() != 400 || r.Page() != 2 {
		t.Errorf("surface %v on page %d", img.Bounds(), r.Page())
	}

	r.SetZoom(1.5)
	for _, z := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		r.SetZoom(z)
	}
	if r.Zoom() != 1.5 {
		t.Errorf("invalid zoom values changed the zoom to %v", r.Zoom())
	}
	if got := r.Scaled().Bounds().Dx(); got != 450 {
		t.Errorf("scaled width = %d, want 450", got)
	}
	if r.Surface().Bounds().Dx() != 300 {
		t.Error("zoom must not change the unscaled surface")
	}

	g := r.Geometry()
	if g.NumPages != 2 || g.Visual[1] != (geometry.Size{Width: 612, Height: 792}) || g.Visual[2] != (geometry.Size{Width: 300, Height: 400}) {
		t.Errorf("geometry = %+v", g)
	}

	r.Open(doc)
	if r.Page() != 1 {
		t.Error("reopening resets the page")
	}
}

func TestRendererSetVisual(t *testing.T) {
	doc, _ := Load("a.pdf", testpdf.Letter(2))
	r := NewRenderer()
	if err := r.SetVisual(1, geometry.Size{Width: 600, Height: 800}); !errors.Is(err, ErrNoDocument) {
		t.Errorf("SetVisual without document = %v", err)
	}
	r.Open(doc)
	if err := r.SetVisual(2, geometry.Size{Width: 600, Height: 800}); err != nil {
		t.Fatal(err)
	}
	if err := r.SetVisual(3, geometry.Size{Width: 600, Height: 800}); err == nil {
		t.Error("SetVisual accepted a missing page")
	}
	if err := r.SetVisual(1, geometry.Size{}); err == nil {
		t.Error("SetVisual accepted an empty size")
	}
	g := r.Geometry()
	if g.Visual[1] != (geometry.Size{Width: 612, Height: 792}) || g.Visual[2] != (geometry.Size{Width: 600, Height: 800}) {
		t.Errorf("visual = %v", g.Visual)
	}
}

func TestRenderFailureKeepsSurface(t *testing.T) {
	doc, _ := Load("a.pdf", testpdf.Letter(2))
	r := NewRenderer()
	r.Open(doc)
	if _, err := r.Render(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	before := r.Surface()

	r.rasterizer = failing{}
	_, err := r.Render(context.Background(), 2)
	var re *RenderError
	if !errors.As(err, &re) || re.Page != 2 {
		t.Fatalf("err = %v, want RenderError for page 2", err)
	}
	if r.Surface() != before || r.Page() != 1 {
		t.Error("failed render replaced the surface")
	}
	if _, err := r.Render(context.Background(), 9); !errors.As(err, &re) {
		t.Errorf("out of range page: %v", err)
	}
}

func TestNewRasterizer(t *testing.T) {
	if r, err := NewRasterizer("blank", "", 0); err != nil || r != (Blank{}) {
		t.Errorf("blank = %v, %v", r, err)
	}
	if r, _ := NewRasterizer("auto", "/nonexistent/pdftoppm", 0); r != (Blank{}) {
		t.Errorf("auto without binary = %T", r)
	}
	if _, err := NewRasterizer("magic", "", 0); err == nil {
		t.Error("expected error for unknown rasterizer")
	}
}
