package document

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/digitorus/pdfstamp/geometry"
)

// Rasterizer renders one PDF page at 72 dpi.
type Rasterizer interface {
	Rasterize(ctx context.Context, data []byte, page geometry.Page) (image.Image, error)
}

// Pdftoppm rasterizes pages with the poppler pdftoppm tool.
type Pdftoppm struct {
	Path    string        // defaults to "pdftoppm" on $PATH
	Timeout time.Duration // per page; zero means no limit
}

// Rasterize implements Rasterizer.
func (p Pdftoppm) Rasterize(ctx context.Context, data []byte, page geometry.Page) (image.Image, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	dir, err := os.MkdirTemp("", "pdfstamp-render-*")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(dir) }()

	in := filepath.Join(dir, "in.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, err
	}

	bin := p.Path
	if bin == "" {
		bin = "pdftoppm"
	}
	n := strconv.Itoa(page.Number)
	out := filepath.Join(dir, "page")
	cmd := exec.CommandContext(ctx, bin, "-r", "72", "-png", "-cropbox", "-singlefile", "-f", n, "-l", n, in, out)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, output)
	}

	f, err := os.Open(out + ".png")
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return png.Decode(f)
}

// Blank renders every page as an empty white surface of the page's
// display size. It keeps the editor usable when no rasterizer is
// installed.
type Blank struct{}

// Rasterize implements Rasterizer.
func (Blank) Rasterize(_ context.Context, _ []byte, page geometry.Page) (image.Image, error) {
	s := page.DisplaySize()
	img := image.NewRGBA(image.Rect(0, 0, int(s.Width), int(s.Height)))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img, nil
}

// NewRasterizer returns the rasterizer named kind: "pdftoppm", "blank", or
// "auto" which uses pdftoppm when it can be found.
func NewRasterizer(kind, path string, timeout time.Duration) (Rasterizer, error) {
	switch kind {
	case "pdftoppm":
		return Pdftoppm{Path: path, Timeout: timeout}, nil
	case "blank":
		return Blank{}, nil
	case "", "auto":
		bin := path
		if bin == "" {
			bin = "pdftoppm"
		}
		if _, err := exec.LookPath(bin); err == nil {
			return Pdftoppm{Path: path, Timeout: timeout}, nil
		}
		return Blank{}, nil
	}
	return nil, fmt.Errorf("unknown rasterizer %q", kind)
}
