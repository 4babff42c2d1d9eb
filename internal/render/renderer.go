package render

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"image"
	"math"
	"strconv"

	"golang.org/x/text/encoding/charmap"

	"github.com/digitorus/pdfstamp/fonts"
	"github.com/digitorus/pdfstamp/geometry"
)

// Overlay accumulates the content stream and resources drawn on top of
// one page.
type Overlay struct {
	ctx   Context
	taken func(category, name string) bool

	stream   bytes.Buffer
	xobjects []Resource
	fonts    []Resource

	imageNames map[string]string
	fontNames  map[string]string
}

// NewOverlay returns an empty overlay. taken reports resource names that
// already exist on the page; generated names avoid them.
func NewOverlay(ctx Context, taken func(category, name string) bool) *Overlay {
	if taken == nil {
		taken = func(string, string) bool { return false }
	}
	return &Overlay{
		ctx:        ctx,
		taken:      taken,
		imageNames: make(map[string]string),
		fontNames:  make(map[string]string),
	}
}

// Empty reports whether nothing has been drawn.
func (o *Overlay) Empty() bool { return o.stream.Len() == 0 }

// Content returns the overlay content stream.
func (o *Overlay) Content() []byte { return o.stream.Bytes() }

// Resources returns the resources referenced by the content stream keyed
// by category.
func (o *Overlay) Resources() map[string][]Resource {
	res := make(map[string][]Resource)
	if len(o.xobjects) > 0 {
		res["XObject"] = o.xobjects
	}
	if len(o.fonts) > 0 {
		res["Font"] = o.fonts
	}
	return res
}

func (o *Overlay) newName(category, prefix string, n int) string {
	for {
		name := fmt.Sprintf("%s%d", prefix, n)
		if !o.taken(category, name) {
			return name
		}
		n++
	}
}

// Image draws img stretched over a w x h box whose bottom-left corner is
// the origin of m. Images sharing a key are embedded once.
func (o *Overlay) Image(m geometry.Matrix, w, h float64, key string, img image.Image) error {
	name, ok := o.imageNames[key]
	if !ok {
		id, err := RegisterImage(o.ctx, img)
		if err != nil {
			return err
		}
		name = o.newName("XObject", "DsIm", len(o.xobjects)+1)
		o.imageNames[key] = name
		o.xobjects = append(o.xobjects, Resource{Name: name, ID: id})
	}

	fmt.Fprintf(&o.stream, "q\n%s cm\n/%s Do\nQ\n", matrix(geometry.Scaling(w, h).Multiply(m)), name)
	return nil
}

// TextRun is a single line of text.
type TextRun struct {
	Text  string
	Font  *fonts.Font
	Size  float64
	Color Color
	X, Y  float64 // baseline start in the local frame
}

// Text draws a line of text in the frame given by m.
func (o *Overlay) Text(m geometry.Matrix, t TextRun) error {
	font := t.Font
	if font == nil {
		font = fonts.Standard(fonts.Helvetica)
	}
	key := font.Key()
	name, ok := o.fontNames[key]
	if !ok {
		id, err := RegisterFont(o.ctx, font)
		if err != nil {
			return err
		}
		name = o.newName("Font", "DsF", len(o.fonts)+1)
		o.fontNames[key] = name
		o.fonts = append(o.fonts, Resource{Name: name, ID: id})
	}

	fmt.Fprintf(&o.stream, "q\n%s cm\nBT\n/%s %s Tf\n%s\n%s %s Td\n<%s> Tj\nET\nQ\n",
		matrix(m), name, num(t.Size), t.Color.fill(), num(t.X), num(t.Y), hex.EncodeToString(WinAnsi(t.Text)))
	return nil
}

// Checkbox draws a bordered w x h box in the frame given by m and, when
// checked, a two-stroke check mark sized from the shorter side.
func (o *Overlay) Checkbox(m geometry.Matrix, w, h float64, checked bool, border, mark Color) {
	s := math.Min(w, h)
	lw := math.Max(0.5, s*0.06)

	fmt.Fprintf(&o.stream, "q\n%s cm\n%s w\n%s\n%s %s %s %s re\nS\n",
		matrix(m), num(lw), border.stroke(), num(lw/2), num(lw/2), num(w-lw), num(h-lw))

	if checked {
		pts := CheckMark(w, h)
		fmt.Fprintf(&o.stream, "1 J\n1 j\n%s w\n%s\n", num(s*0.12), mark.stroke())
		fmt.Fprintf(&o.stream, "%s %s m\n%s %s l\n%s %s l\nS\n",
			num(pts[0].X), num(pts[0].Y), num(pts[1].X), num(pts[1].Y), num(pts[2].X), num(pts[2].Y))
	}
	o.stream.WriteString("Q\n")
}

// CheckMark returns the three points of a check mark inside a w x h box,
// y pointing up.
func CheckMark(w, h float64) [3]geometry.Point {
	s := math.Min(w, h)
	cx, cy := w/2, h/2
	return [3]geometry.Point{
		{X: cx - 0.28*s, Y: cy + 0.02*s},
		{X: cx - 0.08*s, Y: cy - 0.2*s},
		{X: cx + 0.3*s, Y: cy + 0.25*s},
	}
}

// WinAnsi encodes s for a font with /WinAnsiEncoding. Characters outside
// the encoding become '?'.
func WinAnsi(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if b, ok := charmap.Windows1252.EncodeRune(r); ok {
			out = append(out, b)
			continue
		}
		out = append(out, '?')
	}
	return out
}

func matrix(m geometry.Matrix) string {
	return fmt.Sprintf("%s %s %s %s %s %s", num(m[0]), num(m[1]), num(m[2]), num(m[3]), num(m[4]), num(m[5]))
}

// num formats v with at most four decimals and no trailing zeros.
func num(v float64) string {
	v = math.Round(v*10000) / 10000
	if v == 0 {
		v = 0 // drop the sign of negative zero
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
