package render

import (
	"bytes"
	"compress/zlib"
	"image"
	"image/color"
	"strings"
	"testing"
	"time"

	"github.com/digitorus/pdfstamp/fonts"
	"github.com/digitorus/pdfstamp/geometry"
)

type memContext struct {
	objects [][]byte
	level   int
}

func (c *memContext) AddObject(body []byte) (uint32, error) {
	c.objects = append(c.objects, body)
	return uint32(100 + len(c.objects) - 1), nil
}

func (c *memContext) CompressLevel() int { return c.level }

func solid(w, h int, c color.Color) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestOverlayImagePlacement(t *testing.T) {
	ctx := &memContext{level: zlib.NoCompression}
	o := NewOverlay(ctx, nil)
	if !o.Empty() {
		t.Fatal("new overlay should be empty")
	}

	img := solid(4, 2, color.NRGBA{R: 255, A: 255})
	m := geometry.Translate(102, 612)
	if err := o.Image(m, 204, 80, "sig", img); err != nil {
		t.Fatalf("Image: %v", err)
	}
	if err := o.Image(geometry.Translate(0, 0), 10, 10, "sig", img); err != nil {
		t.Fatalf("Image: %v", err)
	}

	content := string(o.Content())
	if !strings.Contains(content, "204 0 0 80 102 612 cm\n/DsIm1 Do") {
		t.Errorf("unexpected content:\n%s", content)
	}
	if strings.Count(content, "/DsIm1 Do") != 2 {
		t.Errorf("shared image should be drawn twice by name:\n%s", content)
	}
	if len(ctx.objects) != 1 {
		t.Errorf("opaque image written as %d objects, want 1", len(ctx.objects))
	}
	res := o.Resources()["XObject"]
	if len(res) != 1 || res[0].Name != "DsIm1" || res[0].ID != 100 {
		t.Errorf("XObject resources = %+v", res)
	}
}

func TestOverlayAvoidsTakenNames(t *testing.T) {
	ctx := &memContext{}
	o := NewOverlay(ctx, func(category, name string) bool {
		return category == "Font" && (name == "DsF1" || name == "DsF2")
	})
	if err := o.Text(geometry.Identity(), TextRun{Text: "x", Size: 12}); err != nil {
		t.Fatal(err)
	}
	if got := o.Resources()["Font"][0].Name; got != "DsF3" {
		t.Errorf("font name = %s, want DsF3", got)
	}
}

func TestOverlayText(t *testing.T) {
	ctx := &memContext{}
	o := NewOverlay(ctx, nil)
	err := o.Text(geometry.Translate(10, 20), TextRun{Text: "Café (1)", Size: 16, Color: Color{R: 255}, X: 4, Y: 12.5})
	if err != nil {
		t.Fatal(err)
	}
	content := string(o.Content())
	for _, want := range []string{
		"1 0 0 1 10 20 cm",
		"/DsF1 16 Tf",
		"1.000 0.000 0.000 rg",
		"4 12.5 Td",
		"<436166e920283129> Tj",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("content missing %q:\n%s", want, content)
		}
	}
	if !strings.Contains(string(ctx.objects[0]), "/BaseFont /Helvetica") {
		t.Errorf("font dict = %s", ctx.objects[0])
	}
}

func TestOverlayCheckbox(t *testing.T) {
	o := NewOverlay(&memContext{}, nil)
	o.Checkbox(geometry.Translate(306, 468), 24, 24, false, Black, Ink)
	unchecked := string(o.Content())
	if strings.Contains(unchecked, " l\n") {
		t.Errorf("unchecked box has a mark:\n%s", unchecked)
	}

	o = NewOverlay(&memContext{}, nil)
	o.Checkbox(geometry.Translate(306, 468), 24, 24, true, Black, Ink)
	checked := string(o.Content())
	for _, want := range []string{"1 0 0 1 306 468 cm", "re\nS", "1 J\n1 j", "0.200 0.200 0.600 RG"} {
		if !strings.Contains(checked, want) {
			t.Errorf("content missing %q:\n%s", want, checked)
		}
	}
}

func TestRegisterImageSoftMask(t *testing.T) {
	ctx := &memContext{level: zlib.NoCompression}
	id, err := RegisterImage(ctx, solid(2, 2, color.NRGBA{B: 255, A: 128}))
	if err != nil {
		t.Fatal(err)
	}
	if len(ctx.objects) != 2 {
		t.Fatalf("got %d objects, want mask and image", len(ctx.objects))
	}
	if id != 101 {
		t.Errorf("image id = %d, want 101", id)
	}
	img := ctx.objects[1]
	if !bytes.Contains(img, []byte("/SMask 100 0 R")) || !bytes.Contains(img, []byte("/Width 2 /Height 2")) {
		t.Errorf("image dict = %s", img[:bytes.Index(img, []byte("stream"))])
	}
	if !bytes.Contains(img, []byte{0, 0, 255, 0, 0, 255}) {
		t.Error("unpremultiplied RGB samples not found")
	}

	if _, err := RegisterImage(ctx, image.NewNRGBA(image.Rect(0, 0, 0, 0))); err == nil {
		t.Error("expected error for empty image")
	}
}

func TestRegisterEmbeddedFont(t *testing.T) {
	ctx := &memContext{level: zlib.DefaultCompression}
	f := &fonts.Font{Name: "Custom Sans", Data: []byte("not really a font")}
	if _, err := RegisterFont(ctx, f); err != nil {
		t.Fatal(err)
	}
	if len(ctx.objects) != 3 {
		t.Fatalf("got %d objects, want file, descriptor and font", len(ctx.objects))
	}
	if !bytes.Contains(ctx.objects[2], []byte("/BaseFont /Custom#20Sans")) {
		t.Errorf("font dict = %s", ctx.objects[2])
	}
	if !bytes.Contains(ctx.objects[0], []byte("/Filter /FlateDecode")) {
		t.Error("font file should be compressed at the default level")
	}
}

func TestExpand(t *testing.T) {
	f := Fields{Name: "jane van dijk", Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), DateFormat: "02/01/2006"}
	tests := map[string]string{
		"plain":                    "plain",
		"By {{Name}}":              "By jane van dijk",
		"{{Initials}}":             "JVD",
		"on {{Date}}":              "on 01/03/2024",
		"{{Unknown}} {{Initials}}": "{{Unknown}} JVD",
	}
	for in, want := range tests {
		if got := Expand(in, f); got != want {
			t.Errorf("Expand(%q) = %q, want %q", in, got, want)
		}
	}
	if got := Expand("{{Date}}", Fields{Date: f.Date}); got != "2024-03-01" {
		t.Errorf("default date format gave %q", got)
	}
}

func TestWinAnsi(t *testing.T) {
	if got := WinAnsi("€ü✓"); !bytes.Equal(got, []byte{0x80, 0xfc, '?'}) {
		t.Errorf("WinAnsi = %x", got)
	}
}

func TestParseColor(t *testing.T) {
	tests := map[string]Color{
		"#ff0000":   {R: 255},
		"#0A0":      {G: 170},
		" #333399 ": Ink,
	}
	for in, want := range tests {
		got, err := ParseColor(in)
		if err != nil || got != want {
			t.Errorf("ParseColor(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if c, err := ParseColor("blue"); err == nil || c != Black {
		t.Errorf("ParseColor(blue) = %v, %v", c, err)
	}
}
