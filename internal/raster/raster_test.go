package raster

import (
	"image"
	"image/color"
	"testing"

	"github.com/digitorus/pdfstamp/geometry"
)

func TestStrokeCoversLineAndOverlaps(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 40, 40))
	red := color.RGBA{R: 255, A: 255}
	// A path that doubles back on itself must stay solid where it overlaps.
	Stroke(dst, [][]geometry.Point{{{X: 5, Y: 20}, {X: 35, Y: 20}, {X: 5, Y: 20}}}, 4, red)

	for _, x := range []int{6, 20, 34} {
		if got := dst.RGBAAt(x, 20); got != red {
			t.Errorf("pixel (%d,20) = %v, want solid red", x, got)
		}
	}
	if got := dst.RGBAAt(20, 30); got.A != 0 {
		t.Errorf("pixel off the line painted: %v", got)
	}
}

func TestStrokeRespectsBoundsOffset(t *testing.T) {
	full := image.NewRGBA(image.Rect(0, 0, 50, 50))
	sub := full.SubImage(image.Rect(10, 10, 50, 50)).(*image.RGBA)
	Stroke(sub, [][]geometry.Point{{{X: 20, Y: 20}, {X: 40, Y: 20}}}, 2, color.Black)
	if full.RGBAAt(30, 20).A == 0 {
		t.Error("stroke not drawn at absolute coordinates")
	}
	if full.RGBAAt(30, 10).A != 0 {
		t.Error("stroke drawn at the wrong offset")
	}
}

func TestStrokeRect(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 30, 30))
	StrokeRect(dst, geometry.Rect{X: 5, Y: 5, Width: 20, Height: 20}, 2, color.Black)
	if dst.RGBAAt(15, 5).A < 200 || dst.RGBAAt(5, 15).A < 200 {
		t.Error("edges not stroked")
	}
	if dst.RGBAAt(15, 15).A != 0 {
		t.Error("interior should stay empty")
	}
}

func TestStrokeNoop(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 10, 10))
	Stroke(dst, nil, 3, color.Black)
	Stroke(dst, [][]geometry.Point{{{X: 1, Y: 1}, {X: 8, Y: 8}}}, 0, color.Black)
	for _, v := range dst.Pix {
		if v != 0 {
			t.Fatal("nothing should be drawn")
		}
	}
}
