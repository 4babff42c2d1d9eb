package initials

import (
	"fmt"
	"testing"

	"github.com/digitorus/pdfstamp/element"
	"github.com/digitorus/pdfstamp/geometry"
)

func TestOrigin(t *testing.T) {
	page := geometry.Size{Width: 612, Height: 792}
	tests := []struct {
		pos  Position
		want geometry.Point
	}{
		{TopLeft, geometry.Point{X: 10, Y: 20}},
		{TopRight, geometry.Point{X: 612 - 10 - 100, Y: 20}},
		{BottomLeft, geometry.Point{X: 10, Y: 792 - 20 - 50}},
		{BottomRight, geometry.Point{X: 502, Y: 722}},
	}
	for _, tt := range tests {
		t.Run(tt.pos.String(), func(t *testing.T) {
			cfg := Config{Position: tt.pos, MarginX: 10, MarginY: 20}
			if got := cfg.Origin(page, 100, 50); got != tt.want {
				t.Errorf("Origin = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlace(t *testing.T) {
	src := element.Element{ID: "src", Type: element.Initials, PageNumber: 2, X: 1, Y: 1, Width: 100, Height: 50, Content: "data:image/png;base64,AA=="}
	pages := map[int]geometry.Size{
		1: {Width: 612, Height: 792},
		2: {Width: 612, Height: 792},
		3: {Width: 842, Height: 595},
		4: {Width: 612, Height: 792},
	}
	n := 0
	newID := func() string { n++; return fmt.Sprintf("id%d", n) }

	got := Place(Config{Position: BottomRight, MarginX: 10, MarginY: 10, ExcludePages: []int{4}}, src, pages, newID)
	if len(got) != 2 {
		t.Fatalf("got %d copies, want 2 (pages 1 and 3)", len(got))
	}
	if got[0].PageNumber != 1 || got[1].PageNumber != 3 {
		t.Errorf("pages = %d, %d", got[0].PageNumber, got[1].PageNumber)
	}
	if got[1].X != 732 || got[1].Y != 535 {
		t.Errorf("landscape copy at (%v, %v), want (732, 535)", got[1].X, got[1].Y)
	}
	if got[0].ID != "id1" || got[0].Content != src.Content || got[0].Type != element.Initials {
		t.Errorf("copy = %+v", got[0])
	}
}

func TestParsePosition(t *testing.T) {
	for _, p := range []Position{TopLeft, TopRight, BottomLeft, BottomRight} {
		got, err := ParsePosition(p.String())
		if err != nil || got != p {
			t.Errorf("ParsePosition(%s) = %v, %v", p, got, err)
		}
	}
	if _, err := ParsePosition("middle"); err == nil {
		t.Error("expected error")
	}
}
