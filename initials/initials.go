// Package initials repeats an initials stamp on every page of a document
// at a fixed corner.
package initials

import (
	"fmt"
	"slices"
	"sort"

	"github.com/digitorus/pdfstamp/element"
	"github.com/digitorus/pdfstamp/geometry"
)

// Position is the page corner the stamp is anchored to.
type Position int

const (
	BottomRight Position = iota
	BottomLeft
	TopRight
	TopLeft
)

var positionNames = map[Position]string{
	TopLeft:     "top-left",
	TopRight:    "top-right",
	BottomLeft:  "bottom-left",
	BottomRight: "bottom-right",
}

func (p Position) String() string {
	if s, ok := positionNames[p]; ok {
		return s
	}
	return fmt.Sprintf("Position(%d)", int(p))
}

// ParsePosition parses names such as "top-left".
func ParsePosition(s string) (Position, error) {
	for p, name := range positionNames {
		if name == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown position %q", s)
}

// Config places initials on all pages.
type Config struct {
	Position     Position
	MarginX      float64 // display units from the left or right edge
	MarginY      float64 // display units from the top or bottom edge
	ExcludePages []int
}

// Origin returns the top-left corner of a w x h stamp on a page of the
// given display size.
func (c Config) Origin(page geometry.Size, w, h float64) geometry.Point {
	x, y := c.MarginX, c.MarginY
	switch c.Position {
	case TopRight:
		x = page.Width - c.MarginX - w
	case BottomLeft:
		y = page.Height - c.MarginY - h
	case BottomRight:
		x = page.Width - c.MarginX - w
		y = page.Height - c.MarginY - h
	}
	return geometry.Point{X: x, Y: y}
}

// Place copies src onto every page in pages except its own page and the
// excluded ones. pages maps page numbers to their display size. Copies are
// returned in page order with IDs from newID.
func Place(cfg Config, src element.Element, pages map[int]geometry.Size, newID element.IDFunc) []element.Element {
	numbers := make([]int, 0, len(pages))
	for n := range pages {
		if n != src.PageNumber && !slices.Contains(cfg.ExcludePages, n) {
			numbers = append(numbers, n)
		}
	}
	sort.Ints(numbers)

	out := make([]element.Element, 0, len(numbers))
	for _, n := range numbers {
		e := src
		e.ID = newID()
		e.PageNumber = n
		o := cfg.Origin(pages[n], src.Width, src.Height)
		e.X, e.Y = o.X, o.Y
		out = append(out, e)
	}
	return out
}
