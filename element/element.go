// Package element defines the overlay elements placed on a document and
// the static per-type tool configuration.
//
// Element geometry is always stored in display space: unscaled surface
// pixels at zoom 1 with a top-left origin. It never depends on the zoom the
// element was placed at.
package element

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/digitorus/pdfstamp/geometry"
	"github.com/google/uuid"
)

// Type is the closed set of overlay kinds.
type Type string

const (
	Signature Type = "signature"
	Initials  Type = "initials"
	Text      Type = "text"
	Date      Type = "date"
	Checkbox  Type = "checkbox"
	Image     Type = "image"
)

// Types lists every element type in tool-bar order.
var Types = []Type{Signature, Initials, Text, Date, Checkbox, Image}

// ParseType validates s as an element type.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown element type %q", s)
	}
	return t, nil
}

// Valid reports whether t is one of the known types.
func (t Type) Valid() bool {
	switch t {
	case Signature, Initials, Text, Date, Checkbox, Image:
		return true
	}
	return false
}

// IsBitmap reports whether the element's content is a data-URI bitmap.
func (t Type) IsBitmap() bool {
	return t == Signature || t == Initials || t == Image
}

// IsText reports whether the element's content is a literal string.
func (t Type) IsText() bool {
	return t == Text || t == Date
}

// MinSize is the smallest width or height an element may have.
const MinSize = 20.0

// Default text styling for text and date elements.
const (
	DefaultFontSize   = 16.0
	DefaultFontFamily = "Helvetica"
	DefaultColor      = "#000000"
)

// Element is a single placed overlay. It holds no pointers so that a
// shallow copy is a full snapshot.
type Element struct {
	ID         string  `json:"id"`
	Type       Type    `json:"type"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	PageNumber int     `json:"pageNumber"`

	// Content is a data URI for bitmap types, a literal string for text
	// and date, and unused for checkboxes.
	Content string `json:"content"`

	FontSize   float64 `json:"fontSize,omitempty"`
	FontFamily string  `json:"fontFamily,omitempty"`
	Color      string  `json:"color,omitempty"`

	Checked bool `json:"checked,omitempty"`
}

// IDFunc produces element identifiers. IDs must never repeat within a
// session.
type IDFunc func() string

// NewID returns a random UUID.
func NewID() string {
	return uuid.NewString()
}

// New creates an element of type t centered on c, sized with the tool
// defaults.
func New(id string, t Type, page int, c geometry.Point) Element {
	cfg := Config(t)
	r := geometry.CenteredAt(c, geometry.Size{Width: cfg.Width, Height: cfg.Height})
	e := Element{
		ID:         id,
		Type:       t,
		PageNumber: page,
	}
	e.SetRect(r)
	if t.IsText() {
		e.FontSize = DefaultFontSize
		e.FontFamily = DefaultFontFamily
		e.Color = DefaultColor
	}
	return e
}

// Rect returns the element bounds in display space.
func (e Element) Rect() geometry.Rect {
	return geometry.Rect{X: e.X, Y: e.Y, Width: e.Width, Height: e.Height}
}

// SetRect moves and resizes the element.
func (e *Element) SetRect(r geometry.Rect) {
	e.X, e.Y = r.X, r.Y
	e.Width, e.Height = r.Width, r.Height
}

// ClampSize returns v, or min when v is smaller or NaN.
func ClampSize(v, min float64) float64 {
	if v < min || v != v {
		return min
	}
	return v
}

// Editing reports whether a text or date element has no committed
// content yet.
func (e Element) Editing() bool {
	return e.Type.IsText() && e.Content == ""
}

// Validate checks the element invariants against a document with numPages
// pages. A numPages of zero skips the page check.
func (e Element) Validate(numPages int) error {
	if e.ID == "" {
		return &ValidationError{Field: "id", Msg: "must not be empty"}
	}
	if !e.Type.Valid() {
		return &ValidationError{Field: "type", Msg: fmt.Sprintf("unknown type %q", e.Type)}
	}
	if !(e.Width > 0) || !(e.Height > 0) {
		return &ValidationError{Field: "size", Msg: fmt.Sprintf("%gx%g is not positive", e.Width, e.Height)}
	}
	if e.PageNumber < 1 || (numPages > 0 && e.PageNumber > numPages) {
		return &ValidationError{Field: "pageNumber", Msg: fmt.Sprintf("page %d out of range (1-%d)", e.PageNumber, numPages)}
	}
	return nil
}

// ValidationError reports a broken element invariant.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid element %s: %s", e.Field, e.Msg)
}

// Clone copies a list of elements.
func Clone(els []Element) []Element {
	if els == nil {
		return []Element{}
	}
	out := make([]Element, len(els))
	copy(out, els)
	return out
}

// Find returns the index of the element with the given id, or -1.
func Find(els []Element, id string) int {
	for i := range els {
		if els[i].ID == id {
			return i
		}
	}
	return -1
}

// ForPage returns the elements on page in their original order.
func ForPage(els []Element, page int) []Element {
	var out []Element
	for _, e := range els {
		if e.PageNumber == page {
			out = append(out, e)
		}
	}
	return out
}

// ByPage buckets elements by page number, keeping insertion order within
// a page.
func ByPage(els []Element) map[int][]Element {
	out := make(map[int][]Element)
	for _, e := range els {
		out[e.PageNumber] = append(out[e.PageNumber], e)
	}
	return out
}

// Pages returns the sorted page numbers that carry at least one element.
func Pages(els []Element) []int {
	seen := make(map[int]bool)
	var pages []int
	for _, e := range els {
		if !seen[e.PageNumber] {
			seen[e.PageNumber] = true
			pages = append(pages, e.PageNumber)
		}
	}
	sort.Ints(pages)
	return pages
}

// Decode reads a JSON array of elements.
func Decode(r io.Reader) ([]Element, error) {
	var els []Element
	if err := json.NewDecoder(r).Decode(&els); err != nil {
		return nil, fmt.Errorf("failed to decode elements: %w", err)
	}
	return els, nil
}

// Encode writes els as an indented JSON array.
func Encode(w io.Writer, els []Element) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Clone(els))
}
