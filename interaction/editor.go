// Package interaction turns pointer input into element placement and
// manipulation.
//
// Pointer positions are given in surface pixels at the current zoom and
// converted to display space before anything is stored:
//
//	doc = (pointer - origin) / zoom
//
// Continuous gestures mutate the live element list; history receives one
// snapshot when the gesture ends.
package interaction

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/digitorus/pdfstamp/element"
	"github.com/digitorus/pdfstamp/geometry"
	"github.com/digitorus/pdfstamp/history"
	"github.com/digitorus/pdfstamp/initials"
	"github.com/digitorus/pdfstamp/internal/render"
)

var (
	// ErrBusy is returned for mutations while an export holds the editor.
	ErrBusy = errors.New("editor is busy exporting")
	// ErrNoTool is returned when placing without an active tool.
	ErrNoTool = errors.New("no tool active")
	// ErrNotFound is returned for unknown element IDs.
	ErrNotFound = errors.New("element not found")
	// ErrNeedsAsset is returned when a stamp tool has no bitmap yet.
	ErrNeedsAsset = errors.New("tool needs an asset before placement")
)

type gestureKind int

const (
	gestureNone gestureKind = iota
	gesturePress
	gestureDrag
	gestureResize
	gestureCanvas
)

type gesture struct {
	kind   gestureKind
	id     string
	start  geometry.Point // pointer position at press
	offset geometry.Point // pointer minus element origin, display space
	before geometry.Rect
}

type asset struct {
	uri  string
	size geometry.Size // display size
}

// ToolState describes the active tool.
type ToolState struct {
	Tool element.Type
	// NeedsAsset is set for stamp tools without a bitmap; the caller
	// should open the matching capture tool and call SetAsset.
	NeedsAsset bool
	// NeedsText is set for text tools without pending text. Placing such
	// an element starts an in-place edit.
	NeedsText bool
}

// Editor owns the element list, selection, active tool and history of one
// editing session. It is safe for concurrent use.
type Editor struct {
	mu     sync.Mutex
	logger *slog.Logger

	newID          element.IDFunc
	now            func() time.Time
	dateFormat     string
	minSize        float64
	historyLimit   int
	minZoom        float64
	maxZoom        float64
	clickThreshold float64
	stampMin       float64
	stampMax       float64
	handleSize     float64
	onCommit       func([]element.Element)

	numPages int
	page     int
	zoom     float64
	origin   geometry.Point

	elements []element.Element
	history  *history.History
	selected string

	tool        element.Type
	assets      map[element.Type]asset
	pendingText string

	editing    string
	editBefore string
	editNew    bool

	g      gesture
	locked bool
}

// New returns an editor for a document with numPages pages.
func New(numPages int, opts ...Option) *Editor {
	e := &Editor{
		newID:          element.NewID,
		now:            time.Now,
		dateFormat:     render.DefaultDateFormat,
		minSize:        element.MinSize,
		minZoom:        0.25,
		maxZoom:        4,
		clickThreshold: 3,
		stampMin:       40,
		stampMax:       300,
		handleSize:     12,
	}
	for _, o := range opts {
		o(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.history = history.New(nil, history.WithLimit(e.historyLimit))
	e.reset(numPages)
	return e
}

// Reset starts a new session for a document with numPages pages: no
// elements, a single empty history snapshot, page 1 and zoom 1.
func (e *Editor) Reset(numPages int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reset(numPages)
}

func (e *Editor) reset(numPages int) {
	e.numPages = numPages
	e.page = 1
	if numPages == 0 {
		e.page = 0
	}
	e.zoom = 1
	e.elements = nil
	e.history.Reset(nil)
	e.selected = ""
	e.tool = ""
	e.assets = make(map[element.Type]asset)
	e.pendingText = ""
	e.editing, e.editBefore, e.editNew = "", "", false
	e.g = gesture{}
	e.locked = false
}

func (e *Editor) commit(reason string) {
	e.history.Commit(e.elements)
	e.logger.Debug("history commit", slog.String("reason", reason),
		slog.Int("elements", len(e.elements)), slog.Int("index", e.history.Index()))
	if e.onCommit != nil {
		e.onCommit(element.Clone(e.elements))
	}
}

func (e *Editor) index(id string) int {
	return element.Find(e.elements, id)
}

// Lock freezes the editor for an export and returns a stable snapshot.
// Pending edits and gestures are finished first.
func (e *Editor) Lock() ([]element.Element, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.locked {
		return nil, ErrBusy
	}
	e.endGesture()
	e.commitEdit()
	e.locked = true
	return element.Clone(e.elements), nil
}

// Unlock releases an export lock.
func (e *Editor) Unlock() {
	e.mu.Lock()
	e.locked = false
	e.mu.Unlock()
}

// Locked reports whether an export holds the editor.
func (e *Editor) Locked() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.locked
}

// Elements returns a copy of the live element list.
func (e *Editor) Elements() []element.Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	return element.Clone(e.elements)
}

// PageElements returns the elements on page n in insertion order.
func (e *Editor) PageElements(n int) []element.Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	return element.ForPage(e.elements, n)
}

// Element returns the element with the given ID.
func (e *Editor) Element(id string) (element.Element, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := e.index(id); i >= 0 {
		return e.elements[i], true
	}
	return element.Element{}, false
}

// Snapshot returns a copy of the current history snapshot, which excludes
// uncommitted gesture and edit state.
func (e *Editor) Snapshot() []element.Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Current()
}

// CanUndo reports whether Undo would change anything.
func (e *Editor) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.CanUndo()
}

// CanRedo reports whether Redo would change anything.
func (e *Editor) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.CanRedo()
}

// Undo restores the previous snapshot and clears the selection. An
// uncommitted text edit is undone first, on its own.
func (e *Editor) Undo() (bool, error) {
	return e.step((*history.History).Undo)
}

// Redo restores the next snapshot and clears the selection.
func (e *Editor) Redo() (bool, error) {
	return e.step((*history.History).Redo)
}

func (e *Editor) step(move func(*history.History) ([]element.Element, bool)) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.locked {
		return false, ErrBusy
	}
	e.g = gesture{}
	if e.cancelEdit() {
		e.selected = ""
		return true, nil
	}
	s, ok := move(e.history)
	if !ok {
		return false, nil
	}
	e.elements = s
	e.selected = ""
	return true, nil
}

// Page returns the current page.
func (e *Editor) Page() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.page
}

// NumPages returns the document page count.
func (e *Editor) NumPages() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.numPages
}

// SetPage switches the current page. Any edit in progress is committed
// and the selection cleared.
func (e *Editor) SetPage(n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.locked {
		return ErrBusy
	}
	if n < 1 || n > e.numPages {
		return fmt.Errorf("page %d out of range (1-%d)", n, e.numPages)
	}
	e.endGesture()
	e.commitEdit()
	e.page = n
	e.selected = ""
	return nil
}

// Zoom returns the display zoom.
func (e *Editor) Zoom() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.zoom
}

// SetZoom clamps z to the configured limits and returns the value used.
// Non-finite values keep the current zoom. Stored geometry is unaffected.
func (e *Editor) SetZoom(z float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return e.zoom
	}
	e.zoom = math.Min(e.maxZoom, math.Max(e.minZoom, z))
	return e.zoom
}

// SetSurfaceOrigin sets the pointer-space position of the surface's
// top-left corner.
func (e *Editor) SetSurfaceOrigin(p geometry.Point) {
	e.mu.Lock()
	e.origin = p
	e.mu.Unlock()
}

// ToDocument converts a pointer position to display space.
func (e *Editor) ToDocument(p geometry.Point) geometry.Point {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.toDoc(p)
}

func (e *Editor) toDoc(p geometry.Point) geometry.Point {
	return geometry.PointerToDocument(p, e.origin, e.zoom)
}

// Selected returns the selected element ID, or "".
func (e *Editor) Selected() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

// Select selects id; "" clears the selection.
func (e *Editor) Select(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id != "" && e.index(id) < 0 {
		return ErrNotFound
	}
	e.selected = id
	return nil
}

// Delete removes an element.
func (e *Editor) Delete(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.locked {
		return ErrBusy
	}
	i := e.index(id)
	if i < 0 {
		return ErrNotFound
	}
	e.endGesture()
	newEdit := e.editing == id && e.editNew
	if e.editing == id {
		e.editing, e.editBefore, e.editNew = "", "", false
	}
	e.elements = append(e.elements[:i:i], e.elements[i+1:]...)
	if e.selected == id {
		e.selected = ""
	}
	if !newEdit {
		e.commit("delete")
	}
	return nil
}

// DeleteSelected removes the selected element.
func (e *Editor) DeleteSelected() error {
	return e.Delete(e.Selected())
}

// Toggle flips a checkbox.
func (e *Editor) Toggle(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.locked {
		return ErrBusy
	}
	return e.toggle(id)
}

func (e *Editor) toggle(id string) error {
	i := e.index(id)
	if i < 0 {
		return ErrNotFound
	}
	if e.elements[i].Type != element.Checkbox {
		return fmt.Errorf("element %s is a %s, not a checkbox", id, e.elements[i].Type)
	}
	e.elements[i].Checked = !e.elements[i].Checked
	e.commit("toggle")
	return nil
}

// Style holds text styling; zero fields are left unchanged.
type Style struct {
	FontSize   float64
	FontFamily string
	Color      string
}

// SetStyle restyles a text or date element.
func (e *Editor) SetStyle(id string, s Style) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.locked {
		return ErrBusy
	}
	i := e.index(id)
	if i < 0 {
		return ErrNotFound
	}
	el := &e.elements[i]
	if !el.Type.IsText() {
		return fmt.Errorf("element %s is a %s and has no text style", id, el.Type)
	}
	if s.Color != "" {
		if _, err := render.ParseColor(s.Color); err != nil {
			return err
		}
	}
	if s.FontSize < 0 || math.IsNaN(s.FontSize) || math.IsInf(s.FontSize, 0) {
		return fmt.Errorf("invalid font size %v", s.FontSize)
	}

	if s.Color != "" {
		el.Color = s.Color
	}
	if s.FontSize > 0 {
		el.FontSize = s.FontSize
	}
	if s.FontFamily != "" {
		el.FontFamily = s.FontFamily
	}
	e.commit("style")
	return nil
}

// Nudge moves the selected element by (dx, dy) display units. A zero
// delta is not recorded.
func (e *Editor) Nudge(dx, dy float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.locked {
		return ErrBusy
	}
	i := e.index(e.selected)
	if i < 0 {
		return ErrNotFound
	}
	if dx == 0 && dy == 0 {
		return nil
	}
	e.elements[i].X += dx
	e.elements[i].Y += dy
	e.commit("nudge")
	return nil
}

// Restore replaces the element set, for example with a saved layout, as a
// single undoable step.
func (e *Editor) Restore(els []element.Element) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.locked {
		return ErrBusy
	}
	seen := make(map[string]bool, len(els))
	for _, el := range els {
		if err := el.Validate(e.numPages); err != nil {
			return fmt.Errorf("element %q: %w", el.ID, err)
		}
		if seen[el.ID] {
			return fmt.Errorf("duplicate element id %q", el.ID)
		}
		seen[el.ID] = true
	}
	e.endGesture()
	e.editing, e.editBefore, e.editNew = "", "", false
	e.elements = element.Clone(els)
	e.selected = ""
	e.commit("restore")
	return nil
}

// InitialAllPages copies the initials element id onto every other page,
// positioned by cfg on pages of the given display sizes. All copies are
// added in one commit.
func (e *Editor) InitialAllPages(id string, cfg initials.Config, pages map[int]geometry.Size) ([]element.Element, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.locked {
		return nil, ErrBusy
	}
	i := e.index(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	src := e.elements[i]
	if src.Type != element.Initials {
		return nil, fmt.Errorf("element %s is a %s, not initials", id, src.Type)
	}
	copies := initials.Place(cfg, src, pages, e.newID)
	if len(copies) == 0 {
		return nil, nil
	}
	e.elements = append(e.elements, copies...)
	e.commit("initial all pages")
	return element.Clone(copies), nil
}

func trimmed(s string) string { return strings.TrimSpace(s) }
