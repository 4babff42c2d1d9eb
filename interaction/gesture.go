package interaction

import (
	"math"

	"github.com/digitorus/pdfstamp/element"
	"github.com/digitorus/pdfstamp/geometry"
)

// Hit identifies what a pointer position is over.
type Hit struct {
	ID     string
	Handle bool // the resize handle of the element
}

// HitTest returns the topmost element under the pointer position p on the
// current page. The selected element's resize handle takes precedence.
func (e *Editor) HitTest(p geometry.Point) (Hit, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hitTest(e.toDoc(p))
}

func (e *Editor) hitTest(d geometry.Point) (Hit, bool) {
	hs := e.handleSize / e.zoom
	if i := e.index(e.selected); i >= 0 && e.elements[i].PageNumber == e.page {
		corner := e.elements[i].Rect().Max()
		if math.Abs(d.X-corner.X) <= hs/2 && math.Abs(d.Y-corner.Y) <= hs/2 {
			return Hit{ID: e.selected, Handle: true}, true
		}
	}
	for i := len(e.elements) - 1; i >= 0; i-- {
		el := e.elements[i]
		if el.PageNumber == e.page && el.Rect().Contains(d) {
			return Hit{ID: el.ID}, true
		}
	}
	return Hit{}, false
}

// PointerDown starts a gesture at pointer position p.
//
// Over an element it selects the element and prepares a drag (or a
// resize on the handle). Over empty canvas it clears the selection; when a
// tool is active, releasing without moving places an element. Pressing
// outside an element being edited commits the edit.
func (e *Editor) PointerDown(p geometry.Point) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.locked {
		return ErrBusy
	}
	e.endGesture()
	d := e.toDoc(p)
	hit, ok := e.hitTest(d)

	if e.editing != "" {
		if ok && hit.ID == e.editing {
			return nil
		}
		e.commitEdit()
		hit, ok = e.hitTest(d)
	}

	if !ok {
		e.selected = ""
		e.g = gesture{kind: gestureCanvas, start: p}
		return nil
	}

	i := e.index(hit.ID)
	el := e.elements[i]
	e.selected = el.ID
	kind := gesturePress
	if hit.Handle {
		kind = gestureResize
	}
	e.g = gesture{
		kind:   kind,
		id:     el.ID,
		start:  p,
		offset: d.Sub(el.Rect().Origin()),
		before: el.Rect(),
	}
	return nil
}

// PointerMove continues the gesture in progress.
func (e *Editor) PointerMove(p geometry.Point) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.locked {
		return ErrBusy
	}
	e.move(p)
	return nil
}

func (e *Editor) move(p geometry.Point) {
	switch e.g.kind {
	case gesturePress:
		if !e.moved(p) {
			return
		}
		e.g.kind = gestureDrag
		fallthrough
	case gestureDrag:
		i := e.index(e.g.id)
		if i < 0 {
			e.g = gesture{}
			return
		}
		pos := e.toDoc(p).Sub(e.g.offset)
		e.elements[i].X, e.elements[i].Y = pos.X, pos.Y
	case gestureResize:
		i := e.index(e.g.id)
		if i < 0 {
			e.g = gesture{}
			return
		}
		d := e.toDoc(p)
		el := &e.elements[i]
		el.Width = element.ClampSize(d.X-el.X, e.minSize)
		el.Height = element.ClampSize(d.Y-el.Y, e.minSize)
	}
}

// PointerUp ends the gesture in progress. A drag or resize commits once;
// a click on a checkbox toggles it; a click on empty canvas places the
// active tool.
func (e *Editor) PointerUp(p geometry.Point) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.locked {
		return ErrBusy
	}
	g := e.g
	switch g.kind {
	case gesturePress:
		if e.moved(p) {
			e.move(p)
			return e.finishGesture()
		}
		e.g = gesture{}
		if i := e.index(g.id); i >= 0 && e.elements[i].Type == element.Checkbox {
			return e.toggle(g.id)
		}
		return nil
	case gestureDrag, gestureResize:
		e.move(p)
		return e.finishGesture()
	case gestureCanvas:
		e.g = gesture{}
		if e.tool == "" || e.moved(p) {
			return nil
		}
		_, err := e.place(e.toDoc(p))
		return err
	}
	return nil
}

// finishGesture commits a drag or resize that changed the element.
func (e *Editor) finishGesture() error {
	g := e.g
	e.g = gesture{}
	if g.kind != gestureDrag && g.kind != gestureResize {
		return nil
	}
	i := e.index(g.id)
	if i < 0 || e.elements[i].Rect() == g.before {
		return nil
	}
	if g.kind == gestureDrag {
		e.commit("move")
	} else {
		e.commit("resize")
	}
	return nil
}

// endGesture closes an interrupted gesture, committing its result.
func (e *Editor) endGesture() {
	if e.g.kind == gestureDrag || e.g.kind == gestureResize {
		_ = e.finishGesture()
		return
	}
	e.g = gesture{}
}

// CancelGesture reverts a drag or resize in progress.
func (e *Editor) CancelGesture() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := e.index(e.g.id); i >= 0 && (e.g.kind == gestureDrag || e.g.kind == gestureResize) {
		e.elements[i].SetRect(e.g.before)
	}
	e.g = gesture{}
}

func (e *Editor) moved(p geometry.Point) bool {
	return math.Hypot(p.X-e.g.start.X, p.Y-e.g.start.Y) > e.clickThreshold
}

// DoubleClick starts an in-place edit of the text or date element under
// p.
func (e *Editor) DoubleClick(p geometry.Point) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.locked {
		return ErrBusy
	}
	e.endGesture()
	hit, ok := e.hitTest(e.toDoc(p))
	if !ok {
		return nil
	}
	return e.beginEdit(hit.ID)
}
