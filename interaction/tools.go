package interaction

import (
	"fmt"

	"github.com/digitorus/pdfstamp/element"
	"github.com/digitorus/pdfstamp/geometry"
)

// ActivateTool makes t the active tool.
func (e *Editor) ActivateTool(t element.Type) (ToolState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.locked {
		return ToolState{}, ErrBusy
	}
	if !t.Valid() {
		return ToolState{}, fmt.Errorf("unknown tool %q", t)
	}
	e.tool = t
	e.pendingText = ""
	return e.toolState(), nil
}

func (e *Editor) toolState() ToolState {
	s := ToolState{Tool: e.tool}
	if e.tool == "" {
		return s
	}
	if element.Config(e.tool).Stamp {
		_, ok := e.assets[e.tool]
		s.NeedsAsset = !ok
	}
	if e.tool == element.Text && e.pendingText == "" {
		s.NeedsText = true
	}
	return s
}

// Tool returns the active tool state.
func (e *Editor) Tool() ToolState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.toolState()
}

// DeactivateTool clears the active tool.
func (e *Editor) DeactivateTool() {
	e.mu.Lock()
	e.tool = ""
	e.pendingText = ""
	e.mu.Unlock()
}

// SetAsset stores the bitmap placed by the stamp tool t. natural is the
// asset's natural size; the placed size is fitted to the stamp limits.
func (e *Editor) SetAsset(t element.Type, dataURI string, natural geometry.Size) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.locked {
		return ErrBusy
	}
	if !t.IsBitmap() {
		return fmt.Errorf("%s elements do not take a bitmap", t)
	}
	if dataURI == "" {
		return fmt.Errorf("empty %s asset", t)
	}
	e.assets[t] = asset{uri: dataURI, size: e.stampSize(t, natural)}
	return nil
}

func (e *Editor) stampSize(t element.Type, natural geometry.Size) geometry.Size {
	if !natural.Valid() {
		cfg := element.Config(t)
		return geometry.Size{Width: cfg.Width, Height: cfg.Height}
	}
	return geometry.FitWithin(natural, e.stampMin, e.stampMax)
}

// SetPendingText sets the content of the next text element, as entered in
// a text modal.
func (e *Editor) SetPendingText(s string) {
	e.mu.Lock()
	e.pendingText = s
	e.mu.Unlock()
}

// Place creates an element of the active tool centered on c (display
// space) on the current page. Stamp tools stay active; the others are
// deactivated. Text without content enters edit mode and is only
// committed once the edit is.
func (e *Editor) Place(c geometry.Point) (element.Element, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.locked {
		return element.Element{}, ErrBusy
	}
	e.endGesture()
	e.commitEdit()
	return e.place(c)
}

func (e *Editor) place(c geometry.Point) (element.Element, error) {
	if e.tool == "" {
		return element.Element{}, ErrNoTool
	}
	if e.page < 1 {
		return element.Element{}, fmt.Errorf("no document loaded")
	}
	t := e.tool
	el := element.New(e.newID(), t, e.page, c)

	switch {
	case t.IsBitmap():
		a, ok := e.assets[t]
		if !ok {
			return element.Element{}, ErrNeedsAsset
		}
		el.Content = a.uri
		el.SetRect(geometry.CenteredAt(c, a.size))
	case t == element.Date:
		el.Content = e.now().Format(e.dateFormat)
	case t == element.Text:
		el.Content = e.pendingText
	}

	if !element.Config(t).Stamp {
		e.tool = ""
		e.pendingText = ""
	}

	e.elements = append(e.elements, el)
	e.selected = el.ID
	if t.IsText() && trimmed(el.Content) == "" {
		e.editing, e.editBefore, e.editNew = el.ID, "", true
		return el, nil
	}
	e.commit("add " + string(t))
	return el, nil
}

// PlaceAsset adds a bitmap element of type t centered on c without going
// through a tool, as done when a capture tool saves.
func (e *Editor) PlaceAsset(t element.Type, dataURI string, natural geometry.Size, c geometry.Point) (element.Element, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.locked {
		return element.Element{}, ErrBusy
	}
	if !t.IsBitmap() {
		return element.Element{}, fmt.Errorf("%s elements do not take a bitmap", t)
	}
	if e.page < 1 {
		return element.Element{}, fmt.Errorf("no document loaded")
	}
	e.endGesture()
	e.commitEdit()

	el := element.New(e.newID(), t, e.page, c)
	el.Content = dataURI
	el.SetRect(geometry.CenteredAt(c, e.stampSize(t, natural)))
	e.elements = append(e.elements, el)
	e.selected = el.ID
	e.commit("add " + string(t))
	return el, nil
}
