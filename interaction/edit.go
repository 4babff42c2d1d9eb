package interaction

import (
	"fmt"
)

// Editing returns the ID of the element in edit mode, or "".
func (e *Editor) Editing() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.editing
}

// BeginEdit puts a text or date element in edit mode.
func (e *Editor) BeginEdit(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.locked {
		return ErrBusy
	}
	e.endGesture()
	return e.beginEdit(id)
}

func (e *Editor) beginEdit(id string) error {
	i := e.index(id)
	if i < 0 {
		return ErrNotFound
	}
	if !e.elements[i].Type.IsText() {
		return fmt.Errorf("element %s is a %s and cannot be edited in place", id, e.elements[i].Type)
	}
	if e.editing == id {
		return nil
	}
	e.commitEdit()
	e.editing = id
	e.editBefore = e.elements[i].Content
	e.editNew = false
	e.selected = id
	return nil
}

// SetEditText updates the content of the element being edited. The change
// is live but not committed.
func (e *Editor) SetEditText(s string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.locked {
		return ErrBusy
	}
	i := e.index(e.editing)
	if i < 0 {
		return ErrNotFound
	}
	e.elements[i].Content = s
	return nil
}

// CommitEdit ends edit mode keeping the entered text (Enter). An element
// left without text is removed.
func (e *Editor) CommitEdit() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.locked {
		return ErrBusy
	}
	e.commitEdit()
	return nil
}

func (e *Editor) commitEdit() {
	if e.editing == "" {
		return
	}
	id, before, isNew := e.editing, e.editBefore, e.editNew
	e.editing, e.editBefore, e.editNew = "", "", false

	i := e.index(id)
	if i < 0 {
		return
	}
	if trimmed(e.elements[i].Content) == "" {
		e.elements = append(e.elements[:i:i], e.elements[i+1:]...)
		if e.selected == id {
			e.selected = ""
		}
		if !isNew {
			e.commit("delete empty text")
		}
		return
	}
	if isNew || e.elements[i].Content != before {
		e.commit("edit text")
	}
}

// CancelEdit ends edit mode restoring the previous text (Escape). A new
// element that never had text is removed.
func (e *Editor) CancelEdit() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.locked {
		return ErrBusy
	}
	e.cancelEdit()
	return nil
}

// cancelEdit drops the pending edit and reports whether the element list
// changed.
func (e *Editor) cancelEdit() bool {
	if e.editing == "" {
		return false
	}
	id, before, isNew := e.editing, e.editBefore, e.editNew
	e.editing, e.editBefore, e.editNew = "", "", false

	i := e.index(id)
	if i < 0 {
		return false
	}
	if isNew {
		e.elements = append(e.elements[:i:i], e.elements[i+1:]...)
		if e.selected == id {
			e.selected = ""
		}
		return true
	}
	if e.elements[i].Content == before {
		return false
	}
	e.elements[i].Content = before
	return true
}
