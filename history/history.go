// Package history implements linear undo/redo over snapshots of the
// element set.
//
// Every snapshot is a complete copy of the element list. Undo and redo only
// move the current index; a new commit after an undo discards the redo
// branch.
package history

import (
	"github.com/digitorus/pdfstamp/element"
)

// History is a linear snapshot stack. It is not safe for concurrent use;
// the editor serializes access to it.
type History struct {
	snapshots [][]element.Element
	index     int
	limit     int
}

// Option configures a History.
type Option func(*History)

// WithLimit bounds the number of retained snapshots. The oldest snapshots
// are dropped first. A limit below 2 disables the bound.
func WithLimit(n int) Option {
	return func(h *History) {
		if n >= 2 {
			h.limit = n
		}
	}
}

// New returns a history holding initial as its only snapshot.
func New(initial []element.Element, opts ...Option) *History {
	h := &History{}
	for _, opt := range opts {
		opt(h)
	}
	h.Reset(initial)
	return h
}

// Reset discards all snapshots and starts over from initial.
func (h *History) Reset(initial []element.Element) {
	h.snapshots = [][]element.Element{element.Clone(initial)}
	h.index = 0
}

// Commit truncates any redo snapshots, appends s and makes it current.
func (h *History) Commit(s []element.Element) {
	h.snapshots = append(h.snapshots[:h.index+1], element.Clone(s))
	h.index = len(h.snapshots) - 1

	if h.limit > 0 && len(h.snapshots) > h.limit {
		drop := len(h.snapshots) - h.limit
		h.snapshots = append([][]element.Element(nil), h.snapshots[drop:]...)
		h.index -= drop
	}
}

// Undo steps back one snapshot and returns it. It reports false, and
// changes nothing, at the oldest snapshot.
func (h *History) Undo() ([]element.Element, bool) {
	if h.index == 0 {
		return nil, false
	}
	h.index--
	return h.Current(), true
}

// Redo steps forward one snapshot and returns it. It reports false, and
// changes nothing, at the newest snapshot.
func (h *History) Redo() ([]element.Element, bool) {
	if h.index >= len(h.snapshots)-1 {
		return nil, false
	}
	h.index++
	return h.Current(), true
}

// Current returns a copy of the current snapshot.
func (h *History) Current() []element.Element {
	return element.Clone(h.snapshots[h.index])
}

// CanUndo reports whether Undo would change the state.
func (h *History) CanUndo() bool { return h.index > 0 }

// CanRedo reports whether Redo would change the state.
func (h *History) CanRedo() bool { return h.index < len(h.snapshots)-1 }

// Index returns the current position.
func (h *History) Index() int { return h.index }

// Len returns the number of retained snapshots.
func (h *History) Len() int { return len(h.snapshots) }
