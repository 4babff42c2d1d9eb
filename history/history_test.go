package history

import (
	"reflect"
	"testing"

	"github.com/digitorus/pdfstamp/element"
)

func snap(ids ...string) []element.Element {
	out := []element.Element{}
	for _, id := range ids {
		out = append(out, element.Element{ID: id, Type: element.Checkbox, Width: 24, Height: 24, PageNumber: 1})
	}
	return out
}

func TestInitialState(t *testing.T) {
	h := New(nil)
	if h.Len() != 1 || h.Index() != 0 {
		t.Fatalf("len/index = %d/%d, want 1/0", h.Len(), h.Index())
	}
	if len(h.Current()) != 0 {
		t.Errorf("initial snapshot not empty: %v", h.Current())
	}
	if _, ok := h.Undo(); ok {
		t.Error("Undo at index 0 should be a no-op")
	}
	if _, ok := h.Redo(); ok {
		t.Error("Redo at the end should be a no-op")
	}
}

func TestUndoRedoRestoresExactSnapshots(t *testing.T) {
	h := New(snap())
	h.Commit(snap("a"))
	h.Commit(snap("a", "b"))

	got, ok := h.Undo()
	if !ok || !reflect.DeepEqual(got, snap("a")) {
		t.Fatalf("Undo = %v, %v; want [a]", got, ok)
	}
	got, ok = h.Redo()
	if !ok || !reflect.DeepEqual(got, snap("a", "b")) {
		t.Fatalf("Redo = %v, %v; want [a b]", got, ok)
	}
}

func TestCommitAfterUndoDropsRedo(t *testing.T) {
	h := New(snap())
	h.Commit(snap("a"))
	h.Commit(snap("a", "b"))
	h.Undo()
	h.Commit(snap("a", "c"))

	if h.CanRedo() {
		t.Error("redo must be unavailable after diverging commit")
	}
	if h.Len() != 3 {
		t.Errorf("Len = %d, want 3", h.Len())
	}
	got, _ := h.Undo()
	if !reflect.DeepEqual(got, snap("a")) {
		t.Errorf("Undo = %v, want [a]", got)
	}
}

func TestSnapshotsAreCopies(t *testing.T) {
	live := snap("a")
	h := New(nil)
	h.Commit(live)
	live[0].X = 500

	if h.Current()[0].X != 0 {
		t.Error("committed snapshot changed through the caller's slice")
	}
	cur := h.Current()
	cur[0].X = 42
	if h.Current()[0].X != 0 {
		t.Error("snapshot changed through Current() result")
	}
}

func TestLimitTrimsOldest(t *testing.T) {
	h := New(snap(), WithLimit(3))
	h.Commit(snap("a"))
	h.Commit(snap("a", "b"))
	h.Commit(snap("a", "b", "c"))

	if h.Len() != 3 {
		t.Fatalf("Len = %d, want 3", h.Len())
	}
	if h.Index() != 2 {
		t.Fatalf("Index = %d, want 2", h.Index())
	}
	h.Undo()
	got, _ := h.Undo()
	if !reflect.DeepEqual(got, snap("a")) {
		t.Errorf("oldest retained = %v, want [a]", got)
	}
	if h.CanUndo() {
		t.Error("should not undo past the retained window")
	}
}

func TestIndexStaysInRange(t *testing.T) {
	h := New(nil)
	for i := 0; i < 10; i++ {
		h.Undo()
		h.Redo()
		if h.Index() < 0 || h.Index() > h.Len()-1 {
			t.Fatalf("index %d out of [0,%d]", h.Index(), h.Len()-1)
		}
	}
}
