package interaction

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/digitorus/pdfstamp/element"
	"github.com/digitorus/pdfstamp/geometry"
	"github.com/digitorus/pdfstamp/initials"
)

func newEditor(t *testing.T, pages int, opts ...Option) *Editor {
	t.Helper()
	n := 0
	seq := func() string { n++; return fmt.Sprintf("e%d", n) }
	return New(pages, append([]Option{WithIDFunc(seq)}, opts...)...)
}

func pt(x, y float64) geometry.Point { return geometry.Point{X: x, Y: y} }

func click(t *testing.T, e *Editor, p geometry.Point) {
	t.Helper()
	if err := e.PointerDown(p); err != nil {
		t.Fatalf("PointerDown: %v", err)
	}
	if err := e.PointerUp(p); err != nil {
		t.Fatalf("PointerUp: %v", err)
	}
}

func mustPlace(t *testing.T, e *Editor, tool element.Type, c geometry.Point) element.Element {
	t.Helper()
	if _, err := e.ActivateTool(tool); err != nil {
		t.Fatal(err)
	}
	if element.Config(tool).Stamp {
		if err := e.SetAsset(tool, "data:image/png;base64,AA==", geometry.Size{}); err != nil {
			t.Fatal(err)
		}
	}
	el, err := e.Place(c)
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	return el
}

func TestClickPlacesUnderZoom(t *testing.T) {
	e := newEditor(t, 1)
	e.SetZoom(1.5)
	e.SetSurfaceOrigin(pt(10, 20))
	if _, err := e.ActivateTool(element.Checkbox); err != nil {
		t.Fatal(err)
	}

	// Document point (200, 300) at zoom 1.5 is pointer (310, 470).
	click(t, e, pt(310, 470))

	els := e.Elements()
	if len(els) != 1 {
		t.Fatalf("got %d elements, want 1", len(els))
	}
	want := geometry.Rect{X: 188, Y: 288, Width: 24, Height: 24}
	if got := els[0].Rect(); got != want {
		t.Errorf("rect = %+v, want %+v", got, want)
	}
	if e.Tool().Tool != "" {
		t.Error("checkbox tool should deactivate after one placement")
	}
	if e.Selected() != els[0].ID || !e.CanUndo() {
		t.Error("new element should be selected and committed")
	}
}

func TestStampToolStaysActive(t *testing.T) {
	e := newEditor(t, 1, WithStampLimits(40, 300))
	st, err := e.ActivateTool(element.Signature)
	if err != nil {
		t.Fatal(err)
	}
	if !st.NeedsAsset {
		t.Error("signature without asset should ask for one")
	}
	if _, err := e.Place(pt(100, 100)); !errors.Is(err, ErrNeedsAsset) {
		t.Fatalf("place without asset: %v", err)
	}
	if err := e.SetAsset(element.Signature, "data:image/png;base64,AA==", geometry.Size{Width: 400, Height: 160}); err != nil {
		t.Fatal(err)
	}
	a, _ := e.Place(pt(200, 200))
	b, _ := e.Place(pt(400, 400))
	if a.Width != 300 || a.Height != 120 {
		t.Errorf("stamp size = %vx%v, want 300x120", a.Width, a.Height)
	}
	if b.ID == a.ID || e.Tool().Tool != element.Signature {
		t.Error("stamp tool should stay active with distinct IDs")
	}
	if len(e.Elements()) != 2 {
		t.Errorf("got %d elements", len(e.Elements()))
	}
}

func TestPlaceWithoutTool(t *testing.T) {
	e := newEditor(t, 1)
	if _, err := e.Place(pt(1, 1)); !errors.Is(err, ErrNoTool) {
		t.Errorf("err = %v, want ErrNoTool", err)
	}
	// A click on empty canvas without a tool only clears the selection.
	click(t, e, pt(50, 50))
	if len(e.Elements()) != 0 {
		t.Error("click without tool placed an element")
	}
}

func TestDragCommitsOnce(t *testing.T) {
	e := newEditor(t, 1)
	el := mustPlace(t, e, element.Image, pt(175, 175)) // 150x150 at (100,100)
	e.SetZoom(2)
	before := e.Snapshot()
	hist := len(before)

	if err := e.PointerDown(pt(220, 220)); err != nil { // doc (110,110)
		t.Fatal(err)
	}
	for _, x := range []float64{250, 300, 350, 420} {
		if err := e.PointerMove(pt(x, 320)); err != nil {
			t.Fatal(err)
		}
		if len(e.Snapshot()) != hist || e.Snapshot()[0].X != 100 {
			t.Fatal("drag frames must not reach history")
		}
	}
	if err := e.PointerUp(pt(420, 320)); err != nil {
		t.Fatal(err)
	}

	got, _ := e.Element(el.ID)
	if got.X != 200 || got.Y != 150 {
		t.Errorf("dragged to (%v, %v), want (200, 150)", got.X, got.Y)
	}
	if snap := e.Snapshot(); snap[0].X != 200 {
		t.Error("drag end should commit")
	}
	if ok, _ := e.Undo(); !ok {
		t.Fatal("undo failed")
	}
	if got, _ := e.Element(el.ID); got.X != 100 || got.Y != 100 {
		t.Errorf("undo restored (%v, %v)", got.X, got.Y)
	}
	if e.Selected() != "" {
		t.Error("undo should clear the selection")
	}
}

func TestSmallMovementIsAClick(t *testing.T) {
	e := newEditor(t, 1, WithClickThreshold(5))
	el := mustPlace(t, e, element.Checkbox, pt(100, 100))
	_ = e.PointerDown(pt(100, 100))
	_ = e.PointerMove(pt(102, 101))
	_ = e.PointerUp(pt(102, 101))
	got, _ := e.Element(el.ID)
	if got.X != el.X || !got.Checked {
		t.Errorf("jitter should toggle, not move: %+v", got)
	}
	if _, err := e.Undo(); err != nil {
		t.Fatal(err)
	}
	if got, _ := e.Element(el.ID); got.Checked {
		t.Error("toggle should be undoable")
	}
}

func TestResizeClampsToMinimum(t *testing.T) {
	e := newEditor(t, 1)
	el := mustPlace(t, e, element.Text, pt(200, 115)) // 200x30 at (100,100), pending edit
	if err := e.SetEditText("hello"); err != nil {
		t.Fatal(err)
	}
	if err := e.CommitEdit(); err != nil {
		t.Fatal(err)
	}
	if err := e.Select(el.ID); err != nil {
		t.Fatal(err)
	}

	_ = e.PointerDown(pt(300, 130)) // bottom-right handle
	_ = e.PointerMove(pt(105, 101))
	_ = e.PointerUp(pt(105, 101))

	got, _ := e.Element(el.ID)
	if got.Width != element.MinSize || got.Height != element.MinSize {
		t.Errorf("size = %vx%v, want clamped to %v", got.Width, got.Height, element.MinSize)
	}
	if got.X != 100 || got.Y != 100 {
		t.Error("resize must keep the top-left corner")
	}

	_ = e.PointerDown(pt(120, 120))
	_ = e.PointerMove(pt(350, 160))
	_ = e.PointerUp(pt(350, 160))
	if got, _ := e.Element(el.ID); got.Width != 250 || got.Height != 60 {
		t.Errorf("grown to %vx%v, want 250x60", got.Width, got.Height)
	}
}

func TestSelectionAndHitOrder(t *testing.T) {
	e := newEditor(t, 2)
	a := mustPlace(t, e, element.Image, pt(100, 100))
	b := mustPlace(t, e, element.Image, pt(120, 120)) // overlaps a, on top
	if h, ok := e.HitTest(pt(110, 110)); !ok || h.ID != b.ID {
		t.Errorf("hit = %+v, want topmost %s", h, b.ID)
	}
	if h, ok := e.HitTest(pt(30, 30)); !ok || h.ID != a.ID {
		t.Errorf("hit = %+v, want %s", h, a.ID)
	}

	e.DeactivateTool()
	click(t, e, pt(30, 30))
	if e.Selected() != a.ID {
		t.Errorf("selected %q, want %q", e.Selected(), a.ID)
	}
	click(t, e, pt(500, 500))
	if e.Selected() != "" {
		t.Error("click on empty canvas should clear the selection")
	}

	if err := e.SetPage(2); err != nil {
		t.Fatal(err)
	}
	if _, ok := e.HitTest(pt(110, 110)); ok {
		t.Error("elements of page 1 must not be hit on page 2")
	}
	if len(e.PageElements(2)) != 0 || len(e.PageElements(1)) != 2 {
		t.Error("page filtering mismatch")
	}
	if err := e.SetPage(3); err == nil {
		t.Error("expected error for page 3")
	}
}

func TestTextEditing(t *testing.T) {
	e := newEditor(t, 1)
	st, _ := e.ActivateTool(element.Text)
	if !st.NeedsText {
		t.Error("text tool without pending text should report NeedsText")
	}
	el, err := e.Place(pt(200, 200))
	if err != nil {
		t.Fatal(err)
	}
	if e.Editing() != el.ID || e.CanUndo() {
		t.Fatal("empty text should enter edit mode without a commit")
	}

	// Cancelling a new element removes it without history.
	if err := e.CancelEdit(); err != nil {
		t.Fatal(err)
	}
	if len(e.Elements()) != 0 || e.CanUndo() {
		t.Fatal("cancelled new text should vanish")
	}

	// Pending text places a committed element.
	_, _ = e.ActivateTool(element.Text)
	e.SetPendingText("Approved")
	el, _ = e.Place(pt(200, 200))
	if e.Editing() != "" || el.Content != "Approved" || !e.CanUndo() {
		t.Fatalf("pending text placement: editing=%q content=%q", e.Editing(), el.Content)
	}

	// Escape restores the previous content.
	if err := e.BeginEdit(el.ID); err != nil {
		t.Fatal(err)
	}
	_ = e.SetEditText("Rejected")
	_ = e.CancelEdit()
	if got, _ := e.Element(el.ID); got.Content != "Approved" {
		t.Errorf("cancel kept %q", got.Content)
	}

	// Enter keeps the change in one commit.
	before := len(e.Snapshot())
	_ = e.BeginEdit(el.ID)
	_ = e.SetEditText("Approved by JD")
	_ = e.CommitEdit()
	if got, _ := e.Element(el.ID); got.Content != "Approved by JD" || len(e.Snapshot()) != before {
		t.Errorf("commit gave %q", got.Content)
	}
	_, _ = e.Undo()
	if got, _ := e.Element(el.ID); got.Content != "Approved" {
		t.Errorf("undo of edit gave %q", got.Content)
	}

	// Committing an emptied element deletes it.
	_ = e.BeginEdit(el.ID)
	_ = e.SetEditText("   ")
	_ = e.CommitEdit()
	if _, ok := e.Element(el.ID); ok {
		t.Error("emptied text should be removed")
	}

	cb := mustPlace(t, e, element.Checkbox, pt(400, 400))
	if err := e.BeginEdit(cb.ID); err == nil {
		t.Error("checkboxes cannot be edited in place")
	}
}

func TestPointerDownElsewhereCommitsEdit(t *testing.T) {
	e := newEditor(t, 1)
	_, _ = e.ActivateTool(element.Text)
	el, _ := e.Place(pt(200, 200))
	_ = e.SetEditText("typed")

	// Pressing inside the edited element keeps editing.
	_ = e.PointerDown(pt(200, 200))
	if e.Editing() != el.ID {
		t.Fatal("press inside the editor should not end the edit")
	}
	_ = e.PointerUp(pt(200, 200))

	click(t, e, pt(500, 500))
	if e.Editing() != "" {
		t.Fatal("press elsewhere should commit the edit")
	}
	snap := e.Snapshot()
	if len(snap) != 1 || snap[0].Content != "typed" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestDoubleClickEditsText(t *testing.T) {
	e := newEditor(t, 1)
	_, _ = e.ActivateTool(element.Text)
	e.SetPendingText("x")
	el, _ := e.Place(pt(200, 200))
	if err := e.DoubleClick(pt(200, 200)); err != nil {
		t.Fatal(err)
	}
	if e.Editing() != el.ID {
		t.Error("double click should start editing")
	}
}

func TestDatePrefilled(t *testing.T) {
	clock := func() time.Time { return time.Date(2024, 5, 17, 9, 0, 0, 0, time.UTC) }
	e := newEditor(t, 1, WithClock(clock), WithDateFormat("02.01.2006"))
	el := mustPlace(t, e, element.Date, pt(100, 100))
	if el.Content != "17.05.2024" || e.Editing() != "" {
		t.Errorf("date content %q editing %q", el.Content, e.Editing())
	}
	if el.FontSize != element.DefaultFontSize {
		t.Errorf("font size = %v", el.FontSize)
	}
}

func TestDeleteAndRedo(t *testing.T) {
	e := newEditor(t, 1)
	el := mustPlace(t, e, element.Checkbox, pt(100, 100))
	if err := e.DeleteSelected(); err != nil {
		t.Fatal(err)
	}
	if len(e.Elements()) != 0 {
		t.Fatal("delete failed")
	}
	_, _ = e.Undo()
	if _, ok := e.Element(el.ID); !ok {
		t.Fatal("undo should restore the deleted element")
	}
	_, _ = e.Redo()
	if len(e.Elements()) != 0 {
		t.Error("redo should delete again")
	}
	if err := e.Delete("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestLockBlocksMutations(t *testing.T) {
	e := newEditor(t, 1)
	el := mustPlace(t, e, element.Checkbox, pt(100, 100))
	snap, err := e.Lock()
	if err != nil || len(snap) != 1 {
		t.Fatalf("Lock = %v, %v", snap, err)
	}
	if _, err := e.Lock(); !errors.Is(err, ErrBusy) {
		t.Error("second Lock should fail")
	}
	checks := map[string]error{
		"toggle":   e.Toggle(el.ID),
		"delete":   e.Delete(el.ID),
		"pointer":  e.PointerDown(pt(100, 100)),
		"nudge":    e.Nudge(1, 1),
		"set page": e.SetPage(1),
	}
	for name, err := range checks {
		if !errors.Is(err, ErrBusy) {
			t.Errorf("%s while locked: %v", name, err)
		}
	}
	if _, err := e.ActivateTool(element.Text); !errors.Is(err, ErrBusy) {
		t.Errorf("tool while locked: %v", err)
	}
	e.Unlock()
	if err := e.Toggle(el.ID); err != nil {
		t.Errorf("toggle after unlock: %v", err)
	}
}

func TestStyleNudgeRestore(t *testing.T) {
	e := newEditor(t, 2)
	_, _ = e.ActivateTool(element.Text)
	e.SetPendingText("hi")
	el, _ := e.Place(pt(100, 100))

	if err := e.SetStyle(el.ID, Style{FontSize: 24, Color: "#ff0000"}); err != nil {
		t.Fatal(err)
	}
	if err := e.SetStyle(el.ID, Style{Color: "red-ish"}); err == nil {
		t.Error("expected invalid color error")
	}
	got, _ := e.Element(el.ID)
	if got.FontSize != 24 || got.Color != "#ff0000" || got.FontFamily != element.DefaultFontFamily {
		t.Errorf("style = %+v", got)
	}

	_ = e.Select(el.ID)
	if err := e.Nudge(-1, 10); err != nil {
		t.Fatal(err)
	}
	if got, _ := e.Element(el.ID); got.X != el.X-1 || got.Y != el.Y+10 {
		t.Errorf("nudged to (%v, %v)", got.X, got.Y)
	}

	dup := []element.Element{
		{ID: "a", Type: element.Checkbox, PageNumber: 1, Width: 24, Height: 24},
		{ID: "a", Type: element.Checkbox, PageNumber: 2, Width: 24, Height: 24},
	}
	if err := e.Restore(dup); err == nil {
		t.Error("duplicate IDs should be rejected")
	}
	dup[1].ID = "b"
	dup[1].PageNumber = 3
	if err := e.Restore(dup); err == nil {
		t.Error("page 3 of 2 should be rejected")
	}
	dup[1].PageNumber = 2
	if err := e.Restore(dup); err != nil {
		t.Fatal(err)
	}
	if len(e.Elements()) != 2 {
		t.Error("restore did not replace the element set")
	}
	_, _ = e.Undo()
	if len(e.Elements()) != 1 {
		t.Error("restore should be a single undo step")
	}
}

func TestInitialAllPages(t *testing.T) {
	e := newEditor(t, 3)
	src := mustPlace(t, e, element.Initials, pt(100, 100))
	pages := map[int]geometry.Size{
		1: {Width: 612, Height: 792},
		2: {Width: 612, Height: 792},
		3: {Width: 612, Height: 792},
	}
	copies, err := e.InitialAllPages(src.ID, initials.Config{Position: initials.BottomRight, MarginX: 12, MarginY: 12}, pages)
	if err != nil {
		t.Fatal(err)
	}
	if len(copies) != 2 || copies[0].PageNumber != 2 || copies[1].PageNumber != 3 {
		t.Fatalf("copies = %+v", copies)
	}
	if copies[0].X != 612-12-src.Width {
		t.Errorf("copy x = %v", copies[0].X)
	}
	_, _ = e.Undo()
	if len(e.Elements()) != 1 {
		t.Error("all copies should be removed by one undo")
	}
}

func TestZoomClampAndReset(t *testing.T) {
	var commits int
	e := newEditor(t, 2, WithZoomLimits(0.5, 2), WithOnCommit(func([]element.Element) { commits++ }))
	if z := e.SetZoom(10); z != 2 {
		t.Errorf("zoom = %v, want 2", z)
	}
	mustPlace(t, e, element.Checkbox, pt(10, 10))
	if commits != 1 {
		t.Errorf("commits = %d", commits)
	}
	_ = e.SetPage(2)
	e.Reset(5)
	if e.NumPages() != 5 || e.Page() != 1 || e.Zoom() != 1 || len(e.Elements()) != 0 || e.CanUndo() {
		t.Error("reset should start a fresh session")
	}
}

func TestUndoDiscardsPendingTextOnly(t *testing.T) {
	e := newEditor(t, 1)
	box := mustPlace(t, e, element.Checkbox, pt(50, 50))

	_, _ = e.ActivateTool(element.Text)
	el, err := e.Place(pt(200, 200))
	if err != nil {
		t.Fatal(err)
	}
	if e.Editing() != el.ID {
		t.Fatal("empty text should enter edit mode")
	}

	if ok, err := e.Undo(); !ok || err != nil {
		t.Fatalf("Undo() = %v, %v", ok, err)
	}
	els := e.Elements()
	if len(els) != 1 || els[0].ID != box.ID || e.Editing() != "" {
		t.Fatalf("after undo: elements=%v editing=%q, want only the checkbox", els, e.Editing())
	}

	// The next undo removes the checkbox.
	if ok, _ := e.Undo(); !ok || len(e.Elements()) != 0 {
		t.Errorf("second undo left %d elements", len(e.Elements()))
	}

	// An unsaved change to existing text is reverted before history moves.
	_, _ = e.Redo()
	_, _ = e.ActivateTool(element.Text)
	e.SetPendingText("Approved")
	txt, _ := e.Place(pt(300, 300))
	_ = e.BeginEdit(txt.ID)
	_ = e.SetEditText("Rejected")
	if ok, _ := e.Undo(); !ok {
		t.Fatal("undo of a pending edit reported no change")
	}
	if got, _ := e.Element(txt.ID); got.Content != "Approved" || len(e.Elements()) != 2 {
		t.Errorf("after undo: content=%q elements=%d", got.Content, len(e.Elements()))
	}
}

func TestSetStyleRejectsWithoutChange(t *testing.T) {
	var commits int
	e := newEditor(t, 1, WithOnCommit(func([]element.Element) { commits++ }))
	_, _ = e.ActivateTool(element.Text)
	e.SetPendingText("hi")
	el, _ := e.Place(pt(100, 100))
	commits = 0

	for _, s := range []Style{
		{Color: "#ff0000", FontSize: -1},
		{Color: "#ff0000", FontSize: math.NaN(), FontFamily: "Courier"},
		{Color: "red-ish", FontSize: 30},
	} {
		if err := e.SetStyle(el.ID, s); err == nil {
			t.Errorf("SetStyle(%+v) accepted", s)
		}
	}
	got, _ := e.Element(el.ID)
	if got.Color != element.DefaultColor || got.FontSize != element.DefaultFontSize || got.FontFamily != element.DefaultFontFamily {
		t.Errorf("rejected styles changed the element: %+v", got)
	}
	snap := e.Snapshot()
	if len(snap) != 1 || snap[0].Color != element.DefaultColor || commits != 0 {
		t.Errorf("snapshot color %q, %d commits", snap[0].Color, commits)
	}
}

func TestSetZoomIgnoresNonFinite(t *testing.T) {
	e := newEditor(t, 1)
	e.SetZoom(1.5)
	for _, z := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if got := e.SetZoom(z); got != 1.5 {
			t.Errorf("SetZoom(%v) = %v, want 1.5", z, got)
		}
	}
	if _, err := e.ActivateTool(element.Checkbox); err != nil {
		t.Fatal(err)
	}
	click(t, e, pt(150, 150))
	r := e.Elements()[0].Rect()
	if math.IsNaN(r.X) || math.IsNaN(r.Y) || r.X != 88 || r.Y != 88 {
		t.Errorf("placed at %+v, want 88,88", r)
	}
}

func TestNudgeZeroIsNotRecorded(t *testing.T) {
	var commits int
	e := newEditor(t, 1, WithOnCommit(func([]element.Element) { commits++ }))
	el := mustPlace(t, e, element.Checkbox, pt(50, 50))
	_ = e.Select(el.ID)

	if err := e.Nudge(0, 0); err != nil {
		t.Fatal(err)
	}
	if commits != 1 {
		t.Errorf("commits = %d, want 1", commits)
	}
	if ok, _ := e.Undo(); !ok || len(e.Elements()) != 0 {
		t.Error("undo after a zero nudge should remove the placement")
	}
}
