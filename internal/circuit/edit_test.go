package circuit

import (
	"errors"
	"testing"

	"github.com/nvandessel/pneumatic/internal/pressure"
)

func TestUndoRedo_RestoresGrid(t *testing.T) {
	c := New()
	mustSet(t, c.SetPipe(Pos{1, 1}, ShapeNS))
	mustSet(t, c.SetValve(Pos{2, 2}, pressure.West))

	edits := []struct {
		name string
		edit func() error
	}{
		{"pipe", func() error { return c.SetPipe(Pos{3, 3}, ShapeNWE) }},
		{"valve", func() error { return c.SetValve(Pos{1, 1}, pressure.South) }},
		{"source", func() error { return c.SetSource(Pos{4, 4}, pressure.East) }},
		{"empty", func() error { return c.SetEmpty(Pos{2, 2}) }},
		{"sub", func() error { return c.SetSubcircuit(Pos{5, 5}, 3, pressure.West) }},
		{"drag", func() error { return c.DrawPipe([]Pos{{6, 6}, {6, 7}, {7, 7}}) }},
	}
	for _, tt := range edits {
		t.Run(tt.name, func(t *testing.T) {
			before := c.Digest()
			mustSet(t, tt.edit())
			after := c.Digest()
			if before == after {
				t.Fatal("edit did not change the grid")
			}
			if err := c.Undo(); err != nil {
				t.Fatalf("Undo() error = %v", err)
			}
			if c.Digest() != before {
				t.Error("Undo() did not restore the pre-edit grid")
			}
			if err := c.Redo(); err != nil {
				t.Fatalf("Redo() error = %v", err)
			}
			if c.Digest() != after {
				t.Error("Redo() did not restore the post-edit grid")
			}
		})
	}
}

func TestUndoRedo_Empty(t *testing.T) {
	c := New()
	if err := c.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Undo() error = %v, want ErrNothingToUndo", err)
	}
	if err := c.Redo(); !errors.Is(err, ErrNothingToRedo) {
		t.Errorf("Redo() error = %v, want ErrNothingToRedo", err)
	}
}

func TestUndoRedo_NewEditClearsRedo(t *testing.T) {
	c := New()
	mustSet(t, c.SetPipe(Pos{1, 1}, ShapeNS))
	mustSet(t, c.Undo())
	if !c.CanRedo() {
		t.Fatal("expected redo after undo")
	}
	mustSet(t, c.SetPipe(Pos{2, 2}, ShapeEW))
	if c.CanRedo() {
		t.Error("new edit did not clear redo")
	}
}

func TestUndo_Capped(t *testing.T) {
	c := New()
	for i := 0; i < MaxUndo+5; i++ {
		sh := ShapeNS
		if i%2 == 1 {
			sh = ShapeEW
		}
		mustSet(t, c.SetPipe(Pos{i % GridSize, 0}, sh))
	}
	for i := 0; i < MaxUndo; i++ {
		if err := c.Undo(); err != nil {
			t.Fatalf("undo %d: %v", i, err)
		}
	}
	if err := c.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Undo() past cap error = %v", err)
	}
}

func TestEdit_Refusals(t *testing.T) {
	c := New()
	c.SetBlocked(Pos{3, 3}, true)
	mustSet(t, c.SetPipe(Pos{0, 0}, ShapeNS))
	before := c.Digest()

	tests := []struct {
		name string
		edit func() error
		want error
	}{
		{"blocked pipe", func() error { return c.SetPipe(Pos{3, 3}, ShapeNS) }, ErrBlocked},
		{"blocked empty", func() error { return c.SetEmpty(Pos{3, 3}) }, ErrBlocked},
		{"off grid", func() error { return c.SetSource(Pos{GridSize, 0}, pressure.North) }, ErrOutOfBounds},
		{"negative", func() error { return c.SetValve(Pos{0, -1}, pressure.North) }, ErrOutOfBounds},
		{"drag off grid", func() error { return c.DrawPipe([]Pos{{8, 8}, {9, 8}}) }, ErrOutOfBounds},
		{"drag gap", func() error { return c.DrawPipe([]Pos{{1, 1}, {3, 1}}) }, ErrNotAdjacent},
		{"customize pipe", func() error { return c.Customize(Pos{0, 0}) }, ErrNotSubcircuit},
		{"own level", func() error { return NewForLevel(2).SetSubcircuit(Pos{1, 1}, 2, pressure.North) }, ErrCircular},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.edit()
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if c.Digest() != before {
				t.Error("refused edit changed the grid")
			}
		})
	}

	mustSet(t, c.Undo())
	if c.CanUndo() {
		t.Error("refused edits pushed history")
	}
}

func TestDrawPipe(t *testing.T) {
	c := New()
	mustSet(t, c.DrawPipe([]Pos{{1, 1}, {2, 1}, {2, 2}}))

	want := map[Pos]Shape{{1, 1}: ShapeEW, {2, 1}: ShapeWS, {2, 2}: ShapeNS}
	for p, sh := range want {
		got := c.At(p)
		if got.Kind != KindPipe || got.Shape != sh {
			t.Errorf("%v = %v %v, want pipe %v", p, got.Kind, got.Shape, sh)
		}
	}

	mustSet(t, c.Undo())
	if c.At(Pos{2, 1}).Kind != KindEmpty || c.CanUndo() {
		t.Error("drag was not a single history entry")
	}
}

func TestDrawPipe_ExtendsAndSkips(t *testing.T) {
	c := New()
	mustSet(t, c.SetPipe(Pos{1, 1}, ShapeNS))
	mustSet(t, c.SetValve(Pos{3, 1}, pressure.North))
	c.Fix(Pos{1, 2}, Empty())

	mustSet(t, c.DrawPipe([]Pos{{1, 1}, {2, 1}, {3, 1}}))
	if got := c.At(Pos{1, 1}).Shape; got != ShapeNES {
		t.Errorf("extended pipe = %v, want NES", got)
	}
	if got := c.At(Pos{3, 1}); got.Kind != KindValve {
		t.Errorf("valve replaced by %v", got.Kind)
	}

	mustSet(t, c.DrawPipe([]Pos{{1, 3}, {1, 2}}))
	if c.At(Pos{1, 2}).Kind != KindEmpty {
		t.Error("drag wrote a fixed cell")
	}
	if got := c.At(Pos{1, 3}).Shape; got != ShapeNS {
		t.Errorf("drag start = %v, want NS", got)
	}

	undos := 0
	for c.CanUndo() {
		mustSet(t, c.Undo())
		undos++
	}
	if undos != 4 {
		t.Errorf("history entries = %d, want 4", undos)
	}
}

func TestMoveSelected(t *testing.T) {
	c := New()
	mustSet(t, c.SetSource(Pos{1, 1}, pressure.East))
	mustSet(t, c.SetPipe(Pos{2, 1}, ShapeEW))

	var sel Selection
	sel.Add(Pos{1, 1}, Pos{2, 1}, Pos{0, 0})
	mustSet(t, c.MoveSelected(&sel, 1, 0))

	if c.At(Pos{1, 1}).Kind != KindEmpty {
		t.Error("vacated cell not empty")
	}
	if c.At(Pos{2, 1}).Kind != KindSource || c.At(Pos{3, 1}).Kind != KindPipe {
		t.Errorf("moved cells = %v, %v", c.At(Pos{2, 1}).Kind, c.At(Pos{3, 1}).Kind)
	}

	mustSet(t, c.Undo())
	if c.At(Pos{1, 1}).Kind != KindSource || c.At(Pos{3, 1}).Kind != KindEmpty {
		t.Error("Undo() did not restore the move")
	}
}

func TestMoveSelected_Refused(t *testing.T) {
	c := New()
	mustSet(t, c.SetPipe(Pos{8, 8}, ShapeNS))
	mustSet(t, c.SetPipe(Pos{4, 5}, ShapeNS))
	c.SetBlocked(Pos{5, 5}, true)
	before := c.Digest()

	tests := []struct {
		name   string
		p      Pos
		dx, dy int
		want   error
	}{
		{"off grid", Pos{8, 8}, 1, 0, ErrOutOfBounds},
		{"onto fixed", Pos{4, 5}, 1, 0, ErrBlocked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sel Selection
			sel.Add(tt.p)
			if err := c.MoveSelected(&sel, tt.dx, tt.dy); !errors.Is(err, tt.want) {
				t.Errorf("MoveSelected() error = %v, want %v", err, tt.want)
			}
			if c.Digest() != before {
				t.Error("refused move changed the grid")
			}
		})
	}
}

func TestMoveSelected_FixedCellsStay(t *testing.T) {
	c := New()
	c.Fix(Pos{0, 0}, Source(pressure.South))
	mustSet(t, c.SetPipe(Pos{1, 0}, ShapeNS))

	var sel Selection
	sel.Add(Pos{0, 0}, Pos{1, 0})
	mustSet(t, c.MoveSelected(&sel, 0, 1))
	if c.At(Pos{0, 0}).Kind != KindSource || c.At(Pos{0, 1}).Kind != KindEmpty {
		t.Error("fixed cell moved")
	}
	if c.At(Pos{1, 1}).Kind != KindPipe {
		t.Error("pipe not moved")
	}
}

func TestDeleteSelected(t *testing.T) {
	c := New()
	c.Fix(Pos{0, 0}, Source(pressure.South))
	mustSet(t, c.SetPipe(Pos{1, 0}, ShapeNS))
	mustSet(t, c.SetValve(Pos{2, 0}, pressure.North))

	var sel Selection
	sel.Add(Pos{0, 0}, Pos{1, 0})
	mustSet(t, c.DeleteSelected(&sel))
	if c.At(Pos{0, 0}).Kind != KindSource {
		t.Error("fixed cell deleted")
	}
	if c.At(Pos{1, 0}).Kind != KindEmpty || c.At(Pos{2, 0}).Kind != KindValve {
		t.Error("DeleteSelected() hit the wrong cells")
	}

	before := c.Digest()
	var none Selection
	mustSet(t, c.DeleteSelected(&none))
	mustSet(t, c.Undo())
	if c.Digest() == before {
		t.Error("empty delete pushed history")
	}
}

func TestSelection(t *testing.T) {
	var sel Selection
	sel.Add(Pos{2, 3}, Pos{-1, 0}, Pos{GridSize, 0})
	if !sel.Has(Pos{2, 3}) || sel.Has(Pos{3, 2}) || sel.Has(Pos{-1, 0}) {
		t.Error("Selection membership wrong")
	}
}
