package circuit

import (
	"fmt"

	"github.com/nvandessel/pneumatic/internal/pressure"
)

// Selection marks a set of cells, indexed [x][y].
type Selection [GridSize][GridSize]bool

// Add marks p. Off-grid positions are ignored.
func (s *Selection) Add(ps ...Pos) {
	for _, p := range ps {
		if p.Valid() {
			s[p.X][p.Y] = true
		}
	}
}

// Has reports whether p is marked.
func (s *Selection) Has(p Pos) bool {
	return p.Valid() && s[p.X][p.Y]
}

// checkEditable validates that p exists and is not fixed.
func (c *Circuit) checkEditable(p Pos) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %v", ErrOutOfBounds, p)
	}
	if c.blocked[p.X][p.Y] {
		return fmt.Errorf("%w: %v", ErrBlocked, p)
	}
	return nil
}

// pushUndo records the current grid before an edit and discards redo.
func (c *Circuit) pushUndo() {
	c.undo = pushCapped(c.undo, c.cloneGrid())
	c.redo = c.redo[:0]
}

func pushCapped(stack []Grid, g Grid) []Grid {
	if len(stack) >= MaxUndo {
		stack = append(stack[:0], stack[len(stack)-MaxUndo+1:]...)
	}
	return append(stack, g)
}

// place is the common path of the single-cell setters.
func (c *Circuit) place(p Pos, el Element) error {
	if err := c.checkEditable(p); err != nil {
		return err
	}
	c.pushUndo()
	c.retireCell(&c.grid[p.X][p.Y])
	c.grid[p.X][p.Y] = el
	c.reelaborate(p)
	c.markDirty()
	return nil
}

// SetPipe places a pipe of shape sh at p.
func (c *Circuit) SetPipe(p Pos, sh Shape) error {
	if !sh.Valid() {
		return fmt.Errorf("invalid pipe shape %d", uint8(sh))
	}
	return c.place(p, Pipe(sh))
}

// SetValve places a valve facing d at p.
func (c *Circuit) SetValve(p Pos, d pressure.Direction) error {
	if !d.Valid() {
		return fmt.Errorf("invalid direction %d", uint8(d))
	}
	return c.place(p, Valve(d))
}

// SetSource places a source facing d at p.
func (c *Circuit) SetSource(p Pos, d pressure.Direction) error {
	if !d.Valid() {
		return fmt.Errorf("invalid direction %d", uint8(d))
	}
	return c.place(p, Source(d))
}

// SetEmpty clears p.
func (c *Circuit) SetEmpty(p Pos) error {
	return c.place(p, Empty())
}

// SetSubcircuit places a reference to level rotated by d at p. It is refused
// with ErrCircular if the referenced level already embeds this circuit's
// level or any level enclosing it.
func (c *Circuit) SetSubcircuit(p Pos, level int, d pressure.Direction) error {
	if err := c.checkEditable(p); err != nil {
		return err
	}
	if !d.Valid() {
		return fmt.Errorf("invalid direction %d", uint8(d))
	}
	if c.resolver != nil {
		if _, _, ok := c.resolver.Template(level); !ok {
			return fmt.Errorf("%w: %d", ErrUnknownLevel, level)
		}
	}
	if c.wouldCycle(level) {
		return fmt.Errorf("%w: level %d at %v", ErrCircular, level, p)
	}
	return c.place(p, Subcircuit(level, d))
}

// DrawPipe lays a pipe run along path, connecting each step to the next.
// Empty cells become pipes and existing pipes gain the new connections.
// Fixed cells and other element kinds are left untouched. The whole run is
// one history entry.
func (c *Circuit) DrawPipe(path []Pos) error {
	for i, p := range path {
		if !p.Valid() {
			return fmt.Errorf("%w: %v", ErrOutOfBounds, p)
		}
		if i > 0 {
			if _, ok := stepDirection(path[i-1], p); !ok {
				return fmt.Errorf("%w: %v to %v", ErrNotAdjacent, path[i-1], p)
			}
		}
	}

	add := make(map[Pos]pressure.Mask)
	for i := 1; i < len(path); i++ {
		d, _ := stepDirection(path[i-1], path[i])
		add[path[i-1]] |= d.Bit()
		add[path[i]] |= d.Opposite().Bit()
	}

	type change struct {
		p  Pos
		el Element
	}
	var changes []change
	for _, p := range path {
		m, ok := add[p]
		if !ok || c.blocked[p.X][p.Y] {
			continue
		}
		delete(add, p)
		cur := c.grid[p.X][p.Y]
		var sh Shape
		switch cur.Kind {
		case KindEmpty:
			sh = ShapeForMask(m)
		case KindPipe:
			if cur.Shape.Crossing() {
				continue
			}
			sh = ShapeForMask(cur.Shape.Connections() | m)
			if sh == cur.Shape {
				continue
			}
		default:
			continue
		}
		changes = append(changes, change{p, Pipe(sh)})
	}
	if len(changes) == 0 {
		return nil
	}

	c.pushUndo()
	for _, ch := range changes {
		c.grid[ch.p.X][ch.p.Y] = ch.el
	}
	c.markDirty()
	return nil
}

func stepDirection(from, to Pos) (pressure.Direction, bool) {
	for _, d := range pressure.Directions {
		if from.Step(d) == to {
			return d, true
		}
	}
	return 0, false
}

// MoveSelected shifts the selected elements by (dx,dy). Fixed and empty
// cells in the selection stay put. Moved elements overwrite their targets,
// and the cells they leave become empty. The move is refused if any target
// is off grid or fixed.
func (c *Circuit) MoveSelected(sel *Selection, dx, dy int) error {
	var from []Pos
	for x := 0; x < GridSize; x++ {
		for y := 0; y < GridSize; y++ {
			if !sel[x][y] || c.blocked[x][y] || c.grid[x][y].Kind == KindEmpty {
				continue
			}
			to := Pos{x + dx, y + dy}
			if err := c.checkEditable(to); err != nil {
				return err
			}
			from = append(from, Pos{x, y})
		}
	}
	if len(from) == 0 || (dx == 0 && dy == 0) {
		return nil
	}

	c.pushUndo()
	moved := make([]Element, len(from))
	for i, p := range from {
		moved[i] = c.grid[p.X][p.Y]
		c.grid[p.X][p.Y] = Empty()
	}
	for i, p := range from {
		to := Pos{p.X + dx, p.Y + dy}
		c.retireCell(&c.grid[to.X][to.Y])
		c.grid[to.X][to.Y] = moved[i]
	}
	c.markDirty()
	return nil
}

// DeleteSelected empties every selected cell that is not fixed.
func (c *Circuit) DeleteSelected(sel *Selection) error {
	var hit []Pos
	for x := 0; x < GridSize; x++ {
		for y := 0; y < GridSize; y++ {
			if sel[x][y] && !c.blocked[x][y] && c.grid[x][y].Kind != KindEmpty {
				hit = append(hit, Pos{x, y})
			}
		}
	}
	if len(hit) == 0 {
		return nil
	}
	c.pushUndo()
	for _, p := range hit {
		c.retireCell(&c.grid[p.X][p.Y])
		c.grid[p.X][p.Y] = Empty()
	}
	c.markDirty()
	return nil
}

// Customize detaches the sub-network at p into a private copy that can be
// edited independently of its level.
func (c *Circuit) Customize(p Pos) error {
	if err := c.checkEditable(p); err != nil {
		return err
	}
	el := &c.grid[p.X][p.Y]
	if el.Kind != KindSubcircuit {
		return fmt.Errorf("%w: %v", ErrNotSubcircuit, p)
	}
	if el.custom != nil {
		return nil
	}
	if el.instance == nil {
		return fmt.Errorf("%w: %d", ErrUnknownLevel, el.Level)
	}
	c.pushUndo()
	el.custom = el.instance
	return nil
}

// Custom returns the private circuit of the customized sub-network at p.
func (c *Circuit) Custom(p Pos) (*Circuit, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrOutOfBounds, p)
	}
	el := &c.grid[p.X][p.Y]
	if el.Kind != KindSubcircuit || el.custom == nil {
		return nil, fmt.Errorf("%w: %v is not customized", ErrNotSubcircuit, p)
	}
	return el.custom, nil
}

// Undo restores the grid as it was before the last edit.
func (c *Circuit) Undo() error {
	if len(c.undo) == 0 {
		return ErrNothingToUndo
	}
	prev := c.undo[len(c.undo)-1]
	c.undo = c.undo[:len(c.undo)-1]
	c.redo = pushCapped(c.redo, c.swapGrid(prev))
	return nil
}

// Redo reapplies the last undone edit.
func (c *Circuit) Redo() error {
	if len(c.redo) == 0 {
		return ErrNothingToRedo
	}
	next := c.redo[len(c.redo)-1]
	c.redo = c.redo[:len(c.redo)-1]
	c.undo = pushCapped(c.undo, c.swapGrid(next))
	return nil
}

// CanUndo reports whether Undo would succeed.
func (c *Circuit) CanUndo() bool { return len(c.undo) > 0 }

// CanRedo reports whether Redo would succeed.
func (c *Circuit) CanRedo() bool { return len(c.redo) > 0 }

// swapGrid installs g and returns the retired previous grid.
func (c *Circuit) swapGrid(g Grid) Grid {
	c.Retire()
	old := c.grid
	c.grid = g
	c.elaborate(c.ancestors())
	c.markDirty()
	return old
}

// Fix places el at p and marks the cell as fixed. It bypasses history and
// the fixed-cell check; levels use it for pre-placed parts.
func (c *Circuit) Fix(p Pos, el Element) {
	mustPos(p)
	c.retireCell(&c.grid[p.X][p.Y])
	c.grid[p.X][p.Y] = el
	c.blocked[p.X][p.Y] = true
	c.reelaborate(p)
	c.markDirty()
}

// SetBlocked marks or unmarks p as fixed.
func (c *Circuit) SetBlocked(p Pos, blocked bool) {
	mustPos(p)
	c.blocked[p.X][p.Y] = blocked
}

// Blocked reports whether p is fixed.
func (c *Circuit) Blocked(p Pos) bool {
	mustPos(p)
	return c.blocked[p.X][p.Y]
}

// ClearHistory drops both history stacks.
func (c *Circuit) ClearHistory() {
	c.undo = nil
	c.redo = nil
}
