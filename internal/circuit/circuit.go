// Package circuit implements the 9x9 pneumatic grid: element variants, the
// shared edge nodes between cells, editing with undo/redo, sub-network
// elaboration and the compiled fast path that steps the simulation.
package circuit

import (
	"fmt"

	"github.com/nvandessel/pneumatic/internal/pressure"
)

const (
	// GridSize is the number of cells along each side.
	GridSize = 9

	// EdgeSize is the number of edge nodes along each side, one more than
	// the cell count so the perimeter has its own nodes.
	EdgeSize = GridSize + 1

	// PortIndex is the cell row/column through which the circuit connects
	// to whatever surrounds it.
	PortIndex = GridSize / 2

	// MaxUndo caps each history stack.
	MaxUndo = 100
)

// Grid is the element array, indexed [x][y].
type Grid [GridSize][GridSize]Element

// Pos is a cell coordinate.
type Pos struct {
	X, Y int
}

// Valid reports whether p lies on the grid.
func (p Pos) Valid() bool {
	return p.X >= 0 && p.X < GridSize && p.Y >= 0 && p.Y < GridSize
}

// Step returns the neighbor of p in direction d. The result may be off grid.
func (p Pos) Step(d pressure.Direction) Pos {
	switch d {
	case pressure.North:
		return Pos{p.X, p.Y - 1}
	case pressure.East:
		return Pos{p.X + 1, p.Y}
	case pressure.South:
		return Pos{p.X, p.Y + 1}
	case pressure.West:
		return Pos{p.X - 1, p.Y}
	}
	panic(fmt.Sprintf("circuit: invalid direction %d", uint8(d)))
}

func (p Pos) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Resolver looks up the circuit a sub-network refers to. The returned
// circuit is a template; elaboration instantiates private copies of it.
type Resolver interface {
	Template(level int) (tmpl *Circuit, ports pressure.Mask, ok bool)
}

// Circuit is a grid of elements and the edge nodes they share.
//
// ns[x][y] is the node between cell (x,y-1)'s south side and cell (x,y)'s
// north side. ew[x][y] is the node between cell (x-1,y)'s east side and cell
// (x,y)'s west side. Neighboring cells therefore hold the same node.
type Circuit struct {
	grid    Grid
	blocked [GridSize][GridSize]bool

	ns [EdgeSize][EdgeSize]pressure.Node
	ew [EdgeSize][EdgeSize]pressure.Node

	// disconnected stands in for the ports a nested level does not use.
	disconnected pressure.Node

	undo []Grid
	redo []Grid

	batch      *Batch
	dirty      bool
	boundOuter pressure.Adjacent
	boundMask  pressure.Mask
	rebuilds   int

	resolver Resolver
	home     int
	parent   *Circuit
}

// New returns an empty circuit that belongs to no level.
func New() *Circuit {
	return NewForLevel(-1)
}

// NewForLevel returns an empty circuit that is the circuit of level home.
// Sub-network placements inside it are checked against home.
func NewForLevel(home int) *Circuit {
	c := &Circuit{home: home, dirty: true}
	for x := range c.grid {
		for y := range c.grid[x] {
			c.grid[x][y] = Empty()
		}
	}
	return c
}

// Home returns the level this circuit belongs to, or -1.
func (c *Circuit) Home() int {
	return c.home
}

// At returns a copy of the element at p.
func (c *Circuit) At(p Pos) Element {
	mustPos(p)
	return c.grid[p.X][p.Y]
}

// NS returns the north-south edge node at (x,y).
func (c *Circuit) NS(x, y int) *pressure.Node {
	mustEdge(x, y)
	return &c.ns[x][y]
}

// EW returns the east-west edge node at (x,y).
func (c *Circuit) EW(x, y int) *pressure.Node {
	mustEdge(x, y)
	return &c.ew[x][y]
}

// Port returns the circuit's own perimeter node for port d. It is only
// stepped while d is not bound to an outer node.
func (c *Circuit) Port(d pressure.Direction) *pressure.Node {
	switch d {
	case pressure.North:
		return &c.ns[PortIndex][0]
	case pressure.East:
		return &c.ew[GridSize][PortIndex]
	case pressure.South:
		return &c.ns[PortIndex][GridSize]
	case pressure.West:
		return &c.ew[0][PortIndex]
	}
	panic(fmt.Sprintf("circuit: invalid direction %d", uint8(d)))
}

func mustPos(p Pos) {
	if !p.Valid() {
		panic(fmt.Sprintf("circuit: position %v outside grid", p))
	}
}

func mustEdge(x, y int) {
	if x < 0 || x >= EdgeSize || y < 0 || y >= EdgeSize {
		panic(fmt.Sprintf("circuit: edge (%d,%d) outside grid", x, y))
	}
}

// adjacent returns the world-frame view of cell (x,y). Port edges listed in
// mask are replaced by the matching outer node.
func (c *Circuit) adjacent(x, y int, outer pressure.Adjacent, mask pressure.Mask) pressure.Adjacent {
	adj := pressure.NewAdjacent(&c.ns[x][y], &c.ew[x+1][y], &c.ns[x][y+1], &c.ew[x][y])
	if mask == pressure.MaskNone {
		return adj
	}
	if x == PortIndex && y == 0 && mask.Has(pressure.North) {
		adj[pressure.North] = outer[pressure.North]
	}
	if x == PortIndex && y == GridSize-1 && mask.Has(pressure.South) {
		adj[pressure.South] = outer[pressure.South]
	}
	if y == PortIndex && x == 0 && mask.Has(pressure.West) {
		adj[pressure.West] = outer[pressure.West]
	}
	if y == PortIndex && x == GridSize-1 && mask.Has(pressure.East) {
		adj[pressure.East] = outer[pressure.East]
	}
	return adj
}

// prep registers every element of c into b, then vents each perimeter node
// that something touched. Ports bound to outer nodes are not c's nodes and
// are left alone.
func (c *Circuit) prep(b *Batch, outer pressure.Adjacent, mask pressure.Mask) {
	for y := 0; y < GridSize; y++ {
		for x := 0; x < GridSize; x++ {
			el := &c.grid[x][y]
			if el.Kind == KindEmpty {
				continue
			}
			el.behavior().prep(el, c, c.adjacent(x, y, outer, mask), b)
		}
	}
	for i := 0; i < GridSize; i++ {
		for _, nd := range [4]*pressure.Node{&c.ns[i][0], &c.ns[i][GridSize], &c.ew[0][i], &c.ew[GridSize][i]} {
			if b.registered(nd) {
				b.vent(nd)
			}
		}
	}
}

// Step advances the circuit by one tick with outer bound to the ports in
// mask. The outer nodes are stepped by the caller. The compiled batch is
// rebuilt first if an edit or a different binding made it stale.
func (c *Circuit) Step(outer pressure.Adjacent, mask pressure.Mask) {
	for _, d := range pressure.Directions {
		if mask.Has(d) && outer[d] == nil {
			panic(fmt.Sprintf("circuit: port %v bound to nil node", d))
		}
	}
	if c.dirty || c.batch == nil || outer != c.boundOuter || mask != c.boundMask {
		c.rebuild(outer, mask)
	}
	c.batch.Evaluate()
}

// rebuild compiles the fast path for the given binding.
func (c *Circuit) rebuild(outer pressure.Adjacent, mask pressure.Mask) {
	b := newBatch(outer)
	c.prep(b, outer, mask)
	c.batch = b
	c.boundOuter = outer
	c.boundMask = mask
	c.rebuilds++
	c.clean()
}

func (c *Circuit) clean() {
	c.dirty = false
	for x := range c.grid {
		for y := range c.grid[x] {
			if inst := c.grid[x][y].instance; inst != nil {
				inst.clean()
			}
		}
	}
}

// markDirty invalidates the fast path of c and of every circuit that
// inlines c's operations.
func (c *Circuit) markDirty() {
	for cur := c; cur != nil; cur = cur.parent {
		cur.dirty = true
	}
}

// Dirty reports whether the next Step will recompile.
func (c *Circuit) Dirty() bool {
	return c.dirty || c.batch == nil
}

// Rebuilds returns how many times the fast path has been compiled.
func (c *Circuit) Rebuilds() int {
	return c.rebuilds
}

// Stats returns the bucket sizes of the current batch.
func (c *Circuit) Stats() BatchStats {
	if c.batch == nil {
		return BatchStats{}
	}
	return c.batch.Stats()
}

// EdgeMap is one flag per edge node.
type EdgeMap struct {
	NS [EdgeSize][EdgeSize]bool
	EW [EdgeSize][EdgeSize]bool
}

// Touched reports which of c's own edge nodes changed during the last step.
func (c *Circuit) Touched() EdgeMap {
	var m EdgeMap
	for x := 0; x < EdgeSize; x++ {
		for y := 0; y < EdgeSize; y++ {
			m.NS[x][y] = c.ns[x][y].Touched
			m.EW[x][y] = c.ew[x][y].Touched
		}
	}
	return m
}

// Reset zeroes all pressure and valve state, including nested circuits.
// The grid itself is unchanged.
func (c *Circuit) Reset() {
	for x := 0; x < EdgeSize; x++ {
		for y := 0; y < EdgeSize; y++ {
			c.ns[x][y].Reset()
			c.ew[x][y].Reset()
		}
	}
	c.disconnected.Reset()
	for x := range c.grid {
		for y := range c.grid[x] {
			el := &c.grid[x][y]
			el.Openness = 0
			if el.instance != nil {
				el.instance.Reset()
			}
		}
	}
}

// Clone returns an independent deep copy of c including pressure state.
// History is not copied. The copy is elaborated when c has a resolver.
func (c *Circuit) Clone() *Circuit {
	n := c.detachedCopy()
	if n.resolver != nil {
		n.Elaborate(n.resolver)
	}
	return n
}

// detachedCopy copies grid, blocked cells and state without elaborating.
func (c *Circuit) detachedCopy() *Circuit {
	return &Circuit{
		grid:         c.cloneGrid(),
		blocked:      c.blocked,
		ns:           c.ns,
		ew:           c.ew,
		disconnected: c.disconnected,
		dirty:        true,
		resolver:     c.resolver,
		home:         c.home,
	}
}

// cloneGrid returns a copy of the grid that shares nothing with c.
// Instances are dropped; elaboration recreates them.
func (c *Circuit) cloneGrid() Grid {
	g := c.grid
	for x := range g {
		for y := range g[x] {
			el := &g[x][y]
			el.instance = nil
			if el.custom != nil {
				el.custom = el.custom.detachedCopy()
			}
		}
	}
	return g
}

// Sum returns the total pressure held in c's own edge nodes.
func (c *Circuit) Sum() pressure.Pressure {
	var s pressure.Pressure
	for x := 0; x < EdgeSize; x++ {
		for y := 0; y < EdgeSize; y++ {
			s += c.ns[x][y].Value + c.ew[x][y].Value
		}
	}
	return s
}
