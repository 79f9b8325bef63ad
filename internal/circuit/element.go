package circuit

import (
	"fmt"

	"github.com/nvandessel/pneumatic/internal/pressure"
)

// ValveResistance divides the gap between a valve's openness and its
// control differential each step.
const ValveResistance pressure.Pressure = 8

// Kind identifies an element variant.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindPipe
	KindValve
	KindSource
	KindSubcircuit

	kindCount
)

func (k Kind) String() string {
	if k >= kindCount {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
	return behaviors[k].name
}

// Element is one grid cell. It is a tagged variant: Kind selects which of
// the remaining fields are meaningful and which behavior applies.
//
// Elements are plain values so the grid can be snapshotted by copy. The
// only owned reference is custom, which snapshots deep-copy.
type Element struct {
	Kind Kind

	// Shape is the pipe's connection pattern.
	Shape Shape

	// Dir rotates valves and sub-networks and orients sources.
	Dir pressure.Direction

	// Openness is a valve's current opening, 0 to pressure.Full.
	Openness pressure.Pressure

	// Level is the level index a sub-network refers to.
	Level int

	// custom is a sub-network's private, independently editable circuit.
	custom *Circuit

	// instance is the circuit simulated for a sub-network, resolved at
	// elaboration. For customized elements it is custom itself.
	instance *Circuit

	// ports is the referenced level's connection mask in the element's
	// own frame, resolved at elaboration.
	ports pressure.Mask
}

// Empty returns an empty cell.
func Empty() Element {
	return Element{Kind: KindEmpty}
}

// Pipe returns a pipe of the given shape.
func Pipe(sh Shape) Element {
	if !sh.Valid() {
		panic(fmt.Sprintf("circuit: invalid pipe shape %d", uint8(sh)))
	}
	return Element{Kind: KindPipe, Shape: sh}
}

// Valve returns a valve facing d.
func Valve(d pressure.Direction) Element {
	mustDirection(d)
	return Element{Kind: KindValve, Dir: d}
}

// Source returns a source facing d.
func Source(d pressure.Direction) Element {
	mustDirection(d)
	return Element{Kind: KindSource, Dir: d}
}

// Subcircuit returns an unelaborated reference to level, rotated by d.
func Subcircuit(level int, d pressure.Direction) Element {
	mustDirection(d)
	return Element{Kind: KindSubcircuit, Level: level, Dir: d}
}

func mustDirection(d pressure.Direction) {
	if !d.Valid() {
		panic(fmt.Sprintf("circuit: invalid direction %d", uint8(d)))
	}
}

// IsEmpty reports whether placing over e never needs removing anything.
func (el Element) IsEmpty() bool {
	return el.Kind == KindEmpty
}

// Connections returns the world-frame directions e touches.
func (el Element) Connections() pressure.Mask {
	return el.behavior().connections(&el)
}

// Customized reports whether a sub-network owns a private copy.
func (el Element) Customized() bool {
	return el.Kind == KindSubcircuit && el.custom != nil
}

// Instance returns the circuit simulated for a sub-network, or nil when the
// element is not an elaborated sub-network.
func (el Element) Instance() *Circuit {
	return el.instance
}

func (el *Element) behavior() *behavior {
	if el.Kind >= kindCount {
		panic(fmt.Sprintf("circuit: invalid element kind %d", uint8(el.Kind)))
	}
	return &behaviors[el.Kind]
}

// behavior is the per-variant function table.
type behavior struct {
	name        string
	connections func(el *Element) pressure.Mask
	// prep registers the element's operations into b. adj is the world
	// frame view of the cell; owner is the circuit holding the element.
	prep func(el *Element, owner *Circuit, adj pressure.Adjacent, b *Batch)
}

var behaviors [kindCount]behavior

func init() {
	behaviors = [kindCount]behavior{
		KindEmpty: {
			name:        "empty",
			connections: func(*Element) pressure.Mask { return pressure.MaskNone },
			prep:        func(*Element, *Circuit, pressure.Adjacent, *Batch) {},
		},
		KindPipe: {
			name:        "pipe",
			connections: func(el *Element) pressure.Mask { return el.Shape.Connections() },
			prep:        prepPipe,
		},
		KindValve: {
			name:        "valve",
			connections: func(*Element) pressure.Mask { return pressure.MaskAll },
			prep:        prepValve,
		},
		KindSource: {
			name:        "source",
			connections: func(el *Element) pressure.Mask { return el.Dir.Bit() },
			prep:        prepSource,
		},
		KindSubcircuit: {
			name:        "subcircuit",
			connections: func(el *Element) pressure.Mask { return pressure.RotateMask(el.ports, el.Dir) },
			prep:        prepSubcircuit,
		},
	}
}

func prepPipe(el *Element, _ *Circuit, adj pressure.Adjacent, b *Batch) {
	for _, g := range el.Shape.info().groups {
		b.junction(g, adj)
	}
}

func prepValve(el *Element, _ *Circuit, adj pressure.Adjacent, b *Batch) {
	b.valve(el, adj)
}

func prepSource(el *Element, _ *Circuit, adj pressure.Adjacent, b *Batch) {
	b.source(adj[el.Dir])
}

// prepSubcircuit inlines the nested circuit's operations into b. Ports the
// referenced level does not use are bound to the owner's disconnected node.
func prepSubcircuit(el *Element, owner *Circuit, adj pressure.Adjacent, b *Batch) {
	if el.instance == nil {
		return
	}
	view := adj.Rotate(el.Dir)
	for _, d := range pressure.Directions {
		if !el.ports.Has(d) {
			view[d] = &owner.disconnected
		}
	}
	el.instance.prep(b, view, pressure.MaskAll)
	if b.registered(&owner.disconnected) {
		b.vent(&owner.disconnected)
	}
}
