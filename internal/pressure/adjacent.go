package pressure

import "fmt"

// Direction is a cardinal direction. The numeric order is clockwise from
// north and is relied upon by rotation.
type Direction uint8

const (
	North Direction = iota
	East
	South
	West
)

// Directions lists all directions in rotation order.
var Directions = [4]Direction{North, East, South, West}

var directionNames = [4]string{"N", "E", "S", "W"}

func (d Direction) String() string {
	if d > West {
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
	return directionNames[d]
}

// Valid reports whether d is one of the four cardinal directions.
func (d Direction) Valid() bool {
	return d <= West
}

// Opposite returns the direction facing d.
func (d Direction) Opposite() Direction {
	return (d + 2) & 3
}

// Bit returns the mask bit for d.
func (d Direction) Bit() Mask {
	if !d.Valid() {
		panic(fmt.Sprintf("pressure: invalid direction %d", uint8(d)))
	}
	return 1 << d
}

// ParseDirection accepts N, E, S, W (case-insensitive) or 0-3.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "N", "n", "0":
		return North, nil
	case "E", "e", "1":
		return East, nil
	case "S", "s", "2":
		return South, nil
	case "W", "w", "3":
		return West, nil
	}
	return 0, fmt.Errorf("invalid direction %q (valid: N, E, S, W)", s)
}

// Mask is a connectivity bitmask: N=1, E=2, S=4, W=8.
type Mask uint8

const (
	MaskNone Mask = 0
	MaskN    Mask = 1
	MaskE    Mask = 2
	MaskS    Mask = 4
	MaskW    Mask = 8
	MaskAll  Mask = MaskN | MaskE | MaskS | MaskW
)

// Has reports whether the mask includes d.
func (m Mask) Has(d Direction) bool {
	return m&d.Bit() != 0
}

// Count returns the number of directions in the mask.
func (m Mask) Count() int {
	n := 0
	for _, d := range Directions {
		if m.Has(d) {
			n++
		}
	}
	return n
}

func (m Mask) String() string {
	if m&MaskAll == 0 {
		return "-"
	}
	s := ""
	for _, d := range Directions {
		if m.Has(d) {
			s += d.String()
		}
	}
	return s
}

// ParseMask parses a set of direction letters such as "NES". "-" and the
// empty string are the empty mask.
func ParseMask(s string) (Mask, error) {
	var m Mask
	if s == "-" {
		return m, nil
	}
	for _, r := range s {
		d, err := ParseDirection(string(r))
		if err != nil {
			return 0, fmt.Errorf("invalid mask %q: %w", s, err)
		}
		m |= d.Bit()
	}
	return m, nil
}

// RotateMask maps a mask expressed in a frame rotated by d back to the
// world frame: local direction i is world direction (i+d)%4.
func RotateMask(m Mask, d Direction) Mask {
	m &= MaskAll
	return ((m << d) | (m >> (4 - d))) & MaskAll
}

// Adjacent is the view of the four nodes around a grid cell, indexed by
// Direction. Cells sharing an edge hold the same node pointer for it.
type Adjacent [4]*Node

// NewAdjacent builds a view from explicit nodes.
func NewAdjacent(n, e, s, w *Node) Adjacent {
	return Adjacent{n, e, s, w}
}

// Get returns the node on side d.
func (a Adjacent) Get(d Direction) *Node {
	if !d.Valid() {
		panic(fmt.Sprintf("pressure: invalid direction %d", uint8(d)))
	}
	return a[d]
}

// Rotate returns the view as seen by an element facing d: the rotated
// view's north is this view's d side, and so on clockwise.
func (a Adjacent) Rotate(d Direction) Adjacent {
	if !d.Valid() {
		panic(fmt.Sprintf("pressure: invalid direction %d", uint8(d)))
	}
	var r Adjacent
	for i := range r {
		r[i] = a[(i+int(d))&3]
	}
	return r
}
