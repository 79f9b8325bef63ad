package circuit

import (
	"fmt"
	"strings"

	"github.com/nvandessel/pneumatic/internal/pressure"
)

// Shape is a pipe's connection pattern.
type Shape uint8

const (
	ShapeNone Shape = iota
	ShapeNW
	ShapeNE
	ShapeNS
	ShapeEW
	ShapeES
	ShapeWS
	ShapeNWE
	ShapeNES
	ShapeNWS
	ShapeEWS
	// Crossing shapes carry two independent channels.
	ShapeNSWE
	ShapeNWES
	ShapeNEWS
	ShapeAll

	shapeCount
)

const (
	mN = pressure.MaskN
	mE = pressure.MaskE
	mS = pressure.MaskS
	mW = pressure.MaskW
)

type shapeInfo struct {
	name string
	// groups are the junctions this shape forms; each group equalizes
	// independently of the others.
	groups []pressure.Mask
}

var shapes = [shapeCount]shapeInfo{
	ShapeNone: {"NONE", nil},
	ShapeNW:   {"NW", []pressure.Mask{mN | mW}},
	ShapeNE:   {"NE", []pressure.Mask{mN | mE}},
	ShapeNS:   {"NS", []pressure.Mask{mN | mS}},
	ShapeEW:   {"EW", []pressure.Mask{mE | mW}},
	ShapeES:   {"ES", []pressure.Mask{mE | mS}},
	ShapeWS:   {"WS", []pressure.Mask{mW | mS}},
	ShapeNWE:  {"NWE", []pressure.Mask{mN | mW | mE}},
	ShapeNES:  {"NES", []pressure.Mask{mN | mE | mS}},
	ShapeNWS:  {"NWS", []pressure.Mask{mN | mW | mS}},
	ShapeEWS:  {"EWS", []pressure.Mask{mE | mW | mS}},
	ShapeNSWE: {"NS_WE", []pressure.Mask{mN | mS, mW | mE}},
	ShapeNWES: {"NW_ES", []pressure.Mask{mN | mW, mE | mS}},
	ShapeNEWS: {"NE_WS", []pressure.Mask{mN | mE, mW | mS}},
	ShapeAll:  {"ALL", []pressure.Mask{mN | mE | mS | mW}},
}

// Valid reports whether sh is a known shape.
func (sh Shape) Valid() bool {
	return sh < shapeCount
}

func (sh Shape) String() string {
	if !sh.Valid() {
		return fmt.Sprintf("Shape(%d)", uint8(sh))
	}
	return shapes[sh].name
}

// Connections returns the directions the shape touches.
func (sh Shape) Connections() pressure.Mask {
	var m pressure.Mask
	for _, g := range sh.info().groups {
		m |= g
	}
	return m
}

// Crossing reports whether the shape is two channels passing each other.
func (sh Shape) Crossing() bool {
	return len(sh.info().groups) > 1
}

// Extend adds direction d to the shape. Crossings already use every side
// and are returned unchanged.
func (sh Shape) Extend(d pressure.Direction) Shape {
	if sh.Crossing() {
		return sh
	}
	return ShapeForMask(sh.Connections() | d.Bit())
}

func (sh Shape) info() shapeInfo {
	if !sh.Valid() {
		panic(fmt.Sprintf("circuit: invalid pipe shape %d", uint8(sh)))
	}
	return shapes[sh]
}

// ShapeForMask returns the single-junction shape touching exactly m. A lone
// direction becomes a straight pipe along its axis.
func ShapeForMask(m pressure.Mask) Shape {
	m &= pressure.MaskAll
	switch m {
	case mN, mS:
		return ShapeNS
	case mE, mW:
		return ShapeEW
	case pressure.MaskAll:
		return ShapeAll
	case pressure.MaskNone:
		return ShapeNone
	}
	for sh := ShapeNW; sh <= ShapeEWS; sh++ {
		if sh.Connections() == m {
			return sh
		}
	}
	panic(fmt.Sprintf("circuit: no shape for mask %v", m))
}

// ParseShape accepts shape names case-insensitively, e.g. "ns" or "NS_WE".
func ParseShape(str string) (Shape, error) {
	up := strings.ToUpper(strings.TrimSpace(str))
	for sh := ShapeNone; sh < shapeCount; sh++ {
		if shapes[sh].name == up {
			return sh, nil
		}
	}
	return 0, fmt.Errorf("invalid pipe shape %q", str)
}
