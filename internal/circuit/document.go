package circuit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/nvandessel/pneumatic/internal/document"
	"github.com/nvandessel/pneumatic/internal/pressure"
)

// Save returns the element's document form. Runtime state (valve openness,
// resolved instances) is not saved.
func (el Element) Save() document.Doc {
	d := document.Doc{"type": el.Kind.String()}
	switch el.Kind {
	case KindPipe:
		d["shape"] = el.Shape.String()
	case KindValve, KindSource:
		d["dir"] = int(el.Dir)
	case KindSubcircuit:
		d["dir"] = int(el.Dir)
		d["level"] = el.Level
		if el.custom != nil {
			d["custom"] = el.custom.Save()
		}
	}
	return d
}

// LoadElement reads an element written by Save.
func LoadElement(d document.Doc) (Element, error) {
	if d == nil {
		return Element{}, fmt.Errorf("element: missing document")
	}
	kind := document.GetString(d, "type", "")
	dir := pressure.Direction(document.GetInt(d, "dir", 0))
	switch kind {
	case "empty":
		return Empty(), nil
	case "pipe":
		sh, err := ParseShape(document.GetString(d, "shape", ""))
		if err != nil {
			return Element{}, fmt.Errorf("element: %w", err)
		}
		return Pipe(sh), nil
	}
	if !dir.Valid() {
		return Element{}, fmt.Errorf("element %s: invalid direction %d", kind, dir)
	}
	switch kind {
	case "valve":
		return Valve(dir), nil
	case "source":
		return Source(dir), nil
	case "subcircuit":
		level := document.GetInt(d, "level", -1)
		if level < 0 {
			return Element{}, fmt.Errorf("element subcircuit: missing level")
		}
		el := Subcircuit(level, dir)
		if cd := document.GetMap(d, "custom"); cd != nil {
			custom, err := LoadCircuit(cd, level)
			if err != nil {
				return Element{}, fmt.Errorf("element subcircuit custom: %w", err)
			}
			el.custom = custom
		}
		return el, nil
	}
	return Element{}, fmt.Errorf("element: unknown type %q", kind)
}

// Save returns the circuit's document form: its elements row by row.
// Fixed cells are written too; LoadGrid keeps the level's own.
func (c *Circuit) Save() document.Doc {
	elems := make([]any, 0, GridSize*GridSize)
	for y := 0; y < GridSize; y++ {
		for x := 0; x < GridSize; x++ {
			elems = append(elems, c.grid[x][y].Save())
		}
	}
	return document.Doc{"elements": elems}
}

// LoadCircuit reads a circuit written by Save as the circuit of level home.
// The result is not elaborated.
func LoadCircuit(d document.Doc, home int) (*Circuit, error) {
	elems := document.GetList(d, "elements")
	if len(elems) != GridSize*GridSize {
		return nil, fmt.Errorf("circuit: expected %d elements, got %d", GridSize*GridSize, len(elems))
	}
	c := NewForLevel(home)
	for i, raw := range elems {
		el, err := LoadElement(document.AsMap(raw))
		if err != nil {
			return nil, fmt.Errorf("circuit cell %d: %w", i, err)
		}
		c.grid[i%GridSize][i/GridSize] = el
	}
	return c, nil
}

// LoadGrid replaces c's non-fixed cells with those of d as a single
// history entry. Fixed cells keep their element.
func (c *Circuit) LoadGrid(d document.Doc) error {
	src, err := LoadCircuit(d, c.home)
	if err != nil {
		return err
	}
	c.pushUndo()
	c.Retire()
	for x := range c.grid {
		for y := range c.grid[x] {
			if !c.blocked[x][y] {
				c.grid[x][y] = src.grid[x][y]
			}
		}
	}
	c.elaborate(c.ancestors())
	c.markDirty()
	return nil
}

// Digest returns the hex SHA-256 of the circuit's JSON document. Two
// circuits with the same elements have the same digest.
func (c *Circuit) Digest() string {
	data, err := json.Marshal(c.Save())
	if err != nil {
		panic(fmt.Sprintf("circuit: marshal document: %v", err))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
