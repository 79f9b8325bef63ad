package level

import (
	"fmt"
	"log/slog"

	"github.com/nvandessel/pneumatic/internal/circuit"
	"github.com/nvandessel/pneumatic/internal/document"
	"github.com/nvandessel/pneumatic/internal/pressure"
)

// LevelCount is the number of levels in a set.
const LevelCount = 10

// Set is the fixed, ordered collection of levels. It resolves sub-network
// references by level index.
type Set struct {
	levels [LevelCount]*Level
}

// NewSet builds a set from the built-in scripts. Levels without a script
// are sandboxes with every port and no sim points.
func NewSet() (*Set, error) {
	scripts, err := DefaultScripts()
	if err != nil {
		return nil, err
	}
	return NewSetFromScripts(scripts)
}

// NewSetFromScripts builds a set from scripts and resets every level.
func NewSetFromScripts(scripts []Script) (*Set, error) {
	s := &Set{}
	for _, sc := range scripts {
		if sc.Index < 0 || sc.Index >= LevelCount {
			return nil, fmt.Errorf("script for level %d: index out of range", sc.Index)
		}
		if s.levels[sc.Index] != nil {
			return nil, fmt.Errorf("script for level %d: duplicate", sc.Index)
		}
		l, err := sc.Build()
		if err != nil {
			return nil, err
		}
		s.levels[sc.Index] = l
	}
	for i := range s.levels {
		if s.levels[i] == nil {
			l := New(i)
			l.SetPorts(pressure.MaskAll)
			s.levels[i] = l
		}
	}
	s.Reset()
	return s, nil
}

// Level returns level i.
func (s *Set) Level(i int) (*Level, error) {
	if i < 0 || i >= LevelCount {
		return nil, fmt.Errorf("%w: %d", circuit.ErrUnknownLevel, i)
	}
	return s.levels[i], nil
}

// Levels returns every level in index order.
func (s *Set) Levels() []*Level {
	return append([]*Level(nil), s.levels[:]...)
}

// Template implements circuit.Resolver.
func (s *Set) Template(i int) (*circuit.Circuit, pressure.Mask, bool) {
	if i < 0 || i >= LevelCount || s.levels[i] == nil {
		return nil, 0, false
	}
	return s.levels[i].circuit, s.levels[i].ports, true
}

// SetLogger sets the logger of every level.
func (s *Set) SetLogger(logger *slog.Logger) {
	for _, l := range s.levels {
		l.SetLogger(logger)
	}
}

// Observe registers o on every level.
func (s *Set) Observe(o Observer) {
	for _, l := range s.levels {
		l.Observe(o)
	}
}

// Reset resets every level, elaborating circuits against the set.
func (s *Set) Reset() {
	for _, l := range s.levels {
		l.Reset(s)
	}
}

// RemoveCircles replaces every sub-network reference that makes some level
// contain itself with an empty cell. It returns how many were removed.
func (s *Set) RemoveCircles() int {
	removed := 0
	for m, l := range s.levels {
		removed += l.circuit.RemoveReferences(func(ref int) bool {
			return circuit.ContainsLevel(s, ref, m)
		})
	}
	return removed
}

// Propagate re-elaborates every level that embeds level i so the edits made
// to i reach their instances.
func (s *Set) Propagate(i int) {
	for m, l := range s.levels {
		if m != i && circuit.ContainsLevel(s, m, i) {
			l.circuit.Elaborate(s)
		}
	}
}

// Save returns the set's document: one entry per level holding its circuit.
func (s *Set) Save() document.Doc {
	list := make([]any, 0, LevelCount)
	for _, l := range s.levels {
		list = append(list, document.Doc{"circuit": l.circuit.Save()})
	}
	return document.Doc{"levels": list}
}

// Load builds a set from scripts and replaces each level's editable cells
// with the saved circuit. Missing entries keep their fresh circuit. Cyclic
// references are removed and every level is reset.
func Load(doc document.Doc, scripts []Script) (*Set, error) {
	s, err := NewSetFromScripts(scripts)
	if err != nil {
		return nil, err
	}
	for i, raw := range document.GetList(doc, "levels") {
		if i >= LevelCount {
			break
		}
		cd := document.GetMap(document.AsMap(raw), "circuit")
		if cd == nil {
			continue
		}
		c := s.levels[i].circuit
		if err := c.LoadGrid(cd); err != nil {
			return nil, fmt.Errorf("level %d: %w", i, err)
		}
		c.ClearHistory()
	}
	s.RemoveCircles()
	s.Reset()
	return s, nil
}
