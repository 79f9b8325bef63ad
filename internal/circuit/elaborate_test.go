package circuit

import (
	"errors"
	"testing"

	"github.com/nvandessel/pneumatic/internal/pressure"
)

type fakeResolver struct {
	circuits map[int]*Circuit
	ports    map[int]pressure.Mask
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{circuits: make(map[int]*Circuit), ports: make(map[int]pressure.Mask)}
}

func (r *fakeResolver) Template(level int) (*Circuit, pressure.Mask, bool) {
	c, ok := r.circuits[level]
	return c, r.ports[level], ok
}

// add registers an empty template for level and returns it.
func (r *fakeResolver) add(level int, ports pressure.Mask) *Circuit {
	c := NewForLevel(level)
	r.circuits[level] = c
	r.ports[level] = ports
	return c
}

// column fills the port column with north-south pipes.
func column(c *Circuit) {
	for y := 0; y < GridSize; y++ {
		c.grid[PortIndex][y] = Pipe(ShapeNS)
	}
}

func TestSetSubcircuit_Cycles(t *testing.T) {
	r := newFakeResolver()
	r.add(0, pressure.MaskAll)
	r.add(1, pressure.MaskAll).grid[1][1] = Subcircuit(0, pressure.North)
	r.add(2, pressure.MaskAll).grid[2][2] = Subcircuit(1, pressure.North)
	r.add(3, pressure.MaskAll)

	tests := []struct {
		name  string
		home  int
		level int
		want  error
	}{
		{"self", 0, 0, ErrCircular},
		{"direct", 0, 1, ErrCircular},
		{"transitive", 0, 2, ErrCircular},
		{"unrelated", 0, 3, nil},
		{"downward", 3, 2, nil},
		{"no home", -1, 2, nil},
		{"unknown", 3, 7, ErrUnknownLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewForLevel(tt.home)
			c.Elaborate(r)
			before := c.Digest()
			err := c.SetSubcircuit(Pos{4, 4}, tt.level, pressure.North)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("SetSubcircuit() error = %v", err)
				}
				if c.At(Pos{4, 4}).Instance() == nil {
					t.Error("placed reference not elaborated")
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if c.Digest() != before || c.CanUndo() {
				t.Error("refused placement changed the circuit")
			}
		})
	}
}

func TestSetSubcircuit_NestedAncestors(t *testing.T) {
	r := newFakeResolver()
	r.add(0, pressure.MaskAll)
	r.add(1, pressure.MaskAll)

	c := NewForLevel(0)
	c.Elaborate(r)
	mustSet(t, c.SetSubcircuit(Pos{1, 1}, 1, pressure.North))
	mustSet(t, c.Customize(Pos{1, 1}))
	custom, err := c.Custom(Pos{1, 1})
	if err != nil {
		t.Fatalf("Custom() error = %v", err)
	}
	if err := custom.SetSubcircuit(Pos{2, 2}, 0, pressure.North); !errors.Is(err, ErrCircular) {
		t.Errorf("placing the enclosing level inside a custom copy: error = %v", err)
	}
}

func TestContainsLevel(t *testing.T) {
	r := newFakeResolver()
	// Malformed data: 0 and 1 reference each other.
	r.add(0, pressure.MaskAll).grid[0][0] = Subcircuit(1, pressure.North)
	r.add(1, pressure.MaskAll).grid[0][0] = Subcircuit(0, pressure.North)
	r.add(2, pressure.MaskAll).grid[0][0] = Subcircuit(0, pressure.North)

	tests := []struct {
		from, target int
		want         bool
	}{
		{0, 1, true},
		{1, 1, true},
		{2, 1, true},
		{0, 2, false},
		{0, 5, false},
		{5, 0, false},
	}
	for _, tt := range tests {
		if got := ContainsLevel(r, tt.from, tt.target); got != tt.want {
			t.Errorf("ContainsLevel(%d, %d) = %v, want %v", tt.from, tt.target, got, tt.want)
		}
	}
}

func TestElaborate_MalformedCycleTerminates(t *testing.T) {
	r := newFakeResolver()
	r.add(0, pressure.MaskAll).grid[0][0] = Subcircuit(1, pressure.North)
	r.add(1, pressure.MaskAll).grid[0][0] = Subcircuit(0, pressure.North)

	c := New()
	c.grid[3][3] = Subcircuit(0, pressure.North)
	c.Elaborate(r)

	inst0 := c.At(Pos{3, 3}).Instance()
	if inst0 == nil {
		t.Fatal("level 0 not elaborated")
	}
	inst1 := inst0.At(Pos{0, 0}).Instance()
	if inst1 == nil {
		t.Fatal("level 1 not elaborated")
	}
	if inst1.At(Pos{0, 0}).Instance() != nil {
		t.Error("cycle back to level 0 was elaborated")
	}
	c.Step(noOuter, pressure.MaskNone)
}

func TestElaborate_PrivateInstances(t *testing.T) {
	r := newFakeResolver()
	tmpl := r.add(3, pressure.MaskN|pressure.MaskS)
	column(tmpl)

	c := New()
	c.Elaborate(r)
	mustSet(t, c.SetSubcircuit(Pos{1, 1}, 3, pressure.North))
	mustSet(t, c.SetSubcircuit(Pos{5, 5}, 3, pressure.East))

	a, b := c.At(Pos{1, 1}).Instance(), c.At(Pos{5, 5}).Instance()
	if a == nil || b == nil || a == b || a == tmpl || b == tmpl {
		t.Fatal("references must have distinct private instances")
	}
	if got := c.At(Pos{1, 1}).Connections(); got != pressure.MaskN|pressure.MaskS {
		t.Errorf("unrotated connections = %v", got)
	}
	if got := c.At(Pos{5, 5}).Connections(); got != pressure.MaskE|pressure.MaskW {
		t.Errorf("rotated connections = %v", got)
	}
}

func TestSubcircuit_CarriesPressure(t *testing.T) {
	r := newFakeResolver()
	column(r.add(3, pressure.MaskN|pressure.MaskS))

	c := New()
	c.Elaborate(r)
	mustSet(t, c.SetSubcircuit(Pos{4, 4}, 3, pressure.North))
	c.NS(4, 4).Value = pressure.Full
	inst := c.At(Pos{4, 4}).Instance()

	stepN(c, noOuter, pressure.MaskNone, 500)
	if c.NS(4, 5).Value == 0 {
		t.Error("no pressure reached the far side of the sub-network")
	}
	if got := c.Sum() + inst.Sum(); got != pressure.Full {
		t.Errorf("total pressure = %d, want %d", got, pressure.Full)
	}
	if inst.Port(pressure.North).Touched {
		t.Error("nested port used its own node while bound")
	}
}

func TestSubcircuit_DisconnectedPortsVent(t *testing.T) {
	r := newFakeResolver()
	tmpl := r.add(3, pressure.MaskN)
	// The pipe reaches the unused east port.
	for x := PortIndex; x < GridSize; x++ {
		tmpl.grid[x][PortIndex] = Pipe(ShapeEW)
	}

	c := New()
	c.Elaborate(r)
	mustSet(t, c.SetSubcircuit(Pos{4, 4}, 3, pressure.North))
	c.Step(noOuter, pressure.MaskNone)
	if c.Stats().Vented == 0 {
		t.Error("disconnected node was not vented")
	}
}

func TestCustomize(t *testing.T) {
	r := newFakeResolver()
	column(r.add(3, pressure.MaskN|pressure.MaskS))

	c := New()
	c.Elaborate(r)
	mustSet(t, c.SetSubcircuit(Pos{2, 2}, 3, pressure.North))
	mustSet(t, c.Customize(Pos{2, 2}))

	el := c.At(Pos{2, 2})
	custom, err := c.Custom(Pos{2, 2})
	if err != nil {
		t.Fatalf("Custom() error = %v", err)
	}
	if !el.Customized() || el.Instance() != custom {
		t.Error("customized element does not simulate its private copy")
	}

	c.Step(noOuter, pressure.MaskNone)
	mustSet(t, custom.SetValve(Pos{0, 0}, pressure.North))
	if !c.Dirty() {
		t.Error("editing the custom copy did not invalidate the enclosing circuit")
	}
	if _, ok := r.circuits[3].Levels()[0]; ok || r.circuits[3].At(Pos{0, 0}).Kind != KindEmpty {
		t.Error("custom edit leaked into the template")
	}

	mustSet(t, c.Undo())
	if c.At(Pos{2, 2}).Customized() {
		t.Error("Undo() kept the customization")
	}
	if _, err := c.Custom(Pos{2, 2}); !errors.Is(err, ErrNotSubcircuit) {
		t.Errorf("Custom() after undo error = %v", err)
	}
}

func TestCustomize_Unresolved(t *testing.T) {
	c := New()
	mustSet(t, c.SetSubcircuit(Pos{2, 2}, 3, pressure.North))
	if err := c.Customize(Pos{2, 2}); !errors.Is(err, ErrUnknownLevel) {
		t.Errorf("Customize() error = %v, want ErrUnknownLevel", err)
	}
}

func TestRemoveReferences(t *testing.T) {
	r := newFakeResolver()
	r.add(0, pressure.MaskAll)
	r.add(3, pressure.MaskAll)

	c := New()
	c.Elaborate(r)
	mustSet(t, c.SetSubcircuit(Pos{1, 1}, 0, pressure.North))
	mustSet(t, c.SetSubcircuit(Pos{2, 2}, 3, pressure.North))
	mustSet(t, c.Customize(Pos{2, 2}))
	custom, _ := c.Custom(Pos{2, 2})
	mustSet(t, custom.SetSubcircuit(Pos{0, 0}, 0, pressure.North))

	levels := c.Levels()
	if !levels[0] || !levels[3] || len(levels) != 2 {
		t.Errorf("Levels() = %v", levels)
	}

	n := c.RemoveReferences(func(level int) bool { return level == 0 })
	if n != 2 {
		t.Errorf("RemoveReferences() = %d, want 2", n)
	}
	if c.At(Pos{1, 1}).Kind != KindEmpty || custom.At(Pos{0, 0}).Kind != KindEmpty {
		t.Error("references not removed")
	}
	if c.At(Pos{2, 2}).Kind != KindSubcircuit {
		t.Error("unrelated reference removed")
	}
}

func TestRetire(t *testing.T) {
	r := newFakeResolver()
	r.add(3, pressure.MaskAll)

	c := New()
	c.Elaborate(r)
	mustSet(t, c.SetSubcircuit(Pos{1, 1}, 3, pressure.North))
	c.Retire()
	if c.At(Pos{1, 1}).Instance() != nil {
		t.Error("Retire() kept the instance")
	}
	c.Elaborate(r)
	if c.At(Pos{1, 1}).Instance() == nil {
		t.Error("Elaborate() after Retire() did not resolve")
	}
}
