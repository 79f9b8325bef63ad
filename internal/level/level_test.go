package level

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nvandessel/pneumatic/internal/circuit"
	"github.com/nvandessel/pneumatic/internal/logging"
	"github.com/nvandessel/pneumatic/internal/pressure"
)

type countingObserver struct {
	ticks    int
	rebuilds int
	recorded []int
}

func (o *countingObserver) Advanced(_ *Level, ticks, rebuilds int) {
	o.ticks += ticks
	o.rebuilds += rebuilds
}

func (o *countingObserver) Recorded(_ *Level, index int, _ SimPoint) {
	o.recorded = append(o.recorded, index)
}

func pipeColumn(t *testing.T, c *circuit.Circuit) {
	t.Helper()
	path := make([]circuit.Pos, 0, circuit.GridSize)
	for y := 0; y < circuit.GridSize; y++ {
		path = append(path, circuit.Pos{X: circuit.PortIndex, Y: y})
	}
	if err := c.DrawPipe(path); err != nil {
		t.Fatalf("DrawPipe() error = %v", err)
	}
}

func TestAdvance_RecordsAndWraps(t *testing.T) {
	l := New(0)
	l.SetPorts(pressure.MaskN | pressure.MaskS)
	l.SetSubstepCount(10)
	l.AddSimPoint(NewSimPoint(Drive(100), Float(0), Float(0), Float(0)), 1)
	l.AddSimPoint(NewSimPoint(Drive(0), Float(0), Float(0), Float(0)), 1)
	obs := &countingObserver{}
	l.Observe(obs)

	l.Advance(9)
	if l.SimPointIndex() != 0 || l.SubstepIndex() != 9 {
		t.Fatalf("after 9 ticks: point %d substep %d", l.SimPointIndex(), l.SubstepIndex())
	}
	l.Advance(1)
	if l.SimPointIndex() != 1 || l.SubstepIndex() != 0 {
		t.Fatalf("after 10 ticks: point %d substep %d", l.SimPointIndex(), l.SubstepIndex())
	}
	pts := l.SimPoints()
	if !pts[0][pressure.North].Observed || pts[1][pressure.North].Observed {
		t.Error("wrong points observed")
	}
	if pts[0][pressure.North].Recorded == 0 {
		t.Error("driven port recorded 0%")
	}

	l.Advance(10)
	if l.SimPointIndex() != 0 || l.Passes() != 1 {
		t.Errorf("after a pass: point %d passes %d", l.SimPointIndex(), l.Passes())
	}
	if obs.ticks != 20 || len(obs.recorded) != 2 || obs.recorded[1] != 1 {
		t.Errorf("observer saw ticks=%d recorded=%v", obs.ticks, obs.recorded)
	}
	if obs.rebuilds != 1 {
		t.Errorf("observer saw %d rebuilds, want 1", obs.rebuilds)
	}
}

func TestAdvance_DrivenPortConverges(t *testing.T) {
	l := New(0)
	l.SetPorts(pressure.MaskN)
	l.AddSimPoint(NewSimPoint(Drive(60), Float(0), Float(0), Float(0)), 1)
	l.Advance(100)
	if got := pressure.Percent(l.Boundary(pressure.North).Value); got != 60 {
		t.Errorf("driven port at %d%%, want 60", got)
	}
	if l.Boundary(pressure.East).Value != 0 {
		t.Error("floating port moved")
	}
}

func TestAdvance_NoScriptFloats(t *testing.T) {
	l := New(8)
	l.SetPorts(pressure.MaskAll)
	l.Advance(50)
	for _, d := range pressure.Directions {
		if l.Boundary(d).Value != 0 {
			t.Errorf("port %v = %d, want 0", d, l.Boundary(d).Value)
		}
	}
	if l.SimPointIndex() != 0 || l.Passes() != 0 {
		t.Error("level without script advanced its script")
	}
	if _, ok := l.Score(); ok {
		t.Error("Score() reported ok without observations")
	}
}

func TestAddSimPoint_Overflow(t *testing.T) {
	l := New(0)
	l.AddSimPoint(SimPoint{}, MaxSimPoints)
	defer func() {
		if recover() == nil {
			t.Error("expected panic past MaxSimPoints")
		}
	}()
	l.AddSimPoint(SimPoint{}, 1)
}

func TestLevel_EndToEnd(t *testing.T) {
	l := New(0)
	l.SetPorts(pressure.MaskN | pressure.MaskS)
	l.AddSimPoint(NewSimPoint(Drive(100), Float(0), Float(100), Float(0)), 1)
	pipeColumn(t, l.Circuit())

	l.RunPasses(1)
	pts := l.SimPoints()
	if got := pts[0][pressure.South].Recorded; got < 99 {
		t.Errorf("south boundary reached %d%%, want ~100", got)
	}
	score, ok := l.Score()
	if !ok || score < 99 {
		t.Errorf("Score() = %d, %v", score, ok)
	}
	if l.Passes() != 1 || l.SimPointIndex() != 0 {
		t.Errorf("RunPasses(1): passes %d point %d", l.Passes(), l.SimPointIndex())
	}
}

func TestLevel_FixedSourceFeedsPipe(t *testing.T) {
	sc := Script{
		Index:  3,
		Ports:  "NS",
		Points: []string{"F0 F0 F100 F0"},
		Fixed: []FixedPlace{
			{X: circuit.PortIndex, Y: 0, Element: map[string]any{"type": "source", "dir": 2}},
		},
	}
	l, err := sc.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	c := l.Circuit()
	if !c.Blocked(circuit.Pos{X: circuit.PortIndex, Y: 0}) {
		t.Fatal("fixed element not blocked")
	}
	path := []circuit.Pos{}
	for y := 1; y < circuit.GridSize; y++ {
		path = append(path, circuit.Pos{X: circuit.PortIndex, Y: y})
	}
	if err := c.DrawPipe(path); err != nil {
		t.Fatalf("DrawPipe() error = %v", err)
	}

	l.RunPasses(1)
	score, ok := l.Score()
	if !ok || score != 100 {
		t.Errorf("Score() = %d, %v, want 100", score, ok)
	}
}

func TestLevel_Reset(t *testing.T) {
	l := New(0)
	l.SetPorts(pressure.MaskN | pressure.MaskS)
	l.SetSubstepCount(5)
	l.AddSimPoint(NewSimPoint(Drive(100), Float(0), Float(100), Float(0)), 2)
	pipeColumn(t, l.Circuit())
	l.Advance(12)

	var buf bytes.Buffer
	l.SetLogger(logging.NewLogger("info", &buf))
	l.Reset(nil)

	if l.SimPointIndex() != 0 || l.SubstepIndex() != 0 || l.Passes() != 0 {
		t.Error("indices not reset")
	}
	if l.Boundary(pressure.North).Value != 0 || l.Circuit().Sum() != 0 {
		t.Error("pressure not reset")
	}
	for _, sp := range l.SimPoints() {
		for _, v := range sp {
			if v.Observed {
				t.Fatal("recordings not cleared")
			}
		}
	}
	if !strings.Contains(buf.String(), "level reset") {
		t.Errorf("reset not logged: %q", buf.String())
	}
}

func TestScore(t *testing.T) {
	l := New(0)
	l.SetPorts(pressure.MaskE | pressure.MaskW)
	l.points = []SimPoint{
		NewSimPoint(Float(0), Float(50), Float(0), Drive(50)),
		NewSimPoint(Float(0), Float(100), Float(0), Drive(100)),
	}
	l.points[0][pressure.East].SetRecorded(40)
	l.points[1][pressure.East].SetRecorded(100)
	// Driven, unconnected and unobserved ports do not count.
	l.points[0][pressure.West].SetRecorded(0)
	l.points[0][pressure.North].SetRecorded(90)

	score, ok := l.Score()
	if !ok || score != 95 {
		t.Errorf("Score() = %d, %v, want 95", score, ok)
	}
}

type traceSink struct {
	lines []logging.SimPoint
}

func (s *traceSink) LogSimPoint(e logging.SimPoint) { s.lines = append(s.lines, e) }

func TestTraceObserver(t *testing.T) {
	sink := &traceSink{}
	l := New(4)
	l.SetPorts(pressure.MaskN | pressure.MaskE)
	l.SetSubstepCount(1)
	l.AddSimPoint(NewSimPoint(Drive(20), Float(30), Float(0), Float(0)), 1)
	l.Observe(TraceObserver{Trace: sink})

	l.Advance(1)
	if len(sink.lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(sink.lines))
	}
	e := sink.lines[0]
	if e.Level != 4 || e.Index != 0 || e.Pass != 0 {
		t.Errorf("line = %+v", e)
	}
	if len(e.Expected) != 2 || e.Expected["E"] != 30 || e.Expected["N"] != 20 {
		t.Errorf("expected = %v", e.Expected)
	}
	if _, ok := e.Recorded["S"]; ok {
		t.Errorf("recorded includes port outside the mask: %v", e.Recorded)
	}
	if e.Score == nil {
		t.Error("score missing after a floating port was observed")
	}

	TraceObserver{}.Recorded(l, 0, SimPoint{})
}

func TestRemainingInPass(t *testing.T) {
	l := New(0)
	if got := l.RemainingInPass(); got != 0 {
		t.Errorf("RemainingInPass() without script = %d, want 0", got)
	}

	l.SetPorts(pressure.MaskE)
	l.SetSubstepCount(10)
	l.AddSimPoint(NewSimPoint(Float(0), Float(0), Float(0), Float(0)), 3)
	if got := l.RemainingInPass(); got != 30 {
		t.Errorf("RemainingInPass() at start = %d, want 30", got)
	}

	l.Advance(13)
	if got := l.RemainingInPass(); got != 17 {
		t.Errorf("RemainingInPass() after 13 ticks = %d, want 17", got)
	}

	l.Advance(l.RemainingInPass())
	if l.Passes() != 1 || l.SimPointIndex() != 0 || l.SubstepIndex() != 0 {
		t.Errorf("after pass: passes=%d point=%d substep=%d, want 1/0/0", l.Passes(), l.SimPointIndex(), l.SubstepIndex())
	}
	if got := l.RemainingInPass(); got != 30 {
		t.Errorf("RemainingInPass() after a pass = %d, want 30", got)
	}
}
