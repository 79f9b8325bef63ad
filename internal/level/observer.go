package level

import (
	"github.com/nvandessel/pneumatic/internal/logging"
	"github.com/nvandessel/pneumatic/internal/pressure"
)

// SimPointLogger accepts one trace line per recorded sim point.
type SimPointLogger interface {
	LogSimPoint(e logging.SimPoint)
}

// TraceObserver writes one trace line per recorded sim point, covering the
// ports in the level's mask.
type TraceObserver struct {
	Trace SimPointLogger
}

// Advanced implements Observer.
func (t TraceObserver) Advanced(*Level, int, int) {}

// Recorded implements Observer.
func (t TraceObserver) Recorded(l *Level, index int, sp SimPoint) {
	if t.Trace == nil {
		return
	}
	e := logging.SimPoint{
		Level:    l.index,
		Index:    index,
		Pass:     l.passes,
		Recorded: make(map[string]int, 4),
		Expected: make(map[string]int, 4),
	}
	for _, d := range pressure.Directions {
		if !l.ports.Has(d) {
			continue
		}
		e.Recorded[d.String()] = int(sp[d].Recorded)
		e.Expected[d.String()] = int(sp[d].InValue)
	}
	if score, ok := l.Score(); ok {
		e.Score = &score
	}
	t.Trace.LogSimPoint(e)
}
