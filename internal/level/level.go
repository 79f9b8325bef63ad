// Package level drives circuits with scripted boundary conditions.
//
// A Level owns one circuit and four boundary nodes. Its script is a cyclic
// list of sim points; each point is held for a fixed number of ticks, after
// which the boundary values are recorded as observed outputs.
package level

import (
	"fmt"
	"log/slog"

	"github.com/nvandessel/pneumatic/internal/circuit"
	"github.com/nvandessel/pneumatic/internal/logging"
	"github.com/nvandessel/pneumatic/internal/pressure"
)

const (
	// MaxSimPoints bounds a level's script.
	MaxSimPoints = 128

	// DefaultSubsteps is how many ticks a sim point is held unless the
	// script says otherwise.
	DefaultSubsteps = 2000
)

// IOValue is one port's share of a sim point. Values are percentages.
type IOValue struct {
	// OutValue is the target the port is driven toward.
	OutValue pressure.Pressure
	// OutDrive is the drive strength, 0-100. Zero leaves the port floating.
	OutDrive pressure.Pressure
	// InValue is the value the port is expected to show.
	InValue pressure.Pressure

	Recorded pressure.Pressure
	Observed bool
}

// Drive forces a port to v percent and expects v back.
func Drive(v pressure.Pressure) IOValue {
	return IOValue{OutValue: v, OutDrive: 100, InValue: v}
}

// Float leaves a port undriven and expects v.
func Float(v pressure.Pressure) IOValue {
	return IOValue{InValue: v}
}

// Floating reports whether the port is an output at this point.
func (v IOValue) Floating() bool {
	return v.OutDrive == 0
}

// SetRecorded stores an observed percentage.
func (v *IOValue) SetRecorded(p pressure.Pressure) {
	v.Recorded = p
	v.Observed = true
}

// SimPoint is one step of a boundary script, indexed by direction.
type SimPoint [4]IOValue

// NewSimPoint builds a sim point from per-direction values.
func NewSimPoint(n, e, s, w IOValue) SimPoint {
	return SimPoint{n, e, s, w}
}

// Get returns the value for port d.
func (sp *SimPoint) Get(d pressure.Direction) *IOValue {
	if !d.Valid() {
		panic(fmt.Sprintf("level: invalid direction %d", uint8(d)))
	}
	return &sp[d]
}

// Record stores the boundary values as percentages.
func (sp *SimPoint) Record(values [4]pressure.Pressure) {
	for d := range sp {
		sp[d].SetRecorded(pressure.Percent(values[d]))
	}
}

// Observer receives simulation events. Implementations must not modify the
// level.
type Observer interface {
	// Advanced is called after Advance with the tick count and how many
	// fast-path rebuilds the ticks caused.
	Advanced(l *Level, ticks, rebuilds int)
	// Recorded is called when sim point index has been recorded.
	Recorded(l *Level, index int, sp SimPoint)
}

// Level is a circuit with scripted boundary ports.
type Level struct {
	index    int
	ports    pressure.Mask
	substeps int
	points   []SimPoint

	boundary [4]pressure.Node
	circuit  *circuit.Circuit

	pointIndex int
	substep    int
	passes     int

	logger    *slog.Logger
	observers []Observer
}

// New returns an empty level with no ports and no script.
func New(index int) *Level {
	return &Level{
		index:    index,
		substeps: DefaultSubsteps,
		circuit:  circuit.NewForLevel(index),
		logger:   logging.Discard(),
	}
}

// SetLogger sets the logger used for script events. Nil discards.
func (l *Level) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = logging.Discard()
	}
	l.logger = logger.With("level", l.index)
}

// Observe registers an observer.
func (l *Level) Observe(o Observer) {
	l.observers = append(l.observers, o)
}

// Index returns the level number.
func (l *Level) Index() int { return l.index }

// Ports returns the boundary ports the circuit is connected to.
func (l *Level) Ports() pressure.Mask { return l.ports }

// SetPorts sets the active boundary ports.
func (l *Level) SetPorts(m pressure.Mask) { l.ports = m & pressure.MaskAll }

// SubstepCount returns how many ticks each sim point is held.
func (l *Level) SubstepCount() int { return l.substeps }

// SetSubstepCount sets the hold time of each sim point.
func (l *Level) SetSubstepCount(n int) {
	if n <= 0 {
		panic(fmt.Sprintf("level: substep count must be positive, got %d", n))
	}
	l.substeps = n
}

// Circuit returns the level's circuit.
func (l *Level) Circuit() *circuit.Circuit { return l.circuit }

// Boundary returns the boundary node for port d.
func (l *Level) Boundary(d pressure.Direction) *pressure.Node {
	if !d.Valid() {
		panic(fmt.Sprintf("level: invalid direction %d", uint8(d)))
	}
	return &l.boundary[d]
}

// SimPoints returns a copy of the script with its recordings.
func (l *Level) SimPoints() []SimPoint {
	return append([]SimPoint(nil), l.points...)
}

// SimPointIndex returns the sim point currently being played.
func (l *Level) SimPointIndex() int { return l.pointIndex }

// SubstepIndex returns how many ticks of the current point have run.
func (l *Level) SubstepIndex() int { return l.substep }

// Passes returns how many full cycles of the script have completed.
func (l *Level) Passes() int { return l.passes }

// AddSimPoint appends count copies of p to the script. Exceeding
// MaxSimPoints is a fatal error in the level data.
func (l *Level) AddSimPoint(p SimPoint, count int) {
	for i := 0; i < count; i++ {
		if len(l.points) >= MaxSimPoints {
			panic(fmt.Sprintf("level %d: more than %d sim points", l.index, MaxSimPoints))
		}
		l.points = append(l.points, p)
	}
}

func (l *Level) outer() pressure.Adjacent {
	return pressure.NewAdjacent(&l.boundary[pressure.North], &l.boundary[pressure.East],
		&l.boundary[pressure.South], &l.boundary[pressure.West])
}

// Advance runs the level for ticks simulation steps. Each tick drives the
// boundary toward the current sim point, steps the circuit with the
// boundary as its outer view, and commits the boundary. When a point has
// been held for SubstepCount ticks the boundary is recorded and play moves
// to the next point, wrapping after the last.
//
// A level without a script leaves its ports floating and records nothing.
func (l *Level) Advance(ticks int) {
	outer := l.outer()
	before := l.circuit.Rebuilds()
	for i := 0; i < ticks; i++ {
		var sp *SimPoint
		if len(l.points) > 0 {
			sp = &l.points[l.pointIndex]
			for d := range l.boundary {
				l.boundary[d].Apply(sp[d].OutValue, sp[d].OutDrive)
			}
		}
		for d := range l.boundary {
			l.boundary[d].Pre()
		}
		l.circuit.Step(outer, l.ports)
		for d := range l.boundary {
			l.boundary[d].Post()
		}

		if sp == nil {
			continue
		}
		l.substep++
		if l.substep < l.substeps {
			continue
		}
		l.substep = 0
		l.record(sp)
	}
	for _, o := range l.observers {
		o.Advanced(l, ticks, l.circuit.Rebuilds()-before)
	}
}

func (l *Level) record(sp *SimPoint) {
	var values [4]pressure.Pressure
	for d := range l.boundary {
		values[d] = l.boundary[d].Value
	}
	sp.Record(values)
	idx := l.pointIndex
	l.logger.Debug("sim point recorded",
		"sim_point", idx,
		"n", sp[pressure.North].Recorded, "e", sp[pressure.East].Recorded,
		"s", sp[pressure.South].Recorded, "w", sp[pressure.West].Recorded)
	for _, o := range l.observers {
		o.Recorded(l, idx, *sp)
	}

	l.pointIndex++
	if l.pointIndex >= len(l.points) {
		l.pointIndex = 0
		l.passes++
	}
}

// RemainingInPass returns how many ticks are left until the current pass
// completes, or 0 for a level without a script.
func (l *Level) RemainingInPass() int {
	if len(l.points) == 0 {
		return 0
	}
	return (len(l.points)-l.pointIndex)*l.substeps - l.substep
}

// RunPasses advances until passes more full cycles have completed.
func (l *Level) RunPasses(passes int) {
	if len(l.points) == 0 {
		return
	}
	target := l.passes + passes
	for l.passes < target {
		l.Advance(l.RemainingInPass())
	}
}

// Reset returns the level to its initial state: play restarts at the first
// sim point, recordings are cleared, all pressure is zeroed and the circuit
// is elaborated again through r.
func (l *Level) Reset(r circuit.Resolver) {
	l.pointIndex = 0
	l.substep = 0
	l.passes = 0
	for d := range l.boundary {
		l.boundary[d].Reset()
	}
	for i := range l.points {
		for d := range l.points[i] {
			l.points[i][d].Recorded = 0
			l.points[i][d].Observed = false
		}
	}
	l.circuit.Reset()
	if r != nil {
		l.circuit.Elaborate(r)
	}
	l.logger.Info("level reset", "sim_points", len(l.points), "substeps", l.substeps, "ports", l.ports.String())
}

// Score grades the recorded outputs: for every observed floating port in
// the level's mask, 100 minus the distance between recorded and expected
// percent, floored at zero, averaged. ok is false when nothing has been
// observed yet.
func (l *Level) Score() (score int, ok bool) {
	total, n := 0, 0
	for i := range l.points {
		for _, d := range pressure.Directions {
			v := l.points[i][d]
			if !l.ports.Has(d) || !v.Observed || !v.Floating() {
				continue
			}
			diff := int(v.Recorded - v.InValue)
			if diff < 0 {
				diff = -diff
			}
			total += max(0, 100-diff)
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return total / n, true
}
