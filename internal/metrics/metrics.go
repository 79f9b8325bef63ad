// Package metrics exports simulation counters as Prometheus metrics.
package metrics

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nvandessel/pneumatic/internal/level"
)

// Collector bundles the simulation metrics. It implements level.Observer,
// so attaching it to a level or a set is enough to keep it current.
type Collector struct {
	gatherer prometheus.Gatherer

	Ticks     *prometheus.CounterVec
	Rebuilds  *prometheus.CounterVec
	SimPoints *prometheus.CounterVec
	Score     *prometheus.GaugeVec
}

var _ level.Observer = (*Collector)(nil)

// NewCollector registers the simulation metrics against reg, defaulting to
// the global Prometheus registry when nil. Metrics already registered with
// the same type are reused.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	ticks, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pneumatic_ticks_total",
		Help: "Simulation ticks advanced, labeled by level.",
	}, []string{"level"}), "pneumatic_ticks_total")
	if err != nil {
		return nil, err
	}
	rebuilds, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pneumatic_fastpath_rebuilds_total",
		Help: "Fast-path batch rebuilds caused by edits or rebinding, labeled by level.",
	}, []string{"level"}), "pneumatic_fastpath_rebuilds_total")
	if err != nil {
		return nil, err
	}
	points, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pneumatic_sim_points_recorded_total",
		Help: "Sim points whose boundary values were recorded, labeled by level.",
	}, []string{"level"}), "pneumatic_sim_points_recorded_total")
	if err != nil {
		return nil, err
	}
	score, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pneumatic_level_score",
		Help: "Current score of a level, 0-100, over its observed outputs.",
	}, []string{"level"}), "pneumatic_level_score")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:  gatherer,
		Ticks:     ticks,
		Rebuilds:  rebuilds,
		SimPoints: points,
		Score:     score,
	}, nil
}

// Advanced implements level.Observer.
func (c *Collector) Advanced(l *level.Level, ticks, rebuilds int) {
	if c == nil {
		return
	}
	lv := label(l)
	c.Ticks.WithLabelValues(lv).Add(float64(ticks))
	if rebuilds > 0 {
		c.Rebuilds.WithLabelValues(lv).Add(float64(rebuilds))
	}
}

// Recorded implements level.Observer.
func (c *Collector) Recorded(l *level.Level, index int, sp level.SimPoint) {
	if c == nil {
		return
	}
	lv := label(l)
	c.SimPoints.WithLabelValues(lv).Inc()
	if score, ok := l.Score(); ok {
		c.Score.WithLabelValues(lv).Set(float64(score))
	}
}

// WriteTextfile writes every gathered metric to path in the Prometheus text
// format, for the node exporter's textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.gatherer); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}

func label(l *level.Level) string {
	return strconv.Itoa(l.Index())
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
