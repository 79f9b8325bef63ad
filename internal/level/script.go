package level

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/pneumatic/internal/circuit"
	"github.com/nvandessel/pneumatic/internal/pressure"
)

//go:embed scripts.yaml
var defaultScripts []byte

// Script is the static description of one level.
type Script struct {
	Index    int          `yaml:"index" json:"index"`
	Ports    string       `yaml:"ports" json:"ports"`
	Substeps int          `yaml:"substeps" json:"substeps"`
	Points   []string     `yaml:"points" json:"points"`
	Fixed    []FixedPlace `yaml:"fixed,omitempty" json:"fixed,omitempty"`
}

// FixedPlace is an element the level places and locks before play.
type FixedPlace struct {
	X       int            `yaml:"x" json:"x"`
	Y       int            `yaml:"y" json:"y"`
	Element map[string]any `yaml:"element" json:"element"`
}

type scriptFile struct {
	Levels []Script `yaml:"levels"`
}

// DefaultScripts returns the built-in level scripts.
func DefaultScripts() ([]Script, error) {
	return ParseScripts(defaultScripts)
}

// ParseScripts decodes a YAML scripts file.
func ParseScripts(data []byte) ([]Script, error) {
	var f scriptFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing level scripts: %w", err)
	}
	return f.Levels, nil
}

// ParsePoint parses one script line: four port tokens in N E S W order and
// an optional repeat count. "D40" drives a port to 40% and expects 40%;
// "F40" floats it and expects 40%. "x3" repeats the point three times.
func ParsePoint(line string) (SimPoint, int, error) {
	fields := strings.Fields(line)
	count := 1
	if len(fields) == 5 && strings.HasPrefix(fields[4], "x") {
		n, err := strconv.Atoi(fields[4][1:])
		if err != nil || n <= 0 {
			return SimPoint{}, 0, fmt.Errorf("sim point %q: invalid repeat %q", line, fields[4])
		}
		count = n
		fields = fields[:4]
	}
	if len(fields) != 4 {
		return SimPoint{}, 0, fmt.Errorf("sim point %q: expected 4 ports, got %d", line, len(fields))
	}
	var sp SimPoint
	for d, tok := range fields {
		v, err := parsePort(tok)
		if err != nil {
			return SimPoint{}, 0, fmt.Errorf("sim point %q: %w", line, err)
		}
		sp[d] = v
	}
	return sp, count, nil
}

func parsePort(tok string) (IOValue, error) {
	if len(tok) < 2 {
		return IOValue{}, fmt.Errorf("invalid port %q", tok)
	}
	n, err := strconv.Atoi(tok[1:])
	if err != nil || n < 0 || n > 100 {
		return IOValue{}, fmt.Errorf("invalid port value %q", tok)
	}
	p := pressure.Pressure(n)
	switch tok[0] {
	case 'D', 'd':
		return Drive(p), nil
	case 'F', 'f':
		return Float(p), nil
	}
	return IOValue{}, fmt.Errorf("invalid port kind %q (valid: D, F)", tok)
}

// Build constructs the level the script describes with an empty circuit.
func (s Script) Build() (*Level, error) {
	l := New(s.Index)
	ports, err := pressure.ParseMask(s.Ports)
	if err != nil {
		return nil, fmt.Errorf("level %d: %w", s.Index, err)
	}
	l.SetPorts(ports)
	if s.Substeps < 0 {
		return nil, fmt.Errorf("level %d: negative substeps %d", s.Index, s.Substeps)
	}
	if s.Substeps > 0 {
		l.SetSubstepCount(s.Substeps)
	}

	total := 0
	for _, line := range s.Points {
		sp, count, err := ParsePoint(line)
		if err != nil {
			return nil, fmt.Errorf("level %d: %w", s.Index, err)
		}
		total += count
		if total > MaxSimPoints {
			return nil, fmt.Errorf("level %d: more than %d sim points", s.Index, MaxSimPoints)
		}
		l.AddSimPoint(sp, count)
	}

	for _, fp := range s.Fixed {
		p := circuit.Pos{X: fp.X, Y: fp.Y}
		if !p.Valid() {
			return nil, fmt.Errorf("level %d: fixed element at %v: %w", s.Index, p, circuit.ErrOutOfBounds)
		}
		el, err := circuit.LoadElement(fp.Element)
		if err != nil {
			return nil, fmt.Errorf("level %d: fixed element at %v: %w", s.Index, p, err)
		}
		l.circuit.Fix(p, el)
	}
	return l, nil
}
