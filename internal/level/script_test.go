package level

import (
	"strings"
	"testing"

	"github.com/nvandessel/pneumatic/internal/pressure"
)

func TestParsePoint(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		want      SimPoint
		wantCount int
		wantErr   bool
	}{
		{
			name:      "drive and float",
			line:      "D100 F0 F50 d20",
			want:      NewSimPoint(Drive(100), Float(0), Float(50), Drive(20)),
			wantCount: 1,
		},
		{
			name:      "repeat",
			line:      "D0 D0 D0 D0 x3",
			want:      NewSimPoint(Drive(0), Drive(0), Drive(0), Drive(0)),
			wantCount: 3,
		},
		{name: "too few ports", line: "D0 D0 D0", wantErr: true},
		{name: "bad kind", line: "Q0 D0 D0 D0", wantErr: true},
		{name: "over 100", line: "D101 D0 D0 D0", wantErr: true},
		{name: "bad repeat", line: "D0 D0 D0 D0 x0", wantErr: true},
		{name: "bare letter", line: "D F0 F0 F0", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, count, err := ParsePoint(tt.line)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePoint() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got != tt.want || count != tt.wantCount {
				t.Errorf("ParsePoint() = %+v x%d, want %+v x%d", got, count, tt.want, tt.wantCount)
			}
		})
	}
}

func TestDefaultScripts(t *testing.T) {
	scripts, err := DefaultScripts()
	if err != nil {
		t.Fatalf("DefaultScripts() error = %v", err)
	}
	want := map[int]struct {
		ports    pressure.Mask
		substeps int
		points   int
	}{
		0: {pressure.MaskAll, 2000, 18},
		1: {pressure.MaskE | pressure.MaskS | pressure.MaskW, 3000, 9},
		2: {pressure.MaskE | pressure.MaskW, 5000, 16},
		4: {pressure.MaskN | pressure.MaskE | pressure.MaskS, 5000, 6},
		7: {pressure.MaskN | pressure.MaskE | pressure.MaskS, 5000, 15},
		9: {pressure.MaskAll, 2000, 0},
	}
	if len(scripts) != LevelCount {
		t.Fatalf("len(scripts) = %d, want %d", len(scripts), LevelCount)
	}
	for _, sc := range scripts {
		w, ok := want[sc.Index]
		if !ok {
			continue
		}
		l, err := sc.Build()
		if err != nil {
			t.Fatalf("level %d Build() error = %v", sc.Index, err)
		}
		if l.Ports() != w.ports || l.SubstepCount() != w.substeps || len(l.SimPoints()) != w.points {
			t.Errorf("level %d: ports %v substeps %d points %d, want %v %d %d",
				sc.Index, l.Ports(), l.SubstepCount(), len(l.SimPoints()), w.ports, w.substeps, w.points)
		}
	}
}

func TestScriptBuild_Errors(t *testing.T) {
	tests := []struct {
		name    string
		script  Script
		wantErr string
	}{
		{"bad ports", Script{Index: 1, Ports: "NX"}, "mask"},
		{"bad point", Script{Index: 1, Ports: "N", Points: []string{"D0"}}, "expected 4 ports"},
		{"too many points", Script{Index: 1, Ports: "N", Points: []string{"D0 D0 D0 D0 x129"}}, "sim points"},
		{"negative substeps", Script{Index: 1, Ports: "N", Substeps: -1}, "substeps"},
		{"fixed off grid", Script{Index: 1, Ports: "N", Fixed: []FixedPlace{{X: 9, Y: 0, Element: map[string]any{"type": "empty"}}}}, "outside grid"},
		{"fixed bad element", Script{Index: 1, Ports: "N", Fixed: []FixedPlace{{X: 1, Y: 1, Element: map[string]any{"type": "pump"}}}}, "unknown type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.script.Build()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Build() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseScripts_Invalid(t *testing.T) {
	if _, err := ParseScripts([]byte("levels: [")); err == nil {
		t.Error("expected YAML error")
	}
}
