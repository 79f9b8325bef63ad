package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/nvandessel/pneumatic/internal/chart"
	"github.com/nvandessel/pneumatic/internal/level"
	"github.com/nvandessel/pneumatic/internal/metrics"
	"github.com/nvandessel/pneumatic/internal/pressure"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate a level and print its recorded outputs",
		Long: `Play a level's script for a number of full passes and print, for each sim
point, the expected and observed percentage on every port.

Driven ports show D<value>. Floating ports show expected/observed.

Examples:
  pneumatic run --level 0
  pneumatic run --level 3 --passes 1 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			index, _ := cmd.Flags().GetInt("level")
			passes, _ := cmd.Flags().GetInt("passes")

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			l, err := s.level(index)
			if err != nil {
				return err
			}
			if passes <= 0 {
				passes = s.cfg.Simulation.MaxPasses
			}

			res, err := s.play(cmd.Context(), l, passes)
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(res)
			}
			printRun(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().Int("level", 0, "Level to run")
	cmd.Flags().Int("passes", 0, "Full script passes to play (default simulation.max_passes)")
	return cmd
}

func newPlotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Simulate a level and chart expected against observed values",
		Long: `Run a level like 'run' and render one line per port for the expected
percentages and one for the observed. The format follows the file extension.

Examples:
  pneumatic plot --level 2 --out level2.png
  pneumatic plot --level 2 --out level2.svg --passes 1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			index, _ := cmd.Flags().GetInt("level")
			passes, _ := cmd.Flags().GetInt("passes")
			out, _ := cmd.Flags().GetString("out")

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			l, err := s.level(index)
			if err != nil {
				return err
			}
			if passes <= 0 {
				passes = s.cfg.Simulation.MaxPasses
			}
			res, err := s.play(cmd.Context(), l, passes)
			if err != nil {
				return err
			}
			if err := chart.RenderLevel(l, out); err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"level": index,
					"path":  out,
					"score": res.Score,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Chart for level %d written to %s\n", index, out)
			return nil
		},
	}
	cmd.Flags().Int("level", 0, "Level to plot")
	cmd.Flags().Int("passes", 0, "Full script passes to play (default simulation.max_passes)")
	cmd.Flags().String("out", "", "Output file (.png, .svg, .pdf)")
	cmd.MarkFlagRequired("out")
	return cmd
}

type portResult struct {
	Driven   bool   `json:"driven"`
	Expected int64  `json:"expected"`
	Observed *int64 `json:"observed,omitempty"`
}

type pointResult struct {
	Index int                   `json:"index"`
	Ports map[string]portResult `json:"ports"`
}

type runResult struct {
	Level  int           `json:"level"`
	Ports  string        `json:"ports"`
	Passes int           `json:"passes"`
	Ticks  int           `json:"ticks"`
	Score  *int          `json:"score,omitempty"`
	Points []pointResult `json:"points"`
}

// play runs l from reset for exactly passes full cycles, one frame of at
// most simulation.ticks_per_frame ticks at a time, stopping early if ctx is
// cancelled. Frames never run past the end of a pass. Metrics and traces
// are attached for the run.
func (s *session) play(ctx context.Context, l *level.Level, passes int) (*runResult, error) {
	if len(l.SimPoints()) == 0 {
		return nil, fmt.Errorf("level %d has no sim points to run", l.Index())
	}

	collector, err := metrics.NewCollector(prometheus.NewRegistry())
	if err != nil {
		return nil, err
	}
	l.Observe(collector)
	if s.trace != nil {
		l.Observe(level.TraceObserver{Trace: s.trace})
	}
	l.Reset(s.set)

	frame := s.cfg.Simulation.TicksPerFrame
	ticks := 0
	for l.Passes() < passes {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run interrupted after %d ticks: %w", ticks, err)
		}
		n := min(frame, l.RemainingInPass())
		l.Advance(n)
		ticks += n
	}
	s.logger.Info("run finished", "level", l.Index(), "passes", l.Passes(), "ticks", ticks)

	if path := s.cfg.Metrics.Textfile; path != "" {
		if err := collector.WriteTextfile(path); err != nil {
			return nil, err
		}
	}
	return summarize(l, ticks), nil
}

func summarize(l *level.Level, ticks int) *runResult {
	res := &runResult{
		Level:  l.Index(),
		Ports:  l.Ports().String(),
		Passes: l.Passes(),
		Ticks:  ticks,
	}
	if score, ok := l.Score(); ok {
		res.Score = &score
	}
	for i, sp := range l.SimPoints() {
		pr := pointResult{Index: i, Ports: make(map[string]portResult, 4)}
		for _, d := range pressure.Directions {
			if !l.Ports().Has(d) {
				continue
			}
			v := sp[d]
			port := portResult{Driven: !v.Floating(), Expected: int64(v.InValue)}
			if v.Observed {
				obs := int64(v.Recorded)
				port.Observed = &obs
			}
			pr.Ports[d.String()] = port
		}
		res.Points = append(res.Points, pr)
	}
	return res
}

func printRun(w io.Writer, res *runResult) {
	fmt.Fprintf(w, "Level %d  ports %s  passes %d  ticks %d\n\n", res.Level, res.Ports, res.Passes, res.Ticks)

	header := []string{fmt.Sprintf("%4s", "#")}
	for _, d := range pressure.Directions {
		header = append(header, fmt.Sprintf("%-9s", d.String()))
	}
	fmt.Fprintln(w, strings.TrimRight(strings.Join(header, "  "), " "))

	for _, pt := range res.Points {
		cols := []string{fmt.Sprintf("%4d", pt.Index)}
		for _, d := range pressure.Directions {
			p, ok := pt.Ports[d.String()]
			cols = append(cols, fmt.Sprintf("%-9s", portCell(p, ok)))
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(cols, "  "), " "))
	}

	fmt.Fprintln(w)
	if res.Score != nil {
		fmt.Fprintf(w, "Score: %d\n", *res.Score)
	} else {
		fmt.Fprintln(w, "Score: n/a")
	}
}

func portCell(p portResult, active bool) string {
	switch {
	case !active:
		return "."
	case p.Driven:
		return fmt.Sprintf("D%d", p.Expected)
	case p.Observed == nil:
		return fmt.Sprintf("%d/-", p.Expected)
	default:
		return fmt.Sprintf("%d/%d", p.Expected, *p.Observed)
	}
}
