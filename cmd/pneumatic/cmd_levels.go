package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvandessel/pneumatic/internal/circuit"
	"github.com/nvandessel/pneumatic/internal/document"
	"github.com/nvandessel/pneumatic/internal/level"
)

type levelSummary struct {
	Index      int    `json:"index"`
	Ports      string `json:"ports"`
	SimPoints  int    `json:"sim_points"`
	Substeps   int    `json:"substeps"`
	Cells      int    `json:"cells"`
	References []int  `json:"references"`
}

func newLevelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "levels",
		Short: "List the levels of the current slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			var out []levelSummary
			for _, l := range s.set.Levels() {
				out = append(out, summarizeLevel(l))
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"slot":   s.cfg.Store.Slot,
					"levels": out,
				})
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Levels in slot %s:\n\n", s.cfg.Store.Slot)
			fmt.Fprintf(w, "%5s  %-5s  %6s  %8s  %5s  %s\n", "level", "ports", "points", "substeps", "cells", "uses")
			for _, ls := range out {
				uses := "-"
				if len(ls.References) > 0 {
					parts := make([]string, len(ls.References))
					for i, r := range ls.References {
						parts[i] = fmt.Sprint(r)
					}
					uses = strings.Join(parts, ",")
				}
				fmt.Fprintf(w, "%5d  %-5s  %6d  %8d  %5d  %s\n", ls.Index, ls.Ports, ls.SimPoints, ls.Substeps, ls.Cells, uses)
			}
			return nil
		},
	}
}

func summarizeLevel(l *level.Level) levelSummary {
	c := l.Circuit()
	ls := levelSummary{
		Index:      l.Index(),
		Ports:      l.Ports().String(),
		SimPoints:  len(l.SimPoints()),
		Substeps:   l.SubstepCount(),
		References: []int{},
	}
	for y := 0; y < circuit.GridSize; y++ {
		for x := 0; x < circuit.GridSize; x++ {
			if el := c.At(circuit.Pos{X: x, Y: y}); !el.IsEmpty() {
				ls.Cells++
			}
		}
	}
	for ref := range c.Levels() {
		ls.References = append(ls.References, ref)
	}
	sort.Ints(ls.References)
	return ls
}

type cellView struct {
	X       int          `json:"x"`
	Y       int          `json:"y"`
	Element document.Doc `json:"element"`
	Blocked bool         `json:"blocked,omitempty"`
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a level's circuit grid",
		Long: `Print the 9x9 grid of a level. Cells show:

  .        empty
  NS, NES  pipe shape (directions it connects)
  VN       valve facing N
  SE       source facing E
  L3W      sub-network of level 3 facing W (* when customized)
  #        prefix for cells fixed by the level

Ports sit at the middle of each side (row/column 4).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			index, _ := cmd.Flags().GetInt("level")

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			l, err := s.level(index)
			if err != nil {
				return err
			}
			c := l.Circuit()

			if jsonOut {
				var cells []cellView
				for y := 0; y < circuit.GridSize; y++ {
					for x := 0; x < circuit.GridSize; x++ {
						p := circuit.Pos{X: x, Y: y}
						el := c.At(p)
						if el.IsEmpty() && !c.Blocked(p) {
							continue
						}
						cells = append(cells, cellView{X: x, Y: y, Element: el.Save(), Blocked: c.Blocked(p)})
					}
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"level":  index,
					"ports":  l.Ports().String(),
					"digest": c.Digest(),
					"cells":  cells,
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Level %d  ports %s\n\n", index, l.Ports())
			printGrid(cmd.OutOrStdout(), c)
			return nil
		},
	}
	cmd.Flags().Int("level", 0, "Level to show")
	return cmd
}

func printGrid(w io.Writer, c *circuit.Circuit) {
	const width = 6
	var b strings.Builder
	b.WriteString("   ")
	for x := 0; x < circuit.GridSize; x++ {
		fmt.Fprintf(&b, "%-*d", width, x)
	}
	fmt.Fprintln(w, strings.TrimRight(b.String(), " "))

	for y := 0; y < circuit.GridSize; y++ {
		b.Reset()
		fmt.Fprintf(&b, "%d  ", y)
		for x := 0; x < circuit.GridSize; x++ {
			p := circuit.Pos{X: x, Y: y}
			fmt.Fprintf(&b, "%-*s", width, cellToken(c.At(p), c.Blocked(p)))
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}
}

func cellToken(el circuit.Element, blocked bool) string {
	var s string
	switch el.Kind {
	case circuit.KindPipe:
		s = el.Shape.String()
	case circuit.KindValve:
		s = "V" + el.Dir.String()
	case circuit.KindSource:
		s = "S" + el.Dir.String()
	case circuit.KindSubcircuit:
		s = fmt.Sprintf("L%d%s", el.Level, el.Dir)
		if el.Customized() {
			s += "*"
		}
	default:
		s = "."
	}
	if blocked {
		s = "#" + s
	}
	return s
}
