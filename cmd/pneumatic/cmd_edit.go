package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvandessel/pneumatic/internal/circuit"
	"github.com/nvandessel/pneumatic/internal/pressure"
)

func newPlaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "place <pipe SHAPE | valve DIR | source DIR | sub LEVEL DIR | empty>",
		Short: "Place an element in a level's circuit",
		Long: `Place one element at --x/--y in a level of the current slot and save it.

Shapes name the directions a pipe connects (NS, NES, NS_WE, ALL, ...).
Directions are N, E, S or W. Sub-networks embed another level; placing a
level inside itself, directly or through other levels, is refused.

Examples:
  pneumatic place --level 2 --x 4 --y 4 pipe EW
  pneumatic place --level 1 --x 4 --y 2 valve E
  pneumatic place --level 9 --x 3 --y 4 sub 2 N`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			index, _ := cmd.Flags().GetInt("level")
			x, _ := cmd.Flags().GetInt("x")
			y, _ := cmd.Flags().GetInt("y")

			el, err := parseElement(args)
			if err != nil {
				return err
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			l, err := s.level(index)
			if err != nil {
				return err
			}
			p := circuit.Pos{X: x, Y: y}
			if err := placeElement(l.Circuit(), p, el); err != nil {
				return fmt.Errorf("cannot place %s at %v in level %d: %w", el.Kind, p, index, err)
			}
			if err := s.commit(cmd.Context(), index); err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"status":  "placed",
					"level":   index,
					"x":       x,
					"y":       y,
					"element": el.Save(),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Placed %s at %v in level %d\n", cellToken(el, false), p, index)
			return nil
		},
	}
	cmd.Flags().Int("level", 0, "Level to edit")
	cmd.Flags().Int("x", 0, "Column (0-8)")
	cmd.Flags().Int("y", 0, "Row (0-8)")
	cmd.MarkFlagRequired("x")
	cmd.MarkFlagRequired("y")
	return cmd
}

func newDrawCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draw <x,y> <x,y>...",
		Short: "Draw a pipe run through adjacent cells",
		Long: `Drag a pipe through a path of orthogonally adjacent cells. Each empty cell
becomes a pipe and existing pipes are extended toward their neighbours
on the path. Other elements are left as they are.

Example:
  pneumatic draw --level 0 4,0 4,1 4,2 5,2`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			index, _ := cmd.Flags().GetInt("level")

			path := make([]circuit.Pos, 0, len(args))
			for _, a := range args {
				p, err := parsePos(a)
				if err != nil {
					return err
				}
				path = append(path, p)
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			l, err := s.level(index)
			if err != nil {
				return err
			}
			if err := l.Circuit().DrawPipe(path); err != nil {
				return fmt.Errorf("cannot draw in level %d: %w", index, err)
			}
			if err := s.commit(cmd.Context(), index); err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"status": "drawn",
					"level":  index,
					"cells":  len(path),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Drew pipe through %d cells in level %d\n", len(path), index)
			return nil
		},
	}
	cmd.Flags().Int("level", 0, "Level to edit")
	return cmd
}

func newClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear one cell or a whole level",
		Long: `Empty the cell at --x/--y, or every editable cell of the level when no
position is given. Cells fixed by the level are kept.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			index, _ := cmd.Flags().GetInt("level")
			hasX, hasY := cmd.Flags().Changed("x"), cmd.Flags().Changed("y")
			if hasX != hasY {
				return fmt.Errorf("--x and --y must be given together")
			}
			x, _ := cmd.Flags().GetInt("x")
			y, _ := cmd.Flags().GetInt("y")

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

			cleared := 0
			if hasX {
				p := circuit.Pos{X: x, Y: y}
				if err := c.SetEmpty(p); err != nil {
					return fmt.Errorf("cannot clear %v in level %d: %w", p, index, err)
				}
				cleared = 1
			} else {
				var sel circuit.Selection
				for y := 0; y < circuit.GridSize; y++ {
					for x := 0; x < circuit.GridSize; x++ {
						p := circuit.Pos{X: x, Y: y}
						if el := c.At(p); !el.IsEmpty() && !c.Blocked(p) {
							sel.Add(p)
							cleared++
						}
					}
				}
				if cleared > 0 {
					if err := c.DeleteSelected(&sel); err != nil {
						return fmt.Errorf("cannot clear level %d: %w", index, err)
					}
				}
			}
			if err := s.commit(cmd.Context(), index); err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"status":  "cleared",
					"level":   index,
					"cleared": cleared,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cell(s) in level %d\n", cleared, index)
			return nil
		},
	}
	cmd.Flags().Int("level", 0, "Level to edit")
	cmd.Flags().Int("x", 0, "Column (0-8)")
	cmd.Flags().Int("y", 0, "Row (0-8)")
	return cmd
}

// parseElement reads an element from place arguments.
func parseElement(args []string) (circuit.Element, error) {
	want := map[string]int{"empty": 0, "pipe": 1, "valve": 1, "source": 1, "sub": 2}
	kind := strings.ToLower(args[0])
	n, ok := want[kind]
	if !ok {
		return circuit.Element{}, fmt.Errorf("unknown element %q (valid: pipe, valve, source, sub, empty)", args[0])
	}
	if len(args)-1 != n {
		return circuit.Element{}, fmt.Errorf("%s takes %d argument(s), got %d", kind, n, len(args)-1)
	}

	switch kind {
	case "pipe":
		sh, err := circuit.ParseShape(strings.ToUpper(args[1]))
		if err != nil {
			return circuit.Element{}, err
		}
		return circuit.Pipe(sh), nil
	case "valve", "source":
		d, err := pressure.ParseDirection(args[1])
		if err != nil {
			return circuit.Element{}, err
		}
		if kind == "valve" {
			return circuit.Valve(d), nil
		}
		return circuit.Source(d), nil
	case "sub":
		lv, err := strconv.Atoi(args[1])
		if err != nil || lv < 0 {
			return circuit.Element{}, fmt.Errorf("invalid level %q", args[1])
		}
		d, err := pressure.ParseDirection(args[2])
		if err != nil {
			return circuit.Element{}, err
		}
		return circuit.Subcircuit(lv, d), nil
	}
	return circuit.Empty(), nil
}

// placeElement applies el at p through the circuit's editing operations.
func placeElement(c *circuit.Circuit, p circuit.Pos, el circuit.Element) error {
	switch el.Kind {
	case circuit.KindPipe:
		return c.SetPipe(p, el.Shape)
	case circuit.KindValve:
		return c.SetValve(p, el.Dir)
	case circuit.KindSource:
		return c.SetSource(p, el.Dir)
	case circuit.KindSubcircuit:
		return c.SetSubcircuit(p, el.Level, el.Dir)
	}
	return c.SetEmpty(p)
}

// parsePos reads "x,y".
func parsePos(s string) (circuit.Pos, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return circuit.Pos{}, fmt.Errorf("invalid position %q (want x,y)", s)
	}
	x, errX := strconv.Atoi(strings.TrimSpace(xs))
	y, errY := strconv.Atoi(strings.TrimSpace(ys))
	if errX != nil || errY != nil {
		return circuit.Pos{}, fmt.Errorf("invalid position %q (want x,y)", s)
	}
	return circuit.Pos{X: x, Y: y}, nil
}
