// Package visualization renders the sub-network graph of a level set.
package visualization

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nvandessel/pneumatic/internal/circuit"
	"github.com/nvandessel/pneumatic/internal/level"
)

// Format specifies the output format for graph rendering.
type Format string

const (
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
)

// ParseFormat accepts "dot" or "json".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatDOT, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown graph format %q (valid: dot, json)", s)
}

// Node is one level in the graph.
type Node struct {
	Level     int    `json:"level"`
	Ports     string `json:"ports"`
	SimPoints int    `json:"sim_points"`
	Cells     int    `json:"cells"`
}

// Edge is a level embedding another as sub-networks. Count is how many
// cells refer to Target; Customized is how many of them are private copies.
type Edge struct {
	Source     int `json:"source"`
	Target     int `json:"target"`
	Count      int `json:"count"`
	Customized int `json:"customized"`
}

// Graph is the reference graph of a level set.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Build walks every level's top-level grid and collects its sub-network
// references. Edges are ordered by source then target.
func Build(set *level.Set) *Graph {
	g := &Graph{Nodes: []Node{}, Edges: []Edge{}}
	for _, l := range set.Levels() {
		c := l.Circuit()
		n := Node{Level: l.Index(), Ports: l.Ports().String(), SimPoints: len(l.SimPoints())}

		edges := make(map[int]*Edge)
		for x := 0; x < circuit.GridSize; x++ {
			for y := 0; y < circuit.GridSize; y++ {
				el := c.At(circuit.Pos{X: x, Y: y})
				if el.IsEmpty() {
					continue
				}
				n.Cells++
				if el.Kind != circuit.KindSubcircuit {
					continue
				}
				e := edges[el.Level]
				if e == nil {
					e = &Edge{Source: l.Index(), Target: el.Level}
					edges[el.Level] = e
				}
				e.Count++
				if el.Customized() {
					e.Customized++
				}
			}
		}
		g.Nodes = append(g.Nodes, n)

		targets := make([]int, 0, len(edges))
		for t := range edges {
			targets = append(targets, t)
		}
		sort.Ints(targets)
		for _, t := range targets {
			g.Edges = append(g.Edges, *edges[t])
		}
	}
	return g
}

// RenderDOT produces a Graphviz DOT representation of the graph. Scripted
// levels are filled, sandboxes are left white. Edges made only of
// customized copies are dashed.
func RenderDOT(g *Graph) string {
	var b strings.Builder
	b.WriteString("digraph pneumatic {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, style=filled, fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n\n")

	for _, n := range g.Nodes {
		color := "steelblue"
		if n.SimPoints == 0 {
			color = "white"
		}
		label := fmt.Sprintf("level %d\\n%s", n.Level, n.Ports)
		b.WriteString(fmt.Sprintf("  %s [label=\"%s\", fillcolor=%q, tooltip=\"cells=%d\"];\n",
			nodeID(n.Level), label, color, n.Cells))
	}
	if len(g.Edges) > 0 {
		b.WriteString("\n")
	}
	for _, e := range g.Edges {
		style := "solid"
		if e.Customized == e.Count {
			style = "dashed"
		}
		b.WriteString(fmt.Sprintf("  %s -> %s [label=\"x%d\", style=%s];\n",
			nodeID(e.Source), nodeID(e.Target), e.Count, style))
	}

	b.WriteString("}\n")
	return b.String()
}

func nodeID(level int) string {
	return fmt.Sprintf("L%d", level)
}
