package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nvandessel/pneumatic/internal/visualization"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Visualize which levels embed which",
		Long: `Output the sub-network graph of the current slot in DOT (Graphviz) or JSON
format. An edge from A to B means level A uses level B as a sub-network.

Examples:
  pneumatic graph | dot -Tpng -o levels.png
  pneumatic graph --format json --output graph.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				format = string(visualization.FormatJSON)
			}
			f, err := visualization.ParseFormat(format)
			if err != nil {
				return err
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			g := visualization.Build(s.set)

			w := cmd.OutOrStdout()
			if output != "" {
				if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
					return fmt.Errorf("create output dir: %w", err)
				}
				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer file.Close()
				w = file
			}

			switch f {
			case visualization.FormatJSON:
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				if err := enc.Encode(g); err != nil {
					return fmt.Errorf("encode JSON: %w", err)
				}
			default:
				fmt.Fprint(w, visualization.RenderDOT(g))
			}

			if output != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Graph written to %s\n", output)
			}
			return nil
		},
	}
	cmd.Flags().String("format", "dot", "Output format: dot, json")
	cmd.Flags().StringP("output", "o", "", "Write to file instead of stdout")
	return cmd
}
