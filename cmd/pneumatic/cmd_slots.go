package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/pneumatic/internal/store"
)

func newSlotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "List save slots",
		Long: `List the save slots in the store. Each slot holds one edited level set;
select a slot for other commands with --slot.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			slots, err := st.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list slots: %w", err)
			}

			if jsonOut {
				if slots == nil {
					slots = []store.SlotInfo{}
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"store": cfg.Store.Path,
					"slots": slots,
				})
			}

			out := cmd.OutOrStdout()
			if len(slots) == 0 {
				fmt.Fprintf(out, "No slots in %s\n", cfg.Store.Path)
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SLOT\tSIZE\tUPDATED\tHASH")
			for _, s := range slots {
				marker := ""
				if s.Name == cfg.Store.Slot {
					marker = " *"
				}
				fmt.Fprintf(tw, "%s%s\t%d\t%s\t%s\n", s.Name, marker, s.Size,
					s.UpdatedAt.Local().Format(time.DateTime), shortHash(s.ContentHash))
			}
			return tw.Flush()
		},
	}
	cmd.AddCommand(newSlotsDeleteCmd())
	return cmd
}

func newSlotsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a save slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			name := args[0]

			_, st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			existing, err := st.Load(cmd.Context(), name)
			if err != nil {
				return fmt.Errorf("failed to load slot %s: %w", name, err)
			}
			if existing == nil {
				return fmt.Errorf("slot not found: %s", name)
			}
			if err := st.Delete(cmd.Context(), name); err != nil {
				return fmt.Errorf("failed to delete slot %s: %w", name, err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"status": "deleted",
					"slot":   name,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted slot %s\n", name)
			return nil
		},
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
