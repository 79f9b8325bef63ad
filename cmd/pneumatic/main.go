package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	notifySignals(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pneumatic",
		Short: "Pneumatic circuit puzzle simulator",
		Long: `pneumatic builds and simulates pressure circuits on a 9x9 grid.

Each level drives its boundary ports through a script of sim points and
records what the circuit produces. Circuits are edited in a save slot and
can embed other levels as sub-networks.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.pneumatic/config.yaml)")
	rootCmd.PersistentFlags().String("slot", "", "Save slot (overrides store.slot)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newLevelsCmd(),
		newShowCmd(),
		newRunCmd(),
		newPlotCmd(),
		newGraphCmd(),
		// Editing
		newPlaceCmd(),
		newDrawCmd(),
		newClearCmd(),
		// Persistence
		newSlotsCmd(),
		newExportCmd(),
		newImportCmd(),
		newConfigCmd(),
	)
	return rootCmd
}
