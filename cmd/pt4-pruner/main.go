package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pt4-pruner",
	Short: "PokerTracker 4 database pruner",
	Long:  "Bulk prune hands from a PokerTracker 4 database where all players of a hand have been inactive for a configurable period. Runs in dry-run mode unless --commit is given.",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
