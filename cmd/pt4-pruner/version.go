package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nickmjain/PokerTracker-Hand-pruner/utils"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the pruner version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pt4-pruner %s\n", utils.GetBuildVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
