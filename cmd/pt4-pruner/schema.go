package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nickmjain/PokerTracker-Hand-pruner/db"
	"github.com/nickmjain/PokerTracker-Hand-pruner/types"
	"github.com/nickmjain/PokerTracker-Hand-pruner/utils"
)

var schemaCmd = &cobra.Command{
	Use:          "init-schema",
	Short:        "Create the PT4 hand tables in an empty database",
	Long:         "Applies the embedded hand table schema. Intended for local test databases, never run this against a live PT4 database.",
	RunE:         runInitSchema,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(schemaCmd)

	schemaCmd.Flags().String("config", "", "Path to the config file, if empty defaults are used")
}

func runInitSchema(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg := &types.Config{}
	err := utils.ReadConfig(cfg, configPath)
	if err != nil {
		return err
	}
	utils.Config = cfg
	utils.InitLogger()

	db.MustInitDB()
	defer db.MustCloseDB()

	err = db.ApplyEmbeddedDbSchema(-2)
	if err != nil {
		return err
	}

	logrus.Infof("hand table schema applied")
	return nil
}
