package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nickmjain/PokerTracker-Hand-pruner/db"
	"github.com/nickmjain/PokerTracker-Hand-pruner/metrics"
	"github.com/nickmjain/PokerTracker-Hand-pruner/pruner"
	"github.com/nickmjain/PokerTracker-Hand-pruner/types"
	"github.com/nickmjain/PokerTracker-Hand-pruner/utils"
)

var pruneCmd = &cobra.Command{
	Use:          "prune",
	Short:        "Analyze and prune inactive hands",
	Long:         "Computes the set of hands whose players are all inactive and prints a pruning report. With --commit the eligible hands are deleted, otherwise the run is a dry run.",
	RunE:         runPrune,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(pruneCmd)

	pruneCmd.Flags().String("config", "", "Path to the config file, if empty defaults are used")
	pruneCmd.Flags().Uint("days", 0, "Inactivity threshold in days (N)")
	pruneCmd.Flags().Uint64("limit", 0, "Maximum number of eligible hands to process per hand type")
	pruneCmd.Flags().String("type", "", "Hand type(s) to process: cash, tourney or both")
	pruneCmd.Flags().Bool("commit", false, "Enable real deletion mode, default is dry run")
	pruneCmd.Flags().Uint("chunks", 0, "Number of date range chunks")
	pruneCmd.Flags().Uint("workers", 0, "Number of parallel chunk workers")
	pruneCmd.Flags().Uint64("batch-size", 0, "Deletion sub-batch size")
	pruneCmd.Flags().Bool("two-phase", false, "Stage eligible hand ids before deleting")
	pruneCmd.Flags().Bool("pg-parallel", false, "Request intra-query parallelism from postgres")
	pruneCmd.Flags().String("schedule", "", "Cron expression for recurring runs")
	pruneCmd.Flags().BoolP("debug", "d", false, "Enable debug logging")
}

func runPrune(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg := &types.Config{}
	err := utils.ReadConfig(cfg, configPath)
	if err != nil {
		return err
	}
	applyPruneFlags(cmd, cfg)
	utils.Config = cfg
	utils.InitLogger()

	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	logger := logrus.StandardLogger()
	logger.WithFields(logrus.Fields{
		"config":  configPath,
		"version": utils.GetBuildVersion(),
	}).Printf("starting")

	db.MustInitDB()
	defer db.MustCloseDB()

	if cfg.Metrics.Enabled {
		err = metrics.StartMetricsServer(logger.WithField("module", "metrics"), cfg.Metrics.Host, cfg.Metrics.Port)
		if err != nil {
			return err
		}
	}

	run, err := pruner.NewPruner(pruner.NewStore(), &cfg.Pruner)
	if err != nil {
		return err
	}

	ctx, cancel := utils.ShutdownContext(context.Background())
	defer cancel()

	if cfg.Pruner.Schedule != "" {
		return pruner.NewScheduler(run, os.Stdout).Run(ctx, cfg.Pruner.Schedule)
	}

	summary, err := run.Run(ctx)
	if summary != nil {
		summary.WriteReport(os.Stdout)
	}
	return err
}

// applyPruneFlags lets command line flags override config file values.
func applyPruneFlags(cmd *cobra.Command, cfg *types.Config) {
	if cmd.Flags().Changed("days") {
		cfg.Pruner.InactivityDays, _ = cmd.Flags().GetUint("days")
	}
	if cmd.Flags().Changed("limit") {
		cfg.Pruner.HandLimit, _ = cmd.Flags().GetUint64("limit")
	}
	if cmd.Flags().Changed("type") {
		cfg.Pruner.HandTypes, _ = cmd.Flags().GetString("type")
	}
	if cmd.Flags().Changed("commit") {
		cfg.Pruner.Commit, _ = cmd.Flags().GetBool("commit")
	}
	if cmd.Flags().Changed("chunks") {
		cfg.Pruner.Chunks, _ = cmd.Flags().GetUint("chunks")
	}
	if cmd.Flags().Changed("workers") {
		cfg.Pruner.Workers, _ = cmd.Flags().GetUint("workers")
	}
	if cmd.Flags().Changed("batch-size") {
		cfg.Pruner.BatchSize, _ = cmd.Flags().GetUint64("batch-size")
	}
	if cmd.Flags().Changed("two-phase") {
		cfg.Pruner.TwoPhase, _ = cmd.Flags().GetBool("two-phase")
	}
	if cmd.Flags().Changed("pg-parallel") {
		cfg.Pruner.PgParallel.Enabled, _ = cmd.Flags().GetBool("pg-parallel")
	}
	if cmd.Flags().Changed("schedule") {
		cfg.Pruner.Schedule, _ = cmd.Flags().GetString("schedule")
	}
}
