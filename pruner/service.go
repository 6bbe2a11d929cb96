package pruner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nickmjain/PokerTracker-Hand-pruner/db"
	"github.com/nickmjain/PokerTracker-Hand-pruner/dbtypes"
	"github.com/nickmjain/PokerTracker-Hand-pruner/types"
)

// Pruner prunes hands whose players have all been inactive for the
// configured number of days. The run mode (dry-run or commit) is fixed at
// construction and cannot change while a run is in flight.
type Pruner struct {
	logger logrus.FieldLogger
	config *types.PrunerConfig
	store  Store
	mode   Mode

	// clock is overridable for tests
	clock func() time.Time
}

// NewPruner builds a pruner for the given store and run configuration.
func NewPruner(store Store, config *types.PrunerConfig) (*Pruner, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	mode := ModeDryRun
	if config.Commit {
		mode = ModeCommit
	}

	return &Pruner{
		logger: logrus.StandardLogger().WithField("module", "pruner"),
		config: config,
		store:  store,
		mode:   mode,
		clock:  time.Now,
	}, nil
}

// ValidateConfig checks the run parameters before anything touches the store.
func ValidateConfig(config *types.PrunerConfig) error {
	if config.InactivityDays < 1 {
		return fmt.Errorf("inactivity days must be a positive number")
	}
	if config.HandLimit < 1 {
		return fmt.Errorf("hand limit must be a positive number")
	}
	if config.Chunks < 1 {
		return fmt.Errorf("chunk count must be a positive number")
	}
	if config.Workers < 1 {
		return fmt.Errorf("worker count must be a positive number")
	}
	if config.BatchSize < 1 {
		return fmt.Errorf("batch size must be a positive number")
	}
	if config.ReportBucketDays < 1 {
		return fmt.Errorf("report bucket days must be a positive number")
	}
	if _, err := dbtypes.ParseHandTypes(config.HandTypes); err != nil {
		return err
	}
	return nil
}

// Mode returns the run mode of this pruner.
func (p *Pruner) Mode() Mode {
	return p.mode
}

// Run executes one full pruning run: resolve the active player set, plan
// chunks per hand type, execute them through the worker pool and aggregate
// the run summary. Setup errors abort the run before any deletion, chunk
// errors are surfaced in the summary and as a partial-run error.
func (p *Pruner) Run(ctx context.Context) (*RunSummary, error) {
	start := p.clock()
	handTypes, _ := dbtypes.ParseHandTypes(p.config.HandTypes)
	cutoff := start.AddDate(0, 0, -int(p.config.InactivityDays))
	runID := strings.ReplaceAll(uuid.New().String(), "-", "")[:12]

	p.logger.Infof("starting %v run %v: inactivity threshold %v days, cutoff %v, limit %v hands per type",
		p.mode, runID, p.config.InactivityDays, cutoff.Format("2006-01-02"), p.config.HandLimit)

	// The active player set is resolved once from the entire store and
	// frozen for the whole run. Failing here is fatal: pruning against a
	// partial set could delete hands of a still-active player.
	activeTable := db.ActivePlayersTable(runID)
	activePlayers, err := p.store.InitActivePlayers(ctx, activeTable, cutoff)
	if err != nil {
		return nil, fmt.Errorf("error resolving active players: %w", err)
	}
	defer func() {
		if err := p.store.DropActivePlayers(activeTable); err != nil {
			p.logger.WithError(err).Errorf("error dropping active players relation %v", activeTable)
		}
	}()

	p.logger.Infof("resolved %v active players", activePlayers)
	metricsActivePlayers.Set(float64(activePlayers))

	summary := newRunSummary(p.mode, start, cutoff, p.config.ReportBucketDays)
	summary.ActivePlayers = activePlayers

	env := &runEnv{
		store:       p.store,
		logger:      p.logger,
		runID:       runID,
		activeTable: activeTable,
		now:         start,
		bucketDays:  p.config.ReportBucketDays,
		batchSize:   p.config.BatchSize,
		twoPhase:    p.config.TwoPhase,
		parallel:    &p.config.PgParallel,
		workers:     p.config.Workers,
	}
	executor := newExecutor(p.mode, env)

	for _, handType := range handTypes {
		if err := p.runHandType(ctx, env, executor, summary, handType, cutoff); err != nil {
			// chunk deletions may already be committed at this point, so
			// the summary accumulated so far is surfaced with the error
			summary.Elapsed = p.clock().Sub(start)
			return summary, err
		}
	}

	summary.Elapsed = p.clock().Sub(start)

	if p.mode == ModeCommit && summary.TotalDeleted() > 0 {
		p.logger.Infof("deleted %v hands, to reclaim disk space run: VACUUM FULL; REINDEX DATABASE <name>;", summary.TotalDeleted())
	}

	if failed := summary.FailedChunks(); failed > 0 {
		return summary, fmt.Errorf("%v of %v chunks failed", failed, summary.chunkCount())
	}

	return summary, nil
}

func (p *Pruner) runHandType(ctx context.Context, env *runEnv, executor chunkExecutor, summary *RunSummary, handType dbtypes.HandType, cutoff time.Time) error {
	logger := p.logger.WithField("handType", handType)

	totalHands, err := p.store.CountHands(handType)
	if err != nil {
		return err
	}
	retained, err := p.store.CountHandsSince(handType, cutoff)
	if err != nil {
		return err
	}
	logger.Infof("%v hands total, %v newer than cutoff (retained)", totalHands, retained)

	oldest, hasHands, err := p.store.OldestHandDate(handType)
	if err != nil {
		return err
	}
	if !hasHands || !oldest.Before(cutoff) {
		logger.Infof("no hands below the cutoff date, nothing to do")
		summary.addHandType(handType, totalHands, retained, nil, nil)
		return nil
	}

	chunks, err := PlanChunks(handType, oldest, cutoff, p.config.Chunks, p.config.HandLimit, func(dateRange dbtypes.DateRange) (uint64, uint64, error) {
		total, err := p.store.CountHandsInRange(handType, dateRange)
		if err != nil {
			return 0, 0, err
		}
		eligible, err := p.store.CountEligible(handType, env.activeTable, dateRange)
		if err != nil {
			return 0, 0, err
		}
		return total, eligible, nil
	})
	if err != nil {
		return fmt.Errorf("error planning chunks: %w", err)
	}
	logger.Infof("planned %v chunks covering %v to %v", len(chunks), oldest.Format("2006-01-02"), cutoff.Format("2006-01-02"))

	outcomes := executeChunks(ctx, env, executor, chunks, p.config.Workers, p.retryBackoff())

	// the chunk outcomes are recorded in the summary even when the report
	// queries below fail, any deletions are already committed
	bucketTotals, bucketErr := p.store.BucketTotals(handType, env.now, cutoff, p.config.ReportBucketDays)

	htSummary := summary.addHandType(handType, totalHands, retained, outcomes, bucketTotals)
	metricsHandsEligible.WithLabelValues(string(handType)).Add(float64(htSummary.Eligible))
	metricsHandsDeleted.WithLabelValues(string(handType)).Add(float64(htSummary.Deleted))
	metricsStatsDeleted.WithLabelValues(string(handType)).Add(float64(htSummary.StatsDeleted))

	if bucketErr != nil {
		return fmt.Errorf("error computing age bucket totals: %w", bucketErr)
	}
	return nil
}

func (p *Pruner) retryBackoff() time.Duration {
	if p.config.RetryBackoff > 0 {
		return p.config.RetryBackoff
	}
	return 5 * time.Second
}

func (s *RunSummary) chunkCount() int {
	count := 0
	for _, ht := range s.HandTypes {
		count += len(ht.Outcomes)
	}
	return count
}
