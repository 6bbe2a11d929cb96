package pruner

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nickmjain/PokerTracker-Hand-pruner/db"
	"github.com/nickmjain/PokerTracker-Hand-pruner/dbtypes"
	"github.com/nickmjain/PokerTracker-Hand-pruner/types"
)

// Mode is the run mode of the dry-run/commit controller. A run starts in
// DryRun unless commit mode was explicitly configured, and the mode never
// changes for the duration of a run.
type Mode int

const (
	ModeDryRun Mode = iota
	ModeCommit
)

func (m Mode) String() string {
	if m == ModeCommit {
		return "commit"
	}
	return "dry-run"
}

// ChunkOutcome is the per-chunk result collected by the orchestrator.
type ChunkOutcome struct {
	Chunk    *Chunk
	Eligible uint64
	Deleted  uint64
	Stats    uint64

	// EligibleBuckets counts the chunk's eligible hands per report age bucket.
	EligibleBuckets map[int64]uint64

	Duration time.Duration
	Attempts int
	Err      error
}

// Failed reports whether the chunk ultimately failed.
func (o *ChunkOutcome) Failed() bool {
	return o.Err != nil
}

// chunkExecutor processes a single chunk. The destructive code path only
// exists on the commit executor, so a dry run cannot issue a delete by
// construction rather than by a runtime flag check.
type chunkExecutor interface {
	ExecuteChunk(ctx context.Context, chunk *Chunk) (*ChunkOutcome, error)
}

// runEnv carries the run-scoped, read-only inputs shared by all workers.
type runEnv struct {
	store       Store
	logger      logrus.FieldLogger
	runID       string
	activeTable string
	now         time.Time
	bucketDays  uint
	batchSize   uint64
	twoPhase    bool
	parallel    *types.PgParallelConfig
	workers     uint
}

func (env *runEnv) bucketHands(hands []*dbtypes.HandRef) map[int64]uint64 {
	buckets := map[int64]uint64{}
	for _, hand := range hands {
		buckets[bucketIndex(env.now, hand.DatePlayed, env.bucketDays)]++
	}
	return buckets
}

// dryRunExecutor only runs counting/enumeration queries.
type dryRunExecutor struct {
	env *runEnv
}

func (e *dryRunExecutor) ExecuteChunk(ctx context.Context, chunk *Chunk) (*ChunkOutcome, error) {
	outcome := &ChunkOutcome{Chunk: chunk, EligibleBuckets: map[int64]uint64{}}
	if chunk.Limit == 0 {
		return outcome, nil
	}

	hands, err := e.env.store.SelectEligible(chunk.HandType, e.env.activeTable, chunk.Range, chunk.Limit)
	if err != nil {
		return nil, err
	}

	outcome.Eligible = uint64(len(hands))
	outcome.EligibleBuckets = e.env.bucketHands(hands)
	return outcome, nil
}

// commitExecutor additionally drives the deletion statements, one transaction
// per chunk.
type commitExecutor struct {
	env *runEnv
}

func (e *commitExecutor) ExecuteChunk(ctx context.Context, chunk *Chunk) (*ChunkOutcome, error) {
	outcome := &ChunkOutcome{Chunk: chunk, EligibleBuckets: map[int64]uint64{}}
	if chunk.Limit == 0 {
		return outcome, nil
	}

	res, err := e.env.store.DeleteChunk(ctx, &DeleteChunkRequest{
		HandType:     chunk.HandType,
		ActiveTable:  e.env.activeTable,
		StagingTable: db.StagingTable(e.env.runID, chunk.Index),
		Range:        chunk.Range,
		Limit:        chunk.Limit,
		BatchSize:    e.env.batchSize,
		TwoPhase:     e.env.twoPhase,
		Parallel:     e.env.parallel,
		Workers:      e.env.workers,
	})
	if err != nil {
		return nil, err
	}

	outcome.Eligible = uint64(len(res.Hands))
	outcome.Deleted = uint64(res.SummaryDeleted)
	outcome.Stats = uint64(res.StatsDeleted)
	outcome.EligibleBuckets = e.env.bucketHands(res.Hands)

	if res.SummaryDeleted != int64(len(res.Hands)) {
		e.env.logger.Warnf("chunk %v deleted %v summary rows for %v eligible hands", chunk.Index, res.SummaryDeleted, len(res.Hands))
	}

	return outcome, nil
}

// newExecutor builds the executor for the run mode.
func newExecutor(mode Mode, env *runEnv) chunkExecutor {
	if mode == ModeCommit {
		return &commitExecutor{env: env}
	}
	return &dryRunExecutor{env: env}
}
