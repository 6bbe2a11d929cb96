package pruner

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nickmjain/PokerTracker-Hand-pruner/db"
	"github.com/nickmjain/PokerTracker-Hand-pruner/dbtypes"
	"github.com/nickmjain/PokerTracker-Hand-pruner/types"
)

// Store is the relational store surface the pruning engine runs against:
// set-based queries, a run-scoped active players relation and transactional
// chunk deletion.
type Store interface {
	// InitActivePlayers creates and fills the run-scoped active players
	// relation with every player active since the given date, across all
	// hand types. Returns the number of active players.
	InitActivePlayers(ctx context.Context, table string, since time.Time) (uint64, error)
	// DropActivePlayers removes the run-scoped relation.
	DropActivePlayers(table string) error

	CountHands(handType dbtypes.HandType) (uint64, error)
	CountHandsSince(handType dbtypes.HandType, cutoff time.Time) (uint64, error)
	CountHandsInRange(handType dbtypes.HandType, dateRange dbtypes.DateRange) (uint64, error)
	// CountEligible counts the hands in the range that pass the eligibility
	// anti-join against the active players relation.
	CountEligible(handType dbtypes.HandType, activeTable string, dateRange dbtypes.DateRange) (uint64, error)
	OldestHandDate(handType dbtypes.HandType) (time.Time, bool, error)

	// SelectEligible returns up to limit eligible hands in the range,
	// oldest first. Read-only, used by dry runs and tests.
	SelectEligible(handType dbtypes.HandType, activeTable string, dateRange dbtypes.DateRange, limit uint64) ([]*dbtypes.HandRef, error)

	// DeleteChunk deletes a chunk's eligible hands within a single
	// transaction. The chunk either fully commits or fully rolls back.
	DeleteChunk(ctx context.Context, req *DeleteChunkRequest) (*DeleteChunkResult, error)

	// BucketTotals returns per-age-bucket totals of all hands older than
	// the cutoff, for the pruning ratio report.
	BucketTotals(handType dbtypes.HandType, now time.Time, cutoff time.Time, bucketDays uint) ([]*dbtypes.BucketCount, error)
}

// DeleteChunkRequest describes one chunk deletion transaction.
type DeleteChunkRequest struct {
	HandType     dbtypes.HandType
	ActiveTable  string
	StagingTable string
	Range        dbtypes.DateRange
	Limit        uint64
	BatchSize    uint64
	TwoPhase     bool
	Parallel     *types.PgParallelConfig
	Workers      uint
}

// DeleteChunkResult reports the hands removed by a chunk transaction.
type DeleteChunkResult struct {
	Hands          []*dbtypes.HandRef
	StatsDeleted   int64
	SummaryDeleted int64
}

// dbStore runs the engine against the db package.
type dbStore struct{}

// NewStore returns a Store backed by the initialized database connection.
func NewStore() Store {
	return &dbStore{}
}

func (s *dbStore) InitActivePlayers(ctx context.Context, table string, since time.Time) (uint64, error) {
	if err := db.CreateActivePlayersTable(table); err != nil {
		return 0, err
	}
	if _, err := db.PopulateActivePlayersTable(table, since); err != nil {
		return 0, err
	}
	return db.CountActivePlayers(table)
}

func (s *dbStore) DropActivePlayers(table string) error {
	return db.DropActivePlayersTable(table)
}

func (s *dbStore) CountHands(handType dbtypes.HandType) (uint64, error) {
	return db.CountHands(handType)
}

func (s *dbStore) CountHandsSince(handType dbtypes.HandType, cutoff time.Time) (uint64, error) {
	return db.CountHandsSince(handType, cutoff)
}

func (s *dbStore) CountHandsInRange(handType dbtypes.HandType, dateRange dbtypes.DateRange) (uint64, error) {
	return db.CountHandsInRange(handType, dateRange)
}

func (s *dbStore) CountEligible(handType dbtypes.HandType, activeTable string, dateRange dbtypes.DateRange) (uint64, error) {
	return db.CountEligibleHands(handType, activeTable, dateRange)
}

func (s *dbStore) OldestHandDate(handType dbtypes.HandType) (time.Time, bool, error) {
	return db.GetOldestHandDate(handType)
}

func (s *dbStore) SelectEligible(handType dbtypes.HandType, activeTable string, dateRange dbtypes.DateRange, limit uint64) ([]*dbtypes.HandRef, error) {
	return db.SelectEligibleHands(db.ReaderDb, handType, activeTable, dateRange, limit)
}

func (s *dbStore) BucketTotals(handType dbtypes.HandType, now time.Time, cutoff time.Time, bucketDays uint) ([]*dbtypes.BucketCount, error) {
	return db.GetHandAgeBucketTotals(handType, now, cutoff, bucketDays)
}

func (s *dbStore) DeleteChunk(ctx context.Context, req *DeleteChunkRequest) (*DeleteChunkResult, error) {
	res := &DeleteChunkResult{}

	err := db.RunDBTransaction(ctx, func(tx *sqlx.Tx) error {
		if err := db.ApplyTxParallelism(tx, req.Parallel, req.Workers); err != nil {
			return err
		}
		if req.TwoPhase {
			return s.deleteChunkStaged(tx, req, res)
		}
		return s.deleteChunkDirect(tx, req, res)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// deleteChunkDirect evaluates the eligibility query once and deletes the
// returned hand ids in bounded sub-batches within the chunk transaction.
func (s *dbStore) deleteChunkDirect(tx *sqlx.Tx, req *DeleteChunkRequest, res *DeleteChunkResult) error {
	hands, err := db.SelectEligibleHands(tx, req.HandType, req.ActiveTable, req.Range, req.Limit)
	if err != nil {
		return err
	}

	for start := 0; start < len(hands); start += int(req.BatchSize) {
		end := start + int(req.BatchSize)
		if end > len(hands) {
			end = len(hands)
		}
		ids := make([]int64, 0, end-start)
		for _, hand := range hands[start:end] {
			ids = append(ids, hand.ID)
		}
		statsDeleted, summaryDeleted, err := db.DeleteHandsByID(tx, req.HandType, ids)
		if err != nil {
			return err
		}
		res.StatsDeleted += statsDeleted
		res.SummaryDeleted += summaryDeleted
	}

	res.Hands = hands
	return nil
}

// deleteChunkStaged materializes the chunk's eligible hands into an indexed
// staging relation once, then iterates deletion sub-batches against that
// frozen snapshot.
func (s *dbStore) deleteChunkStaged(tx *sqlx.Tx, req *DeleteChunkRequest, res *DeleteChunkResult) error {
	if err := db.CreateStagingTable(tx, req.StagingTable); err != nil {
		return err
	}

	staged, err := db.PopulateStagingTable(tx, req.StagingTable, req.HandType, req.ActiveTable, req.Range, req.Limit)
	if err != nil {
		return err
	}

	res.Hands = make([]*dbtypes.HandRef, 0, staged)
	afterID := int64(-1 << 62)
	for {
		batch, err := db.SelectStagedHands(tx, req.StagingTable, afterID, req.BatchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			break
		}

		ids := make([]int64, 0, len(batch))
		for _, hand := range batch {
			ids = append(ids, hand.ID)
		}
		statsDeleted, summaryDeleted, err := db.DeleteHandsByID(tx, req.HandType, ids)
		if err != nil {
			return err
		}
		res.StatsDeleted += statsDeleted
		res.SummaryDeleted += summaryDeleted
		res.Hands = append(res.Hands, batch...)
		afterID = batch[len(batch)-1].ID
	}

	if int64(len(res.Hands)) != staged {
		return fmt.Errorf("staging snapshot mismatch: staged %v hands, deleted %v", staged, len(res.Hands))
	}

	return db.DropStagingTable(tx, req.StagingTable)
}
