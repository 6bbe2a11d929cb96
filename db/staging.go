package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/nickmjain/PokerTracker-Hand-pruner/dbtypes"
)

// Staging relations hold a chunk's frozen eligible hand set so deletion
// sub-batches iterate a materialized snapshot instead of re-running the
// eligibility predicate. They live inside the chunk's transaction: created
// there, read there, and gone on commit (ON COMMIT DROP) or rollback.

// StagingTable returns the staging relation name for a chunk of a run.
func StagingTable(runID string, chunkIndex int) string {
	return fmt.Sprintf("prune_stage_%s_%d", runID, chunkIndex)
}

// CreateStagingTable creates the chunk-scoped staging relation within the
// transaction. The id_hand primary key serves the sub-batch iteration.
func CreateStagingTable(tx *sqlx.Tx, tableName string) error {
	_, err := tx.Exec(EngineQuery(map[dbtypes.DBEngineType]string{
		dbtypes.DBEnginePgsql:  fmt.Sprintf(`CREATE TEMP TABLE %s (id_hand BIGINT PRIMARY KEY, date_played TIMESTAMP NOT NULL) ON COMMIT DROP`, tableName),
		dbtypes.DBEngineSqlite: fmt.Sprintf(`CREATE TEMP TABLE %s (id_hand INTEGER PRIMARY KEY, date_played TIMESTAMP NOT NULL)`, tableName),
	}))
	if err != nil {
		return fmt.Errorf("error creating staging relation %v: %w", tableName, err)
	}
	return nil
}

// PopulateStagingTable materializes the chunk's eligible hands into the
// staging relation and returns the number of staged hands.
func PopulateStagingTable(tx *sqlx.Tx, tableName string, handType dbtypes.HandType, activeTable string, dateRange dbtypes.DateRange, limit uint64) (int64, error) {
	res, err := tx.Exec(
		fmt.Sprintf(`INSERT INTO %s (id_hand, date_played) %s`, tableName, eligibleHandsQuery(handType, activeTable)),
		dateRange.Start, dateRange.End, limit)
	if err != nil {
		return 0, fmt.Errorf("error populating staging relation %v: %w", tableName, err)
	}
	staged, _ := res.RowsAffected()
	return staged, nil
}

// SelectStagedHands returns the next batch of staged hands with an id greater
// than afterID, ordered by id for stable keyset pagination.
func SelectStagedHands(tx *sqlx.Tx, tableName string, afterID int64, batchSize uint64) ([]*dbtypes.HandRef, error) {
	hands := []*dbtypes.HandRef{}
	err := tx.Select(&hands, fmt.Sprintf(`
	SELECT id_hand, date_played
	FROM %s
	WHERE id_hand > $1
	ORDER BY id_hand ASC
	LIMIT $2`, tableName), afterID, batchSize)
	if err != nil {
		return nil, fmt.Errorf("error reading staging relation %v: %w", tableName, err)
	}
	return hands, nil
}

// DropStagingTable removes the staging relation early. On pgsql the relation
// would also vanish on commit, sqlite temp tables live until the connection
// is returned, so the explicit drop keeps worker connections clean.
func DropStagingTable(tx *sqlx.Tx, tableName string) error {
	_, err := tx.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %s`, tableName))
	if err != nil {
		return fmt.Errorf("error dropping staging relation %v: %w", tableName, err)
	}
	return nil
}
