package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nickmjain/PokerTracker-Hand-pruner/dbtypes"
)

// CountHands returns the total number of hands for the hand type.
func CountHands(handType dbtypes.HandType) (uint64, error) {
	var count uint64
	err := ReaderDb.Get(&count, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, handType.SummaryTable()))
	if err != nil {
		return 0, fmt.Errorf("error counting %v hands: %w", handType, err)
	}
	return count, nil
}

// CountHandsSince returns the number of hands played at or after the cutoff.
// These hands are always retained.
func CountHandsSince(handType dbtypes.HandType, cutoff time.Time) (uint64, error) {
	var count uint64
	err := ReaderDb.Get(&count, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE date_played >= $1`, handType.SummaryTable()), cutoff)
	if err != nil {
		return 0, fmt.Errorf("error counting retained %v hands: %w", handType, err)
	}
	return count, nil
}

// CountHandsInRange returns the number of hands with date_played in [start, end).
func CountHandsInRange(handType dbtypes.HandType, dateRange dbtypes.DateRange) (uint64, error) {
	var count uint64
	err := ReaderDb.Get(&count,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE date_played >= $1 AND date_played < $2`, handType.SummaryTable()),
		dateRange.Start, dateRange.End)
	if err != nil {
		return 0, fmt.Errorf("error counting %v hands in range: %w", handType, err)
	}
	return count, nil
}

// CountEligibleHands returns the number of eligible hands in [start, end),
// using the same anti-join predicate as the eligibility select. Chunk budgets
// are charged against this count so the eligible set does not depend on how
// the date range is partitioned.
func CountEligibleHands(handType dbtypes.HandType, activeTable string, dateRange dbtypes.DateRange) (uint64, error) {
	var count uint64
	err := ReaderDb.Get(&count, fmt.Sprintf(`
	SELECT COUNT(*)
	FROM %[1]s h
	WHERE h.date_played >= $1 AND h.date_played < $2
	AND NOT EXISTS (
		SELECT 1
		FROM %[2]s s
		JOIN %[3]s a ON a.id_player = s.id_player
		WHERE s.id_hand = h.id_hand
	)`, handType.SummaryTable(), handType.PlayerStatsTable(), activeTable),
		dateRange.Start, dateRange.End)
	if err != nil {
		return 0, fmt.Errorf("error counting eligible %v hands: %w", handType, err)
	}
	return count, nil
}

// GetOldestHandDate returns the date of the oldest hand for the hand type.
// The second return value is false when the table is empty.
func GetOldestHandDate(handType dbtypes.HandType) (time.Time, bool, error) {
	var oldest sql.NullTime
	err := ReaderDb.Get(&oldest, fmt.Sprintf(`SELECT MIN(date_played) FROM %s`, handType.SummaryTable()))
	if err != nil {
		return time.Time{}, false, fmt.Errorf("error fetching oldest %v hand date: %w", handType, err)
	}
	if !oldest.Valid {
		return time.Time{}, false, nil
	}
	return oldest.Time, true, nil
}

// eligibleHandsQuery builds the eligibility select for a hand type.
// A hand is eligible when it falls into the date range and no player of the
// hand appears in the active players relation. The check is expressed as an
// anti-join so the engine evaluates it set-at-a-time.
// Results are ordered oldest first so a limit always keeps the oldest hands.
func eligibleHandsQuery(handType dbtypes.HandType, activeTable string) string {
	return fmt.Sprintf(`
	SELECT h.id_hand, h.date_played
	FROM %[1]s h
	WHERE h.date_played >= $1 AND h.date_played < $2
	AND NOT EXISTS (
		SELECT 1
		FROM %[2]s s
		JOIN %[3]s a ON a.id_player = s.id_player
		WHERE s.id_hand = h.id_hand
	)
	ORDER BY h.date_played ASC, h.id_hand ASC
	LIMIT $3`, handType.SummaryTable(), handType.PlayerStatsTable(), activeTable)
}

// SelectEligibleHands returns up to limit eligible hands within the given
// date range, oldest first. Works on the reader db or within a transaction.
func SelectEligibleHands(q sqlx.Queryer, handType dbtypes.HandType, activeTable string, dateRange dbtypes.DateRange, limit uint64) ([]*dbtypes.HandRef, error) {
	hands := []*dbtypes.HandRef{}
	err := sqlx.Select(q, &hands, eligibleHandsQuery(handType, activeTable), dateRange.Start, dateRange.End, limit)
	if err != nil {
		return nil, fmt.Errorf("error selecting eligible %v hands: %w", handType, err)
	}
	return hands, nil
}

// DeleteHandsByID deletes the given hands within the transaction.
// Player statistics rows are removed before their parent summary rows.
func DeleteHandsByID(tx *sqlx.Tx, handType dbtypes.HandType, handIDs []int64) (statsDeleted int64, summaryDeleted int64, err error) {
	if len(handIDs) == 0 {
		return 0, 0, nil
	}

	query, args, err := sqlx.In(fmt.Sprintf(`DELETE FROM %s WHERE id_hand IN (?)`, handType.PlayerStatsTable()), handIDs)
	if err != nil {
		return 0, 0, fmt.Errorf("error building %v stats delete: %w", handType, err)
	}
	res, err := tx.Exec(tx.Rebind(query), args...)
	if err != nil {
		return 0, 0, fmt.Errorf("error deleting %v player statistics: %w", handType, err)
	}
	statsDeleted, _ = res.RowsAffected()

	query, args, err = sqlx.In(fmt.Sprintf(`DELETE FROM %s WHERE id_hand IN (?)`, handType.SummaryTable()), handIDs)
	if err != nil {
		return statsDeleted, 0, fmt.Errorf("error building %v summary delete: %w", handType, err)
	}
	res, err = tx.Exec(tx.Rebind(query), args...)
	if err != nil {
		return statsDeleted, 0, fmt.Errorf("error deleting %v hand summaries: %w", handType, err)
	}
	summaryDeleted, _ = res.RowsAffected()

	return statsDeleted, summaryDeleted, nil
}

// GetHandAgeBucketTotals returns per-age-bucket totals of all hands older than
// the cutoff. Bucket n covers hands aged [n*bucketDays, (n+1)*bucketDays) days
// relative to now.
func GetHandAgeBucketTotals(handType dbtypes.HandType, now time.Time, cutoff time.Time, bucketDays uint) ([]*dbtypes.BucketCount, error) {
	buckets := []*dbtypes.BucketCount{}

	query := EngineQuery(map[dbtypes.DBEngineType]string{
		dbtypes.DBEnginePgsql: fmt.Sprintf(`
			SELECT floor(extract(epoch FROM ($1::timestamp - date_played)) / $2)::bigint AS bucket, COUNT(*) AS count
			FROM %s
			WHERE date_played < $3
			GROUP BY bucket
			ORDER BY bucket ASC`, handType.SummaryTable()),
		dbtypes.DBEngineSqlite: fmt.Sprintf(`
			SELECT CAST((julianday($1) - julianday(date_played)) / $2 AS INTEGER) AS bucket, COUNT(*) AS count
			FROM %s
			WHERE date_played < $3
			GROUP BY bucket
			ORDER BY bucket ASC`, handType.SummaryTable()),
	})

	// pgsql buckets by elapsed seconds, sqlite by julian days
	var bucketSize float64
	if DbEngine == dbtypes.DBEnginePgsql {
		bucketSize = float64(bucketDays) * 86400
	} else {
		bucketSize = float64(bucketDays)
	}

	err := ReaderDb.Select(&buckets, query, now, bucketSize, cutoff)
	if err != nil {
		return nil, fmt.Errorf("error fetching %v hand age buckets: %w", handType, err)
	}
	return buckets, nil
}
