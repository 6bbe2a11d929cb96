package db

import (
	"fmt"
	"time"

	"github.com/nickmjain/PokerTracker-Hand-pruner/dbtypes"
)

// The active players relation is a run-scoped table shared by all worker
// connections. A session-local temp table would not be visible across
// connections, so it is created as a regular (unlogged on pgsql) table with a
// run-unique name and dropped at the end of the run.

// ActivePlayersTable returns the relation name for a run id.
func ActivePlayersTable(runID string) string {
	return fmt.Sprintf("prune_active_players_%s", runID)
}

// CreateActivePlayersTable creates the empty active players relation.
// The primary key doubles as the lookup index for the eligibility anti-join.
func CreateActivePlayersTable(tableName string) error {
	_, err := writerDb.Exec(EngineQuery(map[dbtypes.DBEngineType]string{
		dbtypes.DBEnginePgsql:  fmt.Sprintf(`CREATE UNLOGGED TABLE %s (id_player BIGINT PRIMARY KEY)`, tableName),
		dbtypes.DBEngineSqlite: fmt.Sprintf(`CREATE TABLE %s (id_player INTEGER PRIMARY KEY)`, tableName),
	}))
	if err != nil {
		return fmt.Errorf("error creating active players relation %v: %w", tableName, err)
	}
	return nil
}

// PopulateActivePlayersTable fills the relation with every player that played
// any hand at or after the since date. Both hand types are always scanned,
// regardless of which hand types the run prunes: a player active in tourney
// hands must also protect their old cash hands.
func PopulateActivePlayersTable(tableName string, since time.Time) (int64, error) {
	res, err := writerDb.Exec(fmt.Sprintf(`
	INSERT INTO %s (id_player)
	SELECT DISTINCT s.id_player
	FROM cash_hand_player_statistics s
	JOIN cash_hand_summary h ON h.id_hand = s.id_hand
	WHERE h.date_played >= $1
	UNION
	SELECT DISTINCT s.id_player
	FROM tourney_hand_player_statistics s
	JOIN tourney_hand_summary h ON h.id_hand = s.id_hand
	WHERE h.date_played >= $2`, tableName), since, since)
	if err != nil {
		return 0, fmt.Errorf("error populating active players relation %v: %w", tableName, err)
	}
	inserted, _ := res.RowsAffected()
	return inserted, nil
}

// CountActivePlayers returns the size of the active players relation.
func CountActivePlayers(tableName string) (uint64, error) {
	var count uint64
	err := ReaderDb.Get(&count, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, tableName))
	if err != nil {
		return 0, fmt.Errorf("error counting active players: %w", err)
	}
	return count, nil
}

// DropActivePlayersTable removes the relation. Safe to call on cleanup paths
// where the relation may not exist.
func DropActivePlayersTable(tableName string) error {
	_, err := writerDb.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %s`, tableName))
	if err != nil {
		return fmt.Errorf("error dropping active players relation %v: %w", tableName, err)
	}
	return nil
}
