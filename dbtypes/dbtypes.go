package dbtypes

import (
	"fmt"
	"time"
)

type DBEngineType int

const (
	DBEngineAny    DBEngineType = 0
	DBEngineSqlite DBEngineType = 1
	DBEnginePgsql  DBEngineType = 2
)

// HandType selects which pair of PT4 hand tables a run operates on.
type HandType string

const (
	HandTypeCash    HandType = "cash"
	HandTypeTourney HandType = "tourney"
)

// ParseHandTypes maps the configured type selector (cash/tourney/both)
// to the hand types a run processes.
func ParseHandTypes(selector string) ([]HandType, error) {
	switch selector {
	case "", "cash":
		return []HandType{HandTypeCash}, nil
	case "tourney":
		return []HandType{HandTypeTourney}, nil
	case "both":
		return []HandType{HandTypeCash, HandTypeTourney}, nil
	}
	return nil, fmt.Errorf("unknown hand type selector: %q", selector)
}

// SummaryTable returns the parent hand table for the hand type.
func (t HandType) SummaryTable() string {
	if t == HandTypeTourney {
		return "tourney_hand_summary"
	}
	return "cash_hand_summary"
}

// PlayerStatsTable returns the per-player child table for the hand type.
func (t HandType) PlayerStatsTable() string {
	if t == HandTypeTourney {
		return "tourney_hand_player_statistics"
	}
	return "cash_hand_player_statistics"
}

// DateRange is a half-open interval [Start, End).
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether ts falls within the half-open range.
func (r DateRange) Contains(ts time.Time) bool {
	return !ts.Before(r.Start) && ts.Before(r.End)
}

// HandRef identifies a single hand together with its play date.
type HandRef struct {
	ID         int64     `db:"id_hand"`
	DatePlayed time.Time `db:"date_played"`
}

// BucketCount carries a per-age-bucket hand count from a grouped query.
type BucketCount struct {
	Bucket int64  `db:"bucket"`
	Count  uint64 `db:"count"`
}
