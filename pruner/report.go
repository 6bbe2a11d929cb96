package pruner

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/nickmjain/PokerTracker-Hand-pruner/dbtypes"
	"github.com/nickmjain/PokerTracker-Hand-pruner/utils"
)

// bucketIndex maps a hand date to its report age bucket relative to now.
func bucketIndex(now time.Time, datePlayed time.Time, bucketDays uint) int64 {
	if bucketDays < 1 {
		bucketDays = 1
	}
	age := now.Sub(datePlayed)
	if age < 0 {
		return 0
	}
	return int64(age / (time.Duration(bucketDays) * 24 * time.Hour))
}

// HandTypeSummary accumulates a run's results for one hand type.
type HandTypeSummary struct {
	HandType      dbtypes.HandType
	TotalHands    uint64
	RetainedNewer uint64
	Analyzed      uint64
	Eligible      uint64
	Deleted       uint64
	StatsDeleted  uint64
	FailedChunks  int
	Outcomes      []*ChunkOutcome
}

type bucketAgg struct {
	total    uint64
	eligible uint64
}

// BucketRow is one line of the pruning ratio report.
type BucketRow struct {
	Bucket   int64
	Label    string
	Total    uint64
	Eligible uint64
	Ratio    float64
}

// RunSummary is the aggregated result of a pruning run.
type RunSummary struct {
	Mode          Mode
	StartedAt     time.Time
	Cutoff        time.Time
	BucketDays    uint
	ActivePlayers uint64
	HandTypes     []*HandTypeSummary
	Elapsed       time.Duration

	buckets map[int64]*bucketAgg
}

func newRunSummary(mode Mode, startedAt time.Time, cutoff time.Time, bucketDays uint) *RunSummary {
	return &RunSummary{
		Mode:       mode,
		StartedAt:  startedAt,
		Cutoff:     cutoff,
		BucketDays: bucketDays,
		buckets:    map[int64]*bucketAgg{},
	}
}

func (s *RunSummary) addHandType(handType dbtypes.HandType, totalHands uint64, retainedNewer uint64, outcomes []*ChunkOutcome, bucketTotals []*dbtypes.BucketCount) *HandTypeSummary {
	ht := &HandTypeSummary{
		HandType:      handType,
		TotalHands:    totalHands,
		RetainedNewer: retainedNewer,
		Outcomes:      outcomes,
	}

	for _, outcome := range outcomes {
		ht.Analyzed += outcome.Chunk.HandCount
		ht.Eligible += outcome.Eligible
		ht.Deleted += outcome.Deleted
		ht.StatsDeleted += outcome.Stats
		if outcome.Failed() {
			ht.FailedChunks++
		}
		for bucket, count := range outcome.EligibleBuckets {
			s.bucket(bucket).eligible += count
		}
	}

	for _, bucketTotal := range bucketTotals {
		s.bucket(bucketTotal.Bucket).total += bucketTotal.Count
	}

	s.HandTypes = append(s.HandTypes, ht)
	return ht
}

func (s *RunSummary) bucket(idx int64) *bucketAgg {
	agg := s.buckets[idx]
	if agg == nil {
		agg = &bucketAgg{}
		s.buckets[idx] = agg
	}
	return agg
}

// TotalEligible returns the eligible hand count across all hand types.
func (s *RunSummary) TotalEligible() uint64 {
	var total uint64
	for _, ht := range s.HandTypes {
		total += ht.Eligible
	}
	return total
}

// TotalDeleted returns the deleted hand count across all hand types.
func (s *RunSummary) TotalDeleted() uint64 {
	var total uint64
	for _, ht := range s.HandTypes {
		total += ht.Deleted
	}
	return total
}

// FailedChunks returns the number of chunks that failed across all hand types.
func (s *RunSummary) FailedChunks() int {
	failed := 0
	for _, ht := range s.HandTypes {
		failed += ht.FailedChunks
	}
	return failed
}

// BucketRows returns the pruning ratio rows ordered oldest bucket first.
// Older buckets generally show higher pruning ratios.
func (s *RunSummary) BucketRows() []*BucketRow {
	rows := make([]*BucketRow, 0, len(s.buckets))
	for bucket, agg := range s.buckets {
		row := &BucketRow{
			Bucket:   bucket,
			Label:    fmt.Sprintf("%d-%dd", uint64(bucket)*uint64(s.BucketDays), (uint64(bucket)+1)*uint64(s.BucketDays)-1),
			Total:    agg.total,
			Eligible: agg.eligible,
		}
		if agg.total > 0 {
			row.Ratio = float64(agg.eligible) / float64(agg.total)
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(a, b int) bool {
		return rows[a].Bucket > rows[b].Bucket
	})
	return rows
}

// WriteReport renders the operator-facing run summary.
func (s *RunSummary) WriteReport(w io.Writer) {
	fmt.Fprintf(w, "--- PT4 Hand Pruner (%v) ---\n", s.Mode)
	fmt.Fprintf(w, "Cutoff date: %v (hands older than this are eligible)\n", s.Cutoff.Format("2006-01-02"))
	fmt.Fprintf(w, "Active players: %s\n", utils.FormatAddCommas(s.ActivePlayers))

	for _, ht := range s.HandTypes {
		fmt.Fprintf(w, "\n[%s]\n", ht.HandType)
		fmt.Fprintf(w, "  Total hands: %s\n", utils.FormatAddCommas(ht.TotalHands))
		fmt.Fprintf(w, "  Hands newer than cutoff (retained): %s\n", utils.FormatAddCommas(ht.RetainedNewer))
		fmt.Fprintf(w, "  Hands analyzed: %s\n", utils.FormatAddCommas(ht.Analyzed))
		fmt.Fprintf(w, "  Hands eligible for deletion: %s\n", utils.FormatAddCommas(ht.Eligible))
		if s.Mode == ModeCommit {
			fmt.Fprintf(w, "  Hands deleted: %s (player statistics rows: %s)\n",
				utils.FormatAddCommas(ht.Deleted), utils.FormatAddCommas(ht.StatsDeleted))
		}
		if ht.Analyzed > 0 {
			fmt.Fprintf(w, "  Pruning ratio: %.1f%%\n", float64(ht.Eligible)/float64(ht.Analyzed)*100)
		}

		for _, outcome := range ht.Outcomes {
			status := "ok"
			if outcome.Failed() {
				status = fmt.Sprintf("FAILED: %v", outcome.Err)
			} else if outcome.Attempts > 1 {
				status = "ok (retried)"
			}
			fmt.Fprintf(w, "  chunk %2d [%s .. %s): eligible %s, deleted %s, %v, %s\n",
				outcome.Chunk.Index,
				outcome.Chunk.Range.Start.Format("2006-01-02"),
				outcome.Chunk.Range.End.Format("2006-01-02"),
				utils.FormatAddCommas(outcome.Eligible),
				utils.FormatAddCommas(outcome.Deleted),
				outcome.Duration.Round(time.Millisecond),
				status)
		}
	}

	rows := s.BucketRows()
	if len(rows) > 0 {
		fmt.Fprintf(w, "\nPruning ratio by hand age (%vd buckets):\n", s.BucketDays)
		for _, row := range rows {
			fmt.Fprintf(w, "  %12s: %8s of %10s eligible (%.1f%%)\n",
				row.Label, utils.FormatAddCommas(row.Eligible), utils.FormatAddCommas(row.Total), row.Ratio*100)
		}
	}

	fmt.Fprintf(w, "\nTotal elapsed: %v\n", s.Elapsed.Round(time.Millisecond))
}
