package pruner

import (
	"fmt"
	"time"

	"github.com/nickmjain/PokerTracker-Hand-pruner/dbtypes"
)

// Chunk is one unit of pruning work: a half-open date interval [Start, End)
// below the cutoff date, with the candidate budget assigned at plan time.
type Chunk struct {
	Index    int
	HandType dbtypes.HandType
	Range    dbtypes.DateRange

	// HandCount is the number of hands inside the range at plan time.
	HandCount uint64

	// EligibleCount is the number of hands inside the range that pass the
	// eligibility anti-join at plan time.
	EligibleCount uint64

	// Limit is this chunk's share of the overall hand limit. Budgets are
	// charged by eligible hands, assigned oldest chunk first when the plan
	// is built, so the global limit holds no matter in which order chunks
	// execute, truncation always keeps the oldest eligible hands, and the
	// eligible set does not depend on the chunk partition.
	Limit uint64
}

// PlanChunks partitions [oldest, cutoff) into chunkCount ordered, disjoint,
// half-open date ranges, oldest first, and distributes the overall hand limit
// across them by eligible hand count. Planning stops once the limit is
// exhausted, so the returned chunks always cover a contiguous prefix of the
// full range. The active players relation must already be resolved when the
// plan is built.
func PlanChunks(handType dbtypes.HandType, oldest time.Time, cutoff time.Time, chunkCount uint, limit uint64, countInRange func(dbtypes.DateRange) (total uint64, eligible uint64, err error)) ([]*Chunk, error) {
	if chunkCount < 1 {
		return nil, fmt.Errorf("chunk count must be positive")
	}
	if limit < 1 {
		return nil, fmt.Errorf("hand limit must be positive")
	}
	if !oldest.Before(cutoff) {
		return nil, nil
	}

	span := cutoff.Sub(oldest)
	width := span / time.Duration(chunkCount)
	if width < time.Second {
		width = time.Second
	}

	chunks := make([]*Chunk, 0, chunkCount)
	remaining := limit
	start := oldest
	for i := uint(0); i < chunkCount && start.Before(cutoff); i++ {
		end := start.Add(width)
		// the last chunk absorbs rounding so the plan covers the full range
		if i == chunkCount-1 || end.After(cutoff) {
			end = cutoff
		}

		chunkRange := dbtypes.DateRange{Start: start, End: end}
		count, eligible, err := countInRange(chunkRange)
		if err != nil {
			return nil, fmt.Errorf("error sizing chunk %v: %w", i, err)
		}

		budget := eligible
		if budget > remaining {
			budget = remaining
		}

		chunks = append(chunks, &Chunk{
			Index:         len(chunks),
			HandType:      handType,
			Range:         chunkRange,
			HandCount:     count,
			EligibleCount: eligible,
			Limit:         budget,
		})
		remaining -= budget

		if remaining == 0 {
			break
		}
		start = end
	}

	return chunks, nil
}
