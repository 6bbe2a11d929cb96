package pruner

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nickmjain/PokerTracker-Hand-pruner/dbtypes"
)

// fakeHand is an in-memory hand with its participating players.
type fakeHand struct {
	id      int64
	date    time.Time
	players []int64
}

// fakeStore implements Store over in-memory hand tables.
type fakeStore struct {
	mu         sync.Mutex
	hands      map[dbtypes.HandType][]*fakeHand
	activeSets map[string]map[int64]bool

	// deleteFailures makes the next n DeleteChunk calls fail.
	deleteFailures int

	// bucketErr fails every BucketTotals call.
	bucketErr error
	// countErrs fails CountHands for the given hand type.
	countErrs map[dbtypes.HandType]error

	selectCalls int
	deleteCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		hands: map[dbtypes.HandType][]*fakeHand{
			dbtypes.HandTypeCash:    {},
			dbtypes.HandTypeTourney: {},
		},
		activeSets: map[string]map[int64]bool{},
	}
}

func (s *fakeStore) addHand(handType dbtypes.HandType, id int64, date time.Time, players ...int64) {
	s.hands[handType] = append(s.hands[handType], &fakeHand{id: id, date: date, players: players})
}

func (s *fakeStore) handIDs(handType dbtypes.HandType) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := []int64{}
	for _, hand := range s.hands[handType] {
		ids = append(ids, hand.id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}

func (s *fakeStore) InitActivePlayers(ctx context.Context, table string, since time.Time) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	active := map[int64]bool{}
	for _, hands := range s.hands {
		for _, hand := range hands {
			if !hand.date.Before(since) {
				for _, player := range hand.players {
					active[player] = true
				}
			}
		}
	}
	s.activeSets[table] = active
	return uint64(len(active)), nil
}

func (s *fakeStore) DropActivePlayers(table string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.activeSets, table)
	return nil
}

func (s *fakeStore) CountHands(handType dbtypes.HandType) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.countErrs[handType]; err != nil {
		return 0, err
	}
	return uint64(len(s.hands[handType])), nil
}

func (s *fakeStore) CountHandsSince(handType dbtypes.HandType, cutoff time.Time) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count uint64
	for _, hand := range s.hands[handType] {
		if !hand.date.Before(cutoff) {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) CountHandsInRange(handType dbtypes.HandType, dateRange dbtypes.DateRange) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count uint64
	for _, hand := range s.hands[handType] {
		if dateRange.Contains(hand.date) {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) CountEligible(handType dbtypes.HandType, activeTable string, dateRange dbtypes.DateRange) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matches, err := s.eligible(handType, activeTable, dateRange, 1<<62)
	if err != nil {
		return 0, err
	}
	return uint64(len(matches)), nil
}

func (s *fakeStore) OldestHandDate(handType dbtypes.HandType) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var oldest time.Time
	found := false
	for _, hand := range s.hands[handType] {
		if !found || hand.date.Before(oldest) {
			oldest = hand.date
			found = true
		}
	}
	return oldest, found, nil
}

// eligible mirrors the anti-join semantics: hands in range where no player
// is in the active set, oldest first, truncated to limit.
func (s *fakeStore) eligible(handType dbtypes.HandType, activeTable string, dateRange dbtypes.DateRange, limit uint64) ([]*fakeHand, error) {
	active, ok := s.activeSets[activeTable]
	if !ok {
		return nil, fmt.Errorf("unknown active players relation %v", activeTable)
	}

	matches := []*fakeHand{}
	for _, hand := range s.hands[handType] {
		if !dateRange.Contains(hand.date) {
			continue
		}
		hasActive := false
		for _, player := range hand.players {
			if active[player] {
				hasActive = true
				break
			}
		}
		if !hasActive {
			matches = append(matches, hand)
		}
	}
	sort.Slice(matches, func(a, b int) bool {
		if !matches[a].date.Equal(matches[b].date) {
			return matches[a].date.Before(matches[b].date)
		}
		return matches[a].id < matches[b].id
	})
	if uint64(len(matches)) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *fakeStore) SelectEligible(handType dbtypes.HandType, activeTable string, dateRange dbtypes.DateRange, limit uint64) ([]*dbtypes.HandRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectCalls++

	matches, err := s.eligible(handType, activeTable, dateRange, limit)
	if err != nil {
		return nil, err
	}
	refs := make([]*dbtypes.HandRef, 0, len(matches))
	for _, hand := range matches {
		refs = append(refs, &dbtypes.HandRef{ID: hand.id, DatePlayed: hand.date})
	}
	return refs, nil
}

func (s *fakeStore) DeleteChunk(ctx context.Context, req *DeleteChunkRequest) (*DeleteChunkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls++

	if s.deleteFailures > 0 {
		s.deleteFailures--
		return nil, fmt.Errorf("simulated chunk failure")
	}

	matches, err := s.eligible(req.HandType, req.ActiveTable, req.Range, req.Limit)
	if err != nil {
		return nil, err
	}

	res := &DeleteChunkResult{}
	doomed := map[int64]bool{}
	for _, hand := range matches {
		doomed[hand.id] = true
		res.Hands = append(res.Hands, &dbtypes.HandRef{ID: hand.id, DatePlayed: hand.date})
		res.StatsDeleted += int64(len(hand.players))
		res.SummaryDeleted++
	}

	kept := s.hands[req.HandType][:0]
	for _, hand := range s.hands[req.HandType] {
		if !doomed[hand.id] {
			kept = append(kept, hand)
		}
	}
	s.hands[req.HandType] = kept

	return res, nil
}

func (s *fakeStore) BucketTotals(handType dbtypes.HandType, now time.Time, cutoff time.Time, bucketDays uint) ([]*dbtypes.BucketCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bucketErr != nil {
		return nil, s.bucketErr
	}
	counts := map[int64]uint64{}
	for _, hand := range s.hands[handType] {
		if hand.date.Before(cutoff) {
			counts[bucketIndex(now, hand.date, bucketDays)]++
		}
	}
	buckets := []*dbtypes.BucketCount{}
	for bucket, count := range counts {
		buckets = append(buckets, &dbtypes.BucketCount{Bucket: bucket, Count: count})
	}
	sort.Slice(buckets, func(a, b int) bool { return buckets[a].Bucket < buckets[b].Bucket })
	return buckets, nil
}
