package pruner

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickmjain/PokerTracker-Hand-pruner/dbtypes"
	"github.com/nickmjain/PokerTracker-Hand-pruner/types"
)

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func daysAgo(days int) time.Time {
	return testNow.AddDate(0, 0, -days)
}

func testConfig() *types.PrunerConfig {
	return &types.PrunerConfig{
		InactivityDays:   365,
		HandLimit:        1000000,
		HandTypes:        "cash",
		Chunks:           4,
		Workers:          1,
		BatchSize:        100,
		ReportBucketDays: 30,
		RetryBackoff:     time.Millisecond,
	}
}

func newTestPruner(t *testing.T, store Store, config *types.PrunerConfig) *Pruner {
	t.Helper()
	pruner, err := NewPruner(store, config)
	require.NoError(t, err)
	pruner.clock = func() time.Time { return testNow }
	return pruner
}

// Players: A played 10 days ago (active), B last played 400 days ago
// (inactive). Hand 1 involves only B, hand 2 involves both A and B.
// With a 365 day threshold only hand 1 may ever be removed.
func exampleStore() *fakeStore {
	store := newFakeStore()
	store.addHand(dbtypes.HandTypeCash, 1, daysAgo(500), 2)
	store.addHand(dbtypes.HandTypeCash, 2, daysAgo(500), 1, 2)
	store.addHand(dbtypes.HandTypeCash, 3, daysAgo(10), 1)
	return store
}

func TestDryRunReportsWithoutDeleting(t *testing.T) {
	store := exampleStore()
	config := testConfig()
	config.HandLimit = 10

	pruner := newTestPruner(t, store, config)
	assert.Equal(t, ModeDryRun, pruner.Mode())

	summary, err := pruner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(1), summary.ActivePlayers)
	assert.Equal(t, uint64(1), summary.TotalEligible())
	assert.Equal(t, uint64(0), summary.TotalDeleted())
	assert.Equal(t, []int64{1, 2, 3}, store.handIDs(dbtypes.HandTypeCash), "dry run must not mutate the store")
	assert.Empty(t, store.activeSets, "active players relation must be dropped after the run")
}

func TestCommitDeletesOnlyFullyInactiveHands(t *testing.T) {
	store := exampleStore()
	config := testConfig()
	config.Commit = true

	pruner := newTestPruner(t, store, config)
	require.Equal(t, ModeCommit, pruner.Mode())

	summary, err := pruner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(1), summary.TotalDeleted())
	// hand 2 shares a player with the active A and must survive even
	// though it is older than the cutoff
	assert.Equal(t, []int64{2, 3}, store.handIDs(dbtypes.HandTypeCash))

	require.Len(t, summary.HandTypes, 1)
	ht := summary.HandTypes[0]
	assert.Equal(t, uint64(3), ht.TotalHands)
	assert.Equal(t, uint64(1), ht.RetainedNewer)
	assert.Equal(t, uint64(1), ht.StatsDeleted)
}

func TestDryRunIsIdempotent(t *testing.T) {
	store := exampleStore()
	pruner := newTestPruner(t, store, testConfig())

	first, err := pruner.Run(context.Background())
	require.NoError(t, err)
	second, err := pruner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.TotalEligible(), second.TotalEligible())
	assert.Equal(t, first.ActivePlayers, second.ActivePlayers)
	assert.Equal(t, []int64{1, 2, 3}, store.handIDs(dbtypes.HandTypeCash))
}

func TestCommitRespectsHandLimitOldestFirst(t *testing.T) {
	store := newFakeStore()
	// ten eligible hands of an inactive player, one per week
	for i := int64(0); i < 10; i++ {
		store.addHand(dbtypes.HandTypeCash, 100+i, daysAgo(700-int(i)*7), 9)
	}
	store.addHand(dbtypes.HandTypeCash, 200, daysAgo(5), 1)

	config := testConfig()
	config.Commit = true
	config.HandLimit = 4
	config.Chunks = 3

	pruner := newTestPruner(t, store, config)
	summary, err := pruner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(4), summary.TotalDeleted())
	// the four oldest hands go, the younger six plus the recent one stay
	assert.Equal(t, []int64{104, 105, 106, 107, 108, 109, 200}, store.handIDs(dbtypes.HandTypeCash))
}

func TestCommitResultIndependentOfChunking(t *testing.T) {
	build := func() *fakeStore {
		store := newFakeStore()
		for i := int64(0); i < 50; i++ {
			players := []int64{10 + i%7}
			if i%5 == 0 {
				players = append(players, 1)
			}
			store.addHand(dbtypes.HandTypeCash, i, daysAgo(400+int(i)*3), players...)
		}
		store.addHand(dbtypes.HandTypeCash, 999, daysAgo(1), 1)
		return store
	}

	var want []int64
	for _, shape := range []struct {
		chunks  uint
		workers uint
	}{{1, 1}, {4, 2}, {9, 4}} {
		store := build()
		config := testConfig()
		config.Commit = true
		config.Chunks = shape.chunks
		config.Workers = shape.workers

		pruner := newTestPruner(t, store, config)
		_, err := pruner.Run(context.Background())
		require.NoError(t, err)

		got := store.handIDs(dbtypes.HandTypeCash)
		if want == nil {
			want = got
			continue
		}
		assert.Equalf(t, want, got, "surviving hands differ with %v chunks / %v workers", shape.chunks, shape.workers)
	}
}

func TestEligibleSetIndependentOfChunkCountUnderLimit(t *testing.T) {
	build := func() *fakeStore {
		store := newFakeStore()
		// the oldest hands all involve the active player and can never be
		// pruned, they must not consume the hand limit
		for i := int64(0); i < 5; i++ {
			store.addHand(dbtypes.HandTypeCash, 10+i, daysAgo(800-int(i)), 1)
		}
		for i := int64(0); i < 5; i++ {
			store.addHand(dbtypes.HandTypeCash, 20+i, daysAgo(500-int(i)), 9)
		}
		store.addHand(dbtypes.HandTypeCash, 99, daysAgo(2), 1)
		return store
	}

	for _, chunkCount := range []uint{1, 2, 4, 8} {
		store := build()
		config := testConfig()
		config.HandLimit = 5
		config.Chunks = chunkCount

		pruner := newTestPruner(t, store, config)
		summary, err := pruner.Run(context.Background())
		require.NoError(t, err)
		assert.Equalf(t, uint64(5), summary.TotalEligible(), "eligible set must not depend on the chunk count (%v chunks)", chunkCount)
	}

	// commit with the limit binding deletes exactly the eligible hands
	store := build()
	config := testConfig()
	config.HandLimit = 5
	config.Chunks = 4
	config.Commit = true

	pruner := newTestPruner(t, store, config)
	summary, err := pruner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(5), summary.TotalDeleted())
	assert.Equal(t, []int64{10, 11, 12, 13, 14, 99}, store.handIDs(dbtypes.HandTypeCash))
}

func TestBucketTotalsFailureKeepsDeletionReport(t *testing.T) {
	store := exampleStore()
	store.bucketErr = fmt.Errorf("relation vanished")

	config := testConfig()
	config.Commit = true

	pruner := newTestPruner(t, store, config)
	summary, err := pruner.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relation vanished")

	// the deletions are already committed, the report must survive the
	// failed ratio query
	require.NotNil(t, summary)
	assert.Equal(t, uint64(1), summary.TotalDeleted())
	assert.Equal(t, []int64{2, 3}, store.handIDs(dbtypes.HandTypeCash))
}

func TestSecondHandTypeScanFailureKeepsFirstReport(t *testing.T) {
	store := newFakeStore()
	store.addHand(dbtypes.HandTypeCash, 1, daysAgo(500), 5)
	store.addHand(dbtypes.HandTypeTourney, 2, daysAgo(500), 5)
	store.countErrs = map[dbtypes.HandType]error{dbtypes.HandTypeTourney: fmt.Errorf("tourney scan failed")}

	config := testConfig()
	config.Commit = true
	config.HandTypes = "both"

	pruner := newTestPruner(t, store, config)
	summary, err := pruner.Run(context.Background())
	require.Error(t, err)

	require.NotNil(t, summary)
	require.Len(t, summary.HandTypes, 1)
	assert.Equal(t, dbtypes.HandTypeCash, summary.HandTypes[0].HandType)
	assert.Equal(t, uint64(1), summary.TotalDeleted())
	assert.Empty(t, store.handIDs(dbtypes.HandTypeCash))
}

func TestChunkFailureIsRetriedOnce(t *testing.T) {
	store := exampleStore()
	store.deleteFailures = 1

	config := testConfig()
	config.Commit = true
	config.Chunks = 1

	pruner := newTestPruner(t, store, config)
	summary, err := pruner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(1), summary.TotalDeleted())
	require.Len(t, summary.HandTypes, 1)
	require.Len(t, summary.HandTypes[0].Outcomes, 1)
	assert.Equal(t, 2, summary.HandTypes[0].Outcomes[0].Attempts)
	assert.Equal(t, 0, summary.FailedChunks())
}

func TestExhaustedChunkSurfacesPartialRunError(t *testing.T) {
	store := exampleStore()
	store.deleteFailures = 2

	config := testConfig()
	config.Commit = true
	config.Chunks = 1

	pruner := newTestPruner(t, store, config)
	summary, err := pruner.Run(context.Background())
	require.Error(t, err)
	require.NotNil(t, summary)

	assert.Equal(t, 1, summary.FailedChunks())
	assert.Equal(t, uint64(0), summary.TotalDeleted())
	// a failed chunk rolls back, nothing may be half-deleted
	assert.Equal(t, []int64{1, 2, 3}, store.handIDs(dbtypes.HandTypeCash))
}

func TestRunCoversBothHandTypes(t *testing.T) {
	store := newFakeStore()
	store.addHand(dbtypes.HandTypeCash, 1, daysAgo(500), 5)
	store.addHand(dbtypes.HandTypeTourney, 2, daysAgo(500), 5)
	store.addHand(dbtypes.HandTypeTourney, 3, daysAgo(500), 6)
	// player 6 is active via a recent cash hand, so tourney hand 3 survives
	store.addHand(dbtypes.HandTypeCash, 4, daysAgo(3), 6)

	config := testConfig()
	config.Commit = true
	config.HandTypes = "both"

	pruner := newTestPruner(t, store, config)
	summary, err := pruner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(2), summary.TotalDeleted())
	assert.Equal(t, []int64{4}, store.handIDs(dbtypes.HandTypeCash))
	assert.Equal(t, []int64{3}, store.handIDs(dbtypes.HandTypeTourney))
	require.Len(t, summary.HandTypes, 2)
	assert.Equal(t, dbtypes.HandTypeCash, summary.HandTypes[0].HandType)
	assert.Equal(t, dbtypes.HandTypeTourney, summary.HandTypes[1].HandType)
}

func TestRunWithEmptyStore(t *testing.T) {
	store := newFakeStore()
	pruner := newTestPruner(t, store, testConfig())

	summary, err := pruner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(0), summary.ActivePlayers)
	assert.Equal(t, uint64(0), summary.TotalEligible())
	require.Len(t, summary.HandTypes, 1)
	assert.Empty(t, summary.HandTypes[0].Outcomes)
}

func TestRunWithNothingBelowCutoff(t *testing.T) {
	store := newFakeStore()
	store.addHand(dbtypes.HandTypeCash, 1, daysAgo(10), 1)
	store.addHand(dbtypes.HandTypeCash, 2, daysAgo(20), 2)

	pruner := newTestPruner(t, store, testConfig())
	summary, err := pruner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(0), summary.TotalEligible())
	assert.Equal(t, uint64(2), summary.HandTypes[0].RetainedNewer)
	assert.Equal(t, 0, store.selectCalls)
	assert.Equal(t, 0, store.deleteCalls)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*types.PrunerConfig)
		wantErr string
	}{
		{name: "valid", mutate: func(c *types.PrunerConfig) {}},
		{name: "zero inactivity days", mutate: func(c *types.PrunerConfig) { c.InactivityDays = 0 }, wantErr: "inactivity days"},
		{name: "zero hand limit", mutate: func(c *types.PrunerConfig) { c.HandLimit = 0 }, wantErr: "hand limit"},
		{name: "zero chunks", mutate: func(c *types.PrunerConfig) { c.Chunks = 0 }, wantErr: "chunk count"},
		{name: "zero workers", mutate: func(c *types.PrunerConfig) { c.Workers = 0 }, wantErr: "worker count"},
		{name: "zero batch size", mutate: func(c *types.PrunerConfig) { c.BatchSize = 0 }, wantErr: "batch size"},
		{name: "zero bucket days", mutate: func(c *types.PrunerConfig) { c.ReportBucketDays = 0 }, wantErr: "bucket days"},
		{name: "bad hand types", mutate: func(c *types.PrunerConfig) { c.HandTypes = "omaha" }, wantErr: "hand type"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			config := testConfig()
			test.mutate(config)
			err := ValidateConfig(config)
			if test.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), test.wantErr)
			}
		})
	}
}
