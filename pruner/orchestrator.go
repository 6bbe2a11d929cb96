package pruner

import (
	"context"
	"sync"
	"time"
)

// executeChunks dispatches chunks to a fixed pool of workers. Every worker
// processes one chunk at a time on its own connection, so chunks never share
// transactions. A failed chunk is retried once after a backoff, then surfaced
// in its outcome. Cancellation stops dispatching new chunks, in-flight chunk
// transactions roll back on their own.
func executeChunks(ctx context.Context, env *runEnv, exec chunkExecutor, chunks []*Chunk, workers uint, retryBackoff time.Duration) []*ChunkOutcome {
	if workers < 1 {
		workers = 1
	}
	if workers > uint(len(chunks)) {
		workers = uint(len(chunks))
	}

	outcomes := make([]*ChunkOutcome, len(chunks))
	workChan := make(chan *Chunk)

	var wg sync.WaitGroup
	for i := uint(0); i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chunk := range workChan {
				outcomes[chunk.Index] = runChunk(ctx, env, exec, chunk, retryBackoff)
			}
		}()
	}

	dispatched := 0
dispatch:
	for _, chunk := range chunks {
		select {
		case workChan <- chunk:
			dispatched++
		case <-ctx.Done():
			break dispatch
		}
	}
	close(workChan)
	wg.Wait()

	// chunks never dispatched due to cancellation are reported, not dropped
	for idx, outcome := range outcomes {
		if outcome == nil {
			outcomes[idx] = &ChunkOutcome{
				Chunk:           chunks[idx],
				EligibleBuckets: map[int64]uint64{},
				Err:             ctx.Err(),
			}
		}
	}

	return outcomes
}

func runChunk(ctx context.Context, env *runEnv, exec chunkExecutor, chunk *Chunk, retryBackoff time.Duration) *ChunkOutcome {
	logger := env.logger.WithField("chunk", chunk.Index)

	start := time.Now()
	attempts := 1
	outcome, err := exec.ExecuteChunk(ctx, chunk)

	if err != nil && ctx.Err() == nil {
		logger.WithError(err).Warnf("chunk failed, retrying in %v", retryBackoff)
		metricsChunkRetries.WithLabelValues(string(chunk.HandType)).Inc()

		select {
		case <-time.After(retryBackoff):
			attempts++
			outcome, err = exec.ExecuteChunk(ctx, chunk)
		case <-ctx.Done():
		}
	}

	if outcome == nil {
		outcome = &ChunkOutcome{Chunk: chunk, EligibleBuckets: map[int64]uint64{}}
	}
	outcome.Attempts = attempts
	outcome.Duration = time.Since(start)
	outcome.Err = err

	if err != nil {
		logger.WithError(err).Errorf("chunk failed after %v attempts", attempts)
		metricsChunkFailures.WithLabelValues(string(chunk.HandType)).Inc()
	} else {
		logger.Debugf("chunk done: %v eligible, %v deleted in %v", outcome.Eligible, outcome.Deleted, outcome.Duration)
	}
	metricsChunkDuration.WithLabelValues(string(chunk.HandType)).Observe(outcome.Duration.Seconds())

	return outcome
}
