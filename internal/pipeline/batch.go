package pipeline

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/strykerlabs/webstryker/internal/extraction"
	"github.com/strykerlabs/webstryker/internal/metrics"
	"github.com/strykerlabs/webstryker/internal/state"
)

const defaultBatchConcurrency = 4

// BatchRunner fans a batch of URLs across a bounded number of concurrent
// pipeline runs.
type BatchRunner struct {
	orchestrator *Orchestrator
	counters     *state.Counters
	ids          extraction.IDGenerator
	concurrency  int64
	logger       *zap.Logger
}

// NewBatchRunner constructs a BatchRunner with the given concurrency cap.
func NewBatchRunner(orchestrator *Orchestrator, counters *state.Counters, ids extraction.IDGenerator, concurrency int, logger *zap.Logger) *BatchRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = defaultBatchConcurrency
	}
	return &BatchRunner{
		orchestrator: orchestrator,
		counters:     counters,
		ids:          ids,
		concurrency:  int64(concurrency),
		logger:       logger,
	}
}

// Run processes every URL in the batch, at most `concurrency` at a time.
// Each URL runs in isolation; one failure never aborts the rest. The batch
// counts as successful when at least one URL succeeded.
func (b *BatchRunner) Run(ctx context.Context, urls []string) extraction.BatchResult {
	batchID, err := b.ids.NewID()
	if err != nil {
		batchID = "batch"
	}
	result := extraction.BatchResult{
		BatchID: batchID,
		Total:   len(urls),
		Status:  extraction.BatchProcessing,
	}
	if len(urls) == 0 {
		result.Status = extraction.BatchCompleted
		return result
	}

	b.counters.AddRemaining(int64(len(urls)))
	b.logger.Info("batch started",
		zap.String("batch_id", batchID),
		zap.Int("urls", len(urls)),
		zap.Int64("concurrency", b.concurrency),
	)

	sem := semaphore.NewWeighted(b.concurrency)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures []extraction.BatchFailure
		success  int
	)
	for i, url := range urls {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			failures = append(failures, extraction.BatchFailure{URL: url, Error: err.Error()})
			mu.Unlock()
			b.counters.AddRemaining(-1)
			continue
		}
		wg.Add(1)
		go func(index int, url string) {
			defer wg.Done()
			defer sem.Release(1)
			defer b.counters.AddRemaining(-1)

			extractionID := fmt.Sprintf("%s-%d", batchID, index)
			res := b.orchestrator.Run(ctx, url, extractionID)

			mu.Lock()
			defer mu.Unlock()
			if res.Success {
				success++
				return
			}
			msg := "extraction failed"
			if res.Err != nil {
				msg = res.Err.Error()
			}
			failures = append(failures, extraction.BatchFailure{URL: url, Error: msg})
		}(i, url)
	}
	wg.Wait()

	result.Processed = len(urls)
	result.Successful = success
	result.Failed = len(failures)
	result.Failures = failures
	result.Success = success > 0
	result.Status = extraction.BatchCompleted

	metrics.ObserveBatch(len(urls), success)
	b.logger.Info("batch finished",
		zap.String("batch_id", batchID),
		zap.Int("successful", success),
		zap.Int("failed", len(failures)),
	)
	return result
}
