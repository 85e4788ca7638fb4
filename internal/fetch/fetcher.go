// Package fetch implements the retrying, cancellable page fetcher.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/strykerlabs/webstryker/internal/extraction"
)

const defaultPausePoll = 500 * time.Millisecond

// PageGetter performs a single HTTP GET. Implementations carry their own
// transport; the Fetcher owns retries and cancellation.
type PageGetter interface {
	Get(ctx context.Context, url string) (status int, body string, err error)
}

// Fetcher wraps a PageGetter with exponential backoff and the cooperative
// pause/stop checks performed before every attempt.
type Fetcher struct {
	getter    PageGetter
	states    extraction.StateRegistry
	oplog     extraction.OperationLogger
	cfg       extraction.FetchConfig
	logger    *zap.Logger
	pausePoll time.Duration

	// sleep and jitter are swappable for tests.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

// New constructs a Fetcher.
func New(
	getter PageGetter,
	states extraction.StateRegistry,
	oplog extraction.OperationLogger,
	cfg extraction.FetchConfig,
	logger *zap.Logger,
) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Fetcher{
		getter:    getter,
		states:    states,
		oplog:     oplog,
		cfg:       cfg,
		logger:    logger,
		pausePoll: defaultPausePoll,
		sleep:     sleepCtx,
		jitter:    rand.Float64,
	}
}

// Fetch retrieves the page body, retrying up to MaxRetries attempts. Before
// each attempt the run's stop flag aborts immediately and the pause flag
// blocks until resumed or stopped. Backoff after a failed attempt n is
// 2^n seconds plus jitter in [0,1).
func (f *Fetcher) Fetch(ctx context.Context, url, extractionID string) (string, error) {
	var lastErr error

	for attempt := 0; attempt < f.cfg.MaxRetries; attempt++ {
		if f.states.IsStopped(extractionID) {
			return "", extraction.ErrStopped
		}
		if err := f.waitWhilePaused(ctx, extractionID); err != nil {
			return "", err
		}

		status, body, err := f.getter.Get(ctx, url)
		switch {
		case err == nil && status == http.StatusOK:
			return body, nil
		case err != nil:
			lastErr = err
			f.oplog.LogError(url, extractionID, "FetchError",
				fmt.Sprintf("fetch attempt %d failed: %v", attempt+1, err), "")
		default:
			lastErr = fmt.Errorf("http status %d", status)
			f.oplog.LogError(url, extractionID, "FetchError",
				fmt.Sprintf("failed to fetch content: HTTP %d", status), "")
		}
		f.logger.Warn("fetch attempt failed",
			zap.String("url", url),
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr),
		)

		backoff := time.Duration((math.Pow(2, float64(attempt)) + f.jitter()) * float64(time.Second))
		if err := f.sleep(ctx, backoff); err != nil {
			return "", fmt.Errorf("fetch backoff: %w", err)
		}
	}

	f.oplog.LogError(url, extractionID, "FetchError",
		fmt.Sprintf("all %d retry attempts failed for %s", f.cfg.MaxRetries, url), "")
	return "", &extraction.FetchError{URL: url, Attempts: f.cfg.MaxRetries, Err: lastErr}
}

// waitWhilePaused blocks while the run is paused, polling at a short
// interval. It still observes stop and context cancellation.
func (f *Fetcher) waitWhilePaused(ctx context.Context, extractionID string) error {
	for f.states.IsPaused(extractionID) {
		if f.states.IsStopped(extractionID) {
			return extraction.ErrStopped
		}
		if err := f.sleep(ctx, f.pausePoll); err != nil {
			return fmt.Errorf("pause wait: %w", err)
		}
	}
	if f.states.IsStopped(extractionID) {
		return extraction.ErrStopped
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsCancelled reports whether err means the run was stopped or the context
// finished, as opposed to a genuine fetch failure.
func IsCancelled(err error) bool {
	return errors.Is(err, extraction.ErrStopped) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
