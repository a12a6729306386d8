package loadgen

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/standings/internal/domain/types"
	"github.com/okian/standings/pkg/logger"
)

const (
	maxAttempts  = 8
	retryBackoff = 20 * time.Millisecond
)

// submitAll posts every request with cfg.Workers concurrent submitters.
// Backpressure responses are retried with a linear backoff.
func submitAll(ctx context.Context, cfg Config, client *Client, reqs []types.SyncRequest, stats *Stats) { //nolint:gocritic // hugeParam: read-only config
	log := logger.Get().Named("loadgen")
	log.Info(ctx, "submitting updates", logger.Int("count", len(reqs)), logger.Int("workers", cfg.Workers))

	var submitted, accepted, duplicate, retried, failed atomic.Int64
	work := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup

	for range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				dup, attempts, err := submitOne(ctx, client, reqs[i])
				submitted.Add(1)
				retried.Add(int64(attempts - 1))
				switch {
				case err != nil:
					failed.Add(1)
					if cfg.Verbose {
						log.Warn(ctx, "update failed", logger.String("update_id", reqs[i].UpdateID), logger.Error(err))
					}
				case dup:
					duplicate.Add(1)
				default:
					accepted.Add(1)
				}
			}
		}()
	}

send:
	for i := range reqs {
		select {
		case <-ctx.Done():
			break send
		case work <- i:
		}
	}
	close(work)
	wg.Wait()

	stats.Submitted = int(submitted.Load())
	stats.Accepted = int(accepted.Load())
	stats.Duplicate = int(duplicate.Load())
	stats.Retried = int(retried.Load())
	stats.Failed = int(failed.Load())
	log.Info(ctx, "submission completed",
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("retried", stats.Retried),
		logger.Int("failed", stats.Failed),
	)
}

func submitOne(ctx context.Context, client *Client, req types.SyncRequest) (duplicate bool, attempts int, err error) { //nolint:gocritic // hugeParam: request value
	for attempts = 1; ; attempts++ {
		duplicate, err = client.Sync(ctx, req)
		if err == nil || !errors.Is(err, ErrBackpressure) || attempts == maxAttempts {
			return duplicate, attempts, err
		}
		select {
		case <-ctx.Done():
			return false, attempts, ctx.Err()
		case <-time.After(time.Duration(attempts) * retryBackoff):
		}
	}
}
