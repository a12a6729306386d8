// Package worker applies queued sync updates to the entity store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/standings/internal/domain/model"
	"github.com/okian/standings/internal/domain/scoring"
	"github.com/okian/standings/pkg/logger"
	"github.com/okian/standings/pkg/metrics"
)

// Upserter stores a validated entity.
type Upserter interface {
	Upsert(ctx context.Context, e model.Entity) error
}

// Queue defines how workers receive updates.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Update
}

// Counters tracks update outcomes across workers.
type Counters struct {
	processed atomic.Int64
	rejected  atomic.Int64
}

// Processed returns the number of updates stored.
func (c *Counters) Processed() int64 { return c.processed.Load() }

// Rejected returns the number of updates refused by scoring or the store.
func (c *Counters) Rejected() int64 { return c.rejected.Load() }

// InMemoryWorker drains a Queue into an Upserter.
type InMemoryWorker struct {
	queue    Queue
	updater  Upserter
	scorer   scoring.Scorer
	counters *Counters
	name     string
	logger   logger.Logger
	done     chan struct{}
}

// NewInMemoryWorker creates a worker. counters may be shared between
// workers; nil allocates a private set.
func NewInMemoryWorker(q Queue, updater Upserter, counters *Counters, opts ...Option) *InMemoryWorker {
	if counters == nil {
		counters = &Counters{}
	}
	w := &InMemoryWorker{
		queue:    q,
		updater:  updater,
		counters: counters,
		name:     "worker",
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named("worker")
	}
	w.logger = w.logger.With(logger.String("worker", w.name))
	return w
}

// Run processes updates until the queue is drained and closed or ctx is
// done.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	for u := range w.queue.Dequeue(ctx) {
		if err := w.process(ctx, u); err != nil {
			w.logger.Warn(ctx, "update rejected",
				logger.String("update_id", u.UpdateID),
				logger.String("entity_id", u.Entity.ID),
				logger.Error(err))
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) process(ctx context.Context, u model.Update) error { //nolint:gocritic // hugeParam: channel value semantics
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	e := u.Entity
	if w.scorer != nil {
		scoreStart := time.Now()
		scored, err := scoring.Apply(ctx, w.scorer, e)
		metrics.RecordScoringLatency(float64(time.Since(scoreStart).Microseconds()) / 1000)
		if err != nil {
			w.reject(err)
			return fmt.Errorf("score update %s: %w", u.UpdateID, err)
		}
		e = scored
	}

	if err := w.updater.Upsert(ctx, e); err != nil {
		w.reject(err)
		return fmt.Errorf("store update %s: %w", u.UpdateID, err)
	}
	w.counters.processed.Add(1)
	metrics.RecordUpdateProcessed()
	return nil
}

func (w *InMemoryWorker) reject(err error) {
	w.counters.rejected.Add(1)
	metrics.RecordWorkerError()
	metrics.RecordUpdateRejected(rejectReason(err))
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, model.ErrMissingMetric):
		return "missing_metric"
	case errors.Is(err, model.ErrInvalidMetric):
		return "invalid_metric"
	case errors.Is(err, model.ErrInvalidEntity):
		return "invalid_entity"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "store_error"
	}
}

// Pool runs a fixed number of workers over one queue.
type Pool struct {
	workers  []*InMemoryWorker
	queue    Queue
	counters *Counters
	logger   logger.Logger
	started  sync.Once
}

// NewPool creates workerCount workers; values below one mean one.
func NewPool(workerCount int, q Queue, updater Upserter, opts ...Option) *Pool {
	workerCount = max(workerCount, 1)
	p := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    q,
		counters: &Counters{},
		logger:   logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(q, updater, p.counters, wopts...)
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start launches every worker. Later calls are no-ops.
func (p *Pool) Start(ctx context.Context) {
	p.started.Do(func() {
		for _, w := range p.workers {
			go w.Run(ctx)
		}
	})
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Counters exposes the pool-wide outcome counters.
func (p *Pool) Counters() *Counters { return p.counters }

// Shutdown closes the queue, if it can be closed, and waits for workers to
// drain it or for ctx to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("shutdown timed out: %w", ctx.Err())
		}
	}
	metrics.UpdateWorkerCount(0)
	return nil
}
