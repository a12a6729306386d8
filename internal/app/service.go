// Package service wires the entity store, sync ingestion and the
// leaderboard engine into the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/okian/standings/internal/adapters/mq/queue"
	"github.com/okian/standings/internal/adapters/mq/worker"
	"github.com/okian/standings/internal/adapters/repository"
	"github.com/okian/standings/internal/domain/dedupe"
	"github.com/okian/standings/internal/domain/filter"
	"github.com/okian/standings/internal/domain/leaderboard"
	"github.com/okian/standings/internal/domain/metric"
	"github.com/okian/standings/internal/domain/model"
	"github.com/okian/standings/internal/domain/ranking"
	"github.com/okian/standings/internal/domain/scoring"
	"github.com/okian/standings/pkg/logger"
	"github.com/okian/standings/pkg/metrics"
)

// Service owns the running components. Reads go through the leaderboard
// engine against the store's latest snapshot; writes go through the
// deduper, the queue and the worker pool.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   *repository.SnapshotStore
	deduper dedupe.Deduper
	queue   *queue.InMemoryQueue
	scorer  scoring.Scorer
	pool    *worker.Pool
	engine  *leaderboard.Engine

	// required lists the categories every stored entity must carry.
	required []model.Category

	// Configuration
	workerCount      int
	queueSize        int
	dedupeSize       int
	categories       []string
	scopeDimensions  []string
	overallWeights   map[string]float64
	snapshotInterval time.Duration
	rolloverInterval time.Duration
	seedFile         string
	defaultPageSize  int
	maxPageSize      int

	// State
	started bool
	cancel  context.CancelFunc
	loops   sync.WaitGroup

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:      runtime.NumCPU() * 2,
		queueSize:        50_000,
		dedupeSize:       200_000,
		snapshotInterval: 250 * time.Millisecond,
		defaultPageSize:  50,
		maxPageSize:      200,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds and starts the components, then loads the seed population
// if one is configured. Calling Start on a running service is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting standings service...")

	resolver := metric.NewResolver(metric.WithCategories(lo.Map(s.categories, func(c string, _ int) model.Category {
		return metric.ParseCategory(c)
	})...))
	categories := resolver.Categories()

	var scorer scoring.Scorer
	// overallScore is only derived when it is something callers can rank by.
	if slices.Contains(categories, model.CategoryOverallScore) {
		weights, err := s.scorerWeights(categories)
		if err != nil {
			return err
		}
		if len(weights) > 0 {
			scorer = scoring.NewWeightedScorer(scoring.WithWeights(weights))
		}
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	store := repository.NewSnapshotStore(runCtx,
		repository.WithSnapshotInterval(s.snapshotInterval),
		repository.WithRequiredCategories(categories...),
	)
	deduper := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	q := queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))

	var workerOpts []worker.Option
	if scorer != nil {
		workerOpts = append(workerOpts, worker.WithScorer(scorer))
	}
	pool := worker.NewPool(s.workerCount, q, store, workerOpts...)

	s.engine = leaderboard.New(
		leaderboard.WithResolver(resolver),
		leaderboard.WithScopeFilter(filter.NewScopeFilter(filter.WithDimensions(s.scopeDimensions...))),
	)
	s.store, s.deduper, s.queue, s.scorer, s.pool = store, deduper, q, scorer, pool
	s.required = categories

	if s.seedFile != "" {
		if err := s.loadSeed(ctx); err != nil {
			cancel()
			_ = store.Close()
			_ = q.Close()
			return err
		}
	}

	pool.Start(runCtx)
	s.cancel = cancel
	if s.rolloverInterval > 0 {
		s.loops.Add(1)
		go s.rolloverLoop(runCtx, store)
	}

	s.started = true
	s.logger.Info(ctx, "standings service started",
		logger.Int("workers", pool.Size()),
		logger.Int("queueSize", q.Capacity()),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Any("categories", categories),
		logger.Int("entities", store.Count(ctx)),
	)
	return nil
}

// scorerWeights resolves the components of overallScore. Configured weights
// must name configured categories; the built-in weights are narrowed to the
// configured ones instead. An empty result means overallScore is never
// derived and callers have to send it.
func (s *Service) scorerWeights(categories []model.Category) (map[model.Category]float64, error) {
	component := func(c model.Category, w float64) bool {
		return w > 0 && c != model.CategoryOverallScore
	}
	if len(s.overallWeights) == 0 {
		return lo.PickBy(scoring.DefaultWeights(), func(c model.Category, w float64) bool {
			return component(c, w) && slices.Contains(categories, c)
		}), nil
	}
	weights := make(map[model.Category]float64, len(s.overallWeights))
	for name, w := range s.overallWeights {
		c := metric.ParseCategory(name)
		if !slices.Contains(categories, c) {
			return nil, fmt.Errorf("%w: %q is not a configured category", ErrInvalidWeight, name)
		}
		if w < 0 || !model.Finite(w) {
			return nil, fmt.Errorf("%w: %q has weight %v", ErrInvalidWeight, name, w)
		}
		if component(c, w) {
			weights[c] = w
		}
	}
	return weights, nil
}

// loadSeed upserts the seed population and publishes it at once so the
// first query already sees it.
func (s *Service) loadSeed(ctx context.Context) error {
	entities, err := repository.LoadSeed(s.seedFile)
	if err != nil {
		return err
	}
	for _, e := range entities {
		if s.scorer != nil {
			if e, err = scoring.Apply(ctx, s.scorer, e); err != nil {
				return fmt.Errorf("%w: %w", repository.ErrSeed, err)
			}
		}
		if err := s.store.Upsert(ctx, e); err != nil {
			return fmt.Errorf("%w: %w", repository.ErrSeed, err)
		}
	}
	snap := s.store.Publish()
	s.logger.Info(ctx, "seed population loaded",
		logger.String("file", s.seedFile),
		logger.Int("entities", snap.Len()),
	)
	return nil
}

// rolloverLoop talks to the store directly: Stop waits for it while
// holding the service lock.
func (s *Service) rolloverLoop(ctx context.Context, store *repository.SnapshotStore) {
	defer s.loops.Done()
	ticker := time.NewTicker(s.rolloverInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Rollover(ctx)
			if err != nil {
				s.logger.Warn(ctx, "scheduled rollover failed", logger.Error(err))
				continue
			}
			s.logger.Info(ctx, "ranking period closed", logger.Int("entities", n), logger.Bool("scheduled", true))
		}
	}
}

// Stop drains the queue and stops every component. Updates still queued
// are applied unless ctx expires first.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping standings service...")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	s.cancel()
	s.loops.Wait()
	if err := s.store.Close(); err != nil {
		errs = append(errs, err)
	}

	s.started = false
	s.logger.Info(ctx, "standings service stopped",
		logger.Int64("processed", s.pool.Counters().Processed()),
		logger.Int64("rejected", s.pool.Counters().Rejected()),
	)
	return errors.Join(errs...)
}

// SeenAndRecord reports whether id was already seen and records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordUpdateDuplicate()
	}
	return seen
}

// Unrecord forgets id so the update can be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Size returns the current number of remembered update IDs.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// Enqueue submits a sync update for asynchronous application. duplicate is
// true when the UpdateID was already seen; the update is then dropped.
// An update without an ID gets a fresh one and is never a duplicate.
// When the queue is full the ID is forgotten so the caller can retry.
func (s *Service) Enqueue(ctx context.Context, u model.Update) (duplicate bool, err error) { //nolint:gocritic // hugeParam: value semantics
	const op = "service.enqueue"
	if !s.isStarted() {
		return false, fmt.Errorf("%s: %w", op, ErrNotStarted)
	}
	if u.UpdateID == "" {
		u.UpdateID = uuid.NewString()
	}
	if u.ReceivedAt.IsZero() {
		u.ReceivedAt = time.Now()
	}
	// The entity is checked as the store will check it, so a malformed
	// update is refused here instead of being acknowledged and dropped.
	if s.scorer != nil {
		e, err := scoring.Apply(ctx, s.scorer, u.Entity)
		if err != nil {
			return false, rejectEntity(op, err)
		}
		u.Entity = e
	}
	if err := u.Entity.Validate(s.required); err != nil {
		return false, rejectEntity(op, err)
	}
	if s.SeenAndRecord(ctx, u.UpdateID) {
		s.logger.Debug(ctx, "duplicate update skipped",
			logger.String("update_id", u.UpdateID),
			logger.String("entity_id", u.Entity.ID),
		)
		return true, nil
	}
	if err := s.queue.Enqueue(ctx, u); err != nil {
		s.Unrecord(ctx, u.UpdateID)
		if errors.Is(err, queue.ErrFull) || errors.Is(err, queue.ErrClosed) {
			return false, fmt.Errorf("%s: %w: %w", op, ErrBackpressure, err)
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return false, nil
}

// rejectEntity marks metric contract violations on an incoming update as
// ErrInvalidEntity, which is a caller error rather than a data error.
func rejectEntity(op string, err error) error {
	if errors.Is(err, model.ErrMissingMetric) || errors.Is(err, model.ErrInvalidMetric) {
		return fmt.Errorf("%s: %w: %w", op, model.ErrInvalidEntity, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Leaderboard answers one page of a ranked view against the latest snapshot.
func (s *Service) Leaderboard(ctx context.Context, q leaderboard.Query) (leaderboard.Result, error) {
	engine, snap, err := s.reader()
	if err != nil {
		return leaderboard.Result{}, err
	}
	start := time.Now()
	res, err := engine.Query(snap, q)
	s.observe(ctx, q, start, err)
	return res, err
}

// Position locates entityID in the view described by q.
func (s *Service) Position(ctx context.Context, q leaderboard.Query, entityID string) (leaderboard.Position, error) {
	engine, snap, err := s.reader()
	if err != nil {
		return leaderboard.Position{}, err
	}
	start := time.Now()
	pos, err := engine.Position(snap, q, entityID)
	s.observe(ctx, q, start, err)
	return pos, err
}

// Neighbors returns entityID and up to radius entries on each side of it.
func (s *Service) Neighbors(ctx context.Context, q leaderboard.Query, entityID string, radius int) ([]ranking.RankedEntity, error) {
	engine, snap, err := s.reader()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	out, err := engine.Neighbors(snap, q, entityID, radius)
	s.observe(ctx, q, start, err)
	return out, err
}

// Entity returns the stored entity with the given id.
func (s *Service) Entity(ctx context.Context, id string) (model.Entity, error) {
	if !s.isStarted() {
		return model.Entity{}, ErrNotStarted
	}
	return s.store.Get(ctx, id)
}

// Rollover closes the ranking period: every entity's current metrics
// become its prior metrics. It returns the number of entities rolled.
func (s *Service) Rollover(ctx context.Context) (int, error) {
	if !s.isStarted() {
		return 0, ErrNotStarted
	}
	n, err := s.store.Rollover(ctx)
	if err != nil {
		return 0, fmt.Errorf("service.rollover: %w", err)
	}
	s.logger.Info(ctx, "ranking period closed", logger.Int("entities", n))
	return n, nil
}

// Categories lists the categories callers can rank by.
func (s *Service) Categories() []model.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.engine == nil {
		return metric.NewResolver().Categories()
	}
	return s.engine.Categories()
}

// PageSizes returns the default and maximum page sizes.
func (s *Service) PageSizes() (def, maxSize int) {
	return s.defaultPageSize, s.maxPageSize
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}
	if !s.started {
		return stats
	}

	snap := s.store.Snapshot()
	queueLen := s.queue.Len(ctx)
	entities := s.store.Count(ctx)
	stats["queueLength"] = queueLen
	stats["totalEntities"] = entities
	stats["dedupeEntries"] = s.deduper.Size()
	stats["processed"] = s.pool.Counters().Processed()
	stats["rejected"] = s.pool.Counters().Rejected()
	stats["categories"] = s.engine.Categories()
	if snap != nil {
		stats["snapshotId"] = snap.ID
		stats["snapshotVersion"] = snap.Version
		stats["snapshotEntities"] = snap.Len()
		stats["snapshotTakenAt"] = snap.TakenAt
	}

	metrics.UpdateQueueSize(queueLen)
	metrics.UpdateEntitiesTotal(entities)
	metrics.UpdateWorkerCount(s.pool.Size())
	return stats
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// reader loads the engine and the snapshot once so that filtering, ranking
// and paging all see the same version.
func (s *Service) reader() (*leaderboard.Engine, *model.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.engine, s.store.Snapshot(), nil
}

func (s *Service) observe(ctx context.Context, q leaderboard.Query, start time.Time, err error) { //nolint:gocritic // hugeParam: read-only
	if err != nil {
		kind := queryErrorKind(err)
		metrics.RecordLeaderboardError(kind)
		if kind == "missing_metric" {
			s.logger.Error(ctx, "leaderboard query failed on stored data",
				logger.String("category", string(q.Category)),
				logger.String("scope", q.Scope.String()),
				logger.Error(err),
			)
		}
		return
	}
	metrics.RecordLeaderboardQuery(string(q.Category), scopeLabel(q.Scope),
		float64(time.Since(start).Microseconds())/1000)
}

// scopeLabel keeps the metric label set bounded: attribute values are
// dropped, only the dimension remains.
func scopeLabel(sc filter.Scope) string {
	switch sc.Kind {
	case filter.ScopeAttribute:
		return sc.Dimension
	case filter.ScopeFriends:
		return string(filter.ScopeFriends)
	default:
		return string(filter.ScopeGlobal)
	}
}

func queryErrorKind(err error) string {
	switch {
	case errors.Is(err, leaderboard.ErrUnknownCategory):
		return "unknown_category"
	case errors.Is(err, leaderboard.ErrUnsupportedDimension):
		return "unsupported_dimension"
	case errors.Is(err, filter.ErrInvalidScope):
		return "invalid_scope"
	case errors.Is(err, leaderboard.ErrInvalidPagination):
		return "invalid_pagination"
	case errors.Is(err, leaderboard.ErrInvalidQuery):
		return "invalid_query"
	case errors.Is(err, leaderboard.ErrNotRanked):
		return "not_ranked"
	case errors.Is(err, leaderboard.ErrMissingMetric):
		return "missing_metric"
	default:
		return "internal"
	}
}
