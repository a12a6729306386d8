package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/standings/internal/domain/model"
	"github.com/okian/standings/pkg/metrics"
)

// SnapshotStore keeps the population in a map guarded by a RWMutex and
// publishes copy-on-write snapshots through an atomic pointer. Readers
// never block writers and always see one complete version.
//
// Stored maps are never mutated in place: writes swap in new Entity values.
// That is what lets a snapshot share Attributes and Metrics with the store.
type SnapshotStore struct {
	mu               sync.RWMutex
	byID             map[string]model.Entity
	version          uint64
	dirty            bool
	required         []model.Category
	snapshotInterval time.Duration
	now              func() time.Time

	snapshot atomic.Pointer[model.Snapshot]

	wg        sync.WaitGroup
	stopChan  chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
}

var _ Store = (*SnapshotStore)(nil)

// NewSnapshotStore creates a store, publishes an empty snapshot and starts
// the periodic publisher. It stops when ctx is done or Close is called.
func NewSnapshotStore(ctx context.Context, opts ...Option) *SnapshotStore {
	s := &SnapshotStore{
		byID:             make(map[string]model.Entity),
		required:         model.DefaultCategories(),
		snapshotInterval: 250 * time.Millisecond,
		now:              time.Now,
		stopChan:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Publish()
	s.startPeriodicSnapshots(ctx)
	return s
}

func (s *SnapshotStore) startPeriodicSnapshots(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.snapshotInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.publishIfDirty()
			}
		}
	}()
}

// Close stops the periodic publisher. Reads keep working afterwards; writes
// fail with ErrClosed.
func (s *SnapshotStore) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.stopChan)
	})
	s.wg.Wait()
	return nil
}

// Upsert replaces the entity with e's ID. When e carries no prior metrics
// the stored prior is kept, since prior data is owned by Rollover.
func (s *SnapshotStore) Upsert(ctx context.Context, e model.Entity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}
	if err := e.Validate(s.required); err != nil {
		return err
	}
	start := time.Now()
	e = e.Clone()

	s.mu.Lock()
	if e.PriorMetrics == nil {
		if old, ok := s.byID[e.ID]; ok {
			e.PriorMetrics = old.PriorMetrics
		}
	}
	s.byID[e.ID] = e
	s.dirty = true
	count := len(s.byID)
	s.mu.Unlock()

	metrics.RecordStoreUpdateLatency(float64(time.Since(start).Microseconds()) / 1000)
	metrics.UpdateEntitiesTotal(count)
	return nil
}

// Get returns a copy of the stored entity.
func (s *SnapshotStore) Get(_ context.Context, id string) (model.Entity, error) {
	s.mu.RLock()
	e, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return model.Entity{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.Clone(), nil
}

// Remove deletes an entity.
func (s *SnapshotStore) Remove(_ context.Context, id string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.byID, id)
	s.dirty = true
	metrics.UpdateEntitiesTotal(len(s.byID))
	return nil
}

// Rollover copies current metrics into prior metrics for every entity and
// publishes the result immediately, so no reader sees a half-rolled period.
func (s *SnapshotStore) Rollover(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s.closed.Load() {
		return 0, ErrClosed
	}
	s.mu.Lock()
	for id, e := range s.byID {
		e.PriorMetrics = e.Metrics.Clone()
		s.byID[id] = e
	}
	n := len(s.byID)
	s.dirty = true
	s.publishLocked()
	s.mu.Unlock()

	metrics.RecordRollover()
	return n, nil
}

// Snapshot returns the latest published snapshot.
func (s *SnapshotStore) Snapshot() *model.Snapshot {
	return s.snapshot.Load()
}

// Count returns the number of stored entities.
func (s *SnapshotStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Publish builds and publishes a snapshot of the current state regardless
// of pending writes, and returns it.
func (s *SnapshotStore) Publish() *model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.publishLocked()
}

func (s *SnapshotStore) publishIfDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirty {
		s.publishLocked()
	}
}

// publishLocked must be called with s.mu held for writing.
func (s *SnapshotStore) publishLocked() *model.Snapshot {
	start := time.Now()

	entities := make([]model.Entity, 0, len(s.byID))
	for _, e := range s.byID {
		entities = append(entities, e)
	}
	// Map iteration order is random; a stable order keeps snapshots
	// comparable across versions.
	slices.SortFunc(entities, func(a, b model.Entity) int { return cmp.Compare(a.ID, b.ID) })

	s.version++
	snap := &model.Snapshot{
		ID:       uuid.NewString(),
		Version:  s.version,
		TakenAt:  s.now(),
		Entities: entities,
	}
	s.snapshot.Store(snap)
	s.dirty = false

	metrics.RecordSnapshotPublished(snap.Version, snap.TakenAt.Unix(), float64(time.Since(start).Microseconds())/1000)
	return snap
}
