package repository_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/standings/internal/adapters/repository"
	"github.com/okian/standings/internal/domain/model"
)

func newEntity(id string, rating float64) model.Entity {
	return model.Entity{
		ID:          id,
		Kind:        model.KindUser,
		DisplayName: "user " + id,
		Attributes:  map[string]string{model.AttrCountry: "NL"},
		Metrics:     model.Metrics{model.CategoryRating: rating},
	}
}

func newStore(t *testing.T, opts ...repository.Option) *repository.SnapshotStore {
	t.Helper()
	opts = append([]repository.Option{
		repository.WithRequiredCategories(model.CategoryRating),
		repository.WithSnapshotInterval(time.Hour),
	}, opts...)
	s := repository.NewSnapshotStore(context.Background(), opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSnapshotStore_InitialSnapshot(t *testing.T) {
	s := newStore(t)

	snap := s.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, uint64(1), snap.Version)
	assert.Zero(t, snap.Len())
	assert.NotEmpty(t, snap.ID)
}

func TestSnapshotStore_UpsertPublish(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.Upsert(ctx, newEntity("b", 10)))
	require.NoError(t, s.Upsert(ctx, newEntity("a", 20)))
	assert.Equal(t, 2, s.Count(ctx))

	before := s.Snapshot()
	assert.Zero(t, before.Len(), "writes are invisible until published")

	snap := s.Publish()
	assert.Equal(t, before.Version+1, snap.Version)
	assert.NotEqual(t, before.ID, snap.ID)
	require.Equal(t, 2, snap.Len())
	assert.Equal(t, "a", snap.Entities[0].ID)
	assert.Equal(t, "b", snap.Entities[1].ID)
	assert.Same(t, snap, s.Snapshot())
}

func TestSnapshotStore_UpsertValidates(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	err := s.Upsert(ctx, model.Entity{ID: "x", Kind: model.KindUser, Metrics: model.Metrics{}})
	require.ErrorIs(t, err, model.ErrMissingMetric)

	err = s.Upsert(ctx, model.Entity{ID: "", Kind: model.KindUser})
	require.ErrorIs(t, err, model.ErrInvalidEntity)

	assert.Zero(t, s.Count(ctx))
}

func TestSnapshotStore_SnapshotsAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	e := newEntity("a", 1)
	require.NoError(t, s.Upsert(ctx, e))
	e.Metrics[model.CategoryRating] = 99 // caller keeps mutating its copy
	snap := s.Publish()
	assert.Equal(t, 1.0, snap.Entities[0].Metrics[model.CategoryRating])

	require.NoError(t, s.Upsert(ctx, newEntity("a", 5)))
	s.Publish()
	assert.Equal(t, 1.0, snap.Entities[0].Metrics[model.CategoryRating], "old snapshot must not change")

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	got.Metrics[model.CategoryRating] = -1
	again, _ := s.Get(ctx, "a")
	assert.Equal(t, 5.0, again.Metrics[model.CategoryRating])
}

func TestSnapshotStore_Rollover(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.Upsert(ctx, newEntity("a", 10)))
	require.NoError(t, s.Upsert(ctx, newEntity("b", 20)))

	n, err := s.Rollover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	snap := s.Snapshot()
	require.Equal(t, 2, snap.Len())
	assert.Equal(t, 10.0, snap.Entities[0].PriorMetrics[model.CategoryRating])

	// A later update without prior metrics keeps the rolled prior.
	require.NoError(t, s.Upsert(ctx, newEntity("a", 30)))
	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 30.0, got.Metrics[model.CategoryRating])
	assert.Equal(t, 10.0, got.PriorMetrics[model.CategoryRating])
}

func TestSnapshotStore_Remove(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.Upsert(ctx, newEntity("a", 1)))
	require.NoError(t, s.Remove(ctx, "a"))
	require.ErrorIs(t, s.Remove(ctx, "a"), repository.ErrNotFound)
	_, err := s.Get(ctx, "a")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSnapshotStore_PeriodicPublish(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, repository.WithSnapshotInterval(5*time.Millisecond))

	require.NoError(t, s.Upsert(ctx, newEntity("a", 1)))
	require.Eventually(t, func() bool { return s.Snapshot().Len() == 1 }, time.Second, 5*time.Millisecond)
}

func TestSnapshotStore_Close(t *testing.T) {
	ctx := context.Background()
	s := repository.NewSnapshotStore(ctx, repository.WithRequiredCategories(model.CategoryRating))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	require.ErrorIs(t, s.Upsert(ctx, newEntity("a", 1)), repository.ErrClosed)
	_, err := s.Rollover(ctx)
	require.ErrorIs(t, err, repository.ErrClosed)
	assert.NotNil(t, s.Snapshot())
}

func TestSnapshotStore_ConcurrentReadersSeeWholeVersions(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var last uint64
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := s.Snapshot()
				assert.GreaterOrEqual(t, snap.Version, last)
				last = snap.Version
			}
		}()
	}
	for i := 0; i < 200; i++ {
		require.NoError(t, s.Upsert(ctx, newEntity(fmt.Sprintf("u%03d", i), float64(i))))
		if i%20 == 0 {
			s.Publish()
		}
	}
	close(stop)
	wg.Wait()
	assert.Equal(t, 200, s.Publish().Len())
}

func TestLoadSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
entities:
  - id: u1
    kind: user
    display_name: Ada
    handle: ada
    attributes:
      country: GB
      college: Cambridge
    metrics:
      rating: 1900
      problemsSolved: 120
    prior_metrics:
      rating: 1850
  - id: t1
    kind: team
    display_name: Lambdas
    metrics:
      rating: 2100
`), 0o600))

	got, err := repository.LoadSeed(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "u1", got[0].ID)
	assert.Equal(t, model.KindUser, got[0].Kind)
	assert.Equal(t, "Cambridge", got[0].Attributes[model.AttrCollege])
	assert.Equal(t, 120.0, got[0].Metrics[model.CategoryProblemsSolved])
	assert.Equal(t, 1850.0, got[0].PriorMetrics[model.CategoryRating])
	assert.Equal(t, model.KindTeam, got[1].Kind)
	assert.Nil(t, got[1].PriorMetrics)

	_, err = repository.LoadSeed(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, repository.ErrSeed)
}
