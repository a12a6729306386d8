package repository

import (
	"time"

	"github.com/okian/standings/internal/domain/model"
)

// Option applies a configuration option to the SnapshotStore.
type Option func(*SnapshotStore)

// WithSnapshotInterval sets how often pending writes are published.
func WithSnapshotInterval(interval time.Duration) Option {
	return func(s *SnapshotStore) {
		if interval > 0 {
			s.snapshotInterval = interval
		}
	}
}

// WithRequiredCategories sets the categories every stored entity must carry.
func WithRequiredCategories(categories ...model.Category) Option {
	return func(s *SnapshotStore) {
		if len(categories) > 0 {
			s.required = append([]model.Category(nil), categories...)
		}
	}
}

// WithClock overrides time.Now for snapshot timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *SnapshotStore) {
		if now != nil {
			s.now = now
		}
	}
}
