package service

import (
	"time"

	"github.com/okian/standings/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of sync worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the sync update queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many update IDs are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCategories sets the rankable categories by name. Aliases such as
// "streak" are accepted.
func WithCategories(categories ...string) Option {
	return func(s *Service) {
		if len(categories) > 0 {
			s.categories = append([]string(nil), categories...)
		}
	}
}

// WithScopeDimensions sets the attribute names usable as scopes.
func WithScopeDimensions(dimensions ...string) Option {
	return func(s *Service) {
		if len(dimensions) > 0 {
			s.scopeDimensions = append([]string(nil), dimensions...)
		}
	}
}

// WithOverallWeights sets the weights used to derive overallScore.
func WithOverallWeights(weights map[string]float64) Option {
	return func(s *Service) {
		if len(weights) > 0 {
			s.overallWeights = weights
		}
	}
}

// WithSnapshotInterval sets how often the store publishes snapshots.
func WithSnapshotInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.snapshotInterval = d
		}
	}
}

// WithRolloverInterval closes the ranking period every d. Zero disables it.
func WithRolloverInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.rolloverInterval = d
		}
	}
}

// WithSeedFile loads a YAML population on Start.
func WithSeedFile(path string) Option {
	return func(s *Service) {
		s.seedFile = path
	}
}

// WithPageSizes sets the default and maximum page sizes reported to callers.
func WithPageSizes(def, maxSize int) Option {
	return func(s *Service) {
		if def > 0 {
			s.defaultPageSize = def
		}
		if maxSize > 0 {
			s.maxPageSize = maxSize
		}
	}
}
