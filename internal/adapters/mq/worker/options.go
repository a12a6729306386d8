package worker

import (
	"github.com/okian/standings/internal/domain/scoring"
	"github.com/okian/standings/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithScorer derives overallScore for updates that omit it. Without a
// scorer updates are stored as received.
func WithScorer(s scoring.Scorer) Option {
	return func(w *InMemoryWorker) {
		w.scorer = s
	}
}
