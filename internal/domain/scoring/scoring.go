// Package scoring derives the composite overallScore from component
// categories when a sync update does not carry one.
package scoring

import (
	"context"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/okian/standings/internal/domain/model"
)

// Option applies a configuration option to the WeightedScorer.
type Option func(*WeightedScorer)

// WithWeights replaces the component weights. Non-positive weights and the
// overall category itself are ignored.
func WithWeights(weights map[model.Category]float64) Option {
	return func(s *WeightedScorer) {
		if len(weights) == 0 {
			return
		}
		s.weights = make(map[model.Category]float64, len(weights))
		for c, w := range weights {
			if w > 0 && c != model.CategoryOverallScore {
				s.weights[c] = w
			}
		}
	}
}

// Input is the metric set to score.
type Input struct {
	EntityID string
	Metrics  model.Metrics
}

// Result contains the computed composite for an entity.
type Result struct {
	EntityID string
	Score    float64
}

// Scorer computes a composite score.
type Scorer interface {
	Score(ctx context.Context, in Input) (Result, error)
}

// WeightedScorer sums weight*value over its component categories.
type WeightedScorer struct {
	weights map[model.Category]float64
}

// DefaultWeights weighs problems solved 1, rating 0.1 and current streak 2.
func DefaultWeights() map[model.Category]float64 {
	return map[model.Category]float64{
		model.CategoryProblemsSolved: 1,
		model.CategoryRating:         0.1,
		model.CategoryCurrentStreak:  2,
	}
}

// NewWeightedScorer creates a scorer using DefaultWeights unless an option
// replaces them.
func NewWeightedScorer(opts ...Option) *WeightedScorer {
	s := &WeightedScorer{weights: DefaultWeights()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Components lists the weighted categories in a stable order.
func (s *WeightedScorer) Components() []model.Category {
	return slices.Sorted(maps.Keys(s.weights))
}

// Score returns the weighted sum. Every component must be present and
// finite; a gap is a MetricError rather than an implicit zero.
func (s *WeightedScorer) Score(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("score %s: %w", in.EntityID, err)
	}
	var total float64
	for _, c := range s.Components() {
		v, ok := in.Metrics[c]
		if !ok {
			return Result{}, &model.MetricError{EntityID: in.EntityID, Category: c, Missing: true}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Result{}, &model.MetricError{EntityID: in.EntityID, Category: c}
		}
		total += s.weights[c] * v
	}
	return Result{EntityID: in.EntityID, Score: total}, nil
}

// Apply fills overallScore on e's current metrics, and on its prior metrics
// when they have every component. Values already present are kept. The
// returned entity never shares maps with e.
func Apply(ctx context.Context, s Scorer, e model.Entity) (model.Entity, error) {
	out := e.Clone()
	if _, ok := out.Metrics[model.CategoryOverallScore]; !ok {
		res, err := s.Score(ctx, Input{EntityID: e.ID, Metrics: out.Metrics})
		if err != nil {
			return model.Entity{}, err
		}
		if out.Metrics == nil {
			out.Metrics = model.Metrics{}
		}
		out.Metrics[model.CategoryOverallScore] = res.Score
	}
	if out.PriorMetrics != nil {
		if _, ok := out.PriorMetrics[model.CategoryOverallScore]; !ok {
			// Prior data is optional, so an incomplete prior just stays
			// without an overall score.
			if res, err := s.Score(ctx, Input{EntityID: e.ID, Metrics: out.PriorMetrics}); err == nil {
				out.PriorMetrics[model.CategoryOverallScore] = res.Score
			}
		}
	}
	return out, nil
}
