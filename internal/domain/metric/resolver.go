// Package metric maps an entity and a category to a single comparable value.
package metric

import (
	"fmt"
	"slices"
	"strings"

	"github.com/okian/standings/internal/domain/model"
)

// aliases accepts the short names used by dashboards and query strings.
var aliases = map[string]model.Category{
	"overallscore":   model.CategoryOverallScore,
	"overall":        model.CategoryOverallScore,
	"score":          model.CategoryOverallScore,
	"problemssolved": model.CategoryProblemsSolved,
	"problems":       model.CategoryProblemsSolved,
	"solved":         model.CategoryProblemsSolved,
	"rating":         model.CategoryRating,
	"currentstreak":  model.CategoryCurrentStreak,
	"streak":         model.CategoryCurrentStreak,
}

// ParseCategory normalizes a user-supplied category name. Unrecognized
// names are returned verbatim so the Resolver can reject them.
func ParseCategory(s string) model.Category {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("_", "", "-", "").Replace(key)
	if c, ok := aliases[key]; ok {
		return c
	}
	return model.Category(strings.TrimSpace(s))
}

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithCategories restricts the resolver to the given categories.
// An empty list keeps the defaults.
func WithCategories(categories ...model.Category) Option {
	return func(r *Resolver) {
		if len(categories) == 0 {
			return
		}
		r.categories = make(map[model.Category]struct{}, len(categories))
		r.ordered = r.ordered[:0]
		for _, c := range categories {
			if _, dup := r.categories[c]; dup {
				continue
			}
			r.categories[c] = struct{}{}
			r.ordered = append(r.ordered, c)
		}
	}
}

// Resolver resolves category values. It holds only its immutable category
// set, so one Resolver may be shared across goroutines.
type Resolver struct {
	categories map[model.Category]struct{}
	ordered    []model.Category
}

// NewResolver creates a resolver supporting model.DefaultCategories unless
// overridden by options.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{}
	WithCategories(model.DefaultCategories()...)(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Categories returns the configured categories in configuration order.
func (r *Resolver) Categories() []model.Category {
	return slices.Clone(r.ordered)
}

// Validate returns ErrUnknownCategory if c is not configured.
func (r *Resolver) Validate(c model.Category) error {
	if _, ok := r.categories[c]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}
	return nil
}

// Resolve returns the current value of category c for e.
func (r *Resolver) Resolve(e model.Entity, c model.Category) (float64, error) {
	return r.resolve(e.ID, e.Metrics, c)
}

// ResolvePrior returns the prior-period value of c for e. ok is false when
// the entity has no prior snapshot or the snapshot lacks c; prior data is
// optional so this is not an error.
func (r *Resolver) ResolvePrior(e model.Entity, c model.Category) (v float64, ok bool, err error) {
	if err := r.Validate(c); err != nil {
		return 0, false, err
	}
	v, ok = e.PriorMetrics[c]
	if !ok || !model.Finite(v) {
		return 0, false, nil
	}
	return v, true, nil
}

func (r *Resolver) resolve(id string, m model.Metrics, c model.Category) (float64, error) {
	if err := r.Validate(c); err != nil {
		return 0, err
	}
	v, ok := m[c]
	if !ok {
		return 0, &model.MetricError{EntityID: id, Category: c, Missing: true}
	}
	if !model.Finite(v) {
		return 0, &model.MetricError{EntityID: id, Category: c}
	}
	return v, nil
}
