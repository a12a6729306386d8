// Package ranking orders a population by one category and derives rank
// movement against the prior period.
//
// Ordering is total: value DESC, then DisplayName ASC, then ID ASC. Ranks
// are positions 1..N in that order, so no two entities ever share a rank.
// This is deliberately not competition ranking ("1, 2, 2, 4"): equal
// scores are separated by the name and id keys instead of tying.
package ranking

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/okian/standings/internal/domain/metric"
	"github.com/okian/standings/internal/domain/model"
)

// Direction summarizes a rank delta for display.
type Direction string

// Rank directions.
const (
	DirectionUp     Direction = "up"
	DirectionDown   Direction = "down"
	DirectionStable Direction = "stable"
	DirectionNew    Direction = "new"
)

// RankedEntity is an Entity positioned within one ranking.
type RankedEntity struct {
	model.Entity

	Rank int
	// RankDelta is priorRank - Rank (positive means moved up); nil when the
	// entity was not ranked in the prior period.
	RankDelta  *int
	Direction  Direction
	Value      float64
	Percentile float64
}

// IsNew reports whether the entity has no prior rank.
func (r RankedEntity) IsNew() bool { return r.RankDelta == nil }

// Engine ranks populations using a metric.Resolver.
type Engine struct {
	resolver *metric.Resolver
}

// NewEngine creates a ranking engine. A nil resolver uses the defaults.
func NewEngine(resolver *metric.Resolver) *Engine {
	if resolver == nil {
		resolver = metric.NewResolver()
	}
	return &Engine{resolver: resolver}
}

// Resolver exposes the resolver the engine ranks with.
func (e *Engine) Resolver() *metric.Resolver { return e.resolver }

// keyed pairs an entity index with its resolved sort value.
type keyed struct {
	idx   int
	value float64
	name  string
	id    string
}

func compareKeyed(a, b keyed) int {
	if c := cmp.Compare(b.value, a.value); c != 0 {
		return c
	}
	if c := strings.Compare(a.name, b.name); c != 0 {
		return c
	}
	return strings.Compare(a.id, b.id)
}

// Rank orders entities by category and computes each entity's movement
// against its PriorMetrics ranked over the same population. Entity IDs are
// assumed unique. The input is not modified.
func (e *Engine) Rank(entities []model.Entity, category model.Category) ([]RankedEntity, error) {
	if err := e.resolver.Validate(category); err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return []RankedEntity{}, nil
	}

	current := make([]keyed, 0, len(entities))
	prior := make([]keyed, 0, len(entities))
	for i, ent := range entities {
		v, err := e.resolver.Resolve(ent, category)
		if err != nil {
			return nil, fmt.Errorf("rank by %s: %w", category, err)
		}
		current = append(current, keyed{idx: i, value: v, name: ent.DisplayName, id: ent.ID})

		pv, ok, err := e.resolver.ResolvePrior(ent, category)
		if err != nil {
			return nil, fmt.Errorf("rank prior by %s: %w", category, err)
		}
		if ok {
			prior = append(prior, keyed{idx: i, value: pv, name: ent.DisplayName, id: ent.ID})
		}
	}

	slices.SortFunc(current, compareKeyed)
	slices.SortFunc(prior, compareKeyed)

	priorRank := make(map[int]int, len(prior))
	for pos, k := range prior {
		priorRank[k.idx] = pos + 1
	}

	n := len(current)
	out := make([]RankedEntity, n)
	for pos, k := range current {
		rank := pos + 1
		re := RankedEntity{
			Entity:     entities[k.idx],
			Rank:       rank,
			Direction:  DirectionNew,
			Value:      k.value,
			Percentile: percentile(rank, n),
		}
		if pr, ok := priorRank[k.idx]; ok {
			d := pr - rank
			re.RankDelta = &d
			re.Direction = direction(d)
		}
		out[pos] = re
	}
	return out, nil
}

func direction(delta int) Direction {
	switch {
	case delta > 0:
		return DirectionUp
	case delta < 0:
		return DirectionDown
	default:
		return DirectionStable
	}
}

// percentile is 100 for the leader and 0 for the last entry.
func percentile(rank, n int) float64 {
	if n <= 1 {
		return 100
	}
	return 100 * (1 - float64(rank-1)/float64(n-1))
}
