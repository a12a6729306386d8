package ranking_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/okian/standings/internal/domain/metric"
	"github.com/okian/standings/internal/domain/model"
	"github.com/okian/standings/internal/domain/ranking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// randomPopulation builds n users with heavy score and name collisions so
// the tie-break chain is exercised.
func randomPopulation(rng *rand.Rand, n int) []model.Entity {
	ids := rng.Perm(n)
	pop := make([]model.Entity, n)
	for i := range pop {
		var prior model.Metrics
		if rng.Intn(3) > 0 {
			prior = model.Metrics{model.CategoryRating: float64(rng.Intn(5))}
		}
		pop[i] = model.Entity{
			ID:           fmt.Sprintf("id-%04d", ids[i]),
			Kind:         model.KindUser,
			DisplayName:  fmt.Sprintf("name-%d", rng.Intn(4)),
			Metrics:      model.Metrics{model.CategoryRating: float64(rng.Intn(5))},
			PriorMetrics: prior,
		}
	}
	return pop
}

func TestRank_Properties(t *testing.T) {
	engine := ranking.NewEngine(metric.NewResolver())
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 50; trial++ {
		n := rng.Intn(60)
		pop := randomPopulation(rng, n)

		got, err := engine.Rank(pop, model.CategoryRating)
		require.NoError(t, err)
		require.Len(t, got, n)

		t.Run(fmt.Sprintf("permutation/%d", trial), func(t *testing.T) {
			seen := make(map[int]bool, n)
			for _, r := range got {
				assert.False(t, seen[r.Rank], "duplicate rank %d", r.Rank)
				seen[r.Rank] = true
				assert.GreaterOrEqual(t, r.Rank, 1)
				assert.LessOrEqual(t, r.Rank, n)
			}
			assert.Len(t, seen, n)
		})

		t.Run(fmt.Sprintf("ordering/%d", trial), func(t *testing.T) {
			for i := 1; i < len(got); i++ {
				a, b := got[i-1], got[i]
				assert.Equal(t, i, a.Rank)
				if a.Value != b.Value {
					assert.Greater(t, a.Value, b.Value)
					continue
				}
				if a.DisplayName != b.DisplayName {
					assert.Less(t, a.DisplayName, b.DisplayName)
					continue
				}
				assert.Less(t, a.ID, b.ID)
			}
		})

		t.Run(fmt.Sprintf("idempotent/%d", trial), func(t *testing.T) {
			again, err := engine.Rank(pop, model.CategoryRating)
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})

		t.Run(fmt.Sprintf("input order irrelevant/%d", trial), func(t *testing.T) {
			shuffled := append([]model.Entity(nil), pop...)
			rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
			again, err := engine.Rank(shuffled, model.CategoryRating)
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})

		t.Run(fmt.Sprintf("deltas/%d", trial), func(t *testing.T) {
			for _, r := range got {
				if r.PriorMetrics == nil {
					assert.Nil(t, r.RankDelta)
					assert.Equal(t, ranking.DirectionNew, r.Direction)
				} else {
					assert.NotNil(t, r.RankDelta)
				}
			}
		})
	}
}
