package loadgen

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/okian/standings/internal/domain/types"
)

var (
	countries = []string{"IN", "US", "DE", "BR", "JP", "NG", "PL", "VN"}
	colleges  = []string{"MIT", "IITB", "ETH", "USP", "UTokyo", "UNILAG"}
	kinds     = []string{"user", "user", "user", "user", "user", "user", "team", "college"}
)

// tier shapes the metric distribution: most entities are average, a few
// are elite or barely active.
type tier struct {
	solvedMin, solvedRange float64
	ratingMin, ratingRange float64
	streakMax              int
}

var tiers = []tier{
	{solvedMin: 50, solvedRange: 150, ratingMin: 1200, ratingRange: 400, streakMax: 10},  // average
	{solvedMin: 50, solvedRange: 150, ratingMin: 1200, ratingRange: 400, streakMax: 10},  // average
	{solvedMin: 50, solvedRange: 150, ratingMin: 1200, ratingRange: 400, streakMax: 10},  // average
	{solvedMin: 200, solvedRange: 300, ratingMin: 1600, ratingRange: 500, streakMax: 30}, // strong
	{solvedMin: 500, solvedRange: 500, ratingMin: 2100, ratingRange: 800, streakMax: 90}, // elite
	{solvedMin: 0, solvedRange: 50, ratingMin: 800, ratingRange: 400, streakMax: 3},      // casual
}

// Generate builds n sync requests with unique entity and update IDs. The
// same seed always yields the same metrics; IDs are random.
func Generate(seed uint64, n int) []types.SyncRequest {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	now := time.Now().UTC()
	out := make([]types.SyncRequest, n)
	for i := range out {
		t := tiers[rng.IntN(len(tiers))]
		id := uuid.NewString()
		metrics := map[string]float64{
			"problemsSolved": math.Floor(t.solvedMin + rng.Float64()*t.solvedRange),
			"rating":         math.Round(t.ratingMin + rng.Float64()*t.ratingRange),
			"currentStreak":  float64(rng.IntN(t.streakMax + 1)),
		}
		prior := make(map[string]float64, len(metrics))
		for k, v := range metrics {
			prior[k] = math.Max(0, v-math.Floor(rng.Float64()*v*0.1))
		}
		out[i] = types.SyncRequest{
			UpdateID: uuid.NewString(),
			Entity: types.EntityPayload{
				ID:          id,
				Kind:        kinds[rng.IntN(len(kinds))],
				DisplayName: fmt.Sprintf("Load %05d", i),
				Handle:      "@load" + id[:8],
				Attributes: map[string]string{
					"country": countries[rng.IntN(len(countries))],
					"college": colleges[rng.IntN(len(colleges))],
				},
				Metrics:      metrics,
				PriorMetrics: prior,
				LastActive:   now.Add(-time.Duration(rng.IntN(30*24)) * time.Hour),
			},
		}
	}
	return out
}
