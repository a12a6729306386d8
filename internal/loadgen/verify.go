package loadgen

import (
	"errors"
	"fmt"

	"github.com/okian/standings/internal/domain/types"
)

// ErrInconsistent marks a leaderboard that is not a valid ranking.
var ErrInconsistent = errors.New("inconsistent leaderboard")

// verifyRanking checks that entries, concatenated across pages, are a
// ranking of exactly the expected IDs: ranks run 1..N with no gaps, every
// ID appears once, values never increase and equal values are ordered by
// display name then id.
func verifyRanking(entries []types.Entry, expected map[string]struct{}) error {
	if len(entries) != len(expected) {
		return fmt.Errorf("%w: %d entries, want %d", ErrInconsistent, len(entries), len(expected))
	}
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		if e.Rank != i+1 {
			return fmt.Errorf("%w: position %d has rank %d", ErrInconsistent, i+1, e.Rank)
		}
		if _, ok := expected[e.ID]; !ok {
			return fmt.Errorf("%w: unexpected entity %s", ErrInconsistent, e.ID)
		}
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("%w: entity %s ranked twice", ErrInconsistent, e.ID)
		}
		seen[e.ID] = struct{}{}
		if i == 0 {
			continue
		}
		prev := entries[i-1]
		switch {
		case e.Value > prev.Value:
			return fmt.Errorf("%w: rank %d (%v) above rank %d (%v)", ErrInconsistent, e.Rank, e.Value, prev.Rank, prev.Value)
		case e.Value == prev.Value && tieOrder(prev, e) > 0:
			return fmt.Errorf("%w: tie at %v not ordered by name then id (%s, %s)", ErrInconsistent, e.Value, prev.ID, e.ID)
		}
	}
	return nil
}

// tieOrder compares two equal-valued entries the way the server breaks ties.
func tieOrder(a, b types.Entry) int { //nolint:gocritic // hugeParam: read-only
	switch {
	case a.DisplayName < b.DisplayName:
		return -1
	case a.DisplayName > b.DisplayName:
		return 1
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	default:
		return 0
	}
}

// verifyPosition checks that a single-entity lookup agrees with the walked
// leaderboard.
func verifyPosition(pos types.Position, want types.Entry, pageSize int) error { //nolint:gocritic // hugeParam: read-only
	if pos.Entry.ID != want.ID || pos.Entry.Rank != want.Rank {
		return fmt.Errorf("%w: rank lookup for %s gave %d, leaderboard has %d", ErrInconsistent, want.ID, pos.Entry.Rank, want.Rank)
	}
	if page := (want.Rank-1)/pageSize + 1; pos.Page != page {
		return fmt.Errorf("%w: %s reported on page %d, want %d", ErrInconsistent, want.ID, pos.Page, page)
	}
	return nil
}
