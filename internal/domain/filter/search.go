package filter

import (
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/okian/standings/internal/domain/model"
)

// Search keeps entities whose display name or handle contains text,
// ignoring case. Blank text returns the input slice unchanged.
func Search(entities []model.Entity, text string) []model.Entity {
	caser := cases.Fold()
	needle := fold(caser, strings.TrimSpace(text))
	if needle == "" {
		return entities
	}
	return lo.Filter(entities, func(e model.Entity, _ int) bool {
		return strings.Contains(fold(caser, e.DisplayName), needle) ||
			strings.Contains(fold(caser, e.Handle), needle)
	})
}

// fold normalizes s so that visually equal strings compare equal.
// A Caser is stateful; callers must not share one across goroutines.
func fold(caser cases.Caser, s string) string {
	return caser.String(norm.NFKC.String(s))
}

// Attributes keeps entities matching every name=value pair exactly.
// An empty map returns the input unchanged.
func Attributes(entities []model.Entity, want map[string]string) []model.Entity {
	if len(want) == 0 {
		return entities
	}
	return lo.Filter(entities, func(e model.Entity, _ int) bool {
		for k, v := range want {
			if got, ok := e.Attr(k); !ok || got != v {
				return false
			}
		}
		return true
	})
}

// ActiveBetween keeps entities last active within [from, to]. Zero bounds
// are open; with both zero the input is returned unchanged.
func ActiveBetween(entities []model.Entity, from, to time.Time) []model.Entity {
	if from.IsZero() && to.IsZero() {
		return entities
	}
	return lo.Filter(entities, func(e model.Entity, _ int) bool {
		if !from.IsZero() && e.LastActive.Before(from) {
			return false
		}
		if !to.IsZero() && e.LastActive.After(to) {
			return false
		}
		return true
	})
}

// OfKind keeps entities of the given kind. An empty kind is a no-op.
func OfKind(entities []model.Entity, kind model.Kind) []model.Entity {
	if kind == "" {
		return entities
	}
	return lo.Filter(entities, func(e model.Entity, _ int) bool {
		return e.Kind == kind
	})
}
