// Package filter narrows an entity population before it is ranked.
package filter

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/okian/standings/internal/domain/model"
)

// ScopeKind selects how a Scope narrows the population.
type ScopeKind string

// Scope kinds.
const (
	ScopeGlobal    ScopeKind = "global"
	ScopeAttribute ScopeKind = "attribute"
	ScopeFriends   ScopeKind = "friends"
)

// Scope is the sub-population a ranking is computed over.
type Scope struct {
	Kind      ScopeKind
	Dimension string
	Value     string
	ViewerID  string
	FriendIDs []string
}

// Global ranks the whole population.
func Global() Scope { return Scope{Kind: ScopeGlobal} }

// ByAttribute keeps entities whose attribute dimension equals value.
func ByAttribute(dimension, value string) Scope {
	return Scope{Kind: ScopeAttribute, Dimension: dimension, Value: value}
}

// Country, College and Team are ByAttribute shorthands.
func Country(value string) Scope { return ByAttribute(model.AttrCountry, value) }
func College(value string) Scope { return ByAttribute(model.AttrCollege, value) }
func Team(value string) Scope    { return ByAttribute(model.AttrTeamID, value) }

// Friends keeps the viewer and their friends.
func Friends(viewerID string, friendIDs ...string) Scope {
	return Scope{Kind: ScopeFriends, ViewerID: viewerID, FriendIDs: friendIDs}
}

// String renders the scope in the form accepted by ParseScope.
func (s Scope) String() string {
	switch s.Kind {
	case ScopeAttribute:
		return s.Dimension + ":" + s.Value
	case ScopeFriends:
		return string(ScopeFriends)
	default:
		return string(ScopeGlobal)
	}
}

// dimensionAliases maps short query-string names onto attribute keys.
var dimensionAliases = map[string]string{
	"team":    model.AttrTeamID,
	"teamid":  model.AttrTeamID,
	"country": model.AttrCountry,
	"college": model.AttrCollege,
}

// ParseScope parses "global", "friends" or "<dimension>:<value>".
// viewerID and friendIDs are only used for the friends scope.
func ParseScope(raw, viewerID string, friendIDs []string) (Scope, error) {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "", string(ScopeGlobal):
		return Global(), nil
	case string(ScopeFriends):
		if strings.TrimSpace(viewerID) == "" {
			return Scope{}, fmt.Errorf("%w: friends scope requires a viewer", ErrInvalidScope)
		}
		return Friends(viewerID, friendIDs...), nil
	}
	dim, value, ok := strings.Cut(raw, ":")
	if !ok {
		return Scope{}, fmt.Errorf("%w: %q", ErrUnsupportedDimension, raw)
	}
	dim = strings.TrimSpace(dim)
	if alias, found := dimensionAliases[strings.ToLower(dim)]; found {
		dim = alias
	}
	value = strings.TrimSpace(value)
	if dim == "" || value == "" {
		return Scope{}, fmt.Errorf("%w: %q", ErrInvalidScope, raw)
	}
	return ByAttribute(dim, value), nil
}

// ScopeOption applies a configuration option to the ScopeFilter.
type ScopeOption func(*ScopeFilter)

// WithDimensions replaces the recognized attribute dimensions.
func WithDimensions(dimensions ...string) ScopeOption {
	return func(f *ScopeFilter) {
		if len(dimensions) == 0 {
			return
		}
		f.dimensions = lo.SliceToMap(dimensions, func(d string) (string, struct{}) {
			return d, struct{}{}
		})
	}
}

// ScopeFilter applies scopes against a fixed set of recognized dimensions.
type ScopeFilter struct {
	dimensions map[string]struct{}
}

// NewScopeFilter recognizes country, college and teamId unless overridden.
func NewScopeFilter(opts ...ScopeOption) *ScopeFilter {
	f := &ScopeFilter{}
	WithDimensions(model.AttrCountry, model.AttrCollege, model.AttrTeamID)(f)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Validate checks a scope without touching any entities.
func (f *ScopeFilter) Validate(s Scope) error {
	switch s.Kind {
	case ScopeGlobal, "":
		return nil
	case ScopeAttribute:
		if _, ok := f.dimensions[s.Dimension]; !ok {
			return fmt.Errorf("%w: %q", ErrUnsupportedDimension, s.Dimension)
		}
		return nil
	case ScopeFriends:
		if strings.TrimSpace(s.ViewerID) == "" {
			return fmt.Errorf("%w: friends scope requires a viewer", ErrInvalidScope)
		}
		return nil
	default:
		return fmt.Errorf("%w: scope kind %q", ErrUnsupportedDimension, s.Kind)
	}
}

// Apply returns the entities inside scope s. The global scope returns the
// input slice itself; other scopes return a new slice. Entities lacking the
// scoped attribute are excluded.
func (f *ScopeFilter) Apply(entities []model.Entity, s Scope) ([]model.Entity, error) {
	if err := f.Validate(s); err != nil {
		return nil, err
	}
	switch s.Kind {
	case ScopeAttribute:
		return lo.Filter(entities, func(e model.Entity, _ int) bool {
			v, ok := e.Attr(s.Dimension)
			return ok && v == s.Value
		}), nil
	case ScopeFriends:
		members := lo.SliceToMap(s.FriendIDs, func(id string) (string, struct{}) {
			return id, struct{}{}
		})
		members[s.ViewerID] = struct{}{}
		return lo.Filter(entities, func(e model.Entity, _ int) bool {
			_, ok := members[e.ID]
			return ok
		}), nil
	default:
		return entities, nil
	}
}
