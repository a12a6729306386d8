// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"strings"
	"time"
)

// Sentinel kinds for entity contract violations.
var (
	ErrInvalidEntity = errors.New("invalid entity")
	ErrMissingMetric = errors.New("missing metric")
	ErrInvalidMetric = errors.New("invalid metric value")
)

// Kind tags the subject an Entity describes. All kinds share one metric
// and attribute shape; capability differences show up as absent attributes.
type Kind string

// Supported entity kinds.
const (
	KindUser    Kind = "user"
	KindTeam    Kind = "team"
	KindCollege Kind = "college"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindUser, KindTeam, KindCollege:
		return true
	default:
		return false
	}
}

// ParseKind normalizes s into a Kind. An empty string yields an empty Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if k == "" || k.Valid() {
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidEntity, s)
}

// Category names a numeric dimension entities are ranked by.
type Category string

// Built-in categories.
const (
	CategoryOverallScore   Category = "overallScore"
	CategoryProblemsSolved Category = "problemsSolved"
	CategoryRating         Category = "rating"
	CategoryCurrentStreak  Category = "currentStreak"
)

// DefaultCategories lists the categories supported out of the box.
func DefaultCategories() []Category {
	return []Category{
		CategoryOverallScore,
		CategoryProblemsSolved,
		CategoryRating,
		CategoryCurrentStreak,
	}
}

// Metrics maps a category to its value.
type Metrics map[Category]float64

// Clone returns an independent copy; nil stays nil.
func (m Metrics) Clone() Metrics {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}

// Well-known attribute dimensions.
const (
	AttrCountry  = "country"
	AttrCollege  = "college"
	AttrTeamID   = "teamId"
	AttrPlatform = "platform"
)

// Entity is one rankable subject: a user, a team or a college.
type Entity struct {
	ID          string
	Kind        Kind
	DisplayName string
	Handle      string
	Attributes  map[string]string
	Metrics     Metrics
	// PriorMetrics is the previous period's snapshot; nil marks a new entrant.
	PriorMetrics Metrics
	LastActive   time.Time
}

// Clone deep-copies the entity so snapshots never share maps with writers.
func (e Entity) Clone() Entity {
	out := e
	out.Attributes = maps.Clone(e.Attributes)
	out.Metrics = e.Metrics.Clone()
	out.PriorMetrics = e.PriorMetrics.Clone()
	return out
}

// Attr returns the attribute value and whether it is present.
func (e Entity) Attr(name string) (string, bool) {
	v, ok := e.Attributes[name]
	return v, ok
}

// Validate checks the identity fields, that every required category is
// present, and that every current and prior metric is finite. Missing
// categories are never zero-filled.
func (e Entity) Validate(required []Category) error {
	switch {
	case strings.TrimSpace(e.ID) == "":
		return fmt.Errorf("%w: missing id", ErrInvalidEntity)
	case !e.Kind.Valid():
		return fmt.Errorf("%w: entity %s has unknown kind %q", ErrInvalidEntity, e.ID, e.Kind)
	}
	for _, c := range required {
		v, ok := e.Metrics[c]
		if !ok {
			return &MetricError{EntityID: e.ID, Category: c, Missing: true}
		}
		if !Finite(v) {
			return &MetricError{EntityID: e.ID, Category: c}
		}
	}
	for _, m := range []Metrics{e.Metrics, e.PriorMetrics} {
		for c, v := range m {
			if !Finite(v) {
				return &MetricError{EntityID: e.ID, Category: c}
			}
		}
	}
	return nil
}

// Finite reports whether v is neither NaN nor an infinity.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// MetricError describes a metric contract violation on a single entity.
// It unwraps to ErrMissingMetric or ErrInvalidMetric.
type MetricError struct {
	EntityID string
	Category Category
	Missing  bool
}

func (e *MetricError) Unwrap() error {
	if e.Missing {
		return ErrMissingMetric
	}
	return ErrInvalidMetric
}

func (e *MetricError) Error() string {
	if e.Missing {
		return fmt.Sprintf("entity %s: missing metric %q", e.EntityID, e.Category)
	}
	return fmt.Sprintf("entity %s: metric %q is not a finite number", e.EntityID, e.Category)
}

// Update is one sync message delivered by the external sync collaborator.
type Update struct {
	UpdateID   string // idempotency key
	Entity     Entity
	ReceivedAt time.Time
}

// Snapshot is an immutable point-in-time view of the entity store. Each
// entity carries both current and prior metrics, so a single Snapshot is
// everything one ranking computation needs.
type Snapshot struct {
	ID       string
	Version  uint64
	TakenAt  time.Time
	Entities []Entity
}

// Len returns the number of entities; nil snapshots are empty.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Entities)
}
