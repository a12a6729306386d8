// Package leaderboard composes filtering, ranking and pagination into a
// single stateless query over a snapshot.
package leaderboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/standings/internal/domain/filter"
	"github.com/okian/standings/internal/domain/metric"
	"github.com/okian/standings/internal/domain/model"
	"github.com/okian/standings/internal/domain/paging"
	"github.com/okian/standings/internal/domain/ranking"
)

// Query describes one leaderboard view. Zero values mean "no constraint"
// except for Category, Page and PageSize.
type Query struct {
	Scope      filter.Scope
	Category   model.Category
	SearchText string
	Page       int
	PageSize   int

	Kind       model.Kind
	Attributes map[string]string
	ActiveFrom time.Time
	ActiveTo   time.Time
}

// Result is one page of a ranked view.
type Result struct {
	paging.Page[ranking.RankedEntity]

	Query           Query
	SnapshotID      string
	SnapshotVersion uint64
}

// Position locates a single entity inside a ranked view.
type Position struct {
	Entry      ranking.RankedEntity
	Page       int
	TotalCount int
	SnapshotID string
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithResolver sets the metric resolver shared by validation and ranking.
func WithResolver(r *metric.Resolver) Option {
	return func(e *Engine) {
		if r != nil {
			e.resolver = r
		}
	}
}

// WithScopeFilter sets the scope filter.
func WithScopeFilter(f *filter.ScopeFilter) Option {
	return func(e *Engine) {
		if f != nil {
			e.scopes = f
		}
	}
}

// Engine answers leaderboard queries. It keeps no per-query state and is
// safe for concurrent use.
type Engine struct {
	resolver *metric.Resolver
	scopes   *filter.ScopeFilter
	ranker   *ranking.Engine
}

// New creates a leaderboard engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		resolver: metric.NewResolver(),
		scopes:   filter.NewScopeFilter(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.ranker = ranking.NewEngine(e.resolver)
	return e
}

// Categories lists the categories this engine can rank by.
func (e *Engine) Categories() []model.Category { return e.resolver.Categories() }

// Query filters, ranks and paginates snap according to q.
func (e *Engine) Query(snap *model.Snapshot, q Query) (Result, error) {
	if err := e.validate(q, true); err != nil {
		return Result{}, err
	}
	ranked, err := e.view(snap, q)
	if err != nil {
		return Result{}, err
	}
	page, err := paging.Paginate(ranked, q.Page, q.PageSize)
	if err != nil {
		return Result{}, err
	}
	res := Result{Page: page, Query: q}
	if snap != nil {
		res.SnapshotID = snap.ID
		res.SnapshotVersion = snap.Version
	}
	return res, nil
}

// Top returns the first n entries of the view described by q. q.Page and
// q.PageSize are ignored.
func (e *Engine) Top(snap *model.Snapshot, q Query, n int) ([]ranking.RankedEntity, error) {
	q.Page, q.PageSize = 1, n
	res, err := e.Query(snap, q)
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

// Position finds entityID in the view and reports the page it falls on
// for q.PageSize.
func (e *Engine) Position(snap *model.Snapshot, q Query, entityID string) (Position, error) {
	if q.Page == 0 {
		q.Page = 1
	}
	if err := e.validate(q, true); err != nil {
		return Position{}, err
	}
	ranked, err := e.view(snap, q)
	if err != nil {
		return Position{}, err
	}
	idx := indexOf(ranked, entityID)
	if idx < 0 {
		return Position{}, fmt.Errorf("%w: %s", ErrNotRanked, entityID)
	}
	pos := Position{
		Entry:      ranked[idx],
		Page:       idx/q.PageSize + 1,
		TotalCount: len(ranked),
	}
	if snap != nil {
		pos.SnapshotID = snap.ID
	}
	return pos, nil
}

// Neighbors returns entityID together with up to radius entries on each
// side of it, in rank order. q.Page and q.PageSize are ignored.
func (e *Engine) Neighbors(snap *model.Snapshot, q Query, entityID string, radius int) ([]ranking.RankedEntity, error) {
	if radius < 0 {
		return nil, fmt.Errorf("%w: radius %d must be >= 0", ErrInvalidQuery, radius)
	}
	if err := e.validate(q, false); err != nil {
		return nil, err
	}
	ranked, err := e.view(snap, q)
	if err != nil {
		return nil, err
	}
	idx := indexOf(ranked, entityID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotRanked, entityID)
	}
	lo := max(idx-radius, 0)
	hi := min(idx+radius+1, len(ranked))
	out := make([]ranking.RankedEntity, hi-lo)
	copy(out, ranked[lo:hi])
	return out, nil
}

// validate checks the query shape before any entity is touched.
func (e *Engine) validate(q Query, paged bool) error {
	if err := e.resolver.Validate(q.Category); err != nil {
		return err
	}
	if err := e.scopes.Validate(q.Scope); err != nil {
		return err
	}
	if paged {
		if q.Page < 1 || q.PageSize < 1 {
			return fmt.Errorf("%w: page %d, page size %d", ErrInvalidPagination, q.Page, q.PageSize)
		}
	}
	if q.Kind != "" && !q.Kind.Valid() {
		return fmt.Errorf("%w: kind %q", ErrInvalidQuery, q.Kind)
	}
	for k := range q.Attributes {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("%w: empty attribute name", ErrInvalidQuery)
		}
	}
	if !q.ActiveFrom.IsZero() && !q.ActiveTo.IsZero() && q.ActiveFrom.After(q.ActiveTo) {
		return fmt.Errorf("%w: active range starts after it ends", ErrInvalidQuery)
	}
	return nil
}

// view runs the filter chain and ranks what is left. Filters run before
// ranking so ranks are relative to the filtered population.
func (e *Engine) view(snap *model.Snapshot, q Query) ([]ranking.RankedEntity, error) {
	var entities []model.Entity
	if snap != nil {
		entities = snap.Entities
	}
	entities, err := e.scopes.Apply(filter.OfKind(entities, q.Kind), q.Scope)
	if err != nil {
		return nil, err
	}
	entities = filter.Attributes(entities, q.Attributes)
	entities = filter.ActiveBetween(entities, q.ActiveFrom, q.ActiveTo)
	entities = filter.Search(entities, q.SearchText)
	return e.ranker.Rank(entities, q.Category)
}

func indexOf(ranked []ranking.RankedEntity, id string) int {
	for i := range ranked {
		if ranked[i].ID == id {
			return i
		}
	}
	return -1
}
