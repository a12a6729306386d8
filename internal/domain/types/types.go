// Package types contains the JSON shapes exchanged over HTTP.
package types

import (
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/okian/standings/internal/domain/leaderboard"
	"github.com/okian/standings/internal/domain/model"
	"github.com/okian/standings/internal/domain/ranking"
)

// Entry is one row of a leaderboard.
type Entry struct {
	Rank        int               `json:"rank"`
	RankDelta   *int              `json:"rank_delta"`
	Direction   string            `json:"direction"`
	ID          string            `json:"id"`
	Kind        string            `json:"kind"`
	DisplayName string            `json:"display_name"`
	Handle      string            `json:"handle,omitempty"`
	Value       float64           `json:"value"`
	Percentile  float64           `json:"percentile"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// Page is a paginated leaderboard response.
type Page struct {
	Category        string  `json:"category"`
	Scope           string  `json:"scope"`
	Page            int     `json:"page"`
	PageSize        int     `json:"page_size"`
	TotalCount      int     `json:"total_count"`
	TotalPages      int     `json:"total_pages"`
	SnapshotID      string  `json:"snapshot_id,omitempty"`
	SnapshotVersion uint64  `json:"snapshot_version"`
	Items           []Entry `json:"items"`
}

// Position is the response for a single entity lookup.
type Position struct {
	Entry      Entry  `json:"entry"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	TotalCount int    `json:"total_count"`
	SnapshotID string `json:"snapshot_id,omitempty"`
}

// EntityPayload is the wire form of a model.Entity.
type EntityPayload struct {
	ID           string             `json:"id" yaml:"id" koanf:"id"`
	Kind         string             `json:"kind" yaml:"kind" koanf:"kind"`
	DisplayName  string             `json:"display_name" yaml:"display_name" koanf:"display_name"`
	Handle       string             `json:"handle,omitempty" yaml:"handle" koanf:"handle"`
	Attributes   map[string]string  `json:"attributes,omitempty" yaml:"attributes" koanf:"attributes"`
	Metrics      map[string]float64 `json:"metrics" yaml:"metrics" koanf:"metrics"`
	PriorMetrics map[string]float64 `json:"prior_metrics,omitempty" yaml:"prior_metrics" koanf:"prior_metrics"`
	LastActive   time.Time          `json:"last_active,omitempty" yaml:"last_active" koanf:"last_active"`
}

// SyncRequest is the body of POST /sync.
type SyncRequest struct {
	UpdateID string        `json:"update_id"`
	Entity   EntityPayload `json:"entity"`
}

// SyncResponse acknowledges a sync request.
type SyncResponse struct {
	Status   string `json:"status"`
	UpdateID string `json:"update_id"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ToModel converts the payload. An empty kind defaults to user.
func (p EntityPayload) ToModel() model.Entity {
	kind := model.Kind(strings.ToLower(strings.TrimSpace(p.Kind)))
	if kind == "" {
		kind = model.KindUser
	}
	return model.Entity{
		ID:           strings.TrimSpace(p.ID),
		Kind:         kind,
		DisplayName:  p.DisplayName,
		Handle:       p.Handle,
		Attributes:   p.Attributes,
		Metrics:      toMetrics(p.Metrics),
		PriorMetrics: toMetrics(p.PriorMetrics),
		LastActive:   p.LastActive,
	}
}

// FromModel is the inverse of ToModel.
func FromModel(e model.Entity) EntityPayload {
	return EntityPayload{
		ID:           e.ID,
		Kind:         string(e.Kind),
		DisplayName:  e.DisplayName,
		Handle:       e.Handle,
		Attributes:   e.Attributes,
		Metrics:      fromMetrics(e.Metrics),
		PriorMetrics: fromMetrics(e.PriorMetrics),
		LastActive:   e.LastActive,
	}
}

func toMetrics(in map[string]float64) model.Metrics {
	if in == nil {
		return nil
	}
	return lo.MapKeys(in, func(_ float64, k string) model.Category { return model.Category(k) })
}

func fromMetrics(in model.Metrics) map[string]float64 {
	if in == nil {
		return nil
	}
	return lo.MapKeys(in, func(_ float64, k model.Category) string { return string(k) })
}

// NewEntry converts a ranked entity into a response row.
func NewEntry(r ranking.RankedEntity) Entry {
	return Entry{
		Rank:        r.Rank,
		RankDelta:   r.RankDelta,
		Direction:   string(r.Direction),
		ID:          r.ID,
		Kind:        string(r.Kind),
		DisplayName: r.DisplayName,
		Handle:      r.Handle,
		Value:       r.Value,
		Percentile:  r.Percentile,
		Attributes:  r.Attributes,
	}
}

// NewEntries converts a slice of ranked entities.
func NewEntries(rs []ranking.RankedEntity) []Entry {
	return lo.Map(rs, func(r ranking.RankedEntity, _ int) Entry { return NewEntry(r) })
}

// NewPage converts a leaderboard result into its response shape.
func NewPage(res leaderboard.Result) Page {
	return Page{
		Category:        string(res.Query.Category),
		Scope:           res.Query.Scope.String(),
		Page:            res.Page.Page,
		PageSize:        res.PageSize,
		TotalCount:      res.TotalCount,
		TotalPages:      res.TotalPages,
		SnapshotID:      res.SnapshotID,
		SnapshotVersion: res.SnapshotVersion,
		Items:           NewEntries(res.Items),
	}
}

// NewPosition converts a leaderboard position.
func NewPosition(p leaderboard.Position, pageSize int) Position {
	return Position{
		Entry:      NewEntry(p.Entry),
		Page:       p.Page,
		PageSize:   pageSize,
		TotalCount: p.TotalCount,
		SnapshotID: p.SnapshotID,
	}
}
