package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/standings/internal/domain/leaderboard"
	"github.com/okian/standings/internal/domain/ranking"
	"github.com/okian/standings/internal/domain/types"
)

const defaultRadius = 2

// NeighborsDependencies defines the interface for "around me" lookups.
type NeighborsDependencies interface {
	PageSizer
	Neighbors(ctx context.Context, q leaderboard.Query, entityID string, radius int) ([]ranking.RankedEntity, error)
}

// NeighborsHandler handles neighbor requests.
type NeighborsHandler struct {
	deps NeighborsDependencies
}

// NewNeighborsHandler creates a new neighbors handler.
func NewNeighborsHandler(deps NeighborsDependencies) *NeighborsHandler {
	return &NeighborsHandler{deps: deps}
}

// HandleGetNeighbors handles GET /neighbors/{id}?radius=N requests.
// The radius is capped so a response never exceeds two pages.
func (h *NeighborsHandler) HandleGetNeighbors(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_neighbors"
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeFailure(r.Context(), w, NewKind(op, ErrBadRequest))
		return
	}
	q, err := parseQuery(r, h.deps)
	if err != nil {
		writeFailure(r.Context(), w, Wrap(op, err))
		return
	}
	radius, err := intParam(r.URL.Query(), paramRadius, defaultRadius)
	if err != nil {
		writeFailure(r.Context(), w, Wrap(op, err))
		return
	}
	if _, maxSize := h.deps.PageSizes(); radius > maxSize {
		writeFailure(r.Context(), w, WrapKind(op, ErrBadRequest, fmt.Errorf("radius %d exceeds %d", radius, maxSize)))
		return
	}
	out, err := h.deps.Neighbors(r.Context(), q, id, radius)
	if err != nil {
		writeFailure(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, types.NewEntries(out))
}
