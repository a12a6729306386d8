package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/standings/internal/domain/leaderboard"
	"github.com/okian/standings/internal/domain/types"
)

// RankDependencies defines the interface for rank operations.
type RankDependencies interface {
	PageSizer
	Position(ctx context.Context, q leaderboard.Query, entityID string) (leaderboard.Position, error)
}

// RankHandler handles rank requests.
type RankHandler struct {
	deps RankDependencies
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps RankDependencies) *RankHandler {
	return &RankHandler{deps: deps}
}

// HandleGetRank handles GET /rank/{id} requests. It accepts the same query
// parameters as /leaderboard; page_size decides which page is reported.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rank"
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
	pos, err := h.deps.Position(r.Context(), q, id)
	if err != nil {
		writeFailure(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, types.NewPosition(pos, q.PageSize))
}
