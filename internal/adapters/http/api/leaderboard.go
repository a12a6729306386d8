package api

import (
	"context"
	"net/http"

	"github.com/okian/standings/internal/domain/leaderboard"
	"github.com/okian/standings/internal/domain/types"
)

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	PageSizer
	Leaderboard(ctx context.Context, q leaderboard.Query) (leaderboard.Result, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps LeaderboardDependencies
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

// HandleGetLeaderboard handles GET /leaderboard requests.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	q, err := parseQuery(r, h.deps)
	if err != nil {
		writeFailure(r.Context(), w, Wrap(op, err))
		return
	}
	res, err := h.deps.Leaderboard(r.Context(), q)
	if err != nil {
		writeFailure(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, types.NewPage(res))
}
