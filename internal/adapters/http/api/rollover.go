package api

import (
	"context"
	"net/http"
)

// RolloverDependencies defines the interface for closing a ranking period.
type RolloverDependencies interface {
	Rollover(ctx context.Context) (int, error)
}

// RolloverHandler handles rollover requests.
type RolloverHandler struct {
	deps RolloverDependencies
}

// NewRolloverHandler creates a new rollover handler.
func NewRolloverHandler(deps RolloverDependencies) *RolloverHandler {
	return &RolloverHandler{deps: deps}
}

type rolloverResponse struct {
	Status   string `json:"status"`
	Entities int    `json:"entities"`
}

// HandlePostRollover handles POST /rollover requests.
func (h *RolloverHandler) HandlePostRollover(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_rollover"
	n, err := h.deps.Rollover(r.Context())
	if err != nil {
		writeFailure(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, rolloverResponse{Status: "rolled_over", Entities: n})
}
