package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/okian/standings/internal/domain/model"
	"github.com/okian/standings/internal/domain/types"
)

// maxSyncBody bounds a single sync request.
const maxSyncBody = 1 << 20

// SyncDependencies defines the interface for sync ingestion.
type SyncDependencies interface {
	// Enqueue accepts an update for async application. duplicate reports
	// that the update ID was already seen.
	Enqueue(ctx context.Context, u model.Update) (duplicate bool, err error)
}

// SyncHandler handles sync requests from the upstream collaborator.
type SyncHandler struct {
	deps SyncDependencies
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(deps SyncDependencies) *SyncHandler {
	return &SyncHandler{deps: deps}
}

// HandlePostSync handles POST /sync requests. The response is 202 when the
// update is queued, 200 when it is a duplicate and 429 when the queue is
// full. A request without update_id gets a generated one, echoed back.
func (h *SyncHandler) HandlePostSync(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_sync"
	var req types.SyncRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSyncBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeFailure(r.Context(), w, WrapKind(op, ErrBadRequest, err))
		return
	}

	if req.UpdateID == "" {
		req.UpdateID = uuid.NewString()
	}
	u := model.Update{
		UpdateID:   req.UpdateID,
		Entity:     req.Entity.ToModel(),
		ReceivedAt: time.Now(),
	}
	duplicate, err := h.deps.Enqueue(r.Context(), u)
	if err != nil {
		writeFailure(r.Context(), w, Wrap(op, err))
		return
	}
	if duplicate {
		writeJSON(r.Context(), w, http.StatusOK, types.SyncResponse{Status: "duplicate", UpdateID: req.UpdateID})
		return
	}
	writeJSON(r.Context(), w, http.StatusAccepted, types.SyncResponse{Status: "accepted", UpdateID: req.UpdateID})
}
