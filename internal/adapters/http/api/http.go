// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/standings/internal/adapters/repository"
	service "github.com/okian/standings/internal/app"
	"github.com/okian/standings/internal/domain/filter"
	"github.com/okian/standings/internal/domain/leaderboard"
	"github.com/okian/standings/internal/domain/model"
	"github.com/okian/standings/internal/domain/types"
	"github.com/okian/standings/pkg/logger"
	"github.com/okian/standings/pkg/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SyncDependencies
	LeaderboardDependencies
	RankDependencies
	NeighborsDependencies
	RolloverDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	syncHandler        *SyncHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	neighborsHandler   *NeighborsHandler
	rolloverHandler    *RolloverHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		syncHandler:        NewSyncHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps),
		rankHandler:        NewRankHandler(deps),
		neighborsHandler:   NewNeighborsHandler(deps),
		rolloverHandler:    NewRolloverHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /sync", MetricsMiddleware(s.syncHandler.HandlePostSync, "sync"))
	mux.HandleFunc("POST /rollover", MetricsMiddleware(s.rolloverHandler.HandlePostRollover, "rollover"))
	mux.HandleFunc("GET /leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("GET /rank/{id}", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	mux.HandleFunc("GET /neighbors/{id}", MetricsMiddleware(s.neighborsHandler.HandleGetNeighbors, "neighbors"))
}

// writeJSON encodes v before touching the response, so an encoding failure
// still becomes a 500 instead of a truncated success.
func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		logger.Get().Error(ctx, "failed to encode response", logger.Error(err), logger.Int("status", status))
		metrics.RecordErrorByComponent("http", "encode")
		status = http.StatusInternalServerError
		buf.Reset()
		_ = json.NewEncoder(&buf).Encode(types.ErrorResponse{Error: http.StatusText(status), Code: "internal_error"})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(ctx, w, status, types.ErrorResponse{Error: msg, Code: code})
}

// loadFailedMessage is all a caller learns about data errors; the cause is
// logged instead.
const loadFailedMessage = "couldn't load leaderboard"

// writeFailure maps a domain error onto a status code and a stable code.
func writeFailure(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, leaderboard.ErrUnknownCategory):
		writeError(ctx, w, http.StatusBadRequest, "unknown_category", err)
	case errors.Is(err, leaderboard.ErrUnsupportedDimension):
		writeError(ctx, w, http.StatusBadRequest, "unsupported_dimension", err)
	case errors.Is(err, filter.ErrInvalidScope):
		writeError(ctx, w, http.StatusBadRequest, "invalid_scope", err)
	case errors.Is(err, leaderboard.ErrInvalidPagination):
		writeError(ctx, w, http.StatusBadRequest, "invalid_pagination", err)
	case errors.Is(err, leaderboard.ErrInvalidQuery), errors.Is(err, ErrBadRequest):
		writeError(ctx, w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, model.ErrInvalidEntity):
		writeError(ctx, w, http.StatusBadRequest, "invalid_entity", err)
	case errors.Is(err, leaderboard.ErrNotRanked), errors.Is(err, repository.ErrNotFound):
		writeError(ctx, w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, ErrBackpressure), errors.Is(err, service.ErrBackpressure):
		writeError(ctx, w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, ErrUnavailable), errors.Is(err, service.ErrNotStarted):
		writeError(ctx, w, http.StatusServiceUnavailable, "unavailable", err)
	case errors.Is(err, model.ErrMissingMetric), errors.Is(err, model.ErrInvalidMetric):
		logger.Get().Error(ctx, "leaderboard data error", logger.Error(err))
		writeError(ctx, w, http.StatusInternalServerError, "data_error", errors.New(loadFailedMessage))
	default:
		logger.Get().Error(ctx, "request failed", logger.Error(err))
		writeError(ctx, w, http.StatusInternalServerError, "internal_error", nil)
	}
}
