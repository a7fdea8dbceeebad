// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/okian/unirank/internal/adapters/repository"
	"github.com/okian/unirank/internal/app"
	"github.com/okian/unirank/internal/domain/model"
)

// RatingsDependencies defines the interface for batch ingestion.
type RatingsDependencies interface {
	ApplyBatch(ctx context.Context, batch []model.Rating) (service.BatchResult, error)
}

// RatingsHandler handles rating batch submissions.
type RatingsHandler struct {
	deps         RatingsDependencies
	maxBatchSize int
}

// NewRatingsHandler creates a new ratings handler.
func NewRatingsHandler(deps RatingsDependencies, maxBatchSize int) *RatingsHandler {
	return &RatingsHandler{deps: deps, maxBatchSize: maxBatchSize}
}

// HandlePostRatings handles POST /ratings requests. Request shape and
// rejection rules are fixed: non-POST methods and malformed or empty bodies
// are rejected before the engine is touched; per-entry validation happens
// inside the batch and never aborts it.
func (h *RatingsHandler) HandlePostRatings(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_ratings"
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", NewKind(op, ErrBadRequest))
		return
	}

	var batch []model.Rating
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if len(batch) == 0 {
		writeError(w, http.StatusBadRequest, "empty_batch", NewKind(op, ErrBadRequest))
		return
	}
	if h.maxBatchSize > 0 && len(batch) > h.maxBatchSize {
		writeError(w, http.StatusBadRequest, "batch_too_large", NewKind(op, ErrBadRequest))
		return
	}

	res, err := h.deps.ApplyBatch(r.Context(), batch)
	if err != nil {
		if errors.Is(err, repository.ErrLockTimeout) {
			writeError(w, http.StatusServiceUnavailable, "store_busy", WrapKind(op, ErrUnavailable, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Message: "ratings received",
		Applied: res.Applied,
		Skipped: res.Skipped,
	})
}
