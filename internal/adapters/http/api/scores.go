// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/okian/unirank/internal/domain/model"
)

// ScoresDependencies defines the interface for the score query.
type ScoresDependencies interface {
	Scores(ctx context.Context) (*model.Ledger, error)
}

// ScoresHandler serves the full ledger.
type ScoresHandler struct {
	deps ScoresDependencies
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps ScoresDependencies) *ScoresHandler {
	return &ScoresHandler{deps: deps}
}

// HandleGetScores handles GET /scores requests. The ledger is returned
// verbatim; it is read without the store lock, so a response may be
// transiently stale during a concurrent batch but is never half-written.
func (h *ScoresHandler) HandleGetScores(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_scores"
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", NewKind(op, ErrBadRequest))
		return
	}
	ledger, err := h.deps.Scores(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, ledger)
}
