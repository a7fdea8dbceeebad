// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Presence stream timing, mirroring the polling client contract: clients
// reconnect after the stream window, the server emits only on count changes.
const (
	presenceStreamWindow = 30 * time.Second
	presencePollInterval = 500 * time.Millisecond
)

// PresenceDependencies defines the interface for session tracking.
type PresenceDependencies interface {
	PresencePing(id string) int
	PresenceLeave(id string) int
	PresenceCount() int
}

// PresenceHandler handles live user-count requests.
type PresenceHandler struct {
	deps PresenceDependencies
}

// NewPresenceHandler creates a new presence handler.
func NewPresenceHandler(deps PresenceDependencies) *PresenceHandler {
	return &PresenceHandler{deps: deps}
}

// presenceResponse is the JSON shape for ping/leave/count actions.
type presenceResponse struct {
	Count  int    `json:"count"`
	UserID string `json:"user_id,omitempty"`
}

// HandlePresence handles GET /presence?action=ping|leave|count|stream.
// Ping without a userId gets a server-assigned session id back.
func (h *PresenceHandler) HandlePresence(w http.ResponseWriter, r *http.Request) {
	const op = "api.presence"
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", NewKind(op, ErrBadRequest))
		return
	}

	action := r.URL.Query().Get("action")
	userID := r.URL.Query().Get("userId")

	switch action {
	case "stream":
		h.stream(w, r)
	case "ping":
		if userID == "" {
			userID = uuid.New().String()
		}
		writeJSON(w, http.StatusOK, presenceResponse{Count: h.deps.PresencePing(userID), UserID: userID})
	case "leave":
		if userID == "" {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		writeJSON(w, http.StatusOK, presenceResponse{Count: h.deps.PresenceLeave(userID)})
	case "", "count":
		writeJSON(w, http.StatusOK, presenceResponse{Count: h.deps.PresenceCount()})
	default:
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
	}
}

// stream serves the count as server-sent events for one reconnect window.
func (h *PresenceHandler) stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	ticker := time.NewTicker(presencePollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(presenceStreamWindow)
	defer deadline.Stop()

	emit := func(count int) {
		payload, _ := json.Marshal(presenceResponse{Count: count})
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}

	last := -1
	if count := h.deps.PresenceCount(); count != last {
		last = count
		emit(count)
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-deadline.C:
			fmt.Fprint(w, "event: reconnect\ndata: {}\n\n")
			flusher.Flush()
			return
		case <-ticker.C:
			if count := h.deps.PresenceCount(); count != last {
				last = count
				emit(count)
			}
		}
	}
}
