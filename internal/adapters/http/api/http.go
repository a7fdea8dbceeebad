// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/okian/unirank/internal/app"
	"github.com/okian/unirank/internal/domain/model"
	"github.com/okian/unirank/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// ApplyBatch applies a rating batch under the store's exclusive lock.
	ApplyBatch(ctx context.Context, batch []model.Rating) (service.BatchResult, error)

	// Read operations expose the ledger and its derived ranking.
	Scores(ctx context.Context) (*model.Ledger, error)
	TopN(ctx context.Context, n int) ([]Entry, error)
	Rank(ctx context.Context, image string) (Entry, error)

	// Presence tracks active client sessions.
	PresencePing(id string) int
	PresenceLeave(id string) int
	PresenceCount() int
}

// Entry mirrors the read shape returned by ranking queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	ratingsHandler     *RatingsHandler
	scoresHandler      *ScoresHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	presenceHandler    *PresenceHandler
}

// ServerOptions carries the request-shaping knobs handlers need.
type ServerOptions struct {
	MaxBatchSize        int
	MaxLeaderboardLimit int
	RatingsPerSecond    float64
	RatingsBurst        int
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ServerOptions) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		ratingsHandler:     NewRatingsHandler(deps, opts.MaxBatchSize),
		scoresHandler:      NewScoresHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, opts.MaxLeaderboardLimit),
		rankHandler:        NewRankHandler(deps),
		presenceHandler:    NewPresenceHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux, opts ServerOptions) {
	ratings := RateLimitMiddleware(s.ratingsHandler.HandlePostRatings, opts.RatingsPerSecond, opts.RatingsBurst)

	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/ratings", MetricsMiddleware(ratings, "ratings"))
	mux.HandleFunc("/scores", MetricsMiddleware(s.scoresHandler.HandleGetScores, "scores"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/rank/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	mux.HandleFunc("/presence", MetricsMiddleware(s.presenceHandler.HandlePresence, "presence"))
}

// statusResponse is the ack returned by POST /ratings.
type statusResponse struct {
	Message string `json:"message"`
	Applied int    `json:"applied"`
	Skipped int    `json:"skipped"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
