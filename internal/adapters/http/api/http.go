// Package api serves the event index over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/eventdex/internal/adapters/repository"
	"github.com/okian/eventdex/internal/domain/model"
)

// DefaultMaxLimit caps ?limit when the server is built with a non-positive max.
const DefaultMaxLimit = 500

// Dependencies required by HTTP handlers.
type Dependencies interface {
	Query(ctx context.Context, q repository.Query) ([]model.EventRecord, error)
	Get(ctx context.Context, postID int64) (model.EventRecord, error)
}

// Server wires HTTP routes for the read API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	eventsHandler *EventsHandler
	hooksHandler  *HooksHandler
}

// ServerOption configures optional routes.
type ServerOption func(*Server)

// WithHooks enables POST /hooks/posts/{post_id}.
func WithHooks(hooks PostHooks) ServerOption {
	return func(s *Server) {
		if hooks != nil {
			s.hooksHandler = NewHooksHandler(hooks)
		}
	}
}

// NewServer creates a new API server with all handlers. maxLimit caps the
// number of events a single request may return.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int, opts ...ServerOption) *Server {
	if maxLimit < 1 {
		maxLimit = DefaultMaxLimit
	}
	s := &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		eventsHandler: NewEventsHandler(deps, maxLimit),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandleListEvents, "events"))
	mux.HandleFunc("/events.ics", MetricsMiddleware(s.eventsHandler.HandleCalendar, "events_ics"))
	mux.HandleFunc("/events/", MetricsMiddleware(s.eventsHandler.HandleGetEvent, "event"))
	if s.hooksHandler != nil {
		mux.HandleFunc("/hooks/posts/", MetricsMiddleware(s.hooksHandler.HandlePostChange, "post_hook"))
	}
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
