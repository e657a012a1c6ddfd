package api

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/eventdex/internal/adapters/repository"
	"github.com/okian/eventdex/internal/domain/model"
)

// eventResponse is the flat wire shape of an indexed event.
type eventResponse struct {
	PostID       int64    `json:"post_id"`
	TopicID      int64    `json:"topic_id"`
	CategoryID   int64    `json:"category_id"`
	Visibility   string   `json:"visibility"`
	Title        string   `json:"title"`
	StartsAt     string   `json:"starts_at"`
	EndsAt       string   `json:"ends_at"`
	Timezone     string   `json:"timezone"`
	LocationName string   `json:"location_name"`
	Address      string   `json:"address"`
	City         string   `json:"city"`
	State        string   `json:"state"`
	Zip          string   `json:"zip"`
	Country      string   `json:"country"`
	Lat          *float64 `json:"lat"`
	Lng          *float64 `json:"lng"`
	ExternalURL  string   `json:"external_url"`
	GraphicURL   string   `json:"graphic_url"`
	IndexedAt    string   `json:"indexed_at,omitempty"`
}

func toResponse(rec model.EventRecord, withIndexedAt bool) eventResponse {
	out := eventResponse{
		PostID:       rec.PostID,
		TopicID:      rec.TopicID,
		CategoryID:   rec.CategoryID,
		Visibility:   string(rec.Visibility),
		Title:        rec.Title,
		StartsAt:     rec.StartsAt.Format(time.RFC3339),
		EndsAt:       rec.EndsAt.Format(time.RFC3339),
		Timezone:     rec.Timezone,
		LocationName: rec.LocationName,
		Address:      rec.Address,
		City:         rec.City,
		State:        rec.State,
		Zip:          rec.Zip,
		Country:      rec.Country,
		ExternalURL:  rec.ExternalURL,
		GraphicURL:   rec.GraphicURL,
	}
	if rec.Coordinate != nil {
		lat, lng := rec.Coordinate.Lat, rec.Coordinate.Lng
		out.Lat, out.Lng = &lat, &lng
	}
	if withIndexedAt {
		out.IndexedAt = rec.IndexedAt.UTC().Format(time.RFC3339)
	}
	return out
}

// EventsHandler serves the event index.
type EventsHandler struct {
	deps     Dependencies
	maxLimit int
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies, maxLimit int) *EventsHandler {
	return &EventsHandler{deps: deps, maxLimit: maxLimit}
}

// HandleListEvents handles GET /events?limit=&after=&include_indexed_at=.
func (h *EventsHandler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_events"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q, err := h.parseQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	recs, err := h.deps.Query(r.Context(), q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
		return
	}

	withIndexedAt := flag(r.URL.Query().Get("include_indexed_at"))
	out := make([]eventResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toResponse(rec, withIndexedAt))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGetEvent handles GET /events/{post_id}.
func (h *EventsHandler) HandleGetEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_event"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	raw := strings.TrimPrefix(r.URL.Path, "/events/")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	rec, err := h.deps.Get(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrNotFound))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
		return
	}
	writeJSON(w, http.StatusOK, toResponse(rec, flag(r.URL.Query().Get("include_indexed_at"))))
}

// parseQuery reads limit and after. A missing limit means the maximum; a
// larger one is clamped to it.
func (h *EventsHandler) parseQuery(v url.Values) (repository.Query, error) {
	q := repository.Query{Visibility: model.VisibilityPublic, Limit: h.maxLimit}

	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return q, errors.New("limit must be a positive integer")
		}
		q.Limit = min(n, h.maxLimit)
	}
	if s := v.Get("after"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return q, errors.New("after must be RFC3339")
		}
		q.After = &t
	}
	return q, nil
}

func flag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
