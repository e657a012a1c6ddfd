package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	ical "github.com/arran4/golang-ical"

	"github.com/okian/eventdex/internal/domain/model"
)

const (
	calendarName   = "Community Events"
	calendarProdID = "-//eventdex//events//EN"
)

// HandleCalendar handles GET /events.ics. It accepts the same query
// parameters as /events.
func (h *EventsHandler) HandleCalendar(w http.ResponseWriter, r *http.Request) {
	const op = "api.calendar"
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

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(Calendar(recs).Serialize()))
}

// Calendar renders records as a published iCalendar feed, one VEVENT per
// record with a UID stable across reindexes.
func Calendar(recs []model.EventRecord) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(calendarProdID)
	cal.SetXWRCalName(calendarName)

	for _, rec := range recs {
		ev := cal.AddEvent("event-" + strconv.FormatInt(rec.PostID, 10) + "@eventdex")
		ev.SetDtStampTime(rec.IndexedAt)
		ev.SetStartAt(rec.StartsAt)
		ev.SetEndAt(rec.EndsAt)
		ev.SetSummary(rec.Title)
		if loc := location(rec); loc != "" {
			ev.SetLocation(loc)
		}
		if rec.Coordinate != nil {
			ev.SetProperty(ical.ComponentPropertyGeo,
				fmt.Sprintf("%.6f;%.6f", rec.Coordinate.Lat, rec.Coordinate.Lng))
		}
		if rec.ExternalURL != "" {
			ev.SetProperty(ical.ComponentPropertyUrl, rec.ExternalURL)
		}
		if rec.GraphicURL != "" {
			ev.SetProperty(ical.ComponentPropertyAttach, rec.GraphicURL)
		}
	}
	return cal
}

func location(rec model.EventRecord) string {
	var parts []string
	for _, p := range []string{rec.LocationName, rec.Address, rec.City, rec.State, rec.Zip} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
