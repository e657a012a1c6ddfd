package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// Change kinds accepted by the hook endpoint.
const (
	KindCreated = "created"
	KindEdited  = "edited"
	KindDeleted = "deleted"
)

// PostHooks receives post change notifications from the forum.
type PostHooks interface {
	OnPostCreated(ctx context.Context, postID int64) error
	OnPostEdited(ctx context.Context, postID int64) error
	OnPostDeleted(ctx context.Context, postID int64) error
}

type hookResponse struct {
	PostID int64  `json:"post_id"`
	Kind   string `json:"kind"`
	Status string `json:"status"`
}

// HooksHandler turns webhook calls into change notifications.
type HooksHandler struct {
	hooks PostHooks
}

// NewHooksHandler creates a hooks handler.
func NewHooksHandler(hooks PostHooks) *HooksHandler {
	return &HooksHandler{hooks: hooks}
}

// HandlePostChange handles POST /hooks/posts/{post_id}?kind=created|edited|deleted.
// The change is queued, so success is 202 and says nothing about the outcome.
func (h *HooksHandler) HandlePostChange(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_change"
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	raw := strings.TrimPrefix(r.URL.Path, "/hooks/posts/")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	kind := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("kind")))
	var notify func(context.Context, int64) error
	switch kind {
	case KindCreated:
		notify = h.hooks.OnPostCreated
	case KindEdited:
		notify = h.hooks.OnPostEdited
	case KindDeleted:
		notify = h.hooks.OnPostDeleted
	default:
		writeError(w, http.StatusBadRequest, "bad_request",
			WrapKind(op, ErrBadRequest, errors.New("kind must be created, edited or deleted")))
		return
	}

	if err := notify(r.Context(), id); err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	}
	writeJSON(w, http.StatusAccepted, hookResponse{PostID: id, Kind: kind, Status: "accepted"})
}
