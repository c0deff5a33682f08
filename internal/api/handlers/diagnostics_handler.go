package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"qrgen/internal/pkg/errors"
	"qrgen/internal/platform/audit"
)

type EventSource interface {
	Recent(ctx context.Context, limit int) ([]*audit.EventRecord, error)
}

type DiagnosticsHandler struct {
	events       EventSource
	defaultLimit int
}

func NewDiagnosticsHandler(events EventSource, defaultLimit int) *DiagnosticsHandler {
	return &DiagnosticsHandler{events: events, defaultLimit: defaultLimit}
}

// List returns recent generation events, failures included. This is an
// operator view; the user-facing page never shows encoding errors.
func (h *DiagnosticsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 {
		limit = h.defaultLimit
	}

	events, err := h.events.Recent(r.Context(), limit)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load events", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(events)
}
