package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	diagnostics Pinger
}

func NewHealthHandler(diagnostics Pinger) *HealthHandler {
	return &HealthHandler{diagnostics: diagnostics}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.diagnostics.Ping(ctx); err != nil {
		checks["diagnostics_db"] = "unhealthy: " + err.Error()
	} else {
		checks["diagnostics_db"] = "healthy"
	}

	checks["encoder"] = "healthy"

	status := "healthy"
	for _, check := range checks {
		if strings.HasPrefix(check, "unhealthy") {
			status = "degraded"
			break
		}
	}

	response := struct {
		Status    string            `json:"status"`
		Timestamp int64             `json:"timestamp"`
		Checks    map[string]string `json:"checks"`
	}{
		Status:    status,
		Timestamp: time.Now().Unix(),
		Checks:    checks,
	}

	statusCode := http.StatusOK
	if status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}
