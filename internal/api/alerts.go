package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/smartegg/smartegg-core/internal/alert"
)

// markAllReadRequest is the optional body of PUT /alerts/read-all.
type markAllReadRequest struct {
	IncubationID string `json:"incubationId"`
}

// handleListAlerts returns the user's alerts, newest first, filtered by
// ?read=, ?severity= and ?incubationId=.
func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter alert.Filter

	if raw := q.Get("read"); raw != "" {
		read, err := strconv.ParseBool(raw)
		if err != nil {
			writeBadRequest(w, "read must be true or false")
			return
		}
		filter.Read = &read
	}
	if raw := q.Get("severity"); raw != "" {
		filter.Severity = alert.Severity(raw)
		if !filter.Severity.Valid() {
			writeBadRequest(w, "severity must be info, warning or critical")
			return
		}
	}
	filter.IncubationID = q.Get("incubationId")

	alerts, err := s.alerts.List(r.Context(), userIDFromContext(r.Context()), filter)
	if err != nil {
		s.writeDomainError(w, err, "failed to list alerts")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// handleMarkAlertRead marks one of the user's alerts as read.
func (s *Server) handleMarkAlertRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeBadRequest(w, "alert id must be an integer")
		return
	}

	a, err := s.alerts.MarkRead(r.Context(), id, userIDFromContext(r.Context()))
	if err != nil {
		s.writeDomainError(w, err, "failed to mark alert read")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alert": a})
}

// handleMarkAllAlertsRead marks every unread alert read, optionally for one incubation.
func (s *Server) handleMarkAllAlertsRead(w http.ResponseWriter, r *http.Request) {
	var req markAllReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	n, err := s.alerts.MarkAllRead(r.Context(), userIDFromContext(r.Context()), req.IncubationID)
	if err != nil {
		s.writeDomainError(w, err, "failed to mark alerts read")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": n})
}
