package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/smartegg/smartegg-core/internal/ingest"
)

// defaultHistoryHours is the window used when ?hours= is omitted.
const defaultHistoryHours = 24

// handleIngest accepts one reading from a board.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingest.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	result, err := s.ingest.Ingest(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, err, "failed to store sensor data")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleLatestReading returns the most recently stored reading.
func (s *Server) handleLatestReading(w http.ResponseWriter, r *http.Request) {
	inc, err := s.incubations.Get(r.Context(), chi.URLParam(r, "incubationId"), userIDFromContext(r.Context()))
	if err != nil {
		s.writeDomainError(w, err, "failed to get incubation")
		return
	}

	reading, err := s.readings.Latest(r.Context(), inc.ID)
	if err != nil {
		s.writeDomainError(w, err, "failed to get latest reading")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reading": reading})
}

// handleReadingHistory returns readings from the last ?hours= hours.
func (s *Server) handleReadingHistory(w http.ResponseWriter, r *http.Request) {
	hours := defaultHistoryHours
	if raw := r.URL.Query().Get("hours"); raw != "" {
		h, err := strconv.Atoi(raw)
		if err != nil {
			writeBadRequest(w, "hours must be an integer")
			return
		}
		hours = h
	}

	inc, err := s.incubations.Get(r.Context(), chi.URLParam(r, "incubationId"), userIDFromContext(r.Context()))
	if err != nil {
		s.writeDomainError(w, err, "failed to get incubation")
		return
	}

	readings, err := s.readings.History(r.Context(), inc.ID, hours)
	if err != nil {
		s.writeDomainError(w, err, "failed to get reading history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"readings": readings,
		"count":    len(readings),
		"hours":    hours,
	})
}
