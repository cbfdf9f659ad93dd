package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/smartegg/smartegg-core/internal/incubation"
)

// handleListIncubations returns the user's incubations, newest first.
func (s *Server) handleListIncubations(w http.ResponseWriter, r *http.Request) {
	incs, err := s.incubations.ListByUser(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		s.writeDomainError(w, err, "failed to list incubations")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"incubations": incs,
		"count":       len(incs),
	})
}

// handleCreateIncubation starts a new batch.
func (s *Server) handleCreateIncubation(w http.ResponseWriter, r *http.Request) {
	var req incubation.NewIncubation
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	inc, err := s.incubations.Create(r.Context(), userIDFromContext(r.Context()), req)
	if err != nil {
		s.writeDomainError(w, err, "failed to create incubation")
		return
	}

	s.logger.Info("incubation created", "incubation_id", inc.ID, "eggs", inc.NumberOfEggs)
	writeJSON(w, http.StatusCreated, map[string]any{"incubation": inc})
}

// handleGetIncubation returns one incubation with its derived day and stage.
func (s *Server) handleGetIncubation(w http.ResponseWriter, r *http.Request) {
	inc, err := s.incubations.Get(r.Context(), chi.URLParam(r, "id"), userIDFromContext(r.Context()))
	if err != nil {
		s.writeDomainError(w, err, "failed to get incubation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"incubation": inc})
}

// handleUpdateIncubation applies a merge-patch.
func (s *Server) handleUpdateIncubation(w http.ResponseWriter, r *http.Request) {
	var patch incubation.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	inc, err := s.incubations.Update(r.Context(), chi.URLParam(r, "id"), userIDFromContext(r.Context()), patch)
	if err != nil {
		s.writeDomainError(w, err, "failed to update incubation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"incubation": inc})
}

// handleDeleteIncubation removes an incubation and everything it owns.
func (s *Server) handleDeleteIncubation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.incubations.Delete(r.Context(), id, userIDFromContext(r.Context())); err != nil {
		s.writeDomainError(w, err, "failed to delete incubation")
		return
	}

	s.logger.Info("incubation deleted", "incubation_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// handleIncubationStats returns reading and alert aggregates.
func (s *Server) handleIncubationStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.incubations.Stats(r.Context(), chi.URLParam(r, "id"), userIDFromContext(r.Context()))
	if err != nil {
		s.writeDomainError(w, err, "failed to compute incubation stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
