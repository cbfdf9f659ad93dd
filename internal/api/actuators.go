package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/smartegg/smartegg-core/internal/actuator"
	"github.com/smartegg/smartegg-core/internal/incubation"
)

// ownedIncubation resolves the {incubationId} URL parameter for the caller.
// It writes the error response and returns nil when the lookup fails.
func (s *Server) ownedIncubation(w http.ResponseWriter, r *http.Request) *incubation.Incubation {
	inc, err := s.incubations.Get(r.Context(), chi.URLParam(r, "incubationId"), userIDFromContext(r.Context()))
	if err != nil {
		s.writeDomainError(w, err, "failed to get incubation")
		return nil
	}
	return inc
}

// handleGetActuator returns the actuator state, creating it on first access.
func (s *Server) handleGetActuator(w http.ResponseWriter, r *http.Request) {
	inc := s.ownedIncubation(w, r)
	if inc == nil {
		return
	}

	a, err := s.actuators.Get(r.Context(), inc)
	if err != nil {
		s.writeDomainError(w, err, "failed to get actuator")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"actuator": a})
}

// handleUpdateActuator merges the supplied flags into the actuator state.
func (s *Server) handleUpdateActuator(w http.ResponseWriter, r *http.Request) {
	var patch actuator.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	inc := s.ownedIncubation(w, r)
	if inc == nil {
		return
	}

	a, err := s.actuators.Update(r.Context(), inc, patch)
	if err != nil {
		s.writeDomainError(w, err, "failed to update actuator")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"actuator": a})
}

// handleTurnEggs records one egg turn.
func (s *Server) handleTurnEggs(w http.ResponseWriter, r *http.Request) {
	inc := s.ownedIncubation(w, r)
	if inc == nil {
		return
	}

	a, err := s.actuators.TurnEggs(r.Context(), inc)
	if err != nil {
		s.writeDomainError(w, err, "failed to turn eggs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"actuator": a})
}
