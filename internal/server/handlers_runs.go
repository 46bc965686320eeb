package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/fsilva7456/commlink/internal/lifecycle"
	"github.com/fsilva7456/commlink/internal/schemas"
	"github.com/fsilva7456/commlink/internal/store"
	"github.com/fsilva7456/commlink/internal/types"
)

// runPathID extracts and parses the {id} path segment. A false return
// means the response has already been written.
func (s *Server) runPathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid id format: must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var raw struct {
		Name       string          `json:"name"`
		Config     json.RawMessage `json:"config"`
		TotalSteps int             `json:"total_steps"`
	}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	req := types.CreateRunRequest{Name: raw.Name, TotalSteps: raw.TotalSteps}
	if len(raw.Config) > 0 {
		// Schema validation runs against the raw document so unknown
		// fields are rejected before they are silently dropped.
		if err := schemas.ValidateRunConfig(raw.Config); err != nil {
			s.errorResponse(w, HTTPStatus(err), err.Error())
			return
		}
		if err := json.Unmarshal(raw.Config, &req.Config); err != nil {
			s.errorResponse(w, http.StatusBadRequest, "Invalid config: "+err.Error())
			return
		}
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	totalSteps := req.TotalSteps
	if totalSteps == 0 {
		totalSteps = types.DefaultTotalSteps
	}

	run, err := s.lifecycle.CreateRun(r.Context(), req.Name, req.Config, totalSteps)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusCreated, run)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	filters := store.RunFilters{}
	if status := r.URL.Query().Get("status"); status != "" {
		rs := types.RunStatus(status)
		if !rs.Valid() {
			s.errorResponse(w, http.StatusBadRequest, "Unknown status: "+status)
			return
		}
		filters.Status = rs
	}

	runs, err := s.store.ListRuns(r.Context(), filters)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runPathID(w, r)
	if !ok {
		return
	}

	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"run":      run,
		"activity": run.Activity(),
	})
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runPathID(w, r)
	if !ok {
		return
	}

	if err := s.lifecycle.DeleteRun(r.Context(), id); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]string{
		"message": "Run deleted",
		"id":      id.String(),
	})
}

func (s *Server) handleTransitionRun(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runPathID(w, r)
	if !ok {
		return
	}

	var req types.TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	run, err := s.lifecycle.Transition(r.Context(), id, types.RunStatus(req.Status))
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, run)
}

// handleListTransitions reports the statuses reachable from the run's
// current status, so consoles can render only the legal actions.
func (s *Server) handleListTransitions(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runPathID(w, r)
	if !ok {
		return
	}

	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	next := lifecycle.NextStatuses(run.Status)
	if next == nil {
		next = []types.RunStatus{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status": run.Status,
		"next":   next,
	})
}

func (s *Server) handleReportProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runPathID(w, r)
	if !ok {
		return
	}

	var req types.ProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	run, applied, err := s.lifecycle.ReportStepProgress(r.Context(), id, req.StepIndex, req.Fraction)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"run":     run,
		"applied": applied,
	})
}

func (s *Server) handleGetETA(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runPathID(w, r)
	if !ok {
		return
	}

	eta, err := s.lifecycle.ComputeETA(r.Context(), id)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"eta_seconds": eta,
	})
}
