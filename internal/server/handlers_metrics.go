package server

import (
	"encoding/json"
	"net/http"

	"github.com/fsilva7456/commlink/internal/types"
)

func (s *Server) handleAppendMetric(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runPathID(w, r)
	if !ok {
		return
	}

	var req types.AppendMetricRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	m, err := s.aggregator.Append(r.Context(), id, req.Epoch, req.Loss, req.TrajectoryError)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusCreated, m)
}

func (s *Server) handleListMetrics(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runPathID(w, r)
	if !ok {
		return
	}

	series, err := s.store.ListMetrics(r.Context(), id)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"metrics": series,
		"count":   len(series),
	})
}

// handleBestScore reports the lowest trajectory error seen for a run;
// best_score is null until the first metric arrives.
func (s *Server) handleBestScore(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runPathID(w, r)
	if !ok {
		return
	}

	best, err := s.aggregator.BestScore(r.Context(), id)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"best_score": best,
	})
}
