package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/fsilva7456/commlink/internal/feed"
	"github.com/fsilva7456/commlink/internal/types"
)

func (s *Server) handleCreateModel(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runPathID(w, r)
	if !ok {
		return
	}

	var req types.CreateModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	m, err := s.store.CreateModel(r.Context(), id, req.Version, req.CheckpointURL, req.EvalScore)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.feed.Publish(feed.Event{
		Type:     feed.Inserted,
		Table:    feed.TableModels,
		EntityID: m.RunID,
		Record:   m,
	})

	s.jsonResponse(w, http.StatusCreated, m)
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runPathID(w, r)
	if !ok {
		return
	}

	models, err := s.store.ListModels(r.Context(), id)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"models": models,
		"count":  len(models),
	})
}

func (s *Server) handleCreateEpisode(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runPathID(w, r)
	if !ok {
		return
	}

	var req types.CreateEpisodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	scenarioID, err := uuid.Parse(req.ScenarioID)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid scenario_id format: must be a valid UUID")
		return
	}

	if _, err := s.store.GetScenario(r.Context(), scenarioID); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	e, err := s.store.CreateEpisode(r.Context(), id, scenarioID, req.DataURL, req.Frames)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.feed.Publish(feed.Event{
		Type:     feed.Inserted,
		Table:    feed.TableEpisodes,
		EntityID: e.RunID,
		Record:   e,
	})

	s.jsonResponse(w, http.StatusCreated, e)
}

func (s *Server) handleListEpisodes(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runPathID(w, r)
	if !ok {
		return
	}

	episodes, err := s.store.ListEpisodes(r.Context(), id)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"episodes": episodes,
		"count":    len(episodes),
	})
}

func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	scenarios, err := s.store.ListScenarios(r.Context())
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"scenarios": scenarios,
		"count":     len(scenarios),
	})
}

func (s *Server) handleGetScenario(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runPathID(w, r)
	if !ok {
		return
	}

	sc, err := s.store.GetScenario(r.Context(), id)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, sc)
}
