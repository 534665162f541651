package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/homio-core/internal/datapoint"
	"github.com/nerrad567/homio-core/internal/state"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200

	// maxIDLen limits path parameter length.
	maxIDLen = 200
)

// datapointResponse is the JSON form of a datapoint's current value.
type datapointResponse struct {
	ID        string      `json:"id"`
	Topic     string      `json:"topic,omitempty"`
	Kind      state.Kind  `json:"kind"`
	Unit      string      `json:"unit,omitempty"`
	Value     state.Value `json:"value"`
	Display   string      `json:"display"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// historyEntry is one row of a history response.
type historyEntry struct {
	Kind       state.Kind  `json:"kind"`
	Value      state.Value `json:"value"`
	RecordedAt time.Time   `json:"recorded_at"`
}

// handleListDatapoints returns the current value of every datapoint,
// optionally filtered by ?kind=.
func (s *Server) handleListDatapoints(w http.ResponseWriter, r *http.Request) {
	var kind state.Kind
	if raw := r.URL.Query().Get("kind"); raw != "" {
		k, err := state.ParseKind(raw)
		if err != nil {
			writeBadRequest(w, "invalid kind")
			return
		}
		kind = k
	}

	samples := s.store.Snapshot()
	out := make([]datapointResponse, 0, len(samples))
	for _, sample := range samples {
		if kind != "" && sample.Value.Kind() != kind {
			continue
		}
		out = append(out, s.describe(sample))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"datapoints": out,
		"count":      len(out),
	})
}

// handleGetDatapoint returns the current value of one datapoint.
func (s *Server) handleGetDatapoint(w http.ResponseWriter, r *http.Request) {
	id, ok := datapointID(w, r)
	if !ok {
		return
	}

	sample, found := s.store.Get(id)
	if !found {
		writeNotFound(w, "datapoint not found")
		return
	}
	writeJSON(w, http.StatusOK, s.describe(sample))
}

// handleGetDatapointHistory returns recorded values, newest first.
func (s *Server) handleGetDatapointHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := datapointID(w, r)
	if !ok {
		return
	}
	if s.repo == nil {
		writeUnavailable(w, "history is not available")
		return
	}

	limit, err := parseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	samples, err := s.repo.GetHistory(r.Context(), id, limit)
	if err != nil {
		if errors.Is(err, datapoint.ErrDatapointNotFound) {
			writeNotFound(w, "datapoint not found")
			return
		}
		s.logger.Error("reading datapoint history failed", "datapoint_id", id, "error", err)
		writeInternalError(w, "failed to read history")
		return
	}

	entries := make([]historyEntry, 0, len(samples))
	for _, sample := range samples {
		entries = append(entries, historyEntry{
			Kind:       sample.Value.Kind(),
			Value:      sample.Value,
			RecordedAt: sample.Timestamp,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"datapoint_id": id,
		"entries":      entries,
		"count":        len(entries),
	})
}

// describe joins a sample with its definition.
func (s *Server) describe(sample datapoint.Sample) datapointResponse {
	resp := datapointResponse{
		ID:        sample.DatapointID,
		Kind:      sample.Value.Kind(),
		Value:     sample.Value,
		Display:   sample.Value.FullString(),
		UpdatedAt: sample.Timestamp,
	}
	if s.resolver != nil {
		if def, ok := s.resolver.Lookup(sample.DatapointID); ok {
			resp.Topic = def.Topic
			resp.Unit = def.Unit
		}
	}
	return resp
}

// datapointID extracts and validates the {id} path parameter.
func datapointID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxIDLen {
		writeBadRequest(w, "invalid datapoint ID")
		return "", false
	}
	return id, true
}

// parseHistoryLimit parses the limit query parameter.
func parseHistoryLimit(raw string) (int, error) {
	if raw == "" {
		return defaultHistoryLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit")
	}
	if limit > maxHistoryLimit {
		return 0, fmt.Errorf("limit exceeds maximum")
	}

	return limit, nil
}
