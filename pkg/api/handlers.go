package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pipesight/pipesight/pkg/types"
)

// maxEventBody bounds the POST /api/events request body
const maxEventBody = 1 << 20

// handleListPipelines returns every known pipeline id from the durable log
func (s *Server) handleListPipelines(w http.ResponseWriter, r *http.Request) {
	ids, err := s.mon.Store().ListPipelineIDs()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list pipelines", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"pipeline_ids": ids})
}

// handleGetEvents replays the full event sequence for one pipeline from
// the durable log, falling back to the in-memory snapshot only if the
// store read fails.
func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	events, err := s.mon.Store().ReadAll(id)
	if err != nil {
		s.logger.Error().Err(err).Str("pipeline_id", id).Msg("store read failed, serving cache fallback")
		run := s.mon.Cache().Snapshot(id)
		if run == nil {
			s.writeError(w, http.StatusInternalServerError, "failed to read events", err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{
			"pipeline_id": id,
			"fallback":    true,
			"run":         run,
		})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"pipeline_id": id,
		"events":      events,
	})
}

// handleGetPipeline returns the live folded view of one run
func (s *Server) handleGetPipeline(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	run := s.mon.Cache().Snapshot(id)
	if run == nil {
		s.writeError(w, http.StatusNotFound, "unknown pipeline id", nil)
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

// handleGetState returns the full live state cache, the same view a
// streaming client receives as initial_state
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	pipelines, seq := s.mon.Cache().SnapshotAll()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"seq":       seq,
		"pipelines": pipelines,
	})
}

// handleGetStats computes the stats report on demand
func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	report, err := s.mon.Stats().Compute(time.Now().UTC())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to compute stats", err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// handlePostEvent is the remote ingestion boundary for workers running
// out of process. Accepted events are queued fire-and-forget; the 202
// only acknowledges receipt, not durability.
func (s *Server) handlePostEvent(w http.ResponseWriter, r *http.Request) {
	var event types.Event
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBody))
	if err := dec.Decode(&event); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid event payload", err)
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := event.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	s.mon.Submit(&event)
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string, err error) {
	if err != nil {
		s.logger.Error().Err(err).Msg(msg)
	}
	s.writeJSON(w, status, map[string]string{"error": msg})
}
