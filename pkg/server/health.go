package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// healthHandler returns the liveness status of the server.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "alive",
		"uptime": time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// readyHandler reports whether the database answers and migrations have
// run. Leader status is informational and does not gate readiness.
func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	initialLoadDone := s.initialLoadDone
	s.mu.RUnlock()

	allReady := true

	dbStatus := map[string]string{"status": "up"}
	if s.db == nil {
		dbStatus["status"] = "not_configured"
		allReady = false
	} else if sqlDB, err := s.db.DB(); err != nil {
		dbStatus["status"] = "down"
		dbStatus["error"] = err.Error()
		allReady = false
	} else if err := sqlDB.PingContext(r.Context()); err != nil {
		dbStatus["status"] = "down"
		dbStatus["error"] = err.Error()
		allReady = false
	}

	initialLoadStatus := map[string]string{"status": "complete"}
	if !initialLoadDone {
		initialLoadStatus["status"] = "pending"
		allReady = false
	}

	leaderStatus := map[string]string{"status": "follower"}
	switch {
	case !s.haConfig.LeaderElectionEnabled:
		leaderStatus["status"] = "not_configured"
	case s.elector.IsLeader():
		leaderStatus["status"] = "leader"
	}

	status, code := "ready", http.StatusOK
	if !allReady {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status": status,
		"components": map[string]any{
			"database":        dbStatus,
			"initial_load":    initialLoadStatus,
			"leader_election": leaderStatus,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
