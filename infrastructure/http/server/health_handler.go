package server

import (
	"net/http"

	"traceforge/observability"
)

type HealthResponse struct {
	Status string                         `json:"status"`
	Stats  *observability.MonitoringStats `json:"stats,omitempty"`
}

func (s *Server) Health(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if s.deps.Monitoring != nil {
		stats := s.deps.Monitoring.GetLatest()
		resp.Stats = &stats
	}
	writeJSON(w, http.StatusOK, resp)
}
