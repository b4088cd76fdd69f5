package http

import (
	"net/http"
)

func (s *Server) GetInvitationMetrics(w http.ResponseWriter, r *http.Request) {
	series, err := s.metricsService.GetInvitationSeries(r.Context(), seriesRequestFrom(r))
	if err != nil {
		writeError(s.logger, w, err)
		return
	}

	writeJSON(s.logger, w, http.StatusOK, series)
}

// GetInvitationRollups devolve os rollups persistidos sem rodar o pipeline.
func (s *Server) GetInvitationRollups(w http.ResponseWriter, r *http.Request) {
	rollups, err := s.metricsService.GetStoredRollups(r.Context(), seriesRequestFrom(r))
	if err != nil {
		writeError(s.logger, w, err)
		return
	}

	writeJSON(s.logger, w, http.StatusOK, MapRollupsToResponse(rollups))
}
