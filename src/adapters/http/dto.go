package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"invitationmetrics/src/domain"
	"invitationmetrics/src/domain/entities"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

type RollupDTO struct {
	Date      string    `json:"date"`
	Count     int       `json:"count"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func MapRollupsToResponse(rollups []entities.DailyRollup) []RollupDTO {
	response := make([]RollupDTO, 0, len(rollups))
	for _, rollup := range rollups {
		response = append(response, RollupDTO{
			Date:      rollup.Date,
			Count:     rollup.Count,
			Status:    rollup.Status,
			UpdatedAt: rollup.UpdatedAt,
		})
	}
	return response
}

func seriesRequestFrom(r *http.Request) domain.InvitationSeriesRequest {
	query := r.URL.Query()

	return domain.InvitationSeriesRequest{
		TenantID:  query.Get("tenantId"),
		AccountID: query.Get("accountId"),
		From:      query.Get("from"),
		To:        query.Get("to"),
	}
}

func writeJSON(logger *slog.Logger, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to write JSON response", "error", err)
	}
}

// writeError maps validation failures to 400 and everything else to a
// generic 500 that does not leak internals.
func writeError(logger *slog.Logger, w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		writeJSON(logger, w, http.StatusBadRequest, ErrorResponse{
			Error:   domain.ErrInvalidRequest.Error(),
			Details: validationErr.Error(),
		})
		return
	}

	logger.Error("Request failed", "error", err)
	writeJSON(logger, w, http.StatusInternalServerError, ErrorResponse{
		Error:   domain.ErrUnavailableServer.Error(),
		Details: "internal error",
	})
}
