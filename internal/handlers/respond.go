package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Rajat-malhotra0/draw-agent/internal/models"
	"github.com/Rajat-malhotra0/draw-agent/internal/services"
)

// Shared helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Success: false,
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch e := err.(type) {
	case *services.InvalidInputError:
		writeJSON(w, http.StatusBadRequest, errorResp("INVALID_INPUT", e.Message, r))
	case *services.ConfigurationError:
		resp := errorResp("CONFIGURATION_ERROR", e.Message, r)
		resp.Error.Hint = e.Hint
		writeJSON(w, http.StatusInternalServerError, resp)
	case *services.UpstreamError:
		writeJSON(w, http.StatusInternalServerError, errorResp("UPSTREAM_ERROR", e.Message, r))
	default:
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}

// NotFound answers unmatched routes with the standard envelope.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Route not found", r))
}
