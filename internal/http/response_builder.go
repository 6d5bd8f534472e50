package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"costs/internal/core"
	"costs/internal/log"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrInvalidInput), errors.Is(err, core.ErrUnknownCurrency):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrRatesUnavailable), errors.Is(err, core.ErrInvalidRate):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err and writes it as a JSON error. Internal failures are
// reported without details.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	msg := err.Error()
	logger := log.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed",
			log.FieldPath, r.URL.Path, log.FieldStatusCode, status, log.FieldError, err)
		if status == http.StatusInternalServerError {
			msg = http.StatusText(status)
		}
	} else {
		logger.WarnContext(r.Context(), "Request rejected",
			log.FieldPath, r.URL.Path, log.FieldStatusCode, status, log.FieldError, err)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}
