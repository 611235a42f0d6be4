package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/slmes-creator/job-posting/internal/middleware"
	"github.com/slmes-creator/job-posting/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps a service error to its HTTP status. Unexpected
// errors are logged and reported as a bare 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := mapError(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			"operation", r.Method+" "+r.URL.Path,
			"outcome", "failure",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
	}
	writeError(w, status, msg)
}

func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrStatusUpdate):
		return http.StatusInternalServerError, service.ErrStatusUpdate.Error()
	case errors.Is(err, service.ErrNotConfigured):
		return http.StatusInternalServerError, err.Error()
	}
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		return statusOf(svcErr.Kind), svcErr.Msg
	}
	if status := statusOf(err); status != http.StatusInternalServerError {
		return status, err.Error()
	}
	return http.StatusInternalServerError, "internal server error"
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}
