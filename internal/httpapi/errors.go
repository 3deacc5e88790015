// internal/httpapi/errors.go
package httpapi

import (
	"encoding/json"
	"net/http"

	apperrors "lead-qualifier/internal/common/errors"
	"lead-qualifier/internal/common/logger"
)

type APIError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	WriteJSON(w, status, newAPIError(r, code, message))
}

func newAPIError(r *http.Request, code, message string) APIError {
	var e APIError
	e.Error.Code = code
	e.Error.Message = message
	e.Error.RequestID = RequestIDFrom(r.Context())
	return e
}

// errorResponse maps a service error onto a status and a body safe to show
// to clients. Internal details stay in the log.
func errorResponse(r *http.Request, err error) (int, APIError) {
	code := apperrors.CodeOf(err)
	status := apperrors.HTTPStatus(code)

	switch status {
	case http.StatusBadRequest:
		return status, newAPIError(r, "validation_error", "Missing required fields")
	case http.StatusNotFound:
		return status, newAPIError(r, "not_found", "Lead not found")
	case http.StatusUnauthorized:
		return status, newAPIError(r, "unauthorized", "Authentication required")
	case http.StatusTooManyRequests:
		return status, newAPIError(r, "rate_limited", "Too many requests")
	case http.StatusConflict:
		return status, newAPIError(r, "lead_busy", "Lead is busy with another message, please retry")
	default:
		return http.StatusInternalServerError, newAPIError(r, "internal_error", "Internal server error")
	}
}

func writeServiceError(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	status, body := errorResponse(r, err)
	logServiceError(r, log, status, err)
	WriteJSON(w, status, body)
}

func logServiceError(r *http.Request, log logger.Logger, status int, err error) {
	fields := map[string]interface{}{
		"request_id": RequestIDFrom(r.Context()),
		"path":       r.URL.Path,
		"status":     status,
		"code":       string(apperrors.CodeOf(err)),
		"error":      err.Error(),
	}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", fields)
		return
	}
	log.Debug("request rejected", fields)
}
