package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/application"
)

// APIResponse is the envelope every endpoint answers with.
type APIResponse struct {
	Success bool         `json:"success"`
	Data    any          `json:"data,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Cause     string         `json:"cause,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
}

// WriteJSON writes data inside the envelope. Success follows the status.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, status, APIResponse{Success: status < http.StatusBadRequest, Data: data})
}

// WriteError maps application errors to HTTP responses. Only the code,
// message, cause and timestamp leave the process.
func WriteError(w http.ResponseWriter, err error, logger *slog.Logger) {
	detail := ErrorDetail{
		Code:      application.ToErrorCode(err),
		Message:   "An internal error occurred",
		Timestamp: time.Now().UTC(),
	}
	status := application.ToHTTPStatus(err)

	if svcErr, ok := application.IsServiceError(err); ok {
		detail.Message = svcErr.Message
		detail.Cause = svcErr.Cause
		detail.Timestamp = svcErr.Timestamp
		detail.Details = svcErr.Details
	} else if status < http.StatusInternalServerError {
		detail.Message = err.Error()
	}

	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed",
			"code", detail.Code,
			"status", status,
			"category", application.CategorizeError(err),
			"error", err,
		)
	}

	writeEnvelope(w, status, APIResponse{Success: false, Error: &detail})
}

func writeEnvelope(w http.ResponseWriter, status int, body APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
