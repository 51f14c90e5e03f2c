// internal/common/errors/handler.go
package errors

import (
	"net/http"
	"time"
)

// Surface tells the handler which caller-facing flow produced the error.
// Storage failures surface as 4xx on submission and 5xx on reads.
type Surface int

const (
	SurfaceSubmission Surface = iota
	SurfaceRead
)

// ErrorHandler normalizes errors and maps them to HTTP statuses.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Resolve normalizes err, logs it and returns the status to send.
func (h *ErrorHandler) Resolve(surface Surface, requestID string, err error) (*StandardError, int) {
	stdErr := Normalize(err)
	status := StatusFor(surface, stdErr.Code)

	h.logger.Error("request failed", map[string]interface{}{
		"requestId":     requestID,
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"errorCategory": GetErrorCategory(stdErr.Code),
		"status":        status,
	})

	return stdErr, status
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// StatusFor maps an error code to an HTTP status for the given surface.
func StatusFor(surface Surface, code ErrorCode) int {
	switch code {
	case ErrCodeRecordNotFound:
		return http.StatusNotFound
	case ErrCodeIntakeValidationFailed, ErrCodeInvalidUpload, ErrCodeScoringFailed, ErrCodeLLMTimeout:
		return http.StatusBadRequest
	}
	if surface == SurfaceSubmission {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
