package rest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	domainErrors "github.com/davidleathers/applicant-trust-engine/internal/domain/errors"
	"github.com/davidleathers/applicant-trust-engine/internal/infrastructure/repository"
)

// ErrorHandler maps service and infrastructure errors to HTTP responses
type ErrorHandler struct {
	debugMode bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler() *ErrorHandler {
	return &ErrorHandler{debugMode: false}
}

// HandleError converts various error types to HTTP status, code, message
// and optional details. The request span records the error so failures
// stay correlated with their trace.
func (h *ErrorHandler) HandleError(ctx context.Context, err error) (status int, code, message, details string) {
	if err == nil {
		return http.StatusOK, "", "", ""
	}

	span := trace.SpanFromContext(ctx)
	span.RecordError(err, trace.WithAttributes(
		attribute.String("error.type", fmt.Sprintf("%T", err)),
	))

	// Domain errors carry their own status mapping
	var appErr *domainErrors.AppError
	if errors.As(err, &appErr) {
		details := ""
		if h.debugMode && appErr.Details != nil {
			detailBytes, _ := json.Marshal(appErr.Details)
			details = string(detailBytes)
		}
		return appErr.StatusCode, appErr.Code, appErr.Message, details
	}

	// Repository sentinels
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Resource not found", ""
	}
	if errors.Is(err, repository.ErrDuplicateKey) {
		return http.StatusConflict, "DUPLICATE", "Resource already exists", ""
	}

	// Context errors
	if errors.Is(err, context.Canceled) {
		return http.StatusRequestTimeout, "REQUEST_CANCELED", "Request was canceled", ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusRequestTimeout, "REQUEST_TIMEOUT", "Request timed out", ""
	}

	// JSON errors
	var jsonErr *json.SyntaxError
	if errors.As(err, &jsonErr) {
		return http.StatusBadRequest, "INVALID_JSON", "Invalid JSON syntax",
			fmt.Sprintf("Error at position %d", jsonErr.Offset)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return http.StatusBadRequest, "TYPE_MISMATCH",
			fmt.Sprintf("Invalid type for field '%s'", typeErr.Field),
			fmt.Sprintf("Expected %s but got %s", typeErr.Type, typeErr.Value)
	}

	// Network errors
	if isNetworkError(err) {
		return http.StatusBadGateway, "UPSTREAM_ERROR", "Upstream service unavailable", ""
	}

	details = ""
	if h.debugMode {
		details = err.Error()
	}

	return http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred", details
}

// IsRetryable determines if an error is worth retrying
func (h *ErrorHandler) IsRetryable(err error) bool {
	var appErr *domainErrors.AppError
	if errors.As(err, &appErr) && appErr.Retryable {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	if isNetworkError(err) {
		return true
	}

	return isDatabaseDeadlock(err)
}

func isNetworkError(err error) bool {
	errStr := strings.ToLower(err.Error())
	networkErrors := []string{
		"connection refused",
		"no such host",
		"network is unreachable",
		"connection reset by peer",
		"broken pipe",
	}

	for _, netErr := range networkErrors {
		if strings.Contains(errStr, netErr) {
			return true
		}
	}

	return false
}

func isDatabaseDeadlock(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "deadlock") ||
		strings.Contains(errStr, "lock timeout") ||
		strings.Contains(errStr, "serialization failure")
}
