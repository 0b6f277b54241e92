package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// maxRequestBodySize caps every JSON request body.
const maxRequestBodySize = 1 << 20 // 1MB

// RequestMeta carries per-request identity and tracing fields through the
// handler chain.
type RequestMeta struct {
	RequestID  string
	UserID     uuid.UUID
	Role       string
	TraceID    string
	SpanID     string
	ClientIP   string
	UserAgent  string
	ReceivedAt time.Time
}

// ResponseEnvelope wraps all API responses
type ResponseEnvelope struct {
	Success bool           `json:"success"`
	Data    interface{}    `json:"data,omitempty"`
	Error   *ErrorResponse `json:"error,omitempty"`
	Meta    ResponseMeta   `json:"meta"`
}

// ResponseMeta contains response metadata
type ResponseMeta struct {
	RequestID    string    `json:"request_id"`
	Timestamp    time.Time `json:"timestamp"`
	Version      string    `json:"version"`
	ResponseTime string    `json:"response_time,omitempty"`
}

// ErrorResponse provides detailed error information
type ErrorResponse struct {
	Code       string              `json:"code"`
	Message    string              `json:"message"`
	Details    string              `json:"details,omitempty"`
	Fields     map[string][]string `json:"fields,omitempty"`
	TraceID    string              `json:"trace_id,omitempty"`
	RetryAfter *time.Duration      `json:"retry_after,omitempty"`
}

// ValidationError represents a request validation failure
type ValidationError struct {
	Message string
	Details string
	Fields  map[string][]string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Context keys
type contextKey string

const (
	contextKeyRequestMeta contextKey = "request_meta"
	contextKeyUserID      contextKey = "user_id"
	contextKeyUserRole    contextKey = "user_role"
)

// BaseHandler provides parsing, validation and response writing shared by
// every endpoint.
type BaseHandler struct {
	validator    *validator.Validate
	errorHandler *ErrorHandler
	apiVersion   string
}

// NewBaseHandler creates a base handler with the domain validators registered
func NewBaseHandler(apiVersion string) *BaseHandler {
	v := validator.New()

	// Register custom validators
	v.RegisterValidation("riskscore", validateRiskScore)
	v.RegisterValidation("sha256", validateSHA256Hex)

	return &BaseHandler{
		validator:    v,
		errorHandler: NewErrorHandler(),
		apiVersion:   apiVersion,
	}
}

// decodeAndValidate parses the JSON body into v and runs struct validation.
// JSON decode errors pass through untouched so the error handler can map
// them to the right status code.
func (h *BaseHandler) decodeAndValidate(r *http.Request, v interface{}) error {
	if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		return &ValidationError{Message: "Content-Type must be application/json"}
	}

	r.Body = http.MaxBytesReader(nil, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return &ValidationError{
				Message: fmt.Sprintf("Request body too large (max %d bytes)", maxRequestBodySize),
			}
		}
		return err
	}

	if err := h.validator.Struct(v); err != nil {
		return h.formatValidationError(err)
	}

	return nil
}

// formatValidationError converts validator errors to our format
func (h *BaseHandler) formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return &ValidationError{Message: "Validation error", Details: err.Error()}
	}

	fields := make(map[string][]string)
	for _, fe := range validationErrors {
		field := fe.Field()
		tag := fe.Tag()
		param := fe.Param()

		var msg string
		switch tag {
		case "required":
			msg = "This field is required"
		case "min":
			msg = fmt.Sprintf("Minimum value is %s", param)
		case "max":
			msg = fmt.Sprintf("Maximum value is %s", param)
		case "email":
			msg = "Must be a valid email address"
		case "uuid":
			msg = "Must be a valid UUID"
		case "oneof":
			msg = fmt.Sprintf("Must be one of: %s", param)
		case "riskscore":
			msg = "Must be a score between 0.0 and 1.0"
		case "sha256":
			msg = "Must be a 64-character hexadecimal SHA-256 digest"
		case "dive":
			msg = "Invalid element"
		default:
			msg = fmt.Sprintf("Failed %s validation", tag)
		}

		fields[field] = append(fields[field], msg)
	}

	return &ValidationError{Message: "Validation failed", Fields: fields}
}

// writeSuccess writes a successful response
func (h *BaseHandler) writeSuccess(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	h.writeJSON(w, status, ResponseEnvelope{
		Success: true,
		Data:    data,
		Meta:    h.responseMeta(r),
	})
}

// writeError writes an error response
func (h *BaseHandler) writeError(w http.ResponseWriter, r *http.Request, status int, errResp *ErrorResponse) {
	meta := requestMetaFrom(r.Context())
	if errResp.TraceID == "" {
		errResp.TraceID = meta.TraceID
	}

	// Add retry-after for rate limits
	if status == http.StatusTooManyRequests && errResp.RetryAfter == nil {
		retryAfter := time.Minute
		errResp.RetryAfter = &retryAfter
		w.Header().Set("Retry-After", "60")
	}

	h.writeJSON(w, status, ResponseEnvelope{
		Success: false,
		Error:   errResp,
		Meta:    h.responseMeta(r),
	})
}

// handleError converts domain errors to HTTP responses
func (h *BaseHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		h.writeError(w, r, http.StatusBadRequest, &ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: validationErr.Message,
			Details: validationErr.Details,
			Fields:  validationErr.Fields,
		})
		return
	}

	status, code, message, details := h.errorHandler.HandleError(r.Context(), err)
	h.writeError(w, r, status, &ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	})
}

// writeJSON writes JSON response with proper headers
func (h *BaseHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)

	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(true)
	// The status line is already out; a failed encode cannot be reported
	// to the client anymore.
	_ = encoder.Encode(v)
}

func (h *BaseHandler) responseMeta(r *http.Request) ResponseMeta {
	meta := requestMetaFrom(r.Context())

	rm := ResponseMeta{
		RequestID: meta.RequestID,
		Timestamp: time.Now().UTC(),
		Version:   h.apiVersion,
	}
	if !meta.ReceivedAt.IsZero() {
		rm.ResponseTime = time.Since(meta.ReceivedAt).String()
	}
	return rm
}

// extractRequestMeta builds the per-request metadata from headers, the
// auth context and the active span.
func extractRequestMeta(r *http.Request) *RequestMeta {
	meta := &RequestMeta{
		RequestID:  r.Header.Get("X-Request-ID"),
		ClientIP:   clientIP(r),
		UserAgent:  r.UserAgent(),
		ReceivedAt: time.Now(),
	}

	if meta.RequestID == "" {
		meta.RequestID = uuid.New().String()
	}

	// Set by the auth middleware
	if userID, ok := r.Context().Value(contextKeyUserID).(uuid.UUID); ok {
		meta.UserID = userID
	}
	if role, ok := r.Context().Value(contextKeyUserRole).(string); ok {
		meta.Role = role
	}

	if span := trace.SpanFromContext(r.Context()); span.SpanContext().IsValid() {
		meta.TraceID = span.SpanContext().TraceID().String()
		meta.SpanID = span.SpanContext().SpanID().String()
	}

	return meta
}

func requestMetaFrom(ctx context.Context) *RequestMeta {
	if meta, ok := ctx.Value(contextKeyRequestMeta).(*RequestMeta); ok {
		return meta
	}
	return &RequestMeta{RequestID: uuid.New().String()}
}

func clientIP(r *http.Request) string {
	// Forwarded headers first; the first entry is the originating client
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Custom validators

var sha256HexRe = regexp.MustCompile(`^[a-fA-F0-9]{64}$`)

func validateRiskScore(fl validator.FieldLevel) bool {
	score := fl.Field().Float()
	return score >= 0.0 && score <= 1.0
}

func validateSHA256Hex(fl validator.FieldLevel) bool {
	return sha256HexRe.MatchString(fl.Field().String())
}
