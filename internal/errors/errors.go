package errors

import (
	stderrors "errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/baladia/taxe/internal/middleware"
	"github.com/baladia/taxe/internal/services"
)

// Error code constants for standardized error responses
const (
	ErrNotFound       = "NOT_FOUND"
	ErrBadRequest     = "BAD_REQUEST"
	ErrInternalServer = "INTERNAL_SERVER_ERROR"
	ErrValidation     = "VALIDATION_ERROR"
	ErrConflict       = "CONFLICT"
	ErrForbidden      = "FORBIDDEN"
	ErrUnauthorized   = "UNAUTHORIZED"
)

// ErrorResponse is the top-level error response structure.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error information.
type ErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// NotFound returns a 404 Not Found error response.
// It logs a warning and sends a JSON response with the error details.
func NotFound(c *gin.Context, message string) {
	warnAndRespond(c, http.StatusNotFound, ErrNotFound, "Resource not found", message, nil)
}

// BadRequest returns a 400 Bad Request error response with optional details.
// It logs a warning and sends a JSON response with the error details.
func BadRequest(c *gin.Context, message string, details map[string]interface{}) {
	warnAndRespond(c, http.StatusBadRequest, ErrBadRequest, "Bad request", message, details)
}

// InternalServerError returns a 500 Internal Server Error response.
// It logs the error with full context and sends a generic error message to the client.
// The actual error details are not exposed to the client for security reasons.
func InternalServerError(c *gin.Context, message string, err error) {
	log := middleware.GetLogger(c)
	requestID := middleware.GetRequestID(c)

	logFields := map[string]interface{}{
		"message":    message,
		"request_id": requestID,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
	}

	if log != nil {
		log.Error("Internal server error", err, logFields)
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error: ErrorDetail{
			Code:      ErrInternalServer,
			Message:   message,
			RequestID: requestID,
		},
	})
}

// Conflict returns a 409 Conflict error response for requests that clash
// with the current state of a resource.
func Conflict(c *gin.Context, message string) {
	warnAndRespond(c, http.StatusConflict, ErrConflict, "Conflict", message, nil)
}

// Forbidden returns a 403 Forbidden error response.
func Forbidden(c *gin.Context, message string) {
	warnAndRespond(c, http.StatusForbidden, ErrForbidden, "Forbidden", message, nil)
}

// Unauthorized returns a 401 Unauthorized error response.
func Unauthorized(c *gin.Context, message string) {
	warnAndRespond(c, http.StatusUnauthorized, ErrUnauthorized, "Unauthorized", message, nil)
}

// FieldErrors returns a 400 VALIDATION_ERROR response with per-field messages.
func FieldErrors(c *gin.Context, message string, fields map[string]string) {
	details := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		details[k] = v
	}
	warnAndRespond(c, http.StatusBadRequest, ErrValidation, "Validation error", message, details)
}

// FromService maps an error returned by the services package to a response.
// Unknown errors are treated as internal failures and not exposed.
func FromService(c *gin.Context, err error) {
	var verr *services.ValidationError
	switch {
	case stderrors.As(err, &verr):
		FieldErrors(c, "Validation failed for one or more fields", verr.Fields)
	case stderrors.Is(err, services.ErrValidation):
		warnAndRespond(c, http.StatusBadRequest, ErrValidation, "Validation error", err.Error(), nil)
	case stderrors.Is(err, services.ErrNotFound):
		NotFound(c, err.Error())
	case stderrors.Is(err, services.ErrConflict):
		Conflict(c, err.Error())
	default:
		InternalServerError(c, "An unexpected error occurred", err)
	}
}

func warnAndRespond(c *gin.Context, status int, code, logMsg, message string, details map[string]interface{}) {
	requestID := middleware.GetRequestID(c)

	if log := middleware.GetLogger(c); log != nil {
		fields := map[string]interface{}{
			"message":    message,
			"request_id": requestID,
			"path":       c.Request.URL.Path,
		}
		if details != nil {
			fields["details"] = details
		}
		log.Warn(logMsg, fields)
	}

	c.JSON(status, ErrorResponse{
		Error: ErrorDetail{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: requestID,
		},
	})
}

// ValidationError returns a 400 response listing every failed binding rule.
// Details are keyed by the field path as the client sent it, e.g. "owner.email"
// or "years[0]", the same keys services use for their own validation errors.
func ValidationError(c *gin.Context, validationErrors validator.ValidationErrors) {
	details := make(map[string]interface{}, len(validationErrors))
	for _, err := range validationErrors {
		details[fieldPath(err)] = formatValidationError(err)
	}
	warnAndRespond(c, http.StatusBadRequest, ErrValidation, "Validation error",
		"Validation failed for one or more fields", details)
}

// fieldPath drops the top-level struct name from the error namespace.
func fieldPath(err validator.FieldError) string {
	if _, path, ok := strings.Cut(err.Namespace(), "."); ok {
		return path
	}
	return err.Field()
}

func formatValidationError(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min", "gte":
		return "must be at least " + err.Param() + unitOf(err)
	case "max", "lte":
		return "must be at most " + err.Param() + unitOf(err)
	case "len":
		return "must be exactly " + err.Param() + unitOf(err)
	case "gt":
		return "must be greater than " + err.Param()
	case "lt":
		return "must be less than " + err.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(err.Param(), " ", ", ")
	default:
		return "failed the " + err.Tag() + " rule"
	}
}

// unitOf names what a size rule counts for strings and collections.
func unitOf(err validator.FieldError) string {
	switch err.Kind() {
	case reflect.String:
		return " characters"
	case reflect.Slice, reflect.Array, reflect.Map:
		return " items"
	default:
		return ""
	}
}
