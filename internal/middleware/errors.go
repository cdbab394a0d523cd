package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/deckforge/api/internal/pipeline"
	"github.com/deckforge/api/internal/textgen"
)

// APIError represents a structured error response
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	RetryAfter int    `json:"retry_after_ms,omitempty"`
}

// Common error codes
const (
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeDatabaseError    = "DATABASE_ERROR"
	ErrCodeBudgetExceeded   = "BUDGET_EXCEEDED"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeCircuitOpen      = "CIRCUIT_OPEN"
	ErrCodeMissingAPIKey    = "MISSING_API_KEY"
	ErrCodeInvalidAPIKey    = "INVALID_API_KEY"
	ErrCodeOverloaded       = "UPSTREAM_OVERLOADED"
	ErrCodePayloadTooLarge  = "PAYLOAD_TOO_LARGE"
	ErrCodeMalformed        = "MALFORMED_REQUEST"
	ErrCodeUpstream         = "UPSTREAM_ERROR"
	ErrCodeResponseParse    = "RESPONSE_PARSE_ERROR"
	ErrCodePhaseMismatch    = "PHASE_MISMATCH"
	ErrCodeNoInput          = "NO_INPUT"
	ErrCodeGenerationFailed = "GENERATION_FAILED"
)

// RespondError sends a structured error response
func RespondError(c *gin.Context, status int, code string, message string) {
	c.JSON(status, gin.H{
		"error": APIError{
			Code:    code,
			Message: message,
		},
	})
}

// RespondErrorWithDetails sends a structured error response with details
func RespondErrorWithDetails(c *gin.Context, status int, code string, message string, details string) {
	c.JSON(status, gin.H{
		"error": APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// RespondErrorWithRetry sends a structured error response with retry hint
func RespondErrorWithRetry(c *gin.Context, status int, code string, message string, retryAfterMs int) {
	c.JSON(status, gin.H{
		"error": APIError{
			Code:       code,
			Message:    message,
			RetryAfter: retryAfterMs,
		},
	})
}

// BadRequest sends a 400 error
func BadRequest(c *gin.Context, message string) {
	RespondError(c, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 error
func Unauthorized(c *gin.Context, message string) {
	RespondError(c, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// NotFound sends a 404 error
func NotFound(c *gin.Context, message string) {
	RespondError(c, http.StatusNotFound, ErrCodeNotFound, message)
}

// Conflict sends a 409 error
func Conflict(c *gin.Context, message string) {
	RespondError(c, http.StatusConflict, ErrCodeConflict, message)
}

// InternalError sends a 500 error
func InternalError(c *gin.Context, message string) {
	RespondError(c, http.StatusInternalServerError, ErrCodeInternalError, message)
}

// GenerationStatus maps a pipeline failure to an HTTP status and error code.
func GenerationStatus(err error) (int, string) {
	var parse *pipeline.ParseError
	var align *pipeline.AlignmentError
	var up *textgen.UpstreamError
	switch {
	case errors.Is(err, pipeline.ErrMissingCredential):
		return http.StatusBadRequest, ErrCodeMissingAPIKey
	case errors.Is(err, pipeline.ErrNoInput):
		return http.StatusBadRequest, ErrCodeNoInput
	case errors.As(err, &parse):
		return http.StatusBadGateway, ErrCodeResponseParse
	case errors.As(err, &align):
		return http.StatusBadGateway, ErrCodePhaseMismatch
	case errors.As(err, &up):
		switch up.Category() {
		case textgen.CategoryAuth:
			return http.StatusUnauthorized, ErrCodeInvalidAPIKey
		case textgen.CategoryRateLimit:
			return http.StatusTooManyRequests, ErrCodeRateLimited
		case textgen.CategoryOverloaded:
			return http.StatusServiceUnavailable, ErrCodeOverloaded
		case textgen.CategoryPayloadTooLarge:
			return http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge
		case textgen.CategoryMalformed:
			return http.StatusBadRequest, ErrCodeMalformed
		}
		return http.StatusBadGateway, ErrCodeUpstream
	}
	return http.StatusInternalServerError, ErrCodeGenerationFailed
}

// RespondGenerationError sends the envelope for a failed generation. The failing
// phase, when known, goes in details.
func RespondGenerationError(c *gin.Context, err error) {
	status, code := GenerationStatus(err)
	apiErr := APIError{
		Code:    code,
		Message: pipeline.UserMessage(err),
		Details: pipeline.FailedPhase(err),
	}
	if status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable {
		apiErr.RetryAfter = 30000
	}
	c.JSON(status, gin.H{"error": apiErr})
}
