package textgen

import (
	"errors"
	"fmt"
	"net/http"
)

// Category is the user-facing classification of an upstream failure
type Category string

const (
	CategoryAuth            Category = "auth"
	CategoryRateLimit       Category = "rate_limit"
	CategoryOverloaded      Category = "overloaded"
	CategoryPayloadTooLarge Category = "payload_too_large"
	CategoryMalformed       Category = "malformed_request"
	CategoryGeneric         Category = "generic"
)

// StatusOverloaded is the non-standard status the text-generation service uses when saturated.
const StatusOverloaded = 529

const typeOverloaded = "overloaded_error"

// UpstreamError is a failed call to an external generation service.
// StatusCode is zero for transport failures.
type UpstreamError struct {
	Service    string
	StatusCode int
	Type       string
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s request failed: %s", e.Service, e.Message)
	}
	if e.Type != "" {
		return fmt.Sprintf("%s returned %d (%s): %s", e.Service, e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("%s returned %d: %s", e.Service, e.StatusCode, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Category classifies the failure for the caller.
func (e *UpstreamError) Category() Category {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return CategoryAuth
	case e.StatusCode == http.StatusTooManyRequests:
		return CategoryRateLimit
	case e.StatusCode == StatusOverloaded || e.Type == typeOverloaded || e.Type == typeCircuitOpen:
		return CategoryOverloaded
	case e.StatusCode == http.StatusRequestEntityTooLarge:
		return CategoryPayloadTooLarge
	case e.StatusCode == http.StatusBadRequest:
		return CategoryMalformed
	}
	return CategoryGeneric
}

// UserMessage is an actionable description of the failure.
func (e *UpstreamError) UserMessage() string {
	switch e.Category() {
	case CategoryAuth:
		return "Invalid API key. Check the key configured in your settings."
	case CategoryRateLimit:
		return "Rate limit reached on the text-generation service. Wait a moment and try again."
	case CategoryOverloaded:
		return "The text-generation service is overloaded. Try again in a few minutes."
	case CategoryPayloadTooLarge:
		return "The request is too large. Shorten the content or remove some references."
	case CategoryMalformed:
		return "The text-generation service rejected the request as malformed: " + e.Message
	}
	return e.Error()
}

// tripsBreaker reports whether the failure says something about upstream health.
func (e *UpstreamError) tripsBreaker() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.Category() == CategoryOverloaded || e.StatusCode >= http.StatusInternalServerError
}

// CategoryOf classifies any error; non-upstream errors are generic.
func CategoryOf(err error) Category {
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr.Category()
	}
	return CategoryGeneric
}
