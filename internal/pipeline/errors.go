package pipeline

import (
	"errors"
	"fmt"

	"github.com/deckforge/api/internal/textgen"
)

// Phase names used in errors, logs and metrics.
const (
	PhaseContentStrategy = "content-strategy"
	PhaseVisualDesign    = "visual-design"
	PhaseGraphics        = "graphics"
	PhaseAssembly        = "assembly"
	PhaseSingle          = "single-phase"
)

// ErrMissingCredential is returned when no text-generation key is available.
var ErrMissingCredential = errors.New("text generation API key not configured")

// ErrNoInput is returned when the request carries no content, URLs or files.
var ErrNoInput = errors.New("no content, urls or files supplied")

// ParseError means the model answered but its text could not be read as the expected JSON.
type ParseError struct {
	Phase string
	Raw   string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: could not parse model response: %v", e.Phase, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// AlignmentError means slide records from two phases do not line up.
type AlignmentError struct {
	Phase  string
	Reason string
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("%s: slide records misaligned: %s", e.Phase, e.Reason)
}

// PhaseError tags an upstream failure with the phase it happened in.
type PhaseError struct {
	Phase string
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// FailedPhase reports which phase err came from, or "" when unknown.
func FailedPhase(err error) string {
	var pe *PhaseError
	if errors.As(err, &pe) {
		return pe.Phase
	}
	var parse *ParseError
	if errors.As(err, &parse) {
		return parse.Phase
	}
	var align *AlignmentError
	if errors.As(err, &align) {
		return align.Phase
	}
	return ""
}

// UserMessage is an actionable description of a generation failure, suitable for API
// responses and job records.
func UserMessage(err error) string {
	var up *textgen.UpstreamError
	var parse *ParseError
	var align *AlignmentError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingCredential):
		return "Text generation API key not configured. Add one in settings."
	case errors.Is(err, ErrNoInput):
		return "Provide content, at least one reference URL, or a file."
	case errors.As(err, &up):
		return up.UserMessage()
	case errors.As(err, &parse):
		return "The model response could not be read as a deck. Please try again."
	case errors.As(err, &align):
		return "The generated design did not match the content plan. Please try again."
	default:
		return err.Error()
	}
}
