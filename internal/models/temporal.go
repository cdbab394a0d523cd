package models

import (
	"time"

	"github.com/google/uuid"
)

// ReferenceFile is an uploaded reference document, already converted to text
type ReferenceFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// GenerationRequest is the caller-facing input of one deck generation
type GenerationRequest struct {
	Content             string          `json:"content"`
	URLs                []string        `json:"urls,omitempty"`
	Files               []ReferenceFile `json:"files,omitempty"`
	Instructions        string          `json:"instructions,omitempty"`
	BrandURL            string          `json:"brandUrl,omitempty"`
	MultiPhase          bool            `json:"multiPhase"`
	BuildOnly           bool            `json:"buildOnly"`
	FillMissingGraphics bool            `json:"fillMissingGraphics"`
}

// HasInput reports whether there is anything to build a deck from
func (r GenerationRequest) HasInput() bool {
	return r.Content != "" || len(r.URLs) > 0 || len(r.Files) > 0
}

// GenerationInput is the payload of the deck generation workflow.
// Credentials are resolved from UserID inside activities.
type GenerationInput struct {
	JobID     uuid.UUID         `json:"job_id"`
	UserID    uuid.UUID         `json:"user_id"`
	Request   GenerationRequest `json:"request"`
	StartedAt time.Time         `json:"started_at"`
}

// GenerationOutput is the result of the deck generation workflow
type GenerationOutput struct {
	DeckID         uuid.UUID `json:"deck_id"`
	SlideCount     int       `json:"slide_count"`
	ImagesProduced int       `json:"images_produced"`
}
