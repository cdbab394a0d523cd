package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of an async generation job
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// Job stages, reported while a job is running
const (
	StageQueued          = "queued"
	StagePreparing       = "preparing_context"
	StageContentStrategy = "content_strategy"
	StageVisualDesign    = "visual_design"
	StageGraphics        = "graphics"
	StageAssembly        = "assembly"
	StageSinglePhase     = "single_phase"
	StageDone            = "done"
)

// StageProgress maps a stage to a rough completion fraction
func StageProgress(stage string) float64 {
	switch stage {
	case StagePreparing:
		return 0.1
	case StageContentStrategy, StageSinglePhase:
		return 0.25
	case StageVisualDesign:
		return 0.45
	case StageGraphics:
		return 0.65
	case StageAssembly:
		return 0.9
	case StageDone:
		return 1.0
	}
	return 0
}

// User represents a user account
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserSettings holds the per-user credentials for external services
type UserSettings struct {
	UserID       uuid.UUID `json:"user_id"`
	TextProvider string    `json:"text_provider,omitempty"`
	TextAPIKey   string    `json:"text_api_key,omitempty"`
	ImageAPIKey  string    `json:"image_api_key,omitempty"`
	IconAPIKey   string    `json:"icon_api_key,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// GenerationJob tracks one asynchronous generation
type GenerationJob struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Status    JobStatus  `json:"status"`
	Stage     string     `json:"stage"`
	Progress  float64    `json:"progress"`
	DeckID    *uuid.UUID `json:"deck_id,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// GenerationLog records usage of one generation attempt
type GenerationLog struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	JobID          *uuid.UUID `json:"job_id,omitempty"`
	DeckID         *uuid.UUID `json:"deck_id,omitempty"`
	Mode           string     `json:"mode"`
	Provider       string     `json:"provider"`
	Model          string     `json:"model"`
	InputTokens    int        `json:"input_tokens"`
	OutputTokens   int        `json:"output_tokens"`
	ImagesProduced int        `json:"images_produced"`
	IconsProduced  int        `json:"icons_produced"`
	LatencyMs      int64      `json:"latency_ms"`
	CostUSD        float64    `json:"cost_usd"`
	Success        bool       `json:"success"`
	Error          string     `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
