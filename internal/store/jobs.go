package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/deckforge/api/internal/models"
)

// CreateJob inserts a queued job carrying req.
func (s *Store) CreateJob(ctx context.Context, userID uuid.UUID, req models.GenerationRequest) (*models.GenerationJob, error) {
	job := &models.GenerationJob{
		ID:     uuid.New(),
		UserID: userID,
		Status: models.JobStatusQueued,
		Stage:  models.StageQueued,
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO generation_jobs (id, user_id, status, stage, progress, request)
		VALUES ($1, $2, $3, $4, 0, $5)
		RETURNING created_at, updated_at
	`, job.ID, userID, string(job.Status), job.Stage, req).Scan(&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

// GetJob returns one of the user's jobs.
func (s *Store) GetJob(ctx context.Context, userID, id uuid.UUID) (*models.GenerationJob, error) {
	var job models.GenerationJob
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, status, stage, progress, deck_id, error, created_at, updated_at
		FROM generation_jobs WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(&job.ID, &job.UserID, &job.Status, &job.Stage, &job.Progress,
		&job.DeckID, &job.Error, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &job, nil
}

// AdvanceJob marks an open job running at stage. It returns ErrJobClosed once the
// job is finished, which is how workers notice cancellation.
func (s *Store) AdvanceJob(ctx context.Context, id uuid.UUID, stage string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE generation_jobs SET status = $2, stage = $3, progress = $4, updated_at = NOW()
		WHERE id = $1 AND status IN ('queued', 'running')
	`, id, string(models.JobStatusRunning), stage, models.StageProgress(stage))
	if err != nil {
		return fmt.Errorf("advance job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobClosed
	}
	return nil
}

// CompleteJob records the produced deck.
func (s *Store) CompleteJob(ctx context.Context, id, deckID uuid.UUID) error {
	return s.finishJob(ctx, id, models.JobStatusCompleted, &deckID, "")
}

// FailJob records a failure message.
func (s *Store) FailJob(ctx context.Context, id uuid.UUID, message string) error {
	return s.finishJob(ctx, id, models.JobStatusFailed, nil, message)
}

// CancelJob cancels one of the user's open jobs.
func (s *Store) CancelJob(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.GetJob(ctx, userID, id); err != nil {
		return err
	}
	return s.finishJob(ctx, id, models.JobStatusCancelled, nil, "")
}

func (s *Store) finishJob(ctx context.Context, id uuid.UUID, status models.JobStatus, deckID *uuid.UUID, message string) error {
	stage := models.StageDone
	if status != models.JobStatusCompleted {
		stage = string(status)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE generation_jobs
		SET status = $2, stage = $3, progress = CASE WHEN $6 THEN 1 ELSE progress END,
			deck_id = COALESCE($4, deck_id), error = $5, updated_at = NOW()
		WHERE id = $1 AND status IN ('queued', 'running')
	`, id, string(status), stage, deckID, message, status == models.JobStatusCompleted)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobClosed
	}
	return nil
}
