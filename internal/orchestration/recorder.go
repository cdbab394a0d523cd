package orchestration

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deckforge/api/internal/economics"
	"github.com/deckforge/api/internal/eventbus"
	"github.com/deckforge/api/internal/models"
	"github.com/deckforge/api/internal/pipeline"
	"github.com/deckforge/api/internal/store"
)

// JobStore is the job persistence used by runners and activities.
type JobStore interface {
	AdvanceJob(ctx context.Context, id uuid.UUID, stage string) error
	CompleteJob(ctx context.Context, id, deckID uuid.UUID) error
	FailJob(ctx context.Context, id uuid.UUID, message string) error
}

// DeckStore saves finished decks.
type DeckStore interface {
	CreateDeck(ctx context.Context, deck *models.Deck) error
}

// UsageRecorder writes usage rows.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, log *models.GenerationLog)
}

// Recorder finishes a generation: it saves the deck, closes the job, records usage
// and publishes the outcome. It is shared by the synchronous handler and both runners.
type Recorder struct {
	decks  DeckStore
	jobs   JobStore
	usage  UsageRecorder
	events *eventbus.Notifier
	logger *zap.Logger
}

// NewRecorder creates a recorder. jobs and usage may be nil.
func NewRecorder(decks DeckStore, jobs JobStore, usage UsageRecorder, events *eventbus.Notifier, logger *zap.Logger) *Recorder {
	return &Recorder{decks: decks, jobs: jobs, usage: usage, events: events, logger: logger}
}

// Succeed persists deck for userID. jobID is nil for synchronous generations.
func (r *Recorder) Succeed(ctx context.Context, userID uuid.UUID, jobID *uuid.UUID, deck *models.Deck, report *pipeline.Report) error {
	deck.UserID = userID
	if err := r.decks.CreateDeck(ctx, deck); err != nil {
		r.Fail(ctx, userID, jobID, report, err)
		return err
	}

	if jobID != nil && r.jobs != nil {
		if err := r.jobs.CompleteJob(ctx, *jobID, deck.ID); err != nil {
			// A job cancelled while its last phase ran keeps its cancelled status.
			if !errors.Is(err, store.ErrJobClosed) {
				r.logger.Error("failed to complete job", zap.String("job_id", jobID.String()), zap.Error(err))
			}
		}
	}

	deckID := deck.ID
	if r.usage != nil {
		r.usage.RecordUsage(ctx, economics.UsageFromReport(userID, jobID, &deckID, report, nil))
	}

	ev := eventbus.DeckGenerated{DeckID: deck.ID, UserID: userID, JobID: jobID, SlideCount: len(deck.Slides)}
	if report != nil {
		ev.Mode = report.Mode
		ev.ImagesProduced = report.ImagesProduced
	}
	r.events.DeckGenerated(ctx, ev)
	return nil
}

// Fail records a failed generation.
func (r *Recorder) Fail(ctx context.Context, userID uuid.UUID, jobID *uuid.UUID, report *pipeline.Report, genErr error) {
	if jobID != nil && r.jobs != nil {
		if err := r.jobs.FailJob(ctx, *jobID, pipeline.UserMessage(genErr)); err != nil && !errors.Is(err, store.ErrJobClosed) {
			r.logger.Error("failed to mark job failed", zap.String("job_id", jobID.String()), zap.Error(err))
		}
	}
	if r.usage != nil && report != nil {
		r.usage.RecordUsage(ctx, economics.UsageFromReport(userID, jobID, nil, report, genErr))
	}
	phase := pipeline.FailedPhase(genErr)
	var wf *workflowFailure
	if errors.As(genErr, &wf) {
		phase = wf.phase
	}
	r.events.GenerationFailed(ctx, eventbus.GenerationFailed{
		UserID: userID,
		JobID:  jobID,
		Phase:  phase,
		Error:  pipeline.UserMessage(genErr),
	})
}
