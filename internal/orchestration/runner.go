package orchestration

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deckforge/api/internal/metrics"
	"github.com/deckforge/api/internal/models"
	"github.com/deckforge/api/internal/pipeline"
	"github.com/deckforge/api/internal/store"
)

// Runner executes queued generation jobs.
type Runner interface {
	Start(ctx context.Context, in models.GenerationInput) error
	Cancel(ctx context.Context, jobID uuid.UUID) error
	Name() string
}

// CredentialResolver resolves a user's API keys.
type CredentialResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) (pipeline.Credentials, error)
}

// DeckGenerator runs the whole pipeline.
type DeckGenerator interface {
	Generate(ctx context.Context, creds pipeline.Credentials, req models.GenerationRequest, progress pipeline.ProgressFunc) (*models.Deck, *pipeline.Report, error)
}

// LocalRunner runs each job in a goroutine of this process.
type LocalRunner struct {
	gen      DeckGenerator
	creds    CredentialResolver
	jobs     JobStore
	recorder *Recorder
	logger   *zap.Logger

	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
	wg      sync.WaitGroup
}

// NewLocalRunner creates an in-process runner.
func NewLocalRunner(gen DeckGenerator, creds CredentialResolver, jobs JobStore, recorder *Recorder, logger *zap.Logger) *LocalRunner {
	return &LocalRunner{
		gen:      gen,
		creds:    creds,
		jobs:     jobs,
		recorder: recorder,
		logger:   logger,
		cancels:  make(map[uuid.UUID]context.CancelFunc),
	}
}

func (r *LocalRunner) Name() string { return "local" }

// Start launches the job. The job outlives ctx; only Cancel or Wait's caller stops it.
func (r *LocalRunner) Start(_ context.Context, in models.GenerationInput) error {
	ctx, cancel := context.WithCancel(context.Background())

	r.mu.Lock()
	r.cancels[in.JobID] = cancel
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.forget(in.JobID)
		r.run(ctx, cancel, in)
	}()
	return nil
}

// Cancel stops a running job. Unknown ids are ignored.
func (r *LocalRunner) Cancel(_ context.Context, jobID uuid.UUID) error {
	r.mu.Lock()
	cancel, ok := r.cancels[jobID]
	r.mu.Unlock()
	if ok {
		cancel()
	}
	return nil
}

// Shutdown cancels every running job and waits for them to stop.
func (r *LocalRunner) Shutdown() {
	r.mu.Lock()
	for _, cancel := range r.cancels {
		cancel()
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *LocalRunner) forget(jobID uuid.UUID) {
	r.mu.Lock()
	if cancel, ok := r.cancels[jobID]; ok {
		cancel()
		delete(r.cancels, jobID)
	}
	r.mu.Unlock()
}

func (r *LocalRunner) run(ctx context.Context, cancel context.CancelFunc, in models.GenerationInput) {
	metrics.JobsInFlight.Inc()
	defer metrics.JobsInFlight.Dec()

	jobID := in.JobID
	log := r.logger.With(zap.String("job_id", jobID.String()), zap.String("runner", r.Name()))

	creds, err := r.creds.Resolve(ctx, in.UserID)
	if err != nil {
		log.Error("credential resolution failed", zap.Error(err))
		r.recorder.Fail(context.Background(), in.UserID, &jobID, nil, err)
		return
	}

	progress := func(stage string) {
		if err := r.jobs.AdvanceJob(ctx, jobID, stage); err != nil {
			if errors.Is(err, store.ErrJobClosed) {
				log.Info("job closed while running, stopping")
				cancel()
				return
			}
			log.Warn("failed to record job stage", zap.String("stage", stage), zap.Error(err))
		}
	}

	deck, report, err := r.gen.Generate(ctx, creds, in.Request, progress)
	// Persistence runs on a fresh context so a cancelled job still records its outcome.
	done := context.Background()
	if err != nil {
		if ctx.Err() != nil {
			log.Info("job cancelled")
			return
		}
		r.recorder.Fail(done, in.UserID, &jobID, report, err)
		return
	}
	if ctx.Err() != nil {
		log.Info("job cancelled after generation, discarding deck")
		return
	}
	if err := r.recorder.Succeed(done, in.UserID, &jobID, deck, report); err != nil {
		log.Error("failed to save generated deck", zap.Error(err))
	}
}
