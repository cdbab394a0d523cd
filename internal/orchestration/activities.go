package orchestration

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	"github.com/deckforge/api/internal/models"
	"github.com/deckforge/api/internal/pipeline"
	"github.com/deckforge/api/internal/store"
)

// Activity names
const (
	ActivityPrepareContext  = "PrepareContext"
	ActivityContentStrategy = "ContentStrategy"
	ActivityVisualDesign    = "VisualDesign"
	ActivityGraphics        = "Graphics"
	ActivityAssemble        = "AssembleAndSave"
	ActivitySinglePhase     = "SinglePhaseAndSave"
	ActivityFail            = "FailJob"
)

const errTypeJobClosed = "JobClosed"

// PrepareResult carries the shared context between activities.
type PrepareResult struct {
	Prepared pipeline.Prepared `json:"prepared"`
}

// StrategyParams is the content strategy activity input.
type StrategyParams struct {
	Job        models.GenerationInput `json:"job"`
	References string                 `json:"references"`
}

// StrategyResult is the content strategy activity output.
type StrategyResult struct {
	Plan  *models.ContentPlan `json:"plan"`
	Usage pipeline.Usage      `json:"usage"`
}

// DesignParams is the visual design activity input.
type DesignParams struct {
	Job         models.GenerationInput `json:"job"`
	Plan        *models.ContentPlan    `json:"plan"`
	BrandColors *models.ColorScheme    `json:"brand_colors,omitempty"`
}

// DesignResult is the visual design activity output.
type DesignResult struct {
	Design *models.DesignPlan `json:"design"`
	Usage  pipeline.Usage     `json:"usage"`
}

// GraphicsParams is the graphics activity input.
type GraphicsParams struct {
	Job         models.GenerationInput `json:"job"`
	Design      *models.DesignPlan     `json:"design"`
	BrandImages []string               `json:"brand_images,omitempty"`
}

// GraphicsResult is the graphics activity output.
type GraphicsResult struct {
	Graphics        *models.GraphicsResult `json:"graphics"`
	ImagesRequested int                    `json:"images_requested"`
	ImagesProduced  int                    `json:"images_produced"`
}

// AssembleParams is the assemble-and-save activity input.
type AssembleParams struct {
	Job      models.GenerationInput `json:"job"`
	Plan     *models.ContentPlan    `json:"plan"`
	Design   *models.DesignPlan     `json:"design"`
	Graphics *models.GraphicsResult `json:"graphics"`
	Brand    *models.BrandAssets    `json:"brand,omitempty"`
	Report   pipeline.Report        `json:"report"`
}

// SinglePhaseParams is the single-phase activity input.
type SinglePhaseParams struct {
	Job      models.GenerationInput `json:"job"`
	Prepared pipeline.Prepared      `json:"prepared"`
	Report   pipeline.Report        `json:"report"`
}

// FailParams is the failure activity input.
type FailParams struct {
	Job     models.GenerationInput `json:"job"`
	Phase   string                 `json:"phase"`
	Message string                 `json:"message"`
	Report  *pipeline.Report       `json:"report,omitempty"`
}

// Activities are the workflow steps. Credentials are resolved here from the user id
// so keys never enter workflow history.
type Activities struct {
	Pipeline *pipeline.Service
	Creds    CredentialResolver
	Jobs     JobStore
	Recorder *Recorder
	Logger   *zap.Logger
}

func (a *Activities) advance(ctx context.Context, jobID uuid.UUID, stage string) error {
	err := a.Jobs.AdvanceJob(ctx, jobID, stage)
	if errors.Is(err, store.ErrJobClosed) {
		return temporal.NewNonRetryableApplicationError("job is no longer open", errTypeJobClosed, err)
	}
	return err
}

func (a *Activities) credentials(ctx context.Context, userID uuid.UUID) (pipeline.Credentials, error) {
	creds, err := a.Creds.Resolve(ctx, userID)
	if err != nil {
		return creds, err
	}
	if creds.TextAPIKey == "" {
		return creds, nonRetryable(pipeline.ErrMissingCredential)
	}
	return creds, nil
}

// nonRetryable keeps the phase error text while telling Temporal not to retry.
func nonRetryable(err error) error {
	return temporal.NewNonRetryableApplicationError(pipeline.UserMessage(err), pipeline.FailedPhase(err), nil)
}

// PrepareContext extracts the brand and aggregates references.
func (a *Activities) PrepareContext(ctx context.Context, in models.GenerationInput) (*PrepareResult, error) {
	if err := a.advance(ctx, in.JobID, models.StagePreparing); err != nil {
		return nil, err
	}
	return &PrepareResult{Prepared: a.Pipeline.Prepare(ctx, in.Request)}, nil
}

// ContentStrategy runs the content strategist.
func (a *Activities) ContentStrategy(ctx context.Context, p StrategyParams) (*StrategyResult, error) {
	if err := a.advance(ctx, p.Job.JobID, models.StageContentStrategy); err != nil {
		return nil, err
	}
	creds, err := a.credentials(ctx, p.Job.UserID)
	if err != nil {
		return nil, err
	}
	plan, usage, err := a.Pipeline.Strategize(ctx, creds, pipeline.StrategyInput{
		Content:      p.Job.Request.Content,
		References:   p.References,
		Instructions: p.Job.Request.Instructions,
	})
	if err != nil {
		return nil, nonRetryable(err)
	}
	return &StrategyResult{Plan: plan, Usage: usage}, nil
}

// VisualDesign runs the visual designer.
func (a *Activities) VisualDesign(ctx context.Context, p DesignParams) (*DesignResult, error) {
	if err := a.advance(ctx, p.Job.JobID, models.StageVisualDesign); err != nil {
		return nil, err
	}
	creds, err := a.credentials(ctx, p.Job.UserID)
	if err != nil {
		return nil, err
	}
	design, usage, err := a.Pipeline.Design(ctx, creds, p.Plan, p.BrandColors)
	if err != nil {
		return nil, nonRetryable(err)
	}
	return &DesignResult{Design: design, Usage: usage}, nil
}

// Graphics generates slide images. It never fails on image errors.
func (a *Activities) Graphics(ctx context.Context, p GraphicsParams) (*GraphicsResult, error) {
	if err := a.advance(ctx, p.Job.JobID, models.StageGraphics); err != nil {
		return nil, err
	}
	creds, err := a.Creds.Resolve(ctx, p.Job.UserID)
	if err != nil {
		return nil, err
	}
	gfx, res := a.Pipeline.Illustrate(ctx, creds, p.Design, p.BrandImages)
	return &GraphicsResult{Graphics: gfx, ImagesRequested: res.ImagesRequested, ImagesProduced: len(res.Images)}, nil
}

// AssembleAndSave builds the deck and records it.
func (a *Activities) AssembleAndSave(ctx context.Context, p AssembleParams) (*models.GenerationOutput, error) {
	if err := a.advance(ctx, p.Job.JobID, models.StageAssembly); err != nil {
		return nil, err
	}
	in := pipeline.AssemblyInput{Plan: p.Plan, Design: p.Design, Graphics: p.Graphics}
	if p.Brand != nil {
		in.BrandColors = &p.Brand.Colors
		in.Logo = p.Brand.Logo
	}
	deck, err := pipeline.AssembleTraced(ctx, in)
	if err != nil {
		return nil, nonRetryable(err)
	}
	return a.save(ctx, p.Job, deck, &p.Report)
}

// SinglePhaseAndSave runs the single-call generator and records the deck.
func (a *Activities) SinglePhaseAndSave(ctx context.Context, p SinglePhaseParams) (*models.GenerationOutput, error) {
	if err := a.advance(ctx, p.Job.JobID, models.StageSinglePhase); err != nil {
		return nil, err
	}
	creds, err := a.credentials(ctx, p.Job.UserID)
	if err != nil {
		return nil, err
	}
	report := p.Report
	deck, err := a.Pipeline.SinglePhase(ctx, creds, p.Job.Request, p.Prepared, &report)
	if err != nil {
		return nil, nonRetryable(err)
	}
	return a.save(ctx, p.Job, deck, &report)
}

func (a *Activities) save(ctx context.Context, job models.GenerationInput, deck *models.Deck, report *pipeline.Report) (*models.GenerationOutput, error) {
	report.SlideCount = len(deck.Slides)
	report.PromptVersion = a.Pipeline.PromptVersion()
	stampDuration(job, report)
	jobID := job.JobID
	if err := a.Recorder.Succeed(ctx, job.UserID, &jobID, deck, report); err != nil {
		return nil, err
	}
	return &models.GenerationOutput{DeckID: deck.ID, SlideCount: len(deck.Slides), ImagesProduced: report.ImagesProduced}, nil
}

// stampDuration measures the job from its start time up to the write.
func stampDuration(job models.GenerationInput, report *pipeline.Report) {
	if !job.StartedAt.IsZero() {
		report.Duration = time.Since(job.StartedAt)
	}
}

// FailJob records a failed workflow.
func (a *Activities) FailJob(ctx context.Context, p FailParams) error {
	jobID := p.Job.JobID
	if p.Report != nil {
		stampDuration(p.Job, p.Report)
	}
	a.Recorder.Fail(ctx, p.Job.UserID, &jobID, p.Report, &workflowFailure{phase: p.Phase, message: p.Message})
	return nil
}

// workflowFailure rebuilds a failure that crossed the workflow boundary as text.
type workflowFailure struct {
	phase   string
	message string
}

func (e *workflowFailure) Error() string { return e.message }
