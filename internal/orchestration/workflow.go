package orchestration

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/deckforge/api/internal/models"
	"github.com/deckforge/api/internal/pipeline"
	"github.com/deckforge/api/internal/prompts"
)

// WorkflowName is the registered name of GenerateDeckWorkflow.
const WorkflowName = "GenerateDeckWorkflow"

// WorkflowID derives the workflow id from a job id.
func WorkflowID(in models.GenerationInput) string {
	return "deck-generation-" + in.JobID.String()
}

// activityOptions disables retries: a failed phase fails the job.
func activityOptions(timeout time.Duration) workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	}
}

// GenerateDeckWorkflow runs the generation phases as activities in order.
func GenerateDeckWorkflow(ctx workflow.Context, in models.GenerationInput) (*models.GenerationOutput, error) {
	logger := workflow.GetLogger(ctx)
	start := workflow.Now(ctx)

	textCtx := workflow.WithActivityOptions(ctx, activityOptions(5*time.Minute))
	graphicsCtx := workflow.WithActivityOptions(ctx, activityOptions(30*time.Minute))

	report := pipeline.Report{Mode: "multi-phase"}
	if !in.Request.MultiPhase {
		report.Mode = string(prompts.ResolveMode(in.Request.BuildOnly, in.Request.FillMissingGraphics))
	}

	var a *Activities
	var prep PrepareResult
	if err := workflow.ExecuteActivity(textCtx, a.PrepareContext, in).Get(ctx, &prep); err != nil {
		return nil, fail(ctx, in, nil, err)
	}

	var out models.GenerationOutput
	if !in.Request.MultiPhase {
		err := workflow.ExecuteActivity(graphicsCtx, a.SinglePhaseAndSave, SinglePhaseParams{
			Job: in, Prepared: prep.Prepared, Report: report,
		}).Get(ctx, &out)
		if err != nil {
			return nil, fail(ctx, in, &report, err)
		}
		logger.Info("deck generated", "job_id", in.JobID.String(), "deck_id", out.DeckID.String())
		return &out, nil
	}

	var strategy StrategyResult
	err := workflow.ExecuteActivity(textCtx, a.ContentStrategy, StrategyParams{
		Job: in, References: prep.Prepared.References,
	}).Get(ctx, &strategy)
	if err != nil {
		return nil, fail(ctx, in, &report, err)
	}
	report.AddUsage(strategy.Usage)

	brand := prep.Prepared.Brand
	designParams := DesignParams{Job: in, Plan: strategy.Plan}
	graphicsParams := GraphicsParams{Job: in}
	if brand != nil {
		designParams.BrandColors = pipeline.BrandColorScheme(brand.Colors)
		graphicsParams.BrandImages = brand.Images
	}

	var design DesignResult
	if err := workflow.ExecuteActivity(textCtx, a.VisualDesign, designParams).Get(ctx, &design); err != nil {
		return nil, fail(ctx, in, &report, err)
	}
	report.AddUsage(design.Usage)

	graphicsParams.Design = design.Design
	var gfx GraphicsResult
	if err := workflow.ExecuteActivity(graphicsCtx, a.Graphics, graphicsParams).Get(ctx, &gfx); err != nil {
		return nil, fail(ctx, in, &report, err)
	}
	report.ImagesRequested = gfx.ImagesRequested
	report.ImagesProduced = gfx.ImagesProduced
	report.Duration = workflow.Now(ctx).Sub(start)

	err = workflow.ExecuteActivity(textCtx, a.AssembleAndSave, AssembleParams{
		Job:      in,
		Plan:     strategy.Plan,
		Design:   design.Design,
		Graphics: gfx.Graphics,
		Brand:    brand,
		Report:   report,
	}).Get(ctx, &out)
	if err != nil {
		return nil, fail(ctx, in, &report, err)
	}

	logger.Info("deck generated", "job_id", in.JobID.String(), "deck_id", out.DeckID.String())
	return &out, nil
}

// fail records err on the job unless the job was cancelled, then returns err.
func fail(ctx workflow.Context, in models.GenerationInput, report *pipeline.Report, err error) error {
	if temporal.IsCanceledError(err) {
		return err
	}
	var appErr *temporal.ApplicationError
	params := FailParams{Job: in, Message: err.Error(), Report: report}
	if errors.As(err, &appErr) {
		if appErr.Type() == errTypeJobClosed {
			return err
		}
		params.Phase = appErr.Type()
		params.Message = appErr.Message()
	}

	dctx, _ := workflow.NewDisconnectedContext(ctx)
	dctx = workflow.WithActivityOptions(dctx, activityOptions(time.Minute))
	var a *Activities
	if ferr := workflow.ExecuteActivity(dctx, a.FailJob, params).Get(dctx, nil); ferr != nil {
		workflow.GetLogger(ctx).Error("failed to record job failure", "job_id", in.JobID.String(), "error", ferr)
	}
	return err
}
