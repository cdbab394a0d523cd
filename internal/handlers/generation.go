package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deckforge/api/internal/economics"
	"github.com/deckforge/api/internal/middleware"
	"github.com/deckforge/api/internal/models"
	"github.com/deckforge/api/internal/orchestration"
	"github.com/deckforge/api/internal/pipeline"
	"github.com/deckforge/api/internal/store"
)

// BudgetChecker gates generation on the user's monthly spend.
type BudgetChecker interface {
	CheckBudget(ctx context.Context, userID uuid.UUID) (*economics.BudgetStatus, error)
}

// JobStore is the job persistence used by GenerationHandler.
type JobStore interface {
	CreateJob(ctx context.Context, userID uuid.UUID, req models.GenerationRequest) (*models.GenerationJob, error)
	GetJob(ctx context.Context, userID, id uuid.UUID) (*models.GenerationJob, error)
	FailJob(ctx context.Context, id uuid.UUID, message string) error
	CancelJob(ctx context.Context, userID, id uuid.UUID) error
}

// GenerationHandler handles deck generation endpoints
type GenerationHandler struct {
	gen      orchestration.DeckGenerator
	creds    orchestration.CredentialResolver
	budget   BudgetChecker
	jobs     JobStore
	recorder *orchestration.Recorder
	runner   orchestration.Runner
	logger   *zap.Logger
}

// NewGenerationHandler creates a new generation handler
func NewGenerationHandler(
	gen orchestration.DeckGenerator,
	creds orchestration.CredentialResolver,
	budget BudgetChecker,
	jobs JobStore,
	recorder *orchestration.Recorder,
	runner orchestration.Runner,
	logger *zap.Logger,
) *GenerationHandler {
	return &GenerationHandler{
		gen:      gen,
		creds:    creds,
		budget:   budget,
		jobs:     jobs,
		recorder: recorder,
		runner:   runner,
		logger:   logger,
	}
}

// GenerateResponse is returned by the synchronous endpoint
type GenerateResponse struct {
	Deck   *models.Deck     `json:"deck"`
	Report *pipeline.Report `json:"report"`
}

// StartGenerationResponse is returned when a job is queued
type StartGenerationResponse struct {
	JobID  uuid.UUID        `json:"job_id"`
	Status models.JobStatus `json:"status"`
	Runner string           `json:"runner"`
}

// preflight binds the request and runs the checks shared by both generation modes.
func (h *GenerationHandler) preflight(c *gin.Context) (uuid.UUID, models.GenerationRequest, pipeline.Credentials, bool) {
	var req models.GenerationRequest
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.Unauthorized(c, "unauthorized")
		return uuid.Nil, req, pipeline.Credentials{}, false
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return uuid.Nil, req, pipeline.Credentials{}, false
	}
	if !req.HasInput() {
		middleware.RespondGenerationError(c, pipeline.ErrNoInput)
		return uuid.Nil, req, pipeline.Credentials{}, false
	}

	ctx := c.Request.Context()
	status, err := h.budget.CheckBudget(ctx, userID)
	if err != nil {
		h.logger.Error("budget check failed", zap.String("user_id", userID.String()), zap.Error(err))
		middleware.RespondError(c, http.StatusInternalServerError, middleware.ErrCodeDatabaseError, "failed to check budget")
		return uuid.Nil, req, pipeline.Credentials{}, false
	}
	if !status.Allowed {
		middleware.RespondErrorWithDetails(c, http.StatusPaymentRequired, middleware.ErrCodeBudgetExceeded,
			status.Reason, "monthly generation budget exhausted")
		return uuid.Nil, req, pipeline.Credentials{}, false
	}

	creds, err := h.creds.Resolve(ctx, userID)
	if err != nil {
		h.logger.Error("failed to resolve credentials", zap.String("user_id", userID.String()), zap.Error(err))
		middleware.InternalError(c, "failed to load credentials")
		return uuid.Nil, req, pipeline.Credentials{}, false
	}
	if creds.TextAPIKey == "" {
		middleware.RespondGenerationError(c, pipeline.ErrMissingCredential)
		return uuid.Nil, req, pipeline.Credentials{}, false
	}
	return userID, req, creds, true
}

// GenerateDeck runs the pipeline inside the request and stores the result
// @Summary Generate a deck synchronously
// @Tags generation
// @Security Bearer
// @Accept json
// @Produce json
// @Param body body models.GenerationRequest true "Generation request"
// @Success 201 {object} GenerateResponse
// @Failure 400 {object} middleware.APIError
// @Failure 402 {object} middleware.APIError
// @Failure 429 {object} middleware.APIError
// @Failure 502 {object} middleware.APIError
// @Router /decks/generate [post]
func (h *GenerationHandler) GenerateDeck(c *gin.Context) {
	userID, req, creds, ok := h.preflight(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	deck, report, err := h.gen.Generate(ctx, creds, req, nil)
	if err != nil {
		h.recorder.Fail(context.WithoutCancel(ctx), userID, nil, report, err)
		middleware.RespondGenerationError(c, err)
		return
	}

	if err := h.recorder.Succeed(context.WithoutCancel(ctx), userID, nil, deck, report); err != nil {
		h.logger.Error("failed to save generated deck", zap.Error(err))
		middleware.RespondError(c, http.StatusInternalServerError, middleware.ErrCodeDatabaseError, "failed to save deck")
		return
	}

	c.JSON(http.StatusCreated, GenerateResponse{Deck: deck, Report: report})
}

// StartGeneration queues an asynchronous generation job
// @Summary Start an asynchronous generation
// @Tags generation
// @Security Bearer
// @Accept json
// @Produce json
// @Param body body models.GenerationRequest true "Generation request"
// @Success 202 {object} StartGenerationResponse
// @Router /generations [post]
func (h *GenerationHandler) StartGeneration(c *gin.Context) {
	userID, req, _, ok := h.preflight(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	job, err := h.jobs.CreateJob(ctx, userID, req)
	if err != nil {
		h.logger.Error("failed to create job", zap.Error(err))
		middleware.RespondError(c, http.StatusInternalServerError, middleware.ErrCodeDatabaseError, "failed to create job")
		return
	}

	in := models.GenerationInput{JobID: job.ID, UserID: userID, Request: req, StartedAt: time.Now()}
	if err := h.runner.Start(ctx, in); err != nil {
		h.logger.Error("failed to start generation",
			zap.String("job_id", job.ID.String()),
			zap.String("runner", h.runner.Name()),
			zap.Error(err),
		)
		if ferr := h.jobs.FailJob(context.WithoutCancel(ctx), job.ID, "could not start generation"); ferr != nil {
			h.logger.Error("failed to mark job failed", zap.Error(ferr))
		}
		middleware.InternalError(c, "failed to start generation")
		return
	}

	h.logger.Info("generation queued",
		zap.String("job_id", job.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("runner", h.runner.Name()),
		zap.Bool("multi_phase", req.MultiPhase),
	)
	c.JSON(http.StatusAccepted, StartGenerationResponse{JobID: job.ID, Status: job.Status, Runner: h.runner.Name()})
}

// GetGeneration returns the status of a job
// @Summary Generation status
// @Tags generation
// @Security Bearer
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} models.GenerationJob
// @Router /generations/{id} [get]
func (h *GenerationHandler) GetGeneration(c *gin.Context) {
	userID, id, ok := ownedID(c)
	if !ok {
		return
	}

	job, err := h.jobs.GetJob(c.Request.Context(), userID, id)
	if errors.Is(err, store.ErrNotFound) {
		middleware.NotFound(c, "generation not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load job", zap.Error(err))
		middleware.RespondError(c, http.StatusInternalServerError, middleware.ErrCodeDatabaseError, "failed to load generation")
		return
	}
	c.JSON(http.StatusOK, job)
}

// CancelGeneration cancels a queued or running job
// @Summary Cancel a generation
// @Tags generation
// @Security Bearer
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} StartGenerationResponse
// @Failure 409 {object} middleware.APIError
// @Router /generations/{id}/cancel [post]
func (h *GenerationHandler) CancelGeneration(c *gin.Context) {
	userID, id, ok := ownedID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	switch err := h.jobs.CancelJob(ctx, userID, id); {
	case errors.Is(err, store.ErrNotFound):
		middleware.NotFound(c, "generation not found")
		return
	case errors.Is(err, store.ErrJobClosed):
		middleware.Conflict(c, "generation already finished")
		return
	case err != nil:
		h.logger.Error("failed to cancel job", zap.Error(err))
		middleware.RespondError(c, http.StatusInternalServerError, middleware.ErrCodeDatabaseError, "failed to cancel generation")
		return
	}

	// The job row is already cancelled; the worker notices at its next stage either way.
	if err := h.runner.Cancel(ctx, id); err != nil {
		h.logger.Warn("runner cancel failed", zap.String("job_id", id.String()), zap.Error(err))
	}

	c.JSON(http.StatusOK, StartGenerationResponse{JobID: id, Status: models.JobStatusCancelled, Runner: h.runner.Name()})
}
