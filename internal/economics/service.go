// Package economics estimates generation cost, enforces the monthly budget and
// records usage.
package economics

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deckforge/api/internal/database"
	"github.com/deckforge/api/internal/models"
	"github.com/deckforge/api/internal/pipeline"
)

// Prices in USD.
const (
	InputTokenPrice  = 3.0 / 1_000_000
	OutputTokenPrice = 15.0 / 1_000_000
	ImagePrice       = 0.02
	IconPrice        = 0.004
)

// Service handles budgeting and usage tracking
type Service struct {
	db            *database.Postgres
	monthlyBudget float64
	logger        *zap.Logger
}

// NewService creates the service. A monthlyBudget of zero or less disables the limit.
func NewService(db *database.Postgres, monthlyBudget float64, logger *zap.Logger) *Service {
	return &Service{db: db, monthlyBudget: monthlyBudget, logger: logger}
}

// BudgetStatus is the result of a budget check
type BudgetStatus struct {
	Allowed         bool    `json:"allowed"`
	Spent           float64 `json:"spent"`
	RemainingBudget float64 `json:"remaining_budget"`
	Reason          string  `json:"reason"`
}

// EstimateCost prices one generation report.
func EstimateCost(r *pipeline.Report) float64 {
	if r == nil {
		return 0
	}
	return float64(r.InputTokens)*InputTokenPrice +
		float64(r.OutputTokens)*OutputTokenPrice +
		float64(r.ImagesProduced)*ImagePrice +
		float64(r.IconsProduced)*IconPrice
}

// Evaluate compares month-to-date spend against limit.
func Evaluate(limit, spent float64) *BudgetStatus {
	if limit <= 0 {
		return &BudgetStatus{Allowed: true, Spent: spent, Reason: "No budget limit"}
	}
	remaining := limit - spent
	if remaining <= 0 {
		return &BudgetStatus{Allowed: false, Spent: spent, RemainingBudget: 0, Reason: "Monthly budget exhausted"}
	}
	return &BudgetStatus{Allowed: true, Spent: spent, RemainingBudget: remaining, Reason: "Budget sufficient"}
}

// CheckBudget verifies the user has budget left this month.
func (s *Service) CheckBudget(ctx context.Context, userID uuid.UUID) (*BudgetStatus, error) {
	if s.monthlyBudget <= 0 {
		return Evaluate(0, 0), nil
	}

	var spent float64
	err := s.db.Pool().QueryRow(ctx, `
		SELECT COALESCE(SUM(cost_usd), 0)::float8
		FROM generation_logs
		WHERE user_id = $1 AND created_at >= date_trunc('month', NOW())
	`, userID).Scan(&spent)
	if err != nil {
		return nil, fmt.Errorf("load monthly usage: %w", err)
	}

	status := Evaluate(s.monthlyBudget, spent)
	if !status.Allowed {
		s.logger.Info("Budget exceeded",
			zap.String("user_id", userID.String()),
			zap.Float64("budget", s.monthlyBudget),
			zap.Float64("spent", spent),
		)
	}
	return status, nil
}

// UsageFromReport builds a log row for one generation attempt.
func UsageFromReport(userID uuid.UUID, jobID, deckID *uuid.UUID, r *pipeline.Report, genErr error) *models.GenerationLog {
	log := &models.GenerationLog{
		ID:      uuid.New(),
		UserID:  userID,
		JobID:   jobID,
		DeckID:  deckID,
		Success: genErr == nil,
	}
	if genErr != nil {
		log.Error = genErr.Error()
	}
	if r != nil {
		log.Mode = r.Mode
		log.Provider = r.Provider
		log.Model = r.Model
		log.InputTokens = r.InputTokens
		log.OutputTokens = r.OutputTokens
		log.ImagesProduced = r.ImagesProduced
		log.IconsProduced = r.IconsProduced
		log.LatencyMs = r.Duration.Milliseconds()
		log.CostUSD = EstimateCost(r)
	}
	return log
}

// RecordUsage writes a generation_logs row. Failures are logged, not returned,
// so accounting never fails a generation.
func (s *Service) RecordUsage(ctx context.Context, log *models.GenerationLog) {
	_, err := s.db.Pool().Exec(ctx, `
		INSERT INTO generation_logs (id, user_id, job_id, deck_id, mode, provider, model,
			input_tokens, output_tokens, images_produced, icons_produced, latency_ms, cost_usd, success, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, log.ID, log.UserID, log.JobID, log.DeckID, log.Mode, log.Provider, log.Model,
		log.InputTokens, log.OutputTokens, log.ImagesProduced, log.IconsProduced,
		log.LatencyMs, log.CostUSD, log.Success, log.Error)
	if err != nil {
		s.logger.Error("failed to record usage", zap.String("user_id", log.UserID.String()), zap.Error(err))
	}
}
