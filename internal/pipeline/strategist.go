package pipeline

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/deckforge/api/internal/jsonx"
	"github.com/deckforge/api/internal/models"
	"github.com/deckforge/api/internal/prompts"
)

// Slide count the content strategist is asked to produce.
const (
	MinSlides = 8
	MaxSlides = 12
)

// StrategyInput is the material handed to the content strategist.
type StrategyInput struct {
	Content      string
	References   string
	Instructions string
}

// Strategize runs the content strategy phase and returns an ordered content plan.
func (s *Service) Strategize(ctx context.Context, creds Credentials, in StrategyInput) (plan *models.ContentPlan, usage Usage, err error) {
	ctx, finish := startPhase(ctx, PhaseContentStrategy)
	defer func() { finish(err) }()

	if creds.TextAPIKey == "" {
		return nil, usage, ErrMissingCredential
	}

	p, err := s.prompts.Render(prompts.ContentStrategist, prompts.ContentData{
		Content:      in.Content,
		References:   in.References,
		Instructions: in.Instructions,
	})
	if err != nil {
		return nil, usage, err
	}

	out, err := s.complete(ctx, PhaseContentStrategy, creds, p)
	if err != nil {
		return nil, usage, err
	}
	usage = s.usageOf(creds, out)

	plan = &models.ContentPlan{}
	if err := jsonx.DecodeObject(out.Text, plan); err != nil {
		return nil, usage, &ParseError{Phase: PhaseContentStrategy, Raw: out.Text, Err: err}
	}
	if len(plan.Slides) == 0 {
		return nil, usage, &ParseError{Phase: PhaseContentStrategy, Raw: out.Text, Err: errors.New("plan has no slides")}
	}

	if renumberContentSlides(plan) {
		s.logger.Warn("content plan slide numbers not contiguous, renumbered", zap.Int("slides", len(plan.Slides)))
	}
	for i := range plan.Slides {
		plan.Slides[i].Message = strings.TrimSpace(plan.Slides[i].Message)
	}
	if n := len(plan.Slides); n < MinSlides || n > MaxSlides {
		s.logger.Warn("content plan slide count out of range",
			zap.Int("slides", n), zap.Int("min", MinSlides), zap.Int("max", MaxSlides))
	}

	s.logger.Info("content plan ready", zap.String("title", plan.DeckTitle), zap.Int("slides", len(plan.Slides)))
	return plan, usage, nil
}

// renumberContentSlides assigns 1..n by position unless numbering is already contiguous.
func renumberContentSlides(plan *models.ContentPlan) bool {
	contiguous := true
	for i, sl := range plan.Slides {
		if sl.SlideNumber != i+1 {
			contiguous = false
			break
		}
	}
	if contiguous {
		return false
	}
	for i := range plan.Slides {
		plan.Slides[i].SlideNumber = i + 1
	}
	return true
}
