package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/deckforge/api/internal/jsonx"
	"github.com/deckforge/api/internal/models"
	"github.com/deckforge/api/internal/prompts"
)

// BrandColorScheme is the primary/accent/background triple handed to the designer.
func BrandColorScheme(p models.Palette) *models.ColorScheme {
	return &models.ColorScheme{Primary: p.Primary, Accent: p.Accent, Background: p.Background}
}

// Design runs the visual design phase. It fails when the designer does not return
// exactly one record per content slide.
func (s *Service) Design(ctx context.Context, creds Credentials, plan *models.ContentPlan, brandColors *models.ColorScheme) (design *models.DesignPlan, usage Usage, err error) {
	ctx, finish := startPhase(ctx, PhaseVisualDesign)
	defer func() { finish(err) }()

	if creds.TextAPIKey == "" {
		return nil, usage, ErrMissingCredential
	}

	planJSON, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return nil, usage, fmt.Errorf("encode content plan: %w", err)
	}

	p, err := s.prompts.Render(prompts.VisualDesigner, prompts.DesignData{
		PlanJSON:    string(planJSON),
		SlideCount:  len(plan.Slides),
		BrandColors: brandColors,
	})
	if err != nil {
		return nil, usage, err
	}

	out, err := s.complete(ctx, PhaseVisualDesign, creds, p)
	if err != nil {
		return nil, usage, err
	}
	usage = s.usageOf(creds, out)

	design = &models.DesignPlan{}
	if err := jsonx.DecodeObject(out.Text, design); err != nil {
		return nil, usage, &ParseError{Phase: PhaseVisualDesign, Raw: out.Text, Err: err}
	}
	if len(design.Slides) == 0 {
		return nil, usage, &ParseError{Phase: PhaseVisualDesign, Raw: out.Text, Err: errors.New("design has no slides")}
	}
	if len(design.Slides) != len(plan.Slides) {
		return nil, usage, &AlignmentError{
			Phase:  PhaseVisualDesign,
			Reason: fmt.Sprintf("content plan has %d slides, design has %d", len(plan.Slides), len(design.Slides)),
		}
	}

	s.logger.Info("design plan ready", zap.Int("slides", len(design.Slides)), zap.Bool("brand_colors", brandColors != nil))
	return design, usage, nil
}
