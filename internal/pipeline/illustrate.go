package pipeline

import (
	"context"

	"github.com/deckforge/api/internal/graphics"
	"github.com/deckforge/api/internal/models"
)

// Illustrate runs the graphics phase. Every non-empty detailedPrompt becomes an image
// job. The result holds one entry per design slide, in design order; slides whose
// image failed get a brand image as fallback when any are available.
// It never fails.
func (s *Service) Illustrate(ctx context.Context, creds Credentials, design *models.DesignPlan, brandImages []string) (*models.GraphicsResult, *graphics.Result) {
	ctx, finish := startPhase(ctx, PhaseGraphics)
	defer finish(nil)

	var reqs []graphics.Request
	for i, d := range design.Slides {
		if d.VisualStrategy.DetailedPrompt == "" {
			continue
		}
		reqs = append(reqs, graphics.Request{
			SlideIndex: i,
			Type:       models.GraphicImage,
			Prompt:     d.VisualStrategy.DetailedPrompt,
			Color:      d.ColorScheme.Primary,
		})
	}

	res := s.graphics.Generate(ctx, creds.graphics(), reqs)

	out := &models.GraphicsResult{Slides: make([]models.SlideGraphics, len(design.Slides))}
	fallbacks := 0
	for i, d := range design.Slides {
		sg := models.SlideGraphics{SlideNumber: d.SlideNumber, ImageURL: res.Images[i]}
		if sg.ImageURL == "" && d.VisualStrategy.DetailedPrompt != "" && len(brandImages) > 0 {
			sg.FallbackURL = brandImages[fallbacks%len(brandImages)]
			fallbacks++
		}
		out.Slides[i] = sg
	}
	return out, res
}
