package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deckforge/api/internal/graphics"
	"github.com/deckforge/api/internal/jsonx"
	"github.com/deckforge/api/internal/models"
	"github.com/deckforge/api/internal/prompts"
)

// DefaultDeckName is used when the model returns no name.
const DefaultDeckName = "Untitled deck"

type singlePhaseDeck struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Slides      []models.Slide `json:"slides"`
	Theme       *models.Theme  `json:"theme"`
}

// SinglePhase produces a deck with one model call followed by graphics generation.
// The prompt variant follows the buildOnly and fillMissingGraphics flags.
func (s *Service) SinglePhase(ctx context.Context, creds Credentials, req models.GenerationRequest, prep Prepared, report *Report) (deck *models.Deck, err error) {
	ctx, finish := startPhase(ctx, PhaseSingle)
	defer func() { finish(err) }()

	if creds.TextAPIKey == "" {
		return nil, ErrMissingCredential
	}
	mode := prompts.ResolveMode(req.BuildOnly, req.FillMissingGraphics)

	p, err := s.prompts.Render(mode.Template(), prompts.SinglePhaseData{
		Content:      req.Content,
		References:   prep.References,
		Instructions: req.Instructions,
		Brand:        prep.Brand,
	})
	if err != nil {
		return nil, err
	}

	out, err := s.complete(ctx, PhaseSingle, creds, p)
	if err != nil {
		return nil, err
	}
	if report != nil {
		report.AddUsage(s.usageOf(creds, out))
	}

	var raw singlePhaseDeck
	if err := jsonx.DecodeObject(out.Text, &raw); err != nil {
		return nil, &ParseError{Phase: PhaseSingle, Raw: out.Text, Err: err}
	}
	if len(raw.Slides) == 0 {
		return nil, &ParseError{Phase: PhaseSingle, Raw: out.Text, Err: errors.New("deck has no slides")}
	}

	deck = &models.Deck{
		Name:        firstNonEmpty(strings.TrimSpace(raw.Name), DefaultDeckName),
		Description: raw.Description,
		Slides:      raw.Slides,
		Theme:       normalizeTheme(raw.Theme),
	}
	for i := range deck.Slides {
		sl := &deck.Slides[i]
		sl.ID = uuid.NewString()
		sl.Type = layoutOrDefault(sl.Type)
		if sl.Background != "" {
			sl.Background = backgroundOrDefault(sl.Background)
		}
	}

	if mode == prompts.ModeStrict {
		if n := stripInventedGraphics(deck.Slides, req.Content+"\n"+req.Instructions); n > 0 {
			s.logger.Warn("removed graphics not present in the user's content", zap.Int("slides", n))
		}
	}

	if prep.Brand != nil {
		deck.Theme.Colors = prep.Brand.Colors
		if prep.Brand.Logo != "" {
			deck.Logo = prep.Brand.Logo
		}
	}

	res := s.graphics.Generate(ctx, creds.graphics(), graphicRequests(deck))
	applyGraphics(deck, res)
	if report != nil {
		report.addGraphics(res)
	}
	return deck, nil
}

// stripInventedGraphics drops graphics whose prompt does not appear verbatim in source.
func stripInventedGraphics(slides []models.Slide, source string) int {
	removed := 0
	for i := range slides {
		g := slides[i].Graphic
		if g == nil {
			continue
		}
		if g.Prompt == "" || !strings.Contains(source, g.Prompt) {
			slides[i].Graphic = nil
			removed++
		}
	}
	return removed
}

func graphicRequests(deck *models.Deck) []graphics.Request {
	var reqs []graphics.Request
	for i, sl := range deck.Slides {
		if sl.Graphic == nil || sl.Graphic.Prompt == "" {
			continue
		}
		t := sl.Graphic.Type
		if t != models.GraphicIcon {
			t = models.GraphicImage
			// The model may already have placed a brand image on this slide.
			if sl.ImageURL != "" {
				continue
			}
		}
		reqs = append(reqs, graphics.Request{
			SlideIndex: i,
			Type:       t,
			Prompt:     sl.Graphic.Prompt,
			Color:      deck.Theme.Colors.Primary,
		})
	}
	return reqs
}

func applyGraphics(deck *models.Deck, res *graphics.Result) {
	for i, url := range res.Images {
		deck.Slides[i].ImageURL = url
	}
	for i, url := range res.Icons {
		deck.Slides[i].IconURL = url
	}
}

// normalizeTheme fills any missing theme field from the defaults.
func normalizeTheme(t *models.Theme) models.Theme {
	def := models.DefaultPalette()
	if t == nil {
		return models.Theme{Colors: def, FontFamily: DefaultFontFamily}
	}
	c := t.Colors
	return models.Theme{
		Colors: models.Palette{
			Primary:    firstNonEmpty(c.Primary, def.Primary),
			Secondary:  firstNonEmpty(c.Secondary, def.Secondary),
			Accent:     firstNonEmpty(c.Accent, def.Accent),
			Background: firstNonEmpty(c.Background, def.Background),
			Text:       firstNonEmpty(c.Text, def.Text),
		},
		FontFamily: firstNonEmpty(t.FontFamily, DefaultFontFamily),
	}
}
