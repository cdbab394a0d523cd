package pipeline

import (
	"context"
	"fmt"

	"github.com/deckforge/api/internal/models"
)

// DefaultFontFamily is the deck font unless the model chose one.
const DefaultFontFamily = "Inter"

// AssemblyInput is everything the assembler combines.
type AssemblyInput struct {
	Plan     *models.ContentPlan
	Design   *models.DesignPlan
	Graphics *models.GraphicsResult
	// BrandColors overrides the theme palette when set.
	BrandColors *models.Palette
	Logo        string
}

// aligned is one slide's records from each phase.
type aligned struct {
	content  models.ContentSlide
	design   models.SlideDesign
	graphics models.SlideGraphics
}

// reconcile joins the phase outputs by slideNumber, in content-plan order.
func reconcile(plan *models.ContentPlan, design *models.DesignPlan, gfx *models.GraphicsResult) ([]aligned, error) {
	designs := make(map[int]models.SlideDesign, len(design.Slides))
	for _, d := range design.Slides {
		if _, dup := designs[d.SlideNumber]; dup {
			return nil, &AlignmentError{Phase: PhaseAssembly, Reason: fmt.Sprintf("duplicate design record for slide %d", d.SlideNumber)}
		}
		designs[d.SlideNumber] = d
	}
	if len(designs) != len(plan.Slides) {
		return nil, &AlignmentError{Phase: PhaseAssembly, Reason: fmt.Sprintf("content plan has %d slides, design has %d", len(plan.Slides), len(designs))}
	}

	visuals := map[int]models.SlideGraphics{}
	if gfx != nil {
		for _, g := range gfx.Slides {
			if _, known := designs[g.SlideNumber]; !known {
				return nil, &AlignmentError{Phase: PhaseAssembly, Reason: fmt.Sprintf("graphics record for unknown slide %d", g.SlideNumber)}
			}
			if _, dup := visuals[g.SlideNumber]; dup {
				return nil, &AlignmentError{Phase: PhaseAssembly, Reason: fmt.Sprintf("duplicate graphics record for slide %d", g.SlideNumber)}
			}
			visuals[g.SlideNumber] = g
		}
	}

	out := make([]aligned, len(plan.Slides))
	for i, c := range plan.Slides {
		d, ok := designs[c.SlideNumber]
		if !ok {
			return nil, &AlignmentError{Phase: PhaseAssembly, Reason: fmt.Sprintf("no design record for slide %d", c.SlideNumber)}
		}
		out[i] = aligned{content: c, design: d, graphics: visuals[c.SlideNumber]}
	}
	return out, nil
}

// Assemble combines the three phase outputs into a deck. It is pure: the same
// input always yields the same deck.
func Assemble(in AssemblyInput) (*models.Deck, error) {
	if in.Plan == nil || in.Design == nil {
		return nil, &AlignmentError{Phase: PhaseAssembly, Reason: "missing content plan or design"}
	}
	rows, err := reconcile(in.Plan, in.Design, in.Graphics)
	if err != nil {
		return nil, err
	}

	deck := &models.Deck{
		Name:        in.Plan.DeckTitle,
		Description: in.Plan.DeckDescription,
		Slides:      make([]models.Slide, 0, len(rows)),
		Logo:        in.Logo,
	}
	for _, r := range rows {
		deck.Slides = append(deck.Slides, assembleSlide(r))
	}

	if in.BrandColors != nil {
		deck.Theme = models.Theme{Colors: *in.BrandColors, FontFamily: DefaultFontFamily}
	} else {
		deck.Theme = themeFromDesign(in.Design)
	}
	return deck, nil
}

// AssembleTraced wraps Assemble in a phase span.
func AssembleTraced(ctx context.Context, in AssemblyInput) (deck *models.Deck, err error) {
	_, finish := startPhase(ctx, PhaseAssembly)
	defer func() { finish(err) }()
	return Assemble(in)
}

func assembleSlide(r aligned) models.Slide {
	c, d := r.content, r.design
	slide := models.Slide{
		ID:          fmt.Sprintf("slide-%d", c.SlideNumber),
		Type:        layoutOrDefault(d.Layout),
		Background:  backgroundOrDefault(d.Background),
		Title:       firstNonEmpty(d.Typography.Headline, c.Message, fmt.Sprintf("Slide %d", c.SlideNumber)),
		ImageURL:    r.graphics.ImageURL,
		FallbackURL: r.graphics.FallbackURL,
	}
	if vs := d.VisualStrategy; vs.DetailedPrompt != "" {
		slide.Graphic = &models.Graphic{Type: models.GraphicImage, Prompt: vs.DetailedPrompt, Position: vs.Position}
	}

	switch slide.Type {
	case models.LayoutTitle:
		slide.Subtitle = firstNonEmpty(d.Typography.Subtext, c.SupportingText)
	case models.LayoutStats:
		nums := d.Typography.EmphasizedNumbers
		if len(nums) == 0 {
			nums = c.DataPoints
		}
		if len(nums) > 0 {
			slide.MainStat = nums[0]
			if len(nums) > 1 {
				slide.SupportingStats = append([]string(nil), nums[1:]...)
			}
		}
		slide.StatLabel = firstNonEmpty(d.Typography.Subtext, c.SupportingText)
	case models.LayoutSplit:
		slide.LeftContent = firstNonEmpty(c.SupportingText, d.Typography.Subtext)
	default:
		slide.Content = bullets(c)
	}
	return slide
}

func bullets(c models.ContentSlide) models.Bullets {
	if len(c.DataPoints) > 0 {
		return append(models.Bullets(nil), c.DataPoints...)
	}
	if c.SupportingText != "" {
		return models.Bullets{c.SupportingText}
	}
	return nil
}

// themeFromDesign derives the palette from the first slide's color scheme.
func themeFromDesign(design *models.DesignPlan) models.Theme {
	colors := models.DefaultPalette()
	if len(design.Slides) > 0 {
		cs := design.Slides[0].ColorScheme
		colors.Primary = firstNonEmpty(cs.Primary, colors.Primary)
		colors.Secondary = firstNonEmpty(cs.Accent, colors.Secondary)
		colors.Accent = firstNonEmpty(cs.Accent, colors.Accent)
		colors.Background = firstNonEmpty(cs.Background, colors.Background)
	}
	return models.Theme{Colors: colors, FontFamily: DefaultFontFamily}
}

func layoutOrDefault(l models.Layout) models.Layout {
	switch l {
	case models.LayoutTitle, models.LayoutImageFocus, models.LayoutSplit, models.LayoutStats, models.LayoutContent:
		return l
	default:
		return models.LayoutContent
	}
}

func backgroundOrDefault(b models.Background) models.Background {
	switch b {
	case models.BackgroundGradient, models.BackgroundSolid, models.BackgroundPattern:
		return b
	default:
		return models.BackgroundGradient
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
