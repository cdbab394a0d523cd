// Package pipeline turns user content into a finished deck, either through the
// four-phase content/design/graphics/assembly pipeline or a single model call.
package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/deckforge/api/internal/brand"
	"github.com/deckforge/api/internal/graphics"
	"github.com/deckforge/api/internal/metrics"
	"github.com/deckforge/api/internal/models"
	"github.com/deckforge/api/internal/prompts"
	"github.com/deckforge/api/internal/references"
	"github.com/deckforge/api/internal/textgen"
)

var tracer = otel.Tracer("github.com/deckforge/api/internal/pipeline")

// Credentials are the per-request keys for the external services.
type Credentials struct {
	// TextProvider selects the text-generation provider; empty means the server default.
	TextProvider string
	TextAPIKey   string
	ImageAPIKey string
	IconAPIKey  string
}

func (c Credentials) graphics() graphics.Credentials {
	return graphics.Credentials{ImageAPIKey: c.ImageAPIKey, IconAPIKey: c.IconAPIKey}
}

// Usage is the token accounting of one model call.
type Usage struct {
	Provider     string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Report summarizes one generation run.
type Report struct {
	Mode            string        `json:"mode"`
	PromptVersion   string        `json:"promptVersion"`
	Provider        string        `json:"provider"`
	Model           string        `json:"model"`
	SlideCount      int           `json:"slideCount"`
	ImagesRequested int           `json:"imagesRequested"`
	ImagesProduced  int           `json:"imagesProduced"`
	IconsRequested  int           `json:"iconsRequested"`
	IconsProduced   int           `json:"iconsProduced"`
	InputTokens     int           `json:"inputTokens"`
	OutputTokens    int           `json:"outputTokens"`
	Duration        time.Duration `json:"duration"`
}

// AddUsage accumulates the token usage of one model call.
func (r *Report) AddUsage(u Usage) {
	if u.Provider != "" {
		r.Provider = u.Provider
	}
	if u.Model != "" {
		r.Model = u.Model
	}
	r.InputTokens += u.InputTokens
	r.OutputTokens += u.OutputTokens
}

func (r *Report) addGraphics(res *graphics.Result) {
	if res == nil {
		return
	}
	r.ImagesRequested += res.ImagesRequested
	r.ImagesProduced += len(res.Images)
	r.IconsRequested += res.IconsRequested
	r.IconsProduced += len(res.Icons)
}

// Options configures model calls.
type Options struct {
	Model     string
	MaxTokens int
}

// ProgressFunc is told when the pipeline enters a new stage.
type ProgressFunc func(stage string)

// Service runs deck generation.
type Service struct {
	text     *textgen.Router
	refs     *references.Aggregator
	brand    *brand.Extractor
	graphics *graphics.Generator
	prompts  *prompts.Library
	opts     Options
	logger   *zap.Logger
}

// NewService wires the pipeline dependencies.
func NewService(
	text *textgen.Router,
	refs *references.Aggregator,
	brandExtractor *brand.Extractor,
	gen *graphics.Generator,
	lib *prompts.Library,
	opts Options,
	logger *zap.Logger,
) *Service {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 8192
	}
	return &Service{
		text:     text,
		refs:     refs,
		brand:    brandExtractor,
		graphics: gen,
		prompts:  lib,
		opts:     opts,
		logger:   logger,
	}
}

// Provider returns the name of the provider creds will be served by.
func (s *Service) Provider(creds Credentials) string {
	return s.text.Get(creds.TextProvider).Name()
}

// PromptVersion returns the loaded template revision.
func (s *Service) PromptVersion() string {
	return s.prompts.Version()
}

// complete renders a prompt and sends it to the text-generation service.
func (s *Service) complete(ctx context.Context, phase string, creds Credentials, p prompts.Prompt) (*textgen.Completion, error) {
	out, err := s.text.Get(creds.TextProvider).Complete(ctx, creds.TextAPIKey, textgen.Request{
		Model:     s.modelFor(creds.TextProvider),
		MaxTokens: s.opts.MaxTokens,
		System:    p.System,
		User:      p.User,
	})
	if err != nil {
		return nil, &PhaseError{Phase: phase, Err: err}
	}
	return out, nil
}

// modelFor returns the configured model when provider resolves to the default
// provider. Other providers get "" and use their own default model.
func (s *Service) modelFor(provider string) string {
	if provider == "" || !s.text.Has(provider) || provider == s.text.Default() {
		return s.opts.Model
	}
	return ""
}

// startPhase opens a span and returns a finisher that records the outcome.
func startPhase(ctx context.Context, phase string) (context.Context, func(error)) {
	ctx, span := tracer.Start(ctx, "pipeline."+phase)
	span.SetAttributes(attribute.String("pipeline.phase", phase))
	start := time.Now()
	return ctx, func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		metrics.PhaseDuration.WithLabelValues(phase, outcome).Observe(time.Since(start).Seconds())
		span.End()
	}
}

func (s *Service) usageOf(creds Credentials, c *textgen.Completion) Usage {
	return Usage{Provider: s.Provider(creds), Model: c.Model, InputTokens: c.InputTokens, OutputTokens: c.OutputTokens}
}

// Prepared is the shared context assembled before any model call.
type Prepared struct {
	References string
	// Brand is nil unless the request named a brand URL.
	Brand *models.BrandAssets
}

// Prepare extracts the brand (when requested) and aggregates reference material.
func (s *Service) Prepare(ctx context.Context, req models.GenerationRequest) Prepared {
	var p Prepared
	if req.BrandURL != "" {
		b := s.brand.Extract(ctx, req.BrandURL)
		p.Brand = &b
	}
	p.References = s.refs.Aggregate(ctx, req.URLs, req.Files, p.Brand)
	return p
}

// Generate runs the pipeline selected by req and returns the deck with a run report.
// The deck has no ID or owner; persistence assigns those.
func (s *Service) Generate(ctx context.Context, creds Credentials, req models.GenerationRequest, progress ProgressFunc) (*models.Deck, *Report, error) {
	if progress == nil {
		progress = func(string) {}
	}
	if creds.TextAPIKey == "" {
		return nil, nil, ErrMissingCredential
	}
	if !req.HasInput() {
		return nil, nil, ErrNoInput
	}

	start := time.Now()
	mode := "multi-phase"
	if !req.MultiPhase {
		mode = string(prompts.ResolveMode(req.BuildOnly, req.FillMissingGraphics))
	}
	report := &Report{Mode: mode, PromptVersion: s.prompts.Version(), Provider: s.Provider(creds)}

	progress(models.StagePreparing)
	prep := s.Prepare(ctx, req)

	var (
		deck *models.Deck
		err  error
	)
	if req.MultiPhase {
		deck, err = s.generateMultiPhase(ctx, creds, req, prep, report, progress)
	} else {
		progress(models.StageSinglePhase)
		deck, err = s.SinglePhase(ctx, creds, req, prep, report)
	}
	report.Duration = time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.DecksGenerated.WithLabelValues(mode, outcome).Inc()
	if err != nil {
		s.logger.Error("deck generation failed",
			zap.String("mode", mode),
			zap.String("phase", FailedPhase(err)),
			zap.Duration("duration", report.Duration),
			zap.Error(err),
		)
		return nil, report, err
	}

	report.SlideCount = len(deck.Slides)
	s.logger.Info("deck generated",
		zap.String("mode", mode),
		zap.Int("slides", report.SlideCount),
		zap.Int("images", report.ImagesProduced),
		zap.Int("icons", report.IconsProduced),
		zap.Int("input_tokens", report.InputTokens),
		zap.Int("output_tokens", report.OutputTokens),
		zap.Duration("duration", report.Duration),
	)
	return deck, report, nil
}

func (s *Service) generateMultiPhase(ctx context.Context, creds Credentials, req models.GenerationRequest, prep Prepared, report *Report, progress ProgressFunc) (*models.Deck, error) {
	progress(models.StageContentStrategy)
	plan, usage, err := s.Strategize(ctx, creds, StrategyInput{
		Content:      req.Content,
		References:   prep.References,
		Instructions: req.Instructions,
	})
	if err != nil {
		return nil, err
	}
	report.AddUsage(usage)

	var brandColors *models.ColorScheme
	var brandPalette *models.Palette
	var logo string
	var brandImages []string
	if prep.Brand != nil {
		brandColors = BrandColorScheme(prep.Brand.Colors)
		brandPalette = &prep.Brand.Colors
		logo = prep.Brand.Logo
		brandImages = prep.Brand.Images
	}

	progress(models.StageVisualDesign)
	design, usage, err := s.Design(ctx, creds, plan, brandColors)
	if err != nil {
		return nil, err
	}
	report.AddUsage(usage)

	progress(models.StageGraphics)
	gfx, gres := s.Illustrate(ctx, creds, design, brandImages)
	report.addGraphics(gres)

	progress(models.StageAssembly)
	return AssembleTraced(ctx, AssemblyInput{
		Plan:        plan,
		Design:      design,
		Graphics:    gfx,
		BrandColors: brandPalette,
		Logo:        logo,
	})
}
