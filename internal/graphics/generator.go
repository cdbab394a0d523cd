// Package graphics produces slide images and icons from external generation services.
// Every failure is absorbed: an affected slide simply gets no image or icon.
package graphics

import (
	"context"
	"sync"
	"time"

	"github.com/deckforge/api/internal/metrics"
	"github.com/deckforge/api/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Credentials for the enrichment services. Empty keys disable the service.
type Credentials struct {
	ImageAPIKey string
	IconAPIKey  string
}

// Request asks for one graphic on one slide.
type Request struct {
	SlideIndex int
	Type       models.GraphicType
	Prompt     string
	Color      string
}

// Result maps slide indexes to produced URLs.
type Result struct {
	Images          map[int]string
	Icons           map[int]string
	ImagesRequested int
	IconsRequested  int
	Outcomes        []ImageOutcome
}

// Options tunes the generator.
type Options struct {
	Width           int
	Height          int
	PollInterval    time.Duration
	MaxPolls        int
	RequestDelay    time.Duration
	IconConcurrency int
	IconStyle       string
	IconFormat      string
}

// DefaultOptions matches the image service's documented limits.
func DefaultOptions() Options {
	return Options{
		Width:           1024,
		Height:          576,
		PollInterval:    2 * time.Second,
		MaxPolls:        30,
		RequestDelay:    time.Second,
		IconConcurrency: 4,
		IconStyle:       "flat",
		IconFormat:      "svg",
	}
}

// Generator runs image jobs sequentially and icon requests in parallel.
type Generator struct {
	images ImageService
	icons  IconService
	opts   Options
	logger *zap.Logger
}

// NewGenerator creates a generator. Either service may be nil.
func NewGenerator(images ImageService, icons IconService, opts Options, logger *zap.Logger) *Generator {
	if opts.MaxPolls <= 0 {
		opts.MaxPolls = 30
	}
	if opts.IconConcurrency <= 0 {
		opts.IconConcurrency = 1
	}
	return &Generator{images: images, icons: icons, opts: opts, logger: logger}
}

// Generate fulfils reqs best-effort. It never returns an error.
func (g *Generator) Generate(ctx context.Context, creds Credentials, reqs []Request) *Result {
	res := &Result{Images: map[int]string{}, Icons: map[int]string{}}

	var imageReqs, iconReqs []Request
	for _, r := range reqs {
		if r.Prompt == "" {
			continue
		}
		if r.Type == models.GraphicIcon {
			iconReqs = append(iconReqs, r)
		} else {
			imageReqs = append(imageReqs, r)
		}
	}
	res.ImagesRequested = len(imageReqs)
	res.IconsRequested = len(iconReqs)

	g.generateImages(ctx, creds.ImageAPIKey, imageReqs, res)
	g.generateIcons(ctx, creds.IconAPIKey, iconReqs, res)

	g.logger.Info("graphics generated",
		zap.Int("images_requested", res.ImagesRequested),
		zap.Int("images_produced", len(res.Images)),
		zap.Int("icons_requested", res.IconsRequested),
		zap.Int("icons_produced", len(res.Icons)),
	)
	return res
}

// generateImages runs one job at a time. Each submission after the first waits
// RequestDelay from the end of the previous job.
func (g *Generator) generateImages(ctx context.Context, apiKey string, reqs []Request, res *Result) {
	if len(reqs) == 0 {
		return
	}
	if apiKey == "" || g.images == nil {
		g.logger.Warn("image generation skipped: no image service credential", zap.Int("slides", len(reqs)))
		return
	}

	p := poller{service: g.images, interval: g.opts.PollInterval, maxPolls: g.opts.MaxPolls}

	for i, r := range reqs {
		var out ImageOutcome
		wait := time.Duration(0)
		if i > 0 {
			wait = g.opts.RequestDelay
		}
		if err := pause(ctx, wait); err != nil {
			out = ImageOutcome{State: StateCancelled, Err: err}
		} else {
			out = p.run(ctx, apiKey, ImageJob{Prompt: r.Prompt, Width: g.opts.Width, Height: g.opts.Height})
		}
		out.SlideIndex = r.SlideIndex
		res.Outcomes = append(res.Outcomes, out)
		metrics.ImageJobs.WithLabelValues(string(out.State)).Inc()

		if out.State == StateComplete {
			res.Images[r.SlideIndex] = out.URL
			continue
		}
		g.logger.Warn("image generation produced no image",
			zap.Int("slide_index", r.SlideIndex),
			zap.String("job_id", out.JobID),
			zap.String("state", string(out.State)),
			zap.Int("polls", out.Polls),
			zap.Error(out.Err),
		)
	}
}

// pause waits d or until ctx is done.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// generateIcons issues one request per prompt in parallel; failures are independent.
func (g *Generator) generateIcons(ctx context.Context, apiKey string, reqs []Request, res *Result) {
	if len(reqs) == 0 {
		return
	}
	if apiKey == "" || g.icons == nil {
		g.logger.Warn("icon generation skipped: no icon service credential", zap.Int("slides", len(reqs)))
		return
	}

	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.IconConcurrency)
	for _, r := range reqs {
		eg.Go(func() error {
			icon, err := g.icons.Generate(egCtx, apiKey, IconRequest{
				Prompt: r.Prompt,
				Style:  g.opts.IconStyle,
				Color:  r.Color,
				Format: g.opts.IconFormat,
			})
			if err != nil {
				metrics.IconRequests.WithLabelValues("error").Inc()
				g.logger.Warn("icon generation failed", zap.Int("slide_index", r.SlideIndex), zap.Error(err))
				return nil
			}
			metrics.IconRequests.WithLabelValues("ok").Inc()
			mu.Lock()
			res.Icons[r.SlideIndex] = icon.URL
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()
}
