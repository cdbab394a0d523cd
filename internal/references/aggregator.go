// Package references turns reference URLs, uploaded files and brand assets into
// one block of prompt context.
package references

import (
	"context"
	"fmt"
	"strings"

	"github.com/deckforge/api/internal/metrics"
	"github.com/deckforge/api/internal/models"
	"github.com/deckforge/api/internal/webpage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SectionSeparator delimits sources in the aggregated text.
const SectionSeparator = "\n\n---\n\n"

const maxParallelFetches = 4

// PageFetcher fetches raw page bytes.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Aggregator collects reference material. It never fails for an individual source.
type Aggregator struct {
	fetcher  PageFetcher
	maxChars int
	logger   *zap.Logger
}

// NewAggregator creates an aggregator truncating each source to maxChars.
func NewAggregator(fetcher PageFetcher, maxChars int, logger *zap.Logger) *Aggregator {
	return &Aggregator{fetcher: fetcher, maxChars: maxChars, logger: logger}
}

// Aggregate fetches urls in parallel and returns URL sections in input order,
// then file sections in input order, then the brand section.
func (a *Aggregator) Aggregate(ctx context.Context, urls []string, files []models.ReferenceFile, brand *models.BrandAssets) string {
	sections := make([]string, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFetches)
	for i, url := range urls {
		g.Go(func() error {
			sections[i] = a.urlSection(gctx, url)
			return nil
		})
	}
	_ = g.Wait()

	for _, f := range files {
		text := webpage.Truncate(webpage.CollapseWhitespace(f.Content), a.maxChars)
		sections = append(sections, fmt.Sprintf("From file %s:\n%s", f.Name, text))
	}

	if brand != nil {
		sections = append(sections, BrandSection(*brand))
	}

	return strings.Join(sections, SectionSeparator)
}

func (a *Aggregator) urlSection(ctx context.Context, url string) string {
	page, err := a.fetcher.Fetch(ctx, url)
	if err != nil {
		metrics.ReferenceFetches.WithLabelValues("error").Inc()
		a.logger.Warn("reference fetch failed", zap.String("url", url), zap.Error(err))
		return fmt.Sprintf("From %s: (Error: %s)", url, err.Error())
	}
	metrics.ReferenceFetches.WithLabelValues("ok").Inc()
	return fmt.Sprintf("From %s:\n%s", url, webpage.Truncate(webpage.VisibleText(page), a.maxChars))
}

// BrandSection renders brand assets as prompt context.
func BrandSection(b models.BrandAssets) string {
	var sb strings.Builder
	sb.WriteString("Brand assets:\n")
	if b.CompanyName != "" {
		fmt.Fprintf(&sb, "- Company: %s\n", b.CompanyName)
	}
	fmt.Fprintf(&sb, "- Colors: primary %s, secondary %s, accent %s, background %s, text %s\n",
		b.Colors.Primary, b.Colors.Secondary, b.Colors.Accent, b.Colors.Background, b.Colors.Text)
	if b.Logo != "" {
		fmt.Fprintf(&sb, "- Logo: %s\n", b.Logo)
	}
	if len(b.Images) > 0 {
		fmt.Fprintf(&sb, "- Images: %s\n", strings.Join(b.Images, ", "))
	}
	return strings.TrimRight(sb.String(), "\n")
}
