// Package brand heuristically extracts brand colors, logo, name and imagery from a web page.
package brand

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/deckforge/api/internal/cache"
	"github.com/deckforge/api/internal/metrics"
	"github.com/deckforge/api/internal/models"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// MaxImages bounds the representative image list.
const MaxImages = 10

// PageFetcher fetches raw page bytes.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Extractor extracts brand assets. Extract never fails.
type Extractor struct {
	fetcher PageFetcher
	cache   cache.Cache
	ttl     time.Duration
	logger  *zap.Logger
}

// NewExtractor creates an extractor. store may be nil to disable caching.
func NewExtractor(fetcher PageFetcher, store cache.Cache, ttl time.Duration, logger *zap.Logger) *Extractor {
	return &Extractor{fetcher: fetcher, cache: store, ttl: ttl, logger: logger}
}

// Extract returns the brand assets of pageURL, or the default brand on any failure.
func (e *Extractor) Extract(ctx context.Context, pageURL string) models.BrandAssets {
	key := "brand:" + pageURL
	if e.cache != nil {
		var cached models.BrandAssets
		err := e.cache.Get(ctx, key, &cached)
		if err == nil {
			metrics.BrandExtractions.WithLabelValues("cache_hit").Inc()
			return cached
		}
		if !errors.Is(err, cache.ErrMiss) {
			e.logger.Warn("brand cache read failed", zap.String("url", pageURL), zap.Error(err))
		}
	}

	assets, err := e.extract(ctx, pageURL)
	if err != nil {
		metrics.BrandExtractions.WithLabelValues("fallback").Inc()
		e.logger.Warn("brand extraction failed, using default palette", zap.String("url", pageURL), zap.Error(err))
		return models.DefaultBrandAssets()
	}
	metrics.BrandExtractions.WithLabelValues("ok").Inc()

	if e.cache != nil {
		if err := e.cache.Set(ctx, key, assets, e.ttl); err != nil {
			e.logger.Warn("brand cache write failed", zap.String("url", pageURL), zap.Error(err))
		}
	}
	return assets
}

func (e *Extractor) extract(ctx context.Context, pageURL string) (models.BrandAssets, error) {
	origin, err := originOf(pageURL)
	if err != nil {
		return models.BrandAssets{}, err
	}
	page, err := e.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return models.BrandAssets{}, err
	}
	return ExtractFromHTML(page, origin)
}

// ExtractFromHTML parses page and resolves relative URLs against origin.
func ExtractFromHTML(page []byte, origin string) (models.BrandAssets, error) {
	doc, err := html.Parse(strings.NewReader(string(page)))
	if err != nil {
		return models.BrandAssets{}, fmt.Errorf("parse html: %w", err)
	}

	s := scan(doc)

	assets := models.DefaultBrandAssets()
	assets.Colors = paletteFrom(extractColors(s.css.String()))

	switch {
	case s.ogImage != "":
		assets.Logo = resolve(origin, s.ogImage)
	case s.logoImg != "":
		assets.Logo = resolve(origin, s.logoImg)
	}

	switch {
	case s.siteName != "":
		assets.CompanyName = s.siteName
	case s.title != "":
		assets.CompanyName = companyFromTitle(s.title)
	}

	seen := map[string]bool{assets.Logo: true}
	for _, src := range s.images {
		if len(assets.Images) >= MaxImages {
			break
		}
		abs := resolve(origin, src)
		if seen[abs] {
			continue
		}
		seen[abs] = true
		assets.Images = append(assets.Images, abs)
	}
	return assets, nil
}

type pageScan struct {
	css      strings.Builder
	ogImage  string
	siteName string
	title    string
	logoImg  string
	images   []string
}

func scan(doc *html.Node) *pageScan {
	s := &pageScan{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if style := attr(n, "style"); style != "" {
				s.css.WriteString(style)
				s.css.WriteString("\n")
			}
			switch n.Data {
			case "style":
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					if c.Type == html.TextNode {
						s.css.WriteString(c.Data)
						s.css.WriteString("\n")
					}
				}
			case "meta":
				content := strings.TrimSpace(attr(n, "content"))
				switch strings.ToLower(attr(n, "property") + attr(n, "name")) {
				case "og:image":
					if s.ogImage == "" {
						s.ogImage = content
					}
				case "og:site_name":
					if s.siteName == "" {
						s.siteName = content
					}
				case "theme-color":
					s.css.WriteString(content)
					s.css.WriteString("\n")
				}
			case "title":
				if s.title == "" && n.FirstChild != nil {
					s.title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "img":
				src := strings.TrimSpace(attr(n, "src"))
				if src == "" {
					src = strings.TrimSpace(attr(n, "data-src"))
				}
				if src == "" || strings.HasPrefix(src, "data:") {
					break
				}
				if isLogo(n) {
					if s.logoImg == "" {
						s.logoImg = src
					}
					break
				}
				if !isIcon(src) {
					s.images = append(s.images, src)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return s
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func isLogo(n *html.Node) bool {
	for _, key := range []string{"class", "id", "alt"} {
		if strings.Contains(strings.ToLower(attr(n, key)), "logo") {
			return true
		}
	}
	return false
}

func isIcon(src string) bool {
	lower := strings.ToLower(src)
	return strings.Contains(lower, "icon") || strings.HasSuffix(lower, ".ico") || strings.HasSuffix(lower, ".svg")
}

func companyFromTitle(title string) string {
	if i := strings.IndexAny(title, "|-"); i >= 0 {
		title = title[:i]
	}
	return strings.TrimSpace(title)
}

func originOf(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return "", fmt.Errorf("not an absolute http(s) URL: %q", pageURL)
	}
	return u.Scheme + "://" + u.Host, nil
}

// resolve makes src absolute against the page origin.
func resolve(origin, src string) string {
	lower := strings.ToLower(src)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return src
	case strings.HasPrefix(src, "//"):
		scheme := "https"
		if i := strings.Index(origin, "://"); i > 0 {
			scheme = origin[:i]
		}
		return scheme + ":" + src
	case strings.HasPrefix(src, "/"):
		return origin + src
	}
	return origin + "/" + strings.TrimPrefix(src, "./")
}
