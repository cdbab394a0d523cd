// Package textgen talks to the external text-generation service.
package textgen

import (
	"context"
	"time"

	"github.com/deckforge/api/internal/metrics"
)

// Request is one single-turn generation request.
type Request struct {
	Model     string
	MaxTokens int
	System    string
	User      string
}

// Completion is the raw model output plus usage.
type Completion struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Client performs text generation with a caller-supplied API key.
type Client interface {
	Complete(ctx context.Context, apiKey string, req Request) (*Completion, error)
}

// Provider name plus client, used for logging and metrics.
type Provider interface {
	Client
	Name() string
}

// observe records outcome metrics for a finished call.
func observe(provider string, start time.Time, out *Completion, err error) {
	metrics.TextGenDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.TextGenRequests.WithLabelValues(provider, string(CategoryOf(err))).Inc()
		return
	}
	metrics.TextGenRequests.WithLabelValues(provider, "ok").Inc()
	metrics.TextGenTokens.WithLabelValues(provider, "in").Add(float64(out.InputTokens))
	metrics.TextGenTokens.WithLabelValues(provider, "out").Add(float64(out.OutputTokens))
}

func modelOr(requested, fallback string) string {
	if requested != "" {
		return requested
	}
	return fallback
}
