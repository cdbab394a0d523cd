package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Deck service metrics
var (
	// HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deckforge",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// Text-generation calls
	TextGenRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deckforge",
			Subsystem: "textgen",
			Name:      "requests_total",
			Help:      "Text-generation calls by provider and outcome category",
		},
		[]string{"provider", "outcome"},
	)

	TextGenDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "deckforge",
			Subsystem: "textgen",
			Name:      "request_duration_seconds",
			Help:      "Text-generation call duration in seconds",
			Buckets:   []float64{1, 5, 10, 20, 40, 60, 120, 180},
		},
		[]string{"provider"},
	)

	TextGenTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deckforge",
			Subsystem: "textgen",
			Name:      "tokens_total",
			Help:      "Tokens consumed by direction",
		},
		[]string{"provider", "direction"},
	)

	// Pipeline phases
	PhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "deckforge",
			Subsystem: "pipeline",
			Name:      "phase_duration_seconds",
			Help:      "Duration of each generation phase",
			Buckets:   []float64{0.01, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"phase", "outcome"},
	)

	DecksGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deckforge",
			Subsystem: "pipeline",
			Name:      "decks_generated_total",
			Help:      "Decks generated by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	// Enrichment
	ImageJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deckforge",
			Subsystem: "graphics",
			Name:      "image_jobs_total",
			Help:      "Image generation jobs by terminal state",
		},
		[]string{"state"},
	)

	IconRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deckforge",
			Subsystem: "graphics",
			Name:      "icon_requests_total",
			Help:      "Icon generation requests by outcome",
		},
		[]string{"outcome"},
	)

	ReferenceFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deckforge",
			Subsystem: "references",
			Name:      "fetches_total",
			Help:      "Reference URL fetches by outcome",
		},
		[]string{"outcome"},
	)

	BrandExtractions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "deckforge",
			Subsystem: "brand",
			Name:      "extractions_total",
			Help:      "Brand extractions by outcome",
		},
		[]string{"outcome"},
	)

	// Async jobs
	JobsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "deckforge",
			Subsystem: "jobs",
			Name:      "in_flight",
			Help:      "Generation jobs currently running on the local runner",
		},
	)
)
