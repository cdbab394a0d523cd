package eventbus

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Publisher sends one event.
type Publisher interface {
	Publish(ctx context.Context, subject string, v any) error
}

// DeckGenerated is published after a deck is saved.
type DeckGenerated struct {
	DeckID         uuid.UUID  `json:"deck_id"`
	UserID         uuid.UUID  `json:"user_id"`
	JobID          *uuid.UUID `json:"job_id,omitempty"`
	Mode           string     `json:"mode"`
	SlideCount     int        `json:"slide_count"`
	ImagesProduced int        `json:"images_produced"`
	At             time.Time  `json:"at"`
}

// GenerationFailed is published when a generation ends in error.
type GenerationFailed struct {
	UserID uuid.UUID  `json:"user_id"`
	JobID  *uuid.UUID `json:"job_id,omitempty"`
	Phase  string     `json:"phase,omitempty"`
	Error  string     `json:"error"`
	At     time.Time  `json:"at"`
}

// Notifier publishes deck events. Publish failures are logged and dropped.
// A Notifier with a nil publisher does nothing.
type Notifier struct {
	pub    Publisher
	logger *zap.Logger
}

// NewNotifier creates a notifier over pub, which may be nil.
func NewNotifier(pub Publisher, logger *zap.Logger) *Notifier {
	return &Notifier{pub: pub, logger: logger}
}

// DeckGenerated publishes ev on deck.generated.
func (n *Notifier) DeckGenerated(ctx context.Context, ev DeckGenerated) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	n.publish(ctx, SubjectDeckGenerated, ev)
}

// GenerationFailed publishes ev on deck.generation_failed.
func (n *Notifier) GenerationFailed(ctx context.Context, ev GenerationFailed) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	n.publish(ctx, SubjectGenerationFailed, ev)
}

func (n *Notifier) publish(ctx context.Context, subject string, v any) {
	if n == nil || n.pub == nil {
		return
	}
	if err := n.pub.Publish(ctx, subject, v); err != nil {
		n.logger.Warn("failed to publish event", zap.String("subject", subject), zap.Error(err))
	}
}
