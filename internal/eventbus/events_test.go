package eventbus

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recorder struct {
	subjects []string
	events   []any
	err      error
}

func (r *recorder) Publish(ctx context.Context, subject string, v any) error {
	r.subjects = append(r.subjects, subject)
	r.events = append(r.events, v)
	return r.err
}

func TestNotifierPublishes(t *testing.T) {
	rec := &recorder{}
	n := NewNotifier(rec, zap.NewNop())
	deckID := uuid.New()

	n.DeckGenerated(context.Background(), DeckGenerated{DeckID: deckID, SlideCount: 9})
	n.GenerationFailed(context.Background(), GenerationFailed{Phase: "visual-design", Error: "misaligned"})

	assert.Equal(t, []string{SubjectDeckGenerated, SubjectGenerationFailed}, rec.subjects)
	ev, ok := rec.events[0].(DeckGenerated)
	require.True(t, ok)
	assert.Equal(t, deckID, ev.DeckID)
	assert.False(t, ev.At.IsZero())
}

func TestNotifierSwallowsErrors(t *testing.T) {
	n := NewNotifier(&recorder{err: errors.New("no responders")}, zap.NewNop())
	assert.NotPanics(t, func() {
		n.DeckGenerated(context.Background(), DeckGenerated{})
	})

	var none *Notifier
	assert.NotPanics(t, func() {
		none.GenerationFailed(context.Background(), GenerationFailed{})
	})
	assert.NotPanics(t, func() {
		NewNotifier(nil, zap.NewNop()).DeckGenerated(context.Background(), DeckGenerated{})
	})
}
