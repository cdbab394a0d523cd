// Package eventbus publishes deck lifecycle events to NATS JetStream.
package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Stream and subjects
const (
	StreamDecks             = "DECKS"
	SubjectDeckGenerated    = "deck.generated"
	SubjectGenerationFailed = "deck.generation_failed"
)

// Bus is a NATS connection with a JetStream context.
type Bus struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	logger *zap.Logger
}

// Connect dials NATS and makes sure the DECKS stream exists.
func Connect(url string, logger *zap.Logger) (*Bus, error) {
	nc, err := nats.Connect(url,
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(3),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	b := &Bus{nc: nc, js: js, logger: logger}
	if err := b.ensureStream(); err != nil {
		nc.Close()
		return nil, err
	}
	logger.Info("NATS and JetStream initialized", zap.String("stream", StreamDecks))
	return b, nil
}

func (b *Bus) ensureStream() error {
	_, err := b.js.AddStream(&nats.StreamConfig{
		Name:     StreamDecks,
		Subjects: []string{"deck.>"},
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return fmt.Errorf("add stream %s: %w", StreamDecks, err)
	}
	return nil
}

// Publish stores v as JSON on subject.
func (b *Bus) Publish(ctx context.Context, subject string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = b.js.Publish(subject, payload, nats.Context(ctx))
	return err
}

// Ping reports whether the connection is up.
func (b *Bus) Ping() error {
	if b == nil || !b.nc.IsConnected() {
		return nats.ErrConnectionClosed
	}
	return nil
}

// Close drains and closes the connection.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	if err := b.nc.Drain(); err != nil {
		b.nc.Close()
	}
}
