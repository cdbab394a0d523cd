package textgen

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const typeCircuitOpen = "circuit_open"

// NewBreaker builds the circuit breaker shared by every text-generation call.
// Only transport failures, 5xx and overload responses count against upstream health;
// a bad key or an oversized prompt is the caller's problem.
func NewBreaker(name string, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			var upErr *UpstreamError
			if errors.As(err, &upErr) {
				return !upErr.tripsBreaker()
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
}

// BreakerClient guards a Client with a circuit breaker.
type BreakerClient struct {
	next Provider
	cb   *gobreaker.CircuitBreaker
}

// WithBreaker wraps next so calls fail fast while the breaker is open.
func WithBreaker(next Provider, cb *gobreaker.CircuitBreaker) *BreakerClient {
	return &BreakerClient{next: next, cb: cb}
}

func (b *BreakerClient) Name() string { return b.next.Name() }

func (b *BreakerClient) Complete(ctx context.Context, apiKey string, req Request) (*Completion, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Complete(ctx, apiKey, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &UpstreamError{
			Service: serviceName,
			Type:    typeCircuitOpen,
			Message: "temporarily disabled after repeated upstream failures",
			Err:     err,
		}
	}
	if err != nil {
		return nil, err
	}
	return out.(*Completion), nil
}

var _ Provider = (*BreakerClient)(nil)
