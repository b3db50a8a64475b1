package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

const (
	defaultBreakerMaxFailures uint32 = 5
	defaultBreakerTimeout            = 30 * time.Second
	breakerInterval                  = 60 * time.Second
)

// BreakerCompleter fails fast once the wrapped provider has failed
// maxFailures times in a row. Ping goes straight to the provider so the
// diagnostic route keeps reporting the real state of the upstream.
type BreakerCompleter struct {
	inner   Completer
	breaker *gobreaker.CircuitBreaker[*Completion]
}

func NewBreakerCompleter(inner Completer, maxFailures int, timeout time.Duration, logger zerolog.Logger) *BreakerCompleter {
	threshold := defaultBreakerMaxFailures
	if maxFailures > 0 {
		threshold = uint32(maxFailures)
	}
	if timeout <= 0 {
		timeout = defaultBreakerTimeout
	}

	cb := gobreaker.NewCircuitBreaker[*Completion](gobreaker.Settings{
		Name:        "completion:" + inner.Name(),
		MaxRequests: 1,
		Interval:    breakerInterval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
		// A cancelled request says nothing about the provider's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &BreakerCompleter{inner: inner, breaker: cb}
}

func (b *BreakerCompleter) Name() string { return b.inner.Name() }

func (b *BreakerCompleter) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	resp, err := b.breaker.Execute(func() (*Completion, error) {
		return b.inner.Complete(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("provider %q circuit open: %w", b.inner.Name(), err)
	}
	return resp, err
}

func (b *BreakerCompleter) Ping(ctx context.Context) (*Completion, error) {
	return b.inner.Ping(ctx)
}

func (b *BreakerCompleter) state() gobreaker.State {
	return b.breaker.State()
}

var _ Completer = (*BreakerCompleter)(nil)
