package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/tbourn/go-premium-contracts/internal/domain"
)

// BreakerSettings configures Breaker.
type BreakerSettings struct {
	// MaxFailures consecutive failures open the circuit.
	MaxFailures uint32
	// OpenTimeout is how long the circuit stays open before one trial call.
	OpenTimeout time.Duration
}

// Breaker wraps a Client with one circuit breaker per channel.
type Breaker struct {
	next     Client
	settings BreakerSettings

	mu  sync.Mutex
	cbs map[domain.Channel]*gobreaker.CircuitBreaker
}

// NewBreaker returns a Breaker around next.
func NewBreaker(next Client, s BreakerSettings) *Breaker {
	if s.MaxFailures == 0 {
		s.MaxFailures = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}
	return &Breaker{next: next, settings: s, cbs: map[domain.Channel]*gobreaker.CircuitBreaker{}}
}

func (b *Breaker) breaker(ch domain.Channel) *gobreaker.CircuitBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cb, ok := b.cbs[ch]; ok {
		return cb
	}
	maxFailures := b.settings.MaxFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "delivery-" + string(ch),
		MaxRequests: 1,
		Timeout:     b.settings.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("delivery: breaker state change")
		},
	})
	b.cbs[ch] = cb
	return cb
}

// State reports the breaker state of ch.
func (b *Breaker) State(ch domain.Channel) gobreaker.State {
	return b.breaker(ch).State()
}

// Send implements Client. While the channel's circuit is open it fails fast
// without calling the wrapped client.
func (b *Breaker) Send(ctx context.Context, channel domain.Channel, recipient, subject, body string) error {
	_, err := b.breaker(channel).Execute(func() (interface{}, error) {
		return nil, b.next.Send(ctx, channel, recipient, subject, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s circuit open", ErrDeliveryFailed, channel)
	}
	return err
}
