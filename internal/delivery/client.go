// Package delivery contains the outbound channel clients used by the
// notification dispatcher. Every client implements Client; Router fans a
// Send out to the client registered for the channel and Breaker isolates a
// failing provider behind a per-channel circuit breaker.
//
// Errors returned by clients wrap ErrDeliveryFailed so the dispatcher can
// record them on the notification without inspecting provider details.
package delivery

import (
	"context"
	"errors"
	"fmt"

	"github.com/tbourn/go-premium-contracts/internal/domain"
)

// ErrDeliveryFailed is wrapped by every delivery error.
var ErrDeliveryFailed = errors.New("delivery failed")

// Client sends one rendered message to one recipient.
type Client interface {
	Send(ctx context.Context, channel domain.Channel, recipient, subject, body string) error
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, channel domain.Channel, recipient, subject, body string) error

// Send calls f.
func (f ClientFunc) Send(ctx context.Context, channel domain.Channel, recipient, subject, body string) error {
	return f(ctx, channel, recipient, subject, body)
}

// Router dispatches to the Client registered for a channel.
type Router struct {
	clients map[domain.Channel]Client
}

// NewRouter returns a Router over clients. Nil entries are dropped.
func NewRouter(clients map[domain.Channel]Client) *Router {
	m := make(map[domain.Channel]Client, len(clients))
	for ch, c := range clients {
		if c != nil {
			m[ch] = c
		}
	}
	return &Router{clients: m}
}

// Send implements Client.
func (r *Router) Send(ctx context.Context, channel domain.Channel, recipient, subject, body string) error {
	c, ok := r.clients[channel]
	if !ok {
		return fmt.Errorf("%w: no client for channel %s", ErrDeliveryFailed, channel)
	}
	return c.Send(ctx, channel, recipient, subject, body)
}

// Channels returns the channels that have a client.
func (r *Router) Channels() []domain.Channel {
	out := make([]domain.Channel, 0, len(r.clients))
	for _, ch := range []domain.Channel{domain.ChannelWhatsApp, domain.ChannelEmail} {
		if _, ok := r.clients[ch]; ok {
			out = append(out, ch)
		}
	}
	return out
}

func failed(channel domain.Channel, err error) error {
	if errors.Is(err, ErrDeliveryFailed) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrDeliveryFailed, channel, err)
}
