package delivery

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-premium-contracts/internal/domain"
)

// LogClient writes messages to a logger instead of delivering them. It is
// the fallback for channels without a configured provider.
type LogClient struct {
	Logger zerolog.Logger
}

// Send implements Client; it never fails.
func (l LogClient) Send(_ context.Context, channel domain.Channel, recipient, subject, body string) error {
	l.Logger.Info().
		Str("channel", string(channel)).
		Str("recipient", recipient).
		Str("subject", subject).
		Int("body_len", len(body)).
		Msg("delivery: logged message")
	return nil
}
