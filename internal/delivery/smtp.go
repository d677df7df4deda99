package delivery

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/tbourn/go-premium-contracts/internal/config"
	"github.com/tbourn/go-premium-contracts/internal/domain"
)

// mailSender is the part of *gomail.Dialer used by SMTPClient.
type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPClient delivers EMAIL notifications through an SMTP relay.
type SMTPClient struct {
	from   string
	sender mailSender
}

// NewSMTPClient builds an SMTPClient from cfg.
func NewSMTPClient(cfg config.SMTPConfig) *SMTPClient {
	return &SMTPClient{
		from:   cfg.From,
		sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// Send implements Client. gomail has no context support, so the dial runs in
// a goroutine and Send returns early when ctx is done.
func (s *SMTPClient) Send(ctx context.Context, channel domain.Channel, recipient, subject, body string) error {
	if channel != domain.ChannelEmail {
		return fmt.Errorf("%w: smtp cannot deliver %s", ErrDeliveryFailed, channel)
	}
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return fmt.Errorf("%w: empty e-mail recipient", ErrDeliveryFailed)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	errc := make(chan error, 1)
	go func() { errc <- s.sender.DialAndSend(m) }()

	select {
	case <-ctx.Done():
		return failed(channel, ctx.Err())
	case err := <-errc:
		if err != nil {
			return failed(channel, err)
		}
		return nil
	}
}
