package delivery

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-premium-contracts/internal/config"
	"github.com/tbourn/go-premium-contracts/internal/domain"
)

// FromConfig assembles the delivery stack for the configured channels: SMTP
// for EMAIL when SMTP_HOST is set, the Redis gateway queue for WHATSAPP when
// WHATSAPP_REDIS_ADDR is set, and LogClient otherwise. The router is wrapped
// in a Breaker when enabled. The returned func releases connections.
func FromConfig(cfg config.DeliveryConfig) (Client, func() error) {
	clients := map[domain.Channel]Client{}
	var closers []func() error
	fallback := LogClient{Logger: log.With().Str("component", "delivery").Logger()}

	for _, name := range cfg.Channels {
		switch ch := domain.Channel(name); ch {
		case domain.ChannelEmail:
			if cfg.SMTP.Host != "" {
				clients[ch] = NewSMTPClient(cfg.SMTP)
			} else {
				clients[ch] = fallback
			}
		case domain.ChannelWhatsApp:
			if cfg.WhatsApp.RedisAddr != "" {
				rdb := NewRedisClient(cfg.WhatsApp)
				closers = append(closers, rdb.Close)
				clients[ch] = NewWhatsAppClient(rdb, cfg.WhatsApp.Queue)
			} else {
				clients[ch] = fallback
			}
		}
	}

	router := NewRouter(clients)
	names := make([]string, 0, len(clients))
	for _, ch := range router.Channels() {
		names = append(names, string(ch))
	}
	log.Info().Strs("channels", names).Bool("breaker", cfg.Breaker.Enabled).Msg("delivery configured")

	var c Client = router
	if cfg.Breaker.Enabled {
		c = NewBreaker(c, BreakerSettings{
			MaxFailures: uint32(cfg.Breaker.MaxFailures),
			OpenTimeout: cfg.Breaker.OpenTimeout,
		})
	}
	return c, func() error {
		var errs []error
		for _, f := range closers {
			errs = append(errs, f())
		}
		return errors.Join(errs...)
	}
}
