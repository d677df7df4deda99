package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tbourn/go-premium-contracts/internal/config"
	"github.com/tbourn/go-premium-contracts/internal/domain"
)

// listPusher is the part of a redis client used by WhatsAppClient.
type listPusher interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// WhatsAppJob is the payload pushed for the gateway bridge.
type WhatsAppJob struct {
	To         string    `json:"to"`
	Subject    string    `json:"subject,omitempty"`
	Body       string    `json:"body"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// WhatsAppClient hands WHATSAPP notifications to the gateway bridge by
// pushing JSON jobs onto a Redis list. A successful push counts as delivered.
type WhatsAppClient struct {
	rdb   listPusher
	queue string
	now   func() time.Time
}

// NewRedisClient opens the Redis connection described by cfg.
func NewRedisClient(cfg config.WhatsAppConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// NewWhatsAppClient returns a client pushing to queue through rdb.
func NewWhatsAppClient(rdb listPusher, queue string) *WhatsAppClient {
	if queue == "" {
		queue = "whatsapp:outbound"
	}
	return &WhatsAppClient{rdb: rdb, queue: queue, now: func() time.Time { return time.Now().UTC() }}
}

// Send implements Client.
func (w *WhatsAppClient) Send(ctx context.Context, channel domain.Channel, recipient, subject, body string) error {
	if channel != domain.ChannelWhatsApp {
		return fmt.Errorf("%w: whatsapp cannot deliver %s", ErrDeliveryFailed, channel)
	}
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return fmt.Errorf("%w: empty phone recipient", ErrDeliveryFailed)
	}

	payload, err := json.Marshal(WhatsAppJob{To: recipient, Subject: subject, Body: body, EnqueuedAt: w.now()})
	if err != nil {
		return failed(channel, err)
	}
	if err := w.rdb.LPush(ctx, w.queue, payload).Err(); err != nil {
		return failed(channel, err)
	}
	return nil
}
