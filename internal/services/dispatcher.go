// Package services – Dispatcher
//
// Dispatcher drains the notification outbox. A drain claims a bounded batch
// of due PENDING rows oldest first, leasing them so that another dispatcher
// replica does not send them too, and hands each to the DeliveryClient under
// its own timeout. Rows left unsent when the drain is cancelled are released. Outcomes are written back with conditional updates
// (delivery_status = PENDING), so a row finalized elsewhere in the meantime
// is left alone. One record's failure never affects another's.
//
// Retries are bounded by MaxAttempts; between attempts a row is held back
// until next_attempt_at using capped exponential backoff.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-premium-contracts/internal/domain"
	"github.com/tbourn/go-premium-contracts/internal/observability"
	"github.com/tbourn/go-premium-contracts/internal/repo"
)

// DeliveryClient sends one rendered message over one channel.
type DeliveryClient interface {
	Send(ctx context.Context, channel domain.Channel, recipient, subject, body string) error
}

// DefaultMaxAttempts is used when Dispatcher.MaxAttempts is not set.
const DefaultMaxAttempts = 5

// DefaultClaimTTL is the lease used when neither ClaimTTL nor SendTimeout
// is set.
const DefaultClaimTTL = 5 * time.Minute

// Dispatcher delivers queued notifications.
type Dispatcher struct {
	DB     *gorm.DB
	Client DeliveryClient

	// MaxAttempts is the attempt budget before a row becomes FAILED.
	MaxAttempts int
	// SendTimeout bounds each Send call; zero means no extra deadline.
	SendTimeout time.Duration
	// BackoffBase is the delay after the first failure, doubled per attempt
	// up to BackoffMax. Zero disables backoff.
	BackoffBase time.Duration
	BackoffMax  time.Duration
	// ClaimTTL is how long claimed rows stay hidden from other drains.
	// Zero derives it from SendTimeout and the batch size.
	ClaimTTL time.Duration

	Now func() time.Time
}

// DispatchReport summarizes one drain.
type DispatchReport struct {
	Selected int `json:"selected"`
	Sent     int `json:"sent"`
	Retried  int `json:"retried"`
	Failed   int `json:"failed"`
	// Skipped counts rows whose outcome write found them no longer PENDING.
	Skipped int `json:"skipped"`
}

// DrainPending processes up to batchSize due notifications.
//
// The returned error is non-nil only when the batch could not be selected or
// ctx was cancelled mid-batch; per-record delivery failures are reported in
// the DispatchReport and persisted on the record.
func (d *Dispatcher) DrainPending(ctx context.Context, batchSize int) (DispatchReport, error) {
	tr := otel.Tracer("services/Dispatcher")
	ctx, span := tr.Start(ctx, "DrainPending",
		trace.WithAttributes(attribute.Int("batch_size", batchSize)),
	)
	defer span.End()

	var rep DispatchReport
	if batchSize <= 0 {
		batchSize = 50
	}

	due, err := repo.ClaimDueNotifications(ctx, d.DB, nowFrom(d.Now), d.claimTTL(batchSize), batchSize)
	if err != nil {
		return rep, err
	}
	rep.Selected = len(due)

	for i := range due {
		if err := ctx.Err(); err != nil {
			d.release(ctx, due[i:])
			return rep, err
		}
		d.deliver(ctx, &due[i], &rep)
	}

	span.SetAttributes(
		attribute.Int("dispatch.selected", rep.Selected),
		attribute.Int("dispatch.sent", rep.Sent),
		attribute.Int("dispatch.retried", rep.Retried),
		attribute.Int("dispatch.failed", rep.Failed),
	)
	return rep, nil
}

func (d *Dispatcher) deliver(ctx context.Context, n *domain.Notification, rep *DispatchReport) {
	sendErr := d.send(ctx, n)
	// The outcome is recorded even if the drain was cancelled during Send.
	ctx = context.WithoutCancel(ctx)
	now := nowFrom(d.Now)
	attempts := n.Attempts + 1
	logger := log.With().Str("notification_id", n.ID).Str("channel", string(n.Channel)).Int("attempt", attempts).Logger()

	if sendErr == nil {
		ok, err := repo.MarkNotificationSent(ctx, d.DB, n.ID, attempts, now)
		switch {
		case err != nil:
			logger.Error().Err(err).Msg("dispatcher: record sent")
		case !ok:
			rep.Skipped++
		default:
			rep.Sent++
			observability.NotificationsDispatched.WithLabelValues(string(n.Channel), observability.OutcomeSent).Inc()
		}
		return
	}

	terminal := attempts >= d.maxAttempts()
	next := d.nextAttempt(attempts, now)
	ok, err := repo.MarkNotificationFailure(ctx, d.DB, n.ID, attempts, sendErr.Error(), terminal, next, now)
	switch {
	case err != nil:
		logger.Error().Err(err).Msg("dispatcher: record failure")
	case !ok:
		rep.Skipped++
	case terminal:
		rep.Failed++
		observability.NotificationsDispatched.WithLabelValues(string(n.Channel), observability.OutcomeFailed).Inc()
		logger.Warn().Err(sendErr).Msg("dispatcher: giving up")
	default:
		rep.Retried++
		observability.NotificationsDispatched.WithLabelValues(string(n.Channel), observability.OutcomeRetried).Inc()
		logger.Debug().Err(sendErr).Msg("dispatcher: will retry")
	}
}

// send calls the client with a per-record deadline, turning a panic into an
// error so one bad record cannot stop the batch.
func (d *Dispatcher) send(ctx context.Context, n *domain.Notification) (err error) {
	if d.Client == nil {
		return fmt.Errorf("no delivery client configured")
	}
	if d.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.SendTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("delivery panic: %v", r)
		}
	}()
	return d.Client.Send(ctx, n.Channel, n.Recipient, n.Subject, n.Message)
}

// release hands claimed but unsent rows back to the queue.
func (d *Dispatcher) release(ctx context.Context, rest []domain.Notification) {
	if len(rest) == 0 || rest[0].NextAttemptAt == nil {
		return
	}
	ids := make([]string, len(rest))
	for i := range rest {
		ids[i] = rest[i].ID
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, err := repo.ReleaseNotificationClaims(ctx, d.DB, ids, *rest[0].NextAttemptAt); err != nil {
		log.Warn().Err(err).Int("rows", len(ids)).Msg("dispatcher: release claims")
	}
}

func (d *Dispatcher) claimTTL(batchSize int) time.Duration {
	switch {
	case d.ClaimTTL > 0:
		return d.ClaimTTL
	case d.SendTimeout > 0:
		return max(time.Minute, d.SendTimeout*time.Duration(batchSize))
	}
	return DefaultClaimTTL
}

func (d *Dispatcher) maxAttempts() int {
	if d.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return d.MaxAttempts
}

// nextAttempt returns when a row that failed attempts times may be retried,
// or nil for immediately.
func (d *Dispatcher) nextAttempt(attempts int, now time.Time) *time.Time {
	delay := Backoff(d.BackoffBase, d.BackoffMax, attempts)
	if delay <= 0 {
		return nil
	}
	t := now.Add(delay)
	return &t
}

// Backoff returns base * 2^(attempts-1), capped at limit when limit > 0.
func Backoff(base, limit time.Duration, attempts int) time.Duration {
	if base <= 0 || attempts <= 0 {
		return 0
	}
	delay := base
	for i := 1; i < attempts; i++ {
		delay *= 2
		if limit > 0 && delay >= limit {
			return limit
		}
	}
	if limit > 0 && delay > limit {
		return limit
	}
	return delay
}
