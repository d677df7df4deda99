// Package services – AdjudicationService
//
// AdjudicationService applies administrator decisions (accept, reject,
// cancel) to contracts. Each decision runs in a single transaction that
// loads the contract, consults the lifecycle table, performs one conditional
// UPDATE guarded by the expected prior state and, only when that UPDATE
// changed a row, appends the resulting notifications to the outbox. Losing a
// race therefore has no side effects.
//
// Delivery never happens here: the dispatcher drains the outbox separately.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-premium-contracts/internal/domain"
	"github.com/tbourn/go-premium-contracts/internal/observability"
	"github.com/tbourn/go-premium-contracts/internal/repo"
)

// Action is an administrator decision as expressed by callers.
type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
	ActionCancel Action = "cancel"
)

var actionEvents = map[Action]Event{
	ActionAccept: EventAccept,
	ActionReject: EventReject,
	ActionCancel: EventCancel,
}

// ParseAction normalizes s into an Action.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := actionEvents[a]; !ok {
		return "", invalid("action", "must be one of accept, reject, cancel")
	}
	return a, nil
}

// AdjudicationService records administrator decisions on contracts.
type AdjudicationService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Channels are the notification channels enqueued per decision.
	Channels []domain.Channel
	// Templates renders notification content; nil uses the defaults.
	Templates *Templates
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Accept verifies the payment of a pending contract and starts its period.
func (s *AdjudicationService) Accept(ctx context.Context, contractID, adminID, notes string) (*domain.Contract, error) {
	return s.Adjudicate(ctx, ActionAccept, contractID, adminID, notes)
}

// Reject marks the payment of a pending contract as failed.
func (s *AdjudicationService) Reject(ctx context.Context, contractID, adminID, notes string) (*domain.Contract, error) {
	return s.Adjudicate(ctx, ActionReject, contractID, adminID, notes)
}

// Cancel cancels a pending or verified contract.
func (s *AdjudicationService) Cancel(ctx context.Context, contractID, adminID, reason string) (*domain.Contract, error) {
	return s.Adjudicate(ctx, ActionCancel, contractID, adminID, reason)
}

// Adjudicate applies action to contractID on behalf of adminID and returns
// the updated contract.
//
// Errors:
//   - ValidationError for an unknown action or blank identifiers
//   - ErrNotFound when the contract does not exist
//   - ErrAlreadyAdjudicated when accept/reject targets a contract that left
//     review, or a concurrent writer changed the row first
//   - ErrInvalidTransition for any other disallowed event
func (s *AdjudicationService) Adjudicate(ctx context.Context, action Action, contractID, adminID, notes string) (*domain.Contract, error) {
	tr := otel.Tracer("services/AdjudicationService")
	ctx, span := tr.Start(ctx, "Adjudicate",
		trace.WithAttributes(
			attribute.String("contract.id", contractID),
			attribute.String("admin.id", adminID),
			attribute.String("action", string(action)),
		),
	)
	defer span.End()

	out, err := s.adjudicate(ctx, action, contractID, adminID, notes)
	observability.ContractsAdjudicated.WithLabelValues(string(action), adjudicationOutcome(err)).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("contract.state", string(out.State())))
	return out, nil
}

func (s *AdjudicationService) adjudicate(ctx context.Context, action Action, contractID, adminID, notes string) (*domain.Contract, error) {
	ev, ok := actionEvents[action]
	if !ok {
		return nil, invalid("action", "must be one of accept, reject, cancel")
	}
	contractID = strings.TrimSpace(contractID)
	if contractID == "" {
		return nil, invalid("contract_id", "is required")
	}
	adminID = strings.TrimSpace(adminID)
	if adminID == "" {
		return nil, invalid("admin_id", "is required")
	}

	now := nowFrom(s.Now)
	var updated *domain.Contract
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := repo.GetContract(ctx, tx, contractID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		ch, err := Apply(c, ev, ApplyInput{AdminID: adminID, Notes: notes, Now: now})
		if err != nil {
			if errors.Is(err, ErrInvalidTransition) && (ev == EventAccept || ev == EventReject) &&
				c.State() != domain.StatePendingReview {
				return ErrAlreadyAdjudicated
			}
			return err
		}

		n, err := repo.UpdateContractIf(ctx, tx, contractID, ch.Guard, ch.Updates)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrAlreadyAdjudicated
		}

		updated, err = repo.GetContract(ctx, tx, contractID)
		if err != nil {
			return err
		}
		return repo.CreateNotifications(ctx, tx,
			buildNotifications(s.Templates, ch.Kind, updated, notes, channelsOrDefault(s.Channels), now))
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func adjudicationOutcome(err error) string {
	switch {
	case err == nil:
		return observability.OutcomeOK
	case errors.Is(err, ErrAlreadyAdjudicated):
		return observability.OutcomeAlreadyAdjudicated
	case errors.Is(err, ErrInvalidTransition):
		return observability.OutcomeInvalidTransition
	case errors.Is(err, ErrNotFound):
		return observability.OutcomeNotFound
	default:
		return observability.OutcomeError
	}
}
