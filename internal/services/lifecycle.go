// Package services – lifecycle state machine
//
// The contract lifecycle is a small transition table over domain.State.
// Transition answers whether an event is allowed; Apply turns an allowed
// event into the column changes and the precondition that the stored row
// must still satisfy when the conditional UPDATE runs. Callers never write
// lifecycle columns directly.
package services

import (
	"strings"
	"time"

	"github.com/tbourn/go-premium-contracts/internal/domain"
	"github.com/tbourn/go-premium-contracts/internal/repo"
)

// Event is a lifecycle input.
type Event string

const (
	EventAccept Event = "ACCEPT"
	EventReject Event = "REJECT"
	EventCancel Event = "CANCEL"
	EventExpire Event = "EXPIRE"
)

type transitionKey struct {
	from  domain.State
	event Event
}

var transitions = map[transitionKey]domain.State{
	{domain.StatePendingReview, EventAccept}: domain.StateVerified,
	{domain.StatePendingReview, EventReject}: domain.StateRejected,
	{domain.StatePendingReview, EventCancel}: domain.StateCancelled,
	{domain.StateVerified, EventCancel}:      domain.StateCancelled,
	{domain.StateVerified, EventExpire}:      domain.StateExpired,
}

// notificationKinds maps each event to the notification it produces.
var notificationKinds = map[Event]domain.NotificationKind{
	EventAccept: domain.KindContractActivated,
	EventReject: domain.KindContractRejected,
	EventCancel: domain.KindContractCancelled,
	EventExpire: domain.KindContractExpired,
}

// Transition returns the state reached by applying ev in from, or
// ErrInvalidTransition when the pair is not in the table.
func Transition(from domain.State, ev Event) (domain.State, error) {
	to, ok := transitions[transitionKey{from, ev}]
	if !ok {
		return "", ErrInvalidTransition
	}
	return to, nil
}

// Change is the persistence plan for one lifecycle event.
type Change struct {
	To      domain.State
	Kind    domain.NotificationKind
	Guard   repo.ContractGuard
	Updates map[string]any
}

// ApplyInput carries the actor data recorded by an event.
type ApplyInput struct {
	AdminID string
	Notes   string
	Now     time.Time
}

// Apply validates ev against c and builds the Change to persist. Start and
// end dates are only ever produced by ACCEPT, computed from the duration
// stored on the contract.
func Apply(c *domain.Contract, ev Event, in ApplyInput) (*Change, error) {
	to, err := Transition(c.State(), ev)
	if err != nil {
		return nil, err
	}
	now := in.Now.UTC()

	ch := &Change{
		To:   to,
		Kind: notificationKinds[ev],
		Updates: map[string]any{
			"updated_at": now,
		},
	}

	review := func() {
		if in.AdminID != "" {
			ch.Updates["reviewer_id"] = in.AdminID
		}
		ch.Updates["reviewed_at"] = now
		if notes := strings.TrimSpace(in.Notes); notes != "" {
			ch.Updates["reviewer_notes"] = notes
		}
	}

	switch ev {
	case EventAccept:
		ch.Guard = repo.ContractGuard{
			Statuses: []domain.ContractStatus{domain.StatusActive},
			Payments: []domain.PaymentStatus{domain.PaymentPending},
		}
		ch.Updates["payment_status"] = domain.PaymentVerified
		ch.Updates["start_date"] = now
		ch.Updates["end_date"] = domain.PeriodEnd(now, c.DurationMonths)
		review()
	case EventReject:
		ch.Guard = repo.ContractGuard{
			Statuses: []domain.ContractStatus{domain.StatusActive},
			Payments: []domain.PaymentStatus{domain.PaymentPending},
		}
		ch.Updates["status"] = domain.StatusCancelled
		ch.Updates["payment_status"] = domain.PaymentFailed
		review()
	case EventCancel:
		ch.Guard = repo.ContractGuard{
			Statuses: []domain.ContractStatus{domain.StatusActive},
			Payments: []domain.PaymentStatus{domain.PaymentPending, domain.PaymentVerified},
		}
		ch.Updates["status"] = domain.StatusCancelled
		review()
	case EventExpire:
		if c.EndDate == nil || c.EndDate.After(now) {
			return nil, ErrInvalidTransition
		}
		ch.Guard = repo.ContractGuard{
			Statuses:  []domain.ContractStatus{domain.StatusActive},
			Payments:  []domain.PaymentStatus{domain.PaymentVerified},
			EndBefore: &now,
		}
		ch.Updates["status"] = domain.StatusExpired
	}
	return ch, nil
}
