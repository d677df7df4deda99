package services

import (
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-premium-contracts/internal/domain"
)

func TestTransition_Table(t *testing.T) {
	states := []domain.State{
		domain.StatePendingReview, domain.StateVerified, domain.StateRejected,
		domain.StateExpired, domain.StateCancelled,
	}
	events := []Event{EventAccept, EventReject, EventCancel, EventExpire}

	allowed := map[transitionKey]domain.State{
		{domain.StatePendingReview, EventAccept}: domain.StateVerified,
		{domain.StatePendingReview, EventReject}: domain.StateRejected,
		{domain.StatePendingReview, EventCancel}: domain.StateCancelled,
		{domain.StateVerified, EventCancel}:      domain.StateCancelled,
		{domain.StateVerified, EventExpire}:      domain.StateExpired,
	}

	for _, s := range states {
		for _, ev := range events {
			to, err := Transition(s, ev)
			want, ok := allowed[transitionKey{s, ev}]
			if ok {
				if err != nil || to != want {
					t.Errorf("Transition(%s, %s) = %s, %v; want %s", s, ev, to, err, want)
				}
				continue
			}
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("Transition(%s, %s) should be invalid, got %s, %v", s, ev, to, err)
			}
			if s.Terminal() && err == nil {
				t.Errorf("terminal state %s left via %s", s, ev)
			}
		}
	}
}

func TestApply_AcceptComputesPeriodFromContract(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	c := &domain.Contract{
		ID: "c1", Status: domain.StatusActive, PaymentStatus: domain.PaymentPending, DurationMonths: 6,
	}
	ch, err := Apply(c, EventAccept, ApplyInput{AdminID: "admin", Notes: "  ok  ", Now: now})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if ch.To != domain.StateVerified || ch.Kind != domain.KindContractActivated {
		t.Fatalf("unexpected change: %+v", ch)
	}
	if got := ch.Updates["start_date"].(time.Time); !got.Equal(now) {
		t.Fatalf("start_date = %v", got)
	}
	want := time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)
	if got := ch.Updates["end_date"].(time.Time); !got.Equal(want) {
		t.Fatalf("end_date = %v; want %v", got, want)
	}
	if ch.Updates["reviewer_notes"] != "ok" || ch.Updates["reviewer_id"] != "admin" {
		t.Fatalf("review fields: %+v", ch.Updates)
	}
	if len(ch.Guard.Payments) != 1 || ch.Guard.Payments[0] != domain.PaymentPending {
		t.Fatalf("accept must be guarded on PENDING: %+v", ch.Guard)
	}
}

func TestApply_RejectAndCancelNeverTouchDates(t *testing.T) {
	now := time.Now().UTC()
	pending := &domain.Contract{Status: domain.StatusActive, PaymentStatus: domain.PaymentPending, DurationMonths: 3}
	for _, ev := range []Event{EventReject, EventCancel} {
		ch, err := Apply(pending, ev, ApplyInput{AdminID: "a", Now: now})
		if err != nil {
			t.Fatalf("Apply(%s): %v", ev, err)
		}
		if _, ok := ch.Updates["start_date"]; ok {
			t.Fatalf("%s must not write start_date", ev)
		}
		if _, ok := ch.Updates["end_date"]; ok {
			t.Fatalf("%s must not write end_date", ev)
		}
	}
}

func TestApply_ExpireRequiresEndDatePassed(t *testing.T) {
	now := time.Now().UTC()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)
	c := &domain.Contract{Status: domain.StatusActive, PaymentStatus: domain.PaymentVerified, EndDate: &future}

	if _, err := Apply(c, EventExpire, ApplyInput{Now: now}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expire before end: expected ErrInvalidTransition, got %v", err)
	}
	c.EndDate = &past
	ch, err := Apply(c, EventExpire, ApplyInput{Now: now})
	if err != nil {
		t.Fatalf("expire after end: %v", err)
	}
	if ch.Guard.EndBefore == nil || ch.Updates["status"] != domain.StatusExpired {
		t.Fatalf("unexpected expire change: %+v", ch)
	}
}
