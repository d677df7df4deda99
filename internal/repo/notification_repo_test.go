package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-premium-contracts/internal/domain"
)

func pendingNote(contractID string, created time.Time) domain.Notification {
	return domain.Notification{
		ContractID: &contractID,
		Channel:    domain.ChannelWhatsApp,
		Recipient:  "+628123456789",
		Kind:       domain.KindContractActivated,
		Message:    "hello",
		CreatedAt:  created,
	}
}

func TestCreateNotifications_DefaultsAndEmpty(t *testing.T) {
	db := newTestDB(t, &domain.Notification{})
	ctx := context.Background()

	if err := CreateNotifications(ctx, db, nil); err != nil {
		t.Fatalf("empty slice should be a no-op: %v", err)
	}

	ns := []domain.Notification{pendingNote("c1", time.Time{}), pendingNote("c1", time.Time{})}
	if err := CreateNotifications(ctx, db, ns); err != nil {
		t.Fatalf("CreateNotifications: %v", err)
	}
	got, err := ListContractNotifications(ctx, db, "c1")
	if err != nil || len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d err=%v", len(got), err)
	}
	for _, n := range got {
		if n.ID == "" || n.DeliveryStatus != domain.DeliveryPending || n.CreatedAt.IsZero() || n.Attempts != 0 {
			t.Fatalf("defaults not applied: %+v", n)
		}
	}
}

func TestListDueNotifications_OldestFirstAndDue(t *testing.T) {
	db := newTestDB(t, &domain.Notification{})
	ctx := context.Background()
	now := time.Now().UTC()

	later := now.Add(time.Hour)
	early := now.Add(-time.Minute)
	a := pendingNote("a", now.Add(-3*time.Minute))
	b := pendingNote("b", now.Add(-2*time.Minute))
	b.NextAttemptAt = &later // not due yet
	c := pendingNote("c", now.Add(-time.Minute))
	c.NextAttemptAt = &early // due
	d := pendingNote("d", now.Add(-4*time.Minute))
	d.DeliveryStatus = domain.DeliverySent
	if err := CreateNotifications(ctx, db, []domain.Notification{a, b, c, d}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := ListDueNotifications(ctx, db, now, 10)
	if err != nil {
		t.Fatalf("ListDueNotifications: %v", err)
	}
	if len(got) != 2 || *got[0].ContractID != "a" || *got[1].ContractID != "c" {
		t.Fatalf("unexpected due set: %+v", got)
	}

	limited, err := ListDueNotifications(ctx, db, now, 1)
	if err != nil || len(limited) != 1 || *limited[0].ContractID != "a" {
		t.Fatalf("limit not honored: %+v err=%v", limited, err)
	}
}

func TestClaimDueNotifications_LeasesRows(t *testing.T) {
	db := newTestDB(t, &domain.Notification{})
	ctx := context.Background()
	now := time.Now().UTC()

	a := pendingNote("a", now.Add(-2*time.Minute))
	b := pendingNote("b", now.Add(-time.Minute))
	if err := CreateNotifications(ctx, db, []domain.Notification{a, b}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	first, err := ClaimDueNotifications(ctx, db, now, time.Minute, 10)
	if err != nil || len(first) != 2 || *first[0].ContractID != "a" {
		t.Fatalf("first claim: %+v err=%v", first, err)
	}
	if first[0].NextAttemptAt == nil || !first[0].NextAttemptAt.After(now) {
		t.Fatalf("claimed row carries no lease: %+v", first[0])
	}

	second, err := ClaimDueNotifications(ctx, db, now.Add(30*time.Second), time.Minute, 10)
	if err != nil || len(second) != 0 {
		t.Fatalf("leased rows claimed twice: %+v err=%v", second, err)
	}

	n, err := ReleaseNotificationClaims(ctx, db, []string{first[1].ID}, *first[1].NextAttemptAt)
	if err != nil || n != 1 {
		t.Fatalf("release = %d, %v", n, err)
	}
	again, err := ClaimDueNotifications(ctx, db, now.Add(30*time.Second), time.Minute, 10)
	if err != nil || len(again) != 1 || again[0].ID != first[1].ID {
		t.Fatalf("released row not claimable: %+v err=%v", again, err)
	}

	expired, err := ClaimDueNotifications(ctx, db, now.Add(2*time.Minute), time.Minute, 10)
	if err != nil || len(expired) != 2 {
		t.Fatalf("rows must be claimable after the lease: %+v err=%v", expired, err)
	}
}

func TestReleaseNotificationClaims_KeepsOtherLeasesAndOutcomes(t *testing.T) {
	db := newTestDB(t, &domain.Notification{})
	ctx := context.Background()
	now := time.Now().UTC()
	if err := CreateNotifications(ctx, db, []domain.Notification{pendingNote("a", now.Add(-time.Minute))}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	claimed, err := ClaimDueNotifications(ctx, db, now, time.Minute, 1)
	if err != nil || len(claimed) != 1 {
		t.Fatalf("claim: %+v err=%v", claimed, err)
	}

	if n, _ := ReleaseNotificationClaims(ctx, db, []string{claimed[0].ID}, now.Add(time.Hour)); n != 0 {
		t.Fatalf("released under a different lease: %d", n)
	}
	if ok, err := MarkNotificationSent(ctx, db, claimed[0].ID, 1, now); err != nil || !ok {
		t.Fatalf("MarkNotificationSent: %v %v", ok, err)
	}
	if n, _ := ReleaseNotificationClaims(ctx, db, []string{claimed[0].ID}, *claimed[0].NextAttemptAt); n != 0 {
		t.Fatalf("released a SENT row: %d", n)
	}
	if n, err := ReleaseNotificationClaims(ctx, db, nil, now); err != nil || n != 0 {
		t.Fatalf("empty release: %d %v", n, err)
	}
}

func TestMarkNotificationSent_OnlyFromPending(t *testing.T) {
	db := newTestDB(t, &domain.Notification{})
	ctx := context.Background()
	ns := []domain.Notification{pendingNote("c1", time.Time{})}
	if err := CreateNotifications(ctx, db, ns); err != nil {
		t.Fatalf("seed: %v", err)
	}
	id := ns[0].ID
	at := time.Now().UTC()

	ok, err := MarkNotificationSent(ctx, db, id, 1, at)
	if err != nil || !ok {
		t.Fatalf("MarkNotificationSent: ok=%v err=%v", ok, err)
	}
	ok, err = MarkNotificationSent(ctx, db, id, 2, at)
	if err != nil || ok {
		t.Fatalf("second MarkNotificationSent should not apply: ok=%v err=%v", ok, err)
	}

	n, err := GetNotification(ctx, db, id)
	if err != nil || n.DeliveryStatus != domain.DeliverySent || n.SentAt == nil || n.Attempts != 1 {
		t.Fatalf("unexpected row: %+v err=%v", n, err)
	}
}

func TestMarkNotificationFailure_RetryThenTerminal(t *testing.T) {
	db := newTestDB(t, &domain.Notification{})
	ctx := context.Background()
	ns := []domain.Notification{pendingNote("c1", time.Time{})}
	if err := CreateNotifications(ctx, db, ns); err != nil {
		t.Fatalf("seed: %v", err)
	}
	id := ns[0].ID
	now := time.Now().UTC()
	next := now.Add(time.Minute)

	if ok, err := MarkNotificationFailure(ctx, db, id, 1, "timeout", false, &next, now); err != nil || !ok {
		t.Fatalf("retryable failure: ok=%v err=%v", ok, err)
	}
	n, _ := GetNotification(ctx, db, id)
	if n.DeliveryStatus != domain.DeliveryPending || n.Attempts != 1 || n.LastError == nil || *n.LastError != "timeout" || n.NextAttemptAt == nil {
		t.Fatalf("unexpected after retryable failure: %+v", n)
	}

	if ok, err := MarkNotificationFailure(ctx, db, id, 2, "refused", true, &next, now); err != nil || !ok {
		t.Fatalf("terminal failure: ok=%v err=%v", ok, err)
	}
	n, _ = GetNotification(ctx, db, id)
	if n.DeliveryStatus != domain.DeliveryFailed || n.Attempts != 2 || n.NextAttemptAt != nil {
		t.Fatalf("unexpected after terminal failure: %+v", n)
	}

	// FAILED rows are no longer touched by outcome writes.
	if ok, err := MarkNotificationFailure(ctx, db, id, 3, "again", false, nil, now); err != nil || ok {
		t.Fatalf("failure on FAILED row should not apply: ok=%v err=%v", ok, err)
	}
}

func TestRequeueNotification(t *testing.T) {
	db := newTestDB(t, &domain.Notification{})
	ctx := context.Background()
	failed := pendingNote("c1", time.Time{})
	failed.DeliveryStatus = domain.DeliveryFailed
	failed.Attempts = 5
	pending := pendingNote("c2", time.Time{})
	ns := []domain.Notification{failed, pending}
	if err := CreateNotifications(ctx, db, ns); err != nil {
		t.Fatalf("seed: %v", err)
	}
	now := time.Now().UTC()

	if n, err := RequeueNotification(ctx, db, ns[0].ID, now); err != nil || n != 1 {
		t.Fatalf("requeue FAILED: n=%d err=%v", n, err)
	}
	got, _ := GetNotification(ctx, db, ns[0].ID)
	if got.DeliveryStatus != domain.DeliveryPending || got.Attempts != 0 {
		t.Fatalf("unexpected requeued row: %+v", got)
	}
	if n, err := RequeueNotification(ctx, db, ns[1].ID, now); err != nil || n != 0 {
		t.Fatalf("requeue PENDING should be a no-op: n=%d err=%v", n, err)
	}
}

func TestListNotificationsByStatusPage(t *testing.T) {
	db := newTestDB(t, &domain.Notification{})
	ctx := context.Background()
	var ns []domain.Notification
	for i := 0; i < 3; i++ {
		n := pendingNote("c", time.Time{})
		n.DeliveryStatus = domain.DeliveryFailed
		n.UpdatedAt = time.Date(2026, 1, 1, i, 0, 0, 0, time.UTC)
		ns = append(ns, n)
	}
	ns = append(ns, pendingNote("c", time.Time{}))
	if err := CreateNotifications(ctx, db, ns); err != nil {
		t.Fatalf("seed: %v", err)
	}

	total, err := CountNotificationsByStatus(ctx, db, domain.DeliveryFailed)
	if err != nil || total != 3 {
		t.Fatalf("CountNotificationsByStatus = %d, %v", total, err)
	}
	page, err := ListNotificationsByStatusPage(ctx, db, domain.DeliveryFailed, 0, 2)
	if err != nil || len(page) != 2 || page[0].ID != ns[2].ID {
		t.Fatalf("unexpected page: %+v err=%v", page, err)
	}
}

func TestGetNotification_NotFound(t *testing.T) {
	db := newTestDB(t, &domain.Notification{})
	if _, err := GetNotification(context.Background(), db, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReminderLog_OncePerDay(t *testing.T) {
	db := newTestDB(t, &domain.ReminderLog{})
	ctx := context.Background()
	now := time.Date(2026, 10, 14, 23, 30, 0, 0, time.UTC)
	day := ReminderDay(now)
	if day != "2026-10-14" {
		t.Fatalf("ReminderDay = %q", day)
	}

	if err := CreateReminderLog(ctx, db, "c1", day, now); err != nil {
		t.Fatalf("first reminder: %v", err)
	}
	if err := CreateReminderLog(ctx, db, "c1", day, now); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if err := CreateReminderLog(ctx, db, "c1", ReminderDay(now.Add(time.Hour)), now); err != nil {
		t.Fatalf("next day reminder: %v", err)
	}
	ok, err := HasReminderLog(ctx, db, "c1", day)
	if err != nil || !ok {
		t.Fatalf("HasReminderLog = %v, %v", ok, err)
	}
}
