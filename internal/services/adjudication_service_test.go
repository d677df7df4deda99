package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-premium-contracts/internal/domain"
	"github.com/tbourn/go-premium-contracts/internal/repo"
)

func TestAdjudication_Accept_SetsPeriodAndEnqueues(t *testing.T) {
	db := newTestDB(t)
	clk := newClock(time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC))
	svc := &AdjudicationService{DB: db, Now: clk.Now}
	c := seedContract(t, db, func(c *domain.Contract) { c.ContactEmail = "c@example.com" })

	got, err := svc.Accept(context.Background(), c.ID, "admin-1", "transfer matched")
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if got.State() != domain.StateVerified {
		t.Fatalf("state = %s", got.State())
	}
	if got.StartDate == nil || got.EndDate == nil || !got.EndDate.After(*got.StartDate) {
		t.Fatalf("dates not set/ordered: %v %v", got.StartDate, got.EndDate)
	}
	if !got.StartDate.Equal(clk.Now()) || !got.EndDate.Equal(clk.Now().AddDate(0, 3, 0)) {
		t.Fatalf("unexpected period %v..%v", got.StartDate, got.EndDate)
	}
	if got.ReviewerID == nil || *got.ReviewerID != "admin-1" || got.ReviewedAt == nil {
		t.Fatalf("reviewer fields missing: %+v", got)
	}
	if got.PriceMinor != 150000 || got.PlanType != domain.Plan3Months {
		t.Fatalf("plan fields changed by accept: %+v", got)
	}

	ns, err := repo.ListContractNotifications(context.Background(), db, c.ID)
	if err != nil || len(ns) != 2 {
		t.Fatalf("expected one notification per channel, got %d err=%v", len(ns), err)
	}
	seen := map[domain.Channel]string{}
	for _, n := range ns {
		if n.Kind != domain.KindContractActivated || n.DeliveryStatus != domain.DeliveryPending {
			t.Fatalf("unexpected notification: %+v", n)
		}
		seen[n.Channel] = n.Recipient
	}
	if seen[domain.ChannelWhatsApp] != c.ContactChannel || seen[domain.ChannelEmail] != "c@example.com" {
		t.Fatalf("recipients: %+v", seen)
	}
}

func TestAdjudication_Accept_SkipsEmailWithoutAddress(t *testing.T) {
	db := newTestDB(t)
	svc := &AdjudicationService{DB: db}
	c := seedContract(t, db, nil)

	if _, err := svc.Accept(context.Background(), c.ID, "admin", ""); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	ns, _ := repo.ListContractNotifications(context.Background(), db, c.ID)
	if len(ns) != 1 || ns[0].Channel != domain.ChannelWhatsApp {
		t.Fatalf("expected only WHATSAPP, got %+v", ns)
	}
}

func TestAdjudication_Accept_Idempotent(t *testing.T) {
	db := newTestDB(t)
	clk := newClock(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	svc := &AdjudicationService{DB: db, Now: clk.Now}
	c := seedContract(t, db, nil)
	ctx := context.Background()

	first, err := svc.Accept(ctx, c.ID, "admin", "")
	if err != nil {
		t.Fatalf("first accept: %v", err)
	}

	clk.Advance(24 * time.Hour)
	if _, err := svc.Accept(ctx, c.ID, "admin", ""); !errors.Is(err, ErrAlreadyAdjudicated) {
		t.Fatalf("second accept: expected ErrAlreadyAdjudicated, got %v", err)
	}

	after, _ := repo.GetContract(ctx, db, c.ID)
	if !after.StartDate.Equal(*first.StartDate) || !after.EndDate.Equal(*first.EndDate) {
		t.Fatalf("dates changed by repeated accept: %v..%v", after.StartDate, after.EndDate)
	}
	ns, _ := repo.ListContractNotifications(ctx, db, c.ID)
	if len(ns) != 1 {
		t.Fatalf("repeated accept must not enqueue, got %d notifications", len(ns))
	}
}

func TestAdjudication_Reject(t *testing.T) {
	db := newTestDB(t)
	svc := &AdjudicationService{DB: db}
	c := seedContract(t, db, nil)
	ctx := context.Background()

	got, err := svc.Reject(ctx, c.ID, "admin", "bukti transfer tidak valid")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if got.State() != domain.StateRejected || got.PaymentStatus != domain.PaymentFailed || got.Status != domain.StatusCancelled {
		t.Fatalf("unexpected stored state: %s/%s", got.Status, got.PaymentStatus)
	}
	if got.StartDate != nil || got.EndDate != nil {
		t.Fatalf("rejected contract must not have dates")
	}
	if got.ReviewerNotes == nil || *got.ReviewerNotes != "bukti transfer tidak valid" {
		t.Fatalf("notes not stored: %+v", got.ReviewerNotes)
	}

	ns, _ := repo.ListContractNotifications(ctx, db, c.ID)
	if len(ns) != 1 || ns[0].Kind != domain.KindContractRejected || !strings.Contains(ns[0].Message, "bukti transfer tidak valid") {
		t.Fatalf("rejection notification: %+v", ns)
	}

	if _, err := svc.Accept(ctx, c.ID, "admin", ""); !errors.Is(err, ErrAlreadyAdjudicated) {
		t.Fatalf("accept after reject: expected ErrAlreadyAdjudicated, got %v", err)
	}
	if _, err := svc.Cancel(ctx, c.ID, "admin", ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("cancel after reject: expected ErrInvalidTransition, got %v", err)
	}
}

func TestAdjudication_Cancel(t *testing.T) {
	db := newTestDB(t)
	svc := &AdjudicationService{DB: db}
	ctx := context.Background()

	pending := seedContract(t, db, nil)
	got, err := svc.Cancel(ctx, pending.ID, "admin", "duplicate order")
	if err != nil || got.State() != domain.StateCancelled || got.PaymentStatus != domain.PaymentPending {
		t.Fatalf("cancel pending: %+v err=%v", got, err)
	}

	verified := seedContract(t, db, verifiedUntil(time.Now().UTC().Add(30*24*time.Hour)))
	got, err = svc.Cancel(ctx, verified.ID, "admin", "")
	if err != nil || got.State() != domain.StateCancelled || got.PaymentStatus != domain.PaymentVerified {
		t.Fatalf("cancel verified: %+v err=%v", got, err)
	}
	if got.EndDate == nil || !got.EndDate.Equal(*verified.EndDate) {
		t.Fatalf("cancel must keep the period: %v", got.EndDate)
	}

	if _, err := svc.Cancel(ctx, verified.ID, "admin", ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("cancel twice: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := svc.Accept(ctx, pending.ID, "admin", ""); !errors.Is(err, ErrAlreadyAdjudicated) {
		t.Fatalf("accept cancelled: expected ErrAlreadyAdjudicated, got %v", err)
	}
}

func TestAdjudication_Errors(t *testing.T) {
	db := newTestDB(t)
	svc := &AdjudicationService{DB: db}
	ctx := context.Background()
	c := seedContract(t, db, nil)

	if _, err := svc.Accept(ctx, "missing", "admin", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Adjudicate(ctx, Action("approve"), c.ID, "admin", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown action, got %v", err)
	}
	if _, err := svc.Accept(ctx, c.ID, " ", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for blank admin, got %v", err)
	}
	if _, err := svc.Accept(ctx, "", "admin", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for blank contract id, got %v", err)
	}
}

func TestParseAction(t *testing.T) {
	for in, want := range map[string]Action{"accept": ActionAccept, " REJECT ": ActionReject, "Cancel": ActionCancel} {
		got, err := ParseAction(in)
		if err != nil || got != want {
			t.Errorf("ParseAction(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseAction("expire"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expire is not an admin action, got %v", err)
	}
}

func TestAdjudication_ConcurrentAccepts_ExactlyOneWins(t *testing.T) {
	db := newTestDB(t)
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	svc := &AdjudicationService{DB: db}
	c := seedContract(t, db, func(c *domain.Contract) { c.ContactEmail = "c@example.com" })

	const workers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
		lost int
		errs []error
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.Accept(context.Background(), c.ID, "admin", "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrAlreadyAdjudicated):
				lost++
			default:
				errs = append(errs, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if wins != 1 || lost != workers-1 {
		t.Fatalf("wins=%d lost=%d", wins, lost)
	}
	ns, _ := repo.ListContractNotifications(context.Background(), db, c.ID)
	if len(ns) != 2 {
		t.Fatalf("expected exactly one notification per channel, got %d", len(ns))
	}
}

// competingWrite runs query once on the statement's connection just before
// the next UPDATE of contracts, so it lands between the operation's read and
// its conditional write.
func competingWrite(t *testing.T, db *gorm.DB, query string, args ...any) {
	t.Helper()
	fired := false
	err := db.Callback().Update().Before("gorm:update").Register("test:competing_write", func(tx *gorm.DB) {
		if fired || tx.Statement.Table != "contracts" {
			return
		}
		fired = true
		if _, err := tx.Statement.ConnPool.ExecContext(tx.Statement.Context, query, args...); err != nil {
			_ = tx.AddError(err)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
}

func TestAdjudication_Accept_LostRaceAfterLoad(t *testing.T) {
	db := newTestDB(t)
	svc := &AdjudicationService{DB: db}
	c := seedContract(t, db, func(c *domain.Contract) { c.ContactEmail = "c@example.com" })
	ctx := context.Background()

	competingWrite(t, db, "UPDATE contracts SET status = ? WHERE id = ?", string(domain.StatusCancelled), c.ID)

	if _, err := svc.Accept(ctx, c.ID, "admin", "late"); !errors.Is(err, ErrAlreadyAdjudicated) {
		t.Fatalf("expected ErrAlreadyAdjudicated, got %v", err)
	}
	ns, err := repo.ListContractNotifications(ctx, db, c.ID)
	if err != nil || len(ns) != 0 {
		t.Fatalf("lost race must enqueue nothing, got %d err=%v", len(ns), err)
	}
	got, err := repo.GetContract(ctx, db, c.ID)
	if err != nil {
		t.Fatalf("GetContract: %v", err)
	}
	if got.State() != domain.StatePendingReview || got.StartDate != nil || got.EndDate != nil || got.ReviewerID != nil {
		t.Fatalf("row changed by losing accept: %+v", got)
	}
}

func TestAdjudication_Cancel_LosesToExpirySweep(t *testing.T) {
	db := newTestDB(t)
	clk := newClock(time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC))
	adj := &AdjudicationService{DB: db, Now: clk.Now}
	exp := &ExpiryService{DB: db, Now: clk.Now}
	c := seedContract(t, db, verifiedUntil(clk.Now().Add(-time.Hour)))
	ctx := context.Background()

	competingWrite(t, db, "UPDATE contracts SET status = ? WHERE id = ?", string(domain.StatusExpired), c.ID)

	if _, err := adj.Cancel(ctx, c.ID, "admin", "refund"); !errors.Is(err, ErrAlreadyAdjudicated) {
		t.Fatalf("expected ErrAlreadyAdjudicated, got %v", err)
	}
	ns, _ := repo.ListContractNotifications(ctx, db, c.ID)
	if len(ns) != 0 {
		t.Fatalf("lost cancel must enqueue nothing, got %+v", ns)
	}
	got, _ := repo.GetContract(ctx, db, c.ID)
	if got.State() != domain.StateVerified || got.ReviewerID != nil || !got.EndDate.Equal(*c.EndDate) {
		t.Fatalf("row changed by losing cancel: %+v", got)
	}

	// The sweep itself still applies once the callback has fired.
	n, err := exp.ExpireOverdue(ctx)
	if err != nil || n != 1 {
		t.Fatalf("ExpireOverdue = %d, %v", n, err)
	}
}
