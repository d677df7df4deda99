package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-premium-contracts/internal/domain"
)

// seedContract inserts a pending 3_MONTHS contract for "u1", applying mutate
// before the insert.
func seedContract(t *testing.T, db *gorm.DB, mutate func(*domain.Contract)) *domain.Contract {
	t.Helper()
	now := time.Now().UTC()
	c := &domain.Contract{
		ID:             uuid.NewString(),
		UserID:         "u1",
		PlanType:       domain.Plan3Months,
		PriceMinor:     150000,
		Currency:       "IDR",
		DurationMonths: 3,
		Status:         domain.StatusActive,
		PaymentStatus:  domain.PaymentPending,
		PaymentMethod:  domain.PaymentBankTransfer,
		ContactChannel: "+628123456789",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if mutate != nil {
		mutate(c)
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed contract: %v", err)
	}
	return c
}

func timePtr(t time.Time) *time.Time { return &t }

func TestCreateContract_AssignsIDAndTimestamps(t *testing.T) {
	db := newTestDB(t, &domain.Contract{})
	c := &domain.Contract{
		UserID: "u1", PlanType: domain.Plan1Year, PriceMinor: 500000, Currency: "IDR", DurationMonths: 12,
		Status: domain.StatusActive, PaymentStatus: domain.PaymentPending, PaymentMethod: domain.PaymentEWallet,
		ContactChannel: "+62811",
	}
	if err := CreateContract(context.Background(), db, c); err != nil {
		t.Fatalf("CreateContract: %v", err)
	}
	if _, err := uuid.Parse(c.ID); err != nil {
		t.Fatalf("expected UUID id, got %q", c.ID)
	}
	if c.CreatedAt.IsZero() || c.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not set: %+v", c)
	}

	got, err := GetContract(context.Background(), db, c.ID)
	if err != nil || got.PlanType != domain.Plan1Year || got.StartDate != nil || got.EndDate != nil {
		t.Fatalf("unexpected readback: %+v err=%v", got, err)
	}
}

func TestGetContract_NotFound(t *testing.T) {
	db := newTestDB(t, &domain.Contract{})
	if _, err := GetContract(context.Background(), db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetUserContract_EnforcesOwnership(t *testing.T) {
	db := newTestDB(t, &domain.Contract{})
	c := seedContract(t, db, nil)

	if _, err := GetUserContract(context.Background(), db, c.ID, "u1"); err != nil {
		t.Fatalf("owner lookup: %v", err)
	}
	if _, err := GetUserContract(context.Background(), db, c.ID, "intruder"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other user, got %v", err)
	}
}

func TestListUserContractsPage_NewestFirst(t *testing.T) {
	db := newTestDB(t, &domain.Contract{})
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		ts := base.Add(time.Duration(i) * time.Hour)
		seedContract(t, db, func(c *domain.Contract) { c.ID = id; c.CreatedAt = ts; c.UpdatedAt = ts })
	}
	seedContract(t, db, func(c *domain.Contract) { c.ID = "other"; c.UserID = "u2" })

	total, err := CountUserContracts(context.Background(), db, "u1")
	if err != nil || total != 3 {
		t.Fatalf("CountUserContracts = %d, %v", total, err)
	}
	page, err := ListUserContractsPage(context.Background(), db, "u1", 0, 2)
	if err != nil || len(page) != 2 || page[0].ID != "c" || page[1].ID != "b" {
		t.Fatalf("unexpected page: %+v err=%v", page, err)
	}
	rest, err := ListUserContractsPage(context.Background(), db, "u1", 2, 2)
	if err != nil || len(rest) != 1 || rest[0].ID != "a" {
		t.Fatalf("unexpected last page: %+v err=%v", rest, err)
	}
}

func TestListPendingContractsPage_OldestFirstAndFiltered(t *testing.T) {
	db := newTestDB(t, &domain.Contract{})
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	seedContract(t, db, func(c *domain.Contract) { c.ID = "new"; c.CreatedAt = base.Add(time.Hour) })
	seedContract(t, db, func(c *domain.Contract) { c.ID = "old"; c.CreatedAt = base })
	seedContract(t, db, func(c *domain.Contract) { c.ID = "verified"; c.PaymentStatus = domain.PaymentVerified })
	seedContract(t, db, func(c *domain.Contract) { c.ID = "cancelled"; c.Status = domain.StatusCancelled })
	seedContract(t, db, func(c *domain.Contract) {
		c.ID = "rejected"
		c.Status = domain.StatusCancelled
		c.PaymentStatus = domain.PaymentFailed
	})

	n, err := CountPendingContracts(context.Background(), db)
	if err != nil || n != 2 {
		t.Fatalf("CountPendingContracts = %d, %v", n, err)
	}
	got, err := ListPendingContractsPage(context.Background(), db, 0, 10)
	if err != nil || len(got) != 2 || got[0].ID != "old" || got[1].ID != "new" {
		t.Fatalf("unexpected pending list: %+v err=%v", got, err)
	}
}

func TestLatestEntitledContract_PicksLatestUnexpired(t *testing.T) {
	db := newTestDB(t, &domain.Contract{})
	now := time.Now().UTC()

	verified := func(id string, end time.Time) func(*domain.Contract) {
		return func(c *domain.Contract) {
			c.ID = id
			c.PaymentStatus = domain.PaymentVerified
			c.StartDate = timePtr(end.AddDate(0, -3, 0))
			c.EndDate = timePtr(end)
		}
	}
	seedContract(t, db, verified("soon", now.Add(48*time.Hour)))
	seedContract(t, db, verified("later", now.Add(10*24*time.Hour)))
	seedContract(t, db, verified("lapsed", now.Add(-5*24*time.Hour)))
	seedContract(t, db, func(c *domain.Contract) {
		verified("cancelled", now.Add(90*24*time.Hour))(c)
		c.Status = domain.StatusCancelled
	})
	seedContract(t, db, func(c *domain.Contract) {
		verified("foreign", now.Add(90*24*time.Hour))(c)
		c.UserID = "u2"
	})

	got, err := LatestEntitledContract(context.Background(), db, "u1", now)
	if err != nil {
		t.Fatalf("LatestEntitledContract: %v", err)
	}
	if got.ID != "later" {
		t.Fatalf("expected contract 'later', got %q", got.ID)
	}

	if _, err := LatestEntitledContract(context.Background(), db, "nobody", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListContractsEndingBetween_And_Overdue(t *testing.T) {
	db := newTestDB(t, &domain.Contract{})
	now := time.Now().UTC()
	end := func(id string, d time.Duration) {
		seedContract(t, db, func(c *domain.Contract) {
			c.ID = id
			c.PaymentStatus = domain.PaymentVerified
			c.StartDate = timePtr(now.Add(-90 * 24 * time.Hour))
			c.EndDate = timePtr(now.Add(d))
		})
	}
	end("in2d", 2*24*time.Hour)
	end("in6d", 6*24*time.Hour)
	end("in30d", 30*24*time.Hour)
	end("past", -time.Hour)
	seedContract(t, db, func(c *domain.Contract) { c.ID = "pending" })

	within, err := ListContractsEndingBetween(context.Background(), db, now, now.Add(7*24*time.Hour))
	if err != nil || len(within) != 2 || within[0].ID != "in2d" || within[1].ID != "in6d" {
		t.Fatalf("unexpected window: %+v err=%v", within, err)
	}

	overdue, err := ListOverdueContracts(context.Background(), db, now, 0)
	if err != nil || len(overdue) != 1 || overdue[0].ID != "past" {
		t.Fatalf("unexpected overdue: %+v err=%v", overdue, err)
	}
}

func TestUpdateContractIf_AppliesOnlyWhenGuardMatches(t *testing.T) {
	db := newTestDB(t, &domain.Contract{})
	c := seedContract(t, db, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	guard := ContractGuard{
		Statuses: []domain.ContractStatus{domain.StatusActive},
		Payments: []domain.PaymentStatus{domain.PaymentPending},
	}
	updates := map[string]any{"payment_status": domain.PaymentVerified, "updated_at": now}

	n, err := UpdateContractIf(ctx, db, c.ID, guard, updates)
	if err != nil || n != 1 {
		t.Fatalf("first conditional update: n=%d err=%v", n, err)
	}
	// Same guard again: row no longer pending.
	n, err = UpdateContractIf(ctx, db, c.ID, guard, updates)
	if err != nil || n != 0 {
		t.Fatalf("second conditional update: n=%d err=%v", n, err)
	}
	// Unknown id.
	n, err = UpdateContractIf(ctx, db, "missing", guard, updates)
	if err != nil || n != 0 {
		t.Fatalf("missing id: n=%d err=%v", n, err)
	}
}

func TestUpdateContractIf_EndBefore(t *testing.T) {
	db := newTestDB(t, &domain.Contract{})
	now := time.Now().UTC()
	c := seedContract(t, db, func(c *domain.Contract) {
		c.PaymentStatus = domain.PaymentVerified
		c.StartDate = timePtr(now.Add(-24 * time.Hour))
		c.EndDate = timePtr(now.Add(time.Hour))
	})
	guard := ContractGuard{
		Statuses:  []domain.ContractStatus{domain.StatusActive},
		Payments:  []domain.PaymentStatus{domain.PaymentVerified},
		EndBefore: &now,
	}
	n, err := UpdateContractIf(context.Background(), db, c.ID, guard, map[string]any{"status": domain.StatusExpired})
	if err != nil || n != 0 {
		t.Fatalf("expected no expiry before end: n=%d err=%v", n, err)
	}
	later := now.Add(2 * time.Hour)
	guard.EndBefore = &later
	n, err = UpdateContractIf(context.Background(), db, c.ID, guard, map[string]any{"status": domain.StatusExpired})
	if err != nil || n != 1 {
		t.Fatalf("expected expiry after end: n=%d err=%v", n, err)
	}
}
