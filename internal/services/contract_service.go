// Package services – ContractService
//
// ContractService owns caller-facing contract operations: creation with
// server-side plan pricing, the user's own contract views and the admin
// review queue. Price, currency and duration are always copied from the
// static plan table; nothing the caller sends can influence them.
//
// Creation optionally honors an idempotency key. The key lookup, the insert
// and the key record share one transaction so a retried request returns the
// contract created by the first one.
package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-premium-contracts/internal/domain"
	"github.com/tbourn/go-premium-contracts/internal/repo"
)

// IdempotencyScopeContracts scopes idempotency keys of contract creation.
const IdempotencyScopeContracts = "contracts"

// CreateContractInput is the caller-supplied part of a new contract.
type CreateContractInput struct {
	UserID         string
	PlanType       domain.PlanType
	PaymentMethod  domain.PaymentMethod
	ContactChannel string
	ContactEmail   string
	// IdempotencyKey, when set, makes retries return the first result.
	IdempotencyKey string
}

// ContractService provides contract creation and read operations.
type ContractService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// IdempotencyTTL bounds how long a creation key is remembered.
	IdempotencyTTL time.Duration
	// Now overrides the clock in tests.
	Now func() time.Time
}

var validate = validator.New()

// NormalizePhone canonicalizes an Indonesian phone number to E.164
// ("0812..." and "62812..." both become "+62812..."). Spaces, dashes and
// parentheses are removed. The result is not validated.
func NormalizePhone(raw string) string {
	s := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "").Replace(strings.TrimSpace(raw))
	switch {
	case strings.HasPrefix(s, "+"):
		return s
	case strings.HasPrefix(s, "0"):
		return "+62" + strings.TrimPrefix(s, "0")
	case strings.HasPrefix(s, "62"):
		return "+" + s
	}
	return s
}

func (in *CreateContractInput) normalize() (domain.Plan, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	if in.UserID == "" {
		return domain.Plan{}, invalid("user_id", "is required")
	}
	in.PlanType = domain.PlanType(strings.ToUpper(strings.TrimSpace(string(in.PlanType))))
	plan, ok := domain.LookupPlan(in.PlanType)
	if !ok {
		return domain.Plan{}, invalid("plan_type", "must be one of 3_MONTHS, 6_MONTHS, 1_YEAR")
	}
	in.PaymentMethod = domain.PaymentMethod(strings.ToUpper(strings.TrimSpace(string(in.PaymentMethod))))
	if !in.PaymentMethod.Valid() {
		return domain.Plan{}, invalid("payment_method", "must be BANK_TRANSFER or E_WALLET")
	}
	in.ContactChannel = NormalizePhone(in.ContactChannel)
	if in.ContactChannel == "" {
		return domain.Plan{}, invalid("contact_channel", "is required")
	}
	if err := validate.Var(in.ContactChannel, "e164"); err != nil {
		return domain.Plan{}, invalid("contact_channel", "must be a phone number")
	}
	in.ContactEmail = strings.TrimSpace(in.ContactEmail)
	if err := validate.Var(in.ContactEmail, "omitempty,email"); err != nil {
		return domain.Plan{}, invalid("contact_email", "must be an e-mail address")
	}
	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)
	return plan, nil
}

// errReplay aborts the creation transaction when a concurrent request
// claimed the same idempotency key.
var errReplay = errors.New("idempotency key claimed concurrently")

// Create validates in and inserts a contract awaiting review
// (status=ACTIVE, payment_status=PENDING, no dates). It reports replayed=true
// when the contract was created earlier under the same idempotency key.
func (s *ContractService) Create(ctx context.Context, in CreateContractInput) (c *domain.Contract, replayed bool, err error) {
	tr := otel.Tracer("services/ContractService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("user.id", in.UserID),
			attribute.String("plan.type", string(in.PlanType)),
		),
	)
	defer span.End()

	plan, err := in.normalize()
	if err != nil {
		return nil, false, err
	}

	now := nowFrom(s.Now)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.IdempotencyKey != "" {
			prev, err := s.replay(ctx, tx, in.UserID, in.IdempotencyKey, now)
			if err != nil {
				return err
			}
			if prev != nil {
				c, replayed = prev, true
				return nil
			}
		}

		c = &domain.Contract{
			UserID:         in.UserID,
			PlanType:       plan.Type,
			PriceMinor:     plan.PriceMinor,
			Currency:       plan.Currency,
			DurationMonths: plan.DurationMonths,
			Status:         domain.StatusActive,
			PaymentStatus:  domain.PaymentPending,
			PaymentMethod:  in.PaymentMethod,
			ContactChannel: in.ContactChannel,
			ContactEmail:   in.ContactEmail,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := repo.CreateContract(ctx, tx, c); err != nil {
			return err
		}

		if in.IdempotencyKey != "" {
			_, err := repo.CreateIdempotency(ctx, tx, in.UserID, IdempotencyScopeContracts,
				in.IdempotencyKey, c.ID, http.StatusCreated, s.ttl())
			if errors.Is(err, repo.ErrDuplicate) {
				return errReplay
			}
			return err
		}
		return nil
	})

	if errors.Is(err, errReplay) {
		prev, rerr := s.replay(ctx, s.DB.WithContext(ctx), in.UserID, in.IdempotencyKey, now)
		if rerr != nil {
			return nil, false, rerr
		}
		if prev == nil {
			return nil, false, err
		}
		return prev, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	span.SetAttributes(attribute.String("contract.id", c.ID), attribute.Bool("idempotency.replayed", replayed))
	return c, replayed, nil
}

// replay returns the contract recorded under key, or nil when none.
func (s *ContractService) replay(ctx context.Context, db *gorm.DB, userID, key string, now time.Time) (*domain.Contract, error) {
	rec, err := repo.GetIdempotency(ctx, db, userID, IdempotencyScopeContracts, key, now)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c, err := repo.GetUserContract(ctx, db, rec.ResourceID, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	return c, err
}

func (s *ContractService) ttl() time.Duration {
	if s.IdempotencyTTL <= 0 {
		return 24 * time.Hour
	}
	return s.IdempotencyTTL
}

// Get returns contract id if it belongs to userID.
func (s *ContractService) Get(ctx context.Context, userID, id string) (*domain.Contract, error) {
	c, err := repo.GetUserContract(ctx, s.DB, id, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	return c, err
}

// ListPage returns a page of userID's contracts, newest first, and the total.
func (s *ContractService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Contract, int64, error) {
	tr := otel.Tracer("services/ContractService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	offset, limit := pageBounds(page, pageSize)
	total, err := repo.CountUserContracts(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Contract{}, 0, nil
	}
	items, err := repo.ListUserContractsPage(ctx, s.DB, userID, offset, limit)
	return items, total, err
}

// ListPending returns a page of the admin review queue, oldest first.
func (s *ContractService) ListPending(ctx context.Context, page, pageSize int) ([]domain.Contract, int64, error) {
	tr := otel.Tracer("services/ContractService")
	ctx, span := tr.Start(ctx, "ListPending",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	offset, limit := pageBounds(page, pageSize)
	total, err := repo.CountPendingContracts(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Contract{}, 0, nil
	}
	items, err := repo.ListPendingContractsPage(ctx, s.DB, offset, limit)
	return items, total, err
}

// PendingStats returns the size of the review queue and its latest update,
// used by the HTTP layer to compute ETags.
func (s *ContractService) PendingStats(ctx context.Context) (int64, *time.Time, error) {
	return repo.PendingStats(ctx, s.DB)
}

func pageBounds(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return (page - 1) * pageSize, pageSize
}
