package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-premium-contracts/internal/domain"
	"github.com/tbourn/go-premium-contracts/internal/repo"
)

// AdminPolicy decides whether a user is an administrator.
type AdminPolicy interface {
	IsAdmin(userID string) bool
}

// AdminSet is an allowlist AdminPolicy.
type AdminSet map[string]struct{}

// NewAdminSet builds an AdminSet from ids, ignoring blanks.
func NewAdminSet(ids []string) AdminSet {
	s := make(AdminSet, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

// IsAdmin reports whether userID is in the set.
func (s AdminSet) IsAdmin(userID string) bool {
	_, ok := s[userID]
	return ok
}

// EntitlementService answers whether a user currently has premium access.
// Every call reads the contract store; results are never cached so that an
// accept is visible to the next request.
type EntitlementService struct {
	DB     *gorm.DB
	Admins AdminPolicy
	Now    func() time.Time
}

// Resolve returns the premium status of userID.
//
// Administrators are premium regardless of contracts (AdminOverride=true).
// Otherwise the verified, unexpired contract with the latest end date is the
// source of entitlement.
func (s *EntitlementService) Resolve(ctx context.Context, userID string) (domain.PremiumStatus, error) {
	tr := otel.Tracer("services/EntitlementService")
	ctx, span := tr.Start(ctx, "Resolve",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.PremiumStatus{}, invalid("user_id", "is required")
	}

	if s.Admins != nil && s.Admins.IsAdmin(userID) {
		span.SetAttributes(attribute.Bool("premium.admin_override", true))
		return domain.PremiumStatus{IsPremium: true, AdminOverride: true}, nil
	}

	now := nowFrom(s.Now)
	c, err := repo.LatestEntitledContract(ctx, s.DB, userID, now)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.PremiumStatus{IsPremium: false}, nil
	}
	if err != nil {
		return domain.PremiumStatus{}, err
	}
	if !c.EntitledAt(now) {
		return domain.PremiumStatus{IsPremium: false}, nil
	}

	id, plan := c.ID, c.PlanType
	span.SetAttributes(attribute.String("contract.id", id))
	return domain.PremiumStatus{
		IsPremium:        true,
		EndDate:          c.EndDate,
		SourceContractID: &id,
		SourcePlanType:   &plan,
	}, nil
}
