package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-premium-contracts/internal/domain"
	"github.com/tbourn/go-premium-contracts/internal/http/middleware"
	"github.com/tbourn/go-premium-contracts/internal/services"
	"github.com/tbourn/go-premium-contracts/internal/utils"
)

//
// Service contracts (context-aware)
//

// ContractService creates and reads contracts.
type ContractService interface {
	// Create inserts a contract awaiting review; replayed is true when the
	// idempotency key matched an earlier request.
	Create(ctx context.Context, in services.CreateContractInput) (c *domain.Contract, replayed bool, err error)
	// Get returns one of userID's contracts.
	Get(ctx context.Context, userID, id string) (*domain.Contract, error)
	// ListPage returns a page of userID's contracts and the total count.
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Contract, int64, error)
	// ListPending returns a page of contracts awaiting review.
	ListPending(ctx context.Context, page, pageSize int) ([]domain.Contract, int64, error)
	// PendingStats returns the review queue size and its latest update.
	PendingStats(ctx context.Context) (int64, *time.Time, error)
}

// AdjudicationService applies administrator decisions.
type AdjudicationService interface {
	Adjudicate(ctx context.Context, action services.Action, contractID, adminID, notes string) (*domain.Contract, error)
}

// EntitlementService answers premium status queries.
type EntitlementService interface {
	Resolve(ctx context.Context, userID string) (domain.PremiumStatus, error)
}

// NotificationService exposes the outbox to operators.
type NotificationService interface {
	ListByStatus(ctx context.Context, status domain.DeliveryStatus, page, pageSize int) ([]domain.Notification, int64, error)
	ForContract(ctx context.Context, contractID string) ([]domain.Notification, error)
	Requeue(ctx context.Context, id string) (*domain.Notification, error)
}

// Handlers groups the HTTP endpoints. It depends on service interfaces only.
type Handlers struct {
	contracts     ContractService
	adjudication  AdjudicationService
	entitlement   EntitlementService
	notifications NotificationService
}

// New constructs Handlers bound to the given services.
func New(contracts ContractService, adjudication AdjudicationService, entitlement EntitlementService, notifications NotificationService) *Handlers {
	return &Handlers{
		contracts:     contracts,
		adjudication:  adjudication,
		entitlement:   entitlement,
		notifications: notifications,
	}
}

// userID returns the caller id set by middleware.Identity (or read from the
// X-User-ID header). It is empty for anonymous requests.
func userID(c *gin.Context) string {
	return strings.TrimSpace(middleware.UserID(c))
}

// requireUser writes 401 and returns false when the request is anonymous.
func requireUser(c *gin.Context) (string, bool) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "X-User-ID header required")
		return "", false
	}
	return uid, true
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := utils.TotalPages(total, pageSize)
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// clampPagination reads page and page_size (default 20, at most 100).
func clampPagination(c *gin.Context) (page, pageSize int) {
	return utils.ClampPage(c.Query("page"), c.Query("page_size"), 20, 100)
}
