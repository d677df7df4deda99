// Contract HTTP handlers.
//
// This file exposes the user-facing contract endpoints:
//   - POST /contracts        (create, Idempotency-Key aware)
//   - GET  /contracts        (list own, paginated)
//   - GET  /contracts/{id}   (get own)
//   - GET  /plans            (static plan table)
//   - GET  /premium          (entitlement)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-premium-contracts/internal/domain"
	"github.com/tbourn/go-premium-contracts/internal/http/middleware"
	"github.com/tbourn/go-premium-contracts/internal/services"
)

// CreateContractRequest is the JSON payload for purchasing a plan.
type CreateContractRequest struct {
	// PlanType is one of 3_MONTHS, 6_MONTHS, 1_YEAR.
	PlanType string `json:"plan_type" binding:"required,plan_type" example:"3_MONTHS"`
	// PaymentMethod is BANK_TRANSFER or E_WALLET.
	PaymentMethod string `json:"payment_method" binding:"required,payment_method" example:"BANK_TRANSFER"`
	// ContactChannel is the WhatsApp number for notifications.
	ContactChannel string `json:"contact_channel" binding:"required,max=32" example:"+628123456789"`
	// ContactEmail optionally enables e-mail notifications.
	ContactEmail string `json:"contact_email" binding:"omitempty,max=255,email" example:"captain@example.com"`
}

// ListContractsResponse wraps a page of contracts.
type ListContractsResponse struct {
	Contracts  []domain.Contract `json:"contracts"`
	Pagination Pagination        `json:"pagination"`
}

// PlansResponse lists the purchasable plans.
type PlansResponse struct {
	Plans []domain.Plan `json:"plans"`
}

// CreateContract godoc
// @ID          createContract
// @Summary     Purchase a plan
// @Description Creates a contract awaiting payment review. With an Idempotency-Key, retries within the TTL return the original contract and set Idempotency-Replayed: true.
// @Tags        Contracts
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  true   "User ID"          example(user123)
// @Param       Idempotency-Key  header  string  false  "Retry key"        example(7b1f5c1e-order-1)
// @Param       body             body    handlers.CreateContractRequest  true  "Contract payload"
//
// @Success     201  {object}  domain.Contract
// @Success     200  {object}  domain.Contract         "Idempotent replay"
// @Header      200  {string}  Idempotency-Replayed    "true"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing user"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /contracts [post]
func (h *Handlers) CreateContract(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	var req CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, bindingMessage(err))
		return
	}
	key, _ := middleware.GetIdempotencyKey(c)

	ct, replayed, err := h.contracts.Create(c.Request.Context(), services.CreateContractInput{
		UserID:         uid,
		PlanType:       domain.PlanType(req.PlanType),
		PaymentMethod:  domain.PaymentMethod(req.PaymentMethod),
		ContactChannel: req.ContactChannel,
		ContactEmail:   req.ContactEmail,
		IdempotencyKey: key,
	})
	if err != nil {
		failFrom(c, err)
		return
	}
	if replayed {
		c.Header(middleware.HeaderIdempotencyReplayed, "true")
		ok(c, http.StatusOK, ct)
		return
	}
	c.Header("Location", strings.TrimSuffix(c.Request.URL.Path, "/")+"/"+ct.ID)
	ok(c, http.StatusCreated, ct)
}

// ListContracts godoc
// @ID          listContracts
// @Summary     List own contracts
// @Description Returns a page of the caller's contracts, newest first.
// @Tags        Contracts
// @Produce     json
//
// @Param       X-User-ID  header  string  true   "User ID"         example(user123)
// @Param       page       query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size  query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListContractsResponse
// @Failure     401  {object}  handlers.ErrorResponse "Missing user"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /contracts [get]
func (h *Handlers) ListContracts(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	page, pageSize := clampPagination(c)
	items, total, err := h.contracts.ListPage(c.Request.Context(), uid, page, pageSize)
	if err != nil {
		failFrom(c, err)
		return
	}
	ok(c, http.StatusOK, ListContractsResponse{Contracts: items, Pagination: newPagination(page, pageSize, total)})
}

// GetContract godoc
// @ID          getContract
// @Summary     Get own contract
// @Tags        Contracts
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID"              example(user123)
// @Param       id         path    string  true  "Contract ID (UUID)"   format(uuid)
//
// @Success     200  {object}  domain.Contract
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Contract not found"
// @Router      /contracts/{id} [get]
func (h *Handlers) GetContract(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	id, okID := contractIDParam(c)
	if !okID {
		return
	}
	ct, err := h.contracts.Get(c.Request.Context(), uid, id)
	if err != nil {
		failFrom(c, err)
		return
	}
	ok(c, http.StatusOK, ct)
}

// ListPlans godoc
// @ID          listPlans
// @Summary     List plans
// @Tags        Contracts
// @Produce     json
// @Success     200  {object}  handlers.PlansResponse
// @Router      /plans [get]
func (h *Handlers) ListPlans(c *gin.Context) {
	ok(c, http.StatusOK, PlansResponse{Plans: domain.Plans()})
}

// GetPremiumStatus godoc
// @ID          getPremiumStatus
// @Summary     Premium status
// @Description Evaluates the caller's entitlement at request time. Responses are not cacheable.
// @Tags        Premium
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID"  example(user123)
//
// @Success     200  {object}  domain.PremiumStatus
// @Header      200  {string}  Cache-Control  "no-store"
// @Failure     401  {object}  handlers.ErrorResponse "Missing user"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /premium [get]
func (h *Handlers) GetPremiumStatus(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	st, err := h.entitlement.Resolve(c.Request.Context(), uid)
	if err != nil {
		failFrom(c, err)
		return
	}
	middleware.NoStore(c)
	ok(c, http.StatusOK, st)
}

// contractIDParam parses the :id path parameter as a UUID, writing 400 when
// it is not one.
func contractIDParam(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id must be a UUID")
		return "", false
	}
	return id, true
}
