// Admin HTTP handlers.
//
// All routes here sit behind middleware.RequireAdmin:
//   - GET  /admin/contracts/pending                 (review queue, ETag)
//   - POST /admin/contracts/{id}/{accept|reject|cancel}
//   - GET  /admin/contracts/{id}/notifications
//   - GET  /admin/notifications?status=FAILED        (outbox, paginated)
//   - POST /admin/notifications/{id}/requeue
package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-premium-contracts/internal/domain"
	"github.com/tbourn/go-premium-contracts/internal/http/middleware"
	"github.com/tbourn/go-premium-contracts/internal/services"
)

// AdjudicateRequest is the optional JSON body of accept/reject/cancel.
type AdjudicateRequest struct {
	// Notes are stored on the contract and included in the user's message.
	Notes string `json:"notes" binding:"max=1000" example:"Transfer confirmed on BCA statement"`
}

// ListNotificationsResponse wraps a page of notifications.
type ListNotificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
	Pagination    Pagination            `json:"pagination"`
}

// ContractNotificationsResponse lists a contract's notifications.
type ContractNotificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
}

// ListPendingContracts godoc
// @ID          listPendingContracts
// @Summary     Review queue
// @Description Contracts awaiting payment review, oldest first. Supports weak ETag via If-None-Match.
// @Tags        Admin
// @Produce     json
//
// @Param       X-Admin-ID     header  string  true   "Administrator ID"            example(ops-1)
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"  example(W/\"pending:3:1700000000000000000:1:20\")
// @Param       page           query   int     false  "Page number"                 minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"              minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListContractsResponse
// @Header      200  {string}  ETag  "Weak ETag for the queue"
// @Success     304  {string}  string "Not Modified"
// @Failure     401  {object}  handlers.ErrorResponse "Missing admin identity"
// @Failure     403  {object}  handlers.ErrorResponse "Not an admin"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /admin/contracts/pending [get]
func (h *Handlers) ListPendingContracts(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if count, maxTS, err := h.contracts.PendingStats(ctx); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		etag := fmt.Sprintf(`W/"pending:%d:%d:%d:%d"`, count, ts, page, pageSize)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.contracts.ListPending(ctx, page, pageSize)
	if err != nil {
		failFrom(c, err)
		return
	}
	ok(c, http.StatusOK, ListContractsResponse{Contracts: items, Pagination: newPagination(page, pageSize, total)})
}

// AdjudicateContract godoc
// @ID          adjudicateContract
// @Summary     Accept, reject or cancel a contract
// @Description accept and reject apply to contracts awaiting review; cancel applies to pending or verified contracts. Exactly one of several concurrent decisions succeeds.
// @Tags        Admin
// @Accept      json
// @Produce     json
//
// @Param       X-Admin-ID  header  string  true   "Administrator ID"    example(ops-1)
// @Param       id          path    string  true   "Contract ID (UUID)"  format(uuid)
// @Param       action      path    string  true   "Decision"            Enums(accept, reject, cancel)
// @Param       body        body    handlers.AdjudicateRequest  false  "Reviewer notes"
//
// @Success     200  {object}  domain.Contract
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Contract not found"
// @Failure     409  {object}  handlers.ErrorResponse "invalid_transition or already_adjudicated"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /admin/contracts/{id}/{action} [post]
func (h *Handlers) AdjudicateContract(c *gin.Context) {
	id, okID := contractIDParam(c)
	if !okID {
		return
	}
	action, err := services.ParseAction(c.Param("action"))
	if err != nil {
		failFrom(c, err)
		return
	}
	var req AdjudicateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, bindingMessage(err))
		return
	}

	ct, err := h.adjudication.Adjudicate(c.Request.Context(), action, id, middleware.AdminID(c), strings.TrimSpace(req.Notes))
	if err != nil {
		failFrom(c, err)
		return
	}
	middleware.LoggerFrom(c).Info().
		Str("contract_id", ct.ID).
		Str("action", string(action)).
		Str("admin_id", middleware.AdminID(c)).
		Msg("contract adjudicated")
	ok(c, http.StatusOK, ct)
}

// ListContractNotifications godoc
// @ID          listContractNotifications
// @Summary     Notifications of a contract
// @Tags        Admin
// @Produce     json
// @Param       X-Admin-ID  header  string  true  "Administrator ID"    example(ops-1)
// @Param       id          path    string  true  "Contract ID (UUID)"  format(uuid)
// @Success     200  {object}  handlers.ContractNotificationsResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Router      /admin/contracts/{id}/notifications [get]
func (h *Handlers) ListContractNotifications(c *gin.Context) {
	id, okID := contractIDParam(c)
	if !okID {
		return
	}
	items, err := h.notifications.ForContract(c.Request.Context(), id)
	if err != nil {
		failFrom(c, err)
		return
	}
	ok(c, http.StatusOK, ContractNotificationsResponse{Notifications: items})
}

// ListNotifications godoc
// @ID          listNotifications
// @Summary     Outbox by status
// @Description Lists notifications in a delivery status (default FAILED), most recently updated first.
// @Tags        Admin
// @Produce     json
//
// @Param       X-Admin-ID  header  string  true   "Administrator ID"  example(ops-1)
// @Param       status      query   string  false  "Delivery status"   Enums(PENDING, SENT, FAILED) default(FAILED)
// @Param       page        query   int     false  "Page number"       minimum(1) default(1)
// @Param       page_size   query   int     false  "Items per page"    minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListNotificationsResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Router      /admin/notifications [get]
func (h *Handlers) ListNotifications(c *gin.Context) {
	status := domain.DeliveryStatus(strings.ToUpper(strings.TrimSpace(c.DefaultQuery("status", string(domain.DeliveryFailed)))))
	page, pageSize := clampPagination(c)

	items, total, err := h.notifications.ListByStatus(c.Request.Context(), status, page, pageSize)
	if err != nil {
		failFrom(c, err)
		return
	}
	ok(c, http.StatusOK, ListNotificationsResponse{Notifications: items, Pagination: newPagination(page, pageSize, total)})
}

// RequeueNotification godoc
// @ID          requeueNotification
// @Summary     Retry a failed notification
// @Description Moves a FAILED notification back to PENDING with a fresh attempt budget.
// @Tags        Admin
// @Produce     json
//
// @Param       X-Admin-ID  header  string  true  "Administrator ID"        example(ops-1)
// @Param       id          path    string  true  "Notification ID (UUID)"  format(uuid)
//
// @Success     200  {object}  domain.Notification
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Notification not found"
// @Failure     409  {object}  handlers.ErrorResponse "Not in FAILED state"
// @Router      /admin/notifications/{id}/requeue [post]
func (h *Handlers) RequeueNotification(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id must be a UUID")
		return
	}
	n, err := h.notifications.Requeue(c.Request.Context(), id)
	if err != nil {
		failFrom(c, err)
		return
	}
	ok(c, http.StatusOK, n)
}
