package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kirinyoku/tix-engine/internal/service"
)

// @Summary  Create offering
// @Security BearerAuth
// @Param    req body  CreateOfferingRequest true "payload"
// @Success  201 {object} CreateOfferingResponse
// @Failure  400 {object} ErrorResponse
// @Router   /v1/admin/offerings [post]
func handleCreateOffering(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateOfferingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		id, err := svcs.Admin.CreateOffering(c.Request.Context(), req.toDomain())
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, CreateOfferingResponse{OfferingID: id})
	}
}

// @Summary  Restock offering
// @Security BearerAuth
// @Param    id  path  int  true  "Offering ID"
// @Param    req body  RestockRequest true "payload"
// @Success  200 {object} OfferingResponse
// @Failure  409 {object} ErrorResponse "offering cancelled"
// @Router   /v1/admin/offerings/{id}/restock [post]
func handleRestock(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		var req RestockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		o, err := svcs.Admin.Restock(c.Request.Context(), id, req.Quantity)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toOfferingResponse(o))
	}
}

// @Summary  Cancel offering and refund every active purchase
// @Security BearerAuth
// @Param    id  path  int  true  "Offering ID"
// @Param    req body  CancelOfferingRequest true "payload"
// @Success  200 {object} BulkCancelResponse
// @Failure  400 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Router   /v1/admin/offerings/{id}/cancel [post]
func handleCancelOffering(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		var req CancelOfferingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		res, err := svcs.Purchase.CancelOffering(c.Request.Context(), id, *req.RefundPercent)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toBulkCancelResponse(res))
	}
}

// @Summary  Create account
// @Security BearerAuth
// @Param    req body  CreateAccountRequest true "payload"
// @Success  201 {object} CreateAccountResponse
// @Router   /v1/admin/accounts [post]
func handleCreateAccount(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateAccountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		id, err := svcs.Admin.CreateAccount(c.Request.Context(), req.BalanceCents, req.Blocked)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, CreateAccountResponse{AccountID: id})
	}
}

// @Summary  Get account
// @Security BearerAuth
// @Param    id  path  int  true  "Account ID"
// @Success  200 {object} AccountResponse
// @Failure  404 {object} ErrorResponse
// @Router   /v1/admin/accounts/{id} [get]
func handleGetAccount(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		a, err := svcs.Admin.GetAccount(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, AccountResponse{ID: a.ID, BalanceCents: a.BalanceCents, Blocked: a.Blocked})
	}
}

// @Summary  Block or unblock account
// @Security BearerAuth
// @Param    id  path  int  true  "Account ID"
// @Param    req body  SetBlockedRequest true "payload"
// @Success  204
// @Failure  404 {object} ErrorResponse
// @Router   /v1/admin/accounts/{id}/blocked [put]
func handleSetBlocked(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		var req SetBlockedRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		if err := svcs.Admin.SetBlocked(c.Request.Context(), id, *req.Blocked); err != nil {
			respondErr(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// @Summary  Manual refund
// @Security BearerAuth
// @Param    id  path  int  true  "Account ID"
// @Param    req body  ManualRefundRequest true "payload"
// @Success  201 {object} ManualRefundResponse
// @Failure  400 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Router   /v1/admin/accounts/{id}/refunds [post]
func handleManualRefund(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		var req ManualRefundRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		var parent *uuid.UUID
		if req.ParentRef != "" {
			p := uuid.MustParse(req.ParentRef)
			parent = &p
		}

		ref, err := svcs.Purchase.ManualRefund(c.Request.Context(), id, req.AmountCents, parent)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, ManualRefundResponse{TransactionRef: ref.String()})
	}
}
