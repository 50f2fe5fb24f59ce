package httpgin

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/tix-engine/internal/domain"
	"github.com/kirinyoku/tix-engine/internal/service/admin"
)

type errMapping struct {
	err    error
	status int
	code   string
}

// errMappings is checked in order. Specific not-found errors wrap
// domain.ErrNotFound, so they come before it.
var errMappings = []errMapping{
	{domain.ErrOfferingNotFound, http.StatusNotFound, "OFFERING_NOT_FOUND"},
	{domain.ErrAccountNotFound, http.StatusNotFound, "ACCOUNT_NOT_FOUND"},
	{domain.ErrTransactionNotFound, http.StatusNotFound, "TRANSACTION_NOT_FOUND"},
	{domain.ErrPurchaseNotFound, http.StatusNotFound, "PURCHASE_NOT_FOUND"},
	{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},

	{domain.ErrSoldOut, http.StatusConflict, "SOLD_OUT"},
	{domain.ErrCapExceeded, http.StatusConflict, "CAP_EXCEEDED"},
	{domain.ErrSeatTaken, http.StatusConflict, "SEAT_TAKEN"},
	{domain.ErrAlreadyUsed, http.StatusConflict, "ALREADY_USED"},
	{domain.ErrAlreadyCancelled, http.StatusConflict, "ALREADY_CANCELLED"},
	{domain.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
	{domain.ErrOfferingCancelled, http.StatusConflict, "OFFERING_CANCELLED"},

	{domain.ErrExpired, http.StatusGone, "EXPIRED"},
	{domain.ErrSalesClosed, http.StatusGone, "SALES_CLOSED"},
	{domain.ErrBoardingClosed, http.StatusGone, "BOARDING_CLOSED"},
	{domain.ErrSalesNotOpen, http.StatusTooEarly, "SALES_NOT_OPEN"},

	{domain.ErrInsufficientFunds, http.StatusPaymentRequired, "INSUFFICIENT_FUNDS"},
	{domain.ErrPaymentFailed, http.StatusPaymentRequired, "PAYMENT_FAILED"},

	{domain.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
	{domain.ErrAccountBlocked, http.StatusForbidden, "ACCOUNT_BLOCKED"},
	{domain.ErrInvalidProof, http.StatusForbidden, "INVALID_PROOF"},
	{domain.ErrRefundDeadlinePassed, http.StatusUnprocessableEntity, "REFUND_DEADLINE_PASSED"},

	{domain.ErrInvalidQuantity, http.StatusBadRequest, "INVALID_QUANTITY"},
	{domain.ErrSeatRequired, http.StatusBadRequest, "SEAT_REQUIRED"},
	{domain.ErrSeatNotAllowed, http.StatusBadRequest, "SEAT_NOT_ALLOWED"},
	{domain.ErrInvalidOffering, http.StatusBadRequest, "INVALID_OFFERING"},
	{domain.ErrInvalidRefundPercent, http.StatusBadRequest, "INVALID_REFUND_PERCENT"},
	{domain.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT"},
	{admin.ErrNegativeBalance, http.StatusBadRequest, "INVALID_AMOUNT"},
	{admin.ErrRestockQuantity, http.StatusBadRequest, "INVALID_QUANTITY"},

	{domain.ErrRetryable, http.StatusServiceUnavailable, "RETRY"},
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	resp := ErrorResponse{Error: err.Error()}
	status := http.StatusInternalServerError
	resp.Code = "INTERNAL"

	for _, m := range errMappings {
		if errors.Is(err, m.err) {
			status, resp.Code = m.status, m.code
			break
		}
	}

	var denied *domain.RefundDeniedError
	if errors.As(err, &denied) {
		h := denied.HoursRemaining
		resp.HoursRemaining = &h
	}

	var limited *domain.RateLimitedError
	if errors.As(err, &limited) {
		secs := int(math.Ceil(limited.RetryAfter.Seconds()))
		resp.RetryAfterSeconds = &secs
		c.Header("Retry-After", strconv.Itoa(secs))
	}

	if status == http.StatusServiceUnavailable {
		c.Header("Retry-After", "1")
	}

	if status == http.StatusInternalServerError {
		// Storage details stay in the log.
		_ = c.Error(err)
		resp.Error = "internal error"
	}

	c.JSON(status, resp)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: "INVALID_REQUEST"})
}
