package httpgin

import (
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-engine/internal/domain"
	"github.com/kirinyoku/tix-engine/internal/service/purchase"
	"github.com/kirinyoku/tix-engine/internal/service/redemption"
)

type BuyRequest struct {
	OfferingID int64  `json:"offering_id" binding:"required"`
	Quantity   int    `json:"quantity"`
	Seat       string `json:"seat"`
}

type RedeemRequest struct {
	Credential string `json:"credential" binding:"required"`
	Agent      string `json:"agent"`
	Proof      string `json:"proof"`
}

type CancelOfferingRequest struct {
	RefundPercent *int `json:"refund_percent" binding:"required"`
}

type CreateOfferingRequest struct {
	Title          string     `json:"title" binding:"required"`
	Category       string     `json:"category" binding:"required"`
	Subtype        string     `json:"subtype" binding:"required"`
	UnitPriceCents int64      `json:"unit_price_cents"`
	TotalCapacity  int        `json:"total_capacity" binding:"required"`
	StartsAt       time.Time  `json:"starts_at" binding:"required"`
	EndsAt         *time.Time `json:"ends_at"`
	SalesStart     *time.Time `json:"sales_start"`
	SalesEnd       *time.Time `json:"sales_end"`
	PerAccountCap  int        `json:"per_account_cap"`
}

type RestockRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

type CreateAccountRequest struct {
	BalanceCents int64 `json:"balance_cents"`
	Blocked      bool  `json:"blocked"`
}

type SetBlockedRequest struct {
	Blocked *bool `json:"blocked" binding:"required"`
}

type ManualRefundRequest struct {
	AmountCents int64  `json:"amount_cents" binding:"required"`
	ParentRef   string `json:"parent_ref" binding:"omitempty,uuid"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	// HoursRemaining is set on refund denials.
	HoursRemaining *float64 `json:"hours_remaining,omitempty"`
	// RetryAfterSeconds is set on rate limit rejections.
	RetryAfterSeconds *int `json:"retry_after_seconds,omitempty"`
}

type PurchaseResponse struct {
	ID             string     `json:"id"`
	TransactionRef string     `json:"transaction_ref"`
	OfferingID     int64      `json:"offering_id"`
	Credential     string     `json:"credential"`
	Proof          string     `json:"proof"`
	Seat           string     `json:"seat,omitempty"`
	UnitPriceCents int64      `json:"unit_price_cents"`
	Status         string     `json:"status"`
	UsedAt         *time.Time `json:"used_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type BuyResponse struct {
	TransactionRef   string             `json:"transaction_ref"`
	Purchases        []PurchaseResponse `json:"purchases"`
	TotalAmountCents int64              `json:"total_amount_cents"`
}

type CancelResponse struct {
	RefundAmountCents    int64    `json:"refund_amount_cents"`
	RefundTransactionRef string   `json:"refund_transaction_ref"`
	CancelledPurchases   []string `json:"cancelled_purchases"`
}

type RedeemResponse struct {
	Valid       bool      `json:"valid"`
	PurchaseID  string    `json:"purchase_id"`
	OfferingID  int64     `json:"offering_id"`
	Seat        string    `json:"seat,omitempty"`
	ValidatedAt time.Time `json:"validated_at"`
}

type RefundFailureResponse struct {
	PurchaseID string `json:"purchase_id"`
	AccountID  int64  `json:"account_id"`
	Reason     string `json:"reason"`
}

type BulkCancelResponse struct {
	RefundsProcessed   int                     `json:"refunds_processed"`
	TotalRefundedCents int64                   `json:"total_refunded_cents"`
	Skipped            int                     `json:"skipped"`
	Failures           []RefundFailureResponse `json:"failures"`
}

type OfferingResponse struct {
	ID                int64      `json:"id"`
	Title             string     `json:"title"`
	Category          string     `json:"category"`
	Subtype           string     `json:"subtype"`
	UnitPriceCents    int64      `json:"unit_price_cents"`
	TotalCapacity     int        `json:"total_capacity"`
	RemainingCapacity int        `json:"remaining_capacity"`
	StartsAt          time.Time  `json:"starts_at"`
	EndsAt            *time.Time `json:"ends_at,omitempty"`
	SalesStart        *time.Time `json:"sales_start,omitempty"`
	SalesEnd          *time.Time `json:"sales_end,omitempty"`
	PerAccountCap     int        `json:"per_account_cap"`
	Status            string     `json:"status"`
}

type AvailabilityResponse struct {
	Total     int `json:"total"`
	Remaining int `json:"remaining"`
	Active    int `json:"active"`
	Used      int `json:"used"`
	Cancelled int `json:"cancelled"`
}

type TransactionResponse struct {
	Ref         string             `json:"ref"`
	Type        string             `json:"type"`
	Status      string             `json:"status"`
	AmountCents int64              `json:"amount_cents"`
	ParentRef   *string            `json:"parent_ref,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	Purchases   []PurchaseResponse `json:"purchases"`
}

type AccountResponse struct {
	ID           int64 `json:"id"`
	BalanceCents int64 `json:"balance_cents"`
	Blocked      bool  `json:"blocked"`
}

type CreateOfferingResponse struct {
	OfferingID int64 `json:"offering_id"`
}

type CreateAccountResponse struct {
	AccountID int64 `json:"account_id"`
}

type ManualRefundResponse struct {
	TransactionRef string `json:"transaction_ref"`
}

func (r CreateOfferingRequest) toDomain() domain.Offering {
	return domain.Offering{
		Title:          r.Title,
		Category:       domain.Category(r.Category),
		Subtype:        domain.Subtype(r.Subtype),
		UnitPriceCents: r.UnitPriceCents,
		TotalCapacity:  r.TotalCapacity,
		StartsAt:       r.StartsAt,
		EndsAt:         r.EndsAt,
		SalesStart:     r.SalesStart,
		SalesEnd:       r.SalesEnd,
		PerAccountCap:  r.PerAccountCap,
	}
}

func toPurchaseResponse(p domain.Purchase) PurchaseResponse {
	return PurchaseResponse{
		ID:             p.ID.String(),
		TransactionRef: p.TransactionRef.String(),
		OfferingID:     p.OfferingID,
		Credential:     p.Credential,
		Proof:          p.Proof,
		Seat:           p.Seat,
		UnitPriceCents: p.UnitPriceCents,
		Status:         string(p.Status),
		UsedAt:         p.UsedAt,
		CreatedAt:      p.CreatedAt,
	}
}

func toPurchaseResponses(ps []domain.Purchase) []PurchaseResponse {
	out := make([]PurchaseResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPurchaseResponse(p))
	}
	return out
}

func toBuyResponse(r *purchase.BuyResult) BuyResponse {
	return BuyResponse{
		TransactionRef:   r.TransactionRef.String(),
		Purchases:        toPurchaseResponses(r.Purchases),
		TotalAmountCents: r.TotalAmountCents,
	}
}

func toCancelResponse(r *purchase.CancelResult) CancelResponse {
	return CancelResponse{
		RefundAmountCents:    r.RefundAmountCents,
		RefundTransactionRef: r.RefundTransactionRef.String(),
		CancelledPurchases:   uuidStrings(r.CancelledPurchases),
	}
}

func toRedeemResponse(r *redemption.Result) RedeemResponse {
	return RedeemResponse{
		Valid:       r.Valid,
		PurchaseID:  r.PurchaseID.String(),
		OfferingID:  r.OfferingID,
		Seat:        r.Seat,
		ValidatedAt: r.ValidatedAt,
	}
}

func toBulkCancelResponse(r *purchase.BulkCancelResult) BulkCancelResponse {
	out := BulkCancelResponse{
		RefundsProcessed:   r.RefundsProcessed,
		TotalRefundedCents: r.TotalRefundedCents,
		Skipped:            r.Skipped,
		Failures:           make([]RefundFailureResponse, 0, len(r.Failures)),
	}
	for _, f := range r.Failures {
		out.Failures = append(out.Failures, RefundFailureResponse{
			PurchaseID: f.PurchaseID.String(),
			AccountID:  f.AccountID,
			Reason:     f.Reason,
		})
	}
	return out
}

func toOfferingResponse(o *domain.Offering) OfferingResponse {
	return OfferingResponse{
		ID:                o.ID,
		Title:             o.Title,
		Category:          string(o.Category),
		Subtype:           string(o.Subtype),
		UnitPriceCents:    o.UnitPriceCents,
		TotalCapacity:     o.TotalCapacity,
		RemainingCapacity: o.RemainingCapacity,
		StartsAt:          o.StartsAt,
		EndsAt:            o.EndsAt,
		SalesStart:        o.SalesStart,
		SalesEnd:          o.SalesEnd,
		PerAccountCap:     o.PerAccountCap,
		Status:            string(o.Status),
	}
}

func toTransactionResponse(t *domain.TransactionWithPurchases) TransactionResponse {
	out := TransactionResponse{
		Ref:         t.Transaction.Ref.String(),
		Type:        string(t.Transaction.Type),
		Status:      string(t.Transaction.Status),
		AmountCents: t.Transaction.AmountCents,
		CreatedAt:   t.Transaction.CreatedAt,
		Purchases:   toPurchaseResponses(t.Purchases),
	}
	if t.Transaction.ParentRef != nil {
		s := t.Transaction.ParentRef.String()
		out.ParentRef = &s
	}
	return out
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
