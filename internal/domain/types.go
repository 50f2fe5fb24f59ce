package domain

import (
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryEvent     Category = "EVENT"
	CategoryGame      Category = "GAME"
	CategoryTransport Category = "TRANSPORT"
)

type Subtype string

const (
	SubtypeGeneralAdmission Subtype = "GENERAL_ADMISSION"
	SubtypeReservedSeating  Subtype = "RESERVED_SEATING"
	SubtypeOneWay           Subtype = "ONE_WAY"
	SubtypeReturn           Subtype = "RETURN"
)

// RequiresSeat reports whether purchases of this subtype must name a seat.
func (s Subtype) RequiresSeat() bool {
	return s == SubtypeReservedSeating
}

// ValidSubtype reports whether the subtype may be sold under the category.
func ValidSubtype(c Category, s Subtype) bool {
	switch c {
	case CategoryEvent, CategoryGame:
		return s == SubtypeGeneralAdmission || s == SubtypeReservedSeating
	case CategoryTransport:
		return s == SubtypeOneWay || s == SubtypeReturn
	default:
		return false
	}
}

type OfferingStatus string

const (
	OfferingActive    OfferingStatus = "ACTIVE"
	OfferingCancelled OfferingStatus = "CANCELLED"
)

// Offering is a sellable ticket type with a finite capacity.
// StartsAt is the event start, or the departure instant for transport.
type Offering struct {
	ID                int64
	Title             string
	Category          Category
	Subtype           Subtype
	UnitPriceCents    int64
	TotalCapacity     int
	RemainingCapacity int
	StartsAt          time.Time
	EndsAt            *time.Time
	SalesStart        *time.Time
	SalesEnd          *time.Time
	PerAccountCap     int
	Status            OfferingStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (o *Offering) IsTransport() bool {
	return o.Category == CategoryTransport
}

func (o *Offering) IsCancelled() bool {
	return o.Status == OfferingCancelled
}

// CheckSalesWindow runs the non-authoritative pre-checks done before a
// reservation. The conditional decrement in the store stays the source of truth.
func (o *Offering) CheckSalesWindow(now time.Time) error {
	switch {
	case o.IsCancelled():
		return ErrOfferingCancelled
	case !now.Before(o.StartsAt):
		return ErrExpired
	case o.SalesStart != nil && now.Before(*o.SalesStart):
		return ErrSalesNotOpen
	case o.SalesEnd != nil && now.After(*o.SalesEnd):
		return ErrSalesClosed
	}

	return nil
}

// Validate checks an offering before it is created.
func (o *Offering) Validate() error {
	switch {
	case o.Title == "":
		return invalidOffering("title is required")
	case !ValidSubtype(o.Category, o.Subtype):
		return invalidOffering("subtype %s is not valid for category %s", o.Subtype, o.Category)
	case o.UnitPriceCents < 0:
		return invalidOffering("unit price must not be negative")
	case o.TotalCapacity <= 0:
		return invalidOffering("capacity must be positive")
	case o.StartsAt.IsZero():
		return invalidOffering("start time is required")
	case o.EndsAt != nil && !o.EndsAt.After(o.StartsAt):
		return invalidOffering("end time must be after start time")
	case o.SalesStart != nil && o.SalesEnd != nil && !o.SalesEnd.After(*o.SalesStart):
		return invalidOffering("sales end must be after sales start")
	case o.PerAccountCap < 0:
		return invalidOffering("per-account cap must not be negative")
	}

	return nil
}

// OfferingCounts is the availability view of one offering.
type OfferingCounts struct {
	Total     int
	Remaining int
	Active    int
	Used      int
	Cancelled int
}

type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "PENDING"
	PurchaseActive    PurchaseStatus = "ACTIVE"
	PurchaseUsed      PurchaseStatus = "USED"
	PurchaseCancelled PurchaseStatus = "CANCELLED"
)

// Purchase is one redeemable unit tied to one credential.
type Purchase struct {
	ID             uuid.UUID
	TransactionRef uuid.UUID
	OfferingID     int64
	AccountID      int64
	Credential     string
	Proof          string
	Seat           string // empty when the offering is not seated
	UnitPriceCents int64
	Status         PurchaseStatus
	UsedAt         *time.Time
	UsedBy         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (p *Purchase) IsRedeemable() bool {
	return p.Status == PurchaseActive
}

type TransactionType string

const (
	TxTicketPurchase          TransactionType = "TICKET_PURCHASE"
	TxTicketRefund            TransactionType = "TICKET_REFUND"
	TxEventCancellationRefund TransactionType = "EVENT_CANCELLATION_REFUND"
	TxManualRefund            TransactionType = "MANUAL_REFUND"
)

type TransactionStatus string

const (
	TxPending   TransactionStatus = "PENDING"
	TxSuccess   TransactionStatus = "SUCCESS"
	TxFailed    TransactionStatus = "FAILED"
	TxCancelled TransactionStatus = "CANCELLED"
)

// Transaction is the financial envelope binding one or more purchases.
// Refund records point at the purchase they reverse through ParentRef.
type Transaction struct {
	Ref         uuid.UUID
	AccountID   int64
	AmountCents int64
	Type        TransactionType
	Status      TransactionStatus
	ParentRef   *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type TransactionWithPurchases struct {
	Transaction Transaction
	Purchases   []Purchase
}

// Account is the ledger view of a customer.
type Account struct {
	ID           int64
	BalanceCents int64
	Blocked      bool
	CreatedAt    time.Time
}
