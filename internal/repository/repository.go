package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-engine/internal/domain"
)

type IsoLevel int

const (
	IsoDefault IsoLevel = iota
	IsoReadCommitted
	IsoRepeatableRead
	IsoSerializable
)

type TxOptions struct {
	IsoLevel IsoLevel
	ReadOnly bool
}

// Offerings is the inventory store. Every change to remaining capacity goes
// through Reserve, Release, Restock or MarkCancelled, each a single guarded
// statement.
type Offerings interface {
	Create(ctx context.Context, o domain.Offering) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Offering, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.Offering, error)
	// Reserve decrements remaining capacity by qty if at least qty is left
	// and the offering is active. It returns the remaining capacity, or
	// ErrConditionFailed when the guard did not hold.
	Reserve(ctx context.Context, id int64, qty int) (int, error)
	// Release increments remaining capacity by qty unless that would exceed
	// total capacity.
	Release(ctx context.Context, id int64, qty int) (int, error)
	Restock(ctx context.Context, id int64, qty int) (*domain.Offering, error)
	// MarkCancelled sets the status to CANCELLED and zeroes remaining capacity.
	MarkCancelled(ctx context.Context, id int64) error
}

type Purchases interface {
	// CreateBatch inserts purchases; ErrConflict on a duplicate credential or
	// a seat already held under the same offering.
	CreateBatch(ctx context.Context, ps []domain.Purchase) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Purchase, error)
	GetByCredentialForUpdate(ctx context.Context, credential string) (*domain.Purchase, error)
	ListByTransaction(ctx context.Context, ref uuid.UUID) ([]domain.Purchase, error)
	ListByTransactionForUpdate(ctx context.Context, ref uuid.UUID) ([]domain.Purchase, error)
	ListByOffering(ctx context.Context, offeringID int64, status domain.PurchaseStatus) ([]domain.Purchase, error)
	ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]domain.Purchase, error)
	// CountHeld counts ACTIVE and USED purchases of the account for the offering.
	CountHeld(ctx context.Context, accountID, offeringID int64) (int, error)
	// SeatHeld reports whether a live purchase of the offering holds the seat.
	SeatHeld(ctx context.Context, offeringID int64, seat string) (bool, error)
	// Transition moves every purchase in ids from one status to another.
	// ErrConditionFailed when any of them was not in the from status.
	Transition(ctx context.Context, ids []uuid.UUID, from, to domain.PurchaseStatus) error
	// MarkUsed moves an ACTIVE purchase to USED and stamps the redemption.
	MarkUsed(ctx context.Context, id uuid.UUID, at time.Time, by string) error
}

type Transactions interface {
	Create(ctx context.Context, t domain.Transaction) error
	Get(ctx context.Context, ref uuid.UUID) (*domain.Transaction, error)
	GetForUpdate(ctx context.Context, ref uuid.UUID) (*domain.Transaction, error)
	SetStatus(ctx context.Context, ref uuid.UUID, from, to domain.TransactionStatus) error
	// CancelIfSettled moves a SUCCESS transaction to CANCELLED once none of
	// its purchases is PENDING, ACTIVE or USED. It reports whether it did.
	CancelIfSettled(ctx context.Context, ref uuid.UUID) (bool, error)
}

// Ledger is the account-balance store. Debit and Credit run on the caller's
// transaction handle so a rollback undoes them.
type Ledger interface {
	CreateAccount(ctx context.Context, balanceCents int64, blocked bool) (int64, error)
	GetAccount(ctx context.Context, id int64) (*domain.Account, error)
	GetAccountForUpdate(ctx context.Context, id int64) (*domain.Account, error)
	SetBlocked(ctx context.Context, id int64, blocked bool) error
	// Debit subtracts amount if the balance covers it; ErrConditionFailed otherwise.
	Debit(ctx context.Context, id int64, amountCents int64) error
	Credit(ctx context.Context, id int64, amountCents int64) error
}

// Repos is a set of repositories sharing one database handle: either the
// pool or an open transaction.
type Repos interface {
	Offerings() Offerings
	Purchases() Purchases
	Transactions() Transactions
	Ledger() Ledger
}

type Store interface {
	// Repos returns repositories bound to the pool, outside any transaction.
	Repos() Repos
	// RunTx runs fn inside one transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	RunTx(ctx context.Context, opts *TxOptions, fn func(ctx context.Context, tx Repos) error) error
}

// Queries are read models that span several tables.
type Queries interface {
	ListOfferings(ctx context.Context, limit, offset int) ([]domain.Offering, error)
	OfferingCounts(ctx context.Context, offeringID int64) (*domain.OfferingCounts, error)
	GetTransactionWithPurchases(ctx context.Context, ref uuid.UUID) (*domain.TransactionWithPurchases, error)
}
