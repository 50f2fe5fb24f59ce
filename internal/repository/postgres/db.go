package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/tix-engine/internal/repository"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
	}
}

// RunTx runs fn inside a transaction. Without options the transaction is
// SERIALIZABLE; callers relying on guarded single-statement updates ask for
// READ COMMITTED so that blocked writers re-check the guard instead of
// failing with a serialization error.
func (s *Store) RunTx(
	ctx context.Context,
	opts *repository.TxOptions,
	fn func(ctx context.Context, tx repository.Repos) error,
) error {
	txOpts := pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	}

	if opts != nil {
		txOpts.IsoLevel = isoLevel(opts.IsoLevel)
		if opts.ReadOnly {
			txOpts.AccessMode = pgx.ReadOnly
		}
	}

	tx, err := s.pool.BeginTx(ctx, txOpts)
	if err != nil {
		return translateDBErr(err)
	}

	defer tx.Rollback(ctx)

	if err := fn(ctx, s.bind(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", translateDBErr(err))
	}

	return nil
}

func (s *Store) Repos() repository.Repos { return s.bind(nil) }

func (s *Store) Offerings() *OfferingRepo       { return &OfferingRepo{pool: s.pool} }
func (s *Store) Purchases() *PurchaseRepo       { return &PurchaseRepo{pool: s.pool} }
func (s *Store) Transactions() *TransactionRepo { return &TransactionRepo{pool: s.pool} }
func (s *Store) Ledger() *LedgerRepo            { return &LedgerRepo{pool: s.pool} }

func (s *Store) bind(db DB) *repos {
	return &repos{
		offerings:    s.Offerings().With(db),
		purchases:    s.Purchases().With(db),
		transactions: s.Transactions().With(db),
		ledger:       s.Ledger().With(db),
	}
}

type repos struct {
	offerings    *OfferingRepo
	purchases    *PurchaseRepo
	transactions *TransactionRepo
	ledger       *LedgerRepo
}

func (r *repos) Offerings() repository.Offerings       { return r.offerings }
func (r *repos) Purchases() repository.Purchases       { return r.purchases }
func (r *repos) Transactions() repository.Transactions { return r.transactions }
func (r *repos) Ledger() repository.Ledger             { return r.ledger }

func isoLevel(l repository.IsoLevel) pgx.TxIsoLevel {
	switch l {
	case repository.IsoReadCommitted:
		return pgx.ReadCommitted
	case repository.IsoRepeatableRead:
		return pgx.RepeatableRead
	default:
		return pgx.Serializable
	}
}
