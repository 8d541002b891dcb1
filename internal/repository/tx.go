package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rookgm/brewtrack/internal/repository/postgres"
)

const pgErrUniqueViolationCode = "23505"

type txKey struct{}

// Transactor runs functions inside one database transaction.
// The transaction travels in the context, repositories pick it up from there.
type Transactor struct {
	db *postgres.DB
}

// NewTransactor creates new Transactor instance
func NewTransactor(db *postgres.DB) *Transactor {
	return &Transactor{db: db}
}

// WithinTx runs fn in a transaction. Nested calls join the outer transaction.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Atomic reports that all writes inside WithinTx commit or roll back together
func (t *Transactor) Atomic() bool {
	return true
}

// querier returns transaction from context or pool
func querier(ctx context.Context, db *postgres.DB) (postgres.Querier, bool) {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx, true
	}
	return db, false
}

// Store groups postgres repositories behind the service interfaces
type Store struct {
	*OrderRepository
	*EventRepository
	*Transactor
}

// NewStore creates new Store instance
func NewStore(db *postgres.DB) *Store {
	tx := NewTransactor(db)
	return &Store{
		OrderRepository: NewOrderRepository(db, tx),
		EventRepository: NewEventRepository(db),
		Transactor:      tx,
	}
}
