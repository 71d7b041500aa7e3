// Package store is the SQL repository for products, orders and the shop's
// supporting tables. Every method borrows a handle from the connection pool
// for the duration of the call.
package store

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/01moynul/pawshop-golang/internal/apperr"
	"github.com/01moynul/pawshop-golang/internal/database"
)

// Querier is satisfied by pooled handles and transactions.
type Querier interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
}

type Store struct {
	pool *database.Pool
}

func New(pool *database.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Pool() *database.Pool { return s.pool }

// Tx is a unit of work over several store calls.
type Tx struct {
	q       Querier
	dialect database.Dialect
}

// InTx runs fn inside one transaction. fn's error rolls everything back.
func (s *Store) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	return s.pool.WithTx(ctx, func(tx *sqlx.Tx) error {
		return fn(&Tx{q: tx, dialect: s.pool.Dialect()})
	})
}

func (s *Store) with(ctx context.Context, fn func(q Querier) error) error {
	return s.pool.With(ctx, func(h *database.Handle) error {
		return fn(h)
	})
}

func (s *Store) dialect() database.Dialect { return s.pool.Dialect() }

// notFound converts sql.ErrNoRows into a NotFound error and wraps the rest.
func notFound(err error, what string, key interface{}) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return apperr.NotFoundf("%s %v not found", what, key)
	}
	return errors.Wrapf(err, "get %s %v", what, key)
}

func affected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, "rows affected")
}
