package database

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/01moynul/pawshop-golang/internal/apperr"
)

// With runs fn on a pooled handle.
func (p *Pool) With(ctx context.Context, fn func(h *Handle) error) error {
	h, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(h)

	return p.Classify(fn(h))
}

// WithTx runs fn inside a transaction on a pooled handle. The transaction is
// committed when fn returns nil and rolled back otherwise.
func (p *Pool) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return p.With(ctx, func(h *Handle) error {
		tx, err := h.BeginTxx(ctx, nil)
		if err != nil {
			return errors.Wrap(err, "begin transaction")
		}
		defer tx.Rollback()

		if err := fn(tx); err != nil {
			return err
		}
		return errors.Wrap(tx.Commit(), "commit transaction")
	})
}

// Classify turns lock timeouts and lost connections into retryable errors and
// leaves everything else untouched.
func (p *Pool) Classify(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	if p.dialect.IsTransient(errors.Cause(err)) || p.dialect.IsTransient(err) {
		return apperr.Retryable(err, "database is busy, please retry")
	}
	return err
}
