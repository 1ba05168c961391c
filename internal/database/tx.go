package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Querier is the subset of *sql.DB / *sql.Tx the repositories need.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// WithTx runs fn inside a transaction. The transaction travels through the
// context, so repository calls made inside fn automatically join it. A nil
// error from fn commits; anything else rolls back.
func (c *Context) WithTx(ctx context.Context, fn func(context.Context) error) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	// Rollback after a successful commit is a no-op returning sql.ErrTxDone.
	defer func() { _ = tx.Rollback() }()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// querier returns the transaction from the context when present, the bare
// connection otherwise.
func (c *Context) querier(ctx context.Context) Querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok && tx != nil {
		return tx
	}
	return c.DB
}
