package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// TxRunner executes a function inside a database transaction. A payment's
// whole allocation sequence runs under one WithinTx call, so a failure in any
// step rolls back every write of that payment.
type TxRunner interface {
	// WithinTx runs fn in a read-write transaction. If the context already
	// carries a transaction, fn joins it instead of opening a nested one.
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error

	// WithinReadTx runs fn in a repeatable-read, read-only transaction so
	// report queries see one consistent snapshot.
	WithinReadTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

// DB wraps sqlx.DB with transaction propagation through context.
type DB struct {
	*sqlx.DB
}

func NewDB(db *sqlx.DB) *DB {
	return &DB{DB: db}
}

func (d *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := d.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	return tx.Commit()
}

func (d *DB) WithinReadTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := d.BeginTxx(ctx, &sql.TxOptions{
		Isolation: sql.LevelRepeatableRead,
		ReadOnly:  true,
	})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	return tx.Commit()
}

// ext returns the ambient transaction if one is in the context, otherwise the
// connection pool.
func (d *DB) ext(ctx context.Context) sqlx.ExtContext {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return d.DB
}

func txFromContext(ctx context.Context) *sqlx.Tx {
	tx, _ := ctx.Value(txKey{}).(*sqlx.Tx)
	return tx
}

// IsUniqueViolation reports whether err is a Postgres unique constraint
// violation (used to detect replayed payment references).
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// IsSerializationFailure reports whether err is a Postgres serialization or
// deadlock failure; such operations are safe to retry from scratch.
func IsSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}
