package pg

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

var (
	ErrAlreadyInTx = errors.New("already executing in existing db tx")
	ErrNotInTx     = errors.New("not executing in existing db tx")

	errInsufficientIsolation = errors.New("existing db tx has a weaker isolation level than required")
)

type txContextKey struct{}

type txContext struct {
	tx        *sqlx.Tx
	isolation sql.IsolationLevel
}

// InTx reports whether ctx carries a transaction started by ExecuteTxWithinCtx.
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(txContextKey{}).(*txContext)
	return ok
}

// ExecuteTxWithinCtx runs fn inside a new transaction carried by the context
// passed to fn. Stores that call ExecuteInTx with that context join it. The
// transaction commits if fn succeeds and rolls back otherwise.
func ExecuteTxWithinCtx(ctx context.Context, db *sqlx.DB, isolation sql.IsolationLevel, fn func(context.Context) error) error {
	if InTx(ctx) {
		return ErrAlreadyInTx
	}

	isolation = normalizeIsolation(isolation)
	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: isolation})
	if err != nil {
		return errors.Wrap(err, "error starting db tx")
	}

	ctx = context.WithValue(ctx, txContextKey{}, &txContext{tx: tx, isolation: isolation})
	return finishTx(tx, fn(ctx))
}

// ExecuteInTx runs fn within the transaction carried by ctx, or within a new
// one when there is none. Only a transaction started here is committed or
// rolled back here.
func ExecuteInTx(ctx context.Context, db *sqlx.DB, isolation sql.IsolationLevel, fn func(tx *sqlx.Tx) error) error {
	isolation = normalizeIsolation(isolation)

	tx, err := txFromContext(ctx, isolation)
	switch {
	case err == nil:
		return fn(tx)
	case !errors.Is(err, ErrNotInTx):
		return err
	}

	tx, err = db.BeginTxx(ctx, &sql.TxOptions{Isolation: isolation})
	if err != nil {
		return errors.Wrap(err, "error starting db tx")
	}
	return finishTx(tx, fn(tx))
}

func txFromContext(ctx context.Context, required sql.IsolationLevel) (*sqlx.Tx, error) {
	txCtx, ok := ctx.Value(txContextKey{}).(*txContext)
	if !ok {
		return nil, ErrNotInTx
	}
	if txCtx.isolation < required {
		return nil, errInsufficientIsolation
	}
	return txCtx.tx, nil
}

// finishTx always ends tx so the connection returns to the pool.
func finishTx(tx *sqlx.Tx, err error) error {
	if err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return errors.Wrapf(rollbackErr, "error rolling back db tx after: %v", err)
		}
		return err
	}
	return tx.Commit()
}

// Postgres runs at read committed unless told otherwise.
func normalizeIsolation(isolation sql.IsolationLevel) sql.IsolationLevel {
	if isolation == sql.LevelDefault {
		return sql.LevelReadCommitted
	}
	return isolation
}
