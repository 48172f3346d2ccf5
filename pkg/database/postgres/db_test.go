package pg

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxFromContext(t *testing.T) {
	_, err := txFromContext(context.Background(), sql.LevelReadCommitted)
	assert.ErrorIs(t, err, ErrNotInTx)
	assert.False(t, InTx(context.Background()))

	tx := &sqlx.Tx{}
	ctx := context.WithValue(context.Background(), txContextKey{}, &txContext{tx: tx, isolation: sql.LevelRepeatableRead})
	assert.True(t, InTx(ctx))

	actual, err := txFromContext(ctx, sql.LevelReadCommitted)
	require.NoError(t, err)
	assert.Same(t, tx, actual)

	actual, err = txFromContext(ctx, sql.LevelRepeatableRead)
	require.NoError(t, err)
	assert.Same(t, tx, actual)

	_, err = txFromContext(ctx, sql.LevelSerializable)
	assert.ErrorIs(t, err, errInsufficientIsolation)
}

func TestExecuteTxWithinCtx_Nested(t *testing.T) {
	ctx := context.WithValue(context.Background(), txContextKey{}, &txContext{tx: &sqlx.Tx{}, isolation: sql.LevelSerializable})

	var called bool
	err := ExecuteTxWithinCtx(ctx, nil, sql.LevelSerializable, func(context.Context) error {
		called = true
		return nil
	})
	assert.Equal(t, ErrAlreadyInTx, err)
	assert.False(t, called)
}

func TestNormalizeIsolation(t *testing.T) {
	assert.Equal(t, sql.LevelReadCommitted, normalizeIsolation(sql.LevelDefault))
	assert.Equal(t, sql.LevelSerializable, normalizeIsolation(sql.LevelSerializable))
}
