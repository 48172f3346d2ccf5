package tests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/escrow-server/pkg/escrow/data/account"
)

func RunTests(t *testing.T, s account.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s account.Store){
		testRoundTrip,
		testVersioning,
		testBatchIsAtomic,
		testGetMany,
	} {
		tf(t, s)
		teardown()
	}
}

func testRoundTrip(t *testing.T, s account.Store) {
	t.Run("testRoundTrip", func(t *testing.T) {
		ctx := context.Background()
		start := time.Now()

		_, err := s.Get(ctx, "address")
		assert.Equal(t, account.ErrAccountNotFound, err)

		expected := &account.Record{
			Address:    "address",
			Owner:      "owner",
			Lamports:   2039280,
			Data:       []byte{1, 2, 3},
			Executable: false,
		}
		cloned := expected.Clone()

		require.NoError(t, s.SaveBatch(ctx, expected))
		assert.True(t, expected.Id > 0)
		assert.EqualValues(t, 1, expected.Version)
		assert.True(t, expected.CreatedAt.After(start.Add(-time.Second)))

		actual, err := s.Get(ctx, "address")
		require.NoError(t, err)
		assertEquivalentRecords(t, &cloned, actual)
		assert.EqualValues(t, 1, actual.Version)
		assert.Equal(t, expected.Id, actual.Id)

		actual.Lamports = 1
		actual.Data = nil
		actual.Owner = "other"
		require.NoError(t, s.SaveBatch(ctx, actual))
		assert.EqualValues(t, 2, actual.Version)

		updated, err := s.Get(ctx, "address")
		require.NoError(t, err)
		assert.EqualValues(t, 1, updated.Lamports)
		assert.Empty(t, updated.Data)
		assert.Equal(t, "other", updated.Owner)
		assert.EqualValues(t, 2, updated.Version)
	})
}

func testVersioning(t *testing.T, s account.Store) {
	t.Run("testVersioning", func(t *testing.T) {
		ctx := context.Background()

		record := &account.Record{
			Address:  "address",
			Owner:    "owner",
			Lamports: 10,
		}
		require.NoError(t, s.SaveBatch(ctx, record))

		duplicate := &account.Record{
			Address:  "address",
			Owner:    "owner",
			Lamports: 20,
		}
		assert.Equal(t, account.ErrStaleVersion, s.SaveBatch(ctx, duplicate))
		assert.EqualValues(t, 0, duplicate.Version)

		stale := record.Clone()
		stale.Version = 0
		assert.Equal(t, account.ErrStaleVersion, s.SaveBatch(ctx, &stale))

		record.Lamports = 30
		require.NoError(t, s.SaveBatch(ctx, record))

		actual, err := s.Get(ctx, "address")
		require.NoError(t, err)
		assert.EqualValues(t, 30, actual.Lamports)
		assert.EqualValues(t, 2, actual.Version)
	})
}

func testBatchIsAtomic(t *testing.T, s account.Store) {
	t.Run("testBatchIsAtomic", func(t *testing.T) {
		ctx := context.Background()

		existing := &account.Record{
			Address:  "existing",
			Owner:    "owner",
			Lamports: 10,
		}
		require.NoError(t, s.SaveBatch(ctx, existing))

		fresh := &account.Record{
			Address:  "fresh",
			Owner:    "owner",
			Lamports: 10,
		}
		stale := &account.Record{
			Address:  "existing",
			Owner:    "owner",
			Lamports: 99,
		}
		assert.Equal(t, account.ErrStaleVersion, s.SaveBatch(ctx, fresh, stale))

		_, err := s.Get(ctx, "fresh")
		assert.Equal(t, account.ErrAccountNotFound, err)

		actual, err := s.Get(ctx, "existing")
		require.NoError(t, err)
		assert.EqualValues(t, 10, actual.Lamports)
		assert.EqualValues(t, 1, actual.Version)
	})
}

func testGetMany(t *testing.T, s account.Store) {
	t.Run("testGetMany", func(t *testing.T) {
		ctx := context.Background()

		records, err := s.GetMany(ctx, "a", "b")
		require.NoError(t, err)
		assert.Empty(t, records)

		require.NoError(t, s.SaveBatch(
			ctx,
			&account.Record{Address: "a", Owner: "owner", Lamports: 1},
			&account.Record{Address: "b", Owner: "owner", Lamports: 2},
			&account.Record{Address: "c", Owner: "owner", Lamports: 3},
		))

		records, err = s.GetMany(ctx, "a", "c", "missing")
		require.NoError(t, err)
		require.Len(t, records, 2)

		byAddress := make(map[string]*account.Record)
		for _, record := range records {
			byAddress[record.Address] = record
		}
		assert.EqualValues(t, 1, byAddress["a"].Lamports)
		assert.EqualValues(t, 3, byAddress["c"].Lamports)
	})
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *account.Record) {
	assert.Equal(t, obj1.Address, obj2.Address)
	assert.Equal(t, obj1.Owner, obj2.Owner)
	assert.Equal(t, obj1.Lamports, obj2.Lamports)
	assert.Equal(t, obj1.Data, obj2.Data)
	assert.Equal(t, obj1.Executable, obj2.Executable)
}
