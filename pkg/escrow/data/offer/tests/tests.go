package tests

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/escrow-server/pkg/database/query"
	"github.com/code-payments/escrow-server/pkg/escrow/data/offer"
)

func RunTests(t *testing.T, s offer.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s offer.Store){
		testRoundTrip,
		testInsertIfAbsent,
		testGetAllByMaker,
	} {
		tf(t, s)
		teardown()
	}
}

func testRoundTrip(t *testing.T, s offer.Store) {
	t.Run("testRoundTrip", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetByAddress(ctx, "offer")
		assert.Equal(t, offer.ErrOfferNotFound, err)

		_, err = s.GetByMakerAndId(ctx, "maker", 1)
		assert.Equal(t, offer.ErrOfferNotFound, err)

		expected := newRecord("maker", 1)
		cloned := expected.Clone()

		require.NoError(t, s.Put(ctx, expected))
		assert.True(t, expected.Id > 0)
		assert.False(t, expected.CreatedAt.IsZero())

		actual, err := s.GetByAddress(ctx, expected.Address)
		require.NoError(t, err)
		assertEquivalentRecords(t, &cloned, actual)

		actual, err = s.GetByMakerAndId(ctx, "maker", 1)
		require.NoError(t, err)
		assertEquivalentRecords(t, &cloned, actual)

		_, err = s.GetByMakerAndId(ctx, "maker", 2)
		assert.Equal(t, offer.ErrOfferNotFound, err)
	})
}

func testInsertIfAbsent(t *testing.T, s offer.Store) {
	t.Run("testInsertIfAbsent", func(t *testing.T) {
		ctx := context.Background()

		original := newRecord("maker", 1)
		require.NoError(t, s.Put(ctx, original))

		sameAddress := newRecord("other", 7)
		sameAddress.Address = original.Address
		assert.Equal(t, offer.ErrOfferExists, s.Put(ctx, sameAddress))

		sameMakerAndId := newRecord("maker", 1)
		sameMakerAndId.Address = "different"
		sameMakerAndId.TokenBWantedAmount = 999
		assert.Equal(t, offer.ErrOfferExists, s.Put(ctx, sameMakerAndId))

		actual, err := s.GetByMakerAndId(ctx, "maker", 1)
		require.NoError(t, err)
		assert.Equal(t, original.Address, actual.Address)
		assert.EqualValues(t, 50, actual.TokenBWantedAmount)

		require.NoError(t, s.Put(ctx, newRecord("maker", 2)))
	})
}

func testGetAllByMaker(t *testing.T, s offer.Store) {
	t.Run("testGetAllByMaker", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetAllByMaker(ctx, "maker", query.EmptyCursor, 10, query.Ascending)
		assert.Equal(t, offer.ErrOfferNotFound, err)

		var expected []*offer.Record
		for i := 0; i < 5; i++ {
			record := newRecord("maker", uint64(i))
			require.NoError(t, s.Put(ctx, record))
			expected = append(expected, record)

			require.NoError(t, s.Put(ctx, newRecord("other", uint64(i))))
		}

		actual, err := s.GetAllByMaker(ctx, "maker", query.EmptyCursor, 10, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 5)
		for i := range actual {
			assertEquivalentRecords(t, expected[i], actual[i])
		}

		actual, err = s.GetAllByMaker(ctx, "maker", query.EmptyCursor, 2, query.Descending)
		require.NoError(t, err)
		require.Len(t, actual, 2)
		assertEquivalentRecords(t, expected[4], actual[0])
		assertEquivalentRecords(t, expected[3], actual[1])

		actual, err = s.GetAllByMaker(ctx, "maker", query.ToCursor(expected[1].Id), 10, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 3)
		assertEquivalentRecords(t, expected[2], actual[0])

		actual, err = s.GetAllByMaker(ctx, "maker", query.ToCursor(expected[1].Id), 10, query.Descending)
		require.NoError(t, err)
		require.Len(t, actual, 1)
		assertEquivalentRecords(t, expected[0], actual[0])

		_, err = s.GetAllByMaker(ctx, "maker", query.ToCursor(expected[4].Id), 10, query.Ascending)
		assert.Equal(t, offer.ErrOfferNotFound, err)
	})
}

func newRecord(maker string, offerId uint64) *offer.Record {
	return &offer.Record{
		Address:            fmt.Sprintf("offer-%s-%d", maker, offerId),
		Vault:              fmt.Sprintf("vault-%s-%d", maker, offerId),
		Maker:              maker,
		OfferId:            offerId,
		TokenMintA:         "mint-a",
		TokenMintB:         "mint-b",
		TokenBWantedAmount: 50,
		Bump:               254,
		Signature:          fmt.Sprintf("signature-%s-%d", maker, offerId),
	}
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *offer.Record) {
	assert.Equal(t, obj1.Address, obj2.Address)
	assert.Equal(t, obj1.Vault, obj2.Vault)
	assert.Equal(t, obj1.Maker, obj2.Maker)
	assert.Equal(t, obj1.OfferId, obj2.OfferId)
	assert.Equal(t, obj1.TokenMintA, obj2.TokenMintA)
	assert.Equal(t, obj1.TokenMintB, obj2.TokenMintB)
	assert.Equal(t, obj1.TokenBWantedAmount, obj2.TokenBWantedAmount)
	assert.Equal(t, obj1.Bump, obj2.Bump)
	assert.Equal(t, obj1.Signature, obj2.Signature)
}
