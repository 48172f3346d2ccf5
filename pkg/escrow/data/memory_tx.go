package data

import (
	"context"

	"github.com/code-payments/escrow-server/pkg/escrow/data/account"
	"github.com/code-payments/escrow-server/pkg/escrow/data/offer"
)

type memoryTxKey struct{}

// memoryTx buffers the writes made within a memory provider transaction. They
// are checked against the stores as they're made, and applied only when the
// transaction's function succeeds.
//
// Reads within the transaction don't observe its buffered writes.
type memoryTx struct {
	accounts [][]*account.Record
	versions map[string]uint64
	offers   []*offer.Record
}

func memoryTxFromContext(ctx context.Context) (*memoryTx, bool) {
	tx, ok := ctx.Value(memoryTxKey{}).(*memoryTx)
	return tx, ok
}

// executeInMemoryTx runs fn within a memory transaction. The provider's write
// lock is held throughout, so nothing can invalidate the checks made on
// buffered writes before they're applied.
func (dp *DatabaseProvider) executeInMemoryTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := memoryTxFromContext(ctx); ok {
		return fn(ctx)
	}

	dp.mu.Lock()
	defer dp.mu.Unlock()

	tx := &memoryTx{
		versions: make(map[string]uint64),
	}
	if err := fn(context.WithValue(ctx, memoryTxKey{}, tx)); err != nil {
		return err
	}

	for _, batch := range tx.accounts {
		if err := dp.accounts.SaveBatch(ctx, batch...); err != nil {
			return err
		}
	}
	for _, record := range tx.offers {
		if err := dp.offers.Put(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

func (tx *memoryTx) saveAccounts(ctx context.Context, store account.Store, records []*account.Record) error {
	addresses := make([]string, len(records))
	for i, record := range records {
		if err := record.Validate(); err != nil {
			return err
		}
		addresses[i] = record.Address
	}

	stored, err := store.GetMany(ctx, addresses...)
	if err != nil {
		return err
	}
	current := make(map[string]uint64, len(stored))
	for _, record := range stored {
		current[record.Address] = record.Version
	}
	for address, version := range tx.versions {
		current[address] = version
	}

	seen := make(map[string]struct{}, len(records))
	for _, record := range records {
		if _, ok := seen[record.Address]; ok {
			return account.ErrStaleVersion
		}
		seen[record.Address] = struct{}{}

		if current[record.Address] != record.Version {
			return account.ErrStaleVersion
		}
	}

	batch := make([]*account.Record, len(records))
	for i, record := range records {
		cloned := record.Clone()
		batch[i] = &cloned

		record.Version++
		tx.versions[record.Address] = record.Version
	}
	tx.accounts = append(tx.accounts, batch)
	return nil
}

func (tx *memoryTx) createOffer(ctx context.Context, store offer.Store, record *offer.Record) error {
	if err := record.Validate(); err != nil {
		return err
	}

	for _, pending := range tx.offers {
		if pending.Address == record.Address || (pending.Maker == record.Maker && pending.OfferId == record.OfferId) {
			return offer.ErrOfferExists
		}
	}

	if _, err := store.GetByAddress(ctx, record.Address); err == nil {
		return offer.ErrOfferExists
	} else if err != offer.ErrOfferNotFound {
		return err
	}
	if _, err := store.GetByMakerAndId(ctx, record.Maker, record.OfferId); err == nil {
		return offer.ErrOfferExists
	} else if err != offer.ErrOfferNotFound {
		return err
	}

	cloned := record.Clone()
	tx.offers = append(tx.offers, &cloned)
	return nil
}
