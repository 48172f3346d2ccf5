package indexer

import (
	"context"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/escrow-server/pkg/escrow/data"
	"github.com/code-payments/escrow-server/pkg/escrow/data/offer"
	"github.com/code-payments/escrow-server/pkg/ledger"
	"github.com/code-payments/escrow-server/pkg/solana"
	"github.com/code-payments/escrow-server/pkg/solana/escrow"
)

// OfferHandler indexes escrow Offer accounts as they're created on the ledger.
// It runs within the ledger commit, so an offer is indexed if and only if the
// transaction that created it is persisted.
type OfferHandler struct {
	log  *logrus.Entry
	data data.Provider
}

func NewOfferHandler(data data.Provider) *OfferHandler {
	return &OfferHandler{
		log:  logrus.StandardLogger().WithField("type", "escrow/indexer"),
		data: data,
	}
}

// OnCommit implements ledger.CommitHook.OnCommit
func (h *OfferHandler) OnCommit(ctx context.Context, sig solana.Signature, changes []*ledger.AccountChange) error {
	for _, change := range changes {
		// Offers are never modified after creation, so only new accounts matter
		if change.Pre != nil && !change.Pre.IsEmpty() {
			continue
		}

		if !change.Post.IsOwnedBy(escrow.PROGRAM_ID) || !escrow.IsOfferAccount(change.Post.Data) {
			continue
		}

		if err := h.indexOffer(ctx, sig, change); err != nil {
			return err
		}
	}
	return nil
}

func (h *OfferHandler) indexOffer(ctx context.Context, sig solana.Signature, change *ledger.AccountChange) error {
	address := base58.Encode(change.Key)

	log := h.log.WithFields(logrus.Fields{
		"method":    "indexOffer",
		"offer":     address,
		"signature": sig.String(),
	})

	var unmarshalled escrow.OfferAccount
	if err := unmarshalled.Unmarshal(change.Post.Data); err != nil {
		return errors.Wrap(err, "invalid offer account data")
	}

	vault, err := escrow.GetVaultAddress(&escrow.GetVaultAddressArgs{
		Offer: change.Key,
		MintA: unmarshalled.TokenMintA,
	})
	if err != nil {
		return errors.Wrap(err, "error deriving vault address")
	}

	record := &offer.Record{
		Address:            address,
		Vault:              base58.Encode(vault),
		Maker:              base58.Encode(unmarshalled.Maker),
		OfferId:            unmarshalled.Id,
		TokenMintA:         base58.Encode(unmarshalled.TokenMintA),
		TokenMintB:         base58.Encode(unmarshalled.TokenMintB),
		TokenBWantedAmount: unmarshalled.TokenBWantedAmount,
		Bump:               unmarshalled.Bump,
		Signature:          sig.String(),
	}

	// Commits are retried, so the offer may already be indexed
	err = h.data.CreateOffer(ctx, record)
	if err == offer.ErrOfferExists {
		log.Debug("offer already indexed")
		return nil
	} else if err != nil {
		log.WithError(err).Warn("failure indexing offer")
		return errors.Wrap(err, "error saving offer")
	}

	log.Debug("offer indexed")
	return nil
}
