package offer

import (
	"context"
	"errors"
	"time"

	"github.com/code-payments/escrow-server/pkg/database/query"
)

var (
	ErrOfferNotFound = errors.New("offer not found")
	ErrOfferExists   = errors.New("offer already exists")
)

// Record indexes an escrow Offer account that was created on the ledger.
type Record struct {
	Id uint64

	Address string
	Vault   string

	Maker   string
	OfferId uint64

	TokenMintA         string
	TokenMintB         string
	TokenBWantedAmount uint64
	Bump               uint8

	Signature string

	CreatedAt time.Time
}

type Store interface {
	// Put saves a new offer. ErrOfferExists is returned when an offer at the
	// same address, or with the same maker and offer id, already exists.
	Put(ctx context.Context, record *Record) error

	// GetByAddress gets an offer by its ledger address
	GetByAddress(ctx context.Context, address string) (*Record, error)

	// GetByMakerAndId gets an offer by its maker and maker-supplied id
	GetByMakerAndId(ctx context.Context, maker string, offerId uint64) (*Record, error)

	// GetAllByMaker gets all offers created by a maker
	GetAllByMaker(ctx context.Context, maker string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*Record, error)
}

func (r *Record) Validate() error {
	if len(r.Address) == 0 {
		return errors.New("address is required")
	}

	if len(r.Vault) == 0 {
		return errors.New("vault is required")
	}

	if len(r.Maker) == 0 {
		return errors.New("maker is required")
	}

	if len(r.TokenMintA) == 0 {
		return errors.New("token mint a is required")
	}

	if len(r.TokenMintB) == 0 {
		return errors.New("token mint b is required")
	}

	if len(r.Signature) == 0 {
		return errors.New("signature is required")
	}

	return nil
}

func (r *Record) Clone() Record {
	return Record{
		Id:                 r.Id,
		Address:            r.Address,
		Vault:              r.Vault,
		Maker:              r.Maker,
		OfferId:            r.OfferId,
		TokenMintA:         r.TokenMintA,
		TokenMintB:         r.TokenMintB,
		TokenBWantedAmount: r.TokenBWantedAmount,
		Bump:               r.Bump,
		Signature:          r.Signature,
		CreatedAt:          r.CreatedAt,
	}
}

func (r *Record) CopyTo(dst *Record) {
	dst.Id = r.Id
	dst.Address = r.Address
	dst.Vault = r.Vault
	dst.Maker = r.Maker
	dst.OfferId = r.OfferId
	dst.TokenMintA = r.TokenMintA
	dst.TokenMintB = r.TokenMintB
	dst.TokenBWantedAmount = r.TokenBWantedAmount
	dst.Bump = r.Bump
	dst.Signature = r.Signature
	dst.CreatedAt = r.CreatedAt
}
