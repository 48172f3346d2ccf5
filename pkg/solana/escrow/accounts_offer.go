package escrow

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	OfferAccountSize = (8 + // discriminator
		8 + // id
		32 + // maker
		32 + // token_mint_a
		32 + // token_mint_b
		8 + // token_b_wanted_amount
		1) // bump
)

// sha256("account:Offer")[:8]
var OfferAccountDiscriminator = []byte{215, 88, 60, 71, 170, 162, 73, 229}

type OfferAccount struct {
	Id                 uint64
	Maker              ed25519.PublicKey
	TokenMintA         ed25519.PublicKey
	TokenMintB         ed25519.PublicKey
	TokenBWantedAmount uint64
	Bump               uint8
}

func (obj *OfferAccount) Marshal() []byte {
	data := make([]byte, OfferAccountSize)

	var offset int
	putDiscriminator(data, OfferAccountDiscriminator, &offset)
	putUint64(data, obj.Id, &offset)
	putKey(data, obj.Maker, &offset)
	putKey(data, obj.TokenMintA, &offset)
	putKey(data, obj.TokenMintB, &offset)
	putUint64(data, obj.TokenBWantedAmount, &offset)
	putUint8(data, obj.Bump, &offset)

	return data
}

func (obj *OfferAccount) Unmarshal(data []byte) error {
	if len(data) < OfferAccountSize {
		return ErrInvalidAccountData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, OfferAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	getUint64(data, &obj.Id, &offset)
	getKey(data, &obj.Maker, &offset)
	getKey(data, &obj.TokenMintA, &offset)
	getKey(data, &obj.TokenMintB, &offset)
	getUint64(data, &obj.TokenBWantedAmount, &offset)
	getUint8(data, &obj.Bump, &offset)

	return nil
}

// IsOfferAccount reports whether the data carries the offer discriminator.
func IsOfferAccount(data []byte) bool {
	return len(data) >= len(OfferAccountDiscriminator) && bytes.Equal(data[:8], OfferAccountDiscriminator)
}

func (obj *OfferAccount) String() string {
	return fmt.Sprintf(
		"Offer{id=%d,maker=%s,token_mint_a=%s,token_mint_b=%s,token_b_wanted_amount=%d,bump=%d}",
		obj.Id,
		base58.Encode(obj.Maker),
		base58.Encode(obj.TokenMintA),
		base58.Encode(obj.TokenMintB),
		obj.TokenBWantedAmount,
		obj.Bump,
	)
}
