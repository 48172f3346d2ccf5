package escrow

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/code-payments/escrow-server/pkg/solana"
	"github.com/code-payments/escrow-server/pkg/solana/token"
)

var (
	OfferPrefix = []byte("offer")
)

type GetOfferAddressArgs struct {
	Maker ed25519.PublicKey
	Id    uint64
}

func GetOfferAddress(args *GetOfferAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		OfferSeeds(args.Maker, args.Id)...,
	)
}

// OfferSeeds returns the unbumped seeds of an offer address.
func OfferSeeds(maker ed25519.PublicKey, id uint64) [][]byte {
	idBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(idBytes, id)
	return [][]byte{OfferPrefix, maker, idBytes}
}

type GetVaultAddressArgs struct {
	Offer ed25519.PublicKey
	MintA ed25519.PublicKey
}

// GetVaultAddress returns the associated token account of the offer for mint A.
func GetVaultAddress(args *GetVaultAddressArgs) (ed25519.PublicKey, error) {
	return token.GetAssociatedAccount(args.Offer, args.MintA)
}
