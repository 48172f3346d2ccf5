package escrow

import (
	"crypto/ed25519"

	"github.com/code-payments/escrow-server/pkg/solana"
	"github.com/code-payments/escrow-server/pkg/solana/token"
)

const (
	MakeOfferInstructionArgsSize = (8 + // id
		8 + // token_a_offered_amount
		8) // token_b_wanted_amount
)

type MakeOfferInstructionArgs struct {
	Id                  uint64
	TokenAOfferedAmount uint64
	TokenBWantedAmount  uint64
}

type MakeOfferInstructionAccounts struct {
	Maker              ed25519.PublicKey
	TokenMintA         ed25519.PublicKey
	TokenMintB         ed25519.PublicKey
	MakerTokenAccountA ed25519.PublicKey
	Offer              ed25519.PublicKey
	Vault              ed25519.PublicKey
}

func NewMakeOfferInstruction(
	accounts *MakeOfferInstructionAccounts,
	args *MakeOfferInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte, 8+MakeOfferInstructionArgsSize)

	putDiscriminator(data, MakeOfferInstructionDiscriminator, &offset)
	putUint64(data, args.Id, &offset)
	putUint64(data, args.TokenAOfferedAmount, &offset)
	putUint64(data, args.TokenBWantedAmount, &offset)

	return solana.Instruction{
		Program: PROGRAM_ADDRESS,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Maker,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.TokenMintA,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.TokenMintB,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.MakerTokenAccountA,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Offer,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Vault,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  ASSOCIATED_TOKEN_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  SPL_TOKEN_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  SYSTEM_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}
}

// MakeOfferInstructionAccountsFor derives every address make_offer needs from
// the maker, mints and offer id.
func MakeOfferInstructionAccountsFor(maker, mintA, mintB ed25519.PublicKey, id uint64) (*MakeOfferInstructionAccounts, error) {
	makerTokenAccountA, err := token.GetAssociatedAccount(maker, mintA)
	if err != nil {
		return nil, err
	}

	offer, _, err := GetOfferAddress(&GetOfferAddressArgs{
		Maker: maker,
		Id:    id,
	})
	if err != nil {
		return nil, err
	}

	vault, err := GetVaultAddress(&GetVaultAddressArgs{
		Offer: offer,
		MintA: mintA,
	})
	if err != nil {
		return nil, err
	}

	return &MakeOfferInstructionAccounts{
		Maker:              maker,
		TokenMintA:         mintA,
		TokenMintB:         mintB,
		MakerTokenAccountA: makerTokenAccountA,
		Offer:              offer,
		Vault:              vault,
	}, nil
}

func DecodeMakeOfferInstructionArgs(data []byte) (*MakeOfferInstructionArgs, error) {
	if len(data) < 8+MakeOfferInstructionArgsSize {
		return nil, ErrInvalidInstructionData
	}

	offset := 8

	var args MakeOfferInstructionArgs
	getUint64(data, &args.Id, &offset)
	getUint64(data, &args.TokenAOfferedAmount, &offset)
	getUint64(data, &args.TokenBWantedAmount, &offset)

	return &args, nil
}
