package escrow

import (
	"crypto/ed25519"

	"github.com/code-payments/escrow-server/pkg/solana"
	"github.com/code-payments/escrow-server/pkg/solana/token"
)

const (
	ExchangeInstructionArgsSize = (8 + // token_a_amount
		8) // token_b_amount
)

type ExchangeInstructionArgs struct {
	TokenAAmount uint64
	TokenBAmount uint64
}

type ExchangeInstructionAccounts struct {
	Maker              ed25519.PublicKey
	Taker              ed25519.PublicKey
	TokenMintA         ed25519.PublicKey
	TokenMintB         ed25519.PublicKey
	MakerTokenAccountA ed25519.PublicKey
	TakerTokenAccountB ed25519.PublicKey
	MakerTokenAccountB ed25519.PublicKey
	TakerTokenAccountA ed25519.PublicKey
}

func NewExchangeInstruction(
	accounts *ExchangeInstructionAccounts,
	args *ExchangeInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte, 8+ExchangeInstructionArgsSize)

	putDiscriminator(data, ExchangeInstructionDiscriminator, &offset)
	putUint64(data, args.TokenAAmount, &offset)
	putUint64(data, args.TokenBAmount, &offset)

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
				PublicKey:  accounts.Taker,
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
				PublicKey:  accounts.TakerTokenAccountB,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.MakerTokenAccountB,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.TakerTokenAccountA,
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

// ExchangeInstructionAccountsFor derives the four party token accounts of an
// exchange between maker and taker.
func ExchangeInstructionAccountsFor(maker, taker, mintA, mintB ed25519.PublicKey) (*ExchangeInstructionAccounts, error) {
	accounts := &ExchangeInstructionAccounts{
		Maker:      maker,
		Taker:      taker,
		TokenMintA: mintA,
		TokenMintB: mintB,
	}

	var err error
	for _, derivation := range []struct {
		dst    *ed25519.PublicKey
		wallet ed25519.PublicKey
		mint   ed25519.PublicKey
	}{
		{&accounts.MakerTokenAccountA, maker, mintA},
		{&accounts.TakerTokenAccountB, taker, mintB},
		{&accounts.MakerTokenAccountB, maker, mintB},
		{&accounts.TakerTokenAccountA, taker, mintA},
	} {
		*derivation.dst, err = token.GetAssociatedAccount(derivation.wallet, derivation.mint)
		if err != nil {
			return nil, err
		}
	}

	return accounts, nil
}

func DecodeExchangeInstructionArgs(data []byte) (*ExchangeInstructionArgs, error) {
	if len(data) < 8+ExchangeInstructionArgsSize {
		return nil, ErrInvalidInstructionData
	}

	offset := 8

	var args ExchangeInstructionArgs
	getUint64(data, &args.TokenAAmount, &offset)
	getUint64(data, &args.TokenBAmount, &offset)

	return &args, nil
}
