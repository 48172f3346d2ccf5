package program

import (
	"crypto/ed25519"

	"github.com/code-payments/escrow-server/pkg/ledger"
	"github.com/code-payments/escrow-server/pkg/solana/escrow"
)

type escrowProgram struct{}

// New returns the escrow program, ready to be registered with a ledger.Bank.
func New() ledger.Program {
	return &escrowProgram{}
}

func (p *escrowProgram) ProgramID() ed25519.PublicKey {
	return escrow.PROGRAM_ID
}

func (p *escrowProgram) Name() string {
	return "escrow"
}

func (p *escrowProgram) Process(ic *ledger.InvokeContext, accounts []*ledger.AccountInfo, data []byte) error {
	if len(data) < 8 {
		return ErrorInstructionMissing
	}

	switch escrow.GetInstructionType(data) {
	case escrow.InstructionTypeMakeOffer:
		args, err := escrow.DecodeMakeOfferInstructionArgs(data)
		if err != nil {
			return ErrorInstructionDidNotDeserialize
		}
		return makeOffer(ic, accounts, args)
	case escrow.InstructionTypeExchange:
		args, err := escrow.DecodeExchangeInstructionArgs(data)
		if err != nil {
			return ErrorInstructionDidNotDeserialize
		}
		return exchange(ic, accounts, args)
	default:
		return ErrorInstructionFallbackNotFound
	}
}
