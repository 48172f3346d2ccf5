package ledger

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/escrow-server/pkg/solana"
	"github.com/code-payments/escrow-server/pkg/solana/system"
	"github.com/code-payments/escrow-server/pkg/solana/token"
)

type associatedTokenProgram struct{}

// NewAssociatedTokenProgram returns the builtin program that creates the
// canonical token account of a wallet for a mint.
func NewAssociatedTokenProgram() Program {
	return &associatedTokenProgram{}
}

func (p *associatedTokenProgram) ProgramID() ed25519.PublicKey {
	return token.AssociatedTokenAccountProgramKey
}

func (p *associatedTokenProgram) Name() string {
	return "associated_token"
}

func (p *associatedTokenProgram) Process(ic *InvokeContext, accounts []*AccountInfo, data []byte) error {
	cmd, err := token.GetAssociatedCommand(data)
	if err != nil {
		return solana.InstructionErrorInvalidInstructionData
	}

	if err := CheckNumAccounts(accounts, 6); err != nil {
		return err
	}

	funderInfo := accounts[0]
	ataInfo := accounts[1]
	walletInfo := accounts[2]
	mintInfo := accounts[3]
	systemInfo := accounts[4]
	tokenInfo := accounts[5]

	if !bytes.Equal(tokenInfo.Key, token.ProgramKey) {
		return solana.InstructionErrorIncorrectProgramID
	}
	if !bytes.Equal(systemInfo.Key, system.ProgramKey[:]) {
		return solana.InstructionErrorIncorrectProgramID
	}

	address, bump, err := token.GetAssociatedAccountAndBump(walletInfo.Key, mintInfo.Key)
	if err != nil || !bytes.Equal(address, ataInfo.Key) {
		return solana.InstructionErrorInvalidSeeds
	}

	if cmd == token.AssociatedCommandCreateIdempotent && ataInfo.IsOwnedBy(token.ProgramKey) {
		var existing token.Account
		if !existing.Unmarshal(ataInfo.Data) || !existing.IsInitialized() {
			return solana.InstructionErrorInvalidAccountData
		}
		if !bytes.Equal(existing.Owner, walletInfo.Key) || !bytes.Equal(existing.Mint, mintInfo.Key) {
			return token.ErrorAssociatedInvalidOwner
		}
		return nil
	}

	if !mintInfo.IsOwnedBy(token.ProgramKey) {
		return solana.InstructionErrorIncorrectProgramID
	}

	seeds := append(token.AssociatedAccountSeeds(walletInfo.Key, mintInfo.Key), []byte{bump})
	err = CreateProgramAccount(ic, funderInfo, ataInfo, token.ProgramKey, token.AccountSize, seeds)
	if err != nil {
		return err
	}

	return ic.Invoke(token.InitializeAccount3(ataInfo.Key, mintInfo.Key, walletInfo.Key))
}
