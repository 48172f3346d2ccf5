package ledger

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/escrow-server/pkg/solana"
	"github.com/code-payments/escrow-server/pkg/solana/system"
)

type systemProgram struct{}

// NewSystemProgram returns the builtin program that creates, allocates and
// assigns accounts, and moves lamports between them.
func NewSystemProgram() Program {
	return &systemProgram{}
}

func (p *systemProgram) ProgramID() ed25519.PublicKey {
	return system.ProgramKey[:]
}

func (p *systemProgram) Name() string {
	return "system"
}

func (p *systemProgram) Process(ic *InvokeContext, accounts []*AccountInfo, data []byte) error {
	cmd, err := system.GetCommand(data)
	if err != nil {
		return solana.InstructionErrorInvalidInstructionData
	}

	switch cmd {
	case system.CommandCreateAccount:
		return p.createAccount(accounts, data)
	case system.CommandTransfer:
		return p.transfer(accounts, data)
	case system.CommandAssign:
		return p.assign(accounts, data)
	case system.CommandAllocate:
		return p.allocate(accounts, data)
	default:
		return solana.InstructionErrorInvalidInstructionData
	}
}

func (p *systemProgram) createAccount(accounts []*AccountInfo, data []byte) error {
	if err := CheckNumAccounts(accounts, 2); err != nil {
		return err
	}

	args, err := system.DecodeCreateAccountData(data)
	if err != nil {
		return solana.InstructionErrorInvalidInstructionData
	}

	funder, target := accounts[0], accounts[1]
	if bytes.Equal(funder.Key, target.Key) {
		return solana.InstructionErrorInvalidArgument
	}

	if target.Lamports > 0 || len(target.Data) > 0 || !target.IsOwnedBy(system.ProgramKey[:]) {
		return system.ErrorAccountAlreadyInUse
	}
	if args.Size > system.MaxPermittedDataLength {
		return system.ErrorInvalidAccountDataLength
	}

	if !funder.IsSigner || !target.IsSigner {
		return solana.InstructionErrorMissingRequiredSignature
	}

	if len(funder.Data) > 0 {
		return solana.InstructionErrorInvalidArgument
	}
	if funder.Lamports < args.Lamports {
		return system.ErrorResultWithNegativeLamports
	}

	target.Data = make([]byte, args.Size)
	target.Owner = append(ed25519.PublicKey{}, args.Owner...)

	funder.Lamports -= args.Lamports
	target.Lamports += args.Lamports

	return nil
}

func (p *systemProgram) transfer(accounts []*AccountInfo, data []byte) error {
	if err := CheckNumAccounts(accounts, 2); err != nil {
		return err
	}

	amount, err := system.DecodeTransferData(data)
	if err != nil {
		return solana.InstructionErrorInvalidInstructionData
	}

	from, to := accounts[0], accounts[1]
	if len(from.Data) > 0 {
		return solana.InstructionErrorInvalidArgument
	}
	if !from.IsSigner {
		return solana.InstructionErrorMissingRequiredSignature
	}
	if from.Lamports < amount {
		return system.ErrorResultWithNegativeLamports
	}

	from.Lamports -= amount
	to.Lamports += amount

	return nil
}

func (p *systemProgram) assign(accounts []*AccountInfo, data []byte) error {
	if err := CheckNumAccounts(accounts, 1); err != nil {
		return err
	}

	owner, err := system.DecodeAssignData(data)
	if err != nil {
		return solana.InstructionErrorInvalidInstructionData
	}

	target := accounts[0]
	if target.IsOwnedBy(owner) {
		return nil
	}
	if !target.IsSigner {
		return solana.InstructionErrorMissingRequiredSignature
	}
	if !target.IsOwnedBy(system.ProgramKey[:]) {
		return solana.InstructionErrorModifiedProgramID
	}

	target.Owner = append(ed25519.PublicKey{}, owner...)
	return nil
}

func (p *systemProgram) allocate(accounts []*AccountInfo, data []byte) error {
	if err := CheckNumAccounts(accounts, 1); err != nil {
		return err
	}

	size, err := system.DecodeAllocateData(data)
	if err != nil {
		return solana.InstructionErrorInvalidInstructionData
	}

	target := accounts[0]
	if !target.IsSigner {
		return solana.InstructionErrorMissingRequiredSignature
	}
	if len(target.Data) > 0 || !target.IsOwnedBy(system.ProgramKey[:]) {
		return system.ErrorAccountAlreadyInUse
	}
	if size > system.MaxPermittedDataLength {
		return system.ErrorInvalidAccountDataLength
	}

	target.Data = make([]byte, size)
	return nil
}
