package ledger

import (
	"crypto/ed25519"

	"github.com/code-payments/escrow-server/pkg/solana"
	"github.com/code-payments/escrow-server/pkg/solana/system"
)

// Program is a builtin program that the ledger can execute.
//
// Process is invoked with the accounts of a single instruction, in the order
// they were listed by the instruction. Returning an error aborts the entire
// transaction; Process must not assume that its writes survive a failure.
type Program interface {
	ProgramID() ed25519.PublicKey

	// Name is a short, stable name used for logging and metrics.
	Name() string

	Process(ic *InvokeContext, accounts []*AccountInfo, data []byte) error
}

// CheckNumAccounts returns NotEnoughAccountKeys when fewer than n accounts
// were provided.
func CheckNumAccounts(accounts []*AccountInfo, n int) error {
	if len(accounts) < n {
		return solana.InstructionErrorNotEnoughAccountKeys
	}
	return nil
}

// CreateProgramAccount creates a rent exempt account of space bytes owned by
// owner at target, a program derived address of the calling program signed
// for with seeds. The funder pays for it.
//
// An address that already holds lamports, but no data, is topped up to rent
// exemption then allocated and assigned in place. Any address that holds
// data, or has been assigned away from the system program, is in use.
func CreateProgramAccount(ic *InvokeContext, funder, target *AccountInfo, owner ed25519.PublicKey, space uint64, seeds [][]byte) error {
	rent := system.MinimumBalanceForRentExemption(space)

	if target.Lamports == 0 {
		return ic.InvokeSigned(system.CreateAccount(funder.Key, target.Key, owner, rent, space), seeds)
	}

	if len(target.Data) > 0 || !target.IsOwnedBy(system.ProgramKey[:]) {
		return system.ErrorAccountAlreadyInUse
	}

	if target.Lamports < rent {
		if err := ic.Invoke(system.Transfer(funder.Key, target.Key, rent-target.Lamports)); err != nil {
			return err
		}
	}
	if err := ic.InvokeSigned(system.Allocate(target.Key, space), seeds); err != nil {
		return err
	}
	return ic.InvokeSigned(system.Assign(target.Key, owner), seeds)
}
