package program

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/escrow-server/pkg/ledger"
	"github.com/code-payments/escrow-server/pkg/solana/escrow"
	"github.com/code-payments/escrow-server/pkg/solana/system"
	"github.com/code-payments/escrow-server/pkg/solana/token"
)

func checkSigner(info *ledger.AccountInfo) error {
	if !info.IsSigner {
		return ErrorAccountNotSigner
	}
	return nil
}

func checkMut(info *ledger.AccountInfo) error {
	if !info.IsWritable {
		return ErrorConstraintMut
	}
	return nil
}

func checkSignerMut(info *ledger.AccountInfo) error {
	if err := checkSigner(info); err != nil {
		return err
	}
	return checkMut(info)
}

func checkProgram(info *ledger.AccountInfo, expected ed25519.PublicKey) error {
	if !bytes.Equal(info.Key, expected) || !info.Executable {
		return ErrorInvalidProgramId
	}
	return nil
}

// checkPrograms validates the program accounts every instruction passes last.
func checkPrograms(associatedTokenProgram, tokenProgram, systemProgram *ledger.AccountInfo) error {
	if err := checkProgram(associatedTokenProgram, escrow.ASSOCIATED_TOKEN_PROGRAM_ID); err != nil {
		return err
	}
	if err := checkProgram(tokenProgram, escrow.SPL_TOKEN_PROGRAM_ID); err != nil {
		return err
	}
	return checkProgram(systemProgram, escrow.SYSTEM_PROGRAM_ID)
}

// checkOwnedByTokenProgram verifies that an existing account belongs to the
// token program.
func checkOwnedByTokenProgram(info *ledger.AccountInfo) error {
	if info.IsOwnedBy(system.ProgramKey[:]) && info.Lamports == 0 {
		return ErrorAccountNotInitialized
	}
	if !info.IsOwnedBy(token.ProgramKey) {
		return ErrorAccountOwnedByWrongProgram
	}
	return nil
}

// loadMint validates and decodes an initialized mint owned by tokenProgram.
func loadMint(info *ledger.AccountInfo, tokenProgram *ledger.AccountInfo) (*token.Mint, error) {
	if err := checkOwnedByTokenProgram(info); err != nil {
		return nil, err
	}

	var mint token.Mint
	if !mint.Unmarshal(info.Data) || !mint.IsInitialized {
		return nil, ErrorAccountDidNotDeserialize
	}

	if !info.IsOwnedBy(tokenProgram.Key) {
		return nil, ErrorConstraintMintTokenProgram
	}
	return &mint, nil
}

// loadAssociatedTokenAccount validates and decodes the associated token
// account of wallet for mint.
func loadAssociatedTokenAccount(info *ledger.AccountInfo, wallet, mint ed25519.PublicKey, tokenProgram *ledger.AccountInfo) (*token.Account, error) {
	if err := checkOwnedByTokenProgram(info); err != nil {
		return nil, err
	}

	var tokenAccount token.Account
	if !tokenAccount.Unmarshal(info.Data) || !tokenAccount.IsInitialized() {
		return nil, ErrorAccountDidNotDeserialize
	}

	if !bytes.Equal(tokenAccount.Mint, mint) {
		return nil, ErrorConstraintTokenMint
	}
	if !bytes.Equal(tokenAccount.Owner, wallet) {
		return nil, ErrorConstraintTokenOwner
	}

	expected, err := token.GetAssociatedAccount(wallet, mint)
	if err != nil || !bytes.Equal(expected, info.Key) {
		return nil, ErrorAccountNotAssociatedTokenAccount
	}

	if !info.IsOwnedBy(tokenProgram.Key) {
		return nil, ErrorConstraintAssociatedTokenTokenProgram
	}
	return &tokenAccount, nil
}

// needsAssociatedTokenAccount reports whether an init-if-needed associated
// token account must be created. A system account without data is created in
// place, even when it already holds lamports. Existing token accounts are
// fully validated.
func needsAssociatedTokenAccount(info *ledger.AccountInfo, wallet, mint ed25519.PublicKey, tokenProgram *ledger.AccountInfo) (bool, error) {
	if info.IsOwnedBy(system.ProgramKey[:]) && len(info.Data) == 0 {
		expected, err := token.GetAssociatedAccount(wallet, mint)
		if err != nil || !bytes.Equal(expected, info.Key) {
			return false, ErrorConstraintAssociated
		}
		return true, nil
	}

	if _, err := loadAssociatedTokenAccount(info, wallet, mint, tokenProgram); err != nil {
		return false, err
	}
	return false, nil
}
