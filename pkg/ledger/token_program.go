package ledger

import (
	"bytes"
	"crypto/ed25519"
	"math"

	"github.com/code-payments/escrow-server/pkg/solana"
	"github.com/code-payments/escrow-server/pkg/solana/system"
	"github.com/code-payments/escrow-server/pkg/solana/token"
)

type tokenProgram struct{}

// NewTokenProgram returns the builtin token program, supporting the subset of
// commands needed to set up mints and accounts and to move tokens.
func NewTokenProgram() Program {
	return &tokenProgram{}
}

func (p *tokenProgram) ProgramID() ed25519.PublicKey {
	return token.ProgramKey
}

func (p *tokenProgram) Name() string {
	return "token"
}

func (p *tokenProgram) Process(ic *InvokeContext, accounts []*AccountInfo, data []byte) error {
	if len(data) == 0 {
		return solana.InstructionErrorInvalidInstructionData
	}

	switch token.Command(data[0]) {
	case token.CommandInitializeMint2:
		return p.initializeMint(accounts, data)
	case token.CommandInitializeAccount3:
		return p.initializeAccount(accounts, data)
	case token.CommandTransfer:
		amount, err := token.DecodeAmountData(token.CommandTransfer, data)
		if err != nil {
			return solana.InstructionErrorInvalidInstructionData
		}
		if err := CheckNumAccounts(accounts, 3); err != nil {
			return err
		}
		return p.transfer(accounts[0], nil, accounts[1], accounts[2], amount, nil)
	case token.CommandTransferChecked:
		amount, decimals, err := token.DecodeTransferCheckedData(data)
		if err != nil {
			return solana.InstructionErrorInvalidInstructionData
		}
		if err := CheckNumAccounts(accounts, 4); err != nil {
			return err
		}
		return p.transfer(accounts[0], accounts[1], accounts[2], accounts[3], amount, &decimals)
	case token.CommandMintTo:
		amount, err := token.DecodeAmountData(token.CommandMintTo, data)
		if err != nil {
			return solana.InstructionErrorInvalidInstructionData
		}
		return p.mintTo(accounts, amount)
	default:
		return token.ErrorInvalidInstruction
	}
}

func (p *tokenProgram) initializeMint(accounts []*AccountInfo, data []byte) error {
	if err := CheckNumAccounts(accounts, 1); err != nil {
		return err
	}

	args, err := token.DecodeInitializeMint2Data(data)
	if err != nil {
		return solana.InstructionErrorInvalidInstructionData
	}

	mintInfo := accounts[0]
	if !mintInfo.IsOwnedBy(token.ProgramKey) {
		return solana.InstructionErrorIncorrectProgramID
	}

	var mint token.Mint
	if !mint.Unmarshal(mintInfo.Data) {
		return solana.InstructionErrorInvalidAccountData
	}
	if mint.IsInitialized {
		return token.ErrorAlreadyInUse
	}
	if !system.IsRentExempt(mintInfo.Lamports, uint64(len(mintInfo.Data))) {
		return token.ErrorNotRentExempt
	}

	mint = token.Mint{
		MintAuthority:   args.MintAuthority,
		Decimals:        args.Decimals,
		IsInitialized:   true,
		FreezeAuthority: args.FreezeAuthority,
	}
	mintInfo.Data = mint.Marshal()

	return nil
}

func (p *tokenProgram) initializeAccount(accounts []*AccountInfo, data []byte) error {
	if err := CheckNumAccounts(accounts, 2); err != nil {
		return err
	}

	owner, err := token.DecodeInitializeAccount3Data(data)
	if err != nil {
		return solana.InstructionErrorInvalidInstructionData
	}

	accountInfo, mintInfo := accounts[0], accounts[1]
	if !accountInfo.IsOwnedBy(token.ProgramKey) {
		return solana.InstructionErrorIncorrectProgramID
	}

	var tokenAccount token.Account
	if !tokenAccount.Unmarshal(accountInfo.Data) {
		return solana.InstructionErrorInvalidAccountData
	}
	if tokenAccount.IsInitialized() {
		return token.ErrorAlreadyInUse
	}
	if !system.IsRentExempt(accountInfo.Lamports, uint64(len(accountInfo.Data))) {
		return token.ErrorNotRentExempt
	}

	if _, err := loadMint(mintInfo); err != nil {
		return token.ErrorInvalidMint
	}

	tokenAccount = token.Account{
		Mint:  append(ed25519.PublicKey{}, mintInfo.Key...),
		Owner: owner,
		State: token.AccountStateInitialized,
	}
	accountInfo.Data = tokenAccount.Marshal()

	return nil
}

// transfer moves tokens between accounts. When mintInfo is provided the
// transfer is checked against the mint and its decimals.
func (p *tokenProgram) transfer(sourceInfo, mintInfo, destinationInfo, authorityInfo *AccountInfo, amount uint64, decimals *byte) error {
	source, err := loadTokenAccount(sourceInfo)
	if err != nil {
		return err
	}
	destination, err := loadTokenAccount(destinationInfo)
	if err != nil {
		return err
	}

	if !source.IsInitialized() || !destination.IsInitialized() {
		return token.ErrorUninitializedState
	}
	if source.State == token.AccountStateFrozen || destination.State == token.AccountStateFrozen {
		return token.ErrorAccountFrozen
	}
	if source.Amount < amount {
		return token.ErrorInsufficientFunds
	}
	if !bytes.Equal(source.Mint, destination.Mint) {
		return token.ErrorMintMismatch
	}

	if mintInfo != nil {
		if !bytes.Equal(mintInfo.Key, source.Mint) {
			return token.ErrorMintMismatch
		}

		mint, err := loadMint(mintInfo)
		if err != nil {
			return err
		}
		if decimals != nil && mint.Decimals != *decimals {
			return token.ErrorMintDecimalsMismatch
		}
	}

	if !bytes.Equal(source.Owner, authorityInfo.Key) {
		return token.ErrorOwnerMismatch
	}
	if !authorityInfo.IsSigner {
		return solana.InstructionErrorMissingRequiredSignature
	}

	if bytes.Equal(sourceInfo.Key, destinationInfo.Key) {
		return nil
	}

	if destination.Amount > math.MaxUint64-amount {
		return token.ErrorOverflow
	}

	source.Amount -= amount
	destination.Amount += amount

	sourceInfo.Data = source.Marshal()
	destinationInfo.Data = destination.Marshal()

	return nil
}

func (p *tokenProgram) mintTo(accounts []*AccountInfo, amount uint64) error {
	if err := CheckNumAccounts(accounts, 3); err != nil {
		return err
	}

	mintInfo, destinationInfo, authorityInfo := accounts[0], accounts[1], accounts[2]

	destination, err := loadTokenAccount(destinationInfo)
	if err != nil {
		return err
	}
	if !destination.IsInitialized() {
		return token.ErrorUninitializedState
	}
	if destination.State == token.AccountStateFrozen {
		return token.ErrorAccountFrozen
	}
	if !bytes.Equal(destination.Mint, mintInfo.Key) {
		return token.ErrorMintMismatch
	}

	mint, err := loadMint(mintInfo)
	if err != nil {
		return err
	}
	if len(mint.MintAuthority) == 0 {
		return token.ErrorFixedSupply
	}
	if !bytes.Equal(mint.MintAuthority, authorityInfo.Key) {
		return token.ErrorOwnerMismatch
	}
	if !authorityInfo.IsSigner {
		return solana.InstructionErrorMissingRequiredSignature
	}

	if mint.Supply > math.MaxUint64-amount || destination.Amount > math.MaxUint64-amount {
		return token.ErrorOverflow
	}

	mint.Supply += amount
	destination.Amount += amount

	mintInfo.Data = mint.Marshal()
	destinationInfo.Data = destination.Marshal()

	return nil
}

func loadTokenAccount(info *AccountInfo) (*token.Account, error) {
	if !info.IsOwnedBy(token.ProgramKey) {
		return nil, solana.InstructionErrorIncorrectProgramID
	}

	var tokenAccount token.Account
	if !tokenAccount.Unmarshal(info.Data) {
		return nil, solana.InstructionErrorInvalidAccountData
	}
	return &tokenAccount, nil
}

func loadMint(info *AccountInfo) (*token.Mint, error) {
	if !info.IsOwnedBy(token.ProgramKey) {
		return nil, solana.InstructionErrorIncorrectProgramID
	}

	var mint token.Mint
	if !mint.Unmarshal(info.Data) {
		return nil, solana.InstructionErrorInvalidAccountData
	}
	if !mint.IsInitialized {
		return nil, token.ErrorUninitializedState
	}
	return &mint, nil
}
