package ledger

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/code-payments/escrow-server/pkg/escrow/data"
	"github.com/code-payments/escrow-server/pkg/solana"
	"github.com/code-payments/escrow-server/pkg/solana/system"
	"github.com/code-payments/escrow-server/pkg/solana/token"
)

// DefaultTestLamports funds every key created by a TestEnv.
const DefaultTestLamports = 10_000_000_000

// TestEnv is an in-memory ledger with helpers to set up token state.
type TestEnv struct {
	Bank *Bank
	Data data.Provider
}

// NewTestEnv returns a TestEnv executing the builtin programs plus the
// provided ones.
func NewTestEnv(t *testing.T, programs ...Program) *TestEnv {
	return NewTestEnvWithProvider(t, data.NewMemoryProvider(), programs...)
}

func NewTestEnvWithProvider(t *testing.T, provider data.Provider, programs ...Program) *TestEnv {
	bank, err := NewBank(provider, withManualTestOverrides(&testOverrides{}), programs...)
	require.NoError(t, err)

	return &TestEnv{
		Bank: bank,
		Data: provider,
	}
}

// NewFundedKey returns a new key holding DefaultTestLamports.
func (e *TestEnv) NewFundedKey(t *testing.T) ed25519.PrivateKey {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	_, err = e.Bank.Airdrop(context.Background(), priv.Public().(ed25519.PublicKey), DefaultTestLamports)
	require.NoError(t, err)

	return priv
}

// Submit builds, signs and processes a transaction paid for by the first
// signer. A random blockhash keeps otherwise identical transactions distinct.
func (e *TestEnv) Submit(t *testing.T, signers []ed25519.PrivateKey, instructions ...solana.Instruction) (solana.Signature, error) {
	require.NotEmpty(t, signers)

	txn := solana.NewTransaction(signers[0].Public().(ed25519.PublicKey), instructions...)

	var blockhash solana.Blockhash
	_, err := rand.Read(blockhash[:])
	require.NoError(t, err)
	txn.SetBlockhash(blockhash)

	require.NoError(t, txn.Sign(signers...))

	return e.Bank.ProcessTransaction(context.Background(), &txn)
}

// CreateMint creates and initializes a mint whose authority is the payer.
func (e *TestEnv) CreateMint(t *testing.T, authority ed25519.PrivateKey, decimals byte) ed25519.PublicKey {
	_, mint, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	mintKey := mint.Public().(ed25519.PublicKey)
	authorityKey := authority.Public().(ed25519.PublicKey)

	_, err = e.Submit(
		t,
		[]ed25519.PrivateKey{authority, mint},
		system.CreateAccount(authorityKey, mintKey, token.ProgramKey, system.MinimumBalanceForRentExemption(token.MintSize), token.MintSize),
		token.InitializeMint2(mintKey, authorityKey, nil, decimals),
	)
	require.NoError(t, err)

	return mintKey
}

// CreateAssociatedAccount creates the associated token account of wallet for
// mint, paid for by payer.
func (e *TestEnv) CreateAssociatedAccount(t *testing.T, payer ed25519.PrivateKey, wallet, mint ed25519.PublicKey) ed25519.PublicKey {
	instruction, address, err := token.CreateAssociatedTokenAccount(payer.Public().(ed25519.PublicKey), wallet, mint)
	require.NoError(t, err)

	_, err = e.Submit(t, []ed25519.PrivateKey{payer}, instruction)
	require.NoError(t, err)

	return address
}

// MintTo mints tokens into a token account.
func (e *TestEnv) MintTo(t *testing.T, authority ed25519.PrivateKey, mint, destination ed25519.PublicKey, amount uint64) {
	_, err := e.Submit(
		t,
		[]ed25519.PrivateKey{authority},
		token.MintTo(mint, destination, authority.Public().(ed25519.PublicKey), amount),
	)
	require.NoError(t, err)
}

// TokenBalance returns the balance of a token account, or zero if the
// account doesn't exist.
func (e *TestEnv) TokenBalance(t *testing.T, address ed25519.PublicKey) uint64 {
	tokenAccount, err := e.Bank.GetTokenAccount(context.Background(), address)
	if err == ErrAccountNotFound {
		return 0
	}
	require.NoError(t, err)
	return tokenAccount.Amount
}

// Lamports returns the lamport balance of an address, or zero if the account
// doesn't exist.
func (e *TestEnv) Lamports(t *testing.T, address ed25519.PublicKey) uint64 {
	acct, err := e.Bank.GetAccount(context.Background(), address)
	if err == ErrAccountNotFound {
		return 0
	}
	require.NoError(t, err)
	return acct.Lamports
}

// RequireInstructionError asserts that err is a failure of the instruction
// at index with the expected error.
func RequireInstructionError(t *testing.T, err error, index int, expected error) {
	require.Error(t, err)

	txErr, ok := err.(*solana.TransactionError)
	require.True(t, ok, "expected a transaction error, got %v", err)
	require.NotNil(t, txErr.InstructionError(), "expected an instruction error, got %v", err)
	require.Equal(t, index, txErr.InstructionError().Index)
	require.Equal(t, expected, txErr.InstructionError().Err)
}

// RequireTransactionError asserts that err is a transaction level failure.
func RequireTransactionError(t *testing.T, err error, expected solana.TransactionErrorKey) {
	require.Error(t, err)

	txErr, ok := err.(*solana.TransactionError)
	require.True(t, ok, "expected a transaction error, got %v", err)
	require.Equal(t, expected, txErr.ErrorKey())
}
