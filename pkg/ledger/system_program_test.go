package ledger

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/escrow-server/pkg/solana"
	"github.com/code-payments/escrow-server/pkg/solana/system"
)

func TestSystemProgram_AllocateAndAssign(t *testing.T) {
	env := NewTestEnv(t)
	ctx := context.Background()

	payer := env.NewFundedKey(t)
	target := env.NewFundedKey(t)
	owner := newKey(t)

	unsigned := system.Allocate(publicKey(target), 10)
	unsigned.Accounts[0].IsSigner = false
	_, err := env.Submit(t, []ed25519.PrivateKey{payer}, unsigned)
	RequireInstructionError(t, err, 0, solana.InstructionErrorMissingRequiredSignature)

	_, err = env.Submit(
		t,
		[]ed25519.PrivateKey{payer, target},
		system.Allocate(publicKey(target), 10),
		system.Assign(publicKey(target), owner),
	)
	require.NoError(t, err)

	acct, err := env.Bank.GetAccount(ctx, publicKey(target))
	require.NoError(t, err)
	assert.True(t, acct.IsOwnedBy(owner))
	assert.Equal(t, make([]byte, 10), acct.Data)
	assert.EqualValues(t, DefaultTestLamports, acct.Lamports)

	// Assigning to the current owner is a no-op
	_, err = env.Submit(t, []ed25519.PrivateKey{payer, target}, system.Assign(publicKey(target), owner))
	require.NoError(t, err)

	_, err = env.Submit(t, []ed25519.PrivateKey{payer, target}, system.Allocate(publicKey(target), 20))
	RequireInstructionError(t, err, 0, system.ErrorAccountAlreadyInUse)

	_, err = env.Submit(t, []ed25519.PrivateKey{payer, target}, system.Assign(publicKey(target), newKey(t)))
	RequireInstructionError(t, err, 0, solana.InstructionErrorModifiedProgramID)
}

func TestCreateProgramAccount(t *testing.T) {
	program := &funcProgram{id: newKey(t)}
	env := NewTestEnv(t, program)
	ctx := context.Background()

	const space = 10
	rent := system.MinimumBalanceForRentExemption(space)

	program.process = func(ic *InvokeContext, accounts []*AccountInfo, data []byte) error {
		_, bump, err := solana.FindProgramAddressAndBump(program.id, data)
		if err != nil {
			return err
		}
		return CreateProgramAccount(ic, accounts[0], accounts[1], program.id, space, [][]byte{data, {bump}})
	}

	payer := env.NewFundedKey(t)

	addressOf := func(seed string) ed25519.PublicKey {
		address, err := solana.FindProgramAddress(program.id, []byte(seed))
		require.NoError(t, err)
		return address
	}
	create := func(seed string) error {
		_, err := env.Submit(
			t,
			[]ed25519.PrivateKey{payer},
			solana.NewInstruction(
				program.id,
				[]byte(seed),
				solana.NewAccountMeta(publicKey(payer), true),
				solana.NewAccountMeta(addressOf(seed), false),
				solana.NewReadonlyAccountMeta(system.ProgramKey[:], false),
			),
		)
		return err
	}
	requireCreated := func(seed string, lamports uint64) {
		acct, err := env.Bank.GetAccount(ctx, addressOf(seed))
		require.NoError(t, err)
		assert.True(t, acct.IsOwnedBy(program.id))
		assert.Equal(t, make([]byte, space), acct.Data)
		assert.EqualValues(t, lamports, acct.Lamports)
	}

	before := env.Lamports(t, publicKey(payer))
	require.NoError(t, create("empty"))
	requireCreated("empty", rent)
	assert.EqualValues(t, before-rent, env.Lamports(t, publicKey(payer)))

	// Lamports below rent exemption are topped up by the funder
	prefunded := system.MinimumBalanceForRentExemption(0)
	_, err := env.Bank.Airdrop(ctx, addressOf("below rent"), prefunded)
	require.NoError(t, err)

	before = env.Lamports(t, publicKey(payer))
	require.NoError(t, create("below rent"))
	requireCreated("below rent", rent)
	assert.EqualValues(t, before-(rent-prefunded), env.Lamports(t, publicKey(payer)))

	// Lamports above rent exemption are kept, and the funder pays nothing
	_, err = env.Bank.Airdrop(ctx, addressOf("above rent"), 2*rent)
	require.NoError(t, err)

	before = env.Lamports(t, publicKey(payer))
	require.NoError(t, create("above rent"))
	requireCreated("above rent", 2*rent)
	assert.EqualValues(t, before, env.Lamports(t, publicKey(payer)))

	before = env.Lamports(t, publicKey(payer))
	RequireInstructionError(t, create("empty"), 0, system.ErrorAccountAlreadyInUse)
	RequireInstructionError(t, create("below rent"), 0, system.ErrorAccountAlreadyInUse)
	assert.EqualValues(t, before, env.Lamports(t, publicKey(payer)))
	requireCreated("below rent", rent)
}
