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

type funcProgram struct {
	id      ed25519.PublicKey
	process func(ic *InvokeContext, accounts []*AccountInfo, data []byte) error
}

func (p *funcProgram) ProgramID() ed25519.PublicKey {
	return p.id
}

func (p *funcProgram) Name() string {
	return "test"
}

func (p *funcProgram) Process(ic *InvokeContext, accounts []*AccountInfo, data []byte) error {
	return p.process(ic, accounts, data)
}

func TestInvoke_ProgramDerivedSigner(t *testing.T) {
	program := &funcProgram{id: newKey(t)}
	env := NewTestEnv(t, program)

	pda, bump, err := solana.FindProgramAddressAndBump(program.id, []byte("vault"))
	require.NoError(t, err)

	funded := 2 * system.MinimumBalanceForRentExemption(0)
	_, err = env.Bank.Airdrop(context.Background(), pda, funded)
	require.NoError(t, err)

	receiver := newKey(t)
	amount := system.MinimumBalanceForRentExemption(0)

	var useSeeds bool
	program.process = func(ic *InvokeContext, accounts []*AccountInfo, _ []byte) error {
		transfer := system.Transfer(accounts[0].Key, accounts[1].Key, amount)
		if useSeeds {
			return ic.InvokeSigned(transfer, [][]byte{[]byte("vault"), {bump}})
		}
		return ic.Invoke(transfer)
	}

	instruction := solana.NewInstruction(
		program.id,
		nil,
		solana.NewAccountMeta(pda, false),
		solana.NewAccountMeta(receiver, false),
		solana.NewReadonlyAccountMeta(system.ProgramKey[:], false),
	)

	payer := env.NewFundedKey(t)

	_, err = env.Submit(t, []ed25519.PrivateKey{payer}, instruction)
	RequireInstructionError(t, err, 0, solana.InstructionErrorPrivilegeEscalation)
	assert.EqualValues(t, funded, env.Lamports(t, pda))

	useSeeds = true
	_, err = env.Submit(t, []ed25519.PrivateKey{payer}, instruction)
	require.NoError(t, err)

	assert.EqualValues(t, funded-amount, env.Lamports(t, pda))
	assert.EqualValues(t, amount, env.Lamports(t, receiver))
}

func TestInvoke_OtherProgramCannotSignForAddress(t *testing.T) {
	owner := &funcProgram{id: newKey(t)}
	thief := &funcProgram{id: newKey(t)}
	env := NewTestEnv(t, owner, thief)

	pda, bump, err := solana.FindProgramAddressAndBump(owner.id, []byte("vault"))
	require.NoError(t, err)

	funded := 2 * system.MinimumBalanceForRentExemption(0)
	_, err = env.Bank.Airdrop(context.Background(), pda, funded)
	require.NoError(t, err)

	receiver := newKey(t)
	thief.process = func(ic *InvokeContext, accounts []*AccountInfo, _ []byte) error {
		return ic.InvokeSigned(
			system.Transfer(accounts[0].Key, accounts[1].Key, system.MinimumBalanceForRentExemption(0)),
			[][]byte{[]byte("vault"), {bump}},
		)
	}

	payer := env.NewFundedKey(t)
	_, err = env.Submit(
		t,
		[]ed25519.PrivateKey{payer},
		solana.NewInstruction(
			thief.id,
			nil,
			solana.NewAccountMeta(pda, false),
			solana.NewAccountMeta(receiver, false),
			solana.NewReadonlyAccountMeta(system.ProgramKey[:], false),
		),
	)
	require.Error(t, err)

	txErr, ok := err.(*solana.TransactionError)
	require.True(t, ok)
	require.NotNil(t, txErr.InstructionError())
	assert.Contains(
		t,
		[]error{solana.InstructionErrorPrivilegeEscalation, solana.InstructionErrorInvalidSeeds},
		txErr.InstructionError().Err,
	)

	assert.EqualValues(t, funded, env.Lamports(t, pda))
	assert.EqualValues(t, 0, env.Lamports(t, receiver))
}

func TestInvoke_WritableEscalation(t *testing.T) {
	program := &funcProgram{id: newKey(t)}
	env := NewTestEnv(t, program)

	program.process = func(ic *InvokeContext, accounts []*AccountInfo, _ []byte) error {
		return ic.Invoke(system.Transfer(accounts[0].Key, accounts[1].Key, system.MinimumBalanceForRentExemption(0)))
	}

	payer := env.NewFundedKey(t)
	readonlyReceiver := newKey(t)

	_, err := env.Submit(
		t,
		[]ed25519.PrivateKey{payer},
		solana.NewInstruction(
			program.id,
			nil,
			solana.NewAccountMeta(publicKey(payer), true),
			solana.NewReadonlyAccountMeta(readonlyReceiver, false),
			solana.NewReadonlyAccountMeta(system.ProgramKey[:], false),
		),
	)
	RequireInstructionError(t, err, 0, solana.InstructionErrorPrivilegeEscalation)
}

func TestInvoke_MissingProgramAccount(t *testing.T) {
	program := &funcProgram{id: newKey(t)}
	env := NewTestEnv(t, program)

	program.process = func(ic *InvokeContext, accounts []*AccountInfo, _ []byte) error {
		return ic.Invoke(system.Transfer(accounts[0].Key, accounts[1].Key, system.MinimumBalanceForRentExemption(0)))
	}

	payer := env.NewFundedKey(t)
	_, err := env.Submit(
		t,
		[]ed25519.PrivateKey{payer},
		solana.NewInstruction(
			program.id,
			nil,
			solana.NewAccountMeta(publicKey(payer), true),
			solana.NewAccountMeta(newKey(t), false),
		),
	)
	RequireInstructionError(t, err, 0, solana.InstructionErrorMissingAccount)
}

func TestInvoke_CallDepth(t *testing.T) {
	program := &funcProgram{id: newKey(t)}
	env := NewTestEnv(t, program)

	var maxDepth int
	program.process = func(ic *InvokeContext, _ []*AccountInfo, _ []byte) error {
		if ic.Depth() > maxDepth {
			maxDepth = ic.Depth()
		}
		return ic.Invoke(solana.NewInstruction(program.id, nil, solana.NewReadonlyAccountMeta(program.id, false)))
	}

	payer := env.NewFundedKey(t)
	_, err := env.Submit(
		t,
		[]ed25519.PrivateKey{payer},
		solana.NewInstruction(program.id, nil, solana.NewReadonlyAccountMeta(program.id, false)),
	)
	RequireInstructionError(t, err, 0, solana.InstructionErrorCallDepth)
	assert.Equal(t, defaultMaxInvokeDepth, maxDepth)
}

func TestInvoke_Reentrancy(t *testing.T) {
	outer := &funcProgram{id: newKey(t)}
	inner := &funcProgram{id: newKey(t)}
	env := NewTestEnv(t, outer, inner)

	accounts := []solana.AccountMeta{
		solana.NewReadonlyAccountMeta(outer.id, false),
		solana.NewReadonlyAccountMeta(inner.id, false),
	}
	outer.process = func(ic *InvokeContext, _ []*AccountInfo, _ []byte) error {
		return ic.Invoke(solana.NewInstruction(inner.id, nil, accounts...))
	}
	inner.process = func(ic *InvokeContext, _ []*AccountInfo, _ []byte) error {
		return ic.Invoke(solana.NewInstruction(outer.id, nil, accounts...))
	}

	payer := env.NewFundedKey(t)
	_, err := env.Submit(t, []ed25519.PrivateKey{payer}, solana.NewInstruction(outer.id, nil, accounts...))
	RequireInstructionError(t, err, 0, solana.InstructionErrorReentrancyNotAllowed)
}

func TestInvoke_ExternalAccountModification(t *testing.T) {
	program := &funcProgram{id: newKey(t)}
	env := NewTestEnv(t, program)

	victim := env.NewFundedKey(t)
	receiver := newKey(t)

	program.process = func(_ *InvokeContext, accounts []*AccountInfo, data []byte) error {
		switch data[0] {
		case 0:
			accounts[0].Lamports -= 1_000_000
			accounts[1].Lamports += 1_000_000
		case 1:
			accounts[0].Data = []byte{1}
		case 2:
			accounts[1].Lamports += 1_000_000
		}
		return nil
	}

	for _, tc := range []struct {
		data     byte
		expected error
	}{
		{0, solana.InstructionErrorExternalAccountLamportSpend},
		{1, solana.InstructionErrorExternalAccountDataModified},
		{2, solana.InstructionErrorUnbalancedInstruction},
	} {
		payer := env.NewFundedKey(t)
		_, err := env.Submit(
			t,
			[]ed25519.PrivateKey{payer},
			solana.NewInstruction(
				program.id,
				[]byte{tc.data},
				solana.NewAccountMeta(publicKey(victim), false),
				solana.NewAccountMeta(receiver, false),
			),
		)
		RequireInstructionError(t, err, 0, tc.expected)
	}

	assert.EqualValues(t, DefaultTestLamports, env.Lamports(t, publicKey(victim)))
}

func TestInvoke_ReadonlyAccountModification(t *testing.T) {
	program := &funcProgram{id: newKey(t)}
	env := NewTestEnv(t, program)

	program.process = func(_ *InvokeContext, accounts []*AccountInfo, _ []byte) error {
		accounts[0].Lamports -= 1_000_000
		accounts[1].Lamports += 1_000_000
		return nil
	}

	victim := env.NewFundedKey(t)
	payer := env.NewFundedKey(t)
	_, err := env.Submit(
		t,
		[]ed25519.PrivateKey{payer},
		solana.NewInstruction(
			program.id,
			nil,
			solana.NewReadonlyAccountMeta(publicKey(victim), false),
			solana.NewAccountMeta(newKey(t), false),
		),
	)
	RequireInstructionError(t, err, 0, solana.InstructionErrorReadonlyLamportChange)
	assert.EqualValues(t, DefaultTestLamports, env.Lamports(t, publicKey(victim)))
}
