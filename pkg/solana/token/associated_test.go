package token

import (
	"testing"

	"github.com/mr-tron/base58/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/escrow-server/pkg/solana"
	"github.com/code-payments/escrow-server/pkg/solana/system"
)

func TestGetAssociatedAccount(t *testing.T) {
	// Values generated from taken from spl code.
	wallet, err := base58.Decode("4uQeVj5tqViQh7yWWGStvkEG1Zmhx6uasJtWCJziofM")
	require.NoError(t, err)
	mint, err := base58.Decode("8opHzTAnfzRpPEx21XtnrVTX28YQuCpAjcn1PczScKh")
	require.NoError(t, err)
	addr, err := base58.Decode("H7MQwEzt97tUJryocn3qaEoy2ymWstwyEk1i9Yv3EmuZ")
	require.NoError(t, err)

	actual, err := GetAssociatedAccount(wallet, mint)
	require.NoError(t, err)
	assert.EqualValues(t, addr, actual)
}

func TestCreateAssociatedAccount(t *testing.T) {
	keys := generateKeys(t, 3)

	expectedAddr, bump, err := GetAssociatedAccountAndBump(keys[1], keys[2])
	require.NoError(t, err)

	recreated, err := solana.CreateProgramAddress(AssociatedTokenAccountProgramKey, keys[1], ProgramKey, keys[2], []byte{bump})
	require.NoError(t, err)
	assert.EqualValues(t, expectedAddr, recreated)

	for _, idempotent := range []bool{false, true} {
		create := CreateAssociatedTokenAccount
		expectedCommand := AssociatedCommandCreate
		if idempotent {
			create = CreateAssociatedTokenAccountIdempotent
			expectedCommand = AssociatedCommandCreateIdempotent
		}

		instruction, addr, err := create(keys[0], keys[1], keys[2])
		require.NoError(t, err)
		assert.Equal(t, expectedAddr, addr)

		require.Len(t, instruction.Data, 1)
		assert.EqualValues(t, expectedCommand, instruction.Data[0])
		assert.Equal(t, 6, len(instruction.Accounts))
		assert.True(t, instruction.Accounts[0].IsSigner)
		assert.True(t, instruction.Accounts[0].IsWritable)
		assert.False(t, instruction.Accounts[1].IsSigner)
		assert.True(t, instruction.Accounts[1].IsWritable)
		for i := 2; i < len(instruction.Accounts); i++ {
			assert.False(t, instruction.Accounts[i].IsSigner)
			assert.False(t, instruction.Accounts[i].IsWritable)
		}

		assert.EqualValues(t, system.ProgramKey[:], instruction.Accounts[4].PublicKey)
		assert.EqualValues(t, ProgramKey, instruction.Accounts[5].PublicKey)

		decompiled, err := DecompileCreateAssociatedAccount(solana.NewTransaction(keys[0], instruction).Message, 0)
		require.NoError(t, err)
		assert.Equal(t, keys[0], decompiled.Subsidizer)
		assert.Equal(t, expectedAddr, decompiled.Address)
		assert.Equal(t, keys[1], decompiled.Owner)
		assert.Equal(t, keys[2], decompiled.Mint)
		assert.Equal(t, idempotent, decompiled.Idempotent)
	}
}

func TestGetAssociatedCommand(t *testing.T) {
	cmd, err := GetAssociatedCommand(nil)
	require.NoError(t, err)
	assert.Equal(t, AssociatedCommandCreate, cmd)

	cmd, err = GetAssociatedCommand([]byte{1})
	require.NoError(t, err)
	assert.Equal(t, AssociatedCommandCreateIdempotent, cmd)

	_, err = GetAssociatedCommand([]byte{2})
	assert.Equal(t, solana.ErrIncorrectInstruction, err)

	_, err = GetAssociatedCommand([]byte{0, 0})
	assert.Equal(t, solana.ErrIncorrectInstruction, err)
}
