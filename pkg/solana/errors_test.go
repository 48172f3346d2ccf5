package solana

import (
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstructionError_Keys(t *testing.T) {
	e := NewInstructionError(2, CustomError(3))
	assert.Equal(t, InstructionErrorCustom, e.ErrorKey())
	require.NotNil(t, e.CustomError())
	assert.Equal(t, CustomError(3), *e.CustomError())

	e = NewInstructionError(0, InstructionErrorInvalidArgument)
	assert.Equal(t, InstructionErrorInvalidArgument, e.ErrorKey())
	assert.Nil(t, e.CustomError())

	e = NewInstructionError(0, errors.New("something else"))
	assert.Equal(t, InstructionErrorKey("something else"), e.ErrorKey())

	e = NewInstructionError(0, nil)
	assert.Empty(t, e.ErrorKey())
}

func TestInstructionError_Wrapped(t *testing.T) {
	e := NewInstructionError(1, errors.Wrap(CustomError(2006), "seeds mismatch"))
	assert.Equal(t, InstructionErrorCustom, e.ErrorKey())
	require.NotNil(t, e.CustomError())
	assert.Equal(t, CustomError(2006), *e.CustomError())
	assert.ErrorIs(t, e, CustomError(2006))

	e = NewInstructionError(0, errors.Wrap(InstructionErrorMissingRequiredSignature, "maker"))
	assert.Equal(t, InstructionErrorMissingRequiredSignature, e.ErrorKey())
	assert.Nil(t, e.CustomError())
	assert.Equal(t, "Error processing Instruction 0: maker: MissingRequiredSignature", e.Error())
}

func TestTransactionError(t *testing.T) {
	e := NewTransactionError(TransactionErrorDuplicateSignature)
	assert.Equal(t, TransactionErrorDuplicateSignature, e.ErrorKey())
	assert.Nil(t, e.InstructionError())
	assert.Equal(t, "DuplicateSignature", e.Error())

	e = TransactionErrorFromInstructionError(NewInstructionError(1, CustomError(1)))
	assert.Equal(t, TransactionErrorInstructionError, e.ErrorKey())
	require.NotNil(t, e.InstructionError())
	assert.Equal(t, 1, e.InstructionError().Index)
	assert.Equal(t, "Error processing Instruction 1: custom program error: 0x1", e.Error())
}

func TestTransactionError_JSON(t *testing.T) {
	for _, tc := range []struct {
		err      *TransactionError
		expected string
	}{
		{
			err:      NewTransactionError(TransactionErrorSignatureFailure),
			expected: `"SignatureFailure"`,
		},
		{
			err:      TransactionErrorFromInstructionError(NewInstructionError(0, InstructionErrorInvalidArgument)),
			expected: `{"InstructionError":[0,"InvalidArgument"]}`,
		},
		{
			err:      TransactionErrorFromInstructionError(NewInstructionError(2, errors.Wrap(CustomError(3), "context"))),
			expected: `{"InstructionError":[2,{"Custom":3}]}`,
		},
	} {
		actual, err := json.Marshal(tc.err)
		require.NoError(t, err)
		assert.JSONEq(t, tc.expected, string(actual))
	}
}
