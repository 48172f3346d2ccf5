package program

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/code-payments/escrow-server/pkg/solana"
	"github.com/code-payments/escrow-server/pkg/solana/token"
)

func TestClassify(t *testing.T) {
	instructionFailure := func(err error) error {
		return solana.TransactionErrorFromInstructionError(solana.NewInstructionError(0, err))
	}

	for _, tc := range []struct {
		err      error
		expected ErrorClass
	}{
		{nil, ErrorClassNone},
		{errors.New("connection reset"), ErrorClassInternal},
		{solana.NewTransactionError(solana.TransactionErrorSignatureFailure), ErrorClassAuthorization},
		{solana.NewTransactionError(solana.TransactionErrorDuplicateSignature), ErrorClassResource},
		{solana.NewTransactionError(solana.TransactionErrorAccountInUse), ErrorClassResource},
		{solana.NewTransactionError(solana.TransactionErrorInsufficientFundsForRent), ErrorClassResource},
		{solana.NewTransactionError(solana.TransactionErrorSanitizeFailure), ErrorClassValidation},
		{instructionFailure(solana.InstructionErrorMissingRequiredSignature), ErrorClassAuthorization},
		{instructionFailure(solana.InstructionErrorPrivilegeEscalation), ErrorClassAuthorization},
		{instructionFailure(solana.InstructionErrorInsufficientFunds), ErrorClassResource},
		{instructionFailure(solana.InstructionErrorInvalidSeeds), ErrorClassValidation},
		{instructionFailure(ErrorAccountNotSigner), ErrorClassAuthorization},
		{instructionFailure(ErrorConstraintTokenOwner), ErrorClassAuthorization},
		{instructionFailure(token.ErrorOwnerMismatch), ErrorClassAuthorization},
		{instructionFailure(token.ErrorInsufficientFunds), ErrorClassResource},
		{instructionFailure(token.ErrorMintDecimalsMismatch), ErrorClassPrecision},
		{instructionFailure(token.ErrorOverflow), ErrorClassPrecision},
		{instructionFailure(ErrorConstraintSeeds), ErrorClassValidation},
		{instructionFailure(ErrorInstructionFallbackNotFound), ErrorClassValidation},
	} {
		assert.Equal(t, tc.expected, Classify(tc.err), "%v", tc.err)
	}
}

func TestErrorCodes(t *testing.T) {
	assert.EqualValues(t, 100, ErrorInstructionMissing)
	assert.EqualValues(t, 2006, ErrorConstraintSeeds)
	assert.EqualValues(t, 2009, ErrorConstraintAssociated)
	assert.EqualValues(t, 3008, ErrorInvalidProgramId)
	assert.EqualValues(t, 3010, ErrorAccountNotSigner)
	assert.EqualValues(t, 3014, ErrorAccountNotAssociatedTokenAccount)
}
