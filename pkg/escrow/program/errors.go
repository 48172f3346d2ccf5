package program

import (
	"github.com/pkg/errors"

	"github.com/code-payments/escrow-server/pkg/solana"
	"github.com/code-payments/escrow-server/pkg/solana/system"
	"github.com/code-payments/escrow-server/pkg/solana/token"
)

// Error codes returned by the escrow program. Account validation failures use
// the same numbering as the equivalent Anchor framework errors.
const (
	ErrorInstructionMissing           solana.CustomError = 100
	ErrorInstructionFallbackNotFound  solana.CustomError = 101
	ErrorInstructionDidNotDeserialize solana.CustomError = 102

	ErrorConstraintMut                         solana.CustomError = 2000
	ErrorConstraintSeeds                       solana.CustomError = 2006
	ErrorConstraintAssociated                  solana.CustomError = 2009
	ErrorConstraintTokenMint                   solana.CustomError = 2014
	ErrorConstraintTokenOwner                  solana.CustomError = 2015
	ErrorConstraintMintTokenProgram            solana.CustomError = 2022
	ErrorConstraintAssociatedTokenTokenProgram solana.CustomError = 2023

	ErrorAccountDidNotDeserialize         solana.CustomError = 3003
	ErrorAccountNotEnoughKeys             solana.CustomError = 3005
	ErrorAccountOwnedByWrongProgram       solana.CustomError = 3007
	ErrorInvalidProgramId                 solana.CustomError = 3008
	ErrorAccountNotSigner                 solana.CustomError = 3010
	ErrorAccountNotInitialized            solana.CustomError = 3012
	ErrorAccountNotAssociatedTokenAccount solana.CustomError = 3014
)

// ErrorClass groups failures by what the caller has to change to succeed.
type ErrorClass string

const (
	ErrorClassNone          ErrorClass = ""
	ErrorClassAuthorization ErrorClass = "authorization"
	ErrorClassValidation    ErrorClass = "validation"
	ErrorClassResource      ErrorClass = "resource"
	ErrorClassPrecision     ErrorClass = "precision"
	ErrorClassInternal      ErrorClass = "internal"
)

// Classify returns the class of a transaction failure.
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorClassNone
	}

	var txErr *solana.TransactionError
	if !errors.As(err, &txErr) {
		return ErrorClassInternal
	}

	instructionErr := txErr.InstructionError()
	if instructionErr == nil {
		switch txErr.ErrorKey() {
		case solana.TransactionErrorSignatureFailure:
			return ErrorClassAuthorization
		case solana.TransactionErrorDuplicateSignature,
			solana.TransactionErrorInsufficientFundsForRent,
			solana.TransactionErrorAccountInUse:
			return ErrorClassResource
		default:
			return ErrorClassValidation
		}
	}

	if custom := instructionErr.CustomError(); custom != nil {
		return classifyCustom(*custom)
	}

	switch instructionErr.ErrorKey() {
	case solana.InstructionErrorMissingRequiredSignature,
		solana.InstructionErrorPrivilegeEscalation:
		return ErrorClassAuthorization
	case solana.InstructionErrorInsufficientFunds:
		return ErrorClassResource
	default:
		return ErrorClassValidation
	}
}

// Custom codes overlap between programs, so low codes are classified by the
// meaning they have for the programs the escrow invokes.
func classifyCustom(code solana.CustomError) ErrorClass {
	switch code {
	case ErrorAccountNotSigner, ErrorConstraintTokenOwner, token.ErrorOwnerMismatch:
		return ErrorClassAuthorization
	case system.ErrorAccountAlreadyInUse, system.ErrorResultWithNegativeLamports:
		// token.ErrorNotRentExempt and token.ErrorInsufficientFunds share these codes
		return ErrorClassResource
	case token.ErrorMintDecimalsMismatch, token.ErrorOverflow:
		return ErrorClassPrecision
	default:
		return ErrorClassValidation
	}
}
