package solana

import (
	"bytes"
	"crypto/ed25519"
	"errors"
)

// Returned by instruction decoders when an instruction belongs to another
// program or doesn't match the requested command.
var (
	ErrIncorrectProgram     = errors.New("incorrect program")
	ErrIncorrectInstruction = errors.New("incorrect instruction")
)

// AccountMeta is an account referenced by an instruction along with the
// permissions the instruction needs on it.
type AccountMeta struct {
	PublicKey  ed25519.PublicKey
	IsSigner   bool
	IsWritable bool

	isPayer   bool
	isProgram bool
}

func NewAccountMeta(pub ed25519.PublicKey, isSigner bool) AccountMeta {
	return AccountMeta{PublicKey: pub, IsSigner: isSigner, IsWritable: true}
}

func NewReadonlyAccountMeta(pub ed25519.PublicKey, isSigner bool) AccountMeta {
	return AccountMeta{PublicKey: pub, IsSigner: isSigner}
}

// compareAccountMeta orders accounts the way a message lists them: the payer,
// then signers, then writable accounts, with invoked programs last. Ties are
// broken by key.
func compareAccountMeta(a, b AccountMeta) int {
	switch {
	case a.isPayer != b.isPayer:
		return rank(a.isPayer)
	case a.isProgram != b.isProgram:
		return -rank(a.isProgram)
	case a.IsSigner != b.IsSigner:
		return rank(a.IsSigner)
	case a.IsWritable != b.IsWritable:
		return rank(a.IsWritable)
	}
	return bytes.Compare(a.PublicKey, b.PublicKey)
}

func rank(first bool) int {
	if first {
		return -1
	}
	return 1
}

// Instruction is an uncompiled program invocation.
type Instruction struct {
	Program  ed25519.PublicKey
	Accounts []AccountMeta
	Data     []byte
}

func NewInstruction(program ed25519.PublicKey, data []byte, accounts ...AccountMeta) Instruction {
	return Instruction{
		Program:  program,
		Data:     data,
		Accounts: accounts,
	}
}

// CompiledInstruction references its program and accounts by their index in
// the message's account list.
type CompiledInstruction struct {
	ProgramIndex byte
	Accounts     []byte
	Data         []byte
}
