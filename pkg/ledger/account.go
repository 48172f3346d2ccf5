package ledger

import (
	"bytes"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/escrow-server/pkg/escrow/data/account"
	"github.com/code-payments/escrow-server/pkg/solana/system"
)

// NativeLoaderKey owns every builtin program account.
//
// Current key: NativeLoader1111111111111111111111111111111
var NativeLoaderKey = mustBase58Decode("NativeLoader1111111111111111111111111111111")

// Account is the state of a ledger account while a transaction executes.
type Account struct {
	Owner      ed25519.PublicKey
	Lamports   uint64
	Data       []byte
	Executable bool
}

// AccountInfo is the handle a program receives for each account of an
// instruction. Handles for the same key share the underlying Account.
type AccountInfo struct {
	Key        ed25519.PublicKey
	IsSigner   bool
	IsWritable bool

	*Account
}

// NewSystemAccount returns an empty account owned by the system program.
func NewSystemAccount(lamports uint64) *Account {
	return &Account{
		Owner:    append(ed25519.PublicKey{}, system.ProgramKey[:]...),
		Lamports: lamports,
		Data:     []byte{},
	}
}

func (a *Account) Clone() *Account {
	return &Account{
		Owner:      append(ed25519.PublicKey{}, a.Owner...),
		Lamports:   a.Lamports,
		Data:       append([]byte{}, a.Data...),
		Executable: a.Executable,
	}
}

func (a *Account) Equal(other *Account) bool {
	return bytes.Equal(a.Owner, other.Owner) &&
		a.Lamports == other.Lamports &&
		bytes.Equal(a.Data, other.Data) &&
		a.Executable == other.Executable
}

// IsOwnedBy reports whether program owns the account.
func (a *Account) IsOwnedBy(program ed25519.PublicKey) bool {
	return bytes.Equal(a.Owner, program)
}

// IsEmpty reports whether the account is indistinguishable from one that
// was never created.
func (a *Account) IsEmpty() bool {
	return a.Lamports == 0 && len(a.Data) == 0 && a.IsOwnedBy(system.ProgramKey[:])
}

func fromRecord(record *account.Record) (*Account, error) {
	owner, err := base58.Decode(record.Owner)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid owner for account %s", record.Address)
	}
	if len(owner) != ed25519.PublicKeySize {
		return nil, errors.Errorf("invalid owner length for account %s", record.Address)
	}

	data := record.Data
	if data == nil {
		data = []byte{}
	}

	return &Account{
		Owner:      owner,
		Lamports:   record.Lamports,
		Data:       append([]byte{}, data...),
		Executable: record.Executable,
	}, nil
}

func toRecord(key ed25519.PublicKey, a *Account, version uint64) *account.Record {
	return &account.Record{
		Address:    base58.Encode(key),
		Owner:      base58.Encode(a.Owner),
		Lamports:   a.Lamports,
		Data:       append([]byte{}, a.Data...),
		Executable: a.Executable,
		Version:    version,
	}
}

func isZeroed(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}

func mustBase58Decode(value string) ed25519.PublicKey {
	decoded, err := base58.Decode(value)
	if err != nil {
		panic(err)
	}
	return decoded
}
