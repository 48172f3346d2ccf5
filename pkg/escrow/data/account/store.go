package account

import (
	"bytes"
	"context"
	"errors"
	"math"
	"time"
)

var (
	ErrAccountNotFound = errors.New("ledger account not found")
	ErrStaleVersion    = errors.New("ledger account version is stale")
)

// Record is the persisted state of a single ledger account.
type Record struct {
	Id uint64

	Address string
	Owner   string

	Lamports   uint64
	Data       []byte
	Executable bool

	// Version is zero for accounts that were never saved, and is incremented
	// on every successful save.
	Version uint64

	CreatedAt     time.Time
	LastUpdatedAt time.Time
}

type Store interface {
	// SaveBatch atomically saves every record. A record with a zero version
	// must not exist yet, otherwise its version must match the stored one.
	// ErrStaleVersion is returned, and nothing is saved, when any record
	// fails that check.
	SaveBatch(ctx context.Context, records ...*Record) error

	// Get gets a single account by its address
	Get(ctx context.Context, address string) (*Record, error)

	// GetMany gets the accounts that exist among the provided addresses.
	// Missing accounts are omitted from the result.
	GetMany(ctx context.Context, addresses ...string) ([]*Record, error)
}

func (r *Record) Validate() error {
	if len(r.Address) == 0 {
		return errors.New("address is required")
	}

	if len(r.Owner) == 0 {
		return errors.New("owner is required")
	}

	if r.Lamports > math.MaxInt64 {
		return errors.New("lamports overflow int64")
	}

	return nil
}

func (r *Record) Clone() Record {
	return Record{
		Id:            r.Id,
		Address:       r.Address,
		Owner:         r.Owner,
		Lamports:      r.Lamports,
		Data:          bytes.Clone(r.Data),
		Executable:    r.Executable,
		Version:       r.Version,
		CreatedAt:     r.CreatedAt,
		LastUpdatedAt: r.LastUpdatedAt,
	}
}

func (r *Record) CopyTo(dst *Record) {
	dst.Id = r.Id
	dst.Address = r.Address
	dst.Owner = r.Owner
	dst.Lamports = r.Lamports
	dst.Data = bytes.Clone(r.Data)
	dst.Executable = r.Executable
	dst.Version = r.Version
	dst.CreatedAt = r.CreatedAt
	dst.LastUpdatedAt = r.LastUpdatedAt
}
