package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/code-payments/escrow-server/pkg/database/query"
	"github.com/code-payments/escrow-server/pkg/escrow/data/offer"
)

type store struct {
	db *sqlx.DB
}

// New returns a new postgres-backed offer.Store
func New(db *sql.DB) offer.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// Put implements offer.Store.Put
func (s *store) Put(ctx context.Context, record *offer.Record) error {
	obj, err := toModel(record)
	if err != nil {
		return err
	}

	if err := obj.dbPut(ctx, s.db); err != nil {
		return err
	}

	fromModel(obj).CopyTo(record)
	return nil
}

// GetByAddress implements offer.Store.GetByAddress
func (s *store) GetByAddress(ctx context.Context, address string) (*offer.Record, error) {
	obj, err := dbGetByAddress(ctx, s.db, address)
	if err != nil {
		return nil, err
	}
	return fromModel(obj), nil
}

// GetByMakerAndId implements offer.Store.GetByMakerAndId
func (s *store) GetByMakerAndId(ctx context.Context, maker string, offerId uint64) (*offer.Record, error) {
	obj, err := dbGetByMakerAndId(ctx, s.db, maker, offerId)
	if err != nil {
		return nil, err
	}
	return fromModel(obj), nil
}

// GetAllByMaker implements offer.Store.GetAllByMaker
func (s *store) GetAllByMaker(ctx context.Context, maker string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*offer.Record, error) {
	models, err := dbGetAllByMaker(ctx, s.db, maker, cursor, limit, direction)
	if err != nil {
		return nil, err
	}

	res := make([]*offer.Record, len(models))
	for i, m := range models {
		res[i] = fromModel(m)
	}
	return res, nil
}
