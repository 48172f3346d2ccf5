package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	pgutil "github.com/code-payments/escrow-server/pkg/database/postgres"
	q "github.com/code-payments/escrow-server/pkg/database/query"
	"github.com/code-payments/escrow-server/pkg/escrow/data/offer"
)

const (
	tableName = "escrow__core_offer"
)

type model struct {
	Id                 sql.NullInt64 `db:"id"`
	Address            string        `db:"address"`
	Vault              string        `db:"vault"`
	Maker              string        `db:"maker"`
	OfferId            int64         `db:"offer_id"`
	TokenMintA         string        `db:"token_mint_a"`
	TokenMintB         string        `db:"token_mint_b"`
	TokenBWantedAmount int64         `db:"token_b_wanted_amount"`
	Bump               int16         `db:"bump"`
	Signature          string        `db:"signature"`
	CreatedAt          time.Time     `db:"created_at"`
}

func toModel(obj *offer.Record) (*model, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	return &model{
		Address:            obj.Address,
		Vault:              obj.Vault,
		Maker:              obj.Maker,
		OfferId:            int64(obj.OfferId),
		TokenMintA:         obj.TokenMintA,
		TokenMintB:         obj.TokenMintB,
		TokenBWantedAmount: int64(obj.TokenBWantedAmount),
		Bump:               int16(obj.Bump),
		Signature:          obj.Signature,
		CreatedAt:          obj.CreatedAt,
	}, nil
}

func fromModel(obj *model) *offer.Record {
	return &offer.Record{
		Id:                 uint64(obj.Id.Int64),
		Address:            obj.Address,
		Vault:              obj.Vault,
		Maker:              obj.Maker,
		OfferId:            uint64(obj.OfferId),
		TokenMintA:         obj.TokenMintA,
		TokenMintB:         obj.TokenMintB,
		TokenBWantedAmount: uint64(obj.TokenBWantedAmount),
		Bump:               uint8(obj.Bump),
		Signature:          obj.Signature,
		CreatedAt:          obj.CreatedAt.UTC(),
	}
}

func (m *model) dbPut(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `INSERT INTO ` + tableName + `
			(address, vault, maker, offer_id, token_mint_a, token_mint_b, token_b_wanted_amount, bump, signature, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id, address, vault, maker, offer_id, token_mint_a, token_mint_b, token_b_wanted_amount, bump, signature, created_at`

		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now()
		}

		err := tx.QueryRowxContext(
			ctx,
			query,
			m.Address,
			m.Vault,
			m.Maker,
			m.OfferId,
			m.TokenMintA,
			m.TokenMintB,
			m.TokenBWantedAmount,
			m.Bump,
			m.Signature,
			m.CreatedAt,
		).StructScan(m)
		return pgutil.CheckUniqueViolation(err, offer.ErrOfferExists)
	})
}

func dbGetByAddress(ctx context.Context, db *sqlx.DB, address string) (*model, error) {
	res := &model{}

	query := `SELECT id, address, vault, maker, offer_id, token_mint_a, token_mint_b, token_b_wanted_amount, bump, signature, created_at
		FROM ` + tableName + `
		WHERE address = $1
		LIMIT 1`

	err := db.GetContext(ctx, res, query, address)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, offer.ErrOfferNotFound)
	}
	return res, nil
}

func dbGetByMakerAndId(ctx context.Context, db *sqlx.DB, maker string, offerId uint64) (*model, error) {
	res := &model{}

	query := `SELECT id, address, vault, maker, offer_id, token_mint_a, token_mint_b, token_b_wanted_amount, bump, signature, created_at
		FROM ` + tableName + `
		WHERE maker = $1 AND offer_id = $2
		LIMIT 1`

	err := db.GetContext(ctx, res, query, maker, int64(offerId))
	if err != nil {
		return nil, pgutil.CheckNoRows(err, offer.ErrOfferNotFound)
	}
	return res, nil
}

func dbGetAllByMaker(ctx context.Context, db *sqlx.DB, maker string, cursor q.Cursor, limit uint64, direction q.Ordering) ([]*model, error) {
	res := []*model{}

	query := `SELECT id, address, vault, maker, offer_id, token_mint_a, token_mint_b, token_b_wanted_amount, bump, signature, created_at
		FROM ` + tableName + `
		WHERE (maker = $1)
	`

	opts := []interface{}{maker}
	query, opts = q.PaginateQuery(query, opts, cursor, limit, direction)

	err := db.SelectContext(ctx, &res, query, opts...)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, offer.ErrOfferNotFound)
	}

	if len(res) == 0 {
		return nil, offer.ErrOfferNotFound
	}
	return res, nil
}
