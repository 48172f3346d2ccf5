package data

import (
	"context"
	"database/sql"
	"sync"

	"github.com/jmoiron/sqlx"

	pg "github.com/code-payments/escrow-server/pkg/database/postgres"
	"github.com/code-payments/escrow-server/pkg/database/query"

	"github.com/code-payments/escrow-server/pkg/escrow/data/account"
	"github.com/code-payments/escrow-server/pkg/escrow/data/offer"

	account_memory_client "github.com/code-payments/escrow-server/pkg/escrow/data/account/memory"
	offer_memory_client "github.com/code-payments/escrow-server/pkg/escrow/data/offer/memory"

	account_postgres_client "github.com/code-payments/escrow-server/pkg/escrow/data/account/postgres"
	offer_postgres_client "github.com/code-payments/escrow-server/pkg/escrow/data/offer/postgres"
)

const (
	maxOfferReqSize = 100
)

type Provider interface {
	// Ledger Accounts
	// --------------------------------------------------------------------------------
	GetLedgerAccount(ctx context.Context, address string) (*account.Record, error)
	GetLedgerAccounts(ctx context.Context, addresses ...string) ([]*account.Record, error)
	SaveLedgerAccounts(ctx context.Context, records ...*account.Record) error

	// Offers
	// --------------------------------------------------------------------------------
	CreateOffer(ctx context.Context, record *offer.Record) error
	GetOfferByAddress(ctx context.Context, address string) (*offer.Record, error)
	GetOfferByMakerAndId(ctx context.Context, maker string, offerId uint64) (*offer.Record, error)
	GetAllOffersByMaker(ctx context.Context, maker string, opts ...query.Option) ([]*offer.Record, error)

	// ExecuteInTx executes fn with a single DB transaction that is scoped to the call.
	// Ledger commits use this so account state and the offer index change together.
	// Nothing written within fn is persisted unless fn returns nil.
	ExecuteInTx(ctx context.Context, isolation sql.IsolationLevel, fn func(ctx context.Context) error) error
}

type DatabaseProvider struct {
	accounts account.Store
	offers   offer.Store

	db *sqlx.DB

	// Serializes writes to the memory stores, which have no transactions
	mu sync.Mutex
}

func NewDatabaseProvider(dbConfig *pg.Config) (Provider, error) {
	db, err := pg.NewFromConfig(dbConfig)
	if err != nil {
		return nil, err
	}

	return &DatabaseProvider{
		accounts: account_postgres_client.New(db),
		offers:   offer_postgres_client.New(db),
		db:       sqlx.NewDb(db, "pgx"),
	}, nil
}

// NewMemoryProvider returns a Provider backed by in-memory stores. Nothing is
// persisted across restarts.
func NewMemoryProvider() Provider {
	return &DatabaseProvider{
		accounts: account_memory_client.New(),
		offers:   offer_memory_client.New(),
	}
}

func (dp *DatabaseProvider) ExecuteInTx(ctx context.Context, isolation sql.IsolationLevel, fn func(ctx context.Context) error) error {
	if dp.db == nil {
		return dp.executeInMemoryTx(ctx, fn)
	}

	return pg.ExecuteTxWithinCtx(ctx, dp.db, isolation, fn)
}

// Ledger Accounts
// --------------------------------------------------------------------------------
func (dp *DatabaseProvider) GetLedgerAccount(ctx context.Context, address string) (*account.Record, error) {
	return dp.accounts.Get(ctx, address)
}
func (dp *DatabaseProvider) GetLedgerAccounts(ctx context.Context, addresses ...string) ([]*account.Record, error) {
	return dp.accounts.GetMany(ctx, addresses...)
}
func (dp *DatabaseProvider) SaveLedgerAccounts(ctx context.Context, records ...*account.Record) error {
	if dp.db != nil {
		return dp.accounts.SaveBatch(ctx, records...)
	}

	if tx, ok := memoryTxFromContext(ctx); ok {
		return tx.saveAccounts(ctx, dp.accounts, records)
	}

	dp.mu.Lock()
	defer dp.mu.Unlock()
	return dp.accounts.SaveBatch(ctx, records...)
}

// Offers
// --------------------------------------------------------------------------------
func (dp *DatabaseProvider) CreateOffer(ctx context.Context, record *offer.Record) error {
	if dp.db != nil {
		return dp.offers.Put(ctx, record)
	}

	if tx, ok := memoryTxFromContext(ctx); ok {
		return tx.createOffer(ctx, dp.offers, record)
	}

	dp.mu.Lock()
	defer dp.mu.Unlock()
	return dp.offers.Put(ctx, record)
}
func (dp *DatabaseProvider) GetOfferByAddress(ctx context.Context, address string) (*offer.Record, error) {
	return dp.offers.GetByAddress(ctx, address)
}
func (dp *DatabaseProvider) GetOfferByMakerAndId(ctx context.Context, maker string, offerId uint64) (*offer.Record, error) {
	return dp.offers.GetByMakerAndId(ctx, maker, offerId)
}
func (dp *DatabaseProvider) GetAllOffersByMaker(ctx context.Context, maker string, opts ...query.Option) ([]*offer.Record, error) {
	req, err := query.DefaultPaginationHandlerWithLimit(maxOfferReqSize, opts...)
	if err != nil {
		return nil, err
	}

	return dp.offers.GetAllByMaker(ctx, maker, req.Cursor, req.Limit, req.SortBy)
}
