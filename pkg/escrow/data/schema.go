package data

import (
	"context"
	_ "embed"

	"github.com/pkg/errors"

	pg "github.com/code-payments/escrow-server/pkg/database/postgres"
)

//go:embed schema.sql
var Schema string

// MigrateSchema creates the tables used by the postgres stores when they don't
// already exist.
func MigrateSchema(ctx context.Context, dbConfig *pg.Config) error {
	db, err := pg.NewFromConfig(dbConfig)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return errors.Wrap(err, "error applying schema")
	}
	return nil
}
