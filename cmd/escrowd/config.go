package main

import (
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	pg "github.com/code-payments/escrow-server/pkg/database/postgres"
	"github.com/code-payments/escrow-server/pkg/grpc/app"
)

const (
	storageMemory   = "memory"
	storagePostgres = "postgres"
)

// appConfig is decoded from the "app" section of the base config.
type appConfig struct {
	Storage       string         `mapstructure:"storage"`
	MigrateSchema bool           `mapstructure:"migrate_schema"`
	Postgres      postgresConfig `mapstructure:"postgres"`
}

type postgresConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	DbName             string `mapstructure:"db_name"`
	MaxOpenConnections int    `mapstructure:"max_open_connections"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections"`
}

var defaultAppConfig = appConfig{
	Storage: storageMemory,
	Postgres: postgresConfig{
		Port:               5432,
		MaxOpenConnections: 10,
		MaxIdleConnections: 10,
	},
}

func decodeAppConfig(raw app.Config) (*appConfig, error) {
	config := defaultAppConfig

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &config,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(map[string]interface{}(raw)); err != nil {
		return nil, errors.Wrap(err, "invalid app config")
	}

	switch config.Storage {
	case storageMemory:
	case storagePostgres:
		if len(config.Postgres.Host) == 0 || len(config.Postgres.DbName) == 0 {
			return nil, errors.New("postgres host and db_name are required")
		}
	default:
		return nil, errors.Errorf("unsupported storage %q", config.Storage)
	}

	return &config, nil
}

func (c *postgresConfig) toPgConfig() *pg.Config {
	return &pg.Config{
		User:               c.User,
		Host:               c.Host,
		Password:           c.Password,
		Port:               c.Port,
		DbName:             c.DbName,
		MaxOpenConnections: c.MaxOpenConnections,
		MaxIdleConnections: c.MaxIdleConnections,
	}
}
