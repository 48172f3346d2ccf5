package main

import (
	"context"
	"sync"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/code-payments/escrow-server/pkg/escrow/api"
	"github.com/code-payments/escrow-server/pkg/escrow/data"
	"github.com/code-payments/escrow-server/pkg/escrow/indexer"
	escrow_program "github.com/code-payments/escrow-server/pkg/escrow/program"
	"github.com/code-payments/escrow-server/pkg/escrow/server"
	"github.com/code-payments/escrow-server/pkg/grpc/app"
	"github.com/code-payments/escrow-server/pkg/ledger"
)

const (
	migrationTimeout = time.Minute
)

type escrowApp struct {
	log *logrus.Entry

	service api.EscrowServer

	shutdownCh chan struct{}
	stopOnce   sync.Once
}

func newEscrowApp() *escrowApp {
	return &escrowApp{
		log:        logrus.StandardLogger().WithField("type", "escrowd/app"),
		shutdownCh: make(chan struct{}),
	}
}

// Init implements app.App.Init
func (a *escrowApp) Init(config app.Config, metricsProvider *newrelic.Application) error {
	conf, err := decodeAppConfig(config)
	if err != nil {
		return err
	}

	provider, err := a.newDataProvider(conf)
	if err != nil {
		return err
	}

	bank, err := ledger.NewBank(provider, ledger.WithEnvConfigs(), escrow_program.New())
	if err != nil {
		return errors.Wrap(err, "error initializing ledger")
	}
	bank.AddCommitHook(indexer.NewOfferHandler(provider))

	a.service, err = server.NewEscrowServer(provider, bank, server.WithEnvConfigs())
	if err != nil {
		return errors.Wrap(err, "error initializing escrow service")
	}

	a.log.WithFields(logrus.Fields{
		"storage":   conf.Storage,
		"new_relic": metricsProvider != nil,
	}).Info("escrow service initialized")
	return nil
}

func (a *escrowApp) newDataProvider(conf *appConfig) (data.Provider, error) {
	if conf.Storage == storageMemory {
		a.log.Warn("using in-memory storage, ledger state is lost on restart")
		return data.NewMemoryProvider(), nil
	}

	pgConfig := conf.Postgres.toPgConfig()
	if conf.MigrateSchema {
		ctx, cancel := context.WithTimeout(context.Background(), migrationTimeout)
		defer cancel()

		if err := data.MigrateSchema(ctx, pgConfig); err != nil {
			return nil, errors.Wrap(err, "error migrating schema")
		}
	}

	provider, err := data.NewDatabaseProvider(pgConfig)
	if err != nil {
		return nil, errors.Wrap(err, "error connecting to postgres")
	}
	return provider, nil
}

// RegisterWithGRPC implements app.App.RegisterWithGRPC
func (a *escrowApp) RegisterWithGRPC(server *grpc.Server) {
	api.RegisterEscrowServer(server, a.service)
}

// ShutdownChan implements app.App.ShutdownChan
func (a *escrowApp) ShutdownChan() <-chan struct{} {
	return a.shutdownCh
}

// Stop implements app.App.Stop
func (a *escrowApp) Stop() {
	a.stopOnce.Do(func() {
		close(a.shutdownCh)
	})
}
