package main

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/escrow-server/pkg/grpc/app"
)

func main() {
	if err := app.Run(
		newEscrowApp(),
		app.WithDebugHandler("/metrics", promhttp.Handler()),
	); err != nil {
		logrus.WithError(err).Fatal("error running escrowd")
	}
}
