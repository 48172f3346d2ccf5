package client

import (
	"context"

	"github.com/sirupsen/logrus"
)

// InjectLoggingMetadata adds the caller's address, when known, to log.
func InjectLoggingMetadata(ctx context.Context, log *logrus.Entry) *logrus.Entry {
	if ip, err := GetIPAddr(ctx); err == nil {
		return log.WithField("client_ip", ip)
	}
	return log
}
