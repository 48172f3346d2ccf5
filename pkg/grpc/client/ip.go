package client

import (
	"context"
	"errors"
	"net"
	"strings"

	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
)

const (
	clientIPHeader = "x-forwarded-for"
)

// GetIPAddr gets the client's IP address. The first x-forwarded-for entry
// takes precedence over the transport peer.
func GetIPAddr(ctx context.Context) (string, error) {
	if mtdt, ok := metadata.FromIncomingContext(ctx); ok {
		if ipHeaders := mtdt.Get(clientIPHeader); len(ipHeaders) > 0 {
			return strings.TrimSpace(strings.Split(ipHeaders[0], ",")[0]), nil
		}
	}

	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "", errors.New("client ip not available")
	}

	host, _, err := net.SplitHostPort(p.Addr.String())
	if err != nil {
		return "", err
	}
	return host, nil
}
