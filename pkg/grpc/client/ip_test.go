package client

import (
	"context"
	"net"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
)

func TestGetIPAddr(t *testing.T) {
	tt := map[string]struct {
		ctx        context.Context
		hasIP      bool
		expectedIP string
	}{
		"emptyContext": {
			ctx:   context.Background(),
			hasIP: false,
		},
		"contextWithoutClientIP": {
			ctx: metadata.NewIncomingContext(
				context.Background(),
				metadata.MD{"key": []string{"value"}},
			),
			hasIP: false,
		},
		"contextWithClientIP": {
			ctx: metadata.NewIncomingContext(
				context.Background(),
				metadata.MD{clientIPHeader: []string{"127.0.0.1"}},
			),
			hasIP:      true,
			expectedIP: "127.0.0.1",
		},
		"contextWithProxyChain": {
			ctx: metadata.NewIncomingContext(
				context.Background(),
				metadata.MD{clientIPHeader: []string{"10.0.0.1, 10.0.0.2"}},
			),
			hasIP:      true,
			expectedIP: "10.0.0.1",
		},
		"contextWithPeer": {
			ctx: peer.NewContext(
				context.Background(),
				&peer.Peer{Addr: &net.TCPAddr{IP: net.ParseIP("192.168.1.1"), Port: 8086}},
			),
			hasIP:      true,
			expectedIP: "192.168.1.1",
		},
	}

	for name, tc := range tt {
		t.Run(name, func(t *testing.T) {
			actual, err := GetIPAddr(tc.ctx)
			assert.Equal(t, tc.hasIP, err == nil)
			assert.Equal(t, tc.expectedIP, actual)
		})
	}
}

func TestInjectLoggingMetadata(t *testing.T) {
	log := logrus.NewEntry(logrus.New())

	assert.NotContains(t, InjectLoggingMetadata(context.Background(), log).Data, "client_ip")

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-forwarded-for", "10.0.0.1, 10.0.0.2"))
	assert.Equal(t, "10.0.0.1", InjectLoggingMetadata(ctx, log).Data["client_ip"])
}
