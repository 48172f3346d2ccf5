package testutil

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/code-payments/escrow-server/pkg/grpc/validation"
	"github.com/code-payments/escrow-server/pkg/retry"
	"github.com/code-payments/escrow-server/pkg/retry/backoff"
)

const bufferSize = 1 << 20

// StartServer serves the services added by register over an in-memory
// listener, with the same validation interceptors escrowd installs. The
// returned connection is ready for calls and is closed with the server when
// the test completes.
func StartServer(t *testing.T, register func(*grpc.Server)) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(bufferSize)

	server := grpc.NewServer(grpc.ChainUnaryInterceptor(validation.UnaryServerInterceptor()))
	grpc_health_v1.RegisterHealthServer(server, health.NewServer())
	register(server)

	go func() {
		_ = server.Serve(lis)
	}()

	conn, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithChainUnaryInterceptor(validation.UnaryClientInterceptor()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		server.Stop()
	})

	healthClient := grpc_health_v1.NewHealthClient(conn)
	_, err = retry.Retry(
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			_, err := healthClient.Check(ctx, &grpc_health_v1.HealthCheckRequest{})
			return err
		},
		retry.Limit(10),
		retry.Backoff(backoff.Constant(50*time.Millisecond), 50*time.Millisecond),
	)
	require.NoError(t, err, "test server never became healthy")

	return conn
}
