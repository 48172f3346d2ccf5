package validation

import (
	"context"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Validator is implemented by messages that can check their own fields.
type Validator interface {
	Validate() error
}

// UnaryServerInterceptor returns a grpc.UnaryServerInterceptor that rejects
// invalid requests with codes.InvalidArgument before they reach the handler.
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	log := logrus.StandardLogger().WithField("type", "grpc/validation/interceptor")

	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if err := validate(req); err != nil {
			// Debug level, since the caller is at fault
			log.WithError(err).WithField("method", info.FullMethod).Debug("dropping invalid request")
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}

		return handler(ctx, req)
	}
}

// UnaryClientInterceptor returns a grpc.UnaryClientInterceptor that rejects
// invalid requests locally with codes.InvalidArgument.
func UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	log := logrus.StandardLogger().WithField("type", "grpc/validation/interceptor")

	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if err := validate(req); err != nil {
			log.WithError(err).WithField("method", method).Warn("dropping invalid request")
			return status.Error(codes.InvalidArgument, err.Error())
		}

		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

func validate(msg interface{}) error {
	if v, ok := msg.(Validator); ok {
		return v.Validate()
	}
	return nil
}
