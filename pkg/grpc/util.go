package grpc

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

var healthCheckMethod = "/" + grpc_health_v1.Health_ServiceDesc.ServiceName + "/Check"

// MethodName is a parsed /package.Service/Method string.
type MethodName struct {
	Package string
	Service string
	Method  string
}

// ParseFullMethodName splits a full gRPC method name. A package is required.
func ParseFullMethodName(fullMethodName string) (MethodName, error) {
	service, method, ok := strings.Cut(strings.TrimPrefix(fullMethodName, "/"), "/")
	if !ok || !strings.HasPrefix(fullMethodName, "/") || !isIdentifier(method) {
		return MethodName{}, errors.Errorf("invalid full method name: %q", fullMethodName)
	}

	segments := strings.Split(service, ".")
	if len(segments) < 2 {
		return MethodName{}, errors.Errorf("full method name has no package: %q", fullMethodName)
	}
	for _, segment := range segments {
		if !isIdentifier(segment) {
			return MethodName{}, errors.Errorf("invalid full method name: %q", fullMethodName)
		}
	}

	return MethodName{
		Package: strings.Join(segments[:len(segments)-1], "."),
		Service: segments[len(segments)-1],
		Method:  method,
	}, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9' || r == '_') {
			return false
		}
	}
	return true
}

// MaintenanceModeUnaryServerInterceptor rejects every unary RPC except health
// checks with UNAVAILABLE.
func MaintenanceModeUnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if info.FullMethod != healthCheckMethod {
			return nil, status.Error(codes.Unavailable, "temporarily unavailable")
		}
		return handler(ctx, req)
	}
}
