package app

import (
	"net/http"

	"google.golang.org/grpc"
)

// Option configures the environment run by Run().
type Option func(o *opts)

type opts struct {
	unaryServerInterceptors []grpc.UnaryServerInterceptor
	debugHandlers           map[string]http.Handler
}

// WithUnaryServerInterceptor configures the app's gRPC server to use the provided interceptor.
//
// Interceptors are evaluated in addition order, after the app's default interceptors.
func WithUnaryServerInterceptor(interceptor grpc.UnaryServerInterceptor) Option {
	return func(o *opts) {
		o.unaryServerInterceptors = append(o.unaryServerInterceptors, interceptor)
	}
}

// WithDebugHandler serves handler on the debug listener at pattern.
func WithDebugHandler(pattern string, handler http.Handler) Option {
	return func(o *opts) {
		if o.debugHandlers == nil {
			o.debugHandlers = make(map[string]http.Handler)
		}
		o.debugHandlers[pattern] = handler
	}
}
