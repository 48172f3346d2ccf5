package metrics

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/newrelic/go-agent/v3/newrelic"
	grpc_core "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/code-payments/escrow-server/pkg/grpc"
	"github.com/code-payments/escrow-server/pkg/grpc/client"
	"github.com/code-payments/escrow-server/pkg/metrics"
)

type level string

const (
	levelInfo    level = "info"
	levelWarning level = "warning"
	levelError   level = "error"
)

const (
	attrPackage = "grpc.request.package"
	attrService = "grpc.request.service"
	attrMethod  = "grpc.request.method"
	attrIP      = "grpc.client.ip"

	attrStatusCode    = "grpc.response.statusCode"
	attrStatusMessage = "grpc.response.statusMessage"
	attrStatusLevel   = "grpc.response.statusCodeLevel"

	attrResultCode  = "escrow.response.resultCode"
	attrResultLevel = "escrow.response.resultCodeLevel"
)

// Codes absent from these maps are reported at levelError.
var (
	statusLevels = map[codes.Code]level{
		codes.OK:              levelInfo,
		codes.AlreadyExists:   levelInfo,
		codes.Canceled:        levelInfo,
		codes.InvalidArgument: levelInfo,
		codes.NotFound:        levelInfo,
		codes.Unauthenticated: levelInfo,

		codes.Aborted:            levelWarning,
		codes.DeadlineExceeded:   levelWarning,
		codes.FailedPrecondition: levelWarning,
		codes.OutOfRange:         levelWarning,
		codes.PermissionDenied:   levelWarning,
		codes.ResourceExhausted:  levelWarning,
		codes.Unavailable:        levelWarning,
	}

	// A failed transaction is the submitter's problem, not the service's.
	resultLevels = map[string]level{
		"OK":                levelInfo,
		"NOT_FOUND":         levelInfo,
		"TRANSACTION_ERROR": levelInfo,

		"MALFORMED":       levelWarning,
		"INVALID_ACCOUNT": levelWarning,
		"DISABLED":        levelWarning,
		"RATE_LIMITED":    levelWarning,
		"DENIED":          levelWarning,
	}
)

// ResultCoder is implemented by responses carrying a result code.
type ResultCoder interface {
	GetResult() string
}

// CustomNewRelicUnaryServerInterceptor records a New Relic transaction per
// unary call, annotated with the gRPC status and the response's result code.
// A nil app disables recording.
func CustomNewRelicUnaryServerInterceptor(app *newrelic.Application) grpc_core.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc_core.UnaryServerInfo, handler grpc_core.UnaryHandler) (interface{}, error) {
		if app == nil {
			return handler(ctx, req)
		}

		txn := startTransaction(ctx, app, info.FullMethod)
		defer txn.End()

		ctx = metrics.NewContext(ctx, app)
		ctx = newrelic.NewContext(ctx, txn)

		if name, err := grpc.ParseFullMethodName(info.FullMethod); err == nil {
			txn.AddAttribute(attrPackage, name.Package)
			txn.AddAttribute(attrService, name.Service)
			txn.AddAttribute(attrMethod, name.Method)
		}
		if ip, err := client.GetIPAddr(ctx); err == nil {
			txn.AddAttribute(attrIP, ip)
		}

		resp, err := handler(ctx, req)
		recordStatus(txn, status.Convert(err))
		if err != nil {
			return nil, err
		}

		if coder, ok := resp.(ResultCoder); ok && coder.GetResult() != "" {
			recordResult(txn, coder.GetResult())
		}
		return resp, nil
	}
}

func statusLevel(code codes.Code) level {
	if l, ok := statusLevels[code]; ok {
		return l
	}
	return levelError
}

func resultLevel(result string) level {
	if l, ok := resultLevels[result]; ok {
		return l
	}
	return levelError
}

func recordStatus(txn *newrelic.Transaction, s *status.Status) {
	l := statusLevel(s.Code())

	txn.SetWebResponse(nil).WriteHeader(http.StatusOK)
	txn.AddAttribute(attrStatusCode, s.Code().String())
	txn.AddAttribute(attrStatusMessage, s.Message())
	txn.AddAttribute(attrStatusLevel, string(l))

	if l == levelError {
		txn.NoticeError(&newrelic.Error{
			Message: s.Message(),
			Class:   "gRPC Status: " + s.Code().String(),
		})
	}
}

func recordResult(txn *newrelic.Transaction, result string) {
	l := resultLevel(result)

	txn.AddAttribute(attrResultCode, result)
	txn.AddAttribute(attrResultLevel, string(l))

	if l == levelError {
		txn.NoticeError(&newrelic.Error{
			Class: "Escrow RPC Result: " + result,
		})
	}
}

func startTransaction(ctx context.Context, app *newrelic.Application, fullMethod string) *newrelic.Transaction {
	method := strings.TrimPrefix(fullMethod, "/")

	header := http.Header{}
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		for k, vs := range md {
			for _, v := range vs {
				header.Add(k, v)
			}
		}
	}

	txn := app.StartTransaction(method)
	txn.SetWebRequest(newrelic.WebRequest{
		Header:    header,
		URL:       &url.URL{Scheme: "grpc", Host: authorityHost(header.Get(":authority")), Path: method},
		Method:    method,
		Transport: newrelic.TransportHTTP,
	})
	return txn
}

// authorityHost maps a dial target to a URL host. Unix sockets have none.
func authorityHost(target string) string {
	if strings.HasPrefix(target, "unix:") {
		return "localhost"
	}
	return strings.TrimPrefix(target, "dns:///")
}
