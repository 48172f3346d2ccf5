package app

import (
	"crypto/tls"
	"expvar"
	"flag"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthgrpc "google.golang.org/grpc/health/grpc_health_v1"

	grpc_util "github.com/code-payments/escrow-server/pkg/grpc"
	"github.com/code-payments/escrow-server/pkg/grpc/metrics"
	"github.com/code-payments/escrow-server/pkg/grpc/validation"
	metrics_util "github.com/code-payments/escrow-server/pkg/metrics"
	"github.com/code-payments/escrow-server/pkg/osutil"
)

// App is a service hosted by Run for the lifetime of the process.
type App interface {
	// Init blocks until the app can serve requests. metricsProvider is nil
	// unless New Relic is configured.
	Init(config Config, metricsProvider *newrelic.Application) error

	// RegisterWithGRPC is called once per listener.
	RegisterWithGRPC(server *grpc.Server)

	// ShutdownChan is closed when the app wants the process to exit.
	ShutdownChan() <-chan struct{}

	// Stop is called after the gRPC servers have drained. It must be
	// idempotent.
	Stop()
}

var configPath = flag.String("config", "config.yaml", "configuration file path")

// listener is a gRPC server bound to one address.
type listener struct {
	name   string
	lis    net.Listener
	server *grpc.Server
}

// Run hosts app until the process is signalled, a listener fails, or the app
// shuts itself down.
func Run(app App, options ...Option) error {
	flag.Parse()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
	defer signal.Stop(signals)

	config, err := loadConfig(viper.New(), *configPath)
	if err != nil {
		return err
	}

	var o opts
	for _, option := range options {
		option(&o)
	}

	metricsProvider, err := newMetricsProvider(config)
	if err != nil {
		return err
	}
	configureLogger(config, metricsProvider)

	log := logrus.StandardLogger().WithField("type", "grpc/app")

	startDebugServer(config, o.debugHandlers, log)

	var ballast []byte
	if config.EnableBallast {
		ballast = make([]byte, uint64(float64(config.BallastCapacity)*float64(osutil.GetTotalMemory())))
	}

	restart := make(chan struct{})
	if config.EnableMemoryLeakCron {
		scheduler := cron.New(cron.WithLocation(time.UTC))
		if _, err := scheduler.AddFunc(config.MemoryLeakCronSchedule, func() { close(restart) }); err != nil {
			return errors.Wrap(err, "invalid memory leak cron schedule")
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	if config.MaintenanceMode {
		log.Warn("maintenance mode enabled, rejecting all calls other than health checks")
	}
	listeners, err := newListeners(config, unaryServerInterceptors(config, metricsProvider, o))
	if err != nil {
		return err
	}

	if err := app.Init(config.AppConfig, metricsProvider); err != nil {
		closeListeners(listeners)
		return errors.Wrap(err, "error initializing app")
	}

	stopped := make(chan string, len(listeners))
	for _, l := range listeners {
		app.RegisterWithGRPC(l.server)
		healthgrpc.RegisterHealthServer(l.server, health.NewServer())

		go func(l *listener) {
			log := log.WithField("listener", l.name)
			if err := l.server.Serve(l.lis); err != nil {
				log.WithError(err).Error("grpc server failed")
			} else {
				log.Info("grpc server stopped")
			}
			stopped <- l.name
		}(l)
	}

	select {
	case sig := <-signals:
		log.WithField("signal", sig.String()).Info("shutting down")
	case name := <-stopped:
		log.WithField("listener", name).Info("listener stopped, shutting down")
	case <-restart:
		log.Info("scheduled restart, shutting down")
	case <-app.ShutdownChan():
		log.Info("app shut down")
	}

	done := make(chan struct{})
	go func() {
		for _, l := range listeners {
			l.server.GracefulStop()
		}
		app.Stop()
		close(done)
	}()

	select {
	case <-done:
		if len(ballast) > 0 {
			ballast[0] = 1
		}
		return nil
	case <-time.After(config.ShutdownGracePeriod):
		return errors.Errorf("failed to stop within %v", config.ShutdownGracePeriod)
	}
}

func newMetricsProvider(config BaseConfig) (*newrelic.Application, error) {
	if config.NewRelicLicenseKey == "" {
		return nil, nil
	}

	app, err := newrelic.NewApplication(
		newrelic.ConfigFromEnvironment(),
		newrelic.ConfigAppName(config.AppName),
		newrelic.ConfigLicense(config.NewRelicLicenseKey),
		newrelic.ConfigDistributedTracerEnabled(true),
		newrelic.ConfigAppLogForwardingEnabled(true),
	)
	if err != nil {
		return nil, errors.Wrap(err, "error connecting to new relic")
	}
	return app, nil
}

// The metrics interceptor runs first so rejected calls are still recorded.
func unaryServerInterceptors(config BaseConfig, metricsProvider *newrelic.Application, o opts) []grpc.UnaryServerInterceptor {
	var interceptors []grpc.UnaryServerInterceptor
	if metricsProvider != nil {
		interceptors = append(interceptors, metrics.CustomNewRelicUnaryServerInterceptor(metricsProvider))
	}
	if config.MaintenanceMode {
		interceptors = append(interceptors, grpc_util.MaintenanceModeUnaryServerInterceptor())
	}
	interceptors = append(interceptors, validation.UnaryServerInterceptor())
	return append(interceptors, o.unaryServerInterceptors...)
}

func newListeners(config BaseConfig, interceptors []grpc.UnaryServerInterceptor) ([]*listener, error) {
	chain := grpc_middleware.WithUnaryServerChain(interceptors...)

	lis, err := net.Listen("tcp", config.InsecureListenAddress)
	if err != nil {
		return nil, errors.Wrapf(err, "error listening on %s", config.InsecureListenAddress)
	}
	listeners := []*listener{{name: "insecure", lis: lis, server: grpc.NewServer(chain)}}

	if config.TLSCertificate == "" {
		return listeners, nil
	}

	creds, err := loadTLSCredentials(config)
	if err != nil {
		closeListeners(listeners)
		return nil, err
	}

	lis, err = net.Listen("tcp", config.ListenAddress)
	if err != nil {
		closeListeners(listeners)
		return nil, errors.Wrapf(err, "error listening on %s", config.ListenAddress)
	}
	return append(listeners, &listener{name: "secure", lis: lis, server: grpc.NewServer(grpc.Creds(creds), chain)}), nil
}

func loadTLSCredentials(config BaseConfig) (credentials.TransportCredentials, error) {
	cert, err := LoadFile(config.TLSCertificate)
	if err != nil {
		return nil, errors.Wrap(err, "error loading tls certificate")
	}
	key, err := LoadFile(config.TLSKey)
	if err != nil {
		return nil, errors.Wrap(err, "error loading tls key")
	}

	pair, err := tls.X509KeyPair(cert, key)
	if err != nil {
		return nil, errors.Wrap(err, "invalid tls certificate or key")
	}
	return credentials.NewServerTLSFromCert(&pair), nil
}

func closeListeners(listeners []*listener) {
	for _, l := range listeners {
		l.lis.Close()
	}
}

// startDebugServer serves pprof, expvar and the registered debug handlers on
// their own listener, which must never be exposed publicly.
func startDebugServer(config BaseConfig, handlers map[string]http.Handler, log *logrus.Entry) {
	if !config.EnablePprof && !config.EnableExpvar && len(handlers) == 0 {
		return
	}

	// Importing pprof and expvar registers them on the default mux.
	http.DefaultServeMux = http.NewServeMux()

	mux := http.NewServeMux()
	for pattern, handler := range handlers {
		mux.Handle(pattern, handler)
	}
	if config.EnableExpvar {
		mux.Handle("/debug/vars", expvar.Handler())
	}
	if config.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	go func() {
		for {
			err := http.ListenAndServe(config.DebugListenAddress, mux)
			log.WithError(err).Warn("debug http server failed, retrying in 5s")
			time.Sleep(5 * time.Second)
		}
	}()
}

func configureLogger(config BaseConfig, metricsProvider *newrelic.Application) {
	var formatter logrus.Formatter = &logrus.JSONFormatter{}
	if metricsProvider != nil {
		formatter = metrics_util.NewNewRelicLogFormatter(metricsProvider, formatter)
	}
	logrus.SetFormatter(formatter)
	logrus.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(strings.ToLower(config.LogLevel))
	if err != nil {
		logrus.WithField("log_level", config.LogLevel).Warn("unknown log level, ignoring")
		return
	}
	logrus.SetLevel(level)
}
