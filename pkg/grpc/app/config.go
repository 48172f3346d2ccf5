package app

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the free form "app" section handed to App.Init.
type Config map[string]interface{}

// BaseConfig configures the process hosting an App. Every key can also be set
// through the environment variable with the upper cased key name.
type BaseConfig struct {
	AppName  string `mapstructure:"app_name"`
	LogLevel string `mapstructure:"log_level"`

	ListenAddress         string `mapstructure:"listen_address"`
	InsecureListenAddress string `mapstructure:"insecure_listen_address"`
	DebugListenAddress    string `mapstructure:"debug_listen_address"`

	// TLS material is referenced by URL, see LoadFile. The secure listener
	// only starts when both are set.
	TLSCertificate string `mapstructure:"tls_certificate"`
	TLSKey         string `mapstructure:"tls_private_key"`

	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period"`

	EnablePprof  bool `mapstructure:"enable_pprof"`
	EnableExpvar bool `mapstructure:"enable_expvar"`

	// The ballast is a fraction of total memory, capped at maxBallastCapacity.
	EnableBallast   bool    `mapstructure:"enable_ballast"`
	BallastCapacity float32 `mapstructure:"ballast_capacity"`

	// Restarts the process on a cron schedule to bound slow leaks.
	EnableMemoryLeakCron   bool   `mapstructure:"enable_memory_leak_cron"`
	MemoryLeakCronSchedule string `mapstructure:"memory_leak_cron_schedule"`

	NewRelicLicenseKey string `mapstructure:"new_relic_license_key"`

	// Rejects every call except health checks.
	MaintenanceMode bool `mapstructure:"maintenance_mode"`

	AppConfig Config `mapstructure:"app"`
}

const maxBallastCapacity = 0.5

var defaults = map[string]interface{}{
	"log_level": "info",

	"listen_address":          ":8085",
	"insecure_listen_address": ":8086",
	"debug_listen_address":    ":8123",

	"shutdown_grace_period": 30 * time.Second,

	"enable_pprof":  true,
	"enable_expvar": true,

	"enable_ballast":   false,
	"ballast_capacity": 0.333,

	"enable_memory_leak_cron":   false,
	"memory_leak_cron_schedule": "0 5 * * *",
}

var envKeys = []string{
	"app_name",
	"log_level",
	"listen_address",
	"insecure_listen_address",
	"debug_listen_address",
	"tls_certificate",
	"tls_private_key",
	"shutdown_grace_period",
	"enable_pprof",
	"enable_expvar",
	"enable_ballast",
	"ballast_capacity",
	"enable_memory_leak_cron",
	"memory_leak_cron_schedule",
	"new_relic_license_key",
	"maintenance_mode",
}

// loadConfig reads the config file at path, if present, with the environment
// taking precedence.
func loadConfig(v *viper.Viper, path string) (BaseConfig, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for _, key := range envKeys {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return BaseConfig{}, errors.Wrapf(err, "error binding %s", key)
		}
	}

	_, err := os.Stat(path)
	switch {
	case err == nil:
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return BaseConfig{}, errors.Wrapf(err, "error reading %s", path)
		}
	case !os.IsNotExist(err):
		return BaseConfig{}, errors.Wrapf(err, "error checking %s", path)
	}

	var config BaseConfig
	if err := v.Unmarshal(&config); err != nil {
		return BaseConfig{}, errors.Wrap(err, "error decoding config")
	}
	return config, config.validate()
}

func (c *BaseConfig) validate() error {
	if c.AppName == "" {
		return errors.New("app_name is required")
	}
	if (c.TLSCertificate == "") != (c.TLSKey == "") {
		return errors.New("tls_certificate and tls_private_key must be set together")
	}
	if c.BallastCapacity > maxBallastCapacity {
		c.BallastCapacity = maxBallastCapacity
	}
	return nil
}
