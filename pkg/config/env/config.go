// Package env sources config values from environment variables.
package env

import (
	"context"
	"os"
	"strings"

	"github.com/code-payments/escrow-server/pkg/config"
	"github.com/code-payments/escrow-server/pkg/config/wrapper"
)

// variable is read on every Get, so changes to the environment are observed.
type variable string

// NewConfig returns a config backed by the upper cased environment variable
// key. Values are trimmed and an unset or blank variable has no value.
func NewConfig(key string) config.Config {
	return variable(strings.ToUpper(key))
}

func (v variable) Get(_ context.Context) (interface{}, error) {
	value := strings.TrimSpace(os.Getenv(string(v)))
	if value == "" {
		return nil, config.ErrNoValue
	}
	return []byte(value), nil
}

func (variable) Shutdown() {}

func NewBoolConfig(key string, defaultValue bool) config.Bool {
	return wrapper.NewBoolConfig(NewConfig(key), defaultValue)
}

func NewUint64Config(key string, defaultValue uint64) config.Uint64 {
	return wrapper.NewUint64Config(NewConfig(key), defaultValue)
}
