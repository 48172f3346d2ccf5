package config

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrNoValue indicates no value was set for the config
	ErrNoValue = errors.New("config: no value set")

	// ErrShutdown indicates the use of a Config after calling Shutdown
	ErrShutdown = errors.New("config: shutdown")
)

// Config is a source of untyped configuration values. Sources that read text,
// like the environment, yield []byte.
type Config interface {
	// Get returns the latest config value
	Get(ctx context.Context) (interface{}, error)

	// Shutdown signals the config to stop all underlying resources
	Shutdown()
}

// Value is a typed view over a Config that falls back to a default.
type Value[T any] interface {
	// Get returns the latest value, ignoring errors
	Get(ctx context.Context) T

	// GetSafe returns the latest value. On error, the last known value is
	// returned alongside it.
	GetSafe(ctx context.Context) (T, error)

	Shutdown()
}

// Bool provides a boolean typed config.Config.
type Bool interface {
	Value[bool]
}

// Uint64 provides a uint64 typed config.Config.
type Uint64 interface {
	Value[uint64]
}
