package ledger

import (
	"github.com/code-payments/escrow-server/pkg/config"
	"github.com/code-payments/escrow-server/pkg/config/env"
	"github.com/code-payments/escrow-server/pkg/config/memory"
	"github.com/code-payments/escrow-server/pkg/config/wrapper"
)

const (
	envConfigPrefix = "LEDGER_"

	signatureCacheSizeConfigEnvName = envConfigPrefix + "SIGNATURE_CACHE_SIZE"
	defaultSignatureCacheSize       = 100_000

	lockStripesConfigEnvName = envConfigPrefix + "LOCK_STRIPES"
	defaultLockStripes       = 1024

	maxInvokeDepthConfigEnvName = envConfigPrefix + "MAX_INVOKE_DEPTH"
	defaultMaxInvokeDepth       = 4

	commitAttemptsConfigEnvName = envConfigPrefix + "COMMIT_ATTEMPTS"
	defaultCommitAttempts       = 3
)

type conf struct {
	signatureCacheSize config.Uint64
	lockStripes        config.Uint64
	maxInvokeDepth     config.Uint64
	commitAttempts     config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			signatureCacheSize: env.NewUint64Config(signatureCacheSizeConfigEnvName, defaultSignatureCacheSize),
			lockStripes:        env.NewUint64Config(lockStripesConfigEnvName, defaultLockStripes),
			maxInvokeDepth:     env.NewUint64Config(maxInvokeDepthConfigEnvName, defaultMaxInvokeDepth),
			commitAttempts:     env.NewUint64Config(commitAttemptsConfigEnvName, defaultCommitAttempts),
		}
	}
}

type testOverrides struct {
	signatureCacheSize uint64
	maxInvokeDepth     uint64
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		signatureCacheSize := overrides.signatureCacheSize
		if signatureCacheSize == 0 {
			signatureCacheSize = defaultSignatureCacheSize
		}
		maxInvokeDepth := overrides.maxInvokeDepth
		if maxInvokeDepth == 0 {
			maxInvokeDepth = defaultMaxInvokeDepth
		}

		return &conf{
			signatureCacheSize: wrapper.NewUint64Config(memory.NewConfig(signatureCacheSize), defaultSignatureCacheSize),
			lockStripes:        wrapper.NewUint64Config(memory.NewConfig(uint64(16)), defaultLockStripes),
			maxInvokeDepth:     wrapper.NewUint64Config(memory.NewConfig(maxInvokeDepth), defaultMaxInvokeDepth),
			commitAttempts:     wrapper.NewUint64Config(memory.NewConfig(uint64(1)), defaultCommitAttempts),
		}
	}
}
