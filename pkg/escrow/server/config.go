package server

import (
	"github.com/code-payments/escrow-server/pkg/config"
	"github.com/code-payments/escrow-server/pkg/config/env"
	"github.com/code-payments/escrow-server/pkg/config/memory"
	"github.com/code-payments/escrow-server/pkg/config/wrapper"
)

const (
	envConfigPrefix = "ESCROW_SERVICE_"

	EnableAirdropsConfigEnvName = envConfigPrefix + "ENABLE_AIRDROPS"
	defaultEnableAirdrops       = false

	MaxAirdropLamportsConfigEnvName = envConfigPrefix + "MAX_AIRDROP_LAMPORTS"
	defaultMaxAirdropLamports       = 10_000_000_000

	AirdropsPerMinuteConfigEnvName = envConfigPrefix + "AIRDROPS_PER_MINUTE"
	defaultAirdropsPerMinute       = 5
)

type conf struct {
	enableAirdrops     config.Bool
	maxAirdropLamports config.Uint64
	airdropsPerMinute  config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			enableAirdrops:     env.NewBoolConfig(EnableAirdropsConfigEnvName, defaultEnableAirdrops),
			maxAirdropLamports: env.NewUint64Config(MaxAirdropLamportsConfigEnvName, defaultMaxAirdropLamports),
			airdropsPerMinute:  env.NewUint64Config(AirdropsPerMinuteConfigEnvName, defaultAirdropsPerMinute),
		}
	}
}

type testOverrides struct {
	enableAirdrops     bool
	maxAirdropLamports uint64
	airdropsPerMinute  uint64
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		maxAirdropLamports := overrides.maxAirdropLamports
		if maxAirdropLamports == 0 {
			maxAirdropLamports = defaultMaxAirdropLamports
		}
		airdropsPerMinute := overrides.airdropsPerMinute
		if airdropsPerMinute == 0 {
			airdropsPerMinute = defaultAirdropsPerMinute
		}

		return &conf{
			enableAirdrops:     wrapper.NewBoolConfig(memory.NewConfig(overrides.enableAirdrops), defaultEnableAirdrops),
			maxAirdropLamports: wrapper.NewUint64Config(memory.NewConfig(maxAirdropLamports), defaultMaxAirdropLamports),
			airdropsPerMinute:  wrapper.NewUint64Config(memory.NewConfig(airdropsPerMinute), defaultAirdropsPerMinute),
		}
	}
}
