// =============================================================================
// 📦 relaycore 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import (
	"time"

	sharedcache "github.com/relaycore/relaycore/internal/cache"
	"github.com/relaycore/relaycore/relay/budget"
	"github.com/relaycore/relaycore/relay/cache"
	"github.com/relaycore/relaycore/relay/lifecycle"
	"github.com/relaycore/relaycore/relay/network"
	"github.com/relaycore/relaycore/relay/retry"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Budget:    budget.DefaultConfig(),
		Cache:     cache.DefaultConfig(),
		Redis:     sharedcache.DefaultConfig(),
		Network:   DefaultNetworkConfig(),
		Operator:  network.Credentials{KeyFormat: string(network.KeyFormatDER)},
		Client:    lifecycle.DefaultConfig(),
		Retry:     DefaultRetryConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        9091,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		ReloadInterval:  0,
	}
}

// DefaultNetworkConfig 返回默认下游网络配置
func DefaultNetworkConfig() network.Config {
	return network.Config{
		Network:        "testnet",
		RequestTimeout: 10 * time.Second,
	}
}

// DefaultRetryConfig 返回默认重试配置
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		PollAttempts:   retry.DefaultPollAttempts,
		PollInterval:   0,
		RepeatAttempts: retry.DefaultRepeatAttempts,
		Fee:            retry.DefaultFeeConfig(),
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "relaycore",
		SampleRate:   0.1,
	}
}
