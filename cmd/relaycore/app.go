package main

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/relaycore/relaycore/config"
	internalcache "github.com/relaycore/relaycore/internal/cache"
	"github.com/relaycore/relaycore/internal/metrics"
	"github.com/relaycore/relaycore/internal/server"
	"github.com/relaycore/relaycore/internal/telemetry"
	"github.com/relaycore/relaycore/relay"
	"github.com/relaycore/relaycore/relay/budget"
	"github.com/relaycore/relaycore/relay/cache"
	"github.com/relaycore/relaycore/relay/lifecycle"
	"github.com/relaycore/relaycore/relay/network"
	"github.com/relaycore/relaycore/relay/retry"
)

// =============================================================================
// 🧩 组件装配
// =============================================================================

// app 持有 serve 命令装配出的全部组件
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	level  zap.AtomicLevel

	registry  *prometheus.Registry
	collector *metrics.Collector
	telemetry *telemetry.Providers

	shared   *internalcache.Manager
	tiered   *cache.TieredCache
	clients  *lifecycle.Manager
	gateway  *relay.Gateway
	ops      *server.Manager
	reloader *config.Reloader
}

func newApp(cfg *config.Config, configPath string, level zap.AtomicLevel, factory network.Factory, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, level: level}

	// 1. 指标
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.collector = metrics.NewCollector("relay", a.registry, logger)

	// 2. 遥测（失败时降级为 noop）
	providers, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
		providers = &telemetry.Providers{}
	}
	a.telemetry = providers

	// 3. 预算
	limiter := budget.NewLimiter(cfg.Budget, time.Now(), logger, budget.WithObserver(a.collector))

	// 4. 缓存：Shared 层不可用时只用 Local 层
	var sharedStore cache.Store
	if cfg.Cache.SharedEnabled {
		shared, err := internalcache.NewManager(cfg.Redis, logger)
		if err != nil {
			logger.Warn("shared cache unavailable, using local tier only",
				zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			a.shared = shared
			sharedStore = shared
		}
	}
	a.tiered = cache.NewTieredCache(cache.NewLocalStore(cfg.Cache.Local), sharedStore, cfg.Cache, logger,
		cache.WithFallbackObserver(a.collector))

	// 5. 下游客户端
	a.clients, err = lifecycle.NewManager(cfg.Client, cfg.Network, cfg.Operator, factory, logger,
		lifecycle.WithObserver(a.collector))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("client lifecycle: %w", err)
	}

	// 6. Gateway
	fee, err := retry.NewFeeEscalator(cfg.Retry.Fee, retry.WithLogger(logger))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("fee escalator: %w", err)
	}
	a.gateway, err = relay.New(relay.Components{
		Limiter: limiter,
		Cache:   a.tiered,
		Clients: a.clients,
		Fee:     fee,
	}, logger,
		relay.WithRetryPolicy(relay.RetryPolicy{
			PollAttempts:   cfg.Retry.PollAttempts,
			PollInterval:   cfg.Retry.PollInterval,
			RepeatAttempts: cfg.Retry.RepeatAttempts,
		}),
		relay.WithMetrics(a.collector),
		relay.WithRetryObserver(a.collector),
		relay.WithTracerProvider(providers.TracerProvider()),
		relay.WithMeterProvider(providers.MeterProvider()),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("gateway: %w", err)
	}

	// 7. 运维服务器
	var checks []server.Check
	if a.shared != nil {
		checks = append(checks, server.Check{Name: "shared_cache", Probe: a.shared.Ping})
	}
	handler := server.NewOpsHandler(server.HandlerOptions{
		Gatherer:        a.registry,
		Checks:          checks,
		Details:         func() any { return a.gateway.Status() },
		RequestObserver: a.collector.RecordHTTPRequest,
		Logger:          logger,
	})
	a.ops = server.NewManager(handler, server.Config{
		Addr:            fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger)

	// 8. 配置热加载
	if configPath != "" && cfg.Server.ReloadInterval > 0 {
		a.reloader = config.NewReloader(configPath, cfg.Server.ReloadInterval, cfg, logger)
		a.reloader.OnReload(a.applyReload)
	}

	return a, nil
}

// Start 启动运维服务器与配置轮询
func (a *app) Start(ctx context.Context) error {
	if err := a.ops.Start(); err != nil {
		return err
	}
	if a.reloader != nil {
		go a.reloader.Run(ctx)
	}
	a.logger.Info("relaycore started",
		zap.String("ops_addr", a.ops.Addr()),
		zap.Bool("shared_cache", a.tiered.SharedActive()),
		zap.Bool("hot_reload_enabled", a.reloader != nil),
	)
	return nil
}

// Wait 阻塞直到收到关闭信号或 ctx 取消
func (a *app) Wait(ctx context.Context) {
	a.ops.WaitForShutdown(ctx)
}

// Close 释放外部资源，可重复调用
func (a *app) Close() {
	if a.ops != nil {
		_ = a.ops.Shutdown(context.Background())
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.telemetry.Shutdown(ctx); err != nil {
		a.logger.Warn("telemetry shutdown failed", zap.Error(err))
	}
	if a.shared != nil {
		if err := a.shared.Close(); err != nil {
			a.logger.Warn("shared cache close failed", zap.Error(err))
		}
	}
}

// applyReload 应用可热更新的字段，其余字段变更需要重启
func (a *app) applyReload(old, updated *config.Config) {
	a.level.SetLevel(parseLevel(updated.Log.Level))
	a.tiered.SetSharedEnabled(updated.Cache.SharedEnabled)

	a.logger.Info("applied config reload",
		zap.String("log_level", updated.Log.Level),
		zap.Bool("shared_cache", a.tiered.SharedActive()),
	)

	restart := map[string]bool{
		"budget":   !reflect.DeepEqual(old.Budget, updated.Budget),
		"client":   !reflect.DeepEqual(old.Client, updated.Client),
		"network":  !reflect.DeepEqual(old.Network, updated.Network),
		"operator": old.Operator != updated.Operator,
		"redis":    old.Redis != updated.Redis,
		"retry":    old.Retry != updated.Retry,
		"server":   old.Server != updated.Server,
	}
	for section, changed := range restart {
		if changed {
			a.logger.Warn("config section changed, restart required to apply", zap.String("section", section))
		}
	}
}
