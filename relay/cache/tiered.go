package cache

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// 🧱 两级缓存
// =============================================================================

// MultiSet strategies for the Shared tier.
const (
	StrategyMSet     = "mset"
	StrategyPipeline = "pipeline"
)

// Config 两级缓存配置
type Config struct {
	// SharedEnabled 是否使用 Shared 层（还需要提供 Shared 实例）
	SharedEnabled bool `yaml:"shared_enabled" json:"shared_enabled" env:"SHARED_ENABLED"`

	// MultiSetStrategy Shared 层批量写入策略："mset"（原子，不支持 TTL）或 "pipeline"
	MultiSetStrategy string `yaml:"multi_set_strategy" json:"multi_set_strategy" env:"MULTI_SET_STRATEGY"`

	Local LocalConfig `yaml:"local" json:"local" env:"LOCAL"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		SharedEnabled:    false,
		MultiSetStrategy: StrategyPipeline,
		Local:            DefaultLocalConfig(),
	}
}

// FallbackObserver 接收 Shared 层回退事件。实现必须是并发安全的。
type FallbackObserver interface {
	OnTierFallback(operation, method string)
}

// Option 配置 TieredCache
type Option func(*TieredCache)

// WithFallbackObserver 注册回退观察者
func WithFallbackObserver(o FallbackObserver) Option {
	return func(c *TieredCache) {
		c.observer = o
	}
}

// TieredCache 两级缓存。Shared 层的错误永远不会返回给调用方。
type TieredCache struct {
	local    Store
	shared   Store
	strategy string
	enabled  atomic.Bool
	observer FallbackObserver
	logger   *zap.Logger
}

// NewTieredCache 创建两级缓存，shared 可以为 nil。
func NewTieredCache(local, shared Store, config Config, logger *zap.Logger, opts ...Option) *TieredCache {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &TieredCache{
		local:    local,
		shared:   shared,
		strategy: config.MultiSetStrategy,
		logger:   logger.With(zap.String("component", "tiered_cache")),
	}
	if c.strategy == "" {
		c.strategy = StrategyPipeline
	}
	c.enabled.Store(config.SharedEnabled)

	for _, opt := range opts {
		opt(c)
	}

	c.logger.Info("tiered cache initialized",
		zap.Bool("shared", c.sharedActive()),
		zap.String("multi_set_strategy", c.strategy),
	)
	return c
}

// SetSharedEnabled 运行时开关 Shared 层，下一次调用立即生效。
func (c *TieredCache) SetSharedEnabled(enabled bool) {
	c.enabled.Store(enabled)
}

// SharedActive 报告当前调用是否会先访问 Shared 层。
func (c *TieredCache) SharedActive() bool {
	return c.sharedActive()
}

func (c *TieredCache) sharedActive() bool {
	return c.shared != nil && c.enabled.Load()
}

func (c *TieredCache) fallback(operation, method, key string, err error) {
	c.logger.Warn("shared cache unavailable, falling back to local",
		zap.String("operation", operation),
		zap.String("method", method),
		zap.String("key", key),
		zap.Error(err),
	)
	if c.observer != nil {
		c.observer.OnTierFallback(operation, method)
	}
}

// =============================================================================
// 🎯 读写
// =============================================================================

// Get 先查 Shared 层；Shared 出错时改查 Local 层。Shared 未命中即为未命中。
func (c *TieredCache) Get(ctx context.Context, key, method string) ([]byte, bool) {
	if c.sharedActive() {
		value, ok, err := c.shared.Get(ctx, key)
		if err == nil {
			return value, ok
		}
		c.fallback("get", method, key, err)
	}

	value, ok, err := c.local.Get(ctx, key)
	if err != nil {
		c.logger.Debug("local cache get failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return value, ok
}

// Set 写 Shared 层；出错时只写 Local 层。
func (c *TieredCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration, method string) {
	if c.sharedActive() {
		err := c.shared.Set(ctx, key, value, ttl)
		if err == nil {
			return
		}
		c.fallback("set", method, key, err)
	}
	_ = c.local.Set(ctx, key, value, ttl)
}

// MultiSet 批量写入。Shared 层按策略写入，失败时 Local 层逐项带 TTL 写入。
func (c *TieredCache) MultiSet(ctx context.Context, entries map[string][]byte, ttl time.Duration, method string) {
	if len(entries) == 0 {
		return
	}

	if c.sharedActive() {
		var err error
		if c.strategy == StrategyMSet {
			err = c.shared.MultiSet(ctx, entries)
		} else {
			err = c.shared.PipelineSet(ctx, entries, ttl)
		}
		if err == nil {
			return
		}
		c.fallback("multi_set", method, "", err)
	}
	_ = c.local.PipelineSet(ctx, entries, ttl)
}

// Delete 先删 Shared 层（如启用），再无条件删 Local 层。
func (c *TieredCache) Delete(ctx context.Context, key, method string) {
	if c.sharedActive() {
		if err := c.shared.Delete(ctx, key); err != nil {
			c.fallback("delete", method, key, err)
		}
	}
	_ = c.local.Delete(ctx, key)
}

// Clear 先清空 Shared 层（如启用），再无条件清空 Local 层。
func (c *TieredCache) Clear(ctx context.Context, method string) {
	if c.sharedActive() {
		if err := c.shared.Clear(ctx); err != nil {
			c.fallback("clear", method, "", err)
		}
	}
	_ = c.local.Clear(ctx)
}

// =============================================================================
// 🔢 计数器与列表
// =============================================================================

// IncrBy 在 Shared 层原子自增；不可用时在 Local 层读-改-写。
// 只有 Local 层的错误（值不是整数）会返回。
func (c *TieredCache) IncrBy(ctx context.Context, key string, amount int64, method string) (int64, error) {
	if c.sharedActive() {
		n, err := c.shared.IncrBy(ctx, key, amount)
		if err == nil {
			return n, nil
		}
		c.fallback("incr_by", method, key, err)
	}
	return c.local.IncrBy(ctx, key, amount)
}

// RPush 追加到列表末尾，返回新长度。
func (c *TieredCache) RPush(ctx context.Context, key, value, method string) (int64, error) {
	if c.sharedActive() {
		n, err := c.shared.RPush(ctx, key, value)
		if err == nil {
			return n, nil
		}
		c.fallback("rpush", method, key, err)
	}
	return c.local.RPush(ctx, key, value)
}

// LRange 返回 [start, end] 闭区间，负数下标从末尾计数。
func (c *TieredCache) LRange(ctx context.Context, key string, start, end int64, method string) ([]string, error) {
	if c.sharedActive() {
		list, err := c.shared.LRange(ctx, key, start, end)
		if err == nil {
			return list, nil
		}
		c.fallback("lrange", method, key, err)
	}
	return c.local.LRange(ctx, key, start, end)
}

// Keys 按 glob 模式列出键。
func (c *TieredCache) Keys(ctx context.Context, pattern, method string) ([]string, error) {
	if c.sharedActive() {
		keys, err := c.shared.Keys(ctx, pattern)
		if err == nil {
			return keys, nil
		}
		c.fallback("keys", method, pattern, err)
	}
	return c.local.Keys(ctx, pattern)
}
