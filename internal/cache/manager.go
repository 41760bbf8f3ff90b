package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/relaycore/relaycore/internal/tlsutil"
	relaycache "github.com/relaycore/relaycore/relay/cache"
)

// =============================================================================
// 💾 Shared 层缓存管理器
// =============================================================================

// ErrClosed 管理器已关闭
var ErrClosed = errors.New("cache manager is closed")

// Manager 基于 Redis 的 Shared 层，实现 relay/cache.Store
type Manager struct {
	redis  *redis.Client
	config Config
	logger *zap.Logger

	mu      sync.RWMutex
	closed  bool
	healthy atomic.Bool
	done    chan struct{}
}

var _ relaycache.Store = (*Manager)(nil)

// Config Redis 配置
type Config struct {
	// Redis 地址
	Addr string `yaml:"addr" json:"addr" env:"ADDR"`

	// 密码
	Password string `yaml:"password" json:"-" env:"PASSWORD"`

	// 数据库编号
	DB int `yaml:"db" json:"db" env:"DB"`

	// KeyPrefix 所有键的前缀，多个实例共享同一个库时用于隔离
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix" env:"KEY_PREFIX"`

	// 默认过期时间，0 表示不过期
	DefaultTTL time.Duration `yaml:"default_ttl" json:"default_ttl" env:"DEFAULT_TTL"`

	// 最大重试次数
	MaxRetries int `yaml:"max_retries" json:"max_retries" env:"MAX_RETRIES"`

	// 连接池大小
	PoolSize int `yaml:"pool_size" json:"pool_size" env:"POOL_SIZE"`

	// 最小空闲连接数
	MinIdleConns int `yaml:"min_idle_conns" json:"min_idle_conns" env:"MIN_IDLE_CONNS"`

	// 单次命令超时
	OperationTimeout time.Duration `yaml:"operation_timeout" json:"operation_timeout" env:"OPERATION_TIMEOUT"`

	// 健康检查间隔
	HealthCheckInterval time.Duration `yaml:"health_check_interval" json:"health_check_interval" env:"HEALTH_CHECK_INTERVAL"`

	// TLS 是否使用 TLS 连接（托管 Redis）
	TLS bool `yaml:"tls" json:"tls" env:"TLS"`
}

// DefaultConfig 返回默认缓存配置
func DefaultConfig() Config {
	return Config{
		Addr:                "localhost:6379",
		DB:                  0,
		DefaultTTL:          5 * time.Minute,
		MaxRetries:          1,
		PoolSize:            10,
		MinIdleConns:        2,
		OperationTimeout:    time.Second,
		HealthCheckInterval: 30 * time.Second,
	}
}

// NewManager 创建缓存管理器，构造时 Ping 一次。
func NewManager(config Config, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(redisOptions(config))

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	m := &Manager{
		redis:  client,
		config: config,
		logger: logger.With(zap.String("component", "shared_cache")),
		done:   make(chan struct{}),
	}
	m.healthy.Store(true)

	// 启动健康检查
	if config.HealthCheckInterval > 0 {
		go m.healthCheckLoop()
	}

	m.logger.Info("shared cache initialized",
		zap.String("addr", config.Addr),
		zap.String("key_prefix", config.KeyPrefix),
		zap.Int("pool_size", config.PoolSize),
	)

	return m, nil
}

// redisOptions 将 Config 转换为 go-redis 连接参数
func redisOptions(config Config) *redis.Options {
	opts := &redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		MaxRetries:   config.MaxRetries,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		ReadTimeout:  config.OperationTimeout,
		WriteTimeout: config.OperationTimeout,
	}
	if config.TLS {
		opts.TLSConfig = tlsutil.ForAddr(config.Addr)
	}
	return opts
}

// Name 实现 Store
func (m *Manager) Name() string { return relaycache.TierShared }

// Healthy 最近一次健康检查是否成功
func (m *Manager) Healthy() bool { return m.healthy.Load() }

func (m *Manager) key(k string) string { return m.config.KeyPrefix + k }

func (m *Manager) ttl(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return m.config.DefaultTTL
	}
	return ttl
}

// guard 在读锁下执行 fn，已关闭时返回 ErrClosed。
func (m *Manager) guard(fn func() error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}
	return fn()
}

// =============================================================================
// 🎯 Store 实现
// =============================================================================

func (m *Manager) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		val   []byte
		found bool
	)
	err := m.guard(func() error {
		b, err := m.redis.Get(ctx, m.key(key)).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("cache get failed: %w", err)
		}
		val, found = b, true
		return nil
	})
	return val, found, err
}

func (m *Manager) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.guard(func() error {
		if err := m.redis.Set(ctx, m.key(key), value, m.ttl(ttl)).Err(); err != nil {
			return fmt.Errorf("cache set failed: %w", err)
		}
		return nil
	})
}

// MultiSet 使用 MSET 原子写入，不设置过期时间。
func (m *Manager) MultiSet(ctx context.Context, entries map[string][]byte) error {
	if len(entries) == 0 {
		return nil
	}
	return m.guard(func() error {
		pairs := make([]any, 0, 2*len(entries))
		for k, v := range entries {
			pairs = append(pairs, m.key(k), v)
		}
		if err := m.redis.MSet(ctx, pairs...).Err(); err != nil {
			return fmt.Errorf("cache mset failed: %w", err)
		}
		return nil
	})
}

// PipelineSet 在一个 pipeline 中逐键 SET 并带 TTL。
func (m *Manager) PipelineSet(ctx context.Context, entries map[string][]byte, ttl time.Duration) error {
	if len(entries) == 0 {
		return nil
	}
	return m.guard(func() error {
		expiration := m.ttl(ttl)
		_, err := m.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			for k, v := range entries {
				pipe.Set(ctx, m.key(k), v, expiration)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("cache pipeline set failed: %w", err)
		}
		return nil
	})
}

func (m *Manager) Delete(ctx context.Context, key string) error {
	return m.guard(func() error {
		if err := m.redis.Del(ctx, m.key(key)).Err(); err != nil {
			return fmt.Errorf("cache delete failed: %w", err)
		}
		return nil
	})
}

// Clear 无前缀时清空整个库，否则只删除带前缀的键。
func (m *Manager) Clear(ctx context.Context) error {
	return m.guard(func() error {
		if m.config.KeyPrefix == "" {
			if err := m.redis.FlushDB(ctx).Err(); err != nil {
				return fmt.Errorf("cache clear failed: %w", err)
			}
			return nil
		}

		keys, err := m.scan(ctx, m.config.KeyPrefix+"*")
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			return nil
		}
		if err := m.redis.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("cache clear failed: %w", err)
		}
		return nil
	})
}

func (m *Manager) IncrBy(ctx context.Context, key string, amount int64) (int64, error) {
	var n int64
	err := m.guard(func() error {
		v, err := m.redis.IncrBy(ctx, m.key(key), amount).Result()
		if err != nil {
			return fmt.Errorf("cache incrby failed: %w", err)
		}
		n = v
		return nil
	})
	return n, err
}

func (m *Manager) RPush(ctx context.Context, key string, values ...string) (int64, error) {
	var n int64
	err := m.guard(func() error {
		args := make([]any, len(values))
		for i, v := range values {
			args[i] = v
		}
		v, err := m.redis.RPush(ctx, m.key(key), args...).Result()
		if err != nil {
			return fmt.Errorf("cache rpush failed: %w", err)
		}
		n = v
		return nil
	})
	return n, err
}

func (m *Manager) LRange(ctx context.Context, key string, start, end int64) ([]string, error) {
	var list []string
	err := m.guard(func() error {
		v, err := m.redis.LRange(ctx, m.key(key), start, end).Result()
		if err != nil {
			return fmt.Errorf("cache lrange failed: %w", err)
		}
		list = v
		return nil
	})
	return list, err
}

// Keys 用 SCAN 匹配，返回去掉前缀后的键。
func (m *Manager) Keys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	err := m.guard(func() error {
		raw, err := m.scan(ctx, m.key(pattern))
		if err != nil {
			return err
		}
		keys = make([]string, 0, len(raw))
		for _, k := range raw {
			keys = append(keys, strings.TrimPrefix(k, m.config.KeyPrefix))
		}
		return nil
	})
	return keys, err
}

func (m *Manager) scan(ctx context.Context, match string) ([]string, error) {
	var keys []string
	iter := m.redis.Scan(ctx, 0, match, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("cache scan failed: %w", err)
	}
	return keys, nil
}

// Ping 检查 Redis 连接
func (m *Manager) Ping(ctx context.Context) error {
	return m.guard(func() error {
		return m.redis.Ping(ctx).Err()
	})
}

// Close 关闭缓存管理器
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	m.closed = true
	close(m.done)
	m.logger.Info("closing shared cache")

	return m.redis.Close()
}

// =============================================================================
// 🏥 健康检查
// =============================================================================

func (m *Manager) healthCheckLoop() {
	ticker := time.NewTicker(m.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := m.Ping(ctx)
		cancel()

		if errors.Is(err, ErrClosed) {
			return
		}
		wasHealthy := m.healthy.Swap(err == nil)
		switch {
		case err != nil && wasHealthy:
			m.logger.Error("shared cache health check failed", zap.Error(err))
		case err == nil && !wasHealthy:
			m.logger.Info("shared cache recovered")
		case err == nil:
			m.logger.Debug("shared cache health check passed")
		}
	}
}
