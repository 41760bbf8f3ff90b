package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// LocalConfig 进程内缓存配置
type LocalConfig struct {
	// Capacity 最大条目数，超出后淘汰最久未使用的条目；0 表示不限
	Capacity uint64 `yaml:"capacity" json:"capacity" env:"CAPACITY"`

	// DefaultTTL 未指定 TTL 时使用；0 表示永不过期
	DefaultTTL time.Duration `yaml:"default_ttl" json:"default_ttl" env:"DEFAULT_TTL"`
}

// DefaultLocalConfig 返回默认本地缓存配置
func DefaultLocalConfig() LocalConfig {
	return LocalConfig{
		Capacity:   1000,
		DefaultTTL: time.Hour,
	}
}

// LocalStore 基于 ttlcache 的进程内 LRU 存储。
// 值为 []byte（普通值与计数器）或 []string（列表）。
type LocalStore struct {
	items *ttlcache.Cache[string, any]

	// rmw 串行化 IncrBy/RPush 的读-改-写
	rmw sync.Mutex
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore 创建本地存储
func NewLocalStore(config LocalConfig) *LocalStore {
	opts := []ttlcache.Option[string, any]{
		ttlcache.WithDisableTouchOnHit[string, any](),
	}
	if config.Capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[string, any](config.Capacity))
	}
	if config.DefaultTTL > 0 {
		opts = append(opts, ttlcache.WithTTL[string, any](config.DefaultTTL))
	}

	return &LocalStore{items: ttlcache.New[string, any](opts...)}
}

// Name 实现 Store
func (s *LocalStore) Name() string { return TierLocal }

// Len 当前条目数（含尚未清理的过期条目）
func (s *LocalStore) Len() int { return s.items.Len() }

func (s *LocalStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	item := s.items.Get(key)
	if item == nil {
		return nil, false, nil
	}
	data, ok := item.Value().([]byte)
	if !ok {
		return nil, false, ErrWrongType
	}
	return data, true, nil
}

func (s *LocalStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.items.Set(key, value, localTTL(ttl))
	return nil
}

// MultiSet 本地层没有原子写入的需求，直接逐项写入，使用默认 TTL。
func (s *LocalStore) MultiSet(ctx context.Context, entries map[string][]byte) error {
	return s.PipelineSet(ctx, entries, 0)
}

func (s *LocalStore) PipelineSet(_ context.Context, entries map[string][]byte, ttl time.Duration) error {
	for k, v := range entries {
		s.items.Set(k, v, localTTL(ttl))
	}
	return nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	s.items.Delete(key)
	return nil
}

func (s *LocalStore) Clear(_ context.Context) error {
	s.items.DeleteAll()
	return nil
}

// IncrBy 读-改-写，保留原条目剩余的 TTL
func (s *LocalStore) IncrBy(_ context.Context, key string, amount int64) (int64, error) {
	s.rmw.Lock()
	defer s.rmw.Unlock()

	var current int64
	ttl := ttlcache.DefaultTTL
	if item := s.items.Get(key); item != nil {
		data, ok := item.Value().([]byte)
		if !ok {
			return 0, ErrWrongType
		}
		n, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return 0, ErrNotInteger
		}
		current = n
		ttl = remainingTTL(item)
	}

	current += amount
	s.items.Set(key, []byte(strconv.FormatInt(current, 10)), ttl)
	return current, nil
}

func (s *LocalStore) RPush(_ context.Context, key string, values ...string) (int64, error) {
	s.rmw.Lock()
	defer s.rmw.Unlock()

	var list []string
	ttl := ttlcache.DefaultTTL
	if item := s.items.Get(key); item != nil {
		existing, ok := item.Value().([]string)
		if !ok {
			return 0, ErrWrongType
		}
		list = existing
		ttl = remainingTTL(item)
	}

	// 复制一份，避免与已返回给调用方的切片共享底层数组
	next := make([]string, 0, len(list)+len(values))
	next = append(next, list...)
	next = append(next, values...)
	s.items.Set(key, next, ttl)
	return int64(len(next)), nil
}

func (s *LocalStore) LRange(_ context.Context, key string, start, end int64) ([]string, error) {
	item := s.items.Get(key)
	if item == nil {
		return []string{}, nil
	}
	list, ok := item.Value().([]string)
	if !ok {
		return nil, ErrWrongType
	}

	lo, hi, ok := normalizeRange(start, end, int64(len(list)))
	if !ok {
		return []string{}, nil
	}
	out := make([]string, hi-lo)
	copy(out, list[lo:hi])
	return out, nil
}

func (s *LocalStore) Keys(_ context.Context, pattern string) ([]string, error) {
	s.items.DeleteExpired()
	return matchKeys(s.items.Keys(), pattern)
}

func localTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return ttlcache.DefaultTTL
	}
	return ttl
}

func remainingTTL(item *ttlcache.Item[string, any]) time.Duration {
	if item.TTL() <= 0 {
		return ttlcache.NoTTL
	}
	left := time.Until(item.ExpiresAt())
	if left <= 0 {
		// 恰好到期，给一个最小正值以免退回默认 TTL
		return time.Millisecond
	}
	return left
}
