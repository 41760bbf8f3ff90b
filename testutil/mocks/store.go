// MockStore 的缓存层测试模拟实现。
//
// 数据委托给一个真实的 LocalStore，并支持按调用注入错误，
// 用于验证 TieredCache 的降级行为。
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/relaycore/relaycore/relay/cache"
)

// --- MockStore 结构 ---

// MockStore 是 cache.Store 的模拟实现
type MockStore struct {
	mu sync.Mutex

	name    string
	backing *cache.LocalStore
	err     error
	calls   map[string]int
}

var _ cache.Store = (*MockStore)(nil)

// NewMockStore 创建一个健康的 MockStore
func NewMockStore(name string) *MockStore {
	return &MockStore{
		name:    name,
		backing: cache.NewLocalStore(cache.LocalConfig{}),
		calls:   make(map[string]int),
	}
}

// --- Builder 方法 ---

// WithError 让之后的所有调用返回 err；传 nil 恢复健康
func (m *MockStore) WithError(err error) *MockStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// Calls 返回某个操作的调用次数
func (m *MockStore) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Backing 返回底层存储，便于直接断言数据
func (m *MockStore) Backing() *cache.LocalStore {
	return m.backing
}

func (m *MockStore) record(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[op]++
	return m.err
}

// --- cache.Store 实现 ---

func (m *MockStore) Name() string { return m.name }

func (m *MockStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := m.record("get"); err != nil {
		return nil, false, err
	}
	return m.backing.Get(ctx, key)
}

func (m *MockStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := m.record("set"); err != nil {
		return err
	}
	return m.backing.Set(ctx, key, value, ttl)
}

func (m *MockStore) MultiSet(ctx context.Context, entries map[string][]byte) error {
	if err := m.record("multi_set"); err != nil {
		return err
	}
	return m.backing.MultiSet(ctx, entries)
}

func (m *MockStore) PipelineSet(ctx context.Context, entries map[string][]byte, ttl time.Duration) error {
	if err := m.record("pipeline_set"); err != nil {
		return err
	}
	return m.backing.PipelineSet(ctx, entries, ttl)
}

func (m *MockStore) Delete(ctx context.Context, key string) error {
	if err := m.record("delete"); err != nil {
		return err
	}
	return m.backing.Delete(ctx, key)
}

func (m *MockStore) Clear(ctx context.Context) error {
	if err := m.record("clear"); err != nil {
		return err
	}
	return m.backing.Clear(ctx)
}

func (m *MockStore) IncrBy(ctx context.Context, key string, amount int64) (int64, error) {
	if err := m.record("incr_by"); err != nil {
		return 0, err
	}
	return m.backing.IncrBy(ctx, key, amount)
}

func (m *MockStore) RPush(ctx context.Context, key string, values ...string) (int64, error) {
	if err := m.record("rpush"); err != nil {
		return 0, err
	}
	return m.backing.RPush(ctx, key, values...)
}

func (m *MockStore) LRange(ctx context.Context, key string, start, end int64) ([]string, error) {
	if err := m.record("lrange"); err != nil {
		return nil, err
	}
	return m.backing.LRange(ctx, key, start, end)
}

func (m *MockStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	if err := m.record("keys"); err != nil {
		return nil, err
	}
	return m.backing.Keys(ctx, pattern)
}
