// MockClient 的下游网络客户端测试模拟实现。
//
// 支持自定义查询/读取函数、错误注入与工厂调用计数。
package mocks

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/relaycore/relaycore/relay/network"
)

// --- MockClient 结构 ---

// QueryFunc 付费查询函数
type QueryFunc func(ctx context.Context, q network.Query, maxPayment int64) (*network.Response, error)

// RecordFunc 记录读取函数
type RecordFunc func(ctx context.Context, kind, id string) (*network.Record, error)

// MockClient 是 network.Client 的模拟实现
type MockClient struct {
	// ID 由 MockFactory 按构建顺序分配，从 1 开始
	ID int

	mu       sync.Mutex
	query    QueryFunc
	record   RecordFunc
	timeout  time.Duration
	payments []int64
}

var _ network.Client = (*MockClient)(nil)

// NewMockClient 创建默认成功的 MockClient
func NewMockClient() *MockClient {
	return &MockClient{}
}

// WithQuery 设置查询行为
func (c *MockClient) WithQuery(fn QueryFunc) *MockClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query = fn
	return c
}

// WithRecord 设置读取行为
func (c *MockClient) WithRecord(fn RecordFunc) *MockClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record = fn
	return c
}

// Payments 返回每次查询提供的费用
func (c *MockClient) Payments() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.payments...)
}

// Timeout 返回最近一次设置的超时
func (c *MockClient) Timeout() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeout
}

// --- network.Client 实现 ---

func (c *MockClient) ExecuteQuery(ctx context.Context, q network.Query, maxPayment int64) (*network.Response, error) {
	c.mu.Lock()
	c.payments = append(c.payments, maxPayment)
	fn := c.query
	c.mu.Unlock()

	if fn != nil {
		return fn(ctx, q, maxPayment)
	}
	return &network.Response{Payload: []byte("ok"), Cost: maxPayment}, nil
}

func (c *MockClient) GetRecord(ctx context.Context, kind, id string) (*network.Record, error) {
	c.mu.Lock()
	fn := c.record
	c.mu.Unlock()

	if fn != nil {
		return fn(ctx, kind, id)
	}
	return nil, network.ErrNotFound
}

func (c *MockClient) SetRequestTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = d
}

// --- MockFactory ---

// MockFactory 记录构建次数，可注入构建错误
type MockFactory struct {
	builds atomic.Int32

	mu      sync.Mutex
	err     error
	delay   time.Duration
	clients []*MockClient
	setup   func(*MockClient)
}

// NewMockFactory 创建工厂；setup 可为 nil，用于配置每个新客户端
func NewMockFactory(setup func(*MockClient)) *MockFactory {
	return &MockFactory{setup: setup}
}

// WithError 之后的构建返回 err；nil 恢复
func (f *MockFactory) WithError(err error) *MockFactory {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
	return f
}

// WithDelay 每次构建前等待 d，用于放大并发窗口
func (f *MockFactory) WithDelay(d time.Duration) *MockFactory {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
	return f
}

// Builds 返回工厂被调用的次数（含失败）
func (f *MockFactory) Builds() int {
	return int(f.builds.Load())
}

// Clients 返回成功构建的客户端
func (f *MockFactory) Clients() []*MockClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*MockClient(nil), f.clients...)
}

// Factory 返回 network.Factory
func (f *MockFactory) Factory() network.Factory {
	return func(network.Config, *network.Operator) (network.Client, error) {
		f.builds.Add(1)

		f.mu.Lock()
		delay, err := f.delay, f.err
		f.mu.Unlock()

		if delay > 0 {
			time.Sleep(delay)
		}
		if err != nil {
			return nil, err
		}

		f.mu.Lock()
		defer f.mu.Unlock()
		c := NewMockClient()
		c.ID = len(f.clients) + 1
		if f.setup != nil {
			f.setup(c)
		}
		f.clients = append(f.clients, c)
		return c, nil
	}
}
