package retry

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Observer 接收重试事件。实现必须是并发安全的。
type Observer interface {
	// OnRetry is called before every attempt after the first.
	OnRetry(operation string, attempt int)
}

type options struct {
	interval  time.Duration
	logger    *zap.Logger
	observer  Observer
	operation string
}

// Option 配置单次重试循环
type Option func(*options)

// WithInterval 两次尝试之间等待 d，等待期间响应 ctx 取消
func WithInterval(d time.Duration) Option {
	return func(o *options) { o.interval = d }
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver 设置观察者
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithOperation 设置日志与指标中的操作名（通常是 RPC 方法）
func WithOperation(name string) Option {
	return func(o *options) { o.operation = name }
}

func buildOptions(defaultOperation string, opts []Option) options {
	o := options{logger: zap.NewNop(), operation: defaultOperation}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// beforeRetry 在第 attempt 次（从 1 计）尝试前调用，attempt == 1 时什么也不做。
func (o *options) beforeRetry(ctx context.Context, attempt int) error {
	if attempt <= 1 {
		return nil
	}
	if o.observer != nil {
		o.observer.OnRetry(o.operation, attempt)
	}

	if o.interval <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(o.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
