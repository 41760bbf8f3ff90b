package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/relaycore/relaycore/relay/budget"
	"github.com/relaycore/relaycore/relay/cache"
	"github.com/relaycore/relaycore/relay/lifecycle"
	"github.com/relaycore/relaycore/relay/network"
	"github.com/relaycore/relaycore/relay/retry"
	"github.com/relaycore/relaycore/types"
)

const instrumentationName = "github.com/relaycore/relaycore/relay"

// =============================================================================
// 🎯 Gateway
// =============================================================================

// Metrics 由 internal/metrics.Collector 实现
type Metrics interface {
	RecordCacheHit(method string)
	RecordCacheMiss(method string)
	RecordDownstreamRequest(method, status string, duration time.Duration)
}

// Components Gateway 依赖的组件，均不可为 nil
type Components struct {
	Limiter *budget.Limiter
	Cache   *cache.TieredCache
	Clients *lifecycle.Manager
	Fee     *retry.FeeEscalator
}

// RetryPolicy 轮询与重复查询的次数和间隔
type RetryPolicy struct {
	PollAttempts   int
	PollInterval   time.Duration
	RepeatAttempts int
}

// DefaultRetryPolicy 返回默认策略：无间隔，各 10 次
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		PollAttempts:   retry.DefaultPollAttempts,
		RepeatAttempts: retry.DefaultRepeatAttempts,
	}
}

// Gateway 为 RPC 处理器提供带预算、缓存与重试的下游访问
type Gateway struct {
	limiter *budget.Limiter
	cache   *cache.TieredCache
	clients *lifecycle.Manager
	fee     *retry.FeeEscalator

	policy        RetryPolicy
	metrics       Metrics
	retryObserver retry.Observer
	tracer        trace.Tracer
	costHist      metric.Int64Histogram
	now           func() time.Time
	logger        *zap.Logger
}

type gatewayOptions struct {
	policy         RetryPolicy
	metrics        Metrics
	retryObserver  retry.Observer
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	now            func() time.Time
}

// Option 配置 Gateway
type Option func(*gatewayOptions)

// WithRetryPolicy 设置轮询策略
func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *gatewayOptions) { o.policy = p }
}

// WithMetrics 设置 Prometheus 指标
func WithMetrics(m Metrics) Option {
	return func(o *gatewayOptions) { o.metrics = m }
}

// WithRetryObserver 设置重试观察者
func WithRetryObserver(obs retry.Observer) Option {
	return func(o *gatewayOptions) { o.retryObserver = obs }
}

// WithTracerProvider 设置 TracerProvider，默认 noop
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *gatewayOptions) { o.tracerProvider = tp }
}

// WithMeterProvider 设置 MeterProvider，默认 noop
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *gatewayOptions) { o.meterProvider = mp }
}

// WithClock 设置时钟，用于预算窗口
func WithClock(now func() time.Time) Option {
	return func(o *gatewayOptions) { o.now = now }
}

// New 创建 Gateway
func New(c Components, logger *zap.Logger, opts ...Option) (*Gateway, error) {
	if c.Limiter == nil || c.Cache == nil || c.Clients == nil || c.Fee == nil {
		return nil, types.NewError(types.ErrConfigRejected, "gateway requires limiter, cache, client manager and fee escalator")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	o := gatewayOptions{
		policy:         DefaultRetryPolicy(),
		tracerProvider: tracenoop.NewTracerProvider(),
		meterProvider:  metricnoop.NewMeterProvider(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	costHist, err := o.meterProvider.Meter(instrumentationName).Int64Histogram(
		"relay.downstream.cost",
		metric.WithDescription("Cost charged per successful paid downstream query"),
		metric.WithUnit("{tinybar}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create cost histogram: %w", err)
	}

	return &Gateway{
		limiter:       c.Limiter,
		cache:         c.Cache,
		clients:       c.Clients,
		fee:           c.Fee,
		policy:        o.policy,
		metrics:       o.metrics,
		retryObserver: o.retryObserver,
		tracer:        o.tracerProvider.Tracer(instrumentationName),
		costHist:      costHist,
		now:           o.now,
		logger:        logger.With(zap.String("component", "gateway")),
	}, nil
}

// Cache 返回底层两级缓存
func (g *Gateway) Cache() *cache.TieredCache { return g.cache }

// =============================================================================
// 💰 付费调用
// =============================================================================

// ExecutePaid 执行付费查询。预算不足时在任何网络调用之前返回 RATE_LIMITED；
// 费用过低的拒绝按递增费用重试；成功后按实际费用记账。
func (g *Gateway) ExecutePaid(ctx context.Context, method, identity string, q network.Query, estimatedCost int64) (*network.Response, error) {
	ctx, span := g.startSpan(ctx, "execute_paid", method)
	defer span.End()

	now := g.now()
	if g.limiter.ShouldLimit(now, identity, method) {
		err := rateLimited(method, "spending budget exhausted")
		endSpan(span, err)
		return nil, err
	}
	if g.limiter.ShouldPreemptivelyLimit(identity, estimatedCost, method) {
		err := rateLimited(method, fmt.Sprintf("estimated cost %d exceeds remaining budget", estimatedCost))
		endSpan(span, err)
		return nil, err
	}

	client, err := g.clients.Checkout(ctx)
	if err != nil {
		endSpan(span, err)
		return nil, err
	}

	resp, cost, err := retry.ExecuteWithEscalatingFee(ctx, g.fee,
		func(ctx context.Context, cost int64) (*network.Response, error) {
			start := time.Now()
			resp, err := client.ExecuteQuery(ctx, q, cost)
			g.recordDownstream(method, err, time.Since(start))
			if status, ok := network.StatusOf(err); ok {
				g.clients.ReportErrorCode(int(status))
			}
			return resp, err
		},
		estimatedCost, -1, g.retryOptions(method)...)
	if err != nil {
		span.SetAttributes(attribute.Int64("relay.cost", cost))
		endSpan(span, err)
		return nil, err
	}

	charged := cost
	if resp != nil && resp.Cost > 0 {
		charged = resp.Cost
	}
	g.limiter.AddExpense(charged, g.now(), method)
	g.costHist.Record(ctx, charged, metric.WithAttributes(attribute.String("rpc.method", method)))
	span.SetAttributes(attribute.Int64("relay.cost", charged))
	return resp, nil
}

// =============================================================================
// 📖 只读调用
// =============================================================================

// Fetcher 通过客户端读取值
type Fetcher[T any] func(ctx context.Context, client network.Client) (T, error)

// CachedRead 先查缓存；未命中时轮询直到 isMature 通过，再写回缓存。
// 轮询耗尽返回 IMMATURE_RECORD，不完整的值不会被缓存。
func CachedRead[T any](
	ctx context.Context,
	g *Gateway,
	method, key string,
	ttl time.Duration,
	fetch Fetcher[T],
	isMature func(T) bool,
) (T, error) {
	ctx, span := g.startSpan(ctx, "cached_read", method)
	defer span.End()

	var zero T
	if v, ok := cache.GetJSON[T](ctx, g.cache, key, method); ok {
		g.recordCache(method, true)
		span.SetAttributes(attribute.Bool("relay.cache_hit", true))
		return v, nil
	}
	g.recordCache(method, false)
	span.SetAttributes(attribute.Bool("relay.cache_hit", false))

	client, err := g.clients.Checkout(ctx)
	if err != nil {
		endSpan(span, err)
		return zero, err
	}

	v, err := retry.PollUntilMature(ctx,
		func(ctx context.Context) (T, error) {
			start := time.Now()
			v, err := fetch(ctx, client)
			g.recordDownstream(method, err, time.Since(start))
			return v, err
		},
		isMature, g.policy.PollAttempts, g.pollOptions(method)...)
	if err != nil {
		endSpan(span, err)
		return zero, err
	}

	g.store(ctx, key, v, ttl, method)
	return v, nil
}

// Lookup 通过客户端查询可能暂不存在的值
type Lookup[T any] func(ctx context.Context, client network.Client) retry.Result[T]

// LookupWithRepeat 先查缓存；未命中时重复查询直到找到。
// 找不到返回 (zero, false, nil)，且不写缓存。
func LookupWithRepeat[T any](
	ctx context.Context,
	g *Gateway,
	method, key string,
	ttl time.Duration,
	lookup Lookup[T],
) (T, bool, error) {
	ctx, span := g.startSpan(ctx, "lookup_with_repeat", method)
	defer span.End()

	var zero T
	if v, ok := cache.GetJSON[T](ctx, g.cache, key, method); ok {
		g.recordCache(method, true)
		span.SetAttributes(attribute.Bool("relay.cache_hit", true))
		return v, true, nil
	}
	g.recordCache(method, false)
	span.SetAttributes(attribute.Bool("relay.cache_hit", false))

	client, err := g.clients.Checkout(ctx)
	if err != nil {
		endSpan(span, err)
		return zero, false, err
	}

	v, found, err := retry.Repeat(ctx,
		func(ctx context.Context) retry.Result[T] {
			start := time.Now()
			r := lookup(ctx, client)
			g.recordDownstream(method, r.Err(), time.Since(start))
			return r
		},
		g.policy.RepeatAttempts, g.retryOptions(method)...)
	if err != nil {
		endSpan(span, err)
		return zero, false, err
	}
	span.SetAttributes(attribute.Bool("relay.found", found))
	if !found {
		return zero, false, nil
	}

	g.store(ctx, key, v, ttl, method)
	return v, true, nil
}

// =============================================================================
// 📄 记录读取
// =============================================================================

// Record 读取一条记录，只返回并缓存成熟的记录
func (g *Gateway) Record(ctx context.Context, method, kind, id string, ttl time.Duration) (*network.Record, error) {
	return CachedRead(ctx, g, method, CacheKey("record", kind, id), ttl,
		func(ctx context.Context, client network.Client) (*network.Record, error) {
			return client.GetRecord(ctx, kind, id)
		},
		network.IsMature)
}

// FindRecord 查询可能尚未被索引的记录；ErrNotFound 视为“暂不存在”并重试
func (g *Gateway) FindRecord(ctx context.Context, method, kind, id string, ttl time.Duration) (*network.Record, bool, error) {
	return LookupWithRepeat(ctx, g, method, CacheKey("record", kind, id), ttl,
		func(ctx context.Context, client network.Client) retry.Result[*network.Record] {
			rec, err := client.GetRecord(ctx, kind, id)
			switch {
			case network.IsNotFound(err):
				return retry.NotFound[*network.Record]()
			case err != nil:
				return retry.Failed[*network.Record](err)
			default:
				return retry.Found(rec)
			}
		})
}

// CacheKey 以 ":" 拼接缓存键
func CacheKey(parts ...string) string {
	return strings.Join(parts, ":")
}

// =============================================================================
// 🩺 状态
// =============================================================================

// Status Gateway 状态快照
type Status struct {
	Budget           budget.Status `json:"budget"`
	ClientState      string        `json:"client_state"`
	ClientGeneration string        `json:"client_generation"`
	SharedCache      bool          `json:"shared_cache"`
}

// Status 返回当前状态快照
func (g *Gateway) Status() Status {
	return Status{
		Budget:           g.limiter.Status(),
		ClientState:      g.clients.State().String(),
		ClientGeneration: g.clients.Generation(),
		SharedCache:      g.cache.SharedActive(),
	}
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

func (g *Gateway) startSpan(ctx context.Context, op, method string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("rpc.method", method)}
	if id, ok := types.RequestID(ctx); ok {
		attrs = append(attrs, attribute.String("relay.request_id", id))
	}
	return g.tracer.Start(ctx, "relay."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

func endSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func rateLimited(method, msg string) *types.Error {
	return types.NewError(types.ErrRateLimited, msg).
		WithHTTPStatus(http.StatusTooManyRequests).
		WithRetryable(true).
		WithMethod(method)
}

func (g *Gateway) retryOptions(method string) []retry.Option {
	opts := []retry.Option{retry.WithOperation(method), retry.WithLogger(g.logger)}
	if g.retryObserver != nil {
		opts = append(opts, retry.WithObserver(g.retryObserver))
	}
	return opts
}

func (g *Gateway) pollOptions(method string) []retry.Option {
	return append(g.retryOptions(method), retry.WithInterval(g.policy.PollInterval))
}

func (g *Gateway) store(ctx context.Context, key string, v any, ttl time.Duration, method string) {
	if err := cache.SetJSON(ctx, g.cache, key, v, ttl, method); err != nil {
		g.logger.Warn("failed to cache value", zap.String("key", key), zap.String("method", method), zap.Error(err))
	}
}

func (g *Gateway) recordCache(method string, hit bool) {
	if g.metrics == nil {
		return
	}
	if hit {
		g.metrics.RecordCacheHit(method)
	} else {
		g.metrics.RecordCacheMiss(method)
	}
}

func (g *Gateway) recordDownstream(method string, err error, d time.Duration) {
	if g.metrics == nil {
		return
	}
	g.metrics.RecordDownstreamRequest(method, downstreamStatus(err), d)
}

func downstreamStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case network.IsNotFound(err):
		return "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	if status, ok := network.StatusOf(err); ok {
		return status.String()
	}
	return "error"
}
