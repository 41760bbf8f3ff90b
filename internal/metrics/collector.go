package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/relaycore/relaycore/relay/budget"
	"github.com/relaycore/relaycore/relay/cache"
	"github.com/relaycore/relaycore/relay/lifecycle"
	"github.com/relaycore/relaycore/relay/retry"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器，同时实现各组件的 Observer 接口
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 预算指标
	budgetLimitedTotal *prometheus.CounterVec
	budgetExpenseTotal *prometheus.CounterVec
	budgetRemaining    prometheus.Gauge
	budgetResetsTotal  prometheus.Counter

	// 缓存指标
	cacheHits          *prometheus.CounterVec
	cacheMisses        *prometheus.CounterVec
	cacheTierFallbacks *prometheus.CounterVec

	// 下游指标
	downstreamRequestsTotal   *prometheus.CounterVec
	downstreamRequestDuration *prometheus.HistogramVec
	clientRecreationsTotal    *prometheus.CounterVec
	retryAttemptsTotal        *prometheus.CounterVec

	logger *zap.Logger
}

var (
	_ budget.Observer        = (*Collector)(nil)
	_ cache.FallbackObserver = (*Collector)(nil)
	_ lifecycle.Observer     = (*Collector)(nil)
	_ retry.Observer         = (*Collector)(nil)
)

// NewCollector 创建指标收集器，所有指标注册到 reg。reg 为 nil 时不注册。
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// HTTP 指标
	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 预算指标
	c.budgetLimitedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "budget_limited_total",
			Help:      "Total number of calls rejected by the spending budget",
		},
		[]string{"method"},
	)

	c.budgetExpenseTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "budget_expense_total",
			Help:      "Total amount spent against the budget, in the smallest currency unit",
		},
		[]string{"method"},
	)

	c.budgetRemaining = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "budget_remaining",
			Help:      "Remaining budget in the current window",
		},
	)

	c.budgetResetsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "budget_window_resets_total",
			Help:      "Total number of budget window resets",
		},
	)

	// 缓存指标
	c.cacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"method"},
	)

	c.cacheMisses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"method"},
	)

	c.cacheTierFallbacks = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_tier_fallbacks_total",
			Help:      "Total number of shared cache failures served by the local tier",
		},
		[]string{"operation", "method"},
	)

	// 下游指标
	c.downstreamRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downstream_requests_total",
			Help:      "Total number of downstream network requests",
		},
		[]string{"method", "status"},
	)

	c.downstreamRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "downstream_request_duration_seconds",
			Help:      "Downstream request duration in seconds, including retries",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method"},
	)

	c.clientRecreationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "client_recreations_total",
			Help:      "Total number of downstream client recreations",
		},
		[]string{"reason", "result"},
	)

	c.retryAttemptsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retry_attempts_total",
			Help:      "Total number of retry attempts after the first",
		},
		[]string{"operation"},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// =============================================================================
// 💰 预算（budget.Observer）
// =============================================================================

// OnLimit 记录一次限流
func (c *Collector) OnLimit(method string, remaining int64) {
	c.budgetLimitedTotal.WithLabelValues(method).Inc()
	c.budgetRemaining.Set(float64(remaining))
}

// OnExpense 记录一次支出
func (c *Collector) OnExpense(method string, cost, remaining int64) {
	if cost > 0 {
		c.budgetExpenseTotal.WithLabelValues(method).Add(float64(cost))
	}
	c.budgetRemaining.Set(float64(remaining))
}

// OnReset 记录一次窗口重置
func (c *Collector) OnReset(total int64, _ time.Time) {
	c.budgetResetsTotal.Inc()
	c.budgetRemaining.Set(float64(total))
}

// =============================================================================
// 💾 缓存指标记录
// =============================================================================

// RecordCacheHit 记录缓存命中
func (c *Collector) RecordCacheHit(method string) {
	c.cacheHits.WithLabelValues(method).Inc()
}

// RecordCacheMiss 记录缓存未命中
func (c *Collector) RecordCacheMiss(method string) {
	c.cacheMisses.WithLabelValues(method).Inc()
}

// OnTierFallback 实现 cache.FallbackObserver
func (c *Collector) OnTierFallback(operation, method string) {
	c.cacheTierFallbacks.WithLabelValues(operation, method).Inc()
}

// =============================================================================
// 🌐 下游指标记录
// =============================================================================

// RecordDownstreamRequest 记录一次下游调用，status 为 "ok" 或下游状态名
func (c *Collector) RecordDownstreamRequest(method, status string, duration time.Duration) {
	c.downstreamRequestsTotal.WithLabelValues(method, status).Inc()
	c.downstreamRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// OnClientRecreated 实现 lifecycle.Observer
func (c *Collector) OnClientRecreated(reason string, success bool) {
	c.clientRecreationsTotal.WithLabelValues(reason, strconv.FormatBool(success)).Inc()
}

// OnRetry 实现 retry.Observer
func (c *Collector) OnRetry(operation string, _ int) {
	c.retryAttemptsTotal.WithLabelValues(operation).Inc()
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// statusCode 将 HTTP 状态码转换为字符串
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
