package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// =============================================================================
// 🩺 /metrics 与 /health
// =============================================================================

// Check 健康检查项。Critical 为 false 的检查失败时整体为 degraded 而非 unhealthy。
type Check struct {
	Name     string
	Critical bool
	Probe    func(ctx context.Context) error
}

// HealthStatus /health 响应体
type HealthStatus struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Details   any               `json:"details,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

const (
	StatusOK        = "ok"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HandlerOptions 运维路由配置
type HandlerOptions struct {
	// Gatherer 为 nil 时不注册 /metrics
	Gatherer prometheus.Gatherer
	Checks   []Check
	// Details 附加到 /health 响应中的状态快照
	Details func() any
	// CheckTimeout 单次健康检查超时
	CheckTimeout time.Duration
	// RequestObserver 记录每个运维请求，可为 nil
	RequestObserver func(method, path string, status int, duration time.Duration)
	Logger          *zap.Logger
}

// NewOpsHandler 构建运维路由
func NewOpsHandler(opts HandlerOptions) http.Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.CheckTimeout <= 0 {
		opts.CheckTimeout = 2 * time.Second
	}

	mux := http.NewServeMux()
	if opts.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := RunChecks(r.Context(), opts.Checks, opts.CheckTimeout)
		if opts.Details != nil {
			status.Details = opts.Details()
		}

		code := http.StatusOK
		if status.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
			opts.Logger.Warn("health check failed", zap.Any("checks", status.Checks))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if err := json.NewEncoder(w).Encode(status); err != nil {
			opts.Logger.Error("failed to encode health status", zap.Error(err))
		}
	})
	if opts.RequestObserver == nil {
		return mux
	}
	return observe(mux, opts.RequestObserver)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func observe(next http.Handler, fn func(method, path string, status int, duration time.Duration)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		fn(r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

// RunChecks 并发执行检查项并汇总状态
func RunChecks(ctx context.Context, checks []Check, timeout time.Duration) HealthStatus {
	status := HealthStatus{
		Status:    StatusOK,
		Checks:    make(map[string]string, len(checks)),
		Timestamp: time.Now().UTC(),
	}

	type result struct {
		check Check
		err   error
	}
	results := make([]result, len(checks))

	var wg sync.WaitGroup
	for i, c := range checks {
		wg.Add(1)
		go func(i int, c Check) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			results[i] = result{check: c, err: c.Probe(checkCtx)}
		}(i, c)
	}
	wg.Wait()

	for _, r := range results {
		if r.err == nil {
			status.Checks[r.check.Name] = StatusOK
			continue
		}
		status.Checks[r.check.Name] = r.err.Error()
		if r.check.Critical {
			status.Status = StatusUnhealthy
		} else if status.Status == StatusOK {
			status.Status = StatusDegraded
		}
	}
	return status
}
