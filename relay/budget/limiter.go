package budget

import (
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Config 预算配置
type Config struct {
	// Total 每个窗口的总预算（最小货币单位），<= 0 表示禁用
	Total int64 `yaml:"total" json:"total" env:"TOTAL"`

	// Duration 窗口时长
	Duration time.Duration `yaml:"duration" json:"duration" env:"DURATION"`

	// AllowList 不受预算限制的身份（EVM 地址）
	AllowList []string `yaml:"allow_list" json:"allow_list" env:"ALLOW_LIST"`
}

// DefaultConfig 返回默认预算配置
func DefaultConfig() Config {
	return Config{
		Total:    25_000_000_000,
		Duration: 24 * time.Hour,
	}
}

// Observer 接收预算事件，用于指标上报。实现必须是并发安全的。
type Observer interface {
	OnLimit(method string, remaining int64)
	OnExpense(method string, cost, remaining int64)
	OnReset(total int64, resetAt time.Time)
}

// Status 当前预算窗口快照
type Status struct {
	Enabled   bool      `json:"enabled"`
	Total     int64     `json:"total"`
	Remaining int64     `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// Option 配置 Limiter
type Option func(*Limiter)

// WithObserver 注册事件观察者
func WithObserver(o Observer) Option {
	return func(l *Limiter) {
		l.observer = o
	}
}

// Limiter 基于时间窗口的预算限流器
type Limiter struct {
	enabled   bool
	total     int64
	duration  time.Duration
	allowList map[string]struct{}
	observer  Observer
	logger    *zap.Logger

	mu        sync.Mutex
	remaining int64
	resetAt   time.Time
}

// NewLimiter 创建预算限流器，窗口从 start 开始计时。
func NewLimiter(config Config, start time.Time, logger *zap.Logger, opts ...Option) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}

	l := &Limiter{
		enabled:   config.Total > 0,
		total:     config.Total,
		duration:  config.Duration,
		allowList: make(map[string]struct{}, len(config.AllowList)),
		logger:    logger.With(zap.String("component", "budget_limiter")),
		resetAt:   start.Add(config.Duration),
	}
	for _, id := range config.AllowList {
		if id = normalizeIdentity(id); id != "" {
			l.allowList[id] = struct{}{}
		}
	}
	if l.enabled {
		l.remaining = config.Total
	} else {
		l.total = 0
	}

	for _, opt := range opts {
		opt(l)
	}

	l.logger.Info("budget limiter initialized",
		zap.Bool("enabled", l.enabled),
		zap.Int64("total", l.total),
		zap.Duration("duration", l.duration),
		zap.Int("allow_list", len(l.allowList)),
	)

	return l
}

// =============================================================================
// 🎯 准入检查
// =============================================================================

// ShouldLimit 判断 identity 的调用是否应被限流。窗口过期时先重置。
func (l *Limiter) ShouldLimit(now time.Time, identity, method string) bool {
	if !l.enabled || l.isAllowListed(identity) {
		return false
	}

	l.mu.Lock()
	l.resetIfStaleLocked(now)
	remaining := l.remaining
	l.mu.Unlock()

	if remaining > 0 {
		return false
	}

	l.logger.Warn("budget exhausted, limiting request",
		zap.String("method", method),
		zap.Int64("remaining", remaining),
		zap.Int64("total", l.total),
	)
	if l.observer != nil {
		l.observer.OnLimit(method, remaining)
	}
	return true
}

// ShouldPreemptivelyLimit 判断预计支出 projectedCost 是否会使剩余预算为负。
// 纯检查：不修改状态，也不重置窗口。
func (l *Limiter) ShouldPreemptivelyLimit(identity string, projectedCost int64, method string) bool {
	if !l.enabled || l.isAllowListed(identity) {
		return false
	}

	l.mu.Lock()
	remaining := l.remaining
	l.mu.Unlock()

	if remaining-projectedCost >= 0 {
		return false
	}

	l.logger.Warn("projected cost exceeds remaining budget",
		zap.String("method", method),
		zap.Int64("projected_cost", projectedCost),
		zap.Int64("remaining", remaining),
	)
	if l.observer != nil {
		l.observer.OnLimit(method, remaining)
	}
	return true
}

// AddExpense 记录一次支出。允许透支。
func (l *Limiter) AddExpense(cost int64, now time.Time, method string) {
	if !l.enabled {
		return
	}

	l.mu.Lock()
	l.resetIfStaleLocked(now)
	l.remaining -= cost
	remaining := l.remaining
	l.mu.Unlock()

	l.logger.Debug("expense recorded",
		zap.String("method", method),
		zap.Int64("cost", cost),
		zap.Int64("remaining", remaining),
	)
	if l.observer != nil {
		l.observer.OnExpense(method, cost, remaining)
	}
}

// =============================================================================
// 📊 访问器
// =============================================================================

// IsEnabled 返回限流器是否启用
func (l *Limiter) IsEnabled() bool {
	return l.enabled
}

// RemainingBudget 返回当前剩余预算
func (l *Limiter) RemainingBudget() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.remaining
}

// ResetTime 返回当前窗口的重置时间
func (l *Limiter) ResetTime() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.resetAt
}

// Status 返回当前窗口快照
func (l *Limiter) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Status{
		Enabled:   l.enabled,
		Total:     l.total,
		Remaining: l.remaining,
		ResetAt:   l.resetAt,
	}
}

// resetIfStaleLocked 窗口过期时恢复预算并把重置时间推到 now+duration。
// 调用方必须持有 l.mu。
func (l *Limiter) resetIfStaleLocked(now time.Time) {
	if !l.resetAt.Before(now) {
		return
	}

	l.remaining = l.total
	l.resetAt = now.Add(l.duration)

	l.logger.Info("budget window reset",
		zap.Int64("total", l.total),
		zap.Time("reset_at", l.resetAt),
	)
	if l.observer != nil {
		l.observer.OnReset(l.total, l.resetAt)
	}
}

func (l *Limiter) isAllowListed(identity string) bool {
	if len(l.allowList) == 0 {
		return false
	}
	_, ok := l.allowList[normalizeIdentity(identity)]
	return ok
}

// normalizeIdentity 把 EVM 地址统一成带 0x 的小写形式，其它身份只做小写
func normalizeIdentity(identity string) string {
	identity = strings.TrimSpace(identity)
	if common.IsHexAddress(identity) {
		return strings.ToLower(common.HexToAddress(identity).Hex())
	}
	return strings.ToLower(identity)
}
