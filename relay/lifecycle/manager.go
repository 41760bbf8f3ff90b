package lifecycle

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/relaycore/relaycore/relay/network"
	"github.com/relaycore/relaycore/types"
)

// =============================================================================
// 🔄 客户端生命周期管理
// =============================================================================

// State 客户端句柄状态
type State int

const (
	StateFresh State = iota
	StateInUse
	StatePendingReset
	StateUnmanaged
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateInUse:
		return "in_use"
	case StatePendingReset:
		return "pending_reset"
	case StateUnmanaged:
		return "unmanaged"
	default:
		return "unknown"
	}
}

// Reset reasons reported to the observer.
const (
	ReasonTransactions = "transactions"
	ReasonDuration     = "duration"
	ReasonErrorCode    = "error_code"
)

// Config 重建触发条件，取零值的条件不生效
type Config struct {
	// TransactionReset 每个句柄最多服务的 Checkout 次数
	TransactionReset int `yaml:"transaction_reset" json:"transaction_reset" env:"TRANSACTION_RESET"`

	// DurationReset 每个句柄的最长使用时长
	DurationReset time.Duration `yaml:"duration_reset" json:"duration_reset" env:"DURATION_RESET"`

	// ErrorReset 触发重建的下游状态码
	ErrorReset []int `yaml:"error_reset" json:"error_reset" env:"ERROR_RESET"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		TransactionReset: 50,
		DurationReset:    time.Hour,
		ErrorReset: []int{
			int(network.StatusPlatformTransactionNotCreated),
			int(network.StatusPlatformNotActive),
		},
	}
}

// Observer 接收重建事件。实现必须是并发安全的。
type Observer interface {
	OnClientRecreated(reason string, success bool)
}

// Option 配置 Manager
type Option func(*Manager)

// WithClock 替换时钟，用于测试
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithObserver 注册观察者
func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// Manager 客户端生命周期管理器
type Manager struct {
	config   Config
	network  network.Config
	operator *network.Operator
	factory  network.Factory
	observer Observer
	logger   *zap.Logger
	now      func() time.Time

	reinitEnabled bool
	errorCodes    map[int]struct{}

	group singleflight.Group

	mu           sync.Mutex
	client       network.Client
	generation   string
	episode      uint64
	txRemaining  int
	resetAt      time.Time
	resetPending bool
	resetReason  string
	checkedOut   bool
}

// NewManager 校验凭据并创建首个客户端。凭据无效时返回 CONFIG_REJECTED。
func NewManager(
	config Config,
	netConfig network.Config,
	credentials network.Credentials,
	factory network.Factory,
	logger *zap.Logger,
	opts ...Option,
) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if factory == nil {
		return nil, types.NewError(types.ErrConfigRejected, "client factory is required")
	}
	if config.TransactionReset < 0 || config.DurationReset < 0 {
		return nil, types.NewError(types.ErrConfigRejected, "client reset triggers must not be negative")
	}

	operator, err := network.ParseOperator(credentials)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		config:     config,
		network:    netConfig,
		operator:   operator,
		factory:    factory,
		logger:     logger.With(zap.String("component", "client_lifecycle")),
		now:        time.Now,
		errorCodes: make(map[int]struct{}, len(config.ErrorReset)),
	}
	for _, code := range config.ErrorReset {
		m.errorCodes[code] = struct{}{}
	}
	m.reinitEnabled = config.TransactionReset > 0 || config.DurationReset > 0 || len(m.errorCodes) > 0

	for _, opt := range opts {
		opt(m)
	}

	client, err := m.build()
	if err != nil {
		return nil, types.NewError(types.ErrClientUnavailable, "failed to create downstream client").WithCause(err)
	}
	m.install(client)

	m.logger.Info("client lifecycle manager initialized",
		zap.String("operator", operator.AccountID.String()),
		zap.String("network", netConfig.Network),
		zap.Bool("reinit_enabled", m.reinitEnabled),
		zap.Int("transaction_reset", config.TransactionReset),
		zap.Duration("duration_reset", config.DurationReset),
		zap.Ints("error_reset", config.ErrorReset),
		zap.String("generation", m.generation),
	)
	return m, nil
}

// Operator 返回已校验的运营账户
func (m *Manager) Operator() *network.Operator { return m.operator }

// Checkout 返回当前句柄。若已标记待重建，先重建再返回。
func (m *Manager) Checkout(ctx context.Context) (network.Client, error) {
	m.mu.Lock()
	if !m.reinitEnabled {
		client := m.client
		m.mu.Unlock()
		return client, nil
	}

	if m.resetPending {
		episode, reason := m.episode, m.resetReason
		m.mu.Unlock()

		if err := m.recreate(ctx, episode, reason); err != nil {
			return nil, err
		}
		m.mu.Lock()
	}
	defer m.mu.Unlock()

	if m.config.TransactionReset > 0 {
		if m.txRemaining > 0 {
			m.txRemaining--
		}
		if m.txRemaining == 0 {
			m.markPendingLocked(ReasonTransactions)
		}
	}

	if m.config.DurationReset > 0 && !m.now().Before(m.resetAt) {
		m.markPendingLocked(ReasonDuration)
	}

	m.checkedOut = true
	return m.client, nil
}

// ReportErrorCode 下游返回 code 时调用；命中配置的错误码则标记待重建。
func (m *Manager) ReportErrorCode(code int) {
	if !m.reinitEnabled {
		return
	}
	if _, ok := m.errorCodes[code]; !ok {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.resetPending {
		m.logger.Info("client reset scheduled by error code",
			zap.Int("code", code),
			zap.String("status", network.Status(code).String()),
			zap.String("generation", m.generation),
		)
	}
	m.markPendingLocked(ReasonErrorCode)
}

// State 当前状态
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case !m.reinitEnabled:
		return StateUnmanaged
	case m.resetPending:
		return StatePendingReset
	case !m.checkedOut:
		return StateFresh
	default:
		return StateInUse
	}
}

// Generation 当前句柄的标识
func (m *Manager) Generation() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// TransactionsRemaining 当前句柄剩余的 Checkout 次数
func (m *Manager) TransactionsRemaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.txRemaining
}

func (m *Manager) markPendingLocked(reason string) {
	if !m.resetPending {
		m.resetReason = reason
	}
	m.resetPending = true
}

// recreate 每个周期号只构建一次客户端。ctx 取消时不再等待，
// 但进行中的构建仍会完成并生效。
func (m *Manager) recreate(ctx context.Context, episode uint64, reason string) error {
	ch := m.group.DoChan(strconv.FormatUint(episode, 10), func() (any, error) {
		m.mu.Lock()
		stale := m.episode != episode || !m.resetPending
		m.mu.Unlock()
		if stale {
			return nil, nil
		}

		client, err := m.build()
		if err != nil {
			m.logger.Error("failed to recreate downstream client, keeping previous handle",
				zap.String("reason", reason),
				zap.Error(err),
			)
			m.notify(reason, false)
			return nil, nil
		}

		m.mu.Lock()
		previous := m.generation
		swapped := m.episode == episode
		if swapped {
			m.install(client)
		}
		current := m.generation
		m.mu.Unlock()

		if swapped {
			m.logger.Info("downstream client recreated",
				zap.String("reason", reason),
				zap.String("previous_generation", previous),
				zap.String("generation", current),
			)
			m.notify(reason, true)
		}
		return nil, nil
	})

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// build 在锁外调用工厂
func (m *Manager) build() (network.Client, error) {
	client, err := m.factory(m.network, m.operator)
	if err != nil {
		return nil, fmt.Errorf("client factory: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("client factory returned nil client")
	}
	if m.network.RequestTimeout > 0 {
		client.SetRequestTimeout(m.network.RequestTimeout)
	}
	return client, nil
}

// install 替换句柄并重置计数器。调用方持锁（构造期间除外）。
func (m *Manager) install(client network.Client) {
	m.client = client
	m.generation = uuid.NewString()
	m.episode++
	m.txRemaining = m.config.TransactionReset
	m.resetAt = m.now().Add(m.config.DurationReset)
	m.resetPending = false
	m.resetReason = ""
	m.checkedOut = false
}

func (m *Manager) notify(reason string, success bool) {
	if m.observer != nil {
		m.observer.OnClientRecreated(reason, success)
	}
}
