package retry

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/relaycore/relaycore/relay/network"
	"github.com/relaycore/relaycore/types"
)

// DefaultFeeStep is the default per-attempt cost multiplier.
const DefaultFeeStep = 1.2

// FeeConfig 费用递增配置
type FeeConfig struct {
	// Step 每次重试的费用倍率，必须大于 1
	Step float64 `yaml:"step" json:"step" env:"STEP"`

	// MaxRetries 最多递增次数，总尝试次数为 MaxRetries+1
	MaxRetries int `yaml:"max_retries" json:"max_retries" env:"MAX_RETRIES"`
}

// DefaultFeeConfig 返回默认配置
func DefaultFeeConfig() FeeConfig {
	return FeeConfig{Step: DefaultFeeStep, MaxRetries: 3}
}

// FeeEscalator 在“费用过低”拒绝时按倍率提高费用重试
type FeeEscalator struct {
	step       float64
	maxRetries int
	opts       []Option
}

// NewFeeEscalator 创建费用递增重试器。Step <= 1 是配置错误。
func NewFeeEscalator(config FeeConfig, opts ...Option) (*FeeEscalator, error) {
	if !(config.Step > 1) || math.IsInf(config.Step, 0) {
		return nil, types.NewError(types.ErrConfigRejected,
			fmt.Sprintf("fee step factor must be > 1, got %v", config.Step))
	}
	if config.MaxRetries < 0 {
		return nil, types.NewError(types.ErrConfigRejected,
			fmt.Sprintf("fee max retries must be >= 0, got %d", config.MaxRetries))
	}
	return &FeeEscalator{step: config.Step, maxRetries: config.MaxRetries, opts: opts}, nil
}

// MaxRetries 配置的最多递增次数
func (e *FeeEscalator) MaxRetries() int { return e.maxRetries }

// CostAt returns floor(base * step^k). Each attempt is computed from the
// base so truncation does not compound.
func (e *FeeEscalator) CostAt(base int64, k int) int64 {
	cost := math.Floor(float64(base) * math.Pow(e.step, float64(k)))
	if cost >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(cost)
}

// ExecuteWithEscalatingFee runs query at baseCost and, on an insufficient-fee
// rejection, retries with CostAt(baseCost, k) for k = 1..maxRetries.
// maxRetries < 0 uses the escalator's configured value. It returns the
// result and the cost of the successful attempt; on failure the last error
// from query is returned unchanged.
func ExecuteWithEscalatingFee[T any](
	ctx context.Context,
	e *FeeEscalator,
	query func(ctx context.Context, cost int64) (T, error),
	baseCost int64,
	maxRetries int,
	opts ...Option,
) (T, int64, error) {
	var zero T
	if maxRetries < 0 {
		maxRetries = e.maxRetries
	}
	o := buildOptions("execute_with_escalating_fee", append(append([]Option{}, e.opts...), opts...))

	var lastErr error
	for k := 0; k <= maxRetries; k++ {
		if err := o.beforeRetry(ctx, k+1); err != nil {
			return zero, 0, err
		}

		cost := e.CostAt(baseCost, k)
		v, err := query(ctx, cost)
		if err == nil {
			return v, cost, nil
		}
		lastErr = err
		if !network.IsInsufficientFee(err) {
			return zero, cost, err
		}

		o.logger.Info("insufficient fee, escalating",
			zap.String("operation", o.operation),
			zap.Int("attempt", k+1),
			zap.Int64("cost", cost),
		)
	}

	o.logger.Warn("fee escalation exhausted",
		zap.String("operation", o.operation),
		zap.Int("attempts", maxRetries+1),
		zap.Error(lastErr),
	)
	return zero, e.CostAt(baseCost, maxRetries), lastErr
}
