package budget

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testTotal    = int64(100_000_000)
	testDuration = 60 * time.Second
	testCaller   = "0x7394111093687e9710b7a7aeba3ba0f417c54474"
	testMethod   = "eth_sendRawTransaction"
)

var t0 = time.UnixMilli(1_700_000_000_000)

func newTestLimiter(t *testing.T, opts ...Option) *Limiter {
	t.Helper()
	return NewLimiter(Config{Total: testTotal, Duration: testDuration}, t0, zap.NewNop(), opts...)
}

type recordingObserver struct {
	mu       sync.Mutex
	limits   int
	expenses int
	resets   int
}

func (o *recordingObserver) OnLimit(string, int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.limits++
}

func (o *recordingObserver) OnExpense(string, int64, int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.expenses++
}

func (o *recordingObserver) OnReset(int64, time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resets++
}

// =============================================================================
// 🧪 Limiter 测试
// =============================================================================

func TestNewLimiter(t *testing.T) {
	limiter := newTestLimiter(t)

	assert.True(t, limiter.IsEnabled())
	assert.Equal(t, testTotal, limiter.RemainingBudget())
	assert.Equal(t, t0.Add(testDuration), limiter.ResetTime())
}

func TestLimiter_Disabled(t *testing.T) {
	limiter := NewLimiter(Config{Total: 0, Duration: testDuration}, t0, nil)

	assert.False(t, limiter.IsEnabled())
	assert.Equal(t, int64(0), limiter.RemainingBudget())

	limiter.AddExpense(1_000_000_000, t0, testMethod)
	assert.Equal(t, int64(0), limiter.RemainingBudget(), "disabled limiter pins remaining at 0")
	assert.False(t, limiter.ShouldLimit(t0, testCaller, testMethod))
	assert.False(t, limiter.ShouldPreemptivelyLimit(testCaller, 1_000_000_000, testMethod))
}

func TestLimiter_WithinBudget(t *testing.T) {
	limiter := newTestLimiter(t)

	limiter.AddExpense(testTotal/2, t0, testMethod)
	assert.False(t, limiter.ShouldLimit(t0, testCaller, testMethod))

	limiter.AddExpense(testTotal/2-1, t0, testMethod)
	assert.False(t, limiter.ShouldLimit(t0, testCaller, testMethod))
	assert.Equal(t, int64(1), limiter.RemainingBudget())
}

func TestLimiter_ExactBudgetLimits(t *testing.T) {
	limiter := newTestLimiter(t)

	limiter.AddExpense(testTotal, t0, testMethod)
	assert.True(t, limiter.ShouldLimit(t0, testCaller, testMethod), "remaining == 0 is limited")
}

func TestLimiter_OverdraftAllowed(t *testing.T) {
	limiter := newTestLimiter(t)

	limiter.AddExpense(1_000_000_000, t0, testMethod)
	assert.Equal(t, testTotal-1_000_000_000, limiter.RemainingBudget())
	assert.True(t, limiter.ShouldLimit(t0, testCaller, testMethod))
}

func TestLimiter_WindowRollover(t *testing.T) {
	limiter := newTestLimiter(t)

	limiter.AddExpense(1_000_000_000, t0, testMethod)
	require.True(t, limiter.ShouldLimit(t0, testCaller, testMethod))

	later := t0.Add(2 * testDuration)
	assert.False(t, limiter.ShouldLimit(later, testCaller, testMethod))
	assert.Equal(t, later.Add(testDuration), limiter.ResetTime())
	assert.Equal(t, testTotal, limiter.RemainingBudget())
}

func TestLimiter_NoResetAtBoundary(t *testing.T) {
	limiter := newTestLimiter(t)
	limiter.AddExpense(testTotal, t0, testMethod)

	// windowResetAt < now 才重置，等于边界时不重置
	assert.True(t, limiter.ShouldLimit(t0.Add(testDuration), testCaller, testMethod))
	assert.False(t, limiter.ShouldLimit(t0.Add(testDuration+time.Millisecond), testCaller, testMethod))
}

func TestLimiter_AddExpenseResetsStaleWindow(t *testing.T) {
	limiter := newTestLimiter(t)
	limiter.AddExpense(testTotal, t0, testMethod)

	later := t0.Add(testDuration + time.Second)
	limiter.AddExpense(10, later, testMethod)

	assert.Equal(t, testTotal-10, limiter.RemainingBudget())
	assert.Equal(t, later.Add(testDuration), limiter.ResetTime())
}

func TestLimiter_AllowListBypass(t *testing.T) {
	allowed := "0xAbCdEf0000000000000000000000000000000001"
	limiter := NewLimiter(Config{
		Total:     testTotal,
		Duration:  testDuration,
		AllowList: []string{allowed},
	}, t0, zap.NewNop())

	limiter.AddExpense(10*testTotal, t0, testMethod)

	assert.False(t, limiter.ShouldLimit(t0, allowed, testMethod))
	assert.False(t, limiter.ShouldLimit(t0, "0xabcdef0000000000000000000000000000000001", testMethod), "lookup is case-insensitive")
	assert.False(t, limiter.ShouldLimit(t0, "abcdef0000000000000000000000000000000001", testMethod), "0x prefix is optional")
	assert.False(t, limiter.ShouldPreemptivelyLimit(allowed, 10*testTotal, testMethod))
	assert.True(t, limiter.ShouldLimit(t0, testCaller, testMethod))
}

func TestLimiter_PreemptiveCheckIsPure(t *testing.T) {
	limiter := newTestLimiter(t)
	limiter.AddExpense(testTotal-100, t0, testMethod)

	assert.False(t, limiter.ShouldPreemptivelyLimit(testCaller, 100, testMethod))
	assert.True(t, limiter.ShouldPreemptivelyLimit(testCaller, 101, testMethod))
	assert.Equal(t, int64(100), limiter.RemainingBudget())

	// 透支后预检同样拒绝，且不移动窗口
	limiter.AddExpense(1000, t0, testMethod)
	assert.True(t, limiter.ShouldPreemptivelyLimit(testCaller, 1, testMethod))
	assert.Equal(t, t0.Add(testDuration), limiter.ResetTime())
}

func TestLimiter_Observer(t *testing.T) {
	obs := &recordingObserver{}
	limiter := newTestLimiter(t, WithObserver(obs))

	limiter.AddExpense(testTotal, t0, testMethod)
	limiter.ShouldLimit(t0, testCaller, testMethod)
	limiter.ShouldLimit(t0.Add(2*testDuration), testCaller, testMethod)

	assert.Equal(t, 1, obs.expenses)
	assert.Equal(t, 1, obs.limits)
	assert.Equal(t, 1, obs.resets)
}

func TestLimiter_Status(t *testing.T) {
	limiter := newTestLimiter(t)
	limiter.AddExpense(40, t0, testMethod)

	status := limiter.Status()
	assert.True(t, status.Enabled)
	assert.Equal(t, testTotal, status.Total)
	assert.Equal(t, testTotal-40, status.Remaining)
	assert.Equal(t, t0.Add(testDuration), status.ResetAt)
}

func TestLimiter_ConcurrentExpenses(t *testing.T) {
	limiter := newTestLimiter(t)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			limiter.AddExpense(1000, t0, testMethod)
			limiter.ShouldLimit(t0, testCaller, testMethod)
		}()
	}
	wg.Wait()

	assert.Equal(t, testTotal-100*1000, limiter.RemainingBudget())
}
