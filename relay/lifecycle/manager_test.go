package lifecycle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/relaycore/relaycore/relay/network"
	"github.com/relaycore/relaycore/testutil"
	"github.com/relaycore/relaycore/testutil/fixtures"
	"github.com/relaycore/relaycore/testutil/mocks"
	"github.com/relaycore/relaycore/types"
)

type recreateCounter struct {
	ok, failed atomic.Int32
	mu         sync.Mutex
	reasons    []string
}

func (r *recreateCounter) OnClientRecreated(reason string, success bool) {
	if success {
		r.ok.Add(1)
	} else {
		r.failed.Add(1)
	}
	r.mu.Lock()
	r.reasons = append(r.reasons, reason)
	r.mu.Unlock()
}

func newManager(t *testing.T, cfg Config, opts ...Option) (*Manager, *mocks.MockFactory) {
	t.Helper()
	factory := mocks.NewMockFactory(nil)
	m, err := NewManager(cfg, fixtures.NetworkConfig(), fixtures.Credentials(), factory.Factory(), testutil.TestLogger(t), opts...)
	require.NoError(t, err)
	return m, factory
}

func checkoutID(t *testing.T, m *Manager) int {
	t.Helper()
	c, err := m.Checkout(context.Background())
	require.NoError(t, err)
	return c.(*mocks.MockClient).ID
}

func TestNewManager(t *testing.T) {
	m, factory := newManager(t, DefaultConfig())

	assert.Equal(t, 1, factory.Builds())
	assert.Equal(t, StateFresh, m.State())
	assert.Equal(t, 50, m.TransactionsRemaining())
	assert.NotEmpty(t, m.Generation())
	assert.Equal(t, fixtures.OperatorEVMAddress, m.Operator().EVMAddress)
}

func TestNewManager_AppliesRequestTimeout(t *testing.T) {
	factory := mocks.NewMockFactory(nil)
	netCfg := fixtures.NetworkConfig()
	netCfg.RequestTimeout = 7 * time.Second

	_, err := NewManager(DefaultConfig(), netCfg, fixtures.Credentials(), factory.Factory(), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, factory.Clients()[0].Timeout())
}

func TestNewManager_RejectsBadCredentials(t *testing.T) {
	factory := mocks.NewMockFactory(nil)
	creds := fixtures.Credentials()
	creds.KeyFormat = "PEM"

	_, err := NewManager(DefaultConfig(), fixtures.NetworkConfig(), creds, factory.Factory(), zap.NewNop())
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrConfigRejected))
	assert.Zero(t, factory.Builds(), "no client is built for rejected credentials")
}

func TestNewManager_InitialFactoryFailure(t *testing.T) {
	factory := mocks.NewMockFactory(nil).WithError(errors.New("dial failed"))

	_, err := NewManager(DefaultConfig(), fixtures.NetworkConfig(), fixtures.Credentials(), factory.Factory(), zap.NewNop())
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrClientUnavailable))
}

func TestCheckout_TransactionTrigger(t *testing.T) {
	obs := &recreateCounter{}
	m, factory := newManager(t, Config{TransactionReset: 1}, WithObserver(obs))

	assert.Equal(t, 1, checkoutID(t, m))
	assert.Equal(t, StatePendingReset, m.State())

	// 第二次 Checkout 重建客户端
	assert.Equal(t, 2, checkoutID(t, m))
	assert.Equal(t, 2, factory.Builds())
	assert.Equal(t, int32(1), obs.ok.Load())
	assert.Equal(t, []string{ReasonTransactions}, obs.reasons)
}

func TestCheckout_TransactionCountdown(t *testing.T) {
	m, factory := newManager(t, Config{TransactionReset: 3})

	for i := 0; i < 3; i++ {
		assert.Equal(t, 1, checkoutID(t, m))
	}
	assert.Equal(t, 0, m.TransactionsRemaining())
	assert.Equal(t, 2, checkoutID(t, m))
	assert.Equal(t, 2, m.TransactionsRemaining())
	assert.Equal(t, 2, factory.Builds())
}

func TestCheckout_ErrorCodeTrigger(t *testing.T) {
	m, factory := newManager(t, Config{TransactionReset: 100, ErrorReset: []int{int(network.StatusPlatformNotActive)}})

	assert.Equal(t, 1, checkoutID(t, m))

	// 非配置的错误码不触发
	m.ReportErrorCode(int(network.StatusBusy))
	assert.Equal(t, StateInUse, m.State())

	m.ReportErrorCode(int(network.StatusPlatformNotActive))
	assert.Equal(t, StatePendingReset, m.State())
	assert.Equal(t, 1, factory.Builds(), "reporting never recreates by itself")

	assert.Equal(t, 2, checkoutID(t, m))
	assert.Equal(t, 99, m.TransactionsRemaining())
}

func TestCheckout_DurationTrigger(t *testing.T) {
	clock := testutil.NewClock(time.UnixMilli(1_700_000_000_000))
	m, factory := newManager(t, Config{DurationReset: time.Minute}, WithClock(clock.Now))

	assert.Equal(t, 1, checkoutID(t, m))
	clock.Advance(59 * time.Second)
	assert.Equal(t, 1, checkoutID(t, m))
	assert.Equal(t, StateInUse, m.State())

	clock.Advance(time.Second)
	// 到期时本次仍返回旧句柄，仅标记待重建
	assert.Equal(t, 1, checkoutID(t, m))
	assert.Equal(t, StatePendingReset, m.State())

	assert.Equal(t, 2, checkoutID(t, m))
	assert.Equal(t, 2, factory.Builds())
}

func TestCheckout_ZeroDurationDisablesTimeCheck(t *testing.T) {
	clock := testutil.NewClock(time.Now())
	m, factory := newManager(t, Config{TransactionReset: 1000}, WithClock(clock.Now))

	clock.Advance(365 * 24 * time.Hour)
	checkoutID(t, m)
	checkoutID(t, m)
	assert.Equal(t, 1, factory.Builds())
}

func TestCheckout_Unmanaged(t *testing.T) {
	m, factory := newManager(t, Config{})

	assert.Equal(t, StateUnmanaged, m.State())
	for i := 0; i < 100; i++ {
		assert.Equal(t, 1, checkoutID(t, m))
	}
	m.ReportErrorCode(int(network.StatusPlatformNotActive))
	assert.Equal(t, 1, checkoutID(t, m))
	assert.Equal(t, 1, factory.Builds())
}

func TestCheckout_ConcurrentSingleRecreation(t *testing.T) {
	obs := &recreateCounter{}
	m, factory := newManager(t, Config{TransactionReset: 1000, ErrorReset: []int{21}}, WithObserver(obs))
	factory.WithDelay(20 * time.Millisecond)

	m.ReportErrorCode(21)

	var wg sync.WaitGroup
	ids := make(chan int, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := m.Checkout(context.Background())
			if assert.NoError(t, err) {
				ids <- c.(*mocks.MockClient).ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	assert.Equal(t, 2, factory.Builds(), "one recreation per reset episode")
	assert.Equal(t, int32(1), obs.ok.Load())
	for id := range ids {
		assert.Equal(t, 2, id)
	}
	assert.Equal(t, 1000-50, m.TransactionsRemaining())
}

func TestCheckout_FactoryFailureKeepsHandle(t *testing.T) {
	obs := &recreateCounter{}
	m, factory := newManager(t, Config{TransactionReset: 1}, WithObserver(obs))

	assert.Equal(t, 1, checkoutID(t, m))
	factory.WithError(errors.New("dial failed"))

	// 失败时继续使用旧句柄，保持待重建
	assert.Equal(t, 1, checkoutID(t, m))
	assert.Equal(t, StatePendingReset, m.State())
	assert.Equal(t, int32(1), obs.failed.Load())

	factory.WithError(nil)
	assert.Equal(t, 2, checkoutID(t, m))
	assert.Equal(t, int32(1), obs.ok.Load())
}

func TestCheckout_CancelledWhileRecreating(t *testing.T) {
	m, factory := newManager(t, Config{TransactionReset: 1})
	checkoutID(t, m)
	factory.WithDelay(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err := m.Checkout(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// 进行中的重建仍会完成
	assert.True(t, testutil.WaitFor(func() bool { return m.State() == StateFresh }, time.Second))
	assert.Equal(t, 2, checkoutID(t, m))
}
