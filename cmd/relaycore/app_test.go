package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/relaycore/relaycore/config"
	"github.com/relaycore/relaycore/testutil"
	"github.com/relaycore/relaycore/testutil/fixtures"
	"github.com/relaycore/relaycore/testutil/mocks"
	"github.com/relaycore/relaycore/types"
)

func testAppConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Server.HTTPPort = 0
	cfg.Operator = fixtures.Credentials()
	cfg.Network = fixtures.NetworkConfig()
	return cfg
}

func TestNewApp_LocalOnly(t *testing.T) {
	cfg := testAppConfig(t)
	factory := mocks.NewMockFactory(nil)

	a, err := newApp(cfg, "", zap.NewAtomicLevel(), factory.Factory(), testutil.TestLogger(t))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Nil(t, a.shared)
	assert.False(t, a.tiered.SharedActive())
	assert.Nil(t, a.reloader)
	assert.Equal(t, 1, factory.Builds())
}

func TestNewApp_SharedCacheAndOpsServer(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testAppConfig(t)
	cfg.Cache.SharedEnabled = true
	cfg.Redis.Addr = mr.Addr()

	a, err := newApp(cfg, "", zap.NewAtomicLevel(), mocks.NewMockFactory(nil).Factory(), testutil.TestLogger(t))
	require.NoError(t, err)
	t.Cleanup(a.Close)
	require.NotNil(t, a.shared)
	assert.True(t, a.tiered.SharedActive())

	require.NoError(t, a.Start(testutil.TestContext(t)))

	resp, err := http.Get("http://" + a.ops.Addr() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status  string            `json:"status"`
		Checks  map[string]string `json:"checks"`
		Details struct {
			ClientState string `json:"client_state"`
			SharedCache bool   `json:"shared_cache"`
		} `json:"details"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "ok", body.Checks["shared_cache"])
	assert.Equal(t, "fresh", body.Details.ClientState)
	assert.True(t, body.Details.SharedCache)

	assert.NoError(t, checkHealth("http://"+a.ops.Addr(), time.Second))

	metricsResp, err := http.Get("http://" + a.ops.Addr() + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	assert.Equal(t, http.StatusOK, metricsResp.StatusCode)
}

func TestNewApp_SharedCacheUnavailableFallsBackToLocal(t *testing.T) {
	cfg := testAppConfig(t)
	cfg.Cache.SharedEnabled = true
	cfg.Redis.Addr = "127.0.0.1:1"
	cfg.Redis.MaxRetries = -1
	cfg.Redis.OperationTimeout = 100 * time.Millisecond

	a, err := newApp(cfg, "", zap.NewAtomicLevel(), mocks.NewMockFactory(nil).Factory(), testutil.TestLogger(t))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Nil(t, a.shared)
	assert.False(t, a.tiered.SharedActive())
}

func TestNewApp_RejectsBadCredentials(t *testing.T) {
	cfg := testAppConfig(t)
	cfg.Operator.PrivateKey = "not-hex"

	_, err := newApp(cfg, "", zap.NewAtomicLevel(), mocks.NewMockFactory(nil).Factory(), testutil.TestLogger(t))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrConfigRejected))
}

func TestApp_ApplyReload(t *testing.T) {
	mr := miniredis.RunT(t)

	path := filepath.Join(t.TempDir(), "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0o644))

	cfg := testAppConfig(t)
	cfg.Cache.SharedEnabled = true
	cfg.Redis.Addr = mr.Addr()
	cfg.Server.ReloadInterval = time.Second

	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	a, err := newApp(cfg, path, level, mocks.NewMockFactory(nil).Factory(), testutil.TestLogger(t))
	require.NoError(t, err)
	t.Cleanup(a.Close)
	require.NotNil(t, a.reloader)

	updated := *cfg
	updated.Log.Level = "debug"
	updated.Cache.SharedEnabled = false
	updated.Budget.Total = 1
	a.applyReload(cfg, &updated)

	assert.Equal(t, zapcore.DebugLevel, level.Level())
	assert.False(t, a.tiered.SharedActive())
}

func TestCheckHealth_Unreachable(t *testing.T) {
	assert.Error(t, checkHealth("http://127.0.0.1:1", 100*time.Millisecond))
}

func TestInitLogger(t *testing.T) {
	logger, level := initLogger(config.LogConfig{Level: "warn", Format: "console", OutputPaths: []string{"stderr"}})
	require.NotNil(t, logger)
	assert.Equal(t, zapcore.WarnLevel, level.Level())

	_, level = initLogger(config.LogConfig{Level: "verbose"})
	assert.Equal(t, zapcore.InfoLevel, level.Level())
}

func TestApp_StartStop(t *testing.T) {
	a, err := newApp(testAppConfig(t), "", zap.NewAtomicLevel(), mocks.NewMockFactory(nil).Factory(), testutil.TestLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, a.Start(ctx))

	done := make(chan struct{})
	go func() {
		a.Wait(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("app did not stop")
	}
	a.Close()
	assert.False(t, a.ops.IsRunning())
}
