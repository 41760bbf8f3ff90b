// =============================================================================
// 🔄 配置热加载
// =============================================================================
// 基于轮询的配置文件监听：文件修改时间变化后重新加载并校验，
// 校验通过才替换当前配置并通知回调。
// =============================================================================
package config

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ReloadFunc 在配置成功重新加载后调用
type ReloadFunc func(old, updated *Config)

// Reloader 轮询配置文件并在变更时重新加载
type Reloader struct {
	loader   *Loader
	path     string
	interval time.Duration
	logger   *zap.Logger

	mu        sync.RWMutex
	current   *Config
	lastMod   time.Time
	callbacks []ReloadFunc
}

// NewReloader 创建热加载器。initial 为当前生效的配置。
func NewReloader(path string, interval time.Duration, initial *Config, logger *zap.Logger) *Reloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Reloader{
		loader:   NewLoader().WithConfigPath(path),
		path:     path,
		interval: interval,
		logger:   logger.With(zap.String("component", "config_reloader")),
		current:  initial,
	}
	if info, err := os.Stat(path); err == nil {
		r.lastMod = info.ModTime()
	}
	return r
}

// OnReload 注册回调
func (r *Reloader) OnReload(fn ReloadFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = append(r.callbacks, fn)
}

// Current 返回当前配置
func (r *Reloader) Current() *Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Check 检查文件是否变更，变更则重新加载。返回是否应用了新配置。
// 校验失败时保留旧配置。
func (r *Reloader) Check() (bool, error) {
	info, err := os.Stat(r.path)
	if err != nil {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	r.mu.RLock()
	unchanged := !info.ModTime().After(r.lastMod)
	r.mu.RUnlock()
	if unchanged {
		return false, nil
	}

	updated, err := r.loader.Load()
	if err == nil {
		err = updated.Validate()
	}

	r.mu.Lock()
	r.lastMod = info.ModTime()
	if err != nil {
		r.mu.Unlock()
		return false, fmt.Errorf("reload config: %w", err)
	}
	old := r.current
	r.current = updated
	callbacks := append([]ReloadFunc(nil), r.callbacks...)
	r.mu.Unlock()

	r.logger.Info("config reloaded", zap.String("path", r.path))
	for _, fn := range callbacks {
		fn(old, updated)
	}
	return true, nil
}

// Run 按间隔轮询，直到 ctx 取消
func (r *Reloader) Run(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Check(); err != nil {
				r.logger.Warn("config reload failed, keeping previous config", zap.Error(err))
			}
		}
	}
}
