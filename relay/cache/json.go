package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// GetJSON 读取并反序列化。无法反序列化的值按未命中处理。
func GetJSON[T any](ctx context.Context, c *TieredCache, key, method string) (T, bool) {
	var zero T

	data, ok := c.Get(ctx, key, method)
	if !ok {
		return zero, false
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, false
	}
	return v, true
}

// SetJSON 序列化后写入。只有序列化失败会返回错误。
func SetJSON(ctx context.Context, c *TieredCache, key string, value any, ttl time.Duration, method string) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	c.Set(ctx, key, data, ttl, method)
	return nil
}
