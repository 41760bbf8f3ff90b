package cache

import (
	"context"
	"errors"
	"time"
)

// Store is one cache tier. A ttl <= 0 means the tier's default TTL.
type Store interface {
	// Name identifies the tier in logs and metrics.
	Name() string

	// Get returns (nil, false, nil) on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// MultiSet writes all entries atomically. It does not apply a TTL.
	MultiSet(ctx context.Context, entries map[string][]byte) error
	// PipelineSet writes all entries in one round trip, each with ttl.
	PipelineSet(ctx context.Context, entries map[string][]byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error

	IncrBy(ctx context.Context, key string, amount int64) (int64, error)
	RPush(ctx context.Context, key string, values ...string) (int64, error)
	// LRange is inclusive of end; negative indices count from the end.
	LRange(ctx context.Context, key string, start, end int64) ([]string, error)
	// Keys matches glob patterns: *, ?, [abc], [^abc], [a-z] and \ escapes.
	Keys(ctx context.Context, pattern string) ([]string, error)
}

// Tier names.
const (
	TierLocal  = "local"
	TierShared = "shared"
)

var (
	// ErrNotInteger is returned by IncrBy when the stored value is not a decimal integer.
	ErrNotInteger = errors.New("value is not an integer")
	// ErrWrongType is returned when a list operation hits a plain value or vice versa.
	ErrWrongType = errors.New("operation against a key holding the wrong kind of value")
)

// normalizeRange converts Redis-style inclusive indices into a [lo, hi)
// slice window for a list of length n. ok is false for an empty window.
func normalizeRange(start, end, n int64) (lo, hi int64, ok bool) {
	if start < 0 {
		start += n
	}
	if end < 0 {
		end += n
	}
	if start < 0 {
		start = 0
	}
	if end >= n {
		end = n - 1
	}
	if start > end || start >= n {
		return 0, 0, false
	}
	return start, end + 1, true
}
