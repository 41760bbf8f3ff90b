package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_SetGet(t *testing.T) {
	s := NewLocalStore(DefaultLocalConfig())
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)

	_, ok, err = s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStore_LRUEviction(t *testing.T) {
	s := NewLocalStore(LocalConfig{Capacity: 2})
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, s.Set(ctx, "b", []byte("2"), 0))

	// a 最近被访问，b 应被淘汰
	_, ok, _ := s.Get(ctx, "a")
	require.True(t, ok)
	require.NoError(t, s.Set(ctx, "c", []byte("3"), 0))

	_, ok, _ = s.Get(ctx, "b")
	assert.False(t, ok)
	_, ok, _ = s.Get(ctx, "a")
	assert.True(t, ok)
	_, ok, _ = s.Get(ctx, "c")
	assert.True(t, ok)
	assert.Equal(t, 2, s.Len())
}

func TestLocalStore_TTL(t *testing.T) {
	s := NewLocalStore(LocalConfig{Capacity: 10, DefaultTTL: time.Hour})
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "short", []byte("v"), 20*time.Millisecond))
	require.NoError(t, s.Set(ctx, "long", []byte("v"), 0))

	time.Sleep(50 * time.Millisecond)

	_, ok, _ := s.Get(ctx, "short")
	assert.False(t, ok)
	_, ok, _ = s.Get(ctx, "long")
	assert.True(t, ok)

	keys, err := s.Keys(ctx, "*")
	require.NoError(t, err)
	assert.Equal(t, []string{"long"}, keys)
}

func TestLocalStore_GetDoesNotExtendTTL(t *testing.T) {
	s := NewLocalStore(LocalConfig{})
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 60*time.Millisecond))
	time.Sleep(35 * time.Millisecond)
	_, ok, _ := s.Get(ctx, "k")
	require.True(t, ok)
	time.Sleep(35 * time.Millisecond)

	_, ok, _ = s.Get(ctx, "k")
	assert.False(t, ok)
}

func TestLocalStore_IncrBy(t *testing.T) {
	s := NewLocalStore(LocalConfig{})
	ctx := context.Background()

	n, err := s.IncrBy(ctx, "c", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = s.IncrBy(ctx, "c", -5)
	require.NoError(t, err)
	assert.Equal(t, int64(-2), n)

	// 计数器以十进制字符串保存，与 Shared 层一致
	v, _, _ := s.Get(ctx, "c")
	assert.Equal(t, "-2", string(v))

	require.NoError(t, s.Set(ctx, "json", []byte(`{"a":1}`), 0))
	_, err = s.IncrBy(ctx, "json", 1)
	assert.ErrorIs(t, err, ErrNotInteger)
}

func TestLocalStore_IncrByKeepsTTL(t *testing.T) {
	s := NewLocalStore(LocalConfig{})
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "c", []byte("1"), 40*time.Millisecond))
	_, err := s.IncrBy(ctx, "c", 1)
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)
	_, ok, _ := s.Get(ctx, "c")
	assert.False(t, ok)
}

func TestLocalStore_Lists(t *testing.T) {
	s := NewLocalStore(LocalConfig{})
	ctx := context.Background()

	for i, v := range []string{"a", "b", "c", "d"} {
		n, err := s.RPush(ctx, "l", v)
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), n)
	}

	tests := []struct {
		start, end int64
		want       []string
	}{
		{0, -1, []string{"a", "b", "c", "d"}},
		{-2, -1, []string{"c", "d"}},
		{1, 2, []string{"b", "c"}},
		{0, 0, []string{"a"}},
		{2, 100, []string{"c", "d"}},
		{-100, 1, []string{"a", "b"}},
		{3, 1, []string{}},
		{10, 20, []string{}},
	}
	for _, tt := range tests {
		got, err := s.LRange(ctx, "l", tt.start, tt.end)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "LRange(%d, %d)", tt.start, tt.end)
	}

	got, err := s.LRange(ctx, "missing", 0, -1)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, _, err = s.Get(ctx, "l")
	assert.ErrorIs(t, err, ErrWrongType)

	require.NoError(t, s.Set(ctx, "plain", []byte("v"), 0))
	_, err = s.RPush(ctx, "plain", "x")
	assert.ErrorIs(t, err, ErrWrongType)
}

func TestLocalStore_ReturnedListIsCopy(t *testing.T) {
	s := NewLocalStore(LocalConfig{})
	ctx := context.Background()

	_, _ = s.RPush(ctx, "l", "a", "b")
	got, _ := s.LRange(ctx, "l", 0, -1)
	got[0] = "mutated"

	again, _ := s.LRange(ctx, "l", 0, -1)
	assert.Equal(t, []string{"a", "b"}, again)
}

func TestLocalStore_DeleteClearKeys(t *testing.T) {
	s := NewLocalStore(LocalConfig{})
	ctx := context.Background()

	require.NoError(t, s.PipelineSet(ctx, map[string][]byte{
		"key1": []byte("1"), "key2": []byte("2"), "key3": []byte("3"),
	}, time.Minute))

	keys, err := s.Keys(ctx, "key[1-2]")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"key1", "key2"}, keys)

	require.NoError(t, s.Delete(ctx, "key1"))
	keys, _ = s.Keys(ctx, "key*")
	assert.ElementsMatch(t, []string{"key2", "key3"}, keys)

	require.NoError(t, s.Clear(ctx))
	keys, _ = s.Keys(ctx, "*")
	assert.Empty(t, keys)
}
