package cache

import (
	"context"
	"testing"
	"time"

	"culinai/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(maxSize int, ttl time.Duration) *Manager {
	return NewManager(Options{MaxSize: maxSize, TTL: ttl})
}

func TestManager_SetGet(t *testing.T) {
	m := newTestManager(10, time.Minute)
	defer m.Close()
	ctx := context.Background()

	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, common.ErrCacheMiss)

	require.NoError(t, m.Set(ctx, "k", "v"))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	stats := m.GetStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)
	assert.InDelta(t, 0.5, stats.HitRatio, 0.0001)
}

func TestManager_Expiry(t *testing.T) {
	m := newTestManager(10, time.Minute)
	defer m.Close()
	ctx := context.Background()

	now := time.Now()
	m.now = func() time.Time { return now }
	require.NoError(t, m.Set(ctx, "k", "v"))

	m.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, common.ErrCacheMiss)
	assert.Equal(t, 0, m.GetStats().Size)
}

func TestManager_EvictsLeastUsedWhenFull(t *testing.T) {
	m := newTestManager(2, time.Minute)
	defer m.Close()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", "1"))
	require.NoError(t, m.Set(ctx, "b", "2"))
	_, err := m.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, m.Set(ctx, "c", "3"))

	_, err = m.Get(ctx, "b")
	assert.ErrorIs(t, err, common.ErrCacheMiss)
	v, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
	v, err = m.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "3", v)
}

func TestManager_OverwriteDoesNotEvict(t *testing.T) {
	m := newTestManager(1, time.Minute)
	defer m.Close()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", "1"))
	require.NoError(t, m.Set(ctx, "a", "2"))
	v, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
	assert.Equal(t, int64(0), m.GetStats().Evictions)
}

func TestManager_CloseTwice(t *testing.T) {
	m := NewManager(Options{MaxSize: 1, TTL: time.Minute, CleanupInterval: time.Hour})
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}
