package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/untoldecay/InstructionLog/internal/types"
)

func openTestBadger(t *testing.T, ttl time.Duration) *BadgerCache {
	t.Helper()
	c, err := OpenBadger(Config{InMemory: true, TTL: ttl})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func sample(name string) *types.InstructionSet {
	return &types.InstructionSet{ID: 1, Name: name, Title: "Title", Content: "body", Version: 3, Active: true}
}

func TestBadgerCache_SetGetInvalidate(t *testing.T) {
	ctx := context.Background()
	c := openTestBadger(t, 0)

	_, ok, err := c.Get(ctx, "mobile-mode")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, sample("mobile-mode")))

	got, ok, err := c.Get(ctx, "mobile-mode")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, got.Version)
	assert.Equal(t, "body", got.Content)

	require.NoError(t, c.Invalidate(ctx, "mobile-mode"))
	_, ok, err = c.Get(ctx, "mobile-mode")
	require.NoError(t, err)
	assert.False(t, ok)

	// Invalidating an absent key is not an error.
	require.NoError(t, c.Invalidate(ctx, "never-set"))
}

func TestBadgerCache_EntriesExpire(t *testing.T) {
	ctx := context.Background()
	c := openTestBadger(t, time.Second)

	require.NoError(t, c.Set(ctx, sample("short-lived")))
	_, ok, err := c.Get(ctx, "short-lived")
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(2100 * time.Millisecond)

	_, ok, err = c.Get(ctx, "short-lived")
	require.NoError(t, err)
	assert.False(t, ok, "entry should expire after its TTL")
}

func TestOpenBadger_RequiresPath(t *testing.T) {
	_, err := OpenBadger(Config{})
	assert.Error(t, err)
}

func TestOpenBadger_OnDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	c, err := OpenBadger(Config{Path: dir})
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, sample("persisted")))
	require.NoError(t, c.Close())

	c, err = OpenBadger(Config{Path: dir})
	require.NoError(t, err)
	defer c.Close()
	_, ok, err := c.Get(ctx, "persisted")
	require.NoError(t, err)
	assert.True(t, ok)
}

// brokenCache fails every call.
type brokenCache struct{}

var errBroken = errors.New("cache unavailable")

func (brokenCache) Get(context.Context, string) (*types.InstructionSet, bool, error) {
	return nil, false, errBroken
}
func (brokenCache) Set(context.Context, *types.InstructionSet) error { return errBroken }
func (brokenCache) Invalidate(context.Context, string) error         { return errBroken }
func (brokenCache) Close() error                                     { return nil }

func TestFailOpen_SwallowsErrors(t *testing.T) {
	ctx := context.Background()
	c := NewFailOpen(brokenCache{}, nil)

	_, ok := c.Get(ctx, "x")
	assert.False(t, ok)
	c.Set(ctx, sample("x"))
	c.Invalidate(ctx, "x")

	got, err := c.GetOrLoad(ctx, "x", func(context.Context) (*types.InstructionSet, error) {
		return sample("x"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "x", got.Name)
}

func TestFailOpen_LoadErrorPropagates(t *testing.T) {
	loadErr := errors.New("row missing")
	c := NewFailOpen(NopCache{}, nil)

	_, err := c.GetOrLoad(context.Background(), "x", func(context.Context) (*types.InstructionSet, error) {
		return nil, loadErr
	})
	assert.ErrorIs(t, err, loadErr)
}

func TestFailOpen_GetOrLoadPopulates(t *testing.T) {
	ctx := context.Background()
	c := NewFailOpen(openTestBadger(t, 0), nil)

	var loads int32
	load := func(context.Context) (*types.InstructionSet, error) {
		atomic.AddInt32(&loads, 1)
		return sample("warm"), nil
	}

	_, err := c.GetOrLoad(ctx, "warm", load)
	require.NoError(t, err)
	_, err = c.GetOrLoad(ctx, "warm", load)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))

	c.Invalidate(ctx, "warm")
	_, err = c.GetOrLoad(ctx, "warm", load)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&loads))
}

func TestFailOpen_CollapsesConcurrentMisses(t *testing.T) {
	c := NewFailOpen(NopCache{}, nil)
	release := make(chan struct{})
	var loads int32

	load := func(context.Context) (*types.InstructionSet, error) {
		atomic.AddInt32(&loads, 1)
		<-release
		return sample("hot"), nil
	}

	const callers = 5
	var wg sync.WaitGroup
	results := make([]*types.InstructionSet, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			inst, err := c.GetOrLoad(context.Background(), "hot", load)
			assert.NoError(t, err)
			results[i] = inst
		}(i)
	}

	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
	for i := 1; i < callers; i++ {
		require.NotNil(t, results[i])
		assert.NotSame(t, results[0], results[i], "callers must get independent copies")
	}
}

func TestFailOpen_InvalidateDuringLoadSkipsSet(t *testing.T) {
	ctx := context.Background()
	inner := openTestBadger(t, 0)
	c := NewFailOpen(inner, nil)

	got, err := c.GetOrLoad(ctx, "racy", func(ctx context.Context) (*types.InstructionSet, error) {
		stale := sample("racy")
		// A writer commits and invalidates while this load is in flight.
		c.Invalidate(ctx, "racy")
		return stale, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, got.Version)

	_, ok, err := inner.Get(ctx, "racy")
	require.NoError(t, err)
	assert.False(t, ok, "a row loaded across an invalidation must not be cached")

	_, err = c.GetOrLoad(ctx, "racy", func(context.Context) (*types.InstructionSet, error) {
		return sample("racy"), nil
	})
	require.NoError(t, err)
	_, ok, err = inner.Get(ctx, "racy")
	require.NoError(t, err)
	assert.True(t, ok, "a quiet load is cached")
}
