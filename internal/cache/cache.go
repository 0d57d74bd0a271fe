// Package cache holds the read-through cache in front of live instruction
// rows. The cache is advisory: it may serve a row for up to its TTL after
// another process changed it, and a failing cache never fails a caller.
package cache

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/untoldecay/InstructionLog/internal/types"
)

// Cache stores live rows keyed by instruction name.
type Cache interface {
	// Get returns the cached row. ok is false on a miss.
	Get(ctx context.Context, name string) (inst *types.InstructionSet, ok bool, err error)
	Set(ctx context.Context, inst *types.InstructionSet) error
	Invalidate(ctx context.Context, name string) error
	Close() error
}

// NopCache never stores anything.
type NopCache struct{}

var _ Cache = NopCache{}

func (NopCache) Get(context.Context, string) (*types.InstructionSet, bool, error) {
	return nil, false, nil
}
func (NopCache) Set(context.Context, *types.InstructionSet) error { return nil }
func (NopCache) Invalidate(context.Context, string) error         { return nil }
func (NopCache) Close() error                                     { return nil }

// LoadFunc reads a row from the source of truth on a miss.
type LoadFunc func(ctx context.Context) (*types.InstructionSet, error)

// FailOpen wraps a Cache so that its errors are logged and swallowed.
// Concurrent misses for the same name share one load.
type FailOpen struct {
	inner  Cache
	logger *slog.Logger
	flight singleflight.Group

	// gen counts invalidations. A load only caches its row when gen did
	// not move while it ran.
	mu  sync.Mutex
	gen uint64
}

// NewFailOpen wraps inner. A nil inner behaves like NopCache and a nil
// logger discards.
func NewFailOpen(inner Cache, logger *slog.Logger) *FailOpen {
	if inner == nil {
		inner = NopCache{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FailOpen{inner: inner, logger: logger}
}

// Get returns a copy of the cached row, or false on a miss or cache error.
func (c *FailOpen) Get(ctx context.Context, name string) (*types.InstructionSet, bool) {
	inst, ok, err := c.inner.Get(ctx, name)
	if err != nil {
		c.logger.Warn("cache get failed", "name", name, "error", err)
		return nil, false
	}
	if !ok || inst == nil {
		return nil, false
	}
	return inst, true
}

// Set stores inst, logging failures.
func (c *FailOpen) Set(ctx context.Context, inst *types.InstructionSet) {
	if err := c.inner.Set(ctx, inst); err != nil {
		c.logger.Warn("cache set failed", "name", inst.Name, "error", err)
	}
}

// Invalidate drops name, logging failures.
func (c *FailOpen) Invalidate(ctx context.Context, name string) {
	c.mu.Lock()
	c.gen++
	c.mu.Unlock()
	if err := c.inner.Invalidate(ctx, name); err != nil {
		c.logger.Warn("cache invalidate failed", "name", name, "error", err)
	}
}

// GetOrLoad returns the cached row or calls load and caches its result.
// Errors from load are returned unchanged; cache errors never are.
func (c *FailOpen) GetOrLoad(ctx context.Context, name string, load LoadFunc) (*types.InstructionSet, error) {
	if inst, ok := c.Get(ctx, name); ok {
		return inst, nil
	}
	v, err, _ := c.flight.Do(name, func() (any, error) {
		c.mu.Lock()
		start := c.gen
		c.mu.Unlock()

		inst, err := load(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gen == start {
			c.Set(ctx, inst)
		}
		return inst, nil
	})
	if err != nil {
		return nil, err
	}
	// Callers sharing a flight must not share the row.
	cp := *v.(*types.InstructionSet)
	return &cp, nil
}

// Close closes the wrapped cache.
func (c *FailOpen) Close() error {
	return c.inner.Close()
}
