package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// withWriteLock serializes batch writers (import, bulk) across processes.
// Single-row updates rely on the version compare-and-swap instead.
func withWriteLock(ctx context.Context, fn func() error) error {
	if store == nil || store.Path() == ":memory:" || store.Path() == "" {
		return fn()
	}
	lockPath := filepath.Join(filepath.Dir(store.Path()), ".il.lock")
	lock := flock.New(lockPath)

	timeout := settings.LockTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	locked, err := lock.TryLockContext(lockCtx, 100*time.Millisecond)
	if err != nil {
		return fmt.Errorf("acquiring write lock %s: %w", lockPath, err)
	}
	if !locked {
		return fmt.Errorf("another il import or bulk update is in progress")
	}
	defer func() { _ = lock.Unlock() }()
	return fn()
}
