// Package engine implements the instruction versioning operations on top of
// a storage backend and an advisory cache.
//
// Every mutation of a live row archives the row's prior state as a snapshot,
// advances the version counter through a compare-and-swap write, and appends
// a changelog entry, all in one store transaction. Cache invalidation and
// history pruning run after commit and never fail the mutation.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/untoldecay/InstructionLog/internal/cache"
	"github.com/untoldecay/InstructionLog/internal/storage"
)

// DefaultKeepCount is how many non-major snapshots survive a prune.
const DefaultKeepCount = 10

// DefaultActor is recorded when a caller does not name one.
const DefaultActor = "system"

// MajorOverflow decides what happens when a major update would exceed the
// configured major snapshot cap.
type MajorOverflow string

const (
	// OverflowDemote accepts the update and demotes the oldest majors.
	OverflowDemote MajorOverflow = "demote"
	// OverflowReject fails the update with ErrInvalidArgument.
	OverflowReject MajorOverflow = "reject"
)

// ParseMajorOverflow validates a policy name from configuration.
func ParseMajorOverflow(s string) (MajorOverflow, error) {
	switch MajorOverflow(s) {
	case OverflowDemote, OverflowReject:
		return MajorOverflow(s), nil
	case "":
		return OverflowDemote, nil
	}
	return "", fmt.Errorf("%w: unknown major overflow policy %q", storage.ErrInvalidArgument, s)
}

// Engine runs versioning operations. It is safe for concurrent use as long
// as the store is.
type Engine struct {
	store    storage.Storage
	rawCache cache.Cache
	cache    *cache.FailOpen
	logger   *slog.Logger
	keep     int
	maxMajor int
	overflow MajorOverflow
	// bulkRetries > 0 retries a bulk item that lost a version race.
	bulkRetries int
	now         func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache puts c in front of live row reads. Errors from c are logged.
func WithCache(c cache.Cache) Option {
	return func(e *Engine) {
		e.rawCache = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithKeepCount sets how many non-major snapshots are kept after an update.
func WithKeepCount(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.keep = n
		}
	}
}

// WithMajorCap limits the number of major snapshots per instruction.
// max <= 0 means unlimited.
func WithMajorCap(max int, policy MajorOverflow) Option {
	return func(e *Engine) {
		e.maxMajor = max
		if policy != "" {
			e.overflow = policy
		}
	}
}

// WithBulkRetries makes BulkUpdate re-read and retry an item up to n
// times when its update fails with ErrVersionConflict.
func WithBulkRetries(n int) Option {
	return func(e *Engine) {
		e.bulkRetries = n
	}
}

// WithClock overrides time.Now for timestamps the engine writes.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New returns an Engine over store.
func New(store storage.Storage, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		logger:   slog.New(slog.DiscardHandler),
		keep:     DefaultKeepCount,
		overflow: OverflowDemote,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	e.cache = cache.NewFailOpen(e.rawCache, e.logger)
	return e
}

// Store returns the backing store.
func (e *Engine) Store() storage.Storage {
	return e.store
}

// Close closes the cache. The store is owned by the caller.
func (e *Engine) Close() error {
	return e.cache.Close()
}

type sessionKey struct{}

// ContextWithSession tags changelog entries written under ctx with id.
func ContextWithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionFromContext returns the session id set by ContextWithSession.
func SessionFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionKey{}).(string)
	return id, ok && id != ""
}

func sessionPtr(ctx context.Context) *string {
	if id, ok := SessionFromContext(ctx); ok {
		return &id
	}
	return nil
}

func actorOrDefault(actor string) string {
	if actor == "" {
		return DefaultActor
	}
	return actor
}

func invalidArgument(err error) error {
	return fmt.Errorf("%w: %v", storage.ErrInvalidArgument, err)
}
