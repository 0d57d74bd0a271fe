package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/untoldecay/InstructionLog/internal/types"
)

// DefaultTTL is how long a cached row stays valid.
const DefaultTTL = time.Hour

const keyPrefix = "inst:"

// Config holds configuration for a BadgerCache.
type Config struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path string

	// InMemory keeps the cache off disk. Used by tests.
	InMemory bool

	// TTL applies to every entry. Zero means DefaultTTL.
	TTL time.Duration

	// Logger receives BadgerDB's internal log lines. Nil disables them.
	Logger *slog.Logger
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// BadgerCache stores JSON-encoded rows in BadgerDB with a per-entry TTL.
type BadgerCache struct {
	db  *badger.DB
	ttl time.Duration
}

var _ Cache = (*BadgerCache)(nil)

// OpenBadger opens (creating if needed) the cache described by cfg.
func OpenBadger(cfg Config) (*BadgerCache, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("cache path is required unless in-memory")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("failed to create cache directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithNumVersionsToKeep(1).WithSyncWrites(false)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &BadgerCache{db: db, ttl: ttl}, nil
}

func cacheKey(name string) []byte {
	return []byte(keyPrefix + name)
}

// Get implements Cache.
func (c *BadgerCache) Get(ctx context.Context, name string) (*types.InstructionSet, bool, error) {
	var inst types.InstructionSet
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &inst)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry %s: %w", name, err)
	}
	return &inst, true, nil
}

// Set implements Cache.
func (c *BadgerCache) Set(ctx context.Context, inst *types.InstructionSet) error {
	data, err := json.Marshal(inst)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %s: %w", inst.Name, err)
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(cacheKey(inst.Name), data).WithTTL(c.ttl))
	})
	if err != nil {
		return fmt.Errorf("failed to write cache entry %s: %w", inst.Name, err)
	}
	return nil
}

// Invalidate implements Cache.
func (c *BadgerCache) Invalidate(ctx context.Context, name string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(cacheKey(name))
	})
	if err != nil {
		return fmt.Errorf("failed to delete cache entry %s: %w", name, err)
	}
	return nil
}

// Close implements Cache.
func (c *BadgerCache) Close() error {
	return c.db.Close()
}
