// Package memory implements the storage interface in process memory.
// It backs tests and one-shot CLI runs that must not touch disk.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/untoldecay/InstructionLog/internal/storage"
	"github.com/untoldecay/InstructionLog/internal/types"
)

type prefKey struct {
	userID string
	key    string
}

// state is everything the store holds. Transactions work on a deep copy
// and swap it in on commit.
type state struct {
	instructions map[string]*types.InstructionSet
	versions     map[int64][]*types.InstructionVersion
	changes      []*types.ChangeLogEntry
	preferences  map[prefKey]string
	mappings     map[string][]string

	nextInstructionID int64
	nextVersionID     int64
	nextChangeID      int64
}

func newState() *state {
	return &state{
		instructions: make(map[string]*types.InstructionSet),
		versions:     make(map[int64][]*types.InstructionVersion),
		preferences:  make(map[prefKey]string),
		mappings:     make(map[string][]string),
	}
}

func (st *state) clone() *state {
	c := newState()
	for name, inst := range st.instructions {
		cp := *inst
		c.instructions[name] = &cp
	}
	for id, vs := range st.versions {
		cvs := make([]*types.InstructionVersion, len(vs))
		for i, v := range vs {
			cp := *v
			cvs[i] = &cp
		}
		c.versions[id] = cvs
	}
	c.changes = append(c.changes, st.changes...)
	for k, v := range st.preferences {
		c.preferences[k] = v
	}
	for k, v := range st.mappings {
		c.mappings[k] = append([]string(nil), v...)
	}
	c.nextInstructionID = st.nextInstructionID
	c.nextVersionID = st.nextVersionID
	c.nextChangeID = st.nextChangeID
	return c
}

// MemoryStorage is a mutex-guarded in-memory storage.Storage.
type MemoryStorage struct {
	mu     sync.RWMutex
	st     *state
	closed bool
}

var _ storage.Storage = (*MemoryStorage)(nil)

// New returns an empty store.
func New() *MemoryStorage {
	return &MemoryStorage{st: newState()}
}

// Close marks the store closed. Later calls fail.
func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MemoryStorage) read(fn func(tx *memTx) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return storage.Wrap("read", errClosed)
	}
	return fn(&memTx{st: m.st})
}

func (m *MemoryStorage) write(fn func(tx *memTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return storage.Wrap("write", errClosed)
	}
	return fn(&memTx{st: m.st})
}

var errClosed = fmt.Errorf("memory store is closed")

// RunInTransaction runs fn against a private copy of the state and
// publishes it only if fn succeeds. Writers are serialized.
func (m *MemoryStorage) RunInTransaction(ctx context.Context, fn func(tx storage.Transaction) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return storage.Wrap("begin transaction", errClosed)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	work := m.st.clone()
	if err := fn(&memTx{st: work}); err != nil {
		return err
	}
	m.st = work
	return nil
}

func (m *MemoryStorage) GetInstruction(ctx context.Context, name string) (inst *types.InstructionSet, err error) {
	err = m.read(func(tx *memTx) error {
		inst, err = tx.GetInstruction(ctx, name)
		return err
	})
	return inst, err
}

func (m *MemoryStorage) ListInstructions(ctx context.Context, filter types.InstructionFilter) (out []*types.InstructionSet, err error) {
	err = m.read(func(tx *memTx) error {
		out, err = tx.ListInstructions(ctx, filter)
		return err
	})
	return out, err
}

func (m *MemoryStorage) CreateInstruction(ctx context.Context, inst *types.InstructionSet) (id int64, err error) {
	err = m.write(func(tx *memTx) error {
		id, err = tx.CreateInstruction(ctx, inst)
		return err
	})
	return id, err
}

func (m *MemoryStorage) UpdateInstruction(ctx context.Context, name string, expectedVersion int, upd *types.InstructionUpdate) (n int, err error) {
	err = m.write(func(tx *memTx) error {
		n, err = tx.UpdateInstruction(ctx, name, expectedVersion, upd)
		return err
	})
	return n, err
}

func (m *MemoryStorage) SetActive(ctx context.Context, name string, active bool) error {
	return m.write(func(tx *memTx) error {
		return tx.SetActive(ctx, name, active)
	})
}

func (m *MemoryStorage) ArchiveVersion(ctx context.Context, v *types.InstructionVersion) (id int64, err error) {
	err = m.write(func(tx *memTx) error {
		id, err = tx.ArchiveVersion(ctx, v)
		return err
	})
	return id, err
}

func (m *MemoryStorage) ListVersions(ctx context.Context, instructionID int64, limit int) (out []*types.InstructionVersion, err error) {
	err = m.read(func(tx *memTx) error {
		out, err = tx.ListVersions(ctx, instructionID, limit)
		return err
	})
	return out, err
}

func (m *MemoryStorage) GetVersion(ctx context.Context, instructionID int64, version int) (v *types.InstructionVersion, err error) {
	err = m.read(func(tx *memTx) error {
		v, err = tx.GetVersion(ctx, instructionID, version)
		return err
	})
	return v, err
}

func (m *MemoryStorage) PruneVersions(ctx context.Context, instructionID int64, keep int) (n int, err error) {
	err = m.write(func(tx *memTx) error {
		n, err = tx.PruneVersions(ctx, instructionID, keep)
		return err
	})
	return n, err
}

func (m *MemoryStorage) CountVersions(ctx context.Context, instructionID int64) (total int, major int, err error) {
	err = m.read(func(tx *memTx) error {
		total, major, err = tx.CountVersions(ctx, instructionID)
		return err
	})
	return total, major, err
}

func (m *MemoryStorage) DemoteOldestMajor(ctx context.Context, instructionID int64, keep int) (n int, err error) {
	err = m.write(func(tx *memTx) error {
		n, err = tx.DemoteOldestMajor(ctx, instructionID, keep)
		return err
	})
	return n, err
}

func (m *MemoryStorage) AppendChange(ctx context.Context, entry *types.ChangeLogEntry) (id int64, err error) {
	err = m.write(func(tx *memTx) error {
		id, err = tx.AppendChange(ctx, entry)
		return err
	})
	return id, err
}

func (m *MemoryStorage) ListChanges(ctx context.Context, instructionID int64, limit int) (out []*types.ChangeLogEntry, err error) {
	err = m.read(func(tx *memTx) error {
		out, err = tx.ListChanges(ctx, instructionID, limit)
		return err
	})
	return out, err
}

// GetPreference returns the stored value for (userID, key).
func (m *MemoryStorage) GetPreference(ctx context.Context, userID, key string) (value string, err error) {
	err = m.read(func(tx *memTx) error {
		v, ok := tx.st.preferences[prefKey{userID, key}]
		if !ok {
			return fmt.Errorf("preference %s for %s: %w", key, userID, storage.ErrNotFound)
		}
		value = v
		return nil
	})
	return value, err
}

// SetPreference upserts a preference.
func (m *MemoryStorage) SetPreference(ctx context.Context, userID, key, value string) error {
	return m.write(func(tx *memTx) error {
		tx.st.preferences[prefKey{userID, key}] = value
		return nil
	})
}

// GetConfidenceMapping returns the ordered instruction names for level.
func (m *MemoryStorage) GetConfidenceMapping(ctx context.Context, level string) (cm *types.ConfidenceMapping, err error) {
	err = m.read(func(tx *memTx) error {
		names := tx.st.mappings[level]
		if len(names) == 0 {
			return fmt.Errorf("confidence level %s: %w", level, storage.ErrNotFound)
		}
		cm = &types.ConfidenceMapping{ConfidenceLevel: level, Instructions: append([]string(nil), names...)}
		return nil
	})
	return cm, err
}

// SetConfidenceMapping replaces the list for cm.ConfidenceLevel.
func (m *MemoryStorage) SetConfidenceMapping(ctx context.Context, cm *types.ConfidenceMapping) error {
	if cm.ConfidenceLevel == "" {
		return fmt.Errorf("%w: confidence level is required", storage.ErrInvalidArgument)
	}
	return m.write(func(tx *memTx) error {
		tx.st.mappings[cm.ConfidenceLevel] = append([]string(nil), cm.Instructions...)
		return nil
	})
}

// ListConfidenceMappings returns every non-empty mapping ordered by level.
func (m *MemoryStorage) ListConfidenceMappings(ctx context.Context) (out []*types.ConfidenceMapping, err error) {
	err = m.read(func(tx *memTx) error {
		levels := make([]string, 0, len(tx.st.mappings))
		for level, names := range tx.st.mappings {
			if len(names) > 0 {
				levels = append(levels, level)
			}
		}
		sort.Strings(levels)
		for _, level := range levels {
			out = append(out, &types.ConfidenceMapping{
				ConfidenceLevel: level,
				Instructions:    append([]string(nil), tx.st.mappings[level]...),
			})
		}
		return nil
	})
	return out, err
}

func now() time.Time {
	return time.Now().UTC()
}
