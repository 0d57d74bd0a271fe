// Package storage defines the interfaces for instruction storage backends.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/untoldecay/InstructionLog/internal/types"
)

var (
	// ErrNotFound is returned when an instruction, snapshot or lookup row is absent.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when creating an instruction whose name already exists.
	ErrConflict = errors.New("already exists")

	// ErrInvalidArgument is returned for requests that can never succeed as given.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrVersionConflict is returned when a compare-and-swap on the version
	// counter loses to a concurrent writer. The caller may re-read and retry.
	ErrVersionConflict = errors.New("version conflict")
)

// StorageError wraps a failure of the underlying persistence layer.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: failed to %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Wrap returns err unchanged when it already carries one of the sentinel
// errors above, and a *StorageError otherwise.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrVersionConflict) {
		return err
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// DocumentStore holds the live row of every instruction, keyed by name.
type DocumentStore interface {
	GetInstruction(ctx context.Context, name string) (*types.InstructionSet, error)
	ListInstructions(ctx context.Context, filter types.InstructionFilter) ([]*types.InstructionSet, error)
	CreateInstruction(ctx context.Context, inst *types.InstructionSet) (int64, error)

	// UpdateInstruction applies a partial update only if the live version
	// still equals expectedVersion. It returns the number of fields written.
	UpdateInstruction(ctx context.Context, name string, expectedVersion int, upd *types.InstructionUpdate) (int, error)

	SetActive(ctx context.Context, name string, active bool) error
}

// VersionArchive stores immutable snapshots keyed by (instruction, version).
type VersionArchive interface {
	ArchiveVersion(ctx context.Context, v *types.InstructionVersion) (int64, error)
	ListVersions(ctx context.Context, instructionID int64, limit int) ([]*types.InstructionVersion, error)
	GetVersion(ctx context.Context, instructionID int64, version int) (*types.InstructionVersion, error)

	// PruneVersions keeps the newest keep non-major snapshots and deletes
	// older non-major ones. Major snapshots are never deleted.
	PruneVersions(ctx context.Context, instructionID int64, keep int) (int, error)

	CountVersions(ctx context.Context, instructionID int64) (total int, major int, err error)

	// DemoteOldestMajor clears the major flag on the oldest major
	// snapshots until at most keep remain.
	DemoteOldestMajor(ctx context.Context, instructionID int64, keep int) (int, error)
}

// ChangeLog is the append-only audit trail.
type ChangeLog interface {
	AppendChange(ctx context.Context, entry *types.ChangeLogEntry) (int64, error)
	ListChanges(ctx context.Context, instructionID int64, limit int) ([]*types.ChangeLogEntry, error)
}

// LookupStore holds the confidence mapping and user preference tables.
type LookupStore interface {
	GetPreference(ctx context.Context, userID, key string) (string, error)
	SetPreference(ctx context.Context, userID, key, value string) error
	GetConfidenceMapping(ctx context.Context, level string) (*types.ConfidenceMapping, error)
	SetConfidenceMapping(ctx context.Context, m *types.ConfidenceMapping) error
	ListConfidenceMappings(ctx context.Context) ([]*types.ConfidenceMapping, error)
}

// Transaction exposes the mutating subset of Storage inside a single
// atomic unit of work.
//
// # Transaction Semantics
//
//   - Changes are not visible to other callers until commit
//   - If the callback returns an error or panics, the transaction is rolled back
//   - On successful return from the callback, the transaction is committed
//
// # Example Usage
//
//	err := store.RunInTransaction(ctx, func(tx storage.Transaction) error {
//	    cur, err := tx.GetInstruction(ctx, name)
//	    if err != nil {
//	        return err // Triggers rollback
//	    }
//	    if _, err := tx.ArchiveVersion(ctx, cur.Snapshot(summary, actor, false)); err != nil {
//	        return err
//	    }
//	    _, err = tx.UpdateInstruction(ctx, name, cur.Version, upd)
//	    return err // nil triggers commit
//	})
type Transaction interface {
	DocumentStore
	VersionArchive
	ChangeLog
}

// Storage is the full backend used by the versioning engine.
type Storage interface {
	DocumentStore
	VersionArchive
	ChangeLog
	LookupStore

	RunInTransaction(ctx context.Context, fn func(tx Transaction) error) error
	Close() error
}
