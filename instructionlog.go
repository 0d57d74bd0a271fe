// Package instructionlog provides a minimal public API for embedding the
// instruction versioning engine in other Go programs.
//
// The il command is built on the same packages; this file re-exports the
// pieces a host program needs: a store, the engine and the domain types.
package instructionlog

import (
	"context"
	"os"
	"path/filepath"

	"github.com/untoldecay/InstructionLog/internal/cache"
	"github.com/untoldecay/InstructionLog/internal/config"
	"github.com/untoldecay/InstructionLog/internal/engine"
	"github.com/untoldecay/InstructionLog/internal/storage"
	"github.com/untoldecay/InstructionLog/internal/storage/memory"
	"github.com/untoldecay/InstructionLog/internal/storage/sqlite"
	"github.com/untoldecay/InstructionLog/internal/types"
)

// Storage is the interface for instruction storage backends
type Storage = storage.Storage

// Transaction provides atomic multi-operation support within a database transaction.
// Use Storage.RunInTransaction() to obtain a Transaction instance.
type Transaction = storage.Transaction

// NewSQLiteStorage creates a new SQLite storage instance at the given path
func NewSQLiteStorage(ctx context.Context, dbPath string) (Storage, error) {
	return sqlite.New(ctx, dbPath)
}

// NewMemoryStorage returns a process-local store, mainly for tests.
func NewMemoryStorage() Storage {
	return memory.New()
}

// FindDatabasePath finds the instruction database in the current directory
// tree. Returns "" when there is none.
func FindDatabasePath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	dir, err := config.FindDataDir(cwd)
	if err != nil {
		return ""
	}
	return filepath.Join(dir, config.DefaultDBName)
}

// Engine and its options.
type (
	Engine        = engine.Engine
	Option        = engine.Option
	CreateRequest = engine.CreateRequest
	UpdateRequest = engine.UpdateRequest
	MajorOverflow = engine.MajorOverflow
	Cache         = cache.Cache
)

const (
	OverflowDemote = engine.OverflowDemote
	OverflowReject = engine.OverflowReject
)

// NewEngine returns an Engine over store.
func NewEngine(store Storage, opts ...Option) *Engine {
	return engine.New(store, opts...)
}

var (
	WithCache          = engine.WithCache
	WithLogger         = engine.WithLogger
	WithKeepCount      = engine.WithKeepCount
	WithMajorCap       = engine.WithMajorCap
	WithClock          = engine.WithClock
	ContextWithSession = engine.ContextWithSession
)

// Core types from internal/types
type (
	InstructionSet      = types.InstructionSet
	InstructionVersion  = types.InstructionVersion
	VersionTag          = types.VersionTag
	ChangeLogEntry      = types.ChangeLogEntry
	Action              = types.Action
	FieldUpdates        = types.FieldUpdates
	InstructionFilter   = types.InstructionFilter
	UpdateResult        = types.UpdateResult
	RestoreResult       = types.RestoreResult
	VersionDiff         = types.VersionDiff
	BulkUpdateItem      = types.BulkUpdateItem
	ItemResult          = types.ItemResult
	ExportRecord        = types.ExportRecord
	ImportOptions       = types.ImportOptions
	ConfidenceMapping   = types.ConfidenceMapping
	Verbosity           = types.Verbosity
	VerbosityPreference = types.VerbosityPreference
)

// Version tags
const (
	TagDraft      = types.TagDraft
	TagStable     = types.TagStable
	TagDeprecated = types.TagDeprecated
)

// Errors. Match with errors.Is.
var (
	ErrNotFound        = storage.ErrNotFound
	ErrConflict        = storage.ErrConflict
	ErrInvalidArgument = storage.ErrInvalidArgument
	ErrVersionConflict = storage.ErrVersionConflict
)
