package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/untoldecay/InstructionLog/internal/storage"
	"github.com/untoldecay/InstructionLog/internal/storage/sqlite/migrations"
	"github.com/untoldecay/InstructionLog/internal/storage/storagetest"
	"github.com/untoldecay/InstructionLog/internal/types"
)

func setupTestDB(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "il-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	dbPath := filepath.Join(tmpDir, "test.db")
	store, err := New(context.Background(), dbPath)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("failed to create storage: %v", err)
	}

	cleanup := func() {
		store.Close()
		os.RemoveAll(tmpDir)
	}
	return store, cleanup
}

func TestConformanceFile(t *testing.T) {
	storagetest.RunConformance(t, func(t *testing.T) storage.Storage {
		dbPath := filepath.Join(t.TempDir(), "conformance.db")
		store, err := New(context.Background(), dbPath)
		if err != nil {
			t.Fatalf("failed to create storage: %v", err)
		}
		return store
	})
}

func TestConformanceInMemory(t *testing.T) {
	storagetest.RunConformance(t, func(t *testing.T) storage.Storage {
		store, err := New(context.Background(), ":memory:")
		if err != nil {
			t.Fatalf("failed to create storage: %v", err)
		}
		return store
	})
}

func TestBuildDSN(t *testing.T) {
	dsn, inMemory := buildDSN(":memory:")
	if !inMemory {
		t.Error(":memory: should be reported as in-memory")
	}
	if strings.Contains(dsn, "journal_mode") {
		t.Errorf("in-memory DSN should not set WAL: %s", dsn)
	}

	dsn, inMemory = buildDSN("/tmp/x/instructions.db")
	if inMemory {
		t.Error("file path reported as in-memory")
	}
	for _, want := range []string{"file:/tmp/x/instructions.db?", "busy_timeout", "foreign_keys", "journal_mode", "_txlock=immediate"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("DSN %q missing %q", dsn, want)
		}
	}

	if dsn, _ := buildDSN("file:custom.db?mode=ro"); dsn != "file:custom.db?mode=ro" {
		t.Errorf("explicit file: DSN rewritten to %q", dsn)
	}
}

func TestReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	store, err := New(ctx, dbPath)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	inst := &types.InstructionSet{Name: "persist", Title: "Persist", Active: true}
	if _, err := store.CreateInstruction(ctx, inst); err != nil {
		t.Fatalf("CreateInstruction failed: %v", err)
	}
	store.Close()

	store, err = New(ctx, dbPath)
	if err != nil {
		t.Fatalf("failed to reopen storage: %v", err)
	}
	defer store.Close()
	if store.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", store.Path(), dbPath)
	}
	got, err := store.GetInstruction(ctx, "persist")
	if err != nil {
		t.Fatalf("GetInstruction after reopen failed: %v", err)
	}
	if got.Title != "Persist" {
		t.Errorf("title = %q", got.Title)
	}
}

func TestMigrateContentHashColumnBackfills(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	db := store.UnderlyingDB()

	for _, name := range []string{"one", "two"} {
		inst := &types.InstructionSet{Name: name, Title: "T " + name, Content: "body " + name, Active: true}
		if _, err := store.CreateInstruction(ctx, inst); err != nil {
			t.Fatalf("CreateInstruction failed: %v", err)
		}
	}

	// Simulate a database created before the column existed.
	if _, err := db.Exec(`DROP INDEX IF EXISTS idx_instruction_sets_content_hash`); err != nil {
		t.Fatalf("failed to drop index: %v", err)
	}
	if _, err := db.Exec(`ALTER TABLE instruction_sets DROP COLUMN content_hash`); err != nil {
		t.Fatalf("failed to drop column: %v", err)
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		t.Fatalf("failed to get connection: %v", err)
	}
	defer conn.Close()
	if err := migrations.MigrateContentHashColumn(ctx, conn); err != nil {
		t.Fatalf("MigrateContentHashColumn failed: %v", err)
	}
	// Second run is a no-op.
	if err := migrations.MigrateContentHashColumn(ctx, conn); err != nil {
		t.Fatalf("second MigrateContentHashColumn failed: %v", err)
	}

	var title, content, category, hash string
	err = conn.QueryRowContext(ctx, `
		SELECT title, content, category, content_hash FROM instruction_sets WHERE name = 'two'
	`).Scan(&title, &content, &category, &hash)
	if err != nil {
		t.Fatalf("failed to read back hash: %v", err)
	}
	if want := types.ContentHash(title, content, category); hash != want {
		t.Errorf("content_hash = %q, want %q", hash, want)
	}
}

func TestRunMigrationsIdempotent(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	if err := RunMigrations(context.Background(), store.UnderlyingDB()); err != nil {
		t.Fatalf("second RunMigrations failed: %v", err)
	}

	var count int
	err := store.UnderlyingDB().QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type = 'index' AND name = 'idx_instruction_changelog_session'
	`).Scan(&count)
	if err != nil {
		t.Fatalf("failed to query indexes: %v", err)
	}
	if count != 1 {
		t.Errorf("session index count = %d, want 1", count)
	}
}

func TestListMigrations(t *testing.T) {
	infos := ListMigrations()
	if len(infos) != len(migrationsList) {
		t.Fatalf("got %d migrations, want %d", len(infos), len(migrationsList))
	}
	for _, info := range infos {
		if info.Description == "Unknown migration" {
			t.Errorf("migration %s has no description", info.Name)
		}
	}
}
