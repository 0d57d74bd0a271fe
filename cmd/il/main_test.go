package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/untoldecay/InstructionLog/internal/storage"
	"github.com/untoldecay/InstructionLog/internal/types"
)

// runIL executes the CLI in-process and returns stdout.
func runIL(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(""))
	err := execute(context.Background(), args)
	return out.String(), err
}

func setupCLI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("IL_CACHE_ENABLED", "false")
	t.Setenv("IL_ACTOR", "tester")
	t.Setenv("IL_LOG_LEVEL", "error")
	t.Chdir(dir)
	return dir
}

func decodeJSON[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v), s)
	return v
}

func TestCLIEndToEnd(t *testing.T) {
	dir := setupCLI(t)

	out, err := runIL(t, "init", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, "instructions.db")
	assert.FileExists(t, filepath.Join(dir, ".instructions", "config.yaml"))

	out, err = runIL(t, "create", "a", "--title", "A", "--content", "Hello world", "--json")
	require.NoError(t, err)
	created := decodeJSON[types.InstructionSet](t, out)
	assert.Equal(t, 1, created.Version)
	assert.Equal(t, "tester", created.LastChangedBy)

	out, err = runIL(t, "update", "a", "--content", "Hello there", "-m", "tweak", "--json")
	require.NoError(t, err)
	upd := decodeJSON[types.UpdateResult](t, out)
	assert.Equal(t, 1, upd.PreviousVersion)
	assert.Equal(t, 2, upd.Instruction.Version)
	assert.Equal(t, []string{types.FieldContent}, upd.FieldsChanged)

	out, err = runIL(t, "versions", "a", "--json")
	require.NoError(t, err)
	versions := decodeJSON[[]types.InstructionVersion](t, out)
	require.Len(t, versions, 1)
	assert.Equal(t, 1, versions[0].Version)

	out, err = runIL(t, "diff", "a", "1", "2", "--json")
	require.NoError(t, err)
	diff := decodeJSON[types.VersionDiff](t, out)
	assert.True(t, diff.Content.Changed)
	assert.False(t, diff.Title.Changed)

	out, err = runIL(t, "restore", "a", "1", "--json")
	require.NoError(t, err)
	restored := decodeJSON[types.RestoreResult](t, out)
	assert.Equal(t, 3, restored.Instruction.Version)
	assert.Equal(t, "Hello world", restored.Instruction.Content)

	out, err = runIL(t, "changelog", "a", "--json")
	require.NoError(t, err)
	entries := decodeJSON[[]types.ChangeLogEntry](t, out)
	require.Len(t, entries, 3)
	assert.Equal(t, types.ActionRestored, entries[0].Action)
	assert.Equal(t, types.ActionCreated, entries[2].Action)
	require.NotNil(t, entries[0].SessionID)
	require.NotNil(t, entries[2].SessionID)
	assert.NotEqual(t, *entries[0].SessionID, *entries[2].SessionID, "one session per invocation")

	exported := filepath.Join(dir, "out.yaml")
	_, err = runIL(t, "export", "-o", exported, "--json")
	require.NoError(t, err)
	data, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.Contains(t, string(data), "name: a")

	out, err = runIL(t, "import", exported, "--json")
	require.Error(t, err)
	results := decodeJSON[[]types.ItemResult](t, out)
	require.Len(t, results, 1)
	assert.Equal(t, types.ErrMsgAlreadyExists, results[0].Error)

	out, err = runIL(t, "bulk", "--name", "missing", "--old", "x", "--new", "y", "--json")
	require.Error(t, err)
	assert.Equal(t, 1, exitCode(err))
	results = decodeJSON[[]types.ItemResult](t, out)
	require.Len(t, results, 1)
	assert.Equal(t, types.ErrMsgNotFound, results[0].Error)

	_, err = runIL(t, "show", "nope", "--json")
	require.Error(t, err)
	assert.Equal(t, 3, exitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 3, exitCode(fmt.Errorf("x: %w", storage.ErrNotFound)))
	assert.Equal(t, 4, exitCode(storage.ErrConflict))
	assert.Equal(t, 4, exitCode(storage.ErrVersionConflict))
	assert.Equal(t, 2, exitCode(storage.ErrInvalidArgument))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
}

func TestParseSince(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	got, err := parseSince("48h", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-48*time.Hour), got)

	got, err = parseSince("2026-01-31", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), got)

	got, err = parseSince("2026-02-01T08:30:00Z", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 1, 8, 30, 0, 0, time.UTC), got)

	got, err = parseSince("2 days ago", now)
	require.NoError(t, err)
	assert.True(t, got.Before(now))

	_, err = parseSince("", now)
	assert.Error(t, err)
	_, err = parseSince("zzz qqq", now)
	assert.Error(t, err)
}

func TestFilterSince(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []*types.ChangeLogEntry{
		{ID: 3, CreatedAt: base.Add(2 * time.Hour)},
		{ID: 2, CreatedAt: base.Add(time.Hour)},
		{ID: 1, CreatedAt: base},
	}
	got := filterSince(entries, base.Add(time.Hour))
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[1].ID)
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))

	require.NoError(t, writeFileAtomic(path, func(w io.Writer) error {
		_, err := w.Write([]byte("new"))
		return err
	}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	err = writeFileAtomic(path, func(io.Writer) error { return errors.New("encode failed") })
	require.Error(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data), "failed write leaves the file alone")

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".out.jsonl.tmp-*"))
	assert.Empty(t, matches)
}
