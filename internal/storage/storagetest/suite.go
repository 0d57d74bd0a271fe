// Package storagetest holds the behavioral tests every storage backend
// must pass. Backends call RunConformance from their own _test.go files.
package storagetest

import (
	"context"
	"errors"
	"testing"

	"github.com/untoldecay/InstructionLog/internal/storage"
	"github.com/untoldecay/InstructionLog/internal/types"
)

// Factory returns a fresh, empty store. The store is closed by the suite.
type Factory func(t *testing.T) storage.Storage

// RunConformance runs the shared backend tests as subtests of t.
func RunConformance(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Storage)
	}{
		{"CreateAndGet", testCreateAndGet},
		{"CreateRejectsInvalid", testCreateRejectsInvalid},
		{"ListOrderAndFilter", testListOrderAndFilter},
		{"UpdateCompareAndSwap", testUpdateCompareAndSwap},
		{"UpdateWithoutBump", testUpdateWithoutBump},
		{"SetActive", testSetActive},
		{"ArchiveAndList", testArchiveAndList},
		{"PruneKeepsMajor", testPruneKeepsMajor},
		{"DemoteOldestMajor", testDemoteOldestMajor},
		{"ChangeLog", testChangeLog},
		{"TransactionRollback", testTransactionRollback},
		{"TransactionCommit", testTransactionCommit},
		{"Preferences", testPreferences},
		{"ConfidenceMappings", testConfidenceMappings},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			defer func() { _ = s.Close() }()
			tt.fn(t, s)
		})
	}
}

func mustCreate(t *testing.T, s storage.Storage, name, category string) *types.InstructionSet {
	t.Helper()
	inst := &types.InstructionSet{
		Name:     name,
		Title:    "Title " + name,
		Content:  "content of " + name,
		Category: category,
		Active:   true,
	}
	if _, err := s.CreateInstruction(context.Background(), inst); err != nil {
		t.Fatalf("CreateInstruction(%s) failed: %v", name, err)
	}
	return inst
}

func snapshot(inst *types.InstructionSet, version int, major bool) *types.InstructionVersion {
	v := inst.Snapshot("snapshot", "tester", major)
	v.Version = version
	return v
}

func testCreateAndGet(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	inst := mustCreate(t, s, "mobile-mode", "modes")
	if inst.ID == 0 {
		t.Fatal("expected ID to be assigned")
	}

	got, err := s.GetInstruction(ctx, "mobile-mode")
	if err != nil {
		t.Fatalf("GetInstruction failed: %v", err)
	}
	if got.ID != inst.ID || got.Title != "Title mobile-mode" || got.Category != "modes" {
		t.Errorf("unexpected instruction: %+v", got)
	}
	if got.Version != 1 || got.VersionCount != 1 {
		t.Errorf("version = %d, version_count = %d, want 1, 1", got.Version, got.VersionCount)
	}
	if got.VersionTag != types.TagDraft {
		t.Errorf("version_tag = %q, want draft", got.VersionTag)
	}
	if !got.Active {
		t.Error("expected instruction to be active")
	}
	if got.ContentHash != types.ContentHash(got.Title, got.Content, got.Category) {
		t.Errorf("content hash not stored: %q", got.ContentHash)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps should be set")
	}

	dup := &types.InstructionSet{Name: "mobile-mode", Title: "again", Active: true}
	if _, err := s.CreateInstruction(ctx, dup); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate create: got %v, want ErrConflict", err)
	}

	if _, err := s.GetInstruction(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetInstruction(missing): got %v, want ErrNotFound", err)
	}
}

func testCreateRejectsInvalid(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	cases := []*types.InstructionSet{
		{Name: "", Title: "no name"},
		{Name: " padded", Title: "spaces"},
		{Name: "no-title", Title: ""},
	}
	for _, inst := range cases {
		if _, err := s.CreateInstruction(ctx, inst); !errors.Is(err, storage.ErrInvalidArgument) {
			t.Errorf("CreateInstruction(%q, %q): got %v, want ErrInvalidArgument", inst.Name, inst.Title, err)
		}
	}
}

func testListOrderAndFilter(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	mustCreate(t, s, "zeta", "a")
	mustCreate(t, s, "alpha", "b")
	mustCreate(t, s, "beta", "a")
	mustCreate(t, s, "hidden", "a")
	if err := s.SetActive(ctx, "hidden", false); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}

	all, err := s.ListInstructions(ctx, types.InstructionFilter{})
	if err != nil {
		t.Fatalf("ListInstructions failed: %v", err)
	}
	want := []string{"beta", "zeta", "alpha"}
	if len(all) != len(want) {
		t.Fatalf("got %d instructions, want %d", len(all), len(want))
	}
	for i, name := range want {
		if all[i].Name != name {
			t.Errorf("position %d: got %s, want %s", i, all[i].Name, name)
		}
	}

	withInactive, err := s.ListInstructions(ctx, types.InstructionFilter{Category: "a", IncludeInactive: true})
	if err != nil {
		t.Fatalf("ListInstructions failed: %v", err)
	}
	if len(withInactive) != 3 {
		t.Errorf("category a with inactive: got %d, want 3", len(withInactive))
	}
}

func testUpdateCompareAndSwap(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	mustCreate(t, s, "cas", "")

	upd := &types.InstructionUpdate{
		FieldUpdates: types.FieldUpdates{
			Title:   types.StringPtr("New title"),
			Content: types.StringPtr("new content"),
		},
		ChangeSummary: types.StringPtr("retitle"),
		LastChangedBy: types.StringPtr("alice"),
		BumpVersion:   true,
	}
	changed, err := s.UpdateInstruction(ctx, "cas", 1, upd)
	if err != nil {
		t.Fatalf("UpdateInstruction failed: %v", err)
	}
	if changed != 2 {
		t.Errorf("changed = %d, want 2", changed)
	}

	got, err := s.GetInstruction(ctx, "cas")
	if err != nil {
		t.Fatalf("GetInstruction failed: %v", err)
	}
	if got.Version != 2 || got.VersionCount != 2 {
		t.Errorf("version = %d, version_count = %d, want 2, 2", got.Version, got.VersionCount)
	}
	if got.Title != "New title" || got.Content != "new content" {
		t.Errorf("fields not applied: %+v", got)
	}
	if got.ChangeSummary != "retitle" || got.LastChangedBy != "alice" {
		t.Errorf("bookkeeping not applied: summary=%q by=%q", got.ChangeSummary, got.LastChangedBy)
	}

	if _, err := s.UpdateInstruction(ctx, "cas", 1, upd); !errors.Is(err, storage.ErrVersionConflict) {
		t.Errorf("stale update: got %v, want ErrVersionConflict", err)
	}
	if _, err := s.UpdateInstruction(ctx, "missing", 1, upd); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("missing update: got %v, want ErrNotFound", err)
	}
	if _, err := s.UpdateInstruction(ctx, "cas", 2, &types.InstructionUpdate{}); !errors.Is(err, storage.ErrInvalidArgument) {
		t.Errorf("empty update: got %v, want ErrInvalidArgument", err)
	}
	bad := &types.InstructionUpdate{FieldUpdates: types.FieldUpdates{Title: types.StringPtr("")}}
	if _, err := s.UpdateInstruction(ctx, "cas", 2, bad); !errors.Is(err, storage.ErrInvalidArgument) {
		t.Errorf("blank title update: got %v, want ErrInvalidArgument", err)
	}
}

func testUpdateWithoutBump(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	mustCreate(t, s, "nobump", "")

	stable := types.TagStable
	upd := &types.InstructionUpdate{FieldUpdates: types.FieldUpdates{VersionTag: &stable}}
	if _, err := s.UpdateInstruction(ctx, "nobump", 1, upd); err != nil {
		t.Fatalf("UpdateInstruction failed: %v", err)
	}
	got, err := s.GetInstruction(ctx, "nobump")
	if err != nil {
		t.Fatalf("GetInstruction failed: %v", err)
	}
	if got.Version != 1 {
		t.Errorf("version = %d, want 1", got.Version)
	}
	if got.VersionTag != types.TagStable {
		t.Errorf("version_tag = %q, want stable", got.VersionTag)
	}
}

func testSetActive(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	mustCreate(t, s, "toggle", "")

	if err := s.SetActive(ctx, "toggle", false); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}
	got, err := s.GetInstruction(ctx, "toggle")
	if err != nil {
		t.Fatalf("GetInstruction failed: %v", err)
	}
	if got.Active {
		t.Error("expected inactive")
	}
	if got.Version != 1 {
		t.Errorf("SetActive changed version to %d", got.Version)
	}
	if err := s.SetActive(ctx, "missing", true); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("SetActive(missing): got %v, want ErrNotFound", err)
	}
}

func testArchiveAndList(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	inst := mustCreate(t, s, "archived", "")

	for v := 1; v <= 4; v++ {
		if _, err := s.ArchiveVersion(ctx, snapshot(inst, v, v == 2)); err != nil {
			t.Fatalf("ArchiveVersion(%d) failed: %v", v, err)
		}
	}

	versions, err := s.ListVersions(ctx, inst.ID, 0)
	if err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}
	if len(versions) != 4 {
		t.Fatalf("got %d versions, want 4", len(versions))
	}
	for i, v := range versions {
		if v.Version != 4-i {
			t.Errorf("position %d: version %d, want %d", i, v.Version, 4-i)
		}
	}

	limited, err := s.ListVersions(ctx, inst.ID, 2)
	if err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}
	if len(limited) != 2 || limited[0].Version != 4 {
		t.Errorf("limit 2: got %d versions", len(limited))
	}

	v2, err := s.GetVersion(ctx, inst.ID, 2)
	if err != nil {
		t.Fatalf("GetVersion failed: %v", err)
	}
	if !v2.IsMajorVersion || v2.ChangedBy != "tester" || v2.Content != inst.Content {
		t.Errorf("unexpected snapshot: %+v", v2)
	}

	if _, err := s.GetVersion(ctx, inst.ID, 99); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetVersion(99): got %v, want ErrNotFound", err)
	}
	if _, err := s.ArchiveVersion(ctx, snapshot(inst, 3, false)); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate archive: got %v, want ErrConflict", err)
	}
}

func testPruneKeepsMajor(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	inst := mustCreate(t, s, "pruned", "")

	for v := 1; v <= 6; v++ {
		major := v == 2 || v == 4
		if _, err := s.ArchiveVersion(ctx, snapshot(inst, v, major)); err != nil {
			t.Fatalf("ArchiveVersion(%d) failed: %v", v, err)
		}
	}

	removed, err := s.PruneVersions(ctx, inst.ID, 2)
	if err != nil {
		t.Fatalf("PruneVersions failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	versions, err := s.ListVersions(ctx, inst.ID, 0)
	if err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}
	want := []int{6, 5, 4, 2}
	if len(versions) != len(want) {
		t.Fatalf("got %d versions, want %d", len(versions), len(want))
	}
	for i, v := range versions {
		if v.Version != want[i] {
			t.Errorf("position %d: version %d, want %d", i, v.Version, want[i])
		}
	}

	removed, err = s.PruneVersions(ctx, inst.ID, 0)
	if err != nil {
		t.Fatalf("PruneVersions(0) failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("keep 0 removed = %d, want 2", removed)
	}
	total, major, err := s.CountVersions(ctx, inst.ID)
	if err != nil {
		t.Fatalf("CountVersions failed: %v", err)
	}
	if total != 2 || major != 2 {
		t.Errorf("count = (%d, %d), want (2, 2)", total, major)
	}

	if _, err := s.PruneVersions(ctx, inst.ID, -1); !errors.Is(err, storage.ErrInvalidArgument) {
		t.Errorf("PruneVersions(-1): got %v, want ErrInvalidArgument", err)
	}
}

func testDemoteOldestMajor(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	inst := mustCreate(t, s, "majors", "")

	for v := 1; v <= 4; v++ {
		if _, err := s.ArchiveVersion(ctx, snapshot(inst, v, v != 3)); err != nil {
			t.Fatalf("ArchiveVersion(%d) failed: %v", v, err)
		}
	}

	demoted, err := s.DemoteOldestMajor(ctx, inst.ID, 1)
	if err != nil {
		t.Fatalf("DemoteOldestMajor failed: %v", err)
	}
	if demoted != 2 {
		t.Errorf("demoted = %d, want 2", demoted)
	}

	v4, err := s.GetVersion(ctx, inst.ID, 4)
	if err != nil {
		t.Fatalf("GetVersion failed: %v", err)
	}
	if !v4.IsMajorVersion {
		t.Error("newest major should stay major")
	}
	v1, err := s.GetVersion(ctx, inst.ID, 1)
	if err != nil {
		t.Fatalf("GetVersion failed: %v", err)
	}
	if v1.IsMajorVersion {
		t.Error("oldest major should be demoted")
	}

	total, major, err := s.CountVersions(ctx, inst.ID)
	if err != nil {
		t.Fatalf("CountVersions failed: %v", err)
	}
	if total != 4 || major != 1 {
		t.Errorf("count = (%d, %d), want (4, 1)", total, major)
	}
}

func testChangeLog(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	a := mustCreate(t, s, "log-a", "")
	b := mustCreate(t, s, "log-b", "")

	vid := int64(7)
	session := "session-1"
	entries := []*types.ChangeLogEntry{
		{InstructionID: a.ID, Action: types.ActionCreated, ChangeDescription: "created", ChangedBy: "alice"},
		{InstructionID: b.ID, Action: types.ActionCreated, ChangeDescription: "created", ChangedBy: "bob"},
		{
			InstructionID:     a.ID,
			VersionID:         &vid,
			Action:            types.ActionUpdated,
			FieldChanged:      types.StringPtr(types.FieldTitle),
			OldValue:          types.StringPtr("old"),
			NewValue:          types.StringPtr("new"),
			ChangeDescription: "retitle",
			ChangedBy:         "alice",
			SessionID:         &session,
		},
	}
	for _, e := range entries {
		if _, err := s.AppendChange(ctx, e); err != nil {
			t.Fatalf("AppendChange failed: %v", err)
		}
		if e.ID == 0 {
			t.Error("expected change ID to be assigned")
		}
	}

	forA, err := s.ListChanges(ctx, a.ID, 0)
	if err != nil {
		t.Fatalf("ListChanges failed: %v", err)
	}
	if len(forA) != 2 {
		t.Fatalf("got %d entries for a, want 2", len(forA))
	}
	newest := forA[0]
	if newest.Action != types.ActionUpdated {
		t.Errorf("newest action = %s, want updated", newest.Action)
	}
	if newest.VersionID == nil || *newest.VersionID != 7 {
		t.Errorf("version_id not preserved: %v", newest.VersionID)
	}
	if newest.OldValue == nil || *newest.OldValue != "old" || newest.NewValue == nil || *newest.NewValue != "new" {
		t.Error("old/new values not preserved")
	}
	if newest.SessionID == nil || *newest.SessionID != session {
		t.Error("session_id not preserved")
	}
	if forA[1].FieldChanged != nil || forA[1].VersionID != nil {
		t.Error("nil fields should stay nil")
	}

	all, err := s.ListChanges(ctx, 0, 0)
	if err != nil {
		t.Fatalf("ListChanges(all) failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d entries total, want 3", len(all))
	}
	limited, err := s.ListChanges(ctx, 0, 1)
	if err != nil {
		t.Fatalf("ListChanges(limit) failed: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != entries[2].ID {
		t.Errorf("limit 1 should return the newest entry")
	}
}

func testTransactionRollback(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	mustCreate(t, s, "stable", "")
	boom := errors.New("boom")

	err := s.RunInTransaction(ctx, func(tx storage.Transaction) error {
		inst := &types.InstructionSet{Name: "ghost", Title: "Ghost", Active: true}
		if _, err := tx.CreateInstruction(ctx, inst); err != nil {
			return err
		}
		upd := &types.InstructionUpdate{
			FieldUpdates: types.FieldUpdates{Title: types.StringPtr("changed")},
			BumpVersion:  true,
		}
		if _, err := tx.UpdateInstruction(ctx, "stable", 1, upd); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("RunInTransaction: got %v, want boom", err)
	}

	if _, err := s.GetInstruction(ctx, "ghost"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("rolled back create is visible: %v", err)
	}
	got, err := s.GetInstruction(ctx, "stable")
	if err != nil {
		t.Fatalf("GetInstruction failed: %v", err)
	}
	if got.Version != 1 || got.Title != "Title stable" {
		t.Errorf("rolled back update is visible: %+v", got)
	}
}

func testTransactionCommit(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	err := s.RunInTransaction(ctx, func(tx storage.Transaction) error {
		inst := &types.InstructionSet{Name: "committed", Title: "Committed", Active: true}
		if _, err := tx.CreateInstruction(ctx, inst); err != nil {
			return err
		}
		cur, err := tx.GetInstruction(ctx, "committed")
		if err != nil {
			return err
		}
		_, err = tx.ArchiveVersion(ctx, cur.Snapshot("first", "tester", false))
		return err
	})
	if err != nil {
		t.Fatalf("RunInTransaction failed: %v", err)
	}

	got, err := s.GetInstruction(ctx, "committed")
	if err != nil {
		t.Fatalf("GetInstruction failed: %v", err)
	}
	total, _, err := s.CountVersions(ctx, got.ID)
	if err != nil {
		t.Fatalf("CountVersions failed: %v", err)
	}
	if total != 1 {
		t.Errorf("versions = %d, want 1", total)
	}
}

func testPreferences(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	key := types.VerbosityKey("mobile-mode")

	if _, err := s.GetPreference(ctx, "alice", key); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetPreference(unset): got %v, want ErrNotFound", err)
	}
	if err := s.SetPreference(ctx, "alice", key, "minimal"); err != nil {
		t.Fatalf("SetPreference failed: %v", err)
	}
	if err := s.SetPreference(ctx, "alice", key, "verbose"); err != nil {
		t.Fatalf("SetPreference overwrite failed: %v", err)
	}
	got, err := s.GetPreference(ctx, "alice", key)
	if err != nil {
		t.Fatalf("GetPreference failed: %v", err)
	}
	if got != "verbose" {
		t.Errorf("preference = %q, want verbose", got)
	}
	if _, err := s.GetPreference(ctx, "bob", key); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("preferences leaked across users: %v", err)
	}
}

func testConfidenceMappings(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	if _, err := s.GetConfidenceMapping(ctx, "high"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetConfidenceMapping(unset): got %v, want ErrNotFound", err)
	}

	high := &types.ConfidenceMapping{ConfidenceLevel: "high", Instructions: []string{"zeta", "alpha"}}
	if err := s.SetConfidenceMapping(ctx, high); err != nil {
		t.Fatalf("SetConfidenceMapping failed: %v", err)
	}
	low := &types.ConfidenceMapping{ConfidenceLevel: "low", Instructions: []string{"careful", "verify", "ask"}}
	if err := s.SetConfidenceMapping(ctx, low); err != nil {
		t.Fatalf("SetConfidenceMapping failed: %v", err)
	}

	got, err := s.GetConfidenceMapping(ctx, "high")
	if err != nil {
		t.Fatalf("GetConfidenceMapping failed: %v", err)
	}
	if len(got.Instructions) != 2 || got.Instructions[0] != "zeta" || got.Instructions[1] != "alpha" {
		t.Errorf("order not preserved: %v", got.Instructions)
	}

	replaced := &types.ConfidenceMapping{ConfidenceLevel: "high", Instructions: []string{"beta"}}
	if err := s.SetConfidenceMapping(ctx, replaced); err != nil {
		t.Fatalf("SetConfidenceMapping replace failed: %v", err)
	}
	got, err = s.GetConfidenceMapping(ctx, "high")
	if err != nil {
		t.Fatalf("GetConfidenceMapping failed: %v", err)
	}
	if len(got.Instructions) != 1 || got.Instructions[0] != "beta" {
		t.Errorf("mapping not replaced: %v", got.Instructions)
	}

	all, err := s.ListConfidenceMappings(ctx)
	if err != nil {
		t.Fatalf("ListConfidenceMappings failed: %v", err)
	}
	if len(all) != 2 || all[0].ConfidenceLevel != "high" || all[1].ConfidenceLevel != "low" {
		t.Errorf("unexpected mappings: %+v", all)
	}
	if len(all[1].Instructions) != 3 || all[1].Instructions[2] != "ask" {
		t.Errorf("low mapping order not preserved: %v", all[1].Instructions)
	}

	if err := s.SetConfidenceMapping(ctx, &types.ConfidenceMapping{}); !errors.Is(err, storage.ErrInvalidArgument) {
		t.Errorf("empty level: got %v, want ErrInvalidArgument", err)
	}
}
