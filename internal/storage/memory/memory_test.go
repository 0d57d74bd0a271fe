package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/untoldecay/InstructionLog/internal/storage"
	"github.com/untoldecay/InstructionLog/internal/storage/storagetest"
	"github.com/untoldecay/InstructionLog/internal/types"
)

func TestConformance(t *testing.T) {
	storagetest.RunConformance(t, func(t *testing.T) storage.Storage {
		return New()
	})
}

func TestGetReturnsCopy(t *testing.T) {
	store := New()
	defer store.Close()
	ctx := context.Background()

	inst := &types.InstructionSet{Name: "copy", Title: "Original", Active: true}
	if _, err := store.CreateInstruction(ctx, inst); err != nil {
		t.Fatalf("CreateInstruction failed: %v", err)
	}
	inst.Title = "mutated by caller"

	got, err := store.GetInstruction(ctx, "copy")
	if err != nil {
		t.Fatalf("GetInstruction failed: %v", err)
	}
	got.Title = "mutated again"

	again, err := store.GetInstruction(ctx, "copy")
	if err != nil {
		t.Fatalf("GetInstruction failed: %v", err)
	}
	if again.Title != "Original" {
		t.Errorf("stored row aliased caller memory: title = %q", again.Title)
	}
}

func TestClosedStoreFails(t *testing.T) {
	store := New()
	store.Close()

	_, err := store.GetInstruction(context.Background(), "anything")
	var se *storage.StorageError
	if !errors.As(err, &se) {
		t.Errorf("expected StorageError after Close, got %v", err)
	}
}

func TestConcurrentCompareAndSwap(t *testing.T) {
	store := New()
	defer store.Close()
	ctx := context.Background()

	if _, err := store.CreateInstruction(ctx, &types.InstructionSet{Name: "race", Title: "Race", Active: true}); err != nil {
		t.Fatalf("CreateInstruction failed: %v", err)
	}

	const writers = 8
	var wg sync.WaitGroup
	results := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			upd := &types.InstructionUpdate{
				FieldUpdates: types.FieldUpdates{Content: types.StringPtr("x")},
				BumpVersion:  true,
			}
			_, err := store.UpdateInstruction(ctx, "race", 1, upd)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins, conflicts := 0, 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, storage.ErrVersionConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != writers-1 {
		t.Errorf("wins = %d, conflicts = %d", wins, conflicts)
	}
}
