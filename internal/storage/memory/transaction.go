package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/untoldecay/InstructionLog/internal/storage"
	"github.com/untoldecay/InstructionLog/internal/types"
)

// memTx implements storage.Transaction over one state value. The caller
// holds the store lock.
type memTx struct {
	st *state
}

var _ storage.Transaction = (*memTx)(nil)

func (tx *memTx) GetInstruction(ctx context.Context, name string) (*types.InstructionSet, error) {
	inst, ok := tx.st.instructions[name]
	if !ok {
		return nil, fmt.Errorf("instruction %s: %w", name, storage.ErrNotFound)
	}
	cp := *inst
	return &cp, nil
}

func (tx *memTx) ListInstructions(ctx context.Context, filter types.InstructionFilter) ([]*types.InstructionSet, error) {
	var out []*types.InstructionSet
	for _, inst := range tx.st.instructions {
		if filter.Category != "" && inst.Category != filter.Category {
			continue
		}
		if !filter.IncludeInactive && !inst.Active {
			continue
		}
		cp := *inst
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (tx *memTx) CreateInstruction(ctx context.Context, inst *types.InstructionSet) (int64, error) {
	if inst.Version == 0 {
		inst.Version = 1
	}
	if inst.VersionCount == 0 {
		inst.VersionCount = 1
	}
	if inst.VersionTag == "" {
		inst.VersionTag = types.TagDraft
	}
	if err := inst.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", storage.ErrInvalidArgument, err)
	}
	if _, exists := tx.st.instructions[inst.Name]; exists {
		return 0, fmt.Errorf("instruction %s: %w", inst.Name, storage.ErrConflict)
	}
	if inst.CreatedAt.IsZero() {
		inst.CreatedAt = now()
	}
	if inst.UpdatedAt.IsZero() {
		inst.UpdatedAt = inst.CreatedAt
	}
	if inst.ContentHash == "" {
		inst.ContentHash = inst.ComputeContentHash()
	}

	tx.st.nextInstructionID++
	inst.ID = tx.st.nextInstructionID
	cp := *inst
	tx.st.instructions[inst.Name] = &cp
	return inst.ID, nil
}

func (tx *memTx) UpdateInstruction(ctx context.Context, name string, expectedVersion int, upd *types.InstructionUpdate) (int, error) {
	if upd == nil || upd.IsEmpty() {
		return 0, fmt.Errorf("%w: empty update for %s", storage.ErrInvalidArgument, name)
	}
	if err := upd.FieldUpdates.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", storage.ErrInvalidArgument, err)
	}
	inst, ok := tx.st.instructions[name]
	if !ok {
		return 0, fmt.Errorf("instruction %s: %w", name, storage.ErrNotFound)
	}
	if inst.Version != expectedVersion {
		return 0, fmt.Errorf("instruction %s is at version %d, expected %d: %w",
			name, inst.Version, expectedVersion, storage.ErrVersionConflict)
	}

	upd.FieldUpdates.ApplyTo(inst)
	if upd.ChangeSummary != nil {
		inst.ChangeSummary = *upd.ChangeSummary
	}
	if upd.LastChangedBy != nil {
		inst.LastChangedBy = *upd.LastChangedBy
	}
	if upd.LastMajorVersion != nil {
		inst.LastMajorVersion = *upd.LastMajorVersion
	}
	if upd.ContentHash != nil {
		inst.ContentHash = *upd.ContentHash
	}
	if upd.BumpVersion {
		inst.Version++
		inst.VersionCount++
	}
	inst.UpdatedAt = now()
	return len(upd.FieldUpdates.Fields()), nil
}

func (tx *memTx) SetActive(ctx context.Context, name string, active bool) error {
	inst, ok := tx.st.instructions[name]
	if !ok {
		return fmt.Errorf("instruction %s: %w", name, storage.ErrNotFound)
	}
	inst.Active = active
	inst.UpdatedAt = now()
	return nil
}

func (tx *memTx) ArchiveVersion(ctx context.Context, v *types.InstructionVersion) (int64, error) {
	for _, existing := range tx.st.versions[v.InstructionID] {
		if existing.Version == v.Version {
			return 0, fmt.Errorf("version %d of instruction %d: %w", v.Version, v.InstructionID, storage.ErrConflict)
		}
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now()
	}
	tx.st.nextVersionID++
	v.VersionID = tx.st.nextVersionID
	cp := *v
	tx.st.versions[v.InstructionID] = append(tx.st.versions[v.InstructionID], &cp)
	return v.VersionID, nil
}

// sortedVersions returns the snapshots of one instruction newest first.
func (tx *memTx) sortedVersions(instructionID int64) []*types.InstructionVersion {
	vs := append([]*types.InstructionVersion(nil), tx.st.versions[instructionID]...)
	sort.Slice(vs, func(i, j int) bool { return vs[i].Version > vs[j].Version })
	return vs
}

func (tx *memTx) ListVersions(ctx context.Context, instructionID int64, limit int) ([]*types.InstructionVersion, error) {
	vs := tx.sortedVersions(instructionID)
	if limit > 0 && len(vs) > limit {
		vs = vs[:limit]
	}
	out := make([]*types.InstructionVersion, len(vs))
	for i, v := range vs {
		cp := *v
		out[i] = &cp
	}
	return out, nil
}

func (tx *memTx) GetVersion(ctx context.Context, instructionID int64, version int) (*types.InstructionVersion, error) {
	for _, v := range tx.st.versions[instructionID] {
		if v.Version == version {
			cp := *v
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("version %d of instruction %d: %w", version, instructionID, storage.ErrNotFound)
}

func (tx *memTx) PruneVersions(ctx context.Context, instructionID int64, keep int) (int, error) {
	if keep < 0 {
		return 0, fmt.Errorf("%w: keep must be >= 0, got %d", storage.ErrInvalidArgument, keep)
	}
	var kept []*types.InstructionVersion
	nonMajor, removed := 0, 0
	for _, v := range tx.sortedVersions(instructionID) {
		if v.IsMajorVersion {
			kept = append(kept, v)
			continue
		}
		if nonMajor < keep {
			nonMajor++
			kept = append(kept, v)
			continue
		}
		removed++
	}
	tx.st.versions[instructionID] = kept
	return removed, nil
}

func (tx *memTx) CountVersions(ctx context.Context, instructionID int64) (int, int, error) {
	total, major := 0, 0
	for _, v := range tx.st.versions[instructionID] {
		total++
		if v.IsMajorVersion {
			major++
		}
	}
	return total, major, nil
}

func (tx *memTx) DemoteOldestMajor(ctx context.Context, instructionID int64, keep int) (int, error) {
	if keep < 0 {
		return 0, fmt.Errorf("%w: keep must be >= 0, got %d", storage.ErrInvalidArgument, keep)
	}
	seen, demoted := 0, 0
	for _, v := range tx.sortedVersions(instructionID) {
		if !v.IsMajorVersion {
			continue
		}
		if seen < keep {
			seen++
			continue
		}
		v.IsMajorVersion = false
		demoted++
	}
	return demoted, nil
}

func (tx *memTx) AppendChange(ctx context.Context, entry *types.ChangeLogEntry) (int64, error) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now()
	}
	tx.st.nextChangeID++
	entry.ID = tx.st.nextChangeID
	cp := *entry
	tx.st.changes = append(tx.st.changes, &cp)
	return entry.ID, nil
}

func (tx *memTx) ListChanges(ctx context.Context, instructionID int64, limit int) ([]*types.ChangeLogEntry, error) {
	var out []*types.ChangeLogEntry
	for i := len(tx.st.changes) - 1; i >= 0; i-- {
		e := tx.st.changes[i]
		if instructionID != 0 && e.InstructionID != instructionID {
			continue
		}
		cp := *e
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
