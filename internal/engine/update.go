package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/untoldecay/InstructionLog/internal/storage"
	"github.com/untoldecay/InstructionLog/internal/types"
)

// UpdateRequest describes a versioned update.
type UpdateRequest struct {
	Name    string
	Fields  types.FieldUpdates
	Summary string
	Author  string
	// Major marks the archived snapshot as exempt from pruning.
	Major bool
}

// VersionedUpdate archives the current live row, applies req.Fields and
// advances the version by one. The snapshot carries the incoming summary,
// author and major flag even though it holds the pre-edit content.
func (e *Engine) VersionedUpdate(ctx context.Context, req UpdateRequest) (res *types.UpdateResult, err error) {
	defer func(start time.Time) { observe("update", start, err) }(time.Now())

	if req.Fields.IsEmpty() {
		return nil, fmt.Errorf("%w: no fields to update for %s", storage.ErrInvalidArgument, req.Name)
	}
	if err := req.Fields.Validate(); err != nil {
		return nil, invalidArgument(err)
	}
	author := actorOrDefault(req.Author)
	fields := req.Fields.Fields()

	res = &types.UpdateResult{FieldsChanged: fields}
	var instructionID int64
	err = e.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		cur, err := tx.GetInstruction(ctx, req.Name)
		if err != nil {
			return err
		}
		instructionID = cur.ID

		if req.Major && e.maxMajor > 0 && e.overflow == OverflowReject {
			_, majors, err := tx.CountVersions(ctx, cur.ID)
			if err != nil {
				return err
			}
			if majors >= e.maxMajor {
				return fmt.Errorf("%w: %s already has %d major versions (limit %d)",
					storage.ErrInvalidArgument, req.Name, majors, e.maxMajor)
			}
		}

		snap := cur.Snapshot(req.Summary, author, req.Major)
		snap.CreatedAt = e.now()
		versionID, err := archive(ctx, tx, snap)
		if err != nil {
			return err
		}

		next := *cur
		req.Fields.ApplyTo(&next)
		hash := next.ComputeContentHash()
		upd := &types.InstructionUpdate{
			FieldUpdates:  req.Fields,
			ChangeSummary: &req.Summary,
			LastChangedBy: &author,
			ContentHash:   &hash,
			BumpVersion:   true,
		}
		if req.Major {
			lmv := cur.Version + 1
			upd.LastMajorVersion = &lmv
		}
		if _, err := tx.UpdateInstruction(ctx, req.Name, cur.Version, upd); err != nil {
			return err
		}

		entry := &types.ChangeLogEntry{
			InstructionID:     cur.ID,
			VersionID:         &versionID,
			Action:            types.ActionUpdated,
			ChangeDescription: updateDescription(req.Summary, fields),
			ChangedBy:         author,
			SessionID:         sessionPtr(ctx),
			CreatedAt:         e.now(),
		}
		fillFieldChange(entry, cur, &next, fields)
		if _, err := tx.AppendChange(ctx, entry); err != nil {
			return err
		}

		after, err := tx.GetInstruction(ctx, req.Name)
		if err != nil {
			return err
		}
		res.Instruction = after
		res.PreviousVersion = cur.Version
		res.ArchivedVersionID = versionID
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.cache.Invalidate(ctx, req.Name)
	if req.Major {
		e.enforceMajorCap(ctx, req.Name, instructionID)
	}
	res.Pruned = e.pruneAfterCommit(ctx, req.Name, instructionID)

	e.logger.Info("instruction updated",
		"name", req.Name,
		"version", res.Instruction.Version,
		"fields", strings.Join(fields, ","),
		"major", req.Major,
		"author", author)
	return res, nil
}

// Restore copies the title, content and category of snapshot version into
// the live row as a new, higher version. The counter never rewinds.
func (e *Engine) Restore(ctx context.Context, name string, version int, author string) (res *types.RestoreResult, err error) {
	defer func(start time.Time) { observe("restore", start, err) }(time.Now())

	author = actorOrDefault(author)
	summary := fmt.Sprintf("Before restore to version %d", version)
	description := fmt.Sprintf("Restored to version %d", version)

	res = &types.RestoreResult{RestoredFrom: version}
	err = e.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		cur, err := tx.GetInstruction(ctx, name)
		if err != nil {
			return err
		}
		target, err := tx.GetVersion(ctx, cur.ID, version)
		if err != nil {
			return err
		}

		snap := cur.Snapshot(summary, author, false)
		snap.CreatedAt = e.now()
		versionID, err := archive(ctx, tx, snap)
		if err != nil {
			return err
		}

		fields := types.FieldUpdates{
			Title:    &target.Title,
			Content:  &target.Content,
			Category: &target.Category,
		}
		hash := types.ContentHash(target.Title, target.Content, target.Category)
		upd := &types.InstructionUpdate{
			FieldUpdates:  fields,
			ChangeSummary: &description,
			LastChangedBy: &author,
			ContentHash:   &hash,
			BumpVersion:   true,
		}
		if _, err := tx.UpdateInstruction(ctx, name, cur.Version, upd); err != nil {
			return err
		}

		if _, err := tx.AppendChange(ctx, &types.ChangeLogEntry{
			InstructionID:     cur.ID,
			VersionID:         &target.VersionID,
			Action:            types.ActionRestored,
			ChangeDescription: description,
			ChangedBy:         author,
			SessionID:         sessionPtr(ctx),
			CreatedAt:         e.now(),
		}); err != nil {
			return err
		}

		after, err := tx.GetInstruction(ctx, name)
		if err != nil {
			return err
		}
		res.Instruction = after
		res.PreviousVersion = cur.Version
		res.ArchivedVersionID = versionID
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.cache.Invalidate(ctx, name)
	e.logger.Info("instruction restored",
		"name", name,
		"from", version,
		"version", res.Instruction.Version,
		"author", author)
	return res, nil
}

// PruneOldVersions keeps the newest keep non-major snapshots of name.
func (e *Engine) PruneOldVersions(ctx context.Context, name string, keep int) (n int, err error) {
	defer func(start time.Time) { observe("prune", start, err) }(time.Now())

	inst, err := e.store.GetInstruction(ctx, name)
	if err != nil {
		return 0, err
	}
	n, err = e.store.PruneVersions(ctx, inst.ID, keep)
	if err != nil {
		return 0, err
	}
	versionsPruned.Add(float64(n))
	return n, nil
}

// PruneAll prunes every instruction, active or not, and returns the total
// number of snapshots removed.
func (e *Engine) PruneAll(ctx context.Context, keep int) (total int, err error) {
	defer func(start time.Time) { observe("prune_all", start, err) }(time.Now())

	insts, err := e.store.ListInstructions(ctx, types.InstructionFilter{IncludeInactive: true})
	if err != nil {
		return 0, err
	}
	for _, inst := range insts {
		n, err := e.store.PruneVersions(ctx, inst.ID, keep)
		if err != nil {
			return total, fmt.Errorf("failed to prune %s: %w", inst.Name, err)
		}
		total += n
	}
	versionsPruned.Add(float64(total))
	return total, nil
}

// archive writes snap. A duplicate (instruction, version) means another
// writer archived this version first.
func archive(ctx context.Context, tx storage.Transaction, snap *types.InstructionVersion) (int64, error) {
	id, err := tx.ArchiveVersion(ctx, snap)
	if errors.Is(err, storage.ErrConflict) {
		return 0, fmt.Errorf("%w: version %d of %s already archived", storage.ErrVersionConflict, snap.Version, snap.Name)
	}
	return id, err
}

// pruneAfterCommit logs and swallows failures so a committed update never
// reports an error.
func (e *Engine) pruneAfterCommit(ctx context.Context, name string, instructionID int64) int {
	n, err := e.store.PruneVersions(ctx, instructionID, e.keep)
	if err != nil {
		e.logger.Warn("prune after update failed", "name", name, "error", err)
		return 0
	}
	if n > 0 {
		versionsPruned.Add(float64(n))
		e.logger.Debug("pruned old versions", "name", name, "removed", n, "keep", e.keep)
	}
	return n
}

func (e *Engine) enforceMajorCap(ctx context.Context, name string, instructionID int64) {
	if e.maxMajor <= 0 || e.overflow != OverflowDemote {
		return
	}
	n, err := e.store.DemoteOldestMajor(ctx, instructionID, e.maxMajor)
	if err != nil {
		e.logger.Warn("major version cap failed", "name", name, "error", err)
		return
	}
	if n > 0 {
		majorsDemoted.Add(float64(n))
		e.logger.Info("demoted major versions", "name", name, "demoted", n, "limit", e.maxMajor)
	}
}

func updateDescription(summary string, fields []string) string {
	if summary != "" {
		return summary
	}
	return "Updated " + strings.Join(fields, ", ")
}

// fillFieldChange records old and new values only when a single field
// changed. Multi-field updates list the field names.
func fillFieldChange(entry *types.ChangeLogEntry, before, after *types.InstructionSet, fields []string) {
	joined := strings.Join(fields, ",")
	entry.FieldChanged = &joined
	if len(fields) != 1 {
		return
	}
	oldValue, newValue := fieldString(before, fields[0]), fieldString(after, fields[0])
	entry.OldValue = &oldValue
	entry.NewValue = &newValue
}

func fieldString(inst *types.InstructionSet, field string) string {
	if field == types.FieldVersionTag {
		return string(inst.VersionTag)
	}
	v, _ := inst.FieldValue(field)
	return v
}
