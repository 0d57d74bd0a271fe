package engine

import (
	"context"
	"time"

	"github.com/untoldecay/InstructionLog/internal/storage"
	"github.com/untoldecay/InstructionLog/internal/types"
)

// CreateRequest describes a new instruction.
type CreateRequest struct {
	Name     string
	Title    string
	Content  string
	Category string
	Tag      types.VersionTag
	Summary  string
	Author   string
}

// Create inserts a new instruction at version 1 and records a created
// changelog entry. No snapshot is written.
func (e *Engine) Create(ctx context.Context, req CreateRequest) (inst *types.InstructionSet, err error) {
	defer func(start time.Time) { observe("create", start, err) }(time.Now())

	author := actorOrDefault(req.Author)
	now := e.now()
	inst = &types.InstructionSet{
		Name:          req.Name,
		Title:         req.Title,
		Content:       req.Content,
		Category:      req.Category,
		Version:       1,
		VersionTag:    req.Tag,
		VersionCount:  1,
		ChangeSummary: req.Summary,
		LastChangedBy: author,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if inst.VersionTag == "" {
		inst.VersionTag = types.TagDraft
	}
	if err := inst.Validate(); err != nil {
		return nil, invalidArgument(err)
	}
	inst.ContentHash = inst.ComputeContentHash()

	description := req.Summary
	if description == "" {
		description = "Created instruction " + req.Name
	}

	err = e.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		if _, err := tx.CreateInstruction(ctx, inst); err != nil {
			return err
		}
		_, err := tx.AppendChange(ctx, &types.ChangeLogEntry{
			InstructionID:     inst.ID,
			Action:            types.ActionCreated,
			ChangeDescription: description,
			ChangedBy:         author,
			SessionID:         sessionPtr(ctx),
			CreatedAt:         now,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	e.cache.Invalidate(ctx, inst.Name)
	e.logger.Info("instruction created", "name", inst.Name, "author", author)
	return inst, nil
}

// Get returns the live row for name, served from the cache when possible.
func (e *Engine) Get(ctx context.Context, name string) (inst *types.InstructionSet, err error) {
	defer func(start time.Time) { observe("get", start, err) }(time.Now())

	return e.cache.GetOrLoad(ctx, name, func(ctx context.Context) (*types.InstructionSet, error) {
		return e.store.GetInstruction(ctx, name)
	})
}

// List returns live rows ordered by (category, name).
func (e *Engine) List(ctx context.Context, filter types.InstructionFilter) (out []*types.InstructionSet, err error) {
	defer func(start time.Time) { observe("list", start, err) }(time.Now())

	return e.store.ListInstructions(ctx, filter)
}

// SetActive soft-deletes or restores visibility of an instruction. The
// version is not touched and no snapshot is written. Setting the current
// value is a no-op.
func (e *Engine) SetActive(ctx context.Context, name string, active bool, author string) (inst *types.InstructionSet, err error) {
	defer func(start time.Time) { observe("set_active", start, err) }(time.Now())

	author = actorOrDefault(author)
	action := types.ActionDeactivated
	description := "Deactivated instruction " + name
	if active {
		action = types.ActionActivated
		description = "Activated instruction " + name
	}

	changed := false
	err = e.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		cur, err := tx.GetInstruction(ctx, name)
		if err != nil {
			return err
		}
		if cur.Active == active {
			inst = cur
			return nil
		}
		if err := tx.SetActive(ctx, name, active); err != nil {
			return err
		}
		if _, err := tx.AppendChange(ctx, &types.ChangeLogEntry{
			InstructionID:     cur.ID,
			Action:            action,
			ChangeDescription: description,
			ChangedBy:         author,
			SessionID:         sessionPtr(ctx),
			CreatedAt:         e.now(),
		}); err != nil {
			return err
		}
		changed = true
		inst, err = tx.GetInstruction(ctx, name)
		return err
	})
	if err != nil {
		return nil, err
	}

	if changed {
		e.cache.Invalidate(ctx, name)
		e.logger.Info("instruction visibility changed", "name", name, "active", active, "author", author)
	}
	return inst, nil
}
