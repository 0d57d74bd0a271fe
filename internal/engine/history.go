package engine

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/untoldecay/InstructionLog/internal/types"
)

// ListVersions returns archived snapshots of name, newest first.
// limit <= 0 returns all.
func (e *Engine) ListVersions(ctx context.Context, name string, limit int) (out []*types.InstructionVersion, err error) {
	defer func(start time.Time) { observe("list_versions", start, err) }(time.Now())

	inst, err := e.store.GetInstruction(ctx, name)
	if err != nil {
		return nil, err
	}
	return e.store.ListVersions(ctx, inst.ID, limit)
}

// GetVersion returns one archived snapshot of name.
func (e *Engine) GetVersion(ctx context.Context, name string, version int) (v *types.InstructionVersion, err error) {
	defer func(start time.Time) { observe("get_version", start, err) }(time.Now())

	inst, err := e.store.GetInstruction(ctx, name)
	if err != nil {
		return nil, err
	}
	return e.store.GetVersion(ctx, inst.ID, version)
}

// ListChanges returns the audit trail of name, newest first. An empty name
// lists every instruction.
func (e *Engine) ListChanges(ctx context.Context, name string, limit int) (out []*types.ChangeLogEntry, err error) {
	defer func(start time.Time) { observe("list_changes", start, err) }(time.Now())

	var id int64
	if name != "" {
		inst, err := e.store.GetInstruction(ctx, name)
		if err != nil {
			return nil, err
		}
		id = inst.ID
	}
	return e.store.ListChanges(ctx, id, limit)
}

// side is one end of a diff.
type side struct {
	ref      types.VersionRef
	title    string
	content  string
	category string
}

// Diff compares two versions of name. Either version may be the live
// version number, in which case the live row is used. Content is compared
// by equality and length in characters only.
func (e *Engine) Diff(ctx context.Context, name string, from, to int) (d *types.VersionDiff, err error) {
	defer func(start time.Time) { observe("diff", start, err) }(time.Now())

	inst, err := e.store.GetInstruction(ctx, name)
	if err != nil {
		return nil, err
	}
	a, err := e.diffSide(ctx, inst, from)
	if err != nil {
		return nil, err
	}
	b, err := e.diffSide(ctx, inst, to)
	if err != nil {
		return nil, err
	}

	d = &types.VersionDiff{
		Name: name,
		From: a.ref,
		To:   b.ref,
	}
	if a.title != b.title {
		d.Title = types.FieldChange{Changed: true, Old: a.title, New: b.title}
	}
	if a.category != b.category {
		d.Category = types.FieldChange{Changed: true, Old: a.category, New: b.category}
	}
	oldLen, newLen := utf8.RuneCountInString(a.content), utf8.RuneCountInString(b.content)
	d.Content = types.ContentChange{
		Changed:     a.content != b.content,
		OldLength:   oldLen,
		NewLength:   newLen,
		LengthDelta: newLen - oldLen,
	}
	return d, nil
}

func (e *Engine) diffSide(ctx context.Context, inst *types.InstructionSet, version int) (side, error) {
	if version == inst.Version {
		return side{
			ref: types.VersionRef{
				Version:   inst.Version,
				ChangedBy: inst.LastChangedBy,
				CreatedAt: inst.UpdatedAt,
				Live:      true,
			},
			title:    inst.Title,
			content:  inst.Content,
			category: inst.Category,
		}, nil
	}
	v, err := e.store.GetVersion(ctx, inst.ID, version)
	if err != nil {
		return side{}, err
	}
	return side{
		ref: types.VersionRef{
			Version:   v.Version,
			ChangedBy: v.ChangedBy,
			CreatedAt: v.CreatedAt,
		},
		title:    v.Title,
		content:  v.Content,
		category: v.Category,
	}, nil
}
