package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/untoldecay/InstructionLog/internal/storage"
	"github.com/untoldecay/InstructionLog/internal/types"
)

// AppendChange records one audit entry.
func (e *executor) AppendChange(ctx context.Context, entry *types.ChangeLogEntry) (int64, error) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	res, err := e.q.ExecContext(ctx, `
		INSERT INTO instruction_changelog (
			instruction_id, version_id, action, field_changed, old_value, new_value,
			change_description, changed_by, session_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.InstructionID, entry.VersionID, string(entry.Action), entry.FieldChanged,
		entry.OldValue, entry.NewValue, entry.ChangeDescription, entry.ChangedBy,
		entry.SessionID, entry.CreatedAt,
	)
	if err != nil {
		return 0, storage.Wrap("append change", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storage.Wrap("read change id", err)
	}
	entry.ID = id
	return id, nil
}

// ListChanges returns audit entries newest first. instructionID 0 lists
// every instruction; limit <= 0 returns all.
func (e *executor) ListChanges(ctx context.Context, instructionID int64, limit int) ([]*types.ChangeLogEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := e.q.QueryContext(ctx, `
		SELECT id, instruction_id, version_id, action, field_changed, old_value,
		       new_value, change_description, changed_by, session_id, created_at
		FROM instruction_changelog
		WHERE ? = 0 OR instruction_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, instructionID, instructionID, limit)
	if err != nil {
		return nil, storage.Wrap("list changes", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.ChangeLogEntry
	for rows.Next() {
		var entry types.ChangeLogEntry
		var action string
		var versionID sql.NullInt64
		var field, oldValue, newValue, sessionID sql.NullString
		err := rows.Scan(
			&entry.ID, &entry.InstructionID, &versionID, &action, &field, &oldValue,
			&newValue, &entry.ChangeDescription, &entry.ChangedBy, &sessionID, &entry.CreatedAt,
		)
		if err != nil {
			return nil, storage.Wrap("scan change", err)
		}
		entry.Action = types.Action(action)
		if versionID.Valid {
			entry.VersionID = &versionID.Int64
		}
		entry.FieldChanged = nullStringPtr(field)
		entry.OldValue = nullStringPtr(oldValue)
		entry.NewValue = nullStringPtr(newValue)
		entry.SessionID = nullStringPtr(sessionID)
		out = append(out, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Wrap("list changes", err)
	}
	return out, nil
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
