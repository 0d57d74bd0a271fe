package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/untoldecay/InstructionLog/internal/storage"
	"github.com/untoldecay/InstructionLog/internal/types"
)

const instructionColumns = `
	id, name, title, content, category, version, version_tag, version_count,
	last_major_version, change_summary, last_changed_by, active, content_hash,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstruction(row rowScanner) (*types.InstructionSet, error) {
	var inst types.InstructionSet
	var tag string
	var active int
	var contentHash sql.NullString
	err := row.Scan(
		&inst.ID, &inst.Name, &inst.Title, &inst.Content, &inst.Category,
		&inst.Version, &tag, &inst.VersionCount, &inst.LastMajorVersion,
		&inst.ChangeSummary, &inst.LastChangedBy, &active, &contentHash,
		&inst.CreatedAt, &inst.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inst.VersionTag = types.VersionTag(tag)
	inst.Active = active != 0
	if contentHash.Valid {
		inst.ContentHash = contentHash.String
	}
	return &inst, nil
}

// GetInstruction returns the live row for name.
func (e *executor) GetInstruction(ctx context.Context, name string) (*types.InstructionSet, error) {
	// #nosec G201 - column list is a constant
	row := e.q.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM instruction_sets WHERE name = ?
	`, instructionColumns), name)
	inst, err := scanInstruction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("instruction %s: %w", name, storage.ErrNotFound)
	}
	if err != nil {
		return nil, storage.Wrap("get instruction", err)
	}
	return inst, nil
}

// ListInstructions returns live rows ordered by (category, name).
func (e *executor) ListInstructions(ctx context.Context, filter types.InstructionFilter) ([]*types.InstructionSet, error) {
	var where []string
	var args []any
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}
	if !filter.IncludeInactive {
		where = append(where, "active = 1")
	}
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = "WHERE " + strings.Join(where, " AND ")
	}

	// #nosec G201 - safe SQL with controlled formatting
	rows, err := e.q.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM instruction_sets
		%s
		ORDER BY category, name
	`, instructionColumns, whereSQL), args...)
	if err != nil {
		return nil, storage.Wrap("list instructions", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.InstructionSet
	for rows.Next() {
		inst, err := scanInstruction(rows)
		if err != nil {
			return nil, storage.Wrap("scan instruction", err)
		}
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Wrap("list instructions", err)
	}
	return out, nil
}

// CreateInstruction inserts a new live row. Zero-valued bookkeeping fields
// get their initial values: version 1, version_count 1, tag draft.
func (e *executor) CreateInstruction(ctx context.Context, inst *types.InstructionSet) (int64, error) {
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
	now := time.Now().UTC()
	if inst.CreatedAt.IsZero() {
		inst.CreatedAt = now
	}
	if inst.UpdatedAt.IsZero() {
		inst.UpdatedAt = inst.CreatedAt
	}
	if inst.ContentHash == "" {
		inst.ContentHash = inst.ComputeContentHash()
	}

	res, err := e.q.ExecContext(ctx, `
		INSERT INTO instruction_sets (
			name, title, content, category, version, version_tag, version_count,
			last_major_version, change_summary, last_changed_by, active, content_hash,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		inst.Name, inst.Title, inst.Content, inst.Category, inst.Version,
		string(inst.VersionTag), inst.VersionCount, inst.LastMajorVersion,
		inst.ChangeSummary, inst.LastChangedBy, boolToInt(inst.Active), inst.ContentHash,
		inst.CreatedAt, inst.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return 0, fmt.Errorf("instruction %s: %w", inst.Name, storage.ErrConflict)
		}
		return 0, storage.Wrap("insert instruction", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storage.Wrap("read instruction id", err)
	}
	inst.ID = id
	return id, nil
}

// UpdateInstruction applies upd to the live row if its version still
// equals expectedVersion.
func (e *executor) UpdateInstruction(ctx context.Context, name string, expectedVersion int, upd *types.InstructionUpdate) (int, error) {
	if upd == nil || upd.IsEmpty() {
		return 0, fmt.Errorf("%w: empty update for %s", storage.ErrInvalidArgument, name)
	}
	if err := upd.FieldUpdates.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", storage.ErrInvalidArgument, err)
	}

	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}
	changed := 0
	addField := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if upd.Title != nil {
		addField("title", *upd.Title)
		changed++
	}
	if upd.Content != nil {
		addField("content", *upd.Content)
		changed++
	}
	if upd.Category != nil {
		addField("category", *upd.Category)
		changed++
	}
	if upd.VersionTag != nil {
		addField("version_tag", string(*upd.VersionTag))
		changed++
	}
	if upd.ChangeSummary != nil {
		addField("change_summary", *upd.ChangeSummary)
	}
	if upd.LastChangedBy != nil {
		addField("last_changed_by", *upd.LastChangedBy)
	}
	if upd.LastMajorVersion != nil {
		addField("last_major_version", *upd.LastMajorVersion)
	}
	if upd.ContentHash != nil {
		addField("content_hash", *upd.ContentHash)
	}
	if upd.BumpVersion {
		sets = append(sets, "version = version + 1", "version_count = version_count + 1")
	}
	args = append(args, name, expectedVersion)

	// #nosec G202 - column names come from the fixed list above, values are bound
	query := "UPDATE instruction_sets SET " + strings.Join(sets, ", ") + " WHERE name = ? AND version = ?"
	res, err := e.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, storage.Wrap("update instruction", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, storage.Wrap("get rows affected", err)
	}
	if rows == 0 {
		return 0, e.explainMissedUpdate(ctx, name, expectedVersion)
	}
	return changed, nil
}

// explainMissedUpdate distinguishes a missing row from a lost CAS race.
func (e *executor) explainMissedUpdate(ctx context.Context, name string, expectedVersion int) error {
	var current int
	err := e.q.QueryRowContext(ctx, `SELECT version FROM instruction_sets WHERE name = ?`, name).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("instruction %s: %w", name, storage.ErrNotFound)
	}
	if err != nil {
		return storage.Wrap("read instruction version", err)
	}
	return fmt.Errorf("instruction %s is at version %d, expected %d: %w",
		name, current, expectedVersion, storage.ErrVersionConflict)
}

// SetActive flips the visibility flag without touching the version.
func (e *executor) SetActive(ctx context.Context, name string, active bool) error {
	res, err := e.q.ExecContext(ctx, `
		UPDATE instruction_sets SET active = ?, updated_at = ? WHERE name = ?
	`, boolToInt(active), time.Now().UTC(), name)
	if err != nil {
		return storage.Wrap("set active", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return storage.Wrap("get rows affected", err)
	}
	if rows == 0 {
		return fmt.Errorf("instruction %s: %w", name, storage.ErrNotFound)
	}
	return nil
}
