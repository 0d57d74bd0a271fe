package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/untoldecay/InstructionLog/internal/storage"
	"github.com/untoldecay/InstructionLog/internal/types"
)

const versionColumns = `
	version_id, instruction_id, name, title, content, category, version,
	version_tag, change_summary, changed_by, is_major_version, created_at`

func scanVersion(row rowScanner) (*types.InstructionVersion, error) {
	var v types.InstructionVersion
	var tag string
	var major int
	err := row.Scan(
		&v.VersionID, &v.InstructionID, &v.Name, &v.Title, &v.Content, &v.Category,
		&v.Version, &tag, &v.ChangeSummary, &v.ChangedBy, &major, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	v.VersionTag = types.VersionTag(tag)
	v.IsMajorVersion = major != 0
	return &v, nil
}

// ArchiveVersion stores an immutable snapshot. Archiving the same
// (instruction, version) twice is a conflict.
func (e *executor) ArchiveVersion(ctx context.Context, v *types.InstructionVersion) (int64, error) {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	res, err := e.q.ExecContext(ctx, `
		INSERT INTO instruction_versions (
			instruction_id, name, title, content, category, version, version_tag,
			change_summary, changed_by, is_major_version, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		v.InstructionID, v.Name, v.Title, v.Content, v.Category, v.Version,
		string(v.VersionTag), v.ChangeSummary, v.ChangedBy, boolToInt(v.IsMajorVersion),
		v.CreatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return 0, fmt.Errorf("version %d of instruction %d: %w", v.Version, v.InstructionID, storage.ErrConflict)
		}
		return 0, storage.Wrap("archive version", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storage.Wrap("read version id", err)
	}
	v.VersionID = id
	return id, nil
}

// ListVersions returns snapshots newest first. limit <= 0 returns all.
func (e *executor) ListVersions(ctx context.Context, instructionID int64, limit int) ([]*types.InstructionVersion, error) {
	if limit <= 0 {
		limit = -1
	}
	// #nosec G201 - column list is a constant
	rows, err := e.q.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM instruction_versions
		WHERE instruction_id = ?
		ORDER BY version DESC
		LIMIT ?
	`, versionColumns), instructionID, limit)
	if err != nil {
		return nil, storage.Wrap("list versions", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.InstructionVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, storage.Wrap("scan version", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Wrap("list versions", err)
	}
	return out, nil
}

// GetVersion returns one snapshot.
func (e *executor) GetVersion(ctx context.Context, instructionID int64, version int) (*types.InstructionVersion, error) {
	// #nosec G201 - column list is a constant
	row := e.q.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM instruction_versions
		WHERE instruction_id = ? AND version = ?
	`, versionColumns), instructionID, version)
	v, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("version %d of instruction %d: %w", version, instructionID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, storage.Wrap("get version", err)
	}
	return v, nil
}

// PruneVersions deletes non-major snapshots beyond the newest keep.
// Major snapshots are never deleted.
func (e *executor) PruneVersions(ctx context.Context, instructionID int64, keep int) (int, error) {
	if keep < 0 {
		return 0, fmt.Errorf("%w: keep must be >= 0, got %d", storage.ErrInvalidArgument, keep)
	}
	res, err := e.q.ExecContext(ctx, `
		DELETE FROM instruction_versions
		WHERE instruction_id = ?
		  AND is_major_version = 0
		  AND version_id NOT IN (
			SELECT version_id FROM instruction_versions
			WHERE instruction_id = ? AND is_major_version = 0
			ORDER BY version DESC
			LIMIT ?
		  )
	`, instructionID, instructionID, keep)
	if err != nil {
		return 0, storage.Wrap("prune versions", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storage.Wrap("get rows affected", err)
	}
	return int(n), nil
}

// CountVersions returns the total number of snapshots and how many are major.
func (e *executor) CountVersions(ctx context.Context, instructionID int64) (int, int, error) {
	var total, major int
	err := e.q.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(is_major_version), 0)
		FROM instruction_versions
		WHERE instruction_id = ?
	`, instructionID).Scan(&total, &major)
	if err != nil {
		return 0, 0, storage.Wrap("count versions", err)
	}
	return total, major, nil
}

// DemoteOldestMajor clears the major flag on all but the newest keep major
// snapshots, making them eligible for pruning.
func (e *executor) DemoteOldestMajor(ctx context.Context, instructionID int64, keep int) (int, error) {
	if keep < 0 {
		return 0, fmt.Errorf("%w: keep must be >= 0, got %d", storage.ErrInvalidArgument, keep)
	}
	res, err := e.q.ExecContext(ctx, `
		UPDATE instruction_versions SET is_major_version = 0
		WHERE instruction_id = ?
		  AND is_major_version = 1
		  AND version_id NOT IN (
			SELECT version_id FROM instruction_versions
			WHERE instruction_id = ? AND is_major_version = 1
			ORDER BY version DESC
			LIMIT ?
		  )
	`, instructionID, instructionID, keep)
	if err != nil {
		return 0, storage.Wrap("demote major versions", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storage.Wrap("get rows affected", err)
	}
	return int(n), nil
}
