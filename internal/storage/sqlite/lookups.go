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

// GetPreference returns the stored value for (userID, key).
func (s *SQLiteStorage) GetPreference(ctx context.Context, userID, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT preference_value FROM user_preferences
		WHERE user_id = ? AND preference_type = ?
	`, userID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("preference %s for %s: %w", key, userID, storage.ErrNotFound)
	}
	if err != nil {
		return "", storage.Wrap("get preference", err)
	}
	return value, nil
}

// SetPreference upserts a preference.
func (s *SQLiteStorage) SetPreference(ctx context.Context, userID, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_preferences (user_id, preference_type, preference_value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, preference_type) DO UPDATE SET
			preference_value = excluded.preference_value,
			updated_at = excluded.updated_at
	`, userID, key, value, time.Now().UTC())
	if err != nil {
		return storage.Wrap("set preference", err)
	}
	return nil
}

// GetConfidenceMapping returns the ordered instruction names for level.
func (s *SQLiteStorage) GetConfidenceMapping(ctx context.Context, level string) (*types.ConfidenceMapping, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT instruction_name FROM confidence_mappings
		WHERE confidence_level = ?
		ORDER BY position
	`, level)
	if err != nil {
		return nil, storage.Wrap("get confidence mapping", err)
	}
	defer func() { _ = rows.Close() }()

	cm := &types.ConfidenceMapping{ConfidenceLevel: level}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storage.Wrap("scan confidence mapping", err)
		}
		cm.Instructions = append(cm.Instructions, name)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Wrap("get confidence mapping", err)
	}
	if len(cm.Instructions) == 0 {
		return nil, fmt.Errorf("confidence level %s: %w", level, storage.ErrNotFound)
	}
	return cm, nil
}

// SetConfidenceMapping replaces the list for cm.ConfidenceLevel.
func (s *SQLiteStorage) SetConfidenceMapping(ctx context.Context, cm *types.ConfidenceMapping) error {
	if cm.ConfidenceLevel == "" {
		return fmt.Errorf("%w: confidence level is required", storage.ErrInvalidArgument)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM confidence_mappings WHERE confidence_level = ?`, cm.ConfidenceLevel); err != nil {
			return storage.Wrap("clear confidence mapping", err)
		}
		for i, name := range cm.Instructions {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO confidence_mappings (confidence_level, position, instruction_name)
				VALUES (?, ?, ?)
			`, cm.ConfidenceLevel, i, name)
			if err != nil {
				return storage.Wrap("insert confidence mapping", err)
			}
		}
		return nil
	})
}

// ListConfidenceMappings returns every mapping ordered by level.
func (s *SQLiteStorage) ListConfidenceMappings(ctx context.Context) ([]*types.ConfidenceMapping, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT confidence_level, instruction_name FROM confidence_mappings
		ORDER BY confidence_level, position
	`)
	if err != nil {
		return nil, storage.Wrap("list confidence mappings", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.ConfidenceMapping
	var current *types.ConfidenceMapping
	for rows.Next() {
		var level, name string
		if err := rows.Scan(&level, &name); err != nil {
			return nil, storage.Wrap("scan confidence mapping", err)
		}
		if current == nil || current.ConfidenceLevel != level {
			current = &types.ConfidenceMapping{ConfidenceLevel: level}
			out = append(out, current)
		}
		current.Instructions = append(current.Instructions, name)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Wrap("list confidence mappings", err)
	}
	return out, nil
}
