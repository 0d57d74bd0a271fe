package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/untoldecay/InstructionLog/internal/types"
)

// MigrateContentHashColumn adds instruction_sets.content_hash and fills it
// for rows written before the column existed.
func MigrateContentHashColumn(ctx context.Context, conn *sql.Conn) error {
	var colName string
	err := conn.QueryRowContext(ctx, `
		SELECT name FROM pragma_table_info('instruction_sets')
		WHERE name = 'content_hash'
	`).Scan(&colName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check content_hash column: %w", err)
	}

	if _, err := conn.ExecContext(ctx, `ALTER TABLE instruction_sets ADD COLUMN content_hash TEXT`); err != nil {
		return fmt.Errorf("failed to add content_hash column: %w", err)
	}
	if _, err := conn.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_instruction_sets_content_hash ON instruction_sets(content_hash)`); err != nil {
		return fmt.Errorf("failed to create content_hash index: %w", err)
	}

	rows, err := conn.QueryContext(ctx, `SELECT id, title, content, category FROM instruction_sets`)
	if err != nil {
		return fmt.Errorf("failed to query existing instructions: %w", err)
	}
	updates := make(map[int64]string)
	for rows.Next() {
		var id int64
		var title, content, category string
		if err := rows.Scan(&id, &title, &content, &category); err != nil {
			_ = rows.Close()
			return fmt.Errorf("failed to scan instruction: %w", err)
		}
		updates[id] = types.ContentHash(title, content, category)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("error iterating instructions: %w", err)
	}
	_ = rows.Close()

	// Already inside the EXCLUSIVE transaction from RunMigrations.
	if _, err := conn.ExecContext(ctx, `SAVEPOINT content_hash_migration`); err != nil {
		return fmt.Errorf("failed to create savepoint: %w", err)
	}
	released := false
	defer func() {
		if !released {
			_, _ = conn.ExecContext(context.Background(), `ROLLBACK TO SAVEPOINT content_hash_migration`)
		}
	}()

	for id, hash := range updates {
		if _, err := conn.ExecContext(ctx, `UPDATE instruction_sets SET content_hash = ? WHERE id = ?`, hash, id); err != nil {
			return fmt.Errorf("failed to update content_hash for instruction %d: %w", id, err)
		}
	}

	if _, err := conn.ExecContext(ctx, `RELEASE SAVEPOINT content_hash_migration`); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	released = true
	return nil
}
