package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

// MigrateChangelogSessionIndex indexes changelog rows by CLI session so a
// single invocation's edits can be listed together.
func MigrateChangelogSessionIndex(ctx context.Context, conn *sql.Conn) error {
	_, err := conn.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_instruction_changelog_session
		ON instruction_changelog(session_id)
	`)
	if err != nil {
		return fmt.Errorf("failed to create changelog session index: %w", err)
	}
	return nil
}
