package sqlite

const schema = `
-- Live instruction rows
CREATE TABLE IF NOT EXISTS instruction_sets (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL CHECK(length(title) <= 500),
    content TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    version INTEGER NOT NULL DEFAULT 1 CHECK(version >= 1),
    version_tag TEXT NOT NULL DEFAULT 'draft',
    version_count INTEGER NOT NULL DEFAULT 1,
    last_major_version INTEGER NOT NULL DEFAULT 0,
    change_summary TEXT NOT NULL DEFAULT '',
    last_changed_by TEXT NOT NULL DEFAULT '',
    active INTEGER NOT NULL DEFAULT 1,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_instruction_sets_category ON instruction_sets(category, name);
-- Note: content_hash is added in migrations/001_content_hash_column.go

-- Archived snapshots, one per mutation of a live row
CREATE TABLE IF NOT EXISTS instruction_versions (
    version_id INTEGER PRIMARY KEY AUTOINCREMENT,
    instruction_id INTEGER NOT NULL,
    name TEXT NOT NULL,
    title TEXT NOT NULL,
    content TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    version INTEGER NOT NULL,
    version_tag TEXT NOT NULL DEFAULT '',
    change_summary TEXT NOT NULL DEFAULT '',
    changed_by TEXT NOT NULL DEFAULT '',
    is_major_version INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (instruction_id, version),
    FOREIGN KEY (instruction_id) REFERENCES instruction_sets(id)
);

CREATE INDEX IF NOT EXISTS idx_instruction_versions_major ON instruction_versions(instruction_id, is_major_version, version);

-- Append-only audit trail
CREATE TABLE IF NOT EXISTS instruction_changelog (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    instruction_id INTEGER NOT NULL,
    version_id INTEGER,
    action TEXT NOT NULL,
    field_changed TEXT,
    old_value TEXT,
    new_value TEXT,
    change_description TEXT NOT NULL DEFAULT '',
    changed_by TEXT NOT NULL DEFAULT '',
    session_id TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (instruction_id) REFERENCES instruction_sets(id)
);

CREATE INDEX IF NOT EXISTS idx_instruction_changelog_instruction ON instruction_changelog(instruction_id, id);

-- Confidence level -> ordered instruction names
CREATE TABLE IF NOT EXISTS confidence_mappings (
    confidence_level TEXT NOT NULL,
    position INTEGER NOT NULL,
    instruction_name TEXT NOT NULL,
    PRIMARY KEY (confidence_level, position)
);

-- Per-user preferences (verbosity)
CREATE TABLE IF NOT EXISTS user_preferences (
    user_id TEXT NOT NULL,
    preference_type TEXT NOT NULL,
    preference_value TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (user_id, preference_type)
);
`
