package types

import "time"

// UpdateResult describes a committed versioned update.
type UpdateResult struct {
	Instruction       *InstructionSet `json:"instruction"`
	PreviousVersion   int             `json:"previous_version"`
	ArchivedVersionID int64           `json:"archived_version_id"`
	FieldsChanged     []string        `json:"fields_changed"`
	Pruned            int             `json:"pruned"`
}

// RestoreResult describes a committed restore.
type RestoreResult struct {
	Instruction       *InstructionSet `json:"instruction"`
	RestoredFrom      int             `json:"restored_from"`
	PreviousVersion   int             `json:"previous_version"`
	ArchivedVersionID int64           `json:"archived_version_id"`
}

// FieldChange is the old and new value of a field that differs
// between two versions.
type FieldChange struct {
	Changed bool   `json:"changed"`
	Old     string `json:"old,omitempty"`
	New     string `json:"new,omitempty"`
}

// ContentChange summarizes a content difference without a line diff.
type ContentChange struct {
	Changed     bool `json:"changed"`
	OldLength   int  `json:"old_length"`
	NewLength   int  `json:"new_length"`
	LengthDelta int  `json:"length_delta"`
}

// VersionRef identifies one side of a diff.
type VersionRef struct {
	Version   int       `json:"version"`
	ChangedBy string    `json:"changed_by"`
	CreatedAt time.Time `json:"created_at"`
	Live      bool      `json:"live,omitempty"`
}

// VersionDiff is the coarse comparison of two versions.
type VersionDiff struct {
	Name     string        `json:"name"`
	From     VersionRef    `json:"from"`
	To       VersionRef    `json:"to"`
	Title    FieldChange   `json:"title"`
	Category FieldChange   `json:"category"`
	Content  ContentChange `json:"content"`
}

// BulkUpdateItem is one find/replace request.
type BulkUpdateItem struct {
	Name     string `json:"name" yaml:"name" toml:"name"`
	Field    string `json:"field" yaml:"field" toml:"field"`
	OldValue string `json:"old_value" yaml:"old_value" toml:"old_value"`
	NewValue string `json:"new_value" yaml:"new_value" toml:"new_value"`
}

// ItemResult is the outcome of one item of a batch operation.
type ItemResult struct {
	Name    string `json:"name"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Version int    `json:"version,omitempty"`
	Created bool   `json:"created,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
}

// Batch item error messages.
const (
	ErrMsgNotFound      = "Not found"
	ErrMsgOldValue      = "Old value not found in field"
	ErrMsgInvalidField  = "Invalid field"
	ErrMsgAlreadyExists = "Already exists"
)

// CountFailed returns how many results did not succeed.
func CountFailed(results []ItemResult) int {
	n := 0
	for _, r := range results {
		if !r.Success {
			n++
		}
	}
	return n
}

// ExportRecord is the full interchange form of an instruction.
type ExportRecord struct {
	Name             string     `json:"name" yaml:"name" toml:"name"`
	Title            string     `json:"title" yaml:"title" toml:"title"`
	Content          string     `json:"content" yaml:"content" toml:"content"`
	Category         string     `json:"category" yaml:"category" toml:"category"`
	Version          int        `json:"version,omitempty" yaml:"version,omitempty" toml:"version,omitempty"`
	VersionTag       VersionTag `json:"version_tag,omitempty" yaml:"version_tag,omitempty" toml:"version_tag,omitempty"`
	VersionCount     int        `json:"version_count,omitempty" yaml:"version_count,omitempty" toml:"version_count,omitempty"`
	LastMajorVersion int        `json:"last_major_version,omitempty" yaml:"last_major_version,omitempty" toml:"last_major_version,omitempty"`
	ChangeSummary    string     `json:"change_summary,omitempty" yaml:"change_summary,omitempty" toml:"change_summary,omitempty"`
	LastChangedBy    string     `json:"last_changed_by,omitempty" yaml:"last_changed_by,omitempty" toml:"last_changed_by,omitempty"`
	ContentHash      string     `json:"content_hash,omitempty" yaml:"content_hash,omitempty" toml:"content_hash,omitempty"`
	ArchivedVersions int        `json:"archived_versions,omitempty" yaml:"archived_versions,omitempty" toml:"archived_versions,omitempty"`
	MajorVersions    int        `json:"major_versions,omitempty" yaml:"major_versions,omitempty" toml:"major_versions,omitempty"`
	CreatedAt        *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty" toml:"created_at,omitempty"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty" toml:"updated_at,omitempty"`
}

// ImportOptions controls ImportAll.
type ImportOptions struct {
	Overwrite     bool
	SkipUnchanged bool
}
