// Package types defines the core data structures for the instruction store.
package types

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// InstructionSet is the live row for a named instruction.
type InstructionSet struct {
	ID               int64      `json:"id" yaml:"id" toml:"id"`
	Name             string     `json:"name" yaml:"name" toml:"name" validate:"required,max=128,instname"`
	Title            string     `json:"title" yaml:"title" toml:"title" validate:"required,max=500"`
	Content          string     `json:"content" yaml:"content" toml:"content"`
	Category         string     `json:"category" yaml:"category" toml:"category" validate:"max=64"`
	Version          int        `json:"version" yaml:"version" toml:"version" validate:"gte=1"`
	VersionTag       VersionTag `json:"version_tag" yaml:"version_tag" toml:"version_tag" validate:"omitempty,versiontag"`
	VersionCount     int        `json:"version_count" yaml:"version_count" toml:"version_count"`
	LastMajorVersion int        `json:"last_major_version,omitempty" yaml:"last_major_version,omitempty" toml:"last_major_version,omitempty"`
	ChangeSummary    string     `json:"change_summary,omitempty" yaml:"change_summary,omitempty" toml:"change_summary,omitempty"`
	LastChangedBy    string     `json:"last_changed_by,omitempty" yaml:"last_changed_by,omitempty" toml:"last_changed_by,omitempty"`
	Active           bool       `json:"active" yaml:"active" toml:"active"`
	ContentHash      string     `json:"content_hash,omitempty" yaml:"content_hash,omitempty" toml:"content_hash,omitempty"`
	CreatedAt        time.Time  `json:"created_at" yaml:"created_at" toml:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" yaml:"updated_at" toml:"updated_at"`
}

// VersionTag labels the maturity of an instruction.
type VersionTag string

const (
	TagDraft      VersionTag = "draft"
	TagStable     VersionTag = "stable"
	TagDeprecated VersionTag = "deprecated"
)

// IsValid reports whether the tag is one of the known tags.
func (t VersionTag) IsValid() bool {
	switch t {
	case TagDraft, TagStable, TagDeprecated:
		return true
	}
	return false
}

// InstructionVersion is an immutable snapshot of an instruction taken
// before a mutation was applied to the live row.
type InstructionVersion struct {
	VersionID      int64      `json:"version_id"`
	InstructionID  int64      `json:"instruction_id"`
	Name           string     `json:"name"`
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	Category       string     `json:"category"`
	Version        int        `json:"version"`
	VersionTag     VersionTag `json:"version_tag"`
	ChangeSummary  string     `json:"change_summary,omitempty"`
	ChangedBy      string     `json:"changed_by,omitempty"`
	IsMajorVersion bool       `json:"is_major_version"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Snapshot builds the archive row for the current state of inst.
func (inst *InstructionSet) Snapshot(summary, changedBy string, major bool) *InstructionVersion {
	return &InstructionVersion{
		InstructionID:  inst.ID,
		Name:           inst.Name,
		Title:          inst.Title,
		Content:        inst.Content,
		Category:       inst.Category,
		Version:        inst.Version,
		VersionTag:     inst.VersionTag,
		ChangeSummary:  summary,
		ChangedBy:      changedBy,
		IsMajorVersion: major,
	}
}

// ComputeContentHash returns a stable hash over the fields that carry
// meaning for readers. Bookkeeping fields are excluded so that two rows
// with identical text hash the same regardless of history.
func (inst *InstructionSet) ComputeContentHash() string {
	return ContentHash(inst.Title, inst.Content, inst.Category)
}

// ContentHash hashes title, content and category.
func ContentHash(title, content, category string) string {
	h := sha256.New()
	for _, s := range []string{title, content, category} {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Action is the kind of mutation recorded in the changelog.
type Action string

const (
	ActionCreated     Action = "created"
	ActionUpdated     Action = "updated"
	ActionRestored    Action = "restored"
	ActionDeactivated Action = "deactivated"
	ActionActivated   Action = "activated"
)

// ChangeLogEntry is one append-only audit record.
type ChangeLogEntry struct {
	ID                int64     `json:"id"`
	InstructionID     int64     `json:"instruction_id"`
	VersionID         *int64    `json:"version_id,omitempty"`
	Action            Action    `json:"action"`
	FieldChanged      *string   `json:"field_changed,omitempty"`
	OldValue          *string   `json:"old_value,omitempty"`
	NewValue          *string   `json:"new_value,omitempty"`
	ChangeDescription string    `json:"change_description"`
	ChangedBy         string    `json:"changed_by"`
	SessionID         *string   `json:"session_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// ConfidenceMapping lists the instructions surfaced together for a
// confidence level, in display order.
type ConfidenceMapping struct {
	ConfidenceLevel string   `json:"confidence_level"`
	Instructions    []string `json:"instructions"`
}

// InstructionFilter narrows ListInstructions.
type InstructionFilter struct {
	Category        string
	IncludeInactive bool
}
