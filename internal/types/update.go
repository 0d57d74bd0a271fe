package types

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Editable field names.
const (
	FieldTitle      = "title"
	FieldContent    = "content"
	FieldCategory   = "category"
	FieldVersionTag = "version_tag"
)

// FieldUpdates holds the caller-editable fields of an instruction.
// A nil field is left untouched.
type FieldUpdates struct {
	Title      *string     `json:"title,omitempty" yaml:"title,omitempty"`
	Content    *string     `json:"content,omitempty" yaml:"content,omitempty"`
	Category   *string     `json:"category,omitempty" yaml:"category,omitempty"`
	VersionTag *VersionTag `json:"version_tag,omitempty" yaml:"version_tag,omitempty"`
}

// IsEmpty reports whether no field is set.
func (f FieldUpdates) IsEmpty() bool {
	return f.Title == nil && f.Content == nil && f.Category == nil && f.VersionTag == nil
}

// Fields returns the names of the set fields in a fixed order.
func (f FieldUpdates) Fields() []string {
	var names []string
	if f.Title != nil {
		names = append(names, FieldTitle)
	}
	if f.Content != nil {
		names = append(names, FieldContent)
	}
	if f.Category != nil {
		names = append(names, FieldCategory)
	}
	if f.VersionTag != nil {
		names = append(names, FieldVersionTag)
	}
	return names
}

// Set assigns a text field by name. Only title, content and category
// can be set this way.
func (f *FieldUpdates) Set(field, value string) error {
	v := value
	switch field {
	case FieldTitle:
		f.Title = &v
	case FieldContent:
		f.Content = &v
	case FieldCategory:
		f.Category = &v
	default:
		return &ValidationError{Field: field, Reason: "not an editable text field"}
	}
	return nil
}

// Validate checks each set field independently.
func (f FieldUpdates) Validate() error {
	if f.Title != nil {
		if strings.TrimSpace(*f.Title) == "" {
			return &ValidationError{Field: FieldTitle, Reason: "must not be empty"}
		}
		if utf8.RuneCountInString(*f.Title) > MaxTitleLength {
			return &ValidationError{Field: FieldTitle, Reason: fmt.Sprintf("must be at most %d characters", MaxTitleLength)}
		}
	}
	if f.Category != nil && utf8.RuneCountInString(*f.Category) > MaxCategoryLength {
		return &ValidationError{Field: FieldCategory, Reason: fmt.Sprintf("must be at most %d characters", MaxCategoryLength)}
	}
	if f.VersionTag != nil && !f.VersionTag.IsValid() {
		return &ValidationError{Field: FieldVersionTag, Reason: fmt.Sprintf("unknown tag %q", *f.VersionTag)}
	}
	return nil
}

// ApplyTo writes the set fields onto inst.
func (f FieldUpdates) ApplyTo(inst *InstructionSet) {
	if f.Title != nil {
		inst.Title = *f.Title
	}
	if f.Content != nil {
		inst.Content = *f.Content
	}
	if f.Category != nil {
		inst.Category = *f.Category
	}
	if f.VersionTag != nil {
		inst.VersionTag = *f.VersionTag
	}
}

// InstructionUpdate is the store-level partial update of a live row.
// BumpVersion advances version and version_count by one.
type InstructionUpdate struct {
	FieldUpdates
	ChangeSummary    *string
	LastChangedBy    *string
	LastMajorVersion *int
	ContentHash      *string
	BumpVersion      bool
}

// IsEmpty reports whether the update would write nothing.
func (u *InstructionUpdate) IsEmpty() bool {
	return u.FieldUpdates.IsEmpty() && u.ChangeSummary == nil && u.LastChangedBy == nil &&
		u.LastMajorVersion == nil && u.ContentHash == nil && !u.BumpVersion
}

// FieldValue returns the value of a text field by name.
func (inst *InstructionSet) FieldValue(field string) (string, bool) {
	switch field {
	case FieldTitle:
		return inst.Title, true
	case FieldContent:
		return inst.Content, true
	case FieldCategory:
		return inst.Category, true
	}
	return "", false
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }
