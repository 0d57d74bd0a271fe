package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/untoldecay/InstructionLog/internal/types"
)

// Table Styles
var (
	TableHeaderStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorAccent).
		Align(lipgloss.Center)

	TableBorderStyle = lipgloss.NewStyle().
		Foreground(ColorMuted)

	tableCellStyle = lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Left)
)

const timeLayout = "2006-01-02 15:04"

// NewTable creates a new table with default styling
func NewTable(width int, headers ...string) *table.Table {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(TableBorderStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return tableCellStyle
		})
	if width > 0 {
		t = t.Width(width)
	}
	return t
}

// Truncate shortens s to max runes, marking the cut with "...".
func Truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if max <= 3 || len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(timeLayout)
}

// RenderInstructions renders live rows as NAME/TITLE/CATEGORY/VERSION/TAG.
func RenderInstructions(list []*types.InstructionSet, width int) string {
	if len(list) == 0 {
		return RenderMuted("No instructions found.")
	}
	t := NewTable(width, "Name", "Title", "Category", "Version", "Tag", "Updated")
	for _, inst := range list {
		name := inst.Name
		if !inst.Active {
			name += RenderMuted(" (inactive)")
		}
		t.Row(name, Truncate(inst.Title, 40), inst.Category,
			strconv.Itoa(inst.Version), renderTag(inst.VersionTag), formatTime(inst.UpdatedAt))
	}
	return t.String()
}

func renderTag(tag types.VersionTag) string {
	switch tag {
	case types.TagStable:
		return RenderPass(string(tag))
	case types.TagDeprecated:
		return RenderWarn(string(tag))
	}
	return string(tag)
}

// RenderInstructionHeader renders the metadata block shown above content.
func RenderInstructionHeader(inst *types.InstructionSet) string {
	lines := []string{
		RenderBold(inst.Title) + RenderMuted("  ("+inst.Name+")"),
		fmt.Sprintf("version %d  %s  category %q", inst.Version, renderTag(inst.VersionTag), inst.Category),
	}
	meta := []string{}
	if inst.LastChangedBy != "" {
		meta = append(meta, "by "+inst.LastChangedBy)
	}
	if !inst.UpdatedAt.IsZero() {
		meta = append(meta, formatTime(inst.UpdatedAt))
	}
	if inst.ChangeSummary != "" {
		meta = append(meta, inst.ChangeSummary)
	}
	if len(meta) > 0 {
		lines = append(lines, RenderMuted(strings.Join(meta, "  ·  ")))
	}
	return strings.Join(lines, "\n")
}

// RenderVersions renders archived snapshots newest first.
func RenderVersions(versions []*types.InstructionVersion, width int) string {
	if len(versions) == 0 {
		return RenderMuted("No archived versions.")
	}
	t := NewTable(width, "Version", "Major", "Tag", "Changed By", "Summary", "Archived")
	for _, v := range versions {
		major := ""
		if v.IsMajorVersion {
			major = RenderPass("★")
		}
		t.Row(strconv.Itoa(v.Version), major, string(v.VersionTag), v.ChangedBy,
			Truncate(v.ChangeSummary, 40), formatTime(v.CreatedAt))
	}
	return t.String()
}

// RenderChanges renders changelog entries newest first.
func RenderChanges(entries []*types.ChangeLogEntry, width int) string {
	if len(entries) == 0 {
		return RenderMuted("No changes recorded.")
	}
	t := NewTable(width, "ID", "Action", "Fields", "Description", "By", "When")
	for _, e := range entries {
		field := ""
		if e.FieldChanged != nil {
			field = *e.FieldChanged
		}
		t.Row(strconv.FormatInt(e.ID, 10), string(e.Action), field,
			Truncate(e.ChangeDescription, 50), e.ChangedBy, formatTime(e.CreatedAt))
	}
	return t.String()
}

// RenderItemResults renders per-item outcomes of bulk and import runs.
func RenderItemResults(results []types.ItemResult, width int) string {
	t := NewTable(width, "Name", "Result", "Version", "Detail")
	for _, r := range results {
		status := RenderPass("ok")
		detail := ""
		switch {
		case !r.Success:
			status = RenderFail("failed")
			detail = r.Error
		case r.Skipped:
			status = RenderMuted("skipped")
		case r.Created:
			detail = "created"
		}
		version := ""
		if r.Version > 0 {
			version = strconv.Itoa(r.Version)
		}
		t.Row(r.Name, status, version, detail)
	}
	failed := types.CountFailed(results)
	summary := fmt.Sprintf("%d items, %d succeeded, %d failed", len(results), len(results)-failed, failed)
	return lipgloss.JoinVertical(lipgloss.Left, t.String(), summary)
}

// RenderDiff renders the coarse comparison of two versions.
func RenderDiff(d *types.VersionDiff, width int) string {
	side := func(ref types.VersionRef) string {
		s := "v" + strconv.Itoa(ref.Version)
		if ref.Live {
			s += " (live)"
		}
		return s
	}
	t := NewTable(width, "Field", side(d.From), side(d.To))
	t.Row("title", changeCell(d.Title.Changed, d.Title.Old), changeCell(d.Title.Changed, d.Title.New))
	t.Row("category", changeCell(d.Category.Changed, d.Category.Old), changeCell(d.Category.Changed, d.Category.New))
	delta := fmt.Sprintf("%+d", d.Content.LengthDelta)
	t.Row("content",
		fmt.Sprintf("%d chars", d.Content.OldLength),
		fmt.Sprintf("%d chars (%s)", d.Content.NewLength, delta))

	header := RenderBold(d.Name) + RenderMuted(fmt.Sprintf("  %s by %s → %s by %s",
		side(d.From), d.From.ChangedBy, side(d.To), d.To.ChangedBy))
	return lipgloss.JoinVertical(lipgloss.Left, header, t.String())
}

func changeCell(changed bool, value string) string {
	if !changed {
		return RenderMuted("unchanged")
	}
	return Truncate(value, 40)
}
