package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/list"
	"github.com/charmbracelet/lipgloss/table"
)

// InitResult aggregates what `il init` set up.
type InitResult struct {
	DataDir    string
	DBPath     string
	ConfigPath string
	// ConfigWritten is false when an existing config.yaml was kept.
	ConfigWritten bool
	Migrations    []string

	QuickstartCommands []string
}

// RenderInitReport renders the summary printed by `il init`.
func RenderInitReport(res InitResult, width int) string {
	var sections []string

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPass).
		Render("✓ il initialized")
	sections = append(sections, header, "")

	check := func(_ list.Items, _ int) string { return RenderPass("✓") }
	l := list.New().
		Enumerator(check).
		EnumeratorStyle(lipgloss.NewStyle().MarginRight(1))
	l.Item("Data directory: " + res.DataDir)
	if res.ConfigWritten {
		l.Item("Config written: " + res.ConfigPath)
	} else {
		l.Item("Config kept: " + res.ConfigPath)
	}
	if len(res.Migrations) > 0 {
		applied := list.New().
			Enumerator(check).
			EnumeratorStyle(lipgloss.NewStyle().MarginRight(1))
		for _, m := range res.Migrations {
			applied.Item(m)
		}
		l.Item("Migrations")
		l.Item(applied)
	}
	sections = append(sections, l.String(), "")

	summary := table.New().
		Headers("Component", "Location").
		Rows(
			[]string{"Database", res.DBPath},
			[]string{"Config", res.ConfigPath},
		).
		Border(lipgloss.RoundedBorder()).
		BorderStyle(TableBorderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			style := tableCellStyle
			if col == 0 {
				style = style.Bold(true).Foreground(ColorAccent)
			}
			return style
		})
	if width > 0 {
		summary = summary.Width(width)
	}
	sections = append(sections, summary.String(), "")

	if len(res.QuickstartCommands) > 0 {
		sections = append(sections, RenderBold("Next Steps:"))
		for _, cmd := range res.QuickstartCommands {
			sections = append(sections, "  • "+lipgloss.NewStyle().Foreground(ColorAccent).Render(cmd))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
