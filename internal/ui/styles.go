package ui

import "github.com/charmbracelet/lipgloss"

// Palette. Adaptive colors pick a shade for light or dark terminals.
var (
	ColorAccent = lipgloss.AdaptiveColor{Light: "#1F6FEB", Dark: "#58A6FF"}
	ColorPass   = lipgloss.AdaptiveColor{Light: "#1A7F37", Dark: "#3FB950"}
	ColorWarn   = lipgloss.AdaptiveColor{Light: "#9A6700", Dark: "#D29922"}
	ColorFail   = lipgloss.AdaptiveColor{Light: "#CF222E", Dark: "#F85149"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "#6E7781", Dark: "#8B949E"}
)

var (
	passStyle  = lipgloss.NewStyle().Foreground(ColorPass)
	warnStyle  = lipgloss.NewStyle().Foreground(ColorWarn)
	failStyle  = lipgloss.NewStyle().Foreground(ColorFail)
	mutedStyle = lipgloss.NewStyle().Foreground(ColorMuted)
	boldStyle  = lipgloss.NewStyle().Bold(true)
)

func RenderPass(s string) string  { return passStyle.Render(s) }
func RenderWarn(s string) string  { return warnStyle.Render(s) }
func RenderFail(s string) string  { return failStyle.Render(s) }
func RenderMuted(s string) string { return mutedStyle.Render(s) }
func RenderBold(s string) string  { return boldStyle.Render(s) }
