package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// RenderMarkdown renders instruction content for a terminal. When stdout is
// not a TTY or color is disabled the content is returned unchanged so pipes
// get the stored text byte for byte.
func RenderMarkdown(content string, width int) string {
	if !ShouldUseColor() {
		return content
	}
	out, err := renderMarkdown(content, width)
	if err != nil {
		return content
	}
	return out
}

func renderMarkdown(content string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	out, err := r.Render(content)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n") + "\n", nil
}
