package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// PromptYesNo asks a yes/no question on out and reads the answer from in.
// Empty or unrecognized input, read errors and non-interactive sessions
// all return defaultYes.
func PromptYesNo(in io.Reader, out io.Writer, interactive bool, question string, defaultYes bool) bool {
	prompt := fmt.Sprintf("%s [y/N] ", question)
	if defaultYes {
		prompt = fmt.Sprintf("%s [Y/n] ", question)
	}

	if !interactive {
		fmt.Fprintf(out, "%s (non-interactive, defaulting to %t)\n", prompt, defaultYes)
		return defaultYes
	}

	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintf(out, "(error reading input, defaulting to %t)\n", defaultYes)
		return defaultYes
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	}
	return defaultYes
}
