package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/untoldecay/InstructionLog/internal/config"
	"github.com/untoldecay/InstructionLog/internal/ui"
)

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// render prints v as JSON under --json, or the human form otherwise.
func render(cmd *cobra.Command, v interface{}, human func() string) error {
	out := cmd.OutOrStdout()
	if jsonOutput {
		return outputJSON(out, v)
	}
	_, err := fmt.Fprintln(out, human())
	return err
}

func tableWidth() int {
	if !ui.IsTerminal() {
		return 0
	}
	return ui.GetWidth()
}

func currentActor() string {
	return config.GetActor(actorFlag)
}

// readContent returns the --content value, or the contents of
// --content-file ("-" reads stdin).
func readContent(cmd *cobra.Command, inline, file string) (string, bool, error) {
	if inline != "" && file != "" {
		return "", false, fmt.Errorf("--content and --content-file are mutually exclusive")
	}
	if file != "" {
		var data []byte
		var err error
		if file == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			// #nosec G304 - user-supplied path is the point
			data, err = os.ReadFile(file)
		}
		if err != nil {
			return "", false, fmt.Errorf("failed to read content: %w", err)
		}
		return string(data), true, nil
	}
	return inline, cmd.Flags().Changed("content"), nil
}
