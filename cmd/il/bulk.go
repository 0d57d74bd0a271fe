package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/untoldecay/InstructionLog/internal/export"
	"github.com/untoldecay/InstructionLog/internal/types"
	"github.com/untoldecay/InstructionLog/internal/ui"
)

var bulkCmd = &cobra.Command{
	Use:     "bulk",
	GroupID: "data",
	Short:   "Find/replace across many instructions",
	Long: `Apply a batch of find/replace items. Each item replaces every occurrence of
old_value with new_value in one field (title, content or category) of one
instruction, as its own versioned update. Items succeed or fail independently.

Items come from --file (JSONL, YAML or TOML, by extension) or from a single
--name/--field/--old/--new on the command line.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := bulkItemsFromFlags(cmd)
		if err != nil {
			return err
		}

		var results []types.ItemResult
		err = withWriteLock(cmd.Context(), func() error {
			results = eng.BulkUpdate(cmd.Context(), items, currentActor())
			return nil
		})
		if err != nil {
			return err
		}

		if err := render(cmd, results, func() string {
			return ui.RenderItemResults(results, tableWidth())
		}); err != nil {
			return err
		}
		if failed := types.CountFailed(results); failed > 0 {
			return fmt.Errorf("%d of %d items failed", failed, len(results))
		}
		return nil
	},
}

func bulkItemsFromFlags(cmd *cobra.Command) ([]types.BulkUpdateItem, error) {
	file, _ := cmd.Flags().GetString("file")
	if file != "" {
		format, err := formatFor(cmd, file)
		if err != nil {
			return nil, err
		}
		var r io.Reader
		if file == "-" {
			r = cmd.InOrStdin()
		} else {
			// #nosec G304 - user-supplied path is the point
			f, err := os.Open(file)
			if err != nil {
				return nil, fmt.Errorf("failed to open %s: %w", file, err)
			}
			defer f.Close()
			r = f
		}
		return export.DecodeBulkItems(r, format)
	}

	name, _ := cmd.Flags().GetString("name")
	field, _ := cmd.Flags().GetString("field")
	oldValue, _ := cmd.Flags().GetString("old")
	newValue, _ := cmd.Flags().GetString("new")
	if name == "" || oldValue == "" {
		return nil, fmt.Errorf("pass --file, or --name and --old (with --field and --new)")
	}
	return []types.BulkUpdateItem{{Name: name, Field: field, OldValue: oldValue, NewValue: newValue}}, nil
}

// formatFor returns --format when set, otherwise the format implied by path.
func formatFor(cmd *cobra.Command, path string) (export.Format, error) {
	if cmd.Flags().Changed("format") {
		name, _ := cmd.Flags().GetString("format")
		return export.ParseFormat(name)
	}
	if path == "-" || path == "" {
		return export.FormatJSONL, nil
	}
	return export.FormatFromPath(path)
}

func init() {
	bulkCmd.Flags().StringP("file", "f", "", "Items file (- for stdin)")
	bulkCmd.Flags().String("format", "", "Items format: jsonl, yaml or toml (default: from extension)")
	bulkCmd.Flags().String("name", "", "Instruction name for a single item")
	bulkCmd.Flags().String("field", types.FieldContent, "Field for a single item")
	bulkCmd.Flags().String("old", "", "Text to find")
	bulkCmd.Flags().String("new", "", "Replacement text")
	rootCmd.AddCommand(bulkCmd)
}
