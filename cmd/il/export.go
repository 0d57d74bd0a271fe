package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/untoldecay/InstructionLog/internal/export"
)

var exportCmd = &cobra.Command{
	Use:     "export",
	GroupID: "data",
	Short:   "Export live instructions as JSONL, YAML or TOML",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		category, _ := cmd.Flags().GetString("category")
		format, err := formatFor(cmd, output)
		if err != nil {
			return err
		}

		records, err := eng.ExportAll(cmd.Context(), category)
		if err != nil {
			return err
		}

		if output == "" || output == "-" {
			return export.Encode(cmd.OutOrStdout(), format, records)
		}
		if err := writeFileAtomic(output, func(w io.Writer) error {
			return export.Encode(w, format, records)
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d instructions to %s\n", len(records), output)
		return nil
	},
}

// writeFileAtomic writes through a temp file in the same directory and
// renames it over path.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	exportCmd.Flags().String("format", "", "jsonl, yaml or toml (default: from extension, else jsonl)")
	exportCmd.Flags().StringP("category", "c", "", "Only this category")
	rootCmd.AddCommand(exportCmd)
}
