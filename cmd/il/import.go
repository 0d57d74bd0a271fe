package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/untoldecay/InstructionLog/internal/export"
	"github.com/untoldecay/InstructionLog/internal/types"
	"github.com/untoldecay/InstructionLog/internal/ui"
)

var importCmd = &cobra.Command{
	Use:     "import <file>",
	GroupID: "data",
	Short:   "Import instructions from JSONL, YAML or TOML",
	Long: `Import export records. Missing instructions are created. Existing ones are
reported as "Already exists" unless --overwrite is given, in which case they
get a versioned update. --skip-unchanged leaves rows whose content already
matches untouched.

With --watch the file is re-imported whenever it changes until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		format, err := formatFor(cmd, path)
		if err != nil {
			return err
		}
		overwrite, _ := cmd.Flags().GetBool("overwrite")
		skip, _ := cmd.Flags().GetBool("skip-unchanged")
		watch, _ := cmd.Flags().GetBool("watch")
		opts := types.ImportOptions{Overwrite: overwrite, SkipUnchanged: skip}

		if watch {
			if path == "-" {
				return fmt.Errorf("--watch needs a file, not stdin")
			}
			return watchFile(cmd.Context(), path, logger, func(ctx context.Context) error {
				results, err := importOnce(cmd, path, format, opts)
				if err != nil {
					return err
				}
				logger.Info("re-imported", "file", path,
					"items", len(results), "failed", types.CountFailed(results))
				return render(cmd, results, func() string {
					return ui.RenderItemResults(results, tableWidth())
				})
			})
		}

		results, err := importOnce(cmd, path, format, opts)
		if err != nil {
			return err
		}
		if err := render(cmd, results, func() string {
			return ui.RenderItemResults(results, tableWidth())
		}); err != nil {
			return err
		}
		if failed := types.CountFailed(results); failed > 0 {
			return fmt.Errorf("%d of %d records failed", failed, len(results))
		}
		return nil
	},
}

func importOnce(cmd *cobra.Command, path string, format export.Format, opts types.ImportOptions) ([]types.ItemResult, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		// #nosec G304 - user-supplied path is the point
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	records, err := export.Decode(r, format)
	if err != nil {
		return nil, err
	}

	var results []types.ItemResult
	err = withWriteLock(cmd.Context(), func() error {
		results = eng.ImportAll(cmd.Context(), records, currentActor(), opts)
		return nil
	})
	if results == nil && err == nil {
		results = []types.ItemResult{}
	}
	return results, err
}

func init() {
	importCmd.Flags().String("format", "", "jsonl, yaml or toml (default: from extension)")
	importCmd.Flags().Bool("overwrite", false, "Update existing instructions instead of failing them")
	importCmd.Flags().Bool("skip-unchanged", false, "Leave instructions whose content already matches")
	importCmd.Flags().BoolP("watch", "w", false, "Re-import whenever the file changes")
	rootCmd.AddCommand(importCmd)
}
