package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/untoldecay/InstructionLog/internal/engine"
	"github.com/untoldecay/InstructionLog/internal/types"
)

var updateCmd = &cobra.Command{
	Use:     "update <name>",
	GroupID: "instructions",
	Short:   "Apply a versioned update, archiving the current version",
	Long: `Apply a versioned update. The current live row is archived as a snapshot,
the given fields are replaced and the version advances by one.

Concurrent writers are retried on version conflicts.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var fields types.FieldUpdates
		for _, name := range []string{types.FieldTitle, types.FieldCategory} {
			if cmd.Flags().Changed(name) {
				v, _ := cmd.Flags().GetString(name)
				if err := fields.Set(name, v); err != nil {
					return err
				}
			}
		}
		inline, _ := cmd.Flags().GetString("content")
		file, _ := cmd.Flags().GetString("content-file")
		content, set, err := readContent(cmd, inline, file)
		if err != nil {
			return err
		}
		if set {
			fields.Content = &content
		}
		if cmd.Flags().Changed("tag") {
			tag, _ := cmd.Flags().GetString("tag")
			vt := types.VersionTag(tag)
			fields.VersionTag = &vt
		}
		if fields.IsEmpty() {
			return fmt.Errorf("nothing to update: pass --title, --content, --content-file, --category or --tag")
		}

		summary, _ := cmd.Flags().GetString("summary")
		major, _ := cmd.Flags().GetBool("major")
		req := engine.UpdateRequest{
			Name:    args[0],
			Fields:  fields,
			Summary: summary,
			Author:  currentActor(),
			Major:   major,
		}
		res, err := engine.RetryOnConflict(cmd.Context(), engine.DefaultRetryAttempts, func() (*types.UpdateResult, error) {
			return eng.VersionedUpdate(cmd.Context(), req)
		})
		if err != nil {
			return err
		}
		return render(cmd, res, func() string {
			s := fmt.Sprintf("Updated %s: version %d -> %d (%s)",
				res.Instruction.Name, res.PreviousVersion, res.Instruction.Version,
				strings.Join(res.FieldsChanged, ", "))
			if res.Pruned > 0 {
				s += fmt.Sprintf("; pruned %d old versions", res.Pruned)
			}
			return s
		})
	},
}

func init() {
	updateCmd.Flags().StringP("title", "t", "", "New title")
	updateCmd.Flags().StringP("category", "c", "", "New category")
	updateCmd.Flags().String("tag", "", "New version tag: draft, stable or deprecated")
	updateCmd.Flags().String("content", "", "New content")
	updateCmd.Flags().String("content-file", "", "Read new content from a file (- for stdin)")
	updateCmd.Flags().StringP("summary", "m", "", "Change summary")
	updateCmd.Flags().Bool("major", false, "Mark the archived snapshot as a major version (never pruned)")
	rootCmd.AddCommand(updateCmd)
}
