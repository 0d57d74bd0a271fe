package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/untoldecay/InstructionLog/internal/engine"
	"github.com/untoldecay/InstructionLog/internal/types"
	"github.com/untoldecay/InstructionLog/internal/ui"
)

func parseVersionArg(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("invalid version %q: must be a positive integer", s)
	}
	return v, nil
}

var versionsCmd = &cobra.Command{
	Use:     "versions <name>",
	GroupID: "history",
	Short:   "List archived snapshots, newest first",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		versions, err := eng.ListVersions(cmd.Context(), args[0], limit)
		if err != nil {
			return err
		}
		if versions == nil {
			versions = []*types.InstructionVersion{}
		}
		return render(cmd, versions, func() string {
			return ui.RenderVersions(versions, tableWidth())
		})
	},
}

var versionShowCmd = &cobra.Command{
	Use:     "version-show <name> <version>",
	GroupID: "history",
	Short:   "Show one archived snapshot",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := parseVersionArg(args[1])
		if err != nil {
			return err
		}
		v, err := eng.GetVersion(cmd.Context(), args[0], version)
		if err != nil {
			return err
		}
		return render(cmd, v, func() string {
			header := ui.RenderBold(v.Title) + ui.RenderMuted(fmt.Sprintf("  (%s v%d, archived %s by %s)",
				v.Name, v.Version, v.CreatedAt.Local().Format(time.RFC822), v.ChangedBy))
			return header + "\n\n" + ui.RenderMarkdown(v.Content, ui.GetWidth())
		})
	},
}

var restoreCmd = &cobra.Command{
	Use:     "restore <name> <version>",
	GroupID: "history",
	Short:   "Restore an archived version as a new version",
	Long: `Copy title, content and category from an archived snapshot onto the live
row. The current live state is archived first and the version advances, so a
restore is itself undoable.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := parseVersionArg(args[1])
		if err != nil {
			return err
		}
		res, err := engine.RetryOnConflict(cmd.Context(), engine.DefaultRetryAttempts, func() (*types.RestoreResult, error) {
			return eng.Restore(cmd.Context(), args[0], version, currentActor())
		})
		if err != nil {
			return err
		}
		return render(cmd, res, func() string {
			return fmt.Sprintf("Restored %s to the content of version %d (now version %d)",
				res.Instruction.Name, res.RestoredFrom, res.Instruction.Version)
		})
	},
}

var diffCmd = &cobra.Command{
	Use:     "diff <name> <from> <to>",
	GroupID: "history",
	Short:   "Compare two versions (title, category, content length)",
	Args:    cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := parseVersionArg(args[1])
		if err != nil {
			return err
		}
		to, err := parseVersionArg(args[2])
		if err != nil {
			return err
		}
		d, err := eng.Diff(cmd.Context(), args[0], from, to)
		if err != nil {
			return err
		}
		return render(cmd, d, func() string {
			return ui.RenderDiff(d, tableWidth())
		})
	},
}

var changelogCmd = &cobra.Command{
	Use:     "changelog [name]",
	GroupID: "history",
	Short:   "Show the audit trail, newest first",
	Long: `Show changelog entries for one instruction, or for all instructions when no
name is given.

--since accepts a duration ("48h"), a date ("2026-01-31"), an RFC 3339
timestamp, or natural language ("2 days ago", "last monday").`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		limit, _ := cmd.Flags().GetInt("limit")
		sinceText, _ := cmd.Flags().GetString("since")

		var since time.Time
		if sinceText != "" {
			var err error
			since, err = parseSince(sinceText, time.Now())
			if err != nil {
				return err
			}
			// Filter after fetching; the limit applies to the filtered set.
			limit = 0
		}

		entries, err := eng.ListChanges(cmd.Context(), name, limit)
		if err != nil {
			return err
		}
		if !since.IsZero() {
			entries = filterSince(entries, since)
			if n, _ := cmd.Flags().GetInt("limit"); n > 0 && len(entries) > n {
				entries = entries[:n]
			}
		}
		if entries == nil {
			entries = []*types.ChangeLogEntry{}
		}
		return render(cmd, entries, func() string {
			return ui.RenderChanges(entries, tableWidth())
		})
	},
}

func filterSince(entries []*types.ChangeLogEntry, since time.Time) []*types.ChangeLogEntry {
	var out []*types.ChangeLogEntry
	for _, e := range entries {
		if !e.CreatedAt.Before(since) {
			out = append(out, e)
		}
	}
	return out
}

var pruneCmd = &cobra.Command{
	Use:     "prune [name]",
	GroupID: "history",
	Short:   "Delete old non-major snapshots",
	Long: `Keep the newest --keep non-major snapshots of an instruction and delete the
rest. Major snapshots are never pruned. With --all every instruction is pruned.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		yes, _ := cmd.Flags().GetBool("yes")
		keep := settings.KeepVersions
		if cmd.Flags().Changed("keep") {
			keep, _ = cmd.Flags().GetInt("keep")
		}

		switch {
		case all && len(args) == 1:
			return fmt.Errorf("pass a name or --all, not both")
		case !all && len(args) == 0:
			return fmt.Errorf("pass a name or --all")
		}

		if all {
			question := fmt.Sprintf("Prune every instruction down to %d non-major snapshots?", keep)
			if !yes && !ui.PromptYesNo(cmd.InOrStdin(), cmd.ErrOrStderr(), ui.IsTerminal(), question, false) {
				return fmt.Errorf("aborted")
			}
			n, err := eng.PruneAll(cmd.Context(), keep)
			if err != nil {
				return err
			}
			return render(cmd, map[string]int{"pruned": n, "keep": keep}, func() string {
				return fmt.Sprintf("Pruned %d snapshots across all instructions (keep %d)", n, keep)
			})
		}

		n, err := eng.PruneOldVersions(cmd.Context(), args[0], keep)
		if err != nil {
			return err
		}
		return render(cmd, map[string]interface{}{"name": args[0], "pruned": n, "keep": keep}, func() string {
			return fmt.Sprintf("Pruned %d snapshots of %s (keep %d)", n, args[0], keep)
		})
	},
}

func init() {
	versionsCmd.Flags().IntP("limit", "n", 0, "Maximum snapshots to show (0 = all)")
	changelogCmd.Flags().IntP("limit", "n", 50, "Maximum entries to show (0 = all)")
	changelogCmd.Flags().String("since", "", "Only entries at or after this time")
	pruneCmd.Flags().Int("keep", engine.DefaultKeepCount, "Non-major snapshots to keep (default: versions.keep)")
	pruneCmd.Flags().Bool("all", false, "Prune every instruction")
	pruneCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt for --all")
	rootCmd.AddCommand(versionsCmd, versionShowCmd, restoreCmd, diffCmd, changelogCmd, pruneCmd)
}
