package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/untoldecay/InstructionLog/internal/engine"
	"github.com/untoldecay/InstructionLog/internal/types"
)

var createCmd = &cobra.Command{
	Use:     "create <name>",
	GroupID: "instructions",
	Short:   "Create a new instruction at version 1",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		category, _ := cmd.Flags().GetString("category")
		tag, _ := cmd.Flags().GetString("tag")
		summary, _ := cmd.Flags().GetString("summary")
		inline, _ := cmd.Flags().GetString("content")
		file, _ := cmd.Flags().GetString("content-file")

		content, _, err := readContent(cmd, inline, file)
		if err != nil {
			return err
		}

		inst, err := eng.Create(cmd.Context(), engine.CreateRequest{
			Name:     args[0],
			Title:    title,
			Content:  content,
			Category: category,
			Tag:      types.VersionTag(tag),
			Summary:  summary,
			Author:   currentActor(),
		})
		if err != nil {
			return err
		}
		return render(cmd, inst, func() string {
			return fmt.Sprintf("Created %s (version %d)", inst.Name, inst.Version)
		})
	},
}

func init() {
	createCmd.Flags().StringP("title", "t", "", "Title (required)")
	createCmd.Flags().StringP("category", "c", "", "Category")
	createCmd.Flags().String("tag", "", "Version tag: draft, stable or deprecated (default draft)")
	createCmd.Flags().StringP("summary", "m", "", "Change summary for the changelog")
	createCmd.Flags().String("content", "", "Instruction content")
	createCmd.Flags().String("content-file", "", "Read content from a file (- for stdin)")
	_ = createCmd.MarkFlagRequired("title")
	rootCmd.AddCommand(createCmd)
}
