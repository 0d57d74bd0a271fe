package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/untoldecay/InstructionLog/internal/types"
	"github.com/untoldecay/InstructionLog/internal/ui"
)

var showCmd = &cobra.Command{
	Use:     "show <name>",
	GroupID: "instructions",
	Short:   "Show the live version of an instruction",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetBool("raw")
		inst, err := eng.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if raw && !jsonOutput {
			_, err := cmd.OutOrStdout().Write([]byte(inst.Content))
			return err
		}
		return render(cmd, inst, func() string {
			return renderInstruction(inst)
		})
	},
}

func renderInstruction(inst *types.InstructionSet) string {
	var b strings.Builder
	b.WriteString(ui.RenderInstructionHeader(inst))
	b.WriteString("\n\n")
	b.WriteString(ui.RenderMarkdown(inst.Content, ui.GetWidth()))
	return strings.TrimRight(b.String(), "\n")
}

var listCmd = &cobra.Command{
	Use:     "list",
	GroupID: "instructions",
	Short:   "List instructions ordered by category and name",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		all, _ := cmd.Flags().GetBool("all")
		list, err := eng.List(cmd.Context(), types.InstructionFilter{Category: category, IncludeInactive: all})
		if err != nil {
			return err
		}
		if list == nil {
			list = []*types.InstructionSet{}
		}
		return render(cmd, list, func() string {
			return ui.RenderInstructions(list, tableWidth())
		})
	},
}

func init() {
	showCmd.Flags().Bool("raw", false, "Print stored content only, without rendering")
	listCmd.Flags().StringP("category", "c", "", "Only this category")
	listCmd.Flags().BoolP("all", "a", false, "Include deactivated instructions")
	rootCmd.AddCommand(showCmd, listCmd)
}
