package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/untoldecay/InstructionLog/internal/types"
	"github.com/untoldecay/InstructionLog/internal/ui"
)

var prefCmd = &cobra.Command{
	Use:     "pref",
	GroupID: "setup",
	Short:   "Get or set verbosity preferences",
}

var prefGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Resolve the verbosity preference for a user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		name, _ := cmd.Flags().GetString("instruction")
		pref, err := eng.GetVerbosityPreference(cmd.Context(), user, name)
		if err != nil {
			return err
		}
		return render(cmd, pref, func() string {
			return fmt.Sprintf("%s %s", pref.Verbosity, ui.RenderMuted("(from "+pref.Source+")"))
		})
	},
}

var prefSetCmd = &cobra.Command{
	Use:   "set <minimal|normal|verbose>",
	Short: "Store a verbosity preference for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		name, _ := cmd.Flags().GetString("instruction")
		v := types.Verbosity(strings.ToLower(args[0]))
		if err := eng.SetVerbosityPreference(cmd.Context(), user, name, v); err != nil {
			return err
		}
		pref := &types.VerbosityPreference{UserID: user, Name: name, Verbosity: v, Source: types.VerbosityKey(name)}
		return render(cmd, pref, func() string {
			scope := "all instructions"
			if name != "" {
				scope = name
			}
			return fmt.Sprintf("Verbosity for %s on %s set to %s", user, scope, v)
		})
	},
}

var confidenceCmd = &cobra.Command{
	Use:     "confidence",
	GroupID: "setup",
	Short:   "Map confidence levels to instruction lists",
}

var confidenceGetCmd = &cobra.Command{
	Use:   "get <level>",
	Short: "Show the active instructions mapped to a confidence level",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := eng.InstructionsForConfidence(cmd.Context(), args[0])
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

var confidenceSetCmd = &cobra.Command{
	Use:   "set <level> <name>...",
	Short: "Replace the ordered instruction list for a confidence level",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, names := args[0], args[1:]
		if err := eng.SetConfidenceMapping(cmd.Context(), level, names); err != nil {
			return err
		}
		cm := &types.ConfidenceMapping{ConfidenceLevel: level, Instructions: names}
		return render(cmd, cm, func() string {
			return fmt.Sprintf("%s -> %s", level, strings.Join(names, ", "))
		})
	},
}

var confidenceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every confidence mapping",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mappings, err := eng.ListConfidenceMappings(cmd.Context())
		if err != nil {
			return err
		}
		if mappings == nil {
			mappings = []*types.ConfidenceMapping{}
		}
		return render(cmd, mappings, func() string {
			t := ui.NewTable(tableWidth(), "Level", "Instructions")
			for _, m := range mappings {
				t.Row(m.ConfidenceLevel, strings.Join(m.Instructions, ", "))
			}
			return t.String()
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{prefGetCmd, prefSetCmd} {
		c.Flags().StringP("user", "u", "default", "User id")
		c.Flags().StringP("instruction", "i", "", "Scope to one instruction")
	}
	prefCmd.AddCommand(prefGetCmd, prefSetCmd)
	confidenceCmd.AddCommand(confidenceGetCmd, confidenceSetCmd, confidenceListCmd)
	rootCmd.AddCommand(prefCmd, confidenceCmd)
}
