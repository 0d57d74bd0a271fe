package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func setActiveCmd(use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:     use + " <name>",
		GroupID: "instructions",
		Short:   short,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := eng.SetActive(cmd.Context(), args[0], active, currentActor())
			if err != nil {
				return err
			}
			return render(cmd, inst, func() string {
				state := "inactive"
				if inst.Active {
					state = "active"
				}
				return fmt.Sprintf("%s is now %s (version %d)", inst.Name, state, inst.Version)
			})
		},
	}
}

var (
	deactivateCmd = setActiveCmd("deactivate", "Hide an instruction from listings without deleting it", false)
	activateCmd   = setActiveCmd("activate", "Make a deactivated instruction visible again", true)
)

func init() {
	rootCmd.AddCommand(deactivateCmd, activateCmd)
}
