package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/questlog/internal/infrastructure/wiring"
)

var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "List save slots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(cmd, func(ws *wiring.Workspace) error {
			slots, err := ws.Slots(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(slots) == 0 {
				_, _ = fmt.Fprintln(out, "No saves yet.")
				return nil
			}
			for _, slot := range slots {
				marker := " "
				if slot == ws.Service.Slot() {
					marker = "*"
				}
				_, _ = fmt.Fprintf(out, "%s %s\n", marker, slot)
			}
			return nil
		})
	},
}

var slotsDeleteCmd = &cobra.Command{
	Use:   "delete <slot>",
	Short: "Delete a save slot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(cmd, func(ws *wiring.Workspace) error {
			if err := ws.DeleteSlot(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted slot %s.\n", args[0])
			return nil
		})
	},
}

func init() {
	slotsCmd.AddCommand(slotsDeleteCmd)
	RootCmd.AddCommand(slotsCmd)
}
