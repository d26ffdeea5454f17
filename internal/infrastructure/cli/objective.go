package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/questlog/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/questlog/pkg/application"
)

type objectiveAction func(svc *application.QuestService, ctx context.Context, id string) error

func createObjectiveCommand(use, short, verb string, action, groupAction objectiveAction) *cobra.Command {
	var group bool
	cmd := &cobra.Command{
		Use:   use + " <objective>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(ws *wiring.Workspace) error {
				id := args[0]
				kind := "Objective"
				run := action
				if group {
					kind, run = "Group", groupAction
				}
				if err := run(ws.Service, cmd.Context(), id); err != nil {
					return fmt.Errorf("failed to %s %s: %w", use, id, err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s.\n", kind, id, verb)
				printFocus(cmd, ws)
				return nil
			})
		},
	}
	if groupAction != nil {
		cmd.Use = use + " <objective|group>"
		cmd.Flags().BoolVarP(&group, "group", "g", false, "Treat the argument as a catalog group name")
	}
	return cmd
}

func printFocus(cmd *cobra.Command, ws *wiring.Workspace) {
	focused := ws.Coordinator.FocusedObjective()
	if focused == nil {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No objective in focus.")
		return
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Focus: %s (%s)\n", ws.Title(focused.ID()), focused.ID())
}

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Move focus to the next incomplete objective",
	Long: `Move focus to the next incomplete objective and print it.

Focus is not saved: every questctl run recomputes it from the active
objectives, so the new focus only lasts for this process. Use the
dashboard or the MCP server to cycle focus during a session.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(cmd, func(ws *wiring.Workspace) error {
			if _, err := ws.Service.Next(cmd.Context()); err != nil {
				return err
			}
			printFocus(cmd, ws)
			return nil
		})
	},
}

func init() {
	RootCmd.AddCommand(
		createObjectiveCommand("start", "Start an objective", "started",
			(*application.QuestService).StartObjective, (*application.QuestService).StartGroup),
		createObjectiveCommand("end", "End an objective", "ended",
			(*application.QuestService).EndObjective, (*application.QuestService).EndGroup),
		createObjectiveCommand("complete", "Mark an objective complete", "completed",
			(*application.QuestService).CompleteObjective, nil),
		createObjectiveCommand("uncomplete", "Return a complete objective to in progress", "reopened",
			(*application.QuestService).CancelObjectiveCompletion, nil),
		nextCmd,
	)
}
