package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/questlog/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/questlog/pkg/application"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage the tasks of an active objective",
}

var hintCmd = &cobra.Command{
	Use:   "hint",
	Short: "Show or hide the hints of an active objective",
}

type childAction func(svc *application.QuestService, ctx context.Context, objectiveID, childID string) error

func createChildCommand(kind, use, short, verb string, action childAction) *cobra.Command {
	return &cobra.Command{
		Use:   fmt.Sprintf("%s <objective> <%s>", use, kind),
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(ws *wiring.Workspace) error {
				objectiveID, childID := args[0], args[1]
				if err := action(ws.Service, cmd.Context(), objectiveID, childID); err != nil {
					return fmt.Errorf("failed to %s %s %s: %w", use, kind, childID, err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s/%s %s.\n", kind, objectiveID, childID, verb)
				return nil
			})
		},
	}
}

var taskReplaceCmd = &cobra.Command{
	Use:   "replace <objective> <task> <next-task>",
	Short: "Complete a task and add the one that follows it",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(cmd, func(ws *wiring.Workspace) error {
			objectiveID, taskID, nextID := args[0], args[1], args[2]
			if err := ws.Service.ReplaceTask(cmd.Context(), objectiveID, taskID, nextID); err != nil {
				return fmt.Errorf("failed to replace task %s: %w", taskID, err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "task %s/%s completed, %s added.\n", objectiveID, taskID, nextID)
			return nil
		})
	},
}

func init() {
	taskCmd.AddCommand(
		createChildCommand("task", "add", "Show a task", "added", (*application.QuestService).AddTask),
		createChildCommand("task", "remove", "Hide a task", "removed", (*application.QuestService).RemoveTask),
		createChildCommand("task", "complete", "Complete a task", "completed", (*application.QuestService).CompleteTask),
		createChildCommand("task", "reset", "Return a task to not started", "reset", (*application.QuestService).ResetTask),
		taskReplaceCmd,
	)
	hintCmd.AddCommand(
		createChildCommand("hint", "add", "Show a hint", "shown", (*application.QuestService).AddHint),
		createChildCommand("hint", "remove", "Hide a hint", "hidden", (*application.QuestService).RemoveHint),
	)
	RootCmd.AddCommand(taskCmd, hintCmd)
}
