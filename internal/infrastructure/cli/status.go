package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/questlog/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/questlog/pkg/application"
	"github.com/felixgeelhaar/questlog/pkg/domain/quest"
)

var statusJSON bool

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FAFAFA")).
	Background(lipgloss.Color("#7D56F4")).
	PaddingLeft(1).
	PaddingRight(1)

var (
	statusDone = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	statusWIP  = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	statusErr  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active objectives, their tasks and hints",
	Long: `Show the quest log.

Active objectives are listed in focus order with their visible tasks and
hints. The focused objective is marked with '>'.

Examples:
  questctl status
  questctl status --json
  questctl status --slot autosave`,
	Args: cobra.NoArgs,
	RunE: runStatusCmd,
}

func runStatusCmd(cmd *cobra.Command, args []string) error {
	return withWorkspace(cmd, func(ws *wiring.Workspace) error {
		st, err := ws.Service.Status(cmd.Context())
		if err != nil {
			return err
		}
		if statusJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		}
		renderStatus(cmd.OutOrStdout(), st, ws.Title)
		return nil
	})
}

func renderStatus(w io.Writer, st *application.Status, title func(string) string) {
	_, _ = fmt.Fprintln(w, headerStyle.Render("Quest log: "+st.Slot))

	if len(st.Active) == 0 {
		_, _ = fmt.Fprintln(w, dimStyle.Render("No active objectives."))
	}
	for _, o := range st.Active {
		marker := " "
		if o.Focused {
			marker = ">"
		}
		_, _ = fmt.Fprintf(w, "%s %s (%s) %s priority %d\n", marker, title(o.ID), o.ID, objectiveState(o.State), o.Priority)
		for _, t := range o.Tasks {
			_, _ = fmt.Fprintf(w, "    %s %s\n", taskBox(t), t.ID)
		}
		for _, h := range o.Hints {
			line := "    ? " + h.Name
			if h.Description != "" {
				line += ": " + h.Description
			}
			_, _ = fmt.Fprintln(w, dimStyle.Render(line))
		}
	}

	if len(st.Registered) > 0 {
		parts := make([]string, 0, len(st.Registered))
		for _, o := range st.Registered {
			parts = append(parts, fmt.Sprintf("%s (%s)", o.ID, o.State.DisplayName()))
		}
		_, _ = fmt.Fprintln(w, dimStyle.Render("Tracked: "+strings.Join(parts, ", ")))
	}
}

func objectiveState(s quest.ObjectiveState) string {
	label := "[" + s.DisplayName() + "]"
	switch s {
	case quest.ObjectiveComplete, quest.ObjectiveFinished:
		return statusDone.Render(label)
	case quest.ObjectiveCancelled:
		return statusErr.Render(label)
	default:
		return statusWIP.Render(label)
	}
}

func taskBox(t application.TaskStatus) string {
	box := "[ ]"
	if t.State == quest.TaskCompleted {
		box = statusDone.Render("[x]")
	}
	if t.CompletesParent {
		box += "*"
	}
	return box
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
	RootCmd.AddCommand(statusCmd)
}
