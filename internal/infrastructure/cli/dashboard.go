package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/questlog/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/questlog/pkg/application"
	"github.com/felixgeelhaar/questlog/pkg/domain/quest"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI dashboard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if os.Getenv("QUESTLOG_SKIP_DASHBOARD_RUN") == "true" {
			return nil
		}
		return withWorkspace(cmd, func(ws *wiring.Workspace) error {
			p := tea.NewProgram(newDashboardModel(cmd.Context(), ws.Service, ws.Title))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("dashboard run failed: %w", err)
			}
			return nil
		})
	},
}

func init() {
	RootCmd.AddCommand(dashboardCmd)
}

var baseStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.NormalBorder()).
	BorderForeground(lipgloss.Color("240"))

// dashboardService is the part of QuestService the dashboard drives.
type dashboardService interface {
	Status(ctx context.Context) (*application.Status, error)
	Next(ctx context.Context) (*quest.Objective, error)
	CompleteObjective(ctx context.Context, id string) error
	EndObjective(ctx context.Context, id string) error
	Load(ctx context.Context) error
}

type model struct {
	ctx     context.Context
	svc     dashboardService
	title   func(string) string
	table   table.Model
	status  *application.Status
	message string
	err     error
}

func newDashboardModel(ctx context.Context, svc dashboardService, title func(string) string) model {
	columns := []table.Column{
		{Title: " ", Width: 1},
		{Title: "Objective", Width: 28},
		{Title: "ID", Width: 14},
		{Title: "State", Width: 12},
		{Title: "Priority", Width: 8},
		{Title: "Tasks", Width: 7},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240"))
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229"))
	t.SetStyles(s)

	m := model{ctx: ctx, svc: svc, title: title, table: t}
	m.refresh()
	return m
}

func (m *model) refresh() {
	st, err := m.svc.Status(m.ctx)
	if err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.status = st

	rows := make([]table.Row, 0, len(st.Active))
	for _, o := range st.Active {
		marker := ""
		if o.Focused {
			marker = ">"
		}
		done := 0
		for _, t := range o.Tasks {
			if t.State == quest.TaskCompleted {
				done++
			}
		}
		rows = append(rows, table.Row{
			marker,
			m.title(o.ID),
			o.ID,
			o.State.DisplayName(),
			fmt.Sprint(o.Priority),
			fmt.Sprintf("%d/%d", done, len(o.Tasks)),
		})
	}
	m.table.SetRows(rows)
}

func (m model) selected() string {
	row := m.table.SelectedRow()
	if len(row) < 3 {
		return ""
	}
	return row[2]
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "n":
			m.apply("focus moved", func() error {
				_, err := m.svc.Next(m.ctx)
				return err
			})
			return m, nil
		case "c":
			if id := m.selected(); id != "" {
				m.apply(id+" completed", func() error { return m.svc.CompleteObjective(m.ctx, id) })
			}
			return m, nil
		case "e":
			if id := m.selected(); id != "" {
				m.apply(id+" ended", func() error { return m.svc.EndObjective(m.ctx, id) })
			}
			return m, nil
		case "r":
			m.apply("reloaded", func() error { return m.svc.Load(m.ctx) })
			return m, nil
		}
	}
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *model) apply(message string, fn func() error) {
	if err := fn(); err != nil {
		m.message = statusErr.Render(err.Error())
		return
	}
	m.refresh()
	m.message = statusDone.Render(message)
}

func (m model) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error loading dashboard: %v\nPress q to quit.", m.err)
	}

	header := headerStyle.Render("Quest log: " + m.status.Slot)

	var details strings.Builder
	if id := m.selected(); id != "" {
		for _, o := range m.status.Active {
			if o.ID != id {
				continue
			}
			for _, t := range o.Tasks {
				fmt.Fprintf(&details, "%s %s\n", taskBox(t), t.ID)
			}
			for _, h := range o.Hints {
				details.WriteString(dimStyle.Render("? "+h.Name) + "\n")
			}
		}
	}

	return baseStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header,
			m.table.View(),
			details.String(),
			m.message,
			"\n[n] Next  [c] Complete  [e] End  [r] Reload  [q] Quit",
		),
	) + "\n"
}
