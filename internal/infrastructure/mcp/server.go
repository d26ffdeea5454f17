package mcp

import (
	"context"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/questlog/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/questlog/pkg/application"
	"github.com/felixgeelhaar/questlog/pkg/domain/events"
)

// Server exposes one workspace's quest log as MCP tools. Tool calls are
// serialized because the coordinator is single-threaded.
type Server struct {
	mcpServer *mcp.Server
	ws        *wiring.Workspace
	mu        sync.Mutex
}

var (
	Version     = "dev"
	BuildCommit = "unknown"
	BuildDate   = "unknown"
)

// mcpErr returns a user-friendly error for MCP clients.
func mcpErr(friendly string) error {
	return fmt.Errorf("%s", friendly)
}

// NewServer wraps an open workspace. The caller keeps ownership of ws.
func NewServer(ws *wiring.Workspace) *Server {
	info := mcp.ServerInfo{
		Name:    "questlog",
		Version: Version,
	}

	s := &Server{
		mcpServer: mcp.NewServer(info,
			mcp.WithTitle("Questlog MCP Server"),
			mcp.WithDescription("Questlog exposes quest objectives, tasks, hints and focus to MCP clients."),
			mcp.WithBuildInfo(BuildCommit, BuildDate),
			mcp.WithInstructions("Read the quest log with questlog_status, then drive objectives, tasks and hints. Every change is saved."),
		),
		ws: ws,
	}
	s.registerTools()
	return s
}

type ObjectiveArgs struct {
	Objective string `json:"objective" jsonschema:"description=Objective id from the catalog, or a group name when group is set"`
	Group     bool   `json:"group,omitempty" jsonschema:"description=Treat objective as a catalog group name"`
}

type TaskArgs struct {
	Objective string `json:"objective" jsonschema:"description=Id of the objective that owns the task"`
	Task      string `json:"task" jsonschema:"description=Task id"`
	Action    string `json:"action" jsonschema:"description=One of add, remove, complete, reset"`
}

type ReplaceTaskArgs struct {
	Objective string `json:"objective" jsonschema:"description=Id of the objective that owns both tasks"`
	Task      string `json:"task" jsonschema:"description=Task to complete"`
	Next      string `json:"next" jsonschema:"description=Task to add in its place"`
}

type HintArgs struct {
	Objective string `json:"objective" jsonschema:"description=Id of the objective that owns the hint"`
	Hint      string `json:"hint" jsonschema:"description=Hint id"`
	Active    bool   `json:"active" jsonschema:"description=Show the hint when true, hide it when false"`
}

type JournalArgs struct {
	Objective string `json:"objective,omitempty" jsonschema:"description=Only return records for this objective"`
	Type      string `json:"type,omitempty" jsonschema:"description=Only return records of this type, e.g. objective.completed"`
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("questlog_status").
		Description("Retrieve the active objectives in focus order with their tasks and hints").
		Handler(s.handleStatus)

	s.mcpServer.Tool("questlog_start_objective").
		Description("Start an objective, or every objective of a group").
		Handler(s.handleStartObjective)

	s.mcpServer.Tool("questlog_end_objective").
		Description("End an active objective, or every objective of a group").
		Handler(s.handleEndObjective)

	s.mcpServer.Tool("questlog_complete_objective").
		Description("Mark an in-progress objective complete").
		Handler(s.handleCompleteObjective)

	s.mcpServer.Tool("questlog_reopen_objective").
		Description("Return a complete objective to in progress").
		Handler(s.handleReopenObjective)

	s.mcpServer.Tool("questlog_task").
		Description("Add, remove, complete or reset a task of an active objective").
		Handler(s.handleTask)

	s.mcpServer.Tool("questlog_replace_task").
		Description("Complete a task and add the one that follows it").
		Handler(s.handleReplaceTask)

	s.mcpServer.Tool("questlog_hint").
		Description("Show or hide a hint of an active objective").
		Handler(s.handleHint)

	s.mcpServer.Tool("questlog_next").
		Description("Move focus to the next incomplete objective").
		Handler(s.handleNext)

	s.mcpServer.Tool("questlog_journal").
		Description("Retrieve the quest journal").
		Handler(s.handleJournal)
}

func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr, mcp.WithDefaultCORS())
}

func (s *Server) service() *application.QuestService {
	return s.ws.Service
}

func (s *Server) handleStatus(ctx context.Context, args struct{}) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.service().Status(ctx)
	if err != nil {
		return nil, mcpErr("Failed to read the quest log. The save may still be loading.")
	}
	return st, nil
}

func (s *Server) objectiveCommand(ctx context.Context, args ObjectiveArgs, verb string,
	one, group func(*application.QuestService, context.Context, string) error) (string, error) {
	if args.Objective == "" {
		return "", mcpErr("objective is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	kind, run := "Objective", one
	if args.Group {
		if group == nil {
			return "", mcpErr(fmt.Sprintf("Groups cannot be %s.", verb))
		}
		kind, run = "Group", group
	}
	if err := run(s.service(), ctx, args.Objective); err != nil {
		return "", mcpErr(fmt.Sprintf("%s '%s' could not be %s: %v", kind, args.Objective, verb, err))
	}
	return fmt.Sprintf("%s %s %s", kind, args.Objective, verb), nil
}

func (s *Server) handleStartObjective(ctx context.Context, args ObjectiveArgs) (string, error) {
	return s.objectiveCommand(ctx, args, "started",
		(*application.QuestService).StartObjective, (*application.QuestService).StartGroup)
}

func (s *Server) handleEndObjective(ctx context.Context, args ObjectiveArgs) (string, error) {
	return s.objectiveCommand(ctx, args, "ended",
		(*application.QuestService).EndObjective, (*application.QuestService).EndGroup)
}

func (s *Server) handleCompleteObjective(ctx context.Context, args ObjectiveArgs) (string, error) {
	return s.objectiveCommand(ctx, args, "completed", (*application.QuestService).CompleteObjective, nil)
}

func (s *Server) handleReopenObjective(ctx context.Context, args ObjectiveArgs) (string, error) {
	return s.objectiveCommand(ctx, args, "reopened", (*application.QuestService).CancelObjectiveCompletion, nil)
}

func (s *Server) handleTask(ctx context.Context, args TaskArgs) (string, error) {
	if args.Objective == "" || args.Task == "" {
		return "", mcpErr("objective and task are required")
	}
	actions := map[string]func(*application.QuestService, context.Context, string, string) error{
		"add":      (*application.QuestService).AddTask,
		"remove":   (*application.QuestService).RemoveTask,
		"complete": (*application.QuestService).CompleteTask,
		"reset":    (*application.QuestService).ResetTask,
	}
	action, ok := actions[args.Action]
	if !ok {
		return "", mcpErr(fmt.Sprintf("Unknown task action '%s'. Use add, remove, complete or reset.", args.Action))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := action(s.service(), ctx, args.Objective, args.Task); err != nil {
		return "", mcpErr(fmt.Sprintf("Failed to %s task '%s' of '%s': %v", args.Action, args.Task, args.Objective, err))
	}
	return fmt.Sprintf("Task %s/%s: %s done", args.Objective, args.Task, args.Action), nil
}

func (s *Server) handleReplaceTask(ctx context.Context, args ReplaceTaskArgs) (string, error) {
	if args.Objective == "" || args.Task == "" || args.Next == "" {
		return "", mcpErr("objective, task and next are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.service().ReplaceTask(ctx, args.Objective, args.Task, args.Next); err != nil {
		return "", mcpErr(fmt.Sprintf("Failed to replace task '%s' of '%s': %v", args.Task, args.Objective, err))
	}
	return fmt.Sprintf("Task %s/%s completed, %s added", args.Objective, args.Task, args.Next), nil
}

func (s *Server) handleHint(ctx context.Context, args HintArgs) (string, error) {
	if args.Objective == "" || args.Hint == "" {
		return "", mcpErr("objective and hint are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	run, verb := s.service().RemoveHint, "hidden"
	if args.Active {
		run, verb = s.service().AddHint, "shown"
	}
	if err := run(ctx, args.Objective, args.Hint); err != nil {
		return "", mcpErr(fmt.Sprintf("Failed to toggle hint '%s' of '%s': %v", args.Hint, args.Objective, err))
	}
	return fmt.Sprintf("Hint %s/%s %s", args.Objective, args.Hint, verb), nil
}

func (s *Server) handleNext(ctx context.Context, args struct{}) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	focused, err := s.service().Next(ctx)
	if err != nil {
		return "", mcpErr("Failed to move focus. The save may still be loading.")
	}
	if focused == nil {
		return "No objective in focus", nil
	}
	return fmt.Sprintf("Focus: %s (%s)", s.ws.Title(focused.ID()), focused.ID()), nil
}

func (s *Server) handleJournal(ctx context.Context, args JournalArgs) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.ws.Journal.LoadAll()
	if err != nil {
		return nil, mcpErr("Failed to read the journal.")
	}
	kept := make([]*events.Record, 0, len(records))
	for _, r := range records {
		if args.Objective != "" && r.ObjectiveID != args.Objective {
			continue
		}
		if args.Type != "" && r.Type != args.Type {
			continue
		}
		kept = append(kept, r)
	}
	return kept, nil
}
