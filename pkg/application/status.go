package application

import (
	"context"

	"github.com/felixgeelhaar/questlog/pkg/domain/quest"
)

// Status is a read-only snapshot of the coordinator.
type Status struct {
	Slot       string            `json:"slot"`
	Focused    string            `json:"focused,omitempty"`
	Active     []ObjectiveStatus `json:"active"`
	Registered []ObjectiveStatus `json:"registered"`
}

type ObjectiveStatus struct {
	ID       string               `json:"id"`
	State    quest.ObjectiveState `json:"state"`
	Priority int                  `json:"priority"`
	Focused  bool                 `json:"focused,omitempty"`
	Tasks    []TaskStatus         `json:"tasks,omitempty"`
	Hints    []HintStatus         `json:"hints,omitempty"`
}

type TaskStatus struct {
	ID              string          `json:"id"`
	State           quest.TaskState `json:"state"`
	CompletesParent bool            `json:"completes_parent,omitempty"`
}

type HintStatus struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Status snapshots the active list in focus order and every registered
// objective in registration order. Active entries list their active tasks
// and hints.
func (s *QuestService) Status(ctx context.Context) (*Status, error) {
	if err := s.coord.WaitReady(ctx, s.readyTimeout); err != nil {
		return nil, err
	}

	focused := s.coord.FocusedObjective()
	st := &Status{Slot: s.slot, Active: []ObjectiveStatus{}, Registered: []ObjectiveStatus{}}
	if focused != nil {
		st.Focused = focused.ID()
	}

	for _, o := range s.coord.ActiveObjectives() {
		entry := objectiveStatus(o, focused)
		for _, t := range o.ActiveTasks() {
			entry.Tasks = append(entry.Tasks, TaskStatus{ID: t.ID(), State: t.State(), CompletesParent: t.CompletesParent()})
		}
		for _, h := range o.ActiveHints() {
			entry.Hints = append(entry.Hints, HintStatus{ID: h.ID(), Name: h.Name(), Description: h.Description()})
		}
		st.Active = append(st.Active, entry)
	}
	for _, o := range s.coord.Objectives() {
		st.Registered = append(st.Registered, objectiveStatus(o, focused))
	}
	return st, nil
}

func objectiveStatus(o, focused *quest.Objective) ObjectiveStatus {
	return ObjectiveStatus{
		ID:       o.ID(),
		State:    o.State(),
		Priority: o.Priority(),
		Focused:  o == focused,
	}
}
