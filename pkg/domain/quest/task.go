package quest

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/questlog/pkg/domain/events"
)

// Task is the smallest unit of progress inside an objective.
type Task struct {
	id              string
	priority        int
	completesParent bool
	initiallyActive bool
	parent          *Objective
	sm              *stateMachine

	activeToggled     *events.Signal[*Task]
	completionToggled *events.Signal[*Task]
}

// TaskOption configures a Task.
type TaskOption func(*Task)

// WithTaskPriority sets the display priority of the task.
func WithTaskPriority(priority int) TaskOption {
	return func(t *Task) { t.priority = priority }
}

// CompletesParent marks the task as sufficient on its own to complete its objective.
func CompletesParent() TaskOption {
	return func(t *Task) { t.completesParent = true }
}

// InitiallyActive marks the task to be added as soon as its objective starts.
func InitiallyActive() TaskOption {
	return func(t *Task) { t.initiallyActive = true }
}

// NewTask creates a NotStarted task.
func NewTask(id string, opts ...TaskOption) *Task {
	t := &Task{
		id:                id,
		sm:                mustTaskMachine(id, TaskNotStarted),
		activeToggled:     events.NewSignal[*Task]("task.active_toggled"),
		completionToggled: events.NewSignal[*Task]("task.completion_toggled"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Task) ID() string { return t.id }
func (t *Task) Priority() int { return t.priority }
func (t *Task) CompletesParent() bool { return t.completesParent }
func (t *Task) InitiallyActive() bool { return t.initiallyActive }
func (t *Task) ParentObjective() *Objective { return t.parent }

// SetCompletesParent changes the parent-complete flag.
func (t *Task) SetCompletesParent(v bool) {
	t.completesParent = v
}

// State returns the current task state.
func (t *Task) State() TaskState {
	return TaskState(t.sm.Current())
}

// IsActive reports whether the task is InProgress or Completed.
func (t *Task) IsActive() bool {
	return t.State().IsActive()
}

// IsCompleted reports whether the task is Completed.
func (t *Task) IsCompleted() bool {
	return t.State() == TaskCompleted
}

// ActiveToggled fires when the task enters or leaves the active set.
func (t *Task) ActiveToggled() *events.Signal[*Task] {
	return t.activeToggled
}

// CompletionToggled fires when the task's completion may have changed.
func (t *Task) CompletionToggled() *events.Signal[*Task] {
	return t.completionToggled
}

// Add moves the task from NotStarted to InProgress.
func (t *Task) Add() error {
	if err := t.requireActiveParent("add"); err != nil {
		return err
	}
	if err := t.sm.Transition(eventAdd); err != nil {
		t.logger().Warn("can't add task because it has already started", t.attrs(err)...)
		return err
	}

	t.logger().Info("task added", t.attrs(nil)...)
	t.activeToggled.Emit(t)
	return nil
}

// Remove returns a started task to NotStarted.
func (t *Task) Remove() error {
	if err := t.requireActiveParent("remove"); err != nil {
		return err
	}
	if err := t.sm.Transition(eventRemove); err != nil {
		t.logger().Warn("can't remove task because it hasn't been started", t.attrs(err)...)
		return err
	}

	t.logger().Info("task removed", t.attrs(nil)...)
	t.activeToggled.Emit(t)
	t.completionToggled.Emit(t)
	return nil
}

// Complete moves an InProgress task to Completed.
func (t *Task) Complete() error {
	if err := t.requireActiveParent("complete"); err != nil {
		return err
	}
	if err := t.sm.Transition(eventFinish); err != nil {
		t.logger().Warn("can't complete task because it isn't in progress", t.attrs(err)...)
		return err
	}

	t.logger().Info("task completed", t.attrs(nil)...)
	t.completionToggled.Emit(t)
	return nil
}

// CompleteAndReplace activates next and then completes t, so the objective
// never sees a moment with no pending task in the chain.
func (t *Task) CompleteAndReplace(next *Task) error {
	if err := next.Add(); err != nil {
		return fmt.Errorf("replace %s with %s: %w", t.id, next.id, err)
	}
	return t.Complete()
}

// ResetProgress forces the task back to NotStarted. Both toggles fire even if
// the task was already NotStarted.
func (t *Task) ResetProgress() {
	t.sm = mustTaskMachine(t.id, TaskNotStarted)
	t.activeToggled.Emit(t)
	t.completionToggled.Emit(t)
}

// Serialize returns the task's saved form.
func (t *Task) Serialize() ([]byte, error) {
	return json.Marshal(t.State())
}

// Deserialize restores a state saved by Serialize. No events fire.
func (t *Task) Deserialize(data []byte) error {
	apply, err := t.prepareRestore(data)
	if err != nil {
		return err
	}
	apply()
	return nil
}

func (t *Task) prepareRestore(data []byte) (func(), error) {
	var state TaskState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("task %s: %w", t.id, err)
	}
	sm, err := newTaskMachine(t.id, state)
	if err != nil {
		return nil, err
	}
	return func() { t.sm = sm }, nil
}

func (t *Task) String() string {
	return fmt.Sprintf("%s %s", t.id, t.State())
}

func (t *Task) requireActiveParent(action string) error {
	if t.parent.isActiveAndValid() {
		return nil
	}
	t.logger().Warn("can't "+action+" task because parent objective is not active and valid", t.attrs(nil)...)
	return fmt.Errorf("%s task %s: %w", action, t.id, ErrParentInactive)
}

func (t *Task) logger() *slog.Logger {
	return t.parent.logger()
}

func (t *Task) attrs(err error) []any {
	out := []any{CategoryTask.Attr(), "task", t.id, "state", string(t.State())}
	if t.parent != nil {
		out = append(out, "objective", t.parent.id)
	}
	if err != nil {
		out = append(out, "error", err)
	}
	return out
}
