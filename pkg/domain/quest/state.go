package quest

import (
	"encoding/json"
	"fmt"
)

// ObjectiveState is the lifecycle state of an objective.
type ObjectiveState string

const (
	// ObjectiveNotStarted objectives are not tracked and can be started.
	ObjectiveNotStarted ObjectiveState = StateNotStarted
	// ObjectiveInProgress objectives are tracked and can complete.
	ObjectiveInProgress ObjectiveState = StateInProgress
	// ObjectiveComplete objectives are done but still tracked.
	ObjectiveComplete ObjectiveState = StateComplete
	// ObjectiveFinished objectives were ended after completing.
	ObjectiveFinished ObjectiveState = StateFinished
	// ObjectiveCancelled objectives were ended before completing.
	ObjectiveCancelled ObjectiveState = StateCancelled
)

// AllObjectiveStates returns every objective state in lifecycle order.
func AllObjectiveStates() []ObjectiveState {
	return []ObjectiveState{
		ObjectiveNotStarted,
		ObjectiveInProgress,
		ObjectiveComplete,
		ObjectiveFinished,
		ObjectiveCancelled,
	}
}

// IsValid reports whether s is a known objective state.
func (s ObjectiveState) IsValid() bool {
	switch s {
	case ObjectiveNotStarted, ObjectiveInProgress, ObjectiveComplete, ObjectiveFinished, ObjectiveCancelled:
		return true
	default:
		return false
	}
}

func (s ObjectiveState) String() string {
	return string(s)
}

// IsActive reports whether objectives in this state belong in the active list.
func (s ObjectiveState) IsActive() bool {
	return s == ObjectiveInProgress || s == ObjectiveComplete
}

// IsCompleted reports whether objectives in this state count as completed.
func (s ObjectiveState) IsCompleted() bool {
	return s == ObjectiveComplete || s == ObjectiveFinished
}

// DisplayName returns a human-readable name for the state.
func (s ObjectiveState) DisplayName() string {
	switch s {
	case ObjectiveNotStarted:
		return "Not Started"
	case ObjectiveInProgress:
		return "In Progress"
	case ObjectiveComplete:
		return "Complete"
	case ObjectiveFinished:
		return "Finished"
	case ObjectiveCancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}

// ParseObjectiveState parses a string into an ObjectiveState.
func ParseObjectiveState(s string) (ObjectiveState, error) {
	state := ObjectiveState(s)
	if !state.IsValid() {
		return "", fmt.Errorf("invalid objective state: %s", s)
	}
	return state, nil
}

// MarshalJSON implements json.Marshaler.
func (s ObjectiveState) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements json.Unmarshaler. Unknown states are rejected.
func (s *ObjectiveState) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	state, err := ParseObjectiveState(str)
	if err != nil {
		return err
	}
	*s = state
	return nil
}

// TaskState is the lifecycle state of a task.
type TaskState string

const (
	// TaskNotStarted tasks are not shown and do not count towards completion.
	TaskNotStarted TaskState = StateNotStarted
	// TaskInProgress tasks are shown and pending.
	TaskInProgress TaskState = StateInProgress
	// TaskCompleted tasks are shown and done.
	TaskCompleted TaskState = StateCompleted
)

// AllTaskStates returns every task state in lifecycle order.
func AllTaskStates() []TaskState {
	return []TaskState{TaskNotStarted, TaskInProgress, TaskCompleted}
}

// IsValid reports whether s is a known task state.
func (s TaskState) IsValid() bool {
	switch s {
	case TaskNotStarted, TaskInProgress, TaskCompleted:
		return true
	default:
		return false
	}
}

func (s TaskState) String() string {
	return string(s)
}

// IsActive reports whether a task in this state is part of its objective's
// active tasks. Completed tasks stay active.
func (s TaskState) IsActive() bool {
	return s == TaskInProgress || s == TaskCompleted
}

// DisplayName returns a human-readable name for the state.
func (s TaskState) DisplayName() string {
	switch s {
	case TaskNotStarted:
		return "Not Started"
	case TaskInProgress:
		return "In Progress"
	case TaskCompleted:
		return "Completed"
	default:
		return string(s)
	}
}

// ParseTaskState parses a string into a TaskState.
func ParseTaskState(s string) (TaskState, error) {
	state := TaskState(s)
	if !state.IsValid() {
		return "", fmt.Errorf("invalid task state: %s", s)
	}
	return state, nil
}

// MarshalJSON implements json.Marshaler.
func (s TaskState) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements json.Unmarshaler. Unknown states are rejected.
func (s *TaskState) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	state, err := ParseTaskState(str)
	if err != nil {
		return err
	}
	*s = state
	return nil
}
