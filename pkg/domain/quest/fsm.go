package quest

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// State constants for statekit integration.
// These must remain untyped string constants for statekit.StateID compatibility.
const (
	StateNotStarted = "not_started"
	StateInProgress = "in_progress"
	StateComplete   = "complete"
	StateFinished   = "finished"
	StateCancelled  = "cancelled"
	StateCompleted  = "completed"
)

// Objective machine events.
const (
	eventStart    = "start"
	eventComplete = "complete"
	eventReopen   = "reopen"
	eventEnd      = "end"
)

// Task machine events.
const (
	eventAdd    = "add"
	eventFinish = "finish"
	eventRemove = "remove"
)

// machineContext carries the owner id for diagnostics.
type machineContext struct {
	OwnerID string
}

// stateMachine wraps a running statekit interpreter.
type stateMachine struct {
	kind        string
	ownerID     string
	interpreter *statekit.Interpreter[machineContext]
}

// newObjectiveMachine builds the objective lifecycle machine starting at initial.
func newObjectiveMachine(ownerID string, initial ObjectiveState) (*stateMachine, error) {
	if !initial.IsValid() {
		return nil, fmt.Errorf("invalid initial objective state %q", initial)
	}

	builder := statekit.NewMachine[machineContext]("objective-machine").
		WithInitial(statekit.StateID(initial)).
		WithContext(machineContext{OwnerID: ownerID})

	builder.State(StateNotStarted).
		On(eventStart).Target(StateInProgress).
		Done()

	builder.State(StateInProgress).
		On(eventComplete).Target(StateComplete).
		On(eventEnd).Target(StateCancelled).
		Done()

	// Reopen covers both an explicit completion cancel and task regression.
	builder.State(StateComplete).
		On(eventReopen).Target(StateInProgress).
		On(eventEnd).Target(StateFinished).
		Done()

	builder.State(StateFinished).Done()
	builder.State(StateCancelled).Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build objective state machine: %w", err)
	}
	return startMachine("objective", ownerID, statekit.NewInterpreter(machine)), nil
}

// newTaskMachine builds the task lifecycle machine starting at initial.
func newTaskMachine(ownerID string, initial TaskState) (*stateMachine, error) {
	if !initial.IsValid() {
		return nil, fmt.Errorf("invalid initial task state %q", initial)
	}

	builder := statekit.NewMachine[machineContext]("task-machine").
		WithInitial(statekit.StateID(initial)).
		WithContext(machineContext{OwnerID: ownerID})

	builder.State(StateNotStarted).
		On(eventAdd).Target(StateInProgress).
		Done()

	builder.State(StateInProgress).
		On(eventFinish).Target(StateCompleted).
		On(eventRemove).Target(StateNotStarted).
		Done()

	builder.State(StateCompleted).
		On(eventRemove).Target(StateNotStarted).
		Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build task state machine: %w", err)
	}
	return startMachine("task", ownerID, statekit.NewInterpreter(machine)), nil
}

func startMachine(kind, ownerID string, interpreter *statekit.Interpreter[machineContext]) *stateMachine {
	interpreter.Start()
	return &stateMachine{kind: kind, ownerID: ownerID, interpreter: interpreter}
}

// mustObjectiveMachine is used for the fixed reset states, where a build
// failure means the machine definition itself is broken.
func mustObjectiveMachine(ownerID string, initial ObjectiveState) *stateMachine {
	sm, err := newObjectiveMachine(ownerID, initial)
	if err != nil {
		panic(err)
	}
	return sm
}

func mustTaskMachine(ownerID string, initial TaskState) *stateMachine {
	sm, err := newTaskMachine(ownerID, initial)
	if err != nil {
		panic(err)
	}
	return sm
}

// Current returns the current state id.
func (sm *stateMachine) Current() string {
	return string(sm.interpreter.State().Value)
}

// Transition sends event and reports an error if the state did not move.
func (sm *stateMachine) Transition(event string) error {
	before := sm.Current()
	sm.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	if sm.Current() != before {
		return nil
	}
	return &TransitionError{
		Kind:  sm.kind,
		ID:    sm.ownerID,
		From:  before,
		Event: event,
	}
}
