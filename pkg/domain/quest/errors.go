package quest

import (
	"errors"
	"fmt"
)

// Domain errors. Every rejected operation leaves state untouched.
var (
	// ErrInvalidTransition indicates the entity is not in a state that allows the operation.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrNotRegistered indicates the objective is unknown to the coordinator.
	ErrNotRegistered = errors.New("objective not registered")

	// ErrParentInactive indicates a task or hint whose objective is not active and registered.
	ErrParentInactive = errors.New("parent objective is not active and valid")

	// ErrSaveShape indicates saved data does not match the entity it is loaded into.
	ErrSaveShape = errors.New("save data shape mismatch")

	// ErrUnknownObjective indicates saved data references an objective the catalog does not know.
	ErrUnknownObjective = errors.New("unknown objective")

	// ErrNotReady indicates the coordinator did not finish its initial load in time.
	ErrNotReady = errors.New("coordinator not ready")

	// ErrDuplicateObjective indicates a different objective already holds the id.
	ErrDuplicateObjective = errors.New("objective id already registered")

	// ErrNoSave indicates a save slot that has never been written.
	ErrNoSave = errors.New("no save data")

	// ErrNoCatalog indicates a load was attempted without an objective catalog.
	ErrNoCatalog = errors.New("no objective catalog configured")
)

// TransitionError describes a rejected state machine transition.
type TransitionError struct {
	Kind  string
	ID    string
	From  string
	Event string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s %s %s in state %s", e.Event, e.Kind, e.ID, e.From)
}

// Is allows errors.Is to match ErrInvalidTransition.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// ShapeError describes saved data that does not fit its target entity.
type ShapeError struct {
	ID       string
	Field    string
	Expected int
	Got      int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("objective %s: saved %s count %d does not match %d", e.ID, e.Field, e.Got, e.Expected)
}

// Is allows errors.Is to match ErrSaveShape.
func (e *ShapeError) Is(target error) bool {
	return target == ErrSaveShape
}
