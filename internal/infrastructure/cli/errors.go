package cli

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/questlog/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/questlog/pkg/application"
	"github.com/felixgeelhaar/questlog/pkg/domain/quest"
	"github.com/felixgeelhaar/questlog/pkg/storage"
)

// CLIError wraps domain errors with user-facing messages and actionable hints.
type CLIError struct {
	Message  string
	Hint     string
	Err      error
	ExitCode int
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with a default exit code of 1.
func NewCLIError(msg, hint string, err error) *CLIError {
	return &CLIError{
		Message:  msg,
		Hint:     hint,
		Err:      err,
		ExitCode: 1,
	}
}

// MapError converts known domain errors into CLIErrors with actionable hints.
// Unmapped errors are returned as-is.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var transErr *quest.TransitionError
	if errors.As(err, &transErr) {
		return NewCLIError(
			transErr.Error(),
			fmt.Sprintf("The %s '%s' is '%s', check its state with 'questctl status'", transErr.Kind, transErr.ID, transErr.From),
			err,
		)
	}

	var shapeErr *quest.ShapeError
	if errors.As(err, &shapeErr) {
		return NewCLIError(
			"save does not match the catalog",
			fmt.Sprintf("Objective '%s' changed its %s since the save was written; start a new slot with --slot", shapeErr.ID, shapeErr.Field),
			err,
		)
	}

	switch {
	case errors.Is(err, wiring.ErrNotInitialized):
		return NewCLIError("workspace not initialized", "Run 'questctl init' first", err)
	case errors.Is(err, quest.ErrNotReady):
		return NewCLIError("quest log is still loading", "Retry, or raise ready_timeout in .questlog/config.yaml", err)
	case errors.Is(err, quest.ErrParentInactive):
		return NewCLIError("objective is not active", "Run 'questctl start <objective>' first", err)
	case errors.Is(err, quest.ErrNotRegistered):
		return NewCLIError("objective was never started", "Run 'questctl start <objective>' first", err)
	case errors.Is(err, quest.ErrUnknownObjective):
		return NewCLIError("unknown objective", "Check the ids in .questlog/catalog.yaml", err)
	case errors.Is(err, quest.ErrDuplicateObjective):
		return NewCLIError("duplicate objective id", "Objective ids in .questlog/catalog.yaml must be unique", err)
	case errors.Is(err, quest.ErrSaveShape):
		return NewCLIError("save does not match the catalog", "Start a new slot with --slot", err)
	case errors.Is(err, quest.ErrNoCatalog):
		return NewCLIError("no objective catalog", "Run 'questctl init --force' to restore the sample catalog", err)
	case errors.Is(err, application.ErrUnknownTask):
		return NewCLIError("unknown task", "Run 'questctl status' to list tasks", err)
	case errors.Is(err, application.ErrUnknownHint):
		return NewCLIError("unknown hint", "Check the hint ids in .questlog/catalog.yaml", err)
	case errors.Is(err, application.ErrUnknownGroup):
		return NewCLIError("unknown group", "Check the groups in .questlog/catalog.yaml", err)
	case errors.Is(err, storage.ErrInvalidSlot):
		return NewCLIError("invalid save slot", "Slots use letters, digits, '-' and '_'", err)
	}

	return err
}
