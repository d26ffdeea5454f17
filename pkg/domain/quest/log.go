package quest

import "log/slog"

// CategoryKey is the slog attribute key carrying a LogCategory.
const CategoryKey = "category"

// LogCategory groups diagnostics so they can be filtered independently.
type LogCategory string

const (
	CategoryInitialization    LogCategory = "initialization"
	CategoryObjectiveStart    LogCategory = "objective_start"
	CategoryObjectiveEnd      LogCategory = "objective_end"
	CategoryObjectiveComplete LogCategory = "objective_complete"
	CategoryObjectiveCancel   LogCategory = "objective_cancel"
	CategoryTask              LogCategory = "task"
	CategoryHint              LogCategory = "hint"
	CategoryFocus             LogCategory = "focus"
)

// AllLogCategories returns every category.
func AllLogCategories() []LogCategory {
	return []LogCategory{
		CategoryInitialization,
		CategoryObjectiveStart,
		CategoryObjectiveEnd,
		CategoryObjectiveComplete,
		CategoryObjectiveCancel,
		CategoryTask,
		CategoryHint,
		CategoryFocus,
	}
}

// Attr returns the category as a slog attribute.
func (c LogCategory) Attr() slog.Attr {
	return slog.String(CategoryKey, string(c))
}
