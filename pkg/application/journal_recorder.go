package application

import (
	"log/slog"

	"github.com/felixgeelhaar/questlog/pkg/domain/events"
	"github.com/felixgeelhaar/questlog/pkg/domain/quest"
)

// JournalRecorder appends a record for every coordinator signal it observes.
type JournalRecorder struct {
	journal Journal
	logger  *slog.Logger
	subs    events.Group
}

func NewJournalRecorder(journal Journal, logger *slog.Logger) *JournalRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &JournalRecorder{journal: journal, logger: logger}
}

// Attach subscribes to c. Call Close to detach.
func (r *JournalRecorder) Attach(c *quest.Coordinator) {
	r.subs.Add(
		c.ObjectiveStarted().Subscribe("journal", r.objective(events.TypeObjectiveStarted)),
		c.ObjectiveEnded().Subscribe("journal", r.objective(events.TypeObjectiveEnded)),
		c.ObjectiveCompleted().Subscribe("journal", r.objective(events.TypeObjectiveCompleted)),
		c.FocusChanged().Subscribe("journal", func(o *quest.Objective) {
			rec := &events.Record{Type: events.TypeFocusChanged}
			if o != nil {
				rec.ObjectiveID = o.ID()
			}
			r.append(rec)
		}),
		c.ActiveTaskAdded().Subscribe("journal", r.task(events.TypeTaskAdded)),
		c.ActiveTaskRemoved().Subscribe("journal", r.task(events.TypeTaskRemoved)),
		c.ActiveHintToggled().Subscribe("journal", func(h *quest.Hint) {
			r.append(&events.Record{
				Type:        events.TypeHintToggled,
				ObjectiveID: parentID(h.ParentObjective()),
				Subject:     h.ID(),
				Metadata:    map[string]any{"active": h.IsActive()},
			})
		}),
	)
}

// Close detaches from every coordinator.
func (r *JournalRecorder) Close() {
	r.subs.Close()
}

func (r *JournalRecorder) objective(recordType string) events.Handler[*quest.Objective] {
	return func(o *quest.Objective) {
		r.append(&events.Record{
			Type:        recordType,
			ObjectiveID: o.ID(),
			Metadata:    map[string]any{"state": o.State().String(), "priority": o.Priority()},
		})
	}
}

func (r *JournalRecorder) task(recordType string) events.Handler[*quest.Task] {
	return func(t *quest.Task) {
		r.append(&events.Record{
			Type:        recordType,
			ObjectiveID: parentID(t.ParentObjective()),
			Subject:     t.ID(),
			Metadata:    map[string]any{"state": t.State().String()},
		})
	}
}

func (r *JournalRecorder) append(rec *events.Record) {
	if err := r.journal.Append(rec); err != nil {
		r.logger.Warn("failed to journal record", "type", rec.Type, "error", err)
	}
}

func parentID(o *quest.Objective) string {
	if o == nil {
		return ""
	}
	return o.ID()
}
