package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/questlog/pkg/domain/events"
	"github.com/felixgeelhaar/questlog/pkg/domain/quest"
)

var (
	ErrUnknownTask  = errors.New("unknown task")
	ErrUnknownHint  = errors.New("unknown hint")
	ErrUnknownGroup = errors.New("unknown objective group")
)

// DefaultReadyTimeout bounds how long commands wait for a pending load.
const DefaultReadyTimeout = 5 * time.Second

// ObjectiveSource resolves objectives and objective groups by name.
type ObjectiveSource interface {
	quest.Catalog
	Group(name string) (*quest.Group, bool)
}

// Journal records coordinator activity.
type Journal interface {
	Append(rec *events.Record) error
}

// QuestService runs player commands against a coordinator and persists the
// coordinator to a save slot after every successful mutation.
type QuestService struct {
	coord        *quest.Coordinator
	source       ObjectiveSource
	store        quest.SaveStore
	slot         string
	journal      Journal
	logger       *slog.Logger
	readyTimeout time.Duration
}

type QuestServiceOption func(*QuestService)

// WithJournal records save loads and writes.
func WithJournal(j Journal) QuestServiceOption {
	return func(s *QuestService) { s.journal = j }
}

func WithServiceLogger(logger *slog.Logger) QuestServiceOption {
	return func(s *QuestService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithReadyTimeout overrides DefaultReadyTimeout.
func WithReadyTimeout(d time.Duration) QuestServiceOption {
	return func(s *QuestService) {
		if d > 0 {
			s.readyTimeout = d
		}
	}
}

func NewQuestService(coord *quest.Coordinator, source ObjectiveSource, store quest.SaveStore, slot string, opts ...QuestServiceOption) *QuestService {
	s := &QuestService{
		coord:        coord,
		source:       source,
		store:        store,
		slot:         slot,
		logger:       coord.Logger(),
		readyTimeout: DefaultReadyTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Coordinator returns the coordinator the service drives.
func (s *QuestService) Coordinator() *quest.Coordinator { return s.coord }

// Slot returns the save slot name.
func (s *QuestService) Slot() string { return s.slot }

// Load restores the coordinator from the save slot. A slot that was never
// written leaves the coordinator empty and marks it ready.
func (s *QuestService) Load(ctx context.Context) error {
	blob, err := s.store.Load(ctx, s.slot)
	if errors.Is(err, quest.ErrNoSave) {
		s.logger.Info("no save found, starting fresh", "slot", s.slot, quest.CategoryInitialization.Attr())
		s.coord.MarkReady()
		return nil
	}
	if err != nil {
		return fmt.Errorf("load slot %s: %w", s.slot, err)
	}
	if err := s.coord.Deserialize(blob); err != nil {
		return fmt.Errorf("restore slot %s: %w", s.slot, err)
	}
	s.record(events.TypeSaveLoaded)
	return nil
}

// Save writes the coordinator to the save slot.
func (s *QuestService) Save(ctx context.Context) error {
	if err := s.coord.WaitReady(ctx, s.readyTimeout); err != nil {
		return err
	}
	blob, err := s.coord.Serialize()
	if err != nil {
		return err
	}
	if err := s.store.Save(ctx, s.slot, blob); err != nil {
		return fmt.Errorf("save slot %s: %w", s.slot, err)
	}
	s.record(events.TypeSaveWritten)
	return nil
}

// StartObjective starts the objective with id.
func (s *QuestService) StartObjective(ctx context.Context, id string) error {
	return s.withObjective(ctx, id, s.coord.StartObjective)
}

// EndObjective ends the objective with id.
func (s *QuestService) EndObjective(ctx context.Context, id string) error {
	return s.withObjective(ctx, id, s.coord.EndObjective)
}

// CompleteObjective completes the objective with id.
func (s *QuestService) CompleteObjective(ctx context.Context, id string) error {
	return s.withObjective(ctx, id, s.coord.CompleteObjective)
}

// CancelObjectiveCompletion reopens the completed objective with id.
func (s *QuestService) CancelObjectiveCompletion(ctx context.Context, id string) error {
	return s.withObjective(ctx, id, s.coord.CancelObjectiveCompletion)
}

// StartGroup starts every objective of the named group.
func (s *QuestService) StartGroup(ctx context.Context, name string) error {
	return s.withGroup(ctx, name, func(g *quest.Group) error { return g.Start(s.coord) })
}

// EndGroup ends every objective of the named group.
func (s *QuestService) EndGroup(ctx context.Context, name string) error {
	return s.withGroup(ctx, name, func(g *quest.Group) error { return g.End(s.coord) })
}

func (s *QuestService) AddTask(ctx context.Context, objectiveID, taskID string) error {
	return s.withTask(ctx, objectiveID, taskID, (*quest.Task).Add)
}

func (s *QuestService) RemoveTask(ctx context.Context, objectiveID, taskID string) error {
	return s.withTask(ctx, objectiveID, taskID, (*quest.Task).Remove)
}

func (s *QuestService) CompleteTask(ctx context.Context, objectiveID, taskID string) error {
	return s.withTask(ctx, objectiveID, taskID, (*quest.Task).Complete)
}

// ResetTask returns a task to not started. Its objective sees the task leave
// the active tasks and re-checks completion, so a Complete objective whose
// completion depended on the task goes back to in progress.
func (s *QuestService) ResetTask(ctx context.Context, objectiveID, taskID string) error {
	return s.withTask(ctx, objectiveID, taskID, func(t *quest.Task) error {
		t.ResetProgress()
		return nil
	})
}

// ReplaceTask completes taskID and activates nextID in its place.
func (s *QuestService) ReplaceTask(ctx context.Context, objectiveID, taskID, nextID string) error {
	return s.mutate(ctx, func() error {
		o, err := s.objective(objectiveID)
		if err != nil {
			return err
		}
		current, err := task(o, taskID)
		if err != nil {
			return err
		}
		next, err := task(o, nextID)
		if err != nil {
			return err
		}
		return current.CompleteAndReplace(next)
	})
}

func (s *QuestService) AddHint(ctx context.Context, objectiveID, hintID string) error {
	return s.withHint(ctx, objectiveID, hintID, (*quest.Hint).Add)
}

func (s *QuestService) RemoveHint(ctx context.Context, objectiveID, hintID string) error {
	return s.withHint(ctx, objectiveID, hintID, (*quest.Hint).Remove)
}

// Next cycles focus to the next incomplete active objective. Focus is not
// part of the save, so nothing is written.
func (s *QuestService) Next(ctx context.Context) (*quest.Objective, error) {
	if err := s.coord.WaitReady(ctx, s.readyTimeout); err != nil {
		return nil, err
	}
	return s.coord.SelectNext(), nil
}

func (s *QuestService) mutate(ctx context.Context, fn func() error) error {
	if err := s.coord.WaitReady(ctx, s.readyTimeout); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	return s.Save(ctx)
}

func (s *QuestService) withObjective(ctx context.Context, id string, fn func(*quest.Objective) error) error {
	return s.mutate(ctx, func() error {
		o, err := s.objective(id)
		if err != nil {
			return err
		}
		return fn(o)
	})
}

func (s *QuestService) withGroup(ctx context.Context, name string, fn func(*quest.Group) error) error {
	return s.mutate(ctx, func() error {
		g, ok := s.source.Group(name)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownGroup, name)
		}
		return fn(g)
	})
}

func (s *QuestService) withTask(ctx context.Context, objectiveID, taskID string, fn func(*quest.Task) error) error {
	return s.mutate(ctx, func() error {
		o, err := s.objective(objectiveID)
		if err != nil {
			return err
		}
		t, err := task(o, taskID)
		if err != nil {
			return err
		}
		return fn(t)
	})
}

func (s *QuestService) withHint(ctx context.Context, objectiveID, hintID string, fn func(*quest.Hint) error) error {
	return s.mutate(ctx, func() error {
		o, err := s.objective(objectiveID)
		if err != nil {
			return err
		}
		h, ok := o.Hint(hintID)
		if !ok {
			return fmt.Errorf("%w: %s/%s", ErrUnknownHint, objectiveID, hintID)
		}
		return fn(h)
	})
}

func (s *QuestService) objective(id string) (*quest.Objective, error) {
	if o, ok := s.coord.Objective(id); ok {
		return o, nil
	}
	if o, ok := s.source.Objective(id); ok {
		return o, nil
	}
	return nil, fmt.Errorf("%w: %s", quest.ErrUnknownObjective, id)
}

func task(o *quest.Objective, id string) (*quest.Task, error) {
	t, ok := o.Task(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownTask, o.ID(), id)
	}
	return t, nil
}

func (s *QuestService) record(recordType string) {
	if s.journal == nil {
		return
	}
	rec := &events.Record{Type: recordType, Metadata: map[string]any{"slot": s.slot}}
	if err := s.journal.Append(rec); err != nil {
		s.logger.Warn("failed to journal save", "type", recordType, "error", err)
	}
}
