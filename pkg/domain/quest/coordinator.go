package quest

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/timeout"
	"github.com/xeipuuv/gojsonschema"

	"github.com/felixgeelhaar/questlog/pkg/domain/events"
)

const subscriberName = "coordinator"

// Coordinator owns the registry of known objectives, the ordered list of
// active ones, and the focused objective.
//
// An objective is in the active list iff it is InProgress or Complete. The
// focused objective, when set, is an incomplete member of the active list
// unless every active objective is complete, in which case there is no focus.
type Coordinator struct {
	logger   *slog.Logger
	catalog  Catalog
	pinFocus bool

	registry []*Objective
	byID     map[string]*Objective
	active   []*Objective
	focused  *Objective

	// focusDropped is set when the focused objective left the active list
	// and the replacement has not been announced yet.
	focusDropped bool

	registrySubs map[*Objective]*events.Group
	activeSubs   map[*Objective]*events.Group

	ready     chan struct{}
	readyOnce sync.Once

	focusChanged       *events.Signal[*Objective]
	focusUpdated       *events.Signal[*Objective]
	activeListUpdated  *events.Signal[[]*Objective]
	objectiveStarted   *events.Signal[*Objective]
	objectiveEnded     *events.Signal[*Objective]
	objectiveCompleted *events.Signal[*Objective]
	activeTaskAdded    *events.Signal[*Task]
	activeTaskRemoved  *events.Signal[*Task]
	activeHintToggled  *events.Signal[*Hint]
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithLogger sets the logger for coordinator and objective diagnostics.
func WithLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCatalog sets the catalog used to resolve saved objectives on load.
func WithCatalog(catalog Catalog) CoordinatorOption {
	return func(c *Coordinator) { c.catalog = catalog }
}

// WithPinnedFocus keeps the focused objective at the front of the active list
// when re-sorting, so a focus picked with SelectNext survives priority changes.
func WithPinnedFocus(pin bool) CoordinatorOption {
	return func(c *Coordinator) { c.pinFocus = pin }
}

// NewCoordinator creates an empty coordinator that is not yet ready.
func NewCoordinator(opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		logger:             slog.Default(),
		byID:               make(map[string]*Objective),
		registrySubs:       make(map[*Objective]*events.Group),
		activeSubs:         make(map[*Objective]*events.Group),
		ready:              make(chan struct{}),
		focusChanged:       events.NewSignal[*Objective]("coordinator.focus_changed"),
		focusUpdated:       events.NewSignal[*Objective]("coordinator.focus_updated"),
		activeListUpdated:  events.NewSignal[[]*Objective]("coordinator.active_list_updated"),
		objectiveStarted:   events.NewSignal[*Objective]("coordinator.objective_started"),
		objectiveEnded:     events.NewSignal[*Objective]("coordinator.objective_ended"),
		objectiveCompleted: events.NewSignal[*Objective]("coordinator.objective_completed"),
		activeTaskAdded:    events.NewSignal[*Task]("coordinator.active_task_added"),
		activeTaskRemoved:  events.NewSignal[*Task]("coordinator.active_task_removed"),
		activeHintToggled:  events.NewSignal[*Hint]("coordinator.active_hint_toggled"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FocusChanged fires when the identity of the focused objective changes,
// including to or from none. The payload is the new focus, possibly nil.
func (c *Coordinator) FocusChanged() *events.Signal[*Objective] { return c.focusChanged }

// FocusUpdated fires when the focused objective stays the same but its tasks,
// hints, or completion changed.
func (c *Coordinator) FocusUpdated() *events.Signal[*Objective] { return c.focusUpdated }

// ActiveListUpdated fires with a copy of the active list after membership or
// order changed.
func (c *Coordinator) ActiveListUpdated() *events.Signal[[]*Objective] { return c.activeListUpdated }

func (c *Coordinator) ObjectiveStarted() *events.Signal[*Objective]   { return c.objectiveStarted }
func (c *Coordinator) ObjectiveEnded() *events.Signal[*Objective]     { return c.objectiveEnded }
func (c *Coordinator) ObjectiveCompleted() *events.Signal[*Objective] { return c.objectiveCompleted }
func (c *Coordinator) ActiveTaskAdded() *events.Signal[*Task]         { return c.activeTaskAdded }
func (c *Coordinator) ActiveTaskRemoved() *events.Signal[*Task]       { return c.activeTaskRemoved }
func (c *Coordinator) ActiveHintToggled() *events.Signal[*Hint]       { return c.activeHintToggled }

// Logger returns the coordinator's logger.
func (c *Coordinator) Logger() *slog.Logger { return c.logger }

// StartObjective starts o. Objectives the coordinator has never seen are
// always startable: they are reset, initialized and registered before the
// transition so that their subscriptions are live when activation fires.
func (c *Coordinator) StartObjective(o *Objective) error {
	if o == nil {
		return fmt.Errorf("start objective: %w", ErrNotRegistered)
	}

	known := c.IsRegistered(o)
	if known && !o.CanStart() {
		c.logger.Warn("can't start objective because it has already been started",
			CategoryObjectiveStart.Attr(), "objective", o.id, "state", string(o.State()))
		return &TransitionError{Kind: "objective", ID: o.id, From: string(o.State()), Event: eventStart}
	}
	if !known {
		if other, ok := c.byID[o.id]; ok && other != o {
			c.logger.Warn("can't start objective because another objective holds its id",
				CategoryObjectiveStart.Attr(), "objective", o.id)
			return fmt.Errorf("start objective %s: %w", o.id, ErrDuplicateObjective)
		}
		o.resetProgress()
		c.register(o)
	}

	o.RefreshActive()
	c.addActive(o)
	o.handleStarted()

	for _, t := range o.tasks {
		if t.initiallyActive && !t.IsActive() {
			_ = t.Add()
		}
	}

	c.logger.Info("objective started", CategoryObjectiveStart.Attr(), "objective", o.id)
	o.started.Emit(o)
	return nil
}

// EndObjective ends an active objective: Finished if it was Complete,
// Cancelled otherwise.
func (c *Coordinator) EndObjective(o *Objective) error {
	if err := c.requireActive(o, eventEnd, CategoryObjectiveEnd); err != nil {
		return err
	}

	c.dropActive(o)
	o.handleEnded()
	c.logger.Info("objective ended",
		CategoryObjectiveEnd.Attr(), "objective", o.id, "state", string(o.State()))
	return nil
}

// CompleteObjective completes an InProgress objective.
func (c *Coordinator) CompleteObjective(o *Objective) error {
	if err := c.requireRegistered(o, eventComplete, CategoryObjectiveComplete); err != nil {
		return err
	}
	if !o.CanComplete() {
		c.logger.Warn("can't complete objective because it isn't in progress",
			CategoryObjectiveComplete.Attr(), "objective", o.id, "state", string(o.State()))
		return &TransitionError{Kind: "objective", ID: o.id, From: string(o.State()), Event: eventComplete}
	}

	o.handleCompletion()
	c.logger.Info("objective completed", CategoryObjectiveComplete.Attr(), "objective", o.id)
	c.maintain(false)
	return nil
}

// CancelObjectiveCompletion reverts a Complete objective to InProgress.
func (c *Coordinator) CancelObjectiveCompletion(o *Objective) error {
	if err := c.requireRegistered(o, eventReopen, CategoryObjectiveCancel); err != nil {
		return err
	}
	if !o.CanCancelCompletion() {
		c.logger.Warn("can't cancel objective completion because it isn't complete",
			CategoryObjectiveCancel.Attr(), "objective", o.id, "state", string(o.State()))
		return &TransitionError{Kind: "objective", ID: o.id, From: string(o.State()), Event: eventReopen}
	}

	o.handleCompletionCancel()
	c.logger.Info("objective completion cancelled", CategoryObjectiveCancel.Attr(), "objective", o.id)
	c.maintain(false)
	return nil
}

// SelectNext moves focus to the next incomplete active objective after the
// current one, wrapping around. A valid focus is kept when there is no
// alternative.
func (c *Coordinator) SelectNext() *Objective {
	n := len(c.active)
	start := slices.Index(c.active, c.focused)
	for i := 1; i <= n; i++ {
		candidate := c.active[(start+i)%n]
		if !candidate.IsCompleted() {
			c.setFocus(candidate)
			return c.focused
		}
	}
	if c.focused != nil && c.focused.IsCompleted() {
		c.setFocus(nil)
	}
	return c.focused
}

// IsRegistered reports whether o is the objective the registry holds for its id.
func (c *Coordinator) IsRegistered(o *Objective) bool {
	return o != nil && c.byID[o.id] == o
}

// IsObjectiveActiveAndValid reports whether o is registered and active.
func (c *Coordinator) IsObjectiveActiveAndValid(o *Objective) bool {
	return c.IsRegistered(o) && o.IsActive()
}

// ActiveObjectives returns the active list in its current order.
func (c *Coordinator) ActiveObjectives() []*Objective { return slices.Clone(c.active) }

// Objectives returns every registered objective in registration order.
func (c *Coordinator) Objectives() []*Objective { return slices.Clone(c.registry) }

// Objective returns the registered objective with the given id.
func (c *Coordinator) Objective(id string) (*Objective, bool) {
	o, ok := c.byID[id]
	return o, ok
}

// FocusedObjective returns the focused objective, or nil.
func (c *Coordinator) FocusedObjective() *Objective { return c.focused }

// FocusedIndex returns the focused objective's position in the active list,
// or -1.
func (c *Coordinator) FocusedIndex() int {
	if c.focused == nil {
		return -1
	}
	return slices.Index(c.active, c.focused)
}

// Ready is closed once the initial load finished.
func (c *Coordinator) Ready() <-chan struct{} { return c.ready }

// MarkReady signals readiness. Calling it again is a no-op.
func (c *Coordinator) MarkReady() {
	c.readyOnce.Do(func() {
		close(c.ready)
		c.logger.Debug("coordinator ready", CategoryInitialization.Attr(),
			"registered", len(c.registry), "active", len(c.active))
	})
}

// IsReady reports whether MarkReady was called.
func (c *Coordinator) IsReady() bool {
	select {
	case <-c.ready:
		return true
	default:
		return false
	}
}

// WaitReady blocks until the coordinator is ready, ctx is done, or d elapses.
func (c *Coordinator) WaitReady(ctx context.Context, d time.Duration) error {
	if c.IsReady() {
		return nil
	}
	t := timeout.New[struct{}](timeout.Config{DefaultTimeout: d})
	_, err := t.Execute(ctx, d, func(ctx context.Context) (struct{}, error) {
		select {
		case <-c.ready:
			return struct{}{}, nil
		case <-ctx.Done():
			return struct{}{}, ctx.Err()
		}
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotReady, err)
	}
	return nil
}

// Shutdown releases every subscription and cleans up every registered
// objective. Objective states are left as they are.
func (c *Coordinator) Shutdown() {
	for _, o := range c.registry {
		c.releaseActive(o)
		c.registrySubs[o].Close()
		o.Cleanup()
		o.coordinator = nil
	}
	c.registry = nil
	c.byID = make(map[string]*Objective)
	c.registrySubs = make(map[*Objective]*events.Group)
	c.activeSubs = make(map[*Objective]*events.Group)
	c.active = nil
	c.focused = nil
	c.focusDropped = false
	c.logger.Debug("coordinator shut down", CategoryInitialization.Attr())
}

func (c *Coordinator) requireRegistered(o *Objective, event string, category LogCategory) error {
	if c.IsRegistered(o) {
		return nil
	}
	id := ""
	if o != nil {
		id = o.id
	}
	c.logger.Warn("can't "+event+" objective because it is not registered",
		category.Attr(), "objective", id)
	return fmt.Errorf("%s objective %s: %w", event, id, ErrNotRegistered)
}

func (c *Coordinator) requireActive(o *Objective, event string, category LogCategory) error {
	if err := c.requireRegistered(o, event, category); err != nil {
		return err
	}
	if o.IsActive() {
		return nil
	}
	c.logger.Warn("can't "+event+" objective because it is not active",
		category.Attr(), "objective", o.id, "state", string(o.State()))
	return &TransitionError{Kind: "objective", ID: o.id, From: string(o.State()), Event: event}
}

func (c *Coordinator) register(o *Objective) {
	o.coordinator = c
	c.registry = append(c.registry, o)
	c.byID[o.id] = o
	o.Initialize()

	subs := &events.Group{}
	subs.Add(
		o.activationToggled.Subscribe(subscriberName, c.onActivationToggled),
		o.started.Subscribe(subscriberName, c.objectiveStarted.Emit),
		o.completed.Subscribe(subscriberName, c.objectiveCompleted.Emit),
	)
	c.registrySubs[o] = subs
	c.logger.Debug("objective registered", CategoryInitialization.Attr(), "objective", o.id)
}

func (c *Coordinator) onActivationToggled(o *Objective) {
	if o.IsActive() {
		c.addActive(o)
		c.maintain(true)
		return
	}
	c.dropActive(o)
	c.objectiveEnded.Emit(o)
	c.maintain(true)
}

// addActive appends o to the active list and subscribes to its changes. It
// does not re-sort.
func (c *Coordinator) addActive(o *Objective) {
	if slices.Contains(c.active, o) {
		return
	}
	c.active = append(c.active, o)

	subs := &events.Group{}
	subs.Add(
		o.completionUpdated.Subscribe(subscriberName, c.onActiveCompletion),
		o.taskAdded.Subscribe(subscriberName, func(t *Task) {
			c.activeTaskAdded.Emit(t)
			c.touchFocus(o)
		}),
		o.taskRemoved.Subscribe(subscriberName, func(t *Task) {
			c.activeTaskRemoved.Emit(t)
			c.touchFocus(o)
		}),
		o.hintUpdated.Subscribe(subscriberName, func(h *Hint) {
			c.activeHintToggled.Emit(h)
			c.touchFocus(o)
		}),
	)
	c.activeSubs[o] = subs
}

// dropActive removes o from the active list without touching its state.
func (c *Coordinator) dropActive(o *Objective) {
	i := slices.Index(c.active, o)
	if i < 0 {
		return
	}
	c.active = slices.Delete(c.active, i, i+1)
	c.releaseActive(o)
	if c.focused == o {
		c.focused = nil
		c.focusDropped = true
	}
}

func (c *Coordinator) releaseActive(o *Objective) {
	if subs, ok := c.activeSubs[o]; ok {
		subs.Close()
		delete(c.activeSubs, o)
	}
}

func (c *Coordinator) onActiveCompletion(o *Objective) {
	wasFocused := c.focused == o
	c.maintain(false)
	if wasFocused && c.focused == o {
		c.focusUpdated.Emit(o)
	}
}

func (c *Coordinator) touchFocus(o *Objective) {
	if c.focused == o {
		c.focusUpdated.Emit(o)
	}
}

// maintain re-sorts the active list and re-selects focus.
func (c *Coordinator) maintain(listChanged bool) {
	if c.sortActive() {
		listChanged = true
	}
	if listChanged {
		c.activeListUpdated.Emit(c.ActiveObjectives())
	}
	c.selectBest()
}

func (c *Coordinator) sortActive() bool {
	before := slices.Clone(c.active)
	slices.SortStableFunc(c.active, c.compare)
	return !slices.Equal(before, c.active)
}

func (c *Coordinator) compare(a, b *Objective) int {
	if c.pinFocus && c.focused != nil && a != b {
		switch c.focused {
		case a:
			return -1
		case b:
			return 1
		}
	}
	if a.IsCompleted() != b.IsCompleted() {
		if a.IsCompleted() {
			return 1
		}
		return -1
	}
	return cmp.Compare(b.priority, a.priority)
}

// selectBest focuses the first incomplete objective of the sorted active list.
func (c *Coordinator) selectBest() {
	var best *Objective
	for _, o := range c.active {
		if !o.IsCompleted() {
			best = o
			break
		}
	}
	c.setFocus(best)
}

func (c *Coordinator) setFocus(o *Objective) {
	dropped := c.focusDropped
	c.focusDropped = false
	if o == c.focused && !dropped {
		return
	}
	c.focused = o
	c.logger.Debug("focus changed", CategoryFocus.Attr(), "objective", objectiveID(o))
	c.focusChanged.Emit(o)
}

func objectiveID(o *Objective) string {
	if o == nil {
		return ""
	}
	return o.id
}

const saveSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["objectives"],
  "properties": {
    "objectives": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "data"],
        "properties": {
          "id": { "type": "string", "minLength": 1 },
          "data": {
            "type": "object",
            "required": ["state", "tasks", "hints"],
            "properties": {
              "state": { "enum": ["not_started", "in_progress", "complete", "finished", "cancelled"] },
              "tasks": { "type": "array", "items": { "enum": ["not_started", "in_progress", "completed"] } },
              "hints": { "type": "array", "items": { "type": "boolean" } }
            }
          }
        }
      }
    }
  }
}`

var saveSchemaLoader = gojsonschema.NewStringLoader(saveSchemaJSON)

type coordinatorSaveData struct {
	Objectives []savedObjective `json:"objectives"`
}

type savedObjective struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// Serialize returns every registered objective's saved form, in registration
// order.
func (c *Coordinator) Serialize() ([]byte, error) {
	save := coordinatorSaveData{Objectives: make([]savedObjective, 0, len(c.registry))}
	for _, o := range c.registry {
		data, err := o.Serialize()
		if err != nil {
			return nil, fmt.Errorf("serialize objective %s: %w", o.id, err)
		}
		save.Objectives = append(save.Objectives, savedObjective{ID: o.id, Data: data})
	}
	return json.Marshal(save)
}

// Deserialize replaces the coordinator's contents with a blob written by
// Serialize. Every objective is resolved through the catalog and validated
// before anything is applied; on error the coordinator is unchanged. On
// success each restored objective is initialized, the active list and focus
// are rebuilt, and the coordinator is marked ready.
func (c *Coordinator) Deserialize(data []byte) error {
	result, err := gojsonschema.Validate(saveSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSaveShape, err)
	}
	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}
		return fmt.Errorf("%w: %s", ErrSaveShape, strings.Join(issues, "; "))
	}

	var save coordinatorSaveData
	if err := json.Unmarshal(data, &save); err != nil {
		return fmt.Errorf("%w: %v", ErrSaveShape, err)
	}
	if c.catalog == nil {
		return ErrNoCatalog
	}

	objectives := make([]*Objective, 0, len(save.Objectives))
	applies := make([]func(), 0, len(save.Objectives))
	seen := make(map[string]bool, len(save.Objectives))
	for _, entry := range save.Objectives {
		if seen[entry.ID] {
			return fmt.Errorf("%w: objective %s saved twice", ErrSaveShape, entry.ID)
		}
		seen[entry.ID] = true

		o, ok := c.catalog.Objective(entry.ID)
		if !ok || o == nil {
			return fmt.Errorf("load objective %s: %w", entry.ID, ErrUnknownObjective)
		}
		apply, err := o.prepareRestore(entry.Data)
		if err != nil {
			return err
		}
		objectives = append(objectives, o)
		applies = append(applies, apply)
	}

	c.clear()
	for i, o := range objectives {
		applies[i]()
		c.register(o)
		if o.IsActive() {
			c.addActive(o)
		}
	}
	c.maintain(true)

	c.logger.Info("coordinator loaded", CategoryInitialization.Attr(),
		"registered", len(c.registry), "active", len(c.active), "focus", objectiveID(c.focused))
	c.MarkReady()
	return nil
}

// clear unregisters and resets every objective ahead of a load.
func (c *Coordinator) clear() {
	hadFocus := c.focused != nil
	for _, o := range c.registry {
		c.releaseActive(o)
		c.registrySubs[o].Close()
		o.Cleanup()
		o.reset()
		o.coordinator = nil
	}
	c.registry = nil
	c.byID = make(map[string]*Objective)
	c.registrySubs = make(map[*Objective]*events.Group)
	c.activeSubs = make(map[*Objective]*events.Group)
	c.active = nil
	c.focused = nil
	c.focusDropped = hadFocus
}
