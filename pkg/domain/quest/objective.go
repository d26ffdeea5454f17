package quest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/felixgeelhaar/questlog/pkg/domain/events"
)

// Objective owns an ordered set of tasks and hints and derives its completion
// from them.
//
// Objectives are driven through a Coordinator. Initialize wires the
// objective to its children and must be paired with Cleanup; the coordinator
// does both for every objective it registers.
type Objective struct {
	id       string
	priority int
	sm       *stateMachine

	tasks       []*Task
	hints       []*Hint
	activeTasks []*Task
	activeHints []*Hint

	coordinator *Coordinator
	children    events.Group
	initialized bool

	activationToggled *events.Signal[*Objective]
	completionUpdated *events.Signal[*Objective]
	hintUpdated       *events.Signal[*Hint]
	taskAdded         *events.Signal[*Task]
	taskRemoved       *events.Signal[*Task]
	started           *events.Signal[*Objective]
	completed         *events.Signal[*Objective]
}

// ObjectiveOption configures an Objective.
type ObjectiveOption func(*Objective)

// WithPriority sets the objective's focus priority. Higher wins.
func WithPriority(priority int) ObjectiveOption {
	return func(o *Objective) { o.priority = priority }
}

// WithTasks appends tasks in order.
func WithTasks(tasks ...*Task) ObjectiveOption {
	return func(o *Objective) {
		for _, t := range tasks {
			o.AddTask(t)
		}
	}
}

// WithHints appends hints in order.
func WithHints(hints ...*Hint) ObjectiveOption {
	return func(o *Objective) {
		for _, h := range hints {
			o.AddHint(h)
		}
	}
}

// NewObjective creates a NotStarted objective.
func NewObjective(id string, opts ...ObjectiveOption) *Objective {
	o := &Objective{
		id:                id,
		sm:                mustObjectiveMachine(id, ObjectiveNotStarted),
		activationToggled: events.NewSignal[*Objective]("objective.activation_toggled"),
		completionUpdated: events.NewSignal[*Objective]("objective.completion_updated"),
		hintUpdated:       events.NewSignal[*Hint]("objective.hint_updated"),
		taskAdded:         events.NewSignal[*Task]("objective.task_added"),
		taskRemoved:       events.NewSignal[*Task]("objective.task_removed"),
		started:           events.NewSignal[*Objective]("objective.started"),
		completed:         events.NewSignal[*Objective]("objective.completed"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Objective) ID() string { return o.id }
func (o *Objective) Priority() int { return o.priority }

// SetPriority changes the focus priority. The coordinator picks it up on the
// next re-sort.
func (o *Objective) SetPriority(priority int) {
	o.priority = priority
}

// State returns the current lifecycle state.
func (o *Objective) State() ObjectiveState {
	return ObjectiveState(o.sm.Current())
}

func (o *Objective) CanStart() bool            { return o.State() == ObjectiveNotStarted }
func (o *Objective) CanComplete() bool         { return o.State() == ObjectiveInProgress }
func (o *Objective) CanCancelCompletion() bool { return o.State() == ObjectiveComplete }
func (o *Objective) IsActive() bool            { return o.State().IsActive() }
func (o *Objective) IsCompleted() bool         { return o.State().IsCompleted() }

// Tasks returns the objective's tasks in design order.
func (o *Objective) Tasks() []*Task { return slices.Clone(o.tasks) }

// Hints returns the objective's hints in design order.
func (o *Objective) Hints() []*Hint { return slices.Clone(o.hints) }

// ActiveTasks returns the tasks currently InProgress or Completed, in the
// order they became active.
func (o *Objective) ActiveTasks() []*Task { return slices.Clone(o.activeTasks) }

// ActiveHints returns the currently active hints, in the order they became
// active.
func (o *Objective) ActiveHints() []*Hint { return slices.Clone(o.activeHints) }

// Task looks up a task by id.
func (o *Objective) Task(id string) (*Task, bool) {
	for _, t := range o.tasks {
		if t.id == id {
			return t, true
		}
	}
	return nil, false
}

// Hint looks up a hint by id.
func (o *Objective) Hint(id string) (*Hint, bool) {
	for _, h := range o.hints {
		if h.id == id {
			return h, true
		}
	}
	return nil, false
}

// AddTask appends a task at design time. Call before Initialize.
func (o *Objective) AddTask(t *Task) {
	t.parent = o
	o.tasks = append(o.tasks, t)
}

// AddHint appends a hint at design time. Call before Initialize.
func (o *Objective) AddHint(h *Hint) {
	h.parent = o
	o.hints = append(o.hints, h)
}

// ActivationToggled fires when the objective starts or ends.
func (o *Objective) ActivationToggled() *events.Signal[*Objective] { return o.activationToggled }

// CompletionUpdated fires when completion or completion progress may have
// changed.
func (o *Objective) CompletionUpdated() *events.Signal[*Objective] { return o.completionUpdated }

// HintUpdated fires when one of the objective's hints toggles.
func (o *Objective) HintUpdated() *events.Signal[*Hint] { return o.hintUpdated }

// TaskAdded fires when a task joins the active tasks.
func (o *Objective) TaskAdded() *events.Signal[*Task] { return o.taskAdded }

// TaskRemoved fires when a task leaves the active tasks.
func (o *Objective) TaskRemoved() *events.Signal[*Task] { return o.taskRemoved }

// Started fires once a start request has fully applied, after initially
// active tasks were added.
func (o *Objective) Started() *events.Signal[*Objective] { return o.started }

// Completed fires when the objective enters the Complete state.
func (o *Objective) Completed() *events.Signal[*Objective] { return o.completed }

// Start starts the objective through its coordinator, or through Default()
// if it was never registered.
func (o *Objective) Start() error { return o.tracker().StartObjective(o) }

// End ends the objective through its coordinator.
func (o *Objective) End() error { return o.tracker().EndObjective(o) }

// Complete completes the objective through its coordinator.
func (o *Objective) Complete() error { return o.tracker().CompleteObjective(o) }

// CancelCompletion reverts a Complete objective to InProgress through its
// coordinator.
func (o *Objective) CancelCompletion() error { return o.tracker().CancelObjectiveCompletion(o) }

func (o *Objective) tracker() *Coordinator {
	if o.coordinator != nil {
		return o.coordinator
	}
	return Default()
}

// Initialize subscribes the objective to its children and rebuilds the active
// subsets. Calling it again releases the previous subscriptions first.
func (o *Objective) Initialize() {
	if o.initialized {
		o.logger().Warn("objective initialized twice, releasing previous subscriptions",
			CategoryInitialization.Attr(), "objective", o.id)
		o.children.Close()
	}

	owner := "objective " + o.id
	for _, h := range o.hints {
		h.parent = o
		o.children.Add(h.activationToggled.Subscribe(owner, o.handleHintActivation))
	}
	for _, t := range o.tasks {
		t.parent = o
		o.children.Add(
			t.activeToggled.Subscribe(owner, o.handleTaskActivation),
			t.completionToggled.Subscribe(owner, o.handleTaskCompletion),
		)
	}
	o.initialized = true

	o.logger().Debug("objective initialized",
		CategoryInitialization.Attr(), "objective", o.id, "state", string(o.State()))
	o.RefreshActive()
}

// Cleanup releases every subscription made by Initialize and clears the
// active subsets.
func (o *Objective) Cleanup() {
	o.activeTasks = nil
	o.activeHints = nil
	o.children.Close()
	o.initialized = false
	o.logger().Debug("objective cleaned up", CategoryInitialization.Attr(), "objective", o.id)
}

// RefreshActive rebuilds the active subsets from the children's states.
func (o *Objective) RefreshActive() {
	o.activeHints = o.activeHints[:0]
	for _, h := range o.hints {
		if h.IsActive() {
			o.activeHints = append(o.activeHints, h)
		}
	}

	o.activeTasks = o.activeTasks[:0]
	for _, t := range o.tasks {
		if t.IsActive() {
			o.activeTasks = append(o.activeTasks, t)
		}
	}
}

// CheckCompletion reports whether the active tasks satisfy the objective:
// either every task is active and completed, or a completed active task
// completes its parent. An objective with no tasks is trivially satisfied.
func (o *Objective) CheckCompletion() bool {
	remaining := len(o.tasks)
	for _, t := range o.activeTasks {
		if !t.IsCompleted() {
			continue
		}
		remaining--
		if t.completesParent {
			return true
		}
	}
	return remaining == 0
}

// resetProgress returns the objective and its children to NotStarted and
// inactive without touching the task and hint lists. Only the coordinator
// calls it, while the objective is outside the active list.
func (o *Objective) resetProgress() {
	o.sm = mustObjectiveMachine(o.id, ObjectiveNotStarted)
	for _, t := range o.tasks {
		t.ResetProgress()
	}
	for _, h := range o.hints {
		h.SetActive(false)
	}
}

// reset clears the active subsets and resets progress.
func (o *Objective) reset() {
	o.activeTasks = nil
	o.activeHints = nil
	o.resetProgress()
}

// FullReset releases child subscriptions, drops every task and hint, and
// resets the state. A registered objective refuses.
func (o *Objective) FullReset() error {
	if err := o.rejectRegistered("reset"); err != nil {
		return err
	}
	o.Cleanup()
	for _, t := range o.tasks {
		t.parent = nil
	}
	for _, h := range o.hints {
		h.parent = nil
	}
	o.tasks = nil
	o.hints = nil
	o.resetProgress()
	return nil
}

// rejectRegistered guards operations that rewrite state behind the
// coordinator's back.
func (o *Objective) rejectRegistered(event string) error {
	if o.coordinator == nil {
		return nil
	}
	o.logger().Warn("can't "+event+" objective because a coordinator tracks it",
		CategoryInitialization.Attr(), "objective", o.id, "state", string(o.State()))
	return &TransitionError{Kind: "objective", ID: o.id, From: string(o.State()), Event: event}
}

func (o *Objective) handleStarted() {
	o.transition(eventStart)
	o.activationToggled.Emit(o)
}

func (o *Objective) handleEnded() {
	o.transition(eventEnd)
	o.activationToggled.Emit(o)
}

func (o *Objective) handleCompletion() {
	o.transition(eventComplete)
	o.completionUpdated.Emit(o)
	o.completed.Emit(o)
}

func (o *Objective) handleCompletionCancel() {
	o.transition(eventReopen)
	o.completionUpdated.Emit(o)
}

// transition is only called once the caller has checked the precondition, so
// a failure here means the coordinator and the machine disagree.
func (o *Objective) transition(event string) {
	if err := o.sm.Transition(event); err != nil {
		o.logger().Error("objective state machine rejected a validated transition",
			"objective", o.id, "event", event, "error", err)
	}
}

func (o *Objective) handleTaskActivation(t *Task) {
	if t.IsActive() {
		if !slices.Contains(o.activeTasks, t) {
			o.activeTasks = append(o.activeTasks, t)
			o.taskAdded.Emit(t)
		}
		return
	}
	if i := slices.Index(o.activeTasks, t); i >= 0 {
		o.activeTasks = slices.Delete(o.activeTasks, i, i+1)
		o.taskRemoved.Emit(t)
	}
}

func (o *Objective) handleTaskCompletion(t *Task) {
	if !o.IsActive() {
		return
	}

	if o.IsCompleted() {
		if !o.CheckCompletion() {
			o.logger().Info("objective no longer complete after task regression",
				CategoryObjectiveComplete.Attr(), "objective", o.id, "task", t.id)
			o.transition(eventReopen)
		}
	} else if o.CanComplete() && t.IsCompleted() && (t.completesParent || o.CheckCompletion()) {
		if o.coordinator != nil {
			_ = o.coordinator.CompleteObjective(o)
		} else {
			o.handleCompletion()
		}
	}

	o.completionUpdated.Emit(o)
}

func (o *Objective) handleHintActivation(h *Hint) {
	if h.IsActive() {
		if !slices.Contains(o.activeHints, h) {
			o.activeHints = append(o.activeHints, h)
		}
	} else if i := slices.Index(o.activeHints, h); i >= 0 {
		o.activeHints = slices.Delete(o.activeHints, i, i+1)
	}
	o.hintUpdated.Emit(h)
}

// objectiveSaveData is the saved form of an objective. Task and hint entries
// are positional.
type objectiveSaveData struct {
	State ObjectiveState    `json:"state"`
	Tasks []json.RawMessage `json:"tasks"`
	Hints []json.RawMessage `json:"hints"`
}

// Serialize returns the objective's saved form, including its children.
func (o *Objective) Serialize() ([]byte, error) {
	save := objectiveSaveData{
		State: o.State(),
		Tasks: make([]json.RawMessage, 0, len(o.tasks)),
		Hints: make([]json.RawMessage, 0, len(o.hints)),
	}
	for _, t := range o.tasks {
		data, err := t.Serialize()
		if err != nil {
			return nil, err
		}
		save.Tasks = append(save.Tasks, data)
	}
	for _, h := range o.hints {
		data, err := h.Serialize()
		if err != nil {
			return nil, err
		}
		save.Hints = append(save.Hints, data)
	}
	return json.Marshal(save)
}

// Deserialize restores data saved by Serialize. Nothing is applied unless the
// whole blob matches the objective's shape. Registered objectives are
// restored through Coordinator.Deserialize instead.
func (o *Objective) Deserialize(data []byte) error {
	if err := o.rejectRegistered("restore"); err != nil {
		return err
	}
	apply, err := o.prepareRestore(data)
	if err != nil {
		return err
	}
	apply()
	return nil
}

func (o *Objective) prepareRestore(data []byte) (func(), error) {
	var save objectiveSaveData
	if err := json.Unmarshal(data, &save); err != nil {
		return nil, fmt.Errorf("objective %s: %w: %v", o.id, ErrSaveShape, err)
	}
	if len(save.Tasks) != len(o.tasks) {
		return nil, &ShapeError{ID: o.id, Field: "task", Expected: len(o.tasks), Got: len(save.Tasks)}
	}
	if len(save.Hints) != len(o.hints) {
		return nil, &ShapeError{ID: o.id, Field: "hint", Expected: len(o.hints), Got: len(save.Hints)}
	}

	sm, err := newObjectiveMachine(o.id, save.State)
	if err != nil {
		return nil, fmt.Errorf("objective %s: %w", o.id, err)
	}

	applies := make([]func(), 0, len(o.tasks)+len(o.hints))
	for i, t := range o.tasks {
		apply, err := t.prepareRestore(save.Tasks[i])
		if err != nil {
			return nil, fmt.Errorf("objective %s: %w", o.id, err)
		}
		applies = append(applies, apply)
	}
	for i, h := range o.hints {
		apply, err := h.prepareRestore(save.Hints[i])
		if err != nil {
			return nil, fmt.Errorf("objective %s: %w", o.id, err)
		}
		applies = append(applies, apply)
	}

	return func() {
		o.sm = sm
		for _, apply := range applies {
			apply()
		}
		if o.initialized {
			o.RefreshActive()
		}
		o.completionUpdated.Emit(o)
	}, nil
}

func (o *Objective) String() string {
	return fmt.Sprintf("%s %s", o.id, o.State())
}

func (o *Objective) isActiveAndValid() bool {
	if o == nil || o.coordinator == nil {
		return false
	}
	return o.coordinator.IsObjectiveActiveAndValid(o)
}

func (o *Objective) logger() *slog.Logger {
	if o == nil || o.coordinator == nil {
		return slog.Default()
	}
	return o.coordinator.logger
}
