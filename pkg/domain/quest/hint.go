package quest

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/questlog/pkg/domain/events"
)

// Hint is optional advice attached to an objective. It is either active or
// inactive and has no notion of completion.
type Hint struct {
	id       string
	priority int
	active   bool
	content  HintContent
	parent   *Objective

	activationToggled *events.Signal[*Hint]
}

// HintOption configures a Hint.
type HintOption func(*Hint)

// WithHintPriority sets the display priority of the hint.
func WithHintPriority(priority int) HintOption {
	return func(h *Hint) { h.priority = priority }
}

// WithContent sets how the hint resolves its display text.
func WithContent(content HintContent) HintOption {
	return func(h *Hint) { h.content = content }
}

// NewHint creates an inactive hint.
func NewHint(id string, opts ...HintOption) *Hint {
	h := &Hint{
		id:                id,
		activationToggled: events.NewSignal[*Hint]("hint.activation_toggled"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hint) ID() string { return h.id }
func (h *Hint) Priority() int { return h.priority }
func (h *Hint) IsActive() bool { return h.active }
func (h *Hint) ParentObjective() *Objective { return h.parent }

// Name returns the resolved display name, falling back to the id.
func (h *Hint) Name() string {
	if h.content == nil {
		return h.id
	}
	if name := h.content.Name(); name != "" {
		return name
	}
	return h.id
}

// Description returns the resolved description.
func (h *Hint) Description() string {
	if h.content == nil {
		return ""
	}
	return h.content.Description()
}

// ActivationToggled fires whenever the active flag changes.
func (h *Hint) ActivationToggled() *events.Signal[*Hint] {
	return h.activationToggled
}

// SetActive changes the active flag. Setting the current value is a no-op and
// fires nothing.
func (h *Hint) SetActive(active bool) {
	if h.active == active {
		return
	}
	h.active = active
	h.activationToggled.Emit(h)
}

// Add activates the hint.
func (h *Hint) Add() error {
	if err := h.requireActiveParent("add"); err != nil {
		return err
	}
	h.logger().Info("hint added", h.attrs()...)
	h.SetActive(true)
	return nil
}

// Remove deactivates the hint.
func (h *Hint) Remove() error {
	if err := h.requireActiveParent("remove"); err != nil {
		return err
	}
	h.logger().Info("hint removed", h.attrs()...)
	h.SetActive(false)
	return nil
}

// FullReset deactivates the hint through Remove.
func (h *Hint) FullReset() error {
	return h.Remove()
}

// Serialize returns the hint's saved form.
func (h *Hint) Serialize() ([]byte, error) {
	return json.Marshal(h.active)
}

// Deserialize restores a flag saved by Serialize. No events fire.
func (h *Hint) Deserialize(data []byte) error {
	apply, err := h.prepareRestore(data)
	if err != nil {
		return err
	}
	apply()
	return nil
}

func (h *Hint) prepareRestore(data []byte) (func(), error) {
	var active bool
	if err := json.Unmarshal(data, &active); err != nil {
		return nil, fmt.Errorf("hint %s: %w", h.id, err)
	}
	return func() { h.active = active }, nil
}

func (h *Hint) String() string {
	return fmt.Sprintf("%s active=%t", h.id, h.active)
}

func (h *Hint) requireActiveParent(action string) error {
	if h.parent.isActiveAndValid() {
		return nil
	}
	h.logger().Warn("can't "+action+" hint because parent objective is not active and valid", h.attrs()...)
	return fmt.Errorf("%s hint %s: %w", action, h.id, ErrParentInactive)
}

func (h *Hint) logger() *slog.Logger {
	return h.parent.logger()
}

func (h *Hint) attrs() []any {
	out := []any{CategoryHint.Attr(), "hint", h.id, "active", h.active}
	if h.parent != nil {
		out = append(out, "objective", h.parent.id)
	}
	return out
}
