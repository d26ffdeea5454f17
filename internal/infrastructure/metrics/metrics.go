// Package metrics counts coordinator activity with Prometheus collectors.
package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/felixgeelhaar/questlog/pkg/domain/events"
	"github.com/felixgeelhaar/questlog/pkg/domain/quest"
)

// Observer records coordinator signals. A nil Observer is a no-op.
type Observer struct {
	registry    *prometheus.Registry
	transitions *prometheus.CounterVec
	tasks       *prometheus.CounterVec
	hints       *prometheus.CounterVec
	focus       prometheus.Counter
	active      prometheus.Gauge
	subs        events.Group
}

// NewObserver registers the questlog collectors on registry. A nil registry
// returns a nil Observer.
func NewObserver(registry *prometheus.Registry) *Observer {
	if registry == nil {
		return nil
	}

	o := &Observer{
		registry: registry,
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "questlog_objective_transitions_total",
				Help: "Total number of objective lifecycle transitions by kind",
			},
			[]string{"transition"},
		),
		tasks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "questlog_active_task_changes_total",
				Help: "Total number of tasks added to or removed from active objectives",
			},
			[]string{"change"},
		),
		hints: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "questlog_hint_toggles_total",
				Help: "Total number of hint activations and deactivations on active objectives",
			},
			[]string{"active"},
		),
		focus: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "questlog_focus_changes_total",
			Help: "Total number of focus changes",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "questlog_active_objectives",
			Help: "Number of objectives on the active list",
		}),
	}

	registry.MustRegister(o.transitions, o.tasks, o.hints, o.focus, o.active)
	return o
}

// Attach subscribes to c.
func (o *Observer) Attach(c *quest.Coordinator) {
	if o == nil {
		return
	}
	o.active.Set(float64(len(c.ActiveObjectives())))
	o.subs.Add(
		c.ObjectiveStarted().Subscribe("metrics", func(*quest.Objective) { o.IncrementTransition("started") }),
		c.ObjectiveEnded().Subscribe("metrics", func(*quest.Objective) { o.IncrementTransition("ended") }),
		c.ObjectiveCompleted().Subscribe("metrics", func(*quest.Objective) { o.IncrementTransition("completed") }),
		c.FocusChanged().Subscribe("metrics", func(*quest.Objective) { o.focus.Inc() }),
		c.ActiveListUpdated().Subscribe("metrics", func(list []*quest.Objective) { o.active.Set(float64(len(list))) }),
		c.ActiveTaskAdded().Subscribe("metrics", func(*quest.Task) { o.tasks.WithLabelValues("added").Inc() }),
		c.ActiveTaskRemoved().Subscribe("metrics", func(*quest.Task) { o.tasks.WithLabelValues("removed").Inc() }),
		c.ActiveHintToggled().Subscribe("metrics", func(h *quest.Hint) {
			o.hints.WithLabelValues(fmt.Sprint(h.IsActive())).Inc()
		}),
	)
}

// Close detaches from every coordinator.
func (o *Observer) Close() {
	if o != nil {
		o.subs.Close()
	}
}

func (o *Observer) IncrementTransition(transition string) {
	if o != nil && o.transitions != nil {
		o.transitions.WithLabelValues(transition).Inc()
	}
}

// WriteText writes every gathered sample as one "name{labels} value" line,
// sorted by name.
func (o *Observer) WriteText(w io.Writer) error {
	if o == nil {
		return nil
	}
	families, err := o.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			lines = append(lines, fmt.Sprintf("%s%s %g", mf.GetName(), labels(m), value(mf.GetType(), m)))
		}
	}
	sort.Strings(lines)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func labels(m *dto.Metric) string {
	pairs := m.GetLabel()
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, fmt.Sprintf("%s=%q", p.GetName(), p.GetValue()))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func value(t dto.MetricType, m *dto.Metric) float64 {
	switch t {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	default:
		return m.GetUntyped().GetValue()
	}
}
