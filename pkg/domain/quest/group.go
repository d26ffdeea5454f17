package quest

import "errors"

// Group is a named set of objectives that are started or ended together.
type Group struct {
	name       string
	objectives []*Objective
}

// NewGroup creates a group over objectives, in order.
func NewGroup(name string, objectives ...*Objective) *Group {
	return &Group{name: name, objectives: objectives}
}

func (g *Group) Name() string { return g.name }

// Objectives returns the group's members.
func (g *Group) Objectives() []*Objective {
	out := make([]*Objective, len(g.objectives))
	copy(out, g.objectives)
	return out
}

// Start starts every member through c. Members that can't start are skipped
// and their errors joined.
func (g *Group) Start(c *Coordinator) error {
	var errs []error
	for _, o := range g.objectives {
		if err := c.StartObjective(o); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// End ends every active member through c.
func (g *Group) End(c *Coordinator) error {
	var errs []error
	for _, o := range g.objectives {
		if err := c.EndObjective(o); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
