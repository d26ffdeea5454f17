// Package catalog loads design-time objective definitions from YAML and builds
// the objective instances a coordinator resolves saves against.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/questlog/pkg/domain/quest"
)

var (
	// ErrEmptyID indicates a definition without an id.
	ErrEmptyID = errors.New("definition id cannot be empty")

	// ErrDuplicateID indicates two definitions of the same kind share an id.
	ErrDuplicateID = errors.New("duplicate definition id")

	// ErrUnknownReference indicates a group naming an objective that is not defined.
	ErrUnknownReference = errors.New("unknown objective reference")
)

// Definition is the root of a catalog file.
type Definition struct {
	Objectives []ObjectiveDef `yaml:"objectives"`
	Groups     []GroupDef     `yaml:"groups,omitempty"`
}

// ObjectiveDef describes one objective.
type ObjectiveDef struct {
	ID       string    `yaml:"id"`
	Title    string    `yaml:"title,omitempty"`
	TitleKey string    `yaml:"title_key,omitempty"`
	Priority int       `yaml:"priority"`
	Tasks    []TaskDef `yaml:"tasks,omitempty"`
	Hints    []HintDef `yaml:"hints,omitempty"`
}

// TaskDef describes one task of an objective.
type TaskDef struct {
	ID              string `yaml:"id"`
	Priority        int    `yaml:"priority,omitempty"`
	CompletesParent bool   `yaml:"completes_parent,omitempty"`
	InitiallyActive bool   `yaml:"initially_active,omitempty"`
}

// HintDef describes one hint of an objective. Literal text wins over message
// keys when both are set.
type HintDef struct {
	ID             string `yaml:"id"`
	Priority       int    `yaml:"priority,omitempty"`
	Title          string `yaml:"title,omitempty"`
	Description    string `yaml:"description,omitempty"`
	NameKey        string `yaml:"name_key,omitempty"`
	DescriptionKey string `yaml:"description_key,omitempty"`
}

// GroupDef names objectives that start and end together.
type GroupDef struct {
	Name       string   `yaml:"name"`
	Objectives []string `yaml:"objectives"`
}

// Parse decodes and validates a catalog file.
func Parse(data []byte) (*Definition, error) {
	var d Definition
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal catalog: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Marshal encodes the definition as YAML.
func (d *Definition) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal catalog: %w", err)
	}
	return data, nil
}

// Validate checks ids are present and unique: objective ids across the
// catalog, task and hint ids within their objective.
func (d *Definition) Validate() error {
	objectives := make(map[string]bool, len(d.Objectives))
	for _, o := range d.Objectives {
		id := strings.TrimSpace(o.ID)
		if id == "" {
			return fmt.Errorf("objective: %w", ErrEmptyID)
		}
		if objectives[id] {
			return fmt.Errorf("objective %s: %w", id, ErrDuplicateID)
		}
		objectives[id] = true

		tasks := make(map[string]bool, len(o.Tasks))
		for _, t := range o.Tasks {
			if strings.TrimSpace(t.ID) == "" {
				return fmt.Errorf("objective %s task: %w", id, ErrEmptyID)
			}
			if tasks[t.ID] {
				return fmt.Errorf("objective %s task %s: %w", id, t.ID, ErrDuplicateID)
			}
			tasks[t.ID] = true
		}

		hints := make(map[string]bool, len(o.Hints))
		for _, h := range o.Hints {
			if strings.TrimSpace(h.ID) == "" {
				return fmt.Errorf("objective %s hint: %w", id, ErrEmptyID)
			}
			if hints[h.ID] {
				return fmt.Errorf("objective %s hint %s: %w", id, h.ID, ErrDuplicateID)
			}
			hints[h.ID] = true
		}
	}

	groups := make(map[string]bool, len(d.Groups))
	for _, g := range d.Groups {
		if strings.TrimSpace(g.Name) == "" {
			return fmt.Errorf("group: %w", ErrEmptyID)
		}
		if groups[g.Name] {
			return fmt.Errorf("group %s: %w", g.Name, ErrDuplicateID)
		}
		groups[g.Name] = true
		for _, ref := range g.Objectives {
			if !objectives[ref] {
				return fmt.Errorf("group %s objective %s: %w", g.Name, ref, ErrUnknownReference)
			}
		}
	}
	return nil
}

// ContentResolver turns a hint definition into display content.
type ContentResolver func(HintDef) quest.HintContent

// StaticResolver resolves hints to their literal title and description.
func StaticResolver(h HintDef) quest.HintContent {
	return quest.StaticContent{Title: h.Title, Body: h.Description}
}

// Catalog holds one objective instance per definition. It implements
// quest.Catalog.
type Catalog struct {
	def        *Definition
	objectives []*quest.Objective
	byID       map[string]*quest.Objective
	defs       map[string]ObjectiveDef
	groups     map[string]*quest.Group
}

// Build instantiates every objective of d. A nil resolver uses
// StaticResolver.
func Build(d *Definition, resolve ContentResolver) *Catalog {
	if resolve == nil {
		resolve = StaticResolver
	}

	c := &Catalog{
		def:    d,
		byID:   make(map[string]*quest.Objective, len(d.Objectives)),
		defs:   make(map[string]ObjectiveDef, len(d.Objectives)),
		groups: make(map[string]*quest.Group, len(d.Groups)),
	}
	for _, od := range d.Objectives {
		o := buildObjective(od, resolve)
		c.objectives = append(c.objectives, o)
		c.byID[od.ID] = o
		c.defs[od.ID] = od
	}
	for _, gd := range d.Groups {
		members := make([]*quest.Objective, 0, len(gd.Objectives))
		for _, ref := range gd.Objectives {
			if o, ok := c.byID[ref]; ok {
				members = append(members, o)
			}
		}
		c.groups[gd.Name] = quest.NewGroup(gd.Name, members...)
	}
	return c
}

func buildObjective(od ObjectiveDef, resolve ContentResolver) *quest.Objective {
	tasks := make([]*quest.Task, 0, len(od.Tasks))
	for _, td := range od.Tasks {
		opts := []quest.TaskOption{quest.WithTaskPriority(td.Priority)}
		if td.CompletesParent {
			opts = append(opts, quest.CompletesParent())
		}
		if td.InitiallyActive {
			opts = append(opts, quest.InitiallyActive())
		}
		tasks = append(tasks, quest.NewTask(td.ID, opts...))
	}

	hints := make([]*quest.Hint, 0, len(od.Hints))
	for _, hd := range od.Hints {
		hints = append(hints, quest.NewHint(hd.ID,
			quest.WithHintPriority(hd.Priority),
			quest.WithContent(resolve(hd)),
		))
	}

	return quest.NewObjective(od.ID,
		quest.WithPriority(od.Priority),
		quest.WithTasks(tasks...),
		quest.WithHints(hints...),
	)
}

// Objective implements quest.Catalog.
func (c *Catalog) Objective(id string) (*quest.Objective, bool) {
	o, ok := c.byID[id]
	return o, ok
}

// Objectives returns every objective in definition order.
func (c *Catalog) Objectives() []*quest.Objective {
	out := make([]*quest.Objective, len(c.objectives))
	copy(out, c.objectives)
	return out
}

// Definition returns the definition the objective with id was built from.
func (c *Catalog) Definition(id string) (ObjectiveDef, bool) {
	d, ok := c.defs[id]
	return d, ok
}

// Group returns the named objective group.
func (c *Catalog) Group(name string) (*quest.Group, bool) {
	g, ok := c.groups[name]
	return g, ok
}

// Len returns the number of objectives.
func (c *Catalog) Len() int { return len(c.objectives) }
