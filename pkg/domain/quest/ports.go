package quest

import "context"

// Catalog resolves design-time objectives by id. Loading a save uses it to
// map saved entries back onto objective instances.
type Catalog interface {
	Objective(id string) (*Objective, bool)
}

// CatalogFunc adapts a function to Catalog.
type CatalogFunc func(id string) (*Objective, bool)

func (f CatalogFunc) Objective(id string) (*Objective, bool) { return f(id) }

// SaveStore persists opaque coordinator blobs by slot name.
type SaveStore interface {
	Save(ctx context.Context, slot string, blob []byte) error
	// Load returns ErrNoSave when the slot has never been written.
	Load(ctx context.Context, slot string) ([]byte, error)
}
