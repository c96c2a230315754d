package masterdata

import (
	"fmt"
	"strings"
)

type collection struct {
	order []string
	items map[string]Entity
}

// Registry holds reference records grouped by kind, preserving insertion order.
// It is not safe for concurrent use; the ledger store serialises access.
type Registry struct {
	collections map[Kind]*collection
}

// NewRegistry returns an empty registry with every kind initialised.
func NewRegistry() *Registry {
	r := &Registry{collections: make(map[Kind]*collection, len(Kinds))}
	for _, k := range Kinds {
		r.collections[k] = &collection{items: make(map[string]Entity)}
	}
	return r
}

func (r *Registry) collection(kind Kind) (*collection, error) {
	c, ok := r.collections[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidEntity, kind)
	}
	return c, nil
}

func normalize(e Entity) (Entity, error) {
	if e == nil {
		return nil, ErrInvalidEntity
	}
	e = Deref(e)
	if strings.TrimSpace(e.EntityID()) == "" {
		return nil, fmt.Errorf("%w: empty id", ErrInvalidEntity)
	}
	return e, nil
}

// Add appends a new record.
func (r *Registry) Add(e Entity) error {
	e, err := normalize(e)
	if err != nil {
		return err
	}
	c, err := r.collection(e.EntityKind())
	if err != nil {
		return err
	}
	id := e.EntityID()
	if _, exists := c.items[id]; exists {
		return fmt.Errorf("%w: %s %s", ErrDuplicateID, e.EntityKind(), id)
	}
	c.items[id] = e
	c.order = append(c.order, id)
	return nil
}

// Update replaces the record with the same identity.
func (r *Registry) Update(e Entity) error {
	e, err := normalize(e)
	if err != nil {
		return err
	}
	c, err := r.collection(e.EntityKind())
	if err != nil {
		return err
	}
	id := e.EntityID()
	if _, exists := c.items[id]; !exists {
		return fmt.Errorf("%w: %s %s", ErrNotFound, e.EntityKind(), id)
	}
	c.items[id] = e
	return nil
}

// Remove deletes a record. References held elsewhere are left dangling.
func (r *Registry) Remove(kind Kind, id string) error {
	c, err := r.collection(kind)
	if err != nil {
		return err
	}
	if _, exists := c.items[id]; !exists {
		return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	}
	delete(c.items, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns a copy of the record.
func (r *Registry) Get(kind Kind, id string) (Entity, bool) {
	c, ok := r.collections[kind]
	if !ok {
		return nil, false
	}
	e, ok := c.items[id]
	if !ok {
		return nil, false
	}
	return copyEntity(e), true
}

// List returns copies of all records of kind in insertion order.
func (r *Registry) List(kind Kind) []Entity {
	c, ok := r.collections[kind]
	if !ok {
		return nil
	}
	out := make([]Entity, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, copyEntity(c.items[id]))
	}
	return out
}

// Len reports the number of records of kind.
func (r *Registry) Len(kind Kind) int {
	c, ok := r.collections[kind]
	if !ok {
		return 0
	}
	return len(c.order)
}

func copyEntity(e Entity) Entity {
	switch v := e.(type) {
	case Product:
		return v.Clone()
	case User:
		return cloneUser(v)
	}
	return e
}

// Get returns the typed record with id.
func Get[T Entity](r *Registry, id string) (T, bool) {
	var zero T
	e, ok := r.Get(zero.EntityKind(), id)
	if !ok {
		return zero, false
	}
	typed, ok := e.(T)
	return typed, ok
}

// List returns every typed record in insertion order.
func List[T Entity](r *Registry) []T {
	var zero T
	items := r.List(zero.EntityKind())
	out := make([]T, 0, len(items))
	for _, e := range items {
		if typed, ok := e.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}
