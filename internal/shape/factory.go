package shape

import (
	"sync"

	"github.com/roach88/specatalog/internal/schema"
)

// Shapes bundles the three derived shapes of one entity.
type Shapes struct {
	Entity   *schema.Entity
	Filter   *FilterShape
	Ordering *OrderingShape
	Update   *UpdateShape
}

// Make derives all shapes of e.
func Make(e *schema.Entity) (*Shapes, error) {
	filter, err := MakeFilter(e)
	if err != nil {
		return nil, err
	}
	ordering, err := MakeOrdering(e)
	if err != nil {
		return nil, err
	}
	update, err := MakeUpdate(e)
	if err != nil {
		return nil, err
	}
	return &Shapes{Entity: e, Filter: filter, Ordering: ordering, Update: update}, nil
}

// Factory derives shapes once per entity and reuses them.
// It is safe for concurrent use.
type Factory struct {
	mu    sync.Mutex
	cache map[*schema.Entity]*Shapes
}

// NewFactory creates an empty factory.
func NewFactory() *Factory {
	return &Factory{cache: make(map[*schema.Entity]*Shapes)}
}

// For returns the shapes of e, deriving them on first use.
func (f *Factory) For(e *schema.Entity) (*Shapes, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if s, ok := f.cache[e]; ok {
		return s, nil
	}
	s, err := Make(e)
	if err != nil {
		return nil, err
	}
	f.cache[e] = s
	return s, nil
}

// Warm derives the shapes of every entity up front.
func (f *Factory) Warm() error {
	for _, e := range schema.All() {
		if _, err := f.For(e); err != nil {
			return err
		}
	}
	return nil
}
