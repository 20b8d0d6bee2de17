// Package resource defines the typed resources that flow through a supply
// chain and the locations that hold them.
package resource

import "github.com/chainsimlab/chainsim/sim"

// A Resource is an opaque unit that carries a kind tag. Identity is by
// instance, not by value. Resources are immutable after creation.
type Resource interface {
	ID() string
	Kind() string
}

// A Predicate selects resources during a find.
type Predicate func(Resource) bool

// A Component is a resource produced by a manufacturing unit. Its kind is
// the component name; its origin is the location where it is produced.
type Component struct {
	id     string
	name   string
	origin string
}

// NewComponent creates a component instance of the given kind, originating
// from the named location.
func NewComponent(name, origin string) *Component {
	return &Component{
		id:     sim.GetIDGenerator().Generate(),
		name:   name,
		origin: origin,
	}
}

// ID returns the instance identity of the component.
func (c *Component) ID() string {
	return c.id
}

// Kind returns the component name.
func (c *Component) Kind() string {
	return c.name
}

// Origin returns the name of the location where the component is produced.
func (c *Component) Origin() string {
	return c.origin
}
