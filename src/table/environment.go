package table

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

// Environment owns the tabletop and the lock guarding the whole document.
type Environment struct {
	mu       sync.Mutex
	registry *Registry
	tabletop *Container
}

// NewEnvironment creates an environment with an empty tabletop. The registry
// must define the tabletop strategy.
func NewEnvironment(registry *Registry) (*Environment, error) {
	env := &Environment{
		registry: registry,
	}

	strategy, err := registry.Strategy(TabletopStrategyID)
	if err != nil {
		return nil, err
	}

	tabletop := &Container{}
	if err := tabletop.init(env, strategy); err != nil {
		return nil, err
	}
	env.tabletop = tabletop

	return env, nil
}

// Lock acquires the document lock. It is not reentrant.
func (e *Environment) Lock() {
	e.mu.Lock()
}

// Unlock releases the document lock.
func (e *Environment) Unlock() {
	e.mu.Unlock()
}

// Registry ...
func (e *Environment) Registry() *Registry {
	return e.registry
}

// Tabletop returns the root container.
func (e *Environment) Tabletop() *Container {
	return e.tabletop
}

// NewComponent creates a detached component of the given strategy with
// default properties.
func (e *Environment) NewComponent(id StrategyID) (Component, error) {
	strategy, err := e.registry.Strategy(id)
	if err != nil {
		return nil, err
	}

	if strategy.Container {
		c := &Container{}
		if err := c.init(e, strategy); err != nil {
			return nil, err
		}
		return c, nil
	}

	b := &BasicComponent{}
	if err := b.init(e, b, strategy); err != nil {
		return nil, err
	}
	return b, nil
}

// CreateComponent builds a detached component, and its descendants, from a
// memento.
func (e *Environment) CreateComponent(m *Memento) (Component, error) {
	if m == nil {
		return nil, fmt.Errorf("nil memento")
	}

	c, err := e.NewComponent(m.Strategy)
	if err != nil {
		return nil, errors.Wrap(err, "creating component from memento")
	}

	if err := c.SetMemento(m); err != nil {
		return nil, errors.Wrap(err, "creating component from memento")
	}

	return c, nil
}

// Component resolves a path relative to the tabletop.
func (e *Environment) Component(path ComponentPath) (Component, error) {
	var cur Component = e.tabletop
	for depth, index := range path {
		container, ok := cur.(*Container)
		if !ok {
			return nil, fmt.Errorf("path %s: component at depth %d is not a container", path, depth)
		}
		child, err := container.ComponentAt(index)
		if err != nil {
			return nil, errors.Wrapf(err, "path %s", path)
		}
		cur = child
	}
	return cur, nil
}
