package table

import (
	"fmt"

	"github.com/pkg/errors"
)

// Component is an element of the tabletop. All methods require the
// environment lock to be held by the caller.
type Component interface {
	Environment() *Environment
	Strategy() *ComponentStrategy
	Container() *Container
	Path() (ComponentPath, error)

	Location() Point
	SetLocation(p Point)
	Orientation() Orientation
	SetOrientation(o Orientation) error
	SurfaceDesigns() map[Orientation]SurfaceDesign
	SetSurfaceDesigns(designs map[Orientation]SurfaceDesign) error

	CreateMemento() *Memento
	SetMemento(m *Memento) error

	AddComponentListener(l ComponentListener)
	RemoveComponentListener(l ComponentListener)

	base() *BasicComponent
}

// BasicComponent is a component without children, such as a card.
type BasicComponent struct {
	env            *Environment
	self           Component
	strategy       *ComponentStrategy
	parent         *Container
	location       Point
	orientation    Orientation
	surfaceDesigns map[Orientation]SurfaceDesign
	listeners      []ComponentListener
}

func (b *BasicComponent) init(env *Environment, self Component, strategy *ComponentStrategy) error {
	designs, err := env.registry.SurfaceDesigns(strategy.DefaultSurfaceDesigns)
	if err != nil {
		return errors.Wrapf(err, "default surface designs of %s", strategy.ID)
	}

	b.env = env
	b.self = self
	b.strategy = strategy
	b.orientation = strategy.DefaultOrientation
	b.surfaceDesigns = designs

	return nil
}

func (b *BasicComponent) base() *BasicComponent {
	return b
}

// Environment ...
func (b *BasicComponent) Environment() *Environment {
	return b.env
}

// Strategy ...
func (b *BasicComponent) Strategy() *ComponentStrategy {
	return b.strategy
}

// Container returns the parent container, or nil for the tabletop and for
// detached components.
func (b *BasicComponent) Container() *Container {
	return b.parent
}

// Path returns the location of the component relative to the tabletop.
func (b *BasicComponent) Path() (ComponentPath, error) {
	if b.parent == nil {
		if b.env.tabletop != nil && b.env.tabletop.self == b.self {
			return ComponentPath{}, nil
		}
		return nil, fmt.Errorf("component is not attached to the tabletop")
	}

	parentPath, err := b.parent.Path()
	if err != nil {
		return nil, err
	}

	index := b.parent.IndexOf(b.self)
	if index < 0 {
		return nil, fmt.Errorf("component not found in its container")
	}

	return parentPath.Child(index), nil
}

// Location ...
func (b *BasicComponent) Location() Point {
	return b.location
}

// SetLocation ...
func (b *BasicComponent) SetLocation(p Point) {
	if b.location == p {
		return
	}
	b.location = p
	b.fire(func(l ComponentListener, e ComponentEvent) { l.ComponentBoundsChanged(e) })
}

// Orientation ...
func (b *BasicComponent) Orientation() Orientation {
	return b.orientation
}

// SetOrientation fails if the strategy does not support o.
func (b *BasicComponent) SetOrientation(o Orientation) error {
	if !b.strategy.Supports(o) {
		return fmt.Errorf("orientation %q not supported by %s", o, b.strategy.ID)
	}
	if b.orientation == o {
		return nil
	}
	b.orientation = o
	b.fire(func(l ComponentListener, e ComponentEvent) { l.ComponentOrientationChanged(e) })
	return nil
}

// SurfaceDesigns returns a copy of the surface designs, by orientation.
func (b *BasicComponent) SurfaceDesigns() map[Orientation]SurfaceDesign {
	res := make(map[Orientation]SurfaceDesign, len(b.surfaceDesigns))
	for o, d := range b.surfaceDesigns {
		res[o] = d
	}
	return res
}

// SetSurfaceDesigns replaces the designs of the given orientations and
// leaves the others untouched.
func (b *BasicComponent) SetSurfaceDesigns(designs map[Orientation]SurfaceDesign) error {
	for o := range designs {
		if !b.strategy.Supports(o) {
			return fmt.Errorf("orientation %q not supported by %s", o, b.strategy.ID)
		}
	}

	changed := false
	for o, d := range designs {
		if cur, ok := b.surfaceDesigns[o]; !ok || cur != d {
			b.surfaceDesigns[o] = d
			changed = true
		}
	}

	if changed {
		b.fire(func(l ComponentListener, e ComponentEvent) { l.ComponentSurfaceDesignChanged(e) })
	}
	return nil
}

// CreateMemento ...
func (b *BasicComponent) CreateMemento() *Memento {
	m := &Memento{}
	b.fillMemento(m)
	return m
}

func (b *BasicComponent) fillMemento(m *Memento) {
	m.Strategy = b.strategy.ID
	m.Location = b.location
	m.Orientation = b.orientation
	m.SurfaceDesigns = make(map[Orientation]SurfaceDesignID, len(b.surfaceDesigns))
	for o, d := range b.surfaceDesigns {
		m.SurfaceDesigns[o] = d.ID
	}
}

// SetMemento restores the state captured by m. Nothing is changed when m
// cannot be applied.
func (b *BasicComponent) SetMemento(m *Memento) error {
	designs, err := b.checkMemento(m)
	if err != nil {
		return err
	}
	b.applyMemento(m, designs)
	return nil
}

func (b *BasicComponent) checkMemento(m *Memento) (map[Orientation]SurfaceDesign, error) {
	if m.Strategy != b.strategy.ID {
		return nil, fmt.Errorf("memento of %s cannot be applied to %s", m.Strategy, b.strategy.ID)
	}
	if !b.strategy.Supports(m.Orientation) {
		return nil, fmt.Errorf("orientation %q not supported by %s", m.Orientation, b.strategy.ID)
	}
	for o := range m.SurfaceDesigns {
		if !b.strategy.Supports(o) {
			return nil, fmt.Errorf("orientation %q not supported by %s", o, b.strategy.ID)
		}
	}
	return b.env.registry.SurfaceDesigns(m.SurfaceDesigns)
}

func (b *BasicComponent) applyMemento(m *Memento, designs map[Orientation]SurfaceDesign) {
	b.SetLocation(m.Location)
	b.SetOrientation(m.Orientation)
	b.SetSurfaceDesigns(designs)
}

// AddComponentListener ...
func (b *BasicComponent) AddComponentListener(l ComponentListener) {
	b.listeners = append(b.listeners, l)
}

// RemoveComponentListener ...
func (b *BasicComponent) RemoveComponentListener(l ComponentListener) {
	for i, cur := range b.listeners {
		if cur == l {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			return
		}
	}
}

func (b *BasicComponent) fire(f func(ComponentListener, ComponentEvent)) {
	listeners := make([]ComponentListener, len(b.listeners))
	copy(listeners, b.listeners)

	e := ComponentEvent{Component: b.self}
	for _, l := range listeners {
		f(l, e)
	}
}
