package table

import (
	"fmt"
)

// Container is a component holding an ordered stack of children. Index 0 is
// the bottom of the stack.
type Container struct {
	BasicComponent
	layout             Layout
	components         []Component
	containerListeners []ContainerListener
}

func (c *Container) init(env *Environment, strategy *ComponentStrategy) error {
	if err := c.BasicComponent.init(env, c, strategy); err != nil {
		return err
	}

	layout, err := env.registry.Layout(strategy.DefaultLayout)
	if err != nil {
		return err
	}
	c.layout = layout

	return nil
}

// Layout ...
func (c *Container) Layout() Layout {
	return c.layout
}

// SetLayout ...
func (c *Container) SetLayout(l Layout) {
	if c.layout == l {
		return
	}
	c.layout = l
	c.fireLayoutChanged()
}

// ComponentCount ...
func (c *Container) ComponentCount() int {
	return len(c.components)
}

// ComponentAt returns the child at index.
func (c *Container) ComponentAt(index int) (Component, error) {
	if index < 0 || index >= len(c.components) {
		return nil, fmt.Errorf("component index %d out of range [0,%d)", index, len(c.components))
	}
	return c.components[index], nil
}

// Components returns a copy of the children, bottom to top.
func (c *Container) Components() []Component {
	res := make([]Component, len(c.components))
	copy(res, c.components)
	return res
}

// IndexOf returns the index of comp, or -1.
func (c *Container) IndexOf(comp Component) int {
	for i, cur := range c.components {
		if cur == comp {
			return i
		}
	}
	return -1
}

// AddComponent puts comp on top of the stack.
func (c *Container) AddComponent(comp Component) error {
	return c.AddComponents(len(c.components), []Component{comp})
}

// AddComponentAt inserts comp at index.
func (c *Container) AddComponentAt(comp Component, index int) error {
	return c.AddComponents(index, []Component{comp})
}

// AddComponents inserts comps, in order, starting at index.
func (c *Container) AddComponents(index int, comps []Component) error {
	if index < 0 || index > len(c.components) {
		return fmt.Errorf("component index %d out of range [0,%d]", index, len(c.components))
	}
	for _, comp := range comps {
		b := comp.base()
		if b.env != c.env {
			return fmt.Errorf("component belongs to another table environment")
		}
		if b.parent != nil {
			return fmt.Errorf("component already belongs to a container")
		}
		if c.env.tabletop != nil && comp == Component(c.env.tabletop) {
			return fmt.Errorf("the tabletop cannot be added to a container")
		}
	}

	for i, comp := range comps {
		at := index + i
		c.components = append(c.components, nil)
		copy(c.components[at+1:], c.components[at:])
		c.components[at] = comp
		comp.base().parent = c

		c.fireContent(comp, at, func(l ContainerListener, e ContainerContentEvent) { l.ComponentAdded(e) })
	}

	return nil
}

// RemoveComponent removes the child at index.
func (c *Container) RemoveComponent(index int) (Component, error) {
	if index < 0 || index >= len(c.components) {
		return nil, fmt.Errorf("component index %d out of range [0,%d)", index, len(c.components))
	}

	comp := c.components[index]
	c.components = append(c.components[:index], c.components[index+1:]...)
	comp.base().parent = nil

	c.fireContent(comp, index, func(l ContainerListener, e ContainerContentEvent) { l.ComponentRemoved(e) })

	return comp, nil
}

// RemoveComponents removes count children starting at index, one at a time.
func (c *Container) RemoveComponents(index int, count int) ([]Component, error) {
	if count < 0 || index < 0 || index+count > len(c.components) {
		return nil, fmt.Errorf("component range [%d,%d) out of range [0,%d)", index, index+count, len(c.components))
	}

	res := make([]Component, 0, count)
	for i := 0; i < count; i++ {
		comp, err := c.RemoveComponent(index)
		if err != nil {
			return res, err
		}
		res = append(res, comp)
	}
	return res, nil
}

// RemoveAllComponents removes every child, top first, and returns them bottom
// to top.
func (c *Container) RemoveAllComponents() []Component {
	res := make([]Component, len(c.components))
	for i := len(c.components) - 1; i >= 0; i-- {
		comp, _ := c.RemoveComponent(i)
		res[i] = comp
	}
	return res
}

// CreateMemento ...
func (c *Container) CreateMemento() *Memento {
	m := &Memento{}
	c.fillMemento(m)
	m.Layout = c.layout.ID
	m.Components = make([]*Memento, len(c.components))
	for i, comp := range c.components {
		m.Components[i] = comp.CreateMemento()
	}
	return m
}

// SetMemento restores the container and replaces all of its children. The
// children are built before anything is changed, so a memento that cannot be
// applied leaves the container untouched.
func (c *Container) SetMemento(m *Memento) error {
	designs, err := c.checkMemento(m)
	if err != nil {
		return err
	}

	layout, err := c.env.registry.Layout(m.Layout)
	if err != nil {
		return err
	}

	children := make([]Component, len(m.Components))
	for i, cm := range m.Components {
		child, err := c.env.CreateComponent(cm)
		if err != nil {
			return err
		}
		children[i] = child
	}

	c.applyMemento(m, designs)
	c.SetLayout(layout)
	c.RemoveAllComponents()

	return c.AddComponents(0, children)
}

// AddContainerListener ...
func (c *Container) AddContainerListener(l ContainerListener) {
	c.containerListeners = append(c.containerListeners, l)
}

// RemoveContainerListener ...
func (c *Container) RemoveContainerListener(l ContainerListener) {
	for i, cur := range c.containerListeners {
		if cur == l {
			c.containerListeners = append(c.containerListeners[:i], c.containerListeners[i+1:]...)
			return
		}
	}
}

func (c *Container) listenersCopy() []ContainerListener {
	listeners := make([]ContainerListener, len(c.containerListeners))
	copy(listeners, c.containerListeners)
	return listeners
}

func (c *Container) fireContent(comp Component, index int, f func(ContainerListener, ContainerContentEvent)) {
	e := ContainerContentEvent{Container: c, Component: comp, Index: index}
	for _, l := range c.listenersCopy() {
		f(l, e)
	}
}

func (c *Container) fireLayoutChanged() {
	e := ContainerEvent{Container: c}
	for _, l := range c.listenersCopy() {
		l.ContainerLayoutChanged(e)
	}
}
