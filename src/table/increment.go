package table

import "fmt"

// ComponentIncrement is a sparse diff of a component. A nil field means the
// corresponding property did not change. Container is only set for changes to
// the content or layout of a container.
type ComponentIncrement struct {
	Location       *Point
	Orientation    *Orientation
	SurfaceDesigns map[Orientation]SurfaceDesignID
	Container      *ContainerIncrement
}

// SetLocation ...
func (i *ComponentIncrement) SetLocation(p Point) {
	i.Location = &p
}

// SetOrientation ...
func (i *ComponentIncrement) SetOrientation(o Orientation) {
	i.Orientation = &o
}

// SetSurfaceDesigns records the designs of the given orientations.
func (i *ComponentIncrement) SetSurfaceDesigns(designs map[Orientation]SurfaceDesign) {
	i.SurfaceDesigns = make(map[Orientation]SurfaceDesignID, len(designs))
	for o, d := range designs {
		i.SurfaceDesigns[o] = d.ID
	}
}

// ContainerIncrement returns the container part of the increment, creating
// it if necessary.
func (i *ComponentIncrement) ContainerIncrement() *ContainerIncrement {
	if i.Container == nil {
		i.Container = &ContainerIncrement{}
	}
	return i.Container
}

// IsEmpty reports whether the increment changes nothing.
func (i *ComponentIncrement) IsEmpty() bool {
	return i.Location == nil &&
		i.Orientation == nil &&
		i.SurfaceDesigns == nil &&
		(i.Container == nil || i.Container.IsEmpty())
}

// Validate checks that paired fields are set together.
func (i *ComponentIncrement) Validate() error {
	if i.Container != nil {
		return i.Container.Validate()
	}
	return nil
}

// ContainerIncrement is the container part of a ComponentIncrement. Removals
// are applied before additions. Added mementos are ordered bottom to top.
type ContainerIncrement struct {
	AddedComponentIndex    *int
	AddedComponentMementos []*Memento
	RemovedComponentIndex  *int
	RemovedComponentCount  *int
	Layout                 *LayoutID
}

// SetAddedComponents records that mementos were inserted at index.
func (c *ContainerIncrement) SetAddedComponents(index int, mementos []*Memento) {
	c.AddedComponentIndex = &index
	c.AddedComponentMementos = mementos
}

// AddedComponents returns the insertion, if any.
func (c *ContainerIncrement) AddedComponents() (int, []*Memento, bool) {
	if c.AddedComponentIndex == nil {
		return 0, nil, false
	}
	return *c.AddedComponentIndex, c.AddedComponentMementos, true
}

// SetRemovedComponents records that count children were removed at index.
func (c *ContainerIncrement) SetRemovedComponents(index int, count int) {
	c.RemovedComponentIndex = &index
	c.RemovedComponentCount = &count
}

// RemovedComponents returns the removal, if any.
func (c *ContainerIncrement) RemovedComponents() (int, int, bool) {
	if c.RemovedComponentIndex == nil {
		return 0, 0, false
	}
	return *c.RemovedComponentIndex, *c.RemovedComponentCount, true
}

// SetLayout ...
func (c *ContainerIncrement) SetLayout(id LayoutID) {
	c.Layout = &id
}

// IsEmpty ...
func (c *ContainerIncrement) IsEmpty() bool {
	return c.AddedComponentIndex == nil &&
		c.RemovedComponentIndex == nil &&
		c.Layout == nil
}

// Validate checks that paired fields are set together.
func (c *ContainerIncrement) Validate() error {
	if c.AddedComponentIndex == nil && len(c.AddedComponentMementos) > 0 {
		return fmt.Errorf("added component mementos without an index")
	}
	if (c.RemovedComponentIndex == nil) != (c.RemovedComponentCount == nil) {
		return fmt.Errorf("removed component index and count must be set together")
	}
	if c.RemovedComponentCount != nil && *c.RemovedComponentCount < 0 {
		return fmt.Errorf("removed component count must not be negative")
	}
	for _, m := range c.AddedComponentMementos {
		if m == nil {
			return fmt.Errorf("nil added component memento")
		}
	}
	return nil
}
