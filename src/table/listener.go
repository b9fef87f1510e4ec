package table

// ComponentEvent is passed to ComponentListeners.
type ComponentEvent struct {
	Component Component
}

// ComponentListener observes changes to a single component.
type ComponentListener interface {
	ComponentBoundsChanged(e ComponentEvent)
	ComponentOrientationChanged(e ComponentEvent)
	ComponentSurfaceDesignChanged(e ComponentEvent)
}

// ContainerEvent is passed to ContainerListeners.
type ContainerEvent struct {
	Container *Container
}

// ContainerContentEvent describes a child added to, or removed from, a
// container. Index is the position of the child at the time of the change.
type ContainerContentEvent struct {
	Container *Container
	Component Component
	Index     int
}

// ContainerListener observes changes to the content and layout of a
// container.
type ContainerListener interface {
	ComponentAdded(e ContainerContentEvent)
	ComponentRemoved(e ContainerContentEvent)
	ContainerLayoutChanged(e ContainerEvent)
}
