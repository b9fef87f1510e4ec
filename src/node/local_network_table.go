package node

import (
	"context"

	"github.com/mosaicnetworks/tablenet/src/table"
	"github.com/sirupsen/logrus"
)

// LocalNetworkTable binds the local table environment to the table manager.
// Changes made to the environment are turned into increments and handed to
// the table manager; increments received from the network are applied to the
// environment.
//
// Listeners run with the environment lock held, on whatever goroutine made
// the change. They only read the environment and queue work on the node
// layer, never wait for it.
type LocalNetworkTable struct {
	node   *LocalNode
	env    *table.Environment
	logger *logrus.Entry

	// replaying is set while the table applies a change received from the
	// network. Guarded by the environment lock.
	replaying bool

	// seq numbers published changes. Guarded by the environment lock.
	seq uint64
}

type sequenceKey struct{}

// withSequence returns a copy of ctx carrying the sequence number of the
// local change being propagated.
func withSequence(ctx context.Context, seq uint64) context.Context {
	return context.WithValue(ctx, sequenceKey{}, seq)
}

// sequenceFromContext returns the sequence number set by withSequence.
func sequenceFromContext(ctx context.Context) (uint64, bool) {
	seq, ok := ctx.Value(sequenceKey{}).(uint64)
	return seq, ok
}

// newLocalNetworkTable attaches a new LocalNetworkTable to every component of
// the environment of node.
func newLocalNetworkTable(ctx context.Context, node *LocalNode) *LocalNetworkTable {
	t := &LocalNetworkTable{
		node:   node,
		env:    node.env,
		logger: node.logger.WithField("table", "local"),
	}

	t.env.Lock()
	defer t.env.Unlock()

	t.attach(t.env.Tabletop())

	return t
}

// IncrementComponentState implements the NetworkTable interface.
func (t *LocalNetworkTable) IncrementComponentState(ctx context.Context, path table.ComponentPath, inc *table.ComponentIncrement) {
	t.env.Lock()
	defer t.env.Unlock()

	t.replaying = true
	defer func() { t.replaying = false }()

	comp, err := t.env.Component(path)
	if err != nil {
		t.logger.WithError(err).WithField("path", path).Warn("Failed to resolve component")
		return
	}

	applyIncrement(comp, inc, t.logger.WithField("path", path))
}

// SetTableState implements the NetworkTable interface.
func (t *LocalNetworkTable) SetTableState(ctx context.Context, memento *table.Memento) {
	t.env.Lock()
	defer t.env.Unlock()

	t.replaying = true
	defer func() { t.replaying = false }()

	if err := t.env.Tabletop().SetMemento(memento); err != nil {
		t.logger.WithError(err).Warn("Failed to set table state")
	}
}

// Snapshot returns a snapshot of the whole table along with the sequence
// number of the last change it contains.
func (t *LocalNetworkTable) Snapshot() (*table.Memento, uint64) {
	t.env.Lock()
	defer t.env.Unlock()
	return t.env.Tabletop().CreateMemento(), t.seq
}

func (t *LocalNetworkTable) dispose(ctx context.Context) {
	t.env.Lock()
	defer t.env.Unlock()

	t.detach(t.env.Tabletop())
}

// attach must be called with the environment lock held.
func (t *LocalNetworkTable) attach(comp table.Component) {
	comp.AddComponentListener(t)
	if c, ok := comp.(*table.Container); ok {
		c.AddContainerListener(t)
		for _, child := range c.Components() {
			t.attach(child)
		}
	}
}

// detach must be called with the environment lock held.
func (t *LocalNetworkTable) detach(comp table.Component) {
	comp.RemoveComponentListener(t)
	if c, ok := comp.(*table.Container); ok {
		c.RemoveContainerListener(t)
		for _, child := range c.Components() {
			t.detach(child)
		}
	}
}

// publish hands inc to the table manager, unless the change is one we are
// replaying.
func (t *LocalNetworkTable) publish(comp table.Component, build func(inc *table.ComponentIncrement)) {
	if t.replaying {
		return
	}

	path, err := comp.Path()
	if err != nil {
		t.logger.WithError(err).Debug("Ignoring change of a detached component")
		return
	}

	inc := &table.ComponentIncrement{}
	build(inc)

	t.seq++
	seq := t.seq

	f := t.node.layer.AsyncExec(context.Background(), func(ctx context.Context) error {
		t.node.tableManager.IncrementComponentState(withSequence(ctx, seq), t, path, inc)
		return nil
	})
	t.node.logRejected(f, "publish increment")
}

// ComponentBoundsChanged implements the table.ComponentListener interface.
func (t *LocalNetworkTable) ComponentBoundsChanged(e table.ComponentEvent) {
	t.publish(e.Component, func(inc *table.ComponentIncrement) {
		inc.SetLocation(e.Component.Location())
	})
}

// ComponentOrientationChanged implements the table.ComponentListener
// interface.
func (t *LocalNetworkTable) ComponentOrientationChanged(e table.ComponentEvent) {
	t.publish(e.Component, func(inc *table.ComponentIncrement) {
		inc.SetOrientation(e.Component.Orientation())
	})
}

// ComponentSurfaceDesignChanged implements the table.ComponentListener
// interface.
func (t *LocalNetworkTable) ComponentSurfaceDesignChanged(e table.ComponentEvent) {
	t.publish(e.Component, func(inc *table.ComponentIncrement) {
		inc.SetSurfaceDesigns(e.Component.SurfaceDesigns())
	})
}

// ComponentAdded implements the table.ContainerListener interface.
func (t *LocalNetworkTable) ComponentAdded(e table.ContainerContentEvent) {
	t.attach(e.Component)

	t.publish(e.Container, func(inc *table.ComponentIncrement) {
		inc.ContainerIncrement().SetAddedComponents(e.Index, []*table.Memento{e.Component.CreateMemento()})
	})
}

// ComponentRemoved implements the table.ContainerListener interface.
func (t *LocalNetworkTable) ComponentRemoved(e table.ContainerContentEvent) {
	t.detach(e.Component)

	t.publish(e.Container, func(inc *table.ComponentIncrement) {
		inc.ContainerIncrement().SetRemovedComponents(e.Index, 1)
	})
}

// ContainerLayoutChanged implements the table.ContainerListener interface.
func (t *LocalNetworkTable) ContainerLayoutChanged(e table.ContainerEvent) {
	t.publish(e.Container, func(inc *table.ComponentIncrement) {
		inc.ContainerIncrement().SetLayout(e.Container.Layout().ID)
	})
}
