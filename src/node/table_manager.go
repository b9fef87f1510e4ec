package node

import (
	"context"

	"github.com/mosaicnetworks/tablenet/src/table"
)

// TableManager propagates changes between the network tables of a node.
// Methods must be called on the node layer.
type TableManager interface {
	// IncrementComponentState applies inc to the component at path on every
	// table but source.
	IncrementComponentState(ctx context.Context, source NetworkTable, path table.ComponentPath, inc *table.ComponentIncrement)

	// SetTableState replaces the whole table with memento on every table but
	// source.
	SetTableState(ctx context.Context, source NetworkTable, memento *table.Memento)
}

type tableManager struct {
	node *LocalNode
}

// IncrementComponentState implements the TableManager interface.
func (m *tableManager) IncrementComponentState(ctx context.Context,
	source NetworkTable,
	path table.ComponentPath,
	inc *table.ComponentIncrement) {

	m.node.assertNodeLayer(ctx)

	for _, t := range m.node.tables {
		if t == source {
			continue
		}
		t.IncrementComponentState(ctx, path, inc)
	}
}

// SetTableState implements the TableManager interface.
func (m *tableManager) SetTableState(ctx context.Context,
	source NetworkTable,
	memento *table.Memento) {

	m.node.assertNodeLayer(ctx)

	for _, t := range m.node.tables {
		if t == source {
			continue
		}
		t.SetTableState(ctx, memento)
	}
}
