package node

import (
	"context"

	"github.com/mosaicnetworks/tablenet/src/table"
)

// NetworkTable is a replica of the table, local or remote, to which the
// table manager forwards changes. Methods are called on the node layer.
type NetworkTable interface {
	IncrementComponentState(ctx context.Context, path table.ComponentPath, inc *table.ComponentIncrement)
	SetTableState(ctx context.Context, memento *table.Memento)

	dispose(ctx context.Context)
}
