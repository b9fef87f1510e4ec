package node

import (
	"context"

	"github.com/mosaicnetworks/tablenet/src/net"
	"github.com/mosaicnetworks/tablenet/src/table"
)

// RemoteNetworkTable forwards changes to the table of a remote node.
type RemoteNetworkTable struct {
	remote *RemoteNode

	// snapshotSeq is the last local change contained in the snapshot sent to
	// the remote node. Local changes up to it are not forwarded again.
	snapshotSeq uint64
}

func newRemoteNetworkTable(remote *RemoteNode) *RemoteNetworkTable {
	return &RemoteNetworkTable{remote: remote}
}

// IncrementComponentState implements the NetworkTable interface.
func (t *RemoteNetworkTable) IncrementComponentState(ctx context.Context, path table.ComponentPath, inc *table.ComponentIncrement) {
	if seq, ok := sequenceFromContext(ctx); ok && seq <= t.snapshotSeq {
		t.remote.logger.WithField("seq", seq).Debug("Skipping increment already in snapshot")
		return
	}

	msg := &net.ComponentIncrementMessage{
		Path:      path,
		Increment: inc,
	}
	if err := t.remote.sendMessage(ctx, msg, nil); err != nil {
		t.remote.logger.WithError(err).Warn("Failed to send component increment")
	}
}

// sendSnapshot sends memento, a snapshot of the local table containing the
// local changes up to seq.
func (t *RemoteNetworkTable) sendSnapshot(ctx context.Context, memento *table.Memento, seq uint64) {
	t.snapshotSeq = seq
	t.SetTableState(ctx, memento)
}

// SetTableState implements the NetworkTable interface.
func (t *RemoteNetworkTable) SetTableState(ctx context.Context, memento *table.Memento) {
	msg := &net.TableMessage{
		Memento: memento,
	}
	if err := t.remote.sendMessage(ctx, msg, nil); err != nil {
		t.remote.logger.WithError(err).Warn("Failed to send table")
	}
}

func (t *RemoteNetworkTable) dispose(ctx context.Context) {}
