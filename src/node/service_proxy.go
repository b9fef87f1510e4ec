package node

import (
	"context"

	"github.com/mosaicnetworks/tablenet/src/net"
)

// serviceProxy is the transport service of one connection. It moves every
// transport event onto the node layer, in order.
type serviceProxy struct {
	node   *LocalNode
	remote *RemoteNode
}

func newServiceProxy(node *LocalNode, remote *RemoteNode) *serviceProxy {
	return &serviceProxy{
		node:   node,
		remote: remote,
	}
}

// Started implements the net.Service interface.
func (p *serviceProxy) Started(sc net.ServiceContext) {
	p.deliver("started", func(ctx context.Context) error {
		return p.remote.started(ctx, sc)
	})
}

// MessageReceived implements the net.Service interface.
func (p *serviceProxy) MessageReceived(env *net.MessageEnvelope) {
	p.deliver("messageReceived", func(ctx context.Context) error {
		p.remote.messageReceived(ctx, env)
		return nil
	})
}

// PeerStopped implements the net.Service interface.
func (p *serviceProxy) PeerStopped() {
	p.deliver("peerStopped", func(ctx context.Context) error {
		p.remote.peerStopped(ctx)
		return nil
	})
}

// Stopped implements the net.Service interface.
func (p *serviceProxy) Stopped(err error) {
	p.deliver("stopped", func(ctx context.Context) error {
		p.remote.stopped(ctx, err)
		return nil
	})
}

func (p *serviceProxy) deliver(event string, task Task) {
	if err := p.node.layer.Deliver(context.Background(), task); err != nil {
		p.node.logger.WithError(err).WithField("event", event).Debug("Transport event rejected")
	}
}
