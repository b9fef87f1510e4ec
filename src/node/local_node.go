package node

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/mosaicnetworks/tablenet/src/common"
	"github.com/mosaicnetworks/tablenet/src/net"
	"github.com/mosaicnetworks/tablenet/src/table"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Controller is notified of the life cycle of a LocalNode.
type Controller interface {
	// Disconnected is called once the node is disconnected and disposed.
	// cause is the error that triggered the disconnection, or nil.
	Disconnected(cause error)
}

// ControllerFunc adapts a function to the Controller interface.
type ControllerFunc func(cause error)

// Disconnected implements the Controller interface.
func (f ControllerFunc) Disconnected(cause error) {
	f(cause)
}

// ConnectConfig holds the parameters of a connection.
type ConnectConfig struct {
	// Addr is the address the server listens on, or the address of the
	// server a client dials.
	Addr string

	// PlayerName is the name of the local player. It must be unique in the
	// table network.
	PlayerName string

	// Password is shared by every node of the table network. It is copied,
	// and the copy is zeroed when the node is disposed.
	Password []byte
}

// localNodeRole holds the behaviour that differs between a server and a
// client node. Methods other than connected are called on the node layer.
type localNodeRole interface {
	connecting(ctx context.Context) error
	createTransportLayer(ctx context.Context) net.TransportLayer
	connected(ctx context.Context) error
	disconnecting(ctx context.Context)
	disconnected(ctx context.Context)
	remoteNodeBound(ctx context.Context, r *RemoteNode)
	remoteNodeUnbound(ctx context.Context, r *RemoteNode)
	newRemoteNode() *RemoteNode
}

type nodeStats struct {
	messagesSent      int
	messagesReceived  int
	messagesUnhandled int
}

// LocalNode is the local end of a table network. It shares a table
// environment with its peers through a transport.
//
// A LocalNode is used once: after it has been disconnected, it cannot connect
// again. Its exported methods may be called from any goroutine; the rest of
// its state is only touched on its node layer.
type LocalNode struct {
	state

	conf       *Config
	logger     *logrus.Entry
	layer      *Layer
	role       localNodeRole
	env        *table.Environment
	stream     net.StreamLayer
	controller Controller

	playerName   string
	password     []byte
	players      []string
	remoteNodes  map[string]*RemoteNode
	connections  map[*RemoteNode]struct{}
	tables       map[string]NetworkTable
	localTable   *LocalNetworkTable
	tableManager TableManager
	transport    net.TransportLayer
	stats        nodeStats
	start        time.Time

	disconnectLock   sync.Mutex
	disconnectFuture *Future
}

func newLocalNode(env *table.Environment,
	stream net.StreamLayer,
	controller Controller,
	conf *Config,
	role localNodeRole) *LocalNode {

	if conf == nil {
		conf = DefaultConfig()
	}

	n := &LocalNode{
		conf:        conf,
		logger:      conf.Logger,
		layer:       NewLayer(conf.InboxSize, conf.Logger.WithField("prefix", "layer")),
		role:        role,
		env:         env,
		stream:      stream,
		controller:  controller,
		remoteNodes: make(map[string]*RemoteNode),
		connections: make(map[*RemoteNode]struct{}),
		tables:      make(map[string]NetworkTable),
	}
	n.tableManager = &tableManager{node: n}

	return n
}

// Layer returns the node layer.
func (n *LocalNode) Layer() *Layer {
	return n.layer
}

// TableManager returns the table manager. Its methods must be called on the
// node layer.
func (n *LocalNode) TableManager() TableManager {
	return n.tableManager
}

// Environment returns the local table environment.
func (n *LocalNode) Environment() *table.Environment {
	return n.env
}

// State returns the connection state.
func (n *LocalNode) State() ConnectionState {
	return n.getState()
}

// IsConnected reports whether the node is connected.
func (n *LocalNode) IsConnected() bool {
	return n.getState() == Connected
}

// PlayerName returns the name of the local player, or "" if the node is not
// connected.
func (n *LocalNode) PlayerName() string {
	var name string
	n.query("player name", func(ctx context.Context) error {
		name = n.playerName
		return nil
	})
	return name
}

// Players returns the names of every player at the table, including the
// local one.
func (n *LocalNode) Players() []string {
	var players []string
	n.query("players", func(ctx context.Context) error {
		players = make([]string, len(n.players))
		copy(players, n.players)
		return nil
	})
	return players
}

// GetStats returns information about the node.
func (n *LocalNode) GetStats() map[string]string {
	s := map[string]string{
		"state": n.getState().String(),
	}

	n.query("stats", func(ctx context.Context) error {
		uptime := time.Duration(0)
		if !n.start.IsZero() {
			uptime = time.Since(n.start)
		}

		s["player_name"] = n.playerName
		s["num_players"] = strconv.Itoa(len(n.players))
		s["num_remote_nodes"] = strconv.Itoa(len(n.remoteNodes))
		s["num_connections"] = strconv.Itoa(len(n.connections))
		s["num_tables"] = strconv.Itoa(len(n.tables))
		s["messages_sent"] = strconv.Itoa(n.stats.messagesSent)
		s["messages_received"] = strconv.Itoa(n.stats.messagesReceived)
		s["messages_unhandled"] = strconv.Itoa(n.stats.messagesUnhandled)
		s["uptime"] = uptime.Truncate(time.Second).String()
		return nil
	})

	return s
}

// BeginConnect connects the node in the background. The returned future
// carries the same error Connect would return.
func (n *LocalNode) BeginConnect(ctx context.Context, cfg ConnectConfig) *Future {
	f := newFuture()
	if !n.goFunc(func() { f.resolve(n.connect(ctx, cfg)) }) {
		f.resolve(common.NewNetworkErr(common.IllegalConnectionState, "too many pending operations", nil))
	}
	return f
}

// Connect opens the transport of the node and blocks until the node is
// connected. On failure, the node is disconnected before the error is
// returned, unless the failure is an IllegalConnectionState. Cancelling ctx
// interrupts the connection: an Interrupted error is returned and the node
// is disconnected in the background.
func (n *LocalNode) Connect(ctx context.Context, cfg ConnectConfig) error {
	return n.BeginConnect(ctx, cfg).Error()
}

func (n *LocalNode) connect(ctx context.Context, cfg ConnectConfig) error {
	var transport net.TransportLayer

	err := n.layer.SyncExec(ctx, func(lctx context.Context) error {
		if err := n.connecting(lctx, cfg); err != nil {
			return err
		}
		transport = n.transport
		return nil
	})
	if err != nil {
		switch {
		case err == ErrLayerShutdown:
			return common.NewNetworkErr(common.IllegalConnectionState, "node is disposed", nil)
		case common.IsNetwork(err, common.IllegalConnectionState):
			return err
		case ctx.Err() != nil:
			return n.interrupted(ctx.Err())
		}
		return n.failConnect(err)
	}

	if err := transport.Open(ctx, cfg.Addr); err != nil {
		if ctx.Err() != nil {
			return n.interrupted(ctx.Err())
		}
		return n.failConnect(common.NewNetworkErr(common.TransportError, "opening transport", err))
	}

	err = n.layer.SyncExec(ctx, func(lctx context.Context) error {
		if n.getState() != Connecting {
			return common.NewNetworkErr(common.Interrupted, "disconnected while connecting", nil)
		}
		n.setState(Connected)
		n.start = time.Now()
		return nil
	})
	if err != nil {
		switch {
		case err == ErrLayerShutdown:
			return common.NewNetworkErr(common.Interrupted, "disconnected while connecting", nil)
		case common.IsNetwork(err, common.Interrupted):
			return err
		case ctx.Err() != nil:
			return n.interrupted(ctx.Err())
		}
		return n.failConnect(err)
	}

	if err := n.role.connected(ctx); err != nil {
		if ctx.Err() != nil {
			return n.interrupted(ctx.Err())
		}
		return n.failConnect(err)
	}

	n.logger.WithField("addr", cfg.Addr).Info("Connected")

	return nil
}

// connecting prepares the node for a connection.
func (n *LocalNode) connecting(ctx context.Context, cfg ConnectConfig) error {
	if state := n.getState(); state != Disconnected {
		return common.NewNetworkErr(common.IllegalConnectionState,
			fmt.Sprintf("cannot connect a node that is %s", state), nil)
	}

	if cfg.PlayerName == "" {
		return errors.Wrap(ErrArgument, "player name required")
	}

	n.setState(Connecting)

	n.playerName = cfg.PlayerName
	n.password = make([]byte, len(cfg.Password))
	copy(n.password, cfg.Password)
	n.players = []string{n.playerName}

	n.localTable = newLocalNetworkTable(ctx, n)
	n.tables[n.playerName] = n.localTable

	if err := n.role.connecting(ctx); err != nil {
		return err
	}

	n.transport = n.role.createTransportLayer(ctx)

	return nil
}

func (n *LocalNode) failConnect(err error) error {
	n.logger.WithError(err).Error("Failed to connect")
	n.BeginDisconnect(err).Error()
	return err
}

func (n *LocalNode) interrupted(cause error) error {
	err := common.NewNetworkErr(common.Interrupted, "connect interrupted", cause)
	n.logger.WithError(err).Warn("Connect interrupted")
	n.BeginDisconnect(err)
	return err
}

// BeginDisconnect disconnects the node in the background. The node is
// disconnected only once; subsequent calls return the same future.
func (n *LocalNode) BeginDisconnect(cause error) *Future {
	n.disconnectLock.Lock()
	defer n.disconnectLock.Unlock()

	if n.disconnectFuture != nil {
		return n.disconnectFuture
	}

	f := newFuture()
	n.disconnectFuture = f

	run := func() {
		n.disconnect(cause)
		f.resolve(nil)
	}
	if !n.goFunc(run) {
		n.logger.Warn("Orchestration pool exhausted, disconnecting anyway")
		go run()
	}

	return f
}

// Disconnect disconnects the node and blocks until it is disposed. It never
// fails and may be called any number of times, even if the node never
// connected. It must not be called from the node layer; use BeginDisconnect
// there.
func (n *LocalNode) Disconnect(cause error) {
	n.BeginDisconnect(cause).Error()
}

// WaitRoutines blocks until every connect and disconnect goroutine of the
// node has returned. It must not be called from one of them, for instance
// from Controller.Disconnected.
func (n *LocalNode) WaitRoutines() {
	n.waitRoutines()
}

func (n *LocalNode) disconnect(cause error) {
	ctx := context.Background()

	var transport net.TransportLayer
	err := n.layer.SyncExec(ctx, func(lctx context.Context) error {
		transport = n.transport
		n.disconnecting(lctx)
		return nil
	})
	if err != nil {
		n.logger.WithError(err).Debug("Skipped disconnecting")
	}

	if transport != nil {
		if err := transport.Close(); err != nil {
			n.logger.WithError(err).Warn("Failed to close transport")
		}
	}

	err = n.layer.SyncExec(ctx, func(lctx context.Context) error {
		n.disconnected(lctx)
		n.dispose(lctx)
		return nil
	})
	if err != nil {
		n.logger.WithError(err).Debug("Skipped disposing")
	}

	n.layer.Dispose()
	<-n.layer.Done()

	n.setState(Disconnected)

	n.logger.WithError(cause).Info("Disconnected")

	if n.controller != nil {
		n.controller.Disconnected(cause)
	}
}

// disconnecting says goodbye to every connected remote node.
func (n *LocalNode) disconnecting(ctx context.Context) {
	if n.getState() != Disconnected {
		n.setState(Disconnecting)
	}

	for r := range n.connections {
		r.sayGoodbye(ctx)
	}

	n.role.disconnecting(ctx)
}

func (n *LocalNode) disconnected(ctx context.Context) {
	if n.localTable != nil {
		delete(n.tables, n.playerName)
		n.localTable.dispose(ctx)
		n.localTable = nil
	}

	n.transport = nil

	n.role.disconnected(ctx)
}

func (n *LocalNode) dispose(ctx context.Context) {
	for i := range n.password {
		n.password[i] = 0
	}
	n.password = nil

	for name, t := range n.tables {
		t.dispose(ctx)
		delete(n.tables, name)
	}

	n.remoteNodes = make(map[string]*RemoteNode)
	n.connections = make(map[*RemoteNode]struct{})
	n.players = nil

	n.layer.Dispose()
}

// bindRemoteNode registers r under its player name.
func (n *LocalNode) bindRemoteNode(ctx context.Context, r *RemoteNode) error {
	n.assertNodeLayer(ctx)

	if state := n.getState(); state != Connected && state != Disconnecting {
		return common.NewNetworkErr(common.IllegalConnectionState,
			fmt.Sprintf("cannot bind a remote node while %s", state), nil)
	}

	name := r.playerName
	if name == "" {
		return errors.Wrap(ErrArgument, "empty player name")
	}
	if _, ok := n.remoteNodes[name]; ok || name == n.playerName {
		return errors.Wrapf(ErrArgument, "player %s already bound", name)
	}

	n.remoteNodes[name] = r
	n.tables[name] = r.table

	n.role.remoteNodeBound(ctx, r)

	return nil
}

// unbindRemoteNode removes r from the bound remote nodes.
func (n *LocalNode) unbindRemoteNode(ctx context.Context, r *RemoteNode) error {
	n.assertNodeLayer(ctx)

	if state := n.getState(); state != Connected && state != Disconnecting {
		return common.NewNetworkErr(common.IllegalConnectionState,
			fmt.Sprintf("cannot unbind a remote node while %s", state), nil)
	}

	name := r.playerName
	if cur, ok := n.remoteNodes[name]; !ok || cur != r {
		return errors.Wrapf(ErrArgument, "player %s not bound", name)
	}

	delete(n.remoteNodes, name)
	delete(n.tables, name)

	n.role.remoteNodeUnbound(ctx, r)

	return nil
}

func (n *LocalNode) remoteNodeOpened(ctx context.Context, r *RemoteNode) {
	n.connections[r] = struct{}{}
}

func (n *LocalNode) remoteNodeClosed(ctx context.Context, r *RemoteNode) {
	delete(n.connections, r)
}

// boundPlayers returns the local player followed by every bound remote
// player, sorted.
func (n *LocalNode) boundPlayers() []string {
	names := make([]string, 0, len(n.remoteNodes))
	for name := range n.remoteNodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return append([]string{n.playerName}, names...)
}

// serviceFactory creates the transport service of every new connection.
func (n *LocalNode) serviceFactory() net.ServiceFactory {
	return func() net.Service {
		return newServiceProxy(n, n.role.newRemoteNode())
	}
}

func (n *LocalNode) assertNodeLayer(ctx context.Context) {
	n.layer.assertNodeLayer(ctx)
}

// logRejected logs the failure of an asynchronous task if it is already
// known.
// query runs task on the node layer and waits for it. A rejected task is
// logged and leaves the caller with its zero values.
func (n *LocalNode) query(what string, task Task) {
	if err := n.layer.SyncExec(context.Background(), task); err != nil {
		n.logger.WithError(err).WithField("task", what).Debug("Task rejected")
	}
}

func (n *LocalNode) logRejected(f *Future, what string) {
	select {
	case <-f.Done():
		if err := f.Error(); err != nil {
			n.logger.WithError(err).WithField("task", what).Debug("Task rejected")
		}
	default:
	}
}
